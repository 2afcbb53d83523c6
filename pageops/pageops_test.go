package pageops_test

import (
	"bytes"
	"errors"
	"regexp"
	"strings"
	"testing"

	"github.com/ledongthuc/pdf"

	"github.com/lvillar/pdfexport/draw"
	"github.com/lvillar/pdfexport/internal/formpdf"
	"github.com/lvillar/pdfexport/pageops"
	"github.com/lvillar/pdfexport/pdferr"
	"github.com/lvillar/pdfexport/reader"
)

// createTestPDF generates a document of numPages 600x800 pages, each
// showing "Template page N".
func createTestPDF(t *testing.T, numPages, rotate int) []byte {
	t.Helper()
	return formpdf.Build(formpdf.Template{Pages: numPages, Width: 600, Height: 800, Rotate: rotate})
}

func parse(t *testing.T, data []byte) *reader.Document {
	t.Helper()
	if err := pageops.Validate(data); err != nil {
		t.Fatalf("validating output: %v", err)
	}
	doc, err := reader.Parse(data)
	if err != nil {
		t.Fatalf("reading output: %v", err)
	}
	return doc
}

func pageText(t *testing.T, data []byte, page int) string {
	t.Helper()
	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		t.Fatalf("opening output: %v", err)
	}
	text, err := r.Page(page).GetPlainText(nil)
	if err != nil {
		t.Fatalf("extracting page %d: %v", page, err)
	}
	return text
}

var doOperator = regexp.MustCompile(`/([^\s/]+)\s+Do\b`)

// templateText returns the decoded content of the form XObjects page n
// paints. Text extraction does not descend into XObjects, so imported page
// content is checked here.
func templateText(t *testing.T, data []byte, n int) string {
	t.Helper()
	doc, err := reader.Parse(data)
	if err != nil {
		t.Fatalf("reading output: %v", err)
	}
	p, err := doc.Page(n)
	if err != nil {
		t.Fatalf("page %d: %v", n, err)
	}
	content, err := p.Content()
	if err != nil {
		t.Fatalf("page %d content: %v", n, err)
	}
	xobjs, _ := doc.Resolve(p.Resources["XObject"])
	dict, _ := xobjs.(reader.Dict)

	var sb strings.Builder
	for _, m := range doOperator.FindAllSubmatch(content, -1) {
		o, err := doc.Resolve(dict[reader.Name(m[1])])
		if err != nil {
			t.Fatalf("resolving /%s: %v", m[1], err)
		}
		stm, ok := o.(reader.Stream)
		if !ok {
			continue
		}
		b, err := doc.Decode(stm)
		if err != nil {
			t.Fatalf("decoding /%s: %v", m[1], err)
		}
		sb.Write(b)
	}
	return sb.String()
}

func pageSize(t *testing.T, doc *reader.Document, n int) (w, h float64) {
	t.Helper()
	p, err := doc.Page(n)
	if err != nil {
		t.Fatalf("page %d: %v", n, err)
	}
	return p.MediaBox.Width(), p.MediaBox.Height()
}

func TestPageCount(t *testing.T) {
	n, err := pageops.PageCount(createTestPDF(t, 4, 0))
	if err != nil {
		t.Fatalf("page count: %v", err)
	}
	if n != 4 {
		t.Errorf("expected 4 pages, got %d", n)
	}

	if _, err := pageops.PageCount([]byte("garbage")); !errors.Is(err, pdferr.ErrIO) {
		t.Errorf("expected an i/o error, got %v", err)
	}
}

func TestValidateRejectsGarbage(t *testing.T) {
	if err := pageops.Validate([]byte("%PDF-1.7\nnot really")); !errors.Is(err, pdferr.ErrValidation) {
		t.Errorf("expected a validation error, got %v", err)
	}
}

func TestMerge(t *testing.T) {
	var buf bytes.Buffer
	if err := pageops.Merge(&buf, false, createTestPDF(t, 2, 0), createTestPDF(t, 3, 0)); err != nil {
		t.Fatalf("merge: %v", err)
	}

	doc := parse(t, buf.Bytes())
	if doc.NumPages() != 5 {
		t.Errorf("expected 5 pages, got %d", doc.NumPages())
	}
	t.Logf("Merged PDF: %d pages, %d bytes", doc.NumPages(), buf.Len())
}

func TestMergeHonoursRotation(t *testing.T) {
	rotated := createTestPDF(t, 1, 90)

	for _, tt := range []struct {
		honour bool
		wantW  float64
	}{
		{false, 600},
		{true, 800},
	} {
		var buf bytes.Buffer
		if err := pageops.Merge(&buf, tt.honour, createTestPDF(t, 1, 0), rotated); err != nil {
			t.Fatalf("merge: %v", err)
		}
		doc := parse(t, buf.Bytes())
		if w, _ := pageSize(t, doc, 1); w != 600 {
			t.Errorf("unrotated page width changed to %v", w)
		}
		if w, _ := pageSize(t, doc, 2); w != tt.wantW {
			t.Errorf("honour=%v: expected width %v, got %v", tt.honour, tt.wantW, w)
		}
		if !strings.Contains(templateText(t, buf.Bytes(), 2), "(Template page 1)") {
			t.Errorf("honour=%v: second page lost its content", tt.honour)
		}
	}
}

func TestMergeNoInputs(t *testing.T) {
	var buf bytes.Buffer
	if err := pageops.Merge(&buf, false); !errors.Is(err, pdferr.ErrValidation) {
		t.Errorf("expected error for empty merge, got %v", err)
	}
}

func TestRotate(t *testing.T) {
	in := createTestPDF(t, 3, 0)

	var buf bytes.Buffer
	if err := pageops.Rotate(&buf, in, 90, 2); err != nil {
		t.Fatalf("rotate: %v", err)
	}
	doc := parse(t, buf.Bytes())
	if doc.NumPages() != 3 {
		t.Fatalf("expected 3 pages, got %d", doc.NumPages())
	}
	if w, h := pageSize(t, doc, 2); w != 800 || h != 600 {
		t.Errorf("rotated page should be 800x600, got %vx%v", w, h)
	}
	if w, h := pageSize(t, doc, 1); w != 600 || h != 800 {
		t.Errorf("page 1 should be untouched, got %vx%v", w, h)
	}
	if !strings.Contains(templateText(t, buf.Bytes(), 2), "(Template page 2)") {
		t.Error("rotated page lost its content")
	}

	buf.Reset()
	if err := pageops.Rotate(&buf, in, -90); err != nil {
		t.Fatalf("rotate: %v", err)
	}
	if w, _ := pageSize(t, parse(t, buf.Bytes()), 3); w != 800 {
		t.Errorf("expected every page turned, page 3 width %v", w)
	}

	buf.Reset()
	if err := pageops.Rotate(&buf, in, 180); err != nil {
		t.Fatalf("rotate: %v", err)
	}
	if w, _ := pageSize(t, parse(t, buf.Bytes()), 1); w != 600 {
		t.Errorf("half turn should keep the page size, width %v", w)
	}
}

func TestInvalidRotation(t *testing.T) {
	var buf bytes.Buffer
	in := createTestPDF(t, 1, 0)
	if err := pageops.Rotate(&buf, in, 45); !errors.Is(err, pdferr.ErrValidation) {
		t.Errorf("expected error for invalid rotation angle, got %v", err)
	}
	if err := pageops.Rotate(&buf, in, 90, 2); !errors.Is(err, pdferr.ErrValidation) {
		t.Errorf("expected error for page out of range, got %v", err)
	}
}

func TestSplit(t *testing.T) {
	parts, err := pageops.Split(createTestPDF(t, 5, 0), 2)
	if err != nil {
		t.Fatalf("split: %v", err)
	}
	if len(parts) != 2 {
		t.Fatalf("expected 2 parts, got %d", len(parts))
	}
	want := []int{3, 2}
	for i, part := range parts {
		if n := parse(t, part).NumPages(); n != want[i] {
			t.Errorf("part %d: expected %d pages, got %d", i+1, want[i], n)
		}
	}
	for i, want := range []string{"(Template page 4)", "(Template page 5)"} {
		if got := templateText(t, parts[1], i+1); !strings.Contains(got, want) {
			t.Errorf("second part, page %d: expected %s in %q", i+1, want, got)
		}
	}

	if _, err := pageops.Split(createTestPDF(t, 2, 0), 3); !errors.Is(err, pdferr.ErrValidation) {
		t.Errorf("expected error splitting 2 pages into 3, got %v", err)
	}
}

func TestExtractPages(t *testing.T) {
	var buf bytes.Buffer
	if err := pageops.ExtractPages(&buf, createTestPDF(t, 5, 0), 4, 2); err != nil {
		t.Fatalf("extract: %v", err)
	}
	doc := parse(t, buf.Bytes())
	if doc.NumPages() != 2 {
		t.Errorf("expected 2 pages, got %d", doc.NumPages())
	}
	for i, want := range []string{"(Template page 4)", "(Template page 2)"} {
		if got := templateText(t, buf.Bytes(), i+1); !strings.Contains(got, want) {
			t.Errorf("page %d: expected %s in %q", i+1, want, got)
		}
	}

	if err := pageops.ExtractPages(&buf, createTestPDF(t, 1, 0)); err == nil {
		t.Error("expected error for no pages")
	}
}

func TestWatermark(t *testing.T) {
	in := createTestPDF(t, 2, 0)

	tests := []struct {
		name  string
		style pageops.WatermarkStyle
	}{
		{"over", pageops.WatermarkStyle{Text: "CONFIDENTIAL", Rotation: 45, Pages: []int{1}}},
		{"under", pageops.WatermarkStyle{Text: "CONFIDENTIAL", Layer: draw.Under, Position: pageops.TopLeft,
			FontStyle: draw.Bold, Color: &draw.Color{R: 200, G: 200, B: 200}, Opacity: 0.3, Pages: []int{1}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			if err := pageops.Watermark(&buf, in, tt.style); err != nil {
				t.Fatalf("watermark: %v", err)
			}
			out := buf.Bytes()
			if n := parse(t, out).NumPages(); n != 2 {
				t.Errorf("expected 2 pages, got %d", n)
			}
			if text := pageText(t, out, 1); !strings.Contains(text, "CONFIDENTIAL") {
				t.Errorf("page 1 should carry the watermark, got %q", text)
			}
			if text := pageText(t, out, 2); strings.Contains(text, "CONFIDENTIAL") {
				t.Errorf("page 2 should not carry the watermark, got %q", text)
			}
			t.Logf("Watermarked: orig=%d bytes, watermarked=%d bytes", len(in), len(out))
		})
	}

	var buf bytes.Buffer
	if err := pageops.Watermark(&buf, in, pageops.WatermarkStyle{}); !errors.Is(err, pdferr.ErrValidation) {
		t.Errorf("expected error for empty text, got %v", err)
	}
}

func TestProtect(t *testing.T) {
	var buf bytes.Buffer
	if err := pageops.Protect(&buf, createTestPDF(t, 2, 0), "user", "owner", pageops.AllowPrint|pageops.AllowCopy); err != nil {
		t.Fatalf("protect: %v", err)
	}
	if !bytes.Contains(buf.Bytes(), []byte("/Encrypt")) {
		t.Error("protected document has no /Encrypt entry")
	}
	if _, err := reader.Parse(buf.Bytes()); !errors.Is(err, reader.ErrEncrypted) {
		t.Errorf("expected the reader to refuse the encrypted document, got %v", err)
	}
}

func TestParsePosition(t *testing.T) {
	for name, want := range map[string]pageops.Position{
		"center":        pageops.Center,
		"top-left":      pageops.TopLeft,
		"TopCenter":     pageops.TopCenter,
		"bottom_right":  pageops.BottomRight,
		"Bottom Center": pageops.BottomCenter,
	} {
		got, ok := pageops.ParsePosition(name)
		if !ok || got != want {
			t.Errorf("ParsePosition(%q) = %v, %v; want %v", name, got, ok, want)
		}
	}
	if _, ok := pageops.ParsePosition("middle"); ok {
		t.Error("expected unknown position to be rejected")
	}
}
