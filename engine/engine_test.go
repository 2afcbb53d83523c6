package engine_test

import (
	"bytes"
	"image"
	"image/color"
	"os"
	"path/filepath"
	"testing"

	"github.com/ledongthuc/pdf"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/image/font/gofont/goregular"

	"github.com/lvillar/pdfexport/draw"
	"github.com/lvillar/pdfexport/engine"
	"github.com/lvillar/pdfexport/internal/formpdf"
	"github.com/lvillar/pdfexport/pdferr"
	"github.com/lvillar/pdfexport/reader"
)

func template() []byte {
	return formpdf.Build(formpdf.Template{
		Pages: 2,
		Fields: []formpdf.Field{
			{Name: "name", Kind: formpdf.Text, Rect: formpdf.Rect{50, 700, 250, 720}, FontSize: 11},
			{Name: "city", Kind: formpdf.Text, Rect: formpdf.Rect{50, 660, 250, 680}, Value: "Lisbon"},
			{Name: "notes", Kind: formpdf.Text, Page: 2, Rect: formpdf.Rect{50, 500, 300, 600}, Multiline: true},
			{Name: "agree", Kind: formpdf.Checkbox, Rect: formpdf.Rect{50, 620, 62, 632}, OnState: "Si"},
			{Name: "color", Kind: formpdf.Radio, Buttons: []formpdf.RadioButton{
				{OnState: "R", Rect: formpdf.Rect{50, 580, 60, 590}},
				{OnState: "G", Rect: formpdf.Rect{70, 580, 80, 590}},
			}},
		},
	})
}

func open(t *testing.T, opts ...engine.Option) *engine.Document {
	t.Helper()
	doc, err := engine.Open(template(), opts...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = doc.Close() })
	return doc
}

func pageText(t *testing.T, data []byte, page int) string {
	t.Helper()
	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	require.NoError(t, err)
	text, err := r.Page(page).GetPlainText(nil)
	require.NoError(t, err)
	return text
}

func TestFields(t *testing.T) {
	doc := open(t)
	assert.Equal(t, 2, doc.NumPages())

	fields := doc.Fields()
	require.Len(t, fields, 5)
	assert.Equal(t, "name", fields[0].Name)

	notes, ok := doc.Field("notes")
	require.True(t, ok)
	assert.Equal(t, 2, notes.Page)
	assert.True(t, notes.Multiline)

	_, ok = doc.Field("nope")
	assert.False(t, ok)
}

func TestFlattenPaintsValues(t *testing.T) {
	doc := open(t)

	require.NoError(t, doc.Draw(draw.Text{
		Page: 1, Field: "name",
		Spans: []draw.Span{{Font: "Helvetica", Size: 12, X: 52, Y: 705, Text: "Alice", Style: draw.Underline}},
	}))
	require.NoError(t, doc.SetValue("agree", "true"))
	require.NoError(t, doc.SetValue("color", "G"))

	img := image.NewNRGBA(image.Rect(0, 0, 4, 4))
	img.SetNRGBA(1, 1, color.NRGBA{R: 255, A: 255})
	require.NoError(t, doc.Draw(
		draw.Bitmap{Page: 2, Layer: draw.Under, Rect: draw.Rect{Left: 10, Bottom: 10, Right: 50, Top: 50}, Image: img, Opacity: 0.5},
		draw.Grid{Page: 2, Field: "notes", Cells: []draw.Cell{{
			Rect:       draw.Rect{Left: 50, Bottom: 580, Right: 150, Top: 600},
			Background: &draw.White, Border: draw.BorderBox, BorderWidth: 0.5,
			Spans: []draw.Span{{Font: "Courier", Size: 10, X: 52, Y: 586, Text: "cell"}},
		}}},
	))
	require.NoError(t, doc.Flatten())

	var out bytes.Buffer
	n, err := doc.WriteTo(&out)
	require.NoError(t, err)
	assert.Equal(t, int64(out.Len()), n)

	data := out.Bytes()
	require.NoError(t, api.Validate(bytes.NewReader(data), model.NewDefaultConfiguration()))
	assert.NotContains(t, string(data), "/AcroForm")

	parsed, err := reader.Parse(data)
	require.NoError(t, err)
	assert.Equal(t, 2, parsed.NumPages())
	fields, err := parsed.Fields()
	require.NoError(t, err)
	assert.Empty(t, fields)

	first := pageText(t, data, 1)
	assert.Contains(t, first, "Alice")
	assert.Contains(t, first, "Lisbon")
	assert.Contains(t, pageText(t, data, 2), "cell")
}

func TestLifecycle(t *testing.T) {
	doc := open(t)

	err := doc.Draw(draw.Text{Page: 3})
	assert.ErrorIs(t, err, pdferr.ErrRender)

	assert.ErrorIs(t, doc.SetValue("missing", "x"), pdferr.ErrResourceNotFound)
	assert.ErrorIs(t, doc.SetValue("color", "Blue"), pdferr.ErrTypeMismatch)

	require.NoError(t, doc.Flatten())
	assert.ErrorIs(t, doc.Draw(draw.Text{Page: 1}), pdferr.ErrFlattened)
	assert.ErrorIs(t, doc.SetValue("name", "x"), pdferr.ErrFlattened)
	assert.ErrorIs(t, doc.Flatten(), pdferr.ErrFlattened)

	require.NoError(t, doc.Close())
	require.NoError(t, doc.Close())
	_, err = doc.WriteTo(&bytes.Buffer{})
	assert.ErrorIs(t, err, pdferr.ErrClosed)
	_, err = doc.StringWidth("Helvetica", draw.Normal, 10, "x")
	assert.ErrorIs(t, err, pdferr.ErrClosed)
}

func TestWriteToFlattens(t *testing.T) {
	doc := open(t)
	var out bytes.Buffer
	_, err := doc.WriteTo(&out)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(out.Bytes(), []byte("%PDF-")))
	assert.ErrorIs(t, doc.Draw(draw.Text{Page: 1}), pdferr.ErrFlattened)
}

func TestCoreFontMetrics(t *testing.T) {
	doc := open(t)

	w, err := doc.StringWidth("Helvetica", draw.Normal, 10, "W")
	require.NoError(t, err)
	assert.InDelta(t, 9.44, w, 1e-6)

	bold, err := doc.StringWidth("arial", draw.Bold, 10, "W")
	require.NoError(t, err)
	assert.Greater(t, bold, w)

	tests := []struct {
		font string
		r    rune
		want bool
	}{
		{"Helvetica", 'é', true},
		{"Helvetica", '€', true},
		{"Helvetica", '中', false},
		{"ZapfDingbats", '4', true},
		{"Courier", 'ß', true},
	}
	for _, tt := range tests {
		got, err := doc.HasGlyph(tt.font, tt.r)
		require.NoError(t, err)
		assert.Equal(t, tt.want, got, "%s %q", tt.font, tt.r)
	}
}

func TestTrueTypeFonts(t *testing.T) {
	dir := t.TempDir()
	nested := filepath.Join(dir, "latin", "go")
	require.NoError(t, os.MkdirAll(nested, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(nested, "GoRegular.ttf"), goregular.TTF, 0o600))

	doc := open(t, engine.WithFontDirs(dir))

	ok, err := doc.HasGlyph("goregular.ttf", 'é')
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = doc.HasGlyph("goregular.ttf", '中')
	require.NoError(t, err)
	assert.False(t, ok)

	w, err := doc.StringWidth("goregular.ttf", draw.Bold, 12, "abc")
	require.NoError(t, err)
	assert.Greater(t, w, 0.0)

	require.NoError(t, doc.Draw(draw.Text{Page: 1, Field: "name", Spans: []draw.Span{
		{Font: "goregular.ttf", Size: 12, X: 52, Y: 705, Text: "Ωmega"},
	}}))
	var out bytes.Buffer
	_, err = doc.WriteTo(&out)
	require.NoError(t, err)
	require.NoError(t, api.Validate(bytes.NewReader(out.Bytes()), model.NewDefaultConfiguration()))

	_, err = open(t).HasGlyph("missing.ttf", 'a')
	assert.ErrorIs(t, err, pdferr.ErrResourceNotFound)
}

func TestOpenRejectsGarbage(t *testing.T) {
	_, err := engine.Open([]byte("not a pdf"))
	assert.ErrorIs(t, err, pdferr.ErrIO)
}
