// Package pageops rewrites whole documents: watermarking, rotating,
// merging, splitting and protecting pages.
//
// Every operation reads its input with the reader package, imports the
// pages as templates into a new gofpdf document through gofpdi and writes
// the result. Form fields and annotations do not survive the rebuild, so
// these operations are meant for exported, flattened documents.
package pageops

import (
	"bytes"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/jung-kurt/gofpdf"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"

	"github.com/lvillar/pdfexport/internal/pdfimport"
	"github.com/lvillar/pdfexport/pdferr"
	"github.com/lvillar/pdfexport/reader"
)

// Position specifies where to place an element on a page.
type Position int

const (
	Center Position = iota
	TopLeft
	TopCenter
	TopRight
	BottomLeft
	BottomCenter
	BottomRight
)

var positionNames = map[string]Position{
	"center":       Center,
	"topleft":      TopLeft,
	"topcenter":    TopCenter,
	"topright":     TopRight,
	"bottomleft":   BottomLeft,
	"bottomcenter": BottomCenter,
	"bottomright":  BottomRight,
}

// ParsePosition maps names like "top-left" or "BottomCenter" to a
// position. Unknown names give Center and false.
func ParsePosition(s string) (Position, bool) {
	p, ok := positionNames[strings.ToLower(strings.NewReplacer("-", "", "_", "", " ", "").Replace(s))]
	return p, ok
}

// creationDate keeps rebuilt documents reproducible.
var creationDate = time.Date(2000, time.January, 1, 0, 0, 0, 0, time.UTC)

// source is a parsed input document.
type source struct {
	src   *pdfimport.Source
	pages []*reader.Page
}

func open(op string, data []byte) (*source, error) {
	doc, err := reader.Parse(data)
	if err != nil {
		return nil, pdferr.New(pdferr.IO, op, err)
	}
	s := &source{src: pdfimport.NewSource(data)}
	for _, p := range doc.Pages() {
		s.pages = append(s.pages, p)
	}
	if len(s.pages) == 0 {
		return nil, pdferr.Newf(pdferr.IO, op, "document has no pages")
	}
	return s, nil
}

// builder assembles the output document.
type builder struct {
	op  string
	pdf *gofpdf.Fpdf
	imp *pdfimport.Importer
}

func newBuilder(op string) *builder {
	pdf := gofpdf.New("P", "pt", "A4", "")
	pdf.SetAutoPageBreak(false, 0)
	pdf.SetMargins(0, 0, 0)
	pdf.SetCreationDate(creationDate)
	pdf.SetCatalogSort(true)
	return &builder{op: op, pdf: pdf, imp: pdfimport.New()}
}

// addPage adds page num of s turned clockwise by rotate degrees (a
// multiple of 90). under and over, when set, draw on the new page before
// and after the imported content; they receive the page size.
func (b *builder) addPage(s *source, num, rotate int, under, over func(w, h float64)) error {
	mb := s.pages[num-1].MediaBox
	pw, ph := mb.Width(), mb.Height()
	w, h := pw, ph
	if rotate == 90 || rotate == 270 {
		w, h = ph, pw
	}
	b.pdf.AddPageFormat("P", gofpdf.SizeType{Wd: w, Ht: h})
	if under != nil {
		under(w, h)
	}

	if rotate != 0 {
		b.pdf.TransformBegin()
		b.pdf.Transform(rotation(rotate, pw, ph))
	}
	// The template is placed with its bottom edge on the page origin so
	// the rotation matrix works on the unrotated media box.
	err := b.imp.Place(b.pdf, s.src, num, 0, h-ph, pw, ph)
	if rotate != 0 {
		b.pdf.TransformEnd()
	}
	if err != nil {
		return pdferr.New(pdferr.Render, b.op, err)
	}

	if over != nil {
		over(w, h)
	}
	if b.pdf.Err() {
		return pdferr.New(pdferr.Render, b.op, b.pdf.Error())
	}
	return nil
}

// rotation returns the matrix turning a pw x ph page clockwise by deg
// degrees, in PDF user space.
func rotation(deg int, pw, ph float64) gofpdf.TransformMatrix {
	switch deg {
	case 90:
		return gofpdf.TransformMatrix{A: 0, B: -1, C: 1, D: 0, E: 0, F: pw}
	case 180:
		return gofpdf.TransformMatrix{A: -1, B: 0, C: 0, D: -1, E: pw, F: ph}
	case 270:
		return gofpdf.TransformMatrix{A: 0, B: 1, C: -1, D: 0, E: ph, F: 0}
	}
	return gofpdf.TransformMatrix{A: 1, D: 1}
}

// normalizeRotation maps any multiple of 90 into 0, 90, 180 or 270.
func normalizeRotation(op string, deg int) (int, error) {
	if deg%90 != 0 {
		return 0, pdferr.Newf(pdferr.Validation, op, "rotation must be a multiple of 90, got %d", deg)
	}
	return (deg%360 + 360) % 360, nil
}

func (b *builder) writeTo(w io.Writer) error {
	if err := b.pdf.Output(w); err != nil {
		return pdferr.New(pdferr.IO, b.op, err)
	}
	return nil
}

func (b *builder) bytes() ([]byte, error) {
	var buf bytes.Buffer
	if err := b.writeTo(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// pageSet returns the 1-based pages selected by pages, or all n pages when
// pages is empty.
func pageSet(op string, n int, pages []int) (map[int]bool, error) {
	set := make(map[int]bool, n)
	if len(pages) == 0 {
		for i := 1; i <= n; i++ {
			set[i] = true
		}
		return set, nil
	}
	for _, p := range pages {
		if p < 1 || p > n {
			return nil, pdferr.Newf(pdferr.Validation, op, "page %d out of range [1, %d]", p, n)
		}
		set[p] = true
	}
	return set, nil
}

// PageCount returns the number of pages of the document in data.
func PageCount(data []byte) (int, error) {
	doc, err := reader.Parse(data)
	if err != nil {
		return 0, pdferr.New(pdferr.IO, "pageops.PageCount", err)
	}
	return doc.NumPages(), nil
}

// Validate checks the structure of the document in data with pdfcpu.
func Validate(data []byte) error {
	conf := model.NewDefaultConfiguration()
	if err := api.Validate(bytes.NewReader(data), conf); err != nil {
		return pdferr.New(pdferr.Validation, "pageops.Validate", fmt.Errorf("invalid document: %w", err))
	}
	return nil
}
