// Package pdfimport places pages of existing documents into a gofpdf
// document as form XObjects.
package pdfimport

import (
	"bytes"
	"fmt"
	"io"

	"github.com/jung-kurt/gofpdf"
	"github.com/jung-kurt/gofpdf/contrib/gofpdi"
)

// Importer imports pages from any number of sources into one document.
type Importer struct {
	imp *gofpdi.Importer
}

// New returns an empty Importer.
func New() *Importer {
	return &Importer{imp: gofpdi.NewImporter()}
}

// Source is an input document. Pages of one source must be imported
// through the same Source value.
type Source struct {
	rs io.ReadSeeker
}

// NewSource wraps the bytes of a PDF document.
func NewSource(data []byte) *Source {
	return &Source{rs: bytes.NewReader(data)}
}

// Place imports page num (1-based) of src by its media box and draws it
// w x h points in size with its top-left corner at x, y on the current
// page. gofpdi reports parse failures by panicking; those come back as
// errors.
func (i *Importer) Place(pdf *gofpdf.Fpdf, src *Source, num int, x, y, w, h float64) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("import page %d: %v", num, r)
		}
	}()
	tpl := i.imp.ImportPageFromStream(pdf, &src.rs, num, "/MediaBox")
	i.imp.UseImportedTemplate(pdf, tpl, x, y, w, h)
	return nil
}
