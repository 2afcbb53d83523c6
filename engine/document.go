// Package engine is the document engine behind an export: it reads a
// fillable template, exposes its fields, collects drawing instructions and
// field values, and produces the flattened output document.
//
// Output is built with gofpdf. Each template page is imported as a form
// XObject through gofpdi, which carries the page content but not its
// annotations, so the result has no interactive fields left: values are
// painted as ordinary page content.
package engine

import (
	"bytes"
	"io"
	"time"

	"github.com/jung-kurt/gofpdf"
	"github.com/rs/zerolog"

	"github.com/lvillar/pdfexport/draw"
	"github.com/lvillar/pdfexport/form"
	"github.com/lvillar/pdfexport/internal/pdfimport"
	"github.com/lvillar/pdfexport/pdferr"
	"github.com/lvillar/pdfexport/reader"
	"github.com/lvillar/pdfexport/render"
)

// DefaultCreationDate is stamped into output documents unless overridden.
var DefaultCreationDate = time.Date(2000, time.January, 1, 0, 0, 0, 0, time.UTC)

type options struct {
	fontDirs []string
	log      zerolog.Logger
	created  time.Time
}

// Option configures Open.
type Option func(*options)

// WithFontDirs sets the directories searched, recursively, for font files.
func WithFontDirs(dirs ...string) Option {
	return func(o *options) { o.fontDirs = append(o.fontDirs, dirs...) }
}

// WithLogger sets the logger.
func WithLogger(l zerolog.Logger) Option {
	return func(o *options) { o.log = l }
}

// WithCreationDate sets the creation date written to the output.
func WithCreationDate(t time.Time) Option {
	return func(o *options) { o.created = t }
}

// queue holds the instructions of one page, by layer.
type queue struct {
	under, over []draw.Instruction
}

// Document is an open template. It is not safe for concurrent use.
type Document struct {
	raw   []byte
	src   *reader.Document
	pages []*reader.Page
	pdf   *gofpdf.Fpdf
	opts  options
	log   zerolog.Logger

	fields  []draw.Field
	byName  map[string]int
	values  map[string]string
	claimed map[string]bool
	queues  map[int]*queue
	fonts   map[string]*font
	images  int

	out       bytes.Buffer
	flattened bool
	closed    bool
}

// Open parses template and prepares an output document for it.
func Open(template []byte, opt ...Option) (*Document, error) {
	const op = "engine.Open"
	o := options{log: zerolog.Nop(), created: DefaultCreationDate}
	for _, fn := range opt {
		fn(&o)
	}
	src, err := reader.Parse(template)
	if err != nil {
		return nil, pdferr.New(pdferr.IO, op, err)
	}
	d := &Document{
		raw:     template,
		src:     src,
		opts:    o,
		log:     o.log,
		byName:  map[string]int{},
		values:  map[string]string{},
		claimed: map[string]bool{},
		queues:  map[int]*queue{},
		fonts:   map[string]*font{},
	}
	for _, p := range src.Pages() {
		d.pages = append(d.pages, p)
	}
	if len(d.pages) == 0 {
		return nil, pdferr.Newf(pdferr.IO, op, "template has no pages")
	}

	fields, err := src.Fields()
	if err != nil {
		return nil, pdferr.New(pdferr.IO, op, err)
	}
	for _, f := range fields {
		df := form.FromReader(f)
		if df.Page > len(d.pages) {
			df.Page = 1
		}
		if _, dup := d.byName[df.Name]; dup {
			continue
		}
		d.byName[df.Name] = len(d.fields)
		d.fields = append(d.fields, df)
	}

	d.pdf = gofpdf.New("P", "pt", "A4", "")
	d.pdf.SetAutoPageBreak(false, 0)
	d.pdf.SetMargins(0, 0, 0)
	d.pdf.SetCreationDate(o.created)
	d.pdf.SetCatalogSort(true)
	d.pdf.SetProducer("pdfexport", false)

	d.log.Debug().Int("pages", len(d.pages)).Int("fields", len(d.fields)).Str("version", src.Version).
		Msg("template loaded")
	return d, nil
}

// NumPages returns the number of template pages.
func (d *Document) NumPages() int { return len(d.pages) }

// Fields returns the template fields in document order.
func (d *Document) Fields() []draw.Field {
	return append([]draw.Field(nil), d.fields...)
}

// Field returns the named field.
func (d *Document) Field(name string) (draw.Field, bool) {
	i, ok := d.byName[name]
	if !ok {
		return draw.Field{}, false
	}
	return d.fields[i], true
}

func (d *Document) usable(op string) error {
	switch {
	case d.closed:
		return pdferr.New(pdferr.IO, op, pdferr.ErrClosed)
	case d.flattened:
		return pdferr.New(pdferr.Render, op, pdferr.ErrFlattened)
	}
	return nil
}

// Draw queues instructions for painting when the document is flattened. A
// field named by an instruction is considered drawn: its template value is
// no longer painted.
func (d *Document) Draw(ins ...draw.Instruction) error {
	const op = "engine.Draw"
	if err := d.usable(op); err != nil {
		return err
	}
	for _, in := range ins {
		page, layer := in.Target()
		if page == 0 {
			page = 1
		}
		if page < 1 || page > len(d.pages) {
			return pdferr.Newf(pdferr.Render, op, "page %d out of range 1..%d", page, len(d.pages))
		}
		q := d.queues[page]
		if q == nil {
			q = &queue{}
			d.queues[page] = q
		}
		if layer == draw.Under {
			q.under = append(q.under, in)
		} else {
			q.over = append(q.over, in)
		}
		if name := fieldOf(in); name != "" {
			d.claimed[name] = true
		}
	}
	return nil
}

func fieldOf(in draw.Instruction) string {
	switch v := in.(type) {
	case draw.Text:
		return v.Field
	case draw.Bitmap:
		return v.Field
	case draw.Grid:
		return v.Field
	}
	return ""
}

// SetValue stores the value of a field; it is painted when the document is
// flattened. Values are checked with form.Normalize.
func (d *Document) SetValue(name, value string) error {
	const op = "engine.SetValue"
	if err := d.usable(op); err != nil {
		return err
	}
	f, ok := d.Field(name)
	if !ok {
		return pdferr.Newf(pdferr.ResourceNotFound, op, "no field %q", name)
	}
	v, err := form.Normalize(f, value)
	if err != nil {
		return err
	}
	d.values[name] = v
	delete(d.claimed, name)
	return nil
}

// Flatten paints every page: instructions under the template content, the
// template page, the field values, then instructions over it. The document
// accepts no drawing afterwards.
func (d *Document) Flatten() error {
	const op = "engine.Flatten"
	if err := d.usable(op); err != nil {
		return err
	}
	d.flattened = true

	// Appearances are measured before any page exists so that font
	// switches made while measuring do not leak into page content.
	baked, err := d.bakedValues()
	if err != nil {
		return err
	}

	src := pdfimport.NewSource(d.raw)
	imp := pdfimport.New()
	for n, page := range d.pages {
		num := n + 1
		mb := page.MediaBox
		d.pdf.AddPageFormat("P", gofpdf.SizeType{Wd: mb.Width(), Ht: mb.Height()})
		pg := pageSpace{box: mb}
		q := d.queues[num]
		if q == nil {
			q = &queue{}
		}
		if err := d.paint(pg, q.under); err != nil {
			return err
		}
		if err := imp.Place(d.pdf, src, num, 0, 0, mb.Width(), mb.Height()); err != nil {
			return pdferr.New(pdferr.Render, op, err)
		}
		if err := d.paint(pg, baked[num]); err != nil {
			return err
		}
		if err := d.paint(pg, q.over); err != nil {
			return err
		}
		if d.pdf.Err() {
			return pdferr.New(pdferr.Render, op, d.pdf.Error())
		}
	}
	if err := d.pdf.Output(&d.out); err != nil {
		return pdferr.New(pdferr.IO, op, err)
	}
	d.log.Debug().Int("pages", len(d.pages)).Int("bytes", d.out.Len()).Msg("document flattened")
	return nil
}

// bakedValues renders the value of every field that no instruction drew,
// by page.
func (d *Document) bakedValues() (map[int][]draw.Instruction, error) {
	r := render.New(d, d.log)
	out := map[int][]draw.Instruction{}
	for _, f := range d.fields {
		if d.claimed[f.Name] {
			continue
		}
		v, set := d.values[f.Name]
		if !set {
			v = f.Value
		}
		ins, err := form.Appearance(r, f, v)
		if err != nil {
			return nil, err
		}
		for _, in := range ins {
			page, _ := in.Target()
			out[page] = append(out[page], in)
		}
	}
	return out, nil
}

// WriteTo writes the flattened document to w, flattening it first if
// needed.
func (d *Document) WriteTo(w io.Writer) (int64, error) {
	const op = "engine.WriteTo"
	if d.closed {
		return 0, pdferr.New(pdferr.IO, op, pdferr.ErrClosed)
	}
	if !d.flattened {
		if err := d.Flatten(); err != nil {
			return 0, err
		}
	}
	n, err := w.Write(d.out.Bytes())
	if err != nil {
		return int64(n), pdferr.New(pdferr.IO, op, err)
	}
	return int64(n), nil
}

// Close releases the document. It is safe to call more than once.
func (d *Document) Close() error {
	if d.closed {
		return nil
	}
	d.closed = true
	d.raw, d.src, d.pages, d.pdf = nil, nil, nil, nil
	d.queues, d.fonts = nil, nil
	d.out = bytes.Buffer{}
	return nil
}
