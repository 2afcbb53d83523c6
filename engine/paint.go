package engine

import (
	"bytes"
	"fmt"
	"image/png"

	"github.com/jung-kurt/gofpdf"

	"github.com/lvillar/pdfexport/draw"
	"github.com/lvillar/pdfexport/pdferr"
	"github.com/lvillar/pdfexport/reader"
)

// pageSpace converts PDF user space of a template page, origin bottom-left
// of its media box, to gofpdf's top-left page coordinates.
type pageSpace struct {
	box reader.Rectangle
}

func (p pageSpace) x(v float64) float64 { return v - p.box.LLX }
func (p pageSpace) y(v float64) float64 { return p.box.URY - v }

func (d *Document) paint(pg pageSpace, ins []draw.Instruction) error {
	for _, in := range ins {
		var err error
		switch v := in.(type) {
		case draw.Text:
			err = d.withAlpha(v.Opacity, func() error { return d.paintSpans(pg, v.Spans) })
		case draw.Bitmap:
			err = d.withAlpha(v.Opacity, func() error { return d.paintBitmap(pg, v) })
		case draw.Grid:
			err = d.paintGrid(pg, v)
		default:
			err = pdferr.Newf(pdferr.Render, "engine.paint", "unknown instruction %T", in)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

func (d *Document) withAlpha(opacity float64, fn func() error) error {
	if opacity <= 0 || opacity >= 1 {
		return fn()
	}
	d.pdf.SetAlpha(opacity, "Normal")
	defer d.pdf.SetAlpha(1, "Normal")
	return fn()
}

func (d *Document) paintSpans(pg pageSpace, spans []draw.Span) error {
	for _, s := range spans {
		if s.Text == "" {
			continue
		}
		f, err := d.font(s.Font)
		if err != nil {
			return err
		}
		d.pdf.SetFont(f.family, f.style(s.Style), s.Size)
		d.pdf.SetTextColor(int(s.Color.R), int(s.Color.G), int(s.Color.B))
		text := f.encode(s.Text)
		d.pdf.Text(pg.x(s.X), pg.y(s.Y), text)

		if s.Style.Has(draw.Underline) || s.Style.Has(draw.Strikethrough) {
			w := d.pdf.GetStringWidth(text)
			d.pdf.SetDrawColor(int(s.Color.R), int(s.Color.G), int(s.Color.B))
			d.pdf.SetLineWidth(s.Size / 20)
			if s.Style.Has(draw.Underline) {
				y := pg.y(s.Y - s.Size/10)
				d.pdf.Line(pg.x(s.X), y, pg.x(s.X)+w, y)
			}
			if s.Style.Has(draw.Strikethrough) {
				y := pg.y(s.Y + s.Size*0.3)
				d.pdf.Line(pg.x(s.X), y, pg.x(s.X)+w, y)
			}
		}
	}
	return nil
}

func (d *Document) paintBitmap(pg pageSpace, b draw.Bitmap) error {
	const op = "engine.paintBitmap"
	data, format := b.Data, b.Format
	if data == nil {
		if b.Image == nil {
			return pdferr.Newf(pdferr.Render, op, "bitmap without image").WithField(b.Field)
		}
		var buf bytes.Buffer
		if err := png.Encode(&buf, b.Image); err != nil {
			return pdferr.New(pdferr.Render, op, err).WithField(b.Field)
		}
		data, format = buf.Bytes(), "png"
	}
	d.images++
	name := fmt.Sprintf("img%d", d.images)
	opts := gofpdf.ImageOptions{ImageType: format, AllowNegativePosition: true}
	d.pdf.RegisterImageOptionsReader(name, opts, bytes.NewReader(data))
	if d.pdf.Err() {
		return pdferr.New(pdferr.Render, op, d.pdf.Error()).WithField(b.Field)
	}
	r := b.Rect.Normalize()
	d.pdf.ImageOptions(name, pg.x(r.Left), pg.y(r.Top), r.Width(), r.Height(), false, opts, 0, "")
	return nil
}

func (d *Document) paintGrid(pg pageSpace, g draw.Grid) error {
	for _, c := range g.Cells {
		r := c.Rect.Normalize()
		x, y := pg.x(r.Left), pg.y(r.Top)
		if c.Background != nil {
			d.pdf.SetFillColor(int(c.Background.R), int(c.Background.G), int(c.Background.B))
			d.pdf.Rect(x, y, r.Width(), r.Height(), "F")
		}
		if err := d.paintSpans(pg, c.Spans); err != nil {
			return err
		}
		if c.Border == draw.NoBorder || c.BorderWidth <= 0 {
			continue
		}
		d.pdf.SetDrawColor(int(c.BorderColor.R), int(c.BorderColor.G), int(c.BorderColor.B))
		d.pdf.SetLineWidth(c.BorderWidth)
		bottom := y + r.Height()
		right := x + r.Width()
		if c.Border.Has(draw.BorderTop) {
			d.pdf.Line(x, y, right, y)
		}
		if c.Border.Has(draw.BorderBottom) {
			d.pdf.Line(x, bottom, right, bottom)
		}
		if c.Border.Has(draw.BorderLeft) {
			d.pdf.Line(x, y, x, bottom)
		}
		if c.Border.Has(draw.BorderRight) {
			d.pdf.Line(right, y, right, bottom)
		}
	}
	return nil
}
