package render

import (
	"image"
	"image/color"
	"strings"

	"github.com/boombuler/barcode/qr"

	"github.com/lvillar/pdfexport/config"
	"github.com/lvillar/pdfexport/draw"
)

var qrLevels = map[string]qr.ErrorCorrectionLevel{
	"L": qr.L,
	"M": qr.M,
	"Q": qr.Q,
	"H": qr.H,
}

// bitMatrix is a row-major grid of set modules.
type bitMatrix struct {
	w, h int
	bits []bool
}

func newBitMatrix(w, h int) *bitMatrix {
	return &bitMatrix{w: w, h: h, bits: make([]bool, w*h)}
}

func (m *bitMatrix) get(x, y int) bool { return m.bits[y*m.w+x] }
func (m *bitMatrix) set(x, y int)      { m.bits[y*m.w+x] = true }

// enclosing returns the smallest rectangle holding every set bit.
func (m *bitMatrix) enclosing() (image.Rectangle, bool) {
	minX, minY, maxX, maxY := m.w, m.h, -1, -1
	for y := 0; y < m.h; y++ {
		for x := 0; x < m.w; x++ {
			if !m.get(x, y) {
				continue
			}
			minX, minY = min(minX, x), min(minY, y)
			maxX, maxY = max(maxX, x), max(maxY, y)
		}
	}
	if maxX < 0 {
		return image.Rectangle{}, false
	}
	return image.Rect(minX, minY, maxX+1, maxY+1), true
}

// crop copies the bits inside r into a matrix with its origin at r.Min.
func (m *bitMatrix) crop(r image.Rectangle) *bitMatrix {
	out := newBitMatrix(r.Dx(), r.Dy())
	for y := r.Min.Y; y < r.Max.Y; y++ {
		for x := r.Min.X; x < r.Max.X; x++ {
			if m.get(x, y) {
				out.set(x-r.Min.X, y-r.Min.Y)
			}
		}
	}
	return out
}

func (m *bitMatrix) image(fore, back draw.Color) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, m.w, m.h))
	on := color.NRGBA{R: fore.R, G: fore.G, B: fore.B, A: 0xff}
	off := color.NRGBA{R: back.R, G: back.G, B: back.B, A: 0xff}
	for y := 0; y < m.h; y++ {
		for x := 0; x < m.w; x++ {
			if m.get(x, y) {
				img.SetNRGBA(x, y, on)
			} else {
				img.SetNRGBA(x, y, off)
			}
		}
	}
	return img
}

// qrMatrix encodes s and scales the symbol into a width x height matrix with
// a quiet zone of margin modules, centring it when the size is not an exact
// multiple. The matrix never shrinks below the symbol plus its margin.
func qrMatrix(s string, level qr.ErrorCorrectionLevel, width, height, margin int) (*bitMatrix, error) {
	code, err := qr.Encode(s, level, qr.Auto)
	if err != nil {
		return nil, err
	}
	n := code.Bounds().Dx()
	side := n + 2*margin
	outW, outH := max(width, side), max(height, side)
	multiple := min(outW/side, outH/side)
	left := (outW - n*multiple) / 2
	top := (outH - n*multiple) / 2

	m := newBitMatrix(outW, outH)
	for y := 0; y < n; y++ {
		for x := 0; x < n; x++ {
			if color.GrayModel.Convert(code.At(x, y)).(color.Gray).Y >= 0x80 {
				continue
			}
			for dy := 0; dy < multiple; dy++ {
				for dx := 0; dx < multiple; dx++ {
					m.set(left+x*multiple+dx, top+y*multiple+dy)
				}
			}
		}
	}
	return m, nil
}

// QRCode renders value as a QR symbol sized to the field rectangle, one
// pixel per point, anchored at the rectangle's bottom-left corner. A zero
// margin trims the quiet zone and places the symbol in a square as high as
// the field, or as wide when that is smaller. The trimmed bitmap keeps its
// whole pixels per module; the document scales it to the square.
func (r *Renderer) QRCode(f draw.Field, value any, opts config.QROptions, st config.Style) (draw.Bitmap, error) {
	const op = "render.QRCode"
	s, ok := Scalar(value)
	if !ok {
		return draw.Bitmap{}, typeMismatch(op, f.Name, value, "a string")
	}
	level, ok := qrLevels[strings.ToUpper(strings.TrimSpace(opts.Level))]
	if !ok {
		level = qr.M
	}
	rect := f.Rect
	w, h := int(rect.Width()), int(rect.Height())

	m, err := qrMatrix(s, level, w, h, max(opts.Margin, 0))
	if err != nil {
		return draw.Bitmap{}, renderErr(op, f.Name, err)
	}

	img := m.image(opts.Fore, opts.Back)
	width, height := float64(img.Bounds().Dx()), float64(img.Bounds().Dy())
	if opts.Margin == 0 {
		if bounds, ok := m.enclosing(); ok {
			img = m.crop(bounds).image(opts.Fore, opts.Back)
			side := float64(min(h, w))
			if side <= 0 {
				side = float64(img.Bounds().Dx())
			}
			width, height = side, side
		}
	}
	return draw.Bitmap{
		Page: f.Page, Layer: draw.Over, Field: f.Name, Opacity: opacity(st.Opacity),
		Rect: draw.Rect{
			Left: rect.Left, Bottom: rect.Bottom,
			Right: rect.Left + width, Top: rect.Bottom + height,
		},
		Image: img,
	}, nil
}
