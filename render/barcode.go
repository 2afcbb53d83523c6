package render

import (
	"fmt"
	"image"
	"image/color"
	"strings"

	"github.com/boombuler/barcode/codabar"
	"github.com/boombuler/barcode/code128"
	"github.com/boombuler/barcode/code39"
	"github.com/boombuler/barcode/code93"
	"github.com/boombuler/barcode/datamatrix"
	"github.com/boombuler/barcode/ean"
	"github.com/boombuler/barcode/twooffive"
	pdf417 "github.com/ruudk/golang-pdf417"

	"github.com/lvillar/pdfexport/config"
	"github.com/lvillar/pdfexport/draw"
)

// Symbologies accepted in BarcodeFormat, keyed by lower-case name with the
// optional "barcode" prefix removed.
const (
	Code128    = "128"
	Code39     = "39"
	Code93     = "93"
	Codabar    = "codabar"
	Inter25    = "inter25"
	EAN        = "ean"
	PDF417     = "pdf417"
	DataMatrix = "datamatrix"
)

// PDF417 symbol shape: data columns and error correction level.
const (
	pdf417Columns  = 5
	pdf417Security = 2
)

type encoder struct {
	twoD   bool
	encode func(content string, opts config.BarcodeOptions) (image.Image, error)
}

var encoders = map[string]encoder{
	Code128: {encode: func(s string, _ config.BarcodeOptions) (image.Image, error) {
		return code128.Encode(s)
	}},
	Code39: {encode: func(s string, _ config.BarcodeOptions) (image.Image, error) {
		return code39.Encode(s, false, true)
	}},
	Code93: {encode: func(s string, _ config.BarcodeOptions) (image.Image, error) {
		return code93.Encode(s, true, true)
	}},
	Codabar: {encode: func(s string, _ config.BarcodeOptions) (image.Image, error) {
		// Start and stop characters are mandatory; default to A...B.
		u := strings.ToUpper(s)
		if u == "" || !strings.ContainsRune("ABCD", rune(u[0])) {
			u = "A" + u
		}
		if !strings.ContainsRune("ABCD", rune(u[len(u)-1])) || len(u) == 1 {
			u += "B"
		}
		return codabar.Encode(u)
	}},
	Inter25: {encode: func(s string, _ config.BarcodeOptions) (image.Image, error) {
		if len(s)%2 == 1 {
			s = "0" + s
		}
		return twooffive.Encode(s, true)
	}},
	EAN: {encode: func(s string, _ config.BarcodeOptions) (image.Image, error) {
		return ean.Encode(s)
	}},
	PDF417: {twoD: true, encode: func(s string, _ config.BarcodeOptions) (image.Image, error) {
		return pdf417.Encode(s, pdf417Columns, pdf417Security), nil
	}},
	DataMatrix: {twoD: true, encode: func(s string, _ config.BarcodeOptions) (image.Image, error) {
		return datamatrix.Encode(s)
	}},
}

// Symbology normalises a BarcodeFormat value. ok is false when the name is
// not supported, in which case Code 128 is returned.
func Symbology(format string) (name string, ok bool) {
	key := strings.TrimPrefix(strings.ToLower(strings.TrimSpace(format)), "barcode")
	key = strings.TrimPrefix(key, "code")
	if strings.HasPrefix(key, EAN) {
		key = EAN
	}
	if _, found := encoders[key]; found {
		return key, true
	}
	return Code128, format == ""
}

// Barcode encodes value and centres the symbol horizontally in the field:
// with marginLeft = (fieldWidth - symbolWidth) / 2 the symbol starts at
// left + marginLeft/2 and is stretched to fieldWidth - marginLeft. Two
// dimensional symbols keep their aspect ratio instead.
func (r *Renderer) Barcode(f draw.Field, value any, opts config.BarcodeOptions, st config.Style) ([]draw.Instruction, error) {
	const op = "render.Barcode"
	s, ok := Scalar(value)
	if !ok {
		return nil, typeMismatch(op, f.Name, value, "a string")
	}
	sym, known := Symbology(opts.Format)
	if !known {
		r.log.Warn().Str("field", f.Name).Str("format", opts.Format).
			Msg("unsupported barcode format, using Code 128")
	}
	enc := encoders[sym]
	img, err := enc.encode(s, opts)
	if err != nil {
		return nil, renderErr(op, f.Name, err)
	}
	if img == nil || img.Bounds().Empty() {
		return nil, renderErr(op, f.Name, fmt.Errorf("empty %s symbol", sym))
	}

	rect := f.Rect
	b := img.Bounds()
	barWidth := opts.BarWidth
	if barWidth <= 0 {
		barWidth = 0.8
	}
	natural := float64(b.Dx()) * barWidth

	height := opts.Height
	if height <= 0 {
		if enc.twoD {
			height = min(natural*float64(b.Dy())/float64(b.Dx()), rect.Height())
		} else {
			height = rect.Height() / 2
		}
	}

	marginLeft := (rect.Width() - natural) / 2
	width := rect.Width() - marginLeft
	if enc.twoD {
		// The width follows the height, both capped by the field.
		aspect := float64(b.Dx()) / float64(b.Dy())
		width = height * aspect
		if width > rect.Width() {
			width = rect.Width()
			height = width / aspect
		}
		marginLeft = rect.Width() - width
	}
	bottom := rect.Bottom
	if opts.AltText {
		bottom += opts.Baseline
	}
	bars := draw.Rect{
		Left:   rect.Left + marginLeft/2,
		Bottom: bottom,
		Right:  rect.Left + marginLeft/2 + width,
		Top:    bottom + height,
	}
	out := []draw.Instruction{draw.Bitmap{
		Page: f.Page, Layer: draw.Over, Field: f.Name, Rect: bars,
		Opacity: opacity(st.Opacity),
		Image:   tint(img, opts.BarColor),
	}}

	if opts.AltText {
		label := s
		if sym == Code39 && opts.StartStopText {
			label = "*" + s + "*"
		}
		size := opts.TextSize
		w, err := r.metrics.StringWidth(st.Font(), st.FontStyle, size, label)
		if err != nil {
			return nil, renderErr(op, f.Name, err)
		}
		out = append(out, draw.Text{
			Page: f.Page, Layer: draw.Over, Field: f.Name, Opacity: opacity(st.Opacity),
			Spans: []draw.Span{{
				Font: st.Font(), Style: st.FontStyle, Size: size, Color: opts.TextColor,
				X: alignX(bars, opts.TextAlign, w, 0), Y: bars.Bottom - opts.Baseline,
				Text: label,
			}},
		})
	}
	return out, nil
}

// tint paints the dark modules of img in c on a transparent background.
func tint(img image.Image, c draw.Color) *image.NRGBA {
	b := img.Bounds()
	out := image.NewNRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	on := color.NRGBA{R: c.R, G: c.G, B: c.B, A: 0xff}
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			if color.GrayModel.Convert(img.At(x, y)).(color.Gray).Y < 0x80 {
				out.SetNRGBA(x-b.Min.X, y-b.Min.Y, on)
			}
		}
	}
	return out
}
