package render_test

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/makiuchi-d/gozxing"
	"github.com/makiuchi-d/gozxing/qrcode"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/image/bmp"
	xdraw "golang.org/x/image/draw"

	"github.com/lvillar/pdfexport/config"
	"github.com/lvillar/pdfexport/draw"
	"github.com/lvillar/pdfexport/pdferr"
	"github.com/lvillar/pdfexport/render"
)

// fakeMetrics measures every rune as half the font size. "Latin" covers
// runes below U+3000, every other font covers everything.
type fakeMetrics struct{}

func (fakeMetrics) HasGlyph(font string, r rune) (bool, error) {
	if font == "Latin" {
		return r < 0x3000, nil
	}
	return true, nil
}

func (fakeMetrics) StringWidth(_ string, _ draw.FontStyle, size float64, s string) (float64, error) {
	return float64(len([]rune(s))) * size / 2, nil
}

func newRenderer(buf *bytes.Buffer) *render.Renderer {
	if buf == nil {
		return render.New(fakeMetrics{}, zerolog.Nop())
	}
	return render.New(fakeMetrics{}, zerolog.New(buf))
}

func field(name string, r draw.Rect) draw.Field {
	return draw.Field{Name: name, Type: draw.FieldText, Page: 2, Rect: r}
}

func style(size float64, h draw.HAlign, fonts ...string) config.Style {
	st := config.DefaultStyle()
	st.FontSize = size
	st.HAlign = h
	if len(fonts) > 0 {
		st.FontNames = fonts
	}
	return st
}

func TestTextAlignment(t *testing.T) {
	r := newRenderer(nil)
	f := field("name", draw.Rect{Left: 100, Bottom: 100, Right: 300, Top: 120})

	tests := []struct {
		align draw.HAlign
		x     float64
	}{
		{draw.AlignLeft, 102},
		{draw.AlignCenter, 190},
		{draw.AlignRight, 278},
	}
	for _, tt := range tests {
		txt, err := r.Text(f, "abcd", style(10, tt.align))
		require.NoError(t, err)
		require.Len(t, txt.Spans, 1)
		assert.InDelta(t, tt.x, txt.Spans[0].X, 1e-9)
		assert.InDelta(t, 107, txt.Spans[0].Y, 1e-9)
		assert.Equal(t, 2, txt.Page)
		assert.Equal(t, "name", txt.Field)
	}
}

func TestTextVerticalAlignment(t *testing.T) {
	r := newRenderer(nil)
	f := field("name", draw.Rect{Left: 0, Bottom: 100, Right: 200, Top: 140})
	st := style(10, draw.AlignLeft)

	st.VAlign = draw.AlignTop
	txt, err := r.Text(f, "x", st)
	require.NoError(t, err)
	assert.InDelta(t, 130, txt.Spans[0].Y, 1e-9)

	st.VAlign = draw.AlignBottom
	txt, err = r.Text(f, "x", st)
	require.NoError(t, err)
	assert.InDelta(t, 104, txt.Spans[0].Y, 1e-9)
}

func TestTextFontFallbackChain(t *testing.T) {
	r := newRenderer(nil)
	f := field("addr", draw.Rect{Left: 0, Bottom: 0, Right: 300, Top: 20})

	txt, err := r.Text(f, "ab中文c", style(10, draw.AlignLeft, "Latin", "CJK"))
	require.NoError(t, err)
	require.Len(t, txt.Spans, 3)
	assert.Equal(t, []string{"Latin", "CJK", "Latin"},
		[]string{txt.Spans[0].Font, txt.Spans[1].Font, txt.Spans[2].Font})
	assert.Equal(t, "中文", txt.Spans[1].Text)
	assert.InDelta(t, 12, txt.Spans[1].X, 1e-9)
	assert.InDelta(t, 22, txt.Spans[2].X, 1e-9)
}

func TestTextValues(t *testing.T) {
	r := newRenderer(nil)
	f := field("n", draw.Rect{Right: 100, Top: 20})

	txt, err := r.Text(f, nil, style(10, draw.AlignLeft))
	require.NoError(t, err)
	assert.Empty(t, txt.Spans)

	txt, err = r.Text(f, 42.5, style(10, draw.AlignLeft))
	require.NoError(t, err)
	assert.Equal(t, "42.5", txt.Spans[0].Text)

	_, err = r.Text(f, map[string]any{"a": 1}, style(10, draw.AlignLeft))
	assert.ErrorIs(t, err, pdferr.ErrTypeMismatch)
	assert.Equal(t, "n", err.(*pdferr.Error).Field)
}

func TestTextMultilineWraps(t *testing.T) {
	r := newRenderer(nil)
	f := field("notes", draw.Rect{Left: 0, Bottom: 0, Right: 54, Top: 100})
	f.Multiline = true

	// 50pt usable, 5pt per rune: ten runes per line.
	txt, err := r.Text(f, "aaaa bbbb cccc\ndd", style(10, draw.AlignLeft))
	require.NoError(t, err)
	require.Len(t, txt.Spans, 3)
	assert.Equal(t, "aaaa bbbb", txt.Spans[0].Text)
	assert.Equal(t, "cccc", txt.Spans[1].Text)
	assert.Equal(t, "dd", txt.Spans[2].Text)
	assert.InDelta(t, 90, txt.Spans[0].Y, 1e-9)
	assert.InDelta(t, 78, txt.Spans[1].Y, 1e-9)
	assert.InDelta(t, 66, txt.Spans[2].Y, 1e-9)
}

func barcodeOptions(format string) config.BarcodeOptions {
	s, err := config.NewSnapshot(nil)
	if err != nil {
		panic(err)
	}
	opts := s.Barcode("code")
	opts.Format = format
	return opts
}

func TestBarcodeIsCentred(t *testing.T) {
	r := newRenderer(nil)
	rect := draw.Rect{Left: 100, Bottom: 500, Right: 400, Top: 560}

	for _, format := range []string{"128", "Barcode39", "code93", "codabar", "inter25", "ean13", "datamatrix", "pdf417"} {
		value := "12345670"
		if format == "ean13" {
			value = "590123412345"
		}
		out, err := r.Barcode(field("code", rect), value, barcodeOptions(format), config.DefaultStyle())
		require.NoError(t, err, format)
		require.Len(t, out, 1, format)
		bm := out[0].(draw.Bitmap)
		assert.InDelta(t, rect.CenterX(), bm.Rect.CenterX(), 1e-6, format)
		assert.InDelta(t, rect.Bottom, bm.Rect.Bottom, 1e-9, format)
		assert.NotNil(t, bm.Image, format)
	}
}

func TestBarcodeGeometry(t *testing.T) {
	r := newRenderer(nil)
	rect := draw.Rect{Left: 100, Bottom: 500, Right: 400, Top: 560}
	opts := barcodeOptions("128")

	out, err := r.Barcode(field("code", rect), "HELLO", opts, config.DefaultStyle())
	require.NoError(t, err)
	bm := out[0].(draw.Bitmap)
	img := bm.Image.(*image.NRGBA)

	natural := float64(img.Bounds().Dx()) * opts.BarWidth
	marginLeft := (rect.Width() - natural) / 2
	assert.InDelta(t, rect.Left+marginLeft/2, bm.Rect.Left, 1e-9)
	assert.InDelta(t, rect.Width()-marginLeft, bm.Rect.Width(), 1e-9)
	assert.InDelta(t, 30, bm.Rect.Height(), 1e-9)

	// Bars are painted, gaps are transparent.
	assert.Equal(t, color.NRGBA{A: 0xff}, img.NRGBAAt(0, 0))
	var clear bool
	for x := 0; x < img.Bounds().Dx(); x++ {
		if img.NRGBAAt(x, 0).A == 0 {
			clear = true
			break
		}
	}
	assert.True(t, clear)

	opts.Height = 12
	out, err = r.Barcode(field("code", rect), "HELLO", opts, config.DefaultStyle())
	require.NoError(t, err)
	assert.InDelta(t, 12, out[0].(draw.Bitmap).Rect.Height(), 1e-9)
}

func TestTwoDimensionalBarcodeKeepsAspect(t *testing.T) {
	r := newRenderer(nil)
	fields := map[string]draw.Rect{
		"short":  {Left: 100, Bottom: 500, Right: 400, Top: 520},
		"narrow": {Left: 100, Bottom: 500, Right: 120, Top: 800},
		"roomy":  {Left: 100, Bottom: 500, Right: 400, Top: 800},
	}
	for _, format := range []string{"datamatrix", "pdf417"} {
		for name, rect := range fields {
			out, err := r.Barcode(field("code", rect), "HELLO 2D 0123456789", barcodeOptions(format), config.DefaultStyle())
			require.NoError(t, err, format)
			bm := out[0].(draw.Bitmap)
			b := bm.Image.Bounds()

			aspect := float64(b.Dx()) / float64(b.Dy())
			assert.InDelta(t, aspect, bm.Rect.Width()/bm.Rect.Height(), 1e-9, "%s %s", format, name)
			assert.LessOrEqual(t, bm.Rect.Width(), rect.Width()+1e-9, "%s %s", format, name)
			assert.LessOrEqual(t, bm.Rect.Height(), rect.Height()+1e-9, "%s %s", format, name)
			assert.InDelta(t, rect.CenterX(), bm.Rect.CenterX(), 1e-6, "%s %s", format, name)
		}
	}
}

func TestBarcodeUnknownFormatFallsBack(t *testing.T) {
	var logs bytes.Buffer
	r := newRenderer(&logs)
	rect := draw.Rect{Left: 0, Bottom: 0, Right: 200, Top: 40}

	out, err := r.Barcode(field("code", rect), "ABC", barcodeOptions("XYZ"), config.DefaultStyle())
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Contains(t, logs.String(), "unsupported barcode format")
	assert.Contains(t, logs.String(), `"format":"XYZ"`)

	name, ok := render.Symbology("XYZ")
	assert.Equal(t, render.Code128, name)
	assert.False(t, ok)
	name, ok = render.Symbology("")
	assert.Equal(t, render.Code128, name)
	assert.True(t, ok)
	name, ok = render.Symbology("BARCODE39")
	assert.Equal(t, render.Code39, name)
	assert.True(t, ok)
}

func TestBarcodeAltText(t *testing.T) {
	r := newRenderer(nil)
	rect := draw.Rect{Left: 100, Bottom: 500, Right: 400, Top: 560}
	opts := barcodeOptions("39")
	opts.AltText = true
	opts.StartStopText = true
	opts.Baseline = 10
	opts.TextSize = 8

	out, err := r.Barcode(field("code", rect), "ABC", opts, config.DefaultStyle())
	require.NoError(t, err)
	require.Len(t, out, 2)
	bm := out[0].(draw.Bitmap)
	assert.InDelta(t, 510, bm.Rect.Bottom, 1e-9)

	txt := out[1].(draw.Text)
	require.Len(t, txt.Spans, 1)
	assert.Equal(t, "*ABC*", txt.Spans[0].Text)
	assert.InDelta(t, 500, txt.Spans[0].Y, 1e-9)
	assert.InDelta(t, bm.Rect.CenterX()-10, txt.Spans[0].X, 1e-9)
	assert.Equal(t, 8.0, txt.Spans[0].Size)
}

func TestBarcodeRejectsComposite(t *testing.T) {
	r := newRenderer(nil)
	_, err := r.Barcode(field("code", draw.Rect{Right: 100, Top: 40}), []string{"a"}, barcodeOptions(""), config.DefaultStyle())
	assert.ErrorIs(t, err, pdferr.ErrTypeMismatch)

	_, err = r.Barcode(field("code", draw.Rect{Right: 100, Top: 40}), "not digits", barcodeOptions("ean"), config.DefaultStyle())
	assert.ErrorIs(t, err, pdferr.ErrRender)
}

// decodeQR reads a QR symbol from img after surrounding it with a quiet zone.
func decodeQR(t *testing.T, img image.Image) string {
	t.Helper()
	b := img.Bounds()
	padded := image.NewNRGBA(image.Rect(0, 0, b.Dx()+40, b.Dy()+40))
	xdraw.Draw(padded, padded.Bounds(), image.White, image.Point{}, xdraw.Src)
	xdraw.Draw(padded, image.Rect(20, 20, 20+b.Dx(), 20+b.Dy()), img, b.Min, xdraw.Src)

	bitmap, err := gozxing.NewBinaryBitmapFromImage(padded)
	require.NoError(t, err)
	hints := map[gozxing.DecodeHintType]interface{}{gozxing.DecodeHintType_TRY_HARDER: true}
	result, err := qrcode.NewQRCodeReader().Decode(bitmap, hints)
	require.NoError(t, err)
	return result.GetText()
}

func TestQRCodeRoundTrip(t *testing.T) {
	r := newRenderer(nil)
	rect := draw.Rect{Left: 40, Bottom: 60, Right: 160, Top: 180}
	s, err := config.NewSnapshot(nil)
	require.NoError(t, err)

	for _, margin := range []int{2, 0} {
		opts := s.QRCode("qr")
		opts.Margin = margin
		for _, value := range []string{"ABC123", "https://example.com/invoice?id=42"} {
			bm, err := r.QRCode(field("qr", rect), value, opts, config.DefaultStyle())
			require.NoError(t, err)
			assert.Equal(t, draw.Rect{Left: 40, Bottom: 60, Right: 160, Top: 180}, bm.Rect, "margin %d", margin)
			assert.Equal(t, value, decodeQR(t, bm.Image), "margin %d", margin)
		}
	}
}

func TestQRCodeRoundTripSmallFields(t *testing.T) {
	r := newRenderer(nil)
	values := []string{
		"ABC123",
		"漢字テスト",
		"https://example.com/invoices/2024/000042?customer=alice&x=1",
		strings.Repeat("0123456789", 12),
	}
	sizes := []struct{ w, h float64 }{{25, 25}, {30, 30}, {40, 40}, {100, 40}, {40, 100}, {100, 100}}

	for _, margin := range []int{0, 1, 2} {
		for _, size := range sizes {
			for _, value := range values {
				opts := config.QROptions{Level: "M", Margin: margin, Fore: draw.Black, Back: draw.White}
				bm, err := r.QRCode(field("qr", draw.Rect{Right: size.w, Top: size.h}), value, opts, config.DefaultStyle())
				require.NoError(t, err)
				assert.Equal(t, value, decodeQR(t, bm.Image), "margin %d, %vx%v, %q", margin, size.w, size.h, value)
				if margin == 0 {
					side := min(size.w, size.h)
					assert.Equal(t, draw.Rect{Right: side, Top: side}, bm.Rect)
				}
			}
		}
	}
}

func TestQRCodeTrimRemovesQuietZone(t *testing.T) {
	r := newRenderer(nil)
	rect := draw.Rect{Right: 200, Top: 100}
	opts := config.QROptions{Level: "H", Margin: 0, Fore: draw.Color{R: 0x20}, Back: draw.White}

	bm, err := r.QRCode(field("qr", rect), "ABC123", opts, config.DefaultStyle())
	require.NoError(t, err)
	assert.Equal(t, draw.Rect{Right: 100, Top: 100}, bm.Rect)

	img := bm.Image.(*image.NRGBA)
	n := img.Bounds().Dx()
	assert.Equal(t, n, img.Bounds().Dy())
	// The finder patterns start in the very corners once trimmed.
	assert.Equal(t, color.NRGBA{R: 0x20, A: 0xff}, img.NRGBAAt(0, 0))
	assert.Equal(t, color.NRGBA{R: 0x20, A: 0xff}, img.NRGBAAt(n-1, 0))
	assert.Equal(t, color.NRGBA{R: 0x20, A: 0xff}, img.NRGBAAt(0, n-1))
	assert.Equal(t, "ABC123", decodeQR(t, img))
}

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewGray(image.Rect(0, 0, w, h))))
	return buf.Bytes()
}

func TestImageFitsInsideField(t *testing.T) {
	r := newRenderer(nil)
	f := field("logo", draw.Rect{Left: 10, Bottom: 10, Right: 110, Top: 110})

	bm, err := r.Image(f, pngBytes(t, 200, 100), config.DefaultStyle())
	require.NoError(t, err)
	assert.Equal(t, draw.Rect{Left: 10, Bottom: 10, Right: 110, Top: 60}, bm.Rect)
	assert.Equal(t, "png", bm.Format)
	assert.NotEmpty(t, bm.Data)
	assert.Equal(t, 2, bm.Page)

	bm, err = r.Image(f, bytes.NewReader(pngBytes(t, 50, 100)), config.DefaultStyle())
	require.NoError(t, err)
	assert.Equal(t, draw.Rect{Left: 10, Bottom: 10, Right: 60, Top: 110}, bm.Rect)
}

func TestImageFromPath(t *testing.T) {
	r := newRenderer(nil)
	f := field("logo", draw.Rect{Right: 40, Top: 40})
	dir := t.TempDir()

	var buf bytes.Buffer
	require.NoError(t, bmp.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 20, 10))))
	path := filepath.Join(dir, "logo.bmp")
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o600))

	bm, err := r.Image(f, path, config.DefaultStyle())
	require.NoError(t, err)
	assert.Nil(t, bm.Data)
	require.NotNil(t, bm.Image)
	assert.Equal(t, draw.Rect{Right: 40, Top: 20}, bm.Rect)

	_, err = r.Image(f, filepath.Join(dir, "missing.png"), config.DefaultStyle())
	assert.ErrorIs(t, err, pdferr.ErrResourceNotFound)

	_, err = r.Image(f, 12, config.DefaultStyle())
	assert.ErrorIs(t, err, pdferr.ErrTypeMismatch)

	_, err = r.Image(f, []byte("not an image"), config.DefaultStyle())
	assert.ErrorIs(t, err, pdferr.ErrRender)
}

func TestImageSVG(t *testing.T) {
	r := newRenderer(nil)
	f := field("logo", draw.Rect{Right: 200, Top: 200})
	svg := `<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 100 50"><rect width="100" height="50" fill="#ff0000"/></svg>`

	bm, err := r.Image(f, []byte(svg), config.DefaultStyle())
	require.NoError(t, err)
	assert.Equal(t, draw.Rect{Right: 200, Top: 100}, bm.Rect)
	require.NotNil(t, bm.Image)
	assert.Equal(t, image.Rect(0, 0, 400, 200), bm.Image.Bounds())
	cr, _, _, _ := bm.Image.At(200, 100).RGBA()
	assert.Equal(t, uint32(0xffff), cr)
}

func TestCheckbox(t *testing.T) {
	f := draw.Field{Name: "agree", Type: draw.FieldCheckbox, Widgets: []draw.Widget{{OnState: "Si"}}}

	_, ok := render.Checkbox(f, nil)
	assert.False(t, ok)

	token, ok := render.Checkbox(f, true)
	assert.True(t, ok)
	assert.Equal(t, "Si", token)

	token, ok = render.Checkbox(draw.Field{Name: "x"}, "anything")
	assert.True(t, ok)
	assert.Equal(t, render.DefaultOnState, token)
}

func TestGroup(t *testing.T) {
	f := draw.Field{Name: "color", Type: draw.FieldRadio}

	v, ok, err := render.Group(f, "G")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "G", v)

	_, ok, err = render.Group(f, nil)
	require.NoError(t, err)
	assert.False(t, ok)

	_, _, err = render.Group(f, 3)
	assert.ErrorIs(t, err, pdferr.ErrTypeMismatch)
}
