package pageops

import (
	"io"
	"strings"

	"github.com/jung-kurt/gofpdf"

	"github.com/lvillar/pdfexport/draw"
	"github.com/lvillar/pdfexport/pdferr"
)

// WatermarkStyle defines a text watermark.
type WatermarkStyle struct {
	Text      string
	FontName  string         // core font family (default: Helvetica)
	FontStyle draw.FontStyle // bold, italic and underline are honoured
	FontSize  float64        // font size in points (default: 64)
	Color     *draw.Color    // text color (default: red)
	Position  Position       // anchor of the text (default: Center)
	Margin    float64        // distance from the page edge for non-centred positions (default: 30)
	Rotation  float64        // counter-clockwise degrees around the anchor
	Opacity   float64        // 0.0 to 1.0 (default: 0.7)
	Layer     draw.Layer     // Over paints above the page content, Under below it
	Pages     []int          // 1-based pages to mark, all when empty
}

func (s *WatermarkStyle) defaults() {
	if s.FontName == "" {
		s.FontName = "Helvetica"
	}
	if s.FontSize == 0 {
		s.FontSize = 64
	}
	if s.Color == nil {
		red := draw.Color{R: 255}
		s.Color = &red
	}
	if s.Opacity <= 0 || s.Opacity > 1 {
		s.Opacity = 0.7
	}
	if s.Margin == 0 {
		s.Margin = 30
	}
}

// Watermark writes a copy of the document in data with style's text
// painted on the selected pages.
func Watermark(w io.Writer, data []byte, style WatermarkStyle) error {
	const op = "pageops.Watermark"
	if style.Text == "" {
		return pdferr.Newf(pdferr.Validation, op, "empty watermark text")
	}
	style.defaults()

	src, err := open(op, data)
	if err != nil {
		return err
	}
	marked, err := pageSet(op, len(src.pages), style.Pages)
	if err != nil {
		return err
	}

	b := newBuilder(op)
	tr := b.pdf.UnicodeTranslatorFromDescriptor("")
	paint := func(pw, ph float64) { drawTextWatermark(b.pdf, style, tr(style.Text), pw, ph) }
	for i := range src.pages {
		num := i + 1
		var under, over func(w, h float64)
		if marked[num] {
			if style.Layer == draw.Under {
				under = paint
			} else {
				over = paint
			}
		}
		if err := b.addPage(src, num, 0, under, over); err != nil {
			return err
		}
	}
	return b.writeTo(w)
}

// drawTextWatermark renders the watermark text at its anchor on the current page.
func drawTextWatermark(pdf *gofpdf.Fpdf, s WatermarkStyle, text string, pageW, pageH float64) {
	pdf.SetFont(s.FontName, fontStyle(s.FontStyle), s.FontSize)
	pdf.SetTextColor(int(s.Color.R), int(s.Color.G), int(s.Color.B))
	pdf.SetAlpha(s.Opacity, "Normal")

	textW := pdf.GetStringWidth(text)
	x, y := calculatePosition(s.Position, pageW, pageH, textW, s.FontSize, s.Margin)

	// Rotate around the centre of the text.
	pdf.TransformBegin()
	pdf.TransformRotate(s.Rotation, x+textW/2, y-s.FontSize/3)
	pdf.Text(x, y, text)
	pdf.TransformEnd()

	pdf.SetAlpha(1.0, "Normal")
}

func fontStyle(s draw.FontStyle) string {
	var sb strings.Builder
	if s.Has(draw.Bold) {
		sb.WriteByte('B')
	}
	if s.Has(draw.Italic) {
		sb.WriteByte('I')
	}
	if s.Has(draw.Underline) {
		sb.WriteByte('U')
	}
	return sb.String()
}

// calculatePosition returns the baseline origin of text textW wide and
// textH high.
func calculatePosition(pos Position, pageW, pageH, textW, textH, margin float64) (x, y float64) {
	switch pos {
	case TopLeft:
		return margin, margin + textH
	case TopCenter:
		return (pageW - textW) / 2, margin + textH
	case TopRight:
		return pageW - textW - margin, margin + textH
	case BottomLeft:
		return margin, pageH - margin
	case BottomCenter:
		return (pageW - textW) / 2, pageH - margin
	case BottomRight:
		return pageW - textW - margin, pageH - margin
	default:
		return (pageW - textW) / 2, pageH/2 + textH/3
	}
}
