package form

import (
	"github.com/lvillar/pdfexport/config"
	"github.com/lvillar/pdfexport/draw"
	"github.com/lvillar/pdfexport/render"
)

// Glyphs of the ZapfDingbats core font used for button marks.
const (
	CheckMark = "4" // ✔
	RadioDot  = "l" // ●
)

const (
	appearanceFont = "Helvetica"
	markFont       = "ZapfDingbats"
	maxAutoSize    = 12.0
	minAutoSize    = 4.0
)

// Appearance returns the instructions that paint value into the widgets of
// f as static page content. Text and choice values are drawn in Helvetica at
// the field's default appearance size, or sized to the widget when that is
// automatic. A checked checkbox gets a check mark in every widget, a radio
// group a dot in the widget whose state matches value.
func Appearance(r *render.Renderer, f draw.Field, value string) ([]draw.Instruction, error) {
	if value == "" {
		return nil, nil
	}
	var out []draw.Instruction
	for _, w := range f.Widgets {
		wf := draw.Field{Name: f.Name, Type: f.Type, Page: w.Page, Rect: w.Rect.Normalize(), Multiline: f.Multiline}
		switch f.Type {
		case draw.FieldText, draw.FieldChoice:
			st := config.DefaultStyle()
			st.FontNames = []string{appearanceFont}
			st.FontSize = f.FontSize
			if st.FontSize <= 0 {
				st.FontSize = autoSize(wf.Rect)
			}
			if f.Multiline {
				st.VAlign = draw.AlignTop
			}
			txt, err := r.Text(wf, value, st)
			if err != nil {
				return nil, err
			}
			out = append(out, txt)
		case draw.FieldCheckbox:
			if w.OnState != "" && w.OnState != value {
				continue
			}
			txt, err := mark(r, wf, CheckMark)
			if err != nil {
				return nil, err
			}
			out = append(out, txt)
		case draw.FieldRadio:
			if w.OnState != value {
				continue
			}
			txt, err := mark(r, wf, RadioDot)
			if err != nil {
				return nil, err
			}
			out = append(out, txt)
		}
	}
	return out, nil
}

func mark(r *render.Renderer, f draw.Field, glyph string) (draw.Text, error) {
	st := config.DefaultStyle()
	st.FontNames = []string{markFont}
	st.FontSize = 0.8 * min(f.Rect.Width(), f.Rect.Height())
	st.HAlign = draw.AlignCenter
	st.VAlign = draw.AlignMiddle
	return r.Text(f, glyph, st)
}

// autoSize picks a font size for a widget whose appearance size is 0.
func autoSize(rect draw.Rect) float64 {
	return max(minAutoSize, min(maxAutoSize, (rect.Height()-4)/1.15))
}
