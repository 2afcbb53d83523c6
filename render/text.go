package render

import (
	"strings"

	"github.com/lvillar/pdfexport/config"
	"github.com/lvillar/pdfexport/draw"
	"github.com/lvillar/pdfexport/pdferr"
)

const (
	textInset  = 2.0
	lineFactor = 1.2
)

// run is a stretch of text rendered with one font of the chain.
type run struct {
	font string
	text string
}

// Text lays out value inside the field rectangle. Each rune is drawn with
// the first font of the style's chain that has a glyph for it; runes no font
// covers stay with the primary font.
func (r *Renderer) Text(f draw.Field, value any, st config.Style) (draw.Text, error) {
	const op = "render.Text"
	s, ok := Scalar(value)
	if !ok {
		return draw.Text{}, typeMismatch(op, f.Name, value, "a scalar")
	}
	if hasExtensionB(s) {
		r.log.Debug().Str("field", f.Name).Str("value", s).Msg("value contains CJK Extension B characters")
	}
	fonts := st.FontNames
	if len(fonts) == 0 {
		fonts = []string{st.Font()}
	}

	t := draw.Text{Page: f.Page, Layer: draw.Over, Field: f.Name, Opacity: opacity(st.Opacity)}
	rect := f.Rect
	size := st.FontSize

	var lines []string
	if f.Multiline {
		var err error
		if lines, err = r.wrap(fonts, st, s, rect.Width()-2*textInset); err != nil {
			return draw.Text{}, pdferr.New(pdferr.Render, op, err).WithField(f.Name)
		}
	} else {
		lines = []string{strings.NewReplacer("\r\n", " ", "\n", " ", "\r", " ").Replace(s)}
	}

	for i, line := range lines {
		runs, width, err := r.layout(fonts, st, line)
		if err != nil {
			return draw.Text{}, pdferr.New(pdferr.Render, op, err).WithField(f.Name)
		}
		var y float64
		switch {
		case f.Multiline:
			y = rect.Top - textInset - 0.8*size - float64(i)*lineFactor*size
		case st.VAlign == draw.AlignTop:
			y = rect.Top - textInset - 0.8*size
		case st.VAlign == draw.AlignBottom, st.VAlign == draw.AlignBaseline:
			y = rect.Bottom + textInset + 0.2*size
		default:
			y = rect.Bottom + rect.Height()/2 - 0.3*size
		}
		x := alignX(rect, st.HAlign, width, textInset)
		for _, rn := range runs {
			t.Spans = append(t.Spans, draw.Span{
				Font: rn.font, Style: st.FontStyle, Size: size, Color: st.FontColor,
				X: x, Y: y, Text: rn.text,
			})
			w, _ := r.metrics.StringWidth(rn.font, st.FontStyle, size, rn.text)
			x += w
		}
	}
	return t, nil
}

func alignX(rect draw.Rect, a draw.HAlign, width, inset float64) float64 {
	switch a {
	case draw.AlignCenter:
		return rect.CenterX() - width/2
	case draw.AlignRight:
		return rect.Right - inset - width
	}
	return rect.Left + inset
}

// layout splits line into font runs and returns their total width.
func (r *Renderer) layout(fonts []string, st config.Style, line string) ([]run, float64, error) {
	var runs []run
	for _, c := range line {
		font := fonts[0]
		for _, name := range fonts {
			ok, err := r.metrics.HasGlyph(name, c)
			if err != nil {
				return nil, 0, err
			}
			if ok {
				font = name
				break
			}
		}
		if n := len(runs); n > 0 && runs[n-1].font == font {
			runs[n-1].text += string(c)
			continue
		}
		runs = append(runs, run{font: font, text: string(c)})
	}
	var width float64
	for _, rn := range runs {
		w, err := r.metrics.StringWidth(rn.font, st.FontStyle, st.FontSize, rn.text)
		if err != nil {
			return nil, 0, err
		}
		width += w
	}
	return runs, width, nil
}

// wrap breaks s into lines no wider than limit, breaking at spaces and at
// explicit newlines. A word wider than limit gets a line of its own.
func (r *Renderer) wrap(fonts []string, st config.Style, s string, limit float64) ([]string, error) {
	var lines []string
	for _, para := range strings.Split(strings.ReplaceAll(s, "\r\n", "\n"), "\n") {
		words := strings.Fields(para)
		if len(words) == 0 {
			lines = append(lines, "")
			continue
		}
		cur := words[0]
		for _, w := range words[1:] {
			_, width, err := r.layout(fonts, st, cur+" "+w)
			if err != nil {
				return nil, err
			}
			if width > limit {
				lines = append(lines, cur)
				cur = w
				continue
			}
			cur += " " + w
		}
		lines = append(lines, cur)
	}
	return lines, nil
}

func hasExtensionB(s string) bool {
	for _, c := range s {
		if c >= 0x20000 && c <= 0x2A6DF {
			return true
		}
	}
	return false
}
