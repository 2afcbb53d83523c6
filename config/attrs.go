package config

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/lucasb-eyer/go-colorful"

	"github.com/lvillar/pdfexport/draw"
)

// Attribute names as they appear in configuration markup. Lookups are
// case-insensitive; these are the canonical spellings.
const (
	FontName        = "FontName"
	FontSize        = "FontSize"
	FontColor       = "FontColor"
	FontStyle       = "FontStyle"
	HAlign          = "HAlign"
	VAlign          = "VAlign"
	Border          = "Border"
	BorderWidth     = "BorderWidth"
	BorderColor     = "BorderColor"
	BackgroundColor = "BackgroundColor"
	Opacity         = "Opacity"

	BarcodeFormat = "BarcodeFormat"
	BarcodeHeight = "BarcodeHeight"
	BarWidth      = "BarWidth"
	TextFontSize  = "TextFontSize"
	Baseline      = "Baseline"
	TextAlignment = "TextAlignment"
	StartStopText = "StartStopText"
	AltText       = "AltText"
	BarColor      = "BarColor"
	TextColor     = "TextColor"

	ErrorCorrectionLevel = "ErrorCorrectionLevel"
	RectangleMargin      = "RectangleMargin"
	ForeColor            = "ForeColor"
	BackColor            = "BackColor"

	ColTitle    = "ColTitle"
	ColWidths   = "ColWidths"
	TitleFonts  = "TitleFonts"
	TitleStyles = "TitleStyles"
	ColFonts    = "ColFonts"
	ColStyles   = "ColStyles"

	Template = "Template"
)

type valueKind int

const (
	kindText valueKind = iota
	kindFontList
	kindSize   // strictly positive number
	kindLength // non-negative number
	kindColor
	kindFontStyle
	kindHAlign
	kindVAlign
	kindBorder
	kindOpacity
	kindBool
	kindLevel
	kindCount // non-negative integer
)

type attrDef struct {
	name string
	kind valueKind
}

var attrDefs = map[string]attrDef{}

func init() {
	for _, d := range []attrDef{
		{FontName, kindFontList},
		{FontSize, kindSize},
		{FontColor, kindColor},
		{FontStyle, kindFontStyle},
		{HAlign, kindHAlign},
		{VAlign, kindVAlign},
		{Border, kindBorder},
		{BorderWidth, kindLength},
		{BorderColor, kindColor},
		{BackgroundColor, kindColor},
		{Opacity, kindOpacity},
		{BarcodeFormat, kindText},
		{BarcodeHeight, kindSize},
		{BarWidth, kindSize},
		{TextFontSize, kindSize},
		{Baseline, kindLength},
		{TextAlignment, kindHAlign},
		{StartStopText, kindBool},
		{AltText, kindBool},
		{BarColor, kindColor},
		{TextColor, kindColor},
		{ErrorCorrectionLevel, kindLevel},
		{RectangleMargin, kindCount},
		{ForeColor, kindColor},
		{BackColor, kindColor},
		{ColTitle, kindText},
		{ColWidths, kindSize},
		{Template, kindText},
	} {
		attrDefs[strings.ToLower(d.name)] = d
	}
	// Spelling used by older configuration files.
	attrDefs["broundcolor"] = attrDefs[strings.ToLower(BackgroundColor)]
}

// lookupAttr resolves a markup name to its attribute definition.
func lookupAttr(name string) (attrDef, bool) {
	d, ok := attrDefs[strings.ToLower(strings.TrimSpace(name))]
	return d, ok
}

func (d attrDef) check(raw string) error {
	var err error
	switch d.kind {
	case kindFontList:
		if len(parseFontNames(raw)) == 0 {
			err = fmt.Errorf("empty font list")
		}
	case kindSize:
		var v float64
		if v, err = parseNumber(raw); err == nil && v <= 0 {
			err = fmt.Errorf("must be greater than zero")
		}
	case kindLength:
		var v float64
		if v, err = parseNumber(raw); err == nil && v < 0 {
			err = fmt.Errorf("must not be negative")
		}
	case kindColor:
		_, err = parseColor(raw)
	case kindFontStyle:
		_, err = parseFontStyle(raw)
	case kindHAlign:
		_, err = parseHAlign(raw)
	case kindVAlign:
		_, err = parseVAlign(raw)
	case kindBorder:
		_, err = parseBorder(raw)
	case kindOpacity:
		var v float64
		if v, err = parseNumber(raw); err == nil && (v < 0 || v > 1) {
			err = fmt.Errorf("must be between 0 and 1")
		}
	case kindBool:
		_, err = parseBool(raw)
	case kindLevel:
		_, err = parseLevel(raw)
	case kindCount:
		var n int
		if n, err = strconv.Atoi(strings.TrimSpace(raw)); err == nil && n < 0 {
			err = fmt.Errorf("must not be negative")
		}
	}
	return err
}

// parseFontNames splits a comma separated font list. A bare index following a
// TrueType collection name ("simsun.ttc,1") stays attached to it.
func parseFontNames(raw string) []string {
	var out []string
	for _, tok := range strings.Split(raw, ",") {
		tok = strings.TrimSpace(tok)
		if tok == "" {
			continue
		}
		if _, err := strconv.Atoi(tok); err == nil && len(out) > 0 &&
			strings.HasSuffix(strings.ToLower(out[len(out)-1]), ".ttc") {
			out[len(out)-1] += "," + tok
			continue
		}
		out = append(out, tok)
	}
	return out
}

func parseNumber(raw string) (float64, error) {
	v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("invalid number %q", raw)
	}
	return v, nil
}

func parseBool(raw string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "true", "yes", "on", "1":
		return true, nil
	case "false", "no", "off", "0":
		return false, nil
	}
	return false, fmt.Errorf("invalid boolean %q", raw)
}

var namedColors = map[string]draw.Color{
	"black":      {R: 0, G: 0, B: 0},
	"blue":       {R: 0, G: 0, B: 255},
	"cyan":       {R: 0, G: 255, B: 255},
	"dark_gray":  {R: 64, G: 64, B: 64},
	"darkgray":   {R: 64, G: 64, B: 64},
	"gray":       {R: 128, G: 128, B: 128},
	"green":      {R: 0, G: 255, B: 0},
	"light_gray": {R: 192, G: 192, B: 192},
	"lightgray":  {R: 192, G: 192, B: 192},
	"magenta":    {R: 255, G: 0, B: 255},
	"orange":     {R: 255, G: 200, B: 0},
	"pink":       {R: 255, G: 175, B: 175},
	"red":        {R: 255, G: 0, B: 0},
	"white":      {R: 255, G: 255, B: 255},
	"yellow":     {R: 255, G: 255, B: 0},
}

// parseColor accepts "r,g,b" components, a colour constant name such as RED or
// LIGHT_GRAY, or a hex triplet like "#1e90ff".
func parseColor(raw string) (draw.Color, error) {
	s := strings.TrimSpace(raw)
	if c, ok := namedColors[strings.ToLower(s)]; ok {
		return c, nil
	}
	if strings.HasPrefix(s, "#") {
		c, err := colorful.Hex(s)
		if err != nil {
			return draw.Color{}, fmt.Errorf("invalid colour %q", raw)
		}
		r, g, b := c.RGB255()
		return draw.Color{R: r, G: g, B: b}, nil
	}
	parts := strings.Split(s, ",")
	if len(parts) != 3 {
		return draw.Color{}, fmt.Errorf("invalid colour %q", raw)
	}
	var rgb [3]uint8
	for i, p := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil || n < 0 || n > 255 {
			return draw.Color{}, fmt.Errorf("invalid colour %q", raw)
		}
		rgb[i] = uint8(n)
	}
	return draw.Color{R: rgb[0], G: rgb[1], B: rgb[2]}, nil
}

var fontStyleNames = map[string]draw.FontStyle{
	"normal":        draw.Normal,
	"bold":          draw.Bold,
	"italic":        draw.Italic,
	"bolditalic":    draw.BoldItalic,
	"underline":     draw.Underline,
	"strikethru":    draw.Strikethrough,
	"strikethrough": draw.Strikethrough,
}

var hAlignNames = map[string]draw.HAlign{
	"left":      draw.AlignLeft,
	"center":    draw.AlignCenter,
	"right":     draw.AlignRight,
	"justified": draw.AlignJustified,
}

var vAlignNames = map[string]draw.VAlign{
	"top":      draw.AlignTop,
	"middle":   draw.AlignMiddle,
	"bottom":   draw.AlignBottom,
	"baseline": draw.AlignBaseline,
}

var borderNames = map[string]draw.Border{
	"no_border": draw.NoBorder,
	"none":      draw.NoBorder,
	"top":       draw.BorderTop,
	"bottom":    draw.BorderBottom,
	"left":      draw.BorderLeft,
	"right":     draw.BorderRight,
	"box":       draw.BorderBox,
}

// flagTokens splits "BOLD/ITALIC" style combinations.
func flagTokens(raw string) []string {
	return strings.FieldsFunc(strings.ToLower(raw), func(r rune) bool {
		return r == '/' || r == '|' || r == ',' || r == ' '
	})
}

func parseFontStyle(raw string) (draw.FontStyle, error) {
	var s draw.FontStyle
	for _, tok := range flagTokens(raw) {
		f, ok := fontStyleNames[tok]
		if !ok {
			return 0, fmt.Errorf("unknown font style %q", tok)
		}
		s |= f
	}
	return s, nil
}

func parseBorder(raw string) (draw.Border, error) {
	var b draw.Border
	for _, tok := range flagTokens(raw) {
		f, ok := borderNames[tok]
		if !ok {
			return 0, fmt.Errorf("unknown border %q", tok)
		}
		b |= f
	}
	return b, nil
}

func alignKey(raw string) string {
	return strings.TrimPrefix(strings.ToLower(strings.TrimSpace(raw)), "align_")
}

func parseHAlign(raw string) (draw.HAlign, error) {
	a, ok := hAlignNames[alignKey(raw)]
	if !ok {
		return 0, fmt.Errorf("unknown horizontal alignment %q", raw)
	}
	return a, nil
}

func parseVAlign(raw string) (draw.VAlign, error) {
	a, ok := vAlignNames[alignKey(raw)]
	if !ok {
		return 0, fmt.Errorf("unknown vertical alignment %q", raw)
	}
	return a, nil
}

func parseLevel(raw string) (string, error) {
	s := strings.ToUpper(strings.TrimSpace(raw))
	switch s {
	case "L", "M", "Q", "H":
		return s, nil
	}
	return "", fmt.Errorf("unknown error correction level %q", raw)
}
