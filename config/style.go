package config

import (
	"strconv"

	"github.com/lvillar/pdfexport/draw"
)

// Style is a fully resolved set of style attributes.
type Style struct {
	FontNames       []string // primary font first, glyph substitutes after
	FontSize        float64
	FontColor       draw.Color
	FontStyle       draw.FontStyle
	HAlign          draw.HAlign
	VAlign          draw.VAlign
	Border          draw.Border
	BorderWidth     float64
	BorderColor     draw.Color
	BackgroundColor draw.Color
	Opacity         float64
}

// Font returns the primary font name.
func (s Style) Font() string {
	if len(s.FontNames) == 0 {
		return defaults[FontName]
	}
	return s.FontNames[0]
}

// buildStyle parses every style attribute through get. Values were checked
// by Validate, so parse errors cannot occur here.
func buildStyle(get func(name string) string) Style {
	var st Style
	st.FontNames = parseFontNames(get(FontName))
	st.FontSize, _ = strconv.ParseFloat(get(FontSize), 64)
	st.FontColor, _ = parseColor(get(FontColor))
	st.FontStyle, _ = parseFontStyle(get(FontStyle))
	st.HAlign, _ = parseHAlign(get(HAlign))
	st.VAlign, _ = parseVAlign(get(VAlign))
	st.Border, _ = parseBorder(get(Border))
	st.BorderWidth, _ = strconv.ParseFloat(get(BorderWidth), 64)
	st.BorderColor, _ = parseColor(get(BorderColor))
	st.BackgroundColor, _ = parseColor(get(BackgroundColor))
	st.Opacity, _ = strconv.ParseFloat(get(Opacity), 64)
	return st
}

// DefaultStyle returns the built-in default style.
func DefaultStyle() Style {
	return buildStyle(func(name string) string { return defaults[name] })
}

// BarcodeOptions are the symbol settings of a barcode field.
type BarcodeOptions struct {
	Format        string  // symbol type name, empty for the default
	Height        float64 // bar height in points, 0 for half the field height
	BarWidth      float64 // width of the narrowest bar in points
	TextSize      float64 // human readable text size
	Baseline      float64 // distance between bars and text
	TextAlign     draw.HAlign
	StartStopText bool // show Code 39 start/stop characters in the text
	AltText       bool // print the human readable text
	BarColor      draw.Color
	TextColor     draw.Color
}

// QROptions are the symbol settings of a QR field.
type QROptions struct {
	Level  string // L, M, Q or H
	Margin int    // quiet zone in modules; 0 trims all whitespace
	Fore   draw.Color
	Back   draw.Color
}
