// Package draw holds the drawing vocabulary shared by renderers and the
// document engine: page geometry, field descriptors, style enumerations and the
// positioned instructions (text, bitmap, cell grid) a renderer emits.
//
// All coordinates are PDF user-space points with the origin at the bottom-left
// corner of the page's media box.
package draw

import "image"

// Rect is an axis-aligned rectangle in page coordinates.
type Rect struct {
	Left, Bottom, Right, Top float64
}

// Width returns the horizontal extent of r.
func (r Rect) Width() float64 { return r.Right - r.Left }

// Height returns the vertical extent of r.
func (r Rect) Height() float64 { return r.Top - r.Bottom }

// CenterX returns the horizontal center of r.
func (r Rect) CenterX() float64 { return (r.Left + r.Right) / 2 }

// Normalize returns r with Left <= Right and Bottom <= Top.
func (r Rect) Normalize() Rect {
	if r.Left > r.Right {
		r.Left, r.Right = r.Right, r.Left
	}
	if r.Bottom > r.Top {
		r.Bottom, r.Top = r.Top, r.Bottom
	}
	return r
}

// Color is an opaque RGB colour.
type Color struct {
	R, G, B uint8
}

var (
	Black = Color{0, 0, 0}
	White = Color{255, 255, 255}
)

// FontStyle is a set of font style flags.
type FontStyle uint8

const (
	Bold FontStyle = 1 << iota
	Italic
	Underline
	Strikethrough

	Normal     FontStyle = 0
	BoldItalic           = Bold | Italic
)

// Has reports whether all flags of f are set in s.
func (s FontStyle) Has(f FontStyle) bool { return s&f == f }

// HAlign is a horizontal alignment.
type HAlign int

const (
	AlignLeft HAlign = iota
	AlignCenter
	AlignRight
	AlignJustified
)

// VAlign is a vertical alignment.
type VAlign int

const (
	AlignMiddle VAlign = iota
	AlignTop
	AlignBottom
	AlignBaseline
)

// Border is a set of cell sides to stroke.
type Border uint8

const (
	BorderTop Border = 1 << iota
	BorderBottom
	BorderLeft
	BorderRight

	NoBorder  Border = 0
	BorderBox        = BorderTop | BorderBottom | BorderLeft | BorderRight
)

// Has reports whether all sides of s are set in b.
func (b Border) Has(s Border) bool { return b&s == s }

// Layer selects whether an instruction is painted beneath or above the
// template's own page content.
type Layer int

const (
	Over Layer = iota
	Under
)

// FieldType is the kind of an interactive form field.
type FieldType int

const (
	FieldUnknown FieldType = iota
	FieldText
	FieldCheckbox
	FieldRadio
	FieldChoice
	FieldPushButton
	FieldSignature
)

func (t FieldType) String() string {
	switch t {
	case FieldText:
		return "text"
	case FieldCheckbox:
		return "checkbox"
	case FieldRadio:
		return "radio"
	case FieldChoice:
		return "choice"
	case FieldPushButton:
		return "button"
	case FieldSignature:
		return "signature"
	default:
		return "unknown"
	}
}

// Widget is one visual occurrence of a field.
type Widget struct {
	Page    int    // 1-based page index
	Rect    Rect   // widget rectangle
	OnState string // appearance state name for "on", empty for non-button widgets
}

// Field is a read-only snapshot of a template field.
type Field struct {
	Name      string    // fully qualified field name
	Type      FieldType // field kind
	Page      int       // 1-based page of the first widget
	Rect      Rect      // rectangle of the first widget
	Multiline bool      // text field accepts several lines
	Value     string    // value stored in the template
	FontSize  float64   // font size from the default appearance, 0 for auto
	Options   []string  // choice options
	Widgets   []Widget  // all widgets, in template order
}

// Instruction is a positioned drawing command for one page.
type Instruction interface {
	// Target returns the 1-based page index and layer the instruction paints on.
	Target() (page int, layer Layer)
}

// Span is a run of text in a single font, positioned at its baseline origin.
type Span struct {
	Font  string
	Style FontStyle
	Size  float64
	Color Color
	X, Y  float64
	Text  string
}

// Text is a set of positioned spans.
type Text struct {
	Page    int
	Layer   Layer
	Field   string  // field the text was rendered for, if any
	Opacity float64 // 0 means fully opaque
	Spans   []Span
}

func (t Text) Target() (int, Layer) { return t.Page, t.Layer }

// Bitmap is an image scaled into a rectangle.
//
// When Data is set it holds an encoded image of the given Format ("jpg", "png"
// or "gif") embedded as-is; otherwise Image is encoded by the engine.
type Bitmap struct {
	Page    int
	Layer   Layer
	Field   string
	Rect    Rect
	Opacity float64
	Image   image.Image
	Data    []byte
	Format  string
}

func (b Bitmap) Target() (int, Layer) { return b.Page, b.Layer }

// Cell is one positioned table cell.
type Cell struct {
	Rect        Rect
	Background  *Color
	Border      Border
	BorderWidth float64
	BorderColor Color
	Spans       []Span
}

// Grid is a positioned table.
type Grid struct {
	Page       int
	Field      string
	Bounds     Rect
	Columns    []float64 // column widths, left to right
	RowHeights []float64 // row heights, top to bottom
	Cells      []Cell    // row-major
}

func (g Grid) Target() (int, Layer) { return g.Page, Over }

// Metrics answers font questions renderers need for layout.
type Metrics interface {
	// HasGlyph reports whether the named font can render r.
	HasGlyph(font string, r rune) (bool, error)
	// StringWidth returns the advance width of s in points.
	StringWidth(font string, style FontStyle, size float64, s string) (float64, error)
}
