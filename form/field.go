// Package form holds the rules for interactive form field values: how a
// parsed template field maps to a drawing descriptor, which values a field
// accepts, and how an accepted value is painted as static content when the
// form is flattened.
package form

import (
	"github.com/lvillar/pdfexport/draw"
	"github.com/lvillar/pdfexport/reader"
)

// Off is the appearance state of an unchecked button.
const Off = "Off"

// TypeOf classifies a parsed field.
func TypeOf(f *reader.Field) draw.FieldType {
	switch f.Type {
	case "Tx":
		return draw.FieldText
	case "Ch":
		return draw.FieldChoice
	case "Sig":
		return draw.FieldSignature
	case "Btn":
		switch {
		case f.Has(reader.FlagPushButton):
			return draw.FieldPushButton
		case f.Has(reader.FlagRadio):
			return draw.FieldRadio
		}
		return draw.FieldCheckbox
	}
	return draw.FieldUnknown
}

// FromReader converts a parsed template field into a read-only descriptor.
// Widgets whose page could not be determined are placed on page 1, and the
// Off state of buttons reads as no value.
func FromReader(f *reader.Field) draw.Field {
	d := draw.Field{
		Name:      f.Name,
		Type:      TypeOf(f),
		Page:      1,
		Multiline: f.Has(reader.FlagMultiline),
		Value:     f.Value,
		FontSize:  f.FontSize(),
		Options:   append([]string(nil), f.Options...),
	}
	if d.Value == Off && (d.Type == draw.FieldCheckbox || d.Type == draw.FieldRadio) {
		d.Value = ""
	}
	for i, w := range f.Widgets {
		dw := draw.Widget{
			Page:    max(w.Page, 1),
			Rect:    draw.Rect{Left: w.Rect.LLX, Bottom: w.Rect.LLY, Right: w.Rect.URX, Top: w.Rect.URY},
			OnState: w.OnState,
		}
		if i == 0 {
			d.Page, d.Rect = dw.Page, dw.Rect
		}
		d.Widgets = append(d.Widgets, dw)
	}
	return d
}
