package form

import (
	"strings"

	"github.com/lvillar/pdfexport/draw"
	"github.com/lvillar/pdfexport/pdferr"
	"github.com/lvillar/pdfexport/render"
)

var truthy = map[string]bool{"true": true, "yes": true, "on": true, "1": true, "x": true}

// Normalize checks value against the kind of f and returns the value to
// store. An empty result clears the field.
//
// Checkboxes accept their own on-state name or a truthy word ("true",
// "yes", "on", "1", "x"), which maps to the on-state; "Off", "" and any
// other word uncheck the box. Radio groups only accept the on-state of one
// of their widgets. Push buttons and signatures carry no value.
func Normalize(f draw.Field, value string) (string, error) {
	const op = "form.Normalize"
	switch f.Type {
	case draw.FieldCheckbox:
		if value == "" || value == Off {
			return "", nil
		}
		on, _ := render.Checkbox(f, true)
		if value == on || truthy[strings.ToLower(value)] {
			return on, nil
		}
		return "", nil
	case draw.FieldRadio:
		if value == "" || value == Off {
			return "", nil
		}
		for _, w := range f.Widgets {
			if w.OnState == value {
				return value, nil
			}
		}
		return "", pdferr.Newf(pdferr.TypeMismatch, op, "no button with state %q", value).WithField(f.Name)
	case draw.FieldPushButton, draw.FieldSignature:
		return "", pdferr.Newf(pdferr.TypeMismatch, op, "%s fields hold no value", f.Type).WithField(f.Name)
	}
	return value, nil
}
