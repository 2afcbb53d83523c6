package render

import "github.com/lvillar/pdfexport/draw"

// DefaultOnState is the checked appearance state of checkboxes that do not
// name their own.
const DefaultOnState = "Yes"

// Checkbox returns the token that ticks f. A nil value leaves the field
// untouched and ok is false; any other value checks it.
func Checkbox(f draw.Field, value any) (token string, ok bool) {
	if value == nil {
		return "", false
	}
	for _, w := range f.Widgets {
		if w.OnState != "" {
			return w.OnState, true
		}
	}
	return DefaultOnState, true
}

// Group returns the value to store in a radio group or other grouped
// field. A nil value is a no-op; anything but a string is rejected.
func Group(f draw.Field, value any) (string, bool, error) {
	switch v := value.(type) {
	case nil:
		return "", false, nil
	case string:
		return v, true, nil
	}
	return "", false, typeMismatch("render.Group", f.Name, value, "a string")
}
