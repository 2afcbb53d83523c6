// Package render turns a field value, its resolved style and the field's
// geometry into drawing instructions. Renderers never touch the document:
// they only measure text through draw.Metrics and return instructions for
// the engine to paint.
package render

import (
	"fmt"
	"strconv"

	"github.com/rs/zerolog"

	"github.com/lvillar/pdfexport/draw"
	"github.com/lvillar/pdfexport/pdferr"
)

// Renderer renders individual fields. It holds no per-export state and may
// be shared by concurrent exports if its Metrics may.
type Renderer struct {
	metrics draw.Metrics
	log     zerolog.Logger
}

// New returns a renderer measuring text with m.
func New(m draw.Metrics, log zerolog.Logger) *Renderer {
	return &Renderer{metrics: m, log: log}
}

// Scalar renders a scalar value as text. nil becomes "". Composite values
// are rejected.
func Scalar(v any) (string, bool) {
	switch x := v.(type) {
	case nil:
		return "", true
	case string:
		return x, true
	case []byte:
		return string(x), true
	case bool:
		return strconv.FormatBool(x), true
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return fmt.Sprint(x), true
	case float32:
		return strconv.FormatFloat(float64(x), 'f', -1, 32), true
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64), true
	case fmt.Stringer:
		return x.String(), true
	}
	return "", false
}

func typeMismatch(op, field string, v any, want string) error {
	return pdferr.Newf(pdferr.TypeMismatch, op, "got %T, want %s", v, want).WithField(field)
}

func renderErr(op, field string, err error) error {
	return pdferr.New(pdferr.Render, op, err).WithField(field)
}

func opacity(v float64) float64 {
	if v <= 0 || v > 1 {
		return 1
	}
	return v
}
