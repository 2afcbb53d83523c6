// Package pdferr defines the error taxonomy shared by every stage of an export.
//
// Each failure carries a Kind; errors.Is matches an *Error against the kind
// sentinels (ErrValidation, ErrResourceNotFound, ...), so callers can branch on
// the class of failure without inspecting messages.
package pdferr

import (
	"errors"
	"fmt"
)

// Kind classifies an export failure.
type Kind int

const (
	Validation       Kind = iota + 1 // configuration markup unparsable or rejected by the schema
	ResourceNotFound                 // template, font file or image missing
	TypeMismatch                     // field value of an unexpected shape for its category
	Render                           // symbol encoding, image decoding or table build failure
	IO                               // stream read/write failure
)

func (k Kind) String() string {
	switch k {
	case Validation:
		return "validation"
	case ResourceNotFound:
		return "resource not found"
	case TypeMismatch:
		return "type mismatch"
	case Render:
		return "render"
	case IO:
		return "io"
	default:
		return "unknown"
	}
}

// Sentinel errors, one per Kind, plus document lifecycle errors.
var (
	ErrValidation       = errors.New("pdfexport: invalid configuration")
	ErrResourceNotFound = errors.New("pdfexport: resource not found")
	ErrTypeMismatch     = errors.New("pdfexport: type mismatch")
	ErrRender           = errors.New("pdfexport: render failed")
	ErrIO               = errors.New("pdfexport: i/o failure")

	ErrFlattened = errors.New("pdfexport: document already flattened")
	ErrClosed    = errors.New("pdfexport: document is closed")
)

func (k Kind) sentinel() error {
	switch k {
	case Validation:
		return ErrValidation
	case ResourceNotFound:
		return ErrResourceNotFound
	case TypeMismatch:
		return ErrTypeMismatch
	case Render:
		return ErrRender
	case IO:
		return ErrIO
	}
	return nil
}

// Error is a classified failure raised by a named operation, optionally tied
// to a field.
type Error struct {
	Kind  Kind
	Op    string // operation name, e.g. "config.Parse", "render.Barcode"
	Field string // field name, empty when not field specific
	Err   error  // underlying error
}

func (e *Error) Error() string {
	msg := "unknown error"
	if e.Err != nil {
		msg = e.Err.Error()
	}
	if e.Field != "" {
		return fmt.Sprintf("pdfexport.%s: field %q: %s", e.Op, e.Field, msg)
	}
	return fmt.Sprintf("pdfexport.%s: %s", e.Op, msg)
}

func (e *Error) Unwrap() error { return e.Err }

// Is reports whether target is the sentinel of e's kind.
func (e *Error) Is(target error) bool {
	s := e.Kind.sentinel()
	return s != nil && target == s
}

// New wraps err as a failure of the given kind raised by op.
func New(kind Kind, op string, err error) *Error {
	return &Error{Kind: kind, Op: op, Err: err}
}

// Newf is New with a formatted message.
func Newf(kind Kind, op, format string, args ...any) *Error {
	return &Error{Kind: kind, Op: op, Err: fmt.Errorf(format, args...)}
}

// WithField returns a copy of e attributed to the named field.
func (e *Error) WithField(name string) *Error {
	c := *e
	c.Field = name
	return &c
}

// KindOf returns the Kind of the first *Error in err's chain, or 0.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return 0
}
