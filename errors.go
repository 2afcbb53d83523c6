package pdfexport

import "github.com/lvillar/pdfexport/pdferr"

// Error kinds and sentinels. Every error returned by an export is an *Error
// matching exactly one of the kind sentinels with errors.Is.
const (
	Validation       = pdferr.Validation
	ResourceNotFound = pdferr.ResourceNotFound
	TypeMismatch     = pdferr.TypeMismatch
	Render           = pdferr.Render
	IO               = pdferr.IO
)

var (
	ErrValidation       = pdferr.ErrValidation
	ErrResourceNotFound = pdferr.ErrResourceNotFound
	ErrTypeMismatch     = pdferr.ErrTypeMismatch
	ErrRender           = pdferr.ErrRender
	ErrIO               = pdferr.ErrIO
	ErrFlattened        = pdferr.ErrFlattened
	ErrClosed           = pdferr.ErrClosed
)

// Error is a classified export failure.
type Error = pdferr.Error

// Kind classifies an export failure.
type Kind = pdferr.Kind
