package pdferr_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/lvillar/pdfexport/pdferr"
)

func TestErrorMatchesKindSentinel(t *testing.T) {
	err := pdferr.Newf(pdferr.ResourceNotFound, "render.Image", "open %s: no such file", "logo.png").WithField("logo")
	wrapped := fmt.Errorf("export: %w", err)

	assert.ErrorIs(t, wrapped, pdferr.ErrResourceNotFound)
	assert.NotErrorIs(t, wrapped, pdferr.ErrValidation)
	assert.Equal(t, pdferr.ResourceNotFound, pdferr.KindOf(wrapped))
	assert.Equal(t, `pdfexport.render.Image: field "logo": open logo.png: no such file`, err.Error())
}

func TestErrorUnwrapsCause(t *testing.T) {
	cause := errors.New("disk full")
	err := pdferr.New(pdferr.IO, "engine.WriteTo", cause)

	assert.ErrorIs(t, err, cause)
	assert.ErrorIs(t, err, pdferr.ErrIO)
	assert.Equal(t, "io", err.Kind.String())
}

func TestKindOfPlainError(t *testing.T) {
	assert.Equal(t, pdferr.Kind(0), pdferr.KindOf(errors.New("plain")))
}
