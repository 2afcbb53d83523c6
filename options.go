package pdfexport

import (
	"io"
	"time"

	"github.com/rs/zerolog"

	"github.com/lvillar/pdfexport/draw"
	"github.com/lvillar/pdfexport/engine"
)

// Document is the template document an export draws into. The engine
// package provides the implementation used by default.
type Document interface {
	draw.Metrics
	Fields() []draw.Field
	Field(name string) (draw.Field, bool)
	Draw(ins ...draw.Instruction) error
	SetValue(name, value string) error
	Flatten() error
	WriteTo(w io.Writer) (int64, error)
	Close() error
}

// DocumentOpener opens template bytes as a Document.
type DocumentOpener func(template []byte, opts ...engine.Option) (Document, error)

func openEngine(template []byte, opts ...engine.Option) (Document, error) {
	return engine.Open(template, opts...)
}

// Option is a functional option for configuring an Exporter.
type Option func(*exporterConfig)

type exporterConfig struct {
	template     []byte
	templateFile string
	fontDirs     []string
	log          zerolog.Logger
	created      time.Time
	open         DocumentOpener
	observe      func(Stage)
}

// WithTemplate sets the template document. A Template path in the
// configuration takes precedence.
func WithTemplate(data []byte) Option {
	return func(c *exporterConfig) {
		c.template = data
		c.templateFile = ""
	}
}

// WithTemplateFile sets the path of the template document, read on every
// export. A Template path in the configuration takes precedence.
func WithTemplateFile(path string) Option {
	return func(c *exporterConfig) {
		c.templateFile = path
		c.template = nil
	}
}

// WithFontDirs adds directories searched recursively for font files named
// in the configuration.
func WithFontDirs(dirs ...string) Option {
	return func(c *exporterConfig) {
		c.fontDirs = append(c.fontDirs, dirs...)
	}
}

// WithLogger sets the logger. The default discards everything.
func WithLogger(l zerolog.Logger) Option {
	return func(c *exporterConfig) {
		c.log = l
	}
}

// WithCreationDate sets the creation date stamped into output documents.
func WithCreationDate(t time.Time) Option {
	return func(c *exporterConfig) {
		c.created = t
	}
}

// WithDocumentOpener replaces the document engine.
func WithDocumentOpener(open DocumentOpener) Option {
	return func(c *exporterConfig) {
		c.open = open
	}
}

// WithStageObserver registers fn to be called as an export enters each
// stage. Skipped stages are not reported.
func WithStageObserver(fn func(Stage)) Option {
	return func(c *exporterConfig) {
		c.observe = fn
	}
}
