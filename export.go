// Package pdfexport fills the fields of a PDF form template with text,
// barcodes, QR codes, images, checkbox and radio values and tables, then
// flattens the form into static page content.
//
// An Exporter is built once with New and may serve concurrent exports. Each
// export parses its configuration markup into an immutable snapshot, opens a
// private copy of the template and runs the field categories in a fixed
// order:
//
//	exp, err := pdfexport.New(pdfexport.WithTemplateFile("invoice.pdf"))
//	if err != nil {
//		return err
//	}
//	err = exp.ExportFile("out.pdf", config, pdfexport.Data{
//		Text: map[string]any{"name": "Alice"},
//	})
package pdfexport

import (
	"bytes"
	"errors"
	"io"
	"io/fs"
	"os"

	"github.com/rs/zerolog"

	"github.com/lvillar/pdfexport/engine"
	"github.com/lvillar/pdfexport/pdferr"
)

// Exporter renders data into copies of a template. It is immutable after
// New.
type Exporter struct {
	cfg exporterConfig
}

// New returns an Exporter configured by opts.
func New(opts ...Option) (*Exporter, error) {
	cfg := exporterConfig{
		log:     zerolog.Nop(),
		created: engine.DefaultCreationDate,
		open:    openEngine,
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.open == nil {
		return nil, pdferr.Newf(pdferr.Validation, "New", "nil document opener")
	}
	cfg.fontDirs = append([]string(nil), cfg.fontDirs...)
	return &Exporter{cfg: cfg}, nil
}

// Export renders data into the template using the configuration markup
// (XML or YAML) and writes the flattened document to w. Empty markup uses
// the built-in defaults. Nothing is written to w unless every field renders.
func (e *Exporter) Export(w io.Writer, config []byte, data Data) error {
	x := &export{Exporter: e, log: e.cfg.log}
	if err := x.run(w, config, data); err != nil {
		x.enter(Aborted)
		x.log.Warn().Err(err).Msg("export aborted")
		return err
	}
	return nil
}

// ExportBytes is Export into memory.
func (e *Exporter) ExportBytes(config []byte, data Data) ([]byte, error) {
	var buf bytes.Buffer
	if err := e.Export(&buf, config, data); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// ExportFile is Export into the file at path. The file is only created once
// the document has been produced.
func (e *Exporter) ExportFile(path string, config []byte, data Data) error {
	out, err := e.ExportBytes(config, data)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, out, 0o644); err != nil {
		return pdferr.New(pdferr.IO, "ExportFile", err)
	}
	return nil
}

// templateBytes returns the template named by the configuration, else the
// one set by options.
func (e *Exporter) templateBytes(configured string) ([]byte, error) {
	path := configured
	if path == "" {
		if e.cfg.template != nil {
			return e.cfg.template, nil
		}
		path = e.cfg.templateFile
	}
	if path == "" {
		return nil, pdferr.Newf(pdferr.ResourceNotFound, "Export", "no template configured")
	}
	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return nil, pdferr.New(pdferr.ResourceNotFound, "Export", err)
	case err != nil:
		return nil, pdferr.New(pdferr.IO, "Export", err)
	}
	return data, nil
}

func (e *Exporter) engineOptions(log zerolog.Logger) []engine.Option {
	return []engine.Option{
		engine.WithFontDirs(e.cfg.fontDirs...),
		engine.WithLogger(log),
		engine.WithCreationDate(e.cfg.created),
	}
}
