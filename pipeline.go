package pdfexport

import (
	"io"
	"sort"

	"github.com/rs/zerolog"
	"github.com/samber/lo"

	"github.com/lvillar/pdfexport/config"
	"github.com/lvillar/pdfexport/draw"
	"github.com/lvillar/pdfexport/pdferr"
	"github.com/lvillar/pdfexport/render"
	"github.com/lvillar/pdfexport/sign"
	"github.com/lvillar/pdfexport/table"
)

// Stage is a state of an export. An export moves through the stages in
// declaration order, skipping categories without data, and ends in
// Serialized or Aborted.
type Stage int

const (
	Loaded Stage = iota
	ConfigResolved
	TextRendered
	BarcodeRendered
	QRRendered
	ImageRendered
	CheckboxApplied
	GroupApplied
	TableRendered
	Flattened
	Serialized
	Aborted
)

var stageNames = [...]string{
	Loaded:          "loaded",
	ConfigResolved:  "config resolved",
	TextRendered:    "text rendered",
	BarcodeRendered: "barcode rendered",
	QRRendered:      "qrcode rendered",
	ImageRendered:   "image rendered",
	CheckboxApplied: "checkbox applied",
	GroupApplied:    "group applied",
	TableRendered:   "table rendered",
	Flattened:       "flattened",
	Serialized:      "serialized",
	Aborted:         "aborted",
}

func (s Stage) String() string {
	if s < 0 || int(s) >= len(stageNames) {
		return "unknown"
	}
	return stageNames[s]
}

// export is the state of one Export call.
type export struct {
	*Exporter
	log  zerolog.Logger
	snap *config.Snapshot
	doc  Document
	r    *render.Renderer
}

func (x *export) enter(s Stage) {
	x.log.Debug().Stringer("stage", s).Msg("export stage")
	if x.cfg.observe != nil {
		x.cfg.observe(s)
	}
}

// step renders one data category.
type step struct {
	stage    Stage
	category string
	names    []string
	apply    func(name string, f draw.Field) error
}

func (x *export) run(w io.Writer, markup []byte, data Data) error {
	snap, err := loadConfig(markup)
	if err != nil {
		return err
	}
	tpl, err := x.templateBytes(snap.TemplatePath())
	if err != nil {
		return err
	}
	doc, err := x.cfg.open(tpl, x.engineOptions(x.log)...)
	if err != nil {
		return err
	}
	defer doc.Close()
	x.doc = doc
	x.enter(Loaded)
	x.inspectSignatures(tpl)

	x.snap = snap
	x.r = render.New(doc, x.log)
	x.enter(ConfigResolved)

	for _, s := range x.steps(data) {
		if len(s.names) == 0 {
			continue
		}
		for _, name := range s.names {
			f, ok := doc.Field(name)
			if !ok {
				x.log.Debug().Str("category", s.category).Str("field", name).Msg("field not in template, ignored")
				continue
			}
			if err := s.apply(name, f); err != nil {
				return err
			}
		}
		x.enter(s.stage)
	}

	if err := doc.Flatten(); err != nil {
		return err
	}
	x.enter(Flattened)
	if _, err := doc.WriteTo(w); err != nil {
		if pdferr.KindOf(err) == 0 {
			err = pdferr.New(pdferr.IO, "Export", err)
		}
		return err
	}
	x.enter(Serialized)
	return nil
}

func loadConfig(markup []byte) (*config.Snapshot, error) {
	if len(markup) == 0 {
		return config.NewSnapshot(nil)
	}
	return config.Load(markup)
}

func sortedKeys[V any](m map[string]V) []string {
	keys := lo.Keys(m)
	sort.Strings(keys)
	return keys
}

func (x *export) steps(d Data) []step {
	return []step{
		{TextRendered, string(config.TextFields), sortedKeys(d.Text), func(name string, f draw.Field) error {
			txt, err := x.r.Text(f, d.Text[name], x.snap.Style(config.TextFields, name))
			if err != nil {
				return err
			}
			return x.doc.Draw(txt)
		}},
		{BarcodeRendered, string(config.BarcodeFields), sortedKeys(d.Barcode), func(name string, f draw.Field) error {
			if x.absent(config.BarcodeFields, name, d.Barcode[name]) {
				return nil
			}
			ins, err := x.r.Barcode(f, d.Barcode[name], x.snap.Barcode(name), x.snap.Style(config.BarcodeFields, name))
			if err != nil {
				return err
			}
			return x.doc.Draw(ins...)
		}},
		{QRRendered, string(config.QRCodeFields), sortedKeys(d.QRCode), func(name string, f draw.Field) error {
			if x.absent(config.QRCodeFields, name, d.QRCode[name]) {
				return nil
			}
			bm, err := x.r.QRCode(f, d.QRCode[name], x.snap.QRCode(name), x.snap.Style(config.QRCodeFields, name))
			if err != nil {
				return err
			}
			return x.doc.Draw(bm)
		}},
		{ImageRendered, string(config.ImageFields), sortedKeys(d.Image), func(name string, f draw.Field) error {
			if x.absent(config.ImageFields, name, d.Image[name]) {
				return nil
			}
			bm, err := x.r.Image(f, d.Image[name], x.snap.Style(config.ImageFields, name))
			if err != nil {
				return err
			}
			return x.doc.Draw(bm)
		}},
		{CheckboxApplied, "CheckboxFields", sortedKeys(d.Checkbox), func(name string, f draw.Field) error {
			token, ok := render.Checkbox(f, d.Checkbox[name])
			if !ok {
				x.log.Debug().Str("field", name).Msg("nil checkbox value, field untouched")
				return nil
			}
			return x.doc.SetValue(name, token)
		}},
		{GroupApplied, "GroupFields", sortedKeys(d.Group), func(name string, f draw.Field) error {
			v, ok, err := render.Group(f, d.Group[name])
			if err != nil || !ok {
				return err
			}
			return x.doc.SetValue(name, v)
		}},
		{TableRendered, string(config.TableFields), sortedKeys(d.Table), func(name string, f draw.Field) error {
			td := d.Table[name]
			if td == nil {
				return nil
			}
			grid, ok, err := table.New(x.r, f).SetSpec(table.NewSpec(x.snap, name, td.Rows)).Layout()
			if err != nil || !ok {
				return err
			}
			return x.doc.Draw(grid)
		}},
	}
}

// absent reports a nil symbol or image value, which leaves the field empty.
func (x *export) absent(cat config.Category, name string, v any) bool {
	if v != nil {
		return false
	}
	x.log.Debug().Str("category", string(cat)).Str("field", name).Msg("nil value, field left empty")
	return true
}

// inspectSignatures warns about signatures the flattened output will no
// longer carry.
func (x *export) inspectSignatures(tpl []byte) {
	sigs, err := sign.Inspect(tpl)
	if err != nil {
		x.log.Debug().Err(err).Msg("signature inspection failed")
		return
	}
	for _, s := range sigs {
		x.log.Warn().Str("field", s.Field).Bool("whole_document", s.CoversWholeDocument).
			Msg("template is signed; flattening invalidates the signature")
	}
}
