package config

import (
	"strconv"
	"strings"

	"github.com/samber/lo"
)

// defaults is the process-wide default set consulted last.
var defaults = attrs{
	FontName:        "Helvetica",
	FontSize:        "12",
	FontColor:       "BLACK",
	FontStyle:       "NORMAL",
	HAlign:          "ALIGN_LEFT",
	VAlign:          "ALIGN_MIDDLE",
	Border:          "NO_BORDER",
	BorderWidth:     "0.5",
	BorderColor:     "BLACK",
	BackgroundColor: "WHITE",
	Opacity:         "1",

	BarWidth:      "0.8",
	TextFontSize:  "8",
	Baseline:      "10",
	TextAlignment: "ALIGN_CENTER",
	StartStopText: "false",
	AltText:       "false",
	BarColor:      "BLACK",
	TextColor:     "BLACK",

	ErrorCorrectionLevel: "M",
	RectangleMargin:      "2",
	ForeColor:            "BLACK",
	BackColor:            "WHITE",
}

// attrs maps canonical attribute names to non-empty raw values.
type attrs map[string]string

func collectAttrs(n *Node) attrs {
	out := attrs{}
	if n == nil || n.Kind() != ObjectNode {
		return out
	}
	for _, key := range n.Keys() {
		child, _ := n.Get(key)
		if child.Kind() != ScalarNode || child.Text() == "" {
			continue
		}
		if def, ok := lookupAttr(key); ok {
			out[def.name] = child.Text()
		}
	}
	return out
}

type entry struct {
	aliases []string
	attrs   attrs
	columns []column
}

type column struct {
	aliases   []string
	attrs     attrs
	titleFont attrs
	titleCell attrs
	bodyFont  attrs
	bodyCell  attrs
}

type section struct {
	defaults attrs
	entries  []entry
}

func splitAliases(key string) []string {
	return lo.Compact(lo.Map(strings.Split(key, ","), func(s string, _ int) string {
		return strings.TrimSpace(s)
	}))
}

func matchEntry[T any](items []T, aliases func(T) []string, name string) (T, bool) {
	for _, it := range items {
		if lo.Contains(aliases(it), name) {
			return it, true
		}
	}
	var zero T
	return zero, false
}

// Snapshot is the immutable, validated view of one configuration document.
// It is built once per export and answers every style question of that
// export; nothing it returns aliases its internal state.
type Snapshot struct {
	template string
	global   attrs
	sections map[Category]*section
}

// Load parses and validates markup and builds its snapshot.
func Load(data []byte) (*Snapshot, error) {
	root, err := Parse(data)
	if err != nil {
		return nil, err
	}
	return NewSnapshot(root)
}

// NewSnapshot validates root and captures it. An empty snapshot (nil root)
// resolves everything to the built-in defaults.
func NewSnapshot(root *Node) (*Snapshot, error) {
	s := &Snapshot{global: attrs{}, sections: map[Category]*section{}}
	if root == nil {
		return s, nil
	}
	if err := Validate(root); err != nil {
		return nil, err
	}
	s.global = collectAttrs(root)
	s.template = s.global[Template]
	delete(s.global, Template)

	for _, key := range root.Keys() {
		cat, ok := sectionCategory(key)
		if !ok {
			continue
		}
		n, _ := root.Get(key)
		sec := &section{defaults: collectAttrs(n)}
		if n.Kind() == ObjectNode {
			for _, k := range n.Keys() {
				child, _ := n.Get(k)
				if child.Kind() != ObjectNode {
					// Array slots come from repeated anonymous blocks and
					// carry no field names to match against.
					continue
				}
				sec.entries = append(sec.entries, newEntry(k, child))
			}
		}
		s.sections[cat] = sec
	}
	return s, nil
}

func newEntry(key string, n *Node) entry {
	e := entry{aliases: splitAliases(key), attrs: collectAttrs(n)}
	for _, k := range n.Keys() {
		child, _ := n.Get(k)
		if child.Kind() != ObjectNode {
			continue
		}
		c := column{aliases: splitAliases(k), attrs: collectAttrs(child)}
		for _, sub := range child.Keys() {
			block, _ := child.Get(sub)
			switch {
			case strings.EqualFold(sub, TitleFonts):
				c.titleFont = collectAttrs(block)
			case strings.EqualFold(sub, TitleStyles):
				c.titleCell = collectAttrs(block)
			case strings.EqualFold(sub, ColFonts):
				c.bodyFont = collectAttrs(block)
			case strings.EqualFold(sub, ColStyles):
				c.bodyCell = collectAttrs(block)
			}
		}
		e.columns = append(e.columns, c)
	}
	return e
}

// TemplatePath returns the template path named by the configuration, if any.
func (s *Snapshot) TemplatePath() string { return s.template }

// Resolve returns the value of attr for field in cat: the first section entry
// whose alias list names the field, then the section default, then the
// global default. Each attribute is resolved on its own, so a field entry that
// leaves attr unset does not hide a coarser level that sets it.
func (s *Snapshot) Resolve(cat Category, field, attr string) (string, bool) {
	def, ok := lookupAttr(attr)
	if !ok {
		return "", false
	}
	return s.first(def.name, s.levels(cat, field)...)
}

func (s *Snapshot) levels(cat Category, field string) []attrs {
	var lv []attrs
	if sec := s.sections[cat]; sec != nil {
		if e, ok := s.entry(cat, field); ok {
			lv = append(lv, e.attrs)
		}
		lv = append(lv, sec.defaults)
	}
	return lv
}

func (s *Snapshot) entry(cat Category, field string) (entry, bool) {
	sec := s.sections[cat]
	if sec == nil {
		return entry{}, false
	}
	return matchEntry(sec.entries, func(e entry) []string { return e.aliases }, field)
}

func (s *Snapshot) first(name string, levels ...attrs) (string, bool) {
	for _, lv := range levels {
		if v, ok := lv[name]; ok {
			return v, true
		}
	}
	if v, ok := s.global[name]; ok {
		return v, true
	}
	v, ok := defaults[name]
	return v, ok
}

// Style returns the fully populated style of field in cat.
func (s *Snapshot) Style(cat Category, field string) Style {
	lv := s.levels(cat, field)
	return buildStyle(func(name string) string {
		v, _ := s.first(name, lv...)
		return v
	})
}

// Barcode returns the barcode options of field.
func (s *Snapshot) Barcode(field string) BarcodeOptions {
	lv := s.levels(BarcodeFields, field)
	get := func(name string) string {
		v, _ := s.first(name, lv...)
		return v
	}
	o := BarcodeOptions{Format: get(BarcodeFormat)}
	o.Height, _ = strconv.ParseFloat(get(BarcodeHeight), 64)
	o.BarWidth, _ = strconv.ParseFloat(get(BarWidth), 64)
	o.TextSize, _ = strconv.ParseFloat(get(TextFontSize), 64)
	o.Baseline, _ = strconv.ParseFloat(get(Baseline), 64)
	o.TextAlign, _ = parseHAlign(get(TextAlignment))
	o.StartStopText, _ = parseBool(get(StartStopText))
	o.AltText, _ = parseBool(get(AltText))
	o.BarColor, _ = parseColor(get(BarColor))
	o.TextColor, _ = parseColor(get(TextColor))
	return o
}

// QRCode returns the QR options of field.
func (s *Snapshot) QRCode(field string) QROptions {
	lv := s.levels(QRCodeFields, field)
	get := func(name string) string {
		v, _ := s.first(name, lv...)
		return v
	}
	o := QROptions{}
	o.Level, _ = parseLevel(get(ErrorCorrectionLevel))
	o.Margin, _ = strconv.Atoi(strings.TrimSpace(get(RectangleMargin)))
	o.Fore, _ = parseColor(get(ForeColor))
	o.Back, _ = parseColor(get(BackColor))
	return o
}
