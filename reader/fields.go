package reader

import (
	"regexp"
	"sort"
	"strconv"
)

// Field flag bits (/Ff).
const (
	FlagReadOnly    = 1 << 0
	FlagRequired    = 1 << 1
	FlagMultiline   = 1 << 12
	FlagNoToggleOff = 1 << 14
	FlagRadio       = 1 << 15
	FlagPushButton  = 1 << 16
	FlagCombo       = 1 << 17
)

// Widget is one visible occurrence of a field.
type Widget struct {
	Ref     Reference
	Page    int // 1-based, 0 if the page could not be determined
	Rect    Rectangle
	OnState string // appearance state other than Off, for buttons
	State   string // current /AS
}

// Field is a terminal form field with inherited attributes applied.
type Field struct {
	Name    string // fully qualified, dot separated
	Type    Name   // Tx, Btn, Ch or Sig
	Flags   int
	Value   string
	Default string
	Options []string
	DA      string // default appearance string
	MaxLen  int
	Widgets []Widget

	// Signature is the resolved /V dictionary of a signature field.
	Signature Dict
}

// Has reports whether every bit of flag is set.
func (f *Field) Has(flag int) bool { return f.Flags&flag == flag }

var daFontSize = regexp.MustCompile(`/[^\s/]+\s+([0-9.]+)\s+Tf`)

// FontSize returns the font size of the default appearance; 0 means the
// viewer picks a size that fits.
func (f *Field) FontSize() float64 {
	m := daFontSize.FindStringSubmatch(f.DA)
	if m == nil {
		return 0
	}
	v, _ := strconv.ParseFloat(m[1], 64)
	return v
}

// Fields returns the terminal fields of the interactive form in document
// order. Documents without a form have no fields.
func (d *Document) Fields() ([]*Field, error) {
	cat, err := d.Catalog()
	if err != nil {
		return nil, err
	}
	form := d.dict(cat["AcroForm"])
	if form == nil {
		return nil, nil
	}
	annotPage := d.annotationPages()
	inherit := Dict{}
	if da, ok := form["DA"]; ok {
		inherit["DA"] = da
	}
	var out []*Field
	visited := map[Reference]bool{}
	for _, f := range d.array(form["Fields"]) {
		d.walkField(f, "", inherit, annotPage, visited, &out)
	}
	return out, nil
}

// Field returns the field with the fully qualified name.
func (d *Document) Field(name string) (*Field, bool) {
	fields, err := d.Fields()
	if err != nil {
		return nil, false
	}
	for _, f := range fields {
		if f.Name == name {
			return f, true
		}
	}
	return nil, false
}

// annotationPages maps every annotation reference listed in a page's
// /Annots array to that page.
func (d *Document) annotationPages() map[Reference]int {
	m := map[Reference]int{}
	for n, p := range d.Pages() {
		for _, r := range p.Annots() {
			if _, ok := m[r]; !ok {
				m[r] = n
			}
		}
	}
	return m
}

var inheritedFieldKeys = []Name{"FT", "Ff", "V", "DV", "DA", "Opt", "MaxLen"}

func (d *Document) walkField(o Object, parent string, inherited Dict, annotPage map[Reference]int,
	visited map[Reference]bool, out *[]*Field) {
	ref, isRef := o.(Reference)
	if isRef {
		if visited[ref] {
			return
		}
		visited[ref] = true
	}
	dict := d.dict(o)
	if dict == nil {
		return
	}
	name := parent
	if t := dict.Text("T"); t != "" {
		if name != "" {
			name += "."
		}
		name += t
	}
	attrs := Dict{}
	for k, v := range inherited {
		attrs[k] = v
	}
	for _, k := range inheritedFieldKeys {
		if v, ok := dict[k]; ok {
			attrs[k] = v
		}
	}

	// Kids carrying /T are fields; the rest are widgets of this field.
	var widgets []Object
	hasFieldKids := false
	for _, kid := range d.array(dict["Kids"]) {
		kd := d.dict(kid)
		if kd == nil {
			continue
		}
		if _, ok := kd["T"]; ok {
			hasFieldKids = true
			d.walkField(kid, name, attrs, annotPage, visited, out)
			continue
		}
		widgets = append(widgets, kid)
	}
	if hasFieldKids && len(widgets) == 0 {
		return
	}
	if len(widgets) == 0 {
		widgets = []Object{o}
	}

	f := &Field{Name: name, Type: attrs.Name("FT")}
	f.Flags, _ = attrs.Int("Ff")
	f.MaxLen, _ = attrs.Int("MaxLen")
	if v, err := d.Resolve(attrs["V"]); err == nil {
		if f.Type == "Sig" {
			f.Signature, _ = v.(Dict)
		} else {
			f.Value = valueString(v)
		}
	}
	if v, err := d.Resolve(attrs["DV"]); err == nil {
		f.Default = valueString(v)
	}
	if da, err := d.Resolve(attrs["DA"]); err == nil {
		if s, ok := da.(String); ok {
			f.DA = string(s)
		}
	}
	for _, opt := range d.array(attrs["Opt"]) {
		opt, _ = d.Resolve(opt)
		// [export display] pairs show the display text.
		if pair, ok := opt.(Array); ok && len(pair) == 2 {
			opt = pair[1]
		}
		f.Options = append(f.Options, valueString(opt))
	}
	for _, w := range widgets {
		f.Widgets = append(f.Widgets, d.widget(w, annotPage))
	}
	*out = append(*out, f)
}

func (d *Document) widget(o Object, annotPage map[Reference]int) Widget {
	dict := d.dict(o)
	w := Widget{}
	if r, ok := o.(Reference); ok {
		w.Ref = r
		w.Page = annotPage[r]
	}
	if p, ok := dict["P"].(Reference); ok {
		if n := d.PageOf(p); n > 0 {
			w.Page = n
		}
	}
	if rect, err := d.Resolve(dict["Rect"]); err == nil {
		w.Rect, _ = toRectangle(rect)
	}
	w.State = string(dict.Name("AS"))
	if ap := d.dict(dict["AP"]); ap != nil {
		var states []string
		n, _ := d.Resolve(ap["N"])
		normal, _ := n.(Dict)
		for k := range normal {
			if k != "Off" {
				states = append(states, string(k))
			}
		}
		sort.Strings(states)
		if len(states) > 0 {
			w.OnState = states[0]
		}
	}
	return w
}
