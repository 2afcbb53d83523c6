package reader

import (
	"fmt"
)

// Page is one leaf of the page tree with inherited attributes applied.
type Page struct {
	Number    int
	Ref       Reference // zero when the page dictionary is direct
	MediaBox  Rectangle
	CropBox   Rectangle // equals MediaBox when absent
	Rotate    int       // normalised to 0, 90, 180 or 270
	Resources Dict

	dict Dict
	doc  *Document
}

// Annots returns the page's annotation references in document order.
// Direct annotation dictionaries are skipped.
func (p *Page) Annots() []Reference {
	var refs []Reference
	for _, a := range p.doc.array(p.dict["Annots"]) {
		if r, ok := a.(Reference); ok {
			refs = append(refs, r)
		}
	}
	return refs
}

// Content returns the decoded content streams joined by newlines.
func (p *Page) Content() ([]byte, error) {
	c, err := p.doc.Resolve(p.dict["Contents"])
	if err != nil {
		return nil, err
	}
	var streams []Object
	switch v := c.(type) {
	case Stream:
		streams = []Object{v}
	case Array:
		streams = v
	}
	var out []byte
	for _, s := range streams {
		r, err := p.doc.Resolve(s)
		if err != nil {
			return nil, err
		}
		st, ok := r.(Stream)
		if !ok {
			continue
		}
		data, err := p.doc.Decode(st)
		if err != nil {
			return nil, fmt.Errorf("reader: page %d content: %w", p.Number, err)
		}
		out = append(append(out, data...), '\n')
	}
	return out, nil
}

var inheritable = []Name{"MediaBox", "CropBox", "Resources", "Rotate"}

func (d *Document) loadPages() error {
	cat, err := d.Catalog()
	if err != nil {
		return err
	}
	d.pages = nil
	d.pageNum = map[Reference]int{}
	root := cat["Pages"]
	if root == nil {
		return fmt.Errorf("reader: catalog has no /Pages")
	}
	return d.walkPages(root, Dict{}, map[Reference]bool{})
}

func (d *Document) walkPages(node Object, inherited Dict, visited map[Reference]bool) error {
	ref, isRef := node.(Reference)
	if isRef {
		if visited[ref] {
			return fmt.Errorf("reader: page tree cycle at %s", ref)
		}
		visited[ref] = true
	}
	dict := d.dict(node)
	if dict == nil {
		return nil
	}
	attrs := Dict{}
	for k, v := range inherited {
		attrs[k] = v
	}
	for _, k := range inheritable {
		if v, ok := dict[k]; ok {
			attrs[k] = v
		}
	}

	if dict.Name("Type") == "Pages" || (dict["Kids"] != nil && dict.Name("Type") != "Page") {
		for _, kid := range d.array(dict["Kids"]) {
			if err := d.walkPages(kid, attrs, visited); err != nil {
				return err
			}
		}
		return nil
	}

	p := &Page{Number: len(d.pages) + 1, dict: dict, doc: d}
	if isRef {
		p.Ref = ref
		d.pageNum[ref] = p.Number
	}
	// US Letter when the box is missing or broken.
	p.MediaBox = Rectangle{URX: 612, URY: 792}
	if mb, err := d.Resolve(attrs["MediaBox"]); err == nil {
		if r, err := toRectangle(mb); err == nil {
			p.MediaBox = r
		}
	}
	p.CropBox = p.MediaBox
	if cb, err := d.Resolve(attrs["CropBox"]); err == nil && cb != nil {
		if r, err := toRectangle(cb); err == nil {
			p.CropBox = r
		}
	}
	if rot, err := d.Resolve(attrs["Rotate"]); err == nil {
		if v, ok := Number(rot); ok {
			p.Rotate = (int(v)%360 + 360) % 360
		}
	}
	p.Resources = d.dict(attrs["Resources"])
	d.pages = append(d.pages, p)
	return nil
}

// PageOf returns the number of the page whose dictionary is ref, or 0.
func (d *Document) PageOf(ref Reference) int {
	return d.pageNum[ref]
}
