package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/lvillar/pdfexport/pdferr"
)

// Category names a configuration section and the data map it styles.
type Category string

const (
	TextFields    Category = "TextFields"
	BarcodeFields Category = "BarcodeFields"
	QRCodeFields  Category = "QrcodeFields"
	ImageFields   Category = "ImageFields"
	TableFields   Category = "TableFields"
)

// Categories lists the sections in the order the export stages consume them.
var Categories = []Category{TextFields, BarcodeFields, QRCodeFields, ImageFields, TableFields}

func sectionCategory(key string) (Category, bool) {
	for _, c := range Categories {
		if strings.EqualFold(key, string(c)) {
			return c, true
		}
	}
	return "", false
}

type nameSet map[string]bool

func names(lists ...[]string) nameSet {
	s := nameSet{}
	for _, l := range lists {
		for _, n := range l {
			s[n] = true
		}
	}
	return s
}

var (
	fontAttrNames    = []string{FontName, FontSize, FontColor, FontStyle}
	cellAttrNames    = []string{HAlign, VAlign, Border, BorderWidth, BorderColor, BackgroundColor}
	barcodeAttrNames = []string{BarcodeFormat, BarcodeHeight, BarWidth, TextFontSize, Baseline, TextAlignment, StartStopText, AltText, BarColor, TextColor}
	qrAttrNames      = []string{ErrorCorrectionLevel, RectangleMargin, ForeColor, BackColor}

	fontAttrs  = names(fontAttrNames)
	cellAttrs  = names(cellAttrNames, []string{Opacity})
	styleAttrs = names(fontAttrNames, cellAttrNames, []string{Opacity})
	rootAttrs  = names(fontAttrNames, cellAttrNames, []string{Opacity, Template})

	sectionAttrs = map[Category]nameSet{
		TextFields:    styleAttrs,
		BarcodeFields: names(fontAttrNames, cellAttrNames, []string{Opacity}, barcodeAttrNames),
		QRCodeFields:  names(fontAttrNames, cellAttrNames, []string{Opacity}, qrAttrNames),
		ImageFields:   styleAttrs,
		TableFields:   styleAttrs,
	}
	columnAttrs = names(fontAttrNames, cellAttrNames, []string{Opacity, ColTitle, ColWidths})
)

// Validate checks a configuration tree against the fixed schema: known
// sections, attributes allowed where they appear, and well-formed values.
// All violations are reported together.
func Validate(root *Node) error {
	v := &validator{}
	v.root(root)
	if len(v.errs) == 0 {
		return nil
	}
	return pdferr.New(pdferr.Validation, "config.Validate", errors.Join(v.errs...))
}

type validator struct {
	errs []error
}

func (v *validator) fail(path, format string, args ...any) {
	v.errs = append(v.errs, fmt.Errorf("%s: %s", path, fmt.Sprintf(format, args...)))
}

func (v *validator) root(root *Node) {
	if root.Kind() != ObjectNode {
		v.fail(RootName, "must contain sections")
		return
	}
	for _, key := range root.Keys() {
		n, _ := root.Get(key)
		path := RootName + "/" + key
		if cat, ok := sectionCategory(key); ok {
			v.section(cat, n, path)
			continue
		}
		v.attribute(rootAttrs, key, n, path)
	}
}

func (v *validator) attribute(allowed nameSet, key string, n *Node, path string) {
	def, ok := lookupAttr(key)
	if !ok || !allowed[def.name] {
		v.fail(path, "unknown element")
		return
	}
	if n.Kind() != ScalarNode {
		v.fail(path, "%s must be a value, not a %s", def.name, n.Kind())
		return
	}
	if n.Text() == "" {
		return
	}
	if err := def.check(n.Text()); err != nil {
		v.fail(path, "%v", err)
	}
}

func (v *validator) section(cat Category, n *Node, path string) {
	switch n.Kind() {
	case ScalarNode:
		if n.Text() != "" {
			v.fail(path, "section holds text instead of entries")
		}
		return
	case ArrayNode:
		v.fail(path, "section appears more than once")
		return
	}
	allowed := sectionAttrs[cat]
	for _, key := range n.Keys() {
		child, _ := n.Get(key)
		p := path + "/" + key
		switch child.Kind() {
		case ScalarNode:
			if _, isAttr := lookupAttr(key); !isAttr && child.Text() == "" {
				continue // empty entry
			}
			v.attribute(allowed, key, child, p)
		case ObjectNode:
			v.entry(cat, child, p)
		case ArrayNode:
			for i, it := range child.Items() {
				v.entry(cat, it, fmt.Sprintf("%s[%d]", p, i))
			}
		}
	}
}

func (v *validator) entry(cat Category, n *Node, path string) {
	allowed := sectionAttrs[cat]
	for _, key := range n.Keys() {
		child, _ := n.Get(key)
		p := path + "/" + key
		if child.Kind() == ScalarNode {
			v.attribute(allowed, key, child, p)
			continue
		}
		if cat != TableFields {
			v.fail(p, "nested blocks are only allowed in %s", TableFields)
			continue
		}
		if child.Kind() == ArrayNode {
			for i, it := range child.Items() {
				v.column(it, fmt.Sprintf("%s[%d]", p, i))
			}
			continue
		}
		v.column(child, p)
	}
}

func (v *validator) column(n *Node, path string) {
	for _, key := range n.Keys() {
		child, _ := n.Get(key)
		p := path + "/" + key
		switch {
		case strings.EqualFold(key, TitleFonts), strings.EqualFold(key, ColFonts):
			v.block(fontAttrs, child, p)
		case strings.EqualFold(key, TitleStyles), strings.EqualFold(key, ColStyles):
			v.block(cellAttrs, child, p)
		default:
			v.attribute(columnAttrs, key, child, p)
		}
	}
}

func (v *validator) block(allowed nameSet, n *Node, path string) {
	switch n.Kind() {
	case ScalarNode:
		if n.Text() != "" {
			v.fail(path, "must contain attributes")
		}
		return
	case ArrayNode:
		v.fail(path, "appears more than once")
		return
	}
	for _, key := range n.Keys() {
		child, _ := n.Get(key)
		v.attribute(allowed, key, child, path+"/"+key)
	}
}
