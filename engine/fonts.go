package engine

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"golang.org/x/image/font/sfnt"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"

	"github.com/lvillar/pdfexport/draw"
	"github.com/lvillar/pdfexport/pdferr"
)

// coreFamilies maps accepted names of the standard 14 fonts to their gofpdf
// family.
var coreFamilies = map[string]string{
	"helvetica":       "Helvetica",
	"helv":            "Helvetica",
	"arial":           "Helvetica",
	"times":           "Times",
	"times-roman":     "Times",
	"times new roman": "Times",
	"courier":         "Courier",
	"courier new":     "Courier",
	"symbol":          "Symbol",
	"zapfdingbats":    "ZapfDingbats",
	"zadb":            "ZapfDingbats",
}

var winAnsi = encoding.ReplaceUnsupported(charmap.Windows1252.NewEncoder())

// font is a font usable in the output document.
type font struct {
	family   string // gofpdf family name
	core     bool
	symbolic bool // Symbol and ZapfDingbats use their own encodings
	sfnt     *sfnt.Font
	buf      sfnt.Buffer
}

func (f *font) style(s draw.FontStyle) string {
	if !f.core || f.symbolic {
		return ""
	}
	var out string
	if s.Has(draw.Bold) {
		out += "B"
	}
	if s.Has(draw.Italic) {
		out += "I"
	}
	return out
}

// encode converts s to the byte encoding gofpdf expects for f.
func (f *font) encode(s string) string {
	if !f.core || f.symbolic {
		return s
	}
	out, err := winAnsi.String(s)
	if err != nil {
		return s
	}
	return out
}

func (f *font) covers(r rune) (bool, error) {
	switch {
	case f.sfnt != nil:
		idx, err := f.sfnt.GlyphIndex(&f.buf, r)
		if err != nil {
			return false, err
		}
		return idx != 0, nil
	case f.symbolic:
		return r >= 0x20 && r < 0x7f, nil
	}
	_, ok := charmap.Windows1252.EncodeRune(r)
	return ok, nil
}

// font returns the named font, loading and registering font files on first
// use. Names of the standard fonts select core fonts; anything else names a
// TrueType file, optionally followed by ",N" to pick a member of a
// collection.
func (d *Document) font(name string) (*font, error) {
	const op = "engine.font"
	if d.closed {
		return nil, pdferr.New(pdferr.IO, op, pdferr.ErrClosed)
	}
	key := strings.ToLower(strings.TrimSpace(name))
	if f, ok := d.fonts[key]; ok {
		return f, nil
	}
	if family, ok := coreFamilies[key]; ok {
		f := &font{family: family, core: true, symbolic: family == "Symbol" || family == "ZapfDingbats"}
		d.fonts[key] = f
		return f, nil
	}

	file, index := splitCollectionIndex(strings.TrimSpace(name))
	if filepath.Ext(file) == "" {
		file += ".ttf"
	}
	path, err := d.findFont(file)
	if err != nil {
		return nil, pdferr.New(pdferr.ResourceNotFound, op, err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, pdferr.New(pdferr.IO, op, err)
	}
	switch strings.ToLower(filepath.Ext(file)) {
	case ".ttc", ".otc":
		if data, err = collectionMember(data, index); err != nil {
			return nil, pdferr.New(pdferr.Render, op, fmt.Errorf("%s: %w", path, err))
		}
	}
	parsed, err := sfnt.Parse(data)
	if err != nil {
		return nil, pdferr.New(pdferr.Render, op, fmt.Errorf("%s: %w", path, err))
	}

	f := &font{family: "F" + strconv.Itoa(len(d.fonts)), sfnt: parsed}
	d.pdf.AddUTF8FontFromBytes(f.family, "", data)
	if d.pdf.Err() {
		return nil, pdferr.New(pdferr.Render, op, fmt.Errorf("%s: %w", path, d.pdf.Error()))
	}
	d.fonts[key] = f
	d.log.Debug().Str("font", name).Str("path", path).Msg("font registered")
	return f, nil
}

// splitCollectionIndex splits "simsun.ttc,1" into the file and member index.
func splitCollectionIndex(name string) (string, int) {
	i := strings.LastIndexByte(name, ',')
	if i < 0 {
		return name, 0
	}
	n, err := strconv.Atoi(strings.TrimSpace(name[i+1:]))
	if err != nil || n < 0 {
		return name, 0
	}
	return strings.TrimSpace(name[:i]), n
}

var errFontNotFound = errors.New("font file not found")

// findFont locates file: as given when it exists, else by base name
// anywhere below the font directories. Names match case-insensitively.
func (d *Document) findFont(file string) (string, error) {
	if _, err := os.Stat(file); err == nil {
		return file, nil
	}
	base := filepath.Base(file)
	for _, dir := range d.opts.fontDirs {
		var found string
		_ = filepath.WalkDir(dir, func(path string, e fs.DirEntry, err error) error {
			if err != nil {
				return nil
			}
			if !e.IsDir() && strings.EqualFold(e.Name(), base) {
				found = path
				return fs.SkipAll
			}
			return nil
		})
		if found != "" {
			return found, nil
		}
	}
	return "", fmt.Errorf("%w: %s", errFontNotFound, file)
}

// HasGlyph reports whether the named font can render r.
func (d *Document) HasGlyph(name string, r rune) (bool, error) {
	f, err := d.font(name)
	if err != nil {
		return false, err
	}
	return f.covers(r)
}

// StringWidth returns the advance width of s in points.
func (d *Document) StringWidth(name string, style draw.FontStyle, size float64, s string) (float64, error) {
	f, err := d.font(name)
	if err != nil {
		return 0, err
	}
	d.pdf.SetFont(f.family, f.style(style), size)
	w := d.pdf.GetStringWidth(f.encode(s))
	if d.pdf.Err() {
		return 0, pdferr.New(pdferr.Render, "engine.StringWidth", d.pdf.Error())
	}
	return w, nil
}
