// Package reader parses existing PDF documents far enough to locate pages
// and interactive form fields. It understands classic and stream
// cross-reference sections, object streams and the common stream filters.
// Encrypted documents are rejected.
package reader

import (
	"fmt"
	"strconv"

	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"
)

// Object is implemented by every PDF object type.
type Object interface {
	pdfObject()
}

// Null is the PDF null object.
type Null struct{}

// Boolean is a PDF boolean.
type Boolean bool

// Integer is a PDF integer.
type Integer int64

// Real is a PDF real number.
type Real float64

// Name is a PDF name without its leading slash.
type Name string

// String is a literal or hexadecimal PDF string with escapes removed.
type String []byte

// Array is a PDF array.
type Array []Object

// Dict is a PDF dictionary.
type Dict map[Name]Object

// Stream is a stream object. Data holds the raw, still encoded bytes.
type Stream struct {
	Dict Dict
	Data []byte
}

// Reference is an indirect object reference ("12 0 R").
type Reference struct {
	Number     int
	Generation int
}

func (Null) pdfObject()      {}
func (Boolean) pdfObject()   {}
func (Integer) pdfObject()   {}
func (Real) pdfObject()      {}
func (Name) pdfObject()      {}
func (String) pdfObject()    {}
func (Array) pdfObject()     {}
func (Dict) pdfObject()      {}
func (Stream) pdfObject()    {}
func (Reference) pdfObject() {}

func (r Reference) String() string { return fmt.Sprintf("%d %d R", r.Number, r.Generation) }

// Text decodes the string as a PDF text string: UTF-16BE when it starts with
// a byte order mark, PDFDocEncoding otherwise.
func (s String) Text() string {
	if len(s) >= 2 && s[0] == 0xfe && s[1] == 0xff {
		out, err := unicode.UTF16(unicode.BigEndian, unicode.ExpectBOM).NewDecoder().Bytes(s)
		if err == nil {
			return string(out)
		}
	}
	// PDFDocEncoding agrees with Latin-1 on everything a form value holds.
	out, err := charmap.ISO8859_1.NewDecoder().Bytes(s)
	if err != nil {
		return string(s)
	}
	return string(out)
}

// Number returns the numeric value of an Integer or Real.
func Number(o Object) (float64, bool) {
	switch v := o.(type) {
	case Integer:
		return float64(v), true
	case Real:
		return float64(v), true
	}
	return 0, false
}

// Name returns the name stored under key, or "".
func (d Dict) Name(key Name) Name {
	n, _ := d[key].(Name)
	return n
}

// Int returns the integer stored under key.
func (d Dict) Int(key Name) (int, bool) {
	f, ok := Number(d[key])
	return int(f), ok
}

// Text returns the decoded text string stored under key, or "".
func (d Dict) Text(key Name) string {
	s, ok := d[key].(String)
	if !ok {
		return ""
	}
	return s.Text()
}

// valueString renders a field value object.
func valueString(o Object) string {
	switch v := o.(type) {
	case String:
		return v.Text()
	case Name:
		return string(v)
	case Integer:
		return strconv.FormatInt(int64(v), 10)
	case Real:
		return strconv.FormatFloat(float64(v), 'f', -1, 64)
	case Boolean:
		return strconv.FormatBool(bool(v))
	case Array:
		// Multi-select choice fields; the first selection is the value.
		if len(v) > 0 {
			return valueString(v[0])
		}
	}
	return ""
}

// Rectangle is a PDF rectangle normalised so LLX <= URX and LLY <= URY.
type Rectangle struct {
	LLX, LLY, URX, URY float64
}

// Width returns the horizontal extent.
func (r Rectangle) Width() float64 { return r.URX - r.LLX }

// Height returns the vertical extent.
func (r Rectangle) Height() float64 { return r.URY - r.LLY }

func toRectangle(o Object) (Rectangle, error) {
	arr, ok := o.(Array)
	if !ok || len(arr) != 4 {
		return Rectangle{}, fmt.Errorf("reader: rectangle must be a 4-element array")
	}
	var v [4]float64
	for i, it := range arr {
		f, ok := Number(it)
		if !ok {
			return Rectangle{}, fmt.Errorf("reader: rectangle element %d is not numeric", i)
		}
		v[i] = f
	}
	r := Rectangle{LLX: v[0], LLY: v[1], URX: v[2], URY: v[3]}
	if r.LLX > r.URX {
		r.LLX, r.URX = r.URX, r.LLX
	}
	if r.LLY > r.URY {
		r.LLY, r.URY = r.URY, r.LLY
	}
	return r, nil
}
