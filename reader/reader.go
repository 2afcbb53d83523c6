package reader

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"iter"
	"strconv"
)

// ErrEncrypted is returned for documents carrying an /Encrypt dictionary.
var ErrEncrypted = errors.New("reader: encrypted documents are not supported")

// Document is a parsed PDF document. It is safe for sequential use only.
type Document struct {
	Version string // header version, e.g. "1.7"

	data    []byte
	xref    xrefTable
	trailer Dict
	pages   []*Page
	pageNum map[Reference]int

	cache   map[int]Object
	objStms map[int]map[int]Object
	loading map[int]bool
}

// Parse parses a PDF document held in memory. The document keeps a
// reference to data.
func Parse(data []byte) (*Document, error) {
	d := &Document{
		data:    data,
		xref:    xrefTable{},
		cache:   map[int]Object{},
		objStms: map[int]map[int]Object{},
		loading: map[int]bool{},
	}
	if !bytes.Contains(data[:min(len(data), 1024)], []byte("%PDF-")) {
		return nil, fmt.Errorf("reader: missing %%PDF header")
	}
	d.Version = version(data)

	off, err := findStartXRef(data)
	if err == nil {
		d.trailer, err = d.loadXRef(off)
	}
	if err != nil || d.trailer["Root"] == nil {
		if d.trailer, err = d.rebuildXRef(); err != nil {
			return nil, err
		}
	}
	if _, ok := d.trailer["Encrypt"]; ok {
		return nil, ErrEncrypted
	}
	if err := d.loadPages(); err != nil {
		return nil, err
	}
	return d, nil
}

// ReadFrom reads r to the end and parses the result.
func ReadFrom(r io.Reader) (*Document, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("reader: reading input: %w", err)
	}
	return Parse(data)
}

func version(data []byte) string {
	i := bytes.Index(data[:min(len(data), 1024)], []byte("%PDF-"))
	if i < 0 {
		return ""
	}
	p := newParser(data[i+len("%PDF-"):])
	return p.word()
}

// Trailer returns the newest trailer dictionary.
func (d *Document) Trailer() Dict { return d.trailer }

// Bytes returns the raw document bytes.
func (d *Document) Bytes() []byte { return d.data }

// NumPages returns the number of pages.
func (d *Document) NumPages() int { return len(d.pages) }

// Page returns page n, counting from 1.
func (d *Document) Page(n int) (*Page, error) {
	if n < 1 || n > len(d.pages) {
		return nil, fmt.Errorf("reader: page %d out of range [1, %d]", n, len(d.pages))
	}
	return d.pages[n-1], nil
}

// Pages iterates over the pages with their 1-based numbers.
func (d *Document) Pages() iter.Seq2[int, *Page] {
	return func(yield func(int, *Page) bool) {
		for i, p := range d.pages {
			if !yield(i+1, p) {
				return
			}
		}
	}
}

// Catalog returns the document catalog.
func (d *Document) Catalog() (Dict, error) {
	o, err := d.Resolve(d.trailer["Root"])
	if err != nil {
		return nil, err
	}
	cat, ok := o.(Dict)
	if !ok {
		return nil, fmt.Errorf("reader: /Root is not a dictionary")
	}
	return cat, nil
}

// Info returns the text entries of the document information dictionary.
func (d *Document) Info() map[string]string {
	out := map[string]string{}
	o, err := d.Resolve(d.trailer["Info"])
	if err != nil {
		return out
	}
	info, _ := o.(Dict)
	for k, v := range info {
		if s, ok := v.(String); ok {
			out[string(k)] = s.Text()
		}
	}
	return out
}

// Resolve follows references until it reaches a direct object. A nil object
// or a reference to a missing object resolves to nil.
func (d *Document) Resolve(o Object) (Object, error) {
	for i := 0; i < 32; i++ {
		ref, ok := o.(Reference)
		if !ok {
			return o, nil
		}
		var err error
		if o, err = d.object(ref.Number); err != nil {
			return nil, err
		}
	}
	return nil, fmt.Errorf("reader: reference chain too long")
}

// dict resolves o and returns it as a dictionary, or nil.
func (d *Document) dict(o Object) Dict {
	r, err := d.Resolve(o)
	if err != nil {
		return nil
	}
	switch v := r.(type) {
	case Dict:
		return v
	case Stream:
		return v.Dict
	}
	return nil
}

func (d *Document) array(o Object) Array {
	r, err := d.Resolve(o)
	if err != nil {
		return nil
	}
	a, _ := r.(Array)
	return a
}

func (d *Document) object(num int) (Object, error) {
	if o, ok := d.cache[num]; ok {
		return o, nil
	}
	e, ok := d.xref[num]
	if !ok || e.kind == entryFree {
		return nil, nil
	}
	if d.loading[num] {
		return nil, fmt.Errorf("reader: object %d refers to itself", num)
	}
	d.loading[num] = true
	defer delete(d.loading, num)

	var (
		o   Object
		err error
	)
	switch e.kind {
	case entryOffset:
		if e.offset < 0 || e.offset >= len(d.data) {
			return nil, fmt.Errorf("reader: object %d offset %d out of range", num, e.offset)
		}
		var got int
		got, o, err = newParser(d.data[e.offset:]).indirect(d.streamLength)
		if err == nil && got != num {
			err = fmt.Errorf("reader: offset %d holds object %d, want %d", e.offset, got, num)
		}
	case entryCompressed:
		o, err = d.compressed(e.stream, num)
	}
	if err != nil {
		return nil, err
	}
	d.cache[num] = o
	return o, nil
}

func (d *Document) streamLength(o Object) int {
	r, err := d.Resolve(o)
	if err != nil {
		return -1
	}
	n, ok := Number(r)
	if !ok {
		return -1
	}
	return int(n)
}

// compressed returns object num stored in object stream stm.
func (d *Document) compressed(stm, num int) (Object, error) {
	objs, ok := d.objStms[stm]
	if !ok {
		o, err := d.object(stm)
		if err != nil {
			return nil, err
		}
		s, ok := o.(Stream)
		if !ok {
			return nil, fmt.Errorf("reader: object stream %d is not a stream", stm)
		}
		data, err := d.Decode(s)
		if err != nil {
			return nil, fmt.Errorf("reader: object stream %d: %w", stm, err)
		}
		n, _ := s.Dict.Int("N")
		first, _ := s.Dict.Int("First")
		if first < 0 || first > len(data) {
			return nil, fmt.Errorf("reader: object stream %d: bad /First", stm)
		}
		objs = map[int]Object{}
		hp := newParser(data[:first])
		for i := 0; i < n; i++ {
			on, err1 := strconv.Atoi(hp.word())
			off, err2 := strconv.Atoi(hp.word())
			if err1 != nil || err2 != nil || first+off > len(data) {
				return nil, fmt.Errorf("reader: object stream %d: bad header", stm)
			}
			v, err := newParser(data[first+off:]).object()
			if err != nil {
				return nil, fmt.Errorf("reader: object stream %d: object %d: %w", stm, on, err)
			}
			objs[on] = v
		}
		d.objStms[stm] = objs
	}
	return objs[num], nil
}
