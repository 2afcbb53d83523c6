package reader

import (
	"bytes"
	"fmt"
	"regexp"
	"strconv"
)

type entryKind int

const (
	entryFree entryKind = iota
	entryOffset
	entryCompressed
)

// xrefEntry locates one object: at a byte offset, or as the index-th object
// of object stream number stream.
type xrefEntry struct {
	kind   entryKind
	offset int
	stream int
	index  int
}

type xrefTable map[int]xrefEntry

// setIfAbsent records e unless a newer section already described num.
func (t xrefTable) setIfAbsent(num int, e xrefEntry) {
	if _, ok := t[num]; !ok {
		t[num] = e
	}
}

func findStartXRef(data []byte) (int, error) {
	tail := data[max(0, len(data)-2048):]
	i := bytes.LastIndex(tail, []byte("startxref"))
	if i < 0 {
		return 0, fmt.Errorf("reader: startxref not found")
	}
	p := newParser(tail[i+len("startxref"):])
	off, err := strconv.Atoi(p.word())
	if err != nil {
		return 0, fmt.Errorf("reader: invalid startxref offset")
	}
	return off, nil
}

// loadXRef reads the cross-reference chain starting at off, newest section
// first, and returns the newest trailer.
func (d *Document) loadXRef(off int) (Dict, error) {
	var trailer Dict
	seen := map[int]bool{}
	for off >= 0 {
		if seen[off] {
			return nil, fmt.Errorf("reader: cross-reference loop at offset %d", off)
		}
		seen[off] = true
		if off >= len(d.data) {
			return nil, fmt.Errorf("reader: cross-reference offset %d out of range", off)
		}

		var (
			t   Dict
			err error
		)
		p := newParser(d.data[off:])
		if p.word() == "xref" {
			t, err = d.readXRefTable(p)
			// Hybrid files keep compressed objects in a stream section.
			if stm, ok := t.Int("XRefStm"); err == nil && ok {
				if _, err := d.readXRefStream(stm); err != nil {
					return nil, err
				}
			}
		} else {
			t, err = d.readXRefStream(off)
		}
		if err != nil {
			return nil, err
		}
		if trailer == nil {
			trailer = t
		}
		prev, ok := t.Int("Prev")
		if !ok {
			break
		}
		off = prev
	}
	return trailer, nil
}

func (d *Document) readXRefTable(p *parser) (Dict, error) {
	for {
		w := p.word()
		if w == "trailer" {
			break
		}
		first, err := strconv.Atoi(w)
		if err != nil {
			return nil, fmt.Errorf("reader: malformed cross-reference subsection %q", w)
		}
		count, err := strconv.Atoi(p.word())
		if err != nil {
			return nil, fmt.Errorf("reader: malformed cross-reference subsection")
		}
		for i := 0; i < count; i++ {
			off, err1 := strconv.Atoi(p.word())
			_, err2 := strconv.Atoi(p.word())
			typ := p.word()
			if err1 != nil || err2 != nil {
				return nil, fmt.Errorf("reader: malformed cross-reference entry %d", first+i)
			}
			e := xrefEntry{kind: entryFree}
			if typ == "n" {
				e = xrefEntry{kind: entryOffset, offset: off}
			}
			d.xref.setIfAbsent(first+i, e)
		}
	}
	o, err := p.object()
	if err != nil {
		return nil, fmt.Errorf("reader: trailer: %w", err)
	}
	t, ok := o.(Dict)
	if !ok {
		return nil, fmt.Errorf("reader: trailer is not a dictionary")
	}
	return t, nil
}

func (d *Document) readXRefStream(off int) (Dict, error) {
	p := newParser(d.data[off:])
	_, o, err := p.indirect(d.streamLength)
	if err != nil {
		return nil, fmt.Errorf("reader: cross-reference stream: %w", err)
	}
	s, ok := o.(Stream)
	if !ok || s.Dict.Name("Type") != "XRef" {
		return nil, fmt.Errorf("reader: offset %d holds no cross-reference stream", off)
	}
	raw, err := d.Decode(s)
	if err != nil {
		return nil, err
	}

	var w [3]int
	wa, _ := s.Dict["W"].(Array)
	if len(wa) != 3 {
		return nil, fmt.Errorf("reader: cross-reference stream /W must have 3 entries")
	}
	for i := range w {
		v, _ := Number(wa[i])
		w[i] = int(v)
	}
	index := []int{0}
	if size, ok := s.Dict.Int("Size"); ok {
		index = append(index, size)
	}
	if ia, ok := s.Dict["Index"].(Array); ok {
		index = index[:0]
		for _, v := range ia {
			n, _ := Number(v)
			index = append(index, int(n))
		}
	}

	field := func(b []byte) int {
		v := 0
		for _, c := range b {
			v = v<<8 | int(c)
		}
		return v
	}
	width := w[0] + w[1] + w[2]
	pos := 0
	for i := 0; i+1 < len(index); i += 2 {
		for n := index[i]; n < index[i]+index[i+1]; n++ {
			if pos+width > len(raw) {
				return s.Dict, nil
			}
			row := raw[pos : pos+width]
			pos += width
			typ := 1
			if w[0] > 0 {
				typ = field(row[:w[0]])
			}
			f2 := field(row[w[0] : w[0]+w[1]])
			f3 := field(row[w[0]+w[1]:])
			switch typ {
			case 0:
				d.xref.setIfAbsent(n, xrefEntry{kind: entryFree})
			case 1:
				d.xref.setIfAbsent(n, xrefEntry{kind: entryOffset, offset: f2})
			case 2:
				d.xref.setIfAbsent(n, xrefEntry{kind: entryCompressed, stream: f2, index: f3})
			}
		}
	}
	return s.Dict, nil
}

var objHeader = regexp.MustCompile(`(?m)(?:^|[\r\n\s])(\d+)\s+(\d+)\s+obj\b`)

// rebuildXRef scans the whole file for object headers. It is used when the
// cross-reference data is missing or damaged; later definitions win.
func (d *Document) rebuildXRef() (Dict, error) {
	d.xref = xrefTable{}
	for _, m := range objHeader.FindAllSubmatchIndex(d.data, -1) {
		num, err := strconv.Atoi(string(d.data[m[2]:m[3]]))
		if err != nil {
			continue
		}
		d.xref[num] = xrefEntry{kind: entryOffset, offset: m[2]}
	}
	var trailer Dict
	for i := 0; ; {
		j := bytes.Index(d.data[i:], []byte("trailer"))
		if j < 0 {
			break
		}
		i += j + len("trailer")
		if o, err := newParser(d.data[i:]).object(); err == nil {
			if t, ok := o.(Dict); ok {
				trailer = t
			}
		}
	}
	if trailer == nil {
		// Look for a catalog directly.
		for num := range d.xref {
			o, err := d.object(num)
			if dict, ok := o.(Dict); err == nil && ok && dict.Name("Type") == "Catalog" {
				trailer = Dict{"Root": Reference{Number: num}}
				break
			}
		}
	}
	if trailer == nil {
		return nil, fmt.Errorf("reader: no trailer or catalog found")
	}
	return trailer, nil
}
