package reader

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strconv"
)

var errNotObject = errors.New("reader: not an indirect object")

// parser reads PDF objects from a byte slice.
type parser struct {
	buf []byte
	pos int
}

func newParser(b []byte) *parser { return &parser{buf: b} }

func isSpace(c byte) bool {
	switch c {
	case ' ', '\t', '\n', '\r', '\f', 0:
		return true
	}
	return false
}

func isDelim(c byte) bool {
	switch c {
	case '(', ')', '<', '>', '[', ']', '{', '}', '/', '%':
		return true
	}
	return false
}

func (p *parser) eof() bool { return p.pos >= len(p.buf) }

func (p *parser) skip() {
	for !p.eof() {
		c := p.buf[p.pos]
		if c == '%' {
			for !p.eof() && p.buf[p.pos] != '\n' && p.buf[p.pos] != '\r' {
				p.pos++
			}
			continue
		}
		if !isSpace(c) {
			return
		}
		p.pos++
	}
}

// word reads a run of regular characters.
func (p *parser) word() string {
	p.skip()
	start := p.pos
	for !p.eof() && !isSpace(p.buf[p.pos]) && !isDelim(p.buf[p.pos]) {
		p.pos++
	}
	return string(p.buf[start:p.pos])
}

func (p *parser) hasPrefix(s string) bool {
	return bytes.HasPrefix(p.buf[p.pos:], []byte(s))
}

// object parses the next direct object.
func (p *parser) object() (Object, error) {
	p.skip()
	if p.eof() {
		return nil, io.ErrUnexpectedEOF
	}
	switch c := p.buf[p.pos]; {
	case p.hasPrefix("<<"):
		return p.dict()
	case c == '<':
		return p.hexString()
	case c == '(':
		return p.literal()
	case c == '/':
		return p.name(), nil
	case c == '[':
		return p.array()
	case c == '+' || c == '-' || c == '.' || (c >= '0' && c <= '9'):
		return p.number()
	default:
		start := p.pos
		switch w := p.word(); w {
		case "true":
			return Boolean(true), nil
		case "false":
			return Boolean(false), nil
		case "null":
			return Null{}, nil
		case "":
			p.pos++
			return nil, fmt.Errorf("reader: unexpected %q at offset %d", c, start)
		default:
			return nil, fmt.Errorf("reader: unexpected keyword %q at offset %d", w, start)
		}
	}
}

func (p *parser) name() Name {
	p.pos++ // '/'
	var out []byte
	for !p.eof() {
		c := p.buf[p.pos]
		if isSpace(c) || isDelim(c) {
			break
		}
		if c == '#' && p.pos+2 < len(p.buf) {
			if v, err := strconv.ParseUint(string(p.buf[p.pos+1:p.pos+3]), 16, 8); err == nil {
				out = append(out, byte(v))
				p.pos += 3
				continue
			}
		}
		out = append(out, c)
		p.pos++
	}
	return Name(out)
}

// number parses an integer, a real, or an "N G R" reference.
func (p *parser) number() (Object, error) {
	start := p.pos
	w := p.word()
	n, err := strconv.ParseInt(w, 10, 64)
	if err != nil {
		f, ferr := strconv.ParseFloat(w, 64)
		if ferr != nil {
			return nil, fmt.Errorf("reader: invalid number %q at offset %d", w, start)
		}
		return Real(f), nil
	}
	save := p.pos
	if gen, err := strconv.Atoi(p.word()); err == nil && gen >= 0 {
		p.skip()
		if !p.eof() && p.buf[p.pos] == 'R' &&
			(p.pos+1 == len(p.buf) || isSpace(p.buf[p.pos+1]) || isDelim(p.buf[p.pos+1])) {
			p.pos++
			return Reference{Number: int(n), Generation: gen}, nil
		}
	}
	p.pos = save
	return Integer(n), nil
}

var escapes = map[byte]byte{'n': '\n', 'r': '\r', 't': '\t', 'b': '\b', 'f': '\f'}

func (p *parser) literal() (String, error) {
	p.pos++ // '('
	var out []byte
	for depth := 1; ; {
		if p.eof() {
			return nil, fmt.Errorf("reader: unterminated string")
		}
		c := p.buf[p.pos]
		p.pos++
		switch c {
		case '(':
			depth++
		case ')':
			if depth--; depth == 0 {
				return String(out), nil
			}
		case '\\':
			if p.eof() {
				return nil, fmt.Errorf("reader: unterminated string")
			}
			e := p.buf[p.pos]
			p.pos++
			switch {
			case escapes[e] != 0:
				c = escapes[e]
			case e >= '0' && e <= '7':
				v := int(e - '0')
				for i := 0; i < 2 && !p.eof() && p.buf[p.pos] >= '0' && p.buf[p.pos] <= '7'; i++ {
					v = v*8 + int(p.buf[p.pos]-'0')
					p.pos++
				}
				c = byte(v)
			case e == '\r':
				if !p.eof() && p.buf[p.pos] == '\n' {
					p.pos++
				}
				continue
			case e == '\n':
				continue
			default:
				c = e
			}
		}
		out = append(out, c)
	}
}

func (p *parser) hexString() (String, error) {
	p.pos++ // '<'
	end := bytes.IndexByte(p.buf[p.pos:], '>')
	if end < 0 {
		return nil, fmt.Errorf("reader: unterminated hex string")
	}
	digits := make([]byte, 0, end)
	for _, c := range p.buf[p.pos : p.pos+end] {
		if !isSpace(c) {
			digits = append(digits, c)
		}
	}
	p.pos += end + 1
	if len(digits)%2 == 1 {
		digits = append(digits, '0')
	}
	out := make([]byte, len(digits)/2)
	for i := range out {
		v, err := strconv.ParseUint(string(digits[2*i:2*i+2]), 16, 8)
		if err != nil {
			return nil, fmt.Errorf("reader: invalid hex string")
		}
		out[i] = byte(v)
	}
	return String(out), nil
}

func (p *parser) array() (Array, error) {
	p.pos++ // '['
	arr := Array{}
	for {
		p.skip()
		if p.eof() {
			return nil, fmt.Errorf("reader: unterminated array")
		}
		if p.buf[p.pos] == ']' {
			p.pos++
			return arr, nil
		}
		o, err := p.object()
		if err != nil {
			return nil, err
		}
		arr = append(arr, o)
	}
}

func (p *parser) dict() (Dict, error) {
	p.pos += 2 // '<<'
	d := Dict{}
	for {
		p.skip()
		if p.eof() {
			return nil, fmt.Errorf("reader: unterminated dictionary")
		}
		if p.hasPrefix(">>") {
			p.pos += 2
			return d, nil
		}
		if p.buf[p.pos] != '/' {
			return nil, fmt.Errorf("reader: dictionary key at offset %d is not a name", p.pos)
		}
		key := p.name()
		val, err := p.object()
		if err != nil {
			return nil, fmt.Errorf("reader: value of /%s: %w", key, err)
		}
		d[key] = val
	}
}

// indirect parses "N G obj ... endobj" and returns the object number and
// value. Stream lengths given as references are resolved through length.
func (p *parser) indirect(length func(Object) int) (int, Object, error) {
	num, err := strconv.Atoi(p.word())
	if err != nil {
		return 0, nil, errNotObject
	}
	if _, err := strconv.Atoi(p.word()); err != nil {
		return 0, nil, errNotObject
	}
	if p.word() != "obj" {
		return 0, nil, errNotObject
	}
	val, err := p.object()
	if err != nil {
		return 0, nil, fmt.Errorf("reader: object %d: %w", num, err)
	}
	p.skip()
	if !p.hasPrefix("stream") {
		return num, val, nil
	}
	d, ok := val.(Dict)
	if !ok {
		return 0, nil, fmt.Errorf("reader: object %d: stream without dictionary", num)
	}
	p.pos += len("stream")
	if p.hasPrefix("\r\n") {
		p.pos += 2
	} else if p.hasPrefix("\n") || p.hasPrefix("\r") {
		p.pos++
	}
	n := length(d["Length"])
	if n < 0 || p.pos+n > len(p.buf) {
		// Bad /Length: fall back to the endstream marker.
		i := bytes.Index(p.buf[p.pos:], []byte("endstream"))
		if i < 0 {
			return 0, nil, fmt.Errorf("reader: object %d: unterminated stream", num)
		}
		n = i
		for n > 0 && (p.buf[p.pos+n-1] == '\n' || p.buf[p.pos+n-1] == '\r') {
			n--
		}
	}
	data := p.buf[p.pos : p.pos+n]
	p.pos += n
	return num, Stream{Dict: d, Data: data}, nil
}
