// Package formpdf writes small fillable PDF templates for tests. The output is
// plain PDF 1.7 with uncompressed content and one widget per field (radio
// groups get one widget per choice), which is enough to exercise template
// parsing, field lookup and flattening without binary fixtures on disk.
package formpdf

import (
	"bytes"
	"fmt"
	"sort"
	"strings"
	"time"
)

// Kind is the type of a template field.
type Kind int

const (
	Text Kind = iota
	Checkbox
	Radio
	Choice
	Signature
)

// Rect is a rectangle in PDF user space: lower-left x/y, upper-right x/y.
type Rect [4]float64

// RadioButton is one widget of a radio group.
type RadioButton struct {
	OnState string
	Page    int
	Rect    Rect
}

// SignatureValue describes the signature dictionary of a Signature field.
type SignatureValue struct {
	Reason   string
	Location string
	Time     time.Time
	// Sign, when set, receives the bytes covered by the byte range and returns
	// the raw signature stored in /Contents.
	Sign func(covered []byte) []byte
	// Partial appends an unsigned trailer after the signed revision so the
	// byte range no longer spans the whole file.
	Partial bool
}

// Field is one template field.
type Field struct {
	Name      string
	Kind      Kind
	Page      int // 1-based; 0 means page 1
	Rect      Rect
	Value     string
	Multiline bool
	FontSize  float64 // size in the default appearance, 0 for auto
	ReadOnly  bool
	OnState   string   // checkbox on appearance name, "Yes" when empty
	Options   []string // Choice
	Buttons   []RadioButton
	Sig       *SignatureValue
}

// Template describes a document to write.
type Template struct {
	Pages         int     // at least 1
	Width, Height float64 // page size, A4 when zero
	Rotate        int     // /Rotate applied to every page
	Fields        []Field
	// ObjectStreams packs dictionaries into an object stream indexed by a
	// cross-reference stream.
	ObjectStreams bool
}

const sigContentsSize = 256

// Build writes t and returns the PDF bytes.
func Build(t Template) []byte {
	b := &builder{t: t, objs: map[int]*object{}}
	if b.t.Pages < 1 {
		b.t.Pages = 1
	}
	if b.t.Width == 0 || b.t.Height == 0 {
		b.t.Width, b.t.Height = 595.28, 841.89
	}
	b.layout()
	return b.write()
}

type object struct {
	dict   string
	stream []byte
}

type builder struct {
	t      Template
	objs   map[int]*object
	next   int
	annots map[int][]int // page -> widget object numbers
}

func (b *builder) alloc() int {
	b.next++
	return b.next
}

const (
	catalogObj  = 1
	pagesObj    = 2
	acroFormObj = 3
	fontObj     = 4
	zapfObj     = 5
	firstPage   = 6
)

func pageObj(p int) int    { return firstPage + 2*(p-1) }
func contentObj(p int) int { return firstPage + 2*(p-1) + 1 }

func (b *builder) pageRef(p int) string {
	if p < 1 {
		p = 1
	}
	return fmt.Sprintf("%d 0 R", pageObj(p))
}

func (b *builder) layout() {
	b.next = firstPage + 2*b.t.Pages - 1
	b.annots = map[int][]int{}

	var fieldRefs []string
	sigFlags := false
	for _, f := range b.t.Fields {
		num := b.alloc()
		fieldRefs = append(fieldRefs, fmt.Sprintf("%d 0 R", num))
		page := f.Page
		if page < 1 {
			page = 1
		}
		var sb strings.Builder
		fmt.Fprintf(&sb, "/T %s", literal(f.Name))
		flags := 0
		if f.ReadOnly {
			flags |= 1
		}
		widget := func(rect Rect, p int) string {
			return fmt.Sprintf("/Type /Annot /Subtype /Widget /F 4 /Rect %s /P %s", rectString(rect), b.pageRef(p))
		}
		switch f.Kind {
		case Text:
			if f.Multiline {
				flags |= 1 << 12
			}
			fmt.Fprintf(&sb, " /FT /Tx %s /DA (/Helv %s Tf 0 g)", widget(f.Rect, page), num2s(f.FontSize))
			if f.Value != "" {
				fmt.Fprintf(&sb, " /V %s", literal(f.Value))
			}
			b.annots[page] = append(b.annots[page], num)
		case Choice:
			flags |= 1 << 17
			fmt.Fprintf(&sb, " /FT /Ch %s /DA (/Helv %s Tf 0 g) /Opt [", widget(f.Rect, page), num2s(f.FontSize))
			for _, o := range f.Options {
				sb.WriteString(literal(o))
			}
			sb.WriteString("]")
			if f.Value != "" {
				fmt.Fprintf(&sb, " /V %s", literal(f.Value))
			}
			b.annots[page] = append(b.annots[page], num)
		case Checkbox:
			on := f.OnState
			if on == "" {
				on = "Yes"
			}
			state := "Off"
			if f.Value != "" && f.Value != "Off" {
				state = on
			}
			fmt.Fprintf(&sb, " /FT /Btn %s /V /%s /AS /%s /AP %s", widget(f.Rect, page), state, state, b.appearances(f.Rect, on))
			b.annots[page] = append(b.annots[page], num)
		case Radio:
			flags |= 1<<15 | 1<<14
			var kids []string
			for _, btn := range f.Buttons {
				kid := b.alloc()
				kids = append(kids, fmt.Sprintf("%d 0 R", kid))
				p := btn.Page
				if p < 1 {
					p = page
				}
				as := "Off"
				if f.Value == btn.OnState {
					as = btn.OnState
				}
				b.objs[kid] = &object{dict: fmt.Sprintf("<< %s /Parent %d 0 R /AS /%s /AP %s >>",
					widget(btn.Rect, p), num, as, b.appearances(btn.Rect, btn.OnState))}
				b.annots[p] = append(b.annots[p], kid)
			}
			v := "Off"
			if f.Value != "" {
				v = f.Value
			}
			fmt.Fprintf(&sb, " /FT /Btn /V /%s /Kids [%s]", v, strings.Join(kids, " "))
		case Signature:
			sigFlags = true
			fmt.Fprintf(&sb, " /FT /Sig %s", widget(f.Rect, page))
			if f.Sig != nil {
				v := b.alloc()
				b.objs[v] = &object{dict: sigDict(f.Sig)}
				fmt.Fprintf(&sb, " /V %d 0 R", v)
			}
			b.annots[page] = append(b.annots[page], num)
		}
		if flags != 0 {
			fmt.Fprintf(&sb, " /Ff %d", flags)
		}
		b.objs[num] = &object{dict: "<< " + sb.String() + " >>"}
	}

	b.objs[catalogObj] = &object{dict: fmt.Sprintf("<< /Type /Catalog /Pages %d 0 R /AcroForm %d 0 R >>", pagesObj, acroFormObj)}
	var kids []string
	for p := 1; p <= b.t.Pages; p++ {
		kids = append(kids, fmt.Sprintf("%d 0 R", pageObj(p)))
	}
	b.objs[pagesObj] = &object{dict: fmt.Sprintf("<< /Type /Pages /Kids [%s] /Count %d >>", strings.Join(kids, " "), b.t.Pages)}
	acro := fmt.Sprintf("<< /Fields [%s] /DA (/Helv 0 Tf 0 g) /DR << /Font << /Helv %d 0 R /ZaDb %d 0 R >> >>",
		strings.Join(fieldRefs, " "), fontObj, zapfObj)
	if sigFlags {
		acro += " /SigFlags 3"
	}
	b.objs[acroFormObj] = &object{dict: acro + " >>"}
	b.objs[fontObj] = &object{dict: "<< /Type /Font /Subtype /Type1 /BaseFont /Helvetica /Encoding /WinAnsiEncoding >>"}
	b.objs[zapfObj] = &object{dict: "<< /Type /Font /Subtype /Type1 /BaseFont /ZapfDingbats >>"}

	for p := 1; p <= b.t.Pages; p++ {
		var sb strings.Builder
		fmt.Fprintf(&sb, "<< /Type /Page /Parent %d 0 R /MediaBox [0 0 %s %s] /Contents %d 0 R /Resources << /Font << /F1 %d 0 R >> >>",
			pagesObj, num2s(b.t.Width), num2s(b.t.Height), contentObj(p), fontObj)
		if b.t.Rotate != 0 {
			fmt.Fprintf(&sb, " /Rotate %d", b.t.Rotate)
		}
		if refs := b.annots[p]; len(refs) > 0 {
			sb.WriteString(" /Annots [")
			for i, r := range refs {
				if i > 0 {
					sb.WriteByte(' ')
				}
				fmt.Fprintf(&sb, "%d 0 R", r)
			}
			sb.WriteString("]")
		}
		sb.WriteString(" >>")
		b.objs[pageObj(p)] = &object{dict: sb.String()}
		content := fmt.Sprintf("BT /F1 12 Tf 72 %s Td (Template page %d) Tj ET\n", num2s(b.t.Height-72), p)
		b.objs[contentObj(p)] = &object{dict: "<<>>", stream: []byte(content)}
	}
}

// appearances returns a normal appearance dictionary with on and Off states.
func (b *builder) appearances(r Rect, on string) string {
	w, h := r[2]-r[0], r[3]-r[1]
	mk := func(content string) int {
		n := b.alloc()
		b.objs[n] = &object{
			dict:   fmt.Sprintf("<< /Type /XObject /Subtype /Form /BBox [0 0 %s %s] /Resources << /Font << /ZaDb %d 0 R >> >> >>", num2s(w), num2s(h), zapfObj),
			stream: []byte(content),
		}
		return n
	}
	onObj := mk(fmt.Sprintf("q BT 0 g /ZaDb %s Tf 1 1 Td (4) Tj ET Q\n", num2s(h*0.8)))
	offObj := mk("")
	return fmt.Sprintf("<< /N << /%s %d 0 R /Off %d 0 R >> >>", on, onObj, offObj)
}

const byteRangePlaceholder = "/ByteRange [0 0000000000 0000000000 0000000000]"

func sigDict(s *SignatureValue) string {
	var sb strings.Builder
	sb.WriteString("<< /Type /Sig /Filter /Adobe.PPKLite /SubFilter /adbe.pkcs7.detached ")
	sb.WriteString(byteRangePlaceholder)
	sb.WriteString(" /Contents <")
	sb.WriteString(strings.Repeat("0", 2*sigContentsSize))
	sb.WriteString(">")
	if s.Reason != "" {
		fmt.Fprintf(&sb, " /Reason %s", literal(s.Reason))
	}
	if s.Location != "" {
		fmt.Fprintf(&sb, " /Location %s", literal(s.Location))
	}
	if !s.Time.IsZero() {
		fmt.Fprintf(&sb, " /M %s", literal(pdfDate(s.Time)))
	}
	sb.WriteString(" >>")
	return sb.String()
}

func pdfDate(t time.Time) string {
	_, off := t.Zone()
	sign := '+'
	if off < 0 {
		sign = '-'
		off = -off
	}
	return fmt.Sprintf("D:%s%c%02d'%02d'", t.Format("20060102150405"), sign, off/3600, off%3600/60)
}

func (b *builder) write() []byte {
	var buf bytes.Buffer
	buf.WriteString("%PDF-1.7\n%\xe2\xe3\xcf\xd3\n")

	nums := make([]int, 0, len(b.objs))
	for n := range b.objs {
		nums = append(nums, n)
	}
	sort.Ints(nums)

	if b.t.ObjectStreams {
		b.writeCompressed(&buf, nums)
	} else {
		b.writeClassic(&buf, nums)
	}

	out := buf.Bytes()
	for _, f := range b.t.Fields {
		if f.Kind == Signature && f.Sig != nil {
			out = signRevision(out, f.Sig)
		}
	}
	return out
}

func writeObject(buf *bytes.Buffer, num int, o *object) {
	fmt.Fprintf(buf, "%d 0 obj\n", num)
	if o.stream == nil {
		buf.WriteString(o.dict)
	} else {
		d := strings.TrimSuffix(o.dict, ">>")
		fmt.Fprintf(buf, "%s /Length %d >>\nstream\n", d, len(o.stream))
		buf.Write(o.stream)
		buf.WriteString("\nendstream")
	}
	buf.WriteString("\nendobj\n")
}

func (b *builder) writeClassic(buf *bytes.Buffer, nums []int) {
	size := nums[len(nums)-1] + 1
	offsets := make([]int, size)
	for _, n := range nums {
		offsets[n] = buf.Len()
		writeObject(buf, n, b.objs[n])
	}
	xref := buf.Len()
	fmt.Fprintf(buf, "xref\n0 %d\n0000000000 65535 f \n", size)
	for n := 1; n < size; n++ {
		if _, ok := b.objs[n]; ok {
			fmt.Fprintf(buf, "%010d 00000 n \n", offsets[n])
		} else {
			buf.WriteString("0000000000 65535 f \n")
		}
	}
	fmt.Fprintf(buf, "trailer\n<< /Size %d /Root %d 0 R >>\nstartxref\n%d\n%%%%EOF\n", size, catalogObj, xref)
}

// writeCompressed stores every non-stream object in one object stream and
// indexes the file with a cross-reference stream.
func (b *builder) writeCompressed(buf *bytes.Buffer, nums []int) {
	objStm := nums[len(nums)-1] + 1
	xrefObj := objStm + 1
	size := xrefObj + 1

	type slot struct{ typ, f2, f3 int }
	entries := make([]slot, size)

	var header, body bytes.Buffer
	idx := 0
	for _, n := range nums {
		o := b.objs[n]
		if o.stream != nil {
			continue
		}
		fmt.Fprintf(&header, "%d %d ", n, body.Len())
		body.WriteString(o.dict)
		body.WriteByte('\n')
		entries[n] = slot{2, objStm, idx}
		idx++
	}
	for _, n := range nums {
		if o := b.objs[n]; o.stream != nil {
			entries[n] = slot{1, buf.Len(), 0}
			writeObject(buf, n, o)
		}
	}
	stm := append(header.Bytes(), body.Bytes()...)
	entries[objStm] = slot{1, buf.Len(), 0}
	writeObject(buf, objStm, &object{
		dict:   fmt.Sprintf("<< /Type /ObjStm /N %d /First %d >>", idx, header.Len()),
		stream: stm,
	})

	entries[xrefObj] = slot{1, buf.Len(), 0}
	var table bytes.Buffer
	for n, e := range entries {
		if n == 0 {
			table.Write([]byte{0, 0, 0, 0, 0, 0xff, 0xff})
			continue
		}
		table.WriteByte(byte(e.typ))
		table.Write([]byte{byte(e.f2 >> 24), byte(e.f2 >> 16), byte(e.f2 >> 8), byte(e.f2)})
		table.Write([]byte{byte(e.f3 >> 8), byte(e.f3)})
	}
	xref := entries[xrefObj].f2
	writeObject(buf, xrefObj, &object{
		dict:   fmt.Sprintf("<< /Type /XRef /Size %d /W [1 4 2] /Root %d 0 R >>", size, catalogObj),
		stream: table.Bytes(),
	})
	fmt.Fprintf(buf, "startxref\n%d\n%%%%EOF\n", xref)
}

// signRevision fills the byte range and contents placeholders of the first
// unsigned signature dictionary in out.
func signRevision(out []byte, s *SignatureValue) []byte {
	br := bytes.Index(out, []byte(byteRangePlaceholder))
	if br < 0 {
		return out
	}
	start := bytes.Index(out[br:], []byte("/Contents <"))
	if start < 0 {
		return out
	}
	start += br + len("/Contents ")
	end := start + 2*sigContentsSize + 2

	ranges := fmt.Sprintf("/ByteRange [0 %010d %010d %010d]", start, end, len(out)-end)
	copy(out[br:], ranges)

	if s.Sign != nil {
		covered := append(append([]byte{}, out[:start]...), out[end:]...)
		sig := s.Sign(covered)
		if len(sig) > sigContentsSize {
			sig = sig[:sigContentsSize]
		}
		copy(out[start+1:], fmt.Sprintf("%x", sig))
	}
	if s.Partial {
		out = append(out, "% unsigned revision\n"...)
	}
	return out
}

func rectString(r Rect) string {
	return fmt.Sprintf("[%s %s %s %s]", num2s(r[0]), num2s(r[1]), num2s(r[2]), num2s(r[3]))
}

func num2s(v float64) string {
	s := fmt.Sprintf("%.2f", v)
	s = strings.TrimRight(strings.TrimRight(s, "0"), ".")
	if s == "" || s == "-" {
		return "0"
	}
	return s
}

func literal(s string) string {
	r := strings.NewReplacer(`\`, `\\`, "(", `\(`, ")", `\)`)
	return "(" + r.Replace(s) + ")"
}
