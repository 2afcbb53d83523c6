package pageops

import (
	"io"

	"github.com/lvillar/pdfexport/pdferr"
)

// Split cuts the document in data into parts consecutive documents of as
// even a length as possible; earlier parts take the extra pages.
func Split(data []byte, parts int) ([][]byte, error) {
	const op = "pageops.Split"
	src, err := open(op, data)
	if err != nil {
		return nil, err
	}
	n := len(src.pages)
	if parts < 1 || parts > n {
		return nil, pdferr.Newf(pdferr.Validation, op, "cannot split %d pages into %d parts", n, parts)
	}

	out := make([][]byte, 0, parts)
	first := 1
	for i := 0; i < parts; i++ {
		size := n / parts
		if i < n%parts {
			size++
		}
		// Every part is a fresh document, so it needs its own source
		// reader and importer.
		part, err := open(op, data)
		if err != nil {
			return nil, err
		}
		b := newBuilder(op)
		for num := first; num < first+size; num++ {
			if err := b.addPage(part, num, part.pages[num-1].Rotate, nil, nil); err != nil {
				return nil, err
			}
		}
		doc, err := b.bytes()
		if err != nil {
			return nil, err
		}
		out = append(out, doc)
		first += size
	}
	return out, nil
}

// ExtractPages writes a document holding the given pages (1-based) of the
// document in data, in the order given.
func ExtractPages(w io.Writer, data []byte, pages ...int) error {
	const op = "pageops.ExtractPages"
	if len(pages) == 0 {
		return pdferr.Newf(pdferr.Validation, op, "no pages specified")
	}
	src, err := open(op, data)
	if err != nil {
		return err
	}
	if _, err := pageSet(op, len(src.pages), pages); err != nil {
		return err
	}

	b := newBuilder(op)
	for _, num := range pages {
		if err := b.addPage(src, num, src.pages[num-1].Rotate, nil, nil); err != nil {
			return err
		}
	}
	return b.writeTo(w)
}
