package pageops

import (
	"fmt"
	"io"

	"github.com/lvillar/pdfexport/pdferr"
)

// Merge combines documents into one, in order: all pages from the first,
// then all from the second, etc. When honourRotation is set, pages with a
// /Rotate entry are laid out as a viewer shows them; otherwise they come
// out unrotated.
func Merge(w io.Writer, honourRotation bool, docs ...[]byte) error {
	const op = "pageops.Merge"
	if len(docs) == 0 {
		return pdferr.Newf(pdferr.Validation, op, "no input documents provided")
	}

	b := newBuilder(op)
	for n, data := range docs {
		src, err := open(op, data)
		if err != nil {
			return pdferr.New(pdferr.KindOf(err), op, fmt.Errorf("document %d: %w", n+1, err))
		}
		for i, p := range src.pages {
			r := 0
			if honourRotation {
				r = p.Rotate
			}
			if err := b.addPage(src, i+1, r, nil, nil); err != nil {
				return err
			}
		}
	}
	return b.writeTo(w)
}
