package pageops

import "io"

// Rotate writes a copy of the document in data with the selected pages
// (1-based, all when empty) turned clockwise by degrees, a multiple of 90.
// Rotation already set on a source page is kept and added to.
func Rotate(w io.Writer, data []byte, degrees int, pages ...int) error {
	const op = "pageops.Rotate"
	deg, err := normalizeRotation(op, degrees)
	if err != nil {
		return err
	}
	src, err := open(op, data)
	if err != nil {
		return err
	}
	turn, err := pageSet(op, len(src.pages), pages)
	if err != nil {
		return err
	}

	b := newBuilder(op)
	for i, p := range src.pages {
		r := p.Rotate
		if turn[i+1] {
			r = (r + deg) % 360
		}
		if err := b.addPage(src, i+1, r, nil, nil); err != nil {
			return err
		}
	}
	return b.writeTo(w)
}
