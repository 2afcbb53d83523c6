package pageops

import (
	"io"

	"github.com/jung-kurt/gofpdf"
)

// Permission is a set of operations a reader holding only the user
// password may perform.
type Permission byte

const (
	AllowPrint       Permission = gofpdf.CnProtectPrint
	AllowModify      Permission = gofpdf.CnProtectModify
	AllowCopy        Permission = gofpdf.CnProtectCopy
	AllowAnnotations Permission = gofpdf.CnProtectAnnotForms

	AllowAll = AllowPrint | AllowModify | AllowCopy | AllowAnnotations
)

// Protect writes an encrypted copy of the document in data. An empty owner
// password gets a random one.
func Protect(w io.Writer, data []byte, userPassword, ownerPassword string, perms Permission) error {
	const op = "pageops.Protect"
	src, err := open(op, data)
	if err != nil {
		return err
	}
	b := newBuilder(op)
	b.pdf.SetProtection(byte(perms), userPassword, ownerPassword)
	for i, p := range src.pages {
		if err := b.addPage(src, i+1, p.Rotate, nil, nil); err != nil {
			return err
		}
	}
	return b.writeTo(w)
}
