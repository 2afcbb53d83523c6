// Package sign inspects the digital signatures of a template.
//
// Flattening rewrites the whole document, so an exported file never carries
// the template's signatures. Inspect reports what a template is signed with
// so callers can warn before the signatures are lost.
package sign

import (
	"crypto"
	"crypto/ecdsa"
	"crypto/rsa"
	"encoding/asn1"
	"fmt"
	"strings"
	"time"

	"github.com/lvillar/pdfexport/pdferr"
	"github.com/lvillar/pdfexport/reader"
)

// Signature describes one signed signature field.
type Signature struct {
	Field     string
	Reason    string
	Location  string
	SignedAt  time.Time
	ByteRange [4]int

	// CoversWholeDocument is false when content was appended after the
	// signed revision.
	CoversWholeDocument bool

	Digest   []byte // SHA-256 of the signed byte ranges
	Contents []byte // raw /Contents, zero padding included

	// Valid and Errors are set by Verify.
	Valid  bool
	Errors []error
}

// Inspect returns the signatures of the PDF document in data, in field
// order. Unsigned signature fields are not reported.
func Inspect(data []byte) ([]Signature, error) {
	const op = "sign.Inspect"
	doc, err := reader.Parse(data)
	if err != nil {
		return nil, pdferr.New(pdferr.IO, op, err)
	}
	fields, err := doc.Fields()
	if err != nil {
		return nil, pdferr.New(pdferr.IO, op, err)
	}

	var out []Signature
	for _, f := range fields {
		if f.Type != "Sig" || f.Signature == nil {
			continue
		}
		v := f.Signature
		sig := Signature{
			Field:    f.Name,
			Reason:   v.Text("Reason"),
			Location: v.Text("Location"),
			SignedAt: parseDate(v.Text("M")),
		}
		if c, ok := v["Contents"].(reader.String); ok {
			sig.Contents = []byte(c)
		}
		br, err := byteRange(v["ByteRange"])
		if err != nil {
			sig.Errors = append(sig.Errors, err)
			out = append(out, sig)
			continue
		}
		sig.ByteRange = br
		sig.CoversWholeDocument = br[0] == 0 && br[0]+br[1] <= br[2] && br[2]+br[3] == len(data)
		if sig.Digest, err = computeByteRangeDigest(data, br); err != nil {
			sig.Errors = append(sig.Errors, fmt.Errorf("computing digest: %w", err))
		}
		out = append(out, sig)
	}
	return out, nil
}

// Verify inspects data and checks every signature against pub. Signatures
// are expected to be raw ECDSA (ASN.1) or RSA PKCS #1 v1.5 signatures of
// the SHA-256 digest.
func Verify(data []byte, pub crypto.PublicKey) ([]Signature, error) {
	sigs, err := Inspect(data)
	if err != nil {
		return nil, err
	}
	for i := range sigs {
		s := &sigs[i]
		if s.Digest == nil {
			if len(s.Errors) == 0 {
				s.Errors = append(s.Errors, fmt.Errorf("invalid byte range"))
			}
			continue
		}
		s.Valid = verifyRawSignature(pub, s.Digest, s.Contents)
		if !s.Valid {
			s.Errors = append(s.Errors, fmt.Errorf("signature verification failed"))
		}
	}
	return sigs, nil
}

func byteRange(o reader.Object) ([4]int, error) {
	var br [4]int
	arr, ok := o.(reader.Array)
	if !ok || len(arr) != 4 {
		return br, fmt.Errorf("malformed /ByteRange")
	}
	for i, v := range arr {
		n, ok := reader.Number(v)
		if !ok {
			return br, fmt.Errorf("malformed /ByteRange")
		}
		br[i] = int(n)
	}
	if br[1] == 0 || br[3] == 0 {
		return br, fmt.Errorf("invalid byte range")
	}
	return br, nil
}

// computeByteRangeDigest computes the SHA-256 digest over the specified byte ranges.
func computeByteRangeDigest(data []byte, br [4]int) ([]byte, error) {
	if br[0] < 0 || br[1] < 0 || br[2] < 0 || br[3] < 0 {
		return nil, fmt.Errorf("negative byte range value")
	}
	if br[0]+br[1] > len(data) || br[2]+br[3] > len(data) {
		return nil, fmt.Errorf("byte range exceeds data length")
	}

	h := crypto.SHA256.New()
	h.Write(data[br[0] : br[0]+br[1]])
	h.Write(data[br[2] : br[2]+br[3]])
	return h.Sum(nil), nil
}

// verifyRawSignature verifies a zero padded signature against a digest.
func verifyRawSignature(pub crypto.PublicKey, digest, contents []byte) bool {
	switch key := pub.(type) {
	case *ecdsa.PublicKey:
		var der asn1.RawValue
		rest, err := asn1.Unmarshal(contents, &der)
		if err != nil {
			return false
		}
		return ecdsa.VerifyASN1(key, digest, contents[:len(contents)-len(rest)])
	case *rsa.PublicKey:
		if len(contents) < key.Size() {
			return false
		}
		return rsa.VerifyPKCS1v15(key, crypto.SHA256, digest, contents[:key.Size()]) == nil
	default:
		return false
	}
}

// parseDate parses a PDF date string (D:YYYYMMDDHHmmSS+HH'mm').
func parseDate(s string) time.Time {
	s = strings.TrimPrefix(s, "D:")
	if len(s) < 14 {
		return time.Time{}
	}
	layouts := []string{
		"20060102150405-07'00'",
		"20060102150405-07'00",
		"20060102150405Z07'00'",
		"20060102150405Z",
		"20060102150405",
	}
	for _, layout := range layouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
