package reader

import (
	"bytes"
	"compress/zlib"
	"encoding/ascii85"
	"encoding/hex"
	"fmt"
	"io"
)

// Decode returns the stream data with its filter chain removed. Image
// filters (DCTDecode, JPXDecode, ...) are left in place since the data is
// already in its final encoding.
func (d *Document) Decode(s Stream) ([]byte, error) {
	filters, err := d.Resolve(s.Dict["Filter"])
	if err != nil {
		return nil, err
	}
	parms, err := d.Resolve(s.Dict["DecodeParms"])
	if err != nil {
		return nil, err
	}
	var names []Name
	var params []Dict
	switch f := filters.(type) {
	case Name:
		names = []Name{f}
		p, _ := parms.(Dict)
		params = []Dict{p}
	case Array:
		pa, _ := parms.(Array)
		for i, it := range f {
			n, ok := it.(Name)
			if !ok {
				return nil, fmt.Errorf("reader: filter array holds %T", it)
			}
			names = append(names, n)
			var p Dict
			if i < len(pa) {
				p, _ = pa[i].(Dict)
			}
			params = append(params, p)
		}
	}

	data := s.Data
	for i, name := range names {
		switch name {
		case "FlateDecode", "Fl":
			data, err = inflate(data)
			if err == nil {
				data, err = unpredict(data, params[i])
			}
		case "ASCIIHexDecode", "AHx":
			data, err = unhex(data)
		case "ASCII85Decode", "A85":
			data, err = unascii85(data)
		case "DCTDecode", "JPXDecode", "CCITTFaxDecode", "JBIG2Decode":
			return data, nil
		default:
			return nil, fmt.Errorf("reader: unsupported filter %s", name)
		}
		if err != nil {
			return nil, fmt.Errorf("reader: %s: %w", name, err)
		}
	}
	return data, nil
}

func inflate(data []byte) ([]byte, error) {
	zr, err := zlib.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	defer zr.Close()
	out, err := io.ReadAll(zr)
	if err != nil && len(out) == 0 {
		return nil, err
	}
	// Truncated deflate data is common; keep what was recovered.
	return out, nil
}

func unhex(data []byte) ([]byte, error) {
	if i := bytes.IndexByte(data, '>'); i >= 0 {
		data = data[:i]
	}
	clean := bytes.Map(func(r rune) rune {
		if r < 0x80 && isSpace(byte(r)) {
			return -1
		}
		return r
	}, data)
	if len(clean)%2 == 1 {
		clean = append(clean, '0')
	}
	out := make([]byte, hex.DecodedLen(len(clean)))
	if _, err := hex.Decode(out, clean); err != nil {
		return nil, err
	}
	return out, nil
}

func unascii85(data []byte) ([]byte, error) {
	data = bytes.TrimPrefix(bytes.TrimSpace(data), []byte("<~"))
	if i := bytes.Index(data, []byte("~>")); i >= 0 {
		data = data[:i]
	}
	return io.ReadAll(ascii85.NewDecoder(bytes.NewReader(data)))
}

// unpredict reverses PNG row predictors (Predictor >= 10). TIFF predictor 2
// never appears on the streams this package reads and is rejected.
func unpredict(data []byte, parms Dict) ([]byte, error) {
	if parms == nil {
		return data, nil
	}
	pred, _ := parms.Int("Predictor")
	switch {
	case pred <= 1:
		return data, nil
	case pred < 10:
		return nil, fmt.Errorf("predictor %d not supported", pred)
	}
	colors, ok := parms.Int("Colors")
	if !ok || colors < 1 {
		colors = 1
	}
	bpc, ok := parms.Int("BitsPerComponent")
	if !ok || bpc < 1 {
		bpc = 8
	}
	columns, ok := parms.Int("Columns")
	if !ok || columns < 1 {
		columns = 1
	}
	bpp := (colors*bpc + 7) / 8
	rowLen := (colors*bpc*columns + 7) / 8

	out := make([]byte, 0, len(data))
	prev := make([]byte, rowLen)
	for off := 0; off+1 <= len(data); off += rowLen + 1 {
		end := min(off+1+rowLen, len(data))
		kind := data[off]
		row := make([]byte, rowLen)
		copy(row, data[off+1:end])
		for i := range row {
			var left, upLeft byte
			if i >= bpp {
				left, upLeft = row[i-bpp], prev[i-bpp]
			}
			up := prev[i]
			switch kind {
			case 0:
			case 1:
				row[i] += left
			case 2:
				row[i] += up
			case 3:
				row[i] += byte((int(left) + int(up)) / 2)
			case 4:
				row[i] += paeth(left, up, upLeft)
			default:
				return nil, fmt.Errorf("unknown PNG filter type %d", kind)
			}
		}
		out = append(out, row[:end-off-1]...)
		prev = row
	}
	return out, nil
}

func paeth(a, b, c byte) byte {
	p := int(a) + int(b) - int(c)
	pa, pb, pc := abs(p-int(a)), abs(p-int(b)), abs(p-int(c))
	switch {
	case pa <= pb && pa <= pc:
		return a
	case pb <= pc:
		return b
	}
	return c
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
