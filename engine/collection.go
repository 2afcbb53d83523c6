package engine

import (
	"encoding/binary"
	"fmt"
)

// collectionMember extracts font index of a TrueType collection as a
// standalone font file: the member's table directory is rewritten with
// offsets into a copy of its tables.
func collectionMember(data []byte, index int) ([]byte, error) {
	be := binary.BigEndian
	if len(data) < 12 || string(data[:4]) != "ttcf" {
		return nil, fmt.Errorf("not a font collection")
	}
	count := int(be.Uint32(data[8:]))
	if index >= count || 12+4*count > len(data) {
		return nil, fmt.Errorf("collection has %d fonts, no index %d", count, index)
	}
	dir := int(be.Uint32(data[12+4*index:]))
	if dir+12 > len(data) {
		return nil, fmt.Errorf("bad table directory offset")
	}
	numTables := int(be.Uint16(data[dir+4:]))
	header := 12 + 16*numTables
	if dir+header > len(data) {
		return nil, fmt.Errorf("truncated table directory")
	}

	out := make([]byte, header, header+len(data)/max(count, 1))
	copy(out, data[dir:dir+header])
	for i := 0; i < numTables; i++ {
		rec := 12 + 16*i
		off := int(be.Uint32(out[rec+8:]))
		length := int(be.Uint32(out[rec+12:]))
		if off+length > len(data) {
			return nil, fmt.Errorf("table %q out of range", out[rec:rec+4])
		}
		be.PutUint32(out[rec+8:], uint32(len(out)))
		out = append(out, data[off:off+length]...)
		for len(out)%4 != 0 {
			out = append(out, 0)
		}
	}
	return out, nil
}
