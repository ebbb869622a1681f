package pack

import (
	"encoding/binary"
	"fmt"
	"io"

	"gitwire.dev/gitwire/internal/objects"
)

// Pack entry type codes. Codes 1-4 are the objects.Type values; a
// ref-delta entry encodes its body as a diff against a base named by a
// 20-byte id that precedes the compressed body.
const refDeltaCode = 7

// maxEntrySize bounds the size field of an entry header: a 64-bit size
// loses three bits to the type code in the first header byte.
const maxEntrySize = 0x1FFFFFFFFFFFFFFF

// readEntryHeader decodes a pack entry header: a little-endian base128
// number whose bits 4-6 hold the type code and the rest the body size.
func readEntryHeader(r io.ByteReader) (typeCode byte, size int64, err error) {
	header, err := binary.ReadUvarint(r)
	if err != nil {
		return 0, 0, err
	}
	typeCode = byte(header >> 4 & 0x7)
	size = int64((header >> 3 &^ 0xF) | (header & 0xF))
	return typeCode, size, nil
}

// writeEntryHeader encodes a pack entry header.
func writeEntryHeader(w io.Writer, typeCode byte, size int64) error {
	if size < 0 || size > maxEntrySize {
		return fmt.Errorf("pack: entry size %d out of range", size)
	}
	header := uint64((size &^ 0xF << 3) | int64(typeCode)<<4 | (size & 0xF))
	var p [binary.MaxVarintLen64]byte
	n := binary.PutUvarint(p[:], header)
	_, err := w.Write(p[:n])
	return err
}

// typeCodeOf maps an object kind to its pack header code.
func typeCodeOf(t objects.Type) byte {
	return byte(t)
}

// typeFromCode maps a pack header code back to an object kind.
func typeFromCode(code byte) (objects.Type, bool) {
	t := objects.Type(code)
	return t, t.IsValid()
}

// writeVarint writes a plain little-endian base128 number, the encoding
// used for the base and result sizes inside a delta body.
func writeVarint(w io.Writer, x uint64) error {
	var p [binary.MaxVarintLen64]byte
	n := binary.PutUvarint(p[:], x)
	_, err := w.Write(p[:n])
	return err
}
