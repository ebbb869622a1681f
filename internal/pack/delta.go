package pack

import (
	"bytes"
	"encoding/binary"
	"errors"
	"io"
)

// ErrDeltaCorrupt is returned by Apply if pre- or post-apply sanity
// checks fail.
var ErrDeltaCorrupt = errors.New("pack: delta does not apply cleanly")

// Delta encoding parameters. A delta body is two varints (base size,
// result size) followed by instructions: an insert op (opcode 1-127 =
// literal byte count) or a copy op (high bit set; low seven bits flag
// which offset and length bytes follow, little-endian).
const (
	// deltaBlockSize is the granularity of the base index used when
	// generating deltas. Matches below this length are not worth a
	// copy op.
	deltaBlockSize = 16

	// maxInsertLen is the largest literal run one insert op can carry.
	maxInsertLen = 127

	// maxCopyLen is the largest span one copy op is allowed to carry;
	// longer matches are split. An encoded length of zero means 65536,
	// which Apply accepts but Diff never emits.
	maxCopyLen = 0xFFFF
)

// Diff computes a delta that transforms base into target. The result is
// only useful for transfer when it is shorter than target; callers
// decide whether to keep it.
func Diff(base, target []byte) []byte {
	var buf bytes.Buffer
	writeVarint(&buf, uint64(len(base)))
	writeVarint(&buf, uint64(len(target)))

	// Index the base by fixed-size blocks, keeping the first
	// occurrence of each block.
	index := make(map[string]int)
	for i := 0; i+deltaBlockSize <= len(base); i += deltaBlockSize {
		key := string(base[i : i+deltaBlockSize])
		if _, ok := index[key]; !ok {
			index[key] = i
		}
	}

	var insert []byte
	flushInsert := func() {
		for len(insert) > 0 {
			n := min(len(insert), maxInsertLen)
			buf.WriteByte(byte(n))
			buf.Write(insert[:n])
			insert = insert[n:]
		}
	}

	pos := 0
	for pos < len(target) {
		matchOffset, matchLen := 0, 0
		if pos+deltaBlockSize <= len(target) {
			if offset, ok := index[string(target[pos:pos+deltaBlockSize])]; ok {
				length := deltaBlockSize
				for pos+length < len(target) && offset+length < len(base) &&
					target[pos+length] == base[offset+length] {
					length++
				}
				matchOffset, matchLen = offset, length
			}
		}

		if matchLen >= deltaBlockSize {
			flushInsert()
			writeCopyOps(&buf, matchOffset, matchLen)
			pos += matchLen
		} else {
			insert = append(insert, target[pos])
			pos++
		}
	}
	flushInsert()

	return buf.Bytes()
}

// writeCopyOps emits one or more copy ops covering length bytes of the
// base starting at offset.
func writeCopyOps(buf *bytes.Buffer, offset, length int) {
	for length > 0 {
		chunk := min(length, maxCopyLen)

		opcode := byte(0x80)
		var operands []byte
		value := offset
		for i := 0; i < 4; i++ {
			if b := byte(value); b != 0 {
				opcode |= 1 << i
				operands = append(operands, b)
			}
			value >>= 8
		}
		value = chunk
		for i := 0; i < 3; i++ {
			if b := byte(value); b != 0 {
				opcode |= 1 << (4 + i)
				operands = append(operands, b)
			}
			value >>= 8
		}

		buf.WriteByte(opcode)
		buf.Write(operands)

		offset += chunk
		length -= chunk
	}
}

// Apply plays a delta atop its base and returns the reconstructed
// content. It fails with ErrDeltaCorrupt if the recorded base or result
// lengths do not match, if an op reads outside the base, or if the
// instruction stream is truncated.
func Apply(base, delta []byte) ([]byte, error) {
	r := bytes.NewReader(delta)

	baseLen, err := binary.ReadUvarint(r)
	if err != nil {
		return nil, ErrDeltaCorrupt
	}
	resultLen, err := binary.ReadUvarint(r)
	if err != nil {
		return nil, ErrDeltaCorrupt
	}
	if baseLen != uint64(len(base)) {
		return nil, ErrDeltaCorrupt
	}

	result := make([]byte, 0, resultLen)
	for r.Len() > 0 {
		opcode, _ := r.ReadByte()

		if opcode&0x80 == 0 {
			// Insert op: opcode is the literal length, zero is reserved.
			if opcode == 0 {
				return nil, ErrDeltaCorrupt
			}
			literal := make([]byte, opcode)
			if _, err := io.ReadFull(r, literal); err != nil {
				return nil, ErrDeltaCorrupt
			}
			result = append(result, literal...)
			continue
		}

		// Copy op: flagged offset and length bytes follow.
		var offset, length int64
		for i := 0; i < 4; i++ {
			if opcode>>i&1 == 1 {
				b, err := r.ReadByte()
				if err != nil {
					return nil, ErrDeltaCorrupt
				}
				offset |= int64(b) << (8 * i)
			}
		}
		for i := 0; i < 3; i++ {
			if opcode>>(4+i)&1 == 1 {
				b, err := r.ReadByte()
				if err != nil {
					return nil, ErrDeltaCorrupt
				}
				length |= int64(b) << (8 * i)
			}
		}
		if length == 0 {
			length = 1 << 16
		}
		if offset < 0 || offset+length > int64(len(base)) {
			return nil, ErrDeltaCorrupt
		}
		result = append(result, base[offset:offset+length]...)
	}

	if uint64(len(result)) != resultLen {
		return nil, ErrDeltaCorrupt
	}
	return result, nil
}
