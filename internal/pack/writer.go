// Package pack encodes and decodes collections of objects as a single
// transfer-efficient binary stream: a "PACK" header, a sequence of
// zlib-compressed entries (full objects or deltas against a base named
// by id), and a SHA-1 trailer over the whole stream.
package pack

import (
	"compress/zlib"
	"crypto/sha1"
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"gitwire.dev/gitwire/internal/objects"
)

// Pack stream error conditions.
var (
	// ErrPackCorrupt is returned for a bad signature, version, entry
	// header or trailer checksum.
	ErrPackCorrupt = errors.New("pack: corrupt pack stream")

	// ErrPackIncomplete is returned when the stream ends before the
	// promised entries and trailer have been read.
	ErrPackIncomplete = errors.New("pack: truncated pack stream")

	// ErrDeltaBaseMissing is returned when a delta entry names a base
	// available neither earlier in the pack nor through the resolver.
	ErrDeltaBaseMissing = errors.New("pack: delta base not available")

	// ErrTooManyObjects is returned when writing more objects than the
	// header promised, or closing before all were written.
	ErrTooManyObjects = errors.New("pack: object count does not match header")
)

var signature = [4]byte{'P', 'A', 'C', 'K'}

const version = 2

// deltaWindow bounds how many recent same-type candidates are diffed
// against when encoding. A policy knob, not a correctness requirement.
const deltaWindow = 10

// A delta is kept only when it is smaller than 70% of the full body.
const (
	deltaThresholdNum = 7
	deltaThresholdDen = 10
)

type header struct {
	Signature [4]byte
	Version   uint32
	Nobjects  uint32
}

// candidate is a potential delta base remembered by the writer.
type candidate struct {
	id   objects.ObjectID
	typ  objects.Type
	body []byte
}

// A Writer writes objects to a pack stream, delta-compressing entries
// against recently written objects of the same type and against
// externally supplied bases known to exist on the receiver.
type Writer struct {
	w         *digestWriter
	remaining int
	window    []candidate
}

// NewWriter writes the pack header for n objects and returns a Writer.
func NewWriter(w io.Writer, n int) (*Writer, error) {
	if n < 0 || int64(n) > int64(^uint32(0)) {
		return nil, ErrTooManyObjects
	}
	pw := &Writer{
		w:         newDigestWriter(w, sha1.New()),
		remaining: n,
	}
	h := header{Signature: signature, Version: version, Nobjects: uint32(n)}
	if err := binary.Write(pw.w, binary.BigEndian, h); err != nil {
		return nil, fmt.Errorf("pack: failed to write header: %w", err)
	}
	return pw, nil
}

// AddBase registers an object as a delta base without writing it into
// the pack. The caller asserts the receiver already has the object.
func (w *Writer) AddBase(obj objects.Object) {
	w.remember(candidate{id: obj.ID(), typ: obj.Type(), body: obj.Content()})
}

// WriteObject appends one object to the stream, as a delta entry when a
// beneficial base is found within the window and as a full entry
// otherwise.
func (w *Writer) WriteObject(obj objects.Object) error {
	if w.remaining == 0 {
		return ErrTooManyObjects
	}

	body := obj.Content()
	baseID, delta := w.bestDelta(obj.Type(), body)

	var err error
	if delta != nil {
		err = w.writeEntry(refDeltaCode, &baseID, delta)
	} else {
		err = w.writeEntry(typeCodeOf(obj.Type()), nil, body)
	}
	if err != nil {
		return err
	}

	w.remaining--
	w.remember(candidate{id: obj.ID(), typ: obj.Type(), body: body})
	return nil
}

// bestDelta diffs body against window candidates of the same type and
// returns the smallest delta that beats the size threshold, or nil.
func (w *Writer) bestDelta(typ objects.Type, body []byte) (objects.ObjectID, []byte) {
	var bestID objects.ObjectID
	var best []byte

	limit := len(body) * deltaThresholdNum / deltaThresholdDen
	for i := len(w.window) - 1; i >= 0; i-- {
		c := w.window[i]
		if c.typ != typ {
			continue
		}
		delta := Diff(c.body, body)
		if len(delta) < limit && (best == nil || len(delta) < len(best)) {
			bestID, best = c.id, delta
		}
	}
	return bestID, best
}

func (w *Writer) remember(c candidate) {
	w.window = append(w.window, c)
	if len(w.window) > deltaWindow {
		w.window = w.window[1:]
	}
}

// writeEntry writes one entry: header, optional base id, zlib body.
func (w *Writer) writeEntry(typeCode byte, baseID *objects.ObjectID, body []byte) error {
	if err := writeEntryHeader(w.w, typeCode, int64(len(body))); err != nil {
		return err
	}
	if baseID != nil {
		if _, err := w.w.Write(baseID[:]); err != nil {
			return fmt.Errorf("pack: failed to write delta base id: %w", err)
		}
	}
	z := zlib.NewWriter(w.w)
	if _, err := z.Write(body); err != nil {
		return fmt.Errorf("pack: failed to compress entry: %w", err)
	}
	return z.Close()
}

// Close writes the SHA-1 trailer. It fails if fewer objects were
// written than the header promised, and does not close the underlying
// writer.
func (w *Writer) Close() error {
	if w.remaining != 0 {
		return ErrTooManyObjects
	}
	if _, err := w.w.w.Write(w.w.Sum()); err != nil {
		return fmt.Errorf("pack: failed to write trailer: %w", err)
	}
	return nil
}

// Encode writes all objects as one pack stream. baseHints are objects
// already present on the receiver; they may serve as delta bases but
// are not written into the stream.
func Encode(w io.Writer, objs []objects.Object, baseHints []objects.Object) error {
	pw, err := NewWriter(w, len(objs))
	if err != nil {
		return err
	}
	for _, hint := range baseHints {
		pw.AddBase(hint)
	}
	for _, obj := range objs {
		if err := pw.WriteObject(obj); err != nil {
			return err
		}
	}
	return pw.Close()
}
