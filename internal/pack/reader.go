package pack

import (
	"bytes"
	"compress/zlib"
	"crypto/sha1"
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"gitwire.dev/gitwire/internal/objects"
)

// A Resolver looks up delta bases that are not part of the pack itself,
// typically backed by the receiving object store.
type Resolver func(id objects.ObjectID) (objects.Object, bool)

// entry remembers a decoded entry so later deltas can build on it.
type entry struct {
	typ  objects.Type
	body []byte
}

// A Reader decodes objects from a pack stream. After the last object it
// verifies the SHA-1 trailer; callers must not treat the pack as applied
// until Read has returned io.EOF.
type Reader struct {
	r         *digestReader
	remaining int
	resolve   Resolver
	decoded   map[objects.ObjectID]entry
}

// NewReader parses the pack header. resolve may be nil when every delta
// base is expected to appear earlier in the stream.
func NewReader(r io.Reader, resolve Resolver) (*Reader, error) {
	pr := &Reader{
		r:       newDigestReader(r, sha1.New()),
		resolve: resolve,
		decoded: make(map[objects.ObjectID]entry),
	}

	var h header
	if err := binary.Read(pr.r, binary.BigEndian, &h); err != nil {
		return nil, truncated(err)
	}
	if h.Signature != signature {
		return nil, fmt.Errorf("%w: bad signature", ErrPackCorrupt)
	}
	if h.Version != version {
		return nil, fmt.Errorf("%w: unsupported version %d", ErrPackCorrupt, h.Version)
	}
	pr.remaining = int(h.Nobjects)
	return pr, nil
}

// Count returns the number of objects left to read.
func (r *Reader) Count() int {
	return r.remaining
}

// Read returns the next object in the stream. After the final object it
// checks the trailer and returns nil, io.EOF on success and
// nil, ErrPackCorrupt on checksum mismatch.
func (r *Reader) Read() (objects.Object, error) {
	if r.remaining == 0 {
		return nil, r.readTrailer()
	}

	obj, err := r.readEntry()
	if err != nil {
		return nil, err
	}
	r.remaining--
	return obj, nil
}

func (r *Reader) readEntry() (objects.Object, error) {
	typeCode, size, err := readEntryHeader(r.r)
	if err != nil {
		return nil, truncated(err)
	}

	var baseID objects.ObjectID
	isDelta := typeCode == refDeltaCode
	if isDelta {
		if _, err := io.ReadFull(r.r, baseID[:]); err != nil {
			return nil, truncated(err)
		}
	}

	body, err := r.readBody(size)
	if err != nil {
		return nil, err
	}

	var objectType objects.Type
	if isDelta {
		baseType, baseBody, ok := r.lookupBase(baseID)
		if !ok {
			return nil, fmt.Errorf("%w: base %s", ErrDeltaBaseMissing, baseID)
		}
		body, err = Apply(baseBody, body)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrPackCorrupt, err)
		}
		objectType = baseType
	} else {
		var ok bool
		objectType, ok = typeFromCode(typeCode)
		if !ok {
			return nil, fmt.Errorf("%w: unknown entry type code %d", ErrPackCorrupt, typeCode)
		}
	}

	obj, err := objects.ParseContent(objectType, body)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPackCorrupt, err)
	}

	r.decoded[obj.ID()] = entry{typ: objectType, body: body}
	return obj, nil
}

// readBody inflates exactly size bytes of entry body.
func (r *Reader) readBody(size int64) ([]byte, error) {
	z, err := zlib.NewReader(r.r)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPackCorrupt, err)
	}
	defer z.Close()

	body := make([]byte, size)
	if _, err := io.ReadFull(z, body); err != nil {
		return nil, truncated(err)
	}

	// Reading the exact body length leaves the zlib checksum pending;
	// one read past the end makes the decompressor consume it so the
	// stream stays aligned on the next entry header.
	var dummy [4]byte
	if n, _ := z.Read(dummy[:]); n != 0 {
		return nil, fmt.Errorf("%w: entry body longer than its header size", ErrPackCorrupt)
	}
	return body, nil
}

// lookupBase finds a delta base among earlier entries or through the
// external resolver.
func (r *Reader) lookupBase(id objects.ObjectID) (objects.Type, []byte, bool) {
	if e, ok := r.decoded[id]; ok {
		return e.typ, e.body, true
	}
	if r.resolve != nil {
		if obj, ok := r.resolve(id); ok {
			return obj.Type(), obj.Content(), true
		}
	}
	return 0, nil, false
}

// readTrailer compares the accumulated digest with the stored trailer.
func (r *Reader) readTrailer() error {
	sum := r.r.Sum()

	var stored [sha1.Size]byte
	if _, err := io.ReadFull(r.r, stored[:]); err != nil {
		return truncated(err)
	}
	if !bytes.Equal(sum, stored[:]) {
		return fmt.Errorf("%w: trailer checksum mismatch", ErrPackCorrupt)
	}
	return io.EOF
}

// truncated maps end-of-stream faults to ErrPackIncomplete and passes
// other errors through wrapped.
func truncated(err error) error {
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return ErrPackIncomplete
	}
	return fmt.Errorf("pack: read failed: %w", err)
}

// Decode reads every object of a pack stream, returning them only after
// the trailer has verified. resolve supplies externally known delta
// bases.
func Decode(r io.Reader, resolve Resolver) ([]objects.Object, error) {
	pr, err := NewReader(r, resolve)
	if err != nil {
		return nil, err
	}

	var result []objects.Object
	for {
		obj, err := pr.Read()
		if errors.Is(err, io.EOF) {
			return result, nil
		}
		if err != nil {
			return nil, err
		}
		result = append(result, obj)
	}
}
