package pack

// The pack stream ends with a SHA-1 checksum of everything before it.
// These wrappers accumulate that checksum transparently while reading
// or writing. The reader side also guarantees byte-exact consumption:
// zlib reads ahead unless its source implements io.ByteReader, and an
// overread would throw the entry framing out of sync.

import (
	"bufio"
	"compress/flate"
	"hash"
	"io"
)

type digestReader struct {
	r      flate.Reader
	digest hash.Hash
}

func newDigestReader(r io.Reader, h hash.Hash) *digestReader {
	fr, ok := r.(flate.Reader)
	if !ok {
		fr = bufio.NewReader(r)
	}
	return &digestReader{r: fr, digest: h}
}

func (r *digestReader) Read(p []byte) (int, error) {
	n, err := r.r.Read(p)
	r.digest.Write(p[:n])
	return n, err
}

func (r *digestReader) ReadByte() (byte, error) {
	c, err := r.r.ReadByte()
	if err != nil {
		return 0, err
	}
	r.digest.Write([]byte{c})
	return c, nil
}

func (r *digestReader) Sum() []byte {
	return r.digest.Sum(nil)
}

type digestWriter struct {
	w      io.Writer
	digest hash.Hash
}

func newDigestWriter(w io.Writer, h hash.Hash) *digestWriter {
	return &digestWriter{w: w, digest: h}
}

func (w *digestWriter) Write(p []byte) (int, error) {
	n, err := w.w.Write(p)
	w.digest.Write(p[:n])
	return n, err
}

func (w *digestWriter) Sum() []byte {
	return w.digest.Sum(nil)
}
