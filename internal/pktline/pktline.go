// Package pktline implements the length-prefixed packet framing used on
// the wire: each packet is a 4-digit lowercase hex length (including the
// four length bytes themselves) followed by the payload. The special
// packet "0000" (flush-pkt) carries no payload and delimits sections of
// a conversation.
package pktline

import (
	"errors"
	"fmt"
	"io"
	"strconv"
)

// MaxPayloadLen is the maximum length of a packet payload.
const MaxPayloadLen = 65516

// lenDigits is the size of the hex length prefix.
const lenDigits = 4

var (
	// ErrTooLong is returned by Writer.WritePacket if the payload
	// length exceeds MaxPayloadLen.
	ErrTooLong = errors.New("pktline: packet too long")

	// ErrFlush is returned by Reader.ReadPacket at a flush-pkt.
	ErrFlush = errors.New("pktline: flush packet")

	// ErrMalformed is returned for an unparseable length prefix.
	ErrMalformed = errors.New("pktline: malformed length prefix")
)

// A Writer frames payloads as packets on an underlying writer.
type Writer struct {
	w io.Writer
}

func NewWriter(w io.Writer) *Writer {
	return &Writer{w: w}
}

// WritePacket writes p as a single packet.
func (w *Writer) WritePacket(p []byte) error {
	if len(p) > MaxPayloadLen {
		return ErrTooLong
	}
	if _, err := fmt.Fprintf(w.w, "%04x", len(p)+lenDigits); err != nil {
		return err
	}
	_, err := w.w.Write(p)
	return err
}

// WriteString writes s as a single packet.
func (w *Writer) WriteString(s string) error {
	return w.WritePacket([]byte(s))
}

// Writef formats its arguments and writes them as a single packet.
func (w *Writer) Writef(format string, a ...any) error {
	return w.WritePacket(fmt.Appendf(nil, format, a...))
}

// Flush writes a flush-pkt.
func (w *Writer) Flush() error {
	_, err := io.WriteString(w.w, "0000")
	return err
}

// A Reader reads packets from an underlying reader.
type Reader struct {
	r io.Reader
}

func NewReader(r io.Reader) *Reader {
	return &Reader{r: r}
}

// ReadPacket returns the payload of the next packet. At a flush-pkt it
// returns nil, ErrFlush. A stream that ends cleanly between packets
// yields io.EOF; one that ends inside a packet yields
// io.ErrUnexpectedEOF.
func (r *Reader) ReadPacket() ([]byte, error) {
	var prefix [lenDigits]byte
	if _, err := io.ReadFull(r.r, prefix[:]); err != nil {
		return nil, err
	}

	length, err := strconv.ParseUint(string(prefix[:]), 16, 32)
	if err != nil {
		return nil, fmt.Errorf("%w: %q", ErrMalformed, prefix)
	}

	switch {
	case length == 0:
		return nil, ErrFlush
	case length < lenDigits || length > MaxPayloadLen+lenDigits:
		return nil, fmt.Errorf("%w: length %d out of range", ErrMalformed, length)
	}

	payload := make([]byte, length-lenDigits)
	if _, err := io.ReadFull(r.r, payload); err != nil {
		if errors.Is(err, io.EOF) {
			err = io.ErrUnexpectedEOF
		}
		return nil, err
	}
	return payload, nil
}

// ReadPacketString behaves like ReadPacket, returning the payload as a
// string.
func (r *Reader) ReadPacketString() (string, error) {
	p, err := r.ReadPacket()
	return string(p), err
}
