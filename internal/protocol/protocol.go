// Package protocol implements the ref-advertisement, negotiation and
// pack-transfer phases of the wire protocol, version 1 of the gitwire
// framing:
//
//	request    "git-upload-pack <path>\0host=<host>\0"   (one packet)
//	advert     "<40-hex> <refname>\0<caps>\n" first line, then
//	           "<40-hex> <refname>\n" per ref, flush-pkt.
//	           An empty repository advertises the zero id with the
//	           name "capabilities^{}".
//	fetch      client: "want <40-hex>\n"*, flush,
//	                   "have <40-hex>\n"*, "done\n"
//	           server: "ACK <40-hex>\n" or "NAK\n", then pack stream
//	push       client: "<old-hex> <new-hex> <refname>\n"* (first line
//	           may carry "\0<caps>"), flush, then pack stream when any
//	           command creates or moves a ref
//	           server: "unpack ok\n" | "unpack <reason>\n", then
//	           "ok <refname>\n" | "ng <refname> <reason>\n"*, flush
//
// Packets are pkt-line framed (see internal/pktline). All ids are hex.
package protocol

import (
	"errors"
	"fmt"
)

// State is the phase of a negotiation session. A session moves forward
// only: Advertising -> Negotiating -> Transferring -> Complete, with
// Aborted reachable from every state.
type State int

const (
	StateAdvertising State = iota
	StateNegotiating
	StateTransferring
	StateComplete
	StateAborted
)

func (s State) String() string {
	switch s {
	case StateAdvertising:
		return "advertising"
	case StateNegotiating:
		return "negotiating"
	case StateTransferring:
		return "transferring"
	case StateComplete:
		return "complete"
	case StateAborted:
		return "aborted"
	default:
		return fmt.Sprintf("unknown(%d)", int(s))
	}
}

// Protocol error conditions.
var (
	// ErrProtocolViolation is returned for a message the current state
	// does not allow.
	ErrProtocolViolation = errors.New("protocol: unexpected message for session state")

	// ErrRefRejected is returned on the client when the server refuses
	// a ref update, most commonly because the ref moved concurrently.
	ErrRefRejected = errors.New("protocol: ref update rejected by server")

	// ErrRemote is returned when the peer reports a failure with an
	// ERR packet.
	ErrRemote = errors.New("protocol: remote error")
)

// capabilities is the capability list advertised on the first ref line.
const capabilities = "report-status"

// Summary reports the outcome of a completed session.
type Summary struct {
	// Objects is the number of objects transferred in the pack.
	Objects int

	// RefsUpdated is the number of references created, moved or
	// deleted as a result of the session.
	RefsUpdated int
}

func (s Summary) String() string {
	return fmt.Sprintf("%d objects, %d refs updated", s.Objects, s.RefsUpdated)
}
