package protocol

import (
	"fmt"
	"strings"

	"gitwire.dev/gitwire/internal/constants"
)

// Request is the first packet of every connection: the service the
// client asks for, the repository path on the server, and the host the
// client believes it is talking to.
type Request struct {
	Service string
	Path    string
	Host    string
}

// Encode renders the request line payload:
// "<service> <path>\0host=<host>\0".
func (r Request) Encode() []byte {
	return fmt.Appendf(nil, "%s %s\x00host=%s\x00", r.Service, r.Path, r.Host)
}

// ParseRequest decodes a request line payload.
func ParseRequest(payload []byte) (Request, error) {
	line := string(payload)

	head, rest, found := strings.Cut(line, "\x00")
	if !found {
		return Request{}, fmt.Errorf("%w: request line missing terminator", ErrProtocolViolation)
	}

	service, path, found := strings.Cut(head, " ")
	if !found || path == "" {
		return Request{}, fmt.Errorf("%w: malformed request line %q", ErrProtocolViolation, head)
	}
	if service != constants.UploadPackService && service != constants.ReceivePackService {
		return Request{}, fmt.Errorf("%w: unknown service %q", ErrProtocolViolation, service)
	}

	req := Request{Service: service, Path: path}
	for _, param := range strings.Split(rest, "\x00") {
		if host, ok := strings.CutPrefix(param, "host="); ok {
			req.Host = host
		}
	}
	return req, nil
}
