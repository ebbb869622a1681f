// Package server accepts TCP connections and runs one protocol session
// per connection. Sessions are independent: a failed or misbehaving
// connection is logged and closed without affecting the others or the
// process.
package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"path/filepath"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"

	"gitwire.dev/gitwire/internal/config"
	"gitwire.dev/gitwire/internal/constants"
	"gitwire.dev/gitwire/internal/pktline"
	"gitwire.dev/gitwire/internal/protocol"
	"gitwire.dev/gitwire/internal/repository"
	"gitwire.dev/gitwire/internal/transport"
)

// Server hosts repositories under the configured repository root.
type Server struct {
	cfg *config.Config
	log *logrus.Logger
}

func New(cfg *config.Config, log *logrus.Logger) *Server {
	return &Server{cfg: cfg, log: log}
}

// ListenAndServe binds the configured address and serves until the
// context is cancelled. Binding failure is fatal; per-connection
// failures are not.
func (s *Server) ListenAndServe(ctx context.Context) error {
	listener, err := net.Listen("tcp", s.cfg.Addr())
	if err != nil {
		return fmt.Errorf("failed to bind %s: %w", s.cfg.Addr(), err)
	}
	s.log.WithField("addr", s.cfg.Addr()).Info("listening")

	go func() {
		<-ctx.Done()
		listener.Close()
	}()

	var wg sync.WaitGroup
	for {
		conn, err := listener.Accept()
		if err != nil {
			if ctx.Err() != nil {
				break
			}
			s.log.WithError(err).Warn("accept failed")
			continue
		}

		wg.Add(1)
		go func() {
			defer wg.Done()
			s.handleConn(conn)
		}()
	}

	wg.Wait()
	s.log.Info("shut down")
	return nil
}

// handleConn runs exactly one session: read the request line, open the
// repository, hand the connection to a fresh negotiator.
func (s *Server) handleConn(netConn net.Conn) {
	conn := transport.WithTimeout(netConn, s.cfg.Timeout())
	defer conn.Close()

	log := s.log.WithField("remote", conn.RemoteAddr().String())

	req, err := readRequest(conn)
	if err != nil {
		log.WithError(err).Warn("rejected request")
		return
	}
	log = log.WithFields(logrus.Fields{
		"service": req.Service,
		"repo":    req.Path,
	})

	repo, err := s.openRepository(req.Path)
	if err != nil {
		log.WithError(err).Warn("repository unavailable")
		// Best effort: the client may already be gone.
		pktline.NewWriter(conn).Writef("ERR %s\n", err)
		return
	}

	negotiator := protocol.NewNegotiator(repo, log)

	var summary protocol.Summary
	switch req.Service {
	case constants.UploadPackService:
		summary, err = negotiator.UploadPack(conn)
	case constants.ReceivePackService:
		summary, err = negotiator.ReceivePack(conn)
	}
	if err != nil {
		log.WithError(err).WithField("state", negotiator.State().String()).
			Warn("session failed")
		return
	}
	log.WithField("summary", summary.String()).Info("session served")
}

// readRequest reads and parses the request packet.
func readRequest(conn *transport.Conn) (protocol.Request, error) {
	payload, err := pktline.NewReader(conn).ReadPacket()
	if err != nil {
		return protocol.Request{}, fmt.Errorf("failed to read request line: %w", err)
	}
	return protocol.ParseRequest(payload)
}

// openRepository resolves a requested path against the repository root,
// refusing anything that would escape it.
func (s *Server) openRepository(requested string) (*repository.Repository, error) {
	cleaned := filepath.Clean("/" + strings.TrimPrefix(requested, "/"))
	if cleaned == "/" {
		return nil, errors.New("empty repository path")
	}

	path := filepath.Join(s.cfg.RepositoryRoot, filepath.FromSlash(cleaned))
	return repository.Open(path)
}
