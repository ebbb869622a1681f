// Package client dials a gitwire daemon and drives fetch, clone and
// push sessions against a local repository.
package client

import (
	"fmt"
	"net"
	"path"

	"github.com/sirupsen/logrus"

	"gitwire.dev/gitwire/internal/config"
	"gitwire.dev/gitwire/internal/constants"
	"gitwire.dev/gitwire/internal/pktline"
	"gitwire.dev/gitwire/internal/protocol"
	"gitwire.dev/gitwire/internal/repository"
	"gitwire.dev/gitwire/internal/transport"
)

// Client connects to the daemon named in the configuration.
type Client struct {
	cfg *config.Config
	log *logrus.Logger
}

func New(cfg *config.Config, log *logrus.Logger) *Client {
	return &Client{cfg: cfg, log: log}
}

// Clone initializes an empty repository at localPath and fetches
// everything the server has for remoteRepo into it.
func (c *Client) Clone(localPath, remoteRepo string) (protocol.Summary, error) {
	repo, err := repository.Init(localPath)
	if err != nil {
		return protocol.Summary{}, err
	}
	return c.fetchInto(repo, remoteRepo)
}

// Fetch updates an existing repository at localPath from remoteRepo.
func (c *Client) Fetch(localPath, remoteRepo string) (protocol.Summary, error) {
	repo, err := repository.Open(localPath)
	if err != nil {
		return protocol.Summary{}, err
	}
	return c.fetchInto(repo, remoteRepo)
}

// Push uploads the branch from the repository at localPath to
// remoteRepo and compare-and-swaps the remote ref.
func (c *Client) Push(localPath, remoteRepo, branch string) (protocol.Summary, error) {
	repo, err := repository.Open(localPath)
	if err != nil {
		return protocol.Summary{}, err
	}

	conn, err := c.dial(constants.ReceivePackService, remoteRepo)
	if err != nil {
		return protocol.Summary{}, err
	}
	defer conn.Close()

	refName := constants.HeadsRefPrefix + branch
	return protocol.Push(repo, conn, refName, c.sessionLog(constants.ReceivePackService, remoteRepo))
}

func (c *Client) fetchInto(repo *repository.Repository, remoteRepo string) (protocol.Summary, error) {
	conn, err := c.dial(constants.UploadPackService, remoteRepo)
	if err != nil {
		return protocol.Summary{}, err
	}
	defer conn.Close()

	return protocol.Fetch(repo, conn, c.sessionLog(constants.UploadPackService, remoteRepo))
}

// dial opens a connection and sends the request line for service.
func (c *Client) dial(service, remoteRepo string) (*transport.Conn, error) {
	netConn, err := net.DialTimeout("tcp", c.cfg.Addr(), c.cfg.Timeout())
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", c.cfg.Addr(), err)
	}
	conn := transport.WithTimeout(netConn, c.cfg.Timeout())

	req := protocol.Request{
		Service: service,
		Path:    path.Clean("/" + remoteRepo),
		Host:    c.cfg.Addr(),
	}
	if err := pktline.NewWriter(conn).WritePacket(req.Encode()); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to send request line: %w", err)
	}
	return conn, nil
}

func (c *Client) sessionLog(service, remoteRepo string) *logrus.Entry {
	return c.log.WithFields(logrus.Fields{
		"service": service,
		"repo":    remoteRepo,
		"remote":  c.cfg.Addr(),
	})
}
