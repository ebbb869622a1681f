package protocol

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/sirupsen/logrus"

	"gitwire.dev/gitwire/internal/objects"
	"gitwire.dev/gitwire/internal/pack"
	"gitwire.dev/gitwire/internal/pktline"
	"gitwire.dev/gitwire/internal/repository"
)

// Push drives the client side of a receive-pack session over rw,
// moving one ref from the value the server advertised to the local
// value. The advertised value travels as the expected-old of the
// update command, so a ref that moved mid-session is detected on the
// server and rejected rather than overwritten.
func Push(repo *repository.Repository, rw io.ReadWriter, refName string, log *logrus.Entry) (Summary, error) {
	pr := pktline.NewReader(rw)
	pw := pktline.NewWriter(rw)

	advertised, err := readAdvertisement(pr)
	if err != nil {
		return Summary{}, fmt.Errorf("failed to read ref advertisement: %w", err)
	}

	newID, err := repo.Refs.Read(refName)
	if err != nil {
		return Summary{}, fmt.Errorf("cannot push %s: %w", refName, err)
	}
	oldID := advertised[refName]

	if oldID == newID {
		// Nothing to do; tell the server so with an empty command list.
		if err := pw.Flush(); err != nil {
			return Summary{}, fmt.Errorf("failed to finish session: %w", err)
		}
		return Summary{}, nil
	}

	if err := pw.Writef("%s %s %s\x00%s\n", oldID, newID, refName, capabilities); err != nil {
		return Summary{}, fmt.Errorf("failed to send update command: %w", err)
	}
	if err := pw.Flush(); err != nil {
		return Summary{}, fmt.Errorf("failed to send update command: %w", err)
	}

	// Everything the server advertised is history it already has; the
	// pack carries only what lies beyond those tips.
	serverTips := make([]objects.ObjectID, 0, len(advertised))
	for _, id := range advertised {
		serverTips = append(serverTips, id)
	}
	objs, err := repo.Objects.Closure([]objects.ObjectID{newID}, serverTips)
	if err != nil {
		return Summary{}, fmt.Errorf("failed to compute transfer set: %w", err)
	}
	if err := pack.Encode(rw, objs, deltaBaseHints(repo.Objects, serverTips)); err != nil {
		return Summary{}, fmt.Errorf("failed to stream pack: %w", err)
	}

	if err := readStatusReport(pr, refName); err != nil {
		return Summary{Objects: len(objs)}, err
	}

	summary := Summary{Objects: len(objs), RefsUpdated: 1}
	log.WithFields(logrus.Fields{
		"ref":     refName,
		"objects": summary.Objects,
	}).Info("push complete")
	return summary, nil
}

// readStatusReport consumes the server's report-status section and
// translates it into an error when the unpack or the ref update failed.
func readStatusReport(pr *pktline.Reader, refName string) error {
	unpackLine, err := pr.ReadPacketString()
	if err != nil {
		return fmt.Errorf("failed to read unpack status: %w", err)
	}
	status, found := strings.CutPrefix(strings.TrimSuffix(unpackLine, "\n"), "unpack ")
	if !found {
		return fmt.Errorf("%w: expected unpack status, got %q", ErrProtocolViolation, unpackLine)
	}
	if status != "ok" {
		return fmt.Errorf("%w: unpack failed: %s", ErrRemote, status)
	}

	var refErr error
	for {
		line, err := pr.ReadPacketString()
		if errors.Is(err, pktline.ErrFlush) || errors.Is(err, io.EOF) {
			return refErr
		}
		if err != nil {
			return fmt.Errorf("failed to read status report: %w", err)
		}

		line = strings.TrimSuffix(line, "\n")
		if reason, ok := strings.CutPrefix(line, "ng "); ok {
			name, detail, _ := strings.Cut(reason, " ")
			if name == refName && refErr == nil {
				refErr = fmt.Errorf("%w: %s", ErrRefRejected, detail)
			}
			continue
		}
		if !strings.HasPrefix(line, "ok ") {
			return fmt.Errorf("%w: malformed status line %q", ErrProtocolViolation, line)
		}
	}
}
