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

// Negotiator drives the server side of one session. Exactly one
// Negotiator exists per connection; negotiation state is never shared.
// Store access goes through the repository handles, which are safe for
// concurrent sessions.
type Negotiator struct {
	repo  *repository.Repository
	log   *logrus.Entry
	state State
}

func NewNegotiator(repo *repository.Repository, log *logrus.Entry) *Negotiator {
	return &Negotiator{
		repo:  repo,
		log:   log,
		state: StateAdvertising,
	}
}

// State returns the current session state.
func (n *Negotiator) State() State {
	return n.state
}

// abort records the failed transition. Objects already written to the
// store stay (puts are idempotent), but no reference update happens
// past this point.
func (n *Negotiator) abort(err error) error {
	n.state = StateAborted
	n.log.WithError(err).Warn("session aborted")
	return err
}

// UploadPack serves one fetch/clone session: advertise refs, collect
// wants and haves, and stream the pack bridging the two sets.
func (n *Negotiator) UploadPack(rw io.ReadWriter) (Summary, error) {
	pr := pktline.NewReader(rw)
	pw := pktline.NewWriter(rw)

	if _, err := writeAdvertisement(pw, n.repo.Refs); err != nil {
		return Summary{}, n.abort(fmt.Errorf("failed to advertise refs: %w", err))
	}

	n.state = StateNegotiating
	wants, err := n.readWants(pr)
	if err != nil {
		return Summary{}, n.abort(err)
	}
	if len(wants) == 0 {
		// Nothing wanted; the client is already up to date.
		n.state = StateComplete
		return Summary{}, nil
	}

	common, err := n.readHaves(pr)
	if err != nil {
		return Summary{}, n.abort(err)
	}

	if len(common) > 0 {
		err = pw.Writef("ACK %s\n", common[len(common)-1])
	} else {
		err = pw.WriteString("NAK\n")
	}
	if err != nil {
		return Summary{}, n.abort(fmt.Errorf("failed to send negotiation result: %w", err))
	}

	n.state = StateTransferring
	// The core negotiation step: everything reachable from the wants
	// minus everything reachable from the union of the common haves.
	objs, err := n.repo.Objects.Closure(wants, common)
	if err != nil {
		return Summary{}, n.abort(fmt.Errorf("failed to compute transfer set: %w", err))
	}
	if err := pack.Encode(rw, objs, deltaBaseHints(n.repo.Objects, common)); err != nil {
		return Summary{}, n.abort(fmt.Errorf("failed to stream pack: %w", err))
	}

	n.state = StateComplete
	summary := Summary{Objects: len(objs)}
	n.log.WithFields(logrus.Fields{
		"objects": summary.Objects,
	}).Info("upload-pack complete")
	return summary, nil
}

// readWants collects want lines up to the flush-pkt. Every wanted id
// must exist locally.
func (n *Negotiator) readWants(pr *pktline.Reader) ([]objects.ObjectID, error) {
	var wants []objects.ObjectID
	seen := make(map[objects.ObjectID]bool)

	for {
		line, err := pr.ReadPacketString()
		if errors.Is(err, pktline.ErrFlush) {
			return wants, nil
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read want list: %w", err)
		}

		id, err := parseIDLine(line, "want")
		if err != nil {
			return nil, err
		}
		if !n.repo.Objects.Contains(id) {
			return nil, fmt.Errorf("%w: want of unknown object %s", ErrProtocolViolation, id)
		}
		if !seen[id] {
			seen[id] = true
			wants = append(wants, id)
		}
	}
}

// readHaves collects have lines until the done line, keeping those the
// local store actually contains. Flush-pkts separate batches and are
// skipped.
func (n *Negotiator) readHaves(pr *pktline.Reader) ([]objects.ObjectID, error) {
	var common []objects.ObjectID

	for {
		line, err := pr.ReadPacketString()
		if errors.Is(err, pktline.ErrFlush) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read have list: %w", err)
		}
		if line == "done\n" {
			return common, nil
		}

		id, err := parseIDLine(line, "have")
		if err != nil {
			return nil, err
		}
		if n.repo.Objects.Contains(id) {
			common = append(common, id)
		}
	}
}

// deltaBaseHints loads the given tips, their root trees and those
// trees' blobs as delta bases. The tips are objects the receiver is
// known to store, so deltas against them resolve on the far side
// without shipping the base bytes.
func deltaBaseHints(store *objects.Store, tips []objects.ObjectID) []objects.Object {
	var hints []objects.Object
	for _, id := range tips {
		obj, err := store.Get(id)
		if err != nil {
			continue
		}
		hints = append(hints, obj)

		commit, ok := obj.(*objects.Commit)
		if !ok {
			continue
		}
		treeObj, err := store.Get(commit.TreeID())
		if err != nil {
			continue
		}
		hints = append(hints, treeObj)

		tree, ok := treeObj.(*objects.Tree)
		if !ok {
			continue
		}
		for _, entry := range tree.Entries() {
			if entry.IsDirectory() {
				continue
			}
			if blob, err := store.Get(entry.ID()); err == nil {
				hints = append(hints, blob)
			}
		}
	}
	return hints
}

// ReceivePack serves one push session: advertise refs, read the ref
// update commands and the pack, then apply each update with
// compare-and-swap against the old value the client presented.
func (n *Negotiator) ReceivePack(rw io.ReadWriter) (Summary, error) {
	pr := pktline.NewReader(rw)
	pw := pktline.NewWriter(rw)

	if _, err := writeAdvertisement(pw, n.repo.Refs); err != nil {
		return Summary{}, n.abort(fmt.Errorf("failed to advertise refs: %w", err))
	}

	n.state = StateNegotiating
	commands, err := readUpdateCommands(pr)
	if err != nil {
		return Summary{}, n.abort(err)
	}
	if len(commands) == 0 {
		n.state = StateComplete
		return Summary{}, nil
	}

	n.state = StateTransferring
	unpacked, unpackErr := n.unpack(rw, commands)

	if unpackErr == nil {
		err = pw.WriteString("unpack ok\n")
	} else {
		err = pw.Writef("unpack %s\n", unpackErr)
	}
	if err != nil {
		return Summary{}, n.abort(fmt.Errorf("failed to report unpack status: %w", err))
	}

	if unpackErr != nil {
		// Reference updates never apply after a failed transfer.
		pw.Flush()
		return Summary{}, n.abort(fmt.Errorf("failed to unpack: %w", unpackErr))
	}

	summary := Summary{Objects: unpacked}
	for _, cmd := range commands {
		if err := n.repo.Refs.CompareAndSwap(cmd.name, cmd.oldID, cmd.newID); err != nil {
			n.log.WithField("ref", cmd.name).WithError(err).Warn("ref update rejected")
			if err := pw.Writef("ng %s %s\n", cmd.name, err); err != nil {
				return summary, n.abort(fmt.Errorf("failed to report ref status: %w", err))
			}
			continue
		}
		summary.RefsUpdated++
		if err := pw.Writef("ok %s\n", cmd.name); err != nil {
			return summary, n.abort(fmt.Errorf("failed to report ref status: %w", err))
		}
	}
	if err := pw.Flush(); err != nil {
		return summary, n.abort(fmt.Errorf("failed to finish status report: %w", err))
	}

	n.state = StateComplete
	n.log.WithFields(logrus.Fields{
		"objects": summary.Objects,
		"refs":    summary.RefsUpdated,
	}).Info("receive-pack complete")
	return summary, nil
}

// unpack decodes the incoming pack, committing each object as it
// arrives. Puts are idempotent, so objects landed before a late failure
// are harmless. The pack trailer must verify before the caller applies
// any reference update. A push carrying only deletions has no pack.
func (n *Negotiator) unpack(r io.Reader, commands []updateCommand) (int, error) {
	deletionsOnly := true
	for _, cmd := range commands {
		if !cmd.newID.IsZero() {
			deletionsOnly = false
			break
		}
	}
	if deletionsOnly {
		return 0, nil
	}

	resolve := func(id objects.ObjectID) (objects.Object, bool) {
		obj, err := n.repo.Objects.Get(id)
		return obj, err == nil
	}

	reader, err := pack.NewReader(r, resolve)
	if err != nil {
		return 0, err
	}

	unpacked := 0
	for {
		obj, err := reader.Read()
		if errors.Is(err, io.EOF) {
			return unpacked, nil
		}
		if err != nil {
			return unpacked, err
		}
		if _, err := n.repo.Objects.Put(obj); err != nil {
			return unpacked, err
		}
		unpacked++
	}
}

// updateCommand is one requested reference change: move name from
// oldID to newID, where the zero id encodes creation and deletion.
type updateCommand struct {
	oldID objects.ObjectID
	newID objects.ObjectID
	name  string
}

// readUpdateCommands collects "<old> <new> <name>" lines up to the
// flush-pkt. The first line may carry a capability list after a NUL.
func readUpdateCommands(pr *pktline.Reader) ([]updateCommand, error) {
	var commands []updateCommand

	for {
		line, err := pr.ReadPacketString()
		if errors.Is(err, pktline.ErrFlush) {
			return commands, nil
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read update commands: %w", err)
		}

		if nul := strings.IndexByte(line, '\x00'); nul != -1 {
			line = line[:nul]
		}
		line = strings.TrimSuffix(line, "\n")

		fields := strings.Fields(line)
		if len(fields) != 3 {
			return nil, fmt.Errorf("%w: malformed update command %q", ErrProtocolViolation, line)
		}

		var cmd updateCommand
		if cmd.oldID, err = objects.ParseID(fields[0]); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrProtocolViolation, err)
		}
		if cmd.newID, err = objects.ParseID(fields[1]); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrProtocolViolation, err)
		}
		cmd.name = fields[2]
		commands = append(commands, cmd)
	}
}

// parseIDLine decodes a "<verb> <40-hex>" negotiation line.
func parseIDLine(line, verb string) (objects.ObjectID, error) {
	value, found := strings.CutPrefix(strings.TrimSuffix(line, "\n"), verb+" ")
	if !found {
		return objects.ZeroID, fmt.Errorf("%w: expected %s line, got %q", ErrProtocolViolation, verb, line)
	}
	// Capability lists may trail the id on the first line.
	if space := strings.IndexByte(value, ' '); space != -1 {
		value = value[:space]
	}
	if nul := strings.IndexByte(value, '\x00'); nul != -1 {
		value = value[:nul]
	}

	id, err := objects.ParseID(value)
	if err != nil {
		return objects.ZeroID, fmt.Errorf("%w: %v", ErrProtocolViolation, err)
	}
	return id, nil
}
