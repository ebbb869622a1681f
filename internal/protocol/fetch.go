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
	"gitwire.dev/gitwire/internal/refs"
	"gitwire.dev/gitwire/internal/repository"
)

// Fetch drives the client side of an upload-pack session over rw. The
// request line must already have been sent. Objects are committed to
// the local store as they decode; local refs move only after the pack
// trailer verifies, each with compare-and-swap against the value the
// ref had when the session started.
func Fetch(repo *repository.Repository, rw io.ReadWriter, log *logrus.Entry) (Summary, error) {
	pr := pktline.NewReader(rw)
	pw := pktline.NewWriter(rw)

	advertised, err := readAdvertisement(pr)
	if err != nil {
		return Summary{}, fmt.Errorf("failed to read ref advertisement: %w", err)
	}

	// Snapshot local state before anything moves: these are the
	// expected-old values for the compare-and-swap updates later.
	localTips, localByRef, err := localRefState(repo.Refs, advertised)
	if err != nil {
		return Summary{}, err
	}

	wants := missingWants(repo.Objects, advertised)
	for _, id := range wants {
		if err := pw.Writef("want %s\n", id); err != nil {
			return Summary{}, fmt.Errorf("failed to send wants: %w", err)
		}
	}
	if err := pw.Flush(); err != nil {
		return Summary{}, fmt.Errorf("failed to send wants: %w", err)
	}

	summary := Summary{}
	if len(wants) > 0 {
		for _, id := range localTips {
			if err := pw.Writef("have %s\n", id); err != nil {
				return Summary{}, fmt.Errorf("failed to send haves: %w", err)
			}
		}
		if err := pw.WriteString("done\n"); err != nil {
			return Summary{}, fmt.Errorf("failed to send done: %w", err)
		}

		ack, err := pr.ReadPacketString()
		if err != nil {
			return Summary{}, fmt.Errorf("failed to read negotiation result: %w", err)
		}
		if !strings.HasPrefix(ack, "ACK ") && ack != "NAK\n" {
			return Summary{}, fmt.Errorf("%w: expected ACK or NAK, got %q", ErrProtocolViolation, ack)
		}

		summary.Objects, err = unpackInto(repo.Objects, rw)
		if err != nil {
			return Summary{}, err
		}
	}

	for name, advertisedID := range advertised {
		expectedOld := localByRef[name]
		if expectedOld == advertisedID {
			continue
		}
		if err := repo.Refs.CompareAndSwap(name, expectedOld, advertisedID); err != nil {
			return summary, fmt.Errorf("failed to update ref %s: %w", name, err)
		}
		summary.RefsUpdated++
	}

	log.WithFields(logrus.Fields{
		"objects": summary.Objects,
		"refs":    summary.RefsUpdated,
	}).Info("fetch complete")
	return summary, nil
}

// localRefState reads the current tips of all local refs plus the local
// values of every advertised name.
func localRefState(refStore *refs.Store, advertised map[string]objects.ObjectID) ([]objects.ObjectID, map[string]objects.ObjectID, error) {
	localRefs, err := refStore.List("")
	if err != nil {
		return nil, nil, fmt.Errorf("failed to list local refs: %w", err)
	}

	byRef := make(map[string]objects.ObjectID, len(advertised))
	var tips []objects.ObjectID
	seen := make(map[objects.ObjectID]bool)
	for _, ref := range localRefs {
		byRef[ref.Name] = ref.ID
		if !seen[ref.ID] {
			seen[ref.ID] = true
			tips = append(tips, ref.ID)
		}
	}
	return tips, byRef, nil
}

// missingWants returns the advertised ids absent from the local store,
// deduplicated.
func missingWants(store *objects.Store, advertised map[string]objects.ObjectID) []objects.ObjectID {
	var wants []objects.ObjectID
	seen := make(map[objects.ObjectID]bool)
	for _, id := range advertised {
		if !seen[id] && !store.Contains(id) {
			seen[id] = true
			wants = append(wants, id)
		}
	}
	return wants
}

// unpackInto decodes a pack stream into the store, returning the object
// count once the trailer has verified.
func unpackInto(store *objects.Store, r io.Reader) (int, error) {
	resolve := func(id objects.ObjectID) (objects.Object, bool) {
		obj, err := store.Get(id)
		return obj, err == nil
	}

	reader, err := pack.NewReader(r, resolve)
	if err != nil {
		return 0, fmt.Errorf("failed to read pack: %w", err)
	}

	count := 0
	for {
		obj, err := reader.Read()
		if errors.Is(err, io.EOF) {
			return count, nil
		}
		if err != nil {
			return count, fmt.Errorf("failed to read pack: %w", err)
		}
		if _, err := store.Put(obj); err != nil {
			return count, fmt.Errorf("failed to store object: %w", err)
		}
		count++
	}
}
