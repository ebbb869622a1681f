package protocol

import (
	"errors"
	"fmt"
	"strings"

	"gitwire.dev/gitwire/internal/objects"
	"gitwire.dev/gitwire/internal/pktline"
	"gitwire.dev/gitwire/internal/refs"
)

// capabilitiesRefName is the placeholder name advertised by a
// repository with no refs, so the capability list still travels.
const capabilitiesRefName = "capabilities^{}"

// writeAdvertisement sends every ref of the store, capabilities on the
// first line, and a closing flush-pkt.
func writeAdvertisement(pw *pktline.Writer, refStore *refs.Store) (map[string]objects.ObjectID, error) {
	refList, err := refStore.List("")
	if err != nil {
		return nil, err
	}

	advertised := make(map[string]objects.ObjectID, len(refList))
	for i, ref := range refList {
		advertised[ref.Name] = ref.ID

		if i == 0 {
			err = pw.Writef("%s %s\x00%s\n", ref.ID, ref.Name, capabilities)
		} else {
			err = pw.Writef("%s %s\n", ref.ID, ref.Name)
		}
		if err != nil {
			return nil, err
		}
	}

	if len(refList) == 0 {
		if err := pw.Writef("%s %s\x00%s\n", objects.ZeroID, capabilitiesRefName, capabilities); err != nil {
			return nil, err
		}
	}

	return advertised, pw.Flush()
}

// readAdvertisement collects the refs a server advertises. An ERR
// packet anywhere in the advertisement surfaces as ErrRemote.
func readAdvertisement(pr *pktline.Reader) (map[string]objects.ObjectID, error) {
	advertised := make(map[string]objects.ObjectID)

	for {
		line, err := pr.ReadPacketString()
		if errors.Is(err, pktline.ErrFlush) {
			return advertised, nil
		}
		if err != nil {
			return nil, err
		}

		if reason, ok := strings.CutPrefix(line, "ERR "); ok {
			return nil, fmt.Errorf("%w: %s", ErrRemote, strings.TrimSpace(reason))
		}

		// Capabilities follow the first NUL; this implementation needs
		// none of them on the client side.
		if nul := strings.IndexByte(line, '\x00'); nul != -1 {
			line = line[:nul]
		}
		line = strings.TrimSuffix(line, "\n")

		idField, name, found := strings.Cut(line, " ")
		if !found {
			return nil, fmt.Errorf("%w: malformed advertisement line %q", ErrProtocolViolation, line)
		}

		id, err := objects.ParseID(idField)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrProtocolViolation, err)
		}

		if name == capabilitiesRefName && id.IsZero() {
			continue
		}
		advertised[name] = id
	}
}
