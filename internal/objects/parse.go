package objects

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"
	"time"

	"gitwire.dev/gitwire/internal/constants"
)

// ParseObject decodes a serialized object ("<type> <size>\0<content>")
// back into its typed form. The returned object's ID is recomputed from
// the parsed content, so a caller holding the expected id can verify
// integrity by comparing against it.
func ParseObject(data []byte) (Object, error) {
	objectType, content, err := splitHeader(data)
	if err != nil {
		return nil, err
	}
	return ParseContent(objectType, content)
}

// ParseContent decodes headerless object content of a known type.
// The pack codec stores bodies without headers, so it enters here.
func ParseContent(objectType Type, content []byte) (Object, error) {
	switch objectType {
	case TypeBlob:
		return NewBlob(content), nil
	case TypeTree:
		return parseTree(content)
	case TypeCommit:
		return parseCommit(content)
	case TypeTag:
		return parseTag(content)
	default:
		return nil, fmt.Errorf("invalid object type: %s", objectType)
	}
}

// splitHeader separates the "<type> <size>\0" header from the content
// and validates both fields.
func splitHeader(data []byte) (Type, []byte, error) {
	nullByteIndex := bytes.IndexByte(data, constants.NullByte)
	if nullByteIndex == -1 {
		return 0, nil, fmt.Errorf("invalid object format: no null byte found")
	}

	header := string(data[:nullByteIndex])
	content := data[nullByteIndex+1:]

	typeName, sizeField, found := strings.Cut(header, " ")
	if !found {
		return 0, nil, fmt.Errorf("invalid object header: %q", header)
	}

	objectType, err := TypeFromString(typeName)
	if err != nil {
		return 0, nil, err
	}

	size, err := strconv.Atoi(sizeField)
	if err != nil {
		return 0, nil, fmt.Errorf("invalid object size %q: %w", sizeField, err)
	}
	if size != len(content) {
		return 0, nil, fmt.Errorf("object size mismatch: header says %d, content is %d bytes", size, len(content))
	}

	return objectType, content, nil
}

// parseTree decodes "<mode> <name>\0<20-byte id>" entries. Stored trees
// are always in canonical order, so the entry order is preserved as-is.
func parseTree(content []byte) (*Tree, error) {
	var entries []TreeEntry

	rest := content
	for len(rest) > 0 {
		spaceIndex := bytes.IndexByte(rest, ' ')
		if spaceIndex == -1 {
			return nil, fmt.Errorf("malformed tree entry: missing mode separator")
		}
		mode := FileMode(rest[:spaceIndex])
		if !mode.IsValid() {
			return nil, fmt.Errorf("invalid file mode: %s", mode)
		}
		rest = rest[spaceIndex+1:]

		nullIndex := bytes.IndexByte(rest, constants.NullByte)
		if nullIndex == -1 {
			return nil, fmt.Errorf("malformed tree entry: missing name terminator")
		}
		name := string(rest[:nullIndex])
		rest = rest[nullIndex+1:]

		if len(rest) < constants.HashByteLength {
			return nil, fmt.Errorf("malformed tree entry %q: truncated object id", name)
		}
		var id ObjectID
		copy(id[:], rest[:constants.HashByteLength])
		rest = rest[constants.HashByteLength:]

		entries = append(entries, TreeEntry{mode: mode, name: name, id: id})
	}

	id, err := ComputeID(TypeTree, content)
	if err != nil {
		return nil, err
	}
	return &Tree{entries: entries, id: id}, nil
}

func parseCommit(content []byte) (*Commit, error) {
	headers, message, err := splitMessage(content)
	if err != nil {
		return nil, fmt.Errorf("malformed commit: %w", err)
	}

	commit := &Commit{message: message}
	sawTree := false
	for _, line := range headers {
		field, value, found := strings.Cut(line, " ")
		if !found {
			return nil, fmt.Errorf("malformed commit header line: %q", line)
		}
		switch field {
		case "tree":
			commit.treeID, err = ParseID(value)
			sawTree = true
		case "parent":
			var parent ObjectID
			parent, err = ParseID(value)
			commit.parents = append(commit.parents, parent)
		case "author":
			commit.author, err = parseIdent(value)
		case "committer":
			commit.committer, err = parseIdent(value)
		default:
			return nil, fmt.Errorf("unknown commit header field: %q", field)
		}
		if err != nil {
			return nil, fmt.Errorf("malformed commit %s line: %w", field, err)
		}
	}
	if !sawTree {
		return nil, fmt.Errorf("malformed commit: missing tree header")
	}

	// The original bytes are the ones the id is computed over; Content
	// must keep returning them even when the body is not in the form
	// buildCommitContent produces.
	commit.content = append([]byte(nil), content...)
	commit.id, err = ComputeID(TypeCommit, content)
	if err != nil {
		return nil, err
	}
	return commit, nil
}

func parseTag(content []byte) (*Tag, error) {
	headers, message, err := splitMessage(content)
	if err != nil {
		return nil, fmt.Errorf("malformed tag: %w", err)
	}

	tag := &Tag{message: message}
	for _, line := range headers {
		field, value, found := strings.Cut(line, " ")
		if !found {
			return nil, fmt.Errorf("malformed tag header line: %q", line)
		}
		switch field {
		case "object":
			tag.targetID, err = ParseID(value)
		case "type":
			tag.targetType, err = TypeFromString(value)
		case "tag":
			tag.name = value
		case "tagger":
			tag.tagger, err = parseIdent(value)
		default:
			return nil, fmt.Errorf("unknown tag header field: %q", field)
		}
		if err != nil {
			return nil, fmt.Errorf("malformed tag %s line: %w", field, err)
		}
	}
	if tag.name == "" || !tag.targetType.IsValid() {
		return nil, fmt.Errorf("malformed tag: missing tag or type header")
	}

	tag.content = append([]byte(nil), content...)
	tag.id, err = ComputeID(TypeTag, content)
	if err != nil {
		return nil, err
	}
	return tag, nil
}

// splitMessage separates header lines from the message body at the
// first blank line.
func splitMessage(content []byte) (headers []string, message string, err error) {
	head, body, found := bytes.Cut(content, []byte("\n\n"))
	if !found {
		return nil, "", fmt.Errorf("missing blank line before message")
	}
	return strings.Split(string(head), "\n"), string(body), nil
}

// parseIdent decodes "Name <email> <unix-seconds> <±HHMM>".
func parseIdent(value string) (Author, error) {
	emailStart := strings.Index(value, " <")
	emailEnd := strings.Index(value, "> ")
	if emailStart == -1 || emailEnd == -1 || emailEnd < emailStart {
		return Author{}, fmt.Errorf("malformed identity: %q", value)
	}

	name := value[:emailStart]
	email := value[emailStart+2 : emailEnd]

	fields := strings.Fields(value[emailEnd+2:])
	if len(fields) != 2 {
		return Author{}, fmt.Errorf("malformed identity timestamp: %q", value)
	}

	seconds, err := strconv.ParseInt(fields[0], 10, 64)
	if err != nil {
		return Author{}, fmt.Errorf("malformed identity timestamp: %w", err)
	}

	offset, err := parseTimezone(fields[1])
	if err != nil {
		return Author{}, err
	}

	return Author{
		Name:      name,
		Email:     email,
		Timestamp: time.Unix(seconds, 0).In(time.FixedZone("", offset)),
	}, nil
}

// parseTimezone decodes "±HHMM" into an offset in seconds.
func parseTimezone(tz string) (int, error) {
	if len(tz) != 5 || (tz[0] != '+' && tz[0] != '-') {
		return 0, fmt.Errorf("malformed timezone: %q", tz)
	}
	hours, err := strconv.Atoi(tz[1:3])
	if err != nil {
		return 0, fmt.Errorf("malformed timezone: %q", tz)
	}
	minutes, err := strconv.Atoi(tz[3:5])
	if err != nil {
		return 0, fmt.Errorf("malformed timezone: %q", tz)
	}
	offset := hours*constants.SecondsPerHour + minutes*constants.SecondsPerMinute
	if tz[0] == '-' {
		offset = -offset
	}
	return offset, nil
}
