package objects

import (
	"crypto/sha1"
	"encoding/hex"
	"fmt"

	"gitwire.dev/gitwire/internal/constants"
)

// ObjectID is the SHA-1 digest of an object's serialized form
// ("<type> <size>\0<content>"). It is both the identity and the
// integrity check of the object: equal content always yields an
// equal ObjectID.
type ObjectID [constants.HashByteLength]byte

// ZeroID is the all-zero ObjectID. On the wire it marks ref creation
// and deletion; it never names a stored object.
var ZeroID ObjectID

// String returns the 40-character hex form of the id.
func (id ObjectID) String() string {
	return hex.EncodeToString(id[:])
}

// IsZero reports whether the id is the all-zero id.
func (id ObjectID) IsZero() bool {
	return id == ZeroID
}

// ParseID decodes a 40-character hex string into an ObjectID.
func ParseID(s string) (ObjectID, error) {
	var id ObjectID
	if len(s) != constants.HashStringLength {
		return id, fmt.Errorf("invalid object id %q: want %d hex characters, got %d",
			s, constants.HashStringLength, len(s))
	}
	raw, err := hex.DecodeString(s)
	if err != nil {
		return id, fmt.Errorf("invalid object id %q: %w", s, err)
	}
	copy(id[:], raw)
	return id, nil
}

// Type identifies the kind of a stored object. The numeric values
// double as the packfile header type codes.
type Type int

const (
	TypeCommit Type = 1
	TypeTree   Type = 2
	TypeBlob   Type = 3
	TypeTag    Type = 4
)

func (t Type) IsValid() bool {
	switch t {
	case TypeCommit, TypeTree, TypeBlob, TypeTag:
		return true
	default:
		return false
	}
}

func (t Type) String() string {
	switch t {
	case TypeCommit:
		return "commit"
	case TypeTree:
		return "tree"
	case TypeBlob:
		return "blob"
	case TypeTag:
		return "tag"
	default:
		return fmt.Sprintf("unknown(%d)", int(t))
	}
}

// TypeFromString maps an object header type name to its Type.
func TypeFromString(s string) (Type, error) {
	switch s {
	case "commit":
		return TypeCommit, nil
	case "tree":
		return TypeTree, nil
	case "blob":
		return TypeBlob, nil
	case "tag":
		return TypeTag, nil
	default:
		return 0, fmt.Errorf("invalid object type: %q", s)
	}
}

// Object represents any gitwire object that can be stored.
// The set of implementations is closed: Blob, Tree, Commit and Tag.
// Objects reference each other by ObjectID only, never by pointer,
// so the object graph is a DAG by construction.
type Object interface {
	// Type returns the object kind.
	Type() Type

	// ID returns the SHA-1 id of the object.
	ID() ObjectID

	// Content returns the object payload without the header.
	Content() []byte

	// Data returns the complete object data including header.
	// Format: "<type> <size>\0<content>"
	Data() []byte
}

// ComputeID calculates the SHA-1 id for object content of the given type.
func ComputeID(objectType Type, content []byte) (ObjectID, error) {
	if !objectType.IsValid() {
		return ZeroID, fmt.Errorf("invalid object type: %s - hash not computed", objectType)
	}
	return ObjectID(sha1.Sum(frame(objectType, content))), nil
}

// frame prepends the "<type> <size>\0" header to content.
func frame(objectType Type, content []byte) []byte {
	header := fmt.Sprintf("%s %d\x00", objectType, len(content))
	return append([]byte(header), content...)
}
