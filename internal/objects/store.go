package objects

import (
	"bytes"
	"compress/zlib"
	"crypto/sha1"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/google/renameio"

	"gitwire.dev/gitwire/internal/constants"
)

// Store error conditions. Storage faults (disk, filesystem) are wrapped
// with %w around the underlying os error rather than given a sentinel.
var (
	// ErrNotFound is returned by Get when no object has the given id.
	ErrNotFound = errors.New("objects: object not found")

	// ErrCorrupt is returned by Get when stored bytes do not re-hash
	// to the requested id. Fatal for that object, not for the store.
	ErrCorrupt = errors.New("objects: stored object is corrupt")
)

var objectsRelativeFilePath = filepath.Join(constants.GitWire, constants.Objects)

// Store manages content-addressable storage of objects as zlib-compressed
// loose files under <repo>/.gitwire/objects/<first 2 hex chars>/<rest>.
// The store is the single owner of object bytes; every other component
// holds ObjectIDs and resolves through it. Concurrent readers are safe,
// and concurrent Puts of the same content are safe without locking
// because the result is deterministic and the write is atomic.
type Store struct {
	repoPath string // Path to repository root
}

func NewStore(repoPath string) *Store {
	return &Store{
		repoPath: repoPath,
	}
}

// Put serializes, hashes and writes the object if absent. Re-putting
// identical content is a no-op returning the same id.
func (store *Store) Put(obj Object) (ObjectID, error) {
	id := obj.ID()
	objectFile := store.objectPath(id)

	// Content-addressable: an existing file already holds these bytes.
	_, err := os.Stat(objectFile)
	if err == nil {
		return id, nil
	}
	if !errors.Is(err, fs.ErrNotExist) {
		return ZeroID, fmt.Errorf("failed to check object file: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(objectFile), constants.DirPerms); err != nil {
		return ZeroID, fmt.Errorf("failed to create object directory: %w", err)
	}

	compressedData, err := compressObject(obj)
	if err != nil {
		return ZeroID, fmt.Errorf("failed to compress object: %w", err)
	}

	// Atomic replace keeps racing writers of the same id safe: both
	// write identical bytes and the rename is all-or-nothing.
	if err := renameio.WriteFile(objectFile, compressedData, constants.FilePerms); err != nil {
		return ZeroID, fmt.Errorf("failed to write object file: %w", err)
	}

	return id, nil
}

func compressObject(obj Object) ([]byte, error) {
	data := obj.Data()

	var buffer bytes.Buffer
	writer := zlib.NewWriter(&buffer)

	if _, err := writer.Write(data); err != nil {
		return nil, err
	}

	// Close flushes any buffered data
	if err := writer.Close(); err != nil {
		return nil, err
	}

	return buffer.Bytes(), nil
}

// Get reads an object from storage by id. It returns ErrNotFound if
// absent and ErrCorrupt if the stored bytes do not re-hash to id.
func (store *Store) Get(id ObjectID) (Object, error) {
	objectFile := store.objectPath(id)

	compressedData, err := os.ReadFile(objectFile)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("object %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read object file %s: %w", id, err)
	}

	reader, err := zlib.NewReader(bytes.NewReader(compressedData))
	if err != nil {
		return nil, fmt.Errorf("object %s: failed to decompress: %w", id, ErrCorrupt)
	}
	defer reader.Close()

	var buffer bytes.Buffer
	if _, err := buffer.ReadFrom(reader); err != nil {
		return nil, fmt.Errorf("object %s: failed to read decompressed data: %w", id, ErrCorrupt)
	}

	data := buffer.Bytes()

	// Integrity gate: the raw bytes must re-hash to the requested id
	// before anything is parsed out of them.
	if ObjectID(sha1.Sum(data)) != id {
		return nil, fmt.Errorf("object %s: hash mismatch: %w", id, ErrCorrupt)
	}

	obj, err := ParseObject(data)
	if err != nil {
		return nil, fmt.Errorf("object %s: %v: %w", id, err, ErrCorrupt)
	}

	return obj, nil
}

// Contains checks whether an object exists without deserializing it.
func (s *Store) Contains(id ObjectID) bool {
	_, err := os.Stat(s.objectPath(id))
	return !errors.Is(err, fs.ErrNotExist)
}

func (s *Store) objectPath(id ObjectID) string {
	hash := id.String()
	return filepath.Join(s.repoPath, objectsRelativeFilePath,
		hash[:constants.HashDirPrefixLength], hash[constants.HashDirPrefixLength:])
}
