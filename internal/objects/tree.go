package objects

import (
	"bytes"
	"fmt"
	"slices"
	"strings"
)

type FileMode string

const (
	ModeRegularFile FileMode = "100644" // Regular non-executable file
	ModeExecutable  FileMode = "100755" // Executable file
	ModeSymlink     FileMode = "120000" // Symbolic link
	ModeDirectory   FileMode = "040000" // Directory (tree)
)

func (m FileMode) IsValid() bool {
	switch m {
	case ModeRegularFile, ModeExecutable, ModeSymlink, ModeDirectory:
		return true
	default:
		return false
	}
}

// TreeEntry represents a single entry in a tree object.
// The entry references its child by ObjectID only.
type TreeEntry struct {
	mode FileMode
	name string
	id   ObjectID
}

func NewTreeEntry(mode FileMode, name string, id ObjectID) (*TreeEntry, error) {
	if !mode.IsValid() {
		return nil, fmt.Errorf("invalid file mode: %s", mode)
	}
	if name == "" || strings.ContainsAny(name, "/\x00") {
		return nil, fmt.Errorf("invalid tree entry name: %q", name)
	}
	return &TreeEntry{
		mode: mode,
		name: name,
		id:   id,
	}, nil
}

func (e *TreeEntry) Mode() FileMode {
	return e.mode
}

func (e *TreeEntry) Name() string {
	return e.name
}

func (e *TreeEntry) ID() ObjectID {
	return e.id
}

func (treeEntry *TreeEntry) IsDirectory() bool {
	return treeEntry.mode == ModeDirectory
}

func (treeEntry *TreeEntry) IsExecutable() bool {
	return treeEntry.mode == ModeExecutable
}

// Tree represents a directory snapshot: an ordered list of named entries.
type Tree struct {
	entries []TreeEntry
	id      ObjectID
}

// NewTree creates a tree object from the list of tree entries.
// Entries are sorted into canonical order before hashing, so the same
// entry set yields the same ObjectID regardless of insertion order.
// This invariant is what makes deduplication and pack reuse possible.
func NewTree(treeEntries []TreeEntry) (*Tree, error) {
	entries := make([]TreeEntry, len(treeEntries))
	copy(entries, treeEntries)

	slices.SortStableFunc(entries, compareTreeEntries)
	for i := 1; i < len(entries); i++ {
		if entries[i].name == entries[i-1].name {
			return nil, fmt.Errorf("duplicate tree entry name: %q", entries[i].name)
		}
	}

	treeContent := buildTreeContent(entries)
	id, err := ComputeID(TypeTree, treeContent)
	if err != nil {
		return nil, fmt.Errorf("failed to compute hash for tree: %v", err)
	}

	return &Tree{
		entries: entries,
		id:      id,
	}, nil
}

// compareTreeEntries implements the canonical tree entry sorting rules:
// - Entries are sorted by name
// - Directory names are treated as if they have a trailing "/" for comparison
// - This ensures correct ordering when directories and files have similar names
func compareTreeEntries(a, b TreeEntry) int {
	nameA := getSortableName(a)
	nameB := getSortableName(b)
	return strings.Compare(nameA, nameB)
}

// getSortableName returns the name used for sorting.
// For directories, appends "/" to follow Git's sorting convention.
func getSortableName(entry TreeEntry) string {
	if entry.IsDirectory() {
		return entry.Name() + "/"
	}
	return entry.Name()
}

// buildTreeContent creates the raw tree content:
// <mode> <name>\0<20-byte binary SHA> per entry, e.g.
// 100644 README.md\0[binary id of README blob]
// 040000 src\0[binary id of src/ tree]
func buildTreeContent(entries []TreeEntry) []byte {
	var buf bytes.Buffer

	for _, entry := range entries {
		buf.WriteString(string(entry.Mode()))
		buf.WriteByte(' ')
		buf.WriteString(entry.Name())
		buf.WriteByte(0)
		buf.Write(entry.id[:])
	}

	return buf.Bytes()
}

func (t *Tree) Type() Type {
	return TypeTree
}

// ID returns the SHA-1 id of the tree.
func (t *Tree) ID() ObjectID {
	return t.id
}

// Entries returns all tree entries in canonical order.
func (t *Tree) Entries() []TreeEntry {
	return t.entries
}

// Size returns the size of the tree content.
func (t *Tree) Size() int {
	return len(buildTreeContent(t.entries))
}

// Content returns the raw tree content.
func (t *Tree) Content() []byte {
	return buildTreeContent(t.entries)
}

func (t *Tree) Data() []byte {
	return frame(TypeTree, t.Content())
}

// String returns a human-readable representation.
func (t *Tree) String() string {
	return fmt.Sprintf("Tree{id: %s, entries: %d}", t.id, len(t.entries))
}

// FindEntry finds an entry by name.
func (t *Tree) FindEntry(name string) (*TreeEntry, bool) {
	for _, entry := range t.entries {
		if entry.Name() == name {
			return &entry, true
		}
	}
	return nil, false
}
