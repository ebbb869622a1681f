package objects

import (
	"testing"
	"time"

	"gitwire.dev/gitwire/testutils"
)

// mustComputeID computes an object id and fails the test on error.
func mustComputeID(t *testing.T, objectType Type, content []byte) ObjectID {
	t.Helper()

	id, err := ComputeID(objectType, content)
	if err != nil {
		t.Fatalf("Hash computation failed: %v", err)
	}
	return id
}

// randomID generates a random object id for tests that need a target
// without a stored object behind it.
func randomID(t *testing.T) ObjectID {
	t.Helper()

	id, err := ParseID(testutils.RandomHash())
	if err != nil {
		t.Fatalf("Failed to parse random hash: %v", err)
	}
	return id
}

// assertBlobID verifies blob id matches expected value for given content.
func assertBlobID(t *testing.T, blob *Blob, content []byte) {
	t.Helper()

	expectedID := mustComputeID(t, TypeBlob, content)
	if blob.ID() != expectedID {
		t.Fatalf("Expected id [%s], got [%s]", expectedID, blob.ID())
	}
}

// assertBlobContent verifies blob stores exact content and correct size.
func assertBlobContent(t *testing.T, blob *Blob, expectedContent []byte) {
	t.Helper()

	if blob.Size() != len(expectedContent) {
		t.Fatalf("Expected size %d, got %d", len(expectedContent), blob.Size())
	}

	if string(blob.Content()) != string(expectedContent) {
		t.Fatalf("Expected content [%q], got [%q]", expectedContent, blob.Content())
	}
}

// createTreeEntry creates tree entry and fails test on error.
func createTreeEntry(t *testing.T, mode FileMode, name string, id ObjectID) TreeEntry {
	t.Helper()

	entry, err := NewTreeEntry(mode, name, id)
	if err != nil {
		t.Fatalf("Failed to create tree entry: %v", err)
	}

	return *entry
}

// createTree creates tree from entries and fails test on error.
func createTree(t *testing.T, entries []TreeEntry) *Tree {
	t.Helper()

	tree, err := NewTree(entries)
	if err != nil {
		t.Fatalf("Failed to create tree: %v", err)
	}

	return tree
}

// assertTreeEntryEqual verifies two tree entries match.
func assertTreeEntryEqual(t *testing.T, actual, expected TreeEntry) {
	t.Helper()

	if actual.Name() != expected.Name() {
		t.Errorf("Entry name mismatch: expected %s, got %s", expected.Name(), actual.Name())
	}
	if actual.ID() != expected.ID() {
		t.Errorf("Entry id mismatch: expected %s, got %s", expected.ID(), actual.ID())
	}
	if actual.Mode() != expected.Mode() {
		t.Errorf("Entry mode mismatch: expected %s, got %s", expected.Mode(), actual.Mode())
	}
}

// createTestAuthor returns test author with UTC timezone.
func createTestAuthor(name, email string) Author {
	return Author{
		Name:      name,
		Email:     email,
		Timestamp: time.Now().UTC().Truncate(time.Second),
	}
}

// mustPut stores an object and fails the test on error.
func mustPut(t *testing.T, store *Store, obj Object) ObjectID {
	t.Helper()

	id, err := store.Put(obj)
	if err != nil {
		t.Fatalf("Failed to store %s: %v", obj.Type(), err)
	}
	return id
}

// storeBlob creates a blob from content and stores it.
func storeBlob(t *testing.T, store *Store, content string) *Blob {
	t.Helper()

	blob := NewBlob([]byte(content))
	mustPut(t, store, blob)
	return blob
}

// storeTree creates a tree over the given entries and stores it.
func storeTree(t *testing.T, store *Store, entries []TreeEntry) *Tree {
	t.Helper()

	tree := createTree(t, entries)
	mustPut(t, store, tree)
	return tree
}

// storeCommit creates a commit over treeID with the given parents and
// stores it.
func storeCommit(t *testing.T, store *Store, treeID ObjectID, parents ...ObjectID) *Commit {
	t.Helper()

	author := createTestAuthor(testutils.RandomString(10), testutils.RandomString(20))
	commit, err := NewCommit(treeID, parents, testutils.RandomString(50), author)
	if err != nil {
		t.Fatalf("Failed to create commit: %v", err)
	}
	mustPut(t, store, commit)
	return commit
}

// assertCommitEqual verifies two commits match in all fields.
func assertCommitEqual(t *testing.T, actual, expected *Commit) {
	t.Helper()

	if actual.ID() != expected.ID() {
		t.Errorf("ID mismatch: expected [%s], got [%s]", expected.ID(), actual.ID())
	}

	if actual.TreeID() != expected.TreeID() {
		t.Errorf("Tree id mismatch: expected [%s], got [%s]", expected.TreeID(), actual.TreeID())
	}

	if len(actual.Parents()) != len(expected.Parents()) {
		t.Fatalf("Parent count mismatch: expected %d, got %d", len(expected.Parents()), len(actual.Parents()))
	}
	for i, parent := range expected.Parents() {
		if actual.Parents()[i] != parent {
			t.Errorf("Parent %d mismatch: expected [%s], got [%s]", i, parent, actual.Parents()[i])
		}
	}

	if actual.Message() != expected.Message() {
		t.Errorf("Message mismatch: expected [%s], got [%s]", expected.Message(), actual.Message())
	}

	if actual.Author().String() != expected.Author().String() {
		t.Errorf("Author mismatch: expected [%s], got [%s]", expected.Author().String(), actual.Author().String())
	}

	if !actual.Author().Timestamp.Equal(expected.Author().Timestamp) {
		t.Errorf("Author timestamp mismatch: expected [%s], got [%s]",
			expected.Author().Timestamp.Format("2006-01-02 15:04:05 -0700"),
			actual.Author().Timestamp.Format("2006-01-02 15:04:05 -0700"))
	}
}
