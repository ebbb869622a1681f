package refs

import (
	"errors"
	"sync"
	"testing"

	"gitwire.dev/gitwire/internal/constants"
	"gitwire.dev/gitwire/internal/objects"
	"gitwire.dev/gitwire/testutils"
)

// setupStores creates an initialized repo and returns both stores.
func setupStores(t *testing.T) (*objects.Store, *Store) {
	t.Helper()

	repoPath := testutils.SetupTestRepoWithInit(t)
	objectStore := objects.NewStore(repoPath)
	return objectStore, NewStore(repoPath, objectStore)
}

// storeTestBlob stores a blob with random content and returns its id.
func storeTestBlob(t *testing.T, store *objects.Store) objects.ObjectID {
	t.Helper()

	blob := objects.NewBlob([]byte(testutils.RandomString(16)))
	id, err := store.Put(blob)
	if err != nil {
		t.Fatalf("Failed to store blob: %v", err)
	}
	return id
}

// TestCompareAndSwap_Create verifies zero expected-old creates a ref.
func TestCompareAndSwap_Create(t *testing.T) {
	objectStore, refStore := setupStores(t)
	id := storeTestBlob(t, objectStore)

	if err := refStore.CompareAndSwap("refs/heads/main", objects.ZeroID, id); err != nil {
		t.Fatalf("Failed to create ref: %v", err)
	}

	got, err := refStore.Read("refs/heads/main")
	if err != nil {
		t.Fatalf("Failed to read ref: %v", err)
	}
	if got != id {
		t.Errorf("Read() = %s, want %s", got, id)
	}
}

// TestCompareAndSwap_CreateExisting verifies creation of an existing ref
// fails with ErrConflict.
func TestCompareAndSwap_CreateExisting(t *testing.T) {
	objectStore, refStore := setupStores(t)
	id := storeTestBlob(t, objectStore)

	if err := refStore.CompareAndSwap("refs/heads/main", objects.ZeroID, id); err != nil {
		t.Fatalf("Failed to create ref: %v", err)
	}

	other := storeTestBlob(t, objectStore)
	err := refStore.CompareAndSwap("refs/heads/main", objects.ZeroID, other)
	if !errors.Is(err, ErrConflict) {
		t.Fatalf("Expected ErrConflict, got: %v", err)
	}
}

// TestCompareAndSwap_Update verifies an update with the correct
// expected-old succeeds.
func TestCompareAndSwap_Update(t *testing.T) {
	objectStore, refStore := setupStores(t)
	first := storeTestBlob(t, objectStore)
	second := storeTestBlob(t, objectStore)

	if err := refStore.CompareAndSwap("refs/heads/main", objects.ZeroID, first); err != nil {
		t.Fatalf("Failed to create ref: %v", err)
	}
	if err := refStore.CompareAndSwap("refs/heads/main", first, second); err != nil {
		t.Fatalf("Failed to update ref: %v", err)
	}

	got, err := refStore.Read("refs/heads/main")
	if err != nil {
		t.Fatalf("Failed to read ref: %v", err)
	}
	if got != second {
		t.Errorf("Read() = %s, want %s", got, second)
	}
}

// TestCompareAndSwap_StaleExpected verifies an update presenting a stale
// value fails and leaves the ref untouched.
func TestCompareAndSwap_StaleExpected(t *testing.T) {
	objectStore, refStore := setupStores(t)
	current := storeTestBlob(t, objectStore)
	stale := storeTestBlob(t, objectStore)
	next := storeTestBlob(t, objectStore)

	if err := refStore.CompareAndSwap("refs/heads/main", objects.ZeroID, current); err != nil {
		t.Fatalf("Failed to create ref: %v", err)
	}

	err := refStore.CompareAndSwap("refs/heads/main", stale, next)
	if !errors.Is(err, ErrConflict) {
		t.Fatalf("Expected ErrConflict, got: %v", err)
	}

	got, err := refStore.Read("refs/heads/main")
	if err != nil {
		t.Fatalf("Failed to read ref: %v", err)
	}
	if got != current {
		t.Errorf("Failed CAS moved the ref: %s, want %s", got, current)
	}
}

// TestCompareAndSwap_StaleExpectedSameValue verifies a stale expected
// value conflicts even when the proposed new value already matches the
// stored one. The swap is conditional on the expectation, not the
// outcome.
func TestCompareAndSwap_StaleExpectedSameValue(t *testing.T) {
	objectStore, refStore := setupStores(t)
	current := storeTestBlob(t, objectStore)
	stale := storeTestBlob(t, objectStore)

	if err := refStore.CompareAndSwap("refs/heads/main", objects.ZeroID, current); err != nil {
		t.Fatalf("Failed to create ref: %v", err)
	}

	err := refStore.CompareAndSwap("refs/heads/main", stale, current)
	if !errors.Is(err, ErrConflict) {
		t.Fatalf("Expected ErrConflict for stale expected with new == current, got: %v", err)
	}

	got, err := refStore.Read("refs/heads/main")
	if err != nil {
		t.Fatalf("Failed to read ref: %v", err)
	}
	if got != current {
		t.Errorf("Failed CAS moved the ref: %s, want %s", got, current)
	}
}

// TestCompareAndSwap_Delete verifies zero new value removes the ref.
func TestCompareAndSwap_Delete(t *testing.T) {
	objectStore, refStore := setupStores(t)
	id := storeTestBlob(t, objectStore)

	if err := refStore.CompareAndSwap("refs/heads/main", objects.ZeroID, id); err != nil {
		t.Fatalf("Failed to create ref: %v", err)
	}
	if err := refStore.CompareAndSwap("refs/heads/main", id, objects.ZeroID); err != nil {
		t.Fatalf("Failed to delete ref: %v", err)
	}

	_, err := refStore.Read("refs/heads/main")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("Expected ErrNotFound after delete, got: %v", err)
	}
}

// TestCompareAndSwap_DeleteAbsent verifies both values zero succeeds on a
// missing ref (deleting nothing is a no-op).
func TestCompareAndSwap_DeleteAbsent(t *testing.T) {
	_, refStore := setupStores(t)

	if err := refStore.CompareAndSwap("refs/heads/ghost", objects.ZeroID, objects.ZeroID); err != nil {
		t.Fatalf("Expected no-op delete to succeed, got: %v", err)
	}
}

// TestCompareAndSwap_UpdateAbsent verifies a non-zero expected-old on a
// missing ref fails with ErrConflict.
func TestCompareAndSwap_UpdateAbsent(t *testing.T) {
	objectStore, refStore := setupStores(t)
	id := storeTestBlob(t, objectStore)

	err := refStore.CompareAndSwap("refs/heads/ghost", id, id)
	if !errors.Is(err, ErrConflict) {
		t.Fatalf("Expected ErrConflict, got: %v", err)
	}
}

// TestCompareAndSwap_DanglingTarget verifies refs cannot point at
// objects absent from the store.
func TestCompareAndSwap_DanglingTarget(t *testing.T) {
	_, refStore := setupStores(t)

	dangling, err := objects.ParseID(testutils.RandomHash())
	if err != nil {
		t.Fatalf("Failed to parse random hash: %v", err)
	}

	err = refStore.CompareAndSwap("refs/heads/main", objects.ZeroID, dangling)
	if !errors.Is(err, ErrDanglingTarget) {
		t.Fatalf("Expected ErrDanglingTarget, got: %v", err)
	}
}

// TestCompareAndSwap_InvalidName verifies malformed names are rejected.
func TestCompareAndSwap_InvalidName(t *testing.T) {
	objectStore, refStore := setupStores(t)
	id := storeTestBlob(t, objectStore)

	invalidNames := []string{
		"heads/main",
		"refs",
		"refs/heads/../../../escape",
		"refs/heads/",
		"refs//main",
		"refs/heads/sp ace",
		"refs/heads/back\\slash",
		"refs/heads/glob*",
	}

	for _, name := range invalidNames {
		if err := refStore.CompareAndSwap(name, objects.ZeroID, id); !errors.Is(err, ErrInvalidName) {
			t.Errorf("Name %q: expected ErrInvalidName, got: %v", name, err)
		}
	}
}

// TestCompareAndSwap_Concurrent verifies exactly one of many concurrent
// writers with the same expected-old wins, and that a loser retrying
// against the re-read tip succeeds.
func TestCompareAndSwap_Concurrent(t *testing.T) {
	objectStore, refStore := setupStores(t)
	base := storeTestBlob(t, objectStore)

	if err := refStore.CompareAndSwap("refs/heads/main", objects.ZeroID, base); err != nil {
		t.Fatalf("Failed to create ref: %v", err)
	}

	const writers = 8
	targets := make([]objects.ObjectID, writers)
	for i := range targets {
		targets[i] = storeTestBlob(t, objectStore)
	}

	var wg sync.WaitGroup
	results := make([]error, writers)
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = refStore.CompareAndSwap("refs/heads/main", base, targets[i])
		}(i)
	}
	wg.Wait()

	winners := 0
	var winner objects.ObjectID
	for i, err := range results {
		if err == nil {
			winners++
			winner = targets[i]
		} else if !errors.Is(err, ErrConflict) {
			t.Errorf("Writer %d failed with unexpected error: %v", i, err)
		}
	}
	if winners != 1 {
		t.Fatalf("Expected exactly one winner, got %d", winners)
	}

	got, err := refStore.Read("refs/heads/main")
	if err != nil {
		t.Fatalf("Failed to read ref: %v", err)
	}
	if got != winner {
		t.Errorf("Ref holds %s, want winning value %s", got, winner)
	}

	// A loser that re-reads the tip and retries with it must succeed.
	var loser objects.ObjectID
	for i, err := range results {
		if err != nil {
			loser = targets[i]
			break
		}
	}
	if err := refStore.CompareAndSwap("refs/heads/main", got, loser); err != nil {
		t.Fatalf("Loser retry against re-read tip failed: %v", err)
	}

	got, err = refStore.Read("refs/heads/main")
	if err != nil {
		t.Fatalf("Failed to read ref after retry: %v", err)
	}
	if got != loser {
		t.Errorf("Ref holds %s after retry, want %s", got, loser)
	}
}

// TestRead_NotFound verifies the sentinel for absent refs.
func TestRead_NotFound(t *testing.T) {
	_, refStore := setupStores(t)

	_, err := refStore.Read("refs/heads/ghost")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("Expected ErrNotFound, got: %v", err)
	}
}

// TestList verifies prefix filtering and sorted output.
func TestList(t *testing.T) {
	objectStore, refStore := setupStores(t)
	id := storeTestBlob(t, objectStore)

	names := []string{
		"refs/heads/main",
		"refs/heads/feature",
		"refs/tags/v1.0.0",
	}
	for _, name := range names {
		if err := refStore.CompareAndSwap(name, objects.ZeroID, id); err != nil {
			t.Fatalf("Failed to create ref %s: %v", name, err)
		}
	}

	all, err := refStore.List("")
	if err != nil {
		t.Fatalf("Failed to list refs: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("List(\"\") returned %d refs, want 3", len(all))
	}
	for i := 1; i < len(all); i++ {
		if all[i-1].Name >= all[i].Name {
			t.Errorf("List output not sorted: %s before %s", all[i-1].Name, all[i].Name)
		}
	}

	heads, err := refStore.List(constants.HeadsRefPrefix)
	if err != nil {
		t.Fatalf("Failed to list heads: %v", err)
	}
	if len(heads) != 2 {
		t.Errorf("List(heads) returned %d refs, want 2", len(heads))
	}

	tags, err := refStore.List("refs/tags/")
	if err != nil {
		t.Fatalf("Failed to list tags: %v", err)
	}
	if len(tags) != 1 || tags[0].Name != "refs/tags/v1.0.0" {
		t.Errorf("List(tags) = %v", tags)
	}
}

// TestList_Empty verifies an initialized repo with no refs lists nothing.
func TestList_Empty(t *testing.T) {
	_, refStore := setupStores(t)

	refs, err := refStore.List("")
	if err != nil {
		t.Fatalf("Failed to list refs: %v", err)
	}
	if len(refs) != 0 {
		t.Errorf("List returned %d refs, want 0", len(refs))
	}
}

// TestHead verifies HEAD resolution and updates.
func TestHead(t *testing.T) {
	_, refStore := setupStores(t)

	name, err := refStore.Head()
	if err != nil {
		t.Fatalf("Failed to read HEAD: %v", err)
	}
	if name != constants.HeadsRefPrefix+constants.DefaultBranch {
		t.Errorf("Head() = %s, want %s", name, constants.HeadsRefPrefix+constants.DefaultBranch)
	}

	if err := refStore.SetHead("refs/heads/feature"); err != nil {
		t.Fatalf("Failed to set HEAD: %v", err)
	}
	name, err = refStore.Head()
	if err != nil {
		t.Fatalf("Failed to read HEAD: %v", err)
	}
	if name != "refs/heads/feature" {
		t.Errorf("Head() = %s, want refs/heads/feature", name)
	}
}
