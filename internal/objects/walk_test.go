package objects

import (
	"errors"
	"testing"

	"gitwire.dev/gitwire/testutils"
)

// chain builds a linear history of n commits over distinct blobs and
// returns the commits oldest-first.
func chain(t *testing.T, store *Store, n int) []*Commit {
	t.Helper()

	commits := make([]*Commit, 0, n)
	var parent []ObjectID
	for i := 0; i < n; i++ {
		blob := storeBlob(t, store, testutils.RandomString(16))
		entry := createTreeEntry(t, ModeRegularFile, "file.txt", blob.ID())
		tree := storeTree(t, store, []TreeEntry{entry})

		commit := storeCommit(t, store, tree.ID(), parent...)
		commits = append(commits, commit)
		parent = []ObjectID{commit.ID()}
	}
	return commits
}

// TestWalk_VisitsEveryReachableObjectOnce verifies full graph coverage
// without duplicates.
func TestWalk_VisitsEveryReachableObjectOnce(t *testing.T) {
	repoPath := testutils.SetupTestRepoWithGitWireDir(t)
	store := NewStore(repoPath)

	commits := chain(t, store, 3)
	tip := commits[len(commits)-1]

	visits := make(map[ObjectID]int)
	err := store.Walk([]ObjectID{tip.ID()}, func(id ObjectID, obj Object) error {
		visits[id]++
		return nil
	})
	if err != nil {
		t.Fatalf("Walk failed: %v", err)
	}

	// 3 commits, 3 trees, 3 blobs
	if len(visits) != 9 {
		t.Errorf("Visited %d objects, want 9", len(visits))
	}
	for id, count := range visits {
		if count != 1 {
			t.Errorf("Object %s visited %d times", id, count)
		}
	}
}

// TestWalk_SharedSubtreeVisitedOnce verifies deduplication when two
// commits share a tree.
func TestWalk_SharedSubtreeVisitedOnce(t *testing.T) {
	repoPath := testutils.SetupTestRepoWithGitWireDir(t)
	store := NewStore(repoPath)

	blob := storeBlob(t, store, "shared")
	entry := createTreeEntry(t, ModeRegularFile, "file.txt", blob.ID())
	tree := storeTree(t, store, []TreeEntry{entry})

	first := storeCommit(t, store, tree.ID())
	second := storeCommit(t, store, tree.ID(), first.ID())

	count := 0
	err := store.Walk([]ObjectID{second.ID()}, func(id ObjectID, obj Object) error {
		count++
		return nil
	})
	if err != nil {
		t.Fatalf("Walk failed: %v", err)
	}

	// 2 commits + 1 shared tree + 1 shared blob
	if count != 4 {
		t.Errorf("Visited %d objects, want 4", count)
	}
}

// TestWalk_FollowsTagTarget verifies tag objects contribute their target.
func TestWalk_FollowsTagTarget(t *testing.T) {
	repoPath := testutils.SetupTestRepoWithGitWireDir(t)
	store := NewStore(repoPath)

	commits := chain(t, store, 1)
	tag, err := NewTag(commits[0].ID(), TypeCommit, "v1", "tag\n", createTestAuthor("Alice", "alice@example.com"))
	if err != nil {
		t.Fatalf("Failed to create tag: %v", err)
	}
	mustPut(t, store, tag)

	sawCommit := false
	err = store.Walk([]ObjectID{tag.ID()}, func(id ObjectID, obj Object) error {
		if id == commits[0].ID() {
			sawCommit = true
		}
		return nil
	})
	if err != nil {
		t.Fatalf("Walk failed: %v", err)
	}
	if !sawCommit {
		t.Error("Walk from tag did not reach its target commit")
	}
}

// TestWalk_SkipObject verifies the pruning sentinel stops descent
// without aborting the walk.
func TestWalk_SkipObject(t *testing.T) {
	repoPath := testutils.SetupTestRepoWithGitWireDir(t)
	store := NewStore(repoPath)

	commits := chain(t, store, 2)
	tip := commits[1]

	var visited []ObjectID
	err := store.Walk([]ObjectID{tip.ID()}, func(id ObjectID, obj Object) error {
		visited = append(visited, id)
		if obj.Type() == TypeCommit && id != tip.ID() {
			return SkipObject
		}
		return nil
	})
	if err != nil {
		t.Fatalf("Walk failed: %v", err)
	}

	for _, id := range visited {
		if id == commits[0].TreeID() {
			t.Error("Walk descended past a skipped commit")
		}
	}
}

// TestWalk_MissingObject verifies a dangling reference fails the walk.
func TestWalk_MissingObject(t *testing.T) {
	repoPath := testutils.SetupTestRepoWithGitWireDir(t)
	store := NewStore(repoPath)

	// Commit whose tree was never stored.
	commit := storeCommit(t, store, randomID(t))

	err := store.Walk([]ObjectID{commit.ID()}, nil)
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("Expected ErrNotFound, got: %v", err)
	}
}

// TestClosure_Disjoint verifies the full reachable set transfers when
// the peer has nothing.
func TestClosure_Disjoint(t *testing.T) {
	repoPath := testutils.SetupTestRepoWithGitWireDir(t)
	store := NewStore(repoPath)

	commits := chain(t, store, 2)
	tip := commits[1]

	objs, err := store.Closure([]ObjectID{tip.ID()}, nil)
	if err != nil {
		t.Fatalf("Closure failed: %v", err)
	}
	// 2 commits, 2 trees, 2 blobs
	if len(objs) != 6 {
		t.Errorf("Closure returned %d objects, want 6", len(objs))
	}
}

// TestClosure_Minimal verifies objects reachable from a have tip are
// excluded from the transfer set.
func TestClosure_Minimal(t *testing.T) {
	repoPath := testutils.SetupTestRepoWithGitWireDir(t)
	store := NewStore(repoPath)

	commits := chain(t, store, 3)
	tip := commits[2]
	have := commits[1]

	objs, err := store.Closure([]ObjectID{tip.ID()}, []ObjectID{have.ID()})
	if err != nil {
		t.Fatalf("Closure failed: %v", err)
	}

	// Only the tip commit with its tree and blob lie beyond the have.
	if len(objs) != 3 {
		t.Fatalf("Closure returned %d objects, want 3", len(objs))
	}
	for _, obj := range objs {
		if obj.ID() == have.ID() || obj.ID() == commits[0].ID() {
			t.Errorf("Closure included object %s the peer already has", obj.ID())
		}
	}
}

// TestClosure_WantEqualsHave verifies an up-to-date peer gets nothing.
func TestClosure_WantEqualsHave(t *testing.T) {
	repoPath := testutils.SetupTestRepoWithGitWireDir(t)
	store := NewStore(repoPath)

	commits := chain(t, store, 1)
	tip := commits[0].ID()

	objs, err := store.Closure([]ObjectID{tip}, []ObjectID{tip})
	if err != nil {
		t.Fatalf("Closure failed: %v", err)
	}
	if len(objs) != 0 {
		t.Errorf("Closure returned %d objects, want 0", len(objs))
	}
}

// TestClosure_ToleratesMissingHaves verifies have tips unknown to the
// local store are ignored rather than failing the negotiation.
func TestClosure_ToleratesMissingHaves(t *testing.T) {
	repoPath := testutils.SetupTestRepoWithGitWireDir(t)
	store := NewStore(repoPath)

	commits := chain(t, store, 1)

	objs, err := store.Closure([]ObjectID{commits[0].ID()}, []ObjectID{randomID(t)})
	if err != nil {
		t.Fatalf("Closure failed: %v", err)
	}
	if len(objs) != 3 {
		t.Errorf("Closure returned %d objects, want 3", len(objs))
	}
}

// TestClosure_ZeroIDsIgnored verifies zero ids in either set are skipped.
func TestClosure_ZeroIDsIgnored(t *testing.T) {
	repoPath := testutils.SetupTestRepoWithGitWireDir(t)
	store := NewStore(repoPath)

	commits := chain(t, store, 1)

	objs, err := store.Closure([]ObjectID{commits[0].ID(), ZeroID}, []ObjectID{ZeroID})
	if err != nil {
		t.Fatalf("Closure failed: %v", err)
	}
	if len(objs) != 3 {
		t.Errorf("Closure returned %d objects, want 3", len(objs))
	}
}
