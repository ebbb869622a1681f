// Package refs maps symbolic names (refs/heads/*, refs/tags/*) to
// object ids, persisted one file per ref under <repo>/.gitwire/.
// Updates are compare-and-swap: a writer must present the value it
// read, so concurrent pushes cannot silently lose updates.
package refs

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/google/renameio"

	"gitwire.dev/gitwire/internal/constants"
	"gitwire.dev/gitwire/internal/objects"
)

// Reference update error conditions.
var (
	// ErrNotFound is returned by Read for a ref that does not exist.
	ErrNotFound = errors.New("refs: reference not found")

	// ErrConflict is returned by CompareAndSwap when the stored value
	// differs from the expected one, including when the new value
	// already equals the stored one.
	ErrConflict = errors.New("refs: reference value is different from expected")

	// ErrDanglingTarget is returned when the new value names an object
	// absent from the object store.
	ErrDanglingTarget = errors.New("refs: target object does not exist in store")

	// ErrInvalidName is returned for malformed reference names.
	ErrInvalidName = errors.New("refs: malformed reference name")
)

// Ref is a named pointer into the object graph.
type Ref struct {
	Name string
	ID   objects.ObjectID
}

// Store persists references for one repository. Writers serialize at
// the granularity of a single reference name; readers never block.
type Store struct {
	repoPath string
	objects  *objects.Store

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func NewStore(repoPath string, objectStore *objects.Store) *Store {
	return &Store{
		repoPath: repoPath,
		objects:  objectStore,
		locks:    make(map[string]*sync.Mutex),
	}
}

// nameLock returns the mutex guarding one reference name, creating it
// on first use.
func (s *Store) nameLock(name string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	lock, ok := s.locks[name]
	if !ok {
		lock = &sync.Mutex{}
		s.locks[name] = lock
	}
	return lock
}

// Read returns the id the named ref points to, or ErrNotFound.
func (s *Store) Read(name string) (objects.ObjectID, error) {
	if err := validateName(name); err != nil {
		return objects.ZeroID, err
	}
	return s.readFile(name)
}

func (s *Store) readFile(name string) (objects.ObjectID, error) {
	content, err := os.ReadFile(s.refPath(name))
	if errors.Is(err, fs.ErrNotExist) {
		return objects.ZeroID, fmt.Errorf("ref %s: %w", name, ErrNotFound)
	}
	if err != nil {
		return objects.ZeroID, fmt.Errorf("failed to read ref %s: %w", name, err)
	}

	id, err := objects.ParseID(strings.TrimSpace(string(content)))
	if err != nil {
		return objects.ZeroID, fmt.Errorf("ref %s: %w", name, err)
	}
	return id, nil
}

// CompareAndSwap atomically moves the named ref from expectedOld to
// new. Semantics of the zero id:
//
//   - expectedOld zero: create; fails with ErrConflict if the ref exists
//   - new zero: delete the ref
//   - both zero: succeeds only if the ref does not exist
//
// A non-zero new value must name an object already in the object store,
// otherwise ErrDanglingTarget is returned before anything is written.
func (s *Store) CompareAndSwap(name string, expectedOld, new objects.ObjectID) error {
	if err := validateName(name); err != nil {
		return err
	}
	if !new.IsZero() && !s.objects.Contains(new) {
		return fmt.Errorf("ref %s -> %s: %w", name, new, ErrDanglingTarget)
	}

	lock := s.nameLock(name)
	lock.Lock()
	defer lock.Unlock()

	current, err := s.readFile(name)
	exists := true
	if errors.Is(err, ErrNotFound) {
		exists = false
	} else if err != nil {
		return err
	}

	switch {
	case !exists && !expectedOld.IsZero():
		return fmt.Errorf("ref %s: expected %s, ref does not exist: %w", name, expectedOld, ErrConflict)
	case exists && current != expectedOld:
		return fmt.Errorf("ref %s: expected %s, found %s: %w", name, expectedOld, current, ErrConflict)
	}

	if new.IsZero() {
		if !exists {
			return nil
		}
		if err := os.Remove(s.refPath(name)); err != nil {
			return fmt.Errorf("failed to delete ref %s: %w", name, err)
		}
		return nil
	}

	path := s.refPath(name)
	if err := os.MkdirAll(filepath.Dir(path), constants.DirPerms); err != nil {
		return fmt.Errorf("failed to create ref directory for %s: %w", name, err)
	}

	// renameio gives all-or-nothing replacement: a crashed writer can
	// never leave a half-written ref behind.
	if err := renameio.WriteFile(path, []byte(new.String()+"\n"), constants.FilePerms); err != nil {
		return fmt.Errorf("failed to write ref %s: %w", name, err)
	}
	return nil
}

// List returns all refs whose name starts with prefix, sorted by name.
// An empty prefix lists every ref.
func (s *Store) List(prefix string) ([]Ref, error) {
	refsDir := filepath.Join(s.repoPath, constants.GitWire, constants.Refs)

	var result []Ref
	err := filepath.WalkDir(refsDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}

		rel, err := filepath.Rel(filepath.Join(s.repoPath, constants.GitWire), path)
		if err != nil {
			return err
		}
		name := filepath.ToSlash(rel)
		if !strings.HasPrefix(name, prefix) {
			return nil
		}

		id, err := s.readFile(name)
		if err != nil {
			return err
		}
		result = append(result, Ref{Name: name, ID: id})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list refs: %w", err)
	}

	sort.Slice(result, func(i, j int) bool { return result[i].Name < result[j].Name })
	return result, nil
}

// Head returns the ref name HEAD points to.
func (s *Store) Head() (string, error) {
	content, err := os.ReadFile(filepath.Join(s.repoPath, constants.GitWire, constants.Head))
	if err != nil {
		return "", fmt.Errorf("failed to read HEAD: %w", err)
	}
	line := strings.TrimSpace(string(content))
	name, found := strings.CutPrefix(line, "ref: ")
	if !found {
		return "", fmt.Errorf("malformed HEAD content: %q", line)
	}
	return name, nil
}

// SetHead points HEAD at the named ref.
func (s *Store) SetHead(name string) error {
	if err := validateName(name); err != nil {
		return err
	}
	path := filepath.Join(s.repoPath, constants.GitWire, constants.Head)
	if err := renameio.WriteFile(path, []byte("ref: "+name+"\n"), constants.FilePerms); err != nil {
		return fmt.Errorf("failed to write HEAD: %w", err)
	}
	return nil
}

// validateName rejects names that escape the refs area or contain
// path tricks. Names always use forward slashes.
func validateName(name string) error {
	if !strings.HasPrefix(name, constants.Refs+"/") {
		return fmt.Errorf("ref %q must start with %q: %w", name, constants.Refs+"/", ErrInvalidName)
	}
	for _, component := range strings.Split(name, "/") {
		if component == "" || component == "." || component == ".." {
			return fmt.Errorf("ref %q has invalid path component: %w", name, ErrInvalidName)
		}
	}
	if strings.ContainsAny(name, " \\\x00*?[^~:") {
		return fmt.Errorf("ref %q contains forbidden characters: %w", name, ErrInvalidName)
	}
	return nil
}

func (s *Store) refPath(name string) string {
	return filepath.Join(s.repoPath, constants.GitWire, filepath.FromSlash(name))
}
