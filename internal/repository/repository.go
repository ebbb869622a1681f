// Package repository manages the on-disk layout of a gitwire
// repository: the .gitwire directory holding the object store, the
// references area and the HEAD file.
package repository

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"

	"gitwire.dev/gitwire/internal/constants"
	"gitwire.dev/gitwire/internal/objects"
	"gitwire.dev/gitwire/internal/refs"
)

// ErrNotARepository is returned by Open when the path has no .gitwire
// directory.
var ErrNotARepository = errors.New("repository: not a gitwire repository")

// Repository bundles the stores of one opened repository. The object
// and reference stores are safe for concurrent use across sessions.
type Repository struct {
	Path    string
	Objects *objects.Store
	Refs    *refs.Store
}

// Open verifies the layout at path and returns handles to its stores.
func Open(path string) (*Repository, error) {
	gitwireDir := filepath.Join(path, constants.GitWire)
	info, err := os.Stat(gitwireDir)
	if errors.Is(err, fs.ErrNotExist) || (err == nil && !info.IsDir()) {
		return nil, fmt.Errorf("%s: %w", path, ErrNotARepository)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to check repository path: %w", err)
	}

	objectStore := objects.NewStore(path)
	return &Repository{
		Path:    path,
		Objects: objectStore,
		Refs:    refs.NewStore(path, objectStore),
	}, nil
}

// Init creates an empty repository at path and returns it opened.
func Init(path string) (*Repository, error) {
	if err := InitRepository(path); err != nil {
		return nil, err
	}
	return Open(path)
}

// InitRepository creates the .gitwire layout at path. It refuses to
// overwrite an existing repository.
func InitRepository(path string) error {
	gitwireDir := filepath.Join(path, constants.GitWire)

	if err := checkRepositoryDoesNotExist(gitwireDir); err != nil {
		return err
	}

	// Track if initialization of gitwire directories and files was successful
	var initSuccess bool

	// Defer a func to clean up any directories/files in the case that
	// repository initialization failed (not all directories/files were
	// created successfully). If all resources got created successfully
	// initSuccess is true, and the clean-up is not executed
	defer func() {
		if !initSuccess {
			cleanupRepository(gitwireDir)
		}
	}()

	directories := []string{
		gitwireDir,
		filepath.Join(gitwireDir, constants.Objects),
		filepath.Join(gitwireDir, constants.Refs),
		filepath.Join(gitwireDir, constants.Refs, constants.Heads),
		filepath.Join(gitwireDir, constants.Refs, constants.Tags),
	}

	for _, directory := range directories {
		if err := os.MkdirAll(directory, constants.DirPerms); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", directory, err)
		}
	}

	// Create HEAD file pointing to main branch
	headFile := filepath.Join(gitwireDir, constants.Head)
	headContent := constants.DefaultRefPrefix + constants.DefaultBranch + "\n"

	if err := os.WriteFile(headFile, []byte(headContent), constants.FilePerms); err != nil {
		return fmt.Errorf("failed to create HEAD file: %w", err)
	}

	initSuccess = true
	return nil
}

func checkRepositoryDoesNotExist(path string) error {
	_, err := os.Stat(path)

	// If path doesn't exist there is no error
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}

	if err != nil {
		return fmt.Errorf("failed to check repository path: %w", err)
	}

	return fmt.Errorf("repository already exists at %s", path)
}

// Removes the entire .gitwire directory if it exists
func cleanupRepository(gitwireDir string) {
	if _, err := os.Stat(gitwireDir); err == nil {
		logrus.WithField("path", gitwireDir).
			Debug("Cleaning up partial repository initialization")

		if err := os.RemoveAll(gitwireDir); err != nil {
			logrus.WithField("path", gitwireDir).WithError(err).
				Warn("Failed to cleanup repository directory")
		}
	}
}
