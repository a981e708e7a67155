package artifact

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"sync"
)

// DirStore persists artifacts as files under <root>/<runID>/<name>. Writes
// go through a temporary file and a rename so readers never observe a
// partial artifact.
type DirStore struct {
	mu   sync.Mutex
	root string
}

// NewDirStore creates the root directory if needed.
func NewDirStore(root string) (*DirStore, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create artifact root: %w", err)
	}

	return &DirStore{root: root}, nil
}

// Root returns the store's root directory.
func (d *DirStore) Root() string { return d.root }

// RunDir returns the directory holding a run's artifacts.
func (d *DirStore) RunDir(runID string) string { return filepath.Join(d.root, runID) }

func (d *DirStore) path(runID, name string) (string, error) {
	if runID == "" || filepath.Base(runID) != runID {
		return "", fmt.Errorf("%w: run id %q", ErrInvalidName, runID)
	}

	cleaned, err := cleanName(name)
	if err != nil {
		return "", err
	}

	return filepath.Join(d.root, runID, filepath.FromSlash(cleaned)), nil
}

// Save writes the artifact, replacing any previous version.
func (d *DirStore) Save(runID, name string, data []byte) error {
	p, err := d.path(runID, name)
	if err != nil {
		return err
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return fmt.Errorf("create artifact dir: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(p), ".artifact-*")
	if err != nil {
		return fmt.Errorf("create temp artifact: %w", err)
	}

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())

		return fmt.Errorf("write artifact: %w", err)
	}

	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("close artifact: %w", err)
	}

	if err := os.Rename(tmp.Name(), p); err != nil {
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("rename artifact: %w", err)
	}

	return nil
}

// Get reads the artifact or returns ErrNotFound.
func (d *DirStore) Get(runID, name string) ([]byte, error) {
	p, err := d.path(runID, name)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(p)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, ErrNotFound
	}

	if err != nil {
		return nil, fmt.Errorf("read artifact: %w", err)
	}

	return data, nil
}

// List returns the sorted slash-separated names of the run's artifacts.
func (d *DirStore) List(runID string) ([]string, error) {
	dir := d.RunDir(runID)

	var names []string

	err := filepath.WalkDir(dir, func(p string, entry fs.DirEntry, err error) error {
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) && p == dir {
				return filepath.SkipDir
			}

			return err
		}

		if entry.IsDir() || filepath.Base(p)[0] == '.' {
			return nil
		}

		rel, err := filepath.Rel(dir, p)
		if err != nil {
			return err
		}

		names = append(names, filepath.ToSlash(rel))

		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list artifacts: %w", err)
	}

	sort.Strings(names)

	if names == nil {
		names = []string{}
	}

	return names, nil
}

// Delete removes the artifact or returns ErrNotFound.
func (d *DirStore) Delete(runID, name string) error {
	p, err := d.path(runID, name)
	if err != nil {
		return err
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	err = os.Remove(p)
	if errors.Is(err, fs.ErrNotExist) {
		return ErrNotFound
	}

	return err
}
