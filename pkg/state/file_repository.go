package state

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"
)

// FileRepository implements Repository with a single text file.
type FileRepository struct {
	path string
}

// NewFileRepository returns a repository backed by path.
func NewFileRepository(path string) *FileRepository {
	return &FileRepository{path: path}
}

// Path returns the state file path.
func (r *FileRepository) Path() string {
	return r.path
}

// Load reads the state file. A missing or blank file is ErrNoState.
func (r *FileRepository) Load(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	data, err := os.ReadFile(r.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", ErrNoState
		}
		return "", fmt.Errorf("read state: %w", err)
	}

	encoded := strings.TrimRight(string(data), "\r\n")
	if encoded == "" {
		return "", ErrNoState
	}
	return encoded, nil
}

// Save writes encoded to a temp file in the same directory, syncs it and
// renames it over the state file, so readers never see a partial write.
func (r *FileRepository) Save(ctx context.Context, encoded string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	dir := filepath.Dir(r.path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("create state dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(r.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp state: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName) // no-op after a successful rename

	if _, err := tmp.WriteString(encoded + "\n"); err != nil {
		tmp.Close()
		return fmt.Errorf("write state: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("sync state: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close state: %w", err)
	}
	if err := os.Chmod(tmpName, 0o600); err != nil {
		return fmt.Errorf("chmod state: %w", err)
	}

	if err := os.Rename(tmpName, r.path); err != nil {
		return fmt.Errorf("rename state: %w", err)
	}
	return nil
}

// Clear deletes the state file.
func (r *FileRepository) Clear(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := os.Remove(r.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove state: %w", err)
	}
	return nil
}

// Watch calls fn with the freshly loaded string each time the state file is
// created, written or renamed into place, and with ErrNoState when it is
// removed. It watches the parent directory, since Save replaces the file by
// rename. Watch blocks until ctx is done or fn returns an error.
func (r *FileRepository) Watch(ctx context.Context, fn func(encoded string, err error) error) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer watcher.Close()

	dir := filepath.Dir(r.path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("create state dir: %w", err)
	}
	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("watch %s: %w", dir, err)
	}

	name := filepath.Clean(r.path)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != name {
				continue
			}
			var cbErr error
			switch {
			case event.Op&(fsnotify.Create|fsnotify.Write) != 0:
				cbErr = fn(r.Load(ctx))
			case event.Op&(fsnotify.Remove|fsnotify.Rename) != 0:
				cbErr = fn("", ErrNoState)
			}
			if cbErr != nil {
				return cbErr
			}

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			return fmt.Errorf("watch state: %w", err)
		}
	}
}

var _ Repository = (*FileRepository)(nil)
