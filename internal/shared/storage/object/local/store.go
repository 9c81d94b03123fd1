package local

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"

	"docanalyzer/internal/shared/storage/object"
)

// Store keeps uploads on the local filesystem under baseDir.
type Store struct {
	baseDir string
}

// New creates a local object store rooted at baseDir.
func New(baseDir string) object.ObjectStore {
	return &Store{baseDir: baseDir}
}

// Save streams r into a temp file next to its final location and renames it
// into place, so a reader never observes a partial upload.
func (s *Store) Save(ctx context.Context, ownerID string, fileName string, r io.Reader) (string, int64, string, error) {
	key, err := object.NewKey(ownerID, fileName)
	if err != nil {
		return "", 0, "", err
	}
	if err := ctx.Err(); err != nil {
		return "", 0, "", err
	}

	fullPath := s.fullPath(key)
	dir := filepath.Dir(fullPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", 0, "", fmt.Errorf("mkdir: %w", err)
	}

	mimeType, body, err := object.Sniff(r)
	if err != nil {
		return "", 0, "", err
	}

	tmp, err := os.CreateTemp(dir, ".upload-*")
	if err != nil {
		return "", 0, "", fmt.Errorf("create temp: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tmp.Close()
			_ = os.Remove(tmp.Name())
		}
	}()

	size, err := io.Copy(tmp, body)
	if err != nil {
		return "", 0, "", fmt.Errorf("write body: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return "", 0, "", fmt.Errorf("close temp: %w", err)
	}
	if err := os.Rename(tmp.Name(), fullPath); err != nil {
		return "", 0, "", fmt.Errorf("rename: %w", err)
	}
	committed = true
	return key, size, mimeType, nil
}

// Open opens a stored object for reading.
func (s *Store) Open(ctx context.Context, storageKey string) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	fullPath, err := s.resolve(storageKey)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(fullPath)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", object.ErrNotFound, storageKey)
	}
	return f, err
}

// LocalPath returns the stored file itself. Nothing is copied, so cleanup is a no-op.
func (s *Store) LocalPath(ctx context.Context, storageKey string) (string, func(), error) {
	noop := func() {}
	if err := ctx.Err(); err != nil {
		return "", noop, err
	}
	fullPath, err := s.resolve(storageKey)
	if err != nil {
		return "", noop, err
	}
	if _, err := os.Stat(fullPath); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", noop, fmt.Errorf("%w: %s", object.ErrNotFound, storageKey)
		}
		return "", noop, err
	}
	return fullPath, noop, nil
}

// Delete removes the stored file.
func (s *Store) Delete(ctx context.Context, storageKey string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	fullPath, err := s.resolve(storageKey)
	if err != nil {
		return err
	}
	if err := os.Remove(fullPath); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}

func (s *Store) resolve(storageKey string) (string, error) {
	key := filepath.ToSlash(storageKey)
	if !object.ValidKey(path.Clean(key)) || path.Clean(key) != key {
		return "", fmt.Errorf("invalid storage key %q", storageKey)
	}
	return s.fullPath(key), nil
}

func (s *Store) fullPath(key string) string {
	return filepath.Join(s.baseDir, filepath.FromSlash(key))
}

var _ object.ObjectStore = (*Store)(nil)
