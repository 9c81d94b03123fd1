package object

import (
	"context"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
)

// ObjectStore defines the contract for saving and retrieving binary objects.
type ObjectStore interface {
	Save(ctx context.Context, ownerID string, fileName string, r io.Reader) (storageKey string, sizeBytes int64, mimeType string, err error)
	Open(ctx context.Context, storageKey string) (io.ReadCloser, error)
	// LocalPath exposes the object as a file on local disk. Callers must invoke
	// cleanup when done; it removes any temporary copy and files created next to it.
	LocalPath(ctx context.Context, storageKey string) (filePath string, cleanup func(), err error)
	// Delete removes the object. Deleting a missing object is not an error.
	Delete(ctx context.Context, storageKey string) error
}

// CopyToTemp writes r into a fresh private directory and returns the file path.
// cleanup removes the whole directory.
func CopyToTemp(r io.Reader, storageKey string) (string, func(), error) {
	dir, err := os.MkdirTemp("", "docanalyzer-*")
	if err != nil {
		return "", func() {}, fmt.Errorf("mkdir temp: %w", err)
	}
	cleanup := func() { _ = os.RemoveAll(dir) }

	name := path.Base(storageKey)
	if name == "." || name == "/" || name == "" {
		name = "object"
	}
	fullPath := filepath.Join(dir, name)
	f, err := os.OpenFile(fullPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600)
	if err != nil {
		cleanup()
		return "", func() {}, fmt.Errorf("open temp file: %w", err)
	}
	if _, err := io.Copy(f, r); err != nil {
		_ = f.Close()
		cleanup()
		return "", func() {}, fmt.Errorf("write temp file: %w", err)
	}
	if err := f.Close(); err != nil {
		cleanup()
		return "", func() {}, fmt.Errorf("close temp file: %w", err)
	}
	return fullPath, cleanup, nil
}
