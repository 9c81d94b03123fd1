package object

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path"
	"strings"

	"github.com/google/uuid"

	"docanalyzer/internal/shared/util"
)

// ErrNotFound is returned by Open, LocalPath and Delete implementations that
// can tell a missing object apart from other failures.
var ErrNotFound = errors.New("object not found")

const sniffLen = 512

// NewKey builds a storage key of the form <owner-namespace>/<uuid>_<name>.
// Keys always use forward slashes so they stay valid across backends.
func NewKey(ownerID, fileName string) (string, error) {
	name, err := util.SanitizeFileName(fileName)
	if err != nil {
		return "", fmt.Errorf("sanitize file name: %w", err)
	}
	return path.Join(util.OwnerKey(ownerID), uuid.NewString()+"_"+name), nil
}

// ValidKey rejects keys that could escape the store root.
func ValidKey(key string) bool {
	if key == "" || strings.HasPrefix(key, "/") || strings.Contains(key, `\`) {
		return false
	}
	for _, part := range strings.Split(key, "/") {
		if part == "" || part == "." || part == ".." {
			return false
		}
	}
	return true
}

// Sniff detects the content type from the first bytes of r and returns a
// reader that still yields the full stream.
func Sniff(r io.Reader) (string, io.Reader, error) {
	head := make([]byte, sniffLen)
	n, err := io.ReadFull(r, head)
	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrUnexpectedEOF) {
		return "", nil, fmt.Errorf("read head: %w", err)
	}
	head = head[:n]
	return http.DetectContentType(head), io.MultiReader(bytes.NewReader(head), r), nil
}
