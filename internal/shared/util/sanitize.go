package util

import (
	"errors"
	"path/filepath"
	"strings"
	"unicode"
	"unicode/utf8"
)

// MaxFileNameBytes bounds a stored file name, extension included.
const MaxFileNameBytes = 200

// ErrInvalidFileName is returned for names that cannot be stored safely.
var ErrInvalidFileName = errors.New("invalid file name")

// SanitizeFileName flattens path separators, drops control characters and
// rejects traversal patterns. Long names are shortened keeping the extension.
func SanitizeFileName(name string) (string, error) {
	if strings.Contains(name, "..") {
		return "", ErrInvalidFileName
	}
	s := strings.Map(func(r rune) rune {
		switch {
		case r == '/' || r == '\\':
			return '_'
		case unicode.IsControl(r):
			return -1
		}
		return r
	}, strings.TrimSpace(name))
	s = strings.TrimSpace(s)
	if s == "" {
		return "", ErrInvalidFileName
	}
	if len(s) <= MaxFileNameBytes {
		return s, nil
	}

	ext := filepath.Ext(s)
	if len(ext) > 16 {
		ext = ""
	}
	base := s[:MaxFileNameBytes-len(ext)]
	for !utf8.ValidString(base) {
		base = base[:len(base)-1]
	}
	return base + ext, nil
}
