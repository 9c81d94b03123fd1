package documents

import "errors"

var (
	ErrNotFound        = errors.New("document not found")
	ErrForbidden       = errors.New("document belongs to another user")
	ErrInvalidInput    = errors.New("invalid input")
	ErrUnsupportedType = errors.New("unsupported file type")
)
