package intake

import (
	"errors"
	"fmt"
)

// Common storage and intake errors
var (
	ErrNotExist         = errors.New("file does not exist")
	ErrExist            = errors.New("file already exists")
	ErrNotAllowed       = errors.New("operation not allowed")
	ErrNotSupported     = errors.New("operation not supported")
	ErrIsDir            = errors.New("is a directory")
	ErrIncomplete       = errors.New("upload stream ended before the file was complete")
	ErrTooLarge         = errors.New("upload exceeds the size limit")
	ErrChecksumMismatch = errors.New("checksum mismatch")
)

// PathError records an error and the operation and file path that caused it
type PathError struct {
	Op   string
	Path string
	Err  error
}

// Error implements the error interface
func (e *PathError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
}

// Unwrap returns the underlying error
func (e *PathError) Unwrap() error {
	return e.Err
}

// IsNotExist reports whether an error indicates that a file does not exist
func IsNotExist(err error) bool {
	return errors.Is(err, ErrNotExist)
}

// IsExist reports whether an error indicates that a file already exists
func IsExist(err error) bool {
	return errors.Is(err, ErrExist)
}
