package intake

import (
	"bytes"
	"errors"
	"fmt"
	"io"
)

// ReadComplete reads an upload stream to its end. Validation needs the whole
// byte sequence, so no partial buffer is ever returned: a stream longer than
// limit fails with ErrTooLarge and a stream that breaks off fails with
// ErrIncomplete. A limit of zero or less disables the size check.
func ReadComplete(r io.Reader, limit int64) ([]byte, error) {
	return readComplete(r, -1, limit)
}

// ReadExpected is ReadComplete for a stream whose length was announced, for
// example by a multipart header. A stream shorter or longer than expected
// fails with ErrIncomplete.
func ReadExpected(r io.Reader, expected, limit int64) ([]byte, error) {
	if expected < 0 {
		return nil, fmt.Errorf("%w: negative announced size %d", ErrIncomplete, expected)
	}
	if limit > 0 && expected > limit {
		return nil, fmt.Errorf("%w: %d bytes announced, limit is %d", ErrTooLarge, expected, limit)
	}
	return readComplete(r, expected, limit)
}

func readComplete(r io.Reader, expected, limit int64) ([]byte, error) {
	var buf bytes.Buffer
	if expected > 0 {
		buf.Grow(int(expected))
	}

	src := r
	if limit > 0 {
		src = &SizeLimitReader{R: r, Limit: limit}
	}

	if _, err := buf.ReadFrom(src); err != nil {
		if errors.Is(err, ErrTooLarge) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", ErrIncomplete, err)
	}

	if expected >= 0 && int64(buf.Len()) != expected {
		return nil, fmt.Errorf("%w: received %d of %d bytes", ErrIncomplete, buf.Len(), expected)
	}
	return buf.Bytes(), nil
}

// SizeLimitReader restricts the number of bytes read and returns ErrTooLarge
// once the limit is exceeded.
type SizeLimitReader struct {
	R     io.Reader
	Limit int64
	N     int64
}

func (l *SizeLimitReader) Read(p []byte) (n int, err error) {
	n, err = l.R.Read(p)
	l.N += int64(n)
	if l.N > l.Limit {
		return n, fmt.Errorf("%w: more than %d bytes", ErrTooLarge, l.Limit)
	}
	return n, err
}
