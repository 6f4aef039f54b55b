package filevalidator

import (
	"fmt"
	"io"
	"path/filepath"

	"github.com/dustin/go-humanize"
	"github.com/spf13/afero"
)

// FormatSizeReadable converts a size in bytes to a human-readable string
func FormatSizeReadable(size int64) string {
	if size < 0 {
		return fmt.Sprintf("%d B", size)
	}
	return humanize.IBytes(uint64(size))
}

// ParseSize parses a human-readable size such as "2MB", "512 KiB" or "1048576".
func ParseSize(s string) (int64, error) {
	n, err := humanize.ParseBytes(s)
	if err != nil {
		return 0, fmt.Errorf("invalid size %q: %w", s, err)
	}
	if n > 1<<62 {
		return 0, fmt.Errorf("size %q out of range", s)
	}
	return int64(n), nil
}

// ReadLocalFile loads a file from fs for validation. Files larger than limit
// are rejected without being read in full when limit is positive.
func ReadLocalFile(fs afero.Fs, path string, limit int64) (File, error) {
	info, err := fs.Stat(path)
	if err != nil {
		return File{}, err
	}
	if info.IsDir() {
		return File{}, fmt.Errorf("%s: is a directory", path)
	}

	f, err := fs.Open(path)
	if err != nil {
		return File{}, err
	}
	defer f.Close()

	var r io.Reader = f
	if limit > 0 {
		r = io.LimitReader(f, limit+1)
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return File{}, err
	}

	return File{
		Name:         filepath.Base(path),
		DeclaredMIME: MIMEForName(path),
		DeclaredSize: info.Size(),
		Data:         data,
	}, nil
}
