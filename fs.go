package intake

import (
	"context"
	"io"
	"time"
)

// FileInfo represents file metadata
type FileInfo struct {
	Name        string
	Path        string
	Size        int64
	ModTime     time.Time
	IsDir       bool
	ContentType string
}

// WriteResult describes a file after it became visible at its final path.
type WriteResult struct {
	Path              string
	Size              int64
	Checksum          string
	ChecksumAlgorithm ChecksumAlgorithm
}

// ============================================================================
// Core Interfaces
// ============================================================================

// FileReader provides read-only access to stored files.
type FileReader interface {
	// Read returns a stream for reading file content.
	Read(ctx context.Context, path string) (io.ReadCloser, error)

	// ReadAll reads entire file into memory. Use for small files only.
	ReadAll(ctx context.Context, path string) ([]byte, error)

	// FileExists checks if a file exists at path.
	FileExists(ctx context.Context, path string) (bool, error)

	// Stat returns file metadata.
	Stat(ctx context.Context, path string) (*FileInfo, error)

	// ListContents lists the files under path.
	// If recursive is true, includes all descendants.
	ListContents(ctx context.Context, path string, recursive bool) ([]FileInfo, error)
}

// FileWriter provides write operations.
type FileWriter interface {
	// Write stores the content of r at path. A file becomes visible at path
	// only once it is complete: a failed or cancelled write leaves nothing
	// behind. The content is hashed while it is written; see WithChecksum.
	Write(ctx context.Context, path string, r io.Reader, opts ...Option) (*WriteResult, error)

	// Delete removes a file.
	Delete(ctx context.Context, path string) error
}

// FileSystem provides full read-write access.
type FileSystem interface {
	FileReader
	FileWriter
}

// ============================================================================
// Optional Capability Interfaces
// ============================================================================
// Drivers expose optional capabilities through these interfaces. Use a type
// assertion to check for one:
//
//	if mover, ok := fs.(CanMove); ok {
//	    mover.Move(ctx, src, dst)
//	}

// CanMove indicates the filesystem supports native move/rename operations.
type CanMove interface {
	Move(ctx context.Context, src, dst string) error
}

// ChecksumAlgorithm represents a supported checksum algorithm
type ChecksumAlgorithm string

const (
	// ChecksumSHA256 is the SHA-256 hash algorithm, also used for deduplication
	ChecksumSHA256 ChecksumAlgorithm = "sha256"
	// ChecksumSHA512 is the SHA-512 hash algorithm
	ChecksumSHA512 ChecksumAlgorithm = "sha512"
	// ChecksumCRC32 is the CRC32 checksum (integrity only)
	ChecksumCRC32 ChecksumAlgorithm = "crc32"
	// ChecksumXXHash is the 64-bit xxHash algorithm
	ChecksumXXHash ChecksumAlgorithm = "xxhash"
)

// CanChecksum indicates the filesystem can hash a stored file.
type CanChecksum interface {
	// Checksum calculates the checksum of a file using the specified algorithm.
	// Returns the checksum as a hex-encoded string.
	Checksum(ctx context.Context, path string, algorithm ChecksumAlgorithm) (string, error)
}

// EventOp is the kind of change a watch reports.
type EventOp string

const (
	EventCreate EventOp = "create"
	EventWrite  EventOp = "write"
	EventRemove EventOp = "remove"
	EventRename EventOp = "rename"
)

// Event is one change to a watched file. Path is relative to the
// filesystem root.
type Event struct {
	Path string
	Op   EventOp
}

// CanWatch indicates the filesystem supports file change notifications.
//
// Example:
//
//	if watcher, ok := fs.(CanWatch); ok {
//	    events, err := watcher.Watch(ctx, "inbox/*.csv")
//	    if err != nil {
//	        return err
//	    }
//	    for ev := range events {
//	        log.Println(ev.Op, ev.Path)
//	    }
//	}
type CanWatch interface {
	// Watch reports changes to files matching a glob pattern such as
	// "*.csv" or "inbox/**". The channel is closed when ctx is done.
	Watch(ctx context.Context, pattern string) (<-chan Event, error)
}
