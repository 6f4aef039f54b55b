package memory

import (
	"bytes"
	"context"
	"encoding/hex"
	"io"
	"maps"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/gobwas/glob"

	"github.com/gobeaver/intake"
)

// memoryFile represents a file stored in memory
type memoryFile struct {
	content     []byte
	contentType string
	metadata    map[string]string
	modTime     time.Time
}

// watchEntry represents a single watch subscription
type watchEntry struct {
	matcher glob.Glob
	events  chan intake.Event
}

// Adapter provides an in-memory implementation of intake.FileSystem.
// Useful for tests and for running the service without persistent storage.
type Adapter struct {
	mu      sync.RWMutex
	files   map[string]*memoryFile
	maxSize int64 // Maximum total storage size (0 = unlimited)
	size    int64 // Current total size

	// Watch support
	watchMu sync.Mutex
	watches []*watchEntry
}

// Config holds configuration for the memory adapter
type Config struct {
	// MaxSize is the maximum total storage size in bytes (0 = unlimited)
	MaxSize int64
}

// New creates a new in-memory filesystem adapter
func New(cfg ...Config) *Adapter {
	var maxSize int64
	if len(cfg) > 0 {
		maxSize = cfg[0].MaxSize
	}
	return &Adapter{
		files:   make(map[string]*memoryFile),
		maxSize: maxSize,
	}
}

// Write implements intake.FileWriter. The content is buffered and hashed
// before it becomes visible, so readers never see a partial file.
func (a *Adapter) Write(ctx context.Context, path string, content io.Reader, options ...intake.Option) (*intake.WriteResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	path = normalizePath(path)
	if !isValidPath(path) {
		return nil, &intake.PathError{Op: "write", Path: path, Err: intake.ErrNotAllowed}
	}

	opts := intake.ApplyOptions(options...)
	hasher, err := intake.NewHasher(opts.ChecksumAlgorithm)
	if err != nil {
		return nil, &intake.PathError{Op: "write", Path: path, Err: err}
	}

	var buf bytes.Buffer
	if _, err := io.Copy(io.MultiWriter(&buf, hasher), content); err != nil {
		return nil, &intake.PathError{Op: "write", Path: path, Err: err}
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data := buf.Bytes()

	sum := hex.EncodeToString(hasher.Sum(nil))
	if opts.ExpectedChecksum != "" && !strings.EqualFold(sum, opts.ExpectedChecksum) {
		return nil, &intake.PathError{Op: "write", Path: path, Err: intake.ErrChecksumMismatch}
	}

	a.mu.Lock()
	op := intake.EventCreate
	newSize := a.size + int64(len(data))
	if existing, exists := a.files[path]; exists {
		if !opts.Overwrite {
			a.mu.Unlock()
			return nil, &intake.PathError{Op: "write", Path: path, Err: intake.ErrExist}
		}
		newSize -= int64(len(existing.content))
		op = intake.EventWrite
	}
	if a.maxSize > 0 && newSize > a.maxSize {
		a.mu.Unlock()
		return nil, &intake.PathError{Op: "write", Path: path, Err: intake.ErrTooLarge}
	}

	contentType := opts.ContentType
	if contentType == "" {
		contentType = mimetype.Detect(data).String()
	}
	a.files[path] = &memoryFile{
		content:     data,
		contentType: contentType,
		metadata:    maps.Clone(opts.Metadata),
		modTime:     time.Now(),
	}
	a.size = newSize
	a.mu.Unlock()

	a.notifyWatchers(path, op)

	return &intake.WriteResult{
		Path:              path,
		Size:              int64(len(data)),
		Checksum:          sum,
		ChecksumAlgorithm: opts.ChecksumAlgorithm,
	}, nil
}

// Read implements intake.FileReader
func (a *Adapter) Read(ctx context.Context, path string) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	path = normalizePath(path)

	a.mu.RLock()
	defer a.mu.RUnlock()

	file, exists := a.files[path]
	if !exists {
		if a.isDir(path) {
			return nil, &intake.PathError{Op: "read", Path: path, Err: intake.ErrIsDir}
		}
		return nil, &intake.PathError{Op: "read", Path: path, Err: intake.ErrNotExist}
	}

	// File content is never mutated in place, so the slice can be shared.
	return io.NopCloser(bytes.NewReader(file.content)), nil
}

// ReadAll implements intake.FileReader
func (a *Adapter) ReadAll(ctx context.Context, path string) ([]byte, error) {
	rc, err := a.Read(ctx, path)
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return io.ReadAll(rc)
}

// Delete implements intake.FileWriter
func (a *Adapter) Delete(ctx context.Context, path string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	path = normalizePath(path)

	a.mu.Lock()
	file, exists := a.files[path]
	if !exists {
		a.mu.Unlock()
		return &intake.PathError{Op: "delete", Path: path, Err: intake.ErrNotExist}
	}
	a.size -= int64(len(file.content))
	delete(a.files, path)
	a.mu.Unlock()

	a.notifyWatchers(path, intake.EventRemove)
	return nil
}

// FileExists implements intake.FileReader
func (a *Adapter) FileExists(ctx context.Context, path string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	path = normalizePath(path)

	a.mu.RLock()
	defer a.mu.RUnlock()

	_, fileExists := a.files[path]
	return fileExists, nil
}

// Stat implements intake.FileReader
func (a *Adapter) Stat(ctx context.Context, path string) (*intake.FileInfo, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	path = normalizePath(path)

	a.mu.RLock()
	defer a.mu.RUnlock()

	if file, exists := a.files[path]; exists {
		info := fileInfo(path, file)
		return &info, nil
	}
	if a.isDir(path) {
		return &intake.FileInfo{Name: filepath.Base(path), Path: path, IsDir: true}, nil
	}
	return nil, &intake.PathError{Op: "stat", Path: path, Err: intake.ErrNotExist}
}

// ListContents implements intake.FileReader. Directories exist implicitly
// while they hold files.
func (a *Adapter) ListContents(ctx context.Context, path string, recursive bool) ([]intake.FileInfo, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	path = normalizePath(path)

	a.mu.RLock()
	defer a.mu.RUnlock()

	if !a.isDir(path) {
		return nil, &intake.PathError{Op: "listcontents", Path: path, Err: intake.ErrNotExist}
	}

	prefix := ""
	if path != "" {
		prefix = path + "/"
	}

	var files []intake.FileInfo
	seenDirs := make(map[string]bool)
	for filePath, file := range a.files {
		if !strings.HasPrefix(filePath, prefix) {
			continue
		}
		rel := strings.TrimPrefix(filePath, prefix)

		// Every intermediate directory below path.
		parts := strings.Split(rel, "/")
		for i := 1; i < len(parts); i++ {
			if !recursive && i > 1 {
				break
			}
			dir := prefix + strings.Join(parts[:i], "/")
			if !seenDirs[dir] {
				seenDirs[dir] = true
				files = append(files, intake.FileInfo{Name: parts[i-1], Path: dir, IsDir: true})
			}
		}

		if recursive || len(parts) == 1 {
			files = append(files, fileInfo(filePath, file))
		}
	}

	sort.Slice(files, func(i, j int) bool {
		return files[i].Path < files[j].Path
	})
	return files, nil
}

// Move implements intake.CanMove for in-memory file moving.
func (a *Adapter) Move(ctx context.Context, src, dst string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	src = normalizePath(src)
	dst = normalizePath(dst)
	if !isValidPath(src) || !isValidPath(dst) {
		return &intake.PathError{Op: "move", Path: src, Err: intake.ErrNotAllowed}
	}

	a.mu.Lock()
	srcFile, exists := a.files[src]
	if !exists {
		a.mu.Unlock()
		return &intake.PathError{Op: "move", Path: src, Err: intake.ErrNotExist}
	}
	if _, taken := a.files[dst]; taken {
		a.mu.Unlock()
		return &intake.PathError{Op: "move", Path: dst, Err: intake.ErrExist}
	}
	a.files[dst] = srcFile
	srcFile.modTime = time.Now()
	delete(a.files, src)
	a.mu.Unlock()

	a.notifyWatchers(src, intake.EventRename)
	a.notifyWatchers(dst, intake.EventCreate)
	return nil
}

// Checksum implements intake.CanChecksum for in-memory files.
func (a *Adapter) Checksum(ctx context.Context, path string, algorithm intake.ChecksumAlgorithm) (string, error) {
	data, err := a.ReadAll(ctx, path)
	if err != nil {
		return "", err
	}
	checksum, err := intake.CalculateChecksum(bytes.NewReader(data), algorithm)
	if err != nil {
		return "", &intake.PathError{Op: "checksum", Path: path, Err: err}
	}
	return checksum, nil
}

// Metadata returns the metadata stored with a file.
func (a *Adapter) Metadata(path string) (map[string]string, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()

	file, exists := a.files[normalizePath(path)]
	if !exists {
		return nil, false
	}
	return maps.Clone(file.metadata), true
}

// Clear removes all files from the memory filesystem
// Useful for testing cleanup
func (a *Adapter) Clear() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.files = make(map[string]*memoryFile)
	a.size = 0
}

// Size returns the current total size of all stored files
func (a *Adapter) Size() int64 {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.size
}

// FileCount returns the number of files stored
func (a *Adapter) FileCount() int {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return len(a.files)
}

// ============================================================================
// Watcher Implementation
// ============================================================================

// watchBuffer is the number of events a slow watcher may fall behind before
// further events for it are dropped.
const watchBuffer = 64

// Watch implements intake.CanWatch for in-memory file change detection.
// Supports glob patterns like "**/*.txt", "*.json", "config/*".
func (a *Adapter) Watch(ctx context.Context, pattern string) (<-chan intake.Event, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if pattern == "" {
		pattern = "*"
	}

	matcher, err := glob.Compile(pattern, '/')
	if err != nil {
		return nil, &intake.PathError{Op: "watch", Path: pattern, Err: err}
	}

	entry := &watchEntry{matcher: matcher, events: make(chan intake.Event, watchBuffer)}
	a.watchMu.Lock()
	a.watches = append(a.watches, entry)
	a.watchMu.Unlock()

	// Clean up when context is cancelled
	go func() {
		<-ctx.Done()
		a.removeWatch(entry)
	}()

	return entry.events, nil
}

// notifyWatchers sends an event to all watchers whose pattern matches path
func (a *Adapter) notifyWatchers(path string, op intake.EventOp) {
	a.watchMu.Lock()
	defer a.watchMu.Unlock()
	for _, entry := range a.watches {
		if !entry.matcher.Match(path) {
			continue
		}
		select {
		case entry.events <- intake.Event{Path: path, Op: op}:
		default:
		}
	}
}

// removeWatch removes a watch entry and closes its channel
func (a *Adapter) removeWatch(entry *watchEntry) {
	a.watchMu.Lock()
	defer a.watchMu.Unlock()
	for i, e := range a.watches {
		if e == entry {
			a.watches = append(a.watches[:i], a.watches[i+1:]...)
			close(entry.events)
			return
		}
	}
}

// isDir reports whether path is the root or holds at least one file.
// Must be called with lock held
func (a *Adapter) isDir(path string) bool {
	if path == "" {
		return true
	}
	prefix := path + "/"
	for filePath := range a.files {
		if strings.HasPrefix(filePath, prefix) {
			return true
		}
	}
	return false
}

func fileInfo(path string, file *memoryFile) intake.FileInfo {
	return intake.FileInfo{
		Name:        filepath.Base(path),
		Path:        path,
		Size:        int64(len(file.content)),
		ModTime:     file.modTime,
		ContentType: file.contentType,
	}
}

// normalizePath normalizes a file path
func normalizePath(path string) string {
	path = strings.TrimPrefix(path, "/")
	if path == "" || path == "." {
		return ""
	}
	return filepath.ToSlash(filepath.Clean(path))
}

// isValidPath checks if a path is valid (no directory traversal)
func isValidPath(path string) bool {
	return path != "" && path != ".." && !strings.HasPrefix(path, "../")
}

// Ensure Adapter implements interfaces
var (
	_ intake.FileSystem  = (*Adapter)(nil)
	_ intake.CanMove     = (*Adapter)(nil)
	_ intake.CanChecksum = (*Adapter)(nil)
	_ intake.CanWatch    = (*Adapter)(nil)
)
