package local

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"

	"github.com/gobeaver/intake"
)

// Adapter provides a local filesystem implementation of intake.FileSystem
type Adapter struct {
	root string
}

// New creates a new local filesystem adapter
func New(root string) (*Adapter, error) {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}

	// Ensure the root directory exists
	if err := os.MkdirAll(absRoot, 0755); err != nil {
		return nil, err
	}

	return &Adapter{
		root: absRoot,
	}, nil
}

// Root returns the absolute directory the adapter serves.
func (a *Adapter) Root() string { return a.root }

// resolve maps path below the root, rejecting escapes.
func (a *Adapter) resolve(op, path string) (string, error) {
	fullPath := filepath.Join(a.root, filepath.Clean(path))
	if !isPathUnderRoot(a.root, fullPath) {
		return "", &intake.PathError{Op: op, Path: path, Err: intake.ErrNotAllowed}
	}
	return fullPath, nil
}

// Write implements intake.FileWriter. Content goes to a hidden temporary file
// in the target directory and is renamed into place once it is complete,
// synced and its checksum matches.
func (a *Adapter) Write(ctx context.Context, path string, content io.Reader, options ...intake.Option) (*intake.WriteResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	fullPath, err := a.resolve("write", path)
	if err != nil {
		return nil, err
	}
	opts := intake.ApplyOptions(options...)

	hasher, err := intake.NewHasher(opts.ChecksumAlgorithm)
	if err != nil {
		return nil, &intake.PathError{Op: "write", Path: path, Err: err}
	}

	if !opts.Overwrite {
		if _, err := os.Stat(fullPath); err == nil {
			return nil, &intake.PathError{Op: "write", Path: path, Err: intake.ErrExist}
		}
	}

	dir := filepath.Dir(fullPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, &intake.PathError{Op: "write", Path: path, Err: err}
	}

	suffix, err := randomSuffix()
	if err != nil {
		return nil, &intake.PathError{Op: "write", Path: path, Err: err}
	}
	tmpPath := filepath.Join(dir, "."+filepath.Base(fullPath)+"."+suffix+".part")

	f, err := os.OpenFile(tmpPath, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
	if err != nil {
		return nil, &intake.PathError{Op: "write", Path: path, Err: err}
	}
	committed := false
	defer func() {
		if !committed {
			f.Close()
			os.Remove(tmpPath)
		}
	}()

	n, err := io.Copy(io.MultiWriter(f, hasher), &ctxReader{ctx: ctx, r: content})
	if err != nil {
		return nil, &intake.PathError{Op: "write", Path: path, Err: err}
	}
	if err := f.Sync(); err != nil {
		return nil, &intake.PathError{Op: "write", Path: path, Err: err}
	}
	if err := f.Close(); err != nil {
		return nil, &intake.PathError{Op: "write", Path: path, Err: err}
	}

	sum := hex.EncodeToString(hasher.Sum(nil))
	if opts.ExpectedChecksum != "" && !strings.EqualFold(sum, opts.ExpectedChecksum) {
		return nil, &intake.PathError{Op: "write", Path: path, Err: intake.ErrChecksumMismatch}
	}

	if opts.Overwrite {
		err = os.Rename(tmpPath, fullPath)
	} else {
		// Link fails if the target appeared while we were writing.
		err = os.Link(tmpPath, fullPath)
		if err == nil {
			os.Remove(tmpPath)
		}
	}
	if err != nil {
		if errors.Is(err, os.ErrExist) {
			err = intake.ErrExist
		}
		return nil, &intake.PathError{Op: "write", Path: path, Err: err}
	}
	committed = true

	return &intake.WriteResult{
		Path:              path,
		Size:              n,
		Checksum:          sum,
		ChecksumAlgorithm: opts.ChecksumAlgorithm,
	}, nil
}

// Read implements intake.FileReader
func (a *Adapter) Read(ctx context.Context, path string) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	fullPath, err := a.resolve("read", path)
	if err != nil {
		return nil, err
	}

	f, err := os.Open(fullPath)
	if err != nil {
		return nil, &intake.PathError{Op: "read", Path: path, Err: mapErr(err)}
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, &intake.PathError{Op: "read", Path: path, Err: err}
	}
	if info.IsDir() {
		f.Close()
		return nil, &intake.PathError{Op: "read", Path: path, Err: intake.ErrIsDir}
	}
	return f, nil
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

	fullPath, err := a.resolve("delete", path)
	if err != nil {
		return err
	}
	if err := os.Remove(fullPath); err != nil {
		return &intake.PathError{Op: "delete", Path: path, Err: mapErr(err)}
	}
	return nil
}

// FileExists implements intake.FileReader
func (a *Adapter) FileExists(ctx context.Context, path string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	fullPath, err := a.resolve("fileexists", path)
	if err != nil {
		return false, err
	}

	info, err := os.Stat(fullPath)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, &intake.PathError{Op: "fileexists", Path: path, Err: err}
	}

	// Return true only if it's a file (not a directory)
	return !info.IsDir(), nil
}

// Stat implements intake.FileReader
func (a *Adapter) Stat(ctx context.Context, path string) (*intake.FileInfo, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	fullPath, err := a.resolve("stat", path)
	if err != nil {
		return nil, err
	}

	info, err := os.Stat(fullPath)
	if err != nil {
		return nil, &intake.PathError{Op: "stat", Path: path, Err: mapErr(err)}
	}
	return fileInfo(path, fullPath, info), nil
}

// ListContents implements intake.FileReader. Temporary files of writes in
// progress are not listed.
func (a *Adapter) ListContents(ctx context.Context, path string, recursive bool) ([]intake.FileInfo, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	fullPath, err := a.resolve("listcontents", path)
	if err != nil {
		return nil, err
	}

	info, err := os.Stat(fullPath)
	if err != nil {
		return nil, &intake.PathError{Op: "listcontents", Path: path, Err: mapErr(err)}
	}
	if !info.IsDir() {
		return nil, &intake.PathError{Op: "listcontents", Path: path, Err: fmt.Errorf("not a directory")}
	}

	var files []intake.FileInfo

	if recursive {
		err = filepath.WalkDir(fullPath, func(walkPath string, d os.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if walkPath == fullPath {
				return nil
			}
			if err := ctx.Err(); err != nil {
				return err
			}
			if isTempName(d.Name()) {
				return nil
			}

			info, err := d.Info()
			if err != nil {
				return nil
			}
			relPath, err := filepath.Rel(a.root, walkPath)
			if err != nil {
				return err
			}
			files = append(files, *fileInfo(filepath.ToSlash(relPath), walkPath, info))
			return nil
		})
		if err != nil {
			return nil, &intake.PathError{Op: "listcontents", Path: path, Err: err}
		}
		return files, nil
	}

	entries, err := os.ReadDir(fullPath)
	if err != nil {
		return nil, &intake.PathError{Op: "listcontents", Path: path, Err: err}
	}

	files = make([]intake.FileInfo, 0, len(entries))
	for _, entry := range entries {
		if isTempName(entry.Name()) {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		entryPath := filepath.ToSlash(filepath.Join(path, entry.Name()))
		files = append(files, *fileInfo(entryPath, filepath.Join(fullPath, entry.Name()), info))
	}
	return files, nil
}

// Move implements intake.CanMove for native file moving/renaming.
func (a *Adapter) Move(ctx context.Context, src, dst string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	srcPath, err := a.resolve("move", src)
	if err != nil {
		return err
	}
	dstPath, err := a.resolve("move", dst)
	if err != nil {
		return err
	}

	if _, err := os.Stat(srcPath); err != nil {
		return &intake.PathError{Op: "move", Path: src, Err: mapErr(err)}
	}
	if _, err := os.Stat(dstPath); err == nil {
		return &intake.PathError{Op: "move", Path: dst, Err: intake.ErrExist}
	}

	if err := os.MkdirAll(filepath.Dir(dstPath), 0755); err != nil {
		return &intake.PathError{Op: "move", Path: dst, Err: err}
	}

	// Try rename first (works if same filesystem)
	if err := os.Rename(srcPath, dstPath); err != nil {
		// Cross-device: copy through an atomic write, then delete.
		f, err := os.Open(srcPath)
		if err != nil {
			return &intake.PathError{Op: "move", Path: src, Err: err}
		}
		_, err = a.Write(ctx, dst, f)
		f.Close()
		if err != nil {
			return err
		}
		if err := os.Remove(srcPath); err != nil {
			return &intake.PathError{Op: "move", Path: src, Err: err}
		}
	}
	return nil
}

// Checksum implements intake.CanChecksum for local files.
func (a *Adapter) Checksum(ctx context.Context, path string, algorithm intake.ChecksumAlgorithm) (string, error) {
	rc, err := a.Read(ctx, path)
	if err != nil {
		return "", err
	}
	defer rc.Close()

	checksum, err := intake.CalculateChecksum(rc, algorithm)
	if err != nil {
		return "", &intake.PathError{Op: "checksum", Path: path, Err: err}
	}
	return checksum, nil
}

// isPathUnderRoot checks if a path is under a given root directory
func isPathUnderRoot(root, path string) bool {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return false
	}
	return !filepath.IsAbs(rel) && rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

func isTempName(name string) bool {
	return strings.HasPrefix(name, ".") && strings.HasSuffix(name, ".part")
}

func fileInfo(path, fullPath string, info os.FileInfo) *intake.FileInfo {
	fi := &intake.FileInfo{
		Name:    info.Name(),
		Path:    path,
		Size:    info.Size(),
		ModTime: info.ModTime(),
		IsDir:   info.IsDir(),
	}
	if !info.IsDir() {
		fi.ContentType = getContentType(fullPath)
	}
	return fi
}

// getContentType sniffs the content type of a file from its leading bytes.
func getContentType(path string) string {
	mt, err := mimetype.DetectFile(path)
	if err != nil {
		return ""
	}
	return mt.String()
}

func mapErr(err error) error {
	switch {
	case os.IsNotExist(err):
		return intake.ErrNotExist
	case os.IsExist(err):
		return intake.ErrExist
	default:
		return err
	}
}

func randomSuffix() (string, error) {
	b := make([]byte, 8)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

// ctxReader stops a copy once ctx is done.
type ctxReader struct {
	ctx context.Context
	r   io.Reader
}

func (c *ctxReader) Read(p []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, err
	}
	return c.r.Read(p)
}

// Ensure Adapter implements interfaces
var (
	_ intake.FileSystem  = (*Adapter)(nil)
	_ intake.CanMove     = (*Adapter)(nil)
	_ intake.CanChecksum = (*Adapter)(nil)
	_ intake.CanWatch    = (*Adapter)(nil)
)
