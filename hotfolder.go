package intake

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path"
	"strings"
	"sync"
	"time"

	"github.com/gobwas/glob"

	"github.com/gobeaver/intake/filevalidator"
)

// Hot folder subdirectories.
const (
	AcceptedDir = "accepted"
	RejectedDir = "rejected"
)

// DefaultSettleTime is how long a dropped file must stay unchanged before it
// is considered complete.
const DefaultSettleTime = 2 * time.Second

// HotFolder validates files dropped into the root of a FileSystem. Each file
// is moved to accepted/ or rejected/; a rejected file gets a JSON report next
// to it. Files still being written, hidden files and files not matching the
// pattern are left alone.
type HotFolder struct {
	fs       FileSystem
	svc      *Service
	owner    Owner
	category filevalidator.Category
	pattern  glob.Glob
	raw      string
	settle   time.Duration
	logger   *slog.Logger
}

// HotFolderOption configures a HotFolder.
type HotFolderOption func(*HotFolder)

// WithSettleTime sets how long a file must be quiet before it is processed.
func WithSettleTime(d time.Duration) HotFolderOption {
	return func(h *HotFolder) {
		if d > 0 {
			h.settle = d
		}
	}
}

// WithHotFolderLogger sets the logger.
func WithHotFolderLogger(l *slog.Logger) HotFolderOption {
	return func(h *HotFolder) { h.logger = l }
}

// NewHotFolder creates a hot folder over fs. pattern is a glob matched
// against file names, such as "*.png" or "*.{jpg,png}".
func NewHotFolder(fs FileSystem, svc *Service, owner Owner, category filevalidator.Category, pattern string, opts ...HotFolderOption) (*HotFolder, error) {
	if pattern == "" {
		pattern = "*"
	}
	g, err := glob.Compile(pattern, '/')
	if err != nil {
		return nil, fmt.Errorf("invalid pattern %q: %w", pattern, err)
	}
	h := &HotFolder{
		fs:       fs,
		svc:      svc,
		owner:    owner,
		category: category,
		pattern:  g,
		raw:      pattern,
		settle:   DefaultSettleTime,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(h)
	}
	h.logger = h.logger.With("component", "hotfolder")
	return h, nil
}

// Candidate reports whether name, relative to the folder root, should be
// processed.
func (h *HotFolder) Candidate(name string) bool {
	if name == "" || strings.Contains(name, "/") {
		return false
	}
	if strings.HasPrefix(name, ".") || strings.HasPrefix(name, "~") {
		return false
	}
	for _, suffix := range []string{".part", ".tmp", ".crdownload", ".partial"} {
		if strings.HasSuffix(name, suffix) {
			return false
		}
	}
	return h.pattern.Match(name)
}

// Sweep processes every candidate file currently in the folder.
func (h *HotFolder) Sweep(ctx context.Context) ([]FileVerdict, error) {
	entries, err := h.fs.ListContents(ctx, "", false)
	if err != nil {
		return nil, err
	}

	var out []FileVerdict
	for _, e := range entries {
		if e.IsDir || !h.Candidate(e.Path) {
			continue
		}
		v, err := h.Process(ctx, e.Path)
		if err != nil {
			if errors.Is(err, ErrNotExist) {
				continue
			}
			return out, err
		}
		out = append(out, *v)
	}
	return out, nil
}

// Process validates one file and moves it out of the folder root.
func (h *HotFolder) Process(ctx context.Context, name string) (*FileVerdict, error) {
	policy, err := h.svc.Enforcer().Enforce(h.owner.Kind, h.category, 1)
	if err != nil {
		return nil, err
	}

	data, err := h.read(ctx, name, policy.MaxFileSize)

	var (
		verdict FileVerdict
		sum     string
	)
	switch {
	case errors.Is(err, ErrTooLarge):
		verdict = FileVerdict{
			Verdict: VerdictRejected,
			Result: filevalidator.QuickResult(name, 0, filevalidator.NewValidationError(filevalidator.ErrorTypeSize,
				fmt.Sprintf("file exceeds maximum size of %s", filevalidator.FormatSizeReadable(policy.MaxFileSize)))),
		}
	case err != nil:
		return nil, err
	default:
		res, err := h.svc.ValidateBatch(ctx, h.owner, h.category, []filevalidator.File{{
			Name:         name,
			DeclaredMIME: filevalidator.MIMEForName(name),
			DeclaredSize: int64(len(data)),
			Data:         data,
		}})
		if err != nil {
			return nil, err
		}
		verdict = res.Files[0]
		if sum, err = CalculateChecksum(bytes.NewReader(data), ChecksumSHA256); err != nil {
			return nil, err
		}
	}

	dir := RejectedDir
	if verdict.Verdict == VerdictAccepted {
		dir = AcceptedDir
	}
	dst, err := h.destination(ctx, dir, name)
	if err != nil {
		return nil, err
	}
	if err := h.move(ctx, name, dst); err != nil {
		return nil, err
	}
	// An oversized file was never read in full, so there is nothing to compare.
	if sum != "" {
		if err := VerifyChecksum(ctx, h.fs, dst, sum, ChecksumSHA256); err != nil {
			return nil, fmt.Errorf("moved %s: %w", name, err)
		}
	}
	if dir == RejectedDir {
		if err := h.writeReport(ctx, dst+".json", verdict); err != nil {
			return nil, err
		}
	}

	h.logger.InfoContext(ctx, "hot folder file processed",
		slog.String("file", name),
		slog.String("verdict", string(verdict.Verdict)),
		slog.String("moved_to", dst),
	)
	return &verdict, nil
}

// Run sweeps the folder and then processes files as they arrive, once they
// have been quiet for the settle time. It returns when ctx is done.
func (h *HotFolder) Run(ctx context.Context) error {
	watcher, ok := h.fs.(CanWatch)
	if !ok {
		return fmt.Errorf("%w: filesystem cannot be watched", ErrNotSupported)
	}
	events, err := watcher.Watch(ctx, h.raw)
	if err != nil {
		return err
	}
	if _, err := h.Sweep(ctx); err != nil {
		return err
	}

	var mu sync.Mutex
	pending := make(map[string]time.Time)
	tick := time.NewTicker(h.settle / 2)
	defer tick.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-events:
			if !ok {
				return nil
			}
			if ev.Op == EventRemove || !h.Candidate(ev.Path) {
				continue
			}
			mu.Lock()
			pending[ev.Path] = time.Now()
			mu.Unlock()
		case now := <-tick.C:
			mu.Lock()
			var ready []string
			for name, seen := range pending {
				if now.Sub(seen) >= h.settle {
					ready = append(ready, name)
					delete(pending, name)
				}
			}
			mu.Unlock()

			for _, name := range ready {
				if _, err := h.Process(ctx, name); err != nil && !errors.Is(err, ErrNotExist) {
					h.logger.ErrorContext(ctx, "hot folder file failed",
						slog.String("file", name),
						slog.Any("error", err),
					)
				}
			}
		}
	}
}

func (h *HotFolder) read(ctx context.Context, name string, limit int64) ([]byte, error) {
	rc, err := h.fs.Read(ctx, name)
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return ReadComplete(rc, limit)
}

// destination picks a free name under dir, adding a timestamp on collision.
func (h *HotFolder) destination(ctx context.Context, dir, name string) (string, error) {
	dst := path.Join(dir, name)
	exists, err := h.fs.FileExists(ctx, dst)
	if err != nil {
		return "", err
	}
	if !exists {
		return dst, nil
	}
	ext := path.Ext(name)
	stem := strings.TrimSuffix(name, ext)
	return path.Join(dir, fmt.Sprintf("%s-%d%s", stem, time.Now().UnixNano(), ext)), nil
}

func (h *HotFolder) move(ctx context.Context, src, dst string) error {
	if mover, ok := h.fs.(CanMove); ok {
		return mover.Move(ctx, src, dst)
	}

	rc, err := h.fs.Read(ctx, src)
	if err != nil {
		return err
	}
	_, err = h.fs.Write(ctx, dst, rc)
	rc.Close()
	if err != nil {
		return err
	}
	return h.fs.Delete(ctx, src)
}

func (h *HotFolder) writeReport(ctx context.Context, dst string, v FileVerdict) error {
	body, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	_, err = h.fs.Write(ctx, dst, io.MultiReader(bytes.NewReader(body), strings.NewReader("\n")), WithContentType("application/json"))
	return err
}
