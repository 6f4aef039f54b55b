package local

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"
	"github.com/gobwas/glob"

	"github.com/gobeaver/intake"
)

// Watch implements intake.CanWatch using fsnotify. The pattern is matched
// against paths relative to the root with '/' as separator, so "*.csv" only
// matches files at the top level and "inbox/**" everything below inbox.
// Directories created below a recursive watch are added as they appear.
func (a *Adapter) Watch(ctx context.Context, pattern string) (<-chan intake.Event, error) {
	if pattern == "" {
		pattern = "*"
	}
	matcher, err := glob.Compile(pattern, '/')
	if err != nil {
		return nil, &intake.PathError{Op: "watch", Path: pattern, Err: err}
	}

	watchDir, err := a.resolve("watch", staticPrefix(pattern))
	if err != nil {
		return nil, err
	}
	recursive := strings.Contains(pattern, "**")

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, &intake.PathError{Op: "watch", Path: pattern, Err: err}
	}
	if err := addDirs(w, watchDir, recursive); err != nil {
		w.Close()
		return nil, &intake.PathError{Op: "watch", Path: pattern, Err: err}
	}

	events := make(chan intake.Event, 64)
	go func() {
		defer close(events)
		defer w.Close()

		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-w.Events:
				if !ok {
					return
				}
				if recursive && ev.Has(fsnotify.Create) {
					if info, err := os.Stat(ev.Name); err == nil && info.IsDir() {
						_ = addDirs(w, ev.Name, true)
					}
				}

				rel, err := filepath.Rel(a.root, ev.Name)
				if err != nil {
					continue
				}
				rel = filepath.ToSlash(rel)
				op, ok := eventOp(ev)
				if !ok || isTempName(filepath.Base(rel)) || !matcher.Match(rel) {
					continue
				}

				select {
				case events <- intake.Event{Path: rel, Op: op}:
				case <-ctx.Done():
					return
				}
			case _, ok := <-w.Errors:
				if !ok {
					return
				}
				// Overflow or transient errors; keep watching.
			}
		}
	}()

	return events, nil
}

// staticPrefix returns the directory part of pattern before the first glob
// metacharacter.
func staticPrefix(pattern string) string {
	idx := strings.IndexAny(pattern, "*?[{")
	if idx < 0 {
		return filepath.Dir(pattern)
	}
	dir := pattern[:idx]
	if slash := strings.LastIndex(dir, "/"); slash >= 0 {
		return dir[:slash]
	}
	return ""
}

func addDirs(w *fsnotify.Watcher, dir string, recursive bool) error {
	if !recursive {
		return w.Add(dir)
	}
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return w.Add(path)
		}
		return nil
	})
}

func eventOp(ev fsnotify.Event) (intake.EventOp, bool) {
	switch {
	case ev.Has(fsnotify.Create):
		return intake.EventCreate, true
	case ev.Has(fsnotify.Write):
		return intake.EventWrite, true
	case ev.Has(fsnotify.Remove):
		return intake.EventRemove, true
	case ev.Has(fsnotify.Rename):
		return intake.EventRename, true
	default:
		return "", false
	}
}
