// Package watch re-runs a job whenever schema files under a directory change.
package watch

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce lets editors finish writing before a rerun.
const DefaultDebounce = 100 * time.Millisecond

// Job is run once at start and once per settled batch of changes.
type Job func(ctx context.Context) error

// Watcher observes a directory for .xml changes.
type Watcher struct {
	dir       string
	recursive bool
	debounce  time.Duration
	logger    *slog.Logger
}

// Option configures a Watcher.
type Option func(*Watcher)

// WithRecursive also watches subdirectories, including ones created later.
func WithRecursive(recursive bool) Option {
	return func(w *Watcher) {
		w.recursive = recursive
	}
}

// WithDebounce sets how long the directory must be quiet before a rerun.
func WithDebounce(d time.Duration) Option {
	return func(w *Watcher) {
		w.debounce = d
	}
}

// WithLogger configures the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(w *Watcher) {
		w.logger = logger
	}
}

// New creates a Watcher for dir.
func New(dir string, opts ...Option) *Watcher {
	w := &Watcher{
		dir:      dir,
		debounce: DefaultDebounce,
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Run calls job, then again after every change, until ctx is cancelled.
// Job errors are logged and do not stop the loop.
func (w *Watcher) Run(ctx context.Context, job Job) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to start watcher: %w", err)
	}
	defer fw.Close()

	if err := w.add(fw, w.dir); err != nil {
		return err
	}

	w.run(ctx, job)

	timer := time.NewTimer(w.debounce)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("stopping watcher")
			return nil

		case ev, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if w.recursive && ev.Has(fsnotify.Create) {
				if err := w.add(fw, ev.Name); err == nil {
					w.logger.Debug("watching new directory", "dir", ev.Name)
				}
			}
			if !isSchema(ev.Name) {
				continue
			}
			w.logger.Debug("change detected", "file", ev.Name, "op", ev.Op.String())
			timer.Reset(w.debounce)

		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("watcher error", "err", err)

		case <-timer.C:
			w.run(ctx, job)
		}
	}
}

func (w *Watcher) run(ctx context.Context, job Job) {
	if err := job(ctx); err != nil && ctx.Err() == nil {
		w.logger.Error("run failed", "err", err)
	}
	w.logger.Info("waiting for changes", "dir", w.dir)
}

// add watches path, and its subdirectories when recursive. A path that is
// not a directory is rejected.
func (w *Watcher) add(fw *fsnotify.Watcher, path string) error {
	if !w.recursive {
		return fw.Add(path)
	}
	return filepath.WalkDir(path, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			if p == path {
				return fmt.Errorf("%s is not a directory", path)
			}
			return nil
		}
		return fw.Add(p)
	})
}

func isSchema(name string) bool {
	return strings.EqualFold(filepath.Ext(name), ".xml")
}
