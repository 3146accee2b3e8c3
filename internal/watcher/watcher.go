// Package watcher keeps the index current after the initial run by re-indexing
// files as they change under the source directory.
package watcher

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/hyperjump/vectorize/internal/models"
)

const (
	defaultDebounce      = 400 * time.Millisecond
	defaultFlushInterval = 30 * time.Second
)

// Handler is the part of the indexer the watcher drives.
type Handler interface {
	IndexFile(ctx context.Context, path string) (models.FileOutcome, error)
	Forget(path string)
	Accepts(root, path string) bool
	ExcludesDir(root, dir string) bool
	Flush(ctx context.Context) error
}

// Watcher re-indexes changed files under one root. Bursts of events for the
// same path are collapsed into a single IndexFile call.
type Watcher struct {
	root          string
	recursive     bool
	handler       Handler
	debounce      time.Duration
	flushInterval time.Duration
	logger        *zap.Logger

	fsw *fsnotify.Watcher
	ctx context.Context

	mu       sync.Mutex
	timers   map[string]pending
	gen      uint64
	dirty    bool
	inflight sync.WaitGroup
}

// pending is a debounce timer for one path. gen identifies the scheduling
// that armed it, so a timer that fires after being replaced does nothing.
type pending struct {
	timer *time.Timer
	gen   uint64
}

// Option configures a Watcher.
type Option func(*Watcher)

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(w *Watcher) { w.logger = l }
}

// WithDebounce sets how long a path must be quiet before it is indexed.
func WithDebounce(d time.Duration) Option {
	return func(w *Watcher) { w.debounce = d }
}

// WithFlushInterval sets how often cache changes are persisted while watching.
func WithFlushInterval(d time.Duration) Option {
	return func(w *Watcher) { w.flushInterval = d }
}

// New returns a watcher for root. Nothing is watched until Run.
func New(root string, recursive bool, h Handler, opts ...Option) (*Watcher, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}
	w := &Watcher{
		root:          filepath.Clean(abs),
		recursive:     recursive,
		handler:       h,
		debounce:      defaultDebounce,
		flushInterval: defaultFlushInterval,
		logger:        zap.NewNop(),
		timers:        make(map[string]pending),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w, nil
}

// Run watches until ctx is cancelled. Pending debounced paths are dropped on
// exit, in-flight files finish, and the caches are flushed once more.
func (w *Watcher) Run(ctx context.Context) error {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	w.fsw = fsw
	w.ctx = ctx
	defer fsw.Close()

	if err := w.addTree(w.root); err != nil {
		return err
	}
	w.logger.Info("watching for changes", zap.String("root", w.root), zap.Bool("recursive", w.recursive))

	ticker := time.NewTicker(w.flushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return w.shutdown()
		case ev, ok := <-fsw.Events:
			if !ok {
				return w.shutdown()
			}
			w.handleEvent(ev)
		case err, ok := <-fsw.Errors:
			if !ok {
				return w.shutdown()
			}
			w.logger.Warn("watcher error", zap.Error(err))
		case <-ticker.C:
			w.flush(ctx)
		}
	}
}

func (w *Watcher) shutdown() error {
	w.mu.Lock()
	for path, p := range w.timers {
		p.timer.Stop()
		delete(w.timers, path)
	}
	w.mu.Unlock()
	w.inflight.Wait()
	if err := w.handler.Flush(context.WithoutCancel(w.ctx)); err != nil {
		return err
	}
	return nil
}

func (w *Watcher) flush(ctx context.Context) {
	w.mu.Lock()
	dirty := w.dirty
	w.dirty = false
	w.mu.Unlock()
	if !dirty {
		return
	}
	if err := w.handler.Flush(ctx); err != nil {
		w.logger.Warn("flushing caches failed", zap.Error(err))
	}
}

// addTree watches dir, and every directory below it when recursive.
func (w *Watcher) addTree(dir string) error {
	if !w.recursive {
		return w.fsw.Add(dir)
	}
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == dir {
				return err
			}
			w.logger.Debug("cannot watch path", zap.String("path", path), zap.Error(err))
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if path != dir && !w.acceptsDir(path) {
			return filepath.SkipDir
		}
		if err := w.fsw.Add(path); err != nil {
			w.logger.Debug("cannot watch directory", zap.String("path", path), zap.Error(err))
		}
		return nil
	})
}

func (w *Watcher) acceptsDir(dir string) bool {
	return !w.handler.ExcludesDir(w.root, dir)
}

func (w *Watcher) handleEvent(ev fsnotify.Event) {
	path := filepath.Clean(ev.Name)
	if !inDir(w.root, path) {
		return
	}
	w.logger.Debug("watcher event", zap.String("op", ev.Op.String()), zap.String("path", path))

	switch {
	case ev.Has(fsnotify.Create) || ev.Has(fsnotify.Write):
		info, err := os.Stat(path)
		if err != nil {
			return
		}
		if info.IsDir() {
			if ev.Has(fsnotify.Create) && w.recursive && w.acceptsDir(path) {
				w.handleNewDirectory(path)
			}
			return
		}
		if w.handler.Accepts(w.root, path) {
			w.schedule(path)
		}
	case ev.Has(fsnotify.Remove) || ev.Has(fsnotify.Rename):
		w.cancel(path)
		if w.handler.Accepts(w.root, path) {
			w.handler.Forget(path)
			w.markDirty()
			w.logger.Info("file removed", zap.String("path", path))
		}
	}
}

// handleNewDirectory watches a directory that appeared after Run started and
// indexes what is already in it.
func (w *Watcher) handleNewDirectory(dir string) {
	if err := w.addTree(dir); err != nil {
		w.logger.Debug("cannot watch new directory", zap.String("path", dir), zap.Error(err))
		return
	}
	_ = filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return nil
		}
		if w.handler.Accepts(w.root, path) {
			w.schedule(path)
		}
		return nil
	})
}

func (w *Watcher) schedule(path string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if p, ok := w.timers[path]; ok {
		p.timer.Stop()
	}
	w.gen++
	gen := w.gen
	w.timers[path] = pending{
		timer: time.AfterFunc(w.debounce, func() { w.index(path, gen) }),
		gen:   gen,
	}
}

func (w *Watcher) cancel(path string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if p, ok := w.timers[path]; ok {
		p.timer.Stop()
		delete(w.timers, path)
	}
}

func (w *Watcher) index(path string, gen uint64) {
	w.mu.Lock()
	if p, ok := w.timers[path]; !ok || p.gen != gen {
		// cancelled or rescheduled after firing
		w.mu.Unlock()
		return
	}
	delete(w.timers, path)
	w.inflight.Add(1)
	w.mu.Unlock()
	defer w.inflight.Done()

	if w.ctx.Err() != nil {
		return
	}
	out, err := w.handler.IndexFile(w.ctx, path)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			w.logger.Warn("re-index failed", zap.String("path", path), zap.Error(err))
		}
		return
	}
	if out.Status == models.StatusSucceeded {
		w.markDirty()
	}
	w.logger.Info("file re-indexed",
		zap.String("path", path),
		zap.String("status", string(out.Status)),
		zap.Int("chunks", out.ChunksUploaded))
}

func (w *Watcher) markDirty() {
	w.mu.Lock()
	w.dirty = true
	w.mu.Unlock()
}

func inDir(dir, path string) bool {
	rel, err := filepath.Rel(dir, path)
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}
