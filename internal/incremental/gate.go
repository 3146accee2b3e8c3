// Package incremental remembers the modification time of every file that was
// uploaded successfully, so unchanged files can be skipped on the next run.
package incremental

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/hyperjump/vectorize/internal/storage"
)

// Gate maps absolute paths to the mtime recorded at their last successful upload.
// It is safe for concurrent use. Record and Forget change memory only; Flush persists.
type Gate struct {
	store  storage.Store
	ns     string
	logger *zap.Logger

	mu      sync.RWMutex
	mtimes  map[string]time.Time
	dirty   map[string]struct{}
	removed map[string]struct{}
}

// Option configures a Gate.
type Option func(*Gate)

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(g *Gate) {
		g.logger = logger
	}
}

// New returns an empty gate persisted in namespace ns of store. A nil store keeps it in memory.
func New(store storage.Store, ns string, opts ...Option) *Gate {
	g := &Gate{
		store:   store,
		ns:      ns,
		logger:  zap.NewNop(),
		mtimes:  make(map[string]time.Time),
		dirty:   make(map[string]struct{}),
		removed: make(map[string]struct{}),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Load replaces the in-memory map with the persisted namespace. On error the
// gate is left empty, which makes every file look changed.
func (g *Gate) Load(ctx context.Context) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.mtimes = make(map[string]time.Time)
	g.dirty = make(map[string]struct{})
	g.removed = make(map[string]struct{})
	if g.store == nil {
		return nil
	}
	raw, err := g.store.LoadAll(ctx, g.ns)
	if err != nil {
		return fmt.Errorf("load file cache %s: %w", g.ns, err)
	}
	for path, v := range raw {
		ns, err := strconv.ParseInt(string(v), 10, 64)
		if err != nil {
			g.logger.Warn("skipping corrupt file cache entry", zap.String("path", path))
			continue
		}
		g.mtimes[path] = time.Unix(0, ns)
	}
	return nil
}

// ShouldSkip reports whether path was uploaded at or after mtime.
// Files never recorded are never skipped.
func (g *Gate) ShouldSkip(path string, mtime time.Time) bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	cached, ok := g.mtimes[path]
	return ok && !cached.Before(mtime)
}

// Record stores mtime for path. Call only after the file's upload succeeded.
func (g *Gate) Record(path string, mtime time.Time) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.mtimes[path] = mtime
	g.dirty[path] = struct{}{}
	delete(g.removed, path)
}

// Forget drops path, e.g. after the file was deleted.
func (g *Gate) Forget(path string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, ok := g.mtimes[path]; !ok {
		return
	}
	delete(g.mtimes, path)
	delete(g.dirty, path)
	g.removed[path] = struct{}{}
}

// Lookup returns the recorded mtime for path.
func (g *Gate) Lookup(path string) (time.Time, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	t, ok := g.mtimes[path]
	return t, ok
}

// Len returns the number of recorded files.
func (g *Gate) Len() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.mtimes)
}

// Flush persists recorded and forgotten paths since the last Load or Flush.
func (g *Gate) Flush(ctx context.Context) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.store == nil {
		return nil
	}
	if len(g.dirty) > 0 {
		batch := make(map[string][]byte, len(g.dirty))
		for p := range g.dirty {
			batch[p] = []byte(strconv.FormatInt(g.mtimes[p].UnixNano(), 10))
		}
		if err := g.store.PutMany(ctx, g.ns, batch); err != nil {
			return fmt.Errorf("flush file cache %s: %w", g.ns, err)
		}
		g.dirty = make(map[string]struct{})
	}
	if len(g.removed) > 0 {
		keys := make([]string, 0, len(g.removed))
		for p := range g.removed {
			keys = append(keys, p)
		}
		if err := g.store.Delete(ctx, g.ns, keys...); err != nil {
			return fmt.Errorf("flush file cache %s: %w", g.ns, err)
		}
		g.removed = make(map[string]struct{})
	}
	return nil
}
