package embedding

import (
	"context"
	"encoding/binary"
	"fmt"
	"math"
	"sync"

	"go.uber.org/zap"

	"github.com/hyperjump/vectorize/internal/storage"
)

// Cache maps content hashes to vectors. It only grows: entries are never
// evicted or replaced by a different vector. Load and Flush are the only
// points that touch the backing store; Flush writes just the entries added
// since the previous Load or Flush.
type Cache struct {
	store  storage.Store
	ns     string
	logger *zap.Logger

	mu      sync.RWMutex
	entries map[string][]float32
	dirty   map[string]struct{}
}

// CacheOption configures a Cache.
type CacheOption func(*Cache)

// WithCacheLogger sets the logger used for load warnings.
func WithCacheLogger(logger *zap.Logger) CacheOption {
	return func(c *Cache) {
		c.logger = logger
	}
}

// NewCache returns an empty cache persisted in namespace ns of store.
// A nil store keeps the cache in memory only.
func NewCache(store storage.Store, ns string, opts ...CacheOption) *Cache {
	c := &Cache{
		store:   store,
		ns:      ns,
		logger:  zap.NewNop(),
		entries: make(map[string][]float32),
		dirty:   make(map[string]struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Load replaces the in-memory contents with the persisted namespace.
// Undecodable entries are skipped with a warning. On a store error the cache
// is left empty and the error is returned; callers may continue without it.
func (c *Cache) Load(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string][]float32)
	c.dirty = make(map[string]struct{})
	if c.store == nil {
		return nil
	}

	raw, err := c.store.LoadAll(ctx, c.ns)
	if err != nil {
		return fmt.Errorf("load embedding cache %s: %w", c.ns, err)
	}
	skipped := 0
	for k, v := range raw {
		vec, err := DecodeVector(v)
		if err != nil {
			skipped++
			continue
		}
		c.entries[k] = vec
	}
	if skipped > 0 {
		c.logger.Warn("skipped corrupt embedding cache entries",
			zap.String("namespace", c.ns), zap.Int("skipped", skipped))
	}
	c.logger.Debug("embedding cache loaded", zap.String("namespace", c.ns), zap.Int("entries", len(c.entries)))
	return nil
}

// Get returns the cached vector for hash.
func (c *Cache) Get(hash string) ([]float32, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	v, ok := c.entries[hash]
	return v, ok
}

// Put stores vec under hash unless the hash is already present.
func (c *Cache) Put(hash string, vec []float32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.entries[hash]; ok {
		return
	}
	c.entries[hash] = vec
	c.dirty[hash] = struct{}{}
}

// Len returns the number of cached vectors.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Pending returns the number of entries not yet flushed.
func (c *Cache) Pending() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.dirty)
}

// Flush persists entries added since the last Load or Flush.
func (c *Cache) Flush(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.store == nil || len(c.dirty) == 0 {
		return nil
	}
	batch := make(map[string][]byte, len(c.dirty))
	for k := range c.dirty {
		batch[k] = EncodeVector(c.entries[k])
	}
	if err := c.store.PutMany(ctx, c.ns, batch); err != nil {
		return fmt.Errorf("flush embedding cache %s: %w", c.ns, err)
	}
	c.logger.Debug("embedding cache flushed", zap.String("namespace", c.ns), zap.Int("written", len(batch)))
	c.dirty = make(map[string]struct{})
	return nil
}

// EncodeVector serialises vec as little-endian float32s.
func EncodeVector(vec []float32) []byte {
	buf := make([]byte, 4*len(vec))
	for i, f := range vec {
		binary.LittleEndian.PutUint32(buf[4*i:], math.Float32bits(f))
	}
	return buf
}

// DecodeVector is the inverse of EncodeVector.
func DecodeVector(b []byte) ([]float32, error) {
	if len(b) == 0 || len(b)%4 != 0 {
		return nil, fmt.Errorf("invalid vector encoding of %d bytes", len(b))
	}
	vec := make([]float32, len(b)/4)
	for i := range vec {
		vec[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[4*i:]))
	}
	return vec, nil
}
