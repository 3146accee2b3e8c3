// Package storage persists the pipeline's caches as namespaced key/value entries.
package storage

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"go.uber.org/zap"
)

// Store kinds accepted by Open.
const (
	KindSQLite = "sqlite"
	KindBadger = "badger"
)

// ErrClosed is returned by operations on a closed store.
var ErrClosed = errors.New("storage: store is closed")

// Store is a namespaced key/value store. Each namespace is an independent map;
// cache owners load a namespace once and write back only what they added.
type Store interface {
	// LoadAll returns every entry of ns. A namespace that was never written is empty, not an error.
	LoadAll(ctx context.Context, ns string) (map[string][]byte, error)
	// PutMany upserts entries into ns atomically.
	PutMany(ctx context.Context, ns string, entries map[string][]byte) error
	// Delete removes keys from ns. Missing keys are ignored.
	Delete(ctx context.Context, ns string, keys ...string) error
	// Count returns the number of entries in ns.
	Count(ctx context.Context, ns string) (int64, error)
	Close() error
}

// Open opens the store of the given kind under dir. SQLite uses dir/cache.db,
// Badger uses dir/badger.
func Open(kind, dir string, logger *zap.Logger) (Store, error) {
	switch kind {
	case KindSQLite, "":
		s, err := NewSQLiteStore(filepath.Join(dir, "cache.db"))
		if err != nil {
			return nil, err
		}
		return s, nil
	case KindBadger:
		s, err := NewBadgerStore(filepath.Join(dir, "badger"), logger)
		if err != nil {
			return nil, err
		}
		return s, nil
	default:
		return nil, fmt.Errorf("unknown store kind %q", kind)
	}
}

// Paths returns the on-disk locations used by a store of kind under dir.
func Paths(kind, dir string) []string {
	if kind == KindBadger {
		return []string{filepath.Join(dir, "badger")}
	}
	p := filepath.Join(dir, "cache.db")
	return []string{p, p + "-wal", p + "-shm"}
}
