package storage

import (
	"context"
	"fmt"
	"os"

	"github.com/dgraph-io/badger/v4"
	"github.com/dgraph-io/badger/v4/options"
	"go.uber.org/zap"
)

// nsSep separates namespace from key in Badger keys.
const nsSep = "\x00"

// BadgerStore implements Store on BadgerDB. Keys are stored as namespace + NUL + key.
type BadgerStore struct {
	db *badger.DB
}

type badgerLoggerAdapter struct {
	logger *zap.SugaredLogger
}

var _ badger.Logger = (*badgerLoggerAdapter)(nil)

func (bl *badgerLoggerAdapter) Errorf(msg string, items ...any)   { bl.logger.Errorf(msg, items...) }
func (bl *badgerLoggerAdapter) Warningf(msg string, items ...any) { bl.logger.Warnf(msg, items...) }
func (bl *badgerLoggerAdapter) Infof(msg string, items ...any)    { bl.logger.Debugf(msg, items...) }
func (bl *badgerLoggerAdapter) Debugf(msg string, items ...any)   { bl.logger.Debugf(msg, items...) }

// NewBadgerStore opens a BadgerDB database in dir, creating it if needed.
// An empty dir opens an in-memory database.
func NewBadgerStore(dir string, logger *zap.Logger) (*BadgerStore, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	var opts badger.Options
	if dir == "" {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create badger directory: %w", err)
		}
		opts = badger.DefaultOptions(dir)
	}
	opts.Logger = &badgerLoggerAdapter{logger: logger.Named("badger").Sugar()}
	opts.Compression = options.None

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open badger: %w", err)
	}
	return &BadgerStore{db: db}, nil
}

func nsKey(ns, key string) []byte {
	return []byte(ns + nsSep + key)
}

func nsPrefix(ns string) []byte {
	return []byte(ns + nsSep)
}

// LoadAll implements Store.
func (s *BadgerStore) LoadAll(ctx context.Context, ns string) (map[string][]byte, error) {
	if s.db.IsClosed() {
		return nil, ErrClosed
	}
	out := make(map[string][]byte)
	prefix := nsPrefix(ns)
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			item := it.Item()
			v, err := item.ValueCopy(nil)
			if err != nil {
				return err
			}
			out[string(item.Key()[len(prefix):])] = v
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// PutMany implements Store using a write batch.
func (s *BadgerStore) PutMany(ctx context.Context, ns string, entries map[string][]byte) error {
	if s.db.IsClosed() {
		return ErrClosed
	}
	if len(entries) == 0 {
		return nil
	}
	wb := s.db.NewWriteBatch()
	defer wb.Cancel()
	for k, v := range entries {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := wb.Set(nsKey(ns, k), v); err != nil {
			return fmt.Errorf("put %s/%s: %w", ns, k, err)
		}
	}
	return wb.Flush()
}

// Delete implements Store.
func (s *BadgerStore) Delete(ctx context.Context, ns string, keys ...string) error {
	if s.db.IsClosed() {
		return ErrClosed
	}
	return s.db.Update(func(txn *badger.Txn) error {
		for _, k := range keys {
			if err := txn.Delete(nsKey(ns, k)); err != nil {
				return err
			}
		}
		return nil
	})
}

// Count implements Store.
func (s *BadgerStore) Count(ctx context.Context, ns string) (int64, error) {
	if s.db.IsClosed() {
		return 0, ErrClosed
	}
	var n int64
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = nsPrefix(ns)
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			n++
		}
		return nil
	})
	return n, err
}

// Close closes the database. Closing twice is a no-op.
func (s *BadgerStore) Close() error {
	if s.db.IsClosed() {
		return nil
	}
	return s.db.Close()
}
