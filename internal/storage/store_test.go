package storage

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type storeFactory func(t *testing.T, dir string) Store

var factories = map[string]storeFactory{
	"sqlite": func(t *testing.T, dir string) Store {
		s, err := NewSQLiteStore(filepath.Join(dir, "cache.db"))
		require.NoError(t, err)
		return s
	},
	"badger": func(t *testing.T, dir string) Store {
		s, err := NewBadgerStore(filepath.Join(dir, "badger"), zap.NewNop())
		require.NoError(t, err)
		return s
	},
}

func TestStore_Contract(t *testing.T) {
	for name, open := range factories {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			dir := t.TempDir()
			s := open(t, dir)

			empty, err := s.LoadAll(ctx, "docs_embeddings")
			require.NoError(t, err)
			assert.Empty(t, empty, "unknown namespace loads empty")

			require.NoError(t, s.PutMany(ctx, "docs_embeddings", map[string][]byte{
				"a": []byte("1"),
				"b": []byte("2"),
			}))
			require.NoError(t, s.PutMany(ctx, "docs_files", map[string][]byte{
				"a": []byte("other"),
			}))
			require.NoError(t, s.PutMany(ctx, "docs_embeddings", map[string][]byte{
				"b": []byte("22"),
				"c": []byte("3"),
			}))

			got, err := s.LoadAll(ctx, "docs_embeddings")
			require.NoError(t, err)
			assert.Equal(t, map[string][]byte{
				"a": []byte("1"),
				"b": []byte("22"),
				"c": []byte("3"),
			}, got)

			n, err := s.Count(ctx, "docs_files")
			require.NoError(t, err)
			assert.EqualValues(t, 1, n)

			require.NoError(t, s.Delete(ctx, "docs_embeddings", "a", "missing"))
			n, err = s.Count(ctx, "docs_embeddings")
			require.NoError(t, err)
			assert.EqualValues(t, 2, n)

			require.NoError(t, s.Close())
			require.NoError(t, s.Close(), "double close is a no-op")

			_, err = s.LoadAll(ctx, "docs_embeddings")
			assert.Error(t, err)

			reopened := open(t, dir)
			defer reopened.Close()
			got, err = reopened.LoadAll(ctx, "docs_embeddings")
			require.NoError(t, err)
			assert.Len(t, got, 2, "entries persist across reopen")
		})
	}
}

func TestStore_ManyEntries(t *testing.T) {
	for name, open := range factories {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			s := open(t, t.TempDir())
			defer s.Close()

			entries := make(map[string][]byte, 500)
			for i := 0; i < 500; i++ {
				entries[fmt.Sprintf("k%03d", i)] = []byte(fmt.Sprintf("v%d", i))
			}
			require.NoError(t, s.PutMany(ctx, "ns", entries))
			got, err := s.LoadAll(ctx, "ns")
			require.NoError(t, err)
			assert.Len(t, got, 500)
			assert.Equal(t, []byte("v499"), got["k499"])
		})
	}
}

func TestSQLiteStore_ClosedErrors(t *testing.T) {
	s, err := NewSQLiteStore(filepath.Join(t.TempDir(), "nested", "dir", "cache.db"))
	require.NoError(t, err, "parent directories are created")
	require.NoError(t, s.Close())
	err = s.PutMany(context.Background(), "ns", map[string][]byte{"a": nil})
	assert.True(t, errors.Is(err, ErrClosed))
}

func TestBadgerStore_InMemory(t *testing.T) {
	s, err := NewBadgerStore("", nil)
	require.NoError(t, err)
	defer s.Close()
	ctx := context.Background()
	require.NoError(t, s.PutMany(ctx, "ns", map[string][]byte{"x": []byte("y")}))
	got, err := s.LoadAll(ctx, "ns")
	require.NoError(t, err)
	assert.Equal(t, []byte("y"), got["x"])
}

func TestOpen(t *testing.T) {
	dir := t.TempDir()
	for _, kind := range []string{KindSQLite, KindBadger} {
		s, err := Open(kind, dir, nil)
		require.NoError(t, err, kind)
		require.NoError(t, s.Close())
		size, err := DiskUsageBytes(Paths(kind, dir)...)
		require.NoError(t, err)
		assert.Greater(t, size, int64(0), kind)
	}
	_, err := Open("redis", dir, nil)
	assert.Error(t, err)
}
