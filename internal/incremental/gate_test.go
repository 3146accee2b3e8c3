package incremental

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hyperjump/vectorize/internal/storage"
)

func TestGate_ShouldSkip(t *testing.T) {
	g := New(nil, "docs_files")
	T := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	assert.False(t, g.ShouldSkip("/share/a.txt", T), "unknown files are processed")

	g.Record("/share/a.txt", T)
	assert.True(t, g.ShouldSkip("/share/a.txt", T), "equal mtime is skipped")
	assert.True(t, g.ShouldSkip("/share/a.txt", T.Add(-time.Second)), "older mtime is skipped")
	assert.False(t, g.ShouldSkip("/share/a.txt", T.Add(time.Nanosecond)), "newer mtime is processed")
	assert.False(t, g.ShouldSkip("/share/b.txt", T))
}

func TestGate_PersistsAcrossRuns(t *testing.T) {
	ctx := context.Background()
	store, err := storage.NewSQLiteStore(filepath.Join(t.TempDir(), "cache.db"))
	require.NoError(t, err)
	defer store.Close()

	T := time.Date(2024, 5, 1, 12, 0, 0, 123456789, time.UTC)
	g := New(store, "docs_files")
	require.NoError(t, g.Load(ctx))
	g.Record("/share/a.txt", T)
	g.Record("/share/b.txt", T)

	before := New(store, "docs_files")
	require.NoError(t, before.Load(ctx))
	assert.Equal(t, 0, before.Len(), "nothing is persisted before Flush")

	require.NoError(t, g.Flush(ctx))

	next := New(store, "docs_files")
	require.NoError(t, next.Load(ctx))
	assert.Equal(t, 2, next.Len())
	got, ok := next.Lookup("/share/a.txt")
	require.True(t, ok)
	assert.True(t, got.Equal(T), "nanosecond precision survives")
	assert.True(t, next.ShouldSkip("/share/a.txt", T))

	next.Forget("/share/b.txt")
	require.NoError(t, next.Flush(ctx))

	last := New(store, "docs_files")
	require.NoError(t, last.Load(ctx))
	assert.Equal(t, 1, last.Len())
	_, ok = last.Lookup("/share/b.txt")
	assert.False(t, ok)
}

func TestGate_LoadSkipsCorruptEntries(t *testing.T) {
	ctx := context.Background()
	store, err := storage.NewBadgerStore("", nil)
	require.NoError(t, err)
	defer store.Close()
	require.NoError(t, store.PutMany(ctx, "ns", map[string][]byte{
		"/ok":  []byte("1700000000000000000"),
		"/bad": []byte("yesterday"),
	}))

	g := New(store, "ns")
	require.NoError(t, g.Load(ctx))
	assert.Equal(t, 1, g.Len())
}

func TestGate_Concurrent(t *testing.T) {
	g := New(nil, "ns")
	now := time.Now()
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			p := filepath.Join("/share", string(rune('a'+i)))
			for j := 0; j < 100; j++ {
				g.Record(p, now)
				_ = g.ShouldSkip(p, now)
			}
		}(i)
	}
	wg.Wait()
	assert.Equal(t, 8, g.Len())
}
