package fileid

import (
	"path/filepath"
	"regexp"
	"testing"
)

var keyPattern = regexp.MustCompile(`^[0-9a-f]{64}$`)

func TestFileDocID(t *testing.T) {
	id1 := FileDocID("/foo/bar.txt")
	id2 := FileDocID("/foo/bar.txt")
	if id1 != id2 {
		t.Errorf("same path should give same ID: %q vs %q", id1, id2)
	}
	if !keyPattern.MatchString(id1) {
		t.Errorf("ID should be 64 hex chars: %q", id1)
	}
}

func TestFileDocID_differentPaths(t *testing.T) {
	if FileDocID("/foo/bar.txt") == FileDocID("/foo/baz.txt") {
		t.Error("different paths should give different IDs")
	}
}

func TestFileDocID_normalized(t *testing.T) {
	id1 := FileDocID("/foo/bar")
	id2 := FileDocID("/foo/bar/")
	id3 := FileDocID("/foo/./bar")
	if id1 != id2 {
		t.Errorf("paths differing only by trailing slash should match: %q vs %q", id1, id2)
	}
	if id1 != id3 {
		t.Errorf("paths with . should normalize: %q vs %q", id1, id3)
	}
}

func TestChunkID(t *testing.T) {
	abs, _ := filepath.Abs("report.pdf")
	seen := make(map[string]int)
	for i := 0; i < 50; i++ {
		id := ChunkID(abs, i)
		if !keyPattern.MatchString(id) {
			t.Fatalf("chunk %d: bad key %q", i, id)
		}
		if prev, ok := seen[id]; ok {
			t.Fatalf("chunk %d collides with chunk %d", i, prev)
		}
		seen[id] = i
		if ChunkID(abs, i) != id {
			t.Fatalf("chunk %d: ID not deterministic", i)
		}
	}
	if ChunkID("/a/b.txt", 0) == ChunkID("/a/c.txt", 0) {
		t.Error("same index in different files should differ")
	}
	if ChunkID("/a/b.txt", 0) == FileDocID("/a/b.txt") {
		t.Error("chunk ID should differ from file ID")
	}
}

func TestContentHash(t *testing.T) {
	if ContentHash("hello") != ContentHash("hello") {
		t.Error("hash should be deterministic")
	}
	if ContentHash("hello") == ContentHash("hello ") {
		t.Error("hash should be sensitive to exact text")
	}
	// sha256("") is well known.
	if got := ContentHash(""); got != "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855" {
		t.Errorf("ContentHash(\"\") = %q", got)
	}
}
