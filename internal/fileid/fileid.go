// Package fileid derives deterministic record keys and content hashes.
//
// Keys are lowercase hex so they are valid document keys for every backend
// (letters, digits, dash and underscore only).
package fileid

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"path/filepath"
)

// FileDocID returns a stable document ID for the given absolute path.
// Same path always yields the same ID.
func FileDocID(absolutePath string) string {
	return hashHex(filepath.Clean(absolutePath))
}

// ChunkID returns the ID of chunk i of the file at absolutePath.
func ChunkID(absolutePath string, i int) string {
	return hashHex(fmt.Sprintf("%s_chunk_%d", filepath.Clean(absolutePath), i))
}

// ContentHash is the embedding cache key of text: hex sha256 of its exact bytes.
func ContentHash(text string) string {
	return hashHex(text)
}

func hashHex(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])
}
