// Package tokenizer provides the token counting used for chunk windows and
// embedding input truncation.
package tokenizer

import (
	"fmt"
	"strings"
	"sync"

	"github.com/pkoukk/tiktoken-go"
)

// EncodingWords selects the whitespace word tokenizer instead of a BPE encoding.
const EncodingWords = "words"

// Tokenizer converts text to tokens and back. Implementations must be safe for concurrent use.
type Tokenizer interface {
	Encode(text string) []int
	Decode(tokens []int) string
}

// New returns the tokenizer for the named encoding: "words" or any tiktoken encoding
// (cl100k_base, o200k_base, p50k_base, r50k_base).
func New(encoding string) (Tokenizer, error) {
	if encoding == EncodingWords {
		return NewWordTokenizer(), nil
	}
	t, err := NewTiktoken(encoding)
	if err != nil {
		return nil, err
	}
	return t, nil
}

// Truncate returns text cut to at most maxTokens tokens and whether it was cut.
func Truncate(tok Tokenizer, text string, maxTokens int) (string, bool) {
	tokens := tok.Encode(text)
	if len(tokens) <= maxTokens {
		return text, false
	}
	return tok.Decode(tokens[:maxTokens]), true
}

// Tiktoken wraps a BPE encoding. Ranks are fetched on first use and cached in
// TIKTOKEN_CACHE_DIR when that is set.
type Tiktoken struct {
	enc *tiktoken.Tiktoken
}

// NewTiktoken loads the named encoding.
func NewTiktoken(encoding string) (*Tiktoken, error) {
	enc, err := tiktoken.GetEncoding(encoding)
	if err != nil {
		return nil, fmt.Errorf("load encoding %q: %w", encoding, err)
	}
	return &Tiktoken{enc: enc}, nil
}

// Encode implements Tokenizer. Special tokens are treated as plain text.
func (t *Tiktoken) Encode(text string) []int {
	return t.enc.Encode(text, nil, nil)
}

// Decode implements Tokenizer.
func (t *Tiktoken) Decode(tokens []int) string {
	return t.enc.Decode(tokens)
}

// WordTokenizer treats each whitespace-separated word as one token.
// Decoding joins words with single spaces.
//
// Ids come from a vocabulary shared by every Encode call, so memory grows with
// the number of distinct words ever seen and is never released. Long-running
// watch or serve processes over large trees should use a BPE encoding.
type WordTokenizer struct {
	mu    sync.RWMutex
	ids   map[string]int
	words []string
}

// NewWordTokenizer returns an empty word tokenizer; its vocabulary grows as text is encoded.
func NewWordTokenizer() *WordTokenizer {
	return &WordTokenizer{ids: make(map[string]int)}
}

// Encode implements Tokenizer.
func (w *WordTokenizer) Encode(text string) []int {
	fields := strings.Fields(text)
	out := make([]int, len(fields))
	for i, f := range fields {
		out[i] = w.id(f)
	}
	return out
}

// Decode implements Tokenizer. Unknown ids are skipped.
func (w *WordTokenizer) Decode(tokens []int) string {
	w.mu.RLock()
	defer w.mu.RUnlock()
	parts := make([]string, 0, len(tokens))
	for _, id := range tokens {
		if id >= 0 && id < len(w.words) {
			parts = append(parts, w.words[id])
		}
	}
	return strings.Join(parts, " ")
}

func (w *WordTokenizer) id(word string) int {
	w.mu.RLock()
	id, ok := w.ids[word]
	w.mu.RUnlock()
	if ok {
		return id
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	if id, ok := w.ids[word]; ok {
		return id
	}
	id = len(w.words)
	w.words = append(w.words, word)
	w.ids[word] = id
	return id
}
