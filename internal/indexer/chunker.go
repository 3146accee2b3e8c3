// Package indexer drives files through extraction, chunking, embedding and upload.
package indexer

import (
	"fmt"

	"github.com/hyperjump/vectorize/internal/config"
	"github.com/hyperjump/vectorize/internal/tokenizer"
)

// Chunker splits text into overlapping token windows.
type Chunker struct {
	tok     tokenizer.Tokenizer
	size    int
	overlap int
}

// ValidateWindow rejects window parameters that could not make progress.
func ValidateWindow(size, overlap int) error {
	var problems []string
	if size <= 0 {
		problems = append(problems, fmt.Sprintf("chunk size must be positive, got %d", size))
	}
	if overlap < 0 {
		problems = append(problems, fmt.Sprintf("chunk overlap must not be negative, got %d", overlap))
	}
	if overlap >= size {
		problems = append(problems, fmt.Sprintf("chunk overlap (%d) must be less than chunk size (%d)", overlap, size))
	}
	if len(problems) > 0 {
		return &config.ConfigurationError{Problems: problems}
	}
	return nil
}

// NewChunker returns a chunker over tok with the given window, in tokens.
func NewChunker(tok tokenizer.Tokenizer, size, overlap int) (*Chunker, error) {
	if tok == nil {
		return nil, fmt.Errorf("chunker: tokenizer is required")
	}
	if err := ValidateWindow(size, overlap); err != nil {
		return nil, err
	}
	return &Chunker{tok: tok, size: size, overlap: overlap}, nil
}

// Chunk splits text into windows of at most Size tokens whose starts are
// Size-Overlap tokens apart. Text that already fits is returned unchanged as
// the only element. Windows stop once one reaches the end of the text, so
// there are ceil((N-Overlap)/(Size-Overlap)) of them for N > Size tokens.
func (c *Chunker) Chunk(text string) []string {
	tokens := c.tok.Encode(text)
	if len(tokens) <= c.size {
		return []string{text}
	}
	step := c.size - c.overlap
	chunks := make([]string, 0, (len(tokens)-c.overlap+step-1)/step)
	for start := 0; start < len(tokens); start += step {
		end := min(start+c.size, len(tokens))
		chunks = append(chunks, c.tok.Decode(tokens[start:end]))
		if end == len(tokens) {
			break
		}
	}
	return chunks
}

// Chunk is a convenience wrapper that validates the window and chunks text once.
func Chunk(tok tokenizer.Tokenizer, text string, size, overlap int) ([]string, error) {
	c, err := NewChunker(tok, size, overlap)
	if err != nil {
		return nil, err
	}
	return c.Chunk(text), nil
}
