package embedding

import (
	"context"
	"math"

	"github.com/hyperjump/vectorize/pkg/utils"
)

// MockProvider is a deterministic provider for tests and dry runs. It returns a fixed-dimension
// vector derived from the text hash so that the same text always gets the same embedding.
type MockProvider struct {
	dimensions int
}

// NewMockProvider returns a provider that produces deterministic embeddings of the given dimensions.
func NewMockProvider(dimensions int) *MockProvider {
	if dimensions <= 0 {
		dimensions = 384
	}
	return &MockProvider{dimensions: dimensions}
}

// Embed returns a deterministic unit-length embedding based on the text hash.
func (p *MockProvider) Embed(ctx context.Context, text string) ([]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	h := hashWord(text)
	emb := make([]float32, p.dimensions)
	for i := range emb {
		emb[i] = float32(math.Sin(float64(h)*float64(i+1))*0.1 + 0.01)
	}
	utils.NormalizeL2(emb)
	return emb, nil
}

// Dimensions returns the embedding dimension.
func (p *MockProvider) Dimensions() int {
	return p.dimensions
}

// Close is a no-op.
func (p *MockProvider) Close() error {
	return nil
}
