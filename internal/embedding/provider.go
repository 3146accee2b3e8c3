// Package embedding turns chunk text into vectors. It holds the provider
// implementations, the persistent content-hash cache and the retrying generator.
package embedding

import (
	"context"
	"fmt"

	"github.com/hyperjump/vectorize/internal/config"
)

// Provider produces a vector embedding for one text. Implementations must be
// safe for concurrent use.
type Provider interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	Dimensions() int
	Close() error
}

// NewProvider builds the provider selected by cfg.Provider.
func NewProvider(cfg config.EmbeddingConfig) (Provider, error) {
	switch cfg.Provider {
	case config.ProviderAzureOpenAI, config.ProviderOpenAI:
		p, err := NewOpenAIProvider(OpenAIOptions{
			Azure:      cfg.Provider == config.ProviderAzureOpenAI,
			Endpoint:   cfg.Endpoint,
			APIKey:     cfg.APIKey,
			APIVersion: cfg.APIVersion,
			Model:      cfg.Model,
			Dimensions: cfg.Dimensions,
		})
		if err != nil {
			return nil, err
		}
		return p, nil
	case config.ProviderONNX:
		p, err := NewONNXProvider(cfg.ONNXModelPath, cfg.Dimensions, cfg.ONNXMaxTokens)
		if err != nil {
			return nil, err
		}
		return p, nil
	case config.ProviderMock:
		return NewMockProvider(cfg.Dimensions), nil
	default:
		return nil, fmt.Errorf("unknown embedding provider: %s (supported: %s, %s, %s, %s)",
			cfg.Provider, config.ProviderAzureOpenAI, config.ProviderOpenAI, config.ProviderONNX, config.ProviderMock)
	}
}
