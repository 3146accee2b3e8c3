package config

import (
	"fmt"
	"strings"
)

// ConfigurationError lists every problem found in a configuration. It is fatal
// and reported before any work starts.
type ConfigurationError struct {
	Problems []string
}

func (e *ConfigurationError) Error() string {
	if len(e.Problems) == 1 {
		return "configuration error: " + e.Problems[0]
	}
	return fmt.Sprintf("configuration errors:\n  - %s", strings.Join(e.Problems, "\n  - "))
}

// Validate checks cfg and returns a *ConfigurationError when anything is wrong.
func (c *Config) Validate() error {
	var p []string
	add := func(format string, args ...any) { p = append(p, fmt.Sprintf(format, args...)) }

	if c.Source.Path == "" {
		add("source.path (FILE_SHARE_PATH) is required")
	}
	if c.Source.MaxFileSizeMB < 1 {
		add("source.max_file_size_mb must be at least 1, got %d", c.Source.MaxFileSizeMB)
	}
	if len(c.Source.Extensions) == 0 {
		add("source.extensions must not be empty")
	}

	switch c.Indexing.Mode {
	case ModeVector, ModeStandard:
	default:
		add("indexing.mode must be %q or %q, got %q", ModeVector, ModeStandard, c.Indexing.Mode)
	}
	if c.Indexing.IndexName == "" {
		add("indexing.index_name is required")
	}
	if c.Indexing.ChunkSize < 100 || c.Indexing.ChunkSize > 8000 {
		add("indexing.chunk_size must be between 100 and 8000, got %d", c.Indexing.ChunkSize)
	}
	if c.Indexing.ChunkOverlap < 0 {
		add("indexing.chunk_overlap must not be negative, got %d", c.Indexing.ChunkOverlap)
	}
	if c.Indexing.ChunkOverlap >= c.Indexing.ChunkSize {
		add("indexing.chunk_overlap (%d) must be less than chunk_size (%d)", c.Indexing.ChunkOverlap, c.Indexing.ChunkSize)
	}
	if c.Indexing.BatchSize < 1 || c.Indexing.BatchSize > 1000 {
		add("indexing.batch_size must be between 1 and 1000, got %d", c.Indexing.BatchSize)
	}
	if c.Indexing.Workers < 1 {
		add("indexing.workers must be at least 1, got %d", c.Indexing.Workers)
	}

	if c.Indexing.Mode == ModeVector {
		c.validateEmbedding(add)
	}
	c.validateBackend(add)

	switch c.Cache.Store {
	case StoreSQLite, StoreBadger:
	default:
		add("cache.store must be %q or %q, got %q", StoreSQLite, StoreBadger, c.Cache.Store)
	}
	if c.Cache.Dir == "" {
		add("cache.dir is required")
	}

	if len(p) > 0 {
		return &ConfigurationError{Problems: p}
	}
	return nil
}

func (c *Config) validateEmbedding(add func(string, ...any)) {
	e := c.Embedding
	switch e.Provider {
	case ProviderAzureOpenAI, ProviderOpenAI:
		if e.APIKey == "" {
			add("embedding.api_key (AZURE_OPENAI_KEY) is required for provider %q", e.Provider)
		}
		if e.Provider == ProviderAzureOpenAI {
			if e.Endpoint == "" {
				add("embedding.endpoint (AZURE_OPENAI_ENDPOINT) is required")
			} else if !strings.HasPrefix(e.Endpoint, "https://") {
				add("embedding.endpoint must start with https://, got %q", e.Endpoint)
			}
		}
		if e.Dimensions != 1536 && e.Dimensions != 3072 {
			add("embedding.dimensions must be 1536 or 3072, got %d", e.Dimensions)
		}
	case ProviderONNX:
		if e.ONNXModelPath == "" {
			add("embedding.onnx_model_path is required for provider %q", e.Provider)
		}
		if e.Dimensions < 1 {
			add("embedding.dimensions must be positive, got %d", e.Dimensions)
		}
	case ProviderMock:
		if e.Dimensions < 1 {
			add("embedding.dimensions must be positive, got %d", e.Dimensions)
		}
	default:
		add("embedding.provider %q is not supported", e.Provider)
	}
	if e.MaxRetries < 1 {
		add("embedding.max_retries must be at least 1, got %d", e.MaxRetries)
	}
	if e.RetryDelay < 0 {
		add("embedding.retry_delay must not be negative")
	}
	if e.Concurrency < 1 {
		add("embedding.concurrency must be at least 1, got %d", e.Concurrency)
	}
	if e.RequestsPerSecond < 0 {
		add("embedding.requests_per_second must not be negative")
	}
}

func (c *Config) validateBackend(add func(string, ...any)) {
	b := c.Backend
	switch b.Type {
	case BackendHTTP:
		if b.Endpoint == "" {
			add("backend.endpoint (AZURE_SEARCH_ENDPOINT) is required")
		} else if !strings.HasPrefix(b.Endpoint, "https://") {
			add("backend.endpoint must start with https://, got %q", b.Endpoint)
		}
		if b.APIKey == "" {
			add("backend.api_key (AZURE_SEARCH_KEY) is required")
		}
	case BackendBleve:
		if b.BlevePath == "" {
			add("backend.bleve_path is required for the bleve backend")
		}
	default:
		add("backend.type %q is not supported", b.Type)
	}
}
