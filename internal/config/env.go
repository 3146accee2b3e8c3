package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// ApplyEnv overrides cfg with any of the recognised environment variables that are set.
// Malformed numeric values are reported as a ConfigurationError.
func ApplyEnv(cfg *Config) error {
	e := envReader{}

	e.str("FILE_SHARE_PATH", &cfg.Source.Path)
	e.list("SUPPORTED_EXTENSIONS", &cfg.Source.Extensions)
	e.list("EXCLUDE_DIRECTORIES", &cfg.Source.ExcludeDirectories)
	e.list("EXCLUDE_PATTERNS", &cfg.Source.ExcludePatterns)
	e.int("MAX_FILE_SIZE_MB", &cfg.Source.MaxFileSizeMB)

	e.str("INDEXING_MODE", &cfg.Indexing.Mode)
	e.str("AZURE_SEARCH_VECTOR_INDEX_NAME", &cfg.Indexing.IndexName)
	e.int("CHUNK_SIZE", &cfg.Indexing.ChunkSize)
	e.int("CHUNK_OVERLAP", &cfg.Indexing.ChunkOverlap)
	e.int("BATCH_SIZE", &cfg.Indexing.BatchSize)
	e.int("MAX_WORKERS", &cfg.Indexing.Workers)
	e.boolPtr("INCREMENTAL_INDEXING", &cfg.Indexing.Incremental)

	e.str("EMBEDDING_PROVIDER", &cfg.Embedding.Provider)
	e.str("AZURE_OPENAI_ENDPOINT", &cfg.Embedding.Endpoint)
	e.str("AZURE_OPENAI_KEY", &cfg.Embedding.APIKey)
	e.str("AZURE_OPENAI_API_VERSION", &cfg.Embedding.APIVersion)
	e.str("AZURE_OPENAI_EMBEDDING_DEPLOYMENT", &cfg.Embedding.Model)
	e.int("EMBEDDING_DIMENSIONS", &cfg.Embedding.Dimensions)
	e.int("MAX_RETRIES", &cfg.Embedding.MaxRetries)
	e.seconds("RETRY_DELAY", &cfg.Embedding.RetryDelay)

	e.str("AZURE_SEARCH_ENDPOINT", &cfg.Backend.Endpoint)
	e.str("AZURE_SEARCH_KEY", &cfg.Backend.APIKey)

	e.str("CACHE_DIR", &cfg.Cache.Dir)
	e.boolPtr("CACHE_EMBEDDINGS", &cfg.Cache.Embeddings)

	e.str("LOG_LEVEL", &cfg.LogLevel)

	if len(e.problems) > 0 {
		return &ConfigurationError{Problems: e.problems}
	}
	return nil
}

type envReader struct {
	problems []string
}

func (e *envReader) lookup(name string) (string, bool) {
	v, ok := os.LookupEnv(name)
	if !ok {
		return "", false
	}
	v = strings.TrimSpace(v)
	return v, v != ""
}

func (e *envReader) str(name string, dst *string) {
	if v, ok := e.lookup(name); ok {
		*dst = v
	}
}

func (e *envReader) list(name string, dst *[]string) {
	v, ok := e.lookup(name)
	if !ok {
		return
	}
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	*dst = out
}

func (e *envReader) int(name string, dst *int) {
	v, ok := e.lookup(name)
	if !ok {
		return
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		e.problems = append(e.problems, fmt.Sprintf("%s must be an integer, got %q", name, v))
		return
	}
	*dst = n
}

func (e *envReader) boolPtr(name string, dst **bool) {
	v, ok := e.lookup(name)
	if !ok {
		return
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		e.problems = append(e.problems, fmt.Sprintf("%s must be a boolean, got %q", name, v))
		return
	}
	*dst = &b
}

// seconds accepts either a Go duration ("1500ms") or a plain number of seconds ("2").
func (e *envReader) seconds(name string, dst *time.Duration) {
	v, ok := e.lookup(name)
	if !ok {
		return
	}
	if d, err := time.ParseDuration(v); err == nil {
		*dst = d
		return
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		e.problems = append(e.problems, fmt.Sprintf("%s must be a duration or seconds, got %q", name, v))
		return
	}
	*dst = time.Duration(f * float64(time.Second))
}
