// Package config provides configuration loading and validation for the vectorize pipeline.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/hyperjump/vectorize/pkg/utils"
)

// Indexing modes.
const (
	ModeVector   = "vector"
	ModeStandard = "standard"
)

// Embedding providers.
const (
	ProviderAzureOpenAI = "azure-openai"
	ProviderOpenAI      = "openai"
	ProviderONNX        = "onnx"
	ProviderMock        = "mock"
)

// Search backends.
const (
	BackendHTTP  = "http"
	BackendBleve = "bleve"
)

// Cache stores.
const (
	StoreSQLite = "sqlite"
	StoreBadger = "badger"
)

// Config holds all configuration for the application.
type Config struct {
	Debug     bool            `yaml:"debug"`
	LogLevel  string          `yaml:"log_level"`
	Source    SourceConfig    `yaml:"source"`
	Indexing  IndexingConfig  `yaml:"indexing"`
	Embedding EmbeddingConfig `yaml:"embedding"`
	Tokenizer TokenizerConfig `yaml:"tokenizer"`
	Backend   BackendConfig   `yaml:"backend"`
	Cache     CacheConfig     `yaml:"cache"`
	Server    ServerConfig    `yaml:"server"`
}

// SourceConfig describes the file tree to index.
type SourceConfig struct {
	Path               string   `yaml:"path"`
	Recursive          *bool    `yaml:"recursive"`
	Extensions         []string `yaml:"extensions"`
	ExcludeDirectories []string `yaml:"exclude_directories"`
	// ExcludePatterns are gitignore-style patterns matched against paths relative to Path.
	ExcludePatterns []string `yaml:"exclude_patterns"`
	MaxFileSizeMB   int      `yaml:"max_file_size_mb"`
}

// RecursiveOrDefault returns whether to walk recursively; defaults to true when unset.
func (s *SourceConfig) RecursiveOrDefault() bool {
	if s.Recursive != nil {
		return *s.Recursive
	}
	return true
}

// MaxFileSizeBytes converts MaxFileSizeMB to bytes.
func (s *SourceConfig) MaxFileSizeBytes() int64 {
	return int64(s.MaxFileSizeMB) * 1024 * 1024
}

// IndexingConfig holds chunking and upload settings.
type IndexingConfig struct {
	Mode         string `yaml:"mode"`
	IndexName    string `yaml:"index_name"`
	ChunkSize    int    `yaml:"chunk_size"`
	ChunkOverlap int    `yaml:"chunk_overlap"`
	BatchSize    int    `yaml:"batch_size"`
	Workers      int    `yaml:"workers"`
	Incremental  *bool  `yaml:"incremental"`
}

// IncrementalOrDefault returns whether unchanged files are skipped; defaults to true.
func (i *IndexingConfig) IncrementalOrDefault() bool {
	if i.Incremental != nil {
		return *i.Incremental
	}
	return true
}

// EmbeddingConfig selects and tunes the embedding provider.
type EmbeddingConfig struct {
	Provider          string        `yaml:"provider"`
	Endpoint          string        `yaml:"endpoint"`
	APIKey            string        `yaml:"api_key"`
	APIVersion        string        `yaml:"api_version"`
	Model             string        `yaml:"model"`
	Dimensions        int           `yaml:"dimensions"`
	MaxRetries        int           `yaml:"max_retries"`
	RetryDelay        time.Duration `yaml:"retry_delay"`
	RetryJitter       bool          `yaml:"retry_jitter"`
	Concurrency       int           `yaml:"concurrency"`
	RequestsPerSecond float64       `yaml:"requests_per_second"`
	ONNXModelPath     string        `yaml:"onnx_model_path"`
	ONNXMaxTokens     int           `yaml:"onnx_max_tokens"`
}

// TokenizerConfig selects the tokenizer used for chunking and truncation.
type TokenizerConfig struct {
	// Encoding is a tiktoken encoding name, or "words" for whitespace tokens.
	Encoding string `yaml:"encoding"`
}

// BackendConfig selects the search backend receiving uploads.
type BackendConfig struct {
	Type       string        `yaml:"type"`
	Endpoint   string        `yaml:"endpoint"`
	APIKey     string        `yaml:"api_key"`
	APIVersion string        `yaml:"api_version"`
	BlevePath  string        `yaml:"bleve_path"`
	Timeout    time.Duration `yaml:"timeout"`
}

// CacheConfig controls the persistent embedding and incremental caches.
type CacheConfig struct {
	Dir        string `yaml:"dir"`
	Store      string `yaml:"store"`
	Embeddings *bool  `yaml:"embeddings"`
}

// EmbeddingsOrDefault returns whether the embedding cache is enabled; defaults to true.
func (c *CacheConfig) EmbeddingsOrDefault() bool {
	if c.Embeddings != nil {
		return *c.Embeddings
	}
	return true
}

// ServerConfig holds HTTP control API settings.
type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// Load reads .env (if present next to the config or in the working directory),
// parses the config file at path, applies environment overrides and defaults,
// and expands paths. An empty path builds the config from defaults and environment only.
func Load(path string) (*Config, error) {
	var cfg Config
	configDir, _ := os.Getwd()

	if path != "" {
		if err := loadDotEnv(filepath.Join(filepath.Dir(path), ".env")); err != nil {
			return nil, err
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
		configDir = filepath.Dir(path)
	}
	if err := loadDotEnv(".env"); err != nil {
		return nil, err
	}

	if err := ApplyEnv(&cfg); err != nil {
		return nil, err
	}
	ApplyDefaults(&cfg)

	cfg.Source.Path = expandPath(cfg.Source.Path, configDir)
	cfg.Cache.Dir = expandPath(cfg.Cache.Dir, configDir)
	cfg.Backend.BlevePath = expandPath(cfg.Backend.BlevePath, configDir)
	cfg.Embedding.ONNXModelPath = expandPath(cfg.Embedding.ONNXModelPath, configDir)

	return &cfg, nil
}

// Save writes the config to path.
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// Masked returns a copy of cfg with API keys masked, for display.
func (c *Config) Masked() *Config {
	cp := *c
	cp.Embedding.APIKey = utils.MaskSecret(c.Embedding.APIKey)
	cp.Backend.APIKey = utils.MaskSecret(c.Backend.APIKey)
	return &cp
}

// EmbeddingCacheName is the store namespace of the embedding cache for the configured index.
func (c *Config) EmbeddingCacheName() string {
	return c.Indexing.IndexName + "_embeddings"
}

// FileCacheName is the store namespace of the incremental file cache for the configured index.
func (c *Config) FileCacheName() string {
	return c.Indexing.IndexName + "_files"
}

func loadDotEnv(path string) error {
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("failed to load %s: %w", path, err)
	}
	return nil
}

// expandPath converts a path to absolute. Paths starting with "./" are relative to configDir;
// other relative paths are relative to the home directory. Empty paths stay empty.
func expandPath(path string, configDir string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	if strings.HasPrefix(path, "./") || path == "." || strings.HasPrefix(path, "../") {
		return filepath.Join(configDir, path)
	}
	if strings.HasPrefix(path, "~/") {
		path = path[2:]
	}
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, path)
	}
	return path
}
