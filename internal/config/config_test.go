package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, dir, content string) string {
	t.Helper()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := writeConfig(t, dir, `
source:
  path: "/srv/share"
indexing:
  chunk_size: 500
  chunk_overlap: 50
  batch_size: 20
embedding:
  retry_delay: 1500ms
server:
  host: "127.0.0.1"
  port: 9000
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Server.Host != "127.0.0.1" || cfg.Server.Port != 9000 {
		t.Errorf("unexpected server config: %+v", cfg.Server)
	}
	if cfg.Source.Path != "/srv/share" {
		t.Errorf("source.path = %q", cfg.Source.Path)
	}
	if cfg.Indexing.ChunkSize != 500 || cfg.Indexing.ChunkOverlap != 50 || cfg.Indexing.BatchSize != 20 {
		t.Errorf("unexpected indexing config: %+v", cfg.Indexing)
	}
	if cfg.Embedding.RetryDelay != 1500*time.Millisecond {
		t.Errorf("retry_delay = %v", cfg.Embedding.RetryDelay)
	}
	if cfg.Debug {
		t.Error("debug should default to false when unset")
	}
}

func TestLoad_defaults(t *testing.T) {
	dir := t.TempDir()
	path := writeConfig(t, dir, "debug: true\n")
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if !cfg.Debug {
		t.Error("debug should be true when set in config")
	}
	if cfg.Indexing.ChunkSize != 1000 || cfg.Indexing.ChunkOverlap != 200 {
		t.Errorf("chunk defaults = %d/%d", cfg.Indexing.ChunkSize, cfg.Indexing.ChunkOverlap)
	}
	if cfg.Indexing.BatchSize != 100 || cfg.Indexing.Workers != 4 {
		t.Errorf("batch/workers defaults = %d/%d", cfg.Indexing.BatchSize, cfg.Indexing.Workers)
	}
	if cfg.Embedding.MaxRetries != 3 || cfg.Embedding.RetryDelay != 2*time.Second {
		t.Errorf("retry defaults = %d/%v", cfg.Embedding.MaxRetries, cfg.Embedding.RetryDelay)
	}
	if cfg.Source.MaxFileSizeMB != 50 {
		t.Errorf("max file size default = %d", cfg.Source.MaxFileSizeMB)
	}
	if !cfg.Indexing.IncrementalOrDefault() || !cfg.Cache.EmbeddingsOrDefault() || !cfg.Source.RecursiveOrDefault() {
		t.Error("incremental, embedding cache and recursion should default to true")
	}
	if cfg.Cache.Dir != filepath.Join(dir, ".cache") {
		t.Errorf("cache dir = %q, want relative to config dir", cfg.Cache.Dir)
	}
}

func TestLoad_explicitZeroOverlapKept(t *testing.T) {
	path := writeConfig(t, t.TempDir(), "indexing:\n  chunk_size: 400\n  chunk_overlap: 0\n")
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Indexing.ChunkOverlap != 0 {
		t.Errorf("overlap = %d, want 0", cfg.Indexing.ChunkOverlap)
	}
}

func TestLoad_expandPathDotSlashRelativeToConfigDir(t *testing.T) {
	dir := t.TempDir()
	path := writeConfig(t, dir, `
source:
  path: "./share"
cache:
  dir: "./state"
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Source.Path != filepath.Join(dir, "share") {
		t.Errorf("source.path = %q", cfg.Source.Path)
	}
	if cfg.Cache.Dir != filepath.Join(dir, "state") {
		t.Errorf("cache.dir = %q", cfg.Cache.Dir)
	}
}

func TestLoad_envOverridesFile(t *testing.T) {
	t.Setenv("CHUNK_SIZE", "750")
	t.Setenv("RETRY_DELAY", "3")
	t.Setenv("AZURE_SEARCH_KEY", "search-key")
	t.Setenv("INCREMENTAL_INDEXING", "false")
	t.Setenv("SUPPORTED_EXTENSIONS", ".txt, .pdf")

	path := writeConfig(t, t.TempDir(), "indexing:\n  chunk_size: 500\n  chunk_overlap: 100\n")
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Indexing.ChunkSize != 750 {
		t.Errorf("chunk_size = %d, want env value 750", cfg.Indexing.ChunkSize)
	}
	if cfg.Embedding.RetryDelay != 3*time.Second {
		t.Errorf("retry_delay = %v", cfg.Embedding.RetryDelay)
	}
	if cfg.Backend.APIKey != "search-key" {
		t.Errorf("backend.api_key = %q", cfg.Backend.APIKey)
	}
	if cfg.Indexing.IncrementalOrDefault() {
		t.Error("incremental should be disabled by env")
	}
	if len(cfg.Source.Extensions) != 2 || cfg.Source.Extensions[1] != ".pdf" {
		t.Errorf("extensions = %v", cfg.Source.Extensions)
	}
}

func TestLoad_badEnvValue(t *testing.T) {
	t.Setenv("BATCH_SIZE", "lots")
	path := writeConfig(t, t.TempDir(), "")
	_, err := Load(path)
	var cfgErr *ConfigurationError
	if !errors.As(err, &cfgErr) {
		t.Fatalf("expected ConfigurationError, got %v", err)
	}
	if !strings.Contains(cfgErr.Error(), "BATCH_SIZE") {
		t.Errorf("error should name the variable: %v", cfgErr)
	}
}

func TestLoad_dotEnvNextToConfig(t *testing.T) {
	// Register restore of the original value, then make sure it is unset so .env can set it.
	t.Setenv("MAX_WORKERS", "")
	os.Unsetenv("MAX_WORKERS")

	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, ".env"), []byte("MAX_WORKERS=9\n"), 0600); err != nil {
		t.Fatal(err)
	}
	path := writeConfig(t, dir, "")
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Indexing.Workers != 9 {
		t.Errorf("workers = %d, want 9 from .env", cfg.Indexing.Workers)
	}
}

func TestLoad_missingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("expected error for missing config file")
	}
}

func TestSave_roundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	cfg := validConfig()
	if err := Save(path, cfg); err != nil {
		t.Fatal(err)
	}
	info, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	if info.Mode().Perm() != 0600 {
		t.Errorf("mode = %v, want 0600", info.Mode().Perm())
	}
	loaded, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if loaded.Embedding.RetryDelay != cfg.Embedding.RetryDelay {
		t.Errorf("retry delay = %v, want %v", loaded.Embedding.RetryDelay, cfg.Embedding.RetryDelay)
	}
	if loaded.Indexing.IndexName != cfg.Indexing.IndexName {
		t.Errorf("index name = %q", loaded.Indexing.IndexName)
	}
}

func TestCacheNames(t *testing.T) {
	cfg := validConfig()
	cfg.Indexing.IndexName = "docs"
	if cfg.EmbeddingCacheName() != "docs_embeddings" || cfg.FileCacheName() != "docs_files" {
		t.Errorf("got %q / %q", cfg.EmbeddingCacheName(), cfg.FileCacheName())
	}
}

func TestMasked(t *testing.T) {
	cfg := validConfig()
	m := cfg.Masked()
	if m.Embedding.APIKey == cfg.Embedding.APIKey || m.Backend.APIKey == cfg.Backend.APIKey {
		t.Error("keys should be masked")
	}
	if cfg.Embedding.APIKey != "embedding-key-0123456789" {
		t.Error("Masked must not modify the original")
	}
}
