package config

import "time"

// DefaultExtensions are the file types indexed when none are configured.
var DefaultExtensions = []string{".txt", ".md", ".docx", ".pdf", ".xlsx", ".pptx", ".odp", ".ods", ".odt", ".rtf"}

// DefaultExcludeDirectories are directory names never descended into.
var DefaultExcludeDirectories = []string{"$RECYCLE.BIN", "System Volume Information", ".git", "node_modules", "__pycache__"}

// ApplyDefaults sets default values for any zero values in cfg.
func ApplyDefaults(cfg *Config) {
	if cfg.Source.Extensions == nil {
		cfg.Source.Extensions = append([]string(nil), DefaultExtensions...)
	}
	if cfg.Source.ExcludeDirectories == nil {
		cfg.Source.ExcludeDirectories = append([]string(nil), DefaultExcludeDirectories...)
	}
	if cfg.Source.MaxFileSizeMB == 0 {
		cfg.Source.MaxFileSizeMB = 50
	}

	if cfg.Indexing.Mode == "" {
		cfg.Indexing.Mode = ModeVector
	}
	if cfg.Indexing.IndexName == "" {
		cfg.Indexing.IndexName = "fileshare-vector-index"
	}
	// An explicit chunk size with zero overlap is a legal choice, so the overlap
	// default only applies together with the chunk size default.
	if cfg.Indexing.ChunkSize == 0 {
		cfg.Indexing.ChunkSize = 1000
		if cfg.Indexing.ChunkOverlap == 0 {
			cfg.Indexing.ChunkOverlap = 200
		}
	}
	if cfg.Indexing.BatchSize == 0 {
		cfg.Indexing.BatchSize = 100
	}
	if cfg.Indexing.Workers == 0 {
		cfg.Indexing.Workers = 4
	}

	if cfg.Embedding.Provider == "" {
		cfg.Embedding.Provider = ProviderAzureOpenAI
	}
	if cfg.Embedding.APIVersion == "" {
		cfg.Embedding.APIVersion = "2024-02-01"
	}
	if cfg.Embedding.Model == "" {
		cfg.Embedding.Model = "text-embedding-ada-002"
	}
	if cfg.Embedding.Dimensions == 0 {
		switch cfg.Embedding.Provider {
		case ProviderONNX:
			cfg.Embedding.Dimensions = 384
		default:
			cfg.Embedding.Dimensions = 1536
		}
	}
	if cfg.Embedding.MaxRetries == 0 {
		cfg.Embedding.MaxRetries = 3
	}
	if cfg.Embedding.RetryDelay == 0 {
		cfg.Embedding.RetryDelay = 2 * time.Second
	}
	if cfg.Embedding.Concurrency == 0 {
		cfg.Embedding.Concurrency = 4
	}
	if cfg.Embedding.ONNXMaxTokens == 0 {
		cfg.Embedding.ONNXMaxTokens = 256
	}

	if cfg.Tokenizer.Encoding == "" {
		cfg.Tokenizer.Encoding = "cl100k_base"
	}

	if cfg.Backend.Type == "" {
		cfg.Backend.Type = BackendHTTP
	}
	if cfg.Backend.APIVersion == "" {
		cfg.Backend.APIVersion = "2023-11-01"
	}
	if cfg.Backend.Timeout == 0 {
		cfg.Backend.Timeout = 60 * time.Second
	}

	if cfg.Cache.Dir == "" {
		cfg.Cache.Dir = "./.cache"
	}
	if cfg.Cache.Store == "" {
		cfg.Cache.Store = StoreSQLite
	}
	if cfg.Backend.BlevePath == "" {
		cfg.Backend.BlevePath = "./.cache/bleve"
	}

	if cfg.Server.Host == "" {
		cfg.Server.Host = "localhost"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
}
