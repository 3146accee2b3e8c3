package main

import (
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/hyperjump/vectorize/internal/backend"
	"github.com/hyperjump/vectorize/internal/config"
	"github.com/hyperjump/vectorize/internal/embedding"
	"github.com/hyperjump/vectorize/internal/extract"
	"github.com/hyperjump/vectorize/internal/incremental"
	"github.com/hyperjump/vectorize/internal/indexer"
	"github.com/hyperjump/vectorize/internal/storage"
	"github.com/hyperjump/vectorize/internal/tokenizer"
)

// app holds the initialized services for one command.
type app struct {
	cfg      *config.Config
	logger   *zap.Logger
	store    storage.Store
	provider embedding.Provider
	backend  backend.SearchBackend
	indexer  *indexer.Indexer
}

// newApp validates cfg and wires the pipeline. The caller must Close the result.
func newApp(cfg *config.Config, logger *zap.Logger) (_ *app, err error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	a := &app{cfg: cfg, logger: logger}
	defer func() {
		if err != nil {
			_ = a.Close()
		}
	}()

	a.store, err = storage.Open(cfg.Cache.Store, cfg.Cache.Dir, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to open cache store: %w", err)
	}
	a.backend, err = backend.New(cfg.Backend, cfg.Indexing.IndexName, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize search backend: %w", err)
	}

	opts := []indexer.Option{indexer.WithLogger(logger)}
	if cfg.Indexing.IncrementalOrDefault() {
		opts = append(opts, indexer.WithGate(
			incremental.New(a.store, cfg.FileCacheName(), incremental.WithLogger(logger))))
	}

	if cfg.Indexing.Mode == config.ModeVector {
		tok, err := tokenizer.New(cfg.Tokenizer.Encoding)
		if err != nil {
			return nil, fmt.Errorf("failed to load tokenizer: %w", err)
		}
		a.provider, err = embedding.NewProvider(cfg.Embedding)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize embedding provider: %w", err)
		}
		genOpts := []embedding.GeneratorOption{
			embedding.WithLogger(logger),
			embedding.WithRetryPolicy(embedding.RetryPolicy{
				MaxAttempts: cfg.Embedding.MaxRetries,
				Delay:       cfg.Embedding.RetryDelay,
				Jitter:      cfg.Embedding.RetryJitter,
			}),
		}
		if cfg.Embedding.Provider == config.ProviderONNX {
			genOpts = append(genOpts, embedding.WithMaxTokens(cfg.Embedding.ONNXMaxTokens))
		}
		if lim := embedding.NewLimiter(cfg.Embedding.RequestsPerSecond); lim != nil {
			genOpts = append(genOpts, embedding.WithLimiter(lim))
		}
		if cfg.Cache.EmbeddingsOrDefault() {
			cache := embedding.NewCache(a.store, cfg.EmbeddingCacheName(), embedding.WithCacheLogger(logger))
			genOpts = append(genOpts, embedding.WithCache(cache))
			opts = append(opts, indexer.WithEmbeddingCache(cache))
		}
		opts = append(opts,
			indexer.WithTokenizer(tok),
			indexer.WithGenerator(embedding.NewGenerator(a.provider, tok, genOpts...)))
	}

	a.indexer, err = indexer.New(indexer.SettingsFromConfig(cfg), extract.NewRegistry(), a.backend, opts...)
	if err != nil {
		return nil, err
	}
	logger.Info("pipeline initialized",
		zap.String("mode", cfg.Indexing.Mode),
		zap.String("index", cfg.Indexing.IndexName),
		zap.String("backend", cfg.Backend.Type),
		zap.String("embedding_provider", cfg.Embedding.Provider),
		zap.String("cache_store", cfg.Cache.Store))
	return a, nil
}

// cacheNamespaces are the store namespaces owned by the configured index.
func (a *app) cacheNamespaces() []string {
	return []string{a.cfg.EmbeddingCacheName(), a.cfg.FileCacheName()}
}

// Close releases every service that was opened.
func (a *app) Close() error {
	var errs []error
	if a.backend != nil {
		errs = append(errs, a.backend.Close())
	}
	if a.provider != nil {
		errs = append(errs, a.provider.Close())
	}
	if a.store != nil {
		errs = append(errs, a.store.Close())
	}
	return errors.Join(errs...)
}

// warnLongRunning flags settings that only suit one-shot runs.
func (a *app) warnLongRunning() {
	if a.cfg.Tokenizer.Encoding == tokenizer.EncodingWords {
		a.logger.Warn("the words tokenizer keeps every distinct word in memory; use a BPE encoding for long-running processes",
			zap.String("encoding", a.cfg.Tokenizer.Encoding))
	}
}
