package embedding

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync/atomic"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/hyperjump/vectorize/internal/fileid"
	"github.com/hyperjump/vectorize/internal/tokenizer"
)

// MaxEmbeddingTokens is the longest input sent to a provider. Longer text is
// truncated, never re-chunked.
const MaxEmbeddingTokens = 8000

// ErrEmptyEmbedding is returned when a provider answers with no vector.
var ErrEmptyEmbedding = errors.New("provider returned an empty embedding")

// Result is the outcome of one successful Embed call.
type Result struct {
	Vector    []float32
	Cached    bool
	Truncated bool
	// Attempts is the number of remote calls made; zero on a cache hit.
	Attempts int
}

// Generator turns text into vectors. It truncates input, consults the cache,
// throttles and retries provider calls, and records what it spent.
type Generator struct {
	provider  Provider
	tok       tokenizer.Tokenizer
	cache     *Cache
	limiter   *rate.Limiter
	policy    RetryPolicy
	maxTokens int
	logger    *zap.Logger

	apiCalls  atomic.Int64
	attempts  atomic.Int64
	cacheHits atomic.Int64
	failures  atomic.Int64
}

// GeneratorOption configures a Generator.
type GeneratorOption func(*Generator)

// WithCache enables content-hash caching.
func WithCache(c *Cache) GeneratorOption {
	return func(g *Generator) {
		g.cache = c
	}
}

// WithLimiter throttles provider calls. Each attempt waits for one token.
func WithLimiter(l *rate.Limiter) GeneratorOption {
	return func(g *Generator) {
		g.limiter = l
	}
}

// WithRetryPolicy replaces DefaultRetryPolicy.
func WithRetryPolicy(p RetryPolicy) GeneratorOption {
	return func(g *Generator) {
		g.policy = p
	}
}

// WithMaxTokens overrides MaxEmbeddingTokens.
func WithMaxTokens(n int) GeneratorOption {
	return func(g *Generator) {
		if n > 0 {
			g.maxTokens = n
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) GeneratorOption {
	return func(g *Generator) {
		g.logger = logger
	}
}

// NewGenerator returns a generator over provider. tok is used for truncation.
func NewGenerator(provider Provider, tok tokenizer.Tokenizer, opts ...GeneratorOption) *Generator {
	g := &Generator{
		provider:  provider,
		tok:       tok,
		policy:    DefaultRetryPolicy,
		maxTokens: MaxEmbeddingTokens,
		logger:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Embed returns the vector for text. The cache key is the hash of the text
// actually sent, so it is taken after truncation. A failure is returned as an
// error (a *RetryExhaustedError, a *PermanentError, or the context error) and
// never leaves the cache or counters inconsistent.
func (g *Generator) Embed(ctx context.Context, text string) (Result, error) {
	input, truncated := g.truncate(text)
	hash := fileid.ContentHash(input)

	if g.cache != nil {
		if vec, ok := g.cache.Get(hash); ok {
			g.cacheHits.Add(1)
			return Result{Vector: vec, Cached: true, Truncated: truncated}, nil
		}
	}

	var vec []float32
	attempts, err := g.policy.Do(ctx, func(ctx context.Context) error {
		if g.limiter != nil {
			if err := g.limiter.Wait(ctx); err != nil {
				return err
			}
		}
		g.attempts.Add(1)
		v, err := g.provider.Embed(ctx, input)
		if err != nil {
			g.logger.Debug("embedding attempt failed", zap.Error(err))
			return err
		}
		if len(v) == 0 {
			return ErrEmptyEmbedding
		}
		vec = v
		return nil
	})
	if err != nil {
		g.failures.Add(1)
		return Result{Attempts: attempts, Truncated: truncated}, fmt.Errorf("embed text: %w", err)
	}

	g.apiCalls.Add(1)
	if g.cache != nil {
		g.cache.Put(hash, vec)
	}
	return Result{Vector: vec, Truncated: truncated, Attempts: attempts}, nil
}

// truncate skips tokenizing when the byte length already fits: every token
// covers at least one byte.
func (g *Generator) truncate(text string) (string, bool) {
	if g.tok == nil || len(text) <= g.maxTokens {
		return text, false
	}
	return tokenizer.Truncate(g.tok, text, g.maxTokens)
}

// APICalls is the number of successful remote embedding calls. Cache hits are not counted.
func (g *Generator) APICalls() int64 { return g.apiCalls.Load() }

// Attempts is the number of remote calls made, successful or not.
func (g *Generator) Attempts() int64 { return g.attempts.Load() }

// CacheHits is the number of Embed calls answered from the cache.
func (g *Generator) CacheHits() int64 { return g.cacheHits.Load() }

// Failures is the number of Embed calls that returned an error.
func (g *Generator) Failures() int64 { return g.failures.Load() }

// Dimensions reports the provider's vector size.
func (g *Generator) Dimensions() int { return g.provider.Dimensions() }

// NewLimiter returns a limiter allowing rps provider calls per second, or nil
// (unlimited) when rps is not positive.
func NewLimiter(rps float64) *rate.Limiter {
	if rps <= 0 {
		return nil
	}
	return rate.NewLimiter(rate.Limit(rps), int(math.Ceil(rps)))
}
