package indexer

import (
	"sync"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/hyperjump/vectorize/internal/embedding"
	"github.com/hyperjump/vectorize/internal/models"
)

// embedCounts is a snapshot of the generator's counters.
type embedCounts struct {
	apiCalls, attempts, cacheHits, failures int64
}

func countsOf(g *embedding.Generator) embedCounts {
	if g == nil {
		return embedCounts{}
	}
	return embedCounts{
		apiCalls:  g.APICalls(),
		attempts:  g.Attempts(),
		cacheHits: g.CacheHits(),
		failures:  g.Failures(),
	}
}

func (c embedCounts) since(before embedCounts) embedCounts {
	return embedCounts{
		apiCalls:  c.apiCalls - before.apiCalls,
		attempts:  c.attempts - before.attempts,
		cacheHits: c.cacheHits - before.cacheHits,
		failures:  c.failures - before.failures,
	}
}

// runStats accumulates file outcomes from concurrent workers.
type runStats struct {
	mu    sync.Mutex
	stats models.RunStatistics
}

func newRunStats(mode string) *runStats {
	return &runStats{stats: models.RunStatistics{
		RunID:     uuid.NewString(),
		Mode:      mode,
		StartTime: time.Now(),
	}}
}

func (r *runStats) add(o models.FileOutcome) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s := &r.stats
	switch o.Status {
	case models.StatusSucceeded:
		s.SuccessfulFiles++
		s.TotalBytes += o.Bytes
	case models.StatusFailed, models.StatusFailedExtraction:
		s.FailedFiles++
	case models.StatusSkippedSize:
		s.SkippedFiles++
		s.SkippedBySize++
	case models.StatusSkippedUnchanged:
		s.SkippedFiles++
	}
	s.TotalChunks += o.ChunksTotal
	s.TotalEmbeddings += o.ChunksEmbedded
	s.Outcomes = append(s.Outcomes, o)
}

// discovered sets TotalFiles. Files that are never scheduled, as after a
// cancel, still count but have no outcome.
func (r *runStats) discovered(n int) {
	r.mu.Lock()
	r.stats.TotalFiles = n
	r.mu.Unlock()
}

// finish stamps the end time and returns a copy of the statistics.
func (r *runStats) finish(c embedCounts) *models.RunStatistics {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stats.EndTime = time.Now()
	r.stats.EmbeddingAPICalls = c.apiCalls
	r.stats.EmbeddingAttempts = c.attempts
	r.stats.EmbeddingCacheHits = c.cacheHits
	r.stats.FailedEmbeddings = c.failures
	out := r.stats
	out.Outcomes = append([]models.FileOutcome(nil), r.stats.Outcomes...)
	return &out
}

// LogSummary writes the run totals at info level.
func LogSummary(logger *zap.Logger, s *models.RunStatistics) {
	logger.Info("indexing run complete",
		zap.String("run_id", s.RunID),
		zap.String("mode", s.Mode),
		zap.Int("files", s.TotalFiles),
		zap.Int("succeeded", s.SuccessfulFiles),
		zap.Int("failed", s.FailedFiles),
		zap.Int("skipped", s.SkippedFiles),
		zap.Int("skipped_by_size", s.SkippedBySize),
		zap.Int("chunks", s.TotalChunks),
		zap.Int("embeddings", s.TotalEmbeddings),
		zap.Int64("embedding_api_calls", s.EmbeddingAPICalls),
		zap.Int64("embedding_attempts", s.EmbeddingAttempts),
		zap.Int64("embedding_cache_hits", s.EmbeddingCacheHits),
		zap.Int64("failed_embeddings", s.FailedEmbeddings),
		zap.String("bytes", humanize.Bytes(uint64(s.TotalBytes))),
		zap.Duration("duration", s.Duration()),
		zap.String("files_per_second", humanize.FtoaWithDigits(s.FilesPerSecond(), 2)),
	)
}
