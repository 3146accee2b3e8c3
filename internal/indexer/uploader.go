package indexer

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/hyperjump/vectorize/internal/backend"
	"github.com/hyperjump/vectorize/internal/models"
)

// BatchUploader submits records to a backend in contiguous batches.
type BatchUploader struct {
	backend backend.SearchBackend
	logger  *zap.Logger
}

// NewBatchUploader returns an uploader for b. A nil logger discards output.
func NewBatchUploader(b backend.SearchBackend, logger *zap.Logger) *BatchUploader {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &BatchUploader{backend: b, logger: logger}
}

// Upload returns one result per record, in input order. Batches are
// independent: a failed batch marks all of its records failed and the next
// batch is still sent. Nothing is retried here.
func (u *BatchUploader) Upload(ctx context.Context, records []models.Record, batchSize int) []models.UploadResult {
	if batchSize < 1 {
		batchSize = 1
	}
	results := make([]models.UploadResult, 0, len(records))
	for start := 0; start < len(records); start += batchSize {
		end := min(start+batchSize, len(records))
		results = append(results, u.uploadBatch(ctx, records[start:end])...)
	}
	return results
}

func (u *BatchUploader) uploadBatch(ctx context.Context, batch []models.Record) []models.UploadResult {
	out := make([]models.UploadResult, len(batch))
	for i, r := range batch {
		out[i] = models.UploadResult{Key: r.Key()}
	}

	reported, err := u.backend.UploadBatch(ctx, batch)
	if err != nil {
		u.logger.Warn("batch upload failed", zap.Int("documents", len(batch)), zap.Error(err))
		for i := range out {
			out[i].Error = err.Error()
		}
		return out
	}

	byKey := make(map[string]models.UploadResult, len(reported))
	for _, r := range reported {
		byKey[r.Key] = r
	}
	for i := range out {
		r, ok := byKey[out[i].Key]
		if !ok {
			out[i].Error = "no result reported for document"
			continue
		}
		out[i].Succeeded = r.Succeeded
		out[i].Error = r.Error
		if !r.Succeeded {
			u.logger.Debug("document rejected", zap.String("key", r.Key), zap.String("error", r.Error))
		}
	}
	return out
}

// CountSucceeded returns how many results were accepted.
func CountSucceeded(results []models.UploadResult) int {
	n := 0
	for _, r := range results {
		if r.Succeeded {
			n++
		}
	}
	return n
}

// uploadError summarises the first rejection for a file outcome.
func uploadError(results []models.UploadResult) string {
	failed := 0
	first := ""
	for _, r := range results {
		if !r.Succeeded {
			failed++
			if first == "" {
				first = r.Error
			}
		}
	}
	if failed == 0 {
		return ""
	}
	return fmt.Sprintf("%d of %d documents not uploaded: %s", failed, len(results), first)
}
