package models

import "time"

// UploadResult is the backend's verdict for one submitted record.
type UploadResult struct {
	Key       string `json:"key"`
	Succeeded bool   `json:"succeeded"`
	Error     string `json:"error,omitempty"`
}

// FileStatus is the terminal state of a file within a run.
type FileStatus string

const (
	StatusSucceeded        FileStatus = "succeeded"
	StatusFailed           FileStatus = "failed"
	StatusFailedExtraction FileStatus = "failed_extraction"
	StatusSkippedSize      FileStatus = "skipped_size"
	StatusSkippedUnchanged FileStatus = "skipped_unchanged"
)

// Skipped reports whether the status counts as a skip.
func (s FileStatus) Skipped() bool {
	return s == StatusSkippedSize || s == StatusSkippedUnchanged
}

// FileOutcome records what happened to one file.
type FileOutcome struct {
	Path           string     `json:"path"`
	Status         FileStatus `json:"status"`
	ChunksTotal    int        `json:"chunks_total"`
	ChunksEmbedded int        `json:"chunks_embedded"`
	ChunksUploaded int        `json:"chunks_uploaded"`
	Bytes          int64      `json:"bytes"`
	Error          string     `json:"error,omitempty"`
}

// RunStatistics summarises one indexing run.
type RunStatistics struct {
	RunID              string        `json:"run_id"`
	Mode               string        `json:"mode"`
	TotalFiles         int           `json:"total_files"`
	SuccessfulFiles    int           `json:"successful_files"`
	FailedFiles        int           `json:"failed_files"`
	SkippedFiles       int           `json:"skipped_files"`
	SkippedBySize      int           `json:"skipped_by_size"`
	TotalChunks        int           `json:"total_chunks"`
	TotalEmbeddings    int           `json:"total_embeddings"`
	EmbeddingAPICalls  int64         `json:"embedding_api_calls"`
	// EmbeddingAttempts counts every remote call, including failed retries.
	EmbeddingAttempts  int64         `json:"embedding_attempts"`
	EmbeddingCacheHits int64         `json:"embedding_cache_hits"`
	FailedEmbeddings   int64         `json:"failed_embeddings"`
	TotalBytes         int64         `json:"total_bytes"`
	StartTime          time.Time     `json:"start_time"`
	EndTime            time.Time     `json:"end_time"`
	Outcomes           []FileOutcome `json:"outcomes,omitempty"`
}

// Duration is the wall time of the run, or zero if it has not finished.
func (s *RunStatistics) Duration() time.Duration {
	if s.EndTime.IsZero() || s.StartTime.IsZero() {
		return 0
	}
	return s.EndTime.Sub(s.StartTime)
}

// FilesPerSecond is successful files divided by the run duration.
func (s *RunStatistics) FilesPerSecond() float64 {
	d := s.Duration().Seconds()
	if d <= 0 {
		return 0
	}
	return float64(s.SuccessfulFiles) / d
}
