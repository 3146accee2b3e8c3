// Package cli formats run results for the terminal.
package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/hyperjump/vectorize/internal/config"
	"github.com/hyperjump/vectorize/internal/models"
	"github.com/hyperjump/vectorize/pkg/utils"
)

// OutputFormat selects how results are written.
type OutputFormat string

const (
	// OutputText is human-readable text (default).
	OutputText OutputFormat = "text"
	// OutputJSON is structured JSON for machine consumption.
	OutputJSON OutputFormat = "json"
)

// ParseOutputFormat accepts "text" or "json", case-insensitively.
func ParseOutputFormat(s string) (OutputFormat, error) {
	switch OutputFormat(strings.ToLower(strings.TrimSpace(s))) {
	case OutputText, "":
		return OutputText, nil
	case OutputJSON:
		return OutputJSON, nil
	default:
		return "", fmt.Errorf("unknown output format %q (want text or json)", s)
	}
}

// WriteRunSummary writes stats to w. The text form lists failed files when
// showFailures is set; the JSON form always includes every outcome.
func WriteRunSummary(w io.Writer, stats *models.RunStatistics, format OutputFormat, showFailures bool) error {
	if format == OutputJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(stats)
	}
	writeRunSummaryText(w, stats, showFailures)
	return nil
}

func writeRunSummaryText(w io.Writer, s *models.RunStatistics, showFailures bool) {
	fmt.Fprintf(w, "\nIndexing run %s (%s mode)\n", s.RunID, s.Mode)
	fmt.Fprintln(w, strings.Repeat("─", 48))
	fmt.Fprintf(w, "Files:       %d total, %d succeeded, %d failed, %d skipped (%d over size limit)\n",
		s.TotalFiles, s.SuccessfulFiles, s.FailedFiles, s.SkippedFiles, s.SkippedBySize)
	if s.Mode != config.ModeStandard {
		fmt.Fprintf(w, "Chunks:      %s total, %s embedded\n",
			humanize.Comma(int64(s.TotalChunks)), humanize.Comma(int64(s.TotalEmbeddings)))
		fmt.Fprintf(w, "API calls:   %s (%s attempts, %s cache hits, %s failed)\n",
			humanize.Comma(s.EmbeddingAPICalls), humanize.Comma(s.EmbeddingAttempts),
			humanize.Comma(s.EmbeddingCacheHits), humanize.Comma(s.FailedEmbeddings))
	}
	fmt.Fprintf(w, "Data:        %s\n", humanize.Bytes(uint64(s.TotalBytes)))
	fmt.Fprintf(w, "Duration:    %s (%s files/s)\n",
		s.Duration().Round(time.Millisecond), humanize.FtoaWithDigits(s.FilesPerSecond(), 2))

	if !showFailures {
		return
	}
	failed := FailedOutcomes(s)
	if len(failed) == 0 {
		return
	}
	fmt.Fprintf(w, "\nFailed files:\n")
	for _, o := range failed {
		fmt.Fprintf(w, "  %s [%s] %s\n", o.Path, o.Status, utils.Truncate(o.Error, 120))
	}
}

// FailedOutcomes returns the failed outcomes of s sorted by path.
func FailedOutcomes(s *models.RunStatistics) []models.FileOutcome {
	var out []models.FileOutcome
	for _, o := range s.Outcomes {
		if o.Status == models.StatusFailed || o.Status == models.StatusFailedExtraction {
			out = append(out, o)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out
}

// CacheStat is one row of `vectorize cache stats`.
type CacheStat struct {
	Namespace string `json:"namespace"`
	Entries   int64  `json:"entries"`
}

// WriteCacheStats writes cache entry counts and the store's on-disk size.
func WriteCacheStats(w io.Writer, stats []CacheStat, diskBytes int64, format OutputFormat) error {
	if format == OutputJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(struct {
			Caches    []CacheStat `json:"caches"`
			DiskBytes int64       `json:"disk_usage_bytes"`
		}{stats, diskBytes})
	}
	for _, s := range stats {
		fmt.Fprintf(w, "%-40s %s entries\n", s.Namespace, humanize.Comma(s.Entries))
	}
	fmt.Fprintf(w, "%-40s %s\n", "disk usage", humanize.Bytes(uint64(diskBytes)))
	return nil
}
