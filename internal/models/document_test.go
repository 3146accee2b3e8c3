package models

import (
	"strings"
	"testing"
	"time"
)

func TestFileMetadata_Title(t *testing.T) {
	tests := []struct {
		name string
		meta FileMetadata
		want string
	}{
		{"document title wins", FileMetadata{FileName: "q3.docx", Extension: ".docx", DocumentTitle: "Q3 Plan"}, "Q3 Plan"},
		{"name without extension", FileMetadata{FileName: "q3.docx", Extension: ".docx"}, "q3"},
		{"no extension", FileMetadata{FileName: "README"}, "README"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.meta.Title(); got != tt.want {
				t.Errorf("Title() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestFileMetadata_OwnerOrUnknown(t *testing.T) {
	m := FileMetadata{}
	if m.OwnerOrUnknown() != UnknownOwner {
		t.Errorf("empty owner should map to %q", UnknownOwner)
	}
	m.Owner = "alice"
	if m.OwnerOrUnknown() != "alice" {
		t.Errorf("got %q", m.OwnerOrUnknown())
	}
}

func TestTruncateContent(t *testing.T) {
	short := "hello"
	if TruncateContent(short) != short {
		t.Error("short content should be unchanged")
	}
	long := strings.Repeat("é", MaxContentChars+10)
	got := TruncateContent(long)
	if n := len([]rune(got)); n != MaxContentChars {
		t.Errorf("truncated to %d runes, want %d", n, MaxContentChars)
	}
}

func TestRunStatistics_Rates(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	s := RunStatistics{SuccessfulFiles: 10, StartTime: start}
	if s.Duration() != 0 || s.FilesPerSecond() != 0 {
		t.Error("unfinished run should report zero duration and rate")
	}
	s.EndTime = start.Add(5 * time.Second)
	if s.Duration() != 5*time.Second {
		t.Errorf("Duration() = %v", s.Duration())
	}
	if s.FilesPerSecond() != 2 {
		t.Errorf("FilesPerSecond() = %v, want 2", s.FilesPerSecond())
	}
}

func TestFileStatus_Skipped(t *testing.T) {
	if !StatusSkippedSize.Skipped() || !StatusSkippedUnchanged.Skipped() {
		t.Error("skip statuses should report Skipped")
	}
	if StatusFailed.Skipped() || StatusSucceeded.Skipped() {
		t.Error("non-skip statuses should not report Skipped")
	}
}
