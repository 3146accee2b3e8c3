package utils

import (
	"testing"
)

func TestNewLogger(t *testing.T) {
	t.Run("debug mode returns development logger", func(t *testing.T) {
		logger, err := NewLogger(true)
		if err != nil {
			t.Fatalf("NewLogger(true) error: %v", err)
		}
		if logger == nil {
			t.Fatal("NewLogger(true) returned nil logger")
		}
		_ = logger.Sync()
	})

	t.Run("production mode returns production logger", func(t *testing.T) {
		logger, err := NewLogger(false)
		if err != nil {
			t.Fatalf("NewLogger(false) error: %v", err)
		}
		if logger == nil {
			t.Fatal("NewLogger(false) returned nil logger")
		}
		_ = logger.Sync()
	})
}

func TestNewLoggerWithLevel(t *testing.T) {
	logger, err := NewLoggerWithLevel(false, "warn")
	if err != nil {
		t.Fatalf("NewLoggerWithLevel error: %v", err)
	}
	if logger.Core().Enabled(-1) {
		t.Error("debug should be disabled at warn level")
	}
	if !logger.Core().Enabled(1) {
		t.Error("warn should be enabled at warn level")
	}

	if _, err := NewLoggerWithLevel(false, "chatty"); err == nil {
		t.Error("expected error for unknown level")
	}

	if _, err := NewLoggerWithLevel(true, "chatty"); err != nil {
		t.Errorf("debug should ignore level: %v", err)
	}
}
