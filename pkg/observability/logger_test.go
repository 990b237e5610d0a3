package observability

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"testing"
)

func decodeEntry(t *testing.T, buf *bytes.Buffer) map[string]interface{} {
	t.Helper()
	var entry map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("failed to unmarshal log entry: %v", err)
	}
	return entry
}

func TestLogger_Levels(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(InfoLevel, &buf)

	t.Run("debug not logged at info level", func(t *testing.T) {
		buf.Reset()
		logger.Debug("debug message")
		if buf.Len() > 0 {
			t.Error("Debug message should not be logged at Info level")
		}
	})

	t.Run("info logged at info level", func(t *testing.T) {
		buf.Reset()
		logger.Info("info message")
		if buf.Len() == 0 {
			t.Fatal("Info message should be logged at Info level")
		}
		entry := decodeEntry(t, &buf)
		if entry["level"] != "INFO" {
			t.Errorf("expected level INFO, got %v", entry["level"])
		}
		if entry["msg"] != "info message" {
			t.Errorf("expected message 'info message', got %v", entry["msg"])
		}
	})

	t.Run("warn logged at info level", func(t *testing.T) {
		buf.Reset()
		logger.Warn("warn message")
		if buf.Len() == 0 {
			t.Error("Warn message should be logged at Info level")
		}
	})

	t.Run("error logged at info level", func(t *testing.T) {
		buf.Reset()
		logger.Error("error message")
		if buf.Len() == 0 {
			t.Error("Error message should be logged at Info level")
		}
	})
}

func TestLogger_WithField(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(InfoLevel, &buf)

	logger.WithField("email", "user@example.com").Info("resolved")

	entry := decodeEntry(t, &buf)
	if entry["email"] != "user@example.com" {
		t.Errorf("expected email field, got %v", entry["email"])
	}
}

func TestLogger_WithFields(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(InfoLevel, &buf)

	logger.WithFields(map[string]interface{}{
		"scope": "DIVISION",
		"count": 3,
	}).Info("plants resolved")

	entry := decodeEntry(t, &buf)
	if entry["scope"] != "DIVISION" {
		t.Errorf("expected scope field, got %v", entry["scope"])
	}
	if entry["count"] != float64(3) {
		t.Errorf("expected count field, got %v", entry["count"])
	}
}

func TestLogger_WithError(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(InfoLevel, &buf)

	logger.WithError(errors.New("boom")).Error("operation failed")
	entry := decodeEntry(t, &buf)
	if entry["error"] != "boom" {
		t.Errorf("expected error field, got %v", entry["error"])
	}

	// nil error adds nothing
	buf.Reset()
	logger.WithError(nil).Info("fine")
	entry = decodeEntry(t, &buf)
	if _, ok := entry["error"]; ok {
		t.Error("nil error should not add an error field")
	}
}

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		input string
		want  LogLevel
	}{
		{"debug", DebugLevel},
		{"info", InfoLevel},
		{"warn", WarnLevel},
		{"error", ErrorLevel},
		{"DEBUG", DebugLevel},
		{"unknown", InfoLevel},
		{"", InfoLevel},
	}
	for _, tt := range tests {
		if got := ParseLogLevel(tt.input); got != tt.want {
			t.Errorf("ParseLogLevel(%q) = %v, want %v", tt.input, got, tt.want)
		}
	}
}

func TestRequestIDContext(t *testing.T) {
	ctx := context.Background()
	if got := GetRequestID(ctx); got != "" {
		t.Errorf("expected empty request ID, got %q", got)
	}

	ctx = WithRequestID(ctx, "req-123")
	if got := GetRequestID(ctx); got != "req-123" {
		t.Errorf("expected req-123, got %q", got)
	}
}

func TestEmailContext(t *testing.T) {
	ctx := WithEmail(context.Background(), "user@example.com")
	if got := GetEmail(ctx); got != "user@example.com" {
		t.Errorf("expected email in context, got %q", got)
	}
}

func TestLoggerFromContext(t *testing.T) {
	base := NewLogger(DebugLevel, &bytes.Buffer{})
	ctx := WithLogger(context.Background(), base)
	if got := FromContext(ctx); got != base {
		t.Error("expected logger stored in context")
	}

	// absent logger yields a usable default
	if got := FromContext(context.Background()); got == nil {
		t.Error("expected a default logger for empty context")
	}
}
