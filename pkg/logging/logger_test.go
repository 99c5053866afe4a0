package logging

import (
	"bytes"
	"encoding/json"
	"testing"
)

// TestLogLevelString tests level string conversion
func TestLogLevelString(t *testing.T) {
	tests := []struct {
		level    Level
		expected string
	}{
		{DebugLevel, "DEBUG"},
		{InfoLevel, "INFO"},
		{WarnLevel, "WARN"},
		{ErrorLevel, "ERROR"},
		{Level(99), "UNKNOWN"},
	}

	for _, tt := range tests {
		t.Run(tt.expected, func(t *testing.T) {
			if got := tt.level.String(); got != tt.expected {
				t.Errorf("Expected %s, got %s", tt.expected, got)
			}
		})
	}
}

// TestParseLevel tests string-to-level conversion
func TestParseLevel(t *testing.T) {
	tests := []struct {
		input    string
		expected Level
	}{
		{"debug", DebugLevel},
		{"DEBUG", DebugLevel},
		{"info", InfoLevel},
		{"warn", WarnLevel},
		{"WARNING", WarnLevel},
		{"error", ErrorLevel},
		{"garbage", InfoLevel},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := ParseLevel(tt.input); got != tt.expected {
				t.Errorf("Expected %v, got %v", tt.expected, got)
			}
		})
	}
}

// TestJSONLogger_BasicLogging tests a single entry round trip
func TestJSONLogger_BasicLogging(t *testing.T) {
	var buf bytes.Buffer
	logger := NewJSONLogger(&buf, InfoLevel)

	logger.Info("coordinator started", NodeID("node-1"), Role("leader"))

	var entry LogEntry
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("Failed to parse log entry: %v", err)
	}

	if entry.Level != "INFO" {
		t.Errorf("Expected level INFO, got %s", entry.Level)
	}
	if entry.Message != "coordinator started" {
		t.Errorf("Unexpected message: %s", entry.Message)
	}
	if entry.Fields["node_id"] != "node-1" {
		t.Errorf("Expected node_id field, got %v", entry.Fields)
	}
	if entry.Fields["role"] != "leader" {
		t.Errorf("Expected role field, got %v", entry.Fields)
	}
}

// TestJSONLogger_LevelFiltering tests that low-level entries are suppressed
func TestJSONLogger_LevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	logger := NewJSONLogger(&buf, WarnLevel)

	logger.Debug("dropped")
	logger.Info("dropped")
	logger.Warn("kept")

	lines := bytes.Count(buf.Bytes(), []byte("\n"))
	if lines != 1 {
		t.Errorf("Expected 1 log line, got %d", lines)
	}
}

// TestJSONLogger_With tests that child loggers inherit pre-set fields
func TestJSONLogger_With(t *testing.T) {
	var buf bytes.Buffer
	logger := NewJSONLogger(&buf, InfoLevel)

	child := logger.With(Component("election"), NodeID("node-1"))
	child.Info("became leader")

	var entry LogEntry
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("Failed to parse log entry: %v", err)
	}

	if entry.Fields["component"] != "election" {
		t.Errorf("Expected component field from parent, got %v", entry.Fields)
	}
	if entry.Fields["node_id"] != "node-1" {
		t.Errorf("Expected node_id field from parent, got %v", entry.Fields)
	}
}

// TestErrorField tests the error field constructor with and without an error
func TestErrorField(t *testing.T) {
	f := Error(nil)
	if f.Value != nil {
		t.Errorf("Expected nil value for nil error, got %v", f.Value)
	}
}

// TestNopLogger tests that the nop logger swallows everything
func TestNopLogger(t *testing.T) {
	logger := NewNopLogger()
	logger.Info("ignored")
	logger.With(String("k", "v")).Error("also ignored")

	if logger.GetLevel() != InfoLevel {
		t.Errorf("Expected InfoLevel from nop logger")
	}
}
