package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
)

func TestLogger_JSONFields(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLoggerWithWriter(LevelInfo, FormatJSON, &buf)

	logger.WithFields(map[string]interface{}{
		"batchJobId": "job-1",
		"items":      3,
	}).WithError(errors.New("boom")).Info("batch triggered")

	var entry map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("output is not JSON: %v (%q)", err, buf.String())
	}

	if entry["message"] != "batch triggered" {
		t.Errorf("message = %v, want %v", entry["message"], "batch triggered")
	}
	if entry["batchJobId"] != "job-1" {
		t.Errorf("batchJobId = %v, want %v", entry["batchJobId"], "job-1")
	}
	if entry["error"] != "boom" {
		t.Errorf("error = %v, want %v", entry["error"], "boom")
	}
	if entry["level"] != "info" {
		t.Errorf("level = %v, want %v", entry["level"], "info")
	}
}

func TestLogger_LevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLoggerWithWriter(LevelWarn, FormatJSON, &buf)

	logger.Debug("hidden")
	logger.Info("hidden")
	if buf.Len() != 0 {
		t.Fatalf("expected no output below warn, got %q", buf.String())
	}

	logger.Warn("shown")
	if !strings.Contains(buf.String(), "shown") {
		t.Errorf("expected warn output, got %q", buf.String())
	}
}

func TestLogger_TextFormat(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLoggerWithWriter(LevelInfo, FormatText, &buf)

	logger.WithField("barcode", "ABC123").Infof("scan %s", "started")

	out := buf.String()
	if !strings.Contains(out, "INFO") || !strings.Contains(out, "scan started") || !strings.Contains(out, "ABC123") {
		t.Errorf("unexpected text output %q", out)
	}
}

func TestFromContext(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLoggerWithWriter(LevelInfo, FormatJSON, &buf).WithField("reqId", "r-1")

	ctx := WithLogger(context.Background(), logger)
	FromContext(ctx).Info("hello")

	if !strings.Contains(buf.String(), "r-1") {
		t.Errorf("context logger lost fields: %q", buf.String())
	}

	if FromContext(context.Background()) != GetGlobalLogger() {
		t.Error("FromContext() without logger should return the global logger")
	}
}

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		in   string
		want LogLevel
	}{
		{"debug", LevelDebug},
		{"warning", LevelWarn},
		{"error", LevelError},
		{"bogus", LevelInfo},
	}
	for _, tt := range tests {
		if got := ParseLogLevel(tt.in); got != tt.want {
			t.Errorf("ParseLogLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestParseLogFormat(t *testing.T) {
	if got := ParseLogFormat("console"); got != FormatText {
		t.Errorf("ParseLogFormat(console) = %v, want %v", got, FormatText)
	}
	if got := ParseLogFormat("xml"); got != FormatJSON {
		t.Errorf("ParseLogFormat(xml) = %v, want %v", got, FormatJSON)
	}
}

func TestLogger_WithComponent(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLoggerWithWriter(LevelInfo, FormatJSON, &buf).WithComponent("batch-supervisor")

	logger.Warn("reaped stale job")

	var entry map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("output is not JSON: %v (%q)", err, buf.String())
	}
	if entry["component"] != "batch-supervisor" {
		t.Errorf("component = %v, want %v", entry["component"], "batch-supervisor")
	}
	if entry["logger"] != "batch-supervisor" {
		t.Errorf("logger = %v, want %v", entry["logger"], "batch-supervisor")
	}
}
