package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"
)

func TestConsoleHandlerRendersAttrs(t *testing.T) {
	var buf bytes.Buffer
	lvl := new(slog.LevelVar)
	logger := slog.New(newConsoleHandler(&buf, lvl))

	logger.Info("line activated", Int(FieldLine, 7), String(FieldSessionID, "abc123"))

	out := buf.String()
	if !strings.Contains(out, "line activated") {
		t.Fatalf("message missing from output: %q", out)
	}
	if !strings.Contains(out, "line=7") || !strings.Contains(out, "session_id=abc123") {
		t.Fatalf("attrs missing from output: %q", out)
	}
}

func TestConsoleHandlerHonorsLevel(t *testing.T) {
	var buf bytes.Buffer
	lvl := new(slog.LevelVar)
	lvl.Set(slog.LevelWarn)
	logger := slog.New(newConsoleHandler(&buf, lvl))

	logger.Info("should be dropped")
	logger.Warn("should appear")

	out := buf.String()
	if strings.Contains(out, "should be dropped") {
		t.Fatalf("info record leaked past warn level: %q", out)
	}
	if !strings.Contains(out, "should appear") {
		t.Fatalf("warn record missing: %q", out)
	}
}

func TestJSONHandlerShape(t *testing.T) {
	var buf bytes.Buffer
	lvl := new(slog.LevelVar)
	logger := slog.New(newJSONHandler(&buf, lvl, false))

	logger.Info("claimed", String(FieldDeviceID, "bench-1"))

	var payload map[string]any
	if err := json.Unmarshal(buf.Bytes(), &payload); err != nil {
		t.Fatalf("output is not JSON: %v (%q)", err, buf.String())
	}
	if payload["msg"] != "claimed" {
		t.Fatalf("unexpected msg field: %v", payload["msg"])
	}
	if payload["level"] != "info" {
		t.Fatalf("unexpected level field: %v", payload["level"])
	}
	if payload["device_id"] != "bench-1" {
		t.Fatalf("unexpected device_id field: %v", payload["device_id"])
	}
}

func TestNewComponentLoggerNilBase(t *testing.T) {
	logger := NewComponentLogger(nil, "lines")
	if logger == nil {
		t.Fatal("expected logger")
	}
	logger.Info("no-op sink accepts records")
}
