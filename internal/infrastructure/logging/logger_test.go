package logging

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/nerrad567/gray-logic-home/internal/infrastructure/config"
)

// decodeLine parses the single JSON entry written to buf.
func decodeLine(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("output is not one JSON object: %v (%q)", err, buf.String())
	}
	return entry
}

func TestDestination(t *testing.T) {
	tests := []struct {
		name string
		want io.Writer
	}{
		{"stdout", os.Stdout},
		{"STDERR", os.Stderr},
		{"discard", io.Discard},
		{"", os.Stdout},
		{"syslog", os.Stdout},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := destination(tt.name); got != tt.want {
				t.Errorf("destination(%q) = %v, want %v", tt.name, got, tt.want)
			}
		})
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input string
		want  slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"DEBUG", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
		{"verbose", slog.LevelInfo},
		{"", slog.LevelInfo},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := parseLevel(tt.input); got != tt.want {
				t.Errorf("parseLevel(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestNew_DefaultFields(t *testing.T) {
	var buf bytes.Buffer
	logger := newWithWriter(config.LoggingConfig{Level: "info", Format: "json"}, "1.2.3", &buf)

	logger.Info("reading published", "name", "temperature")

	entry := decodeLine(t, &buf)
	want := map[string]string{
		"service": serviceName,
		"version": "1.2.3",
		"msg":     "reading published",
		"name":    "temperature",
	}
	for k, v := range want {
		if entry[k] != v {
			t.Errorf("%s = %v, want %q", k, entry[k], v)
		}
	}
}

func TestNew_TextFormat(t *testing.T) {
	var buf bytes.Buffer
	logger := newWithWriter(config.LoggingConfig{Level: "info", Format: "Text"}, "dev", &buf)

	logger.Info("scan complete", "networks", 5)

	out := buf.String()
	if !strings.Contains(out, "msg=\"scan complete\"") || !strings.Contains(out, "networks=5") {
		t.Errorf("text output = %q", out)
	}
}

func TestNew_TimestampIsUTC(t *testing.T) {
	var buf bytes.Buffer
	logger := newWithWriter(config.LoggingConfig{Format: "json"}, "dev", &buf)

	logger.Info("tick")

	raw, ok := decodeLine(t, &buf)["time"].(string)
	if !ok {
		t.Fatal("missing time field")
	}
	ts, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		t.Fatalf("time %q: %v", raw, err)
	}
	if _, offset := ts.Zone(); offset != 0 {
		t.Errorf("time %q is not UTC", raw)
	}
}

func TestLogger_LevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	logger := newWithWriter(config.LoggingConfig{Level: "warn", Format: "text"}, "test", &buf)

	logger.Info("filtered out")
	if buf.Len() != 0 {
		t.Errorf("info written at warn level: %q", buf.String())
	}

	logger.Warn("kept")
	if !strings.Contains(buf.String(), "kept") {
		t.Errorf("warn missing: %q", buf.String())
	}
}

func TestLogger_SetLevelSharedWithChildren(t *testing.T) {
	var buf bytes.Buffer
	root := newWithWriter(config.LoggingConfig{Level: "info", Format: "text"}, "test", &buf)
	child := root.Component("sensor")

	child.Debug("before")
	if buf.Len() != 0 {
		t.Fatalf("debug written at info level: %q", buf.String())
	}

	if err := child.SetLevel("debug"); err != nil {
		t.Fatalf("SetLevel() error = %v", err)
	}
	if root.Level() != "debug" {
		t.Errorf("root Level() = %q, want debug", root.Level())
	}

	root.Debug("after")
	if !strings.Contains(buf.String(), "after") {
		t.Errorf("debug not written after SetLevel: %q", buf.String())
	}
}

func TestLogger_SetLevelRejectsUnknown(t *testing.T) {
	logger := Discard()

	if err := logger.SetLevel("chatty"); err == nil {
		t.Error("SetLevel(chatty) error = nil, want error")
	}
	if logger.Level() != "error" {
		t.Errorf("Level() = %q, want unchanged error", logger.Level())
	}
}

func TestLogger_Component(t *testing.T) {
	var buf bytes.Buffer
	logger := newWithWriter(config.LoggingConfig{Format: "json"}, "test", &buf)

	logger.Component("broker").Info("connected")

	if got := decodeLine(t, &buf)["component"]; got != "broker" {
		t.Errorf("component = %v, want broker", got)
	}
}

func TestDefaultAndDiscard(t *testing.T) {
	if Default() == nil {
		t.Fatal("Default() returned nil")
	}
	d := Discard()
	if d == nil {
		t.Fatal("Discard() returned nil")
	}
	d.Error("dropped")
}
