package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  slog.Level
	}{
		{"info", "info", slog.LevelInfo},
		{"debug", "debug", slog.LevelDebug},
		{"trace", "trace", LevelTrace},
		{"uppercase DEBUG", "DEBUG", slog.LevelDebug},
		{"mixed case Trace", "Trace", LevelTrace},
		{"unknown defaults to info", "verbose", slog.LevelInfo},
		{"empty defaults to info", "", slog.LevelInfo},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ParseLevel(tt.input)
			if got != tt.want {
				t.Errorf("ParseLevel(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestNewLogger_LevelFiltering(t *testing.T) {
	tests := []struct {
		name       string
		level      string
		logAtDebug bool
		logAtTrace bool
	}{
		{"info filters debug", "info", false, false},
		{"debug passes debug", "debug", true, false},
		{"trace passes everything", "trace", true, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			logger := NewLogger(tt.level, &buf)

			logger.Debug("scheduler cycle")
			if got := strings.Contains(buf.String(), "scheduler cycle"); got != tt.logAtDebug {
				t.Errorf("debug visible = %v, want %v (buf: %q)", got, tt.logAtDebug, buf.String())
			}

			buf.Reset()
			logger.Log(t.Context(), LevelTrace, "signal")
			if got := strings.Contains(buf.String(), "signal"); got != tt.logAtTrace {
				t.Errorf("trace visible = %v, want %v (buf: %q)", got, tt.logAtTrace, buf.String())
			}
		})
	}
}

func TestNewLogger_TranscriptFormat(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger("info", &buf)

	logger.Info("vehicle arrived", "from", "S", "to", "W")

	out := buf.String()
	if strings.Contains(out, "time=") {
		t.Errorf("info transcript should omit timestamps, got %q", out)
	}
	if !strings.Contains(out, `msg="vehicle arrived" from=S to=W`) {
		t.Errorf("unexpected transcript line %q", out)
	}
}

func TestNewLogger_TraceLabel(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger("trace", &buf)

	logger.Log(t.Context(), LevelTrace, "signal")

	if !strings.Contains(buf.String(), "level=TRACE") {
		t.Errorf("expected TRACE label, got %q", buf.String())
	}
	if !strings.Contains(buf.String(), "time=") {
		t.Errorf("expected timestamps below info level, got %q", buf.String())
	}
}

func TestNewEventLog_InfoLevel(t *testing.T) {
	dir := t.TempDir()
	el := NewEventLog(dir, "info")

	if el != nil {
		t.Error("expected nil EventLog at info level")
	}

	// Nil log should still be safe to use
	el.Log(map[string]any{"kind": "arrived"})
	el.With(map[string]any{"run_id": "x"}).Log(map[string]any{"kind": "arrived"})

	if _, err := os.Stat(filepath.Join(dir, "events.jsonl")); err == nil {
		t.Error("events.jsonl should not exist at info level")
	}
}

func TestNewEventLog_DebugLevel(t *testing.T) {
	dir := t.TempDir()
	el := NewEventLog(dir, "debug")
	defer el.Close()

	el.Log(map[string]any{"kind": "admitted", "waiting": 2})

	data, err := os.ReadFile(filepath.Join(dir, "events.jsonl"))
	if err != nil {
		t.Fatalf("failed to read events.jsonl: %v", err)
	}

	var entry map[string]any
	if err := json.Unmarshal(data, &entry); err != nil {
		t.Fatalf("failed to parse JSONL entry: %v", err)
	}
	if entry["kind"] != "admitted" {
		t.Errorf("kind = %v, want admitted", entry["kind"])
	}
	if entry["waiting"] != float64(2) {
		t.Errorf("waiting = %v, want 2", entry["waiting"])
	}
	if _, ok := entry["time"]; !ok {
		t.Error("expected 'time' field in event entry")
	}
}

func TestEventLog_WithSharesFile(t *testing.T) {
	dir := t.TempDir()
	el := NewEventLog(dir, "trace")
	defer el.Close()

	run := el.With(map[string]any{"run_id": "r-1"})
	run.Log(map[string]any{"kind": "arrived"})
	el.Log(map[string]any{"kind": "suite"})

	data, err := os.ReadFile(filepath.Join(dir, "events.jsonl"))
	if err != nil {
		t.Fatalf("failed to read events.jsonl: %v", err)
	}

	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %d: %q", len(lines), string(data))
	}

	var first, second map[string]any
	json.Unmarshal([]byte(lines[0]), &first)
	json.Unmarshal([]byte(lines[1]), &second)

	if first["run_id"] != "r-1" {
		t.Errorf("first run_id = %v, want r-1", first["run_id"])
	}
	if _, ok := second["run_id"]; ok {
		t.Error("parent log should not inherit child fields")
	}
}

func TestEventLog_KeepsCallerTime(t *testing.T) {
	dir := t.TempDir()
	el := NewEventLog(dir, "debug")
	defer el.Close()

	event := map[string]any{"kind": "departed", "time": "2026-01-01T00:00:00Z"}
	el.Log(event)

	data, _ := os.ReadFile(filepath.Join(dir, "events.jsonl"))
	if !strings.Contains(string(data), "2026-01-01T00:00:00Z") {
		t.Errorf("caller time should be preserved, got %q", string(data))
	}
	if len(event) != 2 {
		t.Error("Log() should not mutate caller's map")
	}
}

func TestEventLog_NilSafety(t *testing.T) {
	var el *EventLog
	el.Log(map[string]any{"kind": "should_not_panic"})
	el.Close()
}

func TestEventLog_LogAfterClose(t *testing.T) {
	dir := t.TempDir()
	el := NewEventLog(dir, "debug")
	child := el.With(map[string]any{"run_id": "r"})

	el.Log(map[string]any{"kind": "before_close"})
	el.Close()

	// Both should be no-ops, not panic
	el.Log(map[string]any{"kind": "after_close"})
	child.Log(map[string]any{"kind": "after_close"})
	child.Close()
}

func TestEventLog_FilePermissions(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", ".intersim")
	el := NewEventLog(dir, "debug")
	if el == nil {
		t.Fatal("expected non-nil EventLog when dir needs creation")
	}
	defer el.Close()

	el.Log(map[string]any{"kind": "perm_test"})

	info, err := os.Stat(filepath.Join(dir, "events.jsonl"))
	if err != nil {
		t.Fatalf("failed to stat events.jsonl: %v", err)
	}
	if perm := info.Mode().Perm(); perm != 0600 {
		t.Errorf("file permissions = %o, want 0600", perm)
	}
}
