// Package logging provides leveled logging and event journaling for intersim.
// It offers two complementary outputs:
//   - A leveled slog.Logger for the run transcript (arrivals, departures, verdicts)
//   - An EventLog that appends monitor events as JSONL (.intersim/events.jsonl)
package logging

import (
	"encoding/json"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// LevelTrace is a custom slog level below Debug for per-signal detail.
const LevelTrace = slog.LevelDebug - 4

// ParseLevel maps a string level name to a slog.Level.
// Supported values: "info", "debug", "trace" (case-insensitive).
// Unknown values default to info.
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "trace":
		return LevelTrace
	default:
		return slog.LevelInfo
	}
}

// NewLogger creates a leveled slog.Logger writing to w.
// Timestamps are dropped at info level so the transcript reads like a log of
// the simulation rather than of the process.
func NewLogger(level string, w io.Writer) *slog.Logger {
	lvl := ParseLevel(level)
	opts := &slog.HandlerOptions{
		Level: lvl,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if len(groups) > 0 {
				return a
			}
			switch a.Key {
			case slog.TimeKey:
				if lvl >= slog.LevelInfo {
					return slog.Attr{}
				}
			case slog.LevelKey:
				if l, ok := a.Value.Any().(slog.Level); ok && l == LevelTrace {
					a.Value = slog.StringValue("TRACE")
				}
			}
			return a
		},
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

// EventLog appends structured events to a JSONL file.
// It is safe for concurrent use. A nil EventLog is safe to use;
// all methods are no-ops on nil receiver.
type EventLog struct {
	sink   *eventSink
	fields map[string]any
}

// eventSink is the file shared by an EventLog and everything derived from it via With.
type eventSink struct {
	mu   sync.Mutex
	file *os.File
}

// NewEventLog opens dir/events.jsonl for append.
// At "info" level (the default) it returns nil and no file is created.
// Returns nil if the file cannot be opened. All methods are nil-safe.
func NewEventLog(dir string, level string) *EventLog {
	if ParseLevel(level) == slog.LevelInfo {
		return nil
	}

	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil
	}

	path := filepath.Join(dir, "events.jsonl")
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0600)
	if err != nil {
		return nil
	}

	return &EventLog{sink: &eventSink{file: f}}
}

// With returns a log writing to the same file whose entries also carry fields.
// Safe to call on nil receiver.
func (el *EventLog) With(fields map[string]any) *EventLog {
	if el == nil {
		return nil
	}
	merged := make(map[string]any, len(el.fields)+len(fields))
	for k, v := range el.fields {
		merged[k] = v
	}
	for k, v := range fields {
		merged[k] = v
	}
	return &EventLog{sink: el.sink, fields: merged}
}

// Log writes an event as a single JSONL line.
// A "time" field is added unless the event carries one. The caller's map is
// not mutated. Safe to call on nil receiver.
func (el *EventLog) Log(event map[string]any) {
	if el == nil || el.sink == nil {
		return
	}

	entry := make(map[string]any, len(el.fields)+len(event)+1)
	for k, v := range el.fields {
		entry[k] = v
	}
	for k, v := range event {
		entry[k] = v
	}
	if _, ok := entry["time"]; !ok {
		entry["time"] = time.Now().UTC().Format(time.RFC3339Nano)
	}

	data, err := json.Marshal(entry)
	if err != nil {
		return
	}
	data = append(data, '\n')

	el.sink.mu.Lock()
	defer el.sink.mu.Unlock()
	if el.sink.file != nil {
		_, _ = el.sink.file.Write(data)
	}
}

// Close closes the underlying file, including for logs derived via With.
// Safe to call on nil receiver.
func (el *EventLog) Close() {
	if el == nil || el.sink == nil {
		return
	}

	el.sink.mu.Lock()
	defer el.sink.mu.Unlock()

	if el.sink.file != nil {
		el.sink.file.Close()
		el.sink.file = nil
	}
}
