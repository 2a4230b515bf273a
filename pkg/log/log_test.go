package log

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"
)

var base = time.Date(2024, 3, 20, 9, 0, 0, 123456789, time.UTC)

func transitionEvent(session string, at time.Time, from, to string) Event {
	return Event{
		Timestamp: at,
		SessionID: session,
		Category:  CategoryTransition,
		ActionID:  "call_counselor",
		Transition: &TransitionEvent{
			OldPhase: from,
			NewPhase: to,
			Reason:   "confirm",
			Seconds:  5,
		},
	}
}

func TestEventEncodeDecode(t *testing.T) {
	event := Event{
		Timestamp: base,
		SessionID: "session-1",
		Category:  CategoryEffect,
		ActionID:  "call_crisis",
		Effect: &EffectEvent{
			Kind:    "VIBRATE",
			Pattern: []time.Duration{0, 500 * time.Millisecond, 200 * time.Millisecond, 500 * time.Millisecond},
		},
	}

	data, err := EncodeEvent(event)
	if err != nil {
		t.Fatalf("EncodeEvent failed: %v", err)
	}

	decoded, err := DecodeEvent(data)
	if err != nil {
		t.Fatalf("DecodeEvent failed: %v", err)
	}

	if !decoded.Timestamp.Equal(base) {
		t.Errorf("Timestamp = %v, want %v (nanosecond precision)", decoded.Timestamp, base)
	}
	if decoded.Effect == nil {
		t.Fatal("Effect is nil after decode")
	}
	if len(decoded.Effect.Pattern) != 4 || decoded.Effect.Pattern[1] != 500*time.Millisecond {
		t.Errorf("Pattern = %v, want 4 steps", decoded.Effect.Pattern)
	}
	if decoded.Command != nil || decoded.Transition != nil || decoded.Error != nil {
		t.Error("unset payloads should decode as nil")
	}
}

func TestCategoryStringAndParse(t *testing.T) {
	tests := []struct {
		cat  Category
		name string
	}{
		{CategoryCommand, "COMMAND"},
		{CategoryTransition, "TRANSITION"},
		{CategoryEffect, "EFFECT"},
		{CategoryError, "ERROR"},
	}

	for _, tt := range tests {
		if got := tt.cat.String(); got != tt.name {
			t.Errorf("%d.String() = %q, want %q", tt.cat, got, tt.name)
		}
		parsed, ok := ParseCategory(tt.name)
		if !ok || parsed != tt.cat {
			t.Errorf("ParseCategory(%q) = %v, %v", tt.name, parsed, ok)
		}
	}

	if c, ok := ParseCategory("transition"); !ok || c != CategoryTransition {
		t.Error("ParseCategory should be case-insensitive")
	}
	if _, ok := ParseCategory("frame"); ok {
		t.Error("ParseCategory(frame) should fail")
	}
	if Category(99).String() != "UNKNOWN" {
		t.Error("unknown category should print UNKNOWN")
	}
}

func TestFileLoggerRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session"+FileExtension)

	logger, err := NewFileLogger(path)
	if err != nil {
		t.Fatalf("NewFileLogger failed: %v", err)
	}
	logger.Log(transitionEvent("s1", base, "IDLE", "CONFIRMING"))
	logger.Log(transitionEvent("s1", base.Add(time.Second), "CONFIRMING", "COUNTING_DOWN"))
	if err := logger.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	// Logging after close is ignored.
	logger.Log(transitionEvent("s1", base, "X", "Y"))
	if err := logger.Close(); err != nil {
		t.Errorf("second Close returned %v", err)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat failed: %v", err)
	}
	if perm := info.Mode().Perm(); perm != 0600 {
		t.Errorf("file mode = %v, want 0600", perm)
	}

	reader, err := NewReader(path)
	if err != nil {
		t.Fatalf("NewReader failed: %v", err)
	}
	defer reader.Close()

	events, err := reader.All()
	if err != nil {
		t.Fatalf("All failed: %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("read %d events, want 2", len(events))
	}
	if events[1].Transition.NewPhase != "COUNTING_DOWN" {
		t.Errorf("second event NewPhase = %q", events[1].Transition.NewPhase)
	}
	if logger.Dropped() != 0 {
		t.Errorf("Dropped() = %d, want 0", logger.Dropped())
	}
}

func TestFileLoggerAppends(t *testing.T) {
	path := filepath.Join(t.TempDir(), "append"+FileExtension)

	for i := 0; i < 2; i++ {
		logger, err := NewFileLogger(path)
		if err != nil {
			t.Fatalf("NewFileLogger failed: %v", err)
		}
		logger.Log(transitionEvent("s1", base.Add(time.Duration(i)*time.Second), "IDLE", "CONFIRMING"))
		logger.Close()
	}

	reader, err := NewReader(path)
	if err != nil {
		t.Fatalf("NewReader failed: %v", err)
	}
	defer reader.Close()

	events, _ := reader.All()
	if len(events) != 2 {
		t.Errorf("read %d events across reopen, want 2", len(events))
	}
}

func TestFileLoggerConcurrent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "concurrent"+FileExtension)
	logger, err := NewFileLogger(path)
	if err != nil {
		t.Fatalf("NewFileLogger failed: %v", err)
	}

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 25; j++ {
				logger.Log(transitionEvent("s1", base, "IDLE", "CONFIRMING"))
			}
		}()
	}
	wg.Wait()
	logger.Close()

	reader, err := NewReader(path)
	if err != nil {
		t.Fatalf("NewReader failed: %v", err)
	}
	defer reader.Close()

	events, err := reader.All()
	if err != nil {
		t.Fatalf("All failed: %v", err)
	}
	if len(events) != 200 {
		t.Errorf("read %d events, want 200", len(events))
	}
}

func TestReaderFilter(t *testing.T) {
	var buf bytes.Buffer
	enc := NewEncoder(&buf)

	events := []Event{
		transitionEvent("a", base, "IDLE", "CONFIRMING"),
		{Timestamp: base.Add(time.Second), SessionID: "a", Category: CategoryCommand, ActionID: "call_crisis",
			Command: &CommandEvent{Name: "REQUEST", Accepted: false, Rejection: "busy"}},
		transitionEvent("b", base.Add(2*time.Second), "IDLE", "CONFIRMING"),
		{Timestamp: base.Add(3 * time.Second), SessionID: "b", Category: CategoryError, ActionID: "call_counselor",
			Error: &ErrorEventData{Message: "dial failed"}},
	}
	for _, e := range events {
		if err := enc.Encode(e); err != nil {
			t.Fatalf("Encode failed: %v", err)
		}
	}

	cmd := CategoryCommand
	start := base.Add(time.Second)
	end := base.Add(3 * time.Second)

	tests := []struct {
		name   string
		filter Filter
		want   int
	}{
		{"All", Filter{}, 4},
		{"Session", Filter{SessionID: "a"}, 2},
		{"Category", Filter{Category: &cmd}, 1},
		{"Action", Filter{ActionID: "call_counselor"}, 3},
		{"TimeWindow", Filter{TimeStart: &start, TimeEnd: &end}, 2},
		{"Combined", Filter{SessionID: "b", ActionID: "call_counselor"}, 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewStreamReader(bytes.NewReader(buf.Bytes()), tt.filter)
			got, err := r.All()
			if err != nil {
				t.Fatalf("All failed: %v", err)
			}
			if len(got) != tt.want {
				t.Errorf("got %d events, want %d", len(got), tt.want)
			}
		})
	}
}

func TestReaderEOF(t *testing.T) {
	r := NewStreamReader(bytes.NewReader(nil), Filter{})
	if _, err := r.Next(); err != io.EOF {
		t.Errorf("Next() on empty stream = %v, want io.EOF", err)
	}
	if err := r.Close(); err != nil {
		t.Errorf("Close() on stream reader = %v", err)
	}
}

func TestSlogAdapter(t *testing.T) {
	var buf bytes.Buffer
	slogger := slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	adapter := NewSlogAdapter(slogger)

	adapter.Log(transitionEvent("s1", base, "IDLE", "CONFIRMING"))

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("failed to parse log output: %v", err)
	}
	if entry["level"] != "DEBUG" {
		t.Errorf("level = %v, want DEBUG", entry["level"])
	}
	if entry["new_phase"] != "CONFIRMING" {
		t.Errorf("new_phase = %v, want CONFIRMING", entry["new_phase"])
	}
	if entry["session_id"] != "s1" {
		t.Errorf("session_id = %v, want s1", entry["session_id"])
	}
}

func TestSlogAdapterRaisesErrorsToWarn(t *testing.T) {
	var buf bytes.Buffer
	slogger := slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelInfo}))
	adapter := NewSlogAdapter(slogger).WithLevel(slog.LevelInfo)

	adapter.Log(Event{
		Timestamp: base,
		SessionID: "s1",
		Category:  CategoryError,
		ActionID:  "call_counselor",
		Error:     &ErrorEventData{Message: "execution timed out", TimedOut: true, Elapsed: 10 * time.Second},
	})

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("failed to parse log output: %v", err)
	}
	if entry["level"] != "WARN" {
		t.Errorf("level = %v, want WARN", entry["level"])
	}
	if entry["timed_out"] != true {
		t.Errorf("timed_out = %v, want true", entry["timed_out"])
	}
}

type captureLogger struct {
	events []Event
}

func (c *captureLogger) Log(e Event) { c.events = append(c.events, e) }

func TestMultiLogger(t *testing.T) {
	a, b := &captureLogger{}, &captureLogger{}
	m := NewMultiLogger(a, nil, b)

	m.Log(transitionEvent("s1", base, "IDLE", "CONFIRMING"))

	if len(a.events) != 1 || len(b.events) != 1 {
		t.Errorf("fan-out counts = %d, %d, want 1, 1", len(a.events), len(b.events))
	}
}

func TestOrNoop(t *testing.T) {
	if _, ok := OrNoop(nil).(NoopLogger); !ok {
		t.Error("OrNoop(nil) should return NoopLogger")
	}
	c := &captureLogger{}
	if OrNoop(c) != Logger(c) {
		t.Error("OrNoop should pass through non-nil loggers")
	}
}
