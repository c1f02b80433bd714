package log

import (
	"bytes"
	"encoding/json"
	"errors"
	"syscall"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func decodeLine(t *testing.T, buf *bytes.Buffer) map[string]interface{} {
	t.Helper()
	var m map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &m); err != nil {
		t.Fatalf("unmarshal %q: %v", buf.String(), err)
	}
	return m
}

func TestZerologAdapter_Fields(t *testing.T) {
	var buf bytes.Buffer
	l := NewZerologAdapterWithLogger(zerolog.New(&buf))

	l.Warn("signal received",
		String("phase", "Armed"),
		Int("batch", 3),
		Int64("offset", 42),
		Bool("resumable", true),
		Duration("elapsed", 2*time.Second),
		Stringer("signal", syscall.SIGTERM),
		Strings("signals", []string{"INT", "TERM"}),
		Err(errors.New("boom")),
	)

	m := decodeLine(t, &buf)
	if m["level"] != "warn" {
		t.Errorf("level = %v, want warn", m["level"])
	}
	if m["message"] != "signal received" {
		t.Errorf("message = %v", m["message"])
	}
	if m["phase"] != "Armed" {
		t.Errorf("phase = %v, want Armed", m["phase"])
	}
	if m["offset"] != float64(42) {
		t.Errorf("offset = %v, want 42", m["offset"])
	}
	if m["signal"] != syscall.SIGTERM.String() {
		t.Errorf("signal = %v, want %s", m["signal"], syscall.SIGTERM)
	}
	if m["error"] != "boom" {
		t.Errorf("error = %v, want boom", m["error"])
	}
}

func TestZerologAdapter_With(t *testing.T) {
	var buf bytes.Buffer
	l := NewZerologAdapterWithLogger(zerolog.New(&buf)).With(String("component", "guard"))

	l.Info("armed")

	m := decodeLine(t, &buf)
	if m["component"] != "guard" {
		t.Errorf("component = %v, want guard", m["component"])
	}
}

func TestZerologAdapter_DisabledLevel(t *testing.T) {
	var buf bytes.Buffer
	l := NewZerologAdapterWithLogger(zerolog.New(&buf).Level(zerolog.InfoLevel))

	l.Debug("hidden", Int("n", 1))

	if buf.Len() != 0 {
		t.Errorf("debug output written at info level: %q", buf.String())
	}
}

func TestZerologAdapter_Levels(t *testing.T) {
	tests := []struct {
		level string
		log   func(Logger, string)
	}{
		{"debug", func(l Logger, msg string) { l.Debug(msg) }},
		{"info", func(l Logger, msg string) { l.Info(msg) }},
		{"warn", func(l Logger, msg string) { l.Warn(msg) }},
		{"error", func(l Logger, msg string) { l.Error(msg) }},
	}

	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			var buf bytes.Buffer
			tt.log(NewZerologAdapterWithLogger(zerolog.New(&buf)), "msg")

			m := decodeLine(t, &buf)
			if m["level"] != tt.level {
				t.Errorf("level = %v, want %s", m["level"], tt.level)
			}

			// the noop logger accepts the same calls and writes nothing
			tt.log(NewNoopLogger().With(String("k", "v")), "msg")
		})
	}
}
