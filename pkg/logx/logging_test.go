package logx

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
)

func TestZeroLoggerIsSafe(t *testing.T) {
	var l Logger
	if !l.IsZero() {
		t.Fatal("expected zero logger")
	}
	l.Info("nothing", String("k", "v"))
	l.With(Int("n", 1)).Error("still nothing")
}

func TestWithFieldsAreApplied(t *testing.T) {
	var buf bytes.Buffer
	l := NewWriter(&buf, "debug").With(String("comp", "relay"))
	l.Info("record sent", String("record_id", "abc"), Err(errors.New("boom")))

	var m map[string]any
	if err := json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &m); err != nil {
		t.Fatalf("decode log line: %v (%q)", err, buf.String())
	}
	if m["comp"] != "relay" || m["record_id"] != "abc" {
		t.Fatalf("missing fields: %v", m)
	}
	if m["message"] != "record sent" {
		t.Fatalf("message = %v", m["message"])
	}
	if _, ok := m["caller"]; !ok {
		t.Fatalf("expected caller field: %v", m)
	}
}

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	l := NewWriter(&buf, "warn")
	l.Info("hidden")
	if buf.Len() != 0 {
		t.Fatalf("info should be filtered at warn, got %q", buf.String())
	}
	if !l.Enabled(LevelError) || l.Enabled(LevelDebug) {
		t.Fatal("unexpected Enabled result")
	}
}

func TestParseLevel(t *testing.T) {
	t.Parallel()
	tests := []struct {
		in   string
		want zerolog.Level
	}{
		{"trace", zerolog.TraceLevel},
		{" DEBUG ", zerolog.DebugLevel},
		{"warning", zerolog.WarnLevel},
		{"error", zerolog.ErrorLevel},
		{"nope", zerolog.InfoLevel},
	}
	for _, tt := range tests {
		if got := parseLevel(tt.in, zerolog.InfoLevel); got != tt.want {
			t.Fatalf("parseLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
	if ValidLevel("loud") {
		t.Fatal("ValidLevel accepted an unknown level")
	}
}

func TestServiceFileSink(t *testing.T) {
	path := filepath.Join(t.TempDir(), "relay.log")
	svc, l := New(Config{Level: "info", File: FileConfig{Enabled: true, Path: path}})
	l.Info("hello")
	if err := svc.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	if !bytes.Contains(b, []byte(`"message":"hello"`)) {
		t.Fatalf("log file missing entry: %q", b)
	}
}
