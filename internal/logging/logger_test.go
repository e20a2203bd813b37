package logging

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"
)

func TestHandler_LineFormat(t *testing.T) {
	var buf bytes.Buffer
	log := New(&buf, slog.LevelInfo)

	log.Info("connected", "team", "acme", "channels", 3)
	log.Warn("channel skipped")
	log.Error("subscribe failed", "error", "boom")

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	if len(lines) != 3 {
		t.Fatalf("expected 3 lines, got %d: %q", len(lines), buf.String())
	}

	want := []string{
		"[INFO] connected team=acme channels=3",
		"[WARN] channel skipped",
		"[ERROR] subscribe failed error=boom",
	}
	for i, w := range want {
		if lines[i] != w {
			t.Errorf("line %d = %q, want %q", i, lines[i], w)
		}
	}
}

func TestHandler_LevelGating(t *testing.T) {
	var buf bytes.Buffer
	log := New(&buf, slog.LevelInfo)

	log.Debug("noise")
	if buf.Len() != 0 {
		t.Errorf("debug record emitted below level: %q", buf.String())
	}

	verbose := New(&buf, slog.LevelDebug)
	verbose.Debug("detail")
	if !strings.HasPrefix(buf.String(), "[DEBUG] detail") {
		t.Errorf("debug line = %q", buf.String())
	}
}

func TestHandler_WithAttrsAndGroup(t *testing.T) {
	var buf bytes.Buffer
	base := New(&buf, slog.LevelInfo)

	log := base.With("team", "acme").WithGroup("client")
	log.Info("state change", "state", "connected")

	got := strings.TrimRight(buf.String(), "\n")
	if !strings.Contains(got, "team=acme") {
		t.Errorf("missing pre-bound attr: %q", got)
	}
	if !strings.Contains(got, "client.state=connected") {
		t.Errorf("missing group-prefixed attr: %q", got)
	}
}

func TestHandler_EachLineTerminated(t *testing.T) {
	var buf bytes.Buffer
	log := New(&buf, slog.LevelInfo)

	log.Info("one")
	log.Info("two")

	if !strings.HasSuffix(buf.String(), "\n") {
		t.Errorf("output not newline terminated: %q", buf.String())
	}
	if strings.Count(buf.String(), "\n") != 2 {
		t.Errorf("expected 2 newlines, got %q", buf.String())
	}
}
