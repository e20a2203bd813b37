package pipeline

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/nextlevelbuilder/slacktail/internal/bus"
	"github.com/nextlevelbuilder/slacktail/internal/handlers"
	"github.com/nextlevelbuilder/slacktail/internal/logging"
)

// recordingHandler counts Handle invocations and optionally fails.
type recordingHandler struct {
	mu      sync.Mutex
	name    string
	enabled bool
	err     error
	panics  bool
	calls   []bus.Message
}

func (h *recordingHandler) Handle(_ context.Context, msg bus.Message) error {
	h.mu.Lock()
	h.calls = append(h.calls, msg)
	h.mu.Unlock()
	if h.panics {
		panic("handler exploded")
	}
	return h.err
}

func (h *recordingHandler) Name() string  { return h.name }
func (h *recordingHandler) Enabled() bool { return h.enabled }

func (h *recordingHandler) callCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.calls)
}

func testLogger() *slog.Logger {
	return logging.New(&bytes.Buffer{}, slog.LevelError)
}

func TestRegister_NameUniqueness(t *testing.T) {
	p := New(testLogger())

	h1 := &recordingHandler{name: "x", enabled: true}
	h2 := &recordingHandler{name: "x", enabled: true}

	if err := p.Register(h1); err != nil {
		t.Fatal(err)
	}
	if err := p.Register(h2); err != nil {
		t.Fatal(err)
	}

	if p.Count() != 1 {
		t.Errorf("Count() = %d, want 1", p.Count())
	}
	got, ok := p.Handler("x")
	if !ok || got != Handler(h2) {
		t.Errorf("Handler(x) = %v, want the replacement handler", got)
	}
}

func TestRegister_BadHandler(t *testing.T) {
	p := New(testLogger())

	if err := p.Register(nil); !errors.Is(err, ErrBadHandler) {
		t.Errorf("Register(nil) error = %v, want ErrBadHandler", err)
	}
	if err := p.Register(&recordingHandler{name: ""}); !errors.Is(err, ErrBadHandler) {
		t.Errorf("Register(unnamed) error = %v, want ErrBadHandler", err)
	}
}

func TestUnregister(t *testing.T) {
	p := New(testLogger())
	p.Register(&recordingHandler{name: "a", enabled: true})

	if !p.Unregister("a") {
		t.Error("Unregister(a) = false, want true")
	}
	if p.Unregister("a") {
		t.Error("second Unregister(a) = true, want false")
	}
	if p.Count() != 0 {
		t.Errorf("Count() = %d after unregister", p.Count())
	}
}

func TestProcessMessage_SkipsDisabled(t *testing.T) {
	p := New(testLogger())

	a := &recordingHandler{name: "a", enabled: true}
	b := &recordingHandler{name: "b", enabled: false}
	c := &recordingHandler{name: "c", enabled: true}
	for _, h := range []*recordingHandler{a, b, c} {
		p.Register(h)
	}

	if err := p.ProcessMessage(context.Background(), bus.Message{Text: "hi"}); err != nil {
		t.Fatal(err)
	}

	if a.callCount() != 1 || c.callCount() != 1 {
		t.Errorf("enabled handlers called %d/%d times, want 1/1", a.callCount(), c.callCount())
	}
	if b.callCount() != 0 {
		t.Errorf("disabled handler called %d times, want 0", b.callCount())
	}
}

func TestProcessMessage_FaultIsolation(t *testing.T) {
	p := New(testLogger())

	a := &recordingHandler{name: "a", enabled: true}
	e := &recordingHandler{name: "e", enabled: true, err: errors.New("boom")}
	x := &recordingHandler{name: "x", enabled: true, panics: true}
	c := &recordingHandler{name: "c", enabled: true}
	for _, h := range []*recordingHandler{a, e, x, c} {
		p.Register(h)
	}

	if err := p.ProcessMessage(context.Background(), bus.Message{Text: "hi"}); err != nil {
		t.Fatalf("ProcessMessage returned %v despite fault isolation", err)
	}

	if a.callCount() != 1 || c.callCount() != 1 {
		t.Errorf("healthy handlers called %d/%d times, want 1/1", a.callCount(), c.callCount())
	}
}

func TestProcessMessage_LogsFailingHandler(t *testing.T) {
	var buf bytes.Buffer
	p := New(logging.New(&buf, slog.LevelInfo))
	p.Register(&recordingHandler{name: "broken", enabled: true, err: errors.New("boom")})

	p.ProcessMessage(context.Background(), bus.Message{})

	if !strings.Contains(buf.String(), "broken") || !strings.Contains(buf.String(), "boom") {
		t.Errorf("failure log missing handler name or cause: %q", buf.String())
	}
}

func TestSortByTimestamp(t *testing.T) {
	base := time.Unix(100, 0)
	in := []bus.Message{
		{Text: "c", WallTime: base.Add(2 * time.Second)},
		{Text: "a", WallTime: base},
		{Text: "b", WallTime: base.Add(time.Second)},
	}
	orig := make([]bus.Message, len(in))
	copy(orig, in)

	out := SortByTimestamp(in)

	if out[0].Text != "a" || out[1].Text != "b" || out[2].Text != "c" {
		t.Errorf("sorted order = %v %v %v", out[0].Text, out[1].Text, out[2].Text)
	}
	for i := range in {
		if in[i].Text != orig[i].Text {
			t.Fatalf("input mutated at %d: %v", i, in[i])
		}
	}
}

func TestSortByTimestamp_PlatformFallbackAndNil(t *testing.T) {
	in := []bus.Message{
		{Text: "b", PlatformTimestamp: "101.000200"},
		{Text: "a", PlatformTimestamp: "99.000100"},
		{Text: "junk", PlatformTimestamp: "not-a-number"},
	}

	out := SortByTimestamp(in)
	if out[0].Text != "junk" || out[1].Text != "a" || out[2].Text != "b" {
		t.Errorf("fallback sort order = %v %v %v", out[0].Text, out[1].Text, out[2].Text)
	}

	if got := SortByTimestamp(nil); got == nil || len(got) != 0 {
		t.Errorf("SortByTimestamp(nil) = %v, want empty slice", got)
	}
}

// TestProcessMessages_ChronologicalInterleave replays the two-team scenario:
// messages fed out of order arrive on stdout in timestamp order.
func TestProcessMessages_ChronologicalInterleave(t *testing.T) {
	var out bytes.Buffer
	p := New(testLogger())
	p.Register(handlers.NewConsole(&out, nil, true, testLogger()))

	msgs := []bus.Message{
		{TeamName: "B", ChannelName: "general", UserName: "bob", Text: "hi", WallTime: time.Unix(100, 0)},
		{TeamName: "A", ChannelName: "general", UserName: "alice", Text: "lo", WallTime: time.Unix(99, 0)},
		{TeamName: "A", ChannelName: "general", UserName: "alice", Text: "yo", WallTime: time.Unix(101, 0)},
	}

	if err := p.ProcessMessages(context.Background(), msgs); err != nil {
		t.Fatal(err)
	}

	want := "A/general/alice > lo\nB/general/bob > hi\nA/general/alice > yo\n"
	if out.String() != want {
		t.Errorf("output = %q, want %q", out.String(), want)
	}
}
