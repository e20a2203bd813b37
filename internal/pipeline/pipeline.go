// Package pipeline dispatches inbound messages to a registry of handlers.
//
// Handlers are keyed by name and independently enabled; dispatch takes a
// snapshot of the enabled set so registry mutations never race with in-flight
// processing, and a failing handler never aborts its batch.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strconv"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/nextlevelbuilder/slacktail/internal/bus"
)

const scopeName = "github.com/nextlevelbuilder/slacktail/internal/pipeline"

// ErrBadHandler is returned when registering a handler that does not satisfy
// the capability contract.
var ErrBadHandler = errors.New("pipeline: bad handler")

// Handler is the capability contract every message sink satisfies.
type Handler interface {
	Handle(ctx context.Context, msg bus.Message) error
	Name() string
	Enabled() bool
}

// Pipeline owns the handler registry and performs fault-isolated dispatch.
type Pipeline struct {
	log    *slog.Logger
	tracer trace.Tracer

	mu       sync.RWMutex
	handlers map[string]Handler
}

// New creates an empty pipeline.
func New(log *slog.Logger) *Pipeline {
	if log == nil {
		log = slog.Default()
	}
	return &Pipeline{
		log:      log,
		tracer:   otel.Tracer(scopeName),
		handlers: make(map[string]Handler),
	}
}

// Register stores h under h.Name(), replacing any prior handler with that
// name. A nil handler or an empty name fails with ErrBadHandler.
func (p *Pipeline) Register(h Handler) error {
	if h == nil {
		return fmt.Errorf("%w: nil handler", ErrBadHandler)
	}
	name := h.Name()
	if name == "" {
		return fmt.Errorf("%w: empty name", ErrBadHandler)
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	p.handlers[name] = h
	return nil
}

// Unregister removes the named handler and reports whether it was present.
func (p *Pipeline) Unregister(name string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, ok := p.handlers[name]; !ok {
		return false
	}
	delete(p.handlers, name)
	return true
}

// Handler returns the named handler.
func (p *Pipeline) Handler(name string) (Handler, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	h, ok := p.handlers[name]
	return h, ok
}

// Handlers returns a snapshot of all registered handlers.
func (p *Pipeline) Handlers() []Handler {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make([]Handler, 0, len(p.handlers))
	for _, h := range p.handlers {
		out = append(out, h)
	}
	return out
}

// Count returns the number of registered handlers.
func (p *Pipeline) Count() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.handlers)
}

// EnabledCount returns the number of currently enabled handlers.
func (p *Pipeline) EnabledCount() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	n := 0
	for _, h := range p.handlers {
		if h.Enabled() {
			n++
		}
	}
	return n
}

// Clear removes all handlers.
func (p *Pipeline) Clear() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.handlers = make(map[string]Handler)
}

// ProcessMessage dispatches msg to every currently enabled handler
// concurrently and waits for all of them. Handler failures are logged with
// the handler name and never abort the batch.
func (p *Pipeline) ProcessMessage(ctx context.Context, msg bus.Message) error {
	enabled := p.enabledSnapshot()
	if len(enabled) == 0 {
		return nil
	}

	ctx, span := p.tracer.Start(ctx, "pipeline.dispatch", trace.WithAttributes(
		attribute.String("team", msg.TeamName),
		attribute.String("channel", msg.ChannelID),
		attribute.Int("handlers", len(enabled)),
	))
	defer span.End()

	var wg sync.WaitGroup
	for _, h := range enabled {
		wg.Add(1)
		go func(h Handler) {
			defer wg.Done()
			if err := safeHandle(ctx, h, msg); err != nil {
				p.log.Error("handler failed", "handler", h.Name(), "error", err)
			}
		}(h)
	}
	wg.Wait()
	return nil
}

// ProcessMessages sorts msgs by timestamp and dispatches them one at a time,
// awaiting each dispatch before the next.
func (p *Pipeline) ProcessMessages(ctx context.Context, msgs []bus.Message) error {
	for _, msg := range SortByTimestamp(msgs) {
		if err := p.ProcessMessage(ctx, msg); err != nil {
			return err
		}
	}
	return nil
}

// SortByTimestamp returns a new slice ordered by wall time ascending, falling
// back to a numeric parse of the platform timestamp when the wall time is
// unset. The input is left unchanged; nil input yields an empty slice.
func SortByTimestamp(msgs []bus.Message) []bus.Message {
	out := make([]bus.Message, len(msgs))
	copy(out, msgs)
	sort.SliceStable(out, func(i, j int) bool {
		return sortKey(out[i]) < sortKey(out[j])
	})
	return out
}

func sortKey(m bus.Message) float64 {
	if !m.WallTime.IsZero() {
		return float64(m.WallTime.UnixNano()) / 1e9
	}
	v, err := strconv.ParseFloat(m.PlatformTimestamp, 64)
	if err != nil {
		return 0
	}
	return v
}

func (p *Pipeline) enabledSnapshot() []Handler {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make([]Handler, 0, len(p.handlers))
	for _, h := range p.handlers {
		if h.Enabled() {
			out = append(out, h)
		}
	}
	return out
}

// safeHandle invokes a handler, converting a panic into an error so one
// misbehaving handler cannot take down the dispatcher.
func safeHandle(ctx context.Context, h Handler, msg bus.Message) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return h.Handle(ctx, msg)
}
