package teams

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/nextlevelbuilder/slacktail/internal/bus"
	"github.com/nextlevelbuilder/slacktail/internal/config"
)

// State is the client connection state.
type State int

const (
	StateIdle State = iota
	StateConnecting
	StateConnected
	StateDisconnected
	StateInvalidated
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateDisconnected:
		return "disconnected"
	case StateInvalidated:
		return "invalidated"
	case StateClosed:
		return "closed"
	}
	return "unknown"
}

const (
	reconnectBase        = 1 * time.Second
	reconnectMax         = 30 * time.Second
	maxReconnectAttempts = 5

	teardownTimeout = 5 * time.Second
)

// reconnectDelay returns the backoff delay for the nth attempt (0-based):
// min(1s·2ⁿ, 30s).
func reconnectDelay(attempt int) time.Duration {
	d := reconnectBase << attempt
	if d > reconnectMax || d <= 0 {
		return reconnectMax
	}
	return d
}

// Client maintains one streaming session to one team. It owns the transport,
// the channel directory cache, and the reconnect policy, and forwards each
// accepted message to its sink. All state transitions happen under mu.
type Client struct {
	team string
	cfg  config.TeamConfig
	tr   Transport
	sink bus.Sink
	log  *slog.Logger

	// userLimit throttles user-directory lookups during demultiplexing.
	userLimit *rate.Limiter

	mu          sync.Mutex
	state       State
	attempts    int
	timer       *time.Timer
	runCtx      context.Context
	cancel      context.CancelFunc
	pumpStarted bool
	kept        []string
	keptSet     map[string]bool
	directory   map[string]string
	users       map[string]string
	skipped     []SkippedChannel

	teardown sync.Once
	wg       sync.WaitGroup
}

// NewClient creates a client for one team. The sink is mandatory: a client
// with nowhere to deliver messages is a construction error, not a runtime
// state.
func NewClient(team string, cfg config.TeamConfig, tr Transport, sink bus.Sink, log *slog.Logger) (*Client, error) {
	if sink == nil {
		return nil, ErrNilSink
	}
	if log == nil {
		log = slog.Default()
	}
	return &Client{
		team:      team,
		cfg:       cfg,
		tr:        tr,
		sink:      sink,
		log:       log,
		userLimit: rate.NewLimiter(rate.Every(200*time.Millisecond), 5),
		state:     StateIdle,
	}, nil
}

// Connect opens the transport, subscribes to the configured channels, and
// starts the event pump. Idempotent: calls while Connecting, Connected,
// Invalidated, or Closed return without effect.
func (c *Client) Connect(ctx context.Context) error {
	c.mu.Lock()
	switch c.state {
	case StateConnecting, StateConnected, StateInvalidated, StateClosed:
		c.mu.Unlock()
		return nil
	}
	c.state = StateConnecting
	// The run context is created once per client; reconnect cycles and the
	// event pump all hang off it.
	if c.runCtx == nil {
		c.runCtx, c.cancel = context.WithCancel(ctx)
	}
	runCtx := c.runCtx
	c.mu.Unlock()

	return c.establish(runCtx)
}

// establish runs one open + subscribe cycle and transitions to Connected on
// success. Used by both Connect and the reconnect timer.
func (c *Client) establish(ctx context.Context) error {
	if err := c.tr.Open(ctx); err != nil {
		return c.connectFailed(fmt.Errorf("open transport: %w", err))
	}

	if err := c.subscribe(ctx); err != nil {
		if cerr := c.tr.Close(ctx); cerr != nil {
			c.log.Debug("transport close after failed subscribe", "team", c.team, "error", cerr)
		}
		return c.connectFailed(err)
	}

	c.mu.Lock()
	if c.state == StateConnecting {
		c.state = StateConnected
		c.attempts = 0
	}
	if !c.pumpStarted {
		c.pumpStarted = true
		c.wg.Add(1)
		go c.pump(ctx)
	}
	kept, skipped := len(c.kept), len(c.skipped)
	c.mu.Unlock()

	c.log.Info("team connected", "team", c.team, "channels", kept, "skipped", skipped)
	return nil
}

// connectFailed classifies a connect-cycle error: permanent auth failures
// invalidate the team, anything else schedules a backoff reconnect.
func (c *Client) connectFailed(err error) error {
	if IsAuthError(err) {
		c.invalidate(err)
		return err
	}

	c.mu.Lock()
	if c.state == StateConnecting {
		c.state = StateDisconnected
		c.scheduleReconnectLocked()
	}
	c.mu.Unlock()
	return err
}

// Disconnect moves the client to Closed and tears the transport down,
// best-effort. It never fails; teardown errors are logged and swallowed.
// An invalidated client keeps its state: invalidation is irreversible, so
// only the one-shot teardown runs.
func (c *Client) Disconnect(ctx context.Context) {
	c.mu.Lock()
	switch c.state {
	case StateClosed:
		c.mu.Unlock()
		return
	case StateInvalidated:
		c.mu.Unlock()
		c.closeTransport(ctx)
		return
	}
	c.state = StateClosed
	c.stopTimerLocked()
	cancel := c.cancel
	c.directory = nil
	c.users = nil
	c.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	c.closeTransport(ctx)
	c.log.Info("team disconnected", "team", c.team)
}

// invalidate enters the terminal Invalidated state: no further reconnects,
// fire-and-forget transport teardown, directory cache cleared. Irreversible
// for the process lifetime.
func (c *Client) invalidate(cause error) {
	c.mu.Lock()
	if c.state == StateInvalidated || c.state == StateClosed {
		c.mu.Unlock()
		return
	}
	c.state = StateInvalidated
	c.stopTimerLocked()
	cancel := c.cancel
	c.directory = nil
	c.users = nil
	c.mu.Unlock()

	c.log.Error("authentication failed, team invalidated", "team", c.team, "error", cause)
	if cancel != nil {
		cancel()
	}
	go func() {
		ctx, done := context.WithTimeout(context.Background(), teardownTimeout)
		defer done()
		c.closeTransport(ctx)
	}()
}

// closeTransport performs the final transport teardown at most once.
func (c *Client) closeTransport(ctx context.Context) {
	c.teardown.Do(func() {
		if err := c.tr.Close(ctx); err != nil {
			c.log.Warn("transport teardown failed", "team", c.team, "error", err)
		}
	})
}

// pump consumes transport events until the client context is canceled or
// the event stream closes.
func (c *Client) pump(ctx context.Context) {
	defer c.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-c.tr.Events():
			if !ok {
				return
			}
			switch ev.Type {
			case EventConnected:
				c.onConnected()
			case EventDisconnected, EventError:
				c.onTransportDown(ev.Err)
			case EventMessage:
				c.handleMessageEvent(ctx, ev.Message)
			}
		}
	}
}

func (c *Client) onConnected() {
	c.mu.Lock()
	defer c.mu.Unlock()
	switch c.state {
	case StateConnecting, StateDisconnected:
		c.state = StateConnected
		c.attempts = 0
	case StateConnected:
		c.attempts = 0
	}
}

func (c *Client) onTransportDown(err error) {
	if err != nil && IsAuthError(err) {
		c.invalidate(err)
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	switch c.state {
	case StateConnected, StateDisconnected:
	default:
		return
	}

	if err != nil {
		c.log.Warn("transport error", "team", c.team, "error", err)
	} else {
		c.log.Warn("transport disconnected", "team", c.team)
	}
	c.state = StateDisconnected
	c.scheduleReconnectLocked()
}

// scheduleReconnectLocked arms the backoff timer for the next attempt, or
// gives up and closes the client once the attempt limit is reached.
// Caller holds mu.
func (c *Client) scheduleReconnectLocked() {
	if c.timer != nil {
		return
	}
	if c.attempts >= maxReconnectAttempts {
		c.log.Warn("reconnect attempts exhausted, abandoning team", "team", c.team, "attempts", c.attempts)
		c.state = StateClosed
		go func() {
			ctx, done := context.WithTimeout(context.Background(), teardownTimeout)
			defer done()
			c.closeTransport(ctx)
		}()
		return
	}

	delay := reconnectDelay(c.attempts)
	c.attempts++
	c.log.Info("scheduling reconnect", "team", c.team, "attempt", c.attempts, "delay", delay)
	c.timer = time.AfterFunc(delay, c.tryReconnect)
}

// tryReconnect fires from the backoff timer. The state check makes a stale
// timer a no-op after Disconnect or invalidation.
func (c *Client) tryReconnect() {
	c.mu.Lock()
	c.timer = nil
	if c.state != StateDisconnected {
		c.mu.Unlock()
		return
	}
	c.state = StateConnecting
	ctx := c.runCtx
	c.mu.Unlock()

	if ctx == nil {
		ctx = context.Background()
	}
	if err := c.establish(ctx); err != nil {
		c.log.Warn("reconnect failed", "team", c.team, "error", err)
	}
}

// stopTimerLocked cancels any pending reconnect. Caller holds mu.
func (c *Client) stopTimerLocked() {
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
}

// TeamName returns the team identifier.
func (c *Client) TeamName() string { return c.team }

// IsConnected reports whether the client is in the Connected state.
func (c *Client) IsConnected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state == StateConnected
}

// IsInvalidated reports whether the client hit a permanent auth failure.
func (c *Client) IsInvalidated() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state == StateInvalidated
}

// State returns the current connection state.
func (c *Client) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// ChannelIDs returns a copy of the subscribed channel identifiers, in
// configured order.
func (c *Client) ChannelIDs() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, len(c.kept))
	copy(out, c.kept)
	return out
}

// SkippedChannels returns a copy of the skipped-channel records, in
// configured order.
func (c *Client) SkippedChannels() []SkippedChannel {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]SkippedChannel, len(c.skipped))
	copy(out, c.skipped)
	return out
}
