package teams

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"sync/atomic"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/nextlevelbuilder/slacktail/internal/bus"
	"github.com/nextlevelbuilder/slacktail/internal/config"
)

const scopeName = "github.com/nextlevelbuilder/slacktail/internal/teams"

// Pipeline is the downstream consumer of demultiplexed messages.
type Pipeline interface {
	ProcessMessage(ctx context.Context, msg bus.Message) error
}

// SinkFromPipeline adapts a pipeline into a per-message sink. Pipeline
// failures are logged and swallowed so a bad message never disturbs the
// streaming session that delivered it.
func SinkFromPipeline(ctx context.Context, p Pipeline, log *slog.Logger) bus.Sink {
	return func(msg bus.Message) {
		if err := p.ProcessMessage(ctx, msg); err != nil {
			log.Error("pipeline rejected message",
				"team", msg.TeamName, "channel", msg.ChannelName, "error", err)
		}
	}
}

// Manager supervises the fleet of team clients: construction, parallel
// connect, eviction of dead teams, and a single coordinated shutdown.
type Manager struct {
	log     *slog.Logger
	factory TransportFactory

	shuttingDown atomic.Bool

	mu          sync.Mutex
	sink        bus.Sink
	clients     map[string]*Client
	initialized bool
}

// NewManager creates an empty supervisor. Clients are built during
// Initialize from the given transport factory.
func NewManager(log *slog.Logger, factory TransportFactory) *Manager {
	if log == nil {
		log = slog.Default()
	}
	return &Manager{
		log:     log,
		factory: factory,
		clients: make(map[string]*Client),
	}
}

// SetSink installs the message sink shared by every client. Must be called
// before Initialize; a nil sink is rejected.
func (m *Manager) SetSink(sink bus.Sink) error {
	if sink == nil {
		return ErrNilSink
	}
	m.mu.Lock()
	m.sink = sink
	m.mu.Unlock()
	return nil
}

// Initialize constructs one client per configured team. Single-shot: a
// second call fails with ErrAlreadyInitialized.
func (m *Manager) Initialize(cfg *config.Config) error {
	if m.shuttingDown.Load() {
		return ErrShuttingDown
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.initialized {
		return ErrAlreadyInitialized
	}
	if m.sink == nil {
		return ErrNilSink
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	for name, teamCfg := range cfg.Teams {
		tr, err := m.factory(name, teamCfg, m.log)
		if err != nil {
			return err
		}
		client, err := NewClient(name, teamCfg, tr, m.sink, m.log)
		if err != nil {
			return err
		}
		m.clients[name] = client
	}

	m.initialized = true
	m.log.Info("teams initialized", "count", len(m.clients))
	return nil
}

// ConnectAll connects every team in parallel. Per-team failures are logged
// and the team stays in the fleet: transient failures ride the client's own
// backoff, invalidated teams remain visible until a later HandleTeamError
// evicts them. Only a fleet-wide zero is an error.
func (m *Manager) ConnectAll(ctx context.Context) error {
	if m.shuttingDown.Load() {
		return ErrShuttingDown
	}

	m.mu.Lock()
	if !m.initialized {
		m.mu.Unlock()
		return ErrNotInitialized
	}
	clients := make([]*Client, 0, len(m.clients))
	for _, c := range m.clients {
		clients = append(clients, c)
	}
	m.mu.Unlock()

	ctx, span := otel.Tracer(scopeName).Start(ctx, "fleet.connect", trace.WithAttributes(
		attribute.Int("teams", len(clients)),
	))
	defer span.End()

	var (
		wg        sync.WaitGroup
		connected atomic.Int64
	)
	for _, c := range clients {
		wg.Add(1)
		go func(c *Client) {
			defer wg.Done()
			if err := c.Connect(ctx); err != nil {
				// The client owns the retry and invalidation policy;
				// the fleet only records the failure.
				m.log.Error("team connect failed", "team", c.TeamName(), "error", err)
				return
			}
			if c.IsConnected() {
				connected.Add(1)
			}
		}(c)
	}
	wg.Wait()

	n := int(connected.Load())
	span.SetAttributes(attribute.Int("connected", n))
	m.log.Info("fleet connected", "connected", n, "total", len(clients))
	if n == 0 {
		return ErrNoTeamsConnected
	}
	return nil
}

// HandleTeamError records a per-team failure and evicts the team when its
// client is no longer connected. Eviction is permanent for the process.
func (m *Manager) HandleTeamError(team string, err error) {
	m.log.Error("team error", "team", team, "error", err)

	m.mu.Lock()
	client, ok := m.clients[team]
	if !ok {
		m.mu.Unlock()
		return
	}
	if client.IsConnected() {
		m.mu.Unlock()
		return
	}
	delete(m.clients, team)
	m.mu.Unlock()

	ctx, done := context.WithTimeout(context.Background(), teardownTimeout)
	defer done()
	client.Disconnect(ctx)
	m.log.Warn("team evicted", "team", team)
}

// Shutdown disconnects every client, in parallel, exactly once. Concurrent
// and repeated calls are no-ops.
func (m *Manager) Shutdown(ctx context.Context) {
	if !m.shuttingDown.CompareAndSwap(false, true) {
		return
	}
	m.log.Info("shutting down")

	m.mu.Lock()
	clients := make([]*Client, 0, len(m.clients))
	for _, c := range m.clients {
		clients = append(clients, c)
	}
	m.clients = make(map[string]*Client)
	m.sink = nil
	m.mu.Unlock()

	var wg sync.WaitGroup
	for _, c := range clients {
		wg.Add(1)
		go func(c *Client) {
			defer wg.Done()
			c.Disconnect(ctx)
		}(c)
	}
	wg.Wait()

	m.log.Info("connections closed", "teams", len(clients))
}

// IsInitialized reports whether Initialize has completed.
func (m *Manager) IsInitialized() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.initialized
}

// IsShuttingDown reports whether Shutdown has started.
func (m *Manager) IsShuttingDown() bool {
	return m.shuttingDown.Load()
}

// TotalCount returns the number of supervised teams.
func (m *Manager) TotalCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.clients)
}

// ConnectedCount returns the number of teams currently connected.
func (m *Manager) ConnectedCount() int {
	m.mu.Lock()
	clients := make([]*Client, 0, len(m.clients))
	for _, c := range m.clients {
		clients = append(clients, c)
	}
	m.mu.Unlock()

	n := 0
	for _, c := range clients {
		if c.IsConnected() {
			n++
		}
	}
	return n
}

// ConnectedNames returns the sorted names of connected teams.
func (m *Manager) ConnectedNames() []string {
	m.mu.Lock()
	clients := make(map[string]*Client, len(m.clients))
	for name, c := range m.clients {
		clients[name] = c
	}
	m.mu.Unlock()

	names := make([]string, 0, len(clients))
	for name, c := range clients {
		if c.IsConnected() {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}

// AllNames returns the sorted names of all supervised teams.
func (m *Manager) AllNames() []string {
	m.mu.Lock()
	names := make([]string, 0, len(m.clients))
	for name := range m.clients {
		names = append(names, name)
	}
	m.mu.Unlock()
	sort.Strings(names)
	return names
}

// Client returns the client for a team, or nil when absent.
func (m *Manager) Client(team string) *Client {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.clients[team]
}
