// Package session owns the client's live state and the one goroutine
// allowed to touch it. Transport events, timer fires and user commands
// are all turned into closures on a single work queue and run in arrival
// order, so the registry and aggregator need no locking. State changes
// happen as soon as a message is handled; only the published Snapshot is
// debounced.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/iliyamo/tm-monitor/internal/clock"
	"github.com/iliyamo/tm-monitor/internal/model"
	"github.com/iliyamo/tm-monitor/internal/notify"
	"github.com/iliyamo/tm-monitor/internal/protocol"
	"github.com/iliyamo/tm-monitor/internal/registry"
	"github.com/iliyamo/tm-monitor/internal/transport"
)

var (
	// ErrNotConnected is returned when a command cannot be sent because
	// the stream connection is not open.
	ErrNotConnected = errors.New("not connected to backend")
	// ErrAddInFlight is returned when an add is already waiting for the
	// backend's confirmation.
	ErrAddInFlight = errors.New("an add is already in progress")
	// ErrClosed is returned once the session loop has stopped.
	ErrClosed = errors.New("session closed")
)

// Transport is the stream connection the session drives.
type Transport interface {
	Connect(ctx context.Context)
	Send(payload []byte) bool
	Close() error
}

// Backend is the REST side of the backend.
type Backend interface {
	ConnectionStatuses(ctx context.Context) (map[string]model.ConnectionStatus, error)
	Notifications(ctx context.Context, eventID string) ([]model.AvailabilityUpdate, error)
	ClearNotifications(ctx context.Context, eventID string) error
}

// Alerter is told about every availability update that carries seats.
type Alerter interface {
	Alert(ctx context.Context, eventName string, u model.AvailabilityUpdate) error
}

// Renderer receives every published snapshot.
type Renderer interface {
	Render(Snapshot)
}

// Config tunes the session's timers.
type Config struct {
	Backoff           Backoff
	HeartbeatInterval time.Duration
	HeartbeatTimeout  time.Duration
	RenderDelay       time.Duration
	NotificationCap   int
	GroupWindow       float64
	RequestTimeout    time.Duration
}

// Deps are the session's collaborators. NewTransport is handed the sink
// the connection must report to. Backend, Alerter and Renderer are
// optional. Spawn runs REST refreshes and alerts off the loop; it
// defaults to a new goroutine per call.
type Deps struct {
	Registry     *registry.Registry
	NewTransport func(sink func(transport.Event)) Transport
	Backend      Backend
	Alerter      Alerter
	Renderer     Renderer
	Clock        clock.Clock
	Logger       *slog.Logger
	Spawn        func(func())
}

// Session is the single owner of the monitor's state.
type Session struct {
	cfg      Config
	clock    clock.Clock
	logger   *slog.Logger
	registry *registry.Registry
	notes    *notify.Aggregator
	conn     Transport
	backend  Backend
	alerter  Alerter
	renderer Renderer
	spawn    func(func())

	supervisor *Supervisor
	liveness   *Liveness
	render     *Debouncer

	work   chan func()
	done   chan struct{}
	runCtx context.Context

	pendingAdd *registry.Candidate
	notice     *Notice
	snapshot   atomic.Pointer[Snapshot]
}

// New wires a session. Nothing happens until Run.
func New(cfg Config, deps Deps) *Session {
	if deps.Clock == nil {
		deps.Clock = clock.Real()
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.Spawn == nil {
		deps.Spawn = func(fn func()) { go fn() }
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 10 * time.Second
	}
	s := &Session{
		cfg:      cfg,
		clock:    deps.Clock,
		logger:   deps.Logger.With("component", "session"),
		registry: deps.Registry,
		notes:    notify.NewAggregator(cfg.NotificationCap, cfg.GroupWindow),
		backend:  deps.Backend,
		alerter:  deps.Alerter,
		renderer: deps.Renderer,
		spawn:    deps.Spawn,
		work:     make(chan func(), 256),
		done:     make(chan struct{}),
		runCtx:   context.Background(),
	}
	s.conn = deps.NewTransport(s.onTransportEvent)
	s.supervisor = NewSupervisor(cfg.Backoff, s.clock, s.post, SupervisorHooks{
		Connect: func() { s.conn.Connect(s.runCtx) },
		Retry:   s.onRetry,
		Lost:    s.onLost,
	}, deps.Logger)
	s.liveness = NewLiveness(s.clock, cfg.HeartbeatInterval, cfg.HeartbeatTimeout, s.post, func() bool {
		return s.send(protocol.Ping{Message: "Frontend heartbeat"})
	})
	s.render = NewDebouncer(s.clock, cfg.RenderDelay, s.post, s.publish)
	s.snapshot.Store(&Snapshot{})
	return s
}

// Run loads the stored events, connects and processes work until ctx is
// cancelled.
func (s *Session) Run(ctx context.Context) error {
	defer close(s.done)
	s.runCtx = ctx

	s.registry.Load(ctx)
	s.render.Flush()
	s.refreshConnectionStatusesAsync()
	s.supervisor.Start()

	for {
		select {
		case <-ctx.Done():
			s.shutdown()
			return nil
		case fn := <-s.work:
			fn()
		}
	}
}

func (s *Session) shutdown() {
	s.supervisor.Stop()
	s.liveness.Disarm()
	s.render.Stop()
	if err := s.conn.Close(); err != nil {
		s.logger.Warn("close transport", "error", err)
	}
	s.logger.Info("session stopped")
}

// post queues fn for the loop. Once the loop has exited fn is dropped.
func (s *Session) post(fn func()) {
	select {
	case s.work <- fn:
	case <-s.done:
	}
}

// call runs fn on the loop and waits for its result.
func call[T any](ctx context.Context, s *Session, fn func() T) (T, error) {
	var zero T
	reply := make(chan T, 1)
	select {
	case s.work <- func() { reply <- fn() }:
	case <-s.done:
		return zero, ErrClosed
	case <-ctx.Done():
		return zero, ctx.Err()
	}
	select {
	case v := <-reply:
		return v, nil
	case <-s.done:
		return zero, ErrClosed
	case <-ctx.Done():
		return zero, ctx.Err()
	}
}

// Snapshot returns the most recently published view of the session.
func (s *Session) Snapshot() Snapshot { return *s.snapshot.Load() }

func (s *Session) onRetry(attempt, maxAttempts int, _ time.Duration) {
	s.setNotice(NoticeInfo, fmt.Sprintf("Reconnecting... (%d/%d)", attempt, maxAttempts))
}

func (s *Session) onLost() {
	s.setNotice(NoticeError, "Connection lost. Please restart the session.")
}

func (s *Session) setNotice(level NoticeLevel, text string) {
	s.notice = &Notice{Level: level, Text: text, At: s.clock.Now().UTC()}
	s.logger.Info("notice", "level", level, "text", text)
	s.render.Trigger()
}

// publish builds and stores a snapshot. It runs on the loop.
func (s *Session) publish() {
	snap := Snapshot{
		Connection: ConnectionView{
			State:       s.supervisor.State().String(),
			Attempts:    s.supervisor.Attempts(),
			MaxAttempts: s.supervisor.MaxAttempts(),
		},
		Adding:     s.pendingAdd != nil,
		RenderedAt: s.clock.Now().UTC(),
	}
	if s.pendingAdd != nil {
		snap.PendingURL = s.pendingAdd.URL
	}
	if s.notice != nil {
		n := *s.notice
		snap.Notice = &n
	}
	for _, e := range s.registry.Entities() {
		count := s.notes.Count(e.ID)
		viewed := s.notes.Viewed(e.ID)
		snap.Events = append(snap.Events, EventView{
			MonitoredEntity:     e,
			Connection:          s.registry.ConnectionStatus(e.ID),
			HasNewNotifications: s.notes.HasUnseen(e.ID),
			Viewed:              viewed,
			NotificationCount:   count,
			ShowCount:           count > 0 && !viewed,
		})
	}
	s.snapshot.Store(&snap)
	if s.renderer != nil {
		s.renderer.Render(snap)
	}
}
