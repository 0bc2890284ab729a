// Package transport owns the single stream connection to the monitoring
// backend. It reports lifecycle changes as Events through a sink
// function and never buffers outbound messages: a send either reaches an
// open connection or is dropped.
package transport

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gobwas/ws"
	"github.com/gobwas/ws/wsutil"
)

// State is the connection state.
type State int

const (
	StateIdle State = iota
	StateConnecting
	StateOpen
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateConnecting:
		return "connecting"
	case StateOpen:
		return "open"
	case StateClosed:
		return "closed"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// EventKind identifies a lifecycle signal.
type EventKind int

const (
	EventOpened EventKind = iota
	EventMessage
	EventClosed
	EventError
)

func (k EventKind) String() string {
	switch k {
	case EventOpened:
		return "opened"
	case EventMessage:
		return "message"
	case EventClosed:
		return "closed"
	case EventError:
		return "error"
	default:
		return fmt.Sprintf("event(%d)", int(k))
	}
}

// Close codes reported with EventClosed when no close frame was
// received.
const (
	CodeNormal   = 1000
	CodeAbnormal = 1006
)

// Event is one lifecycle signal. Payload is set for EventMessage, Code
// and Reason for EventClosed, Err for EventError.
type Event struct {
	Kind    EventKind
	Payload []byte
	Code    int
	Reason  string
	Err     error
}

// Config describes the backend endpoint.
type Config struct {
	URL          string
	DialTimeout  time.Duration
	WriteTimeout time.Duration
	Header       http.Header
}

// WebSocket is a Transport Connection over a WebSocket. At most one
// connection attempt is in flight or established at a time.
type WebSocket struct {
	cfg    Config
	sink   func(Event)
	logger *slog.Logger

	mu      sync.Mutex
	state   State
	conn    net.Conn
	closing bool

	// writeMu serialises frames written by Send with control replies
	// written by the read loop.
	writeMu sync.Mutex
}

// NewWebSocket returns an idle connection that will report to sink. The
// sink is called from the connection's own goroutine, in order.
func NewWebSocket(cfg Config, sink func(Event), logger *slog.Logger) *WebSocket {
	if cfg.DialTimeout <= 0 {
		cfg.DialTimeout = 10 * time.Second
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = 5 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &WebSocket{
		cfg:    cfg,
		sink:   sink,
		logger: logger.With("component", "transport"),
	}
}

// State returns the current connection state.
func (w *WebSocket) State() State {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.state
}

// Connect starts a connection attempt unless one is already in flight or
// open, in which case it does nothing. The outcome is reported through
// the sink: EventOpened on success, EventError followed by EventClosed on
// failure.
func (w *WebSocket) Connect(ctx context.Context) {
	w.mu.Lock()
	if w.state == StateConnecting || w.state == StateOpen {
		w.mu.Unlock()
		w.logger.Debug("connect skipped", "state", w.state)
		return
	}
	w.state = StateConnecting
	w.closing = false
	w.mu.Unlock()

	go w.run(ctx)
}

func (w *WebSocket) run(ctx context.Context) {
	dialer := ws.Dialer{Timeout: w.cfg.DialTimeout}
	if len(w.cfg.Header) > 0 {
		dialer.Header = ws.HandshakeHeaderHTTP(w.cfg.Header)
	}

	w.logger.Info("dialing backend", "url", w.cfg.URL)
	conn, br, _, err := dialer.Dial(ctx, w.cfg.URL)
	if err != nil {
		w.setState(StateClosed, nil)
		w.sink(Event{Kind: EventError, Err: fmt.Errorf("dial %s: %w", w.cfg.URL, err)})
		w.sink(Event{Kind: EventClosed, Code: CodeAbnormal, Reason: err.Error()})
		return
	}

	// br is non-nil when the server sent frames right behind the
	// handshake response; it wraps conn, so reading through it is enough.
	var src io.Reader = conn
	if br != nil {
		src = br
	}

	w.mu.Lock()
	if w.closing {
		w.state = StateClosed
		w.mu.Unlock()
		_ = conn.Close()
		w.sink(Event{Kind: EventClosed, Code: CodeNormal, Reason: "closed by client"})
		return
	}
	w.state = StateOpen
	w.conn = conn
	w.mu.Unlock()
	w.sink(Event{Kind: EventOpened})

	rw := struct {
		io.Reader
		io.Writer
	}{src, &lockedWriter{mu: &w.writeMu, w: conn}}

	for {
		payload, op, err := wsutil.ReadServerData(rw)
		if err != nil {
			w.finish(conn, err)
			return
		}
		if op != ws.OpText && op != ws.OpBinary {
			continue
		}
		w.sink(Event{Kind: EventMessage, Payload: payload})
	}
}

// finish reports how the read loop ended and releases the socket.
func (w *WebSocket) finish(conn net.Conn, err error) {
	_ = conn.Close()

	w.mu.Lock()
	closing := w.closing
	if w.conn == conn {
		w.conn = nil
		w.state = StateClosed
	}
	w.mu.Unlock()

	var closed wsutil.ClosedError
	switch {
	case closing:
		w.sink(Event{Kind: EventClosed, Code: CodeNormal, Reason: "closed by client"})
	case errors.As(err, &closed):
		w.logger.Info("backend closed connection", "code", int(closed.Code), "reason", closed.Reason)
		w.sink(Event{Kind: EventClosed, Code: int(closed.Code), Reason: closed.Reason})
	default:
		w.logger.Warn("connection lost", "error", err)
		w.sink(Event{Kind: EventError, Err: err})
		w.sink(Event{Kind: EventClosed, Code: CodeAbnormal, Reason: err.Error()})
	}
}

func (w *WebSocket) setState(s State, conn net.Conn) {
	w.mu.Lock()
	w.state = s
	w.conn = conn
	w.mu.Unlock()
}

// Send writes payload as one text frame. It returns false without
// writing when the connection is not open, and false when the write
// fails. Nothing is queued for later delivery.
func (w *WebSocket) Send(payload []byte) bool {
	w.mu.Lock()
	conn := w.conn
	open := w.state == StateOpen && conn != nil
	w.mu.Unlock()
	if !open {
		return false
	}

	w.writeMu.Lock()
	defer w.writeMu.Unlock()
	_ = conn.SetWriteDeadline(time.Now().Add(w.cfg.WriteTimeout))
	if err := wsutil.WriteClientText(conn, payload); err != nil {
		w.logger.Warn("send failed", "error", err)
		return false
	}
	return true
}

// Close sends a normal close frame and tears the connection down. The
// read loop reports EventClosed with CodeNormal.
func (w *WebSocket) Close() error {
	w.mu.Lock()
	conn := w.conn
	w.closing = true
	if conn == nil {
		w.state = StateClosed
	}
	w.mu.Unlock()
	if conn == nil {
		return nil
	}

	w.writeMu.Lock()
	_ = conn.SetWriteDeadline(time.Now().Add(w.cfg.WriteTimeout))
	_ = wsutil.WriteClientMessage(conn, ws.OpClose, ws.NewCloseFrameBody(ws.StatusNormalClosure, ""))
	w.writeMu.Unlock()
	return conn.Close()
}

type lockedWriter struct {
	mu *sync.Mutex
	w  io.Writer
}

func (l *lockedWriter) Write(p []byte) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.w.Write(p)
}
