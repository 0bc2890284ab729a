package session

import (
	"log/slog"
	"time"

	"github.com/iliyamo/tm-monitor/internal/clock"
)

// SupervisorState is the reconnection state machine's state.
type SupervisorState int

const (
	StateIdle SupervisorState = iota
	StateConnecting
	StateConnected
	StateReconnecting
	StateLost
)

func (s SupervisorState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateReconnecting:
		return "reconnecting"
	case StateLost:
		return "lost"
	default:
		return "unknown"
	}
}

// Backoff bounds the reconnect schedule.
type Backoff struct {
	Initial     time.Duration
	Max         time.Duration
	MaxAttempts int
}

// DefaultBackoff starts at one second, doubles up to thirty and gives up
// after ten consecutive failures.
var DefaultBackoff = Backoff{Initial: time.Second, Max: 30 * time.Second, MaxAttempts: 10}

func (b Backoff) withDefaults() Backoff {
	if b.Initial <= 0 {
		b.Initial = DefaultBackoff.Initial
	}
	if b.Max < b.Initial {
		b.Max = max(DefaultBackoff.Max, b.Initial)
	}
	if b.MaxAttempts <= 0 {
		b.MaxAttempts = DefaultBackoff.MaxAttempts
	}
	return b
}

// SupervisorHooks are the supervisor's side effects. Connect starts a
// connection attempt; Retry is told about every scheduled retry; Lost is
// called once when retries are exhausted.
type SupervisorHooks struct {
	Connect func()
	Retry   func(attempt, maxAttempts int, delay time.Duration)
	Lost    func()
}

// Supervisor drives reconnection with exponential backoff. All methods
// must be called from the session loop; timers re-enter the loop via
// post.
type Supervisor struct {
	backoff Backoff
	clock   clock.Clock
	post    func(func())
	hooks   SupervisorHooks
	logger  *slog.Logger

	state    SupervisorState
	attempts int
	delay    time.Duration
	timer    *clock.Timer
	gen      uint64
}

// NewSupervisor returns an idle supervisor.
func NewSupervisor(b Backoff, clk clock.Clock, post func(func()), hooks SupervisorHooks, logger *slog.Logger) *Supervisor {
	b = b.withDefaults()
	if logger == nil {
		logger = slog.Default()
	}
	return &Supervisor{
		backoff: b,
		clock:   clk,
		post:    post,
		hooks:   hooks,
		logger:  logger.With("component", "supervisor"),
		delay:   b.Initial,
	}
}

// State returns the current state.
func (s *Supervisor) State() SupervisorState { return s.state }

// Attempts returns the number of consecutive failed attempts.
func (s *Supervisor) Attempts() int { return s.attempts }

// MaxAttempts returns the retry bound.
func (s *Supervisor) MaxAttempts() int { return s.backoff.MaxAttempts }

// NextDelay returns the delay the next retry would wait.
func (s *Supervisor) NextDelay() time.Duration { return s.delay }

// Start makes the first connection attempt.
func (s *Supervisor) Start() {
	if s.state != StateIdle {
		return
	}
	s.state = StateConnecting
	s.hooks.Connect()
}

// Opened resets the attempt counter and delay and cancels any pending
// retry.
func (s *Supervisor) Opened() {
	s.cancelTimer()
	if s.attempts > 0 {
		s.logger.Info("reconnected", "after_attempts", s.attempts)
	}
	s.state = StateConnected
	s.attempts = 0
	s.delay = s.backoff.Initial
}

// Failed handles a close or error signal. While a retry is already
// scheduled it does nothing. Once MaxAttempts consecutive attempts have
// failed it gives up for good.
func (s *Supervisor) Failed() {
	switch s.state {
	case StateIdle, StateReconnecting, StateLost:
		return
	}
	if s.attempts >= s.backoff.MaxAttempts {
		s.state = StateLost
		s.logger.Error("max reconnection attempts reached", "attempts", s.attempts)
		if s.hooks.Lost != nil {
			s.hooks.Lost()
		}
		return
	}

	s.state = StateReconnecting
	s.attempts++
	delay := s.delay
	s.logger.Info("scheduling reconnect", "attempt", s.attempts, "max", s.backoff.MaxAttempts, "delay", delay)
	if s.hooks.Retry != nil {
		s.hooks.Retry(s.attempts, s.backoff.MaxAttempts, delay)
	}

	s.gen++
	gen := s.gen
	s.timer = s.clock.AfterFunc(delay, func() {
		s.post(func() { s.fire(gen) })
	})
}

func (s *Supervisor) fire(gen uint64) {
	// A retry superseded by a successful open, a stop or a newer
	// schedule must not reconnect.
	if gen != s.gen || s.state != StateReconnecting {
		return
	}
	s.timer = nil
	s.state = StateConnecting
	s.delay = min(s.delay*2, s.backoff.Max)
	s.hooks.Connect()
}

// Restart leaves the lost state and starts over with a fresh attempt
// budget. It is the manual recovery path after retries are exhausted.
func (s *Supervisor) Restart() bool {
	if s.state != StateLost {
		return false
	}
	s.attempts = 0
	s.delay = s.backoff.Initial
	s.state = StateConnecting
	s.hooks.Connect()
	return true
}

// Stop cancels any pending retry and returns to idle.
func (s *Supervisor) Stop() {
	s.cancelTimer()
	s.state = StateIdle
}

func (s *Supervisor) cancelTimer() {
	s.gen++
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
}
