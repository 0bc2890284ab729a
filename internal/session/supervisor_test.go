package session

import (
	"testing"
	"time"

	"github.com/iliyamo/tm-monitor/internal/clock"
)

var epoch = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

// inline runs posted work immediately, standing in for the session loop.
func inline(f func()) { f() }

type supervisorProbe struct {
	connects int
	delays   []time.Duration
	lost     int
}

func newSupervisor(clk clock.Clock) (*Supervisor, *supervisorProbe) {
	p := &supervisorProbe{}
	s := NewSupervisor(DefaultBackoff, clk, inline, SupervisorHooks{
		Connect: func() { p.connects++ },
		Retry:   func(_, _ int, d time.Duration) { p.delays = append(p.delays, d) },
		Lost:    func() { p.lost++ },
	}, nil)
	return s, p
}

func TestSupervisorBackoffSequenceAndGiveUp(t *testing.T) {
	clk := clock.Fake(epoch)
	s, p := newSupervisor(clk)
	s.Start()
	if s.State() != StateConnecting || p.connects != 1 {
		t.Fatalf("after Start: state=%v connects=%d", s.State(), p.connects)
	}

	want := []time.Duration{1, 2, 4, 8, 16, 30, 30, 30, 30, 30}
	for i, d := range want {
		s.Failed()
		if s.State() != StateReconnecting {
			t.Fatalf("failure %d: state = %v", i+1, s.State())
		}
		if got := p.delays[i]; got != d*time.Second {
			t.Fatalf("failure %d: delay = %v, want %v", i+1, got, d*time.Second)
		}
		clk.Advance(d*time.Second - time.Millisecond)
		if p.connects != i+1 {
			t.Fatalf("failure %d: reconnected early", i+1)
		}
		clk.Advance(time.Millisecond)
		if p.connects != i+2 {
			t.Fatalf("failure %d: connects = %d, want %d", i+1, p.connects, i+2)
		}
	}

	// The tenth reconnect attempt fails too.
	s.Failed()
	if s.State() != StateLost || p.lost != 1 {
		t.Fatalf("state = %v lost = %d, want lost once", s.State(), p.lost)
	}
	for rangeIter := 0; rangeIter < 10; rangeIter++ {
		clk.Advance(time.Minute)
	}
	if p.connects != 11 {
		t.Fatalf("connects = %d, want 11 (no eleventh reconnect)", p.connects)
	}
	if clk.Pending() != 0 {
		t.Fatalf("pending timers = %d", clk.Pending())
	}

	s.Failed()
	if p.lost != 1 {
		t.Fatalf("Lost hook called again")
	}
}

func TestSupervisorResetsOnOpen(t *testing.T) {
	clk := clock.Fake(epoch)
	s, p := newSupervisor(clk)
	s.Start()

	s.Failed()
	clk.Advance(time.Second)
	s.Failed()
	clk.Advance(2 * time.Second)
	if s.NextDelay() != 4*time.Second {
		t.Fatalf("NextDelay = %v, want 4s", s.NextDelay())
	}

	s.Opened()
	if s.State() != StateConnected || s.Attempts() != 0 || s.NextDelay() != time.Second {
		t.Fatalf("after open: state=%v attempts=%d delay=%v", s.State(), s.Attempts(), s.NextDelay())
	}

	s.Failed()
	if got := p.delays[len(p.delays)-1]; got != time.Second {
		t.Fatalf("first delay after open = %v, want 1s", got)
	}
}

func TestSupervisorIgnoresFailureWhileRetryPending(t *testing.T) {
	clk := clock.Fake(epoch)
	s, p := newSupervisor(clk)
	s.Start()
	s.Failed()
	s.Failed()
	if s.Attempts() != 1 || len(p.delays) != 1 {
		t.Fatalf("attempts = %d retries = %d, want 1", s.Attempts(), len(p.delays))
	}
}

func TestSupervisorSupersededTimerDoesNotFire(t *testing.T) {
	clk := clock.Fake(epoch)
	s, p := newSupervisor(clk)
	s.Start()
	s.Failed()
	s.Opened()

	clk.Advance(time.Minute)
	if p.connects != 1 {
		t.Fatalf("connects = %d, want 1", p.connects)
	}
	if s.State() != StateConnected {
		t.Fatalf("state = %v", s.State())
	}
}

func TestSupervisorStopCancelsRetry(t *testing.T) {
	clk := clock.Fake(epoch)
	s, p := newSupervisor(clk)
	s.Start()
	s.Failed()
	s.Stop()
	clk.Advance(time.Minute)
	if p.connects != 1 || s.State() != StateIdle {
		t.Fatalf("connects=%d state=%v", p.connects, s.State())
	}
	s.Failed()
	if s.Attempts() != 1 {
		t.Fatalf("Failed while idle changed attempts to %d", s.Attempts())
	}
}

func TestSupervisorRestartAfterLost(t *testing.T) {
	clk := clock.Fake(epoch)
	s := NewSupervisor(Backoff{Initial: time.Second, Max: 2 * time.Second, MaxAttempts: 1}, clk, inline, SupervisorHooks{
		Connect: func() {},
	}, nil)
	if s.Restart() {
		t.Fatal("Restart from idle succeeded")
	}
	s.Start()
	s.Failed()
	clk.Advance(time.Second)
	s.Failed()
	if s.State() != StateLost {
		t.Fatalf("state = %v, want lost", s.State())
	}
	if !s.Restart() {
		t.Fatal("Restart from lost failed")
	}
	if s.State() != StateConnecting || s.Attempts() != 0 {
		t.Fatalf("after restart: state=%v attempts=%d", s.State(), s.Attempts())
	}
}
