package session

import (
	"testing"
	"time"

	"github.com/iliyamo/tm-monitor/internal/clock"
)

func TestLivenessProbesOnlyAfterSilence(t *testing.T) {
	clk := clock.Fake(epoch)
	probes := 0
	l := NewLiveness(clk, 30*time.Second, 60*time.Second, inline, func() bool { probes++; return true })
	l.Arm()

	clk.Advance(30 * time.Second)
	clk.Advance(30 * time.Second)
	if probes != 0 {
		t.Fatalf("probed after exactly the timeout: %d", probes)
	}
	clk.Advance(30 * time.Second)
	if probes != 1 {
		t.Fatalf("probes = %d after 90s of silence, want 1", probes)
	}

	l.Touch()
	clk.Advance(30 * time.Second)
	clk.Advance(30 * time.Second)
	if probes != 1 {
		t.Fatalf("probe despite recent traffic")
	}
	if l.Probes() != probes {
		t.Fatalf("Probes() = %d, want %d", l.Probes(), probes)
	}
}

func TestLivenessDisarmStopsChecks(t *testing.T) {
	clk := clock.Fake(epoch)
	probes := 0
	l := NewLiveness(clk, 30*time.Second, 60*time.Second, inline, func() bool { probes++; return true })
	l.Arm()
	l.Disarm()
	if l.Armed() {
		t.Fatal("still armed")
	}
	for rangeIter := 0; rangeIter < 10; rangeIter++ {
		clk.Advance(30 * time.Second)
	}
	if probes != 0 {
		t.Fatalf("probes = %d while disarmed", probes)
	}
	if clk.Pending() != 0 {
		t.Fatalf("pending timers = %d", clk.Pending())
	}
}

func TestLivenessDisarmDiscardsQueuedCheck(t *testing.T) {
	clk := clock.Fake(epoch)
	probes := 0
	var queued []func()
	l := NewLiveness(clk, 30*time.Second, time.Second, func(f func()) { queued = append(queued, f) }, func() bool { probes++; return true })
	l.Arm()
	clk.Advance(30 * time.Second)
	if len(queued) != 1 {
		t.Fatalf("queued = %d", len(queued))
	}
	l.Disarm()
	queued[0]()
	if probes != 0 {
		t.Fatal("queued check probed a disarmed connection")
	}
}
