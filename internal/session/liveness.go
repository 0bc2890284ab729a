package session

import (
	"time"

	"github.com/iliyamo/tm-monitor/internal/clock"
)

// Liveness sends a probe when nothing has arrived on the connection for
// longer than timeout. It checks every interval, and only while armed:
// Arm on open, Disarm on close.
type Liveness struct {
	clock    clock.Clock
	post     func(func())
	probe    func() bool
	interval time.Duration
	timeout  time.Duration

	armed    bool
	lastSeen time.Time
	timer    *clock.Timer
	gen      uint64
	probes   int
}

// NewLiveness returns a disarmed monitor.
func NewLiveness(clk clock.Clock, interval, timeout time.Duration, post func(func()), probe func() bool) *Liveness {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &Liveness{clock: clk, post: post, probe: probe, interval: interval, timeout: timeout}
}

// Arm starts periodic checks. The open itself counts as traffic.
func (l *Liveness) Arm() {
	l.Disarm()
	l.armed = true
	l.lastSeen = l.clock.Now()
	l.schedule()
}

// Disarm stops the checks. A check already queued on the loop is
// discarded.
func (l *Liveness) Disarm() {
	l.armed = false
	l.gen++
	if l.timer != nil {
		l.timer.Stop()
		l.timer = nil
	}
}

// Touch records inbound traffic.
func (l *Liveness) Touch() { l.lastSeen = l.clock.Now() }

// Armed reports whether checks are running.
func (l *Liveness) Armed() bool { return l.armed }

// Probes returns how many probes have been sent.
func (l *Liveness) Probes() int { return l.probes }

func (l *Liveness) schedule() {
	gen := l.gen
	l.timer = l.clock.AfterFunc(l.interval, func() {
		l.post(func() {
			if gen != l.gen || !l.armed {
				return
			}
			l.check()
			l.schedule()
		})
	})
}

func (l *Liveness) check() {
	if l.clock.Now().Sub(l.lastSeen) <= l.timeout {
		return
	}
	l.probes++
	l.probe()
}
