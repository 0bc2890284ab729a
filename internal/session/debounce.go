package session

import (
	"time"

	"github.com/iliyamo/tm-monitor/internal/clock"
)

// Debouncer coalesces render requests: every Trigger cancels the pending
// timer and schedules a new one, so a burst ends in a single call to fn.
type Debouncer struct {
	clock clock.Clock
	delay time.Duration
	post  func(func())
	fn    func()

	timer *clock.Timer
	gen   uint64
}

// NewDebouncer returns an idle debouncer.
func NewDebouncer(clk clock.Clock, delay time.Duration, post func(func()), fn func()) *Debouncer {
	if delay <= 0 {
		delay = 100 * time.Millisecond
	}
	return &Debouncer{clock: clk, delay: delay, post: post, fn: fn}
}

// Trigger (re)schedules fn.
func (d *Debouncer) Trigger() {
	d.cancel()
	gen := d.gen
	d.timer = d.clock.AfterFunc(d.delay, func() {
		d.post(func() {
			if gen != d.gen {
				return
			}
			d.timer = nil
			d.fn()
		})
	})
}

// Flush cancels any pending call and runs fn now.
func (d *Debouncer) Flush() {
	d.cancel()
	d.fn()
}

// Pending reports whether a call is scheduled.
func (d *Debouncer) Pending() bool { return d.timer != nil }

// Stop cancels any pending call.
func (d *Debouncer) Stop() { d.cancel() }

func (d *Debouncer) cancel() {
	d.gen++
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
}
