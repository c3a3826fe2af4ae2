package timectrl

import (
	"sync"
	"time"
)

// Loop calls fn every interval until stopped. At most one callback is pending
// at any time. A callback that already fired when Stop is called neither runs
// fn nor reschedules, because every schedule carries the generation it was
// created under.
type Loop struct {
	clock    Clock
	interval time.Duration
	fn       func()

	mu      sync.Mutex
	running bool
	gen     uint64
	timer   Timer
}

// NewLoop builds a stopped loop. A nil clock means RealClock.
func NewLoop(clock Clock, interval time.Duration, fn func()) *Loop {
	if clock == nil {
		clock = RealClock{}
	}
	return &Loop{clock: clock, interval: interval, fn: fn}
}

// Start schedules the first tick one interval from now. Starting a running
// loop is a no-op.
func (l *Loop) Start() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.running {
		return
	}
	l.running = true
	l.gen++
	l.scheduleLocked(l.gen)
}

// Stop cancels the pending tick, if any. Stopping a stopped loop is a no-op.
func (l *Loop) Stop() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.running {
		return
	}
	l.running = false
	l.gen++
	if l.timer != nil {
		l.timer.Stop()
		l.timer = nil
	}
}

// Running reports whether the loop is scheduled to tick.
func (l *Loop) Running() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.running
}

// Interval returns the delay between ticks.
func (l *Loop) Interval() time.Duration {
	return l.interval
}

func (l *Loop) scheduleLocked(gen uint64) {
	l.timer = l.clock.AfterFunc(l.interval, func() { l.tick(gen) })
}

func (l *Loop) tick(gen uint64) {
	l.mu.Lock()
	if !l.running || gen != l.gen {
		l.mu.Unlock()
		return
	}
	l.timer = nil
	l.mu.Unlock()

	// fn runs without the loop lock so it may call Stop.
	l.fn()

	l.mu.Lock()
	defer l.mu.Unlock()
	if l.running && gen == l.gen {
		l.scheduleLocked(gen)
	}
}
