// Package playback drives the dashboard's position in the precomputed
// performance timeline.
package playback

import (
	"context"
	"sync"
	"time"

	"github.com/signalsfoundry/rlnc-dashboard/internal/logging"
	"github.com/signalsfoundry/rlnc-dashboard/timectrl"
)

const (
	// DefaultInterval is the delay between automatic advances while playing.
	DefaultInterval = 300 * time.Millisecond
	// DefaultMaxStep is the last playback position. It is deliberately not
	// derived from the dataset; positions past the last sample hold it.
	DefaultMaxStep = 49
)

// Sink receives a frame every time the playback position or mode changes.
// Render is called without the controller lock held but must not call back
// into the controller synchronously.
type Sink interface {
	Render(Frame)
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(Frame)

// Render calls f(fr).
func (f SinkFunc) Render(fr Frame) { f(fr) }

// MetricsRecorder receives playback activity for instrumentation.
type MetricsRecorder interface {
	ObserveAdvance(step int)
	ObserveSeek(step int)
	ObserveToggle(playing bool)
}

// State is a point-in-time copy of the playback state.
type State struct {
	Playing    bool  `json:"playing"`
	Step       int   `json:"step"`
	MaxStep    int   `json:"max_step"`
	IntervalMs int64 `json:"interval_ms"`
}

// Controller owns the single playback state: whether the timeline is
// playing, the current step, and the pending advance timer.
type Controller struct {
	// mu serialises every state transition, standing in for the single
	// event thread the controls are driven from.
	mu sync.Mutex
	// pubMu keeps sink notifications in transition order.
	pubMu sync.Mutex

	data     Resolver
	clock    timectrl.Clock
	interval time.Duration
	maxStep  int
	loop     *timectrl.Loop

	playing bool
	step    int

	sinks    map[uint64]Sink
	nextSink uint64

	log     logging.Logger
	metrics MetricsRecorder
}

// Option customises Controller construction.
type Option func(*Controller)

// WithClock replaces the wall clock used to schedule advances.
func WithClock(c timectrl.Clock) Option {
	return func(ctl *Controller) {
		if c != nil {
			ctl.clock = c
		}
	}
}

// WithInterval sets the advance cadence. Non-positive values are ignored.
func WithInterval(d time.Duration) Option {
	return func(ctl *Controller) {
		if d > 0 {
			ctl.interval = d
		}
	}
}

// WithMaxStep sets the last playback position. Negative values are ignored.
func WithMaxStep(n int) Option {
	return func(ctl *Controller) {
		if n >= 0 {
			ctl.maxStep = n
		}
	}
}

// WithLogger attaches a structured logger.
func WithLogger(l logging.Logger) Option {
	return func(ctl *Controller) {
		ctl.log = logging.OrNoop(l)
	}
}

// WithMetricsRecorder attaches an optional metrics recorder.
func WithMetricsRecorder(m MetricsRecorder) Option {
	return func(ctl *Controller) {
		ctl.metrics = m
	}
}

// NewController builds a paused controller positioned at step 0.
func NewController(data Resolver, opts ...Option) *Controller {
	c := &Controller{
		data:     data,
		clock:    timectrl.RealClock{},
		interval: DefaultInterval,
		maxStep:  DefaultMaxStep,
		sinks:    make(map[uint64]Sink),
		log:      logging.Noop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.loop = timectrl.NewLoop(c.clock, c.interval, c.tick)
	return c
}

// Toggle flips between playing and paused and returns the new mode. Playing
// schedules the next advance one interval out; pausing cancels it.
func (c *Controller) Toggle() bool {
	c.mu.Lock()
	c.playing = !c.playing
	if c.playing {
		c.loop.Start()
	} else {
		c.loop.Stop()
	}
	playing := c.playing
	frame := c.frameLocked()
	sinks := c.handoffLocked()

	c.log.Debug(context.Background(), "playback toggled",
		logging.Bool("playing", playing),
		logging.Int("step", frame.Step),
	)
	if c.metrics != nil {
		c.metrics.ObserveToggle(playing)
	}
	c.publish(sinks, frame)
	return playing
}

// Advance moves one step forward, wrapping to 0 after the last position,
// and returns the refreshed frame.
func (c *Controller) Advance() Frame {
	c.mu.Lock()
	return c.advanceLocked()
}

// Seek jumps to step and returns the refreshed frame. The playing mode is
// left untouched. Steps outside [0, MaxStep] are clamped.
func (c *Controller) Seek(step int) Frame {
	c.mu.Lock()
	if step < 0 || step > c.maxStep {
		clamped := min(max(step, 0), c.maxStep)
		c.log.Warn(context.Background(), "seek outside playback range; clamping",
			logging.Int("requested", step),
			logging.Int("step", clamped),
		)
		step = clamped
	}
	c.step = step
	frame := c.frameLocked()
	sinks := c.handoffLocked()

	if c.metrics != nil {
		c.metrics.ObserveSeek(step)
	}
	c.publish(sinks, frame)
	return frame
}

// State returns a copy of the current playback state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return State{
		Playing:    c.playing,
		Step:       c.step,
		MaxStep:    c.maxStep,
		IntervalMs: c.interval.Milliseconds(),
	}
}

// Frame returns the display values for the current position.
func (c *Controller) Frame() Frame {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.frameLocked()
}

// Subscribe registers a sink and returns a function that removes it. A nil
// sink is reported and ignored.
func (c *Controller) Subscribe(s Sink) (unsubscribe func()) {
	if s == nil {
		c.log.Warn(context.Background(), "ignoring nil playback sink")
		return func() {}
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	id := c.nextSink
	c.nextSink++
	c.sinks[id] = s

	return func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		delete(c.sinks, id)
	}
}

// Close pauses playback and cancels any pending advance.
func (c *Controller) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.playing = false
	c.loop.Stop()
}

// tick is the timer callback. A pause that won the lock first turns it into
// a no-op.
func (c *Controller) tick() {
	c.mu.Lock()
	if !c.playing {
		c.mu.Unlock()
		return
	}
	c.advanceLocked()
}

// advanceLocked must be called with mu held; it releases it.
func (c *Controller) advanceLocked() Frame {
	c.step++
	if c.step > c.maxStep {
		c.step = 0
	}
	frame := c.frameLocked()
	sinks := c.handoffLocked()

	if c.metrics != nil {
		c.metrics.ObserveAdvance(frame.Step)
	}
	c.publish(sinks, frame)
	return frame
}

func (c *Controller) frameLocked() Frame {
	return NewFrame(c.data, c.step, c.playing)
}

// handoffLocked snapshots the sinks, then trades mu for pubMu so
// notifications keep transition order while sinks run outside the state
// lock. The caller must follow with publish.
func (c *Controller) handoffLocked() []Sink {
	sinks := make([]Sink, 0, len(c.sinks))
	for _, s := range c.sinks {
		sinks = append(sinks, s)
	}
	c.pubMu.Lock()
	c.mu.Unlock()
	return sinks
}

func (c *Controller) publish(sinks []Sink, frame Frame) {
	defer c.pubMu.Unlock()
	for _, s := range sinks {
		s.Render(frame)
	}
}
