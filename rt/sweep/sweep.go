// Package sweep runs a periodic idle sweep over feedback sessions.
//
// Sessions decay lazily: a Ready session only notices that its warm-up went stale on the next
// Prepare or Trigger. The sweeper makes that transition visible to observers (snapshots,
// hooks, the journal) without waiting for the next call, by calling EvictIdle on a target
// (usually a *feedback.Pool) every interval.
//
// The interval and the freshness window are read from functions on every cycle, so binding
// them to rt/knobs makes runtime changes take effect on the next cycle.
//
// Lifecycle follows a simple manager model: Start is not idempotent (ErrAlreadyStarted),
// Shutdown is idempotent and waits for the loop to exit or ctx to end. The loop also exits
// when the ctx given to Start ends; the state is StateStopped from then on. A panic inside a
// sweep is recovered, counted and reported; the loop keeps running.
package sweep

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/evan-idocoding/zhaptic/feedback"
	"github.com/evan-idocoding/zhaptic/rt/safego"
)

var (
	// ErrAlreadyStarted is returned by Start when called more than once.
	ErrAlreadyStarted = errors.New("sweep: already started")
	// ErrClosed is returned by Start after Shutdown.
	ErrClosed = errors.New("sweep: closed")
)

// DefaultInterval is used when no interval source is configured.
const DefaultInterval = 5 * time.Second

// Target is swept by a Sweeper. *feedback.Pool implements it.
type Target interface {
	EvictIdle(now time.Time, window time.Duration) int
}

// State is the lifecycle state of a Sweeper.
type State int32

const (
	StateNotStarted State = iota
	StateRunning
	StateStopping
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateNotStarted:
		return "not-started"
	case StateRunning:
		return "running"
	case StateStopping:
		return "stopping"
	case StateStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

func (s State) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

// Status is a point-in-time view of a Sweeper.
type Status struct {
	State    State         `json:"state"`
	Interval time.Duration `json:"interval"`
	Window   time.Duration `json:"window"`

	Runs    uint64 `json:"runs"`
	Decayed uint64 `json:"decayed"`
	Panics  uint64 `json:"panics"`

	LastRun     time.Time `json:"last_run"`
	LastDecayed int       `json:"last_decayed"`
}

// PanicInfo describes a recovered panic in a sweep.
type PanicInfo struct {
	Value any
	Stack []byte
}

type options struct {
	interval     func() time.Duration
	window       func() time.Duration
	now          func() time.Time
	panicHandler func(PanicInfo)
	logger       *slog.Logger
}

// Option configures New.
type Option func(*options)

// WithInterval reads the sweep interval from fn each cycle. Results <= 0 use DefaultInterval.
func WithInterval(fn func() time.Duration) Option {
	return func(o *options) {
		if fn != nil {
			o.interval = fn
		}
	}
}

// WithWindow reads the freshness window from fn each cycle.
//
// By default the target's own FreshnessWindow method is used when it has one, and
// feedback.DefaultFreshnessWindow otherwise.
func WithWindow(fn func() time.Duration) Option {
	return func(o *options) {
		if fn != nil {
			o.window = fn
		}
	}
}

// WithClock overrides the time source. By default the target's Now method is used when it has
// one, and time.Now otherwise.
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		if now != nil {
			o.now = now
		}
	}
}

// WithPanicHandler sets the panic report callback. If nil, panics are reported to stderr.
func WithPanicHandler(fn func(PanicInfo)) Option {
	return func(o *options) { o.panicHandler = fn }
}

// WithLogger sets a logger for per-sweep debug lines.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.logger = l }
}

// Sweeper periodically sweeps a Target.
type Sweeper struct {
	target Target
	opts   options

	startMu sync.Mutex
	state   atomic.Int32
	cancel  context.CancelFunc
	done    chan struct{}

	sweepMu     sync.Mutex
	runs        atomic.Uint64
	decayed     atomic.Uint64
	panics      atomic.Uint64
	lastRunNS   atomic.Int64
	lastDecayed atomic.Int64
}

// New creates a Sweeper for target. It does not start it.
func New(target Target, opts ...Option) *Sweeper {
	o := options{
		interval: func() time.Duration { return DefaultInterval },
		window:   func() time.Duration { return feedback.DefaultFreshnessWindow },
		now:      time.Now,
	}
	if w, ok := target.(interface{ FreshnessWindow() time.Duration }); ok {
		o.window = w.FreshnessWindow
	}
	if c, ok := target.(interface{ Now() time.Time }); ok {
		o.now = c.Now
	}
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}
	return &Sweeper{target: target, opts: o, done: make(chan struct{})}
}

// Start starts the sweep loop. The loop stops when ctx is done or Shutdown is called.
func (s *Sweeper) Start(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	s.startMu.Lock()
	defer s.startMu.Unlock()
	switch State(s.state.Load()) {
	case StateNotStarted:
	case StateRunning:
		return ErrAlreadyStarted
	default:
		return ErrClosed
	}
	var loopCtx context.Context
	loopCtx, s.cancel = context.WithCancel(ctx)
	s.state.Store(int32(StateRunning))
	safego.Go(loopCtx, s.loop,
		safego.WithName("sweep"),
		safego.WithFinally(func() {
			s.state.Store(int32(StateStopped))
			close(s.done)
		}),
	)
	return nil
}

// Shutdown stops the loop and waits for it to exit, or for ctx to end.
// Calling it before Start, or more than once, is safe.
func (s *Sweeper) Shutdown(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	s.startMu.Lock()
	switch State(s.state.Load()) {
	case StateNotStarted:
		s.state.Store(int32(StateStopped))
		s.startMu.Unlock()
		return nil
	case StateRunning:
		s.state.Store(int32(StateStopping))
		s.cancel()
	case StateStopped:
		s.startMu.Unlock()
		return nil
	}
	s.startMu.Unlock()

	select {
	case <-s.done:
		s.state.Store(int32(StateStopped))
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// SweepNow runs one sweep synchronously and returns the number of sessions that decayed.
// It works whether or not the loop is running.
func (s *Sweeper) SweepNow() int { return s.sweep() }

// Status returns the current status.
func (s *Sweeper) Status() Status {
	st := Status{
		State:       State(s.state.Load()),
		Interval:    s.interval(),
		Window:      s.opts.window(),
		Runs:        s.runs.Load(),
		Decayed:     s.decayed.Load(),
		Panics:      s.panics.Load(),
		LastDecayed: int(s.lastDecayed.Load()),
	}
	if ns := s.lastRunNS.Load(); ns != 0 {
		st.LastRun = time.Unix(0, ns)
	}
	return st
}

func (s *Sweeper) interval() time.Duration {
	if d := s.opts.interval(); d > 0 {
		return d
	}
	return DefaultInterval
}

func (s *Sweeper) loop(ctx context.Context) {
	t := time.NewTimer(s.interval())
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			s.sweep()
			t.Reset(s.interval())
		}
	}
}

func (s *Sweeper) sweep() (n int) {
	s.sweepMu.Lock()
	defer s.sweepMu.Unlock()

	now := s.opts.now()
	opts := []safego.Option{
		safego.WithName("sweep"),
		safego.WithPanicCounter(&s.panics),
	}
	if h := s.opts.panicHandler; h != nil {
		opts = append(opts, safego.WithPanicHandler(func(_ context.Context, info safego.PanicInfo) {
			h(PanicInfo{Value: info.Value, Stack: info.Stack})
		}))
	}
	safego.Run(context.Background(), func(context.Context) {
		n = s.target.EvictIdle(now, s.opts.window())
	}, opts...)

	s.runs.Add(1)
	s.lastRunNS.Store(now.UnixNano())
	s.lastDecayed.Store(int64(n))
	s.decayed.Add(uint64(n))
	if n > 0 && s.opts.logger != nil {
		s.opts.logger.Debug("idle sweep", slog.Int("decayed", n))
	}
	return n
}
