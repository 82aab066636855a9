// Package dispatch makes a blocking feedback.Driver safe to use from feedback sessions.
//
// feedback.Session calls its driver while holding the session lock and never waits for the
// actuator. Backends that can block (serial ports, USB HID writes, MIDI streams) are wrapped with
// a Driver from this package: WarmUp and Fire are queued and executed by one worker goroutine,
// in order, and return immediately.
//
// # Semantics
//
//   - SupportsStyle is delegated synchronously; it must already be cheap.
//   - WarmUp/Fire return true when the call was queued, false when the queue is full or the
//     driver is closed. Dropped calls are not retried.
//   - The inner driver's own return value is only counted (Stats.Failed).
//   - Panics in the inner driver are recovered (rt/safego) and reported via WithPanicHandler,
//     or to stderr by default. The worker keeps running.
//
// Close stops accepting work, drains what is queued, and waits for the worker to exit.
package dispatch

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/evan-idocoding/zhaptic/feedback"
	"github.com/evan-idocoding/zhaptic/rt/safego"
)

// DefaultQueueSize is the queue capacity used when WithQueueSize is not given.
const DefaultQueueSize = 64

// PanicInfo describes a recovered panic from the inner driver.
type PanicInfo struct {
	Name  string
	Op    string // "warmup" or "fire"
	Style feedback.Style
	Value any
	Stack []byte
}

// PanicHandler is called on the worker goroutine after a recovered panic.
type PanicHandler func(PanicInfo)

// Stats are cumulative counters.
type Stats struct {
	Accepted uint64 `json:"accepted"`
	Dropped  uint64 `json:"dropped"`
	Failed   uint64 `json:"failed"`
	Panicked uint64 `json:"panicked"`
}

type config struct {
	name      string
	queueSize int
	onPanic   PanicHandler
}

// Option configures New.
type Option func(*config)

// WithName sets a name carried by panic reports.
func WithName(name string) Option {
	return func(c *config) { c.name = name }
}

// WithQueueSize sets the queue capacity. Values <= 0 are ignored.
func WithQueueSize(n int) Option {
	return func(c *config) {
		if n > 0 {
			c.queueSize = n
		}
	}
}

// WithPanicHandler sets the panic handler. Panics in the handler itself are contained and
// reported to stderr.
func WithPanicHandler(h PanicHandler) Option {
	return func(c *config) { c.onPanic = h }
}

type opKind uint8

const (
	opWarmUp opKind = iota
	opFire
)

func (k opKind) String() string {
	if k == opWarmUp {
		return "warmup"
	}
	return "fire"
}

type op struct {
	kind      opKind
	style     feedback.Style
	intensity float64
}

// Driver queues WarmUp/Fire calls for an inner driver.
type Driver struct {
	inner feedback.Driver
	cfg   config

	mu     sync.RWMutex // guards closed and sends on q
	closed bool
	q      chan op
	done   chan struct{}
	once   sync.Once

	accepted atomic.Uint64
	dropped  atomic.Uint64
	failed   atomic.Uint64
	panicked atomic.Uint64
}

var _ feedback.Driver = (*Driver)(nil)

// New wraps inner and starts the worker goroutine. inner must be non-nil.
func New(inner feedback.Driver, opts ...Option) *Driver {
	if inner == nil {
		panic("dispatch: nil inner driver")
	}
	cfg := config{queueSize: DefaultQueueSize}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	d := &Driver{
		inner: inner,
		cfg:   cfg,
		q:     make(chan op, cfg.queueSize),
		done:  make(chan struct{}),
	}
	safego.Go(context.Background(), d.loop,
		safego.WithName(d.workerName()),
		safego.WithFinally(func() { close(d.done) }),
	)
	return d
}

func (d *Driver) SupportsStyle(s feedback.Style) bool { return d.inner.SupportsStyle(s) }

func (d *Driver) WarmUp() bool { return d.enqueue(op{kind: opWarmUp}) }

func (d *Driver) Fire(s feedback.Style, intensity float64) bool {
	return d.enqueue(op{kind: opFire, style: s, intensity: intensity})
}

func (d *Driver) enqueue(o op) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		d.dropped.Add(1)
		return false
	}
	select {
	case d.q <- o:
		d.accepted.Add(1)
		return true
	default:
		d.dropped.Add(1)
		return false
	}
}

// Close stops accepting work, drains queued calls, and waits for the worker. It is idempotent.
func (d *Driver) Close() error {
	d.once.Do(func() {
		d.mu.Lock()
		d.closed = true
		close(d.q)
		d.mu.Unlock()
	})
	<-d.done
	return nil
}

// Stats returns cumulative counters.
func (d *Driver) Stats() Stats {
	return Stats{
		Accepted: d.accepted.Load(),
		Dropped:  d.dropped.Load(),
		Failed:   d.failed.Load(),
		Panicked: d.panicked.Load(),
	}
}

func (d *Driver) workerName() string {
	if d.cfg.name == "" {
		return "dispatch"
	}
	return "dispatch/" + d.cfg.name
}

func (d *Driver) loop(ctx context.Context) {
	for o := range d.q {
		d.run(ctx, o)
	}
}

func (d *Driver) run(ctx context.Context, o op) {
	opts := []safego.Option{
		safego.WithName(d.workerName()),
		safego.WithTag("op", o.kind.String()),
		safego.WithPanicCounter(&d.panicked),
	}
	if o.kind == opFire {
		opts = append(opts, safego.WithTag("style", o.style.String()))
	}
	if h := d.cfg.onPanic; h != nil {
		opts = append(opts, safego.WithPanicHandler(func(_ context.Context, info safego.PanicInfo) {
			h(PanicInfo{Name: d.cfg.name, Op: o.kind.String(), Style: o.style, Value: info.Value, Stack: info.Stack})
		}))
	}
	safego.Run(ctx, func(context.Context) {
		var ok bool
		switch o.kind {
		case opWarmUp:
			ok = d.inner.WarmUp()
		case opFire:
			ok = d.inner.Fire(o.style, o.intensity)
		}
		if !ok {
			d.failed.Add(1)
		}
	}, opts...)
}
