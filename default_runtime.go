package zhaptic

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/evan-idocoding/zhaptic/feedback"
	"github.com/evan-idocoding/zhaptic/journal"
	"github.com/evan-idocoding/zhaptic/rt/knobs"
	"github.com/evan-idocoding/zhaptic/rt/sweep"
)

var (
	// ErrAlreadyStarted indicates Start or Run was called more than once.
	ErrAlreadyStarted = errors.New("zhaptic: already started")
	// ErrNotStarted indicates Wait was called before Start.
	ErrNotStarted = errors.New("zhaptic: not started")

	errSweeperNotRunning = errors.New("sweeper not running")
)

// RuntimeSpec configures NewDefaultRuntime.
type RuntimeSpec struct {
	// Driver is the actuator. nil means feedback.NopDriver.
	//
	// If Driver implements io.Closer (for example a driver/dispatch.Driver), Shutdown closes it.
	Driver feedback.Driver

	// Knobs supplies runtime-tunable parameters. nil creates knobs with default values.
	Knobs *knobs.Knobs

	// Journal, when set, records every session event. Shutdown flushes and closes it.
	Journal *journal.Journal

	// Hooks are extra session hooks, run after the journal hook.
	Hooks []feedback.Hook

	// MaxSessions caps the pool. <= 0 keeps one session per style.
	MaxSessions int

	// DisableSweep turns off the idle sweeper loop. SweepNow still works.
	DisableSweep bool

	// Clock overrides time.Now for sessions and the sweeper.
	Clock func() time.Time

	// Logger is used by sessions and the sweeper. nil means slog.Default().
	Logger *slog.Logger
}

// Runtime is the assembled feedback runtime: a session pool whose freshness window follows the
// knobs, an idle sweeper, and an optional journal.
type Runtime struct {
	Pool    *feedback.Pool
	Knobs   *knobs.Knobs
	Sweeper *sweep.Sweeper
	Journal *journal.Journal
	Logger  *slog.Logger

	driver       feedback.Driver
	sweepEnabled bool

	mu       sync.Mutex
	started  bool
	shutOnce sync.Once
	shutErr  error
}

// NewDefaultRuntime assembles a Runtime. It does not start background work; call Start.
func NewDefaultRuntime(spec RuntimeSpec) *Runtime {
	logger := spec.Logger
	if logger == nil {
		logger = slog.Default()
	}
	k := spec.Knobs
	if k == nil {
		var err error
		if k, err = knobs.New(); err != nil {
			// Defaults are in range by construction.
			panic(fmt.Sprintf("zhaptic: default knobs: %v", err))
		}
	}
	drv := spec.Driver
	if drv == nil {
		drv = feedback.NopDriver{}
	}

	opts := []feedback.Option{
		feedback.WithFreshnessSource(k.FreshnessWindow),
		feedback.WithLogger(logger),
	}
	if spec.Clock != nil {
		opts = append(opts, feedback.WithClock(spec.Clock))
	}
	if spec.MaxSessions > 0 {
		opts = append(opts, feedback.WithMaxSessions(spec.MaxSessions))
	}
	if spec.Journal != nil {
		opts = append(opts, feedback.WithHook(spec.Journal.Hook()))
	}
	for _, h := range spec.Hooks {
		opts = append(opts, feedback.WithHook(h))
	}
	pool := feedback.NewPool(drv, opts...)

	sw := sweep.New(pool,
		sweep.WithInterval(k.SweepInterval),
		sweep.WithLogger(logger),
		sweep.WithPanicHandler(func(info sweep.PanicInfo) {
			logger.Error("idle sweep panicked", slog.Any("value", info.Value))
		}),
	)

	return &Runtime{
		Pool:         pool,
		Knobs:        k,
		Sweeper:      sw,
		Journal:      spec.Journal,
		Logger:       logger,
		driver:       drv,
		sweepEnabled: !spec.DisableSweep,
	}
}

// Start starts the idle sweeper. It is not idempotent.
func (rt *Runtime) Start(ctx context.Context) error {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	if rt.started {
		return ErrAlreadyStarted
	}
	rt.started = true
	if rt.sweepEnabled {
		if err := rt.Sweeper.Start(ctx); err != nil {
			return err
		}
	}
	rt.Logger.Debug("feedback runtime started",
		slog.Duration("freshness_window", rt.Knobs.FreshnessWindow()),
		slog.Bool("sweep", rt.sweepEnabled),
		slog.Bool("journal", rt.Journal != nil),
	)
	return nil
}

// Impact triggers style at the intensity from the feedback.default_intensity knob.
func (rt *Runtime) Impact(style feedback.Style) feedback.Result {
	return rt.Pool.Trigger(style, rt.Knobs.DefaultIntensity())
}

// Shutdown stops the sweeper, flushes and closes the journal, and closes the driver when it is
// an io.Closer. It is idempotent; later calls return the first result.
func (rt *Runtime) Shutdown(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	rt.shutOnce.Do(func() {
		var errs []error
		if err := rt.Sweeper.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("sweeper shutdown: %w", err))
		}
		// The driver goes first so queued impacts (and their journal events) land before the
		// journal closes.
		if c, ok := rt.driver.(io.Closer); ok {
			if err := c.Close(); err != nil {
				errs = append(errs, fmt.Errorf("driver close: %w", err))
			}
		}
		if rt.Journal != nil {
			flushCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
			if err := rt.Journal.Flush(flushCtx); err != nil && !errors.Is(err, journal.ErrClosed) {
				errs = append(errs, fmt.Errorf("journal flush: %w", err))
			}
			cancel()
			if err := rt.Journal.Close(); err != nil {
				errs = append(errs, fmt.Errorf("journal close: %w", err))
			}
		}
		rt.shutErr = errors.Join(errs...)
	})
	return rt.shutErr
}
