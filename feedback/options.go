package feedback

import (
	"log/slog"
	"time"
)

// DefaultFreshnessWindow is how long a warm-up is assumed to keep the actuator hot.
//
// It is not a hardware-verified constant; calibrate it per actuator.
const DefaultFreshnessWindow = 2 * time.Second

type config struct {
	window      func() time.Duration
	now         func() time.Time
	hooks       []Hook
	logger      *slog.Logger
	maxSessions int
}

// Option configures a Session or a Pool.
//
// Options passed to NewPool apply to every session the pool creates.
type Option func(*config)

func defaultConfig() config {
	return config{
		window:      func() time.Duration { return DefaultFreshnessWindow },
		now:         time.Now,
		maxSessions: int(numStyles),
	}
}

func applyOptions(opts []Option) config {
	c := defaultConfig()
	for _, opt := range opts {
		if opt != nil {
			opt(&c)
		}
	}
	return c
}

// WithFreshnessWindow sets a fixed freshness window. Values <= 0 are ignored.
func WithFreshnessWindow(d time.Duration) Option {
	return func(c *config) {
		if d > 0 {
			c.window = func() time.Duration { return d }
		}
	}
}

// WithFreshnessSource reads the freshness window from fn on every check, so the window can be
// changed at runtime (see package rt/knobs). fn must be fast and non-blocking. A result <= 0
// falls back to DefaultFreshnessWindow.
func WithFreshnessSource(fn func() time.Duration) Option {
	return func(c *config) {
		if fn == nil {
			return
		}
		c.window = func() time.Duration {
			if d := fn(); d > 0 {
				return d
			}
			return DefaultFreshnessWindow
		}
	}
}

// WithClock overrides time.Now (tests, simulations).
func WithClock(now func() time.Time) Option {
	return func(c *config) {
		if now != nil {
			c.now = now
		}
	}
}

// WithHook appends an event hook. Hooks run in registration order.
func WithHook(h Hook) Option {
	return func(c *config) {
		if h != nil {
			c.hooks = append(c.hooks, h)
		}
	}
}

// WithLogger enables debug diagnostics (rejected warm-ups, dropped impacts).
//
// A nil logger disables logging, which is the default.
func WithLogger(l *slog.Logger) Option {
	return func(c *config) { c.logger = l }
}

// WithMaxSessions caps the number of pooled sessions. It only affects Pool.
//
// Default is the number of declared styles, which makes the cap unreachable in practice.
// Values <= 0 are ignored.
func WithMaxSessions(n int) Option {
	return func(c *config) {
		if n > 0 {
			c.maxSessions = n
		}
	}
}
