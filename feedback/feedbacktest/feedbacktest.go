// Package feedbacktest provides test doubles for package feedback: a recording Driver and a
// manually advanced Clock.
package feedbacktest

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/evan-idocoding/zhaptic/feedback"
)

// Call is one recorded Fire call.
type Call struct {
	Style     feedback.Style
	Intensity float64
}

// Driver is a feedback.Driver that records calls.
//
// The zero value supports every style and accepts every warm-up and fire.
// It is safe for concurrent use.
type Driver struct {
	// Unsupported lists styles for which SupportsStyle returns false.
	Unsupported map[feedback.Style]bool
	// NoSupport makes SupportsStyle return false for all styles.
	NoSupport bool
	// RejectWarmUp makes WarmUp return false.
	RejectWarmUp bool
	// RejectFire makes Fire return false.
	RejectFire bool

	supportsCalls atomic.Int64
	warmUps       atomic.Int64
	fires         atomic.Int64

	mu    sync.Mutex
	calls []Call
}

var _ feedback.Driver = (*Driver)(nil)

// Unsupporting returns a driver that supports no style.
func Unsupporting() *Driver { return &Driver{NoSupport: true} }

func (d *Driver) SupportsStyle(s feedback.Style) bool {
	d.supportsCalls.Add(1)
	if d.NoSupport {
		return false
	}
	return !d.Unsupported[s]
}

func (d *Driver) WarmUp() bool {
	d.warmUps.Add(1)
	return !d.RejectWarmUp
}

func (d *Driver) Fire(s feedback.Style, intensity float64) bool {
	d.fires.Add(1)
	d.mu.Lock()
	d.calls = append(d.calls, Call{Style: s, Intensity: intensity})
	d.mu.Unlock()
	return !d.RejectFire
}

// WarmUps returns the number of WarmUp calls.
func (d *Driver) WarmUps() int { return int(d.warmUps.Load()) }

// Fires returns the number of Fire calls.
func (d *Driver) Fires() int { return int(d.fires.Load()) }

// SupportsCalls returns the number of SupportsStyle calls.
func (d *Driver) SupportsCalls() int { return int(d.supportsCalls.Load()) }

// Calls returns a copy of the recorded Fire calls in order.
func (d *Driver) Calls() []Call {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]Call(nil), d.calls...)
}

// Clock is a manually advanced clock. Pass Clock.Now to feedback.WithClock.
type Clock struct {
	mu  sync.Mutex
	now time.Time
}

// NewClock returns a clock set to start.
func NewClock(start time.Time) *Clock { return &Clock{now: start} }

// Now returns the current clock time.
func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Advance moves the clock forward by d.
func (c *Clock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

// Set moves the clock to t.
func (c *Clock) Set(t time.Time) {
	c.mu.Lock()
	c.now = t
	c.mu.Unlock()
}
