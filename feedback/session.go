package feedback

import (
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Session owns the prepare/decay state machine for one Style.
//
// It is safe for concurrent use: every operation is serialized by a per-session mutex.
type Session struct {
	id     uuid.UUID
	style  Style
	drv    Driver
	pooled bool

	window func() time.Duration
	now    func() time.Time
	hooks  []Hook
	logger *slog.Logger

	mu         sync.Mutex
	state      State
	lastWarmUp time.Time

	prepares       uint64
	warmUps        uint64
	warmUpFailures uint64
	fires          uint64
	fireFailures   uint64
	skipped        uint64
	decays         uint64
}

// NewSession creates a one-off session that is not managed by any Pool.
//
// A nil driver is treated as NopDriver.
func NewSession(style Style, drv Driver, opts ...Option) *Session {
	return newSession(style, drv, applyOptions(opts), false)
}

func newSession(style Style, drv Driver, c config, pooled bool) *Session {
	if drv == nil {
		drv = NopDriver{}
	}
	return &Session{
		id:     uuid.New(),
		style:  style,
		drv:    drv,
		pooled: pooled,
		window: c.window,
		now:    c.now,
		hooks:  c.hooks,
		logger: c.logger,
	}
}

// ID returns the session identity. It is stable for the lifetime of the session.
func (s *Session) ID() uuid.UUID { return s.id }

// Style returns the style this session serves.
func (s *Session) Style() Style { return s.style }

// State returns the current state. It does not apply the lazy decay check.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// LastWarmUp returns the time of the last accepted warm-up (zero if none).
func (s *Session) LastWarmUp() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastWarmUp
}

// Prepare warms the actuator up ahead of an anticipated Trigger.
//
// Unsupported styles make Prepare a no-op. Otherwise exactly one WarmUp call is issued; when
// the driver accepts it the session becomes Ready and the warm-up time is refreshed. Calling
// Prepare while already Ready re-issues the warm-up to keep the actuator hot.
func (s *Session) Prepare() {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	s.decayLocked(now, s.window())
	s.prepares++

	if !s.drv.SupportsStyle(s.style) {
		s.skipped++
		s.emit(Event{Kind: EventSkip, At: now})
		return
	}

	prev := s.state
	s.state = Warming
	ok := s.drv.WarmUp()
	s.warmUps++
	if ok {
		s.state = Ready
		s.lastWarmUp = now
	} else {
		s.warmUpFailures++
		s.state = Decayed
		if s.logger != nil {
			s.logger.Debug("feedback: warm-up rejected",
				slog.String("style", s.style.String()),
				slog.String("session", s.id.String()),
				slog.String("prev_state", prev.String()),
			)
		}
	}
	s.emit(Event{Kind: EventWarmUp, At: now, OK: ok})
}

// Trigger emits one impact at the given intensity, clamped to [0, 1].
//
// The driver is called regardless of the current state; firing without a prior Prepare is
// allowed, only slower on real hardware. Trigger does not change the state and does not refresh
// the warm-up time. Unsupported styles return ResultUnsupported without calling the driver.
func (s *Session) Trigger(intensity float64) Result {
	intensity = ClampIntensity(intensity)

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	s.decayLocked(now, s.window())

	if !s.drv.SupportsStyle(s.style) {
		s.skipped++
		s.emit(Event{Kind: EventSkip, At: now, Intensity: intensity})
		return ResultUnsupported
	}

	ok := s.drv.Fire(s.style, intensity)
	s.fires++
	res := ResultFired
	if !ok {
		s.fireFailures++
		res = ResultDropped
		if s.logger != nil {
			s.logger.Debug("feedback: impact dropped",
				slog.String("style", s.style.String()),
				slog.String("session", s.id.String()),
				slog.Float64("intensity", intensity),
				slog.String("state", s.state.String()),
			)
		}
	}
	s.emit(Event{Kind: EventFire, At: now, Intensity: intensity, OK: ok})
	return res
}

// Impact triggers at DefaultIntensity.
func (s *Session) Impact() Result { return s.Trigger(DefaultIntensity) }

// DecayIfStale moves a Ready session to Decayed when now-lastWarmUp exceeds window.
// It reports whether the session decayed.
func (s *Session) DecayIfStale(now time.Time, window time.Duration) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.decayLocked(now, window)
}

func (s *Session) decayLocked(now time.Time, window time.Duration) bool {
	if s.state != Ready {
		return false
	}
	if now.Sub(s.lastWarmUp) <= window {
		return false
	}
	s.state = Decayed
	s.decays++
	s.emit(Event{Kind: EventDecay, At: now})
	return true
}

// Snapshot returns a point-in-time view of the session.
func (s *Session) Snapshot() SessionSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return SessionSnapshot{
		ID:             s.id,
		Style:          s.style,
		State:          s.state,
		Pooled:         s.pooled,
		LastWarmUp:     s.lastWarmUp,
		Prepares:       s.prepares,
		WarmUps:        s.warmUps,
		WarmUpFailures: s.warmUpFailures,
		Fires:          s.fires,
		FireFailures:   s.fireFailures,
		Skipped:        s.skipped,
		Decays:         s.decays,
	}
}

// emit must be called with s.mu held.
func (s *Session) emit(ev Event) {
	if len(s.hooks) == 0 {
		return
	}
	ev.SessionID = s.id
	ev.Style = s.style
	ev.State = s.state
	for _, h := range s.hooks {
		callHookNoPanic(h, ev)
	}
}

func callHookNoPanic(h Hook, ev Event) {
	defer func() { _ = recover() }()
	h(ev)
}
