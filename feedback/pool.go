package feedback

import (
	"sort"
	"sync"
	"time"
)

// Pool keeps at most one live Session per Style.
//
// Sessions are created lazily on first access and shared afterwards; their lifetime is tied to
// the pool. Pool is safe for concurrent use.
type Pool struct {
	drv Driver
	cfg config

	mu       sync.RWMutex
	sessions map[Style]*Session
}

// NewPool creates a pool whose sessions use drv. A nil driver is treated as NopDriver.
//
// Options apply to every session the pool creates; WithMaxSessions caps the pool size.
func NewPool(drv Driver, opts ...Option) *Pool {
	if drv == nil {
		drv = NopDriver{}
	}
	return &Pool{
		drv:      drv,
		cfg:      applyOptions(opts),
		sessions: make(map[Style]*Session, numStyles),
	}
}

// SessionFor returns the session for style, creating it on first access.
//
// Concurrent callers for the same style always observe the same session. Two cases return a
// detached session that is not stored in the pool:
//   - style is not a declared Style: the session is bound to NopDriver, so it never fires.
//   - the pool is full (WithMaxSessions): the session is a one-off that uses the pool's driver.
func (p *Pool) SessionFor(style Style) *Session {
	if !style.Valid() {
		return newSession(style, NopDriver{}, p.cfg, false)
	}

	p.mu.RLock()
	s, ok := p.sessions[style]
	p.mu.RUnlock()
	if ok {
		return s
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if s, ok := p.sessions[style]; ok {
		return s
	}
	if len(p.sessions) >= p.cfg.maxSessions {
		return newSession(style, p.drv, p.cfg, false)
	}
	s = newSession(style, p.drv, p.cfg, true)
	p.sessions[style] = s
	return s
}

// Prepare is shorthand for SessionFor(style).Prepare().
func (p *Pool) Prepare(style Style) { p.SessionFor(style).Prepare() }

// Trigger is shorthand for SessionFor(style).Trigger(intensity).
func (p *Pool) Trigger(style Style, intensity float64) Result {
	return p.SessionFor(style).Trigger(intensity)
}

// EvictIdle applies DecayIfStale to every pooled session and returns how many decayed.
//
// It is a caller-driven maintenance hook: sessions also decay lazily on their next
// Prepare/Trigger, so calling EvictIdle is never required for correctness.
func (p *Pool) EvictIdle(now time.Time, window time.Duration) int {
	n := 0
	for _, s := range p.Sessions() {
		if s.DecayIfStale(now, window) {
			n++
		}
	}
	return n
}

// FreshnessWindow returns the freshness window currently in effect for pooled sessions.
func (p *Pool) FreshnessWindow() time.Duration { return p.cfg.window() }

// Now returns the pool clock's current time.
func (p *Pool) Now() time.Time { return p.cfg.now() }

// Len returns the number of pooled sessions.
func (p *Pool) Len() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.sessions)
}

// Sessions returns the pooled sessions sorted by style.
func (p *Pool) Sessions() []*Session {
	p.mu.RLock()
	out := make([]*Session, 0, len(p.sessions))
	for _, s := range p.sessions {
		out = append(out, s)
	}
	p.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].style < out[j].style })
	return out
}

// Snapshot returns snapshots of all pooled sessions sorted by style.
func (p *Pool) Snapshot() []SessionSnapshot {
	ss := p.Sessions()
	out := make([]SessionSnapshot, 0, len(ss))
	for _, s := range ss {
		out = append(out, s.Snapshot())
	}
	return out
}
