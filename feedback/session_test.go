package feedback_test

import (
	"math"
	"sync"
	"testing"
	"time"

	"github.com/evan-idocoding/zhaptic/feedback"
	"github.com/evan-idocoding/zhaptic/feedback/feedbacktest"
)

var t0 = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

func newTestSession(drv feedback.Driver, opts ...feedback.Option) (*feedback.Session, *feedbacktest.Clock) {
	clk := feedbacktest.NewClock(t0)
	opts = append([]feedback.Option{feedback.WithClock(clk.Now)}, opts...)
	return feedback.NewSession(feedback.Medium, drv, opts...), clk
}

func TestSession_InitialStateCold(t *testing.T) {
	t.Parallel()

	s, _ := newTestSession(&feedbacktest.Driver{})
	if got := s.State(); got != feedback.Cold {
		t.Fatalf("state=%v, want %v", got, feedback.Cold)
	}
	if !s.LastWarmUp().IsZero() {
		t.Fatalf("LastWarmUp=%v, want zero", s.LastWarmUp())
	}
}

func TestSession_PrepareMovesToReady(t *testing.T) {
	t.Parallel()

	drv := &feedbacktest.Driver{}
	s, _ := newTestSession(drv)
	s.Prepare()

	if got := s.State(); got != feedback.Ready {
		t.Fatalf("state=%v, want %v", got, feedback.Ready)
	}
	if got := drv.WarmUps(); got != 1 {
		t.Fatalf("warmUps=%d, want 1", got)
	}
	if !s.LastWarmUp().Equal(t0) {
		t.Fatalf("LastWarmUp=%v, want %v", s.LastWarmUp(), t0)
	}
}

func TestSession_PrepareWhileReadyReissuesWarmUp(t *testing.T) {
	t.Parallel()

	drv := &feedbacktest.Driver{}
	s, clk := newTestSession(drv)
	s.Prepare()
	clk.Advance(500 * time.Millisecond)
	s.Prepare()

	if got := drv.WarmUps(); got != 2 {
		t.Fatalf("warmUps=%d, want 2", got)
	}
	if want := t0.Add(500 * time.Millisecond); !s.LastWarmUp().Equal(want) {
		t.Fatalf("LastWarmUp=%v, want %v", s.LastWarmUp(), want)
	}
	if got := s.State(); got != feedback.Ready {
		t.Fatalf("state=%v, want %v", got, feedback.Ready)
	}
}

func TestSession_RejectedWarmUpDecays(t *testing.T) {
	t.Parallel()

	drv := &feedbacktest.Driver{RejectWarmUp: true}
	s, _ := newTestSession(drv)
	s.Prepare()

	if got := s.State(); got != feedback.Decayed {
		t.Fatalf("state=%v, want %v", got, feedback.Decayed)
	}
	if !s.LastWarmUp().IsZero() {
		t.Fatalf("LastWarmUp=%v, want zero", s.LastWarmUp())
	}
	// Trigger still fires: warm-up is advisory.
	if got := s.Trigger(1); got != feedback.ResultFired {
		t.Fatalf("Trigger=%v, want %v", got, feedback.ResultFired)
	}
	snap := s.Snapshot()
	if snap.WarmUpFailures != 1 || snap.Fires != 1 {
		t.Fatalf("snapshot=%+v, want 1 warm-up failure and 1 fire", snap)
	}
}

func TestSession_DecayWindow(t *testing.T) {
	t.Parallel()

	s, _ := newTestSession(&feedbacktest.Driver{})
	s.Prepare()

	window := 2 * time.Second
	if s.DecayIfStale(t0.Add(1900*time.Millisecond), window) {
		t.Fatalf("decayed at 1.9s, want still ready")
	}
	if got := s.State(); got != feedback.Ready {
		t.Fatalf("state at 1.9s=%v, want %v", got, feedback.Ready)
	}
	// Exactly at the window boundary the warm-up is still fresh.
	if s.DecayIfStale(t0.Add(window), window) {
		t.Fatalf("decayed at 2.0s, want still ready")
	}
	if !s.DecayIfStale(t0.Add(2100*time.Millisecond), window) {
		t.Fatalf("not decayed at 2.1s")
	}
	if got := s.State(); got != feedback.Decayed {
		t.Fatalf("state at 2.1s=%v, want %v", got, feedback.Decayed)
	}
	// Only Ready decays.
	if s.DecayIfStale(t0.Add(time.Hour), window) {
		t.Fatalf("decayed twice")
	}
}

func TestSession_DecayIsLazyOnTrigger(t *testing.T) {
	t.Parallel()

	drv := &feedbacktest.Driver{}
	s, clk := newTestSession(drv, feedback.WithFreshnessWindow(time.Second))
	s.Prepare()
	clk.Advance(1500 * time.Millisecond)

	if got := s.Trigger(0.5); got != feedback.ResultFired {
		t.Fatalf("Trigger=%v, want %v", got, feedback.ResultFired)
	}
	if got := s.State(); got != feedback.Decayed {
		t.Fatalf("state=%v, want %v", got, feedback.Decayed)
	}
	if got := drv.Fires(); got != 1 {
		t.Fatalf("fires=%d, want 1", got)
	}
}

func TestSession_TriggerDoesNotRefreshWarmUp(t *testing.T) {
	t.Parallel()

	drv := &feedbacktest.Driver{}
	s, clk := newTestSession(drv)
	s.Prepare()
	for i := 0; i < 5; i++ {
		clk.Advance(500 * time.Millisecond)
		s.Trigger(1)
	}
	if !s.LastWarmUp().Equal(t0) {
		t.Fatalf("LastWarmUp=%v, want %v", s.LastWarmUp(), t0)
	}
	// 2.5s after the only Prepare: the last trigger saw a stale warm-up.
	if got := s.State(); got != feedback.Decayed {
		t.Fatalf("state=%v, want %v", got, feedback.Decayed)
	}
	if got := drv.Fires(); got != 5 {
		t.Fatalf("fires=%d, want 5", got)
	}
}

func TestSession_TriggerWithoutPrepareFires(t *testing.T) {
	t.Parallel()

	drv := &feedbacktest.Driver{}
	s, _ := newTestSession(drv)
	if got := s.Trigger(0.3); got != feedback.ResultFired {
		t.Fatalf("Trigger=%v, want %v", got, feedback.ResultFired)
	}
	if got := s.State(); got != feedback.Cold {
		t.Fatalf("state=%v, want %v", got, feedback.Cold)
	}
	if got := drv.WarmUps(); got != 0 {
		t.Fatalf("warmUps=%d, want 0", got)
	}
}

func TestSession_Clamping(t *testing.T) {
	t.Parallel()

	cases := []struct {
		in   float64
		want float64
	}{
		{-0.5, 0},
		{0, 0},
		{0.25, 0.25},
		{1, 1},
		{1.7, 1},
		{math.Inf(1), 1},
		{math.Inf(-1), 0},
		{math.NaN(), 0},
	}
	for _, tc := range cases {
		drv := &feedbacktest.Driver{}
		s, _ := newTestSession(drv)
		s.Trigger(tc.in)
		calls := drv.Calls()
		if len(calls) != 1 {
			t.Fatalf("in=%v: calls=%d, want 1", tc.in, len(calls))
		}
		if calls[0].Intensity != tc.want {
			t.Fatalf("in=%v: intensity=%v, want %v", tc.in, calls[0].Intensity, tc.want)
		}
	}
}

func TestSession_ClampedTriggersBehaveIdentically(t *testing.T) {
	t.Parallel()

	pairs := [][2]float64{{-0.5, 0}, {1.7, 1}}
	for _, p := range pairs {
		a, b := &feedbacktest.Driver{}, &feedbacktest.Driver{}
		sa, _ := newTestSession(a)
		sb, _ := newTestSession(b)
		ra, rb := sa.Trigger(p[0]), sb.Trigger(p[1])
		if ra != rb {
			t.Fatalf("results differ for %v vs %v: %v vs %v", p[0], p[1], ra, rb)
		}
		ca, cb := a.Calls(), b.Calls()
		if len(ca) != 1 || len(cb) != 1 || ca[0] != cb[0] {
			t.Fatalf("calls differ for %v vs %v: %v vs %v", p[0], p[1], ca, cb)
		}
		if sa.State() != sb.State() {
			t.Fatalf("states differ: %v vs %v", sa.State(), sb.State())
		}
	}
}

func TestSession_UnsupportedIsNoop(t *testing.T) {
	t.Parallel()

	drv := feedbacktest.Unsupporting()
	s, _ := newTestSession(drv)
	s.Prepare()
	if got := s.State(); got != feedback.Cold {
		t.Fatalf("state=%v, want %v", got, feedback.Cold)
	}
	if got := s.Trigger(1); got != feedback.ResultUnsupported {
		t.Fatalf("Trigger=%v, want %v", got, feedback.ResultUnsupported)
	}
	if drv.WarmUps() != 0 || drv.Fires() != 0 {
		t.Fatalf("warmUps=%d fires=%d, want 0/0", drv.WarmUps(), drv.Fires())
	}
	if got := s.Snapshot().Skipped; got != 2 {
		t.Fatalf("skipped=%d, want 2", got)
	}
}

func TestSession_NilDriverIsNop(t *testing.T) {
	t.Parallel()

	s := feedback.NewSession(feedback.Heavy, nil)
	s.Prepare()
	if got := s.Impact(); got != feedback.ResultUnsupported {
		t.Fatalf("Impact=%v, want %v", got, feedback.ResultUnsupported)
	}
	if got := s.State(); got != feedback.Cold {
		t.Fatalf("state=%v, want %v", got, feedback.Cold)
	}
}

func TestSession_DroppedFireIsNotRetried(t *testing.T) {
	t.Parallel()

	drv := &feedbacktest.Driver{RejectFire: true}
	s, _ := newTestSession(drv)
	s.Prepare()
	if got := s.Trigger(1); got != feedback.ResultDropped {
		t.Fatalf("Trigger=%v, want %v", got, feedback.ResultDropped)
	}
	if got := drv.Fires(); got != 1 {
		t.Fatalf("fires=%d, want 1", got)
	}
	if got := s.State(); got != feedback.Ready {
		t.Fatalf("state=%v, want %v", got, feedback.Ready)
	}
}

func TestSession_ScenarioOneWarmUpTwoFires(t *testing.T) {
	t.Parallel()

	drv := &feedbacktest.Driver{}
	s, clk := newTestSession(drv)

	s.Prepare()
	if got := s.State(); got != feedback.Ready {
		t.Fatalf("after prepare state=%v, want %v", got, feedback.Ready)
	}
	clk.Advance(100 * time.Millisecond)
	s.Trigger(1.0)
	if got := s.State(); got != feedback.Ready {
		t.Fatalf("after 1st trigger state=%v, want %v", got, feedback.Ready)
	}
	clk.Advance(100 * time.Millisecond)
	s.Trigger(1.0)
	if got := s.State(); got != feedback.Ready {
		t.Fatalf("after 2nd trigger state=%v, want %v", got, feedback.Ready)
	}

	if got := drv.WarmUps(); got != 1 {
		t.Fatalf("warmUps=%d, want 1", got)
	}
	if got := drv.Fires(); got != 2 {
		t.Fatalf("fires=%d, want 2", got)
	}
}

func TestSession_HookEventsAndPanicContainment(t *testing.T) {
	t.Parallel()

	var mu sync.Mutex
	var kinds []feedback.EventKind
	record := func(ev feedback.Event) {
		mu.Lock()
		kinds = append(kinds, ev.Kind)
		mu.Unlock()
	}
	boom := func(feedback.Event) { panic("boom") }

	s, clk := newTestSession(&feedbacktest.Driver{},
		feedback.WithHook(boom),
		feedback.WithHook(record),
		feedback.WithFreshnessWindow(time.Second),
	)
	s.Prepare()
	s.Trigger(1)
	clk.Advance(2 * time.Second)
	s.Trigger(1)

	want := []feedback.EventKind{feedback.EventWarmUp, feedback.EventFire, feedback.EventDecay, feedback.EventFire}
	mu.Lock()
	defer mu.Unlock()
	if len(kinds) != len(want) {
		t.Fatalf("events=%v, want %v", kinds, want)
	}
	for i := range want {
		if kinds[i] != want[i] {
			t.Fatalf("events=%v, want %v", kinds, want)
		}
	}
}

func TestSession_FreshnessSourceIsReadLive(t *testing.T) {
	t.Parallel()

	var mu sync.Mutex
	window := 5 * time.Second
	src := func() time.Duration {
		mu.Lock()
		defer mu.Unlock()
		return window
	}

	s, clk := newTestSession(&feedbacktest.Driver{}, feedback.WithFreshnessSource(src))
	s.Prepare()
	clk.Advance(3 * time.Second)
	s.Trigger(1)
	if got := s.State(); got != feedback.Ready {
		t.Fatalf("state=%v, want %v", got, feedback.Ready)
	}

	mu.Lock()
	window = time.Second
	mu.Unlock()
	s.Trigger(1)
	if got := s.State(); got != feedback.Decayed {
		t.Fatalf("state=%v, want %v", got, feedback.Decayed)
	}
}

func TestSession_ConcurrentUse(t *testing.T) {
	t.Parallel()

	drv := &feedbacktest.Driver{}
	s := feedback.NewSession(feedback.Rigid, drv)

	const workers, iters = 8, 200
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < iters; i++ {
				s.Prepare()
				s.Trigger(float64(i%3) / 2)
			}
		}()
	}
	wg.Wait()

	snap := s.Snapshot()
	if snap.WarmUps != workers*iters || snap.Fires != workers*iters {
		t.Fatalf("snapshot=%+v, want %d warm-ups and fires", snap, workers*iters)
	}
	if drv.Fires() != workers*iters {
		t.Fatalf("driver fires=%d, want %d", drv.Fires(), workers*iters)
	}
}
