package sweep_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/evan-idocoding/zhaptic/feedback"
	"github.com/evan-idocoding/zhaptic/feedback/feedbacktest"
	"github.com/evan-idocoding/zhaptic/rt/sweep"
)

var t0 = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

type countTarget struct {
	calls atomic.Int64
	panic bool
}

func (c *countTarget) EvictIdle(time.Time, time.Duration) int {
	c.calls.Add(1)
	if c.panic {
		panic("boom")
	}
	return 0
}

func TestSweepNow_DecaysStalePoolSessions(t *testing.T) {
	t.Parallel()

	clk := feedbacktest.NewClock(t0)
	p := feedback.NewPool(&feedbacktest.Driver{}, feedback.WithClock(clk.Now))
	p.Prepare(feedback.Light)
	p.Prepare(feedback.Heavy)

	s := sweep.New(p)
	if n := s.SweepNow(); n != 0 {
		t.Fatalf("fresh sweep decayed %d", n)
	}

	clk.Advance(2100 * time.Millisecond)
	if n := s.SweepNow(); n != 2 {
		t.Fatalf("stale sweep decayed %d, want 2", n)
	}
	if got := p.SessionFor(feedback.Light).State(); got != feedback.Decayed {
		t.Fatalf("state=%v, want decayed", got)
	}

	st := s.Status()
	if st.Runs != 2 || st.Decayed != 2 || st.LastDecayed != 2 || !st.LastRun.Equal(clk.Now()) {
		t.Fatalf("status=%+v", st)
	}
	if st.Window != feedback.DefaultFreshnessWindow {
		t.Fatalf("window=%v, want pool default", st.Window)
	}
}

func TestLoop_RunsOnInterval(t *testing.T) {
	t.Parallel()

	tgt := &countTarget{}
	s := sweep.New(tgt, sweep.WithInterval(func() time.Duration { return 5 * time.Millisecond }))
	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	deadline := time.Now().Add(2 * time.Second)
	for tgt.calls.Load() < 3 {
		if time.Now().After(deadline) {
			t.Fatalf("loop ran %d times", tgt.calls.Load())
		}
		time.Sleep(5 * time.Millisecond)
	}
	if err := s.Shutdown(context.Background()); err != nil {
		t.Fatalf("Shutdown: %v", err)
	}
	if got := s.Status().State; got != sweep.StateStopped {
		t.Fatalf("state=%v", got)
	}
	after := tgt.calls.Load()
	time.Sleep(20 * time.Millisecond)
	if tgt.calls.Load() != after {
		t.Fatalf("loop kept running after Shutdown")
	}
}

func TestLifecycle(t *testing.T) {
	t.Parallel()

	s := sweep.New(&countTarget{}, sweep.WithInterval(func() time.Duration { return time.Hour }))
	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := s.Start(context.Background()); !errors.Is(err, sweep.ErrAlreadyStarted) {
		t.Fatalf("second Start err=%v", err)
	}
	for i := 0; i < 2; i++ {
		if err := s.Shutdown(context.Background()); err != nil {
			t.Fatalf("Shutdown #%d: %v", i, err)
		}
	}
	if err := s.Start(context.Background()); !errors.Is(err, sweep.ErrClosed) {
		t.Fatalf("Start after Shutdown err=%v", err)
	}

	idle := sweep.New(&countTarget{})
	if err := idle.Shutdown(context.Background()); err != nil {
		t.Fatalf("Shutdown before Start: %v", err)
	}
}

func TestPanicIsRecovered(t *testing.T) {
	t.Parallel()

	var got atomic.Value
	s := sweep.New(&countTarget{panic: true}, sweep.WithPanicHandler(func(info sweep.PanicInfo) {
		got.Store(info.Value)
	}))
	if n := s.SweepNow(); n != 0 {
		t.Fatalf("n=%d", n)
	}
	if v, _ := got.Load().(string); v != "boom" {
		t.Fatalf("panic value=%v", got.Load())
	}
	if st := s.Status(); st.Panics != 1 || st.Runs != 1 {
		t.Fatalf("status=%+v", st)
	}
}

func TestIntervalReadEachCycle(t *testing.T) {
	t.Parallel()

	var interval atomic.Int64
	interval.Store(int64(time.Hour))
	s := sweep.New(&countTarget{}, sweep.WithInterval(func() time.Duration { return time.Duration(interval.Load()) }))
	if got := s.Status().Interval; got != time.Hour {
		t.Fatalf("interval=%v", got)
	}
	interval.Store(0)
	if got := s.Status().Interval; got != sweep.DefaultInterval {
		t.Fatalf("interval=%v, want default", got)
	}
}

func TestStartContextEndStopsSweeper(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	s := sweep.New(&countTarget{}, sweep.WithInterval(func() time.Duration { return time.Hour }))
	if err := s.Start(ctx); err != nil {
		t.Fatal(err)
	}
	cancel()

	deadline := time.Now().Add(2 * time.Second)
	for s.Status().State != sweep.StateStopped {
		if time.Now().After(deadline) {
			t.Fatalf("state=%v after ctx end, want stopped", s.Status().State)
		}
		time.Sleep(5 * time.Millisecond)
	}
	if err := s.Shutdown(context.Background()); err != nil {
		t.Fatalf("Shutdown after ctx end: %v", err)
	}
	if err := s.Start(context.Background()); !errors.Is(err, sweep.ErrClosed) {
		t.Fatalf("restart err=%v", err)
	}
}
