package zhaptic

import (
	"context"
	"net/http"

	"github.com/evan-idocoding/zhaptic/admin"
	"github.com/evan-idocoding/zhaptic/rt/sweep"
)

// AdminSpec configures NewDefaultAdmin.
//
// Assembly errors are fail-fast and will panic.
type AdminSpec struct {
	// ReadGuard is required. It protects all read endpoints.
	ReadGuard admin.Guard

	// Version is reported by /buildinfo. Empty reports "dev".
	Version string

	// ReadyChecks are appended to the built-in checks (sweeper running, journal reachable).
	ReadyChecks []admin.ReadyCheck

	// Writes controls write endpoints. nil => disable all writes (default).
	Writes *AdminWriteSpec
}

// AdminWriteSpec controls write endpoints (coarse-grained groups).
type AdminWriteSpec struct {
	// Guard is required when Writes != nil.
	Guard admin.Guard

	// Feedback enables /feedback/prepare and /feedback/trigger.
	Feedback bool

	// Knobs enables /knobs/set and /knobs/reset when non-nil.
	// Its Access is an allowlist; empty => deny-all.
	Knobs *admin.KnobAccessSpec

	// Sweep enables /sweep/run.
	Sweep bool
}

// NewDefaultAdmin assembles a default-safe admin subtree for rt.
//
// Paths are fixed. For custom paths or more composition, use:
//
//	admin.New(...) + admin.EnableXxx(...)
func NewDefaultAdmin(rt *Runtime, spec AdminSpec) http.Handler {
	if rt == nil {
		panic("zhaptic: NewDefaultAdmin: nil Runtime")
	}
	if spec.ReadGuard == nil {
		panic("zhaptic: NewDefaultAdmin: nil ReadGuard")
	}

	checks := []admin.ReadyCheck{{Name: "sweeper", Func: sweeperReady(rt)}}
	if rt.Journal != nil {
		checks = append(checks, admin.ReadyCheck{Name: "journal", Func: rt.Journal.Ping})
	}
	checks = append(checks, spec.ReadyChecks...)

	opts := make([]admin.Option, 0, 16)
	opts = append(opts, admin.WithLogger(rt.Logger))

	// Always-enabled reads.
	opts = append(opts,
		admin.EnableReport(admin.ReportSpec{Guard: spec.ReadGuard}),
		admin.EnableHealthz(admin.HealthzSpec{Guard: spec.ReadGuard}),
		admin.EnableReadyz(admin.ReadyzSpec{Guard: spec.ReadGuard, Checks: checks}),
		admin.EnableBuildInfo(admin.BuildInfoSpec{Guard: spec.ReadGuard, Version: spec.Version}),
		admin.EnableSessions(admin.SessionsSpec{Guard: spec.ReadGuard, Source: rt.Pool}),
		admin.EnableKnobsSnapshot(admin.KnobsSnapshotSpec{Guard: spec.ReadGuard, Knobs: rt.Knobs}),
		admin.EnableSweepStatus(admin.SweepStatusSpec{Guard: spec.ReadGuard, Sweeper: rt.Sweeper}),
	)
	if rt.Journal != nil {
		opts = append(opts, admin.EnableJournal(admin.JournalSpec{Guard: spec.ReadGuard, Journal: rt.Journal}))
	}

	// Writes: default off.
	if w := spec.Writes; w != nil {
		if w.Guard == nil {
			panic("zhaptic: NewDefaultAdmin: Writes != nil but Writes.Guard is nil")
		}
		if w.Feedback {
			opts = append(opts,
				admin.EnablePrepare(admin.PrepareSpec{Guard: w.Guard, Feedback: rt.Pool}),
				admin.EnableTrigger(admin.TriggerSpec{
					Guard:     w.Guard,
					Feedback:  rt.Pool,
					Intensity: rt.Knobs.DefaultIntensity,
				}),
			)
		}
		if w.Knobs != nil {
			opts = append(opts,
				admin.EnableKnobSet(admin.KnobSetSpec{Guard: w.Guard, Knobs: rt.Knobs, Access: *w.Knobs}),
				admin.EnableKnobReset(admin.KnobResetSpec{Guard: w.Guard, Knobs: rt.Knobs, Access: *w.Knobs}),
			)
		}
		if w.Sweep {
			opts = append(opts, admin.EnableSweepRun(admin.SweepRunSpec{Guard: w.Guard, Sweeper: rt.Sweeper}))
		}
	}

	return admin.New(opts...)
}

func sweeperReady(rt *Runtime) func(context.Context) error {
	return func(context.Context) error {
		if !rt.sweepEnabled {
			return nil
		}
		if st := rt.Sweeper.Status().State; st != sweep.StateRunning {
			return errSweeperNotRunning
		}
		return nil
	}
}
