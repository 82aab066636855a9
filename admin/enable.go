package admin

import (
	"context"
	"time"

	"github.com/evan-idocoding/zhaptic/ops"
	"github.com/evan-idocoding/zhaptic/rt/knobs"
)

// --- health ---

// HealthzSpec configures the liveness endpoint.
type HealthzSpec struct {
	Guard Guard
	Path  string // default "/healthz"
}

// EnableHealthz mounts GET /healthz, which always answers 200 ok.
func EnableHealthz(spec HealthzSpec) Option {
	return func(b *Builder) {
		b.mountRead("healthz", resolvePath(spec.Path, "/healthz"), spec.Guard, ops.HealthzHandler(), false)
	}
}

// ReadyCheck is a named readiness check.
type ReadyCheck struct {
	Name    string
	Func    func(context.Context) error
	Timeout time.Duration // <= 0 means no extra timeout
}

// ReadyzSpec configures the readiness endpoint.
type ReadyzSpec struct {
	Guard  Guard
	Path   string // default "/readyz"
	Checks []ReadyCheck
}

// EnableReadyz mounts GET /readyz. It answers 503 when any check fails.
func EnableReadyz(spec ReadyzSpec) Option {
	return func(b *Builder) {
		requireGuard(spec.Guard, "readyz")
		checks := make([]ops.ReadyCheck, 0, len(spec.Checks))
		for _, c := range spec.Checks {
			checks = append(checks, ops.ReadyCheck{Name: c.Name, Func: c.Func, Timeout: c.Timeout})
		}
		b.mountRead("readyz", resolvePath(spec.Path, "/readyz"), spec.Guard, ops.ReadyzHandler(checks), false)
	}
}

// --- build ---

// BuildInfoSpec configures the build info endpoint.
type BuildInfoSpec struct {
	Guard   Guard
	Path    string // default "/buildinfo"
	Version string
}

// EnableBuildInfo mounts GET /buildinfo with the version and build metadata.
func EnableBuildInfo(spec BuildInfoSpec) Option {
	return func(b *Builder) {
		b.mountRead("buildinfo", resolvePath(spec.Path, "/buildinfo"), spec.Guard, ops.BuildInfoHandler(spec.Version), true)
	}
}

// --- feedback ---

// SessionsSpec configures the session listing endpoint.
type SessionsSpec struct {
	Guard  Guard
	Path   string // default "/sessions"
	Source ops.SessionSource
}

// EnableSessions mounts GET /sessions, a snapshot of every live session.
func EnableSessions(spec SessionsSpec) Option {
	return func(b *Builder) {
		if spec.Source == nil {
			panic("admin: sessions: nil Source")
		}
		b.mountRead("sessions", resolvePath(spec.Path, "/sessions"), spec.Guard, ops.SessionsHandler(spec.Source), true)
	}
}

// PrepareSpec configures the prepare write endpoint.
type PrepareSpec struct {
	Guard    Guard
	Path     string // default "/feedback/prepare"
	Feedback ops.Feedback
}

// EnablePrepare mounts POST /feedback/prepare?style=, which warms a session up.
func EnablePrepare(spec PrepareSpec) Option {
	return func(b *Builder) {
		if spec.Feedback == nil {
			panic("admin: feedback.prepare: nil Feedback")
		}
		b.mountWrite("feedback.prepare", resolvePath(spec.Path, "/feedback/prepare"), spec.Guard, ops.PrepareHandler(spec.Feedback))
	}
}

// TriggerSpec configures the trigger write endpoint.
type TriggerSpec struct {
	Guard    Guard
	Path     string // default "/feedback/trigger"
	Feedback ops.Feedback

	// Intensity, if set, supplies the intensity for requests without ?intensity=.
	Intensity func() float64
}

// EnableTrigger mounts POST /feedback/trigger?style=&intensity=, which fires one impact.
func EnableTrigger(spec TriggerSpec) Option {
	return func(b *Builder) {
		if spec.Feedback == nil {
			panic("admin: feedback.trigger: nil Feedback")
		}
		h := ops.TriggerHandler(spec.Feedback, ops.WithIntensitySource(spec.Intensity))
		b.mountWrite("feedback.trigger", resolvePath(spec.Path, "/feedback/trigger"), spec.Guard, h)
	}
}

// --- knobs ---

// KnobsSnapshotSpec configures the knob listing endpoint.
type KnobsSnapshotSpec struct {
	Guard Guard
	Path  string // default "/knobs"
	Knobs *knobs.Knobs
}

// EnableKnobsSnapshot mounts GET /knobs.
func EnableKnobsSnapshot(spec KnobsSnapshotSpec) Option {
	return func(b *Builder) {
		if spec.Knobs == nil {
			panic("admin: knobs: nil Knobs")
		}
		b.mountRead("knobs", resolvePath(spec.Path, "/knobs"), spec.Guard, ops.KnobsSnapshotHandler(spec.Knobs), true)
	}
}

// KnobAccessSpec limits which knobs a write endpoint may touch.
type KnobAccessSpec struct {
	// AllowAll permits every knob. Otherwise only AllowKeys are writable; an empty spec
	// denies every write.
	AllowAll  bool
	AllowKeys []string
}

func (a KnobAccessSpec) options() []ops.Option {
	if a.AllowAll {
		return nil
	}
	return []ops.Option{ops.WithKnobAllowKeys(a.AllowKeys...)}
}

// KnobSetSpec configures the knob set endpoint.
type KnobSetSpec struct {
	Guard  Guard
	Path   string // default "/knobs/set"
	Knobs  *knobs.Knobs
	Access KnobAccessSpec
}

// EnableKnobSet mounts POST /knobs/set?key=&value=, limited by Access.
func EnableKnobSet(spec KnobSetSpec) Option {
	return func(b *Builder) {
		if spec.Knobs == nil {
			panic("admin: knobs.set: nil Knobs")
		}
		h := ops.KnobSetHandler(spec.Knobs, spec.Access.options()...)
		b.mountWrite("knobs.set", resolvePath(spec.Path, "/knobs/set"), spec.Guard, h)
	}
}

// KnobResetSpec configures the knob reset endpoint.
type KnobResetSpec struct {
	Guard  Guard
	Path   string // default "/knobs/reset"
	Knobs  *knobs.Knobs
	Access KnobAccessSpec
}

// EnableKnobReset mounts POST /knobs/reset?key=, restoring the knob's default. Limited by Access.
func EnableKnobReset(spec KnobResetSpec) Option {
	return func(b *Builder) {
		if spec.Knobs == nil {
			panic("admin: knobs.reset: nil Knobs")
		}
		h := ops.KnobResetHandler(spec.Knobs, spec.Access.options()...)
		b.mountWrite("knobs.reset", resolvePath(spec.Path, "/knobs/reset"), spec.Guard, h)
	}
}

// --- sweep ---

// SweepStatusSpec configures the sweeper status endpoint.
type SweepStatusSpec struct {
	Guard   Guard
	Path    string // default "/sweep"
	Sweeper ops.Sweeper
}

// EnableSweepStatus mounts GET /sweep.
func EnableSweepStatus(spec SweepStatusSpec) Option {
	return func(b *Builder) {
		if spec.Sweeper == nil {
			panic("admin: sweep: nil Sweeper")
		}
		b.mountRead("sweep", resolvePath(spec.Path, "/sweep"), spec.Guard, ops.SweepStatusHandler(spec.Sweeper), true)
	}
}

// SweepRunSpec configures the manual sweep endpoint.
type SweepRunSpec struct {
	Guard   Guard
	Path    string // default "/sweep/run"
	Sweeper ops.Sweeper
}

// EnableSweepRun mounts POST /sweep/run, which sweeps once and reports the decayed count.
func EnableSweepRun(spec SweepRunSpec) Option {
	return func(b *Builder) {
		if spec.Sweeper == nil {
			panic("admin: sweep.run: nil Sweeper")
		}
		b.mountWrite("sweep.run", resolvePath(spec.Path, "/sweep/run"), spec.Guard, ops.SweepRunHandler(spec.Sweeper))
	}
}

// --- journal ---

// JournalSpec configures the journal endpoint.
type JournalSpec struct {
	Guard   Guard
	Path    string // default "/journal"
	Journal ops.JournalReader
}

// EnableJournal mounts GET /journal?limit=, the most recent journal entries.
func EnableJournal(spec JournalSpec) Option {
	return func(b *Builder) {
		if spec.Journal == nil {
			panic("admin: journal: nil Journal")
		}
		b.mountRead("journal", resolvePath(spec.Path, "/journal"), spec.Guard, ops.JournalRecentHandler(spec.Journal), true)
	}
}
