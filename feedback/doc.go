// Package feedback schedules and triggers short-lived haptic impacts on a device actuator.
//
// It is small and standard-library flavored: the only dependency outside the standard library
// is github.com/google/uuid (session identity). Hardware access is delegated to a Driver.
//
// # Model
//
//   - Driver: the actuator backend (capability query, warm-up, fire). It may be a no-op stub.
//   - Session: the prepare/decay state machine for one Style.
//   - Pool: at most one live Session per Style, created lazily and shared.
//
// Typical flow from a UI event handler:
//
//	pool := feedback.NewPool(drv)
//
//	// pointer down / hover: anticipate the interaction
//	pool.SessionFor(feedback.Medium).Prepare()
//
//	// pointer up: confirmed interaction
//	pool.SessionFor(feedback.Medium).Trigger(0.8)
//
// # Prepare / trigger lifecycle
//
// A Session starts Cold. Prepare issues one warm-up call to the driver and, when the driver
// accepts it, moves the session to Ready and records the warm-up time. A warm-up that the driver
// rejects leaves the session Decayed. Warming is only observable while the warm-up call runs.
//
// Trigger fires regardless of state. Firing from Ready is simply lower-latency on real hardware.
// Trigger never refreshes the warm-up time: only Prepare does, so a burst of triggers without
// re-preparing eventually decays.
//
// Decay is lazy. Every Prepare/Trigger first compares the last warm-up time with the freshness
// window (default 2s) and moves Ready to Decayed when the window has passed. There is no timer in
// this package. Pool.EvictIdle runs the same check over all sessions for callers who want a
// periodic sweep (see package rt/sweep).
//
// # Failure semantics
//
// No operation returns an error or panics because of the actuator:
//   - Unsupported styles (Driver.SupportsStyle == false) make Prepare and Trigger no-ops.
//   - Intensity is clamped to [0, 1]. NaN is treated as 0.
//   - A driver that reports a failed fire is not retried. The moment has passed.
//
// Trigger returns a Result for callers that want to observe what happened; ignoring it is fine.
//
// # Concurrency
//
// Session and Pool are safe for concurrent use. All operations on a Session are serialized by a
// per-session mutex, and driver calls are made while holding it, so driver implementations must
// not block. Wrap a blocking driver with package driver/dispatch.
//
// # Observability
//
// WithHook installs a synchronous observer that receives an Event after every warm-up, fire, skip
// and decay. Hooks must be fast; panics in hooks are recovered and swallowed. WithLogger enables
// debug-level diagnostics through log/slog.
package feedback
