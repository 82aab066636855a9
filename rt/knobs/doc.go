// Package knobs holds the runtime-tunable parameters of a zhaptic process.
//
// The set of knobs is fixed:
//
//	feedback.freshness_window   duration  default 2s    range [10ms, 1m]
//	feedback.default_intensity  float64   default 1.0   range [0, 1]
//	sweep.interval              duration  default 5s    range [100ms, 10m]
//	log.level                   enum      default info  debug|info|warn|error
//
// # Reads and writes
//
// Typed getters (FreshnessWindow, DefaultIntensity, SweepInterval) are lock-free and
// allocation-free, so they can sit on the hot path: feedback.WithFreshnessSource reads the
// window on every Prepare/Trigger, and the sweeper reads the interval every cycle. A change
// applies to the next read; nothing is restarted.
//
// Writes (Set, Reset) are serialized by a single gate. Values are validated against the
// knob's range before they are applied; a rejected write leaves the current value untouched
// and returns an error wrapping ErrInvalidValue.
//
// log.level is bound to a *slog.LevelVar (see LogLevel). Install it as the level of the
// process's slog handler and the knob changes logging verbosity live.
//
// # Source
//
// Each Item reports Source: SourceDefault when the current value equals the default, and
// SourceRuntimeSet otherwise. Source reflects current state, not history.
//
// Values live in memory only. Restarting the process restores the configured defaults.
package knobs
