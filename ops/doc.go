// Package ops provides net/http handlers for operating a zhaptic process.
//
// ops does not choose routing paths, does not authenticate, and does not start servers. Mount
// the handlers yourself, or use package admin (or zhaptic.NewDefaultAdmin) for an assembled
// and guarded tree.
//
// # Formats
//
// Every handler renders text or JSON. Text is the default; it is line based with tab separated
// fields so it stays greppable. The default can be changed with WithDefaultFormat and
// overridden per request:
//   - ?format=text
//   - ?format=json
//
// Responses always carry Cache-Control: no-store.
//
// # What ops provides
//
//   - health: HealthzHandler (liveness), ReadyzHandler (readiness checks)
//   - feedback: SessionsHandler, PrepareHandler, TriggerHandler
//   - knobs: KnobsSnapshotHandler, KnobSetHandler, KnobResetHandler (rt/knobs)
//   - sweep: SweepStatusHandler, SweepRunHandler (rt/sweep)
//   - journal: JournalRecentHandler
//   - build: BuildInfoHandler
//
// Read handlers accept GET and HEAD. Write handlers (prepare, trigger, knob set/reset, sweep
// run) accept POST only and take their inputs from the URL query. Any other method gets 405
// with an Allow header.
//
// # Failure semantics
//
// Feedback handlers never report a haptic failure as an HTTP error. A dropped or unsupported
// impact is a 200 with result=dropped or result=unsupported. Only malformed input (an unknown
// style, an unparsable intensity) is a 400.
package ops
