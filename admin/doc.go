// Package admin assembles a guarded operator subtree (http.Handler) out of package ops
// handlers.
//
// Mount the returned handler anywhere:
//
//	mux := http.NewServeMux()
//	mux.Handle("/-/", http.StripPrefix("/-", admin.New(...)))
//
// admin only speaks text and JSON; there is no UI.
//
// # Explicit enable, explicit guard
//
// Nothing is mounted unless enabled with an EnableXxx option, and every enabled capability
// needs a non-nil Guard. Guards available here:
//   - AllowAll, DenyAll
//   - Tokens: a static token list checked against a request header (X-Access-Token by default)
//   - Check: a custom predicate
//
// Read and write capabilities are enabled separately, so it is easy to give prepare/trigger,
// knob writes and manual sweeps a stricter guard than the read endpoints.
//
// # Assembly errors are fail-fast
//
// A nil Guard, a nil data source, an invalid path or a duplicated path is a programming error
// and panics inside New.
//
// # Default paths
//
// Read (GET/HEAD):
//   - EnableReport:          "/report"
//   - EnableHealthz:         "/healthz"
//   - EnableReadyz:          "/readyz"
//   - EnableBuildInfo:       "/buildinfo"
//   - EnableSessions:        "/sessions"
//   - EnableKnobsSnapshot:   "/knobs"
//   - EnableSweepStatus:     "/sweep"
//   - EnableJournal:         "/journal"
//
// Write (POST):
//   - EnablePrepare:         "/feedback/prepare"
//   - EnableTrigger:         "/feedback/trigger"
//   - EnableKnobSet:         "/knobs/set"
//   - EnableKnobReset:       "/knobs/reset"
//   - EnableSweepRun:        "/sweep/run"
//
// /report is a text page that concatenates every other enabled read endpoint except
// /healthz and /readyz.
//
// # Middleware
//
// Every request passes through panic recovery (500 on panic, reported to a handler or to
// stderr) and gets an X-Request-ID. With WithLogger, each request is logged at debug level.
package admin
