package ops

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/evan-idocoding/zhaptic/feedback"
	"github.com/evan-idocoding/zhaptic/feedback/feedbacktest"
	"github.com/evan-idocoding/zhaptic/journal"
	"github.com/evan-idocoding/zhaptic/rt/knobs"
	"github.com/evan-idocoding/zhaptic/rt/sweep"
)

func serve(t *testing.T, h http.Handler, method, target string) *httptest.ResponseRecorder {
	t.Helper()
	r := httptest.NewRequest(method, "http://example"+target, nil)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, r)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	if ct := w.Header().Get("Content-Type"); !strings.HasPrefix(ct, "application/json") {
		t.Fatalf("Content-Type=%q, want application/json", ct)
	}
	var got map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &got); err != nil {
		t.Fatalf("unmarshal: %v; body=%q", err, w.Body.String())
	}
	return got
}

func TestHealthz(t *testing.T) {
	t.Parallel()

	w := serve(t, HealthzHandler(), http.MethodGet, "/healthz")
	if w.Code != http.StatusOK || w.Body.String() != "ok\n" {
		t.Fatalf("code=%d body=%q", w.Code, w.Body.String())
	}
	if got := w.Header().Get("Cache-Control"); got != "no-store" {
		t.Fatalf("Cache-Control=%q", got)
	}

	w = serve(t, HealthzHandler(WithDefaultFormat(FormatJSON)), http.MethodGet, "/healthz")
	if ok, _ := decode(t, w)["ok"].(bool); !ok {
		t.Fatalf("json ok=false")
	}

	w = serve(t, HealthzHandler(WithDefaultFormat(FormatJSON)), http.MethodGet, "/healthz?format=text")
	if w.Body.String() != "ok\n" {
		t.Fatalf("query override ignored: %q", w.Body.String())
	}

	w = serve(t, HealthzHandler(), http.MethodHead, "/healthz")
	if w.Code != http.StatusOK || w.Body.Len() != 0 {
		t.Fatalf("HEAD code=%d body=%q", w.Code, w.Body.String())
	}

	w = serve(t, HealthzHandler(), http.MethodPost, "/healthz")
	if w.Code != http.StatusMethodNotAllowed || w.Header().Get("Allow") != "GET, HEAD" {
		t.Fatalf("POST code=%d allow=%q", w.Code, w.Header().Get("Allow"))
	}
}

func TestReadyz(t *testing.T) {
	t.Parallel()

	h := ReadyzHandler([]ReadyCheck{
		{Name: "ok", Func: func(context.Context) error { return nil }},
		{Name: "journal", Func: func(context.Context) error { return errors.New("disk gone") }},
		{Name: "slow", Timeout: 10 * time.Millisecond, Func: func(ctx context.Context) error {
			<-ctx.Done()
			return ctx.Err()
		}},
		{Name: "boom", Func: func(context.Context) error { panic("x") }},
	})
	w := serve(t, h, http.MethodGet, "/readyz")
	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("code=%d", w.Code)
	}
	body := w.Body.String()
	for _, want := range []string{"fail\tjournal\tdisk gone\n", "fail\tslow\t", "fail\tboom\tpanic: x\n"} {
		if !strings.Contains(body, want) {
			t.Fatalf("body %q missing %q", body, want)
		}
	}
	if strings.Contains(body, "fail\tok") {
		t.Fatalf("passing check reported: %q", body)
	}
}

func TestReadyz_PanicsOnBadCheck(t *testing.T) {
	t.Parallel()

	defer func() {
		if recover() == nil {
			t.Fatalf("expected panic")
		}
	}()
	ReadyzHandler([]ReadyCheck{{Name: "x"}})
}

func newPool(drv feedback.Driver) (*feedback.Pool, *feedbacktest.Clock) {
	clk := feedbacktest.NewClock(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
	return feedback.NewPool(drv, feedback.WithClock(clk.Now)), clk
}

func TestPrepareAndTrigger(t *testing.T) {
	t.Parallel()

	drv := &feedbacktest.Driver{}
	p, _ := newPool(drv)

	w := serve(t, PrepareHandler(p), http.MethodPost, "/prepare?style=Heavy")
	if w.Code != http.StatusOK {
		t.Fatalf("prepare code=%d body=%q", w.Code, w.Body.String())
	}
	if !strings.Contains(w.Body.String(), "prepare\tstate\tready\n") {
		t.Fatalf("prepare body=%q", w.Body.String())
	}

	w = serve(t, TriggerHandler(p), http.MethodPost, "/trigger?style=heavy&intensity=0.5&format=json")
	got := decode(t, w)
	if got["result"] != "fired" || got["state"] != "ready" || got["style"] != "heavy" || got["intensity"] != 0.5 {
		t.Fatalf("trigger json=%v", got)
	}
	if drv.WarmUps() != 1 || drv.Fires() != 1 {
		t.Fatalf("warmUps=%d fires=%d", drv.WarmUps(), drv.Fires())
	}
}

func TestTrigger_IntensityDefaultsAndClamps(t *testing.T) {
	t.Parallel()

	drv := &feedbacktest.Driver{}
	p, _ := newPool(drv)

	h := TriggerHandler(p, WithIntensitySource(func() float64 { return 0.25 }))
	serve(t, h, http.MethodPost, "/trigger?style=light")
	w := serve(t, h, http.MethodPost, "/trigger?style=light&intensity=7")
	if !strings.Contains(w.Body.String(), "trigger\tintensity\t1\n") {
		t.Fatalf("body=%q", w.Body.String())
	}
	calls := drv.Calls()
	if len(calls) != 2 || calls[0].Intensity != 0.25 || calls[1].Intensity != 1 {
		t.Fatalf("calls=%+v", calls)
	}
}

func TestTrigger_UnsupportedIsNotAnError(t *testing.T) {
	t.Parallel()

	p, _ := newPool(feedbacktest.Unsupporting())
	w := serve(t, TriggerHandler(p), http.MethodPost, "/trigger?style=rigid")
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), "trigger\tresult\tunsupported\n") {
		t.Fatalf("code=%d body=%q", w.Code, w.Body.String())
	}
}

func TestTrigger_BadInput(t *testing.T) {
	t.Parallel()

	p, _ := newPool(&feedbacktest.Driver{})
	h := TriggerHandler(p)
	cases := []struct {
		method, target string
		code           int
	}{
		{http.MethodGet, "/trigger?style=light", http.StatusMethodNotAllowed},
		{http.MethodPost, "/trigger", http.StatusBadRequest},
		{http.MethodPost, "/trigger?style=squishy", http.StatusBadRequest},
		{http.MethodPost, "/trigger?style=light&intensity=loud", http.StatusBadRequest},
	}
	for _, tc := range cases {
		w := serve(t, h, tc.method, tc.target)
		if w.Code != tc.code {
			t.Fatalf("%s %s: code=%d, want %d", tc.method, tc.target, w.Code, tc.code)
		}
	}
	if p.Len() != 0 {
		t.Fatalf("bad input created sessions: %d", p.Len())
	}
}

func TestSessionsHandler(t *testing.T) {
	t.Parallel()

	p, _ := newPool(&feedbacktest.Driver{})
	p.Prepare(feedback.Soft)
	p.Trigger(feedback.Light, 1)

	w := serve(t, SessionsHandler(p), http.MethodGet, "/sessions")
	lines := strings.Split(strings.TrimSpace(w.Body.String()), "\n")
	if len(lines) != 2 || !strings.HasPrefix(lines[0], "light\tcold\t") || !strings.HasPrefix(lines[1], "soft\tready\t") {
		t.Fatalf("lines=%q", lines)
	}

	w = serve(t, SessionsHandler(p), http.MethodGet, "/sessions?format=json")
	sessions, _ := decode(t, w)["sessions"].([]any)
	if len(sessions) != 2 {
		t.Fatalf("sessions=%v", sessions)
	}

	empty, _ := newPool(nil)
	w = serve(t, SessionsHandler(empty), http.MethodGet, "/sessions?format=json")
	if !strings.Contains(w.Body.String(), `"sessions":[]`) {
		t.Fatalf("empty body=%q", w.Body.String())
	}
}

func TestKnobHandlers(t *testing.T) {
	t.Parallel()

	k, err := knobs.New()
	if err != nil {
		t.Fatal(err)
	}

	w := serve(t, KnobSetHandler(k), http.MethodPost, "/knobs/set?key=feedback.freshness_window&value=500ms")
	if w.Code != http.StatusOK {
		t.Fatalf("set code=%d body=%q", w.Code, w.Body.String())
	}
	if want := "knob\tfeedback.freshness_window\told\t2s\nknob\tfeedback.freshness_window\tnew\t500ms\n"; w.Body.String() != want {
		t.Fatalf("body=%q, want %q", w.Body.String(), want)
	}
	if k.FreshnessWindow() != 500*time.Millisecond {
		t.Fatalf("window=%v", k.FreshnessWindow())
	}

	w = serve(t, KnobsSnapshotHandler(k), http.MethodGet, "/knobs")
	if !strings.Contains(w.Body.String(), "feedback.freshness_window\t500ms\tdefault=2s\tsource=runtime-set\tupdated=") {
		t.Fatalf("snapshot=%q", w.Body.String())
	}

	w = serve(t, KnobResetHandler(k), http.MethodPost, "/knobs/reset?key=feedback.freshness_window")
	if w.Code != http.StatusOK || k.FreshnessWindow() != 2*time.Second {
		t.Fatalf("reset code=%d window=%v", w.Code, k.FreshnessWindow())
	}

	cases := []struct {
		h      http.Handler
		target string
		code   int
	}{
		{KnobSetHandler(k), "/set?key=feedback.freshness_window&value=1h", http.StatusBadRequest},
		{KnobSetHandler(k), "/set?key=feedback.freshness_window", http.StatusBadRequest},
		{KnobSetHandler(k), "/set?value=1", http.StatusBadRequest},
		{KnobSetHandler(k), "/set?key=nope&value=1", http.StatusNotFound},
		{KnobSetHandler(k, WithKnobAllowKeys(knobs.KeyLogLevel)), "/set?key=sweep.interval&value=1s", http.StatusForbidden},
		{KnobResetHandler(k), "/reset?key=nope", http.StatusNotFound},
	}
	for _, tc := range cases {
		if w := serve(t, tc.h, http.MethodPost, tc.target); w.Code != tc.code {
			t.Fatalf("%s: code=%d, want %d (body=%q)", tc.target, w.Code, tc.code, w.Body.String())
		}
	}
}

func TestSweepHandlers(t *testing.T) {
	t.Parallel()

	p, clk := newPool(&feedbacktest.Driver{})
	p.Prepare(feedback.Medium)
	clk.Advance(5 * time.Second)
	s := sweep.New(p)

	w := serve(t, SweepRunHandler(s), http.MethodPost, "/sweep/run")
	if !strings.HasPrefix(w.Body.String(), "sweep\tdecayed\t1\n") {
		t.Fatalf("run body=%q", w.Body.String())
	}
	if p.SessionFor(feedback.Medium).State() != feedback.Decayed {
		t.Fatalf("session not decayed")
	}

	w = serve(t, SweepStatusHandler(s), http.MethodGet, "/sweep?format=json")
	st, _ := decode(t, w)["status"].(map[string]any)
	if st["runs"] != float64(1) || st["state"] != "not-started" {
		t.Fatalf("status=%v", st)
	}

	if w := serve(t, SweepRunHandler(s), http.MethodGet, "/sweep/run"); w.Code != http.StatusMethodNotAllowed || w.Header().Get("Allow") != "POST" {
		t.Fatalf("GET run code=%d", w.Code)
	}
}

type fakeJournal struct {
	entries []journal.Entry
	err     error
	limit   int
}

func (f *fakeJournal) Recent(_ context.Context, limit int) ([]journal.Entry, error) {
	f.limit = limit
	return f.entries, f.err
}

func (f *fakeJournal) Counts(context.Context) (map[string]uint64, error) {
	return map[string]uint64{"fire": 2, "decay": 1}, f.err
}

func (f *fakeJournal) Stats() journal.Stats { return journal.Stats{Written: 3} }

func TestJournalRecentHandler(t *testing.T) {
	t.Parallel()

	at := time.Date(2024, 1, 1, 0, 0, 1, 0, time.UTC)
	j := &fakeJournal{entries: []journal.Entry{
		{ID: 2, At: at, Kind: "fire", Style: feedback.Rigid, Intensity: 0.5, OK: false, State: "cold"},
	}}

	w := serve(t, JournalRecentHandler(j), http.MethodGet, "/journal?limit=5000")
	if j.limit != maxJournalLimit {
		t.Fatalf("limit=%d, want cap", j.limit)
	}
	want := "count\tdecay\t1\ncount\tfire\t2\nstats\tdropped\t0\n2024-01-01T00:00:01Z\tfire\trigid\t0.5\tfail\tcold\n"
	if w.Body.String() != want {
		t.Fatalf("body=%q, want %q", w.Body.String(), want)
	}

	if w := serve(t, JournalRecentHandler(j), http.MethodGet, "/journal?limit=-1"); w.Code != http.StatusBadRequest {
		t.Fatalf("bad limit code=%d", w.Code)
	}
	j.err = errors.New("db closed")
	if w := serve(t, JournalRecentHandler(j), http.MethodGet, "/journal"); w.Code != http.StatusInternalServerError {
		t.Fatalf("error code=%d", w.Code)
	}
}

func TestBuildInfoHandler(t *testing.T) {
	t.Parallel()

	w := serve(t, BuildInfoHandler("v1.2.3"), http.MethodGet, "/build")
	if !strings.HasPrefix(w.Body.String(), "version\tv1.2.3\n") || !strings.Contains(w.Body.String(), "\ngo\t") {
		t.Fatalf("body=%q", w.Body.String())
	}
	if got := ReadBuildInfo("", false).Version; got != "dev" {
		t.Fatalf("empty version=%q", got)
	}
}
