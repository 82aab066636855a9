package httpx

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

var okHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusOK) })

func guardDo(h http.Handler, tokens ...string) int {
	req := httptest.NewRequest(http.MethodPost, "/feedback/trigger", nil)
	for _, tok := range tokens {
		req.Header.Add(DefaultTokenHeader, tok)
	}
	rw := httptest.NewRecorder()
	h.ServeHTTP(rw, req)
	return rw.Code
}

func TestAccessGuard_Tokens(t *testing.T) {
	t.Parallel()

	var reasons []DenyReason
	h := Wrap(okHandler, AccessGuard(
		WithTokens([]string{" w1 ", "", "w2"}),
		WithOnDeny(func(_ *http.Request, r DenyReason) { reasons = append(reasons, r) }),
	))

	for _, tc := range []struct {
		tokens []string
		code   int
	}{
		{[]string{"w1"}, http.StatusOK},
		{[]string{" w2 "}, http.StatusOK},
		{nil, http.StatusForbidden},
		{[]string{"nope"}, http.StatusForbidden},
		{[]string{"w1", "w2"}, http.StatusForbidden},
	} {
		if got := guardDo(h, tc.tokens...); got != tc.code {
			t.Fatalf("tokens=%q code=%d, want %d", tc.tokens, got, tc.code)
		}
	}
	want := []DenyReason{DenyReasonTokenMissing, DenyReasonTokenNotAllowed, DenyReasonTokenAmbiguous}
	if len(reasons) != len(want) {
		t.Fatalf("reasons=%v", reasons)
	}
	for i := range want {
		if reasons[i] != want[i] {
			t.Fatalf("reasons=%v, want %v", reasons, want)
		}
	}
}

func TestAccessGuard_EmptySetDeniesAll(t *testing.T) {
	t.Parallel()

	var reason DenyReason
	h := Wrap(okHandler, AccessGuard(
		WithTokens([]string{" "}),
		WithOnDeny(func(_ *http.Request, r DenyReason) { reason = r }),
	))
	if got := guardDo(h, " "); got != http.StatusForbidden || reason != DenyReasonTokenSetEmpty {
		t.Fatalf("code=%d reason=%s", got, reason)
	}
}

func TestAccessGuard_HotTokenSet(t *testing.T) {
	t.Parallel()

	set := NewAtomicTokenSet([]string{"old"})
	h := Wrap(okHandler, AccessGuard(WithTokenSet(set), WithTokenHeader("X-Admin-Token"), WithDenyStatus(http.StatusUnauthorized)))

	do := func(tok string) int {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("X-Admin-Token", tok)
		rw := httptest.NewRecorder()
		h.ServeHTTP(rw, req)
		return rw.Code
	}
	if got := do("old"); got != http.StatusOK {
		t.Fatalf("old code=%d", got)
	}
	set.Update([]string{"new"})
	if got := do("old"); got != http.StatusUnauthorized {
		t.Fatalf("rotated-out code=%d", got)
	}
	if got := do("new"); got != http.StatusOK {
		t.Fatalf("new code=%d", got)
	}
}

func TestAccessGuard_Check(t *testing.T) {
	t.Parallel()

	h := Wrap(okHandler, AccessGuard(
		WithCheck(func(r *http.Request) bool { return r.Method == http.MethodGet }),
		WithOnDeny(func(*http.Request, DenyReason) { panic("hook boom") }),
	))
	if got := guardDo(h); got != http.StatusForbidden {
		t.Fatalf("POST code=%d", got)
	}
	rw := httptest.NewRecorder()
	h.ServeHTTP(rw, httptest.NewRequest(http.MethodGet, "/", nil))
	if rw.Code != http.StatusOK {
		t.Fatalf("GET code=%d", rw.Code)
	}
}

func TestAccessGuard_AssemblyPanics(t *testing.T) {
	t.Parallel()

	for name, fn := range map[string]func(){
		"no checks": func() { AccessGuard() },
		"conflict": func() {
			AccessGuard(WithTokens([]string{"a"}), WithCheck(func(*http.Request) bool { return true }))
		},
		"nil set": func() { WithTokenSet(nil) },
	} {
		func() {
			defer func() {
				if recover() == nil {
					t.Fatalf("%s: expected panic", name)
				}
			}()
			fn()
		}()
	}
}
