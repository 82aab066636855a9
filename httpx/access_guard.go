package httpx

import (
	"fmt"
	"net/http"
	"runtime/debug"
	"strings"
)

// DefaultTokenHeader is the header AccessGuard reads tokens from.
const DefaultTokenHeader = "X-Access-Token"

// DenyReason says why AccessGuard denied a request.
type DenyReason string

const (
	DenyReasonTokenMissing    DenyReason = "token-missing"
	DenyReasonTokenAmbiguous  DenyReason = "token-ambiguous"
	DenyReasonTokenSetEmpty   DenyReason = "token-set-empty"
	DenyReasonTokenNotAllowed DenyReason = "token-not-allowed"
	DenyReasonCheckDenied     DenyReason = "check-denied"
)

// AccessGuardOption configures AccessGuard.
type AccessGuardOption func(*accessGuardConfig)

type accessGuardConfig struct {
	denyStatus  int
	tokenHeader string
	tokens      TokenSet
	check       func(*http.Request) bool
	onDeny      func(*http.Request, DenyReason)
}

// WithTokenHeader overrides DefaultTokenHeader. Blank names are ignored.
func WithTokenHeader(name string) AccessGuardOption {
	return func(c *accessGuardConfig) {
		if name = strings.TrimSpace(name); name != "" {
			c.tokenHeader = name
		}
	}
}

// WithTokens admits requests carrying one of tokens.
func WithTokens(tokens []string) AccessGuardOption {
	return WithTokenSet(NewAtomicTokenSet(tokens))
}

// WithTokenSet admits requests carrying a token in set. A nil set panics.
func WithTokenSet(set TokenSet) AccessGuardOption {
	if set == nil {
		panic("httpx: AccessGuard: nil token set")
	}
	return func(c *accessGuardConfig) { c.tokens = set }
}

// WithCheck admits requests for which fn returns true. Nil is ignored.
func WithCheck(fn func(*http.Request) bool) AccessGuardOption {
	return func(c *accessGuardConfig) {
		if fn != nil {
			c.check = fn
		}
	}
}

// WithDenyStatus sets the status written on denial. Values <= 0 are ignored.
func WithDenyStatus(code int) AccessGuardOption {
	return func(c *accessGuardConfig) {
		if code > 0 {
			c.denyStatus = code
		}
	}
}

// WithOnDeny is called for every denied request. Panics in fn are reported to stderr.
func WithOnDeny(fn func(*http.Request, DenyReason)) AccessGuardOption {
	return func(c *accessGuardConfig) { c.onDeny = fn }
}

// AccessGuard returns a middleware that admits requests passing its check.
//
// Exactly one of a token set or WithCheck must be configured; anything else panics.
func AccessGuard(opts ...AccessGuardOption) Middleware {
	cfg := accessGuardConfig{denyStatus: http.StatusForbidden, tokenHeader: DefaultTokenHeader}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	switch {
	case cfg.tokens == nil && cfg.check == nil:
		panic("httpx: AccessGuard has no checks configured")
	case cfg.tokens != nil && cfg.check != nil:
		panic("httpx: AccessGuard WithCheck conflicts with token options")
	}

	admit := func(r *http.Request) (bool, DenyReason) {
		if !cfg.check(r) {
			return false, DenyReasonCheckDenied
		}
		return true, ""
	}
	if cfg.tokens != nil {
		admit = func(r *http.Request) (bool, DenyReason) { return tokenOK(r, cfg.tokenHeader, cfg.tokens) }
	}

	return func(next http.Handler) http.Handler {
		if next == nil {
			panic("httpx: nil next handler")
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if ok, reason := admit(r); !ok {
				if cfg.onDeny != nil {
					callOnDeny(cfg.onDeny, r, reason)
				}
				w.WriteHeader(cfg.denyStatus)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func tokenOK(r *http.Request, header string, set TokenSet) (bool, DenyReason) {
	if s, ok := set.(*AtomicTokenSet); ok && s.Len() == 0 {
		return false, DenyReasonTokenSetEmpty
	}
	vs := r.Header.Values(header)
	switch {
	case len(vs) == 0:
		return false, DenyReasonTokenMissing
	case len(vs) > 1:
		return false, DenyReasonTokenAmbiguous
	}
	tok := strings.TrimSpace(vs[0])
	if tok == "" {
		return false, DenyReasonTokenMissing
	}
	if !set.Contains(tok) {
		return false, DenyReasonTokenNotAllowed
	}
	return true, ""
}

func callOnDeny(fn func(*http.Request, DenyReason), r *http.Request, reason DenyReason) {
	defer func() {
		if p := recover(); p != nil {
			id, _ := RequestIDFromContext(r.Context())
			reportToStderr(r, RecoverInfo{
				RequestID: id,
				Value:     fmt.Sprintf("httpx: deny hook panicked: %v", p),
				Stack:     debug.Stack(),
			})
		}
	}()
	fn(r, reason)
}
