package zhaptic

import (
	"net/http"

	"github.com/evan-idocoding/zhaptic/admin"
	"github.com/evan-idocoding/zhaptic/httpx"
)

// Guard enforces request admission for admin endpoints.
type Guard = admin.Guard

// TokenOption configures token-based guards.
type TokenOption = admin.TokenOption

// DefaultTokenHeader is the default header name for token-based guards.
const DefaultTokenHeader = admin.DefaultTokenHeader

// AllowAll returns a guard that allows all requests.
func AllowAll() Guard { return admin.AllowAll() }

// DenyAll returns a guard that denies all requests with HTTP 403.
func DenyAll() Guard { return admin.DenyAll() }

// WithTokenHeader overrides the token header name.
func WithTokenHeader(name string) TokenOption { return admin.WithTokenHeader(name) }

// Tokens returns a guard that accepts any of a static token list.
func Tokens(tokens []string, opts ...TokenOption) Guard {
	return admin.Tokens(tokens, opts...)
}

// Check returns a guard backed by a custom fast predicate (must not block, no I/O).
func Check(fn func(r *http.Request) bool) Guard {
	return admin.Check(fn)
}

// TokenSet returns a token guard over a set that can be replaced while serving.
func TokenSet(set httpx.TokenSet, opts ...TokenOption) Guard {
	return admin.TokenSet(set, opts...)
}
