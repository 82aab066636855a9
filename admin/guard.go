package admin

import (
	"net/http"

	"github.com/evan-idocoding/zhaptic/httpx"
)

// Guard enforces request admission for a capability.
//
// Implementations must be fast and must not block or do I/O.
type Guard interface {
	// Middleware returns a middleware that enforces the guard. Denied requests get 403.
	Middleware() func(http.Handler) http.Handler
}

type guardFunc httpx.Middleware

func (g guardFunc) Middleware() func(http.Handler) http.Handler { return g }

// DenyAll denies every request with 403.
func DenyAll() Guard {
	return guardFunc(func(http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusForbidden)
		})
	})
}

// AllowAll admits every request.
func AllowAll() Guard {
	return guardFunc(func(next http.Handler) http.Handler { return next })
}

// DefaultTokenHeader is the header read by Tokens unless overridden.
const DefaultTokenHeader = httpx.DefaultTokenHeader

// TokenOption configures Tokens.
type TokenOption func(*tokenConfig)

type tokenConfig struct {
	header string
}

// WithTokenHeader overrides the token header. Blank names are ignored.
func WithTokenHeader(name string) TokenOption {
	return func(c *tokenConfig) { c.header = name }
}

// Tokens admits requests carrying exactly one of tokens in the token header.
//
// Blank tokens are ignored. With no usable token, every request is denied.
// Comparison is constant-time per token.
func Tokens(tokens []string, opts ...TokenOption) Guard {
	return TokenSet(httpx.NewAtomicTokenSet(tokens), opts...)
}

// TokenSet is Tokens over a set that may be replaced at runtime. A nil set panics.
func TokenSet(set httpx.TokenSet, opts ...TokenOption) Guard {
	var cfg tokenConfig
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	return guardFunc(httpx.AccessGuard(httpx.WithTokenSet(set), httpx.WithTokenHeader(cfg.header)))
}

// Check admits requests for which fn returns true. fn must be fast and must not block.
// A nil fn panics.
func Check(fn func(r *http.Request) bool) Guard {
	if fn == nil {
		panic("admin: Check: nil func")
	}
	return guardFunc(httpx.AccessGuard(httpx.WithCheck(fn)))
}
