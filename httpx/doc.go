// Package httpx provides the net/http middlewares used by the admin surface.
//
// Everything here is a plain func(http.Handler) http.Handler, composed with Chain:
//
//	h := httpx.Chain(
//		httpx.RequestID(),
//		httpx.Recover(httpx.WithOnPanic(report)),
//	).Handler(mux)
//
// Chain(a, b, c).Handler(h) is a(b(c(h))): a sees the request first.
//
// # Access guards
//
// AccessGuard denies requests that fail its check with 403 (or WithDenyStatus). It checks either
// a token header against a token set, or an arbitrary request predicate (WithCheck), never both.
// Token sets compare in constant time and can be swapped at runtime through AtomicTokenSet.
//
// Assembly errors (nil handlers, conflicting options, a guard with no check) panic.
package httpx
