package httpx

import (
	"context"
	"net/http"

	"github.com/google/uuid"
)

// DefaultRequestIDHeader carries the request ID on requests and responses.
const DefaultRequestIDHeader = "X-Request-ID"

const maxRequestIDLen = 128

type requestIDKey struct{}

// RequestID keeps a single well-formed incoming X-Request-ID and generates a UUID otherwise.
// The ID is stored in the request context and echoed on the response.
//
// Well-formed means at most 128 bytes of [A-Za-z0-9._-].
func RequestID() Middleware {
	return func(next http.Handler) http.Handler {
		if next == nil {
			panic("httpx: nil next handler")
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var id string
			// Repeated headers are ambiguous and treated as absent.
			if vs := r.Header.Values(DefaultRequestIDHeader); len(vs) == 1 && validRequestID(vs[0]) {
				id = vs[0]
			} else {
				id = uuid.NewString()
			}
			w.Header().Set(DefaultRequestIDHeader, id)
			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), requestIDKey{}, id)))
		})
	}
}

// RequestIDFromContext returns the ID stored by RequestID.
func RequestIDFromContext(ctx context.Context) (string, bool) {
	if ctx == nil {
		return "", false
	}
	id, ok := ctx.Value(requestIDKey{}).(string)
	return id, ok && id != ""
}

func validRequestID(s string) bool {
	if s == "" || len(s) > maxRequestIDLen {
		return false
	}
	for i := 0; i < len(s); i++ {
		switch b := s[i]; {
		case b >= 'a' && b <= 'z', b >= 'A' && b <= 'Z', b >= '0' && b <= '9':
		case b == '.' || b == '_' || b == '-':
		default:
			return false
		}
	}
	return true
}
