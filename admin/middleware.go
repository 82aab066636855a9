package admin

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/evan-idocoding/zhaptic/httpx"
)

// RequestIDHeader carries the per-request ID on requests and responses.
const RequestIDHeader = httpx.DefaultRequestIDHeader

// RequestIDFromContext returns the request ID set by the admin middleware.
func RequestIDFromContext(ctx context.Context) (string, bool) {
	return httpx.RequestIDFromContext(ctx)
}

// PanicInfo describes a recovered handler panic.
type PanicInfo struct {
	Method    string
	Path      string
	RequestID string
	Value     any
	Stack     []byte
}

// recoverer adapts httpx.Recover to admin PanicInfo. Without fn, panics go to stderr.
func recoverer(fn func(PanicInfo)) httpx.Middleware {
	if fn == nil {
		return httpx.Recover()
	}
	return httpx.Recover(httpx.WithOnPanic(func(r *http.Request, info httpx.RecoverInfo) {
		fn(PanicInfo{Method: r.Method, Path: r.URL.Path, RequestID: info.RequestID, Value: info.Value, Stack: info.Stack})
	}))
}

// accessLog logs one debug line per request.
func accessLog(l *slog.Logger) httpx.Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			sw := &statusWriter{ResponseWriter: w}
			next.ServeHTTP(sw, r)
			id, _ := RequestIDFromContext(r.Context())
			l.LogAttrs(r.Context(), slog.LevelDebug, "admin request",
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.Int("status", sw.statusCode()),
				slog.Duration("took", time.Since(start)),
				slog.String("request_id", id),
			)
		})
	}
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	if w.status == 0 {
		w.status = code
	}
	w.ResponseWriter.WriteHeader(code)
}

func (w *statusWriter) Write(p []byte) (int, error) {
	if w.status == 0 {
		w.status = http.StatusOK
	}
	return w.ResponseWriter.Write(p)
}

func (w *statusWriter) Unwrap() http.ResponseWriter { return w.ResponseWriter }

func (w *statusWriter) statusCode() int {
	if w.status == 0 {
		return http.StatusOK
	}
	return w.status
}
