package httpx

import (
	"fmt"
	"net/http"
	"runtime/debug"

	"github.com/evan-idocoding/zhaptic/rt/safego"
)

// RecoverInfo describes a recovered handler panic.
type RecoverInfo struct {
	// RequestID is set when RequestID runs before Recover.
	RequestID string
	Value     any
	Stack     []byte
}

// PanicHandler is called for a recovered panic. If it panics itself, the secondary panic is
// reported to stderr.
type PanicHandler func(r *http.Request, info RecoverInfo)

// RecoverOption configures Recover.
type RecoverOption func(*recoverConfig)

type recoverConfig struct {
	onPanic PanicHandler
}

// WithOnPanic sets the panic handler. Without one, panics are reported to stderr.
func WithOnPanic(fn PanicHandler) RecoverOption {
	return func(c *recoverConfig) { c.onPanic = fn }
}

// Recover turns downstream panics into 500 responses.
//
// http.ErrAbortHandler is re-panicked. When the response has already started it is left alone.
func Recover(opts ...RecoverOption) Middleware {
	var cfg recoverConfig
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	return func(next http.Handler) http.Handler {
		if next == nil {
			panic("httpx: nil next handler")
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sw := &startedWriter{ResponseWriter: w}
			defer func() {
				p := recover()
				if p == nil {
					return
				}
				if p == http.ErrAbortHandler {
					panic(p)
				}
				id, _ := RequestIDFromContext(r.Context())
				info := RecoverInfo{RequestID: id, Value: p, Stack: debug.Stack()}
				if cfg.onPanic == nil {
					reportToStderr(r, info)
				} else if p2 := callOnPanic(cfg.onPanic, r, info); p2 != nil {
					reportToStderr(r, RecoverInfo{
						RequestID: id,
						Value:     fmt.Sprintf("httpx: panic handler panicked: %v", p2),
						Stack:     debug.Stack(),
					})
				}
				if !sw.started {
					http.Error(sw, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
				}
			}()
			next.ServeHTTP(sw, r)
		})
	}
}

// startedWriter records whether the response has started.
type startedWriter struct {
	http.ResponseWriter
	started bool
}

func (w *startedWriter) WriteHeader(code int) {
	w.started = true
	w.ResponseWriter.WriteHeader(code)
}

func (w *startedWriter) Write(p []byte) (int, error) {
	w.started = true
	return w.ResponseWriter.Write(p)
}

func (w *startedWriter) Flush() {
	if f, ok := w.ResponseWriter.(http.Flusher); ok {
		w.started = true
		f.Flush()
	}
}

func (w *startedWriter) Unwrap() http.ResponseWriter { return w.ResponseWriter }

func callOnPanic(fn PanicHandler, r *http.Request, info RecoverInfo) (panicked any) {
	defer func() { panicked = recover() }()
	fn(r, info)
	return nil
}

func reportToStderr(r *http.Request, info RecoverInfo) {
	tags := []safego.Tag{{Key: "method", Value: r.Method}, {Key: "path", Value: r.URL.Path}}
	if info.RequestID != "" {
		tags = append(tags, safego.Tag{Key: "request_id", Value: info.RequestID})
	}
	safego.ReportPanicToStderr(safego.PanicInfo{Name: "httpx", Tags: tags, Value: info.Value, Stack: info.Stack})
}
