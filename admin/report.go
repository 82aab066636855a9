package admin

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"time"
)

// ReportSpec enables /report.
type ReportSpec struct {
	Guard Guard
	Path  string // default "/report"
}

// EnableReport mounts a text page that renders every other enabled read endpoint.
func EnableReport(spec ReportSpec) Option {
	return func(b *Builder) {
		requireGuard(spec.Guard, "report")
		if b.report != nil {
			panic("admin: EnableReport called more than once")
		}
		spec.Path = normalizePathOrPanic(resolvePath(spec.Path, "/report"))
		b.report = &spec
	}
}

type reportSource struct {
	name string
	path string
	h    http.Handler
}

func (b *Builder) assembleReport() {
	if b.report == nil {
		return
	}
	sources := append([]reportSource(nil), b.reportSources...)
	h := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Cache-Control", "no-store")
		if r.Method != http.MethodGet && r.Method != http.MethodHead {
			w.Header().Set("Allow", "GET, HEAD")
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		if r.Method == http.MethodHead {
			return
		}
		_, _ = w.Write([]byte(renderReport(r.Context(), sources)))
	})
	b.register(b.report.Path, b.report.Guard.Middleware()(h))
}

func renderReport(ctx context.Context, sources []reportSource) string {
	var body strings.Builder
	ok := true
	names := make([]string, 0, len(sources))
	for _, src := range sources {
		names = append(names, src.name)
		body.WriteString("\n=== " + src.name + " ===\n")

		code, text := capture(ctx, src)
		if code < 200 || code >= 300 {
			ok = false
			body.WriteString("| error: status " + strconv.Itoa(code) + "\n")
		}
		if text == "" {
			body.WriteString("| (empty)\n")
			continue
		}
		for _, l := range strings.Split(strings.TrimSuffix(text, "\n"), "\n") {
			body.WriteString("| " + l + "\n")
		}
	}

	var out strings.Builder
	if ok {
		out.WriteString("ok\n")
	} else {
		out.WriteString("error: one or more sections failed\n")
	}
	out.WriteString("generated_at: " + time.Now().Format(time.RFC3339Nano) + "\n")
	if len(names) == 0 {
		out.WriteString("enabled sections: (none)\n")
	} else {
		out.WriteString("enabled sections: " + strings.Join(names, ", ") + "\n")
	}
	out.WriteString(body.String())
	return out.String()
}

func capture(ctx context.Context, src reportSource) (int, string) {
	req := httptest.NewRequest(http.MethodGet, "http://admin.report.invalid"+src.path+"?format=text", nil).WithContext(ctx)
	rec := &textCapture{hdr: make(http.Header)}
	src.h.ServeHTTP(rec, req)
	if rec.status == 0 {
		rec.status = http.StatusOK
	}
	return rec.status, rec.buf.String()
}

type textCapture struct {
	hdr    http.Header
	status int
	buf    bytes.Buffer
}

func (w *textCapture) Header() http.Header { return w.hdr }

func (w *textCapture) WriteHeader(code int) {
	if w.status == 0 {
		w.status = code
	}
}

func (w *textCapture) Write(p []byte) (int, error) {
	if w.status == 0 {
		w.status = http.StatusOK
	}
	return w.buf.Write(p)
}
