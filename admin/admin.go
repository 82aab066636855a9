package admin

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/evan-idocoding/zhaptic/httpx"
)

// New assembles the admin subtree handler. Assembly errors panic.
func New(opts ...Option) http.Handler {
	b := newBuilder()
	for _, opt := range opts {
		if opt != nil {
			opt(b)
		}
	}
	return b.build()
}

// Option configures admin assembly.
type Option func(*Builder)

// WithLogger logs each admin request at debug level.
func WithLogger(l *slog.Logger) Option {
	return func(b *Builder) { b.logger = l }
}

// WithPanicHandler receives recovered handler panics. Without it they are written to stderr.
func WithPanicHandler(fn func(PanicInfo)) Option {
	return func(b *Builder) { b.onPanic = fn }
}

// Builder collects capabilities. It is configured only through Options.
type Builder struct {
	logger  *slog.Logger
	onPanic func(PanicInfo)

	paths  map[string]http.Handler
	report *ReportSpec

	// reportSources are unguarded read handlers, in mount order, for /report.
	reportSources []reportSource
}

func newBuilder() *Builder {
	return &Builder{paths: make(map[string]http.Handler)}
}

func (b *Builder) build() http.Handler {
	b.assembleReport()

	mux := http.NewServeMux()
	for path, h := range b.paths {
		mux.Handle(path, h)
	}

	mws := httpx.Chain(httpx.RequestID(), recoverer(b.onPanic))
	if b.logger != nil {
		mws = mws.With(accessLog(b.logger))
	}
	return mws.Handler(mux)
}

func (b *Builder) register(path string, h http.Handler) {
	path = normalizePathOrPanic(path)
	if h == nil {
		panic("admin: nil handler for path " + path)
	}
	if _, exists := b.paths[path]; exists {
		panic("admin: duplicated path handler: " + path)
	}
	b.paths[path] = h
}

func normalizePathOrPanic(path string) string {
	path = strings.TrimSpace(path)
	if path == "" {
		panic("admin: empty path")
	}
	if !strings.HasPrefix(path, "/") {
		panic("admin: invalid path (must start with '/'): " + path)
	}
	if strings.ContainsAny(path, " \t\r\n?#") {
		panic("admin: invalid path (contains whitespace or ?#): " + path)
	}
	if strings.Contains(path, "//") {
		panic("admin: invalid path (contains //): " + path)
	}
	return path
}

func resolvePath(specPath, def string) string {
	if strings.TrimSpace(specPath) == "" {
		return def
	}
	return specPath
}

func requireGuard(g Guard, name string) {
	if g == nil {
		panic("admin: " + name + ": nil Guard")
	}
}

// mountRead guards and registers a GET/HEAD capability. When inReport is set, the unguarded
// handler is also listed on /report.
func (b *Builder) mountRead(name, path string, g Guard, h http.Handler, inReport bool) {
	requireGuard(g, name)
	path = normalizePathOrPanic(path)
	b.register(path, g.Middleware()(h))
	if inReport {
		b.reportSources = append(b.reportSources, reportSource{name: name, path: path, h: h})
	}
}

// mountWrite guards and registers a POST capability.
func (b *Builder) mountWrite(name, path string, g Guard, h http.Handler) {
	requireGuard(g, name)
	b.register(path, g.Middleware()(h))
}
