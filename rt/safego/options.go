package safego

import (
	"context"
	"sync/atomic"
)

// Tag is a key/value pair carried by reports. Tags keep insertion order.
type Tag struct {
	Key   string
	Value string
}

// PanicInfo describes a recovered panic.
type PanicInfo struct {
	Name  string
	Tags  []Tag
	Value any
	Stack []byte
}

// Tag returns the value of the first tag named key.
func (p PanicInfo) Tag(key string) (string, bool) { return lookupTag(p.Tags, key) }

// ErrorInfo describes an error returned by a function.
type ErrorInfo struct {
	Name string
	Tags []Tag
	Err  error
}

// PanicHandler is called after a recovered panic (subject to policy).
type PanicHandler func(ctx context.Context, info PanicInfo)

// ErrorHandler is called when a function returns a non-nil error (subject to filtering).
type ErrorHandler func(ctx context.Context, info ErrorInfo)

// PanicPolicy controls how panics are handled.
type PanicPolicy int

const (
	// RecoverAndReport recovers and reports via PanicHandler, or stderr.
	RecoverAndReport PanicPolicy = iota
	// RecoverOnly recovers without reporting.
	RecoverOnly
	// RepanicAfterReport recovers, reports, then panics again with the same value.
	RepanicAfterReport
)

type config struct {
	name string
	tags []Tag

	finally []func()

	onError             ErrorHandler
	reportContextCancel bool

	onPanic     PanicHandler
	panicPolicy PanicPolicy
	panics      *atomic.Uint64
}

// Option configures a single Go/GoErr/Run/RunErr call.
type Option func(*config)

// WithName sets the name carried by reports.
func WithName(name string) Option {
	return func(c *config) { c.name = name }
}

// WithTag appends one tag to reports.
func WithTag(key, value string) Option {
	return func(c *config) { c.tags = append(c.tags, Tag{Key: key, Value: value}) }
}

// WithTags appends tags to reports.
func WithTags(tags ...Tag) Option {
	return func(c *config) { c.tags = append(c.tags, tags...) }
}

// WithFinally registers fn to run when execution finishes, on every path. Nil is ignored.
func WithFinally(fn func()) Option {
	return func(c *config) {
		if fn != nil {
			c.finally = append(c.finally, fn)
		}
	}
}

// WithErrorHandler sets the error handler. Panics in it are reported to stderr.
func WithErrorHandler(h ErrorHandler) Option {
	return func(c *config) { c.onError = h }
}

// WithReportContextCancel controls whether context cancellation errors are reported.
func WithReportContextCancel(report bool) Option {
	return func(c *config) { c.reportContextCancel = report }
}

// WithPanicHandler sets the panic handler. Panics in it are reported to stderr.
func WithPanicHandler(h PanicHandler) Option {
	return func(c *config) { c.onPanic = h }
}

// WithPanicPolicy sets the panic policy.
func WithPanicPolicy(p PanicPolicy) Option {
	return func(c *config) { c.panicPolicy = p }
}

// WithPanicCounter adds one to n for every panic recovered from fn, before it is reported.
// Finalizer and handler panics are not counted.
func WithPanicCounter(n *atomic.Uint64) Option {
	return func(c *config) { c.panics = n }
}

func lookupTag(tags []Tag, key string) (string, bool) {
	for _, t := range tags {
		if t.Key == key {
			return t.Value, true
		}
	}
	return "", false
}
