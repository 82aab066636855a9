package safego

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"slices"
)

// Go runs fn in a new goroutine.
func Go(ctx context.Context, fn func(context.Context), opts ...Option) {
	go Run(ctx, fn, opts...)
}

// GoErr runs fn in a new goroutine and reports its error.
func GoErr(ctx context.Context, fn func(context.Context) error, opts ...Option) {
	go RunErr(ctx, fn, opts...)
}

// Run runs fn in the caller's goroutine.
func Run(ctx context.Context, fn func(context.Context), opts ...Option) {
	RunErr(ctx, func(ctx context.Context) error {
		fn(ctx)
		return nil
	}, opts...)
}

// RunErr runs fn in the caller's goroutine and reports its error. The error is not returned.
func RunErr(ctx context.Context, fn func(context.Context) error, opts ...Option) {
	if ctx == nil {
		ctx = context.Background()
	}
	c := config{panicPolicy: RecoverAndReport}
	for _, opt := range opts {
		if opt != nil {
			opt(&c)
		}
	}

	// Finalizers run last, even on repanic.
	defer runFinalizers(ctx, &c)
	defer func() {
		p := recover()
		if p == nil {
			return
		}
		if c.panics != nil {
			c.panics.Add(1)
		}
		if c.panicPolicy == RecoverOnly {
			return
		}
		reportPanic(ctx, &c, PanicInfo{Name: c.name, Tags: slices.Clone(c.tags), Value: p, Stack: debug.Stack()})
		if c.panicPolicy == RepanicAfterReport {
			panic(p)
		}
	}()

	err := fn(ctx)
	if err == nil {
		return
	}
	if !c.reportContextCancel && (errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)) {
		return
	}
	info := ErrorInfo{Name: c.name, Tags: slices.Clone(c.tags), Err: err}
	if c.onError == nil {
		reportErrorToStderr(info)
		return
	}
	defer func() {
		if p := recover(); p != nil {
			ReportPanicToStderr(PanicInfo{
				Name:  info.Name,
				Tags:  info.Tags,
				Value: fmt.Sprintf("safego: error handler panicked: %v", p),
				Stack: debug.Stack(),
			})
		}
	}()
	c.onError(ctx, info)
}

func runFinalizers(ctx context.Context, c *config) {
	for i := len(c.finally) - 1; i >= 0; i-- {
		func() {
			defer func() {
				if p := recover(); p != nil {
					reportPanic(ctx, c, PanicInfo{
						Name:  c.name,
						Tags:  slices.Clone(c.tags),
						Value: fmt.Sprintf("safego: finalizer panicked: %v", p),
						Stack: debug.Stack(),
					})
				}
			}()
			c.finally[i]()
		}()
	}
}

func reportPanic(ctx context.Context, c *config, info PanicInfo) {
	if c.onPanic == nil {
		ReportPanicToStderr(info)
		return
	}
	defer func() {
		if p := recover(); p != nil {
			ReportPanicToStderr(PanicInfo{
				Name:  info.Name,
				Tags:  info.Tags,
				Value: fmt.Sprintf("safego: panic handler panicked: %v", p),
				Stack: debug.Stack(),
			})
		}
	}()
	c.onPanic(ctx, info)
}
