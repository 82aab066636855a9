// Package safego runs functions with panic containment and error reporting.
//
// It is used for every long-lived goroutine in the runtime: the dispatch worker, the idle
// sweeper and the journal writer. A failure in driver or hook code must never take the
// process down, but it must stay visible.
//
// safego does not return errors to its caller. Errors and panics are reported via handlers
// (if configured) or to stderr (by default).
//
// # Synchronous vs asynchronous
//
// Go/GoErr start a new goroutine. Run/RunErr execute in the caller's goroutine.
// A nil ctx is treated as context.Background().
//
// A worker that must survive individual panics runs each unit of work through Run inside a
// goroutine started with Go:
//
//	safego.Go(ctx, func(ctx context.Context) {
//		for job := range queue {
//			safego.Run(ctx, job.do, safego.WithName("worker"), safego.WithTag("job", job.id))
//		}
//	}, safego.WithName("worker"), safego.WithFinally(func() { close(done) }))
//
// # Errors
//
// Errors returned by GoErr/RunErr are reported via WithErrorHandler, or to stderr.
// context.Canceled and context.DeadlineExceeded are not reported unless
// WithReportContextCancel(true) is set.
//
// # Panics
//
// The default policy is RecoverAndReport. RepanicAfterReport reports and panics again;
// RecoverOnly swallows the panic. WithPanicCounter counts recovered panics under every policy.
//
// # Finalizers
//
// WithFinally functions always run, in LIFO order. A panicking finalizer is reported and
// not rethrown.
package safego
