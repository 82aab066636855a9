// Package zhaptic keeps haptic feedback responsive by holding one warm session per impact style
// and firing through it on demand.
//
// The main entry points are:
//   - NewDefaultRuntime: assemble a session pool, its idle sweeper, runtime knobs, and an
//     optional event journal around a feedback.Driver.
//   - NewDefaultAdmin: assemble the admin subtree for a Runtime as an http.Handler.
//   - NewDefaultService: run a Runtime with its admin server and OS signal handling.
//
// # Quick start
//
//	rt := zhaptic.NewDefaultRuntime(zhaptic.RuntimeSpec{
//		Driver: slogdrv.New(slog.Default()),
//	})
//
//	svc := zhaptic.NewDefaultService(zhaptic.ServiceSpec{
//		Runtime: rt,
//		Admin: &zhaptic.ServiceAdminSpec{
//			Addr: "127.0.0.1:7070",
//			Spec: zhaptic.AdminSpec{
//				ReadGuard: zhaptic.AllowAll(),
//				Writes: &zhaptic.AdminWriteSpec{
//					Guard:    zhaptic.Tokens([]string{"s3cr3t"}),
//					Feedback: true,
//				},
//			},
//		},
//	})
//
//	_ = svc.Run(context.Background())
//
// Callers in-process use the pool directly:
//
//	rt.Pool.Prepare(feedback.Medium) // user is about to act
//	rt.Pool.Trigger(feedback.Medium, 0.8)
//
// # Admin surface
//
// Reads are always on and protected by AdminSpec.ReadGuard (required; nil panics):
//   - /report, /healthz, /readyz, /buildinfo
//   - /sessions, /knobs, /sweep
//   - /journal (when the runtime has a journal)
//
// Writes are off unless AdminSpec.Writes is set, and then each group is opt-in:
//   - Feedback: /feedback/prepare, /feedback/trigger
//   - Knobs: /knobs/set, /knobs/reset (allowlisted keys only)
//   - Sweep: /sweep/run
//
// Custom layouts can use admin.New with admin.EnableXxx options directly.
//
// # Shutdown order
//
// Service.Shutdown stops the admin server, runs OnShutdown hooks, then shuts the runtime down:
// the sweeper stops, a closable driver drains, and the journal flushes and closes.
package zhaptic
