package zhaptic

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"sync"
	"time"

	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"
)

// Service runs a Runtime together with its admin server.
type Service struct {
	Runtime      *Runtime
	AdminServer  *http.Server
	AdminHandler http.Handler

	// --- internals ---

	hooks           ServiceHooks
	signals         SignalSpec
	shutdownTimeout time.Duration

	mu        sync.Mutex
	started   bool
	startCtx  context.Context
	startStop context.CancelFunc
	stopping  bool
	listener  net.Listener

	primaryErr error

	shutdownOnce sync.Once
	shutdownCh   chan struct{}
	shutdownErr  error

	doneCh  chan struct{}
	waitErr error
}

// ServiceSpec configures NewDefaultService.
type ServiceSpec struct {
	// Runtime is required.
	Runtime *Runtime

	// Signals controls whether Run() listens for OS signals and triggers shutdown.
	//
	// If Disable is false and Signals is nil/empty, a small default set is used:
	//   - Unix: SIGINT + SIGTERM
	//   - Non-Unix: os.Interrupt
	Signals SignalSpec

	// ShutdownTimeout controls the overall shutdown timeout.
	//
	// <= 0 means using a conservative default (currently 30s).
	ShutdownTimeout time.Duration

	// Admin enables the admin server. nil runs the runtime alone (worker-only).
	Admin *ServiceAdminSpec

	Hooks ServiceHooks
}

type SignalSpec struct {
	// Disable disables signal handling in Run().
	Disable bool

	// Signals declares which signals Run() listens to. nil/empty => default set.
	Signals []os.Signal
}

// ServiceAdminSpec describes the admin server.
type ServiceAdminSpec struct {
	// Spec is forwarded to NewDefaultAdmin.
	Spec AdminSpec

	// Addr is the listen address, e.g. "127.0.0.1:7070". Required.
	Addr string

	// Prefix optionally mounts the admin subtree under a path prefix (e.g. "/-/").
	// Requests outside the prefix get 404. Empty serves admin at the root.
	Prefix string

	// H2C serves HTTP/2 over cleartext alongside HTTP/1.1.
	H2C bool
}

type ServiceHooks struct {
	// OnStart runs before the admin server binds.
	// Hooks are executed sequentially. Any error fails Start/Run.
	OnStart []func(context.Context) error

	// OnShutdown runs after the admin server stops and before the runtime shuts down.
	// Hooks are executed sequentially; errors are aggregated.
	OnShutdown []func(context.Context) error

	// OnServeError is called when the admin server exits unexpectedly.
	OnServeError func(err error)
}

// NewDefaultService assembles a runnable Service.
//
// Assembly errors are fail-fast and will panic.
// Runtime errors are returned from Start/Wait/Run/Shutdown.
func NewDefaultService(spec ServiceSpec) *Service {
	if spec.Runtime == nil {
		panic("zhaptic: ServiceSpec: nil Runtime")
	}
	s := &Service{
		Runtime:         spec.Runtime,
		hooks:           spec.Hooks,
		signals:         spec.Signals,
		shutdownTimeout: resolveDuration(spec.ShutdownTimeout, 30*time.Second),
		shutdownCh:      make(chan struct{}),
		doneCh:          make(chan struct{}),
	}

	if a := spec.Admin; a != nil {
		addr := strings.TrimSpace(a.Addr)
		if addr == "" {
			panic("zhaptic: ServiceSpec.Admin: empty Addr")
		}
		h := NewDefaultAdmin(spec.Runtime, a.Spec)
		s.AdminHandler = h
		if strings.TrimSpace(a.Prefix) != "" {
			h = mountPrefix(a.Prefix, h, http.NotFoundHandler())
		}
		if a.H2C {
			h = h2c.NewHandler(h, &http2.Server{IdleTimeout: defaultIdleTimeout})
		}
		s.AdminServer = newHTTPServerWithDefaults(addr, h)
	}
	return s
}

// Run is equivalent to Start → wait for exit condition → Shutdown → return.
//
// It is NOT idempotent. If called after Start, it returns ErrAlreadyStarted.
func (s *Service) Run(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if err := s.Start(ctx); err != nil {
		return err
	}

	sigCh, stopSignals := s.runSignalWatcher()
	defer stopSignals()

	select {
	case <-s.doneCh:
		return s.Wait()
	case <-ctx.Done():
		s.recordPrimary(ctx.Err())
		_ = s.Shutdown(context.Background())
		return s.Wait()
	case sig := <-sigCh:
		s.Runtime.Logger.Info("shutting down", "signal", sig.String())
		_ = s.Shutdown(context.Background())
		return s.Wait()
	}
}

// Start starts the runtime and the admin server. It is NOT idempotent.
func (s *Service) Start(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	s.mu.Lock()
	if s.started {
		s.mu.Unlock()
		return ErrAlreadyStarted
	}
	s.started = true
	s.startCtx, s.startStop = context.WithCancel(ctx)
	s.mu.Unlock()

	for i, h := range s.hooks.OnStart {
		if h == nil {
			continue
		}
		if err := safeCallHook(s.startCtx, h); err != nil {
			err = fmt.Errorf("zhaptic: OnStart[%d]: %w", i, err)
			s.recordPrimary(err)
			s.initiateShutdown()
			return err
		}
	}

	if err := s.Runtime.Start(s.startCtx); err != nil {
		s.recordPrimary(err)
		s.initiateShutdown()
		return err
	}

	if s.AdminServer != nil {
		if err := s.startAdmin(); err != nil {
			s.recordPrimary(err)
			s.initiateShutdown()
			return err
		}
	}
	return nil
}

// Wait waits until the service fully stops.
//
// It is idempotent. If Start was never called, it returns ErrNotStarted.
func (s *Service) Wait() error {
	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		return ErrNotStarted
	}
	ch := s.doneCh
	s.mu.Unlock()

	<-ch

	s.mu.Lock()
	err := s.waitErr
	s.mu.Unlock()
	return err
}

// Shutdown triggers shutdown. It is idempotent.
//
// If Start was never called, Shutdown returns nil.
// If Shutdown is already in progress, calling it again waits again using the new ctx.
func (s *Service) Shutdown(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		return nil
	}
	shutdownCh := s.shutdownCh
	s.mu.Unlock()

	s.initiateShutdown()

	select {
	case <-shutdownCh:
		s.mu.Lock()
		err := s.shutdownErr
		s.mu.Unlock()
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// AdminAddr returns the bound admin address, or "" before the admin server binds.
func (s *Service) AdminAddr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

func (s *Service) startAdmin() error {
	ln, err := net.Listen("tcp", s.AdminServer.Addr)
	if err != nil {
		return fmt.Errorf("zhaptic: admin listen %q: %w", s.AdminServer.Addr, err)
	}
	// Record the listener first, so shutdown can close it even if shutdown
	// begins before Serve starts tracking listeners.
	s.mu.Lock()
	s.listener = ln
	s.mu.Unlock()

	s.Runtime.Logger.Info("admin listening", "addr", ln.Addr().String())
	go func() {
		err := s.AdminServer.Serve(ln)
		s.onServeExit(err)
	}()
	return nil
}

func (s *Service) onServeExit(err error) {
	if err == nil || errors.Is(err, http.ErrServerClosed) {
		return
	}
	// Listener close races during shutdown are not failures.
	s.mu.Lock()
	stopping := s.stopping
	s.mu.Unlock()
	if stopping {
		return
	}
	s.recordPrimary(fmt.Errorf("zhaptic: admin server: %w", err))
	if s.hooks.OnServeError != nil {
		s.hooks.OnServeError(err)
	}
	s.initiateShutdown()
}

func (s *Service) recordPrimary(err error) {
	if err == nil {
		return
	}
	s.mu.Lock()
	if s.primaryErr == nil {
		s.primaryErr = err
	}
	s.mu.Unlock()
}

func (s *Service) initiateShutdown() {
	s.shutdownOnce.Do(func() {
		go s.doShutdown()
	})
}

func (s *Service) doShutdown() {
	s.mu.Lock()
	stop := s.startStop
	s.stopping = true
	ln := s.listener
	s.mu.Unlock()
	if stop != nil {
		stop()
	}

	ctx := context.Background()
	cancel := func() {}
	if s.shutdownTimeout > 0 {
		ctx, cancel = context.WithTimeout(context.Background(), s.shutdownTimeout)
	}
	defer cancel()

	var errs []error

	// 1) admin server: no new triggers after this point.
	if ln != nil {
		if err := s.AdminServer.Shutdown(ctx); err != nil {
			_ = s.AdminServer.Close()
			errs = append(errs, fmt.Errorf("admin server shutdown: %w", err))
		}
		_ = ln.Close()
	}

	// 2) OnShutdown hooks (sequential; best-effort run all)
	for i, h := range s.hooks.OnShutdown {
		if h == nil {
			continue
		}
		if err := safeCallHook(ctx, h); err != nil {
			errs = append(errs, fmt.Errorf("OnShutdown[%d]: %w", i, err))
		}
	}

	// 3) runtime: sweeper, driver, journal.
	if err := s.Runtime.Shutdown(ctx); err != nil {
		errs = append(errs, fmt.Errorf("runtime shutdown: %w", err))
	}

	shutdownErr := errors.Join(errs...)

	s.mu.Lock()
	s.shutdownErr = shutdownErr
	s.waitErr = errors.Join(s.primaryErr, shutdownErr)
	s.mu.Unlock()

	close(s.shutdownCh)
	close(s.doneCh)
}

func (s *Service) runSignalWatcher() (<-chan os.Signal, func()) {
	if s.signals.Disable {
		return nil, func() {}
	}
	sigs := s.signals.Signals
	if len(sigs) == 0 {
		sigs = defaultSignals()
	}
	if len(sigs) == 0 {
		return nil, func() {}
	}
	ch := make(chan os.Signal, 1)
	signal.Notify(ch, sigs...)
	return ch, func() { signal.Stop(ch) }
}

// --- helpers ---

func resolveDuration(v, def time.Duration) time.Duration {
	if v <= 0 {
		return def
	}
	return v
}

func safeCallHook(ctx context.Context, fn func(context.Context) error) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("panic: %v", p)
		}
	}()
	return fn(ctx)
}

const (
	defaultReadHeaderTimeout = 5 * time.Second
	defaultIdleTimeout       = 60 * time.Second
)

func newHTTPServerWithDefaults(addr string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: defaultReadHeaderTimeout,
		IdleTimeout:       defaultIdleTimeout,
	}
}

// mountPrefix routes requests under prefix to subtree (with the prefix stripped) and
// everything else to fallback. The bare prefix without its trailing slash redirects (307).
func mountPrefix(prefix string, subtree, fallback http.Handler) http.Handler {
	prefix = normalizeMountPrefixOrPanic(prefix)
	base := strings.TrimSuffix(prefix, "/")

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path := r.URL.Path
		if path == base {
			target := prefix
			if r.URL.RawQuery != "" {
				target += "?" + r.URL.RawQuery
			}
			http.Redirect(w, r, target, http.StatusTemporaryRedirect)
			return
		}
		if !strings.HasPrefix(path, prefix) {
			fallback.ServeHTTP(w, r)
			return
		}
		r2 := new(http.Request)
		*r2 = *r
		u2 := *r.URL
		r2.URL = &u2
		r2.URL.Path = "/" + strings.TrimPrefix(path, prefix)
		r2.URL.RawPath = ""
		subtree.ServeHTTP(w, r2)
	})
}

func normalizeMountPrefixOrPanic(prefix string) string {
	prefix = strings.TrimSpace(prefix)
	if !strings.HasPrefix(prefix, "/") {
		panic("zhaptic: mount prefix must start with '/': " + prefix)
	}
	if strings.ContainsAny(prefix, " \t\r\n?#") || strings.Contains(prefix, "//") {
		panic("zhaptic: invalid mount prefix: " + prefix)
	}
	if !strings.HasSuffix(prefix, "/") {
		prefix += "/"
	}
	return prefix
}
