package sandbox

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

// load is a single in-flight initialization that callers can wait on.
type load struct {
	done chan struct{}
}

// Host owns one lazily loaded runtime and serializes runs against it.
type Host struct {
	loader   Loader
	config   Config
	logger   *zap.Logger
	observer Observer

	mu       sync.Mutex
	state    State
	engine   Engine
	loadErr  error
	inflight *load
	cancel   context.CancelFunc
	closed   bool
	attempts int

	// runMu serializes Exec calls; the engine is single-threaded.
	runMu sync.Mutex
}

// HostOption configures optional host collaborators.
type HostOption func(*Host)

// WithObserver registers an observer for load and run outcomes.
func WithObserver(o Observer) HostOption {
	return func(h *Host) {
		h.observer = o
	}
}

// NewHost creates a host in the Unloaded state. Nothing is loaded until the
// first EnsureLoaded or Run call.
func NewHost(loader Loader, config Config, logger *zap.Logger, opts ...HostOption) *Host {
	if logger == nil {
		logger = zap.NewNop()
	}
	h := &Host{
		loader: loader,
		config: config,
		logger: logger,
		state:  StateUnloaded,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// State returns the current runtime state.
func (h *Host) State() State {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.state
}

// Err returns the recorded load failure, or nil unless the host is Failed.
func (h *Host) Err() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.loadErr
}

// LoadAttempts returns how many loads this host has started.
func (h *Host) LoadAttempts() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.attempts
}

// EnsureLoaded starts the runtime load if needed and waits for it to settle.
// Callers arriving during a load attach to it. The load itself is owned by the
// host, so a caller whose ctx expires stops waiting without aborting the load.
func (h *Host) EnsureLoaded(ctx context.Context) error {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return ErrClosed
	}
	switch h.state {
	case StateReady:
		h.mu.Unlock()
		return nil
	case StateFailed:
		err := h.loadErr
		h.mu.Unlock()
		return err
	case StateUnloaded:
		h.startLoad()
	}
	l := h.inflight
	h.mu.Unlock()

	select {
	case <-l.done:
	case <-ctx.Done():
		return ctx.Err()
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	switch {
	case h.closed:
		return ErrClosed
	case h.state == StateReady:
		return nil
	case h.state == StateFailed:
		return h.loadErr
	default:
		return fmt.Errorf("%w: load did not complete", ErrUnavailable)
	}
}

// startLoad must be called with h.mu held.
func (h *Host) startLoad() {
	var (
		ctx    context.Context
		cancel context.CancelFunc
	)
	if h.config.LoadTimeout > 0 {
		ctx, cancel = context.WithTimeout(context.Background(), h.config.LoadTimeout)
	} else {
		ctx, cancel = context.WithCancel(context.Background())
	}

	l := &load{done: make(chan struct{})}
	h.state = StateLoading
	h.inflight = l
	h.cancel = cancel
	h.attempts++

	h.logger.Debug("Loading sandbox runtime", zap.Int("attempt", h.attempts))
	go h.runLoad(ctx, cancel, l)
}

func (h *Host) runLoad(ctx context.Context, cancel context.CancelFunc, l *load) {
	defer cancel()

	start := time.Now()
	engine, err := h.safeLoad(ctx)
	duration := time.Since(start)

	h.mu.Lock()
	if h.closed || h.inflight != l {
		h.mu.Unlock()
		if engine != nil {
			_ = engine.Close()
		}
		h.logger.Debug("Discarded sandbox load that finished after teardown")
		if h.observer != nil {
			h.observer.LoadFinished(duration, ErrClosed)
		}
		close(l.done)
		return
	}

	h.inflight = nil
	h.cancel = nil
	if err != nil {
		h.state = StateFailed
		h.loadErr = fmt.Errorf("%w: %v", ErrUnavailable, err)
	} else {
		h.state = StateReady
		h.engine = engine
	}
	h.mu.Unlock()

	if err != nil {
		h.logger.Warn("Sandbox runtime failed to load", zap.Error(err), zap.Duration("duration", duration))
	} else {
		h.logger.Info("Sandbox runtime ready", zap.Duration("duration", duration))
	}
	if h.observer != nil {
		h.observer.LoadFinished(duration, err)
	}
	close(l.done)
}

func (h *Host) safeLoad(ctx context.Context) (engine Engine, err error) {
	defer func() {
		if r := recover(); r != nil {
			engine, err = nil, fmt.Errorf("loader panic: %v", r)
		}
	}()

	engine, err = h.loader.Load(ctx)
	if err == nil && engine == nil {
		err = errors.New("loader returned no engine")
	}
	return engine, err
}

// Retry moves a Failed host back to Unloaded so the next run loads again.
// It reports whether a transition happened.
func (h *Host) Retry() bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed || h.state != StateFailed {
		return false
	}
	h.state = StateUnloaded
	h.loadErr = nil
	h.logger.Info("Sandbox runtime reset for retry")
	return true
}

// Run executes source against the runtime, loading it first if necessary.
// It never returns a Go error: failures are reported in Result.Error.
func (h *Host) Run(ctx context.Context, source string) Result {
	start := time.Now()

	if err := h.EnsureLoaded(ctx); err != nil {
		res := Result{
			Error: &ErrorInfo{
				Kind:    KindUnavailable,
				Message: err.Error(),
				Loading: h.State() == StateLoading,
			},
			Duration: time.Since(start),
		}
		h.finishRun(res)
		return res
	}

	h.runMu.Lock()
	defer h.runMu.Unlock()

	h.mu.Lock()
	engine, closed := h.engine, h.closed
	h.mu.Unlock()
	if closed || engine == nil {
		res := Result{
			Error:    &ErrorInfo{Kind: KindUnavailable, Message: ErrClosed.Error()},
			Duration: time.Since(start),
		}
		h.finishRun(res)
		return res
	}

	execCtx := ctx
	if h.config.ExecTimeout > 0 {
		var cancel context.CancelFunc
		execCtx, cancel = context.WithTimeout(ctx, h.config.ExecTimeout)
		defer cancel()
	}

	var stdout bytes.Buffer
	err := safeExec(execCtx, engine, source, &stdout)

	res := Result{Duration: time.Since(start)}
	if err != nil {
		res.Error = &ErrorInfo{Kind: KindExecution, Message: err.Error()}
	} else {
		res.Stdout = stdout.String()
	}
	h.finishRun(res)
	return res
}

func safeExec(ctx context.Context, engine Engine, source string, stdout *bytes.Buffer) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("runtime panic: %v", r)
		}
	}()
	return engine.Exec(ctx, source, stdout)
}

func (h *Host) finishRun(res Result) {
	var kind ErrorKind
	if res.Error != nil {
		kind = res.Error.Kind
		h.logger.Debug("Sandbox run failed",
			zap.String("kind", string(kind)),
			zap.Duration("duration", res.Duration),
		)
	}
	if h.observer != nil {
		h.observer.RunFinished(res.Duration, kind)
	}
}

// Close tears the host down. An in-flight load is cancelled and its engine,
// if it still arrives, is discarded.
func (h *Host) Close() error {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return nil
	}
	h.closed = true
	if h.cancel != nil {
		h.cancel()
		h.cancel = nil
	}
	engine := h.engine
	h.engine = nil
	h.state = StateUnloaded
	h.mu.Unlock()

	if engine != nil {
		return engine.Close()
	}
	return nil
}
