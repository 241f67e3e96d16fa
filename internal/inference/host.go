// Package inference owns the lifecycle of the classifier graph: a single
// session per Host, loaded once, shared by every caller.
package inference

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"paddyguard/internal/tensor"
	"paddyguard/pkg/logging"
	"paddyguard/pkg/metrics"
)

// State is the Host lifecycle: Unloaded -> Loading -> Ready, Loading -> Unloaded on failure
type State int

const (
	StateUnloaded State = iota
	StateLoading
	StateReady
)

func (s State) String() string {
	switch s {
	case StateUnloaded:
		return "unloaded"
	case StateLoading:
		return "loading"
	case StateReady:
		return "ready"
	default:
		return "unknown"
	}
}

// Session is a loaded, ready-to-execute graph
type Session interface {
	InputName() string
	OutputName() string
	// Run binds input to the graph's single declared input and returns
	// the first declared output, flattened.
	Run(input []float32, shape []int64) ([]float32, error)
	Close() error
}

// ConcurrentSession is implemented by sessions whose Run is safe to call
// from several goroutines at once. Other sessions are run one call at a time.
type ConcurrentSession interface {
	SupportsConcurrentRun() bool
}

// Loader parses and initialises the graph. The Host calls it at most once
// per successful load.
type Loader interface {
	Load(ctx context.Context) (Session, error)
}

// ErrClosed is returned by Run and Load after Close
var ErrClosed = errors.New("model host is closed")

// ModelLoadError reports a missing asset or a failed graph initialisation.
// Every caller waiting on the same load receives the same error value.
type ModelLoadError struct {
	Err error
}

func (e *ModelLoadError) Error() string {
	return fmt.Sprintf("model load failed: %v", e.Err)
}

func (e *ModelLoadError) Unwrap() error { return e.Err }

// IsTransient returns true: a later Load may succeed
func (e *ModelLoadError) IsTransient() bool { return true }

// InferenceError reports an execution failure. The session stays Ready.
type InferenceError struct {
	Err error
}

func (e *InferenceError) Error() string {
	return fmt.Sprintf("inference failed: %v", e.Err)
}

func (e *InferenceError) Unwrap() error { return e.Err }

func (e *InferenceError) IsTransient() bool { return false }

// loadCall is the shared pending load every concurrent caller waits on
type loadCall struct {
	done chan struct{}
	err  error
}

// Host is the explicitly owned model session handle. Construct one at
// startup and pass it to whatever needs inference.
type Host struct {
	loader  Loader
	logger  *logging.StructuredLogger
	metrics *metrics.Collector

	mu      sync.Mutex
	state   State
	session Session
	pending *loadCall
	closed  bool

	// held shared by concurrent runs, exclusively by serialised runs and Close
	runMu sync.RWMutex
}

// NewHost creates an Unloaded host
func NewHost(loader Loader, logger *logging.StructuredLogger, metricsCollector *metrics.Collector) *Host {
	return &Host{
		loader:  loader,
		logger:  logger,
		metrics: metricsCollector,
		state:   StateUnloaded,
	}
}

// State reports the current lifecycle state
func (h *Host) State() State {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.state
}

// Load initialises the graph if needed. Ready is a no-op; while Loading,
// callers join the in-flight load instead of starting another. The load
// itself ignores ctx cancellation so that one impatient caller cannot fail
// the load for everyone else; ctx only bounds how long this caller waits.
func (h *Host) Load(ctx context.Context) error {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return ErrClosed
	}
	switch h.state {
	case StateReady:
		h.mu.Unlock()
		return nil
	case StateLoading:
		call := h.pending
		h.mu.Unlock()
		return wait(ctx, call)
	}

	call := &loadCall{done: make(chan struct{})}
	h.pending = call
	h.state = StateLoading
	h.mu.Unlock()

	go h.doLoad(context.WithoutCancel(ctx), call)

	return wait(ctx, call)
}

func wait(ctx context.Context, call *loadCall) error {
	select {
	case <-call.done:
		return call.err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (h *Host) doLoad(ctx context.Context, call *loadCall) {
	h.logger.Info(ctx, "[MODEL_LOAD_START] Initialising inference graph", logging.Fields{
		"stage": "LOADING",
	})

	timer := h.metrics.NewTimer(h.metrics.ModelLoadDuration)
	session, err := h.loader.Load(ctx)
	duration := timer.ObserveDuration()

	h.mu.Lock()
	if err == nil && h.closed {
		// Close raced the load; nothing will ever use this session
		session.Close()
		err = ErrClosed
	}
	if err != nil {
		call.err = &ModelLoadError{Err: err}
		h.state = StateUnloaded
	} else {
		h.session = session
		h.state = StateReady
	}
	h.pending = nil
	h.mu.Unlock()

	if err != nil {
		h.metrics.RecordModelLoad("failure")
		h.logger.Error(ctx, "[MODEL_LOAD_ERROR] Inference graph initialisation failed", logging.Fields{
			"duration_ms": duration.Milliseconds(),
			"stage":       "UNLOADED",
		}, err)
	} else {
		h.metrics.RecordModelLoad("success")
		h.logger.Info(ctx, "[MODEL_LOAD_COMPLETE] Inference graph ready", logging.Fields{
			"input_name":  session.InputName(),
			"output_name": session.OutputName(),
			"duration_ms": duration.Milliseconds(),
			"stage":       "READY",
		})
	}

	close(call.done)
}

// Run executes the graph on t, loading it first if necessary. The output
// length is not checked here; the decoder handles any length.
func (h *Host) Run(ctx context.Context, t *tensor.Tensor) ([]float32, error) {
	if err := h.Load(ctx); err != nil {
		return nil, err
	}

	session, release := h.acquire()
	if session == nil {
		return nil, ErrClosed
	}
	defer release()

	start := time.Now()
	output, err := session.Run(t.Data, t.Shape)
	h.metrics.InferenceDuration.Observe(time.Since(start).Seconds())

	if err != nil {
		h.metrics.InferenceErrorsTotal.Inc()
		h.logger.Error(ctx, "[INFERENCE_ERROR] Graph execution failed", logging.Fields{
			"input_name": session.InputName(),
			"shape":      t.Shape,
		}, err)
		return nil, &InferenceError{Err: err}
	}

	h.logger.Debug(ctx, "[INFERENCE] Graph executed", logging.Fields{
		"output_len":  len(output),
		"duration_ms": time.Since(start).Milliseconds(),
	})

	return output, nil
}

// acquire returns the current session with the run lock held in the mode
// the session allows. A nil session means the host was closed.
func (h *Host) acquire() (Session, func()) {
	h.mu.Lock()
	session := h.session
	h.mu.Unlock()
	if session == nil {
		return nil, nil
	}

	lock, unlock := h.runMu.Lock, h.runMu.Unlock
	if cs, ok := session.(ConcurrentSession); ok && cs.SupportsConcurrentRun() {
		lock, unlock = h.runMu.RLock, h.runMu.RUnlock
	}
	lock()

	// Close may have taken the session while we waited for the lock
	h.mu.Lock()
	current := h.session
	h.mu.Unlock()
	if current != session {
		unlock()
		return nil, nil
	}
	return session, unlock
}

// Close releases the session at process teardown. A load in flight is
// discarded when it completes.
func (h *Host) Close() error {
	h.mu.Lock()
	session := h.session
	h.session = nil
	h.closed = true
	h.state = StateUnloaded
	h.mu.Unlock()

	if session == nil {
		return nil
	}

	// wait for every in-flight run
	h.runMu.Lock()
	defer h.runMu.Unlock()

	h.logger.Info(context.Background(), "[MODEL_CLOSE] Releasing inference session", logging.Fields{})
	return session.Close()
}
