package inference

import (
	"context"
	"errors"
	"io"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"paddyguard/internal/tensor"
	"paddyguard/pkg/logging"
	"paddyguard/pkg/metrics"
)

type fakeSession struct {
	output     []float32
	runErr     error
	concurrent bool

	active    int32
	maxActive int32
	runs      int32
	closed    int32
}

func (s *fakeSession) InputName() string  { return "input.1" }
func (s *fakeSession) OutputName() string { return "logits" }

func (s *fakeSession) SupportsConcurrentRun() bool { return s.concurrent }

func (s *fakeSession) Run(input []float32, shape []int64) ([]float32, error) {
	n := atomic.AddInt32(&s.active, 1)
	for {
		m := atomic.LoadInt32(&s.maxActive)
		if n <= m || atomic.CompareAndSwapInt32(&s.maxActive, m, n) {
			break
		}
	}
	time.Sleep(2 * time.Millisecond)
	atomic.AddInt32(&s.active, -1)
	atomic.AddInt32(&s.runs, 1)

	if s.runErr != nil {
		return nil, s.runErr
	}
	return s.output, nil
}

func (s *fakeSession) Close() error {
	atomic.AddInt32(&s.closed, 1)
	return nil
}

type fakeLoader struct {
	calls   int32
	release chan struct{}
	err     error
	session *fakeSession
}

func (l *fakeLoader) Load(ctx context.Context) (Session, error) {
	atomic.AddInt32(&l.calls, 1)
	if l.release != nil {
		<-l.release
	}
	if l.err != nil {
		return nil, l.err
	}
	return l.session, nil
}

func newTestHost(loader Loader) (*Host, *metrics.Collector) {
	logger := logging.NewStructuredLogger("test", "0.0.0", logging.DebugLevel)
	logger.SetOutput(io.Discard)
	collector := metrics.NewCollector("test", prometheus.NewRegistry())
	return NewHost(loader, logger, collector), collector
}

func waitForState(t *testing.T, h *Host, want State) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for h.State() != want {
		if time.Now().After(deadline) {
			t.Fatalf("state = %v, want %v", h.State(), want)
		}
		time.Sleep(time.Millisecond)
	}
}

func testTensor() *tensor.Tensor {
	return &tensor.Tensor{Data: make([]float32, tensor.Size), Shape: tensor.Shape}
}

func TestHost_ConcurrentLoadIsDeduplicated(t *testing.T) {
	loader := &fakeLoader{release: make(chan struct{}), session: &fakeSession{}}
	host, collector := newTestHost(loader)

	const callers = 8
	errs := make(chan error, callers)
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs <- host.Load(context.Background())
		}()
	}

	waitForState(t, host, StateLoading)
	close(loader.release)
	wg.Wait()
	close(errs)

	for err := range errs {
		if err != nil {
			t.Errorf("Load() error = %v", err)
		}
	}
	if got := atomic.LoadInt32(&loader.calls); got != 1 {
		t.Errorf("loader called %d times, want 1", got)
	}
	if host.State() != StateReady {
		t.Errorf("state = %v, want ready", host.State())
	}
	if got := testutil.ToFloat64(collector.ModelLoadsTotal.WithLabelValues("success")); got != 1 {
		t.Errorf("model_loads_total{success} = %v, want 1", got)
	}

	// Ready is a no-op
	if err := host.Load(context.Background()); err != nil {
		t.Fatalf("second Load() error = %v", err)
	}
	if got := atomic.LoadInt32(&loader.calls); got != 1 {
		t.Errorf("loader called %d times after Ready, want 1", got)
	}
}

func TestHost_LoadFailureSharedAndRetryable(t *testing.T) {
	cause := errors.New("asset missing")
	loader := &fakeLoader{release: make(chan struct{}), err: cause}
	host, _ := newTestHost(loader)

	results := make(chan error, 2)
	for i := 0; i < 2; i++ {
		go func() { results <- host.Load(context.Background()) }()
	}
	waitForState(t, host, StateLoading)
	close(loader.release)

	first, second := <-results, <-results
	var loadErr *ModelLoadError
	if !errors.As(first, &loadErr) {
		t.Fatalf("error = %v, want *ModelLoadError", first)
	}
	if first != second {
		t.Errorf("waiters received different errors: %v vs %v", first, second)
	}
	if !errors.Is(first, cause) {
		t.Errorf("ModelLoadError should wrap the loader error")
	}
	if !loadErr.IsTransient() {
		t.Error("ModelLoadError should be transient")
	}
	if host.State() != StateUnloaded {
		t.Errorf("state = %v, want unloaded", host.State())
	}

	// caller-driven retry
	loader.err = nil
	loader.release = nil
	loader.session = &fakeSession{}
	if err := host.Load(context.Background()); err != nil {
		t.Fatalf("retry Load() error = %v", err)
	}
	if got := atomic.LoadInt32(&loader.calls); got != 2 {
		t.Errorf("loader called %d times, want 2", got)
	}
	if host.State() != StateReady {
		t.Errorf("state = %v, want ready", host.State())
	}
}

func TestHost_RunLoadsLazily(t *testing.T) {
	session := &fakeSession{output: []float32{0.1, 0.7, 0.2}}
	loader := &fakeLoader{session: session}
	host, _ := newTestHost(loader)

	out, err := host.Run(context.Background(), testTensor())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if len(out) != 3 || out[1] != 0.7 {
		t.Errorf("output = %v", out)
	}
	if got := atomic.LoadInt32(&loader.calls); got != 1 {
		t.Errorf("loader called %d times, want 1", got)
	}
}

func TestHost_RunFailureKeepsSessionReady(t *testing.T) {
	session := &fakeSession{runErr: errors.New("shape mismatch")}
	loader := &fakeLoader{session: session}
	host, collector := newTestHost(loader)

	for i := 0; i < 2; i++ {
		_, err := host.Run(context.Background(), testTensor())
		var infErr *InferenceError
		if !errors.As(err, &infErr) {
			t.Fatalf("run %d: error = %v, want *InferenceError", i, err)
		}
	}

	if host.State() != StateReady {
		t.Errorf("state = %v, want ready after inference failure", host.State())
	}
	if got := atomic.LoadInt32(&loader.calls); got != 1 {
		t.Errorf("loader called %d times, want 1 (no reload)", got)
	}
	if atomic.LoadInt32(&session.closed) != 0 {
		t.Error("session must not be torn down on inference failure")
	}
	if got := testutil.ToFloat64(collector.InferenceErrorsTotal); got != 2 {
		t.Errorf("inference_errors_total = %v, want 2", got)
	}
}

func TestHost_RunSerialisedForNonConcurrentSession(t *testing.T) {
	session := &fakeSession{output: []float32{1}}
	host, _ := newTestHost(&fakeLoader{session: session})

	var wg sync.WaitGroup
	for i := 0; i < 6; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := host.Run(context.Background(), testTensor()); err != nil {
				t.Errorf("Run() error = %v", err)
			}
		}()
	}
	wg.Wait()

	if got := atomic.LoadInt32(&session.maxActive); got != 1 {
		t.Errorf("max concurrent runs = %d, want 1", got)
	}
	if got := atomic.LoadInt32(&session.runs); got != 6 {
		t.Errorf("runs = %d, want 6", got)
	}
}

// gatedSession blocks every Run until release is closed and records
// whether it was closed underneath a run
type gatedSession struct {
	started chan struct{}
	release chan struct{}

	closed          int32
	closedDuringRun int32
}

func (s *gatedSession) InputName() string           { return "input.1" }
func (s *gatedSession) OutputName() string          { return "logits" }
func (s *gatedSession) SupportsConcurrentRun() bool { return true }

func (s *gatedSession) Run(input []float32, shape []int64) ([]float32, error) {
	s.started <- struct{}{}
	<-s.release
	if atomic.LoadInt32(&s.closed) != 0 {
		atomic.StoreInt32(&s.closedDuringRun, 1)
	}
	return []float32{1}, nil
}

func (s *gatedSession) Close() error {
	atomic.AddInt32(&s.closed, 1)
	return nil
}

func TestHost_ConcurrentRunsOverlap(t *testing.T) {
	session := &gatedSession{started: make(chan struct{}, 2), release: make(chan struct{})}
	host, _ := newTestHost(loaderFunc(func(context.Context) (Session, error) { return session, nil }))

	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := host.Run(context.Background(), testTensor()); err != nil {
				t.Errorf("Run() error = %v", err)
			}
		}()
	}

	// both runs must be inside the session before either is released
	for i := 0; i < 2; i++ {
		select {
		case <-session.started:
		case <-time.After(2 * time.Second):
			t.Fatal("concurrent runs were serialised")
		}
	}
	close(session.release)
	wg.Wait()
}

func TestHost_CloseWaitsForConcurrentRun(t *testing.T) {
	session := &gatedSession{started: make(chan struct{}, 1), release: make(chan struct{})}
	host, _ := newTestHost(loaderFunc(func(context.Context) (Session, error) { return session, nil }))

	runErr := make(chan error, 1)
	go func() {
		_, err := host.Run(context.Background(), testTensor())
		runErr <- err
	}()
	<-session.started

	closeDone := make(chan error, 1)
	go func() { closeDone <- host.Close() }()

	select {
	case <-closeDone:
		t.Fatal("Close() returned while a run was in flight")
	case <-time.After(20 * time.Millisecond):
	}

	close(session.release)
	if err := <-runErr; err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if err := <-closeDone; err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if atomic.LoadInt32(&session.closedDuringRun) != 0 {
		t.Error("session was closed while Run was executing")
	}
	if atomic.LoadInt32(&session.closed) != 1 {
		t.Error("session not closed")
	}
}

type loaderFunc func(context.Context) (Session, error)

func (f loaderFunc) Load(ctx context.Context) (Session, error) { return f(ctx) }

func TestHost_CancelledWaiterDoesNotCancelLoad(t *testing.T) {
	loader := &fakeLoader{release: make(chan struct{}), session: &fakeSession{}}
	host, _ := newTestHost(loader)

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- host.Load(ctx) }()

	waitForState(t, host, StateLoading)
	cancel()
	if err := <-errCh; !errors.Is(err, context.Canceled) {
		t.Fatalf("Load() error = %v, want context.Canceled", err)
	}

	close(loader.release)
	waitForState(t, host, StateReady)
	if got := atomic.LoadInt32(&loader.calls); got != 1 {
		t.Errorf("loader called %d times, want 1", got)
	}
}

func TestHost_Close(t *testing.T) {
	session := &fakeSession{}
	host, _ := newTestHost(&fakeLoader{session: session})

	if err := host.Load(context.Background()); err != nil {
		t.Fatal(err)
	}
	if err := host.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if atomic.LoadInt32(&session.closed) != 1 {
		t.Error("session not closed")
	}
	if err := host.Load(context.Background()); !errors.Is(err, ErrClosed) {
		t.Errorf("Load() after Close error = %v, want ErrClosed", err)
	}
	if _, err := host.Run(context.Background(), testTensor()); !errors.Is(err, ErrClosed) {
		t.Errorf("Run() after Close error = %v, want ErrClosed", err)
	}
}

func TestONNXLoader_MissingAsset(t *testing.T) {
	loader := &ONNXLoader{ModelPath: filepath.Join(t.TempDir(), "leaf_classifier.onnx")}
	host, _ := newTestHost(loader)

	err := host.Load(context.Background())
	var loadErr *ModelLoadError
	if !errors.As(err, &loadErr) {
		t.Fatalf("error = %v, want *ModelLoadError", err)
	}
	if host.State() != StateUnloaded {
		t.Errorf("state = %v, want unloaded", host.State())
	}
}

func TestStateString(t *testing.T) {
	tests := map[State]string{
		StateUnloaded: "unloaded",
		StateLoading:  "loading",
		StateReady:    "ready",
		State(42):     "unknown",
	}
	for s, want := range tests {
		if s.String() != want {
			t.Errorf("State(%d).String() = %q, want %q", int(s), s.String(), want)
		}
	}
}
