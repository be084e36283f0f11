package capture

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"ai-recorder-be/pkg/media"
	"ai-recorder-be/pkg/vision"
)

var errNotFound = errors.New("vision session not_found")

type fakeStream struct {
	id    string
	mu    sync.Mutex
	stops int
}

func (s *fakeStream) ID() string { return s.id }

func (s *fakeStream) StopTracks() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stops++
	return nil
}

func (s *fakeStream) stopCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stops
}

type fakeRouter struct {
	mu         sync.Mutex
	streams    []*fakeStream
	installs   int
	restores   int
	installed  bool
	acquireErr error
	installErr error
}

func (r *fakeRouter) AcquireDisplay(ctx context.Context) (media.Stream, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.acquireErr != nil {
		return nil, r.acquireErr
	}
	stream := &fakeStream{id: fmt.Sprintf("display-%d", len(r.streams)+1)}
	r.streams = append(r.streams, stream)
	return stream, nil
}

func (r *fakeRouter) InstallRedirect(stream media.Stream) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.installErr != nil {
		return r.installErr
	}
	if r.installed {
		return errors.New("media redirect already installed")
	}
	r.installed = true
	r.installs++
	return nil
}

func (r *fakeRouter) RestoreRedirect() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.restores++
	r.installed = false
}

func (r *fakeRouter) snapshot() (installs, restores, acquires int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.installs, r.restores, len(r.streams)
}

type fakeConn struct {
	cfg      vision.Config
	startErr error

	mu    sync.Mutex
	stops int
}

func (c *fakeConn) Start(ctx context.Context) error { return c.startErr }

func (c *fakeConn) Stop(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stops++
	return nil
}

func (c *fakeConn) stopCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stops
}

type fakeProvider struct {
	mu       sync.Mutex
	conns    []*fakeConn
	openErr  error
	startErr error
}

func (p *fakeProvider) Open(ctx context.Context, cfg vision.Config) (vision.Conn, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.openErr != nil {
		return nil, p.openErr
	}
	conn := &fakeConn{cfg: cfg, startErr: p.startErr}
	p.conns = append(p.conns, conn)
	return conn, nil
}

func (p *fakeProvider) opens() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.conns)
}

func (p *fakeProvider) last() *fakeConn {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.conns[len(p.conns)-1]
}

type manualTimer struct {
	mu      sync.Mutex
	stopped bool
}

func (t *manualTimer) Stop() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.stopped = true
	return true
}

func (t *manualTimer) wasStopped() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.stopped
}

type scheduledRetry struct {
	delay time.Duration
	fn    func()
	timer *manualTimer
}

// manualScheduler replaces time.AfterFunc so tests decide when (and
// whether) a reconnect fires. Firing a cancelled entry simulates the timer
// racing a Stop.
type manualScheduler struct {
	mu      sync.Mutex
	pending []*scheduledRetry
}

func (s *manualScheduler) schedule(d time.Duration, fn func()) retryTimer {
	s.mu.Lock()
	defer s.mu.Unlock()
	timer := &manualTimer{}
	s.pending = append(s.pending, &scheduledRetry{delay: d, fn: fn, timer: timer})
	return timer
}

func (s *manualScheduler) pop(t *testing.T) *scheduledRetry {
	t.Helper()
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.pending) == 0 {
		t.Fatal("no scheduled retry")
	}
	next := s.pending[0]
	s.pending = s.pending[1:]
	return next
}

func (s *manualScheduler) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pending)
}

type recordingSink struct {
	mu       sync.Mutex
	statuses []Status
	texts    []string
}

func (s *recordingSink) StatusChanged(status Status, message string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.statuses = append(s.statuses, status)
}

func (s *recordingSink) ObservationCaptured(text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.texts = append(s.texts, text)
}

func (s *recordingSink) seen(status Status) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, st := range s.statuses {
		if st == status {
			return true
		}
	}
	return false
}

func newTestController(t *testing.T) (*Controller, *fakeProvider, *fakeRouter, *manualScheduler, *recordingSink) {
	t.Helper()
	provider := &fakeProvider{}
	router := &fakeRouter{}
	sched := &manualScheduler{}
	sink := &recordingSink{}

	c := NewController(provider, router, "describe what the user is doing", sink, nil)
	c.schedule = sched.schedule

	base := time.UnixMilli(1_000_000)
	tick := 0
	c.now = func() time.Time {
		tick++
		return base.Add(time.Duration(tick) * time.Second)
	}
	return c, provider, router, sched, sink
}

func TestStartStopLifecycle(t *testing.T) {
	c, provider, router, _, _ := newTestController(t)

	if err := c.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if got := c.State().Status; got != StatusRecording {
		t.Fatalf("status = %v, want %v", got, StatusRecording)
	}

	conn := provider.last()
	conn.cfg.OnResult(vision.Result{Payload: "user opens terminal"})
	conn.cfg.OnResult(vision.Result{Payload: "user runs build"})

	state := c.State()
	if state.Observations != 2 {
		t.Fatalf("observations = %d, want 2", state.Observations)
	}
	if state.LastObservation != "user runs build" {
		t.Errorf("last observation = %q", state.LastObservation)
	}

	obs := c.Stop()
	if len(obs) != 2 {
		t.Fatalf("Stop returned %d observations, want 2", len(obs))
	}
	if obs[0].Timestamp >= obs[1].Timestamp {
		t.Errorf("timestamps not increasing: %d, %d", obs[0].Timestamp, obs[1].Timestamp)
	}
	if got := c.State().Status; got != StatusReady {
		t.Errorf("status after Stop = %v, want %v", got, StatusReady)
	}

	installs, restores, acquires := router.snapshot()
	if installs != 1 || restores != 1 || acquires != 1 {
		t.Errorf("router installs/restores/acquires = %d/%d/%d, want 1/1/1", installs, restores, acquires)
	}
	if router.streams[0].stopCount() != 1 {
		t.Errorf("stream stop count = %d, want 1", router.streams[0].stopCount())
	}
	if conn.stopCount() != 1 {
		t.Errorf("conn stop count = %d, want 1", conn.stopCount())
	}
}

func TestStartWhileRecordingIsNoOp(t *testing.T) {
	c, provider, router, _, _ := newTestController(t)

	if err := c.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := c.Start(context.Background()); err != nil {
		t.Fatalf("second Start: %v", err)
	}

	if provider.opens() != 1 {
		t.Errorf("provider opened %d times, want 1", provider.opens())
	}
	if _, _, acquires := router.snapshot(); acquires != 1 {
		t.Errorf("display acquired %d times, want 1", acquires)
	}
}

func TestStopNeverStarted(t *testing.T) {
	c, _, router, _, _ := newTestController(t)

	obs := c.Stop()
	if len(obs) != 0 {
		t.Fatalf("Stop returned %d observations, want 0", len(obs))
	}
	if got := c.State().Status; got != StatusReady {
		t.Errorf("status = %v, want %v", got, StatusReady)
	}
	if _, restores, _ := router.snapshot(); restores != 0 {
		t.Errorf("restore called %d times without an install", restores)
	}
}

func TestStopIsIdempotent(t *testing.T) {
	c, provider, router, _, _ := newTestController(t)

	if err := c.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	provider.last().cfg.OnResult(vision.Result{Payload: "typing"})

	first := c.Stop()
	second := c.Stop()

	if len(first) != 1 {
		t.Fatalf("first Stop returned %d observations, want 1", len(first))
	}
	if len(second) != 0 {
		t.Fatalf("second Stop returned %d observations, want 0", len(second))
	}
	if _, restores, _ := router.snapshot(); restores != 1 {
		t.Errorf("redirect restored %d times, want exactly 1", restores)
	}
}

func TestAcquireFailureParksInError(t *testing.T) {
	c, provider, router, _, _ := newTestController(t)
	router.acquireErr = errors.New("display capture denied")

	err := c.Start(context.Background())
	if err == nil {
		t.Fatal("Start succeeded, want error")
	}

	state := c.State()
	if state.Status != StatusError {
		t.Errorf("status = %v, want %v", state.Status, StatusError)
	}
	if state.Message == "" {
		t.Error("error state carries no message")
	}
	if provider.opens() != 0 {
		t.Errorf("provider opened %d times, want 0", provider.opens())
	}
	if installs, _, _ := router.snapshot(); installs != 0 {
		t.Errorf("redirect installed on failed acquire")
	}
}

func TestInstallFailureReleasesStream(t *testing.T) {
	c, _, router, _, _ := newTestController(t)
	router.installErr = errors.New("router busy")

	if err := c.Start(context.Background()); err == nil {
		t.Fatal("Start succeeded, want error")
	}

	if router.streams[0].stopCount() != 1 {
		t.Errorf("stream stop count = %d, want 1", router.streams[0].stopCount())
	}
	if _, restores, _ := router.snapshot(); restores != 0 {
		t.Errorf("restore called for a redirect that was never installed")
	}
	if got := c.State().Status; got != StatusError {
		t.Errorf("status = %v, want %v", got, StatusError)
	}
}

func TestOpenFailureRestoresRedirect(t *testing.T) {
	c, provider, router, _, _ := newTestController(t)
	provider.openErr = errors.New("vision endpoint unreachable")

	if err := c.Start(context.Background()); err == nil {
		t.Fatal("Start succeeded, want error")
	}

	installs, restores, _ := router.snapshot()
	if installs != 1 || restores != 1 {
		t.Errorf("installs/restores = %d/%d, want 1/1", installs, restores)
	}
	if router.streams[0].stopCount() != 1 {
		t.Errorf("stream not released on failure")
	}
}

func TestConnStartFailureCleansUp(t *testing.T) {
	c, provider, router, _, _ := newTestController(t)
	provider.startErr = errors.New("handshake rejected")

	if err := c.Start(context.Background()); err == nil {
		t.Fatal("Start succeeded, want error")
	}

	if provider.last().stopCount() == 0 {
		t.Error("failed conn never stopped")
	}
	if _, restores, _ := router.snapshot(); restores != 1 {
		t.Errorf("redirect restored %d times, want 1", restores)
	}
	if got := c.State().Status; got != StatusError {
		t.Errorf("status = %v, want %v", got, StatusError)
	}
}

func TestTransientErrorSchedulesRetry(t *testing.T) {
	c, provider, router, sched, _ := newTestController(t)

	if err := c.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	first := provider.last()
	first.cfg.OnError(errNotFound)

	if got := c.State().Status; got != StatusReconnecting {
		t.Fatalf("status = %v, want %v", got, StatusReconnecting)
	}
	if first.stopCount() != 1 {
		t.Errorf("dropped conn stop count = %d, want 1", first.stopCount())
	}
	// The stream and redirect survive a reconnect.
	if router.streams[0].stopCount() != 0 {
		t.Errorf("stream released during reconnect")
	}
	if _, restores, _ := router.snapshot(); restores != 0 {
		t.Errorf("redirect restored during reconnect")
	}

	entry := sched.pop(t)
	if entry.delay != reconnectDelay {
		t.Errorf("retry delay = %v, want %v", entry.delay, reconnectDelay)
	}
	entry.fn()

	if got := c.State().Status; got != StatusRecording {
		t.Fatalf("status after retry = %v, want %v", got, StatusRecording)
	}
	if provider.opens() != 2 {
		t.Errorf("provider opened %d times, want 2", provider.opens())
	}
	if _, _, acquires := router.snapshot(); acquires != 1 {
		t.Errorf("display re-acquired on retry")
	}
}

func TestRetryKeepsBuffer(t *testing.T) {
	c, provider, _, sched, _ := newTestController(t)

	if err := c.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	provider.last().cfg.OnResult(vision.Result{Payload: "editing config"})
	provider.last().cfg.OnError(errNotFound)
	sched.pop(t).fn()

	if got := c.State().Observations; got != 1 {
		t.Errorf("observations after retry = %d, want 1", got)
	}
}

func TestConnectionLostAfterExactlyThreeRetries(t *testing.T) {
	c, provider, router, sched, _ := newTestController(t)

	if err := c.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	provider.last().cfg.OnResult(vision.Result{Payload: "reading docs"})

	// Three transient errors each reconnect; the fourth exhausts the cap.
	for i := 0; i < 3; i++ {
		provider.last().cfg.OnError(errNotFound)
		if got := c.State().Status; got != StatusReconnecting {
			t.Fatalf("error %d: status = %v, want %v", i+1, got, StatusReconnecting)
		}
		sched.pop(t).fn()
	}
	provider.last().cfg.OnError(errNotFound)

	state := c.State()
	if state.Status != StatusConnectionLost {
		t.Fatalf("status = %v, want %v", state.Status, StatusConnectionLost)
	}
	if state.Message == "" {
		t.Error("connection-lost state carries no message")
	}
	if provider.opens() != 4 {
		t.Errorf("provider opened %d times, want 4 (initial + 3 retries)", provider.opens())
	}
	if sched.count() != 0 {
		t.Errorf("%d retries still scheduled after the cap", sched.count())
	}
	if router.streams[0].stopCount() != 1 {
		t.Errorf("stream not released on connection loss")
	}
	if _, restores, _ := router.snapshot(); restores != 1 {
		t.Errorf("redirect restored %d times, want 1", restores)
	}

	// The buffer survives for collection.
	if obs := c.Stop(); len(obs) != 1 {
		t.Errorf("Stop after loss returned %d observations, want 1", len(obs))
	}
}

func TestObservationResetsRetryBudget(t *testing.T) {
	c, provider, _, sched, _ := newTestController(t)

	if err := c.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}

	// Two failed attempts, then a successful observation.
	for i := 0; i < 2; i++ {
		provider.last().cfg.OnError(errNotFound)
		sched.pop(t).fn()
	}
	provider.last().cfg.OnResult(vision.Result{Payload: "back on screen"})

	// The budget is full again: three more errors still reconnect.
	for i := 0; i < 3; i++ {
		provider.last().cfg.OnError(errNotFound)
		if got := c.State().Status; got != StatusReconnecting {
			t.Fatalf("error %d after reset: status = %v, want %v", i+1, got, StatusReconnecting)
		}
		sched.pop(t).fn()
	}
	if got := c.State().Status; got != StatusRecording {
		t.Errorf("status = %v, want %v", got, StatusRecording)
	}
}

func TestNonRetryableErrorLosesConnectionImmediately(t *testing.T) {
	c, provider, _, sched, _ := newTestController(t)

	if err := c.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	provider.last().cfg.OnError(errors.New("connection refused"))

	if got := c.State().Status; got != StatusConnectionLost {
		t.Fatalf("status = %v, want %v", got, StatusConnectionLost)
	}
	if sched.count() != 0 {
		t.Errorf("retry scheduled for a non-retryable error")
	}
}

func TestLateRetryAfterStopIsNoOp(t *testing.T) {
	c, provider, _, sched, _ := newTestController(t)

	if err := c.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	provider.last().cfg.OnError(errNotFound)
	entry := sched.pop(t)

	c.Stop()
	if !entry.timer.wasStopped() {
		t.Error("Stop left the retry timer running")
	}

	// Simulate the timer racing the cancellation and firing anyway.
	entry.fn()

	if got := c.State().Status; got != StatusReady {
		t.Errorf("late retry moved status to %v", got)
	}
	if provider.opens() != 1 {
		t.Errorf("late retry opened a new vision session")
	}
}

func TestManualStartDuringReconnectRetriesNow(t *testing.T) {
	c, provider, _, sched, _ := newTestController(t)

	if err := c.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	provider.last().cfg.OnResult(vision.Result{Payload: "filling form"})
	provider.last().cfg.OnError(errNotFound)
	entry := sched.pop(t)

	if err := c.Start(context.Background()); err != nil {
		t.Fatalf("manual Start during reconnect: %v", err)
	}

	state := c.State()
	if state.Status != StatusRecording {
		t.Fatalf("status = %v, want %v", state.Status, StatusRecording)
	}
	if state.Observations != 1 {
		t.Errorf("manual retry dropped the buffer: %d observations", state.Observations)
	}
	if !entry.timer.wasStopped() {
		t.Error("manual Start left the retry timer running")
	}

	// The superseded timer firing late changes nothing.
	opens := provider.opens()
	entry.fn()
	if provider.opens() != opens {
		t.Error("stale retry opened another vision session")
	}
}

func TestLateHandlersFromReplacedConnIgnored(t *testing.T) {
	c, provider, _, sched, _ := newTestController(t)

	if err := c.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	old := provider.last()
	old.cfg.OnError(errNotFound)
	sched.pop(t).fn()

	// Handlers from the dead conn arrive after the replacement is live.
	old.cfg.OnResult(vision.Result{Payload: "ghost observation"})
	old.cfg.OnError(errNotFound)

	state := c.State()
	if state.Observations != 0 {
		t.Errorf("stale result buffered: %d observations", state.Observations)
	}
	if state.Status != StatusRecording {
		t.Errorf("stale error moved status to %v", state.Status)
	}
	if sched.count() != 0 {
		t.Errorf("stale error scheduled a retry")
	}
}

func TestFreshStartAfterConnectionLost(t *testing.T) {
	c, provider, router, sched, _ := newTestController(t)

	if err := c.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	provider.last().cfg.OnResult(vision.Result{Payload: "old session work"})
	for i := 0; i < 3; i++ {
		provider.last().cfg.OnError(errNotFound)
		sched.pop(t).fn()
	}
	provider.last().cfg.OnError(errNotFound)
	if got := c.State().Status; got != StatusConnectionLost {
		t.Fatalf("status = %v, want %v", got, StatusConnectionLost)
	}

	if err := c.Start(context.Background()); err != nil {
		t.Fatalf("Start after loss: %v", err)
	}

	state := c.State()
	if state.Status != StatusRecording {
		t.Fatalf("status = %v, want %v", state.Status, StatusRecording)
	}
	if state.Observations != 0 {
		t.Errorf("fresh session inherited %d observations", state.Observations)
	}
	if _, _, acquires := router.snapshot(); acquires != 2 {
		t.Errorf("display acquired %d times, want 2", acquires)
	}
}

func TestSinkSeesLifecycle(t *testing.T) {
	c, provider, _, _, sink := newTestController(t)

	if err := c.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	provider.last().cfg.OnResult(vision.Result{Payload: "watching dashboard"})
	c.Stop()

	for _, want := range []Status{StatusInitializing, StatusRecording, StatusStopping, StatusReady} {
		if !sink.seen(want) {
			t.Errorf("sink never saw status %v", want)
		}
	}

	sink.mu.Lock()
	defer sink.mu.Unlock()
	if len(sink.texts) != 1 || sink.texts[0] != "watching dashboard" {
		t.Errorf("sink texts = %v", sink.texts)
	}
}
