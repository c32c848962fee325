package workflow_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"dubshorts/internal/history"
	"dubshorts/internal/logging"
	"dubshorts/internal/notifications"
	"dubshorts/internal/pipeline"
	"dubshorts/internal/services"
	"dubshorts/internal/workflow"
)

const shortURL = "https://youtube.com/shorts/abc"

type blockingRunner struct {
	release chan struct{}
	entered chan struct{}
	calls   atomic.Int32
	panics  bool
}

func newBlockingRunner() *blockingRunner {
	return &blockingRunner{release: make(chan struct{}), entered: make(chan struct{}, 8)}
}

func (r *blockingRunner) Run(ctx context.Context, observer pipeline.Observer) pipeline.Outcome {
	r.calls.Add(1)
	runID, _ := services.RunIDFromContext(ctx)
	observer(pipeline.StateSelecting, "")
	observer(pipeline.StateFetching, shortURL)
	r.entered <- struct{}{}
	if r.panics {
		panic("boom")
	}
	select {
	case <-r.release:
		observer(pipeline.StateSucceeded, shortURL)
		return pipeline.Outcome{RunID: runID, State: pipeline.StateSucceeded, URL: shortURL, VideoID: "vid"}
	case <-ctx.Done():
		observer(pipeline.StateFailed, shortURL)
		return pipeline.Outcome{RunID: runID, State: pipeline.StateFailed, FailedStage: pipeline.StateFetching, URL: shortURL, Cause: ctx.Err()}
	}
}

type memHistory struct {
	mu       sync.Mutex
	begun    []string
	finished []history.Run
}

func (h *memHistory) Begin(_ context.Context, runID, source string, _ time.Time) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.begun = append(h.begun, runID+"/"+source)
	return nil
}

func (h *memHistory) Finish(_ context.Context, run history.Run) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.finished = append(h.finished, run)
	return nil
}

type memNotifier struct {
	mu     sync.Mutex
	events []notifications.Event
}

func (n *memNotifier) Publish(_ context.Context, event notifications.Event, _ notifications.Payload) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, event)
	return nil
}

func startManager(t *testing.T, runner workflow.Runner, opts ...workflow.Option) *workflow.Manager {
	t.Helper()
	m := workflow.NewManager(runner, logging.NewNop(), opts...)
	if err := m.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	t.Cleanup(m.Stop)
	return m
}

func waitEntered(t *testing.T, r *blockingRunner) {
	t.Helper()
	select {
	case <-r.entered:
	case <-time.After(5 * time.Second):
		t.Fatal("runner never started")
	}
}

func TestTriggerIsSingleFlight(t *testing.T) {
	runner := newBlockingRunner()
	hist := &memHistory{}
	notifier := &memNotifier{}
	m := startManager(t, runner, workflow.WithHistory(hist), workflow.WithNotifier(notifier))

	first := m.Trigger(context.Background(), workflow.SourceAPI)
	if !first.Started || first.RunID == "" {
		t.Fatalf("first trigger = %+v", first)
	}
	waitEntered(t, runner)

	second := m.Trigger(context.Background(), workflow.SourceCron)
	if second.Started || second.Reason != workflow.ReasonAlreadyRunning {
		t.Fatalf("second trigger = %+v", second)
	}

	status := m.Status()
	if !status.Running || status.RunID != first.RunID || status.Stage != pipeline.StateFetching || status.URL != shortURL {
		t.Fatalf("status while running = %+v", status)
	}

	close(runner.release)
	if err := m.Wait(context.Background()); err != nil {
		t.Fatalf("Wait: %v", err)
	}

	status = m.Status()
	if status.Running || status.LastOutcome == nil || status.LastOutcome.VideoID != "vid" {
		t.Fatalf("status after run = %+v", status)
	}
	if runner.calls.Load() != 1 {
		t.Fatalf("runner calls = %d", runner.calls.Load())
	}
	if len(hist.begun) != 1 || hist.begun[0] != first.RunID+"/api" {
		t.Fatalf("history begun = %v", hist.begun)
	}
	if len(hist.finished) != 1 || hist.finished[0].State != "succeeded" {
		t.Fatalf("history finished = %+v", hist.finished)
	}
	notifier.mu.Lock()
	events := append([]notifications.Event(nil), notifier.events...)
	notifier.mu.Unlock()
	if len(events) != 2 || events[0] != notifications.EventRunStarted || events[1] != notifications.EventRunCompleted {
		t.Fatalf("events = %v", events)
	}

	again := m.Trigger(context.Background(), workflow.SourceCLI)
	if !again.Started {
		t.Fatalf("trigger after completion = %+v", again)
	}
	waitEntered(t, runner)
	if err := m.Wait(context.Background()); err != nil {
		t.Fatalf("Wait: %v", err)
	}
}

func TestConcurrentTriggersStartOneRun(t *testing.T) {
	runner := newBlockingRunner()
	m := startManager(t, runner)

	var started atomic.Int32
	var wg sync.WaitGroup
	for range 20 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if m.Trigger(context.Background(), workflow.SourceAPI).Started {
				started.Add(1)
			}
		}()
	}
	wg.Wait()
	if started.Load() != 1 {
		t.Fatalf("started runs = %d, want 1", started.Load())
	}
	waitEntered(t, runner)
	close(runner.release)
	if err := m.Wait(context.Background()); err != nil {
		t.Fatalf("Wait: %v", err)
	}
}

func TestTriggerBeforeStart(t *testing.T) {
	m := workflow.NewManager(newBlockingRunner(), logging.NewNop())
	if result := m.Trigger(context.Background(), workflow.SourceCLI); result.Started || result.Reason != workflow.ReasonNotStarted {
		t.Fatalf("result = %+v", result)
	}
}

func TestPanicReleasesGuard(t *testing.T) {
	runner := newBlockingRunner()
	runner.panics = true
	hist := &memHistory{}
	m := startManager(t, runner, workflow.WithHistory(hist))

	if !m.Trigger(context.Background(), workflow.SourceAPI).Started {
		t.Fatal("trigger refused")
	}
	waitEntered(t, runner)
	if err := m.Wait(context.Background()); err != nil {
		t.Fatalf("Wait: %v", err)
	}
	last := m.Status().LastOutcome
	if last == nil || last.State != pipeline.StateFailed || last.FailedStage != pipeline.StateFetching {
		t.Fatalf("last outcome = %+v", last)
	}
	if m.Running() {
		t.Fatal("guard still held after panic")
	}
	if len(hist.finished) != 1 || hist.finished[0].State != "failed" {
		t.Fatalf("history = %+v", hist.finished)
	}
}

func TestStopCancelsInFlightRun(t *testing.T) {
	runner := newBlockingRunner()
	notifier := &memNotifier{}
	m := workflow.NewManager(runner, logging.NewNop(), workflow.WithNotifier(notifier))
	if err := m.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if !m.Trigger(context.Background(), workflow.SourceCron).Started {
		t.Fatal("trigger refused")
	}
	waitEntered(t, runner)

	m.Stop()

	last := m.Status().LastOutcome
	if last == nil || !errors.Is(last.Cause, context.Canceled) {
		t.Fatalf("last outcome = %+v", last)
	}
	for _, event := range notifier.events {
		if event == notifications.EventError {
			t.Fatal("cancellation should not notify as an error")
		}
	}
	if result := m.Trigger(context.Background(), workflow.SourceCron); result.Started {
		t.Fatal("stopped manager accepted a trigger")
	}
}

func TestCancelAbortsRunOnly(t *testing.T) {
	runner := newBlockingRunner()
	m := startManager(t, runner)
	if m.Cancel() {
		t.Fatal("cancel with no run should report false")
	}
	if !m.Trigger(context.Background(), workflow.SourceAPI).Started {
		t.Fatal("trigger refused")
	}
	waitEntered(t, runner)
	if !m.Cancel() {
		t.Fatal("cancel should report true while running")
	}
	if err := m.Wait(context.Background()); err != nil {
		t.Fatalf("Wait: %v", err)
	}
	if !m.Trigger(context.Background(), workflow.SourceAPI).Started {
		t.Fatal("manager should accept runs after a cancelled one")
	}
	waitEntered(t, runner)
	close(runner.release)
	_ = m.Wait(context.Background())
}

func TestStatusNextScheduled(t *testing.T) {
	m := workflow.NewManager(newBlockingRunner(), logging.NewNop())
	next := time.Date(2026, 10, 18, 6, 30, 0, 0, time.UTC)
	m.SetScheduleSource(func() time.Time { return next })
	if got := m.Status().NextScheduled; !got.Equal(next) {
		t.Fatalf("next scheduled = %s", got)
	}
}
