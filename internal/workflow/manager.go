package workflow

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"dubshorts/internal/history"
	"dubshorts/internal/logging"
	"dubshorts/internal/notifications"
	"dubshorts/internal/pipeline"
	"dubshorts/internal/runguard"
)

// Trigger sources.
const (
	SourceCron    = "cron"
	SourceWatcher = "watcher"
	SourceAPI     = "api"
	SourceCLI     = "cli"
)

// Runner executes one pipeline pass.
type Runner interface {
	Run(ctx context.Context, observer pipeline.Observer) pipeline.Outcome
}

// HistoryRecorder persists run rows.
type HistoryRecorder interface {
	Begin(ctx context.Context, runID, source string, startedAt time.Time) error
	Finish(ctx context.Context, run history.Run) error
}

// TriggerResult reports whether a trigger started a run.
type TriggerResult struct {
	Started bool
	RunID   string
	Reason  string
}

// Refusal reasons.
const (
	ReasonAlreadyRunning = "Already running"
	ReasonNotStarted     = "Manager not started"
)

type job struct {
	id     string
	source string
	done   chan struct{}
}

type activeRun struct {
	id        string
	source    string
	stage     pipeline.State
	url       string
	startedAt time.Time
	done      chan struct{}
}

// Manager serializes pipeline runs behind a run guard.
type Manager struct {
	guard    *runguard.Guard
	runner   Runner
	history  HistoryRecorder
	notifier notifications.Service
	logger   *slog.Logger
	now      func() time.Time

	jobs chan job

	mu            sync.RWMutex
	started       bool
	cancel        context.CancelFunc
	runCancel     context.CancelFunc
	current       *activeRun
	last          *pipeline.Outcome
	nextScheduled func() time.Time
	wg            sync.WaitGroup
}

// Option configures optional Manager behavior.
type Option func(*Manager)

// WithHistory records every run in h.
func WithHistory(h HistoryRecorder) Option {
	return func(m *Manager) { m.history = h }
}

// WithNotifier publishes run events through n.
func WithNotifier(n notifications.Service) Option {
	return func(m *Manager) {
		if n != nil {
			m.notifier = n
		}
	}
}

// WithGuard shares an existing run guard.
func WithGuard(g *runguard.Guard) Option {
	return func(m *Manager) {
		if g != nil {
			m.guard = g
		}
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) {
		if now != nil {
			m.now = now
		}
	}
}

// NewManager constructs a manager around runner. Call Start before Trigger.
func NewManager(runner Runner, logger *slog.Logger, opts ...Option) *Manager {
	m := &Manager{
		guard:    runguard.New(),
		runner:   runner,
		notifier: notifications.NewNoop(),
		logger:   logging.NewComponentLogger(logger, "workflow"),
		now:      time.Now,
		jobs:     make(chan job, 1),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// SetScheduleSource registers the function reporting the next scheduled run.
func (m *Manager) SetScheduleSource(next func() time.Time) {
	m.mu.Lock()
	m.nextScheduled = next
	m.mu.Unlock()
}

// Start launches the worker goroutine. Runs inherit ctx; cancelling it
// cancels an in-flight run.
func (m *Manager) Start(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.started {
		return errors.New("workflow already running")
	}
	if m.runner == nil {
		return errors.New("workflow runner not configured")
	}
	workerCtx, cancel := context.WithCancel(ctx)
	m.cancel = cancel
	m.started = true
	m.wg.Add(1)
	go m.worker(workerCtx)
	return nil
}

// Stop cancels any in-flight run and waits for the worker to exit.
func (m *Manager) Stop() {
	m.mu.Lock()
	if !m.started {
		m.mu.Unlock()
		return
	}
	cancel := m.cancel
	m.started = false
	m.cancel = nil
	m.mu.Unlock()

	cancel()
	m.wg.Wait()
	m.drainPending()
}

// Trigger starts a run unless one is already active. It never blocks on the
// run itself.
func (m *Manager) Trigger(ctx context.Context, source string) TriggerResult {
	logger := logging.WithContext(ctx, m.logger)
	m.mu.Lock()
	if !m.started {
		m.mu.Unlock()
		return TriggerResult{Reason: ReasonNotStarted}
	}
	if !m.guard.TryAcquire() {
		m.mu.Unlock()
		logger.Info("trigger refused; run already active",
			logging.String(logging.FieldTrigger, source),
			logging.String(logging.FieldEventType, "trigger_refused"),
		)
		return TriggerResult{Reason: ReasonAlreadyRunning}
	}
	j := job{id: newRunID(), source: source, done: make(chan struct{})}
	m.current = &activeRun{
		id:        j.id,
		source:    source,
		stage:     pipeline.StateIdle,
		startedAt: m.now(),
		done:      j.done,
	}
	// The guard admits one job at a time, so the buffered send never blocks.
	m.jobs <- j
	m.mu.Unlock()

	logger.Info("run triggered",
		logging.String(logging.FieldTrigger, source),
		logging.String(logging.FieldRunID, j.id),
		logging.String(logging.FieldEventType, "run_triggered"),
	)
	return TriggerResult{Started: true, RunID: j.id}
}

// Wait blocks until the active run (if any) finishes or ctx is done.
func (m *Manager) Wait(ctx context.Context) error {
	m.mu.RLock()
	current := m.current
	m.mu.RUnlock()
	if current == nil {
		return nil
	}
	select {
	case <-current.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Cancel aborts the in-flight run, if any, without stopping the manager.
func (m *Manager) Cancel() bool {
	m.mu.RLock()
	cancel := m.runCancel
	m.mu.RUnlock()
	if cancel == nil {
		return false
	}
	cancel()
	return true
}
