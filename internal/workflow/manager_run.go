package workflow

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"time"

	"github.com/google/uuid"

	"dubshorts/internal/history"
	"dubshorts/internal/logging"
	"dubshorts/internal/notifications"
	"dubshorts/internal/pipeline"
	"dubshorts/internal/services"
)

func newRunID() string {
	return uuid.NewString()
}

func (m *Manager) worker(ctx context.Context) {
	defer m.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case j := <-m.jobs:
			m.execute(ctx, j)
		}
	}
}

// drainPending releases a job that was queued but never picked up because the
// worker stopped first.
func (m *Manager) drainPending() {
	for {
		select {
		case j := <-m.jobs:
			m.mu.Lock()
			if m.current != nil && m.current.id == j.id {
				m.current = nil
			}
			m.mu.Unlock()
			m.guard.Release()
			close(j.done)
		default:
			return
		}
	}
}

func (m *Manager) execute(parent context.Context, j job) {
	ctx := services.WithRunID(parent, j.id)
	ctx = services.WithTrigger(ctx, j.source)
	runCtx, cancel := context.WithCancel(ctx)
	logger := logging.WithContext(ctx, m.logger)

	m.mu.Lock()
	m.runCancel = cancel
	startedAt := m.now()
	if m.current != nil {
		startedAt = m.current.startedAt
	}
	m.mu.Unlock()

	var outcome pipeline.Outcome
	defer func() {
		if r := recover(); r != nil {
			logging.ErrorWithContext(logger, "run panicked", "run_panic",
				logging.Alert("run_panic"),
				logging.String("panic", fmt.Sprint(r)),
				logging.String("stack", string(debug.Stack())),
			)
			outcome = pipeline.Outcome{
				RunID:       j.id,
				State:       pipeline.StateFailed,
				FailedStage: m.currentStage(),
				URL:         m.currentURL(),
				Cause:       fmt.Errorf("run panicked: %v", r),
				StartedAt:   startedAt,
				FinishedAt:  m.now(),
			}
		}
		cancel()
		m.finish(ctx, j, outcome)
	}()

	m.recordBegin(ctx, j, startedAt)
	m.notify(ctx, notifications.EventRunStarted, notifications.Payload{"source": j.source})

	outcome = m.runner.Run(runCtx, func(state pipeline.State, url string) {
		m.mu.Lock()
		if m.current != nil && m.current.id == j.id {
			m.current.stage = state
			m.current.url = url
		}
		m.mu.Unlock()
	})
	if outcome.RunID == "" {
		outcome.RunID = j.id
	}
}

// finish stores the outcome, publishes it, and releases the guard. It runs on
// every exit path of execute, including panics.
func (m *Manager) finish(ctx context.Context, j job, outcome pipeline.Outcome) {
	logger := logging.WithContext(ctx, m.logger)
	// Persisting must survive a cancelled run context.
	persistCtx := context.WithoutCancel(ctx)

	m.recordFinish(persistCtx, j, outcome)
	switch {
	case outcome.State == pipeline.StateFailed && errors.Is(outcome.Cause, context.Canceled):
		logger.Info(outcome.Message(), logging.String(logging.FieldEventType, "run_cancelled"))
	case outcome.State == pipeline.StateFailed:
		logger.Error(outcome.Message(),
			logging.String(logging.FieldEventType, "run_failed"),
			logging.String("error_class", services.Classify(outcome.Cause)),
		)
		m.notify(persistCtx, notifications.EventError, notifications.Payload{
			"context": outcome.FailedStage.Label(),
			"error":   outcome.Cause,
		})
	case outcome.NothingToDo:
		logger.Info(outcome.Message(), logging.String(logging.FieldEventType, "run_nothing_to_do"))
		m.notify(persistCtx, notifications.EventNothingToDo, nil)
	default:
		logger.Info(outcome.Message(),
			logging.String(logging.FieldEventType, "run_succeeded"),
			logging.Duration("run_duration", outcome.Duration()),
		)
		m.notify(persistCtx, notifications.EventRunCompleted, notifications.Payload{
			"url":       outcome.URL,
			"videoID":   outcome.VideoID,
			"scheduled": outcome.ScheduledTime,
		})
	}

	m.mu.Lock()
	last := outcome
	m.last = &last
	m.runCancel = nil
	if m.current != nil && m.current.id == j.id {
		m.current = nil
	}
	m.mu.Unlock()
	m.guard.Release()
	close(j.done)
}

func (m *Manager) recordBegin(ctx context.Context, j job, startedAt time.Time) {
	if m.history == nil {
		return
	}
	if err := m.history.Begin(ctx, j.id, j.source, startedAt); err != nil {
		logging.WarnWithContext(logging.WithContext(ctx, m.logger), "history insert failed", "history_write_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check the history database path and permissions"),
			logging.String(logging.FieldImpact, "run will be missing from history"),
		)
	}
}

func (m *Manager) recordFinish(ctx context.Context, j job, outcome pipeline.Outcome) {
	if m.history == nil {
		return
	}
	run := history.Run{
		RunID:         j.id,
		Source:        j.source,
		URL:           outcome.URL,
		State:         string(outcome.State),
		FailedStage:   string(outcome.FailedStage),
		ErrorClass:    services.Classify(outcome.Cause),
		Message:       outcome.Message(),
		VideoID:       outcome.VideoID,
		ScheduledTime: outcome.ScheduledTime,
		FinishedAt:    outcome.FinishedAt,
	}
	if run.FinishedAt.IsZero() {
		run.FinishedAt = m.now()
	}
	if err := m.history.Finish(ctx, run); err != nil {
		logging.WarnWithContext(logging.WithContext(ctx, m.logger), "history update failed", "history_write_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check the history database path and permissions"),
			logging.String(logging.FieldImpact, "run outcome missing from history"),
		)
	}
}

func (m *Manager) notify(ctx context.Context, event notifications.Event, payload notifications.Payload) {
	if m.notifier == nil {
		return
	}
	if err := m.notifier.Publish(ctx, event, payload); err != nil {
		logger := logging.WithContext(ctx, m.logger)
		if errors.Is(err, context.Canceled) {
			logger.Debug("daemon shutting down, could not send notification")
			return
		}
		logger.Debug("notification failed", logging.String("event", string(event)), logging.Error(err))
	}
}

func (m *Manager) currentStage() pipeline.State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.current == nil {
		return ""
	}
	return m.current.stage
}

func (m *Manager) currentURL() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.current == nil {
		return ""
	}
	return m.current.url
}
