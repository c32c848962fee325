package workflow

import (
	"time"

	"dubshorts/internal/pipeline"
)

// Status is a point-in-time view of the manager.
type Status struct {
	Running       bool
	RunID         string
	Source        string
	Stage         pipeline.State
	URL           string
	StartedAt     time.Time
	LastOutcome   *pipeline.Outcome
	NextScheduled time.Time
}

// Status returns the latest workflow information.
func (m *Manager) Status() Status {
	m.mu.RLock()
	current := m.current
	last := m.last
	next := m.nextScheduled
	var status Status
	if current != nil {
		status = Status{
			Running:   true,
			RunID:     current.id,
			Source:    current.source,
			Stage:     current.stage,
			URL:       current.url,
			StartedAt: current.startedAt,
		}
	}
	if last != nil {
		copied := *last
		status.LastOutcome = &copied
	}
	m.mu.RUnlock()

	if next != nil {
		status.NextScheduled = next()
	}
	return status
}

// Running reports whether a run is active.
func (m *Manager) Running() bool {
	return m.guard.Running()
}
