package api

import (
	"time"

	"dubshorts/internal/history"
	"dubshorts/internal/pipeline"
	"dubshorts/internal/workflow"
)

// FromStatus converts a manager status to its API representation.
func FromStatus(status workflow.Status) StatusResponse {
	dto := StatusResponse{
		Running:       status.Running,
		RunID:         status.RunID,
		Source:        status.Source,
		URL:           status.URL,
		StartedAt:     formatTime(status.StartedAt),
		NextScheduled: formatTime(status.NextScheduled),
	}
	if status.Running {
		dto.Stage = string(status.Stage)
		dto.StageLabel = status.Stage.Label()
	}
	if status.LastOutcome != nil {
		summary := FromOutcome(*status.LastOutcome)
		dto.LastOutcome = &summary
	}
	return dto
}

// FromOutcome converts a pipeline outcome to its API representation.
func FromOutcome(outcome pipeline.Outcome) OutcomeSummary {
	summary := OutcomeSummary{
		RunID:         outcome.RunID,
		State:         string(outcome.State),
		URL:           outcome.URL,
		NothingToDo:   outcome.NothingToDo,
		VideoID:       outcome.VideoID,
		ScheduledTime: formatTime(outcome.ScheduledTime),
		FailedStage:   string(outcome.FailedStage),
		Message:       outcome.Message(),
		StartedAt:     formatTime(outcome.StartedAt),
		FinishedAt:    formatTime(outcome.FinishedAt),
		DurationSecs:  outcome.Duration().Seconds(),
	}
	if outcome.Cause != nil {
		summary.Error = outcome.Cause.Error()
	}
	return summary
}

// FromHistoryRun converts a history row to its API representation.
func FromHistoryRun(run history.Run) RunEntry {
	return RunEntry{
		RunID:         run.RunID,
		Source:        run.Source,
		URL:           run.URL,
		State:         run.State,
		FailedStage:   run.FailedStage,
		ErrorClass:    run.ErrorClass,
		Message:       run.Message,
		VideoID:       run.VideoID,
		ScheduledTime: formatTime(run.ScheduledTime),
		StartedAt:     formatTime(run.StartedAt),
		FinishedAt:    formatTime(run.FinishedAt),
		DurationSecs:  run.Duration().Seconds(),
	}
}

// FromHistoryRuns converts a slice of history rows, preserving order.
func FromHistoryRuns(runs []history.Run) []RunEntry {
	out := make([]RunEntry, 0, len(runs))
	for _, run := range runs {
		out = append(out, FromHistoryRun(run))
	}
	return out
}

// ParseTime parses an API timestamp. Empty or malformed values yield the zero time.
func ParseTime(value string) time.Time {
	if value == "" {
		return time.Time{}
	}
	parsed, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return time.Time{}
	}
	return parsed
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(dateTimeFormat)
}
