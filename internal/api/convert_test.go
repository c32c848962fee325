package api

import (
	"errors"
	"testing"
	"time"

	"dubshorts/internal/history"
	"dubshorts/internal/pipeline"
	"dubshorts/internal/workflow"
)

func TestFromStatusRunning(t *testing.T) {
	started := time.Date(2026, 3, 1, 6, 30, 0, 0, time.UTC)
	next := started.Add(24 * time.Hour)
	dto := FromStatus(workflow.Status{
		Running:       true,
		RunID:         "run-1",
		Source:        workflow.SourceCron,
		Stage:         pipeline.StateMixing,
		URL:           "https://youtube.com/shorts/a",
		StartedAt:     started,
		NextScheduled: next,
	})
	if !dto.Running || dto.Stage != "mixing" || dto.StageLabel != "Mixing" {
		t.Fatalf("unexpected running status: %+v", dto)
	}
	if dto.StartedAt != "2026-03-01T06:30:00Z" {
		t.Fatalf("unexpected started_at %q", dto.StartedAt)
	}
	if dto.NextScheduled != "2026-03-02T06:30:00Z" {
		t.Fatalf("unexpected next_scheduled %q", dto.NextScheduled)
	}
	if dto.LastOutcome != nil {
		t.Fatalf("expected no last outcome, got %+v", dto.LastOutcome)
	}
}

func TestFromStatusIdleWithLastOutcome(t *testing.T) {
	started := time.Date(2026, 3, 1, 6, 30, 0, 0, time.UTC)
	last := pipeline.Outcome{
		RunID:       "run-0",
		State:       pipeline.StateFailed,
		URL:         "https://youtube.com/shorts/b",
		FailedStage: pipeline.StatePublishing,
		Cause:       errors.New("quota exceeded"),
		StartedAt:   started,
		FinishedAt:  started.Add(90 * time.Second),
	}
	dto := FromStatus(workflow.Status{LastOutcome: &last})
	if dto.Running || dto.Stage != "" {
		t.Fatalf("expected idle status without stage, got %+v", dto)
	}
	if dto.NextScheduled != "" {
		t.Fatalf("expected empty next_scheduled, got %q", dto.NextScheduled)
	}
	if dto.LastOutcome == nil {
		t.Fatal("expected last outcome")
	}
	got := *dto.LastOutcome
	if got.State != "failed" || got.FailedStage != "publishing" || got.Error != "quota exceeded" {
		t.Fatalf("unexpected outcome summary: %+v", got)
	}
	if got.DurationSecs != 90 {
		t.Fatalf("expected 90s duration, got %v", got.DurationSecs)
	}
	if got.Message != last.Message() {
		t.Fatalf("message mismatch: %q vs %q", got.Message, last.Message())
	}
}

func TestFromHistoryRun(t *testing.T) {
	started := time.Date(2026, 3, 1, 6, 30, 0, 0, time.FixedZone("CET", 3600))
	entry := FromHistoryRun(history.Run{
		RunID:         "run-2",
		Source:        "api",
		State:         "succeeded",
		VideoID:       "vid123",
		ScheduledTime: started.Add(2 * time.Hour),
		StartedAt:     started,
		FinishedAt:    started.Add(time.Minute),
	})
	if entry.StartedAt != "2026-03-01T05:30:00Z" {
		t.Fatalf("expected UTC timestamp, got %q", entry.StartedAt)
	}
	if entry.FinishedAt == "" || entry.DurationSecs != 60 {
		t.Fatalf("unexpected finish data: %+v", entry)
	}
	if !ParseTime(entry.ScheduledTime).Equal(started.Add(2 * time.Hour)) {
		t.Fatalf("scheduled time did not round-trip: %q", entry.ScheduledTime)
	}
}

func TestParseTimeInvalid(t *testing.T) {
	if !ParseTime("").IsZero() || !ParseTime("yesterday").IsZero() {
		t.Fatal("expected zero time for empty and malformed values")
	}
}
