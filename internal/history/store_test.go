package history_test

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"
	"time"

	_ "modernc.org/sqlite"

	"dubshorts/internal/history"
)

func openStore(t *testing.T) *history.Store {
	t.Helper()
	store, err := history.OpenPath(filepath.Join(t.TempDir(), "history.db"))
	if err != nil {
		t.Fatalf("OpenPath: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestBeginFinishGet(t *testing.T) {
	ctx := context.Background()
	store := openStore(t)
	started := time.Date(2026, 10, 17, 6, 30, 0, 0, time.UTC)
	scheduled := time.Date(2026, 10, 17, 14, 15, 0, 0, time.UTC)

	if err := store.Begin(ctx, "run-1", "cron", started); err != nil {
		t.Fatalf("Begin: %v", err)
	}
	run, err := store.Get(ctx, "run-1")
	if err != nil || run == nil {
		t.Fatalf("Get: %v, %v", run, err)
	}
	if run.State != history.StateRunning || run.Source != "cron" || !run.StartedAt.Equal(started) {
		t.Fatalf("run = %+v", run)
	}

	if err := store.Finish(ctx, history.Run{
		RunID:         "run-1",
		URL:           "https://youtube.com/shorts/a",
		State:         "succeeded",
		VideoID:       "vid",
		ScheduledTime: scheduled,
		Message:       "Published",
		FinishedAt:    started.Add(90 * time.Second),
	}); err != nil {
		t.Fatalf("Finish: %v", err)
	}
	run, err = store.Get(ctx, "run-1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if run.State != "succeeded" || run.VideoID != "vid" || !run.ScheduledTime.Equal(scheduled) {
		t.Fatalf("run = %+v", run)
	}
	if run.FailedStage != "" || run.ErrorClass != "" {
		t.Fatalf("failure fields should be empty: %+v", run)
	}
	if run.Duration() != 90*time.Second {
		t.Fatalf("duration = %s", run.Duration())
	}

	missing, err := store.Get(ctx, "nope")
	if err != nil || missing != nil {
		t.Fatalf("missing run = %v, %v", missing, err)
	}
}

func TestListStatsAndPrune(t *testing.T) {
	ctx := context.Background()
	store := openStore(t)
	base := time.Date(2026, 10, 1, 0, 0, 0, 0, time.UTC)
	states := []string{"succeeded", "failed", "succeeded", history.StateRunning}
	for i, state := range states {
		id := string(rune('a' + i))
		if err := store.Begin(ctx, id, "api", base.Add(time.Duration(i)*24*time.Hour)); err != nil {
			t.Fatalf("Begin %s: %v", id, err)
		}
		if state != history.StateRunning {
			if err := store.Finish(ctx, history.Run{RunID: id, State: state, FinishedAt: base.Add(time.Duration(i)*24*time.Hour + time.Minute)}); err != nil {
				t.Fatalf("Finish %s: %v", id, err)
			}
		}
	}

	runs, err := store.List(ctx, history.Filter{Limit: 2})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(runs) != 2 || runs[0].RunID != "d" || runs[1].RunID != "c" {
		t.Fatalf("newest-first list = %+v", runs)
	}
	failed, err := store.List(ctx, history.Filter{States: []string{"failed"}})
	if err != nil || len(failed) != 1 || failed[0].RunID != "b" {
		t.Fatalf("failed list = %+v, %v", failed, err)
	}

	stats, err := store.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if stats["succeeded"] != 2 || stats["failed"] != 1 || stats[history.StateRunning] != 1 {
		t.Fatalf("stats = %v", stats)
	}

	interrupted, err := store.MarkInterrupted(ctx, base.Add(10*24*time.Hour))
	if err != nil || interrupted != 1 {
		t.Fatalf("MarkInterrupted = %d, %v", interrupted, err)
	}
	run, _ := store.Get(ctx, "d")
	if run.State != history.StateInterrupted || run.FinishedAt.IsZero() {
		t.Fatalf("interrupted run = %+v", run)
	}

	pruned, err := store.Prune(ctx, base.Add(36*time.Hour))
	if err != nil || pruned != 2 {
		t.Fatalf("Prune = %d, %v", pruned, err)
	}
	remaining, _ := store.List(ctx, history.Filter{})
	if len(remaining) != 2 {
		t.Fatalf("remaining = %+v", remaining)
	}
}

func TestDuplicateRunIDRejected(t *testing.T) {
	ctx := context.Background()
	store := openStore(t)
	if err := store.Begin(ctx, "same", "cli", time.Now()); err != nil {
		t.Fatalf("Begin: %v", err)
	}
	if err := store.Begin(ctx, "same", "cli", time.Now()); err == nil {
		t.Fatal("expected unique constraint failure")
	}
}

func TestSchemaMismatch(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.db")
	store, err := history.OpenPath(path)
	if err != nil {
		t.Fatalf("OpenPath: %v", err)
	}
	_ = store.Close()

	db, err := sql.Open("sqlite", path)
	if err != nil {
		t.Fatalf("sql.Open: %v", err)
	}
	if _, err := db.Exec("UPDATE schema_version SET version = 99"); err != nil {
		t.Fatalf("bump version: %v", err)
	}
	_ = db.Close()

	if _, err := history.OpenPath(path); !errors.Is(err, history.ErrSchemaMismatch) {
		t.Fatalf("expected ErrSchemaMismatch, got %v", err)
	}
}
