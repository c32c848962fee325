package logging_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"dubshorts/internal/logging"
)

func TestCleanupOldLogsPrunesFilesAndRunDirs(t *testing.T) {
	logDir := t.TempDir()
	workDir := t.TempDir()
	old := time.Now().AddDate(0, 0, -10)

	oldLog := filepath.Join(logDir, "dubshorts-old.log")
	freshLog := filepath.Join(logDir, "dubshorts.log")
	oldRun := filepath.Join(workDir, "run-old")
	freshRun := filepath.Join(workDir, "run-new")
	for _, path := range []string{oldLog, freshLog} {
		if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
			t.Fatalf("write %s: %v", path, err)
		}
	}
	for _, dir := range []string{oldRun, freshRun} {
		if err := os.MkdirAll(filepath.Join(dir, "nested"), 0o755); err != nil {
			t.Fatalf("mkdir %s: %v", dir, err)
		}
	}
	if err := os.Chtimes(oldLog, old, old); err != nil {
		t.Fatalf("chtimes: %v", err)
	}
	if err := os.Chtimes(oldRun, old, old); err != nil {
		t.Fatalf("chtimes: %v", err)
	}

	removed := logging.CleanupOldLogs(logging.NewNop(), 7,
		logging.RetentionTarget{Dir: logDir, Pattern: "*.log", Exclude: []string{freshLog}},
		logging.RetentionTarget{Dir: workDir, Dirs: true},
	)
	if removed != 2 {
		t.Fatalf("expected 2 removals, got %d", removed)
	}
	if _, err := os.Stat(oldLog); !os.IsNotExist(err) {
		t.Fatalf("expected old log removed, got %v", err)
	}
	if _, err := os.Stat(oldRun); !os.IsNotExist(err) {
		t.Fatalf("expected old run dir removed, got %v", err)
	}
	for _, path := range []string{freshLog, freshRun} {
		if _, err := os.Stat(path); err != nil {
			t.Fatalf("expected %s to remain: %v", path, err)
		}
	}
}

func TestCleanupOldLogsDisabled(t *testing.T) {
	if removed := logging.CleanupOldLogs(nil, 0, logging.RetentionTarget{Dir: t.TempDir()}); removed != 0 {
		t.Fatalf("expected no removals, got %d", removed)
	}
}
