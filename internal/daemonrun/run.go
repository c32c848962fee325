package daemonrun

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"
	"time"

	"dubshorts/internal/config"
	"dubshorts/internal/daemon"
	"dubshorts/internal/deps"
	"dubshorts/internal/history"
	"dubshorts/internal/logging"
	"dubshorts/internal/notifications"
	"dubshorts/internal/pipeline"
	"dubshorts/internal/preflight"
	"dubshorts/internal/workflow"
)

// Options configures daemon process runtime behavior.
type Options struct {
	LogLevel    string
	Development bool
}

// Run starts the dubshorts daemon runtime loop and blocks until a signal
// arrives or a trigger surface fails.
func Run(cmdCtx context.Context, cfg *config.Config, opts Options) error {
	if cfg == nil {
		return fmt.Errorf("config is required")
	}
	if err := cfg.EnsureDirectories(); err != nil {
		return fmt.Errorf("ensure directories: %w", err)
	}

	signalCtx, cancel := signal.NotifyContext(cmdCtx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	stamp := time.Now().UTC().Format("20060102T150405.000Z")
	logPath := filepath.Join(cfg.Paths.LogDir, fmt.Sprintf("dubshorts-%s.log", stamp))
	level := opts.LogLevel
	if level == "" {
		level = cfg.Logging.Level
	}
	logger, err := logging.New(logging.Options{
		Level:       level,
		Format:      cfg.Logging.Format,
		OutputPaths: []string{"stdout", logPath},
		Development: opts.Development,
	})
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}

	if err := ensureCurrentLogPointer(cfg.LogPath(), logPath); err != nil {
		fmt.Fprintf(os.Stderr, "warn: unable to update dubshorts.log link: %v\n", err)
	}
	logging.CleanupOldLogs(logger, cfg.Logging.RetentionDays,
		logging.RetentionTarget{Dir: cfg.Paths.LogDir, Pattern: "dubshorts-*.log", Exclude: []string{logPath}},
		logging.RetentionTarget{Dir: pipeline.RunsDir(cfg), Pattern: "*", Dirs: true},
	)
	logDependencySnapshot(signalCtx, logger, cfg)

	pidPath := filepath.Join(cfg.Paths.StateDir, "dubshorts.pid")
	if err := writePIDFile(pidPath); err != nil {
		return fmt.Errorf("write pid file: %w", err)
	}
	defer os.Remove(pidPath)

	store, err := history.Open(cfg)
	if err != nil {
		logger.Error("open run history", logging.Error(err))
		return err
	}
	defer store.Close()
	if n, err := store.MarkInterrupted(signalCtx, time.Now()); err != nil {
		logger.Warn("failed to mark interrupted runs", logging.Error(err))
	} else if n > 0 {
		logger.Info("marked interrupted runs from previous process",
			logging.Int64("count", n),
			logging.String(logging.FieldEventType, "runs_interrupted"),
		)
	}
	if cfg.Logging.RetentionDays > 0 {
		cutoff := time.Now().AddDate(0, 0, -cfg.Logging.RetentionDays)
		if n, err := store.Prune(signalCtx, cutoff); err != nil {
			logger.Warn("failed to prune run history", logging.Error(err))
		} else if n > 0 {
			logger.Info("pruned run history", logging.Int64("count", n))
		}
	}

	runner, err := BuildPipeline(cfg, logger)
	if err != nil {
		return fmt.Errorf("build pipeline: %w", err)
	}
	manager := workflow.NewManager(runner, logger,
		workflow.WithHistory(store),
		workflow.WithNotifier(notifications.NewService(cfg)),
	)

	d, err := daemon.New(cfg, manager, store, logger)
	if err != nil {
		return fmt.Errorf("create daemon: %w", err)
	}

	err = d.Run(signalCtx)
	logger.Info("dubshorts daemon shutting down")
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func ensureCurrentLogPointer(current, target string) error {
	if current == "" || target == "" {
		return nil
	}
	if err := os.Remove(current); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove existing log pointer: %w", err)
	}
	if err := os.Symlink(target, current); err == nil {
		return nil
	}
	if err := os.Link(target, current); err != nil {
		return fmt.Errorf("link log pointer: %w", err)
	}
	return nil
}

func writePIDFile(path string) error {
	if path == "" {
		return nil
	}
	value := strconv.Itoa(os.Getpid()) + "\n"
	return os.WriteFile(path, []byte(value), 0o644)
}

func logDependencySnapshot(ctx context.Context, logger *slog.Logger, cfg *config.Config) {
	if logger == nil || cfg == nil {
		return
	}
	attrs := []logging.Attr{logging.String(logging.FieldEventType, "dependency_snapshot")}
	statuses := preflight.CheckSystemDeps(ctx, cfg)
	for _, status := range statuses {
		attrs = append(attrs,
			logging.Bool(status.Name+"_available", status.Available),
			logging.String(status.Name+"_binary", status.Command),
		)
	}
	logger.Info("dependency snapshot", logging.Args(attrs...)...)
	if missing := deps.MissingRequired(statuses); len(missing) > 0 {
		logging.WarnWithContext(logger, "required binaries missing", "dependency_missing",
			logging.Any("missing", missing),
			logging.String(logging.FieldImpact, "runs fail at the stage that needs the missing tool"),
			logging.String(logging.FieldErrorHint, "install the tools or set [tools] paths in config.toml"),
		)
	}

	for _, result := range preflight.Failed(preflight.RunAll(ctx, cfg)) {
		logging.WarnWithContext(logger, "preflight check failed", "preflight_failed",
			logging.String("check", result.Name),
			logging.String("detail", result.Detail),
			logging.String(logging.FieldImpact, "scheduled runs may fail until this is fixed"),
		)
	}
}
