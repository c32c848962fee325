package main

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofrs/flock"
	"github.com/spf13/cobra"

	"dubshorts/internal/api"
	"dubshorts/internal/config"
	"dubshorts/internal/daemonrun"
	"dubshorts/internal/history"
	"dubshorts/internal/logging"
	"dubshorts/internal/notifications"
	"dubshorts/internal/pipeline"
	"dubshorts/internal/workflow"
)

const remotePollInterval = 2 * time.Second

func newRunCommand(ctx *commandContext) *cobra.Command {
	var wait bool
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Process the next unprocessed short now",
		Long: `Process the next unprocessed short in the backlog.

When no daemon is running, the run executes in this process and the command
returns once it finishes. When a daemon holds the instance lock, the run is
requested through its HTTP API instead; pass --wait to follow it to the end.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			lock := flock.New(cfg.LockPath())
			locked, err := lock.TryLock()
			if err != nil {
				return fmt.Errorf("acquire run lock: %w", err)
			}
			if !locked {
				return runViaDaemon(cmd, ctx, cfg, wait, jsonOutput)
			}
			defer lock.Unlock() //nolint:errcheck
			return runLocally(cmd, ctx, cfg, jsonOutput)
		},
	}
	cmd.Flags().BoolVar(&wait, "wait", false, "When delegating to the daemon, wait for the run to finish")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Print the outcome as JSON")
	return cmd
}

func runLocally(cmd *cobra.Command, ctx *commandContext, cfg *config.Config, jsonOutput bool) error {
	signalCtx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	logger, err := ctx.logger(cfg)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}

	store, err := history.Open(cfg)
	if err != nil {
		return fmt.Errorf("open run history: %w", err)
	}
	defer store.Close()
	// Holding the instance lock means no other process owns a running row.
	if _, err := store.MarkInterrupted(signalCtx, time.Now()); err != nil {
		logger.Warn("failed to mark interrupted runs", logging.Error(err))
	}

	runner, err := daemonrun.BuildPipeline(cfg, logger)
	if err != nil {
		return err
	}
	manager := workflow.NewManager(runner, logger,
		workflow.WithHistory(store),
		workflow.WithNotifier(notifications.NewService(cfg)),
	)
	if err := manager.Start(signalCtx); err != nil {
		return err
	}
	defer manager.Stop()

	result := manager.Trigger(signalCtx, workflow.SourceCLI)
	if !result.Started {
		return errors.New(result.Reason)
	}
	// The run observes signalCtx, so an interrupt ends it as a cancelled failure.
	_ = manager.Wait(context.WithoutCancel(signalCtx))

	last := manager.Status().LastOutcome
	if last == nil {
		return errors.New("run finished without an outcome")
	}
	return reportOutcome(cmd, api.FromOutcome(*last), jsonOutput)
}

func runViaDaemon(cmd *cobra.Command, ctx *commandContext, cfg *config.Config, wait, jsonOutput bool) error {
	client := ctx.apiClient(cfg)
	resp, err := client.RunNow(cmd.Context())
	if err != nil {
		if errors.Is(err, api.ErrDaemonUnavailable) {
			return fmt.Errorf("another dubshorts process holds %s and its API is unreachable: %w", cfg.LockPath(), err)
		}
		return err
	}
	if !resp.Started() {
		if jsonOutput {
			_ = writeJSON(cmd, resp)
		}
		return errors.New(resp.Message)
	}

	out := cmd.OutOrStdout()
	if !wait {
		if jsonOutput {
			return writeJSON(cmd, resp)
		}
		fmt.Fprintf(out, "%s (run %s)\n", resp.Message, resp.RunID)
		return nil
	}
	if !jsonOutput {
		fmt.Fprintf(out, "%s (run %s); waiting for completion\n", resp.Message, resp.RunID)
	}

	ticker := time.NewTicker(remotePollInterval)
	defer ticker.Stop()
	for {
		status, err := client.Status(cmd.Context())
		if err != nil {
			return err
		}
		if last := status.LastOutcome; last != nil && last.RunID == resp.RunID && status.RunID != resp.RunID {
			return reportOutcome(cmd, *last, jsonOutput)
		}
		select {
		case <-cmd.Context().Done():
			return cmd.Context().Err()
		case <-ticker.C:
		}
	}
}

func reportOutcome(cmd *cobra.Command, outcome api.OutcomeSummary, jsonOutput bool) error {
	if jsonOutput {
		if err := writeJSON(cmd, outcome); err != nil {
			return err
		}
	} else {
		fmt.Fprintln(cmd.OutOrStdout(), outcome.Message)
	}
	if outcome.State == string(pipeline.StateFailed) {
		return fmt.Errorf("run %s failed", outcome.RunID)
	}
	return nil
}

func newCancelCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "cancel",
		Short: "Abort the run in progress on the daemon",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			cancelled, err := ctx.apiClient(cfg).Cancel(cmd.Context())
			if err != nil {
				return err
			}
			if !cancelled {
				fmt.Fprintln(cmd.OutOrStdout(), "No run in progress")
				return nil
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Cancellation requested")
			return nil
		},
	}
}
