package main

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"dubshorts/internal/api"
	"dubshorts/internal/config"
	"dubshorts/internal/history"
	"dubshorts/internal/language"
	"dubshorts/internal/pipeline"
	"dubshorts/internal/preflight"
	"dubshorts/internal/publish"
	"dubshorts/internal/selector"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show daemon, backlog, schedule, and dependency status",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			colorize := shouldColorize(out)
			now := time.Now()

			var lines []string
			lines = append(lines, renderSectionHeader("Daemon", colorize)...)
			remote, remoteErr := ctx.apiClient(cfg).Status(cmd.Context())
			lines = append(lines, daemonLines(remote, remoteErr, colorize)...)

			lines = append(lines, "")
			lines = append(lines, renderSectionHeader("Backlog", colorize)...)
			lines = append(lines, backlogLines(cfg, colorize)...)

			lines = append(lines, "")
			lines = append(lines, renderSectionHeader("Schedule", colorize)...)
			lines = append(lines, scheduleLines(cfg, remote, remoteErr, now, colorize)...)

			lines = append(lines, "")
			lines = append(lines, renderSectionHeader("History", colorize)...)
			lines = append(lines, historyLines(cmd, cfg, colorize)...)

			lines = append(lines, "")
			lines = append(lines, renderSectionHeader("Dependencies", colorize)...)
			for _, dep := range preflight.CheckSystemDeps(cmd.Context(), cfg) {
				kind, message := statusOK, dep.Command
				if !dep.Available {
					kind, message = statusError, dep.Detail
					if dep.Optional {
						kind = statusWarn
					}
				}
				lines = append(lines, renderStatusLine(dep.Name, kind, message, colorize))
			}

			lines = append(lines, "")
			lines = append(lines, renderSectionHeader("Preflight", colorize)...)
			for _, result := range preflight.RunAll(cmd.Context(), cfg) {
				kind := statusOK
				if !result.Passed {
					kind = statusWarn
				}
				lines = append(lines, renderStatusLine(result.Name, kind, result.Detail, colorize))
			}

			fmt.Fprintln(out, strings.Join(lines, "\n"))
			return nil
		},
	}
}

func daemonLines(remote api.StatusResponse, remoteErr error, colorize bool) []string {
	if remoteErr != nil {
		if errors.Is(remoteErr, api.ErrDaemonUnavailable) {
			return []string{renderStatusLine("Daemon", statusWarn, "not running", colorize)}
		}
		return []string{renderStatusLine("Daemon", statusError, remoteErr.Error(), colorize)}
	}

	lines := []string{renderStatusLine("Daemon", statusOK, "running", colorize)}
	if remote.Running {
		detail := fmt.Sprintf("%s (%s) since %s", remote.StageLabel, orDash(remote.URL), formatWhen(api.ParseTime(remote.StartedAt)))
		lines = append(lines, renderStatusLine("Active run", statusInfo, detail, colorize))
	} else {
		lines = append(lines, renderStatusLine("Active run", statusInfo, "idle", colorize))
	}
	if last := remote.LastOutcome; last != nil {
		kind := statusOK
		if last.State == string(pipeline.StateFailed) {
			kind = statusError
		}
		lines = append(lines, renderStatusLine("Last outcome", kind, last.Message, colorize))
	}
	return lines
}

func backlogLines(cfg *config.Config, colorize bool) []string {
	backlog, err := selector.LoadBacklog(cfg.Paths.BacklogFile)
	if err != nil {
		return []string{renderStatusLine("Backlog", statusError, err.Error(), colorize)}
	}
	store := selector.NewProcessedStore(cfg.Paths.ProcessedFile, nil)
	processed := store.Load()
	opts := selector.Options{URLKeys: cfg.Selection.URLKeys, Marker: cfg.Selection.URLMarker}

	pending := selector.Pending(backlog, processed, opts)
	lines := []string{
		renderStatusLine("Entries", statusInfo, strconv.Itoa(len(backlog)), colorize),
		renderStatusLine("Processed", statusInfo, strconv.Itoa(len(processed)), colorize),
	}
	kind := statusOK
	if pending == 0 {
		kind = statusWarn
	}
	lines = append(lines, renderStatusLine("Pending", kind, strconv.Itoa(pending), colorize))
	if item, ok := selector.SelectNext(backlog, processed, opts); ok {
		lines = append(lines, renderStatusLine("Next", statusInfo, item.URL, colorize))
	}
	dubbing := fmt.Sprintf("%s to %s, voice %s",
		language.DisplayName(cfg.Translation.SourceLanguage),
		language.DisplayName(cfg.Translation.TargetLanguage),
		cfg.Speech.Voice)
	return append(lines, renderStatusLine("Dubbing", statusInfo, dubbing, colorize))
}

func scheduleLines(cfg *config.Config, remote api.StatusResponse, remoteErr error, now time.Time, colorize bool) []string {
	var lines []string
	switch {
	case remoteErr == nil && remote.NextScheduled != "":
		lines = append(lines, renderStatusLine("Next run", statusInfo, formatWhen(api.ParseTime(remote.NextScheduled)), colorize))
	case strings.TrimSpace(cfg.Schedule.DailyCron) == "":
		lines = append(lines, renderStatusLine("Next run", statusInfo, "no daily schedule configured", colorize))
	default:
		schedule, err := config.CronParser.Parse(cfg.Schedule.DailyCron)
		if err != nil {
			lines = append(lines, renderStatusLine("Next run", statusError, err.Error(), colorize))
		} else {
			detail := fmt.Sprintf("%s if the daemon is running", formatWhen(schedule.Next(now)))
			lines = append(lines, renderStatusLine("Next run", statusInfo, detail, colorize))
		}
	}

	lines = append(lines, renderStatusLine("Backlog watcher", statusInfo, yesNo(cfg.Schedule.WatchBacklog), colorize))

	strategy, err := publish.StrategyFromConfig(cfg.Publish)
	if err != nil {
		return append(lines, renderStatusLine("Next slot", statusError, err.Error(), colorize))
	}
	slot := strategy.Next(now, 0)
	detail := fmt.Sprintf("%s [%s]", formatWhen(slot.ScheduledTime), strategy.Name())
	return append(lines, renderStatusLine("Next slot", statusInfo, detail, colorize))
}

func historyLines(cmd *cobra.Command, cfg *config.Config, colorize bool) []string {
	store, err := history.Open(cfg)
	if err != nil {
		return []string{renderStatusLine("History", statusError, err.Error(), colorize)}
	}
	defer store.Close()

	stats, err := store.Stats(cmd.Context())
	if err != nil {
		return []string{renderStatusLine("History", statusError, err.Error(), colorize)}
	}
	if len(stats) == 0 {
		return []string{renderStatusLine("Runs", statusInfo, "none recorded", colorize)}
	}
	states := make([]string, 0, len(stats))
	for state := range stats {
		states = append(states, state)
	}
	sort.Strings(states)
	parts := make([]string, 0, len(states))
	for _, state := range states {
		parts = append(parts, fmt.Sprintf("%s=%d", state, stats[state]))
	}
	return []string{renderStatusLine("Runs", statusInfo, strings.Join(parts, " "), colorize)}
}
