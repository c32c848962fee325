package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"dubshorts/internal/api"
	"dubshorts/internal/history"
)

func newHistoryCommand(ctx *commandContext) *cobra.Command {
	var limit int
	var states []string
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recent runs, newest first",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			store, err := history.Open(cfg)
			if err != nil {
				return fmt.Errorf("open run history: %w", err)
			}
			defer store.Close()

			runs, err := store.List(cmd.Context(), history.Filter{States: states, Limit: limit})
			if err != nil {
				return err
			}
			if jsonOutput {
				return writeJSON(cmd, api.RunsResponse{Runs: api.FromHistoryRuns(runs)})
			}
			out := cmd.OutOrStdout()
			if len(runs) == 0 {
				fmt.Fprintln(out, "No runs recorded")
				return nil
			}

			rows := make([][]string, 0, len(runs))
			for _, run := range runs {
				result := run.VideoID
				if result == "" {
					result = run.Message
				}
				rows = append(rows, []string{
					shortID(run.RunID),
					formatWhen(run.StartedAt),
					run.Source,
					run.State,
					orDash(run.URL),
					orDash(result),
					formatDuration(run.Duration()),
				})
			}
			fmt.Fprintln(out, renderTable(
				[]string{"Run", "Started", "Source", "State", "URL", "Result", "Duration"},
				rows,
				[]columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft, alignLeft, alignLeft, alignRight},
			))
			return nil
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum number of runs to show")
	cmd.Flags().StringSliceVar(&states, "state", nil, "Only show runs in these states (succeeded, failed, running, interrupted)")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Print runs as JSON")
	return cmd
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
