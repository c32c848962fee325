package main

import (
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"dubshorts/internal/publish"
)

func newSlotsCommand(ctx *commandContext) *cobra.Command {
	var count int

	cmd := &cobra.Command{
		Use:   "slots",
		Short: "Preview the publish slots the next uploads would receive",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if count <= 0 {
				return fmt.Errorf("--count must be positive")
			}
			strategy, err := publish.StrategyFromConfig(cfg.Publish)
			if err != nil {
				return err
			}

			slots := publish.Preview(strategy, time.Now(), count)
			rows := make([][]string, 0, len(slots))
			for i, slot := range slots {
				rows = append(rows, []string{
					strconv.Itoa(i + 1),
					slot.ScheduledTime.Local().Format("Mon 2006-01-02 15:04"),
					slot.Parity.String(),
					slot.ScheduledTime.UTC().Format(time.RFC3339),
				})
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Strategy: %s\n", strategy.Name())
			fmt.Fprintln(out, renderTable(
				[]string{"#", "Local time", "Slot", "publishAt (UTC)"},
				rows,
				[]columnAlignment{alignRight, alignLeft, alignLeft, alignLeft},
			))
			return nil
		},
	}
	cmd.Flags().IntVarP(&count, "count", "n", 4, "Number of slots to preview")
	return cmd
}
