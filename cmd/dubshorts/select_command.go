package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"dubshorts/internal/selector"
)

type selectionPreview struct {
	URL       string `json:"url,omitempty"`
	Index     int    `json:"index"`
	Found     bool   `json:"found"`
	Pending   int    `json:"pending"`
	Entries   int    `json:"entries"`
	Processed int    `json:"processed"`
}

func newSelectCommand(ctx *commandContext) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "select",
		Short: "Show which backlog entry the next run would pick, without running it",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			backlog, err := selector.LoadBacklog(cfg.Paths.BacklogFile)
			if err != nil {
				return err
			}
			processed := selector.NewProcessedStore(cfg.Paths.ProcessedFile, nil).Load()
			opts := selector.Options{URLKeys: cfg.Selection.URLKeys, Marker: cfg.Selection.URLMarker}

			item, found := selector.SelectNext(backlog, processed, opts)
			preview := selectionPreview{
				URL:       item.URL,
				Index:     item.Index,
				Found:     found,
				Pending:   selector.Pending(backlog, processed, opts),
				Entries:   len(backlog),
				Processed: len(processed),
			}
			if !found {
				preview.Index = -1
			}
			if jsonOutput {
				return writeJSON(cmd, preview)
			}

			out := cmd.OutOrStdout()
			if !found {
				fmt.Fprintln(out, "No unprocessed shorts in backlog")
				return nil
			}
			fmt.Fprintf(out, "Next: %s (backlog entry %d)\n", preview.URL, preview.Index+1)
			fmt.Fprintf(out, "Pending: %d of %d entries (%d processed)\n", preview.Pending, preview.Entries, preview.Processed)
			return nil
		},
	}
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Print the selection as JSON")
	return cmd
}
