package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"dubshorts/internal/daemonrun"
	"dubshorts/internal/logging"
	"dubshorts/internal/publish"
)

var sidecarExtensions = []string{".json", ".yaml", ".yml"}

func newPublishCommand(ctx *commandContext) *cobra.Command {
	var showProgress bool

	cmd := &cobra.Command{
		Use:   "publish FILE...",
		Short: "Upload finished videos, assigning consecutive publish slots",
		Long: "Upload one or more finished videos. Each file takes the next slot after the previous one; " +
			"metadata comes from a sidecar next to the file (name.json, name.yaml or name.yml) or the configured defaults.",
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			for _, path := range args {
				if _, err := os.Stat(path); err != nil {
					return fmt.Errorf("publish %s: %w", path, err)
				}
			}
			logger, err := ctx.logger(cfg)
			if err != nil {
				return fmt.Errorf("init logger: %w", err)
			}

			out := cmd.OutOrStdout()
			var opts []publish.Option
			if showProgress {
				opts = append(opts, publish.WithProgress(func(percent int) {
					fmt.Fprintf(out, "  %3d%%\n", percent)
				}))
			}
			uploader, err := daemonrun.NewUploader(cfg, logger, opts...)
			if err != nil {
				return err
			}

			defaults := publish.DefaultMetadata(cfg.Publish)
			for i, path := range args {
				sidecar := findSidecar(path)
				meta, usedDefaults, err := publish.LoadMetadata(sidecar, defaults, cfg.Publish.TitleMarker)
				if err != nil {
					return err
				}
				if usedDefaults {
					logger.Info("no metadata sidecar, using defaults", logging.String("file", path))
				}

				size := "unknown size"
				if info, err := os.Stat(path); err == nil {
					size = humanize.Bytes(uint64(info.Size()))
				}
				fmt.Fprintf(out, "Uploading %s (%s) as %q\n", filepath.Base(path), size, meta.Title)

				result, err := uploader.Publish(cmd.Context(), path, meta, i)
				if err != nil {
					return fmt.Errorf("publish %s: %w", path, err)
				}
				fmt.Fprintf(out, "Published %s as %s, scheduled %s [%s]\n",
					filepath.Base(path), result.VideoID, formatWhen(result.ScheduledTime), result.Slot.Parity)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&showProgress, "progress", false, "Print upload progress")
	return cmd
}

// findSidecar returns the first metadata file next to path, or "" when none exists.
func findSidecar(path string) string {
	base := strings.TrimSuffix(path, filepath.Ext(path))
	for _, ext := range sidecarExtensions {
		candidate := base + ext
		if candidate == path {
			continue
		}
		if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
			return candidate
		}
	}
	return ""
}
