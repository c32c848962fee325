package preflight

import (
	"context"
	"strings"

	"dubshorts/internal/config"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	Detail string
}

// RunAll executes all applicable preflight checks for the given config.
func RunAll(ctx context.Context, cfg *config.Config) []Result {
	if cfg == nil {
		return nil
	}

	results := []Result{
		CheckDirectoryAccess("Work directory", cfg.Paths.WorkDir),
		CheckDirectoryAccess("State directory", cfg.Paths.StateDir),
		CheckDirectoryAccess("Log directory", cfg.Paths.LogDir),
		CheckFileReadable("Backlog", cfg.Paths.BacklogFile),
		CheckFileReadable("Background track", cfg.Paths.BackgroundTrack),
		CheckPublishCredentials(cfg.Publish),
	}

	if endpoint := strings.TrimSpace(cfg.Translation.Endpoint); endpoint != "" {
		results = append(results, CheckEndpoint(ctx, "Translate endpoint", endpoint))
	}
	if endpoint := strings.TrimSpace(cfg.Publish.UploadURL); endpoint != "" {
		results = append(results, CheckEndpoint(ctx, "Upload endpoint", endpoint))
	}

	return results
}

// Failed filters results down to the checks that did not pass.
func Failed(results []Result) []Result {
	var out []Result
	for _, result := range results {
		if !result.Passed {
			out = append(out, result)
		}
	}
	return out
}
