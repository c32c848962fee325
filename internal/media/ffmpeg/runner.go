package ffmpeg

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
)

// Runner executes ffmpeg with the provided arguments (without the binary
// name) and returns captured stderr.
type Runner interface {
	Run(ctx context.Context, args []string) (stderr string, err error)
}

// ExecRunner runs the configured ffmpeg binary.
type ExecRunner struct {
	Binary string
}

// NewExecRunner returns a runner for binary, defaulting to "ffmpeg".
func NewExecRunner(binary string) *ExecRunner {
	if strings.TrimSpace(binary) == "" {
		binary = "ffmpeg"
	}
	return &ExecRunner{Binary: binary}
}

// Run executes ffmpeg and wraps failures with the trailing stderr lines.
func (r *ExecRunner) Run(ctx context.Context, args []string) (string, error) {
	cmd := exec.CommandContext(ctx, r.Binary, args...) //nolint:gosec
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	err := cmd.Run()
	out := stderr.String()
	if err != nil {
		return out, fmt.Errorf("ffmpeg: %w: %s", err, tail(out, 5))
	}
	return out, nil
}

// Preamble returns the flags every invocation starts with. Analyze passes
// (volumedetect) need info-level logging to see the filter report.
func Preamble(analyze bool) []string {
	level := "error"
	if analyze {
		level = "info"
	}
	return []string{"-hide_banner", "-nostdin", "-y", "-loglevel", level}
}

func tail(output string, lines int) string {
	trimmed := strings.TrimSpace(output)
	if trimmed == "" {
		return "(no stderr)"
	}
	parts := strings.Split(trimmed, "\n")
	if len(parts) > lines {
		parts = parts[len(parts)-lines:]
	}
	return strings.Join(parts, " | ")
}
