// Package edgetts synthesizes narration with the edge-tts command line tool.
package edgetts

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"dubshorts/internal/logging"
	"dubshorts/internal/services"
)

// CommandFunc runs the synthesis binary and returns its combined output.
type CommandFunc func(ctx context.Context, binary string, args []string) ([]byte, error)

// Client wraps the edge-tts binary for a single voice.
type Client struct {
	binary string
	voice  string
	run    CommandFunc
	logger *slog.Logger
}

// Option customizes the client.
type Option func(*Client)

// WithCommand overrides how edge-tts is executed (useful for tests).
func WithCommand(run CommandFunc) Option {
	return func(c *Client) {
		if run != nil {
			c.run = run
		}
	}
}

// New constructs a client. binary defaults to "edge-tts".
func New(binary, voice string, logger *slog.Logger, opts ...Option) *Client {
	if strings.TrimSpace(binary) == "" {
		binary = "edge-tts"
	}
	c := &Client{
		binary: binary,
		voice:  strings.TrimSpace(voice),
		run:    runCommand,
		logger: logging.NewComponentLogger(logger, "edgetts"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Voice reports the configured voice name.
func (c *Client) Voice() string { return c.voice }

// BuildArgs returns the edge-tts invocation reading text from textPath.
func BuildArgs(voice, textPath, outPath string) []string {
	return []string{"--voice", voice, "--file", textPath, "--write-media", outPath}
}

// Synthesize renders text to an audio file at outPath. The text is passed via
// a temporary file so long narrations never hit argv limits.
func (c *Client) Synthesize(ctx context.Context, text, outPath string) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return services.Wrap(services.ErrSynthesis, "translating", "synthesize", "narration text is empty", nil)
	}
	if c.voice == "" {
		return services.Wrap(services.ErrConfiguration, "translating", "synthesize", "speech.voice is not set", nil)
	}
	if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
		return services.Wrap(services.ErrSynthesis, "translating", "prepare output dir", outPath, err)
	}

	textFile, err := os.CreateTemp(filepath.Dir(outPath), "narration-*.txt")
	if err != nil {
		return services.Wrap(services.ErrSynthesis, "translating", "write narration text", "", err)
	}
	textPath := textFile.Name()
	defer func() { _ = os.Remove(textPath) }()
	if _, err := textFile.WriteString(text); err != nil {
		_ = textFile.Close()
		return services.Wrap(services.ErrSynthesis, "translating", "write narration text", "", err)
	}
	if err := textFile.Close(); err != nil {
		return services.Wrap(services.ErrSynthesis, "translating", "write narration text", "", err)
	}

	logger := logging.WithContext(ctx, c.logger)
	logger.Info("synthesizing narration",
		logging.String("voice", c.voice),
		logging.Int("chars", utf8.RuneCountInString(text)),
	)
	output, err := c.run(ctx, c.binary, BuildArgs(c.voice, textPath, outPath))
	if err != nil {
		_ = os.Remove(outPath)
		return services.Wrap(services.ErrSynthesis, "translating", "run edge-tts", strings.TrimSpace(string(output)), err)
	}
	info, err := os.Stat(outPath)
	if err != nil {
		return services.Wrap(services.ErrSynthesis, "translating", "locate narration", "edge-tts produced no audio", err)
	}
	if info.Size() == 0 {
		_ = os.Remove(outPath)
		return services.Wrap(services.ErrSynthesis, "translating", "locate narration", "edge-tts produced empty audio", nil)
	}
	logger.Debug("narration synthesized", logging.String("path", outPath), logging.Int64("bytes", info.Size()))
	return nil
}

func runCommand(ctx context.Context, binary string, args []string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, binary, args...) //nolint:gosec
	var out bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &out
	if err := cmd.Run(); err != nil {
		return out.Bytes(), fmt.Errorf("edge-tts: %w", err)
	}
	return out.Bytes(), nil
}
