package ytdlp

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"sync"

	"dubshorts/internal/logging"
	"dubshorts/internal/services"
	"dubshorts/internal/transcript"
)

// Output file names inside the work directory.
const (
	VideoFile      = "yt_video.mp4"
	InfoFile       = "yt_video.info.json"
	MetadataFile   = "yt_metadata.json"
	TranscriptFile = "yt_transcript.txt"
	outputTemplate = "yt_video.%(ext)s"
	subtitleGlob   = "yt_video.en*.*"
)

var downloadProgress = regexp.MustCompile(`^\[download\]\s+([\d.]+)%`)

// Metadata is the normalized description of a fetched short.
type Metadata struct {
	Title         string   `json:"title"`
	Description   string   `json:"description"`
	Tags          []string `json:"tags"`
	URL           string   `json:"url"`
	HasTranscript bool     `json:"has_transcript"`
}

// Result lists the artifacts of one fetch.
type Result struct {
	VideoPath      string
	MetadataPath   string
	TranscriptPath string
	Transcript     string
	Metadata       Metadata
}

// CommandFunc runs yt-dlp, feeding every output line to onLine.
type CommandFunc func(ctx context.Context, binary string, args []string, onLine func(line string)) error

// Client wraps the yt-dlp binary.
type Client struct {
	binary string
	run    CommandFunc
	logger *slog.Logger
}

// Option customizes the client.
type Option func(*Client)

// WithCommand overrides how yt-dlp is executed (useful for tests).
func WithCommand(run CommandFunc) Option {
	return func(c *Client) {
		if run != nil {
			c.run = run
		}
	}
}

// New constructs a client for binary, defaulting to "yt-dlp".
func New(binary string, logger *slog.Logger, opts ...Option) *Client {
	if strings.TrimSpace(binary) == "" {
		binary = "yt-dlp"
	}
	c := &Client{
		binary: binary,
		run:    runCommand,
		logger: logging.NewComponentLogger(logger, "ytdlp"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BuildArgs returns the yt-dlp invocation for url into dir.
func BuildArgs(url, dir string) []string {
	return []string{
		"--no-playlist",
		"--newline",
		"--force-overwrites",
		"-f", "bv*[ext=mp4]+ba[ext=m4a]/b[ext=mp4]/bv*+ba/b",
		"--merge-output-format", "mp4",
		"-P", dir,
		"-o", outputTemplate,
		"--write-info-json",
		"--write-subs",
		"--write-auto-subs",
		"--sub-langs", "en",
		"--sub-format", "json3/vtt/best",
		url,
	}
}

// Fetch downloads url into dir and writes the normalized artifacts. A missing
// transcript is not an error.
func (c *Client) Fetch(ctx context.Context, url, dir string) (Result, error) {
	url = strings.TrimSpace(url)
	if url == "" {
		return Result{}, services.Wrap(services.ErrMediaFetch, "fetching", "validate", "url is required", nil)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return Result{}, services.Wrap(services.ErrMediaFetch, "fetching", "prepare work dir", dir, err)
	}
	if err := clearPrevious(dir); err != nil {
		return Result{}, services.Wrap(services.ErrMediaFetch, "fetching", "clear previous artifacts", dir, err)
	}

	logger := logging.WithContext(ctx, c.logger)
	sampler := logging.NewProgressSampler(25)
	onLine := func(line string) {
		if m := downloadProgress.FindStringSubmatch(line); m != nil {
			if percent, err := strconv.ParseFloat(m[1], 64); err == nil && sampler.ShouldLog(percent, "download") {
				logger.Info("download progress", logging.Float64("percent", percent))
			}
			return
		}
		logger.Debug("yt-dlp output", logging.String("line", line))
	}

	logger.Info("fetching source", logging.String(logging.FieldURL, url))
	if err := c.run(ctx, c.binary, BuildArgs(url, dir), onLine); err != nil {
		return Result{}, services.Wrap(services.ErrMediaFetch, "fetching", "run yt-dlp", url, err)
	}

	result := Result{
		VideoPath:    filepath.Join(dir, VideoFile),
		MetadataPath: filepath.Join(dir, MetadataFile),
	}
	if _, err := os.Stat(result.VideoPath); err != nil {
		return Result{}, services.Wrap(services.ErrMediaFetch, "fetching", "locate video", "yt-dlp produced no "+VideoFile, err)
	}

	info, err := readInfo(filepath.Join(dir, InfoFile))
	if err != nil {
		return Result{}, services.Wrap(services.ErrMediaFetch, "fetching", "read info json", "", err)
	}
	meta := Metadata{
		Title:       strings.TrimSpace(info.Title),
		Description: strings.TrimSpace(info.Description),
		Tags:        info.Tags,
		URL:         url,
	}
	if meta.Tags == nil {
		meta.Tags = []string{}
	}

	text, err := readSubtitles(dir)
	if err != nil {
		logging.WarnWithContext(logger, "subtitle read failed; continuing without transcript", "transcript_unavailable",
			logging.Error(err),
			logging.String(logging.FieldImpact, "narration falls back to title and description"),
		)
	}
	if text != "" {
		result.TranscriptPath = filepath.Join(dir, TranscriptFile)
		if err := os.WriteFile(result.TranscriptPath, []byte(text), 0o644); err != nil {
			return Result{}, services.Wrap(services.ErrMediaFetch, "fetching", "write transcript", "", err)
		}
		meta.HasTranscript = true
	} else {
		logger.Info("no transcript available", logging.String(logging.FieldURL, url))
	}
	result.Transcript = text
	result.Metadata = meta

	encoded, err := json.MarshalIndent(meta, "", "    ")
	if err != nil {
		return Result{}, services.Wrap(services.ErrMediaFetch, "fetching", "encode metadata", "", err)
	}
	if err := os.WriteFile(result.MetadataPath, encoded, 0o644); err != nil {
		return Result{}, services.Wrap(services.ErrMediaFetch, "fetching", "write metadata", "", err)
	}
	return result, nil
}

type infoJSON struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Tags        []string `json:"tags"`
}

func readInfo(path string) (infoJSON, error) {
	var info infoJSON
	data, err := os.ReadFile(path)
	if err != nil {
		return info, err
	}
	if err := json.Unmarshal(data, &info); err != nil {
		return info, fmt.Errorf("parse %s: %w", filepath.Base(path), err)
	}
	return info, nil
}

// readSubtitles returns the cleaned text of the first English subtitle file,
// preferring json3 over vtt.
func readSubtitles(dir string) (string, error) {
	matches, err := filepath.Glob(filepath.Join(dir, subtitleGlob))
	if err != nil {
		return "", err
	}
	var best string
	for _, match := range matches {
		switch filepath.Ext(match) {
		case ".json3":
			best = match
		case ".vtt", ".srv3", ".srt":
			if best == "" {
				best = match
			}
		}
		if filepath.Ext(best) == ".json3" {
			break
		}
	}
	if best == "" {
		return "", nil
	}
	data, err := os.ReadFile(best)
	if err != nil {
		return "", err
	}
	return transcript.Clean(string(data)), nil
}

func clearPrevious(dir string) error {
	patterns := []string{VideoFile, InfoFile, MetadataFile, TranscriptFile, subtitleGlob, "yt_video.*.part"}
	for _, pattern := range patterns {
		matches, err := filepath.Glob(filepath.Join(dir, pattern))
		if err != nil {
			return err
		}
		for _, match := range matches {
			if err := os.Remove(match); err != nil && !os.IsNotExist(err) {
				return err
			}
		}
	}
	return nil
}

func runCommand(ctx context.Context, binary string, args []string, onLine func(string)) error {
	cmd := exec.CommandContext(ctx, binary, args...) //nolint:gosec

	stdoutPipe, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("setup stdout pipe: %w", err)
	}
	stderrPipe, err := cmd.StderrPipe()
	if err != nil {
		return fmt.Errorf("setup stderr pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start yt-dlp: %w", err)
	}

	var errBuf strings.Builder
	var mu sync.Mutex
	var wg sync.WaitGroup
	read := func(r io.Reader, keep bool) {
		defer wg.Done()
		scanner := bufio.NewScanner(r)
		scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
		scanner.Split(splitByNewlineOrCR)
		for scanner.Scan() {
			line := scanner.Text()
			mu.Lock()
			if keep && errBuf.Len() < 8192 {
				errBuf.WriteString(line + "\n")
			}
			if onLine != nil {
				onLine(line)
			}
			mu.Unlock()
		}
	}
	wg.Add(2)
	go read(stdoutPipe, false)
	go read(stderrPipe, true)
	wg.Wait()

	if err := cmd.Wait(); err != nil {
		return fmt.Errorf("yt-dlp failed: %w: %s", err, strings.TrimSpace(errBuf.String()))
	}
	return nil
}

func splitByNewlineOrCR(data []byte, atEOF bool) (advance int, token []byte, err error) {
	for i := 0; i < len(data); i++ {
		if data[i] == '\n' || data[i] == '\r' {
			if i == 0 {
				return 1, nil, nil
			}
			return i + 1, data[:i], nil
		}
	}
	if atEOF && len(data) > 0 {
		return len(data), data, nil
	}
	return 0, nil, nil
}
