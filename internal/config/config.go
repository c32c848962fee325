package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains file, directory, and bind address configuration.
type Paths struct {
	WorkDir         string `toml:"work_dir"`
	LogDir          string `toml:"log_dir"`
	StateDir        string `toml:"state_dir"`
	BacklogFile     string `toml:"backlog_file"`
	ProcessedFile   string `toml:"processed_file"`
	BackgroundTrack string `toml:"background_track"`
	APIBind         string `toml:"api_bind"`
	APIToken        string `toml:"api_token"`
}

// Schedule controls the recurring trigger surfaces.
type Schedule struct {
	DailyCron    string `toml:"daily_cron"`
	WatchBacklog bool   `toml:"watch_backlog"`
}

// Selection controls how the next backlog entry is chosen and recorded.
type Selection struct {
	URLKeys         []string `toml:"url_keys"`
	URLMarker       string   `toml:"url_marker"`
	ProcessedPolicy string   `toml:"processed_policy"`
}

// Translation contains translation endpoint settings.
type Translation struct {
	Endpoint       string `toml:"endpoint"`
	SourceLanguage string `toml:"source_language"`
	TargetLanguage string `toml:"target_language"`
	MaxChars       int    `toml:"max_chars"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
	RetryAttempts  int    `toml:"retry_attempts"`
}

// Speech contains narration synthesis settings.
type Speech struct {
	Voice string `toml:"voice"`
}

// Tone contains the narration tone adjustment applied before mixing.
type Tone struct {
	Speed        float64 `toml:"speed"`
	VolumeChange float64 `toml:"volume_change"`
	Normalize    bool    `toml:"normalize"`
	FadeIn       int     `toml:"fade_in"`
	FadeOut      int     `toml:"fade_out"`
}

// Mix contains audio mix levels and output encoding settings.
type Mix struct {
	VoiceVolume      float64 `toml:"voice_volume"`
	BackgroundVolume float64 `toml:"background_volume"`
	VideoCodec       string  `toml:"video_codec"`
	AudioCodec       string  `toml:"audio_codec"`
}

// Publish contains upload, scheduling, and metadata defaults.
type Publish struct {
	Strategy             string   `toml:"strategy"`
	Morning              string   `toml:"morning"`
	Evening              string   `toml:"evening"`
	DailyAt              string   `toml:"daily_at"`
	ChunkSizeMiB         int      `toml:"chunk_size_mib"`
	RetryIntervalSeconds int      `toml:"retry_interval_seconds"`
	RetryMaxAttempts     int      `toml:"retry_max_attempts"`
	CategoryID           string   `toml:"category_id"`
	PrivacyStatus        string   `toml:"privacy_status"`
	TitleMarker          string   `toml:"title_marker"`
	DefaultTitle         string   `toml:"default_title"`
	DefaultDescription   string   `toml:"default_description"`
	DefaultTags          []string `toml:"default_tags"`
	UploadURL            string   `toml:"upload_url"`
	AccessToken          string   `toml:"access_token"`
}

// Tools names the external binaries the pipeline shells out to.
type Tools struct {
	FFmpeg  string `toml:"ffmpeg"`
	FFprobe string `toml:"ffprobe"`
	YTDLP   string `toml:"yt_dlp"`
	EdgeTTS string `toml:"edge_tts"`
}

// Notifications contains configuration for ntfy push notifications.
type Notifications struct {
	NtfyTopic      string `toml:"ntfy_topic"`
	RequestTimeout int    `toml:"request_timeout"`
	RunStarted     bool   `toml:"run_started"`
	RunCompleted   bool   `toml:"run_completed"`
	NothingToDo    bool   `toml:"nothing_to_do"`
	Errors         bool   `toml:"errors"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format        string `toml:"format"`
	Level         string `toml:"level"`
	RetentionDays int    `toml:"retention_days"`
}

// Config encapsulates all configuration values for dubshorts.
//
// Configuration sections by subsystem:
//   - Paths: work/log/state directories, backlog and processed files, API bind
//   - Schedule: daily cron trigger and backlog watcher
//   - Selection: URL accessor keys, marker, processed-set policy
//   - Translation, Speech: narration collaborators
//   - Tone, Mix: audio shaping and final render
//   - Publish: upload protocol, slot strategy, metadata defaults
//   - Tools: external binaries
//   - Notifications: ntfy push notification settings
//   - Logging: log format, level, and retention
type Config struct {
	Paths         Paths         `toml:"paths"`
	Schedule      Schedule      `toml:"schedule"`
	Selection     Selection     `toml:"selection"`
	Translation   Translation   `toml:"translation"`
	Speech        Speech        `toml:"speech"`
	Tone          Tone          `toml:"tone"`
	Mix           Mix           `toml:"mix"`
	Publish       Publish       `toml:"publish"`
	Tools         Tools         `toml:"tools"`
	Notifications Notifications `toml:"notifications"`
	Logging       Logging       `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath(defaultConfigPath)
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := expandPath(defaultConfigPath)
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("dubshorts.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates required directories for pipeline operation.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.WorkDir, c.Paths.LogDir, c.Paths.StateDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	for _, file := range []string{c.Paths.BacklogFile, c.Paths.ProcessedFile} {
		if dir := filepath.Dir(file); dir != "" {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return fmt.Errorf("create directory %q: %w", dir, err)
			}
		}
	}
	return nil
}

// FFmpegBinary returns the ffmpeg executable used for rendering.
func (c *Config) FFmpegBinary() string {
	return binaryOrDefault(c.Tools.FFmpeg, "ffmpeg")
}

// FFprobeBinary returns the ffprobe executable name used for media inspection.
func (c *Config) FFprobeBinary() string {
	return binaryOrDefault(c.Tools.FFprobe, "ffprobe")
}

// YTDLPBinary returns the yt-dlp executable used for fetching sources.
func (c *Config) YTDLPBinary() string {
	return binaryOrDefault(c.Tools.YTDLP, "yt-dlp")
}

// EdgeTTSBinary returns the edge-tts executable used for narration.
func (c *Config) EdgeTTSBinary() string {
	return binaryOrDefault(c.Tools.EdgeTTS, "edge-tts")
}

// HistoryDBPath returns the location of the run history database.
func (c *Config) HistoryDBPath() string {
	return filepath.Join(c.Paths.StateDir, "history.db")
}

// LockPath returns the location of the cross-process run lock.
func (c *Config) LockPath() string {
	return filepath.Join(c.Paths.StateDir, "dubshorts.lock")
}

// LogPath returns the location of the main log file.
func (c *Config) LogPath() string {
	return filepath.Join(c.Paths.LogDir, "dubshorts.log")
}

func binaryOrDefault(value, fallback string) string {
	if trimmed := strings.TrimSpace(value); trimmed != "" {
		return trimmed
	}
	return fallback
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
