package config

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/robfig/cron/v3"

	"dubshorts/internal/language"
)

// CronParser is the five-field parser shared by config validation and the
// daily trigger.
var CronParser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validatePaths(); err != nil {
		return err
	}
	if err := c.validateSchedule(); err != nil {
		return err
	}
	if err := c.validateSelection(); err != nil {
		return err
	}
	if err := c.validateTranslation(); err != nil {
		return err
	}
	if err := c.validateTone(); err != nil {
		return err
	}
	if err := c.validateMix(); err != nil {
		return err
	}
	if err := c.validatePublish(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validatePaths() error {
	if c.Paths.WorkDir == "" {
		return errors.New("paths.work_dir must be set")
	}
	if c.Paths.StateDir == "" {
		return errors.New("paths.state_dir must be set")
	}
	if c.Paths.BacklogFile == "" {
		return errors.New("paths.backlog_file must be set")
	}
	if c.Paths.ProcessedFile == "" {
		return errors.New("paths.processed_file must be set")
	}
	return nil
}

func (c *Config) validateSchedule() error {
	expr := strings.TrimSpace(c.Schedule.DailyCron)
	if expr == "" {
		return nil
	}
	if _, err := CronParser.Parse(expr); err != nil {
		return fmt.Errorf("schedule.daily_cron %q: %w", expr, err)
	}
	return nil
}

func (c *Config) validateSelection() error {
	if c.Selection.URLMarker == "" {
		return errors.New("selection.url_marker must be set")
	}
	switch c.Selection.ProcessedPolicy {
	case ProcessedOnSuccess, ProcessedAlways:
	default:
		return fmt.Errorf("selection.processed_policy must be %q or %q, got %q", ProcessedOnSuccess, ProcessedAlways, c.Selection.ProcessedPolicy)
	}
	return nil
}

func (c *Config) validateTranslation() error {
	if c.Translation.TargetLanguage == "" {
		return errors.New("translation.target_language must be set")
	}
	if c.Translation.TargetLanguage == language.Auto || language.Normalize(c.Translation.TargetLanguage) == "" {
		return fmt.Errorf("translation.target_language %q is not a recognized language", c.Translation.TargetLanguage)
	}
	if language.Normalize(c.Translation.SourceLanguage) == "" {
		return fmt.Errorf("translation.source_language %q is not a recognized language", c.Translation.SourceLanguage)
	}
	if c.Translation.MaxChars <= 0 {
		return errors.New("translation.max_chars must be positive")
	}
	if c.Speech.Voice == "" {
		return errors.New("speech.voice must be set")
	}
	if !language.VoiceMatches(c.Translation.TargetLanguage, c.Speech.Voice) {
		return fmt.Errorf("speech.voice %q does not speak translation.target_language %q", c.Speech.Voice, c.Translation.TargetLanguage)
	}
	return nil
}

func (c *Config) validateTone() error {
	if !isFinitePositive(c.Tone.Speed) {
		return errors.New("tone.speed must be a positive number")
	}
	if math.IsNaN(c.Tone.VolumeChange) || math.IsInf(c.Tone.VolumeChange, 0) {
		return errors.New("tone.volume_change must be finite")
	}
	if c.Tone.FadeIn < 0 {
		return errors.New("tone.fade_in must be >= 0")
	}
	if c.Tone.FadeOut < 0 {
		return errors.New("tone.fade_out must be >= 0")
	}
	return nil
}

func (c *Config) validateMix() error {
	if c.Mix.VoiceVolume < 0 || math.IsNaN(c.Mix.VoiceVolume) {
		return errors.New("mix.voice_volume must be >= 0")
	}
	if c.Mix.BackgroundVolume < 0 || math.IsNaN(c.Mix.BackgroundVolume) {
		return errors.New("mix.background_volume must be >= 0")
	}
	if strings.TrimSpace(c.Mix.VideoCodec) == "" || strings.TrimSpace(c.Mix.AudioCodec) == "" {
		return errors.New("mix.video_codec and mix.audio_codec must be set")
	}
	return nil
}

func (c *Config) validatePublish() error {
	switch c.Publish.Strategy {
	case StrategyAlternating:
		morning, err := ParseClock(c.Publish.Morning)
		if err != nil {
			return fmt.Errorf("publish.morning: %w", err)
		}
		evening, err := ParseClock(c.Publish.Evening)
		if err != nil {
			return fmt.Errorf("publish.evening: %w", err)
		}
		if morning >= evening {
			return errors.New("publish.morning must be earlier than publish.evening")
		}
	case StrategyDaily:
		if _, err := ParseClock(c.Publish.DailyAt); err != nil {
			return fmt.Errorf("publish.daily_at: %w", err)
		}
	default:
		return fmt.Errorf("publish.strategy must be %q or %q, got %q", StrategyAlternating, StrategyDaily, c.Publish.Strategy)
	}
	if err := ensurePositiveMap(map[string]int{
		"publish.chunk_size_mib":         c.Publish.ChunkSizeMiB,
		"publish.retry_interval_seconds": c.Publish.RetryIntervalSeconds,
	}); err != nil {
		return err
	}
	if c.Publish.RetryMaxAttempts < 0 {
		return errors.New("publish.retry_max_attempts must be >= 0 (0 retries without limit)")
	}
	if strings.TrimSpace(c.Publish.TitleMarker) == "" {
		return errors.New("publish.title_marker must be set")
	}
	return nil
}

// ParseClock parses an "HH:MM" wall-clock time and returns the offset from midnight.
func ParseClock(value string) (time.Duration, error) {
	parsed, err := time.Parse("15:04", strings.TrimSpace(value))
	if err != nil {
		return 0, fmt.Errorf("invalid clock time %q (expected HH:MM)", value)
	}
	return time.Duration(parsed.Hour())*time.Hour + time.Duration(parsed.Minute())*time.Minute, nil
}

func isFinitePositive(value float64) bool {
	return value > 0 && !math.IsInf(value, 0) && !math.IsNaN(value)
}

func ensurePositiveMap(values map[string]int) error {
	for key, value := range values {
		if value <= 0 {
			return fmt.Errorf("%s must be positive", key)
		}
	}
	return nil
}
