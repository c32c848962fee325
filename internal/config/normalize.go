package config

import (
	"fmt"
	"os"
	"strings"

	"dubshorts/internal/language"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeSelection()
	c.normalizeTranslation()
	c.normalizePublish()
	c.normalizeNotifications()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if c.Paths.WorkDir, err = expandPath(c.Paths.WorkDir); err != nil {
		return fmt.Errorf("paths.work_dir: %w", err)
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	if c.Paths.StateDir, err = expandPath(c.Paths.StateDir); err != nil {
		return fmt.Errorf("paths.state_dir: %w", err)
	}
	if c.Paths.BacklogFile, err = expandPath(c.Paths.BacklogFile); err != nil {
		return fmt.Errorf("paths.backlog_file: %w", err)
	}
	if c.Paths.ProcessedFile, err = expandPath(c.Paths.ProcessedFile); err != nil {
		return fmt.Errorf("paths.processed_file: %w", err)
	}
	if c.Paths.BackgroundTrack, err = expandPath(c.Paths.BackgroundTrack); err != nil {
		return fmt.Errorf("paths.background_track: %w", err)
	}
	c.Paths.APIBind = strings.TrimSpace(c.Paths.APIBind)
	c.Paths.APIToken = strings.TrimSpace(c.Paths.APIToken)
	if c.Paths.APIToken == "" {
		if value, ok := os.LookupEnv("DUBSHORTS_API_TOKEN"); ok {
			c.Paths.APIToken = strings.TrimSpace(value)
		}
	}
	return nil
}

func (c *Config) normalizeSelection() {
	keys := make([]string, 0, len(c.Selection.URLKeys))
	seen := make(map[string]struct{}, len(c.Selection.URLKeys))
	for _, key := range c.Selection.URLKeys {
		key = strings.TrimSpace(key)
		if key == "" {
			continue
		}
		if _, exists := seen[key]; exists {
			continue
		}
		seen[key] = struct{}{}
		keys = append(keys, key)
	}
	if len(keys) == 0 {
		keys = []string{"orig_url", "shorts_url"}
	}
	c.Selection.URLKeys = keys
	c.Selection.URLMarker = strings.TrimSpace(c.Selection.URLMarker)
	c.Selection.ProcessedPolicy = strings.ToLower(strings.TrimSpace(c.Selection.ProcessedPolicy))
	if c.Selection.ProcessedPolicy == "" {
		c.Selection.ProcessedPolicy = ProcessedOnSuccess
	}
}

func (c *Config) normalizeTranslation() {
	c.Translation.Endpoint = strings.TrimSpace(c.Translation.Endpoint)
	if c.Translation.Endpoint == "" {
		c.Translation.Endpoint = defaultTranslationEndpoint
	}
	c.Translation.SourceLanguage = normalizeLanguage(c.Translation.SourceLanguage)
	if c.Translation.SourceLanguage == "" {
		c.Translation.SourceLanguage = defaultSourceLanguage
	}
	c.Translation.TargetLanguage = normalizeLanguage(c.Translation.TargetLanguage)
	if c.Translation.TimeoutSeconds <= 0 {
		c.Translation.TimeoutSeconds = defaultTranslationTimeout
	}
	if c.Translation.RetryAttempts <= 0 {
		c.Translation.RetryAttempts = 1
	}
	c.Speech.Voice = strings.TrimSpace(c.Speech.Voice)
}

func (c *Config) normalizePublish() {
	c.Publish.Strategy = strings.ToLower(strings.TrimSpace(c.Publish.Strategy))
	if c.Publish.Strategy == "" {
		c.Publish.Strategy = StrategyAlternating
	}
	c.Publish.Morning = strings.TrimSpace(c.Publish.Morning)
	c.Publish.Evening = strings.TrimSpace(c.Publish.Evening)
	c.Publish.DailyAt = strings.TrimSpace(c.Publish.DailyAt)
	c.Publish.PrivacyStatus = strings.ToLower(strings.TrimSpace(c.Publish.PrivacyStatus))
	if c.Publish.PrivacyStatus == "" {
		c.Publish.PrivacyStatus = defaultPrivacyStatus
	}
	c.Publish.UploadURL = strings.TrimSpace(c.Publish.UploadURL)
	if c.Publish.UploadURL == "" {
		c.Publish.UploadURL = defaultUploadURL
	}
	c.Publish.AccessToken = strings.TrimSpace(c.Publish.AccessToken)
	if c.Publish.AccessToken == "" {
		if value, ok := os.LookupEnv("DUBSHORTS_YOUTUBE_TOKEN"); ok {
			c.Publish.AccessToken = strings.TrimSpace(value)
		}
	}
	tags := make([]string, 0, len(c.Publish.DefaultTags))
	for _, tag := range c.Publish.DefaultTags {
		if tag = strings.TrimSpace(tag); tag != "" {
			tags = append(tags, tag)
		}
	}
	c.Publish.DefaultTags = tags
}

func (c *Config) normalizeNotifications() {
	c.Notifications.NtfyTopic = strings.TrimSpace(c.Notifications.NtfyTopic)
	if c.Notifications.NtfyTopic == "" {
		if value, ok := os.LookupEnv("DUBSHORTS_NTFY_TOPIC"); ok {
			c.Notifications.NtfyTopic = strings.TrimSpace(value)
		}
	}
	if c.Notifications.RequestTimeout <= 0 {
		c.Notifications.RequestTimeout = defaultNotifyRequestTimeout
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	switch c.Logging.Format {
	case "", "console":
		c.Logging.Format = "console"
	case "json":
	default:
		c.Logging.Format = "console"
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
	if c.Logging.RetentionDays < 0 {
		c.Logging.RetentionDays = 0
	}
}

// normalizeLanguage canonicalizes a language setting, keeping unrecognized
// input (lower-cased) so validation can name it.
func normalizeLanguage(value string) string {
	if code := language.Normalize(value); code != "" {
		return code
	}
	return strings.ToLower(strings.TrimSpace(value))
}
