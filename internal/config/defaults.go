package config

const (
	defaultConfigPath            = "~/.config/dubshorts/config.toml"
	defaultWorkDir               = "~/.local/share/dubshorts/work"
	defaultLogDir                = "~/.local/share/dubshorts/logs"
	defaultStateDir              = "~/.local/share/dubshorts/state"
	defaultBacklogFile           = "~/.local/share/dubshorts/shorts_links.json"
	defaultProcessedFile         = "~/.local/share/dubshorts/process_track.json"
	defaultBackgroundTrack       = "~/.local/share/dubshorts/background.mp3"
	defaultAPIBind               = "127.0.0.1:7490"
	defaultDailyCron             = "30 6 * * *"
	defaultURLMarker             = "youtube.com/shorts/"
	defaultTranslationEndpoint   = "https://translate.googleapis.com/translate_a/single"
	defaultSourceLanguage        = "auto"
	defaultTargetLanguage        = "hi"
	defaultTranslationMaxChars   = 4500
	defaultTranslationTimeout    = 30
	defaultTranslationRetries    = 3
	defaultVoice                 = "hi-IN-SwaraNeural"
	defaultToneSpeed             = 1.5
	defaultToneVolumeChange      = 2.0
	defaultToneFadeMS            = 500
	defaultVoiceVolume           = 1.8
	defaultBackgroundVolume      = 0.08
	defaultVideoCodec            = "libx264"
	defaultAudioCodec            = "aac"
	defaultMorningSlot           = "09:45"
	defaultEveningSlot           = "19:30"
	defaultDailySlot             = "07:35"
	defaultChunkSizeMiB          = 5
	defaultRetryIntervalSeconds  = 5
	defaultRetryMaxAttempts      = 30
	defaultCategoryID            = "22"
	defaultPrivacyStatus         = "private"
	defaultTitleMarker           = "#shorts"
	defaultPublishTitle          = "#shorts"
	defaultPublishDescription    = "Check out this awesome short video! 🔥\n\n#shorts #viral #trending"
	defaultUploadURL             = "https://www.googleapis.com/upload/youtube/v3/videos"
	defaultNotifyRequestTimeout  = 10
	defaultLogFormat             = "console"
	defaultLogLevel              = "info"
	defaultLogRetentionDays      = 30
)

// Processed-set recording policies.
const (
	// ProcessedOnSuccess records a URL only after it was published.
	ProcessedOnSuccess = "on_success"
	// ProcessedAlways records a URL after any run that selected it, even when a
	// later stage failed. This prevents retry storms on a poisoned item.
	ProcessedAlways = "always"
)

// Slot strategies understood by the publisher.
const (
	StrategyAlternating = "alternating"
	StrategyDaily       = "daily"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			WorkDir:         defaultWorkDir,
			LogDir:          defaultLogDir,
			StateDir:        defaultStateDir,
			BacklogFile:     defaultBacklogFile,
			ProcessedFile:   defaultProcessedFile,
			BackgroundTrack: defaultBackgroundTrack,
			APIBind:         defaultAPIBind,
		},
		Schedule: Schedule{
			DailyCron: defaultDailyCron,
		},
		Selection: Selection{
			URLKeys:         []string{"orig_url", "shorts_url"},
			URLMarker:       defaultURLMarker,
			ProcessedPolicy: ProcessedOnSuccess,
		},
		Translation: Translation{
			Endpoint:       defaultTranslationEndpoint,
			SourceLanguage: defaultSourceLanguage,
			TargetLanguage: defaultTargetLanguage,
			MaxChars:       defaultTranslationMaxChars,
			TimeoutSeconds: defaultTranslationTimeout,
			RetryAttempts:  defaultTranslationRetries,
		},
		Speech: Speech{
			Voice: defaultVoice,
		},
		Tone: Tone{
			Speed:        defaultToneSpeed,
			VolumeChange: defaultToneVolumeChange,
			Normalize:    true,
			FadeIn:       defaultToneFadeMS,
			FadeOut:      defaultToneFadeMS,
		},
		Mix: Mix{
			VoiceVolume:      defaultVoiceVolume,
			BackgroundVolume: defaultBackgroundVolume,
			VideoCodec:       defaultVideoCodec,
			AudioCodec:       defaultAudioCodec,
		},
		Publish: Publish{
			Strategy:             StrategyAlternating,
			Morning:              defaultMorningSlot,
			Evening:              defaultEveningSlot,
			DailyAt:              defaultDailySlot,
			ChunkSizeMiB:         defaultChunkSizeMiB,
			RetryIntervalSeconds: defaultRetryIntervalSeconds,
			RetryMaxAttempts:     defaultRetryMaxAttempts,
			CategoryID:           defaultCategoryID,
			PrivacyStatus:        defaultPrivacyStatus,
			TitleMarker:          defaultTitleMarker,
			DefaultTitle:         defaultPublishTitle,
			DefaultDescription:   defaultPublishDescription,
			DefaultTags:          []string{"shorts", "viral", "trending", "youtube", "short"},
			UploadURL:            defaultUploadURL,
		},
		Notifications: Notifications{
			RequestTimeout: defaultNotifyRequestTimeout,
			RunCompleted:   true,
			Errors:         true,
		},
		Logging: Logging{
			Format:        defaultLogFormat,
			Level:         defaultLogLevel,
			RetentionDays: defaultLogRetentionDays,
		},
	}
}
