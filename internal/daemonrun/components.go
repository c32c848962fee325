package daemonrun

import (
	"fmt"
	"log/slog"

	"dubshorts/internal/config"
	"dubshorts/internal/media/ffmpeg"
	"dubshorts/internal/media/ffprobe"
	"dubshorts/internal/mixer"
	"dubshorts/internal/pipeline"
	"dubshorts/internal/publish"
	"dubshorts/internal/selector"
	"dubshorts/internal/services"
	"dubshorts/internal/services/edgetts"
	"dubshorts/internal/services/translate"
	"dubshorts/internal/services/ytdlp"
	"dubshorts/internal/tone"
)

// NewUploader builds the publish uploader and its slot strategy from config.
func NewUploader(cfg *config.Config, logger *slog.Logger, opts ...publish.Option) (*publish.Uploader, error) {
	strategy, err := publish.StrategyFromConfig(cfg.Publish)
	if err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "publish", "slot strategy", "Invalid publish schedule", err)
	}
	return publish.NewUploader(cfg.Publish, strategy, logger, opts...), nil
}

// NewTranslator builds the translate client from the [translation] section.
func NewTranslator(cfg *config.Config) *translate.Client {
	var opts []translate.Option
	if cfg.Translation.RetryAttempts > 0 {
		opts = append(opts, translate.WithRetryMaxAttempts(cfg.Translation.RetryAttempts))
	}
	return translate.NewClient(translate.Config{
		Endpoint:       cfg.Translation.Endpoint,
		SourceLanguage: cfg.Translation.SourceLanguage,
		TimeoutSeconds: cfg.Translation.TimeoutSeconds,
	}, opts...)
}

// BuildPipeline wires the production collaborators into a pipeline.
func BuildPipeline(cfg *config.Config, logger *slog.Logger) (*pipeline.Pipeline, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}

	runner := ffmpeg.NewExecRunner(cfg.FFmpegBinary())
	prober := ffprobe.New(cfg.FFprobeBinary())
	uploader, err := NewUploader(cfg, logger)
	if err != nil {
		return nil, err
	}
	backlogPath := cfg.Paths.BacklogFile

	deps := pipeline.Deps{
		Backlog: func() ([]selector.Record, error) {
			return selector.LoadBacklog(backlogPath)
		},
		Processed:   selector.NewProcessedStore(cfg.Paths.ProcessedFile, logger),
		Fetcher:     ytdlp.New(cfg.YTDLPBinary(), logger),
		Translator:  NewTranslator(cfg),
		Synthesizer: edgetts.New(cfg.EdgeTTSBinary(), cfg.Speech.Voice, logger),
		Tone:        tone.NewAdjuster(runner, prober, logger),
		Mixer:       mixer.New(cfg.Mix, runner, prober, logger),
		Prober:      prober,
		Publisher:   uploader,
	}
	return pipeline.New(pipeline.SettingsFromConfig(cfg), deps, logger)
}
