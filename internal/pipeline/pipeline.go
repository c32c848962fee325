package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"dubshorts/internal/config"
	"dubshorts/internal/logging"
	"dubshorts/internal/mixer"
	"dubshorts/internal/publish"
	"dubshorts/internal/reconcile"
	"dubshorts/internal/selector"
	"dubshorts/internal/services"
	"dubshorts/internal/services/translate"
	"dubshorts/internal/services/ytdlp"
	"dubshorts/internal/tone"
	"dubshorts/internal/transcript"
)

// Artifact names inside a run directory.
const (
	TranslatedFile = "translated_text.txt"
	VoiceFile      = "voice.mp3"
	TonedFile      = "voice_toned.wav"
	FinalFile      = "final_video.mp4"
)

// Settings holds the per-run parameters derived from configuration.
type Settings struct {
	RunsDir          string
	Selection        selector.Options
	Policy           ProcessedPolicy
	TargetLanguage   string
	MaxChars         int
	Tone             tone.Settings
	BackgroundPath   string
	VoiceVolume      float64
	BackgroundVolume float64
	Metadata         publish.Metadata
	TitleMarker      string
}

// SettingsFromConfig maps configuration onto pipeline settings.
func SettingsFromConfig(cfg *config.Config) Settings {
	return Settings{
		RunsDir: RunsDir(cfg),
		Selection: selector.Options{
			URLKeys: cfg.Selection.URLKeys,
			Marker:  cfg.Selection.URLMarker,
		},
		Policy:           ProcessedPolicy(cfg.Selection.ProcessedPolicy),
		TargetLanguage:   cfg.Translation.TargetLanguage,
		MaxChars:         cfg.Translation.MaxChars,
		Tone:             tone.SettingsFromConfig(cfg.Tone),
		BackgroundPath:   cfg.Paths.BackgroundTrack,
		VoiceVolume:      cfg.Mix.VoiceVolume,
		BackgroundVolume: cfg.Mix.BackgroundVolume,
		Metadata:         publish.DefaultMetadata(cfg.Publish),
		TitleMarker:      cfg.Publish.TitleMarker,
	}
}

// RunsDir is the parent of the per-run work directories.
func RunsDir(cfg *config.Config) string {
	return filepath.Join(cfg.Paths.WorkDir, "runs")
}

// Deps bundles the collaborators a run drives.
type Deps struct {
	Backlog     BacklogSource
	Processed   ProcessedSet
	Fetcher     Fetcher
	Translator  translate.Translator
	Synthesizer Synthesizer
	Tone        ToneAdjuster
	Mixer       Mixer
	Prober      DurationProber
	Publisher   Publisher
}

func (d Deps) validate() error {
	missing := make([]string, 0)
	for name, present := range map[string]bool{
		"backlog":     d.Backlog != nil,
		"processed":   d.Processed != nil,
		"fetcher":     d.Fetcher != nil,
		"translator":  d.Translator != nil,
		"synthesizer": d.Synthesizer != nil,
		"tone":        d.Tone != nil,
		"mixer":       d.Mixer != nil,
		"prober":      d.Prober != nil,
		"publisher":   d.Publisher != nil,
	} {
		if !present {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("pipeline dependencies missing: %s", strings.Join(missing, ", "))
	}
	return nil
}

// Pipeline sequences the stages of one run.
type Pipeline struct {
	settings Settings
	deps     Deps
	logger   *slog.Logger
	now      func() time.Time
}

// Option customizes the pipeline.
type Option func(*Pipeline)

// WithClock overrides the time source used for outcome timestamps.
func WithClock(now func() time.Time) Option {
	return func(p *Pipeline) {
		if now != nil {
			p.now = now
		}
	}
}

// New validates deps and constructs a pipeline.
func New(settings Settings, deps Deps, logger *slog.Logger, opts ...Option) (*Pipeline, error) {
	if err := deps.validate(); err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "pipeline", "init", "", err)
	}
	if settings.Policy == "" {
		settings.Policy = RecordOnSuccess
	}
	if settings.Policy != RecordOnSuccess && settings.Policy != RecordAlways {
		return nil, services.Wrap(services.ErrConfiguration, "pipeline", "init",
			fmt.Sprintf("unknown processed policy %q", settings.Policy), nil)
	}
	p := &Pipeline{
		settings: settings,
		deps:     deps,
		logger:   logging.NewComponentLogger(logger, "pipeline"),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// run carries state through the stages of a single execution.
type run struct {
	id       string
	dir      string
	url      string
	media    ytdlp.Result
	voice    string
	toned    string
	asset    string
	observer Observer
}

// Run executes one pass. It never panics on stage errors; the first failure
// is returned as the Outcome cause and later stages are skipped.
func (p *Pipeline) Run(ctx context.Context, observer Observer) Outcome {
	id, ok := services.RunIDFromContext(ctx)
	if !ok {
		id = uuid.NewString()
		ctx = services.WithRunID(ctx, id)
	}
	r := &run{id: id, observer: observer}
	outcome := Outcome{RunID: id, StartedAt: p.now()}
	logger := logging.WithContext(ctx, p.logger)

	finish := func(state State, failed State, cause error) Outcome {
		outcome.State = state
		outcome.URL = r.url
		outcome.FailedStage = failed
		outcome.Cause = cause
		outcome.AssetPath = r.asset
		outcome.FinishedAt = p.now()
		r.notify(state)
		return outcome
	}

	item, found, err := p.selectNext(ctx, r)
	if err != nil {
		return p.fail(ctx, finish, StateSelecting, err)
	}
	if !found {
		outcome.NothingToDo = true
		logger.Info("no unprocessed shorts in backlog", logging.String(logging.FieldEventType, "nothing_to_do"))
		return finish(StateSucceeded, "", nil)
	}
	r.url = item.URL
	r.dir = filepath.Join(p.settings.RunsDir, id)

	if p.settings.Policy == RecordAlways {
		defer p.recordProcessed(ctx, r.url)
	}

	stages := []struct {
		state State
		fn    func(context.Context, *run) error
	}{
		{StateFetching, p.fetch},
		{StateTranslating, p.narrate},
		{StateToneAdjusting, p.adjustTone},
		{StateMixing, p.mix},
		{StatePublishing, func(ctx context.Context, r *run) error {
			result, err := p.publish(ctx, r)
			if err == nil {
				outcome.VideoID = result.VideoID
				outcome.ScheduledTime = result.ScheduledTime
			}
			return err
		}},
	}
	for _, stage := range stages {
		if err := p.execute(ctx, r, stage.state, stage.fn); err != nil {
			return p.fail(ctx, finish, stage.state, err)
		}
	}

	if p.settings.Policy == RecordOnSuccess {
		p.recordProcessed(ctx, r.url)
	}
	done := finish(StateSucceeded, "", nil)
	logger.Info("run succeeded",
		logging.String(logging.FieldEventType, "run_succeeded"),
		logging.String(logging.FieldURL, r.url),
		logging.String("video_id", done.VideoID),
		logging.String("scheduled_time", done.ScheduledTime.UTC().Format(time.RFC3339)),
		logging.Duration("run_duration", done.Duration()),
	)
	return done
}

func (r *run) notify(state State) {
	if r.observer != nil {
		r.observer(state, r.url)
	}
}

func (p *Pipeline) execute(ctx context.Context, r *run, state State, fn func(context.Context, *run) error) error {
	stageCtx := services.WithStage(ctx, string(state))
	logger := logging.WithContext(stageCtx, p.logger)
	r.notify(state)
	started := time.Now()
	logger.Info("stage started",
		logging.String(logging.FieldEventType, "stage_start"),
		logging.String(logging.FieldURL, r.url),
	)
	if err := fn(stageCtx, r); err != nil {
		return err
	}
	logger.Info("stage completed",
		logging.String(logging.FieldEventType, "stage_complete"),
		logging.Duration("stage_duration", time.Since(started)),
	)
	return nil
}

func (p *Pipeline) fail(ctx context.Context, finish func(State, State, error) Outcome, stage State, err error) Outcome {
	outcome := finish(StateFailed, stage, err)
	logger := logging.WithContext(services.WithStage(ctx, string(stage)), p.logger)
	if errors.Is(err, context.Canceled) {
		logger.Info("run cancelled", logging.String(logging.FieldURL, outcome.URL))
		return outcome
	}
	logging.ErrorWithContext(logger, "stage failed", "stage_failure",
		logging.Alert("stage_failure"),
		logging.String(logging.FieldURL, outcome.URL),
		logging.String("error_class", services.Classify(err)),
		logging.Error(err),
	)
	return outcome
}

func (p *Pipeline) selectNext(ctx context.Context, r *run) (selector.WorkItem, bool, error) {
	ctx = services.WithStage(ctx, string(StateSelecting))
	r.notify(StateSelecting)
	if err := ctx.Err(); err != nil {
		return selector.WorkItem{}, false, err
	}
	backlog, err := p.deps.Backlog()
	if err != nil {
		return selector.WorkItem{}, false, err
	}
	processed := p.deps.Processed.Load()
	item, found := selector.SelectNext(backlog, processed, p.settings.Selection)
	logger := logging.WithContext(ctx, p.logger)
	logger.Info("selection complete",
		logging.Bool("found", found),
		logging.String(logging.FieldURL, item.URL),
		logging.Int("backlog_size", len(backlog)),
		logging.Int("processed_count", len(processed)),
		logging.Int("pending", selector.Pending(backlog, processed, p.settings.Selection)),
	)
	return item, found, nil
}

func (p *Pipeline) fetch(ctx context.Context, r *run) error {
	if err := os.MkdirAll(r.dir, 0o755); err != nil {
		return services.Wrap(services.ErrMediaFetch, string(StateFetching), "create run dir", r.dir, err)
	}
	media, err := p.deps.Fetcher.Fetch(ctx, r.url, r.dir)
	if err != nil {
		return err
	}
	r.media = media
	return nil
}

// narrate builds the narration audio: transcript (or title and description),
// translated in chunks, then synthesized.
func (p *Pipeline) narrate(ctx context.Context, r *run) error {
	logger := logging.WithContext(ctx, p.logger)
	text := strings.TrimSpace(r.media.Transcript)
	if text == "" {
		text = transcript.FromMetadata(r.media.Metadata.Title, r.media.Metadata.Description)
		logger.Info("no transcript; narrating title and description",
			logging.String(logging.FieldEventType, "transcript_fallback"))
	}
	if text == "" {
		return services.Wrap(services.ErrSynthesis, string(StateTranslating), "build narration text",
			"no transcript, title, or description available", nil)
	}

	translated, err := translate.Chunked(ctx, p.deps.Translator, text, p.settings.TargetLanguage, p.settings.MaxChars)
	if err != nil {
		return err
	}
	if err := os.WriteFile(filepath.Join(r.dir, TranslatedFile), []byte(translated), 0o644); err != nil {
		return services.Wrap(services.ErrTranslation, string(StateTranslating), "write translation", "", err)
	}

	r.voice = filepath.Join(r.dir, VoiceFile)
	return p.deps.Synthesizer.Synthesize(ctx, translated, r.voice)
}

func (p *Pipeline) adjustTone(ctx context.Context, r *run) error {
	r.toned = filepath.Join(r.dir, TonedFile)
	return p.deps.Tone.Adjust(ctx, r.voice, r.toned, p.settings.Tone)
}

func (p *Pipeline) mix(ctx context.Context, r *run) error {
	videoSeconds, err := p.deps.Prober.Duration(ctx, r.media.VideoPath)
	if err != nil {
		return services.Wrap(services.ErrMix, string(StateMixing), "probe video", r.media.VideoPath, err)
	}
	voiceSeconds, err := p.deps.Prober.Duration(ctx, r.toned)
	if err != nil {
		return services.Wrap(services.ErrMix, string(StateMixing), "probe narration", r.toned, err)
	}
	plan, err := reconcile.Reconcile(videoSeconds, voiceSeconds)
	if err != nil {
		return err
	}
	logging.WithContext(ctx, p.logger).Info("durations reconciled",
		logging.Float64("video_seconds", videoSeconds),
		logging.Float64("voice_seconds", voiceSeconds),
		logging.Float64("target_seconds", plan.TargetDuration),
		logging.Float64("video_speed", plan.VideoSpeedFactor),
		logging.Float64("voice_speed", plan.VoiceSpeedFactor),
	)
	result, err := p.deps.Mixer.Mix(ctx, mixer.Request{
		VideoPath:        r.media.VideoPath,
		NarrationPath:    r.toned,
		BackgroundPath:   p.settings.BackgroundPath,
		OutputPath:       filepath.Join(r.dir, FinalFile),
		Plan:             plan,
		VoiceVolume:      p.settings.VoiceVolume,
		BackgroundVolume: p.settings.BackgroundVolume,
	})
	if err != nil {
		return err
	}
	r.asset = result.OutputPath
	return nil
}

func (p *Pipeline) publish(ctx context.Context, r *run) (publish.Result, error) {
	logger := logging.WithContext(ctx, p.logger)
	meta, usedDefaults, err := publish.LoadMetadata(r.media.MetadataPath, p.settings.Metadata, p.settings.TitleMarker)
	if err != nil {
		return publish.Result{}, services.Wrap(services.ErrPublish, string(StatePublishing), "load metadata", r.media.MetadataPath, err)
	}
	if usedDefaults {
		logger.Info("metadata sidecar missing; using defaults", logging.String("title", meta.Title))
	}
	return p.deps.Publisher.Publish(ctx, r.asset, meta, 0)
}

// recordProcessed appends url to the processed set. A failed append is logged
// but does not change the outcome: the upload already happened.
func (p *Pipeline) recordProcessed(ctx context.Context, url string) {
	logger := logging.WithContext(ctx, p.logger)
	record, err := p.deps.Processed.Append(url)
	if err != nil {
		logging.ErrorWithContext(logger, "failed to record processed url", "processed_append_failed",
			logging.Alert("processed_append_failed"),
			logging.String(logging.FieldURL, url),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "add the url to the processed file by hand to avoid a duplicate upload"),
		)
		return
	}
	logger.Info("url recorded as processed",
		logging.String(logging.FieldURL, record.URL),
		logging.String("timestamp", record.Timestamp),
	)
}
