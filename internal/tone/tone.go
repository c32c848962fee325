// Package tone applies the narration tone adjustment: a two-stage speed change
// followed by gain, peak normalization, and fades.
package tone

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"os"
	"path/filepath"

	"dubshorts/internal/config"
	"dubshorts/internal/logging"
	"dubshorts/internal/media/ffmpeg"
	"dubshorts/internal/services"
)

// normalizeHeadroomDB is the gap left below full scale after normalization.
const normalizeHeadroomDB = 0.1

// Settings controls one adjustment. Speed is a multiplier (>0), VolumeChangeDB
// is additive gain, fades are in milliseconds and clipped to the track length.
type Settings struct {
	Speed          float64
	VolumeChangeDB float64
	Normalize      bool
	FadeInMS       int
	FadeOutMS      int
}

// SettingsFromConfig maps the [tone] section.
func SettingsFromConfig(cfg config.Tone) Settings {
	return Settings{
		Speed:          cfg.Speed,
		VolumeChangeDB: cfg.VolumeChange,
		Normalize:      cfg.Normalize,
		FadeInMS:       cfg.FadeIn,
		FadeOutMS:      cfg.FadeOut,
	}
}

// Validate rejects settings that cannot be rendered.
func (s Settings) Validate() error {
	if s.Speed <= 0 || math.IsNaN(s.Speed) || math.IsInf(s.Speed, 0) {
		return services.Wrap(services.ErrInvalidInput, "tone", "validate settings", fmt.Sprintf("speed must be positive, got %v", s.Speed), nil)
	}
	if math.IsNaN(s.VolumeChangeDB) || math.IsInf(s.VolumeChangeDB, 0) {
		return services.Wrap(services.ErrInvalidInput, "tone", "validate settings", "volume change must be finite", nil)
	}
	if s.FadeInMS < 0 || s.FadeOutMS < 0 {
		return services.Wrap(services.ErrInvalidInput, "tone", "validate settings", "fades must be >= 0", nil)
	}
	return nil
}

// Stages splits a speed factor into two multiplicative steps. The first moves
// halfway toward the target; the second supplies the remainder so that
// first*second == speed.
func Stages(speed float64) (first, second float64) {
	first = 1 + (speed-1)/2
	second = speed / first
	return first, second
}

// DurationProber reports a media file length in seconds.
type DurationProber interface {
	Duration(ctx context.Context, path string) (float64, error)
}

// Adjuster renders tone adjustments with ffmpeg.
type Adjuster struct {
	runner ffmpeg.Runner
	prober DurationProber
	logger *slog.Logger
}

// NewAdjuster wires the adjuster to its ffmpeg runner and duration prober.
func NewAdjuster(runner ffmpeg.Runner, prober DurationProber, logger *slog.Logger) *Adjuster {
	return &Adjuster{
		runner: runner,
		prober: prober,
		logger: logging.NewComponentLogger(logger, "tone"),
	}
}

// Adjust writes the adjusted narration to out. Operations run in a fixed
// order: speed, gain, normalize, fade-in, fade-out. Any failure removes out
// and returns an error.
func (a *Adjuster) Adjust(ctx context.Context, in, out string, s Settings) (err error) {
	if err := s.Validate(); err != nil {
		return err
	}
	if _, statErr := os.Stat(in); statErr != nil {
		return services.Wrap(services.ErrInvalidInput, "tone", "open narration", in, statErr)
	}

	workDir, err := os.MkdirTemp(filepath.Dir(out), "tone-*")
	if err != nil {
		return services.Wrap(services.ErrSynthesis, "tone", "create temp dir", "", err)
	}
	defer os.RemoveAll(workDir)
	defer func() {
		if err != nil {
			_ = os.Remove(out)
		}
	}()

	logger := logging.WithContext(ctx, a.logger)

	// Pass 1: speed stages and gain.
	var filters []string
	if s.Speed != 1 {
		first, second := Stages(s.Speed)
		for _, factor := range []float64{first, second} {
			chain, chainErr := ffmpeg.Atempo(factor)
			if chainErr != nil {
				return services.Wrap(services.ErrInvalidInput, "tone", "speed stage", "", chainErr)
			}
			filters = append(filters, chain)
		}
		logger.Debug("tone speed stages", logging.Float64("first", first), logging.Float64("second", second))
	}
	if s.VolumeChangeDB != 0 {
		filters = append(filters, ffmpeg.VolumeDB(s.VolumeChangeDB))
	}
	shaped := filepath.Join(workDir, "shaped.wav")
	if _, err := a.runner.Run(ctx, renderArgs(in, shaped, ffmpeg.Chain(filters...))); err != nil {
		return services.Wrap(services.ErrSynthesis, "tone", "speed and gain pass", "", err)
	}

	// Pass 2: normalize and fades.
	var finish []string
	if s.Normalize {
		stderr, err := a.runner.Run(ctx, ffmpeg.VolumeDetectArgs(shaped))
		if err != nil {
			return services.Wrap(services.ErrSynthesis, "tone", "measure peak", "", err)
		}
		peak, err := ffmpeg.ParseMaxVolume(stderr)
		if err != nil {
			return services.Wrap(services.ErrSynthesis, "tone", "measure peak", "", err)
		}
		if gain, ok := NormalizeGain(peak); ok {
			finish = append(finish, ffmpeg.VolumeDB(gain))
		}
	}
	if s.FadeInMS > 0 || s.FadeOutMS > 0 {
		length, err := a.prober.Duration(ctx, shaped)
		if err != nil {
			return services.Wrap(services.ErrSynthesis, "tone", "probe shaped narration", "", err)
		}
		if s.FadeInMS > 0 {
			finish = append(finish, ffmpeg.FadeIn(ClipFade(s.FadeInMS, length)))
		}
		if s.FadeOutMS > 0 {
			finish = append(finish, ffmpeg.FadeOut(ClipFade(s.FadeOutMS, length), length))
		}
	}
	if _, err := a.runner.Run(ctx, renderArgs(shaped, out, ffmpeg.Chain(finish...))); err != nil {
		return services.Wrap(services.ErrSynthesis, "tone", "normalize and fade pass", "", err)
	}

	logger.Info("narration tone adjusted",
		logging.String("output", out),
		logging.Float64("speed", s.Speed),
		logging.Float64("volume_change_db", s.VolumeChangeDB),
		logging.Bool("normalize", s.Normalize),
	)
	return nil
}

// NormalizeGain returns the gain that lifts peak to just under full scale.
// Silent tracks (peak -inf) are left untouched.
func NormalizeGain(peakDB float64) (float64, bool) {
	if math.IsInf(peakDB, -1) || math.IsNaN(peakDB) {
		return 0, false
	}
	return -peakDB - normalizeHeadroomDB, true
}

// ClipFade converts a fade in milliseconds to seconds bounded by the track length.
func ClipFade(ms int, trackSeconds float64) float64 {
	return math.Min(float64(ms)/1000, math.Max(trackSeconds, 0))
}

func renderArgs(in, out, filter string) []string {
	args := ffmpeg.Preamble(false)
	return append(args, "-i", in, "-vn", "-af", filter, out)
}
