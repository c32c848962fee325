// Package mixer renders the final short: the narration is stretched to the
// target duration, mixed over a looped or truncated background bed, and
// attached to the speed-adjusted source video.
package mixer

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"dubshorts/internal/config"
	"dubshorts/internal/logging"
	"dubshorts/internal/media/ffmpeg"
	"dubshorts/internal/reconcile"
	"dubshorts/internal/services"
)

// BackgroundHandling describes how the background bed reaches the target length.
type BackgroundHandling int

const (
	// Loop repeats the background until the target duration is reached.
	Loop BackgroundHandling = iota
	// Truncate cuts the background at the target duration.
	Truncate
)

func (h BackgroundHandling) String() string {
	if h == Truncate {
		return "truncate"
	}
	return "loop"
}

// BackgroundMode truncates backgrounds longer than target and loops the rest.
func BackgroundMode(backgroundSeconds, targetSeconds float64) BackgroundHandling {
	if backgroundSeconds > targetSeconds {
		return Truncate
	}
	return Loop
}

// Request describes one render.
type Request struct {
	VideoPath        string
	NarrationPath    string
	BackgroundPath   string
	OutputPath       string
	Plan             reconcile.SpeedPlan
	VoiceVolume      float64
	BackgroundVolume float64
}

// Result describes the rendered asset.
type Result struct {
	OutputPath     string
	TargetDuration float64
	Background     BackgroundHandling
}

// DurationProber reports a media file length in seconds.
type DurationProber interface {
	Duration(ctx context.Context, path string) (float64, error)
}

// Mixer renders final assets with ffmpeg.
type Mixer struct {
	runner     ffmpeg.Runner
	prober     DurationProber
	videoCodec string
	audioCodec string
	logger     *slog.Logger
}

// New constructs a mixer using the [mix] codec settings.
func New(cfg config.Mix, runner ffmpeg.Runner, prober DurationProber, logger *slog.Logger) *Mixer {
	m := &Mixer{
		runner:     runner,
		prober:     prober,
		videoCodec: strings.TrimSpace(cfg.VideoCodec),
		audioCodec: strings.TrimSpace(cfg.AudioCodec),
		logger:     logging.NewComponentLogger(logger, "mixer"),
	}
	if m.videoCodec == "" {
		m.videoCodec = "libx264"
	}
	if m.audioCodec == "" {
		m.audioCodec = "aac"
	}
	return m
}

// Mix renders req.OutputPath. The intermediate narration file is removed on
// every path, and a partial output is removed on failure.
func (m *Mixer) Mix(ctx context.Context, req Request) (result Result, err error) {
	for _, input := range []struct{ label, path string }{
		{"video", req.VideoPath},
		{"narration", req.NarrationPath},
		{"background", req.BackgroundPath},
	} {
		if strings.TrimSpace(input.path) == "" {
			return Result{}, services.Wrap(services.ErrMix, "mixing", "check inputs", input.label+" path not set", nil)
		}
		if _, statErr := os.Stat(input.path); statErr != nil {
			return Result{}, services.Wrap(services.ErrMix, "mixing", "check inputs", input.label+" file not found: "+input.path, statErr)
		}
	}
	plan := req.Plan
	if plan.TargetDuration <= 0 || plan.VideoSpeedFactor <= 0 || plan.VoiceSpeedFactor <= 0 {
		return Result{}, services.Wrap(services.ErrInvalidInput, "mixing", "check plan", fmt.Sprintf("invalid speed plan %+v", plan), nil)
	}

	logger := logging.WithContext(ctx, m.logger)

	bgSeconds, err := m.prober.Duration(ctx, req.BackgroundPath)
	if err != nil {
		return Result{}, services.Wrap(services.ErrMix, "mixing", "probe background", "", err)
	}
	mode := BackgroundMode(bgSeconds, plan.TargetDuration)

	defer func() {
		if err != nil {
			_ = os.Remove(req.OutputPath)
		}
	}()

	tempVoice, err := tempVoicePath(req.OutputPath)
	if err != nil {
		return Result{}, services.Wrap(services.ErrMix, "mixing", "create temp narration", "", err)
	}
	defer os.Remove(tempVoice)

	tempo, err := ffmpeg.Atempo(plan.VoiceSpeedFactor)
	if err != nil {
		return Result{}, services.Wrap(services.ErrInvalidInput, "mixing", "narration tempo", "", err)
	}
	if _, err := m.runner.Run(ctx, VoiceTempoArgs(req.NarrationPath, tempVoice, tempo)); err != nil {
		return Result{}, services.Wrap(services.ErrMix, "mixing", "stretch narration", "", err)
	}

	args := m.RenderArgs(req, tempVoice, mode)
	if _, err := m.runner.Run(ctx, args); err != nil {
		return Result{}, services.Wrap(services.ErrMix, "mixing", "render final video", "", err)
	}

	logger.Info("final video rendered",
		logging.String("output", req.OutputPath),
		logging.Float64("target_seconds", plan.TargetDuration),
		logging.Float64("video_speed_factor", plan.VideoSpeedFactor),
		logging.Float64("voice_speed_factor", plan.VoiceSpeedFactor),
		logging.String("background", mode.String()),
	)
	return Result{OutputPath: req.OutputPath, TargetDuration: plan.TargetDuration, Background: mode}, nil
}

// VoiceTempoArgs renders the narration through an atempo chain to a PCM file.
func VoiceTempoArgs(in, out, tempo string) []string {
	args := ffmpeg.Preamble(false)
	return append(args, "-i", in, "-vn", "-af", tempo, "-c:a", "pcm_s16le", out)
}

// RenderArgs builds the final composite invocation.
func (m *Mixer) RenderArgs(req Request, voicePath string, mode BackgroundHandling) []string {
	target := ffmpeg.Num(req.Plan.TargetDuration)
	args := ffmpeg.Preamble(false)
	args = append(args, "-i", req.VideoPath, "-i", voicePath)
	if mode == Loop {
		args = append(args, "-stream_loop", "-1")
	}
	args = append(args, "-i", req.BackgroundPath)

	graph := strings.Join([]string{
		"[0:v]setpts=PTS/" + ffmpeg.Num(req.Plan.VideoSpeedFactor) + "[v]",
		"[1:a]" + ffmpeg.VolumeLinear(req.VoiceVolume) + "[voice]",
		"[2:a]atrim=0:" + target + ",asetpts=PTS-STARTPTS," + ffmpeg.VolumeLinear(req.BackgroundVolume) + "[bg]",
		"[voice][bg]amix=inputs=2:normalize=0:duration=longest,atrim=0:" + target + "[a]",
	}, ";")

	return append(args,
		"-filter_complex", graph,
		"-map", "[v]",
		"-map", "[a]",
		"-c:v", m.videoCodec,
		"-c:a", m.audioCodec,
		"-t", target,
		"-movflags", "+faststart",
		req.OutputPath,
	)
}

func tempVoicePath(output string) (string, error) {
	file, err := os.CreateTemp(filepath.Dir(output), "temp_voice-*.wav")
	if err != nil {
		return "", err
	}
	name := file.Name()
	if err := file.Close(); err != nil {
		_ = os.Remove(name)
		return "", err
	}
	return name, nil
}
