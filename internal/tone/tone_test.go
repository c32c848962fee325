package tone

import (
	"context"
	"errors"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"dubshorts/internal/services"
)

type recordingRunner struct {
	calls  [][]string
	stderr map[string]string
	failOn string
}

func (r *recordingRunner) Run(_ context.Context, args []string) (string, error) {
	r.calls = append(r.calls, args)
	joined := strings.Join(args, " ")
	out := args[len(args)-1]
	if out != "-" {
		_ = os.WriteFile(out, []byte("audio"), 0o644)
	}
	if r.failOn != "" && strings.Contains(joined, r.failOn) {
		return "", errors.New("ffmpeg exploded")
	}
	for key, value := range r.stderr {
		if strings.Contains(joined, key) {
			return value, nil
		}
	}
	return "", nil
}

type fixedProber float64

func (p fixedProber) Duration(context.Context, string) (float64, error) { return float64(p), nil }

func filterOf(args []string) string {
	for i, arg := range args {
		if arg == "-af" {
			return args[i+1]
		}
	}
	return ""
}

func writeInput(t *testing.T) (string, string) {
	t.Helper()
	dir := t.TempDir()
	in := filepath.Join(dir, "voice.mp3")
	if err := os.WriteFile(in, []byte("mp3"), 0o644); err != nil {
		t.Fatalf("write input: %v", err)
	}
	return in, filepath.Join(dir, "voice_tone.mp3")
}

func TestStagesComposeExactly(t *testing.T) {
	first, second := Stages(1.5)
	if first != 1.25 || second != 1.2 {
		t.Fatalf("Stages(1.5) = %v, %v", first, second)
	}
	for _, s := range []float64{0.1, 0.75, 1, 1.5, 2, 3.3, 10} {
		first, second := Stages(s)
		if math.Abs(first*second-s) > 1e-12 {
			t.Fatalf("Stages(%v) product = %v", s, first*second)
		}
	}
}

func TestAdjustAppliesOperationsInOrder(t *testing.T) {
	in, out := writeInput(t)
	runner := &recordingRunner{stderr: map[string]string{"volumedetect": "max_volume: -4.0 dB"}}
	adjuster := NewAdjuster(runner, fixedProber(20), nil)

	settings := Settings{Speed: 1.5, VolumeChangeDB: 2, Normalize: true, FadeInMS: 500, FadeOutMS: 500}
	if err := adjuster.Adjust(context.Background(), in, out, settings); err != nil {
		t.Fatalf("Adjust returned error: %v", err)
	}
	if len(runner.calls) != 3 {
		t.Fatalf("expected 3 ffmpeg passes, got %d", len(runner.calls))
	}
	if got := filterOf(runner.calls[0]); got != "atempo=1.25,atempo=1.2,volume=2dB" {
		t.Fatalf("unexpected first pass filter %q", got)
	}
	if got := filterOf(runner.calls[2]); got != "volume=3.9dB,afade=t=in:st=0:d=0.5,afade=t=out:st=19.5:d=0.5" {
		t.Fatalf("unexpected second pass filter %q", got)
	}
	if runner.calls[2][len(runner.calls[2])-1] != out {
		t.Fatalf("expected final pass to write %s", out)
	}
	leftovers, _ := filepath.Glob(filepath.Join(filepath.Dir(out), "tone-*"))
	if len(leftovers) != 0 {
		t.Fatalf("expected temp dir removed, found %v", leftovers)
	}
}

func TestAdjustIdentitySpeedSkipsStages(t *testing.T) {
	in, out := writeInput(t)
	runner := &recordingRunner{}
	adjuster := NewAdjuster(runner, fixedProber(0.2), nil)

	if err := adjuster.Adjust(context.Background(), in, out, Settings{Speed: 1, FadeInMS: 500}); err != nil {
		t.Fatalf("Adjust returned error: %v", err)
	}
	if got := filterOf(runner.calls[0]); got != "anull" {
		t.Fatalf("expected identity first pass, got %q", got)
	}
	if got := filterOf(runner.calls[1]); got != "afade=t=in:st=0:d=0.2" {
		t.Fatalf("expected fade clipped to track length, got %q", got)
	}
}

func TestAdjustFailureRemovesOutput(t *testing.T) {
	in, out := writeInput(t)
	runner := &recordingRunner{failOn: out}
	adjuster := NewAdjuster(runner, fixedProber(10), nil)

	err := adjuster.Adjust(context.Background(), in, out, Settings{Speed: 1.5})
	if !errors.Is(err, services.ErrSynthesis) {
		t.Fatalf("expected ErrSynthesis, got %v", err)
	}
	if _, statErr := os.Stat(out); !os.IsNotExist(statErr) {
		t.Fatalf("expected output removed, stat err=%v", statErr)
	}
}

func TestAdjustRejectsInvalidSettings(t *testing.T) {
	in, out := writeInput(t)
	adjuster := NewAdjuster(&recordingRunner{}, fixedProber(1), nil)
	for _, s := range []Settings{{Speed: 0}, {Speed: 1, FadeInMS: -1}, {Speed: 1, VolumeChangeDB: math.Inf(1)}} {
		if err := adjuster.Adjust(context.Background(), in, out, s); !errors.Is(err, services.ErrInvalidInput) {
			t.Fatalf("expected ErrInvalidInput for %+v, got %v", s, err)
		}
	}
}

func TestNormalizeGain(t *testing.T) {
	if gain, ok := NormalizeGain(-6); !ok || math.Abs(gain-5.9) > 1e-9 {
		t.Fatalf("NormalizeGain(-6) = %v, %v", gain, ok)
	}
	if _, ok := NormalizeGain(math.Inf(-1)); ok {
		t.Fatal("expected silent track to skip normalization")
	}
}
