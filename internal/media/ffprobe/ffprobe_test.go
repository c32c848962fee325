package ffprobe

import (
	"context"
	"errors"
	"strings"
	"testing"
)

func TestResultHelpers(t *testing.T) {
	result := Result{
		Streams: []Stream{
			{CodecType: "video", Duration: "12.0"},
			{CodecType: "audio", Duration: "12.5"},
		},
		Format: Format{Size: "1000"},
	}
	if !result.HasVideo() || !result.HasAudio() {
		t.Fatal("expected video and audio streams")
	}
	if result.DurationSeconds() != 12.5 {
		t.Fatalf("expected stream duration fallback, got %v", result.DurationSeconds())
	}
	if result.SizeBytes() != 1000 {
		t.Fatalf("unexpected size: %d", result.SizeBytes())
	}
	result.Format.Duration = "30.25"
	if result.DurationSeconds() != 30.25 {
		t.Fatalf("expected container duration, got %v", result.DurationSeconds())
	}
}

func TestResultHelpersHandleInvalidNumbers(t *testing.T) {
	result := Result{Format: Format{Duration: "bad", Size: "-1"}}
	if result.DurationSeconds() != 0 {
		t.Fatalf("expected duration 0, got %v", result.DurationSeconds())
	}
	if result.SizeBytes() != 0 {
		t.Fatalf("expected size 0, got %d", result.SizeBytes())
	}
}

func TestProberDuration(t *testing.T) {
	var gotArgs []string
	prober := &Prober{
		Binary: "/opt/ffprobe",
		Run: func(_ context.Context, binary string, args ...string) ([]byte, error) {
			if binary != "/opt/ffprobe" {
				t.Fatalf("unexpected binary %q", binary)
			}
			gotArgs = args
			return []byte(`{"streams":[{"codec_type":"audio"}],"format":{"duration":"41.7"}}`), nil
		},
	}
	seconds, err := prober.Duration(context.Background(), "/work/voice.mp3")
	if err != nil {
		t.Fatalf("Duration returned error: %v", err)
	}
	if seconds != 41.7 {
		t.Fatalf("unexpected duration %v", seconds)
	}
	if gotArgs[len(gotArgs)-1] != "/work/voice.mp3" || gotArgs[len(gotArgs)-2] != "--" {
		t.Fatalf("expected path after --, got %v", gotArgs)
	}
}

func TestProberDurationErrors(t *testing.T) {
	failing := &Prober{Run: func(context.Context, string, ...string) ([]byte, error) {
		return []byte("No such file"), errors.New("exit status 1")
	}}
	if _, err := failing.Duration(context.Background(), "missing.mp4"); err == nil || !strings.Contains(err.Error(), "No such file") {
		t.Fatalf("expected ffprobe stderr in error, got %v", err)
	}

	empty := &Prober{Run: func(context.Context, string, ...string) ([]byte, error) {
		return []byte(`{"format":{}}`), nil
	}}
	if _, err := empty.Duration(context.Background(), "x.mp4"); err == nil {
		t.Fatal("expected error for missing duration")
	}

	if _, err := New("").Inspect(context.Background(), " "); err == nil {
		t.Fatal("expected error for empty path")
	}
}
