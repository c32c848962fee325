package ytdlp_test

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"slices"
	"testing"

	"dubshorts/internal/logging"
	"dubshorts/internal/services"
	"dubshorts/internal/services/ytdlp"
)

func fakeYTDLP(t *testing.T, files map[string]string) ytdlp.CommandFunc {
	t.Helper()
	return func(_ context.Context, binary string, args []string, onLine func(string)) error {
		if binary != "yt-dlp" {
			t.Fatalf("binary = %q", binary)
		}
		dir := args[slices.Index(args, "-P")+1]
		for name, content := range files {
			if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
				t.Fatalf("write %s: %v", name, err)
			}
		}
		onLine("[download]  42.0% of 3.00MiB")
		onLine("[download] 100% of 3.00MiB")
		return nil
	}
}

func TestFetchWritesNormalizedArtifacts(t *testing.T) {
	dir := t.TempDir()
	client := ytdlp.New("", logging.NewNop(), ytdlp.WithCommand(fakeYTDLP(t, map[string]string{
		ytdlp.VideoFile:      "video",
		ytdlp.InfoFile:       `{"title":" Ocean facts ","description":"Waves","tags":["sea"]}`,
		"yt_video.en.json3": `{"events":[{"segs":[{"utf8":"Hello "},{"utf8":"world"}]},{"segs":[{"utf8":"\n"}]}]}`,
	})))

	result, err := client.Fetch(context.Background(), "https://youtube.com/shorts/abc", dir)
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if result.VideoPath != filepath.Join(dir, ytdlp.VideoFile) {
		t.Fatalf("video path = %q", result.VideoPath)
	}
	if result.Transcript != "Hello world" {
		t.Fatalf("transcript = %q", result.Transcript)
	}
	data, err := os.ReadFile(result.TranscriptPath)
	if err != nil || string(data) != "Hello world" {
		t.Fatalf("transcript file = %q, %v", data, err)
	}

	raw, err := os.ReadFile(result.MetadataPath)
	if err != nil {
		t.Fatalf("read metadata: %v", err)
	}
	var meta ytdlp.Metadata
	if err := json.Unmarshal(raw, &meta); err != nil {
		t.Fatalf("decode metadata: %v", err)
	}
	if meta.Title != "Ocean facts" || meta.Description != "Waves" || !meta.HasTranscript {
		t.Fatalf("metadata = %+v", meta)
	}
	if meta.URL != "https://youtube.com/shorts/abc" || len(meta.Tags) != 1 || meta.Tags[0] != "sea" {
		t.Fatalf("metadata = %+v", meta)
	}
}

func TestFetchWithoutSubtitles(t *testing.T) {
	dir := t.TempDir()
	// Stale transcript from an earlier run must not leak into this one.
	if err := os.WriteFile(filepath.Join(dir, ytdlp.TranscriptFile), []byte("old"), 0o644); err != nil {
		t.Fatal(err)
	}
	client := ytdlp.New("", logging.NewNop(), ytdlp.WithCommand(fakeYTDLP(t, map[string]string{
		ytdlp.VideoFile: "video",
		ytdlp.InfoFile:  `{"title":"Only title"}`,
	})))

	result, err := client.Fetch(context.Background(), "https://youtube.com/shorts/x", dir)
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if result.TranscriptPath != "" || result.Metadata.HasTranscript {
		t.Fatalf("expected no transcript, got %+v", result)
	}
	if _, err := os.Stat(filepath.Join(dir, ytdlp.TranscriptFile)); !os.IsNotExist(err) {
		t.Fatalf("stale transcript survived: %v", err)
	}
	if result.Metadata.Tags == nil {
		t.Fatal("tags should be an empty list, not nil")
	}
}

func TestFetchFailures(t *testing.T) {
	failing := ytdlp.WithCommand(func(context.Context, string, []string, func(string)) error {
		return errors.New("exit status 1")
	})
	client := ytdlp.New("", logging.NewNop(), failing)
	if _, err := client.Fetch(context.Background(), "https://youtube.com/shorts/x", t.TempDir()); !errors.Is(err, services.ErrMediaFetch) {
		t.Fatalf("expected ErrMediaFetch, got %v", err)
	}
	if _, err := client.Fetch(context.Background(), "  ", t.TempDir()); !errors.Is(err, services.ErrMediaFetch) {
		t.Fatalf("expected ErrMediaFetch for empty url, got %v", err)
	}

	noVideo := ytdlp.New("", logging.NewNop(), ytdlp.WithCommand(fakeYTDLP(t, map[string]string{
		ytdlp.InfoFile: `{"title":"x"}`,
	})))
	if _, err := noVideo.Fetch(context.Background(), "https://youtube.com/shorts/x", t.TempDir()); !errors.Is(err, services.ErrMediaFetch) {
		t.Fatalf("expected ErrMediaFetch for missing video, got %v", err)
	}
}

func TestBuildArgs(t *testing.T) {
	args := ytdlp.BuildArgs("https://u", "/work")
	if args[len(args)-1] != "https://u" {
		t.Fatalf("url must be last: %v", args)
	}
	for _, want := range []string{"--no-playlist", "--write-info-json", "--write-subs", "--write-auto-subs"} {
		if !slices.Contains(args, want) {
			t.Fatalf("missing %s in %v", want, args)
		}
	}
}
