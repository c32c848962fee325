package testsupport

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"dubshorts/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// It defaults common fields and applies any provided options.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.WorkDir = filepath.Join(base, "work")
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")
	cfgVal.Paths.StateDir = filepath.Join(base, "state")
	cfgVal.Paths.BacklogFile = filepath.Join(base, "shorts_links.json")
	cfgVal.Paths.ProcessedFile = filepath.Join(base, "state", "process_track.json")
	cfgVal.Paths.BackgroundTrack = filepath.Join(base, "assets", "background.mp3")
	cfgVal.Paths.APIBind = "127.0.0.1:0"
	cfgVal.Schedule.DailyCron = ""
	cfgVal.Schedule.WatchBacklog = false
	cfgVal.Notifications.NtfyTopic = ""
	cfgVal.Publish.AccessToken = "test-token"

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}

	for _, opt := range opts {
		opt(builder)
	}

	return builder.cfg
}

// WithBacklog writes the given entries as the backlog JSON array.
func WithBacklog(entries ...map[string]any) ConfigOption {
	return func(b *configBuilder) {
		if entries == nil {
			entries = []map[string]any{}
		}
		data, err := json.MarshalIndent(entries, "", "  ")
		if err != nil {
			b.t.Fatalf("marshal backlog: %v", err)
		}
		if err := os.WriteFile(b.cfg.Paths.BacklogFile, data, 0o644); err != nil {
			b.t.Fatalf("write backlog: %v", err)
		}
	}
}

// WithAPIBind overrides the daemon API bind address. An empty value disables the API.
func WithAPIBind(bind string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Paths.APIBind = bind
	}
}

// WithStubbedBinaries writes stub executables for the provided names and
// prepends them to PATH. If names is empty, the default dubshorts external
// binaries are stubbed.
func WithStubbedBinaries(names ...string) ConfigOption {
	return func(b *configBuilder) {
		if len(names) == 0 {
			names = []string{"ffmpeg", "ffprobe", "yt-dlp", "edge-tts"}
		}
		binDir := filepath.Join(b.baseDir, "bin")
		if err := os.MkdirAll(binDir, 0o755); err != nil {
			b.t.Fatalf("mkdir bin dir: %v", err)
		}
		script := []byte("#!/bin/sh\nexit 0\n")
		for _, name := range names {
			target := filepath.Join(binDir, name)
			if err := os.WriteFile(target, script, 0o755); err != nil {
				b.t.Fatalf("write stub %s: %v", name, err)
			}
		}

		oldPath := os.Getenv("PATH")
		if err := os.Setenv("PATH", binDir+string(os.PathListSeparator)+oldPath); err != nil {
			b.t.Fatalf("set PATH: %v", err)
		}
		b.t.Cleanup(func() {
			_ = os.Setenv("PATH", oldPath)
		})
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.WorkDir)
}
