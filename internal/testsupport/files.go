package testsupport

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
)

// WriteFile creates path (and its parents) holding size placeholder bytes.
// A size <= 0 writes a single byte so the file is never empty.
func WriteFile(t testing.TB, path string, size int64) {
	t.Helper()

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir for %s: %v", path, err)
	}
	if err := os.WriteFile(path, bytes.Repeat([]byte{0x42}, int(max(size, 1))), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

// WithBackgroundTrack writes a placeholder file at paths.background_track.
// The content is not decodable audio; it only satisfies existence checks.
func WithBackgroundTrack() ConfigOption {
	return func(b *configBuilder) {
		WriteFile(b.t, b.cfg.Paths.BackgroundTrack, 4096)
	}
}
