package publish

import (
	"os"
	"path/filepath"
	"testing"

	"dubshorts/internal/config"
)

func TestEnsureMarker(t *testing.T) {
	tests := []struct {
		title, want string
	}{
		{"My clip", "My clip #shorts"},
		{"My clip #Shorts", "My clip #Shorts"},
		{"#SHORTS first", "#SHORTS first"},
		{"", "#shorts"},
	}
	for _, tt := range tests {
		if got := EnsureMarker(tt.title, "#shorts"); got != tt.want {
			t.Fatalf("EnsureMarker(%q) = %q, want %q", tt.title, got, tt.want)
		}
	}
}

func TestLoadMetadataMissingUsesDefaults(t *testing.T) {
	defaults := DefaultMetadata(config.Default().Publish)
	meta, usedDefaults, err := LoadMetadata(filepath.Join(t.TempDir(), "yt_metadata.json"), defaults, "#shorts")
	if err != nil {
		t.Fatalf("LoadMetadata returned error: %v", err)
	}
	if !usedDefaults || meta.Title != "#shorts" || len(meta.Tags) != 5 {
		t.Fatalf("unexpected defaults %+v (used=%v)", meta, usedDefaults)
	}
}

func TestLoadMetadataJSONAndYAML(t *testing.T) {
	dir := t.TempDir()
	jsonPath := filepath.Join(dir, "yt_metadata.json")
	if err := WriteMetadata(jsonPath, Metadata{Title: "Cat wins", Description: "d", Tags: []string{" cats ", ""}}); err != nil {
		t.Fatalf("WriteMetadata: %v", err)
	}
	meta, usedDefaults, err := LoadMetadata(jsonPath, Metadata{}, "#shorts")
	if err != nil || usedDefaults {
		t.Fatalf("LoadMetadata json: %v (used=%v)", err, usedDefaults)
	}
	if meta.Title != "Cat wins #shorts" || len(meta.Tags) != 1 || meta.Tags[0] != "cats" {
		t.Fatalf("unexpected json metadata %+v", meta)
	}

	yamlPath := filepath.Join(dir, "meta.yaml")
	if err := os.WriteFile(yamlPath, []byte("description: only a description\ntags: [a, b]\n"), 0o644); err != nil {
		t.Fatalf("write yaml: %v", err)
	}
	meta, _, err = LoadMetadata(yamlPath, Metadata{}, "#shorts")
	if err != nil {
		t.Fatalf("LoadMetadata yaml: %v", err)
	}
	if meta.Title != "Untitled Video #shorts" || meta.Description != "only a description" || len(meta.Tags) != 2 {
		t.Fatalf("unexpected yaml metadata %+v", meta)
	}
}

func TestLoadMetadataRejectsMalformed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.json")
	if err := os.WriteFile(path, []byte("{"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, _, err := LoadMetadata(path, Metadata{}, "#shorts"); err == nil {
		t.Fatal("expected parse error")
	}
}
