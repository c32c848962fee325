package publish

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"dubshorts/internal/config"
	"dubshorts/internal/fileutil"
)

const untitledTitle = "Untitled Video"

// Metadata is the descriptive payload attached to an upload.
type Metadata struct {
	Title       string   `json:"title" yaml:"title"`
	Description string   `json:"description" yaml:"description"`
	Tags        []string `json:"tags" yaml:"tags"`
}

// DefaultMetadata returns the metadata used when no sidecar is present.
func DefaultMetadata(cfg config.Publish) Metadata {
	return Metadata{
		Title:       cfg.DefaultTitle,
		Description: cfg.DefaultDescription,
		Tags:        append([]string(nil), cfg.DefaultTags...),
	}
}

// LoadMetadata reads a JSON (or .yaml/.yml) sidecar. A missing sidecar yields
// defaults and usedDefaults=true. A sidecar that exists but cannot be parsed
// is an error. The returned title always carries marker.
func LoadMetadata(path string, defaults Metadata, marker string) (meta Metadata, usedDefaults bool, err error) {
	if strings.TrimSpace(path) == "" {
		return withMarker(defaults, marker), true, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return withMarker(defaults, marker), true, nil
		}
		return Metadata{}, false, fmt.Errorf("read metadata %s: %w", path, err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &meta)
	default:
		err = json.Unmarshal(data, &meta)
	}
	if err != nil {
		return Metadata{}, false, fmt.Errorf("parse metadata %s: %w", path, err)
	}

	if strings.TrimSpace(meta.Title) == "" {
		meta.Title = untitledTitle
	}
	meta.Title = strings.TrimSpace(meta.Title)
	meta.Tags = cleanTags(meta.Tags)
	return withMarker(meta, marker), false, nil
}

// WriteMetadata stores metadata as an indented JSON sidecar.
func WriteMetadata(path string, meta Metadata) error {
	data, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return fmt.Errorf("encode metadata: %w", err)
	}
	if err := fileutil.WriteFileAtomic(path, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("write metadata: %w", err)
	}
	return nil
}

// EnsureMarker appends marker to title unless it already contains it,
// compared case-insensitively.
func EnsureMarker(title, marker string) string {
	title = strings.TrimSpace(title)
	marker = strings.TrimSpace(marker)
	if marker == "" || strings.Contains(strings.ToLower(title), strings.ToLower(marker)) {
		return title
	}
	if title == "" {
		return marker
	}
	return title + " " + marker
}

func withMarker(meta Metadata, marker string) Metadata {
	meta.Title = EnsureMarker(meta.Title, marker)
	return meta
}

func cleanTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	for _, tag := range tags {
		if trimmed := strings.TrimSpace(tag); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
