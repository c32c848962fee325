package selector

import (
	"strings"
)

// DefaultURLKeys is the accessor priority used when none is configured.
var DefaultURLKeys = []string{"orig_url", "shorts_url"}

// DefaultMarker identifies short-form content URLs.
const DefaultMarker = "youtube.com/shorts/"

// Record is one backlog entry as stored on disk.
type Record map[string]any

// WorkItem is a selected backlog URL and its position in the backlog.
type WorkItem struct {
	URL   string
	Index int
}

// Set is the collection of processed URLs.
type Set map[string]struct{}

// Contains reports whether url was already processed.
func (s Set) Contains(url string) bool {
	_, ok := s[url]
	return ok
}

// Options controls candidate extraction.
type Options struct {
	URLKeys []string
	Marker  string
}

func (o Options) withDefaults() Options {
	if len(o.URLKeys) == 0 {
		o.URLKeys = DefaultURLKeys
	}
	if strings.TrimSpace(o.Marker) == "" {
		o.Marker = DefaultMarker
	}
	return o
}

// URL returns the first non-empty string value among keys, in order.
func (r Record) URL(keys []string) (string, bool) {
	for _, key := range keys {
		if value, ok := r[key].(string); ok {
			if trimmed := strings.TrimSpace(value); trimmed != "" {
				return trimmed, true
			}
		}
	}
	return "", false
}

// SelectNext returns the first backlog entry, in stored order, whose URL is
// not in processed and contains the marker.
func SelectNext(backlog []Record, processed Set, opts Options) (WorkItem, bool) {
	opts = opts.withDefaults()
	for i, record := range backlog {
		url, ok := record.URL(opts.URLKeys)
		if !ok {
			continue
		}
		if processed.Contains(url) || !strings.Contains(url, opts.Marker) {
			continue
		}
		return WorkItem{URL: url, Index: i}, true
	}
	return WorkItem{}, false
}

// Pending counts backlog entries that would still qualify for selection.
func Pending(backlog []Record, processed Set, opts Options) int {
	opts = opts.withDefaults()
	seen := make(map[string]struct{})
	count := 0
	for _, record := range backlog {
		url, ok := record.URL(opts.URLKeys)
		if !ok || processed.Contains(url) || !strings.Contains(url, opts.Marker) {
			continue
		}
		if _, dup := seen[url]; dup {
			continue
		}
		seen[url] = struct{}{}
		count++
	}
	return count
}
