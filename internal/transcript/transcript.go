// Package transcript turns downloaded subtitle tracks into plain narration
// text.
package transcript

import (
	"encoding/json"
	"regexp"
	"strings"

	"golang.org/x/text/unicode/norm"
)

var (
	headerPattern    = regexp.MustCompile(`(?m)^(WEBVTT|Kind:|Language:).*$`)
	cueTimingPattern = regexp.MustCompile(`(?m)^\d{2}:\d{2}:\d{2}\.\d{3}\s*-->\s*\d{2}:\d{2}:\d{2}\.\d{3}.*$`)
	bracketTimestamp = regexp.MustCompile(`\[\d{2}:\d{2}:\d{2}\]`)
	cueSettings      = regexp.MustCompile(`align:\w+\s+position:\d+%`)
	inlineTimestamp  = regexp.MustCompile(`<[\d:.]+>`)
	inlineClassTag   = regexp.MustCompile(`</?c[^>]*>`)
)

// Clean converts raw subtitle data into single-spaced text. YouTube json3
// payloads are detected first; anything else is treated as WebVTT or plain
// text. The result is NFC-normalized.
func Clean(raw string) string {
	var text string
	if parsed, ok := parseJSON3(raw); ok {
		text = parsed
	} else {
		text = parseWebVTT(raw)
	}
	return norm.NFC.String(collapseSpaces(text))
}

type json3Payload struct {
	Events *[]struct {
		Segs []struct {
			UTF8 string `json:"utf8"`
		} `json:"segs"`
	} `json:"events"`
}

func parseJSON3(raw string) (string, bool) {
	var payload json3Payload
	if err := json.Unmarshal([]byte(raw), &payload); err != nil || payload.Events == nil {
		return "", false
	}
	var parts []string
	for _, event := range *payload.Events {
		for _, seg := range event.Segs {
			if text := strings.TrimSpace(seg.UTF8); text != "" {
				parts = append(parts, text)
			}
		}
	}
	return strings.Join(parts, " "), true
}

// parseWebVTT strips cue metadata and drops repeated caption lines. Auto
// captions repeat each line as it scrolls, so only the first occurrence of a
// line is kept.
func parseWebVTT(raw string) string {
	text := strings.ReplaceAll(raw, "\r\n", "\n")
	text = headerPattern.ReplaceAllString(text, "")
	text = cueTimingPattern.ReplaceAllString(text, "")
	text = bracketTimestamp.ReplaceAllString(text, "")
	text = cueSettings.ReplaceAllString(text, "")
	text = inlineTimestamp.ReplaceAllString(text, "")
	text = inlineClassTag.ReplaceAllString(text, "")

	seen := make(map[string]struct{})
	var lines []string
	for line := range strings.SplitSeq(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if _, dup := seen[line]; dup {
			continue
		}
		seen[line] = struct{}{}
		lines = append(lines, line)
	}
	return strings.Join(lines, " ")
}

func collapseSpaces(text string) string {
	return strings.Join(strings.Fields(text), " ")
}

// FromMetadata builds fallback narration text from a title and description
// when no transcript is available.
func FromMetadata(title, description string) string {
	parts := make([]string, 0, 2)
	for _, value := range []string{title, description} {
		if trimmed := strings.TrimSpace(value); trimmed != "" {
			parts = append(parts, trimmed)
		}
	}
	return norm.NFC.String(collapseSpaces(strings.Join(parts, ". ")))
}
