package ffmpeg

import (
	"errors"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
)

const (
	atempoMin = 0.5
	atempoMax = 100.0
)

var maxVolumePattern = regexp.MustCompile(`max_volume:\s*(-?[\d.]+|-inf)\s*dB`)

// Num formats a float for filter expressions without exponent notation.
func Num(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// Atempo returns an atempo filter chain for factor. ffmpeg accepts 0.5 to 100
// per instance, so factors outside that range are decomposed into chained
// filters whose product equals factor.
func Atempo(factor float64) (string, error) {
	if factor <= 0 || math.IsNaN(factor) || math.IsInf(factor, 0) {
		return "", fmt.Errorf("atempo: invalid factor %v", factor)
	}
	var parts []string
	remaining := factor
	for remaining < atempoMin {
		parts = append(parts, "atempo="+Num(atempoMin))
		remaining /= atempoMin
	}
	for remaining > atempoMax {
		parts = append(parts, "atempo="+Num(atempoMax))
		remaining /= atempoMax
	}
	parts = append(parts, "atempo="+Num(remaining))
	return strings.Join(parts, ","), nil
}

// VolumeDB returns a gain filter in decibels.
func VolumeDB(db float64) string {
	return "volume=" + Num(db) + "dB"
}

// VolumeLinear returns a linear gain filter.
func VolumeLinear(multiplier float64) string {
	return "volume=" + Num(multiplier)
}

// FadeIn returns an afade-in filter of the given length in seconds.
func FadeIn(seconds float64) string {
	return "afade=t=in:st=0:d=" + Num(seconds)
}

// FadeOut returns an afade-out filter ending at trackSeconds.
func FadeOut(seconds, trackSeconds float64) string {
	start := max(trackSeconds-seconds, 0)
	return "afade=t=out:st=" + Num(start) + ":d=" + Num(seconds)
}

// Chain joins filters, returning "anull" when empty so that an audio graph is
// always present.
func Chain(filters ...string) string {
	var kept []string
	for _, f := range filters {
		if strings.TrimSpace(f) != "" {
			kept = append(kept, f)
		}
	}
	if len(kept) == 0 {
		return "anull"
	}
	return strings.Join(kept, ",")
}

// VolumeDetectArgs returns arguments for a peak measurement pass over input.
func VolumeDetectArgs(input string) []string {
	args := Preamble(true)
	return append(args, "-i", input, "-af", "volumedetect", "-vn", "-sn", "-dn", "-f", "null", "-")
}

// ParseMaxVolume extracts the peak level in dBFS from volumedetect output.
func ParseMaxVolume(stderr string) (float64, error) {
	match := maxVolumePattern.FindStringSubmatch(stderr)
	if match == nil {
		return 0, errors.New("volumedetect: max_volume not reported")
	}
	if match[1] == "-inf" {
		return math.Inf(-1), nil
	}
	value, err := strconv.ParseFloat(match[1], 64)
	if err != nil {
		return 0, fmt.Errorf("volumedetect: parse %q: %w", match[1], err)
	}
	return value, nil
}
