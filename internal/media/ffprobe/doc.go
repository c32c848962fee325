// Package ffprobe wraps ffprobe JSON output for duration and stream checks.
//
// The pipeline needs three numbers from every run: the source video length,
// the synthesized narration length, and the background track length. Prober
// returns them via Duration; tests replace Run to avoid spawning ffprobe.
package ffprobe
