// Package ffmpeg runs ffmpeg and builds the filter expressions shared by the
// tone adjuster and the mixer.
//
// Runner is the only place that spawns a process; tests substitute a
// recording runner and assert on the generated argument slices.
package ffmpeg
