// Package reconcile computes the common target duration that keeps dubbed
// narration and source video in sync.
package reconcile

import (
	"fmt"
	"math"

	"dubshorts/internal/services"
)

// MediaDurations holds the decoded lengths of the two tracks in seconds.
type MediaDurations struct {
	Video float64
	Voice float64
}

// SpeedPlan is the per-track stretch needed to reach TargetDuration.
// VideoSpeedFactor*TargetDuration equals the video duration and
// VoiceSpeedFactor*TargetDuration equals the voice duration.
type SpeedPlan struct {
	TargetDuration   float64
	VideoSpeedFactor float64
	VoiceSpeedFactor float64
}

// Reconcile returns the plan meeting both tracks halfway.
func Reconcile(video, voice float64) (SpeedPlan, error) {
	if !validDuration(video) {
		return SpeedPlan{}, services.Wrap(services.ErrInvalidInput, "reconcile", "validate durations",
			fmt.Sprintf("video duration must be positive, got %v", video), nil)
	}
	if !validDuration(voice) {
		return SpeedPlan{}, services.Wrap(services.ErrInvalidInput, "reconcile", "validate durations",
			fmt.Sprintf("voice duration must be positive, got %v", voice), nil)
	}
	target := (video + voice) / 2
	return SpeedPlan{
		TargetDuration:   target,
		VideoSpeedFactor: video / target,
		VoiceSpeedFactor: voice / target,
	}, nil
}

// FromDurations is Reconcile for a MediaDurations value.
func FromDurations(d MediaDurations) (SpeedPlan, error) {
	return Reconcile(d.Video, d.Voice)
}

func validDuration(v float64) bool {
	return v > 0 && !math.IsInf(v, 0) && !math.IsNaN(v)
}
