package reconcile_test

import (
	"errors"
	"math"
	"testing"

	"dubshorts/internal/reconcile"
	"dubshorts/internal/services"
)

const tolerance = 1e-6

func TestReconcileMeetsHalfway(t *testing.T) {
	plan, err := reconcile.Reconcile(40, 50)
	if err != nil {
		t.Fatalf("Reconcile returned error: %v", err)
	}
	if plan.TargetDuration != 45 {
		t.Fatalf("target = %v, want 45", plan.TargetDuration)
	}
	if math.Abs(plan.VideoSpeedFactor-0.888889) > 1e-5 {
		t.Fatalf("video factor = %v, want ~0.8889", plan.VideoSpeedFactor)
	}
	if math.Abs(plan.VoiceSpeedFactor-1.111111) > 1e-5 {
		t.Fatalf("voice factor = %v, want ~1.1111", plan.VoiceSpeedFactor)
	}
}

func TestReconcileInvariantHolds(t *testing.T) {
	cases := [][2]float64{
		{0.01, 600}, {12.5, 12.5}, {59.94, 31.2}, {1, 1e4}, {3600, 0.5},
	}
	for _, tc := range cases {
		video, voice := tc[0], tc[1]
		plan, err := reconcile.FromDurations(reconcile.MediaDurations{Video: video, Voice: voice})
		if err != nil {
			t.Fatalf("Reconcile(%v, %v) error: %v", video, voice, err)
		}
		if math.Abs(plan.TargetDuration-(video+voice)/2) > tolerance {
			t.Fatalf("target mismatch for %v/%v: %v", video, voice, plan.TargetDuration)
		}
		if math.Abs(plan.VideoSpeedFactor*plan.TargetDuration-video) > tolerance {
			t.Fatalf("video invariant broken for %v/%v", video, voice)
		}
		if math.Abs(plan.VoiceSpeedFactor*plan.TargetDuration-voice) > tolerance {
			t.Fatalf("voice invariant broken for %v/%v", video, voice)
		}
	}
}

func TestReconcileRejectsNonPositive(t *testing.T) {
	cases := [][2]float64{
		{0, 10}, {10, 0}, {-1, 10}, {10, -3}, {math.NaN(), 1}, {1, math.Inf(1)},
	}
	for _, tc := range cases {
		if _, err := reconcile.Reconcile(tc[0], tc[1]); !errors.Is(err, services.ErrInvalidInput) {
			t.Fatalf("Reconcile(%v, %v) error = %v, want ErrInvalidInput", tc[0], tc[1], err)
		}
	}
}
