package main

import (
	"testing"

	"github.com/fpang/trailer-forge/internal/analysis"
)

func TestStageSource(t *testing.T) {
	cases := []struct {
		name           string
		videoKey       string
		mode           string
		sourceDuration float64
		want           bool
	}{
		{"aws mode always stages", "v.mp4", analysis.ModeAWS, 120, true},
		{"aws mode without duration", "v.mp4", analysis.ModeAWS, 0, true},
		{"mock with known duration skips", "v.mp4", analysis.ModeMock, 120, false},
		{"mock without duration must probe", "v.mp4", analysis.ModeMock, 0, true},
		{"no video never stages", "", analysis.ModeAWS, 0, false},
		{"no video in mock", "", analysis.ModeMock, 0, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := stageSource(tc.videoKey, tc.mode, tc.sourceDuration)
			if got != tc.want {
				t.Errorf("stageSource(%q, %s, %.0f) = %v, want %v",
					tc.videoKey, tc.mode, tc.sourceDuration, got, tc.want)
			}
		})
	}
}
