package main

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/fpang/trailer-forge/internal/timeline"
)

func TestVariantView_TimelineShape(t *testing.T) {
	view := variantView{
		Name: "opening-act",
		Timeline: []timeline.CutEntry{
			{SceneID: "scene-1", In: 0, Out: 4.5, SourceStart: 10, SourceEnd: 14.5, Transition: timeline.DefaultTransition, AudioCue: timeline.CueRise},
		},
		EstimatedDuration: 4.5,
	}

	raw, err := json.Marshal(view)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	for _, field := range []string{`"sceneId":"scene-1"`, `"in":0`, `"out":4.5`, `"transition":"fade"`, `"audioCue":"rise"`} {
		if !strings.Contains(string(raw), field) {
			t.Errorf("response missing %s:\n%s", field, raw)
		}
	}
}
