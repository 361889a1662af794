// Package timeline converts an already-chosen scene sequence into the cut
// list consumed by renderers. It is purely mechanical: no re-ordering, no
// trimming, no selection decisions.
package timeline

import (
	"errors"

	"github.com/fpang/trailer-forge/internal/scene"
)

// DefaultTransition is applied to every cut.
const DefaultTransition = "fade"

// Audio cues, assigned by where a scene sits in the source.
const (
	CueRise    = "rise"
	CueSteady  = "steady"
	CueResolve = "resolve"
)

// ErrNoScenes reports an assembly call with nothing to assemble. The
// orchestrator treats it as a per-variant failure, not a job failure.
var ErrNoScenes = errors.New("no scenes to assemble")

// CutEntry is one trailer-local timeline instruction. In and Out are
// cumulative offsets within the trailer; adjacent entries are contiguous.
type CutEntry struct {
	SceneID     string  `json:"sceneId" dynamodbav:"sceneId"`
	In          float64 `json:"in" dynamodbav:"in"`
	Out         float64 `json:"out" dynamodbav:"out"`
	SourceStart float64 `json:"sourceStart" dynamodbav:"sourceStart"`
	SourceEnd   float64 `json:"sourceEnd" dynamodbav:"sourceEnd"`
	Transition  string  `json:"transition" dynamodbav:"transition"`
	AudioCue    string  `json:"audioCue" dynamodbav:"audioCue"`
}

// Assemble walks scenes in the given order and emits a contiguous cut list
// plus the estimated trailer duration. The audio cue reflects the scene's
// temporal region in the source: early material rises, late material
// resolves.
func Assemble(scenes []scene.Candidate, sourceDuration float64) ([]CutEntry, float64, error) {
	if len(scenes) == 0 {
		return nil, 0, ErrNoScenes
	}

	entries := make([]CutEntry, 0, len(scenes))
	cursor := 0.0
	for _, c := range scenes {
		d := c.Duration()
		entries = append(entries, CutEntry{
			SceneID:     c.ID,
			In:          cursor,
			Out:         cursor + d,
			SourceStart: c.SourceStart,
			SourceEnd:   c.SourceEnd,
			Transition:  DefaultTransition,
			AudioCue:    cueFor(c.SourceStart, sourceDuration),
		})
		cursor += d
	}
	return entries, cursor, nil
}

func cueFor(sourceStart, sourceDuration float64) string {
	third := sourceDuration / 3
	switch {
	case sourceStart < third:
		return CueRise
	case sourceStart < 2*third:
		return CueSteady
	default:
		return CueResolve
	}
}
