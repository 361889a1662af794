// Package profile supplies audience-persona preference vectors and the
// weighting function that turns detected labels, emotions, and people into
// the persona-fit score carried on every scene candidate.
//
// The mapping is a static weighting function, not a trained model. Profiles
// ship built in; deployments can override individual weights through an SSM
// parameter loaded at cold start (see overrides.go).
package profile

import (
	"sort"
	"strings"

	"github.com/fpang/trailer-forge/internal/scene"
)

// DefaultProfileID is used when a request names no profile or an unknown one.
const DefaultProfileID = "general"

// Profile is one audience persona's preference vector.
type Profile struct {
	ID             string             `json:"id" koanf:"id"`
	Description    string             `json:"description" koanf:"description"`
	LabelWeights   map[string]float64 `json:"labelWeights" koanf:"label_weights"`
	EmotionWeights map[string]float64 `json:"emotionWeights" koanf:"emotion_weights"`
	CelebrityBoost float64            `json:"celebrityBoost" koanf:"celebrity_boost"`
	BaseScore      float64            `json:"baseScore" koanf:"base_score"`
}

// Score weighs detected content against the preference vector and returns a
// fit score in [0, 1]. Matching is case-insensitive on label and emotion
// names. Recognized people contribute CelebrityBoost scaled by the strongest
// match confidence.
func (p Profile) Score(labels, emotions []string, people []scene.Person) float64 {
	s := p.BaseScore
	for _, l := range labels {
		s += p.LabelWeights[strings.ToLower(l)]
	}
	for _, e := range emotions {
		s += p.EmotionWeights[strings.ToLower(e)]
	}
	if len(people) > 0 {
		best := 0.0
		for _, person := range people {
			if person.Confidence > best {
				best = person.Confidence
			}
		}
		s += p.CelebrityBoost * best
	}
	if s < 0 {
		return 0
	}
	if s > 1 {
		return 1
	}
	return s
}

// builtin holds the stock personas. Weights are tuned so that a typical
// candidate with two or three matching labels lands mid-range, leaving
// headroom for emotion and celebrity contributions.
var builtin = map[string]Profile{
	"general": {
		ID:          "general",
		Description: "Broad audience with no strong genre preference",
		LabelWeights: map[string]float64{
			"person": 0.10, "crowd": 0.10, "city": 0.08, "nature": 0.08,
			"music": 0.08, "food": 0.06, "sunset": 0.08, "night": 0.06,
		},
		EmotionWeights: map[string]float64{
			"happy": 0.10, "surprised": 0.08, "excited": 0.10, "calm": 0.04,
		},
		CelebrityBoost: 0.15,
		BaseScore:      0.20,
	},
	"action-fan": {
		ID:          "action-fan",
		Description: "Viewers drawn to motion, sports, and high energy",
		LabelWeights: map[string]float64{
			"car": 0.14, "sports": 0.16, "crowd": 0.10, "city": 0.08,
			"night": 0.08, "music": 0.06, "outdoor": 0.06,
		},
		EmotionWeights: map[string]float64{
			"excited": 0.14, "surprised": 0.12, "happy": 0.06,
		},
		CelebrityBoost: 0.10,
		BaseScore:      0.15,
	},
	"family": {
		ID:          "family",
		Description: "Family viewing: warm, calm, people-centric moments",
		LabelWeights: map[string]float64{
			"person": 0.14, "food": 0.12, "nature": 0.12, "outdoor": 0.10,
			"sunset": 0.10, "crowd": 0.04,
		},
		EmotionWeights: map[string]float64{
			"happy": 0.16, "calm": 0.12, "excited": 0.06,
		},
		CelebrityBoost: 0.05,
		BaseScore:      0.18,
	},
	"drama-lover": {
		ID:          "drama-lover",
		Description: "Viewers who respond to faces, emotion, and quiet tension",
		LabelWeights: map[string]float64{
			"person": 0.16, "night": 0.10, "city": 0.08, "sunset": 0.10,
		},
		EmotionWeights: map[string]float64{
			"sad": 0.12, "confused": 0.10, "surprised": 0.10, "calm": 0.08,
			"happy": 0.04,
		},
		CelebrityBoost: 0.20,
		BaseScore:      0.15,
	},
}

// IDs returns the known profile IDs in stable order.
func IDs() []string {
	ids := make([]string, 0, len(builtin))
	for id := range builtin {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
