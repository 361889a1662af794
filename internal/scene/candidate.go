// Package scene defines the scene-candidate model produced by video analysis
// and the catalog normalization step that runs before any planning.
package scene

// Person is a recognized person on a candidate, ordered by confidence.
type Person struct {
	Name       string  `json:"name" dynamodbav:"name"`
	Confidence float64 `json:"confidence" dynamodbav:"confidence"`
}

// Candidate is one scored, timestamped moment of the source video.
// Candidates are immutable once the catalog for a job has been built.
type Candidate struct {
	ID          string   `json:"sceneId" dynamodbav:"sceneId"`
	SourceStart float64  `json:"sourceStart" dynamodbav:"sourceStart"`
	SourceEnd   float64  `json:"sourceEnd" dynamodbav:"sourceEnd"`
	Score       float64  `json:"score" dynamodbav:"score"`
	Labels      []string `json:"labels,omitempty" dynamodbav:"labels,omitempty"`
	Emotions    []string `json:"emotions,omitempty" dynamodbav:"emotions,omitempty"`
	People      []Person `json:"people,omitempty" dynamodbav:"people,omitempty"`
}

// Duration returns the candidate length in seconds.
func (c Candidate) Duration() float64 {
	return c.SourceEnd - c.SourceStart
}
