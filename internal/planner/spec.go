package planner

// Distribution is a variant's desired region-duration split. Ratios sum to
// 1.0 up to rounding.
type Distribution struct {
	Early  float64 `json:"early" dynamodbav:"early"`
	Middle float64 `json:"middle" dynamodbav:"middle"`
	Late   float64 `json:"late" dynamodbav:"late"`
}

func (d Distribution) ratio(id RegionID) float64 {
	switch id {
	case RegionEarly:
		return d.Early
	case RegionMiddle:
		return d.Middle
	default:
		return d.Late
	}
}

// VariantSpec describes one requested output flavor. ParityOffset (0 or 1)
// phases the interleaved selection so sibling variants walking the same
// score-sorted region list claim disjoint candidates first.
type VariantSpec struct {
	Name         string       `json:"name"`
	Description  string       `json:"description"`
	Distribution Distribution `json:"distribution"`
	ParityOffset int          `json:"parityOffset"`
}

// DefaultSpecs returns the stock four variants: one per temporal emphasis
// plus a balanced cut, with alternating parity offsets.
func DefaultSpecs() []VariantSpec {
	return []VariantSpec{
		{
			Name:         "opening-act",
			Description:  "Front-loads the first third of the source",
			Distribution: Distribution{Early: 0.60, Middle: 0.30, Late: 0.10},
			ParityOffset: 0,
		},
		{
			Name:         "heart",
			Description:  "Leans on the middle of the story",
			Distribution: Distribution{Early: 0.20, Middle: 0.60, Late: 0.20},
			ParityOffset: 1,
		},
		{
			Name:         "finale",
			Description:  "Builds toward the ending",
			Distribution: Distribution{Early: 0.10, Middle: 0.30, Late: 0.60},
			ParityOffset: 0,
		},
		{
			Name:         "balanced",
			Description:  "Even coverage across the whole source",
			Distribution: Distribution{Early: 0.33, Middle: 0.34, Late: 0.33},
			ParityOffset: 1,
		},
	}
}
