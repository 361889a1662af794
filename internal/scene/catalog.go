package scene

import (
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"
)

// DefaultMinScenes is the usable-candidate count below which a catalog is
// flagged insufficient.
const DefaultMinScenes = 3

// ErrInsufficient reports a catalog with too few usable candidates. It is a
// recorded condition, not a job failure: the planner's global fallback still
// produces a non-empty result for every variant, and the orchestrator marks
// the job completed_with_warnings.
var ErrInsufficient = errors.New("insufficient usable scene candidates")

// BuildCatalog validates and normalizes raw provider output into the
// immutable candidate set used by the planner. Candidates starting at or past
// the end of the source are dropped, SourceEnd is clamped to sourceDuration,
// and anything left with a non-positive duration is dropped.
//
// The returned slice is always usable, even when ErrInsufficient accompanies
// it.
func BuildCatalog(raw []Candidate, sourceDuration float64, minScenes int) ([]Candidate, error) {
	if minScenes <= 0 {
		minScenes = DefaultMinScenes
	}

	out := make([]Candidate, 0, len(raw))
	for _, c := range raw {
		if c.SourceStart < 0 || c.SourceStart >= sourceDuration {
			log.Debug().
				Str("scene", c.ID).
				Float64("start", c.SourceStart).
				Float64("sourceDuration", sourceDuration).
				Msg("Dropping candidate outside source range")
			continue
		}
		if c.SourceEnd > sourceDuration {
			c.SourceEnd = sourceDuration
		}
		if c.SourceEnd <= c.SourceStart {
			log.Debug().Str("scene", c.ID).Msg("Dropping candidate with non-positive duration")
			continue
		}
		out = append(out, c)
	}

	if len(out) < minScenes {
		return out, fmt.Errorf("%w: %d usable, %d required", ErrInsufficient, len(out), minScenes)
	}
	return out, nil
}
