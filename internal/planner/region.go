// Package planner implements the regional allocation and cross-variant
// deduplication engine: it buckets a scored scene catalog into three temporal
// regions, then selects a budget-constrained, deduplicated subset per variant
// using parity-interleaved selection so sibling variants do not collapse into
// near-duplicates of each other.
package planner

import (
	"sort"

	"github.com/fpang/trailer-forge/internal/scene"
)

// RegionID names one temporal third of the source.
type RegionID string

const (
	RegionEarly  RegionID = "early"
	RegionMiddle RegionID = "middle"
	RegionLate   RegionID = "late"
)

// regionOrder fixes iteration order during planning.
var regionOrder = [3]RegionID{RegionEarly, RegionMiddle, RegionLate}

// Region is one contiguous [Start, End) slice of source time with its
// candidates sorted by score descending.
type Region struct {
	ID      RegionID
	Start   float64
	End     float64
	Members []scene.Candidate
}

// Regionize partitions [0, sourceDuration) into three equal-width regions and
// buckets the catalog by SourceStart. The partition is exhaustive and
// disjoint: every candidate lands in exactly one region. Within a region,
// members sort by score descending with earlier SourceStart breaking ties,
// which keeps selection deterministic for identical inputs.
func Regionize(catalog []scene.Candidate, sourceDuration float64) [3]Region {
	third := sourceDuration / 3

	regions := [3]Region{
		{ID: RegionEarly, Start: 0, End: third},
		{ID: RegionMiddle, Start: third, End: 2 * third},
		{ID: RegionLate, Start: 2 * third, End: sourceDuration},
	}

	for _, c := range catalog {
		switch {
		case c.SourceStart < third:
			regions[0].Members = append(regions[0].Members, c)
		case c.SourceStart < 2*third:
			regions[1].Members = append(regions[1].Members, c)
		default:
			regions[2].Members = append(regions[2].Members, c)
		}
	}

	for i := range regions {
		members := regions[i].Members
		sort.Slice(members, func(a, b int) bool {
			if members[a].Score != members[b].Score {
				return members[a].Score > members[b].Score
			}
			return members[a].SourceStart < members[b].SourceStart
		})
	}
	return regions
}

// AvgSceneDuration returns the mean candidate duration, floored at one
// second. The floor keeps the per-region quota formula finite for degenerate
// catalogs of very short clips.
func AvgSceneDuration(catalog []scene.Candidate) float64 {
	if len(catalog) == 0 {
		return 1
	}
	var total float64
	for _, c := range catalog {
		total += c.Duration()
	}
	avg := total / float64(len(catalog))
	if avg < 1 {
		return 1
	}
	return avg
}
