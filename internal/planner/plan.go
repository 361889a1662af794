package planner

import (
	"math"
	"sort"

	"github.com/rs/zerolog/log"

	"github.com/fpang/trailer-forge/internal/scene"
)

// maxGlobalFallback caps how many top-scored candidates a variant receives
// when regional selection produces nothing at all.
const maxGlobalFallback = 5

// UsedSet accumulates the scene IDs already claimed by earlier-planned
// variants of the same job. It is threaded through Plan calls as an explicit
// accumulator value; planning must stay sequential across variants because
// each call reads the sets written by the previous ones.
type UsedSet map[string]struct{}

// NewUsedSet returns an empty accumulator.
func NewUsedSet() UsedSet { return make(UsedSet) }

// Has reports whether a scene ID was claimed by an earlier variant.
func (u UsedSet) Has(id string) bool {
	_, ok := u[id]
	return ok
}

// Add claims a scene ID.
func (u UsedSet) Add(id string) { u[id] = struct{}{} }

// Len returns the number of claimed IDs.
func (u UsedSet) Len() int { return len(u) }

// regionQuotas converts a variant's distribution into per-region candidate
// counts. The total scene budget round(maxDuration/avg) is fixed first, then
// split across regions by ratio with a largest-remainder pass, so the
// assembled duration always stays within one average scene of the target.
// Rounding each region independently can overshoot the budget by several
// scenes for mid-heavy distributions. Any region with a positive ratio gets
// at least one slot.
func regionQuotas(d Distribution, avg, maxDuration float64) [3]int {
	total := int(math.Round(maxDuration / avg))
	if total < 1 {
		total = 1
	}

	var quotas [3]int
	var remainders [3]float64
	assigned := 0
	for i, id := range regionOrder {
		share := d.ratio(id) * float64(total)
		quotas[i] = int(math.Floor(share))
		remainders[i] = share - float64(quotas[i])
		assigned += quotas[i]
	}
	for assigned < total {
		best := -1
		for i, id := range regionOrder {
			if d.ratio(id) <= 0 {
				continue
			}
			if best == -1 || remainders[i] > remainders[best] {
				best = i
			}
		}
		if best == -1 {
			break
		}
		quotas[best]++
		remainders[best] = -1
		assigned++
	}
	for i, id := range regionOrder {
		if d.ratio(id) > 0 && quotas[i] == 0 {
			quotas[i] = 1
		}
	}
	return quotas
}

// Plan selects the deduplicated, budget-constrained candidate subset for one
// variant and records every chosen ID into used before returning.
//
// Per region with a positive ratio, the quota comes from regionQuotas, which
// keeps the variant's total scene count within budget. Selection walks
// the region's score-sorted list at indices offset, offset+2, offset+4, ...
// skipping already-used candidates; the parity-interleaved walk spreads
// top-scoring candidates across variants instead of letting every variant
// claim the same best scenes. When unused candidates run out, the region
// quota is filled by reusing claimed candidates, highest score first. A
// variant that still ends empty receives the top-scored candidates across the
// whole catalog so every variant is guaranteed non-empty.
//
// The returned scenes are in chronological source order.
func Plan(spec VariantSpec, regions [3]Region, catalog []scene.Candidate, maxDuration float64, used UsedSet) []scene.Candidate {
	avg := AvgSceneDuration(catalog)

	var chosen []scene.Candidate
	inVariant := make(map[string]struct{})
	take := func(c scene.Candidate) {
		chosen = append(chosen, c)
		inVariant[c.ID] = struct{}{}
	}

	quotas := regionQuotas(spec.Distribution, avg, maxDuration)
	for i, id := range regionOrder {
		if spec.Distribution.ratio(id) <= 0 {
			continue
		}
		quota := quotas[i]
		members := regions[i].Members
		picked := 0

		// Interleaved, dedup-aware pass.
		for idx := spec.ParityOffset; idx < len(members) && picked < quota; idx += 2 {
			c := members[idx]
			if used.Has(c.ID) {
				continue
			}
			take(c)
			picked++
		}

		// Region fallback: fill the remaining quota from the full
		// score-sorted list, reusing claimed candidates if needed.
		for idx := 0; idx < len(members) && picked < quota; idx++ {
			c := members[idx]
			if _, dup := inVariant[c.ID]; dup {
				continue
			}
			take(c)
			picked++
		}

		if picked < quota {
			log.Debug().
				Str("variant", spec.Name).
				Str("region", string(id)).
				Int("picked", picked).
				Int("quota", quota).
				Msg("Region exhausted below quota")
		}
	}

	// Global fallback: degenerate inputs can leave a variant empty (for
	// example an all-zero distribution or an empty catalog slice per
	// region). Hand it the best of the whole catalog, ignoring ratios.
	if len(chosen) == 0 && len(catalog) > 0 {
		byScore := make([]scene.Candidate, len(catalog))
		copy(byScore, catalog)
		sort.Slice(byScore, func(a, b int) bool {
			if byScore[a].Score != byScore[b].Score {
				return byScore[a].Score > byScore[b].Score
			}
			return byScore[a].SourceStart < byScore[b].SourceStart
		})
		n := maxGlobalFallback
		if n > len(byScore) {
			n = len(byScore)
		}
		for _, c := range byScore[:n] {
			take(c)
		}
		log.Warn().
			Str("variant", spec.Name).
			Int("scenes", n).
			Msg("Regional selection empty, using global top-score fallback")
	}

	for _, c := range chosen {
		used.Add(c.ID)
	}

	// Chronological order within the variant, selection order was
	// score/parity driven.
	sort.Slice(chosen, func(a, b int) bool {
		if chosen[a].SourceStart != chosen[b].SourceStart {
			return chosen[a].SourceStart < chosen[b].SourceStart
		}
		return chosen[a].ID < chosen[b].ID
	})
	return chosen
}
