package analysis

import (
	"context"
	"fmt"
	"hash/fnv"
	"math/rand"
	"sort"

	"github.com/rs/zerolog/log"

	"github.com/fpang/trailer-forge/internal/scene"
)

// Synthetic vocabularies. Kept small so profile weights have predictable
// leverage over the resulting scores.
var (
	mockLabels   = []string{"outdoor", "city", "crowd", "car", "sunset", "sports", "music", "food", "nature", "night", "person"}
	mockEmotions = []string{"happy", "calm", "surprised", "excited", "confused", "sad"}
	mockPeople   = []string{"Alex Morgan", "Jamie Lee", "Chris Park"}
)

// MockProvider derives a candidate catalog deterministically from the job ID:
// the same job ID always yields byte-identical candidates, making every
// downstream stage reproducible without the external dependency.
type MockProvider struct{}

var _ Provider = (*MockProvider)(nil)

// NewMockProvider returns the synthetic provider.
func NewMockProvider() *MockProvider { return &MockProvider{} }

func (m *MockProvider) Name() string { return ModeMock }

func (m *MockProvider) Analyze(ctx context.Context, req Request) ([]scene.Candidate, error) {
	if err := ctx.Err(); err != nil {
		return nil, timeoutErr("mock analyze", err)
	}

	rng := rand.New(rand.NewSource(seedFor(req.JobID)))
	count := 10 + rng.Intn(6)

	// Spread candidates evenly with jitter so each temporal region is
	// populated, matching the shape the frame-sampling provider emits.
	slot := req.SourceDuration / float64(count)
	out := make([]scene.Candidate, 0, count)
	for i := 0; i < count; i++ {
		start := float64(i)*slot + rng.Float64()*slot*0.3
		dur := 3 + rng.Float64()*3
		end := start + dur
		if end > req.SourceDuration {
			end = req.SourceDuration
		}
		if end <= start {
			continue
		}

		labels := pick(rng, mockLabels, 2+rng.Intn(3))
		emotions := pick(rng, mockEmotions, 1+rng.Intn(2))
		var people []scene.Person
		if rng.Float64() < 0.3 {
			people = []scene.Person{{
				Name:       mockPeople[rng.Intn(len(mockPeople))],
				Confidence: 0.5 + rng.Float64()*0.5,
			}}
		}

		out = append(out, scene.Candidate{
			ID:          fmt.Sprintf("%s-scene-%02d", req.JobID, i),
			SourceStart: start,
			SourceEnd:   end,
			Score:       req.Profile.Score(labels, emotions, people),
			Labels:      labels,
			Emotions:    emotions,
			People:      people,
		})
	}

	log.Debug().
		Str("job", req.JobID).
		Int("candidates", len(out)).
		Msg("Synthetic analysis complete")
	return out, nil
}

// seedFor hashes the job ID so reruns of the same job reproduce exactly.
func seedFor(jobID string) int64 {
	h := fnv.New64a()
	h.Write([]byte(jobID))
	return int64(h.Sum64())
}

// pick samples n distinct entries from vocab in sorted order. Sorting keeps
// the output independent of selection order, which matters for the
// byte-for-byte determinism guarantee.
func pick(rng *rand.Rand, vocab []string, n int) []string {
	if n > len(vocab) {
		n = len(vocab)
	}
	idx := rng.Perm(len(vocab))[:n]
	out := make([]string, n)
	for i, j := range idx {
		out[i] = vocab[j]
	}
	sort.Strings(out)
	return out
}
