package profile

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

// ErrNotFound reports an unknown profile ID.
var ErrNotFound = errors.New("profile not found")

// Store resolves profile IDs to preference vectors. The orchestrator consumes
// this interface only; the backing data is a deployment concern.
type Store interface {
	// Get returns the profile for id, or ErrNotFound.
	Get(ctx context.Context, id string) (Profile, error)
}

// StaticStore serves the built-in personas, optionally patched by overrides.
// Safe for concurrent use.
type StaticStore struct {
	mu       sync.RWMutex
	profiles map[string]Profile
}

var _ Store = (*StaticStore)(nil)

// NewStaticStore returns a store seeded with the built-in personas.
func NewStaticStore() *StaticStore {
	profiles := make(map[string]Profile, len(builtin))
	for id, p := range builtin {
		profiles[id] = p
	}
	return &StaticStore{profiles: profiles}
}

func (s *StaticStore) Get(_ context.Context, id string) (Profile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.profiles[id]
	if !ok {
		return Profile{}, fmt.Errorf("%w: %q", ErrNotFound, id)
	}
	return p, nil
}

// GetOrDefault resolves id, falling back to the general persona for unknown
// IDs. The bool reports whether the unknown-ID fallback was taken; an empty
// id means the default persona and is not a fallback.
func (s *StaticStore) GetOrDefault(ctx context.Context, id string) (Profile, bool) {
	if id == "" {
		id = DefaultProfileID
	}
	p, err := s.Get(ctx, id)
	if err == nil {
		return p, false
	}
	p, _ = s.Get(ctx, DefaultProfileID)
	return p, true
}

// apply merges an override set into the store. Overrides replace whole
// profiles keyed by ID; partial weight maps replace the corresponding map.
func (s *StaticStore) apply(overrides map[string]Profile) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, o := range overrides {
		base, ok := s.profiles[id]
		if !ok {
			o.ID = id
			s.profiles[id] = o
			continue
		}
		if o.Description != "" {
			base.Description = o.Description
		}
		if len(o.LabelWeights) > 0 {
			base.LabelWeights = o.LabelWeights
		}
		if len(o.EmotionWeights) > 0 {
			base.EmotionWeights = o.EmotionWeights
		}
		if o.CelebrityBoost != 0 {
			base.CelebrityBoost = o.CelebrityBoost
		}
		if o.BaseScore != 0 {
			base.BaseScore = o.BaseScore
		}
		s.profiles[id] = base
	}
}
