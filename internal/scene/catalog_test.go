package scene

import (
	"errors"
	"testing"
)

func TestBuildCatalog_Normalization(t *testing.T) {
	raw := []Candidate{
		{ID: "ok", SourceStart: 10, SourceEnd: 14, Score: 0.5},
		{ID: "clamped", SourceStart: 110, SourceEnd: 130, Score: 0.4},
		{ID: "past-end", SourceStart: 125, SourceEnd: 130, Score: 0.9},
		{ID: "zero-dur", SourceStart: 20, SourceEnd: 20, Score: 0.3},
		{ID: "inverted", SourceStart: 30, SourceEnd: 25, Score: 0.2},
		{ID: "negative", SourceStart: -5, SourceEnd: 3, Score: 0.1},
		{ID: "ok2", SourceStart: 50, SourceEnd: 55, Score: 0.6},
	}

	got, err := BuildCatalog(raw, 120, 2)
	if err != nil {
		t.Fatalf("BuildCatalog returned error: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("expected 3 usable candidates, got %d", len(got))
	}
	for _, c := range got {
		if c.SourceEnd > 120 {
			t.Errorf("candidate %s not clamped: end=%f", c.ID, c.SourceEnd)
		}
		if c.Duration() <= 0 {
			t.Errorf("candidate %s has non-positive duration", c.ID)
		}
	}
	if got[1].ID != "clamped" || got[1].SourceEnd != 120 {
		t.Errorf("expected clamped candidate end at 120, got %+v", got[1])
	}
}

func TestBuildCatalog_Insufficient(t *testing.T) {
	raw := []Candidate{
		{ID: "only", SourceStart: 0, SourceEnd: 4, Score: 0.5},
	}

	got, err := BuildCatalog(raw, 120, 3)
	if !errors.Is(err, ErrInsufficient) {
		t.Fatalf("expected ErrInsufficient, got %v", err)
	}
	// The partial catalog must still be returned so the planner's global
	// fallback can work with it.
	if len(got) != 1 {
		t.Fatalf("expected partial catalog of 1, got %d", len(got))
	}
}

func TestBuildCatalog_DefaultMinimum(t *testing.T) {
	raw := []Candidate{
		{ID: "a", SourceStart: 0, SourceEnd: 4},
		{ID: "b", SourceStart: 10, SourceEnd: 14},
	}
	if _, err := BuildCatalog(raw, 60, 0); !errors.Is(err, ErrInsufficient) {
		t.Fatalf("expected default minimum of %d to apply, got err=%v", DefaultMinScenes, err)
	}
}
