package trailer

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/fpang/trailer-forge/internal/analysis"
	"github.com/fpang/trailer-forge/internal/profile"
	"github.com/fpang/trailer-forge/internal/scene"
	"github.com/fpang/trailer-forge/internal/store"
)

// failingProvider stands in for an unreachable Rekognition backend.
type failingProvider struct{}

func (failingProvider) Name() string { return analysis.ModeAWS }
func (failingProvider) Analyze(context.Context, analysis.Request) ([]scene.Candidate, error) {
	return nil, errors.New("rekognition unreachable")
}

// memStore is an in-memory JobStore for orchestrator tests.
type memStore struct {
	mu       sync.Mutex
	jobs     map[string]*store.JobRecord
	variants map[string][]*store.VariantRecord
	stages   []string
}

func newMemStore() *memStore {
	return &memStore{
		jobs:     make(map[string]*store.JobRecord),
		variants: make(map[string][]*store.VariantRecord),
	}
}

func (m *memStore) PutJob(_ context.Context, job *store.JobRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *job
	m.jobs[job.ID] = &cp
	return nil
}

func (m *memStore) GetJob(_ context.Context, jobID string) (*store.JobRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	job, ok := m.jobs[jobID]
	if !ok {
		return nil, store.ErrNotFound
	}
	cp := *job
	return &cp, nil
}

func (m *memStore) UpdateJobStatus(_ context.Context, jobID, status, stage string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	job, ok := m.jobs[jobID]
	if !ok {
		return store.ErrNotFound
	}
	job.Status = status
	job.Stage = stage
	m.stages = append(m.stages, stage)
	return nil
}

func (m *memStore) RequestCancel(_ context.Context, jobID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	job, ok := m.jobs[jobID]
	if !ok {
		return store.ErrNotFound
	}
	job.CancelRequested = true
	return nil
}

func (m *memStore) PutVariant(_ context.Context, jobID string, v *store.VariantRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *v
	m.variants[jobID] = append(m.variants[jobID], &cp)
	return nil
}

func (m *memStore) GetVariants(_ context.Context, jobID string) ([]*store.VariantRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.variants[jobID], nil
}

func newTestOrchestrator(js store.JobStore) *Orchestrator {
	sup := analysis.NewSupervisor(nil, analysis.NewMockProvider(), time.Second)
	return NewOrchestrator(sup, profile.NewStaticStore(), js, DefaultFallbackPolicy(), 0)
}

func seedJob(t *testing.T, js store.JobStore, id string) {
	t.Helper()
	err := js.PutJob(context.Background(), &store.JobRecord{
		ID:        id,
		ProfileID: "general",
		Status:    StatusRunning,
		Stage:     StageCreated,
		CreatedAt: time.Now().Unix(),
	})
	if err != nil {
		t.Fatalf("seed job: %v", err)
	}
}

func TestRun_CompletesWithMockAnalysis(t *testing.T) {
	js := newMemStore()
	seedJob(t, js, "trailer-run")
	o := newTestOrchestrator(js)

	res, err := o.Run(context.Background(), Request{
		JobID:          "trailer-run",
		ProfileID:      "general",
		SourceDuration: 120,
		MaxDuration:    30,
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if res.Status != StatusCompleted {
		t.Errorf("status = %s, want %s (warnings: %v)", res.Status, StatusCompleted, res.Warnings)
	}
	if res.Mode != analysis.ModeMock {
		t.Errorf("mode = %s, want mock", res.Mode)
	}
	if len(res.Variants) != 4 {
		t.Fatalf("variants = %d, want 4 defaults", len(res.Variants))
	}
	for _, v := range res.Variants {
		if len(v.Scenes) == 0 || len(v.Timeline) == 0 {
			t.Errorf("variant %s is empty", v.Name)
		}
		if v.EstimatedDuration <= 0 {
			t.Errorf("variant %s estimated duration = %v", v.Name, v.EstimatedDuration)
		}
		if v.Mode != analysis.ModeMock {
			t.Errorf("variant %s mode = %s", v.Name, v.Mode)
		}
	}

	// Final store state is terminal with persisted variants.
	job, err := js.GetJob(context.Background(), "trailer-run")
	if err != nil {
		t.Fatalf("GetJob: %v", err)
	}
	if job.Status != StatusCompleted {
		t.Errorf("stored status = %s", job.Status)
	}
	if job.Mode != analysis.ModeMock {
		t.Errorf("stored mode = %s, want mock", job.Mode)
	}
	variants, _ := js.GetVariants(context.Background(), "trailer-run")
	if len(variants) != 4 {
		t.Errorf("stored variants = %d, want 4", len(variants))
	}

	wantStages := []string{StageAnalyzing, StagePlanning, StageAssembling}
	if len(js.stages) != len(wantStages) {
		t.Fatalf("stage transitions = %v", js.stages)
	}
	for i, s := range wantStages {
		if js.stages[i] != s {
			t.Errorf("stage[%d] = %s, want %s", i, js.stages[i], s)
		}
	}
}

func TestRun_ProfileFallbackWarning(t *testing.T) {
	var buf bytes.Buffer
	prev := log.Logger
	log.Logger = zerolog.New(&buf)
	t.Cleanup(func() { log.Logger = prev })

	js := newMemStore()
	o := newTestOrchestrator(js)

	// A known non-default profile resolves directly and must not be
	// reported as unknown.
	seedJob(t, js, "trailer-prof-known")
	_, err := o.Run(context.Background(), Request{
		JobID:          "trailer-prof-known",
		ProfileID:      "action-fan",
		SourceDuration: 120,
		MaxDuration:    30,
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if strings.Contains(buf.String(), "Unknown profile") {
		t.Errorf("known profile logged a fallback warning:\n%s", buf.String())
	}

	buf.Reset()
	seedJob(t, js, "trailer-prof-unknown")
	_, err = o.Run(context.Background(), Request{
		JobID:          "trailer-prof-unknown",
		ProfileID:      "does-not-exist",
		SourceDuration: 120,
		MaxDuration:    30,
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !strings.Contains(buf.String(), "Unknown profile") {
		t.Error("unknown profile did not log a fallback warning")
	}
}

func TestRun_InvalidDuration(t *testing.T) {
	js := newMemStore()
	seedJob(t, js, "trailer-bad")
	o := newTestOrchestrator(js)

	_, err := o.Run(context.Background(), Request{
		JobID:          "trailer-bad",
		SourceDuration: 60,
		MaxDuration:    90,
	})
	if !errors.Is(err, ErrInvalidDuration) {
		t.Fatalf("err = %v, want ErrInvalidDuration", err)
	}

	job, _ := js.GetJob(context.Background(), "trailer-bad")
	if job.Status != StatusFailed || job.Error == "" {
		t.Errorf("stored job = %s/%q, want failed with error", job.Status, job.Error)
	}
}

func TestRun_RefusesTerminalJob(t *testing.T) {
	js := newMemStore()
	seedJob(t, js, "trailer-done")
	_ = js.UpdateJobStatus(context.Background(), "trailer-done", StatusCompleted, StageAssembling)
	js.stages = nil
	o := newTestOrchestrator(js)

	_, err := o.Run(context.Background(), Request{
		JobID:          "trailer-done",
		SourceDuration: 120,
		MaxDuration:    30,
	})
	if !errors.Is(err, ErrJobTerminal) {
		t.Fatalf("err = %v, want ErrJobTerminal", err)
	}
	if len(js.stages) != 0 {
		t.Errorf("terminal job must not transition, got %v", js.stages)
	}
}

func TestRun_CancelBetweenStages(t *testing.T) {
	js := newMemStore()
	seedJob(t, js, "trailer-cancel")
	if err := js.RequestCancel(context.Background(), "trailer-cancel"); err != nil {
		t.Fatalf("RequestCancel: %v", err)
	}
	o := newTestOrchestrator(js)

	_, err := o.Run(context.Background(), Request{
		JobID:          "trailer-cancel",
		SourceDuration: 120,
		MaxDuration:    30,
	})
	if !errors.Is(err, ErrCancelled) {
		t.Fatalf("err = %v, want ErrCancelled", err)
	}

	job, _ := js.GetJob(context.Background(), "trailer-cancel")
	if job.Status != StatusFailed {
		t.Errorf("stored status = %s, want failed", job.Status)
	}
}

func TestRun_ProviderFallbackProducesMockVariants(t *testing.T) {
	js := newMemStore()
	seedJob(t, js, "trailer-fb")
	sup := analysis.NewSupervisor(failingProvider{}, analysis.NewMockProvider(), time.Second)
	o := NewOrchestrator(sup, profile.NewStaticStore(), js, DefaultFallbackPolicy(), 0)

	res, err := o.Run(context.Background(), Request{
		JobID:          "trailer-fb",
		ProfileID:      "general",
		SourceDuration: 120,
		MaxDuration:    30,
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.Mode != analysis.ModeMock {
		t.Errorf("mode = %s, want mock after whole-job fallback", res.Mode)
	}
	if len(res.Variants) == 0 {
		t.Error("fallback run must still produce variants")
	}
	for _, v := range res.Variants {
		if v.Mode != analysis.ModeMock {
			t.Errorf("variant %s mode = %s, want mock (no partial mixing)", v.Name, v.Mode)
		}
	}
}

func TestRun_Deterministic(t *testing.T) {
	run := func() *Result {
		js := newMemStore()
		seedJob(t, js, "trailer-det")
		o := newTestOrchestrator(js)
		res, err := o.Run(context.Background(), Request{
			JobID:          "trailer-det",
			ProfileID:      "action-fan",
			SourceDuration: 300,
			MaxDuration:    45,
		})
		if err != nil {
			t.Fatalf("Run: %v", err)
		}
		return res
	}

	a, b := run(), run()
	if len(a.Variants) != len(b.Variants) {
		t.Fatalf("variant counts differ: %d vs %d", len(a.Variants), len(b.Variants))
	}
	for i := range a.Variants {
		av, bv := a.Variants[i], b.Variants[i]
		if av.Name != bv.Name || len(av.Scenes) != len(bv.Scenes) {
			t.Errorf("variant %d differs: %s/%d vs %s/%d", i, av.Name, len(av.Scenes), bv.Name, len(bv.Scenes))
			continue
		}
		for j := range av.Scenes {
			if av.Scenes[j].ID != bv.Scenes[j].ID {
				t.Errorf("variant %s scene %d: %s vs %s", av.Name, j, av.Scenes[j].ID, bv.Scenes[j].ID)
			}
		}
	}
}

func TestRun_BudgetHeld(t *testing.T) {
	js := newMemStore()
	seedJob(t, js, "trailer-budget")
	o := newTestOrchestrator(js)

	res, err := o.Run(context.Background(), Request{
		JobID:          "trailer-budget",
		ProfileID:      "general",
		SourceDuration: 240,
		MaxDuration:    30,
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	// Mock scenes run 3-6s; the budget may be exceeded by at most one
	// average scene length.
	for _, v := range res.Variants {
		if v.EstimatedDuration > 30+6 {
			t.Errorf("variant %s duration %.1f exceeds budget tolerance", v.Name, v.EstimatedDuration)
		}
	}
}
