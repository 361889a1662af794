package analysis

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/fpang/trailer-forge/internal/scene"
)

// stubProvider scripts one provider behavior for supervisor tests.
type stubProvider struct {
	name   string
	out    []scene.Candidate
	err    error
	hang   bool
	called int
}

func (s *stubProvider) Name() string { return s.name }

func (s *stubProvider) Analyze(ctx context.Context, _ Request) ([]scene.Candidate, error) {
	s.called++
	if s.hang {
		<-ctx.Done()
		return nil, timeoutErr("stub", ctx.Err())
	}
	if s.err != nil {
		return nil, s.err
	}
	return s.out, nil
}

func TestSupervisor_PrimarySucceeds(t *testing.T) {
	primary := &stubProvider{name: ModeAWS, out: []scene.Candidate{{ID: "a", SourceStart: 0, SourceEnd: 4}}}
	fallback := &stubProvider{name: ModeMock}
	s := NewSupervisor(primary, fallback, time.Second)

	got, mode, err := s.Analyze(context.Background(), Request{JobID: "j"})
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if mode != ModeAWS || len(got) != 1 {
		t.Errorf("expected aws result, got mode=%s len=%d", mode, len(got))
	}
	if fallback.called != 0 {
		t.Error("fallback must not run when the primary succeeds")
	}
}

func TestSupervisor_FallbackOnProviderError(t *testing.T) {
	primary := &stubProvider{name: ModeAWS, err: providerErr("DetectLabels", errors.New("throttled"))}
	fallback := &stubProvider{name: ModeMock, out: []scene.Candidate{{ID: "m", SourceStart: 0, SourceEnd: 3}}}
	s := NewSupervisor(primary, fallback, time.Second)

	got, mode, err := s.Analyze(context.Background(), Request{JobID: "j"})
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if mode != ModeMock {
		t.Errorf("expected mode mock after fallback, got %s", mode)
	}
	if len(got) != 1 || got[0].ID != "m" {
		t.Errorf("expected fallback candidates only, got %v", got)
	}
}

func TestSupervisor_FallbackOnDeadline(t *testing.T) {
	primary := &stubProvider{name: ModeAWS, hang: true}
	fallback := &stubProvider{name: ModeMock, out: []scene.Candidate{{ID: "m", SourceStart: 0, SourceEnd: 3}}}
	s := NewSupervisor(primary, fallback, 20*time.Millisecond)

	start := time.Now()
	_, mode, err := s.Analyze(context.Background(), Request{JobID: "j"})
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if mode != ModeMock {
		t.Errorf("expected fallback after deadline, got mode %s", mode)
	}
	if time.Since(start) > time.Second {
		t.Error("supervisor did not enforce its pipeline deadline")
	}
}

func TestSupervisor_NoPrimaryGoesStraightToFallback(t *testing.T) {
	fallback := &stubProvider{name: ModeMock, out: []scene.Candidate{{ID: "m", SourceStart: 0, SourceEnd: 3}}}
	s := NewSupervisor(nil, fallback, time.Second)

	_, mode, err := s.Analyze(context.Background(), Request{JobID: "j"})
	if err != nil || mode != ModeMock {
		t.Fatalf("expected direct mock run, got mode=%s err=%v", mode, err)
	}
	if s.ActiveBackend() != ModeMock {
		t.Errorf("ActiveBackend = %s", s.ActiveBackend())
	}
}

func TestSupervisor_JobCancellationIsNotMasked(t *testing.T) {
	primary := &stubProvider{name: ModeAWS, hang: true}
	fallback := &stubProvider{name: ModeMock}
	s := NewSupervisor(primary, fallback, time.Minute)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()

	_, _, err := s.Analyze(ctx, Request{JobID: "j"})
	if err == nil {
		t.Fatal("expected error when the job itself is canceled")
	}
	if fallback.called != 0 {
		t.Error("canceled job must not fall back to synthetic analysis")
	}
}
