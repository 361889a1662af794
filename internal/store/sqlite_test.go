package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/fpang/trailer-forge/internal/planner"
	"github.com/fpang/trailer-forge/internal/scene"
	"github.com/fpang/trailer-forge/internal/timeline"
)

func openTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := OpenSQLite(filepath.Join(t.TempDir(), "jobs.db"))
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func testJob(id string) *JobRecord {
	return &JobRecord{
		ID:             id,
		ProfileID:      "general",
		VideoKey:       "uploads/" + id + ".mp4",
		SourceDuration: 120,
		MaxDuration:    30,
		Mode:           "mock",
		Status:         "running",
		Stage:          "created",
		CreatedAt:      time.Now().Unix(),
	}
}

func TestSQLiteStore_PutGetJob(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	job := testJob("trailer-abc")
	job.Warnings = []string{"variant heart dropped"}
	if err := s.PutJob(ctx, job); err != nil {
		t.Fatalf("PutJob: %v", err)
	}

	got, err := s.GetJob(ctx, "trailer-abc")
	if err != nil {
		t.Fatalf("GetJob: %v", err)
	}
	if got.ID != job.ID || got.ProfileID != job.ProfileID || got.VideoKey != job.VideoKey {
		t.Errorf("job identity mismatch: got %+v", got)
	}
	if got.Status != "running" || got.Stage != "created" {
		t.Errorf("status/stage = %q/%q, want running/created", got.Status, got.Stage)
	}
	if got.SourceDuration != 120 || got.MaxDuration != 30 {
		t.Errorf("durations = %v/%v, want 120/30", got.SourceDuration, got.MaxDuration)
	}
	if len(got.Warnings) != 1 || got.Warnings[0] != job.Warnings[0] {
		t.Errorf("warnings = %v, want %v", got.Warnings, job.Warnings)
	}
	if got.CancelRequested {
		t.Error("CancelRequested should default to false")
	}
}

func TestSQLiteStore_GetJobNotFound(t *testing.T) {
	s := openTestStore(t)

	_, err := s.GetJob(context.Background(), "trailer-missing")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("GetJob error = %v, want ErrNotFound", err)
	}
}

func TestSQLiteStore_PutJobReplaces(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	job := testJob("trailer-dup")
	if err := s.PutJob(ctx, job); err != nil {
		t.Fatalf("PutJob: %v", err)
	}
	job.Status = "failed"
	job.Error = "analysis provider error"
	if err := s.PutJob(ctx, job); err != nil {
		t.Fatalf("PutJob replace: %v", err)
	}

	got, err := s.GetJob(ctx, "trailer-dup")
	if err != nil {
		t.Fatalf("GetJob: %v", err)
	}
	if got.Status != "failed" || got.Error != "analysis provider error" {
		t.Errorf("replaced job = %q/%q", got.Status, got.Error)
	}
}

func TestSQLiteStore_UpdateJobStatus(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	if err := s.PutJob(ctx, testJob("trailer-upd")); err != nil {
		t.Fatalf("PutJob: %v", err)
	}
	if err := s.UpdateJobStatus(ctx, "trailer-upd", "completed", "assembling"); err != nil {
		t.Fatalf("UpdateJobStatus: %v", err)
	}

	got, err := s.GetJob(ctx, "trailer-upd")
	if err != nil {
		t.Fatalf("GetJob: %v", err)
	}
	if got.Status != "completed" || got.Stage != "assembling" {
		t.Errorf("status/stage = %q/%q, want completed/assembling", got.Status, got.Stage)
	}
	if got.VideoKey == "" {
		t.Error("UpdateJobStatus clobbered other fields")
	}

	if err := s.UpdateJobStatus(ctx, "trailer-missing", "completed", ""); !errors.Is(err, ErrNotFound) {
		t.Errorf("UpdateJobStatus on missing job = %v, want ErrNotFound", err)
	}
}

func TestSQLiteStore_RequestCancel(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	if err := s.PutJob(ctx, testJob("trailer-cx")); err != nil {
		t.Fatalf("PutJob: %v", err)
	}
	if err := s.RequestCancel(ctx, "trailer-cx"); err != nil {
		t.Fatalf("RequestCancel: %v", err)
	}

	got, err := s.GetJob(ctx, "trailer-cx")
	if err != nil {
		t.Fatalf("GetJob: %v", err)
	}
	if !got.CancelRequested {
		t.Error("CancelRequested not set")
	}

	if err := s.RequestCancel(ctx, "trailer-missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("RequestCancel on missing job = %v, want ErrNotFound", err)
	}
}

func TestSQLiteStore_Variants(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	if err := s.PutJob(ctx, testJob("trailer-var")); err != nil {
		t.Fatalf("PutJob: %v", err)
	}

	// Insert out of order to verify sequence ordering on read.
	for _, v := range []*VariantRecord{
		{
			Seq:          2,
			Name:         "finale",
			Distribution: planner.Distribution{Early: 0.10, Middle: 0.30, Late: 0.60},
			Scenes: []scene.Candidate{
				{ID: "sc-1", SourceStart: 90, SourceEnd: 94, Score: 0.8, Labels: []string{"explosion"}},
			},
			Timeline: []timeline.CutEntry{
				{SceneID: "sc-1", In: 0, Out: 4, SourceStart: 90, SourceEnd: 94, Transition: "fade", AudioCue: "resolve"},
			},
			EstimatedDuration: 4,
			Mode:              "mock",
		},
		{Seq: 0, Name: "opening-act", Mode: "mock"},
		{Seq: 1, Name: "heart", Mode: "mock"},
	} {
		if err := s.PutVariant(ctx, "trailer-var", v); err != nil {
			t.Fatalf("PutVariant %s: %v", v.Name, err)
		}
	}

	got, err := s.GetVariants(ctx, "trailer-var")
	if err != nil {
		t.Fatalf("GetVariants: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("got %d variants, want 3", len(got))
	}
	for i, want := range []string{"opening-act", "heart", "finale"} {
		if got[i].Seq != i || got[i].Name != want {
			t.Errorf("variant[%d] = %d/%q, want %d/%q", i, got[i].Seq, got[i].Name, i, want)
		}
	}

	finale := got[2]
	if len(finale.Scenes) != 1 || finale.Scenes[0].ID != "sc-1" {
		t.Errorf("finale scenes = %+v", finale.Scenes)
	}
	if len(finale.Timeline) != 1 || finale.Timeline[0].AudioCue != "resolve" {
		t.Errorf("finale timeline = %+v", finale.Timeline)
	}
	if finale.Distribution.Late != 0.60 {
		t.Errorf("finale distribution = %+v", finale.Distribution)
	}
}

func TestSQLiteStore_PutVariantReplaces(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	if err := s.PutJob(ctx, testJob("trailer-vr")); err != nil {
		t.Fatalf("PutJob: %v", err)
	}
	if err := s.PutVariant(ctx, "trailer-vr", &VariantRecord{Seq: 0, Name: "opening-act", EstimatedDuration: 20}); err != nil {
		t.Fatalf("PutVariant: %v", err)
	}
	if err := s.PutVariant(ctx, "trailer-vr", &VariantRecord{Seq: 0, Name: "opening-act", EstimatedDuration: 28}); err != nil {
		t.Fatalf("PutVariant replace: %v", err)
	}

	got, err := s.GetVariants(ctx, "trailer-vr")
	if err != nil {
		t.Fatalf("GetVariants: %v", err)
	}
	if len(got) != 1 || got[0].EstimatedDuration != 28 {
		t.Errorf("got %+v, want single variant with duration 28", got)
	}
}
