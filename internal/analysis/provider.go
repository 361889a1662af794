// Package analysis produces scored scene candidates from a source video.
//
// Two providers share one contract: a Rekognition-backed implementation that
// samples frames and issues per-frame detection calls on a bounded worker
// pool, and a synthetic implementation that derives deterministic candidates
// from the job ID. A supervisor wraps them with timeout and whole-job
// fallback policy so a degraded run is never silently mixed with a real one.
package analysis

import (
	"context"

	"github.com/fpang/trailer-forge/internal/profile"
	"github.com/fpang/trailer-forge/internal/scene"
)

// Provenance modes recorded on jobs.
const (
	ModeAWS  = "aws"
	ModeMock = "mock"
)

// Request carries everything a provider needs for one job.
type Request struct {
	JobID          string
	VideoPath      string // local path to the source; unused by the mock
	SourceDuration float64
	Profile        profile.Profile
}

// Provider is the polymorphic source of the scene catalog.
type Provider interface {
	// Analyze produces the scored candidate set for one job. Errors are
	// *Error values classified by kind.
	Analyze(ctx context.Context, req Request) ([]scene.Candidate, error)

	// Name reports the provenance mode ("aws" or "mock").
	Name() string
}
