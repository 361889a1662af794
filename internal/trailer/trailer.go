// Package trailer orchestrates the job pipeline: analysis, planning, and
// assembly, with state transitions persisted through the job store so client
// polling always sees where a job is.
package trailer

import (
	"errors"

	"github.com/fpang/trailer-forge/internal/planner"
	"github.com/fpang/trailer-forge/internal/scene"
	"github.com/fpang/trailer-forge/internal/timeline"
)

// Job statuses. Terminal statuses are immutable once written.
const (
	StatusRunning               = "running"
	StatusCompleted             = "completed"
	StatusCompletedWithWarnings = "completed_with_warnings"
	StatusFailed                = "failed"
)

// Pipeline stages, recorded alongside the status for progress reporting.
const (
	StageCreated    = "created"
	StageAnalyzing  = "analyzing"
	StagePlanning   = "planning"
	StageAssembling = "assembling"
)

// IsTerminal reports whether a status admits no further transitions.
func IsTerminal(status string) bool {
	return status == StatusCompleted || status == StatusCompletedWithWarnings || status == StatusFailed
}

var (
	// ErrInvalidDuration rejects a requested trailer length that is
	// non-positive or exceeds the source duration.
	ErrInvalidDuration = errors.New("invalid trailer duration")

	// ErrAllVariantsFailed reports that no variant survived assembly.
	ErrAllVariantsFailed = errors.New("all variants failed assembly")

	// ErrCancelled reports a job stopped by a client cancel request.
	ErrCancelled = errors.New("job cancelled")

	// ErrJobTerminal rejects running a job already in a terminal state.
	ErrJobTerminal = errors.New("job already terminal")
)

// Request describes one trailer job for the orchestrator.
type Request struct {
	JobID          string
	ProfileID      string
	VideoPath      string // local source path; unused in mock mode
	SourceDuration float64
	MaxDuration    float64

	// Specs overrides the default variant set when non-empty.
	Specs []planner.VariantSpec
}

// Variant is one assembled trailer cut. Immutable after assembly.
type Variant struct {
	Name              string               `json:"name"`
	Description       string               `json:"description"`
	Distribution      planner.Distribution `json:"distribution"`
	Scenes            []scene.Candidate    `json:"scenes"`
	Timeline          []timeline.CutEntry  `json:"timeline"`
	EstimatedDuration float64              `json:"estimatedDuration"`
	Mode              string               `json:"mode"`
}

// Result is the orchestrator's terminal output for a job.
type Result struct {
	JobID    string    `json:"jobId"`
	Status   string    `json:"status"`
	Mode     string    `json:"mode"`
	Variants []Variant `json:"variants"`
	Warnings []string  `json:"warnings,omitempty"`
}

// FallbackPolicy encodes every degradation decision the orchestrator makes,
// in one value, so behavior under failure is visible at construction time.
type FallbackPolicy struct {
	// ContinueOnInsufficientScenes keeps planning with a sparse catalog,
	// recording a warning, instead of failing the job.
	ContinueOnInsufficientScenes bool

	// DropFailedVariants drops a variant whose assembly fails and records
	// a warning; the job fails only when no variant survives.
	DropFailedVariants bool
}

// DefaultFallbackPolicy degrades gracefully everywhere.
func DefaultFallbackPolicy() FallbackPolicy {
	return FallbackPolicy{
		ContinueOnInsufficientScenes: true,
		DropFailedVariants:           true,
	}
}
