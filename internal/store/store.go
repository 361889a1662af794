// Package store provides persistent trailer-job state. The API Lambda writes
// the job record at submission, the worker Lambda mutates it as the pipeline
// advances, and result polling reads it back, so the state must survive
// Lambda container recycling and concurrent invocations.
//
// Two implementations share one interface: a single-table DynamoDB store for
// the deployed service (all records for a job share the JOB#{jobId} partition
// key; sort keys distinguish META from VARIANT# records, with a TTL attribute
// expiring records after 24 hours) and a SQLite store for local CLI runs.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/fpang/trailer-forge/internal/planner"
	"github.com/fpang/trailer-forge/internal/scene"
	"github.com/fpang/trailer-forge/internal/timeline"
)

// JobTTL is the time-to-live for all job records, matching the S3 media
// lifecycle policy.
const JobTTL = 24 * time.Hour

// ErrNotFound reports a missing job.
var ErrNotFound = errors.New("job not found")

// JobStore is the persistence interface for trailer jobs. Each method is safe
// for concurrent use. Put methods perform full-item replacement.
type JobStore interface {
	// PutJob creates or replaces a job record.
	PutJob(ctx context.Context, job *JobRecord) error

	// GetJob retrieves a job. Returns ErrNotFound for unknown IDs.
	GetJob(ctx context.Context, jobID string) (*JobRecord, error)

	// UpdateJobStatus updates status and pipeline stage without touching
	// other fields.
	UpdateJobStatus(ctx context.Context, jobID, status, stage string) error

	// RequestCancel marks a job for cancellation. The worker observes the
	// flag between pipeline stages.
	RequestCancel(ctx context.Context, jobID string) error

	// PutVariant creates or replaces one assembled variant of a job.
	PutVariant(ctx context.Context, jobID string, v *VariantRecord) error

	// GetVariants retrieves all variants for a job in plan order.
	GetVariants(ctx context.Context, jobID string) ([]*VariantRecord, error)
}

// JobRecord is the persisted job state (DynamoDB SK = META). ID derives from
// the partition key on read.
type JobRecord struct {
	ID              string   `json:"jobId" dynamodbav:"-"`
	ProfileID       string   `json:"profileId" dynamodbav:"profileId"`
	VideoKey        string   `json:"videoKey,omitempty" dynamodbav:"videoKey,omitempty"`
	SourceDuration  float64  `json:"sourceDuration" dynamodbav:"sourceDuration"`
	MaxDuration     float64  `json:"maxDuration" dynamodbav:"maxDuration"`
	Mode            string   `json:"mode,omitempty" dynamodbav:"mode,omitempty"`
	Status          string   `json:"status" dynamodbav:"status"`
	Stage           string   `json:"stage,omitempty" dynamodbav:"stage,omitempty"`
	Warnings        []string `json:"warnings,omitempty" dynamodbav:"warnings,omitempty"`
	Error           string   `json:"error,omitempty" dynamodbav:"error,omitempty"`
	CancelRequested bool     `json:"-" dynamodbav:"cancelRequested"`
	CreatedAt       int64    `json:"createdAt" dynamodbav:"createdAt"`
}

// VariantRecord is one assembled trailer plan (DynamoDB SK =
// VARIANT#{seq}#{name}). Mirrors trailer.Variant for persistence.
type VariantRecord struct {
	Seq               int                  `json:"-" dynamodbav:"seq"`
	Name              string               `json:"name" dynamodbav:"name"`
	Description       string               `json:"description,omitempty" dynamodbav:"description,omitempty"`
	Distribution      planner.Distribution `json:"distribution" dynamodbav:"distribution"`
	Scenes            []scene.Candidate    `json:"scenes" dynamodbav:"scenes"`
	Timeline          []timeline.CutEntry  `json:"timeline" dynamodbav:"timeline"`
	EstimatedDuration float64              `json:"estimatedDuration" dynamodbav:"estimatedDuration"`
	Mode              string               `json:"mode" dynamodbav:"mode"`
}
