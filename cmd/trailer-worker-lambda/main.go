// Package main is the worker Lambda: it receives {jobId} events dispatched
// by the API Lambda, pulls the source video from S3, runs the trailer
// pipeline, and announces completion on EventBridge for downstream renderers.
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/aws/aws-lambda-go/lambda"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/eventbridge"
	"github.com/aws/aws-sdk-go-v2/service/rekognition"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
	"github.com/rs/zerolog/log"

	"github.com/fpang/trailer-forge/internal/analysis"
	"github.com/fpang/trailer-forge/internal/bundle"
	"github.com/fpang/trailer-forge/internal/config"
	"github.com/fpang/trailer-forge/internal/events"
	"github.com/fpang/trailer-forge/internal/jobs"
	"github.com/fpang/trailer-forge/internal/logging"
	"github.com/fpang/trailer-forge/internal/profile"
	"github.com/fpang/trailer-forge/internal/s3util"
	"github.com/fpang/trailer-forge/internal/store"
	"github.com/fpang/trailer-forge/internal/trailer"
)

var (
	cfg          *config.Config
	jobStore     store.JobStore
	s3Client     *s3.Client
	eventsClient *eventbridge.Client
	orchestrator *trailer.Orchestrator
)

func init() {
	initStart := time.Now()

	var err error
	cfg, err = config.Load()
	if err != nil {
		logging.Init("info")
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}
	logging.Init(cfg.LogLevel)

	awsCfg, err := awsconfig.LoadDefaultConfig(context.Background())
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load AWS config")
	}

	jobStore = store.NewDynamoStore(dynamodb.NewFromConfig(awsCfg), cfg.TableName)
	s3Client = s3.NewFromConfig(awsCfg)
	eventsClient = eventbridge.NewFromConfig(awsCfg)

	profiles := profile.NewStaticStore()
	if cfg.ProfileOverridesParam != "" {
		ssmClient := ssm.NewFromConfig(awsCfg)
		if err := profiles.LoadOverridesFromSSM(context.Background(), ssmClient, cfg.ProfileOverridesParam); err != nil {
			// Built-in personas still work; don't fail the cold start.
			log.Warn().Err(err).Msg("Profile overrides unavailable, using built-ins")
		}
	}

	var primary analysis.Provider
	if cfg.AnalysisMode == analysis.ModeAWS {
		primary = analysis.NewRekognitionProvider(
			rekognition.NewFromConfig(awsCfg),
			cfg.AnalysisConcurrency,
			cfg.AnalysisCallTimeout(),
		)
	}
	supervisor := analysis.NewSupervisor(primary, analysis.NewMockProvider(), cfg.PipelineDeadline())

	orchestrator = trailer.NewOrchestrator(supervisor, profiles, jobStore, trailer.DefaultFallbackPolicy(), cfg.MinScenes)

	logging.NewStartupLogger("trailer-worker-lambda").
		DynamoTable("jobs", cfg.TableName).
		S3Bucket("media", cfg.MediaBucket).
		SSMParam("profileOverrides", cfg.ProfileOverridesParam).
		EventBus("completions", cfg.EventBusName).
		Config("analysisMode", cfg.AnalysisMode).
		Config("analysisConcurrency", fmt.Sprint(cfg.AnalysisConcurrency)).
		InitDuration(time.Since(initStart)).
		Log()
}

// workerEvent is the payload from the API Lambda.
type workerEvent struct {
	JobID string `json:"jobId"`
}

func handle(ctx context.Context, event workerEvent) error {
	if event.JobID == "" {
		return fmt.Errorf("missing jobId in worker event")
	}
	log.Info().Str("job", event.JobID).Msg("Worker received job")

	job, err := jobStore.GetJob(ctx, event.JobID)
	if err != nil {
		return fmt.Errorf("load job %s: %w", event.JobID, err)
	}

	req := trailer.Request{
		JobID:          job.ID,
		ProfileID:      job.ProfileID,
		SourceDuration: job.SourceDuration,
		MaxDuration:    job.MaxDuration,
	}

	// The source is staged locally when real analysis needs frames from it
	// or when the duration is unknown and must be probed; a mock-mode job
	// that already carries its duration never touches S3.
	if stageSource(job.VideoKey, cfg.AnalysisMode, job.SourceDuration) {
		localPath, cleanup, err := s3util.DownloadToTempFile(ctx, s3Client, cfg.MediaBucket, job.VideoKey)
		if err != nil {
			failAndNotify(ctx, job, fmt.Sprintf("fetch source video: %v", err))
			return fmt.Errorf("fetch source video: %w", err)
		}
		defer cleanup()
		req.VideoPath = localPath

		if req.SourceDuration <= 0 {
			dur, err := analysis.ProbeDuration(ctx, localPath)
			if err != nil {
				failAndNotify(ctx, job, fmt.Sprintf("probe source duration: %v", err))
				return fmt.Errorf("probe source duration: %w", err)
			}
			req.SourceDuration = dur
			job.SourceDuration = dur
			if err := jobStore.PutJob(ctx, job); err != nil {
				log.Warn().Err(err).Str("job", job.ID).Msg("Failed to persist probed duration")
			}
		}
	}

	result, runErr := orchestrator.Run(ctx, req)
	if runErr != nil {
		// The orchestrator already persisted the failed status.
		notify(ctx, job.ID, job.ProfileID, trailer.StatusFailed, nil, nil, runErr.Error())
		return fmt.Errorf("run job %s: %w", job.ID, runErr)
	}

	uploadPlanBundle(ctx, result)

	names := make([]string, len(result.Variants))
	for i, v := range result.Variants {
		names[i] = v.Name
	}
	notify(ctx, result.JobID, job.ProfileID, result.Status, names, result.Warnings, "")
	return nil
}

// uploadPlanBundle pushes the plan as a compressed ZIP so clients can fetch
// everything in one presigned download. Best-effort: the variants are already
// persisted, so a missing bundle never fails the job.
func uploadPlanBundle(ctx context.Context, result *trailer.Result) {
	tmp, err := os.CreateTemp("", "trailer-plan-*.zip")
	if err != nil {
		log.Warn().Err(err).Str("job", result.JobID).Msg("Plan bundle skipped")
		return
	}
	tmp.Close()
	defer os.Remove(tmp.Name())

	if err := bundle.Write(tmp.Name(), result, nil); err != nil {
		log.Warn().Err(err).Str("job", result.JobID).Msg("Plan bundle not written")
		return
	}
	key := s3util.ResultKey(result.JobID, "plan.zip")
	if err := s3util.UploadFile(ctx, s3Client, cfg.MediaBucket, key, tmp.Name(), "application/zip"); err != nil {
		log.Warn().Err(err).Str("job", result.JobID).Msg("Plan bundle not uploaded")
	}
}

// stageSource reports whether the worker must download the source video:
// real analysis extracts frames from it, and an unknown duration has to be
// probed locally regardless of the analysis mode.
func stageSource(videoKey, mode string, sourceDuration float64) bool {
	if videoKey == "" {
		return false
	}
	return mode == analysis.ModeAWS || sourceDuration <= 0
}

// failAndNotify persists a pre-pipeline failure and emits the completion
// event for it.
func failAndNotify(ctx context.Context, job *store.JobRecord, msg string) {
	err := jobs.Fail(ctx, job.ID, msg, func(ctx context.Context, _, errMsg string) error {
		job.Status = trailer.StatusFailed
		job.Error = errMsg
		return jobStore.PutJob(ctx, job)
	})
	if err != nil {
		log.Error().Err(err).Str("job", job.ID).Msg("Failed to persist job failure")
	}
	notify(ctx, job.ID, job.ProfileID, trailer.StatusFailed, nil, nil, msg)
}

func notify(ctx context.Context, jobID, profileID, status string, variantNames, warnings []string, errMsg string) {
	if eventsClient == nil {
		return
	}
	err := events.EmitJobCompleted(ctx, eventsClient, cfg.EventBusName, events.JobCompleted{
		JobID:        jobID,
		Status:       status,
		ProfileID:    profileID,
		VariantNames: variantNames,
		Warnings:     warnings,
		Error:        errMsg,
	})
	if err != nil {
		// Downstream consumers poll as a backup; don't fail the job over
		// a notification.
		log.Warn().Err(err).Str("job", jobID).Msg("Completion event not delivered")
	}
}

func main() {
	lambda.Start(handle)
}
