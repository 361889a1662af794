package trailer

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/fpang/trailer-forge/internal/analysis"
	"github.com/fpang/trailer-forge/internal/metrics"
	"github.com/fpang/trailer-forge/internal/planner"
	"github.com/fpang/trailer-forge/internal/profile"
	"github.com/fpang/trailer-forge/internal/scene"
	"github.com/fpang/trailer-forge/internal/store"
	"github.com/fpang/trailer-forge/internal/timeline"
)

// DefaultCancelPollInterval is how often the orchestrator checks the store
// for a client cancel request while analysis runs.
const DefaultCancelPollInterval = 2 * time.Second

// Orchestrator drives a job through analysis, planning, and assembly.
type Orchestrator struct {
	analyzer  *analysis.Supervisor
	profiles  *profile.StaticStore
	jobs      store.JobStore
	policy    FallbackPolicy
	minScenes int

	cancelPollInterval time.Duration
}

// NewOrchestrator wires the pipeline. minScenes <= 0 selects the default.
func NewOrchestrator(analyzer *analysis.Supervisor, profiles *profile.StaticStore, jobs store.JobStore, policy FallbackPolicy, minScenes int) *Orchestrator {
	if minScenes <= 0 {
		minScenes = scene.DefaultMinScenes
	}
	return &Orchestrator{
		analyzer:           analyzer,
		profiles:           profiles,
		jobs:               jobs,
		policy:             policy,
		minScenes:          minScenes,
		cancelPollInterval: DefaultCancelPollInterval,
	}
}

// Run executes the pipeline for one job. The job record must already exist
// in the store; Run refuses jobs in a terminal state. On any terminal
// outcome, the store reflects the final status before Run returns.
func (o *Orchestrator) Run(ctx context.Context, req Request) (*Result, error) {
	job, err := o.jobs.GetJob(ctx, req.JobID)
	if err != nil {
		return nil, fmt.Errorf("load job: %w", err)
	}
	if IsTerminal(job.Status) {
		return nil, fmt.Errorf("%w: %s is %s", ErrJobTerminal, req.JobID, job.Status)
	}

	if req.MaxDuration <= 0 || req.MaxDuration > req.SourceDuration {
		err := fmt.Errorf("%w: maxDuration %.1f for source %.1f", ErrInvalidDuration, req.MaxDuration, req.SourceDuration)
		o.fail(ctx, req.JobID, err.Error())
		return nil, err
	}

	rec := metrics.ForJob(req.JobID).Dimension("Stage", "pipeline")
	defer rec.Flush()

	specs := req.Specs
	if len(specs) == 0 {
		specs = planner.DefaultSpecs()
	}

	prof, fellBack := o.profiles.GetOrDefault(ctx, req.ProfileID)
	if fellBack {
		log.Warn().Str("job", req.JobID).Str("profile", req.ProfileID).Msg("Unknown profile, using default weights")
	}

	// Analysis. A cancel watcher polls the store and tears down the
	// analysis context so a cancel request interrupts in-flight provider
	// calls instead of waiting for the stage boundary.
	if err := o.advance(ctx, req.JobID, StageAnalyzing); err != nil {
		return nil, err
	}

	analysisCtx, stopWatch := o.watchCancel(ctx, req.JobID)
	rec.StageStart("Analysis")
	candidates, mode, aerr := o.analyzer.Analyze(analysisCtx, analysis.Request{
		JobID:          req.JobID,
		VideoPath:      req.VideoPath,
		SourceDuration: req.SourceDuration,
		Profile:        prof,
	})
	rec.StageEnd("Analysis")
	stopWatch()

	if cancelErr := o.checkCancelled(ctx, req.JobID); cancelErr != nil {
		return nil, cancelErr
	}
	if aerr != nil {
		rec.Count("AnalysisFailures")
		o.fail(ctx, req.JobID, fmt.Sprintf("analysis failed: %v", aerr))
		return nil, fmt.Errorf("analysis: %w", aerr)
	}
	if mode == analysis.ModeMock && o.analyzer.ActiveBackend() != analysis.ModeMock {
		rec.Count("ProviderFallbacks")
	}

	var warnings []string

	catalog, catErr := scene.BuildCatalog(candidates, req.SourceDuration, o.minScenes)
	if catErr != nil {
		if !errors.Is(catErr, scene.ErrInsufficient) || !o.policy.ContinueOnInsufficientScenes {
			o.fail(ctx, req.JobID, fmt.Sprintf("scene catalog: %v", catErr))
			return nil, fmt.Errorf("scene catalog: %w", catErr)
		}
		warnings = append(warnings, fmt.Sprintf("sparse scene catalog: %d usable scenes", len(catalog)))
		log.Warn().Str("job", req.JobID).Int("scenes", len(catalog)).Msg("Continuing with sparse scene catalog")
	}

	// Planning. Variants are planned sequentially against one shared used
	// set so cross-variant overlap stays bounded.
	if err := o.advance(ctx, req.JobID, StagePlanning); err != nil {
		return nil, err
	}
	if cancelErr := o.checkCancelled(ctx, req.JobID); cancelErr != nil {
		return nil, cancelErr
	}

	rec.StageStart("Planning")
	regions := planner.Regionize(catalog, req.SourceDuration)
	used := planner.NewUsedSet()
	planned := make(map[string][]scene.Candidate, len(specs))
	for _, spec := range specs {
		planned[spec.Name] = planner.Plan(spec, regions, catalog, req.MaxDuration, used)
	}
	rec.StageEnd("Planning")

	// Assembly.
	if err := o.advance(ctx, req.JobID, StageAssembling); err != nil {
		return nil, err
	}
	if cancelErr := o.checkCancelled(ctx, req.JobID); cancelErr != nil {
		return nil, cancelErr
	}

	rec.StageStart("Assembly")
	variants := make([]Variant, 0, len(specs))
	for _, spec := range specs {
		cuts, estimated, asmErr := timeline.Assemble(planned[spec.Name], req.SourceDuration)
		if asmErr != nil {
			if !o.policy.DropFailedVariants {
				o.fail(ctx, req.JobID, fmt.Sprintf("assemble %s: %v", spec.Name, asmErr))
				return nil, fmt.Errorf("assemble %s: %w", spec.Name, asmErr)
			}
			warnings = append(warnings, fmt.Sprintf("variant %s dropped: %v", spec.Name, asmErr))
			log.Warn().Err(asmErr).Str("job", req.JobID).Str("variant", spec.Name).Msg("Variant dropped")
			continue
		}
		variants = append(variants, Variant{
			Name:              spec.Name,
			Description:       spec.Description,
			Distribution:      spec.Distribution,
			Scenes:            planned[spec.Name],
			Timeline:          cuts,
			EstimatedDuration: estimated,
			Mode:              mode,
		})
	}
	rec.StageEnd("Assembly")
	rec.Metric("VariantsAssembled", float64(len(variants)), metrics.UnitCount)

	if len(variants) == 0 {
		o.fail(ctx, req.JobID, ErrAllVariantsFailed.Error())
		return nil, ErrAllVariantsFailed
	}

	for i, v := range variants {
		if err := o.jobs.PutVariant(ctx, req.JobID, &store.VariantRecord{
			Seq:               i,
			Name:              v.Name,
			Description:       v.Description,
			Distribution:      v.Distribution,
			Scenes:            v.Scenes,
			Timeline:          v.Timeline,
			EstimatedDuration: v.EstimatedDuration,
			Mode:              v.Mode,
		}); err != nil {
			o.fail(ctx, req.JobID, fmt.Sprintf("persist variant %s: %v", v.Name, err))
			return nil, fmt.Errorf("persist variant %s: %w", v.Name, err)
		}
	}

	status := StatusCompleted
	if len(warnings) > 0 {
		status = StatusCompletedWithWarnings
	}
	if err := o.finish(ctx, req.JobID, status, mode, warnings); err != nil {
		return nil, err
	}

	log.Info().
		Str("job", req.JobID).
		Str("status", status).
		Str("mode", mode).
		Int("variants", len(variants)).
		Int("warnings", len(warnings)).
		Msg("Trailer job finished")

	return &Result{
		JobID:    req.JobID,
		Status:   status,
		Mode:     mode,
		Variants: variants,
		Warnings: warnings,
	}, nil
}

// advance moves a running job to the next stage.
func (o *Orchestrator) advance(ctx context.Context, jobID, stage string) error {
	if err := o.jobs.UpdateJobStatus(ctx, jobID, StatusRunning, stage); err != nil {
		return fmt.Errorf("advance to %s: %w", stage, err)
	}
	log.Debug().Str("job", jobID).Str("stage", stage).Msg("Stage transition")
	return nil
}

// checkCancelled consults the store's cancel flag between stages and fails
// the job when set.
func (o *Orchestrator) checkCancelled(ctx context.Context, jobID string) error {
	job, err := o.jobs.GetJob(ctx, jobID)
	if err != nil {
		return fmt.Errorf("check cancel: %w", err)
	}
	if !job.CancelRequested {
		return nil
	}
	o.fail(ctx, jobID, ErrCancelled.Error())
	log.Info().Str("job", jobID).Msg("Job cancelled by request")
	return ErrCancelled
}

// watchCancel polls the cancel flag while a stage runs, cancelling the
// returned context when the flag appears. The returned stop function must be
// called once the stage ends.
func (o *Orchestrator) watchCancel(ctx context.Context, jobID string) (context.Context, context.CancelFunc) {
	watchCtx, cancel := context.WithCancel(ctx)
	go func() {
		ticker := time.NewTicker(o.cancelPollInterval)
		defer ticker.Stop()
		for {
			select {
			case <-watchCtx.Done():
				return
			case <-ticker.C:
				job, err := o.jobs.GetJob(watchCtx, jobID)
				if err == nil && job.CancelRequested {
					cancel()
					return
				}
			}
		}
	}()
	return watchCtx, cancel
}

// fail writes the terminal failed status. Persistence errors are logged, not
// returned; the pipeline error is the one the caller needs.
func (o *Orchestrator) fail(ctx context.Context, jobID, msg string) {
	job, err := o.jobs.GetJob(ctx, jobID)
	if err != nil {
		log.Error().Err(err).Str("job", jobID).Msg("Failed to load job for failure write")
		return
	}
	if IsTerminal(job.Status) {
		return
	}
	job.Status = StatusFailed
	job.Error = msg
	if err := o.jobs.PutJob(ctx, job); err != nil {
		log.Error().Err(err).Str("job", jobID).Msg("Failed to persist job failure")
	}
}

// finish writes the terminal success status with the analysis mode and any
// accumulated warnings.
func (o *Orchestrator) finish(ctx context.Context, jobID, status, mode string, warnings []string) error {
	job, err := o.jobs.GetJob(ctx, jobID)
	if err != nil {
		return fmt.Errorf("load job for completion: %w", err)
	}
	job.Status = status
	job.Mode = mode
	job.Warnings = warnings
	if err := o.jobs.PutJob(ctx, job); err != nil {
		return fmt.Errorf("persist completion: %w", err)
	}
	return nil
}
