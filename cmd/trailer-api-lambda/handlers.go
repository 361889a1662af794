package main

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/fpang/trailer-forge/internal/jobs"
	"github.com/fpang/trailer-forge/internal/planner"
	"github.com/fpang/trailer-forge/internal/profile"
	"github.com/fpang/trailer-forge/internal/s3util"
	"github.com/fpang/trailer-forge/internal/store"
	"github.com/fpang/trailer-forge/internal/timeline"
	"github.com/fpang/trailer-forge/internal/trailer"
)

// bundleURLExpiry is how long presigned plan-bundle links stay valid.
const bundleURLExpiry = 15 * time.Minute

// startRequest is the POST /api/trailer/start body. SourceDuration is
// required for mock-mode jobs (no video to probe) and optional otherwise;
// when present it enables full duration validation at submission.
type startRequest struct {
	VideoKey       string                `json:"videoKey"`
	ProfileID      string                `json:"profileId"`
	MaxDuration    float64               `json:"maxDuration"`
	SourceDuration float64               `json:"sourceDuration,omitempty"`
	VariantSpecs   []planner.VariantSpec `json:"variantSpecs,omitempty"`
}

// POST /api/trailer/start
func handleStart(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		httpError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var req startRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	if req.MaxDuration <= 0 {
		httpError(w, http.StatusBadRequest, "maxDuration must be positive")
		return
	}
	if req.SourceDuration > 0 && req.MaxDuration > req.SourceDuration {
		httpError(w, http.StatusBadRequest, "maxDuration exceeds source duration")
		return
	}
	if req.VideoKey == "" && req.SourceDuration <= 0 {
		httpError(w, http.StatusBadRequest, "sourceDuration is required when no videoKey is given")
		return
	}
	if req.ProfileID == "" {
		req.ProfileID = profile.DefaultProfileID
	}

	jobID := jobs.GenerateID()
	record := &store.JobRecord{
		ID:             jobID,
		ProfileID:      req.ProfileID,
		VideoKey:       req.VideoKey,
		SourceDuration: req.SourceDuration,
		MaxDuration:    req.MaxDuration,
		Status:         trailer.StatusRunning,
		Stage:          trailer.StageCreated,
		CreatedAt:      time.Now().Unix(),
	}
	if err := jobStore.PutJob(r.Context(), record); err != nil {
		httpError(w, http.StatusInternalServerError, "failed to create job", err.Error())
		return
	}

	if err := invokeWorkerAsync(r.Context(), jobID); err != nil {
		failErr := jobs.Fail(r.Context(), jobID, "worker dispatch failed", func(ctx context.Context, _, errMsg string) error {
			record.Status = trailer.StatusFailed
			record.Error = errMsg
			return jobStore.PutJob(ctx, record)
		})
		if failErr != nil {
			log.Error().Err(failErr).Str("job", jobID).Msg("Failed to persist dispatch failure")
		}
		httpError(w, http.StatusInternalServerError, "failed to start job", err.Error())
		return
	}

	log.Info().Str("job", jobID).Str("profile", req.ProfileID).Float64("maxDuration", req.MaxDuration).Msg("Trailer job submitted")
	respondJSON(w, http.StatusAccepted, map[string]string{"jobId": jobID})
}

// handleJobRoutes dispatches /api/trailer/{id}/{action}.
func handleJobRoutes(w http.ResponseWriter, r *http.Request) {
	jobID, action, ok := jobs.ParseRoute(r.URL.Path, "/api/trailer/")
	if !ok {
		httpError(w, http.StatusNotFound, "not found")
		return
	}

	switch action {
	case "results":
		handleResults(w, r, jobID)
	case "cancel":
		handleCancel(w, r, jobID)
	default:
		httpError(w, http.StatusNotFound, "not found")
	}
}

// variantView is the client-facing variant shape.
type variantView struct {
	Name              string               `json:"name"`
	Description       string               `json:"description,omitempty"`
	Distribution      planner.Distribution `json:"distribution"`
	Scenes            []sceneRef           `json:"scenes"`
	Timeline          []timeline.CutEntry  `json:"timeline"`
	EstimatedDuration float64              `json:"estimatedDuration"`
}

type sceneRef struct {
	SceneID     string  `json:"sceneId"`
	SourceStart float64 `json:"sourceStart"`
	SourceEnd   float64 `json:"sourceEnd"`
}

// GET /api/trailer/{id}/results
func handleResults(w http.ResponseWriter, r *http.Request, jobID string) {
	if r.Method != http.MethodGet {
		httpError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	job, err := jobStore.GetJob(r.Context(), jobID)
	if err != nil {
		if store.IsNotFound(err) {
			httpError(w, http.StatusNotFound, "job not found")
			return
		}
		httpError(w, http.StatusInternalServerError, "failed to load job", err.Error())
		return
	}

	resp := map[string]any{
		"jobId":  jobID,
		"status": job.Status,
		"mode":   job.Mode,
	}
	if len(job.Warnings) > 0 {
		resp["warnings"] = job.Warnings
	}
	if job.Error != "" {
		resp["error"] = job.Error
	}

	if trailer.IsTerminal(job.Status) && job.Status != trailer.StatusFailed {
		records, err := jobStore.GetVariants(r.Context(), jobID)
		if err != nil {
			httpError(w, http.StatusInternalServerError, "failed to load variants", err.Error())
			return
		}
		views := make([]variantView, 0, len(records))
		var mode string
		for _, rec := range records {
			refs := make([]sceneRef, len(rec.Scenes))
			for i, s := range rec.Scenes {
				refs[i] = sceneRef{SceneID: s.ID, SourceStart: s.SourceStart, SourceEnd: s.SourceEnd}
			}
			views = append(views, variantView{
				Name:              rec.Name,
				Description:       rec.Description,
				Distribution:      rec.Distribution,
				Scenes:            refs,
				Timeline:          rec.Timeline,
				EstimatedDuration: rec.EstimatedDuration,
			})
			mode = rec.Mode
		}
		resp["variants"] = views
		if mode != "" {
			resp["mode"] = mode
		}
		// Legacy consumers read the first variant under "master".
		if len(views) > 0 {
			resp["master"] = views[0]
		}

		// The worker uploads the plan bundle best-effort, so the link may
		// be a 404 for a short window or for mock-only deployments.
		if presignClient != nil {
			key := s3util.ResultKey(jobID, "plan.zip")
			url, err := s3util.GeneratePresignedURL(r.Context(), presignClient, cfg.MediaBucket, key, bundleURLExpiry)
			if err != nil {
				log.Warn().Err(err).Str("job", jobID).Msg("Bundle URL not generated")
			} else {
				resp["bundleUrl"] = url
			}
		}
	}

	respondJSON(w, http.StatusOK, resp)
}

// POST /api/trailer/{id}/cancel
func handleCancel(w http.ResponseWriter, r *http.Request, jobID string) {
	if r.Method != http.MethodPost {
		httpError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	if err := jobStore.RequestCancel(r.Context(), jobID); err != nil {
		if store.IsNotFound(err) {
			httpError(w, http.StatusNotFound, "job not found")
			return
		}
		httpError(w, http.StatusInternalServerError, "failed to cancel job", err.Error())
		return
	}

	log.Info().Str("job", jobID).Msg("Cancel requested")
	respondJSON(w, http.StatusAccepted, map[string]string{"jobId": jobID, "status": "cancel_requested"})
}
