package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.AnalysisMode != "aws" {
		t.Errorf("AnalysisMode = %q, want aws", cfg.AnalysisMode)
	}
	if cfg.AnalysisConcurrency != 8 {
		t.Errorf("AnalysisConcurrency = %d, want 8", cfg.AnalysisConcurrency)
	}
	if cfg.PipelineDeadlineMS != 60_000 {
		t.Errorf("PipelineDeadlineMS = %d, want 60000", cfg.PipelineDeadlineMS)
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("TRAILER_ANALYSIS_MODE", "mock")
	t.Setenv("TRAILER_LOG_LEVEL", "debug")
	t.Setenv("TRAILER_MIN_SCENES", "5")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.AnalysisMode != "mock" {
		t.Errorf("AnalysisMode = %q, want mock", cfg.AnalysisMode)
	}
	if cfg.LogLevel != "debug" {
		t.Errorf("LogLevel = %q, want debug", cfg.LogLevel)
	}
	if cfg.MinScenes != 5 {
		t.Errorf("MinScenes = %d, want 5", cfg.MinScenes)
	}
	// Untouched fields keep their defaults.
	if cfg.TableName != "trailer-forge-jobs" {
		t.Errorf("TableName = %q, want default", cfg.TableName)
	}
}

func TestLoad_FileThenEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	yaml := "analysis_mode: mock\nmedia_bucket: file-bucket\nrender_concurrency: 4\n"
	if err := os.WriteFile(path, []byte(yaml), 0o644); err != nil {
		t.Fatalf("write config file: %v", err)
	}
	t.Setenv("TRAILER_CONFIG", path)
	t.Setenv("TRAILER_MEDIA_BUCKET", "env-bucket")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.AnalysisMode != "mock" {
		t.Errorf("AnalysisMode = %q, want mock from file", cfg.AnalysisMode)
	}
	if cfg.RenderConcurrency != 4 {
		t.Errorf("RenderConcurrency = %d, want 4 from file", cfg.RenderConcurrency)
	}
	if cfg.MediaBucket != "env-bucket" {
		t.Errorf("MediaBucket = %q, env should win over file", cfg.MediaBucket)
	}
}

func TestLoad_RejectsBadMode(t *testing.T) {
	t.Setenv("TRAILER_ANALYSIS_MODE", "local")

	_, err := Load()
	if err == nil || !strings.Contains(err.Error(), "analysis_mode") {
		t.Errorf("Load error = %v, want analysis_mode validation failure", err)
	}
}

func TestLoad_RejectsInvertedDeadlines(t *testing.T) {
	t.Setenv("TRAILER_PIPELINE_DEADLINE_MS", "5000")

	_, err := Load()
	if err == nil || !strings.Contains(err.Error(), "pipeline_deadline_ms") {
		t.Errorf("Load error = %v, want deadline validation failure", err)
	}
}
