// Package config defines process configuration for the trailer pipeline.
// Settings layer defaults, an optional YAML file, and TRAILER_-prefixed
// environment variables, the last one winning.
package config

import "time"

// Config contains process configuration shared by the Lambdas and the CLI.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// TableName is the DynamoDB table holding job and variant records.
	TableName string `koanf:"table_name"`

	// MediaBucket is the S3 bucket for uploaded source videos.
	MediaBucket string `koanf:"media_bucket"`

	// WorkerFunctionARN is the worker Lambda invoked asynchronously per job.
	WorkerFunctionARN string `koanf:"worker_function_arn"`

	// EventBusName receives job-completion events. Empty disables emission.
	EventBusName string `koanf:"event_bus_name"`

	// AnalysisMode selects the scene analysis backend: aws or mock.
	AnalysisMode string `koanf:"analysis_mode"`

	// AnalysisConcurrency bounds concurrent Rekognition frame calls.
	AnalysisConcurrency int `koanf:"analysis_concurrency"`

	// AnalysisCallTimeoutMS bounds each individual Rekognition call.
	AnalysisCallTimeoutMS int `koanf:"analysis_call_timeout_ms"`

	// PipelineDeadlineMS bounds the whole analysis stage before falling
	// back to the mock backend.
	PipelineDeadlineMS int `koanf:"pipeline_deadline_ms"`

	// MinScenes is the minimum usable scene count for planning.
	MinScenes int `koanf:"min_scenes"`

	// RenderConcurrency bounds parallel variant renders.
	RenderConcurrency int `koanf:"render_concurrency"`

	// ProfileOverridesParam names the SSM parameter holding JSON profile
	// overrides. Empty skips loading.
	ProfileOverridesParam string `koanf:"profile_overrides_param"`
}

// Defaults returns a Config with production defaults applied.
func Defaults() *Config {
	return &Config{
		LogLevel:              "info",
		TableName:             "trailer-forge-jobs",
		MediaBucket:           "trailer-forge-media",
		AnalysisMode:          "aws",
		AnalysisConcurrency:   8,
		AnalysisCallTimeoutMS: 10_000,
		PipelineDeadlineMS:    60_000,
		MinScenes:             3,
		RenderConcurrency:     2,
	}
}

// AnalysisCallTimeout returns the per-call timeout as a duration.
func (c *Config) AnalysisCallTimeout() time.Duration {
	return time.Duration(c.AnalysisCallTimeoutMS) * time.Millisecond
}

// PipelineDeadline returns the analysis-stage deadline as a duration.
func (c *Config) PipelineDeadline() time.Duration {
	return time.Duration(c.PipelineDeadlineMS) * time.Millisecond
}
