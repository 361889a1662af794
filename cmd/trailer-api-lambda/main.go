// Package main is the Lambda entry point for the trailer API.
//
// The API is thin: it validates requests, persists the job record, and hands
// the heavy pipeline to the worker Lambda asynchronously so the client gets a
// job ID immediately and polls for results.
//
// Endpoints:
//
//	GET  /api/health                active analysis backend + dependency presence
//	POST /api/trailer/start         create a job, dispatch the worker
//	GET  /api/trailer/{id}/results  poll job status and variants
//	POST /api/trailer/{id}/cancel   request cancellation
package main

import (
	"context"
	"net/http"
	"time"

	"github.com/aws/aws-lambda-go/lambda"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	lambdasvc "github.com/aws/aws-sdk-go-v2/service/lambda"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/awslabs/aws-lambda-go-api-proxy/httpadapter"
	"github.com/rs/zerolog/log"

	"github.com/fpang/trailer-forge/internal/analysis"
	"github.com/fpang/trailer-forge/internal/config"
	"github.com/fpang/trailer-forge/internal/logging"
	"github.com/fpang/trailer-forge/internal/store"
)

var (
	cfg           *config.Config
	jobStore      store.JobStore
	lambdaClient  *lambdasvc.Client
	presignClient *s3.PresignClient
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
	lambdaClient = lambdasvc.NewFromConfig(awsCfg)
	presignClient = s3.NewPresignClient(s3.NewFromConfig(awsCfg))

	logging.NewStartupLogger("trailer-api-lambda").
		DynamoTable("jobs", cfg.TableName).
		S3Bucket("media", cfg.MediaBucket).
		LambdaFunc("worker", cfg.WorkerFunctionARN).
		Config("analysisMode", cfg.AnalysisMode).
		Config("logLevel", cfg.LogLevel).
		InitDuration(time.Since(initStart)).
		Log()
}

func main() {
	mux := http.NewServeMux()

	mux.HandleFunc("/api/health", handleHealth)
	mux.HandleFunc("/api/trailer/start", handleStart)
	mux.HandleFunc("/api/trailer/", handleJobRoutes)

	adapter := httpadapter.NewV2(mux)
	lambda.Start(adapter.ProxyWithContext)
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	backend := cfg.AnalysisMode
	ffmpegOK := analysis.CheckFFmpegAvailable() == nil
	if backend == analysis.ModeAWS && !ffmpegOK {
		// Frame extraction cannot run; jobs will fall back to mock.
		backend = analysis.ModeMock
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"service": "trailer-forge",
		"backend": backend,
		"deps": map[string]bool{
			"ffmpeg": ffmpegOK,
			"table":  cfg.TableName != "",
			"bucket": cfg.MediaBucket != "",
		},
	})
}
