package main

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	lambdasvc "github.com/aws/aws-sdk-go-v2/service/lambda"
	lambdatypes "github.com/aws/aws-sdk-go-v2/service/lambda/types"
	"github.com/rs/zerolog/log"
)

// workerEvent is the payload the worker Lambda receives.
type workerEvent struct {
	JobID string `json:"jobId"`
}

// invokeWorkerAsync dispatches the job to the worker Lambda with
// InvocationType=Event so the API returns immediately.
func invokeWorkerAsync(ctx context.Context, jobID string) error {
	if lambdaClient == nil || cfg.WorkerFunctionARN == "" {
		return fmt.Errorf("worker lambda not configured")
	}

	payload, err := json.Marshal(workerEvent{JobID: jobID})
	if err != nil {
		return fmt.Errorf("marshal worker event: %w", err)
	}

	_, err = lambdaClient.Invoke(ctx, &lambdasvc.InvokeInput{
		FunctionName:   aws.String(cfg.WorkerFunctionARN),
		InvocationType: lambdatypes.InvocationTypeEvent,
		Payload:        payload,
	})
	if err != nil {
		return fmt.Errorf("invoke worker lambda: %w", err)
	}

	log.Debug().Str("job", jobID).Msg("Worker Lambda invoked asynchronously")
	return nil
}
