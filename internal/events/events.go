// Package events publishes job lifecycle notifications to EventBridge so
// downstream consumers (publishing schedulers, notification hooks) can react
// to finished trailer jobs without polling the API.
package events

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/eventbridge"
	eventbridgetypes "github.com/aws/aws-sdk-go-v2/service/eventbridge/types"
	"github.com/rs/zerolog/log"
)

const (
	source        = "trailer-forge"
	completedType = "TrailerJobCompleted"
)

// JobCompleted is the event detail emitted when a trailer job reaches a
// terminal state.
type JobCompleted struct {
	JobID        string   `json:"jobId"`
	Status       string   `json:"status"`
	ProfileID    string   `json:"profileId"`
	VariantNames []string `json:"variantNames,omitempty"`
	Warnings     []string `json:"warnings,omitempty"`
	Error        string   `json:"error,omitempty"`
}

// EmitJobCompleted publishes a JobCompleted event to the named bus. An empty
// bus name publishes to the account default bus.
func EmitJobCompleted(ctx context.Context, client *eventbridge.Client, busName string, event JobCompleted) error {
	detail, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal JobCompleted: %w", err)
	}

	entry := eventbridgetypes.PutEventsRequestEntry{
		Source:     aws.String(source),
		DetailType: aws.String(completedType),
		Detail:     aws.String(string(detail)),
	}
	if busName != "" {
		entry.EventBusName = aws.String(busName)
	}

	result, err := client.PutEvents(ctx, &eventbridge.PutEventsInput{
		Entries: []eventbridgetypes.PutEventsRequestEntry{entry},
	})
	if err != nil {
		log.Error().Err(err).Str("job", event.JobID).Msg("EventBridge PutEvents failed")
		return fmt.Errorf("PutEvents: %w", err)
	}

	if result.FailedEntryCount > 0 {
		for i, e := range result.Entries {
			if e.ErrorCode != nil || e.ErrorMessage != nil {
				log.Error().
					Int("index", i).
					Str("errorCode", aws.ToString(e.ErrorCode)).
					Str("errorMessage", aws.ToString(e.ErrorMessage)).
					Str("job", event.JobID).
					Msg("EventBridge PutEvents entry failed")
				return fmt.Errorf("PutEvents entry %d failed: %s - %s",
					i, aws.ToString(e.ErrorCode), aws.ToString(e.ErrorMessage))
			}
		}
	}

	log.Debug().Str("job", event.JobID).Str("status", event.Status).Msg("JobCompleted emitted to EventBridge")
	return nil
}
