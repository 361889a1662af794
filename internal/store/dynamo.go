package store

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/rs/zerolog/log"
)

// Key constants for the single-table design.
const (
	pkPrefix  = "JOB#"
	skMeta    = "META"
	skVariant = "VARIANT#"
)

// DynamoStore implements JobStore on a single DynamoDB table.
type DynamoStore struct {
	client    *dynamodb.Client
	tableName string
}

var _ JobStore = (*DynamoStore)(nil)

// NewDynamoStore creates a DynamoStore for the given table. The client should
// come from the shared AWS config loaded at cold start.
func NewDynamoStore(client *dynamodb.Client, tableName string) *DynamoStore {
	return &DynamoStore{client: client, tableName: tableName}
}

func jobPK(jobID string) string { return pkPrefix + jobID }

func variantSK(seq int, name string) string {
	return fmt.Sprintf("%s%04d#%s", skVariant, seq, name)
}

func expiresAt() int64 { return time.Now().Add(JobTTL).Unix() }

// putItem marshals data and writes it with PK, SK, and TTL attributes.
func (s *DynamoStore) putItem(ctx context.Context, pk, sk string, data interface{}) error {
	item, err := attributevalue.MarshalMap(data)
	if err != nil {
		return fmt.Errorf("marshal: %w", err)
	}
	item["PK"] = &types.AttributeValueMemberS{Value: pk}
	item["SK"] = &types.AttributeValueMemberS{Value: sk}
	item["expiresAt"] = &types.AttributeValueMemberN{Value: strconv.FormatInt(expiresAt(), 10)}

	_, err = s.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: &s.tableName,
		Item:      item,
	})
	if err != nil {
		return fmt.Errorf("PutItem PK=%s SK=%s: %w", pk, sk, err)
	}
	return nil
}

func (s *DynamoStore) getItem(ctx context.Context, pk, sk string, out interface{}) (bool, error) {
	result, err := s.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: &s.tableName,
		Key: map[string]types.AttributeValue{
			"PK": &types.AttributeValueMemberS{Value: pk},
			"SK": &types.AttributeValueMemberS{Value: sk},
		},
	})
	if err != nil {
		return false, fmt.Errorf("GetItem PK=%s SK=%s: %w", pk, sk, err)
	}
	if result.Item == nil {
		return false, nil
	}
	if err := attributevalue.UnmarshalMap(result.Item, out); err != nil {
		return false, fmt.Errorf("unmarshal PK=%s SK=%s: %w", pk, sk, err)
	}
	return true, nil
}

func (s *DynamoStore) PutJob(ctx context.Context, job *JobRecord) error {
	if job.CreatedAt == 0 {
		job.CreatedAt = time.Now().Unix()
	}
	if err := s.putItem(ctx, jobPK(job.ID), skMeta, job); err != nil {
		return fmt.Errorf("put job %s: %w", job.ID, err)
	}
	log.Debug().Str("job", job.ID).Str("status", job.Status).Msg("Job persisted")
	return nil
}

func (s *DynamoStore) GetJob(ctx context.Context, jobID string) (*JobRecord, error) {
	var job JobRecord
	found, err := s.getItem(ctx, jobPK(jobID), skMeta, &job)
	if err != nil {
		return nil, fmt.Errorf("get job %s: %w", jobID, err)
	}
	if !found {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, jobID)
	}
	job.ID = jobID
	return &job, nil
}

func (s *DynamoStore) UpdateJobStatus(ctx context.Context, jobID, status, stage string) error {
	_, err := s.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName: &s.tableName,
		Key: map[string]types.AttributeValue{
			"PK": &types.AttributeValueMemberS{Value: jobPK(jobID)},
			"SK": &types.AttributeValueMemberS{Value: skMeta},
		},
		UpdateExpression:    aws.String("SET #s = :s, stage = :g"),
		ConditionExpression: aws.String("attribute_exists(PK)"),
		ExpressionAttributeNames: map[string]string{
			"#s": "status", // reserved word in DynamoDB
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":s": &types.AttributeValueMemberS{Value: status},
			":g": &types.AttributeValueMemberS{Value: stage},
		},
	})
	if err != nil {
		var condErr *types.ConditionalCheckFailedException
		if errors.As(err, &condErr) {
			return fmt.Errorf("%w: %s", ErrNotFound, jobID)
		}
		return fmt.Errorf("update job status %s -> %s/%s: %w", jobID, status, stage, err)
	}
	log.Debug().Str("job", jobID).Str("status", status).Str("stage", stage).Msg("Job status updated")
	return nil
}

func (s *DynamoStore) RequestCancel(ctx context.Context, jobID string) error {
	_, err := s.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName: &s.tableName,
		Key: map[string]types.AttributeValue{
			"PK": &types.AttributeValueMemberS{Value: jobPK(jobID)},
			"SK": &types.AttributeValueMemberS{Value: skMeta},
		},
		UpdateExpression:    aws.String("SET cancelRequested = :c"),
		ConditionExpression: aws.String("attribute_exists(PK)"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":c": &types.AttributeValueMemberBOOL{Value: true},
		},
	})
	if err != nil {
		var condErr *types.ConditionalCheckFailedException
		if errors.As(err, &condErr) {
			return fmt.Errorf("%w: %s", ErrNotFound, jobID)
		}
		return fmt.Errorf("request cancel %s: %w", jobID, err)
	}
	log.Info().Str("job", jobID).Msg("Cancellation requested")
	return nil
}

func (s *DynamoStore) PutVariant(ctx context.Context, jobID string, v *VariantRecord) error {
	if err := s.putItem(ctx, jobPK(jobID), variantSK(v.Seq, v.Name), v); err != nil {
		return fmt.Errorf("put variant %s/%s: %w", jobID, v.Name, err)
	}
	return nil
}

func (s *DynamoStore) GetVariants(ctx context.Context, jobID string) ([]*VariantRecord, error) {
	pk := jobPK(jobID)
	input := &dynamodb.QueryInput{
		TableName:              &s.tableName,
		KeyConditionExpression: aws.String("PK = :pk AND begins_with(SK, :skPrefix)"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":pk":       &types.AttributeValueMemberS{Value: pk},
			":skPrefix": &types.AttributeValueMemberS{Value: skVariant},
		},
	}

	var out []*VariantRecord
	// Query returns at most 1MB per call; follow the pagination token.
	for {
		result, err := s.client.Query(ctx, input)
		if err != nil {
			return nil, fmt.Errorf("query variants %s: %w", jobID, err)
		}
		for _, item := range result.Items {
			var v VariantRecord
			if err := attributevalue.UnmarshalMap(item, &v); err != nil {
				return nil, fmt.Errorf("unmarshal variant for %s: %w", jobID, err)
			}
			out = append(out, &v)
		}
		if result.LastEvaluatedKey == nil {
			break
		}
		input.ExclusiveStartKey = result.LastEvaluatedKey
	}

	sort.Slice(out, func(a, b int) bool { return out[a].Seq < out[b].Seq })
	return out, nil
}

// IsNotFound reports whether err is the store's not-found condition.
func IsNotFound(err error) bool { return errors.Is(err, ErrNotFound) }
