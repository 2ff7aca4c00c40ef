package db

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/spacesedan/aspectflow/internal/models"
)

const (
	maxBatchWriteItems = 25
	maxWriteRetries    = 3
)

// DynamoAPI is the subset of *dynamodb.Client the store uses.
type DynamoAPI interface {
	BatchWriteItem(ctx context.Context, params *dynamodb.BatchWriteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.BatchWriteItemOutput, error)
	dynamodb.QueryAPIClient
}

// resultItem is one table item: one aspect decision of one feedback,
// keyed by (feedback_id, aspect).
type resultItem struct {
	FeedbackID string `dynamodbav:"feedback_id"`
	models.ResultRecord
	Text         string  `dynamodbav:"text"`
	Source       string  `dynamodbav:"source"`
	LexiconScore float64 `dynamodbav:"lexicon_score"`
	LexiconLabel string  `dynamodbav:"lexicon_label"`
	SubmittedAt  int64   `dynamodbav:"submitted_at"`
	AnalyzedAt   int64   `dynamodbav:"analyzed_at"`
}

type DynamoStore struct {
	client  DynamoAPI
	table   string
	backoff time.Duration
}

func NewDynamoStore(client DynamoAPI, table string) *DynamoStore {
	return &DynamoStore{client: client, table: table, backoff: 500 * time.Millisecond}
}

// FeedbackToItems flattens analyzed feedback into table items. Feedback
// with no discussed aspect produces no items.
func FeedbackToItems(f models.AnalyzedFeedback) ([]map[string]types.AttributeValue, error) {
	items := make([]map[string]types.AttributeValue, 0, len(f.Results))
	for _, r := range f.Results {
		item, err := attributevalue.MarshalMap(resultItem{
			FeedbackID:   f.FeedbackID,
			ResultRecord: r,
			Text:         f.CleanText,
			Source:       f.Source,
			LexiconScore: f.Lexicon.Score,
			LexiconLabel: f.Lexicon.Label,
			SubmittedAt:  f.SubmittedAt.Unix(),
			AnalyzedAt:   f.AnalyzedAt.Unix(),
		})
		if err != nil {
			return nil, fmt.Errorf("[DynamoDB] failed to marshal result %s/%s: %w", f.FeedbackID, r.Aspect, err)
		}
		items = append(items, item)
	}
	return items, nil
}

func (s *DynamoStore) AppendResults(ctx context.Context, feedback []models.AnalyzedFeedback) error {
	var writeRequests []types.WriteRequest
	for _, f := range feedback {
		items, err := FeedbackToItems(f)
		if err != nil {
			return err
		}
		for _, item := range items {
			writeRequests = append(writeRequests, types.WriteRequest{
				PutRequest: &types.PutRequest{Item: item},
			})
		}
	}

	for i := 0; i < len(writeRequests); i += maxBatchWriteItems {
		if err := ctx.Err(); err != nil {
			slog.Warn("[DynamoDB] context canceled")
			return err
		}

		end := min(i+maxBatchWriteItems, len(writeRequests))
		if err := s.writeBatch(ctx, writeRequests[i:end]); err != nil {
			return err
		}
	}

	slog.Info("[DynamoDB] Stored aspect results",
		slog.Int("feedback", len(feedback)),
		slog.Int("items", len(writeRequests)))
	return nil
}

// writeBatch writes up to 25 requests, retrying unprocessed items with
// exponential backoff.
func (s *DynamoStore) writeBatch(ctx context.Context, requests []types.WriteRequest) error {
	out, err := s.client.BatchWriteItem(ctx, &dynamodb.BatchWriteItemInput{
		RequestItems: map[string][]types.WriteRequest{s.table: requests},
	})
	if err != nil {
		return fmt.Errorf("[DynamoDB] Failed to batch write aspect results: %w", err)
	}

	backoff := s.backoff
	for retry := 0; len(out.UnprocessedItems) > 0 && retry < maxWriteRetries; retry++ {
		slog.Warn("[DynamoDB] Retrying unprocessed items...",
			slog.Int("attempt", retry+1),
			slog.Int("remaining", len(out.UnprocessedItems[s.table])))

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}
		backoff *= 2

		out, err = s.client.BatchWriteItem(ctx, &dynamodb.BatchWriteItemInput{
			RequestItems: out.UnprocessedItems,
		})
		if err != nil {
			return fmt.Errorf("[DynamoDB] Retry error: %w", err)
		}
	}

	if n := len(out.UnprocessedItems[s.table]); n > 0 {
		return fmt.Errorf("[DynamoDB] %d items unprocessed after %d retries", n, maxWriteRetries)
	}
	return nil
}

// ResultsFor reads back every aspect decision stored for one feedback.
func (s *DynamoStore) ResultsFor(ctx context.Context, feedbackID string) ([]models.ResultRecord, error) {
	paginator := dynamodb.NewQueryPaginator(s.client, &dynamodb.QueryInput{
		TableName:              aws.String(s.table),
		KeyConditionExpression: aws.String("feedback_id = :id"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":id": &types.AttributeValueMemberS{Value: feedbackID},
		},
	})

	var results []models.ResultRecord
	for paginator.HasMorePages() {
		out, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("[DynamoDB] Query for feedback %s failed: %w", feedbackID, err)
		}
		var page []resultItem
		if err := attributevalue.UnmarshalListOfMaps(out.Items, &page); err != nil {
			return nil, fmt.Errorf("[DynamoDB] Unable to unmarshal result page: %w", err)
		}
		for _, item := range page {
			results = append(results, item.ResultRecord)
		}
	}
	return results, nil
}
