package db

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/spacesedan/aspectflow/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeDynamo struct {
	batches     [][]types.WriteRequest
	unprocessed int
	err         error
	queryItems  []map[string]types.AttributeValue
}

func (f *fakeDynamo) BatchWriteItem(_ context.Context, in *dynamodb.BatchWriteItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.BatchWriteItemOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	out := &dynamodb.BatchWriteItemOutput{}
	for table, reqs := range in.RequestItems {
		f.batches = append(f.batches, reqs)
		if f.unprocessed > 0 && len(reqs) > 0 {
			f.unprocessed--
			out.UnprocessedItems = map[string][]types.WriteRequest{table: reqs[:1]}
		}
	}
	return out, nil
}

func (f *fakeDynamo) Query(_ context.Context, _ *dynamodb.QueryInput, _ ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error) {
	return &dynamodb.QueryOutput{Items: f.queryItems}, nil
}

func testDynamoStore(client *fakeDynamo) *DynamoStore {
	s := NewDynamoStore(client, "FeedbackAspects")
	s.backoff = time.Millisecond
	return s
}

func TestFeedbackToItems(t *testing.T) {
	at := time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC)
	f := analyzed("a", at, lecturerPositive, facilityNegative)

	items, err := FeedbackToItems(f)
	require.NoError(t, err)
	require.Len(t, items, 2)

	item := items[0]
	assert.Equal(t, &types.AttributeValueMemberS{Value: "a"}, item["feedback_id"])
	assert.Equal(t, &types.AttributeValueMemberS{Value: "lecturer"}, item["aspect"])
	assert.Equal(t, &types.AttributeValueMemberS{Value: "positive"}, item["sentiment"])
	assert.Equal(t, &types.AttributeValueMemberN{Value: fmt.Sprint(at.Unix())}, item["analyzed_at"])
	assert.Contains(t, item, "aspect_confidence")
	assert.Contains(t, item, "lexicon_label")

	empty, err := FeedbackToItems(analyzed("b", at))
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestDynamoAppendChunksBatches(t *testing.T) {
	client := &fakeDynamo{}
	s := testDynamoStore(client)
	at := time.Now()

	var feedback []models.AnalyzedFeedback
	for i := 0; i < 15; i++ {
		feedback = append(feedback, analyzed(fmt.Sprintf("f%d", i), at, lecturerPositive, facilityNegative))
	}

	require.NoError(t, s.AppendResults(context.Background(), feedback))
	require.Len(t, client.batches, 2)
	assert.Len(t, client.batches[0], 25)
	assert.Len(t, client.batches[1], 5)
}

func TestDynamoRetriesUnprocessed(t *testing.T) {
	client := &fakeDynamo{unprocessed: 2}
	s := testDynamoStore(client)

	err := s.AppendResults(context.Background(), []models.AnalyzedFeedback{
		analyzed("a", time.Now(), lecturerPositive),
	})
	require.NoError(t, err)
	assert.Len(t, client.batches, 3)
}

func TestDynamoGivesUpOnUnprocessed(t *testing.T) {
	client := &fakeDynamo{unprocessed: 10}
	s := testDynamoStore(client)

	err := s.AppendResults(context.Background(), []models.AnalyzedFeedback{
		analyzed("a", time.Now(), lecturerPositive),
	})
	assert.ErrorContains(t, err, "unprocessed")
	assert.Len(t, client.batches, 1+maxWriteRetries)
}

func TestDynamoWriteError(t *testing.T) {
	client := &fakeDynamo{err: errors.New("throttled")}
	s := testDynamoStore(client)

	err := s.AppendResults(context.Background(), []models.AnalyzedFeedback{
		analyzed("a", time.Now(), lecturerPositive),
	})
	assert.ErrorContains(t, err, "throttled")
}

func TestDynamoResultsFor(t *testing.T) {
	items, err := FeedbackToItems(analyzed("a", time.Now(), lecturerPositive, facilityNegative))
	require.NoError(t, err)

	s := testDynamoStore(&fakeDynamo{queryItems: items})
	results, err := s.ResultsFor(context.Background(), "a")
	require.NoError(t, err)
	assert.Equal(t, []models.ResultRecord{lecturerPositive, facilityNegative}, results)

	var back resultItem
	require.NoError(t, attributevalue.UnmarshalMap(items[0], &back))
	assert.Equal(t, "a", back.FeedbackID)
}
