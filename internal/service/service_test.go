package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/spacesedan/aspectflow/internal/classifier"
	"github.com/spacesedan/aspectflow/internal/ingest"
	"github.com/spacesedan/aspectflow/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeAnalyzer struct {
	texts       []string
	results     []models.ResultRecord
	err         error
	fingerprint string
}

func (f *fakeAnalyzer) Fingerprint() string {
	if f.fingerprint == "" {
		return "v1"
	}
	return f.fingerprint
}

func (f *fakeAnalyzer) Analyze(_ context.Context, text string) ([]models.ResultRecord, error) {
	f.texts = append(f.texts, text)
	if f.err != nil {
		return nil, f.err
	}
	return f.results, nil
}

type fakeStore struct {
	appended [][]models.AnalyzedFeedback
	err      error
}

func (f *fakeStore) AppendResults(_ context.Context, feedback []models.AnalyzedFeedback) error {
	if f.err != nil {
		return f.err
	}
	f.appended = append(f.appended, feedback)
	return nil
}

type memoryCache struct {
	mu        sync.Mutex
	processed map[string]bool
	results   map[string][]models.ResultRecord
}

func newMemoryCache() *memoryCache {
	return &memoryCache{processed: map[string]bool{}, results: map[string][]models.ResultRecord{}}
}

func (m *memoryCache) IsProcessed(_ context.Context, id string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.processed[id]
}

func (m *memoryCache) MarkProcessed(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.processed[id] = true
	return nil
}

func (m *memoryCache) CachedResults(_ context.Context, fingerprint, text string) ([]models.ResultRecord, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.results[fingerprint+"|"+text]
	return r, ok
}

func (m *memoryCache) CacheResults(_ context.Context, fingerprint, text string, results []models.ResultRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.results[fingerprint+"|"+text] = results
	return nil
}

var lecturerPositive = []models.ResultRecord{{
	Aspect: models.AspectLecturer, Sentiment: models.SentimentPositive,
	AspectConfidence: 0.97, SentimentConfidence: 0.9, Margin: 0.8,
}}

func submission(id, text string) models.FeedbackSubmission {
	return models.FeedbackSubmission{FeedbackID: id, Text: text, Source: models.FeedbackSourceKafka}
}

func TestProcessStoresAndMarks(t *testing.T) {
	analyzer := &fakeAnalyzer{results: lecturerPositive}
	store := &fakeStore{}
	cache := newMemoryCache()
	svc := New(analyzer, WithStore(store), WithCache(cache))

	got, err := svc.Process(context.Background(), submission("f-1", "**Giảng viên** dạy   rất hay [slide](https://x.edu/s)"))
	require.NoError(t, err)

	assert.Equal(t, []string{"Giảng viên dạy rất hay slide"}, analyzer.texts, "analyzer sees cleaned text")
	assert.Equal(t, lecturerPositive, got.Results)
	assert.Equal(t, "Giảng viên dạy rất hay slide", got.CleanText)
	assert.False(t, got.SubmittedAt.IsZero())
	assert.False(t, got.AnalyzedAt.IsZero())
	assert.NotEmpty(t, got.Lexicon.Label)

	require.Len(t, store.appended, 1)
	assert.Equal(t, "f-1", store.appended[0][0].FeedbackID)
	assert.True(t, cache.processed["f-1"])
}

func TestProcessSkipsDuplicates(t *testing.T) {
	analyzer := &fakeAnalyzer{results: lecturerPositive}
	cache := newMemoryCache()
	svc := New(analyzer, WithCache(cache))

	_, err := svc.Process(context.Background(), submission("f-1", "Giảng viên dạy rất hay"))
	require.NoError(t, err)

	_, err = svc.Process(context.Background(), submission("f-1", "Giảng viên dạy rất hay"))
	assert.ErrorIs(t, err, ErrAlreadyProcessed)
	assert.Len(t, analyzer.texts, 1)
}

func TestProcessReusesCachedResults(t *testing.T) {
	analyzer := &fakeAnalyzer{results: lecturerPositive}
	svc := New(analyzer, WithCache(newMemoryCache()))

	_, err := svc.Process(context.Background(), submission("f-1", "Giảng viên dạy rất hay"))
	require.NoError(t, err)

	got, err := svc.Process(context.Background(), submission("f-2", "Giảng viên   dạy rất hay"))
	require.NoError(t, err)
	assert.True(t, got.FromCache)
	assert.Equal(t, lecturerPositive, got.Results)
	assert.Len(t, analyzer.texts, 1)
}

func TestProcessIgnoresResultsFromOtherFingerprint(t *testing.T) {
	cache := newMemoryCache()
	old := &fakeAnalyzer{results: lecturerPositive, fingerprint: "old"}
	_, err := New(old, WithCache(cache)).Process(context.Background(), submission("f-1", "Giảng viên dạy rất hay"))
	require.NoError(t, err)

	retuned := &fakeAnalyzer{results: []models.ResultRecord{}, fingerprint: "new"}
	got, err := New(retuned, WithCache(cache)).Process(context.Background(), submission("f-2", "Giảng viên dạy rất hay"))
	require.NoError(t, err)
	assert.False(t, got.FromCache)
	assert.Empty(t, got.Results)
	assert.Len(t, retuned.texts, 1)
}

func TestProcessErrors(t *testing.T) {
	t.Run("invalid text", func(t *testing.T) {
		svc := New(&fakeAnalyzer{})
		_, err := svc.Process(context.Background(), submission("f-1", strings.Repeat("a", ingest.MaxFeedbackRunes+1)))
		assert.ErrorIs(t, err, ingest.ErrFeedbackTooLong)
	})

	t.Run("model unavailable passes through", func(t *testing.T) {
		store := &fakeStore{}
		cache := newMemoryCache()
		svc := New(&fakeAnalyzer{err: classifier.ErrModelUnavailable}, WithStore(store), WithCache(cache))

		_, err := svc.Process(context.Background(), submission("f-1", "Giảng viên dạy rất hay"))
		assert.ErrorIs(t, err, classifier.ErrModelUnavailable)
		assert.Empty(t, store.appended)
		assert.False(t, cache.processed["f-1"], "failed feedback can be retried")
	})

	t.Run("store failure", func(t *testing.T) {
		cache := newMemoryCache()
		svc := New(&fakeAnalyzer{results: lecturerPositive},
			WithStore(&fakeStore{err: errors.New("disk full")}), WithCache(cache))

		_, err := svc.Process(context.Background(), submission("f-1", "Giảng viên dạy rất hay"))
		assert.ErrorContains(t, err, "disk full")
		assert.False(t, cache.processed["f-1"])
	})
}

func TestProcessBatch(t *testing.T) {
	analyzer := &fakeAnalyzer{results: lecturerPositive}
	store := &fakeStore{}
	cache := newMemoryCache()
	cache.processed["seen"] = true
	svc := New(analyzer, WithStore(store), WithCache(cache))

	got, err := svc.ProcessBatch(context.Background(), []models.FeedbackSubmission{
		submission("a", "Giảng viên dạy rất hay"),
		submission("seen", "Phòng học nóng"),
		submission("empty", "   "),
		submission("b", "Môn học bổ ích"),
	})
	require.NoError(t, err)

	require.Len(t, got, 2)
	assert.Equal(t, "a", got[0].FeedbackID)
	assert.Equal(t, "b", got[1].FeedbackID)
	require.Len(t, store.appended, 1, "one append per batch")
	assert.Len(t, store.appended[0], 2)
	assert.True(t, cache.processed["a"])
	assert.True(t, cache.processed["b"])
}

func TestProcessBatchAbortsOnEngineError(t *testing.T) {
	store := &fakeStore{}
	svc := New(&fakeAnalyzer{err: classifier.ErrMalformedOutput}, WithStore(store))

	_, err := svc.ProcessBatch(context.Background(), []models.FeedbackSubmission{
		submission("a", "Giảng viên dạy rất hay"),
	})
	assert.ErrorIs(t, err, classifier.ErrMalformedOutput)
	assert.Empty(t, store.appended)
}
