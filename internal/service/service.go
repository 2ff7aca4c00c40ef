// Package service runs one submission through the whole pipeline:
// validation, markup cleanup, dedup and cache, aspect analysis, lexicon
// cross-check and storage.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/spacesedan/aspectflow/internal/db"
	"github.com/spacesedan/aspectflow/internal/ingest"
	"github.com/spacesedan/aspectflow/internal/models"
	"github.com/spacesedan/aspectflow/internal/sentiment"
	"github.com/spacesedan/aspectflow/internal/textnorm"
)

// ErrAlreadyProcessed is returned for a feedback id seen within the cache
// TTL. Callers treat it as success.
var ErrAlreadyProcessed = errors.New("feedback already processed")

type Analyzer interface {
	Analyze(ctx context.Context, text string) ([]models.ResultRecord, error)
	Fingerprint() string
}

// Cache is the dedup and result cache. Results are cached per analyzer
// fingerprint, so a catalog or threshold change never serves stale records.
// Failures are logged by the implementation and never fail a submission.
type Cache interface {
	IsProcessed(ctx context.Context, feedbackID string) bool
	MarkProcessed(ctx context.Context, feedbackID string) error
	CachedResults(ctx context.Context, fingerprint, text string) ([]models.ResultRecord, bool)
	CacheResults(ctx context.Context, fingerprint, text string, results []models.ResultRecord) error
}

type Service struct {
	analyzer Analyzer
	store    db.ResultStore
	cache    Cache
	now      func() time.Time
}

type Option func(*Service)

// WithCache enables dedup and result caching.
func WithCache(c Cache) Option {
	return func(s *Service) { s.cache = c }
}

// WithStore persists every processed submission.
func WithStore(store db.ResultStore) Option {
	return func(s *Service) { s.store = store }
}

func New(analyzer Analyzer, opts ...Option) *Service {
	s := &Service{analyzer: analyzer, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Process analyzes one submission and stores the outcome. Engine errors
// are returned unchanged so callers can match ErrModelUnavailable.
func (s *Service) Process(ctx context.Context, sub models.FeedbackSubmission) (models.AnalyzedFeedback, error) {
	analyzed, err := s.analyze(ctx, sub)
	if err != nil {
		return models.AnalyzedFeedback{}, err
	}

	if s.store != nil {
		if err := s.store.AppendResults(ctx, []models.AnalyzedFeedback{analyzed}); err != nil {
			return models.AnalyzedFeedback{}, fmt.Errorf("[Service] failed to store %s: %w", sub.FeedbackID, err)
		}
	}

	s.markProcessed(ctx, analyzed.FeedbackID)
	return analyzed, nil
}

// ProcessBatch analyzes every submission and stores the batch in one
// append. Duplicates are skipped; the first engine error aborts the batch.
func (s *Service) ProcessBatch(ctx context.Context, subs []models.FeedbackSubmission) ([]models.AnalyzedFeedback, error) {
	batch := make([]models.AnalyzedFeedback, 0, len(subs))
	for _, sub := range subs {
		analyzed, err := s.analyze(ctx, sub)
		if errors.Is(err, ErrAlreadyProcessed) {
			continue
		}
		if errors.Is(err, ingest.ErrEmptyFeedback) || errors.Is(err, ingest.ErrFeedbackTooLong) {
			slog.Warn("[Service] Skipping invalid feedback",
				slog.String("feedback_id", sub.FeedbackID),
				slog.String("error", err.Error()))
			continue
		}
		if err != nil {
			return nil, err
		}
		batch = append(batch, analyzed)
	}

	if len(batch) > 0 && s.store != nil {
		if err := s.store.AppendResults(ctx, batch); err != nil {
			return nil, fmt.Errorf("[Service] failed to store batch: %w", err)
		}
	}
	for _, a := range batch {
		s.markProcessed(ctx, a.FeedbackID)
	}
	return batch, nil
}

func (s *Service) analyze(ctx context.Context, sub models.FeedbackSubmission) (models.AnalyzedFeedback, error) {
	text, err := ingest.Validate(sub.Text)
	if err != nil {
		return models.AnalyzedFeedback{}, fmt.Errorf("[Service] feedback %s: %w", sub.FeedbackID, err)
	}
	sub.Text = text
	if sub.SubmittedAt.IsZero() {
		sub.SubmittedAt = s.now().UTC()
	}

	if s.cache != nil && sub.FeedbackID != "" && s.cache.IsProcessed(ctx, sub.FeedbackID) {
		slog.Info("[Service] Skipping processed feedback", slog.String("feedback_id", sub.FeedbackID))
		return models.AnalyzedFeedback{}, ErrAlreadyProcessed
	}

	clean := textnorm.NormalizeForStorage(sentiment.ConvertMarkdownToText(text))
	analyzed := models.AnalyzedFeedback{
		FeedbackSubmission: sub,
		CleanText:          clean,
		Lexicon:            sentiment.LexiconPolarity(clean),
	}

	if s.cache != nil {
		if results, ok := s.cache.CachedResults(ctx, s.analyzer.Fingerprint(), clean); ok {
			analyzed.Results = results
			analyzed.FromCache = true
			analyzed.AnalyzedAt = s.now().UTC()
			return analyzed, nil
		}
	}

	start := s.now()
	results, err := s.analyzer.Analyze(ctx, clean)
	if err != nil {
		return models.AnalyzedFeedback{}, err
	}
	analyzed.Results = results
	analyzed.AnalyzedAt = s.now().UTC()

	slog.Info("[Service] Analyzed feedback",
		slog.String("feedback_id", sub.FeedbackID),
		slog.Int("aspects", len(results)),
		slog.Duration("took", s.now().Sub(start)))

	if s.cache != nil {
		if err := s.cache.CacheResults(ctx, s.analyzer.Fingerprint(), clean, results); err != nil {
			slog.Warn("[Service] Failed to cache results", slog.String("error", err.Error()))
		}
	}
	return analyzed, nil
}

func (s *Service) markProcessed(ctx context.Context, feedbackID string) {
	if s.cache == nil || feedbackID == "" {
		return
	}
	if err := s.cache.MarkProcessed(ctx, feedbackID); err != nil {
		slog.Warn("[Service] Failed to mark processed",
			slog.String("feedback_id", feedbackID),
			slog.String("error", err.Error()))
	}
}
