// Package engine decides, for each aspect of the catalog, whether a piece
// of feedback discusses it and with which polarity.
//
// One Analyze call scores every aspect (optionally in parallel), waits for
// all distributions, then runs the decision passes in order: keyword boost,
// relevance filter, dominance, re-admission, sentiment margin. The passes
// are threshold heuristics tuned on labelled feedback; every constant lives
// in Config.
package engine

import (
	"cmp"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"slices"

	"github.com/spacesedan/aspectflow/internal/aspects"
	"github.com/spacesedan/aspectflow/internal/classifier"
	"github.com/spacesedan/aspectflow/internal/models"
	"github.com/spacesedan/aspectflow/internal/textnorm"
	"golang.org/x/sync/errgroup"
)

// Analyzer is safe for concurrent use: it holds only the read-only index,
// an immutable config and the scorer.
type Analyzer struct {
	index       *aspects.Index
	scorer      classifier.Scorer
	cfg         Config
	fingerprint string
}

// Analysis is the full outcome of one call, including the per-aspect
// working state for explanations.
type Analysis struct {
	Text        string                `json:"text"`
	Garbage     bool                  `json:"garbage"`
	Results     []models.ResultRecord `json:"results"`
	Evaluations []AspectEvaluation    `json:"evaluations,omitempty"`
}

func New(index *aspects.Index, scorer classifier.Scorer, cfg Config) (*Analyzer, error) {
	if index == nil {
		return nil, errors.New("[Engine] nil aspect index")
	}
	if scorer == nil {
		return nil, fmt.Errorf("%w: [Engine] nil scorer", classifier.ErrModelUnavailable)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Analyzer{
		index:       index,
		scorer:      scorer,
		cfg:         cfg,
		fingerprint: fingerprint(index, cfg),
	}, nil
}

func (a *Analyzer) Config() Config {
	return a.cfg
}

// Fingerprint identifies the catalog and thresholds behind this analyzer.
// Results cached under one fingerprint are not valid under another.
func (a *Analyzer) Fingerprint() string {
	return a.fingerprint
}

func fingerprint(index *aspects.Index, cfg Config) string {
	// MaxParallel never changes results.
	cfg.MaxParallel = 0
	h := sha256.New()
	fmt.Fprintf(h, "%s\n%+v", index.Fingerprint(), cfg)
	return hex.EncodeToString(h.Sum(nil))[:16]
}

// Analyze returns one record per discussed aspect, sorted by descending
// aspect confidence. Garbage text yields an empty list and no error.
func (a *Analyzer) Analyze(ctx context.Context, text string) ([]models.ResultRecord, error) {
	analysis, err := a.AnalyzeDetailed(ctx, text)
	if err != nil {
		return nil, err
	}
	return analysis.Results, nil
}

// AnalyzeDetailed is Analyze plus the per-aspect evaluations.
func (a *Analyzer) AnalyzeDetailed(ctx context.Context, text string) (Analysis, error) {
	// Garbage is judged on the input as given; collapsing whitespace first
	// would shorten it.
	garbage := textnorm.IsGarbage(text)
	text = textnorm.NormalizeForStorage(text)
	analysis := Analysis{Text: text, Results: []models.ResultRecord{}}

	if garbage {
		slog.Debug("[Engine] Rejected garbage input", slog.Int("length", len(text)))
		analysis.Garbage = true
		return analysis, nil
	}

	evals, err := a.score(ctx, text, textnorm.NormalizeForMatching(text))
	if err != nil {
		return Analysis{}, err
	}

	applyKeywordBoost(evals, a.cfg)
	filterRelevant(evals, a.cfg)
	slog.Debug("[Engine] Relevance pass", slog.Int("kept", keptCount(evals)))

	if applyDominance(evals) {
		slog.Debug("[Engine] Dominance pass", slog.Int("kept", keptCount(evals)))
		readmitKeywordAnchored(evals, a.cfg)
		slog.Debug("[Engine] Re-admission pass", slog.Int("kept", keptCount(evals)))
	}

	analysis.Evaluations = evals
	analysis.Results = a.decide(evals)
	return analysis, nil
}

// score runs the scorer once per aspect. It returns only when every
// distribution is available or the first failure aborted the rest.
func (a *Analyzer) score(ctx context.Context, text, normalized string) ([]AspectEvaluation, error) {
	order := a.index.Aspects()
	evals := make([]AspectEvaluation, len(order))

	g, gctx := errgroup.WithContext(ctx)
	if a.cfg.MaxParallel > 0 {
		g.SetLimit(a.cfg.MaxParallel)
	}

	for i, aspect := range order {
		g.Go(func() error {
			prompt := a.index.PromptForNormalized(aspect, normalized)

			raw, err := a.scorer.Score(gctx, prompt, text)
			if err != nil {
				return scoreError(ctx, aspect, err)
			}

			dist, err := classifier.ParseDistribution(raw)
			if err != nil {
				return fmt.Errorf("[Engine] aspect %s: %w", aspect, err)
			}

			evals[i] = AspectEvaluation{
				Aspect:        aspect,
				Distribution:  dist,
				RawConfidence: dist.NotNone(),
				HasKeyword:    a.index.HasKeyword(aspect, normalized),
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return evals, nil
}

// scoreError classifies a scorer failure. Caller cancellation passes
// through; contract violations stay malformed; everything else means the
// model is unavailable.
func scoreError(ctx context.Context, aspect models.Aspect, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	if errors.Is(err, classifier.ErrModelUnavailable) || errors.Is(err, classifier.ErrMalformedOutput) {
		return fmt.Errorf("[Engine] aspect %s: %w", aspect, err)
	}
	return fmt.Errorf("%w: [Engine] aspect %s: %w", classifier.ErrModelUnavailable, aspect, err)
}

// decide runs the sentiment pass over kept aspects and returns the records
// of the decisive ones, sorted by descending aspect confidence. Ties keep
// catalog order.
func (a *Analyzer) decide(evals []AspectEvaluation) []models.ResultRecord {
	results := make([]models.ResultRecord, 0, len(evals))

	for i := range evals {
		e := &evals[i]
		if !e.Kept {
			continue
		}

		d := decideSentiment(e.Distribution, e.HasKeyword, a.cfg)
		e.Sentiment = d.Sentiment
		e.SentimentConfidence = d.Confidence
		e.Margin = d.Margin
		e.Decisive = d.Decisive

		if !d.Decisive {
			slog.Debug("[Engine] Dropped indecisive aspect",
				slog.String("aspect", string(e.Aspect)),
				slog.Float64("sentiment_confidence", d.Confidence),
				slog.Float64("margin", d.Margin))
			continue
		}

		results = append(results, models.ResultRecord{
			Aspect:              e.Aspect,
			Sentiment:           d.Sentiment,
			AspectConfidence:    e.Confidence,
			SentimentConfidence: d.Confidence,
			Margin:              d.Margin,
		})
	}

	slices.SortStableFunc(results, func(x, y models.ResultRecord) int {
		return cmp.Compare(y.AspectConfidence, x.AspectConfidence)
	})
	return results
}
