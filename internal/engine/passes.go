package engine

import (
	"github.com/spacesedan/aspectflow/internal/classifier"
	"github.com/spacesedan/aspectflow/internal/models"
)

// AspectEvaluation is the per-aspect working state of one Analyze call.
type AspectEvaluation struct {
	Aspect         models.Aspect           `json:"aspect"`
	Distribution   classifier.Distribution `json:"distribution"`
	RawConfidence  float64                 `json:"raw_confidence"`
	Confidence     float64                 `json:"confidence"`
	HasKeyword     bool                    `json:"has_keyword"`
	Kept           bool                    `json:"kept"`
	HighConfidence bool                    `json:"high_confidence"`

	// Filled by the sentiment pass for kept aspects.
	Sentiment           models.Sentiment `json:"sentiment,omitempty"`
	SentimentConfidence float64          `json:"sentiment_confidence,omitempty"`
	Margin              float64          `json:"margin,omitempty"`
	Decisive            bool             `json:"decisive"`
}

// The passes below run in order over the evaluations of one text. Each
// mutates only the flags it owns so it can be tested in isolation.

// applyKeywordBoost sets the boosted confidence and the high-confidence
// flag. Keyword evidence counters model under-confidence on short texts.
func applyKeywordBoost(evals []AspectEvaluation, cfg Config) {
	for i := range evals {
		e := &evals[i]
		e.Confidence = e.RawConfidence
		if e.HasKeyword {
			e.Confidence = min(1, e.Confidence+cfg.KeywordBoost)
		}
		e.HighConfidence = e.Confidence >= cfg.DominanceThreshold
	}
}

// filterRelevant keeps keyword-anchored aspects above the relevance
// threshold and keyword-less aspects only above the much higher
// no-keyword threshold.
func filterRelevant(evals []AspectEvaluation, cfg Config) {
	for i := range evals {
		e := &evals[i]
		if e.HasKeyword {
			e.Kept = e.Confidence >= cfg.RelevanceThreshold
		} else {
			e.Kept = e.Confidence >= cfg.NoKeywordThreshold
		}
	}
}

// applyDominance lets a very-high-confidence aspect suppress kept aspects
// that have neither keyword evidence nor very high confidence themselves.
// It reports whether a dominant aspect was present.
func applyDominance(evals []AspectEvaluation) bool {
	dominant := false
	for _, e := range evals {
		if e.Kept && e.HighConfidence {
			dominant = true
			break
		}
	}
	if !dominant {
		return false
	}

	for i := range evals {
		e := &evals[i]
		if e.Kept && !e.HasKeyword && !e.HighConfidence {
			e.Kept = false
		}
	}
	return true
}

// readmitKeywordAnchored re-adds, in catalog order and while fewer than all
// aspects are kept, aspects with keyword evidence that clear the
// re-admission bar.
func readmitKeywordAnchored(evals []AspectEvaluation, cfg Config) {
	kept := 0
	for _, e := range evals {
		if e.Kept {
			kept++
		}
	}

	bar := cfg.readmitThreshold()
	for i := range evals {
		if kept >= len(evals) {
			return
		}
		e := &evals[i]
		if !e.Kept && e.HasKeyword && e.Confidence >= bar {
			e.Kept = true
			kept++
		}
	}
}

func keptCount(evals []AspectEvaluation) int {
	n := 0
	for _, e := range evals {
		if e.Kept {
			n++
		}
	}
	return n
}
