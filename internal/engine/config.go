package engine

import (
	"errors"
	"fmt"
)

// Config holds every tunable constant of the decision passes. The values
// are empirically tuned, not derived; DefaultConfig is the tuned set.
type Config struct {
	// KeywordBoost is added to the not-none confidence of an aspect whose
	// keywords occur in the text, capped at 1.
	KeywordBoost float64

	// RelevanceThreshold keeps keyword-anchored aspects.
	RelevanceThreshold float64

	// NoKeywordThreshold keeps aspects without any keyword evidence.
	NoKeywordThreshold float64

	// DominanceThreshold marks an aspect as overwhelmingly confident.
	DominanceThreshold float64

	// ReadmitRelax and ReadmitPenalty shape the re-admission bar:
	// RelevanceThreshold - ReadmitRelax + ReadmitPenalty.
	ReadmitRelax   float64
	ReadmitPenalty float64

	// MinSentimentProb is the floor for the winning sentiment probability.
	MinSentimentProb float64

	// MarginThreshold is the minimum gap between the top two sentiments;
	// KeywordMarginRelax lowers it for keyword-anchored aspects.
	MarginThreshold    float64
	KeywordMarginRelax float64

	// MaxParallel bounds concurrent scorer calls per Analyze. 1 scores
	// aspects sequentially; 0 means one goroutine per aspect.
	MaxParallel int
}

func DefaultConfig() Config {
	return Config{
		KeywordBoost:       0.03,
		RelevanceThreshold: 0.50,
		NoKeywordThreshold: 0.85,
		DominanceThreshold: 0.95,
		ReadmitRelax:       0.05,
		ReadmitPenalty:     0.10,
		MinSentimentProb:   0.40,
		MarginThreshold:    0.03,
		KeywordMarginRelax: 0.02,
		MaxParallel:        0,
	}
}

var ErrInvalidConfig = errors.New("invalid engine config")

func (c Config) Validate() error {
	probs := map[string]float64{
		"KeywordBoost":       c.KeywordBoost,
		"RelevanceThreshold": c.RelevanceThreshold,
		"NoKeywordThreshold": c.NoKeywordThreshold,
		"DominanceThreshold": c.DominanceThreshold,
		"ReadmitRelax":       c.ReadmitRelax,
		"ReadmitPenalty":     c.ReadmitPenalty,
		"MinSentimentProb":   c.MinSentimentProb,
		"MarginThreshold":    c.MarginThreshold,
		"KeywordMarginRelax": c.KeywordMarginRelax,
	}
	for name, v := range probs {
		if v < 0 || v > 1 {
			return fmt.Errorf("%w: %s=%.4f outside [0,1]", ErrInvalidConfig, name, v)
		}
	}
	if c.MaxParallel < 0 {
		return fmt.Errorf("%w: MaxParallel=%d", ErrInvalidConfig, c.MaxParallel)
	}
	return nil
}

// readmitThreshold is the bar a keyword-anchored aspect must clear to be
// re-admitted after a dominance drop.
func (c Config) readmitThreshold() float64 {
	return c.RelevanceThreshold - c.ReadmitRelax + c.ReadmitPenalty
}

// marginThreshold is the sentiment margin required for one aspect.
func (c Config) marginThreshold(hasKeyword bool) float64 {
	if !hasKeyword {
		return c.MarginThreshold
	}
	return max(0, c.MarginThreshold-c.KeywordMarginRelax)
}
