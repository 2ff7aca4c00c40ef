// Package classifier defines the per-aspect classifier contract and its
// adapters. A Scorer receives an aspect prompt and the feedback text and
// returns a distribution over {none, negative, neutral, positive}.
package classifier

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
)

const (
	LabelNone = iota
	LabelNegative
	LabelNeutral
	LabelPositive

	NumLabels = 4
)

// LabelNames are the canonical label names, indexed by Label*.
var LabelNames = [NumLabels]string{"none", "negative", "neutral", "positive"}

// sumTolerance absorbs float32 softmax rounding from model runtimes.
const sumTolerance = 1e-3

var (
	// ErrModelUnavailable marks a scorer that could not produce a
	// distribution: the model failed to load or an inference call failed.
	ErrModelUnavailable = errors.New("classifier model unavailable")

	// ErrMalformedOutput marks a distribution that breaks the contract:
	// wrong length, NaN/Inf, values outside [0,1] or a sum far from 1.
	ErrMalformedOutput = errors.New("malformed classifier output")
)

// Scorer is the per-aspect classifier contract. Implementations must be
// safe for concurrent use.
type Scorer interface {
	Score(ctx context.Context, prompt, text string) ([]float64, error)
}

// HealthChecker is implemented by scorers that can probe their backend.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// Distribution is a validated classifier output.
type Distribution [NumLabels]float64

// ParseDistribution validates raw scorer output. It never coerces values.
func ParseDistribution(p []float64) (Distribution, error) {
	var d Distribution
	if len(p) != NumLabels {
		return d, fmt.Errorf("%w: expected %d probabilities, got %d", ErrMalformedOutput, NumLabels, len(p))
	}

	sum := 0.0
	for i, v := range p {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return d, fmt.Errorf("%w: %s probability is not finite", ErrMalformedOutput, LabelNames[i])
		}
		if v < 0 || v > 1 {
			return d, fmt.Errorf("%w: %s probability %.4f outside [0,1]", ErrMalformedOutput, LabelNames[i], v)
		}
		d[i] = v
		sum += v
	}
	if math.Abs(sum-1) > sumTolerance {
		return d, fmt.Errorf("%w: probabilities sum to %.4f", ErrMalformedOutput, sum)
	}

	return d, nil
}

// NotNone is the aspect relevance confidence: 1 - P(none).
func (d Distribution) NotNone() float64 {
	return 1 - d[LabelNone]
}

// Close releases scorer resources when the scorer holds any.
func Close(s Scorer) error {
	if c, ok := s.(io.Closer); ok {
		return c.Close()
	}
	return nil
}
