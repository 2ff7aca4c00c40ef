package classifier

import (
	"fmt"
	"strings"
)

// labelIndex maps the label names a model may emit to Label* indices. Both
// the configured names and the generic LABEL_n ids are accepted.
func labelIndex(names []string) (map[string]int, error) {
	if len(names) == 0 {
		names = LabelNames[:]
	}
	if len(names) != NumLabels {
		return nil, fmt.Errorf("[Classifier] expected %d label names, got %d", NumLabels, len(names))
	}

	idx := make(map[string]int, NumLabels*2)
	for i, n := range names {
		idx[strings.ToLower(strings.TrimSpace(n))] = i
		idx[fmt.Sprintf("label_%d", i)] = i
	}
	return idx, nil
}

// orderScores places label/score pairs into a Label*-indexed vector. Every
// label must be present exactly once.
func orderScores(idx map[string]int, scores map[string]float64) ([]float64, error) {
	out := make([]float64, NumLabels)
	seen := make([]bool, NumLabels)

	for label, score := range scores {
		i, ok := idx[strings.ToLower(strings.TrimSpace(label))]
		if !ok {
			return nil, fmt.Errorf("%w: unknown label %q", ErrMalformedOutput, label)
		}
		if seen[i] {
			return nil, fmt.Errorf("%w: label %q reported twice", ErrMalformedOutput, label)
		}
		seen[i] = true
		out[i] = score
	}

	for i, ok := range seen {
		if !ok {
			return nil, fmt.Errorf("%w: missing label %q", ErrMalformedOutput, LabelNames[i])
		}
	}
	return out, nil
}
