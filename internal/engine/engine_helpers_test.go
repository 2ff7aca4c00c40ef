package engine

import (
	"context"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/spacesedan/aspectflow/internal/aspects"
	"github.com/spacesedan/aspectflow/internal/models"
	"github.com/stretchr/testify/require"
)

// testCatalog uses the aspect id as every prompt so fakeScorer can route
// by prompt.
const testCatalog = `
aspects:
  - id: lecturer
    name: giang_vien
    default_prompt: lecturer
    subtopics:
      - name: giang_day
        keywords: ["giảng viên"]
  - id: training_program
    name: chuong_trinh
    default_prompt: training_program
    subtopics:
      - name: mon_hoc
        keywords: ["môn học"]
  - id: facility
    name: co_so_vat_chat
    default_prompt: facility
    subtopics:
      - name: phong_hoc
        keywords: ["phòng học"]
  - id: others
    name: khac
    default_prompt: others
    subtopics:
      - name: thu_vien
        keywords: ["thư viện"]
`

func testIndex(t *testing.T) *aspects.Index {
	t.Helper()
	idx, err := aspects.Load(strings.NewReader(testCatalog))
	require.NoError(t, err)
	return idx
}

// dist builds a distribution with relevance conf and the sentiment mass
// split as neg/neu/pos.
func dist(conf, neg, neu, pos float64) []float64 {
	return []float64{1 - conf, conf * neg, conf * neu, conf * pos}
}

var irrelevant = []float64{1, 0, 0, 0}

type fakeScorer struct {
	byPrompt map[string][]float64
	errs     map[string]error
	calls    atomic.Int64

	mu      sync.Mutex
	prompts []string
}

func newFakeScorer(byPrompt map[models.Aspect][]float64) *fakeScorer {
	f := &fakeScorer{byPrompt: map[string][]float64{}, errs: map[string]error{}}
	for a, d := range byPrompt {
		f.byPrompt[string(a)] = d
	}
	return f
}

func (f *fakeScorer) Score(ctx context.Context, prompt, _ string) ([]float64, error) {
	f.calls.Add(1)
	f.mu.Lock()
	f.prompts = append(f.prompts, prompt)
	f.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err, ok := f.errs[prompt]; ok {
		return nil, err
	}
	if d, ok := f.byPrompt[prompt]; ok {
		return d, nil
	}
	return irrelevant, nil
}

func newTestAnalyzer(t *testing.T, scorer *fakeScorer, cfg Config) *Analyzer {
	t.Helper()
	a, err := New(testIndex(t), scorer, cfg)
	require.NoError(t, err)
	return a
}
