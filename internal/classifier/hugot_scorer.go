package classifier

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/knights-analytics/hugot"
	"github.com/knights-analytics/hugot/pipelines"
)

const hugotPipelineName = "aspectPairPipeline"

type HugotOptions struct {
	ModelPath         string
	Labels            []string
	Separator         string
	MaxSequenceTokens int
}

// HugotScorer runs the fine-tuned sequence-pair model locally through an
// ONNX Runtime session.
type HugotScorer struct {
	session   *hugot.Session
	pipeline  *pipelines.TextClassificationPipeline
	labels    map[string]int
	separator string
	maxTokens int
}

func NewHugotScorer(opts HugotOptions) (*HugotScorer, error) {
	if _, err := os.Stat(opts.ModelPath); err != nil {
		return nil, fmt.Errorf("%w: [HugotScorer] model path %q: %w", ErrModelUnavailable, opts.ModelPath, err)
	}

	labels, err := labelIndex(opts.Labels)
	if err != nil {
		return nil, err
	}

	slog.Info("[HugotScorer] Initializing ONNX Runtime session",
		slog.String("model_path", opts.ModelPath))

	session, err := hugot.NewORTSession()
	if err != nil {
		return nil, fmt.Errorf("%w: [HugotScorer] failed to initialize session: %w", ErrModelUnavailable, err)
	}

	config := hugot.TextClassificationConfig{
		ModelPath: opts.ModelPath,
		Name:      hugotPipelineName,
		Options: []hugot.TextClassificationOption{
			pipelines.WithSoftmax(),
			pipelines.WithMultiLabel(),
		},
	}
	pipeline, err := hugot.NewPipeline(session, config)
	if err != nil {
		_ = session.Destroy()
		return nil, fmt.Errorf("%w: [HugotScorer] failed to initialize pipeline: %w", ErrModelUnavailable, err)
	}

	slog.Info("[HugotScorer] Pipeline ready", slog.String("pipeline", hugotPipelineName))

	return &HugotScorer{
		session:   session,
		pipeline:  pipeline,
		labels:    labels,
		separator: opts.Separator,
		maxTokens: opts.MaxSequenceTokens,
	}, nil
}

func (h *HugotScorer) Score(ctx context.Context, prompt, text string) ([]float64, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	input := JoinPair(prompt, TruncatePair(prompt, text, h.maxTokens), h.separator)

	start := time.Now()
	output, err := h.pipeline.RunPipeline([]string{input})
	if err != nil {
		return nil, fmt.Errorf("%w: [HugotScorer] inference failed: %w", ErrModelUnavailable, err)
	}
	slog.Debug("[HugotScorer] Inference complete", slog.Duration("elapsed", time.Since(start)))

	if len(output.ClassificationOutputs) != 1 {
		return nil, fmt.Errorf("%w: expected 1 output row, got %d", ErrMalformedOutput, len(output.ClassificationOutputs))
	}

	scores := make(map[string]float64, NumLabels)
	for _, c := range output.ClassificationOutputs[0] {
		scores[c.Label] = float64(c.Score)
	}
	return orderScores(h.labels, scores)
}

// HealthCheck runs one tiny inference through the pipeline.
func (h *HugotScorer) HealthCheck(ctx context.Context) error {
	_, err := h.Score(ctx, "kiểm tra", "kiểm tra")
	return err
}

func (h *HugotScorer) Close() error {
	slog.Info("[HugotScorer] Destroying session")
	return h.session.Destroy()
}

// DownloadModel fetches a model repository from the Hugging Face hub into
// dir and returns the local model path.
func DownloadModel(repo, dir string) (string, error) {
	if err := os.MkdirAll(dir, os.ModePerm); err != nil {
		return "", fmt.Errorf("[HugotScorer] failed to create model directory: %w", err)
	}

	slog.Info("[HugotScorer] Downloading model", slog.String("repo", repo), slog.String("dir", dir))
	path, err := hugot.DownloadModel(repo, dir, hugot.NewDownloadOptions())
	if err != nil {
		return "", fmt.Errorf("[HugotScorer] failed to download %s: %w", repo, err)
	}

	slog.Info("[HugotScorer] Model downloaded", slog.String("path", path))
	return path, nil
}
