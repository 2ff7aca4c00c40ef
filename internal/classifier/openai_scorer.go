package classifier

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

const (
	defaultOpenAIModel   = "gpt-4o-mini"
	openAIRequestTimeout = 60 * time.Second
)

const openAISystemPrompt = `You label Vietnamese student feedback for one aspect.
Follow the aspect instruction given by the user. Reply with a single JSON object
and nothing else, mapping each of "none", "negative", "neutral", "positive" to a
probability. The four probabilities must sum to 1. "none" means the aspect is not
discussed at all.`

type OpenAIOptions struct {
	APIKey            string
	Model             string
	BaseURL           string
	MaxSequenceTokens int
}

// OpenAIScorer asks a chat model for the four-way distribution. It is the
// fallback when no fine-tuned pair model is deployed.
type OpenAIScorer struct {
	client    *openai.Client
	model     string
	maxTokens int
}

func NewOpenAIScorer(opts OpenAIOptions) (*OpenAIScorer, error) {
	if opts.APIKey == "" {
		return nil, fmt.Errorf("%w: [OpenAIScorer] missing OPENAI_API_KEY", ErrModelUnavailable)
	}
	if opts.Model == "" {
		opts.Model = defaultOpenAIModel
	}

	reqOpts := []option.RequestOption{
		option.WithAPIKey(opts.APIKey),
		option.WithRequestTimeout(openAIRequestTimeout),
		option.WithMaxRetries(0),
	}
	if opts.BaseURL != "" {
		reqOpts = append(reqOpts, option.WithBaseURL(opts.BaseURL))
	}

	slog.Info("[OpenAIScorer] OpenAI client initialized",
		slog.String("model", opts.Model),
		slog.Duration("timeout", openAIRequestTimeout))

	return &OpenAIScorer{
		client:    openai.NewClient(reqOpts...),
		model:     opts.Model,
		maxTokens: opts.MaxSequenceTokens,
	}, nil
}

func (o *OpenAIScorer) Score(ctx context.Context, prompt, text string) ([]float64, error) {
	user := fmt.Sprintf("Aspect instruction:\n%s\n\nFeedback:\n%s", prompt, TruncatePair(prompt, text, o.maxTokens))

	start := time.Now()
	completion, err := o.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: openai.F(openai.ChatModel(o.model)),
		Messages: openai.F([]openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(openAISystemPrompt),
			openai.UserMessage(user),
		}),
		Temperature: openai.F(0.0),
	})
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("%w: [OpenAIScorer] completion failed: %w", ErrModelUnavailable, err)
	}
	if len(completion.Choices) == 0 {
		return nil, fmt.Errorf("%w: completion has no choices", ErrMalformedOutput)
	}

	slog.Debug("[OpenAIScorer] Completion received", slog.Duration("elapsed", time.Since(start)))
	return parseLabelScores(completion.Choices[0].Message.Content)
}

// parseLabelScores reads the {"none": p, ...} object out of a completion,
// tolerating a surrounding markdown code fence.
func parseLabelScores(content string) ([]float64, error) {
	content = strings.TrimSpace(content)
	content = strings.TrimPrefix(content, "```json")
	content = strings.TrimPrefix(content, "```")
	content = strings.TrimSuffix(content, "```")

	start := strings.Index(content, "{")
	end := strings.LastIndex(content, "}")
	if start < 0 || end < start {
		return nil, fmt.Errorf("%w: no JSON object in completion", ErrMalformedOutput)
	}

	var scores map[string]float64
	if err := json.Unmarshal([]byte(content[start:end+1]), &scores); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedOutput, err)
	}

	idx, err := labelIndex(nil)
	if err != nil {
		return nil, err
	}
	return orderScores(idx, scores)
}

func (o *OpenAIScorer) HealthCheck(ctx context.Context) error {
	if _, err := o.client.Models.Get(ctx, o.model); err != nil {
		if errors.Is(err, context.Canceled) {
			return err
		}
		return fmt.Errorf("%w: %w", ErrModelUnavailable, err)
	}
	return nil
}
