package classifier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
)

const (
	defaultRemoteTimeout  = 10 * time.Second
	defaultRemoteRetries  = 3
	defaultInitialBackoff = 500 * time.Millisecond
	userAgent             = "aspectflow-client/1.0 (+https://github.com/spacesedan/aspectflow)"
)

type RemoteOptions struct {
	Endpoint          string
	HealthEndpoint    string
	Timeout           time.Duration
	MaxRetries        int
	InitialBackoff    time.Duration
	MaxSequenceTokens int

	// OAuth2 client credentials; left empty the endpoint is called
	// unauthenticated.
	TokenURL     string
	ClientID     string
	ClientSecret string
	Scopes       []string
}

type remoteRequest struct {
	Prompt string `json:"prompt"`
	Text   string `json:"text"`
}

type remoteResponse struct {
	Probabilities []float64 `json:"probabilities"`
}

// RemoteScorer calls a hosted inference endpoint that serves the pair model.
type RemoteScorer struct {
	client         *http.Client
	endpoint       string
	healthEndpoint string
	maxRetries     int
	initialBackoff time.Duration
	maxTokens      int
}

func NewRemoteScorer(opts RemoteOptions) (*RemoteScorer, error) {
	if opts.Endpoint == "" {
		return nil, fmt.Errorf("%w: [RemoteScorer] no endpoint configured", ErrModelUnavailable)
	}
	if opts.Timeout <= 0 {
		opts.Timeout = defaultRemoteTimeout
	}
	if opts.MaxRetries <= 0 {
		opts.MaxRetries = defaultRemoteRetries
	}
	if opts.InitialBackoff <= 0 {
		opts.InitialBackoff = defaultInitialBackoff
	}

	client := &http.Client{Timeout: opts.Timeout}
	if opts.ClientID != "" {
		creds := clientcredentials.Config{
			ClientID:     opts.ClientID,
			ClientSecret: opts.ClientSecret,
			TokenURL:     opts.TokenURL,
			Scopes:       opts.Scopes,
			AuthStyle:    oauth2.AuthStyleInHeader,
		}
		ctx := context.WithValue(context.Background(), oauth2.HTTPClient, client)
		client = creds.Client(ctx)
		client.Timeout = opts.Timeout
	}

	slog.Info("[RemoteScorer] Initializing client",
		slog.String("endpoint", opts.Endpoint),
		slog.Duration("timeout", opts.Timeout),
		slog.Bool("oauth2", opts.ClientID != ""))

	return &RemoteScorer{
		client:         client,
		endpoint:       opts.Endpoint,
		healthEndpoint: opts.HealthEndpoint,
		maxRetries:     opts.MaxRetries,
		initialBackoff: opts.InitialBackoff,
		maxTokens:      opts.MaxSequenceTokens,
	}, nil
}

func (r *RemoteScorer) Score(ctx context.Context, prompt, text string) ([]float64, error) {
	body, err := json.Marshal(remoteRequest{
		Prompt: prompt,
		Text:   TruncatePair(prompt, text, r.maxTokens),
	})
	if err != nil {
		return nil, fmt.Errorf("[RemoteScorer] failed to marshal input: %w", err)
	}

	start := time.Now()
	respBody, err := r.postWithRetry(ctx, body)
	if err != nil {
		slog.Error("[RemoteScorer] Scoring request failed",
			slog.Duration("elapsed", time.Since(start)),
			slog.String("error", err.Error()))
		return nil, err
	}

	var out remoteResponse
	if err := json.Unmarshal(respBody, &out); err != nil {
		slog.Error("[RemoteScorer] Failed to unmarshal response",
			slog.String("error", err.Error()),
			getPreview(respBody))
		return nil, fmt.Errorf("%w: %w", ErrMalformedOutput, err)
	}

	slog.Debug("[RemoteScorer] Scoring request successful",
		slog.Duration("elapsed", time.Since(start)))
	return out.Probabilities, nil
}

// postWithRetry retries transport errors and 5xx responses with
// exponential backoff. Any other non-200 status fails immediately.
func (r *RemoteScorer) postWithRetry(ctx context.Context, body []byte) ([]byte, error) {
	backoff := r.initialBackoff
	var lastErr error

	for attempt := 0; attempt < r.maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(backoff):
			}
			backoff *= 2
		}

		respBody, status, err := r.post(ctx, body)
		switch {
		case err != nil:
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			lastErr = err
		case status == http.StatusOK:
			return respBody, nil
		case status >= 500:
			lastErr = fmt.Errorf("status code %d", status)
		default:
			return nil, fmt.Errorf("%w: [RemoteScorer] endpoint returned status %d", ErrModelUnavailable, status)
		}

		slog.Warn("[RemoteScorer] Request failed, will retry",
			slog.Int("attempt", attempt+1),
			slog.String("error", lastErr.Error()))
	}

	return nil, fmt.Errorf("%w: [RemoteScorer] request failed after %d attempts: %w", ErrModelUnavailable, r.maxRetries, lastErr)
}

func (r *RemoteScorer) post(ctx context.Context, body []byte) ([]byte, int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, 0, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", userAgent)

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, 0, err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resp.StatusCode, fmt.Errorf("failed to read response: %w", err)
	}
	return respBody, resp.StatusCode, nil
}

// HealthCheck probes the health endpoint, or runs one tiny inference when
// none is configured.
func (r *RemoteScorer) HealthCheck(ctx context.Context) error {
	if r.healthEndpoint == "" {
		_, err := r.Score(ctx, "kiểm tra", "kiểm tra")
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.healthEndpoint, nil)
	if err != nil {
		return err
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := r.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrModelUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: health status %d", ErrModelUnavailable, resp.StatusCode)
	}
	return nil
}

func getPreview(respBody []byte) slog.Attr {
	raw := string(respBody)
	if len(raw) > 50 {
		raw = raw[:50]
	}
	return slog.String("raw_response", raw)
}
