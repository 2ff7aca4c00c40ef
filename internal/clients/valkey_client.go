package clients

import (
	"context"
	"crypto/sha256"
	"crypto/tls"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/spacesedan/aspectflow/config"
	"github.com/spacesedan/aspectflow/internal/models"
	"github.com/valkey-io/valkey-go"
)

var (
	valkeyInstance *ValkeyClient
	valkeyErr      error
	valkeyOnce     sync.Once
)

const (
	VALKEY_PROCESSED_PREFIX = "aspectflow:processed:"
	VALKEY_RESULTS_PREFIX   = "aspectflow:results:"

	valkeyRetries    = 3
	valkeyRetryDelay = 250 * time.Millisecond
)

// ValkeyClient marks processed feedback ids and caches aspect results by
// analyzer fingerprint and text. The engine is deterministic for a given
// model, catalog and config, so equal storage-form text yields equal results.
type ValkeyClient struct {
	Client   valkey.Client
	settings config.ValkeySettings
	mu       sync.Mutex
}

// InitValkey connects once and returns the shared client.
func InitValkey(settings config.ValkeySettings) (*ValkeyClient, error) {
	valkeyOnce.Do(func() {
		client, err := newValkey(settings)
		if err != nil {
			valkeyErr = err
			return
		}
		slog.Info("[ValkeyClient] Successfully connected to valkey",
			slog.String("addr", settings.Addr))
		valkeyInstance = &ValkeyClient{Client: client, settings: settings}
	})
	return valkeyInstance, valkeyErr
}

func newValkey(settings config.ValkeySettings) (valkey.Client, error) {
	opts := valkey.ClientOption{
		InitAddress:      []string{settings.Addr},
		Password:         settings.Password,
		ConnWriteTimeout: 5 * time.Second,
		SelectDB:         0,
	}
	if settings.TLS {
		opts.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
	}

	client, err := valkey.NewClient(opts)
	if err != nil {
		return nil, fmt.Errorf("[ValkeyClient] failed to create Valkey: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	if err := client.Do(ctx, client.B().Ping().Build()).Error(); err != nil {
		client.Close()
		return nil, fmt.Errorf("[ValkeyClient] failed to ping Valkey: %w", err)
	}
	return client, nil
}

func (vc *ValkeyClient) recreateClient() {
	vc.mu.Lock()
	defer vc.mu.Unlock()

	slog.Warn("[ValkeyClient] Attempting to recreate Valkey client...")
	client, err := newValkey(vc.settings)
	if err != nil {
		slog.Error("[ValkeyClient] Recreate failed", slog.String("error", err.Error()))
		return
	}
	vc.Client.Close()
	vc.Client = client
	slog.Info("[ValkeyClient] Successfully reconnected to valkey")
}

func (vc *ValkeyClient) client() valkey.Client {
	vc.mu.Lock()
	defer vc.mu.Unlock()
	return vc.Client
}

func (vc *ValkeyClient) Close() {
	vc.client().Close()
}

func (vc *ValkeyClient) ttlSeconds() int64 {
	return max(1, int64(vc.settings.TTL/time.Second))
}

func (vc *ValkeyClient) MarkProcessed(ctx context.Context, feedbackID string) error {
	c := vc.client()
	res := vc.DoWithRetry(ctx, c.B().Set().Key(processedKey(feedbackID)).Value("1").ExSeconds(vc.ttlSeconds()).Build(), valkeyRetries)
	if err := res.Error(); err != nil {
		return fmt.Errorf("[ValkeyClient] failed to mark %s processed: %w", feedbackID, err)
	}

	slog.Debug("[ValkeyClient] Marked feedback processed", slog.String("feedback_id", feedbackID))
	return nil
}

// IsProcessed reports false when the lookup fails; reprocessing is safe
// because stores upsert by feedback id.
func (vc *ValkeyClient) IsProcessed(ctx context.Context, feedbackID string) bool {
	c := vc.client()
	res := vc.DoWithRetry(ctx, c.B().Exists().Key(processedKey(feedbackID)).Build(), valkeyRetries)

	n, err := res.AsInt64()
	if err != nil {
		slog.Warn("[ValkeyClient] Processed lookup failed",
			slog.String("feedback_id", feedbackID),
			slog.String("error", err.Error()))
		return false
	}
	return n > 0
}

// CachedResults returns the results stored for text under the analyzer
// fingerprint, if any.
func (vc *ValkeyClient) CachedResults(ctx context.Context, fingerprint, text string) ([]models.ResultRecord, bool) {
	c := vc.client()
	raw, err := vc.DoWithRetry(ctx, c.B().Get().Key(ResultsKey(fingerprint, text)).Build(), valkeyRetries).ToString()
	if err != nil {
		if !valkey.IsValkeyNil(err) {
			slog.Warn("[ValkeyClient] Result cache lookup failed", slog.String("error", err.Error()))
		}
		return nil, false
	}

	var results []models.ResultRecord
	if err := json.Unmarshal([]byte(raw), &results); err != nil {
		slog.Warn("[ValkeyClient] Dropping corrupt cache entry", slog.String("error", err.Error()))
		return nil, false
	}
	return results, true
}

func (vc *ValkeyClient) CacheResults(ctx context.Context, fingerprint, text string, results []models.ResultRecord) error {
	payload, err := json.Marshal(results)
	if err != nil {
		return fmt.Errorf("[ValkeyClient] failed to encode results: %w", err)
	}

	c := vc.client()
	completed := []valkey.Completed{
		c.B().Set().Key(ResultsKey(fingerprint, text)).Value(string(payload)).ExSeconds(vc.ttlSeconds()).Build(),
	}
	for _, res := range vc.DoMultiWithRetry(ctx, completed, valkeyRetries) {
		if err := res.Error(); err != nil {
			return fmt.Errorf("[ValkeyClient] failed to cache results: %w", err)
		}
	}
	return nil
}

func processedKey(feedbackID string) string {
	return VALKEY_PROCESSED_PREFIX + feedbackID
}

// ResultsKey derives the cache key from the analyzer fingerprint and the
// storage form of the text.
func ResultsKey(fingerprint, text string) string {
	sum := sha256.Sum256([]byte(text))
	return VALKEY_RESULTS_PREFIX + fingerprint + ":" + hex.EncodeToString(sum[:])
}

func (vc *ValkeyClient) DoMultiWithRetry(ctx context.Context, completed []valkey.Completed, retries int) []valkey.ValkeyResult {
	var results []valkey.ValkeyResult

	for i := 0; i < retries; i++ {
		results = vc.client().DoMulti(ctx, completed...)
		var failed error
		for _, r := range results {
			if r.Error() != nil {
				failed = r.Error()
				break
			}
		}
		if failed == nil {
			break
		}

		slog.Warn("[ValkeyClient] Do Multi failed",
			slog.Int("attempt", i+1),
			slog.String("error", failed.Error()))
		if isConnectionError(failed) {
			vc.recreateClient()
		}
		if !sleepCtx(ctx, valkeyRetryDelay) {
			break
		}
	}

	return results
}

func (vc *ValkeyClient) DoWithRetry(ctx context.Context, completed valkey.Completed, retries int) valkey.ValkeyResult {
	var result valkey.ValkeyResult
	for i := 0; i < retries; i++ {
		result = vc.client().Do(ctx, completed)
		err := result.Error()
		if err == nil || valkey.IsValkeyNil(err) {
			break
		}

		slog.Warn("[ValkeyClient] Do failed",
			slog.Int("attempt", i+1),
			slog.String("error", err.Error()))
		if isConnectionError(err) {
			vc.recreateClient()
		}
		if !sleepCtx(ctx, valkeyRetryDelay) {
			break
		}
	}

	return result
}

func isConnectionError(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "connection refused") ||
		strings.Contains(msg, "EOF") ||
		strings.Contains(msg, "i/o timeout")
}

func sleepCtx(ctx context.Context, d time.Duration) bool {
	select {
	case <-ctx.Done():
		return false
	case <-time.After(d):
		return true
	}
}
