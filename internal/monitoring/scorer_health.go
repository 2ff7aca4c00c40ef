package monitoring

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/spacesedan/aspectflow/internal/classifier"
)

const (
	HEALTHCHECK_INTERVAL = 15 * time.Second
	HEALTHCHECK_TIMEOUT  = 5 * time.Second
)

// MonitorScorerHealth probes the scorer on every tick and stores the
// outcome in healthy until ctx is done. The first probe runs immediately.
func MonitorScorerHealth(ctx context.Context, checker classifier.HealthChecker, healthy *atomic.Bool, interval time.Duration) {
	if interval <= 0 {
		interval = HEALTHCHECK_INTERVAL
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	probeScorer(ctx, checker, healthy)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			probeScorer(ctx, checker, healthy)
		}
	}
}

func probeScorer(ctx context.Context, checker classifier.HealthChecker, healthy *atomic.Bool) {
	probeCtx, cancel := context.WithTimeout(ctx, HEALTHCHECK_TIMEOUT)
	defer cancel()

	err := checker.HealthCheck(probeCtx)
	wasHealthy := healthy.Swap(err == nil)

	switch {
	case err != nil && ctx.Err() == nil:
		slog.Warn("[HealthCheck] Scorer is unhealthy", slog.String("error", err.Error()))
	case err == nil && !wasHealthy:
		slog.Info("[HealthCheck] Scorer recovered")
	}
}
