package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/spacesedan/aspectflow/config"
	"github.com/spacesedan/aspectflow/internal/app"
	"github.com/spacesedan/aspectflow/internal/classifier"
	"github.com/spacesedan/aspectflow/internal/clients/kafka_client"
	"github.com/spacesedan/aspectflow/internal/consumers"
	"github.com/spacesedan/aspectflow/internal/logging"
	"github.com/spacesedan/aspectflow/internal/monitoring"
	"github.com/spacesedan/aspectflow/internal/service"
)

func main() {
	config.LoadEnv(config.AppEnv())
	logging.InitLogger()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	analyzer, scorer, err := app.NewAnalyzer()
	if err != nil {
		slog.Error("[Main] Failed to build analyzer", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer classifier.Close(scorer)

	store, closeStore, err := app.OpenStore(config.Store())
	if err != nil {
		slog.Error("[Main] Failed to open result store", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer closeStore()

	opts, err := app.ServiceOptions(store)
	if err != nil {
		slog.Error("[Main] Failed to connect cache", slog.String("error", err.Error()))
		os.Exit(1)
	}
	svc := service.New(analyzer, opts...)

	cfg := kafka_client.GetKafkaConfig()
	for {
		err := kafka_client.InitProducer(cfg)
		if err == nil {
			break
		}
		slog.Warn("[Main] Kafka init failed, retrying...", slog.String("error", err.Error()))
		select {
		case <-ctx.Done():
			return
		case <-time.After(5 * time.Second):
		}
	}
	defer kafka_client.CloseProducer()

	scorerHealthy := &atomic.Bool{}
	scorerHealthy.Store(true)
	if checker, ok := scorer.(classifier.HealthChecker); ok {
		go monitoring.MonitorScorerHealth(ctx, checker, scorerHealthy, monitoring.HEALTHCHECK_INTERVAL)
	}

	feedbackConsumer := consumers.NewFeedbackConsumer(svc, consumers.PublishAnalyzed)
	kafka_client.RegisterConsumer(kafka_client.KAFKA_TOPIC_FEEDBACK_SUBMITTED,
		consumers.WrapConsumer(feedbackConsumer.StartFeedbackConsumer).WithHealthCheck(scorerHealthy).Handler())

	if err := kafka_client.StartConsumer(ctx, cfg); err != nil {
		slog.Error("[Main] Failed to start consumer",
			slog.String("error", err.Error()))
	}
}
