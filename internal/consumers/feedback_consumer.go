package consumers

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/confluentinc/confluent-kafka-go/kafka"
	"github.com/spacesedan/aspectflow/internal/classifier"
	"github.com/spacesedan/aspectflow/internal/clients/kafka_client"
	"github.com/spacesedan/aspectflow/internal/models"
	"github.com/spacesedan/aspectflow/internal/utils"
)

const (
	publishRetries = 3
	healthWait     = 2 * time.Second
)

type BatchProcessor interface {
	ProcessBatch(ctx context.Context, subs []models.FeedbackSubmission) ([]models.AnalyzedFeedback, error)
}

// Publisher sends one analyzed batch downstream.
type Publisher func(topic, key string, batch []models.AnalyzedFeedback) error

// PublishAnalyzed publishes through the shared transactional producer.
func PublishAnalyzed(topic, key string, batch []models.AnalyzedFeedback) error {
	return kafka_client.PublishToKafka(topic, key, batch)
}

type messageSource interface {
	Next() (*kafka.Message, error)
}

type committer interface {
	Commit(msg *kafka.Message) error
}

// FeedbackConsumer reads FeedbackSubmission batches, analyzes them and
// publishes AnalyzedFeedback batches. Offsets are committed only after the
// derived batch is published.
type FeedbackConsumer struct {
	processor BatchProcessor
	publish   Publisher
	topic     string

	buffer  *utils.BatchBuffer[models.AnalyzedFeedback]
	tracker *utils.MessageTracker

	flushInterval time.Duration
	retryDelay    time.Duration
	healthWait    time.Duration
}

func NewFeedbackConsumer(processor BatchProcessor, publish Publisher) *FeedbackConsumer {
	return &FeedbackConsumer{
		processor:     processor,
		publish:       publish,
		topic:         kafka_client.KAFKA_TOPIC_FEEDBACK_ANALYZED,
		buffer:        utils.NewBatchBuffer[models.AnalyzedFeedback](),
		tracker:       utils.NewMessageTracker(),
		flushInterval: utils.BATCH_TIMEOUT,
		retryDelay:    kafka_client.RETRY_DELAY,
		healthWait:    healthWait,
	}
}

// StartFeedbackConsumer is the HealthGatedFunc registered for the
// feedback-submitted topic.
func (fc *FeedbackConsumer) StartFeedbackConsumer(ctx context.Context, consumer *kafka.Consumer, health ...*atomic.Bool) {
	iterator := kafka_client.NewKafkaMessageIterator(ctx, consumer)
	committer := kafka_client.NewCommitHandler(ctx, consumer)

	slog.Info("[FeedbackConsumer] Listening for feedback...")
	fc.run(ctx, iterator, committer, health...)
}

func (fc *FeedbackConsumer) run(ctx context.Context, source messageSource, committer committer, health ...*atomic.Bool) {
	ticker := time.NewTicker(fc.flushInterval)
	defer ticker.Stop()

	paused := false
	for {
		select {
		case <-ctx.Done():
			slog.Warn("[FeedbackConsumer] Stopping consumer...")
			fc.flush(committer)
			return
		case <-ticker.C:
			fc.flush(committer)
		default:
			if !allHealthy(health) {
				if !paused {
					slog.Warn("[FeedbackConsumer] Scorer unhealthy, pausing consumption")
					paused = true
				}
				fc.wait(ctx, fc.healthWait)
				continue
			}
			if paused {
				slog.Info("[FeedbackConsumer] Scorer healthy, resuming consumption")
				paused = false
			}

			msg, err := source.Next()
			if err != nil {
				utils.HandleConsumerError(err)
				continue
			}
			if msg == nil {
				continue
			}

			fc.handleMessage(ctx, msg)
			if fc.buffer.Size() >= utils.BATCH_SIZE {
				fc.flush(committer)
			}
		}
	}
}

// handleMessage analyzes one message. A message whose analysis cannot
// succeed (bad JSON, malformed model output) is skipped so it does not
// block the partition; an unavailable model is retried until ctx is done.
func (fc *FeedbackConsumer) handleMessage(ctx context.Context, msg *kafka.Message) {
	var subs []models.FeedbackSubmission
	if err := utils.DeserializeFromJSON(msg.Value, &subs); err != nil {
		utils.HandleConsumerError(err)
		fc.tracker.TrackMessage(msg)
		return
	}
	for i := range subs {
		if subs[i].Source == "" {
			subs[i].Source = models.FeedbackSourceKafka
		}
	}

	for attempt := 1; ; attempt++ {
		analyzed, err := fc.processor.ProcessBatch(ctx, subs)
		if err == nil {
			fc.buffer.Add(analyzed...)
			fc.tracker.TrackMessage(msg)
			return
		}

		if ctx.Err() != nil {
			return
		}
		if errors.Is(err, classifier.ErrMalformedOutput) {
			slog.Error("[FeedbackConsumer] Skipping message with malformed model output",
				slog.String("offset", msg.TopicPartition.Offset.String()),
				slog.String("error", err.Error()))
			fc.tracker.TrackMessage(msg)
			return
		}

		slog.Warn("[FeedbackConsumer] Analysis failed, retrying...",
			slog.Int("attempt", attempt),
			slog.String("error", err.Error()))
		if !fc.wait(ctx, fc.retryDelay) {
			return
		}
	}
}

// flush publishes the buffered batch and then commits the tracked offsets.
// On publish failure the batch is requeued and nothing is committed.
func (fc *FeedbackConsumer) flush(committer committer) {
	if fc.buffer.HasData() {
		fc.buffer.LogBatchProcessing("analyzed")
	}
	batch := fc.buffer.GetAndClear()
	messages := fc.tracker.Drain()

	if len(batch) > 0 {
		var err error
		for i := 0; i < publishRetries; i++ {
			err = fc.publish(fc.topic, batch[0].FeedbackID, batch)
			if err == nil {
				break
			}
			slog.Warn("[FeedbackConsumer] Batch publishing failed",
				slog.Int("attempt", i+1),
				slog.String("error", err.Error()))
		}
		if err != nil {
			fc.buffer.Requeue(batch)
			for _, msg := range messages {
				fc.tracker.TrackMessage(msg)
			}
			return
		}
		slog.Info("[FeedbackConsumer] Published analyzed batch", slog.Int("feedback", len(batch)))
	}

	for _, msg := range messages {
		if err := committer.Commit(msg); err != nil {
			slog.Warn("[FeedbackConsumer] Failed to commit offset",
				slog.String("error", err.Error()))
		}
	}
}

func (fc *FeedbackConsumer) wait(ctx context.Context, d time.Duration) bool {
	select {
	case <-ctx.Done():
		return false
	case <-time.After(d):
		return true
	}
}
