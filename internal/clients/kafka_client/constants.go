package kafka_client

import "time"

const (
	KAFKA_TOPIC_FEEDBACK_SUBMITTED = "feedback-submitted" // batches of FeedbackSubmission
	KAFKA_TOPIC_FEEDBACK_ANALYZED  = "feedback-analyzed"  // batches of AnalyzedFeedback
)

const (
	MAX_RETRIES  = 5
	RETRY_DELAY  = 2 * time.Second
	POLL_TIMEOUT = 500 * time.Millisecond
)
