package utils

import (
	"fmt"
	"sync"

	"github.com/confluentinc/confluent-kafka-go/kafka"
)

// MessageTracker remembers the newest consumed message per partition so
// offsets are committed only after the derived output is published.
type MessageTracker struct {
	mu       sync.Mutex
	messages map[string]*kafka.Message
}

func NewMessageTracker() *MessageTracker {
	return &MessageTracker{messages: make(map[string]*kafka.Message)}
}

func partitionKey(tp kafka.TopicPartition) string {
	topic := ""
	if tp.Topic != nil {
		topic = *tp.Topic
	}
	return fmt.Sprintf("%s/%d", topic, tp.Partition)
}

func (t *MessageTracker) TrackMessage(msg *kafka.Message) {
	t.mu.Lock()
	defer t.mu.Unlock()

	key := partitionKey(msg.TopicPartition)
	if prev, ok := t.messages[key]; ok && prev.TopicPartition.Offset > msg.TopicPartition.Offset {
		return
	}
	t.messages[key] = msg
}

// Drain returns the tracked messages and forgets them.
func (t *MessageTracker) Drain() []*kafka.Message {
	t.mu.Lock()
	defer t.mu.Unlock()

	out := make([]*kafka.Message, 0, len(t.messages))
	for _, msg := range t.messages {
		out = append(out, msg)
	}
	clear(t.messages)
	return out
}

func (t *MessageTracker) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.messages)
}
