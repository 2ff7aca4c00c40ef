package utils

import (
	"sync"
	"testing"

	"github.com/confluentinc/confluent-kafka-go/kafka"
	"github.com/stretchr/testify/assert"
)

func TestBatchBuffer(t *testing.T) {
	b := NewBatchBuffer[int]()
	assert.False(t, b.HasData())
	assert.Nil(t, b.GetAndClear())

	b.Add(1, 2)
	b.Add(3)
	assert.Equal(t, 3, b.Size())
	assert.Equal(t, []int{1, 2, 3}, b.GetAndClear())
	assert.Zero(t, b.Size())

	b.Add(4)
	b.Requeue([]int{1, 2})
	assert.Equal(t, []int{1, 2, 4}, b.GetAndClear())
}

func TestBatchBufferConcurrentAdds(t *testing.T) {
	b := NewBatchBuffer[int]()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			b.Add(i)
		}()
	}
	wg.Wait()
	assert.Len(t, b.GetAndClear(), 50)
}

func message(topic string, partition int32, offset kafka.Offset) *kafka.Message {
	return &kafka.Message{TopicPartition: kafka.TopicPartition{Topic: &topic, Partition: partition, Offset: offset}}
}

func TestMessageTrackerKeepsNewestPerPartition(t *testing.T) {
	tr := NewMessageTracker()
	tr.TrackMessage(message("feedback-submitted", 0, 5))
	tr.TrackMessage(message("feedback-submitted", 0, 7))
	tr.TrackMessage(message("feedback-submitted", 0, 6))
	tr.TrackMessage(message("feedback-submitted", 1, 2))
	assert.Equal(t, 2, tr.Len())

	offsets := map[int32]kafka.Offset{}
	for _, m := range tr.Drain() {
		offsets[m.TopicPartition.Partition] = m.TopicPartition.Offset
	}
	assert.Equal(t, map[int32]kafka.Offset{0: 7, 1: 2}, offsets)
	assert.Zero(t, tr.Len())
}
