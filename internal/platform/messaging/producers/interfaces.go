package producers

import (
	"context"

	"github.com/microcredit-pool-ledger/internal/domain/event"
	"github.com/segmentio/kafka-go"
)

// EventPublisher publishes committed ledger events to the events topic
type EventPublisher interface {
	PublishEvent(ctx context.Context, e *event.Event) error
	Close() error
}

// DeadLetterPublisher handles publishing messages to a Dead Letter Queue
type DeadLetterPublisher interface {
	PublishToDLQ(ctx context.Context, key string, originalMessageValue []byte, reason string) error
	Close() error
}

// KafkaWriter wraps kafka.Writer methods for testing
type KafkaWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

var (
	_ EventPublisher      = (*EventProducer)(nil)
	_ DeadLetterPublisher = (*DLQProducer)(nil)
)
