package outbox_poller

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/microcredit-pool-ledger/internal/domain/outbox"
	"github.com/microcredit-pool-ledger/internal/domain/shared"
	"github.com/microcredit-pool-ledger/internal/platform/messaging/producers"
)

// EventForwarder moves one outbox message onto the events topic
type EventForwarder interface {
	Forward(ctx context.Context, message *outbox.Message) error
}

// ErrUndecodablePayload marks an outbox row that can never be published.
// The row is already FAILED_TO_PUBLISH when this is returned.
type ErrUndecodablePayload struct {
	ID  int64
	Err error
}

func (e ErrUndecodablePayload) Error() string {
	return fmt.Sprintf("outbox %d payload is not an event: %v", e.ID, e.Err)
}

func (e ErrUndecodablePayload) Unwrap() error {
	return e.Err
}

// KafkaEventForwarder publishes outbox messages to Kafka and marks them PROCESSED
type KafkaEventForwarder struct {
	outboxRepo outbox.Repository
	publisher  producers.EventPublisher
	logger     *slog.Logger
}

func NewEventForwarder(
	outboxRepo outbox.Repository,
	publisher producers.EventPublisher,
	logger *slog.Logger,
) EventForwarder {
	return &KafkaEventForwarder{
		outboxRepo: outboxRepo,
		publisher:  publisher,
		logger:     logger,
	}
}

// Forward publishes the event keyed by its account. Kafka delivery is
// at-least-once: a failure after publish leaves the row PENDING and the
// event is sent again on the next tick.
func (f *KafkaEventForwarder) Forward(ctx context.Context, message *outbox.Message) error {
	e, err := message.GetEvent()
	if err != nil {
		f.logger.Error("Failed to unmarshal event from outbox payload",
			"outbox_id", message.ID, "event_id", message.EventID, "error", err,
		)
		if updateErr := f.outboxRepo.UpdateStatus(ctx, message.ID, shared.OutboxStatusFailedToPublish); updateErr != nil {
			f.logger.Error("Also failed to update outbox status to FAILED_TO_PUBLISH after unmarshal error", "outbox_id", message.ID, "update_error", updateErr)
		}
		return ErrUndecodablePayload{ID: message.ID, Err: err}
	}

	logger := f.logger
	if e.CorrelationID != "" {
		logger = f.logger.With("correlation_id", e.CorrelationID)
	}

	if err := f.publisher.PublishEvent(ctx, e); err != nil {
		return fmt.Errorf("publish event %s: %w", e.ID, err)
	}

	if err := f.outboxRepo.UpdateStatus(ctx, message.ID, shared.OutboxStatusProcessed); err != nil {
		logger.Error("Failed to update outbox message status to PROCESSED",
			"outbox_id", message.ID, "event_id", e.ID, "error", err,
		)
		return fmt.Errorf("event %s published, but failed to mark outbox %d as PROCESSED: %w", e.ID, message.ID, err)
	}

	logger.Debug("Outbox message published and marked as PROCESSED", "outbox_id", message.ID, "event_id", e.ID, "type", e.Type)
	return nil
}
