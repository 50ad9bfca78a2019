package consumer

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/microcredit-pool-ledger/internal/domain/event"
	"github.com/microcredit-pool-ledger/internal/event_relay/service"
	"github.com/microcredit-pool-ledger/internal/platform/messaging/producers"
)

// EventHandler handles ledger events consumed from Kafka
type EventHandler struct {
	projectionService service.ProjectionService
	producer          producers.DeadLetterPublisher
	logger            *slog.Logger
}

func NewEventHandler(
	logger *slog.Logger,
	projectionService service.ProjectionService,
	producer producers.DeadLetterPublisher,
) *EventHandler {
	return &EventHandler{
		projectionService: projectionService,
		producer:          producer,
		logger:            logger,
	}
}

// HandleMessage projects one Kafka message. A nil return commits the offset.
func (h *EventHandler) HandleMessage(ctx context.Context, key []byte, value []byte) error {
	var e event.Event
	if err := json.Unmarshal(value, &e); err != nil {
		unmarshalErrorMsg := "Failed to unmarshal ledger event from Kafka message"
		h.logger.Error(unmarshalErrorMsg,
			"error", err,
			"message_key", string(key),
		)

		if h.producer != nil {
			dlqReason := fmt.Sprintf("%s: %s", unmarshalErrorMsg, err.Error())
			if dlqErr := h.producer.PublishToDLQ(ctx, string(key), value, dlqReason); dlqErr != nil {
				h.logger.Error("Failed to publish message to DLQ after unmarshal error",
					"dlq_error", dlqErr,
					"original_error", err,
					"message_key", string(key),
				)
			} else {
				h.logger.Info("Published unprocessable message to DLQ", "message_key", string(key))
				return nil
			}
		}
		return fmt.Errorf("failed to unmarshal message value: %w", err)
	}

	logger := h.logger
	if e.CorrelationID != "" {
		logger = h.logger.With("correlation_id", e.CorrelationID)
	}

	logger.Debug("Received ledger event",
		"event_id", e.ID,
		"type", e.Type,
		"account", e.Account,
	)

	if err := h.projectionService.ProjectEvent(ctx, &e); err != nil {
		logger.Error("Failed to project event", "event_id", e.ID, "error", err)
		return fmt.Errorf("projecting event %s failed: %w", e.ID, err)
	}
	return nil
}
