package components

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/microcredit-pool-ledger/internal/domain/event"
	"github.com/microcredit-pool-ledger/internal/event_relay/service"
	"github.com/microcredit-pool-ledger/internal/platform/messaging/producers"
)

// DeadLetterRecorder parks rejected events on the DLQ topic. Without a DLQ the
// event is logged and dropped.
type DeadLetterRecorder struct {
	dlq    producers.DeadLetterPublisher
	logger *slog.Logger
}

func NewFailureRecorder(dlq producers.DeadLetterPublisher, logger *slog.Logger) service.FailureRecorder {
	return &DeadLetterRecorder{
		dlq:    dlq,
		logger: logger,
	}
}

func (r *DeadLetterRecorder) RecordFailure(ctx context.Context, e *event.Event, reason string) error {
	logger := r.logger
	if e.CorrelationID != "" {
		logger = r.logger.With("correlation_id", e.CorrelationID)
	}

	if r.dlq == nil {
		logger.Warn("Dropping invalid event, no DLQ configured", "event_id", e.ID, "reason", reason)
		return nil
	}

	value, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("marshal event %s for DLQ: %w", e.ID, err)
	}

	err = r.dlq.PublishToDLQ(ctx, e.Account, value, reason)
	if errors.Is(err, producers.ErrDLQDisabled) {
		logger.Warn("Dropping invalid event, no DLQ configured", "event_id", e.ID, "reason", reason)
		return nil
	}
	if err != nil {
		logger.Error("Failed to publish invalid event to DLQ", "event_id", e.ID, "error", err)
		return err
	}

	logger.Info("Invalid event published to DLQ", "event_id", e.ID, "reason", reason)
	return nil
}
