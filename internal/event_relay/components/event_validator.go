package components

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/microcredit-pool-ledger/internal/domain/event"
	"github.com/microcredit-pool-ledger/internal/event_relay/service"
)

// ErrInvalidEvent wraps every reason an event is rejected before projection
var ErrInvalidEvent = errors.New("invalid event")

var loanEvents = map[event.Type]struct{}{
	event.TypeLoanIssued:       {},
	event.TypeLoanRepaid:       {},
	event.TypeLoanDefaulted:    {},
	event.TypeDefaultRecovered: {},
}

type EventValidatorImpl struct {
	auditRepo event.Repository
	logger    *slog.Logger
}

func NewEventValidator(auditRepo event.Repository, logger *slog.Logger) service.EventValidator {
	return &EventValidatorImpl{
		auditRepo: auditRepo,
		logger:    logger,
	}
}

// Validate checks the fields every projected event needs
func (v *EventValidatorImpl) Validate(_ context.Context, e *event.Event) error {
	switch {
	case e.ID == uuid.Nil:
		return fmt.Errorf("%w: missing event id", ErrInvalidEvent)
	case !e.Type.IsValid():
		return fmt.Errorf("%w: unknown type %q", ErrInvalidEvent, e.Type)
	case e.Account == "":
		return fmt.Errorf("%w: missing account", ErrInvalidEvent)
	case e.OccurredAt.IsZero():
		return fmt.Errorf("%w: missing occurred_at", ErrInvalidEvent)
	case e.Principal < 0 || e.Interest < 0 || e.Amount < 0 || e.Shares < 0 || e.CreditLimit < 0:
		return fmt.Errorf("%w: negative amount", ErrInvalidEvent)
	}

	if _, ok := loanEvents[e.Type]; ok && e.LoanID <= 0 {
		return fmt.Errorf("%w: %s without loan id", ErrInvalidEvent, e.Type)
	}
	return nil
}

// CheckIdempotency reports whether the event is already in the audit store
func (v *EventValidatorImpl) CheckIdempotency(ctx context.Context, e *event.Event) (bool, error) {
	existing, err := v.auditRepo.GetByID(ctx, e.ID)
	if err != nil && !errors.Is(err, event.ErrEventNotFound{}) {
		v.logger.Error("Failed to check audit store for idempotency", "event_id", e.ID, "error", err)
		return false, fmt.Errorf("idempotency check failed for event %s: %w", e.ID, err)
	}

	if existing != nil {
		v.logger.Info("Event already projected (idempotency)", "event_id", e.ID, "type", e.Type)
		return true, nil
	}
	return false, nil
}
