package service

import (
	"context"

	"github.com/microcredit-pool-ledger/internal/domain/event"
)

// ProjectionService writes a consumed ledger event into the audit store
type ProjectionService interface {
	ProjectEvent(ctx context.Context, e *event.Event) error
}

// EventValidator checks consumed events before they are projected
type EventValidator interface {
	Validate(ctx context.Context, e *event.Event) error
	CheckIdempotency(ctx context.Context, e *event.Event) (bool, error)
}

// FailureRecorder parks events that can never be projected
type FailureRecorder interface {
	RecordFailure(ctx context.Context, e *event.Event, reason string) error
}
