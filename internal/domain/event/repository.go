package event

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Repository manages the audit trail of committed events with pagination support
type Repository interface {
	Create(ctx context.Context, e *Event) error
	GetByID(ctx context.Context, id uuid.UUID) (*Event, error)
	GetByAccount(ctx context.Context, account string, limit, offset int) ([]*Event, error)
	CountByAccount(ctx context.Context, account string) (int64, error)
	GetByLoanID(ctx context.Context, loanID int64) ([]*Event, error)
	GetByTimeRange(ctx context.Context, startTime, endTime time.Time, limit, offset int) ([]*Event, error)
}

// ErrEventNotFound indicates a missing audit event
type ErrEventNotFound struct {
	ID uuid.UUID
}

func (e ErrEventNotFound) Error() string {
	return "event not found: " + e.ID.String()
}

// Is matches any ErrEventNotFound when the target ID is empty
func (e ErrEventNotFound) Is(target error) bool {
	t, ok := target.(ErrEventNotFound)
	if !ok {
		return false
	}
	if t.ID == uuid.Nil {
		return true
	}
	return e.ID == t.ID
}

// ErrDuplicateEvent indicates the event was already recorded
type ErrDuplicateEvent struct {
	ID uuid.UUID
}

func (e ErrDuplicateEvent) Error() string {
	return "duplicate event: " + e.ID.String()
}

// Is matches any ErrDuplicateEvent when the target ID is empty
func (e ErrDuplicateEvent) Is(target error) bool {
	t, ok := target.(ErrDuplicateEvent)
	if !ok {
		return false
	}
	if t.ID == uuid.Nil {
		return true
	}
	return e.ID == t.ID
}
