package loan

import (
	"time"

	"github.com/microcredit-pool-ledger/internal/domain/shared"
)

// Status is the lifecycle state of a loan.
type Status string

const (
	StatusActive           Status = "ACTIVE"
	StatusRepaid           Status = "REPAID"
	StatusDefaulted        Status = "DEFAULTED"
	StatusDefaultRecovered Status = "DEFAULT_RECOVERED"
)

// IsTerminal reports whether no further transition is possible from s.
func (s Status) IsTerminal() bool {
	return s == StatusRepaid || s == StatusDefaultRecovered
}

// Loan is a single borrowing by one borrower. Principal, Borrower and
// OriginatedAt never change after creation.
type Loan struct {
	ID           int64      `json:"id"`
	Borrower     string     `json:"borrower"`
	Principal    int64      `json:"principal"` // minor units
	OriginatedAt time.Time  `json:"originated_at"`
	Status       Status     `json:"status"`
	InterestPaid int64      `json:"interest_paid"`
	DefaultedAt  *time.Time `json:"defaulted_at,omitempty"`
	ClosedAt     *time.Time `json:"closed_at,omitempty"`
}

// New creates an active loan.
func New(id int64, borrower string, principal int64, now time.Time) (*Loan, error) {
	if borrower == "" {
		return nil, shared.ErrInvalidParty
	}
	if principal <= 0 {
		return nil, shared.ErrInvalidAmount
	}
	return &Loan{
		ID:           id,
		Borrower:     borrower,
		Principal:    principal,
		OriginatedAt: now,
		Status:       StatusActive,
	}, nil
}

// IsActive reports whether the loan is outstanding and performing.
func (l *Loan) IsActive() bool {
	return l.Status == StatusActive
}

// IsDefaulted reports whether the loan is flagged as defaulted and not yet recovered.
func (l *Loan) IsDefaulted() bool {
	return l.Status == StatusDefaulted
}

// Clone returns a deep copy so callers can stage changes without touching l.
func (l *Loan) Clone() *Loan {
	c := *l
	if l.DefaultedAt != nil {
		t := *l.DefaultedAt
		c.DefaultedAt = &t
	}
	if l.ClosedAt != nil {
		t := *l.ClosedAt
		c.ClosedAt = &t
	}
	return &c
}

// MarkRepaid closes an active loan.
func (l *Loan) MarkRepaid(interest int64, now time.Time) error {
	if l.Status != StatusActive {
		return shared.ErrInvalidTransition
	}
	l.Status = StatusRepaid
	l.InterestPaid = interest
	l.ClosedAt = &now
	return nil
}

// MarkDefaulted flags an active loan as non-performing.
func (l *Loan) MarkDefaulted(now time.Time) error {
	if l.Status != StatusActive {
		return shared.ErrInvalidTransition
	}
	l.Status = StatusDefaulted
	l.DefaultedAt = &now
	return nil
}

// MarkRecovered closes a defaulted loan.
func (l *Loan) MarkRecovered(interest int64, now time.Time) error {
	if l.Status != StatusDefaulted {
		return shared.ErrInvalidTransition
	}
	l.Status = StatusDefaultRecovered
	l.InterestPaid = interest
	l.ClosedAt = &now
	return nil
}
