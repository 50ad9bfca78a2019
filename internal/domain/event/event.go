package event

import (
	"time"

	"github.com/google/uuid"
)

// Type names a ledger transition observers can react to
type Type string

const (
	TypeLoanIssued         Type = "LOAN_ISSUED"
	TypeLoanRepaid         Type = "LOAN_REPAID"
	TypeLoanDefaulted      Type = "LOAN_DEFAULTED"
	TypeDefaultRecovered   Type = "DEFAULT_RECOVERED"
	TypeCreditLimitSet     Type = "CREDIT_LIMIT_SET"
	TypeLiquidityDeposited Type = "LIQUIDITY_DEPOSITED"
	TypeLiquidityWithdrawn Type = "LIQUIDITY_WITHDRAWN"
	TypeFundsRescued       Type = "FUNDS_RESCUED"
	TypePaused             Type = "PAUSED"
	TypeUnpaused           Type = "UNPAUSED"
)

var knownTypes = map[Type]struct{}{
	TypeLoanIssued:         {},
	TypeLoanRepaid:         {},
	TypeLoanDefaulted:      {},
	TypeDefaultRecovered:   {},
	TypeCreditLimitSet:     {},
	TypeLiquidityDeposited: {},
	TypeLiquidityWithdrawn: {},
	TypeFundsRescued:       {},
	TypePaused:             {},
	TypeUnpaused:           {},
}

// IsValid reports whether t is one of the declared event types
func (t Type) IsValid() bool {
	_, ok := knownTypes[t]
	return ok
}

// Event represents a committed ledger transition.
// Account is the borrower for loan events, the provider for liquidity events
// and the recipient or owner for admin events.
type Event struct {
	ID            uuid.UUID `json:"event_id" bson:"event_id"`
	Type          Type      `json:"type" bson:"type"`
	Account       string    `json:"account" bson:"account"`
	LoanID        int64     `json:"loan_id,omitempty" bson:"loan_id,omitempty"`
	Principal     int64     `json:"principal,omitempty" bson:"principal,omitempty"`
	Interest      int64     `json:"interest,omitempty" bson:"interest,omitempty"`
	Amount        int64     `json:"amount,omitempty" bson:"amount,omitempty"` // total moved, minor units
	Shares        int64     `json:"shares,omitempty" bson:"shares,omitempty"`
	CreditLimit   int64     `json:"credit_limit,omitempty" bson:"credit_limit,omitempty"`
	CorrelationID string    `json:"correlation_id,omitempty" bson:"correlation_id,omitempty"`
	OccurredAt    time.Time `json:"occurred_at" bson:"occurred_at"`
}

// New creates an event with a fresh ID
func New(t Type, account string, at time.Time) Event {
	return Event{
		ID:         uuid.New(),
		Type:       t,
		Account:    account,
		OccurredAt: at,
	}
}
