package service

import (
	"context"

	"github.com/microcredit-pool-ledger/internal/domain/credit"
	"github.com/microcredit-pool-ledger/internal/domain/event"
	"github.com/microcredit-pool-ledger/internal/domain/loan"
	"github.com/microcredit-pool-ledger/internal/lending"
)

// LoanService defines the borrower-facing loan operations
type LoanService interface {
	// Borrow opens a loan for borrower. Returns a *shared.Error when the ledger rejects it
	Borrow(ctx context.Context, borrower string, amount int64) (loan.Loan, error)

	// Repay settles the borrower's active loan with interest
	Repay(ctx context.Context, borrower string) (lending.Receipt, error)

	// RepayDefaulted recovers the borrower's oldest defaulted loan
	RepayDefaulted(ctx context.Context, borrower string) (lending.Receipt, error)

	// Loans lists loans in ID order. An empty status lists all of them
	Loans(ctx context.Context, status loan.Status) []loan.Loan
}

// BorrowerService answers read-only questions about one borrower
type BorrowerService interface {
	Summary(ctx context.Context, borrower string) BorrowerSummary
	CreditLimit(ctx context.Context, borrower string) int64
	LatestLoan(ctx context.Context, borrower string) (loan.Loan, bool)
	RepaymentAmount(ctx context.Context, borrower string) int64
	IsLoanOverdue(ctx context.Context, borrower string) bool
}

// PoolService covers liquidity provider operations and pool reporting
type PoolService interface {
	Deposit(ctx context.Context, provider string, amount int64) (lending.LiquidityReceipt, error)
	Withdraw(ctx context.Context, provider string, shares int64) (lending.LiquidityReceipt, error)
	Summary(ctx context.Context) PoolSummary
	Position(ctx context.Context, provider string) PositionSummary
}

// AdminService exposes owner-only operations. Every call is checked against the owner
type AdminService interface {
	SetCreditLimit(ctx context.Context, caller, borrower string, amount int64) (credit.Profile, error)
	MarkAsDefaulted(ctx context.Context, caller, borrower string) (loan.Loan, error)
	Pause(ctx context.Context, caller string) error
	Unpause(ctx context.Context, caller string) error
	RescueFunds(ctx context.Context, caller, to string, amount int64) error
}

// AuditService reads the projected event trail
type AuditService interface {
	// EventsByAccount returns one page of events newest first plus the total count
	EventsByAccount(ctx context.Context, account string, page, perPage int) ([]*event.Event, int64, error)
}
