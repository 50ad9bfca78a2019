package lending

import (
	"context"
	"log/slog"

	"github.com/microcredit-pool-ledger/internal/domain/credit"
	"github.com/microcredit-pool-ledger/internal/domain/event"
	"github.com/microcredit-pool-ledger/internal/domain/loan"
	"github.com/microcredit-pool-ledger/internal/domain/pool"
)

// Mutation is everything one operation changes. Nil fields are untouched.
type Mutation struct {
	Loan     *loan.Loan
	Profile  *credit.Profile
	Pool     *pool.State
	Position *pool.Position
	Paused   *bool
	Events   []event.Event
}

// Journal durably records a mutation. A Commit either persists all of it or none.
type Journal interface {
	Commit(ctx context.Context, m Mutation) error
}

// NopJournal keeps state in memory only.
type NopJournal struct{}

func (NopJournal) Commit(context.Context, Mutation) error { return nil }

// Settlement moves the underlying asset between accounts and the pool.
type Settlement interface {
	// Collect pulls amount from account into the pool.
	Collect(ctx context.Context, account string, amount int64) error
	// Disburse pays amount from the pool to account.
	Disburse(ctx context.Context, account string, amount int64) error
}

// LoggingSettlement accepts every transfer and logs it. It stands in when no
// custody backend is attached.
type LoggingSettlement struct {
	logger *slog.Logger
}

func NewLoggingSettlement(logger *slog.Logger) *LoggingSettlement {
	return &LoggingSettlement{logger: logger}
}

func (s *LoggingSettlement) Collect(ctx context.Context, account string, amount int64) error {
	s.logger.InfoContext(ctx, "Collected funds", "account", account, "amount", amount)
	return nil
}

func (s *LoggingSettlement) Disburse(ctx context.Context, account string, amount int64) error {
	s.logger.InfoContext(ctx, "Disbursed funds", "account", account, "amount", amount)
	return nil
}
