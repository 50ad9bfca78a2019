package lending

import (
	"context"

	"github.com/microcredit-pool-ledger/internal/domain/credit"
	"github.com/microcredit-pool-ledger/internal/domain/event"
	"github.com/microcredit-pool-ledger/internal/domain/loan"
	"github.com/microcredit-pool-ledger/internal/domain/shared"
)

// Gate exposes the owner-only operations of a Ledger.
type Gate struct {
	ledger *Ledger
	owner  string
}

func NewGate(ledger *Ledger, owner string) *Gate {
	return &Gate{ledger: ledger, owner: owner}
}

// Owner is the account allowed through the gate.
func (g *Gate) Owner() string {
	return g.owner
}

// IsOwner reports whether caller is the owner.
func (g *Gate) IsOwner(caller string) bool {
	return g.owner != "" && caller == g.owner
}

func (g *Gate) authorize(caller string) error {
	if !g.IsOwner(caller) {
		return shared.ErrNotOwner
	}
	return nil
}

func (g *Gate) SetCreditLimit(ctx context.Context, caller, borrower string, amount int64) (credit.Profile, []event.Event, error) {
	if err := g.authorize(caller); err != nil {
		return credit.Profile{}, nil, err
	}
	return g.ledger.setCreditLimit(ctx, borrower, amount)
}

func (g *Gate) MarkAsDefaulted(ctx context.Context, caller, borrower string) (loan.Loan, []event.Event, error) {
	if err := g.authorize(caller); err != nil {
		return loan.Loan{}, nil, err
	}
	return g.ledger.markAsDefaulted(ctx, borrower)
}

// Pause suspends new borrowing. Repayments and liquidity moves stay open.
func (g *Gate) Pause(ctx context.Context, caller string) ([]event.Event, error) {
	if err := g.authorize(caller); err != nil {
		return nil, err
	}
	return g.ledger.setPaused(ctx, caller, true)
}

func (g *Gate) Unpause(ctx context.Context, caller string) ([]event.Event, error) {
	if err := g.authorize(caller); err != nil {
		return nil, err
	}
	return g.ledger.setPaused(ctx, caller, false)
}

// RescueFunds pays amount of raw liquidity out to to, or to the owner when
// to is empty. Loan and credit records are left as they are, so misuse can
// leave the pool unable to cover withdrawals.
func (g *Gate) RescueFunds(ctx context.Context, caller, to string, amount int64) ([]event.Event, error) {
	if err := g.authorize(caller); err != nil {
		return nil, err
	}
	if to == "" {
		to = g.owner
	}
	return g.ledger.rescue(ctx, to, amount)
}
