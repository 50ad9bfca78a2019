// Package lending is the loan ledger: it owns every loan, credit profile and
// the pool balance sheet, and applies each operation atomically.
package lending

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/microcredit-pool-ledger/internal/domain/credit"
	"github.com/microcredit-pool-ledger/internal/domain/event"
	"github.com/microcredit-pool-ledger/internal/domain/loan"
	"github.com/microcredit-pool-ledger/internal/domain/pool"
	"github.com/microcredit-pool-ledger/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// Config is the lending policy.
type Config struct {
	Terms               loan.Terms
	InitialCreditLimit  int64
	RepayGrowth         decimal.Decimal
	RecoveryGrowth      decimal.Decimal
	BootstrapMinDeposit int64
}

// DefaultConfig is 5 USDT initial limit, ×1.20 / ×1.10 growth and a 1 USDT bootstrap.
func DefaultConfig() Config {
	return Config{
		Terms:               loan.DefaultTerms(),
		InitialCreditLimit:  5_000_000,
		RepayGrowth:         decimal.RequireFromString("1.20"),
		RecoveryGrowth:      decimal.RequireFromString("1.10"),
		BootstrapMinDeposit: 1_000_000,
	}
}

type Option func(*Ledger)

func WithClock(c Clock) Option {
	return func(l *Ledger) { l.clock = c }
}

func WithJournal(j Journal) Option {
	return func(l *Ledger) { l.journal = j }
}

func WithSettlement(s Settlement) Option {
	return func(l *Ledger) { l.settlement = s }
}

// Ledger serializes every operation behind one mutex. Each operation checks
// first, then settles funds and commits the journal, and only then replaces
// the in-memory records.
type Ledger struct {
	mu         sync.Mutex
	cfg        Config
	clock      Clock
	journal    Journal
	settlement Settlement
	logger     *slog.Logger

	credits    *credit.Store
	pool       pool.State
	positions  map[string]pool.Position
	loans      []*loan.Loan
	index      map[int64]int
	byBorrower map[string][]int64
	nextID     int64
	paused     bool
}

// Receipt describes a completed repayment.
type Receipt struct {
	LoanID    int64     `json:"loan_id"`
	Borrower  string    `json:"borrower"`
	Principal int64     `json:"principal"`
	Interest  int64     `json:"interest"`
	Total     int64     `json:"total"`
	NewLimit  int64     `json:"new_credit_limit"`
	PaidAt    time.Time `json:"paid_at"`
}

func NewLedger(cfg Config, logger *slog.Logger, opts ...Option) *Ledger {
	l := &Ledger{
		cfg:        cfg,
		clock:      SystemClock{},
		journal:    NopJournal{},
		logger:     logger,
		credits:    credit.NewStore(cfg.InitialCreditLimit),
		positions:  make(map[string]pool.Position),
		index:      make(map[int64]int),
		byBorrower: make(map[string][]int64),
		nextID:     1,
	}
	for _, opt := range opts {
		opt(l)
	}
	if l.settlement == nil {
		l.settlement = NewLoggingSettlement(logger)
	}
	return l
}

// Terms returns the interest schedule in force.
func (l *Ledger) Terms() loan.Terms {
	return l.cfg.Terms
}

// Borrow opens a loan of amount for borrower and disburses it.
func (l *Ledger) Borrow(ctx context.Context, borrower string, amount int64) (loan.Loan, []event.Event, error) {
	if borrower == "" {
		return loan.Loan{}, nil, shared.ErrInvalidParty
	}
	if amount <= 0 {
		return loan.Loan{}, nil, shared.ErrInvalidAmount
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if l.paused {
		return loan.Loan{}, nil, shared.ErrContractPaused
	}
	if l.activeLoan(borrower) != nil {
		return loan.Loan{}, nil, shared.ErrActiveLoanExists
	}
	if amount > l.credits.Limit(borrower) {
		return loan.Loan{}, nil, shared.ErrCreditLimitExceeded
	}

	now := l.clock.Now()
	p := l.pool
	if err := p.OnBorrow(amount); err != nil {
		return loan.Loan{}, nil, err
	}
	p.UpdatedAt = now

	ln, err := loan.New(l.nextID, borrower, amount, now)
	if err != nil {
		return loan.Loan{}, nil, err
	}

	ev := l.newEvent(ctx, event.TypeLoanIssued, borrower, now)
	ev.LoanID = ln.ID
	ev.Principal = amount
	ev.Amount = amount
	events := []event.Event{ev}

	if err := l.settle(ctx, borrower, -amount, Mutation{Loan: ln, Pool: &p, Events: events}); err != nil {
		return loan.Loan{}, nil, err
	}

	l.pool = p
	l.appendLoan(ln)

	l.logger.InfoContext(ctx, "Loan issued", "borrower", borrower, "loan_id", ln.ID, "principal", amount)
	return *ln, events, nil
}

// Repay closes the borrower's active loan, collecting principal plus accrued interest.
func (l *Ledger) Repay(ctx context.Context, borrower string) (Receipt, []event.Event, error) {
	if borrower == "" {
		return Receipt{}, nil, shared.ErrInvalidParty
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	current := l.activeLoan(borrower)
	if current == nil {
		return Receipt{}, nil, shared.ErrNoActiveLoan
	}

	now := l.clock.Now()
	if !l.cfg.Terms.CanRepay(current, now) {
		return Receipt{}, nil, shared.ErrTooEarlyToRepay
	}

	interest := l.cfg.Terms.AccruedInterest(current, now)
	staged := current.Clone()
	if err := staged.MarkRepaid(interest, now); err != nil {
		return Receipt{}, nil, err
	}

	p := l.pool
	if err := p.OnRepay(current.Principal, interest); err != nil {
		return Receipt{}, nil, err
	}
	p.UpdatedAt = now

	profile := l.credits.Profile(borrower)
	profile.Grow(l.cfg.RepayGrowth, now)

	receipt := newReceipt(staged, profile.Limit, now)
	ev := l.newEvent(ctx, event.TypeLoanRepaid, borrower, now)
	ev.LoanID = staged.ID
	ev.Principal = staged.Principal
	ev.Interest = interest
	ev.Amount = receipt.Total
	ev.CreditLimit = profile.Limit
	events := []event.Event{ev}

	m := Mutation{Loan: staged, Profile: &profile, Pool: &p, Events: events}
	if err := l.settle(ctx, borrower, receipt.Total, m); err != nil {
		return Receipt{}, nil, err
	}

	l.replaceLoan(staged)
	l.pool = p
	l.credits.Put(profile)

	l.logger.InfoContext(ctx, "Loan repaid",
		"borrower", borrower,
		"loan_id", staged.ID,
		"interest", interest,
		"new_limit", profile.Limit,
	)
	return receipt, events, nil
}

// RepayDefaulted recovers the borrower's oldest defaulted loan.
func (l *Ledger) RepayDefaulted(ctx context.Context, borrower string) (Receipt, []event.Event, error) {
	if borrower == "" {
		return Receipt{}, nil, shared.ErrInvalidParty
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	current := l.oldestDefaulted(borrower)
	if current == nil {
		return Receipt{}, nil, shared.ErrNoDefaultedLoan
	}

	now := l.clock.Now()
	interest := l.cfg.Terms.AccruedInterest(current, now)
	staged := current.Clone()
	if err := staged.MarkRecovered(interest, now); err != nil {
		return Receipt{}, nil, err
	}

	p := l.pool
	if err := p.OnDefaultRecovery(current.Principal, interest); err != nil {
		return Receipt{}, nil, err
	}
	p.UpdatedAt = now

	profile := l.credits.Profile(borrower)
	profile.Grow(l.cfg.RecoveryGrowth, now)

	receipt := newReceipt(staged, profile.Limit, now)
	ev := l.newEvent(ctx, event.TypeDefaultRecovered, borrower, now)
	ev.LoanID = staged.ID
	ev.Principal = staged.Principal
	ev.Interest = interest
	ev.Amount = receipt.Total
	ev.CreditLimit = profile.Limit
	events := []event.Event{ev}

	m := Mutation{Loan: staged, Profile: &profile, Pool: &p, Events: events}
	if err := l.settle(ctx, borrower, receipt.Total, m); err != nil {
		return Receipt{}, nil, err
	}

	l.replaceLoan(staged)
	l.pool = p
	l.credits.Put(profile)

	l.logger.InfoContext(ctx, "Defaulted loan recovered",
		"borrower", borrower,
		"loan_id", staged.ID,
		"interest", interest,
		"new_limit", profile.Limit,
	)
	return receipt, events, nil
}

// LiquidityReceipt describes a completed deposit or withdrawal.
type LiquidityReceipt struct {
	Provider       string    `json:"provider"`
	Amount         int64     `json:"amount"`
	Shares         int64     `json:"shares"`
	PositionShares int64     `json:"position_shares"`
	At             time.Time `json:"at"`
}

// Deposit adds provider liquidity and mints pool shares for it.
func (l *Ledger) Deposit(ctx context.Context, provider string, amount int64) (LiquidityReceipt, []event.Event, error) {
	if provider == "" {
		return LiquidityReceipt{}, nil, shared.ErrInvalidParty
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.clock.Now()
	p := l.pool
	shares, err := p.Deposit(amount, l.cfg.BootstrapMinDeposit)
	if err != nil {
		return LiquidityReceipt{}, nil, err
	}
	p.UpdatedAt = now

	pos := l.positions[provider]
	pos.Provider = provider
	pos.Shares += shares
	pos.UpdatedAt = now

	ev := l.newEvent(ctx, event.TypeLiquidityDeposited, provider, now)
	ev.Amount = amount
	ev.Shares = shares
	events := []event.Event{ev}

	if err := l.settle(ctx, provider, amount, Mutation{Pool: &p, Position: &pos, Events: events}); err != nil {
		return LiquidityReceipt{}, nil, err
	}

	l.pool = p
	l.positions[provider] = pos

	l.logger.InfoContext(ctx, "Liquidity deposited", "provider", provider, "amount", amount, "shares", shares)
	return LiquidityReceipt{Provider: provider, Amount: amount, Shares: shares, PositionShares: pos.Shares, At: now}, events, nil
}

// Withdraw burns provider shares and pays out their value from cash.
func (l *Ledger) Withdraw(ctx context.Context, provider string, shares int64) (LiquidityReceipt, []event.Event, error) {
	if provider == "" {
		return LiquidityReceipt{}, nil, shared.ErrInvalidParty
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.clock.Now()
	pos := l.positions[provider]
	p := l.pool
	amount, err := p.Withdraw(shares, pos.Shares)
	if err != nil {
		return LiquidityReceipt{}, nil, err
	}
	p.UpdatedAt = now

	pos.Provider = provider
	pos.Shares -= shares
	pos.UpdatedAt = now

	ev := l.newEvent(ctx, event.TypeLiquidityWithdrawn, provider, now)
	ev.Amount = amount
	ev.Shares = shares
	events := []event.Event{ev}

	if err := l.settle(ctx, provider, -amount, Mutation{Pool: &p, Position: &pos, Events: events}); err != nil {
		return LiquidityReceipt{}, nil, err
	}

	l.pool = p
	l.positions[provider] = pos

	l.logger.InfoContext(ctx, "Liquidity withdrawn", "provider", provider, "amount", amount, "shares", shares)
	return LiquidityReceipt{Provider: provider, Amount: amount, Shares: shares, PositionShares: pos.Shares, At: now}, events, nil
}

func (l *Ledger) markAsDefaulted(ctx context.Context, borrower string) (loan.Loan, []event.Event, error) {
	if borrower == "" {
		return loan.Loan{}, nil, shared.ErrInvalidParty
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	current := l.activeLoan(borrower)
	if current == nil {
		return loan.Loan{}, nil, shared.ErrNoLoanToDefault
	}

	now := l.clock.Now()
	staged := current.Clone()
	if err := staged.MarkDefaulted(now); err != nil {
		return loan.Loan{}, nil, err
	}

	p := l.pool
	if err := p.OnDefault(current.Principal); err != nil {
		return loan.Loan{}, nil, err
	}
	p.UpdatedAt = now

	ev := l.newEvent(ctx, event.TypeLoanDefaulted, borrower, now)
	ev.LoanID = staged.ID
	ev.Principal = staged.Principal
	events := []event.Event{ev}

	if err := l.settle(ctx, borrower, 0, Mutation{Loan: staged, Pool: &p, Events: events}); err != nil {
		return loan.Loan{}, nil, err
	}

	l.replaceLoan(staged)
	l.pool = p

	l.logger.WarnContext(ctx, "Loan marked as defaulted", "borrower", borrower, "loan_id", staged.ID, "principal", staged.Principal)
	return *staged, events, nil
}

func (l *Ledger) setCreditLimit(ctx context.Context, borrower string, amount int64) (credit.Profile, []event.Event, error) {
	if borrower == "" {
		return credit.Profile{}, nil, shared.ErrInvalidParty
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.clock.Now()
	profile := l.credits.Profile(borrower)
	if err := profile.SetLimit(amount, now); err != nil {
		return credit.Profile{}, nil, err
	}

	ev := l.newEvent(ctx, event.TypeCreditLimitSet, borrower, now)
	ev.CreditLimit = amount
	events := []event.Event{ev}

	if err := l.settle(ctx, borrower, 0, Mutation{Profile: &profile, Events: events}); err != nil {
		return credit.Profile{}, nil, err
	}

	l.credits.Put(profile)

	l.logger.InfoContext(ctx, "Credit limit set", "borrower", borrower, "limit", amount)
	return profile, events, nil
}

func (l *Ledger) setPaused(ctx context.Context, caller string, paused bool) ([]event.Event, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if paused && l.paused {
		return nil, shared.ErrContractPaused
	}
	if !paused && !l.paused {
		return nil, shared.ErrNotPaused
	}

	typ := event.TypeUnpaused
	if paused {
		typ = event.TypePaused
	}
	events := []event.Event{l.newEvent(ctx, typ, caller, l.clock.Now())}

	if err := l.settle(ctx, caller, 0, Mutation{Paused: &paused, Events: events}); err != nil {
		return nil, err
	}

	l.paused = paused

	l.logger.WarnContext(ctx, "Lending pause state changed", "paused", paused, "caller", caller)
	return events, nil
}

func (l *Ledger) rescue(ctx context.Context, to string, amount int64) ([]event.Event, error) {
	if to == "" {
		return nil, shared.ErrInvalidParty
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.clock.Now()
	p := l.pool
	if err := p.Rescue(amount); err != nil {
		return nil, err
	}
	p.UpdatedAt = now

	ev := l.newEvent(ctx, event.TypeFundsRescued, to, now)
	ev.Amount = amount
	events := []event.Event{ev}

	if err := l.settle(ctx, to, -amount, Mutation{Pool: &p, Events: events}); err != nil {
		return nil, err
	}

	l.pool = p

	l.logger.WarnContext(ctx, "Funds rescued", "to", to, "amount", amount, "raw_liquidity", p.RawLiquidity)
	return events, nil
}

// settle moves funds and then commits m. Positive flow is collected from
// account, negative flow is disbursed to it. If the commit fails the transfer
// is reversed.
func (l *Ledger) settle(ctx context.Context, account string, flow int64, m Mutation) error {
	if err := l.transfer(ctx, account, flow); err != nil {
		return fmt.Errorf("failed to settle transfer: %w", err)
	}

	if err := l.journal.Commit(ctx, m); err != nil {
		if flow != 0 {
			if rerr := l.transfer(ctx, account, -flow); rerr != nil {
				l.logger.ErrorContext(ctx, "Failed to reverse transfer after journal failure",
					"account", account,
					"flow", flow,
					"error", rerr,
				)
			}
		}
		return fmt.Errorf("failed to commit ledger mutation: %w", err)
	}
	return nil
}

func (l *Ledger) transfer(ctx context.Context, account string, flow int64) error {
	switch {
	case flow > 0:
		return l.settlement.Collect(ctx, account, flow)
	case flow < 0:
		return l.settlement.Disburse(ctx, account, -flow)
	default:
		return nil
	}
}

func (l *Ledger) newEvent(ctx context.Context, t event.Type, account string, at time.Time) event.Event {
	ev := event.New(t, account, at)
	ev.CorrelationID = CorrelationID(ctx)
	return ev
}

func newReceipt(l *loan.Loan, newLimit int64, at time.Time) Receipt {
	return Receipt{
		LoanID:    l.ID,
		Borrower:  l.Borrower,
		Principal: l.Principal,
		Interest:  l.InterestPaid,
		Total:     l.Principal + l.InterestPaid,
		NewLimit:  newLimit,
		PaidAt:    at,
	}
}

// activeLoan returns the borrower's only ACTIVE loan, or nil.
func (l *Ledger) activeLoan(borrower string) *loan.Loan {
	ids := l.byBorrower[borrower]
	for i := len(ids) - 1; i >= 0; i-- {
		if ln := l.loans[l.index[ids[i]]]; ln.IsActive() {
			return ln
		}
	}
	return nil
}

func (l *Ledger) oldestDefaulted(borrower string) *loan.Loan {
	for _, id := range l.byBorrower[borrower] {
		if ln := l.loans[l.index[id]]; ln.IsDefaulted() {
			return ln
		}
	}
	return nil
}

func (l *Ledger) latestLoan(borrower string) *loan.Loan {
	ids := l.byBorrower[borrower]
	if len(ids) == 0 {
		return nil
	}
	return l.loans[l.index[ids[len(ids)-1]]]
}

func (l *Ledger) appendLoan(ln *loan.Loan) {
	l.index[ln.ID] = len(l.loans)
	l.loans = append(l.loans, ln)
	l.byBorrower[ln.Borrower] = append(l.byBorrower[ln.Borrower], ln.ID)
	if ln.ID >= l.nextID {
		l.nextID = ln.ID + 1
	}
}

func (l *Ledger) replaceLoan(ln *loan.Loan) {
	l.loans[l.index[ln.ID]] = ln
}
