package service

import (
	"context"
	"log/slog"

	"github.com/microcredit-pool-ledger/internal/domain/credit"
	"github.com/microcredit-pool-ledger/internal/domain/loan"
	"github.com/microcredit-pool-ledger/internal/domain/shared"
	"github.com/microcredit-pool-ledger/internal/lending"
	"github.com/microcredit-pool-ledger/internal/platform/metrics"
)

// BorrowerSummary is the borrower dashboard view.
type BorrowerSummary struct {
	Borrower        string     `json:"borrower"`
	CreditLimit     int64      `json:"credit_limit"`
	CompletedLoans  int64      `json:"completed_loans"`
	LoanCount       int64      `json:"loan_count"`
	LatestLoan      *loan.Loan `json:"latest_loan,omitempty"`
	RepaymentAmount int64      `json:"repayment_amount"`
	Overdue         bool       `json:"overdue"`
}

// PoolSummary is the vault balance sheet.
type PoolSummary struct {
	TotalAssets          int64  `json:"total_assets"`
	RawLiquidity         int64  `json:"raw_liquidity"`
	OutstandingPrincipal int64  `json:"outstanding_principal"`
	DefaultedPrincipal   int64  `json:"total_defaulted"`
	TotalShares          int64  `json:"total_shares"`
	SharePrice           string `json:"share_price"`
	TotalLoans           int64  `json:"total_loans"`
	Paused               bool   `json:"paused"`
}

// PositionSummary is a provider's shares and what they redeem for now.
type PositionSummary struct {
	Provider string `json:"provider"`
	Shares   int64  `json:"shares"`
	Value    int64  `json:"value"`
}

// VaultService fronts the ledger for the HTTP layer and records an operation
// metric for every mutation.
type VaultService struct {
	ledger  *lending.Ledger
	gate    *lending.Gate
	metrics *metrics.Metrics
	logger  *slog.Logger
}

var (
	_ LoanService     = (*VaultService)(nil)
	_ BorrowerService = (*BorrowerView)(nil)
	_ PoolService     = (*VaultService)(nil)
	_ AdminService    = (*VaultService)(nil)
)

func NewVaultService(logger *slog.Logger, ledger *lending.Ledger, gate *lending.Gate, m *metrics.Metrics) *VaultService {
	s := &VaultService{
		ledger:  ledger,
		gate:    gate,
		metrics: m,
		logger:  logger,
	}
	m.SetPool(ledger.Pool())
	return s
}

// Borrowers returns the read-only borrower view over the same ledger.
func (s *VaultService) Borrowers() *BorrowerView {
	return &BorrowerView{ledger: s.ledger}
}

func (s *VaultService) Borrow(ctx context.Context, borrower string, amount int64) (loan.Loan, error) {
	ln, _, err := s.ledger.Borrow(ctx, borrower, amount)
	s.record(ctx, "borrow", err, "borrower", borrower, "amount", amount, "loan_id", ln.ID)
	return ln, err
}

func (s *VaultService) Repay(ctx context.Context, borrower string) (lending.Receipt, error) {
	r, _, err := s.ledger.Repay(ctx, borrower)
	s.record(ctx, "repay", err, "borrower", borrower, "loan_id", r.LoanID, "total", r.Total)
	return r, err
}

func (s *VaultService) RepayDefaulted(ctx context.Context, borrower string) (lending.Receipt, error) {
	r, _, err := s.ledger.RepayDefaulted(ctx, borrower)
	s.record(ctx, "repay_defaulted", err, "borrower", borrower, "loan_id", r.LoanID, "total", r.Total)
	return r, err
}

func (s *VaultService) Loans(_ context.Context, status loan.Status) []loan.Loan {
	if status == "" {
		return s.ledger.Loans()
	}
	return s.ledger.LoansByStatus(status)
}

func (s *VaultService) Deposit(ctx context.Context, provider string, amount int64) (lending.LiquidityReceipt, error) {
	r, _, err := s.ledger.Deposit(ctx, provider, amount)
	s.record(ctx, "deposit", err, "provider", provider, "amount", amount, "shares", r.Shares)
	return r, err
}

func (s *VaultService) Withdraw(ctx context.Context, provider string, shares int64) (lending.LiquidityReceipt, error) {
	r, _, err := s.ledger.Withdraw(ctx, provider, shares)
	s.record(ctx, "withdraw", err, "provider", provider, "shares", shares, "amount", r.Amount)
	return r, err
}

func (s *VaultService) Summary(_ context.Context) PoolSummary {
	p := s.ledger.Pool()
	return PoolSummary{
		TotalAssets:          p.TotalAssets(),
		RawLiquidity:         p.RawLiquidity,
		OutstandingPrincipal: p.OutstandingPrincipal,
		DefaultedPrincipal:   p.DefaultedPrincipal,
		TotalShares:          p.TotalShares,
		SharePrice:           p.SharePrice().StringFixed(6),
		TotalLoans:           s.ledger.TotalLoans(),
		Paused:               s.ledger.Paused(),
	}
}

func (s *VaultService) Position(_ context.Context, provider string) PositionSummary {
	pos := s.ledger.Position(provider)
	return PositionSummary{
		Provider: provider,
		Shares:   pos.Shares,
		Value:    s.ledger.Pool().ValueOf(pos.Shares),
	}
}

func (s *VaultService) SetCreditLimit(ctx context.Context, caller, borrower string, amount int64) (credit.Profile, error) {
	p, _, err := s.gate.SetCreditLimit(ctx, caller, borrower, amount)
	s.record(ctx, "set_credit_limit", err, "caller", caller, "borrower", borrower, "amount", amount)
	return p, err
}

func (s *VaultService) MarkAsDefaulted(ctx context.Context, caller, borrower string) (loan.Loan, error) {
	ln, _, err := s.gate.MarkAsDefaulted(ctx, caller, borrower)
	s.record(ctx, "mark_defaulted", err, "caller", caller, "borrower", borrower, "loan_id", ln.ID)
	return ln, err
}

func (s *VaultService) Pause(ctx context.Context, caller string) error {
	_, err := s.gate.Pause(ctx, caller)
	s.record(ctx, "pause", err, "caller", caller)
	return err
}

func (s *VaultService) Unpause(ctx context.Context, caller string) error {
	_, err := s.gate.Unpause(ctx, caller)
	s.record(ctx, "unpause", err, "caller", caller)
	return err
}

func (s *VaultService) RescueFunds(ctx context.Context, caller, to string, amount int64) error {
	_, err := s.gate.RescueFunds(ctx, caller, to, amount)
	s.record(ctx, "rescue_funds", err, "caller", caller, "to", to, "amount", amount)
	return err
}

// record logs the outcome, counts it and refreshes the pool gauges on success.
func (s *VaultService) record(ctx context.Context, operation string, err error, attrs ...any) {
	log := s.logger.With("operation", operation, "correlation_id", lending.CorrelationID(ctx))
	if err != nil {
		code := shared.CodeOf(err)
		if code == "" {
			code = "INTERNAL"
			log.Error("Ledger operation failed", append(attrs, "error", err)...)
		} else {
			log.Info("Ledger operation rejected", append(attrs, "code", code)...)
		}
		s.metrics.RecordOperation(operation, code)
		return
	}

	log.Info("Ledger operation applied", attrs...)
	s.metrics.RecordOperation(operation, "ok")
	s.metrics.SetPool(s.ledger.Pool())
}

// BorrowerView answers borrower queries straight from the ledger.
type BorrowerView struct {
	ledger *lending.Ledger
}

func (v *BorrowerView) Summary(_ context.Context, borrower string) BorrowerSummary {
	profile := v.ledger.Profile(borrower)
	summary := BorrowerSummary{
		Borrower:        borrower,
		CreditLimit:     profile.Limit,
		CompletedLoans:  profile.CompletedLoanCount,
		LoanCount:       v.ledger.UserLoanCount(borrower),
		RepaymentAmount: v.ledger.RepaymentAmount(borrower),
		Overdue:         v.ledger.IsLoanOverdue(borrower),
	}
	if ln, ok := v.ledger.ActiveLoan(borrower); ok {
		summary.LatestLoan = &ln
	}
	return summary
}

func (v *BorrowerView) CreditLimit(_ context.Context, borrower string) int64 {
	return v.ledger.CreditLimit(borrower)
}

func (v *BorrowerView) LatestLoan(_ context.Context, borrower string) (loan.Loan, bool) {
	return v.ledger.ActiveLoan(borrower)
}

func (v *BorrowerView) RepaymentAmount(_ context.Context, borrower string) int64 {
	return v.ledger.RepaymentAmount(borrower)
}

func (v *BorrowerView) IsLoanOverdue(_ context.Context, borrower string) bool {
	return v.ledger.IsLoanOverdue(borrower)
}
