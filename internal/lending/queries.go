package lending

import (
	"github.com/microcredit-pool-ledger/internal/domain/credit"
	"github.com/microcredit-pool-ledger/internal/domain/loan"
	"github.com/microcredit-pool-ledger/internal/domain/pool"
)

// CreditLimit returns the borrower's limit, the initial limit for unknown borrowers.
func (l *Ledger) CreditLimit(borrower string) int64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.credits.Limit(borrower)
}

// Profile returns the borrower's credit profile.
func (l *Ledger) Profile(borrower string) credit.Profile {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.credits.Profile(borrower)
}

// ActiveLoan returns the borrower's most recent loan with its status. The
// loan is ACTIVE only if the borrower currently owes it.
func (l *Ledger) ActiveLoan(borrower string) (loan.Loan, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if ln := l.latestLoan(borrower); ln != nil {
		return *ln.Clone(), true
	}
	return loan.Loan{}, false
}

// RepaymentAmount is what the borrower owes now: the active loan's principal
// plus interest, else the oldest defaulted loan's, else 0.
func (l *Ledger) RepaymentAmount(borrower string) int64 {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.clock.Now()
	if ln := l.activeLoan(borrower); ln != nil {
		return l.cfg.Terms.RepaymentAmount(ln, now)
	}
	if ln := l.oldestDefaulted(borrower); ln != nil {
		return l.cfg.Terms.RepaymentAmount(ln, now)
	}
	return 0
}

// IsLoanOverdue reports whether the borrower's active loan is past the overdue threshold.
func (l *Ledger) IsLoanOverdue(borrower string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	ln := l.activeLoan(borrower)
	if ln == nil {
		return false
	}
	return l.cfg.Terms.IsOverdue(ln, l.clock.Now())
}

// Loans returns every loan in creation order.
func (l *Ledger) Loans() []loan.Loan {
	return l.filter(func(*loan.Loan) bool { return true })
}

// LoansByStatus returns loans in the given status in creation order.
func (l *Ledger) LoansByStatus(status loan.Status) []loan.Loan {
	return l.filter(func(ln *loan.Loan) bool { return ln.Status == status })
}

// DefaultedLoans returns loans currently flagged as defaulted.
func (l *Ledger) DefaultedLoans() []loan.Loan {
	return l.LoansByStatus(loan.StatusDefaulted)
}

func (l *Ledger) filter(keep func(*loan.Loan) bool) []loan.Loan {
	l.mu.Lock()
	defer l.mu.Unlock()

	out := make([]loan.Loan, 0, len(l.loans))
	for _, ln := range l.loans {
		if keep(ln) {
			out = append(out, *ln.Clone())
		}
	}
	return out
}

// TotalLoans is the number of loans ever issued.
func (l *Ledger) TotalLoans() int64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return int64(len(l.loans))
}

// UserLoanCount is the number of loans the borrower has ever taken.
func (l *Ledger) UserLoanCount(borrower string) int64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return int64(len(l.byBorrower[borrower]))
}

// TotalAssets is the pool's solvent assets.
func (l *Ledger) TotalAssets() int64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.pool.TotalAssets()
}

// TotalDefaulted is the principal of loans defaulted and not yet recovered.
func (l *Ledger) TotalDefaulted() int64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.pool.DefaultedPrincipal
}

// Pool returns a copy of the pool balance sheet.
func (l *Ledger) Pool() pool.State {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.pool
}

// Position returns the provider's shares.
func (l *Ledger) Position(provider string) pool.Position {
	l.mu.Lock()
	defer l.mu.Unlock()

	pos, ok := l.positions[provider]
	if !ok {
		return pool.Position{Provider: provider}
	}
	return pos
}

// Paused reports whether new borrowing is suspended.
func (l *Ledger) Paused() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.paused
}
