package lending

import (
	"fmt"
	"sort"

	"github.com/microcredit-pool-ledger/internal/domain/credit"
	"github.com/microcredit-pool-ledger/internal/domain/loan"
	"github.com/microcredit-pool-ledger/internal/domain/pool"
)

// Snapshot is the persisted ledger state loaded at startup.
type Snapshot struct {
	Loans     []*loan.Loan
	Profiles  []*credit.Profile
	Pool      pool.State
	Positions []*pool.Position
	Paused    bool
}

// Restore replaces the ledger's state with s after checking it is consistent.
func (l *Ledger) Restore(s Snapshot) error {
	loans := make([]*loan.Loan, len(s.Loans))
	copy(loans, s.Loans)
	sort.Slice(loans, func(i, j int) bool { return loans[i].ID < loans[j].ID })

	if err := checkConsistency(loans, s.Pool); err != nil {
		return fmt.Errorf("inconsistent snapshot: %w", err)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	l.loans = nil
	l.index = make(map[int64]int, len(loans))
	l.byBorrower = make(map[string][]int64)
	l.nextID = 1
	for _, ln := range loans {
		l.appendLoan(ln.Clone())
	}

	l.credits.Load(s.Profiles)
	l.pool = s.Pool
	l.positions = make(map[string]pool.Position, len(s.Positions))
	for _, p := range s.Positions {
		l.positions[p.Provider] = *p
	}
	l.paused = s.Paused

	l.logger.Info("Ledger state restored",
		"loans", len(loans),
		"profiles", len(s.Profiles),
		"positions", len(s.Positions),
		"paused", s.Paused,
	)
	return nil
}

// CheckInvariants recomputes the pool's principal totals from the loans and
// verifies every borrower has at most one active loan.
func (l *Ledger) CheckInvariants() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return checkConsistency(l.loans, l.pool)
}

func checkConsistency(loans []*loan.Loan, p pool.State) error {
	var outstanding, defaulted int64
	active := make(map[string]int64)
	seen := make(map[int64]struct{}, len(loans))

	for _, ln := range loans {
		if _, dup := seen[ln.ID]; dup {
			return fmt.Errorf("duplicate loan id %d", ln.ID)
		}
		seen[ln.ID] = struct{}{}

		switch ln.Status {
		case loan.StatusActive:
			if prev, ok := active[ln.Borrower]; ok {
				return fmt.Errorf("borrower %s has active loans %d and %d", ln.Borrower, prev, ln.ID)
			}
			active[ln.Borrower] = ln.ID
			outstanding += ln.Principal
		case loan.StatusDefaulted:
			defaulted += ln.Principal
		}
	}

	if outstanding != p.OutstandingPrincipal {
		return fmt.Errorf("outstanding principal %d does not match active loans %d", p.OutstandingPrincipal, outstanding)
	}
	if defaulted != p.DefaultedPrincipal {
		return fmt.Errorf("defaulted principal %d does not match defaulted loans %d", p.DefaultedPrincipal, defaulted)
	}
	if p.RawLiquidity < 0 || p.TotalShares < 0 {
		return fmt.Errorf("negative pool balance: raw=%d shares=%d", p.RawLiquidity, p.TotalShares)
	}
	return nil
}
