// Package pool holds the liquidity pool's accounting: raw balance, principal
// lent out, principal lost to defaults, and the share supply of liquidity
// providers.
package pool

import (
	"math"
	"time"

	"github.com/microcredit-pool-ledger/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// State is the singleton pool balance sheet. All amounts are minor units.
type State struct {
	RawLiquidity         int64     `json:"raw_liquidity"`
	OutstandingPrincipal int64     `json:"outstanding_principal"`
	DefaultedPrincipal   int64     `json:"defaulted_principal"`
	TotalShares          int64     `json:"total_shares"`
	UpdatedAt            time.Time `json:"updated_at"`
}

// AvailableLiquidity is what can be lent or withdrawn right now.
func (s State) AvailableLiquidity() int64 {
	return s.RawLiquidity
}

// TotalAssets is the solvent value backing the shares: cash on hand plus
// performing principal. Defaulted principal is excluded until recovered.
func (s State) TotalAssets() int64 {
	return s.RawLiquidity + s.OutstandingPrincipal
}

// SharePrice is TotalAssets / TotalShares, or 1 before the first deposit.
func (s State) SharePrice() decimal.Decimal {
	if s.TotalShares == 0 {
		return decimal.NewFromInt(1)
	}
	return decimal.NewFromInt(s.TotalAssets()).DivRound(decimal.NewFromInt(s.TotalShares), 18)
}

// OnBorrow moves principal from cash to outstanding.
func (s *State) OnBorrow(principal int64) error {
	if principal <= 0 {
		return shared.ErrInvalidAmount
	}
	if principal > s.RawLiquidity {
		return shared.ErrInsufficientLiquidity
	}
	s.RawLiquidity -= principal
	s.OutstandingPrincipal += principal
	return nil
}

// OnRepay returns principal plus interest to cash. Solvent assets grow by interest.
func (s *State) OnRepay(principal, interest int64) error {
	if principal <= 0 || interest < 0 || principal > s.OutstandingPrincipal {
		return shared.ErrInvalidAmount
	}
	// Outstanding shrinks by principal, so only interest grows the total.
	if _, err := addWithin(s.TotalAssets(), interest); err != nil {
		return err
	}
	s.RawLiquidity += principal + interest
	s.OutstandingPrincipal -= principal
	return nil
}

// OnDefault writes principal off. Solvent assets shrink by principal.
func (s *State) OnDefault(principal int64) error {
	if principal <= 0 || principal > s.OutstandingPrincipal {
		return shared.ErrInvalidAmount
	}
	s.OutstandingPrincipal -= principal
	s.DefaultedPrincipal += principal
	return nil
}

// OnDefaultRecovery brings a written-off principal back with interest.
// Solvent assets grow by principal plus interest.
func (s *State) OnDefaultRecovery(principal, interest int64) error {
	if principal <= 0 || interest < 0 || principal > s.DefaultedPrincipal {
		return shared.ErrInvalidAmount
	}
	if _, err := addWithin(s.TotalAssets(), principal, interest); err != nil {
		return err
	}
	s.RawLiquidity += principal + interest
	s.DefaultedPrincipal -= principal
	return nil
}

// Deposit adds amount to cash and returns the shares minted for it. The first
// deposit mints 1:1 and must be at least bootstrapMin; later ones mint
// amount × TotalShares / TotalAssets, rounded down. A deposit that would push
// cash, solvent assets or the share supply past int64 is refused.
func (s *State) Deposit(amount, bootstrapMin int64) (int64, error) {
	if amount <= 0 {
		return 0, shared.ErrInvalidAmount
	}

	var shares int64
	if s.TotalShares == 0 {
		if amount < bootstrapMin {
			return 0, shared.ErrBootstrapDepositTooLow
		}
		shares = amount
	} else {
		assets := s.TotalAssets()
		if assets <= 0 {
			return 0, shared.ErrPoolInsolvent
		}
		var err error
		if shares, err = mulDivFloor(amount, s.TotalShares, assets); err != nil {
			return 0, err
		}
		if shares == 0 {
			return 0, shared.ErrInvalidAmount
		}
	}

	raw, err := addWithin(s.RawLiquidity, amount)
	if err != nil {
		return 0, err
	}
	if _, err := addWithin(raw, s.OutstandingPrincipal); err != nil {
		return 0, err
	}
	totalShares, err := addWithin(s.TotalShares, shares)
	if err != nil {
		return 0, err
	}

	s.RawLiquidity = raw
	s.TotalShares = totalShares
	return shares, nil
}

// Withdraw burns shares out of held and pays out their asset value, rounded
// down. Payouts come from cash only.
func (s *State) Withdraw(shares, held int64) (int64, error) {
	if shares <= 0 {
		return 0, shared.ErrInvalidAmount
	}
	if shares > held || shares > s.TotalShares {
		return 0, shared.ErrInsufficientShares
	}

	assets := s.TotalAssets()
	if assets <= 0 {
		return 0, shared.ErrPoolInsolvent
	}
	// shares ≤ TotalShares, so the payout never exceeds assets.
	amount, _ := mulDivFloor(shares, assets, s.TotalShares)
	if amount == 0 {
		return 0, shared.ErrInvalidAmount
	}
	if amount > s.RawLiquidity {
		return 0, shared.ErrInsufficientLiquidity
	}

	s.RawLiquidity -= amount
	s.TotalShares -= shares
	return amount, nil
}

// Rescue removes cash without touching any loan accounting.
func (s *State) Rescue(amount int64) error {
	if amount <= 0 {
		return shared.ErrInvalidAmount
	}
	if amount > s.RawLiquidity {
		return shared.ErrInsufficientLiquidity
	}
	s.RawLiquidity -= amount
	return nil
}

// ValueOf is the current asset value of shares, rounded down.
func (s State) ValueOf(shares int64) int64 {
	if shares <= 0 || s.TotalShares == 0 || s.TotalAssets() <= 0 {
		return 0
	}
	value, _ := mulDivFloor(shares, s.TotalAssets(), s.TotalShares)
	return value
}

var maxAmount = decimal.NewFromInt(math.MaxInt64)

// mulDivFloor computes a × b / c, rounded down, for non-negative operands.
func mulDivFloor(a, b, c int64) (int64, error) {
	q, _ := decimal.NewFromInt(a).Mul(decimal.NewFromInt(b)).QuoRem(decimal.NewFromInt(c), 0)
	if q.GreaterThan(maxAmount) {
		return 0, shared.ErrPoolCapacityExceeded
	}
	return q.IntPart(), nil
}

// addWithin sums non-negative amounts, failing instead of wrapping past int64.
func addWithin(base int64, deltas ...int64) (int64, error) {
	sum := base
	for _, d := range deltas {
		if d > math.MaxInt64-sum {
			return 0, shared.ErrPoolCapacityExceeded
		}
		sum += d
	}
	return sum, nil
}
