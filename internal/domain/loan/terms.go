package loan

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// SecondsPerYear is the day-count basis for annual rates (365 days, no leap years).
const SecondsPerYear int64 = 365 * 86400

// Terms is the fixed interest and timing schedule applied to every loan.
type Terms struct {
	BaseRate         decimal.Decimal // annual rate while elapsed <= RateThreshold
	PunitiveRate     decimal.Decimal // annual rate for the whole period once past RateThreshold
	RateThreshold    time.Duration
	OverdueThreshold time.Duration
	MinHoldingPeriod time.Duration
}

// DefaultTerms returns 10% / 20% APR split at 30 days, overdue after 90 days and
// a 7 day minimum holding period.
func DefaultTerms() Terms {
	return Terms{
		BaseRate:         decimal.RequireFromString("0.10"),
		PunitiveRate:     decimal.RequireFromString("0.20"),
		RateThreshold:    30 * 24 * time.Hour,
		OverdueThreshold: 90 * 24 * time.Hour,
		MinHoldingPeriod: 7 * 24 * time.Hour,
	}
}

// ParseTerms builds Terms from decimal strings and durations.
func ParseTerms(baseRate, punitiveRate string, rateThreshold, overdueThreshold, minHolding time.Duration) (Terms, error) {
	base, err := decimal.NewFromString(baseRate)
	if err != nil {
		return Terms{}, fmt.Errorf("invalid base rate %q: %w", baseRate, err)
	}
	punitive, err := decimal.NewFromString(punitiveRate)
	if err != nil {
		return Terms{}, fmt.Errorf("invalid punitive rate %q: %w", punitiveRate, err)
	}
	return Terms{
		BaseRate:         base,
		PunitiveRate:     punitive,
		RateThreshold:    rateThreshold,
		OverdueThreshold: overdueThreshold,
		MinHoldingPeriod: minHolding,
	}, nil
}

// ElapsedSeconds returns whole seconds between origin and now, never negative.
func ElapsedSeconds(origin, now time.Time) int64 {
	secs := int64(now.Sub(origin) / time.Second)
	if secs < 0 {
		return 0
	}
	return secs
}

// RateFor returns the annual rate for a loan that has been open elapsed seconds.
// The punitive rate is not prorated: once past the threshold it covers the full period.
func (t Terms) RateFor(elapsed int64) decimal.Decimal {
	if elapsed <= int64(t.RateThreshold/time.Second) {
		return t.BaseRate
	}
	return t.PunitiveRate
}

// Interest computes floor(principal × rate × elapsed / SecondsPerYear) exactly.
func (t Terms) Interest(principal, elapsed int64) int64 {
	if principal <= 0 || elapsed <= 0 {
		return 0
	}
	numerator := decimal.NewFromInt(principal).
		Mul(t.RateFor(elapsed)).
		Mul(decimal.NewFromInt(elapsed))
	quotient, _ := numerator.QuoRem(decimal.NewFromInt(SecondsPerYear), 0)
	return quotient.IntPart()
}

// AccruedInterest is the interest owed on l at now.
func (t Terms) AccruedInterest(l *Loan, now time.Time) int64 {
	return t.Interest(l.Principal, ElapsedSeconds(l.OriginatedAt, now))
}

// RepaymentAmount is principal plus accrued interest.
func (t Terms) RepaymentAmount(l *Loan, now time.Time) int64 {
	return l.Principal + t.AccruedInterest(l, now)
}

// IsOverdue reports whether an active loan has been open longer than the overdue threshold.
func (t Terms) IsOverdue(l *Loan, now time.Time) bool {
	if !l.IsActive() {
		return false
	}
	return ElapsedSeconds(l.OriginatedAt, now) > int64(t.OverdueThreshold/time.Second)
}

// CanRepay reports whether the minimum holding period has passed.
func (t Terms) CanRepay(l *Loan, now time.Time) bool {
	return ElapsedSeconds(l.OriginatedAt, now) >= int64(t.MinHoldingPeriod/time.Second)
}
