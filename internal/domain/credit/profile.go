// Package credit tracks each borrower's credit limit and repayment history.
package credit

import (
	"math"
	"sort"
	"time"

	"github.com/microcredit-pool-ledger/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// Profile is a borrower's current borrowing ceiling.
type Profile struct {
	Borrower           string    `json:"borrower"`
	Limit              int64     `json:"limit"` // minor units
	CompletedLoanCount int64     `json:"completed_loan_count"`
	UpdatedAt          time.Time `json:"updated_at"`
}

var maxLimit = decimal.NewFromInt(math.MaxInt64)

// Grow multiplies the limit by factor, rounding down to the minimal unit, and
// counts one more completed loan. The limit saturates at math.MaxInt64.
func (p *Profile) Grow(factor decimal.Decimal, now time.Time) {
	grown := decimal.NewFromInt(p.Limit).Mul(factor).Floor()
	if grown.GreaterThan(maxLimit) {
		grown = maxLimit
	}
	p.Limit = grown.IntPart()
	p.CompletedLoanCount++
	p.UpdatedAt = now
}

// SetLimit overwrites the limit.
func (p *Profile) SetLimit(amount int64, now time.Time) error {
	if amount < 0 {
		return shared.ErrInvalidAmount
	}
	p.Limit = amount
	p.UpdatedAt = now
	return nil
}

// Store holds profiles in memory. It is not safe for concurrent use; the
// lending ledger serializes access.
type Store struct {
	initialLimit int64
	profiles     map[string]*Profile
}

// NewStore creates a store whose new profiles start at initialLimit.
func NewStore(initialLimit int64) *Store {
	return &Store{
		initialLimit: initialLimit,
		profiles:     make(map[string]*Profile),
	}
}

// InitialLimit is the limit assigned to borrowers seen for the first time.
func (s *Store) InitialLimit() int64 {
	return s.initialLimit
}

// Profile returns a copy of the borrower's profile. Unknown borrowers get a
// fresh profile at the initial limit; it is only stored once Put.
func (s *Store) Profile(borrower string) Profile {
	if p, ok := s.profiles[borrower]; ok {
		return *p
	}
	return Profile{Borrower: borrower, Limit: s.initialLimit}
}

// Limit returns the borrower's current limit.
func (s *Store) Limit(borrower string) int64 {
	return s.Profile(borrower).Limit
}

// Put replaces the stored profile.
func (s *Store) Put(p Profile) {
	cp := p
	s.profiles[p.Borrower] = &cp
}

// Load replaces the store's content with the given profiles.
func (s *Store) Load(profiles []*Profile) {
	s.profiles = make(map[string]*Profile, len(profiles))
	for _, p := range profiles {
		s.Put(*p)
	}
}

// All returns copies of every known profile ordered by borrower.
func (s *Store) All() []Profile {
	out := make([]Profile, 0, len(s.profiles))
	for _, p := range s.profiles {
		out = append(out, *p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Borrower < out[j].Borrower })
	return out
}
