package credit

import (
	"context"

	"github.com/jackc/pgx/v5"
)

// Repository defines credit profile persistence operations
type Repository interface {
	// Save inserts or replaces the borrower's profile.
	Save(ctx context.Context, p *Profile) error
	GetByBorrower(ctx context.Context, borrower string) (*Profile, error)
	ListAll(ctx context.Context) ([]*Profile, error)
	WithTx(tx pgx.Tx) Repository
}

// ErrProfileNotFound indicates no profile has been persisted for the borrower
type ErrProfileNotFound struct {
	Borrower string
}

func (e ErrProfileNotFound) Error() string {
	return "credit profile not found: " + e.Borrower
}
