package loan

import (
	"context"
	"strconv"

	"github.com/jackc/pgx/v5"
)

// Repository defines loan persistence operations
type Repository interface {
	// Save inserts the loan or updates its mutable columns (status, interest, timestamps).
	Save(ctx context.Context, l *Loan) error
	GetByID(ctx context.Context, id int64) (*Loan, error)
	// ListAll returns every loan ordered by ID.
	ListAll(ctx context.Context) ([]*Loan, error)
	ListByBorrower(ctx context.Context, borrower string) ([]*Loan, error)
	WithTx(tx pgx.Tx) Repository
}

// ErrLoanNotFound indicates a missing loan
type ErrLoanNotFound struct {
	ID int64
}

func (e ErrLoanNotFound) Error() string {
	return "loan not found: " + strconv.FormatInt(e.ID, 10)
}
