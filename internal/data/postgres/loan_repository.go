// Package postgres provides PostgreSQL implementations of the domain repositories
// and the transactional journal behind the lending ledger.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/microcredit-pool-ledger/internal/domain/loan"
	"github.com/microcredit-pool-ledger/internal/platform/persistence"
)

// LoanRepository implements the loan.Repository interface for PostgreSQL
type LoanRepository struct {
	querier persistence.Querier // Can be *pgxpool.Pool or pgx.Tx
	logger  *slog.Logger
}

// NewLoanRepository creates a new PostgreSQL loan repository
func NewLoanRepository(logger *slog.Logger, db *persistence.PostgresDB) loan.Repository {
	return &LoanRepository{
		querier: db.Pool(),
		logger:  logger,
	}
}

// WithTx returns a repository bound to tx
func (r *LoanRepository) WithTx(tx pgx.Tx) loan.Repository {
	return &LoanRepository{
		querier: tx,
		logger:  r.logger,
	}
}

// Save inserts a new loan or updates the lifecycle columns of an existing one.
// Borrower, principal and origination time are never overwritten.
func (r *LoanRepository) Save(ctx context.Context, l *loan.Loan) error {
	query := `
		INSERT INTO loans (id, borrower, principal, originated_at, status, interest_paid, defaulted_at, closed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (id) DO UPDATE
		SET status = EXCLUDED.status, interest_paid = EXCLUDED.interest_paid,
			defaulted_at = EXCLUDED.defaulted_at, closed_at = EXCLUDED.closed_at
	`

	_, err := r.querier.Exec(ctx, query,
		l.ID,
		l.Borrower,
		l.Principal,
		l.OriginatedAt,
		l.Status,
		l.InterestPaid,
		l.DefaultedAt,
		l.ClosedAt,
	)
	if err != nil {
		r.logger.Error("Failed to save loan", "loan_id", l.ID, "error", err)
		return fmt.Errorf("failed to save loan: %w", err)
	}

	return nil
}

// GetByID retrieves a loan by its ID
func (r *LoanRepository) GetByID(ctx context.Context, id int64) (*loan.Loan, error) {
	query := `
		SELECT id, borrower, principal, originated_at, status, interest_paid, defaulted_at, closed_at
		FROM loans
		WHERE id = $1
	`

	var l loan.Loan
	err := r.querier.QueryRow(ctx, query, id).Scan(
		&l.ID,
		&l.Borrower,
		&l.Principal,
		&l.OriginatedAt,
		&l.Status,
		&l.InterestPaid,
		&l.DefaultedAt,
		&l.ClosedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, loan.ErrLoanNotFound{ID: id}
		}
		r.logger.Error("Failed to get loan", "loan_id", id, "error", err)
		return nil, fmt.Errorf("failed to get loan: %w", err)
	}

	return &l, nil
}

// ListAll returns every loan ordered by ID
func (r *LoanRepository) ListAll(ctx context.Context) ([]*loan.Loan, error) {
	query := `
		SELECT id, borrower, principal, originated_at, status, interest_paid, defaulted_at, closed_at
		FROM loans
		ORDER BY id ASC
	`
	return r.list(ctx, query)
}

// ListByBorrower returns the borrower's loans ordered by ID
func (r *LoanRepository) ListByBorrower(ctx context.Context, borrower string) ([]*loan.Loan, error) {
	query := `
		SELECT id, borrower, principal, originated_at, status, interest_paid, defaulted_at, closed_at
		FROM loans
		WHERE borrower = $1
		ORDER BY id ASC
	`
	return r.list(ctx, query, borrower)
}

func (r *LoanRepository) list(ctx context.Context, query string, args ...interface{}) ([]*loan.Loan, error) {
	rows, err := r.querier.Query(ctx, query, args...)
	if err != nil {
		r.logger.Error("Failed to list loans", "error", err)
		return nil, fmt.Errorf("failed to list loans: %w", err)
	}
	defer rows.Close()

	var loans []*loan.Loan
	for rows.Next() {
		var l loan.Loan
		if err := rows.Scan(
			&l.ID,
			&l.Borrower,
			&l.Principal,
			&l.OriginatedAt,
			&l.Status,
			&l.InterestPaid,
			&l.DefaultedAt,
			&l.ClosedAt,
		); err != nil {
			r.logger.Error("Failed to scan loan", "error", err)
			return nil, fmt.Errorf("failed to scan loan: %w", err)
		}
		loans = append(loans, &l)
	}

	if err := rows.Err(); err != nil {
		r.logger.Error("Error iterating over loans", "error", err)
		return nil, fmt.Errorf("error iterating over loans: %w", err)
	}

	return loans, nil
}
