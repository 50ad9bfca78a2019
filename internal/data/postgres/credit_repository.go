package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/microcredit-pool-ledger/internal/domain/credit"
	"github.com/microcredit-pool-ledger/internal/platform/persistence"
)

// CreditRepository implements the credit.Repository interface for PostgreSQL
type CreditRepository struct {
	querier persistence.Querier
	logger  *slog.Logger
}

func NewCreditRepository(logger *slog.Logger, db *persistence.PostgresDB) credit.Repository {
	return &CreditRepository{
		querier: db.Pool(),
		logger:  logger,
	}
}

func (r *CreditRepository) WithTx(tx pgx.Tx) credit.Repository {
	return &CreditRepository{
		querier: tx,
		logger:  r.logger,
	}
}

func (r *CreditRepository) Save(ctx context.Context, p *credit.Profile) error {
	query := `
		INSERT INTO credit_profiles (borrower, credit_limit, completed_loan_count, updated_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (borrower) DO UPDATE
		SET credit_limit = EXCLUDED.credit_limit, completed_loan_count = EXCLUDED.completed_loan_count,
			updated_at = EXCLUDED.updated_at
	`

	_, err := r.querier.Exec(ctx, query, p.Borrower, p.Limit, p.CompletedLoanCount, p.UpdatedAt)
	if err != nil {
		r.logger.Error("Failed to save credit profile", "borrower", p.Borrower, "error", err)
		return fmt.Errorf("failed to save credit profile: %w", err)
	}

	return nil
}

func (r *CreditRepository) GetByBorrower(ctx context.Context, borrower string) (*credit.Profile, error) {
	query := `
		SELECT borrower, credit_limit, completed_loan_count, updated_at
		FROM credit_profiles
		WHERE borrower = $1
	`

	var p credit.Profile
	err := r.querier.QueryRow(ctx, query, borrower).Scan(&p.Borrower, &p.Limit, &p.CompletedLoanCount, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, credit.ErrProfileNotFound{Borrower: borrower}
		}
		r.logger.Error("Failed to get credit profile", "borrower", borrower, "error", err)
		return nil, fmt.Errorf("failed to get credit profile: %w", err)
	}

	return &p, nil
}

func (r *CreditRepository) ListAll(ctx context.Context) ([]*credit.Profile, error) {
	query := `
		SELECT borrower, credit_limit, completed_loan_count, updated_at
		FROM credit_profiles
		ORDER BY borrower ASC
	`

	rows, err := r.querier.Query(ctx, query)
	if err != nil {
		r.logger.Error("Failed to list credit profiles", "error", err)
		return nil, fmt.Errorf("failed to list credit profiles: %w", err)
	}
	defer rows.Close()

	var profiles []*credit.Profile
	for rows.Next() {
		var p credit.Profile
		if err := rows.Scan(&p.Borrower, &p.Limit, &p.CompletedLoanCount, &p.UpdatedAt); err != nil {
			r.logger.Error("Failed to scan credit profile", "error", err)
			return nil, fmt.Errorf("failed to scan credit profile: %w", err)
		}
		profiles = append(profiles, &p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating over credit profiles: %w", err)
	}

	return profiles, nil
}
