package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/microcredit-pool-ledger/internal/domain/pool"
	"github.com/microcredit-pool-ledger/internal/platform/persistence"
)

// PoolRepository implements the pool.Repository interface for PostgreSQL.
// pool_state and vault_settings each hold a single row with id 1.
type PoolRepository struct {
	querier persistence.Querier
	logger  *slog.Logger
}

func NewPoolRepository(logger *slog.Logger, db *persistence.PostgresDB) pool.Repository {
	return &PoolRepository{
		querier: db.Pool(),
		logger:  logger,
	}
}

func (r *PoolRepository) WithTx(tx pgx.Tx) pool.Repository {
	return &PoolRepository{
		querier: tx,
		logger:  r.logger,
	}
}

func (r *PoolRepository) GetState(ctx context.Context) (*pool.State, error) {
	query := `
		SELECT raw_liquidity, outstanding_principal, defaulted_principal, total_shares, updated_at
		FROM pool_state
		WHERE id = 1
	`

	var s pool.State
	err := r.querier.QueryRow(ctx, query).Scan(
		&s.RawLiquidity,
		&s.OutstandingPrincipal,
		&s.DefaultedPrincipal,
		&s.TotalShares,
		&s.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return &pool.State{}, nil
		}
		r.logger.Error("Failed to get pool state", "error", err)
		return nil, fmt.Errorf("failed to get pool state: %w", err)
	}

	return &s, nil
}

func (r *PoolRepository) SaveState(ctx context.Context, s *pool.State) error {
	query := `
		INSERT INTO pool_state (id, raw_liquidity, outstanding_principal, defaulted_principal, total_shares, updated_at)
		VALUES (1, $1, $2, $3, $4, $5)
		ON CONFLICT (id) DO UPDATE
		SET raw_liquidity = EXCLUDED.raw_liquidity, outstanding_principal = EXCLUDED.outstanding_principal,
			defaulted_principal = EXCLUDED.defaulted_principal, total_shares = EXCLUDED.total_shares,
			updated_at = EXCLUDED.updated_at
	`

	_, err := r.querier.Exec(ctx, query,
		s.RawLiquidity,
		s.OutstandingPrincipal,
		s.DefaultedPrincipal,
		s.TotalShares,
		s.UpdatedAt,
	)
	if err != nil {
		r.logger.Error("Failed to save pool state", "error", err)
		return fmt.Errorf("failed to save pool state: %w", err)
	}

	return nil
}

func (r *PoolRepository) GetPosition(ctx context.Context, provider string) (*pool.Position, error) {
	query := `
		SELECT provider, shares, updated_at
		FROM liquidity_positions
		WHERE provider = $1
	`

	var p pool.Position
	err := r.querier.QueryRow(ctx, query, provider).Scan(&p.Provider, &p.Shares, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, pool.ErrPositionNotFound{Provider: provider}
		}
		r.logger.Error("Failed to get liquidity position", "provider", provider, "error", err)
		return nil, fmt.Errorf("failed to get liquidity position: %w", err)
	}

	return &p, nil
}

func (r *PoolRepository) SavePosition(ctx context.Context, p *pool.Position) error {
	query := `
		INSERT INTO liquidity_positions (provider, shares, updated_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (provider) DO UPDATE
		SET shares = EXCLUDED.shares, updated_at = EXCLUDED.updated_at
	`

	_, err := r.querier.Exec(ctx, query, p.Provider, p.Shares, p.UpdatedAt)
	if err != nil {
		r.logger.Error("Failed to save liquidity position", "provider", p.Provider, "error", err)
		return fmt.Errorf("failed to save liquidity position: %w", err)
	}

	return nil
}

func (r *PoolRepository) ListPositions(ctx context.Context) ([]*pool.Position, error) {
	query := `
		SELECT provider, shares, updated_at
		FROM liquidity_positions
		ORDER BY provider ASC
	`

	rows, err := r.querier.Query(ctx, query)
	if err != nil {
		r.logger.Error("Failed to list liquidity positions", "error", err)
		return nil, fmt.Errorf("failed to list liquidity positions: %w", err)
	}
	defer rows.Close()

	var positions []*pool.Position
	for rows.Next() {
		var p pool.Position
		if err := rows.Scan(&p.Provider, &p.Shares, &p.UpdatedAt); err != nil {
			r.logger.Error("Failed to scan liquidity position", "error", err)
			return nil, fmt.Errorf("failed to scan liquidity position: %w", err)
		}
		positions = append(positions, &p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating over liquidity positions: %w", err)
	}

	return positions, nil
}

func (r *PoolRepository) IsPaused(ctx context.Context) (bool, error) {
	query := `SELECT paused FROM vault_settings WHERE id = 1`

	var paused bool
	if err := r.querier.QueryRow(ctx, query).Scan(&paused); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, nil
		}
		r.logger.Error("Failed to read pause flag", "error", err)
		return false, fmt.Errorf("failed to read pause flag: %w", err)
	}

	return paused, nil
}

func (r *PoolRepository) SetPaused(ctx context.Context, paused bool) error {
	query := `
		INSERT INTO vault_settings (id, paused, updated_at)
		VALUES (1, $1, $2)
		ON CONFLICT (id) DO UPDATE
		SET paused = EXCLUDED.paused, updated_at = EXCLUDED.updated_at
	`

	if _, err := r.querier.Exec(ctx, query, paused, time.Now()); err != nil {
		r.logger.Error("Failed to write pause flag", "paused", paused, "error", err)
		return fmt.Errorf("failed to write pause flag: %w", err)
	}

	return nil
}
