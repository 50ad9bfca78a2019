package pool

import (
	"context"

	"github.com/jackc/pgx/v5"
)

// Repository defines pool persistence operations
type Repository interface {
	// GetState returns the singleton pool row, or a zero State if none was saved yet.
	GetState(ctx context.Context) (*State, error)
	SaveState(ctx context.Context, s *State) error
	GetPosition(ctx context.Context, provider string) (*Position, error)
	SavePosition(ctx context.Context, p *Position) error
	ListPositions(ctx context.Context) ([]*Position, error)
	IsPaused(ctx context.Context) (bool, error)
	SetPaused(ctx context.Context, paused bool) error
	WithTx(tx pgx.Tx) Repository
}

// ErrPositionNotFound indicates the provider never deposited
type ErrPositionNotFound struct {
	Provider string
}

func (e ErrPositionNotFound) Error() string {
	return "liquidity position not found: " + e.Provider
}
