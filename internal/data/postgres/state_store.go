package postgres

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/microcredit-pool-ledger/internal/domain/credit"
	"github.com/microcredit-pool-ledger/internal/domain/loan"
	"github.com/microcredit-pool-ledger/internal/domain/outbox"
	"github.com/microcredit-pool-ledger/internal/domain/pool"
	"github.com/microcredit-pool-ledger/internal/lending"
	"github.com/microcredit-pool-ledger/internal/platform/persistence"
)

type txQuerier interface {
	persistence.Querier
	persistence.TxBeginner
}

// StateStore persists ledger mutations and their events in one transaction
// and loads the ledger snapshot at startup.
type StateStore struct {
	db      persistence.TxBeginner
	loans   loan.Repository
	credits credit.Repository
	pools   pool.Repository
	outbox  outbox.Repository
	logger  *slog.Logger
}

var _ lending.Journal = (*StateStore)(nil)

func NewStateStore(logger *slog.Logger, db *persistence.PostgresDB) *StateStore {
	return newStateStore(logger, db.Pool())
}

func newStateStore(logger *slog.Logger, db txQuerier) *StateStore {
	return &StateStore{
		db:      db,
		loans:   &LoanRepository{querier: db, logger: logger},
		credits: &CreditRepository{querier: db, logger: logger},
		pools:   &PoolRepository{querier: db, logger: logger},
		outbox:  &OutboxRepository{querier: db, logger: logger},
		logger:  logger,
	}
}

// Commit writes every part of m and queues its events in the outbox.
func (s *StateStore) Commit(ctx context.Context, m lending.Mutation) error {
	return persistence.RunInTx(ctx, s.db, func(tx pgx.Tx) error {
		if m.Loan != nil {
			if err := s.loans.WithTx(tx).Save(ctx, m.Loan); err != nil {
				return err
			}
		}
		if m.Profile != nil {
			if err := s.credits.WithTx(tx).Save(ctx, m.Profile); err != nil {
				return err
			}
		}
		if m.Pool != nil {
			if err := s.pools.WithTx(tx).SaveState(ctx, m.Pool); err != nil {
				return err
			}
		}
		if m.Position != nil {
			if err := s.pools.WithTx(tx).SavePosition(ctx, m.Position); err != nil {
				return err
			}
		}
		if m.Paused != nil {
			if err := s.pools.WithTx(tx).SetPaused(ctx, *m.Paused); err != nil {
				return err
			}
		}

		outboxTx := s.outbox.WithTx(tx)
		for i := range m.Events {
			msg, err := outbox.NewMessage(&m.Events[i])
			if err != nil {
				return fmt.Errorf("failed to create outbox message: %w", err)
			}
			if err := outboxTx.Create(ctx, msg); err != nil {
				return err
			}
		}
		return nil
	})
}

// Load reads the full ledger state.
func (s *StateStore) Load(ctx context.Context) (lending.Snapshot, error) {
	loans, err := s.loans.ListAll(ctx)
	if err != nil {
		return lending.Snapshot{}, err
	}
	profiles, err := s.credits.ListAll(ctx)
	if err != nil {
		return lending.Snapshot{}, err
	}
	state, err := s.pools.GetState(ctx)
	if err != nil {
		return lending.Snapshot{}, err
	}
	positions, err := s.pools.ListPositions(ctx)
	if err != nil {
		return lending.Snapshot{}, err
	}
	paused, err := s.pools.IsPaused(ctx)
	if err != nil {
		return lending.Snapshot{}, err
	}

	s.logger.Info("Loaded ledger snapshot", "loans", len(loans), "profiles", len(profiles))

	return lending.Snapshot{
		Loans:     loans,
		Profiles:  profiles,
		Pool:      *state,
		Positions: positions,
		Paused:    paused,
	}, nil
}
