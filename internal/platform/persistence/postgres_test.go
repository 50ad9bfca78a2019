package persistence

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/microcredit-pool-ledger/internal/config"
	"github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPostgresDB_Pool(t *testing.T) {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	var nilPool *pgxpool.Pool
	db := &PostgresDB{
		pool:   nilPool,
		logger: logger,
	}
	assert.Equal(t, nilPool, db.Pool(), "Pool() should return the initialized pool")
}

func TestPostgresPoolConfig(t *testing.T) {
	t.Run("AppliesPoolLimits", func(t *testing.T) {
		cfg := &config.PostgresConfig{
			URL:             "postgres://ledger:secret@db:5432/microcredit?sslmode=disable",
			MaxConns:        20,
			MinConns:        5,
			ConnMaxLifetime: time.Hour,
			ConnMaxIdleTime: 30 * time.Minute,
		}

		poolConfig, err := postgresPoolConfig(cfg)
		require.NoError(t, err)
		assert.Equal(t, int32(20), poolConfig.MaxConns)
		assert.Equal(t, int32(5), poolConfig.MinConns)
		assert.Equal(t, time.Hour, poolConfig.MaxConnLifetime)
		assert.Equal(t, 30*time.Minute, poolConfig.MaxConnIdleTime)
		assert.Equal(t, "microcredit", poolConfig.ConnConfig.Database)
		assert.Equal(t, "db", poolConfig.ConnConfig.Host)
	})

	t.Run("RejectsMalformedURL", func(t *testing.T) {
		_, err := postgresPoolConfig(&config.PostgresConfig{URL: "postgres://%zz", MaxConns: 1, MinConns: 1})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to parse PostgreSQL connection string")
	})

	t.Run("RejectsMinAboveMax", func(t *testing.T) {
		_, err := postgresPoolConfig(&config.PostgresConfig{
			URL:      "postgres://localhost:5432/microcredit",
			MaxConns: 2,
			MinConns: 5,
		})
		assert.EqualError(t, err, "POSTGRES_MIN_CONNS (5) exceeds POSTGRES_MAX_CONNS (2)")
	})
}

func TestPostgresDB_CloseWithoutPool(t *testing.T) {
	db := &PostgresDB{logger: slog.New(slog.NewJSONHandler(os.Stdout, nil))}
	assert.NotPanics(t, db.Close)
}

func TestRunInTx(t *testing.T) {
	ctx := context.Background()

	t.Run("CommitsOnSuccess", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		mock.ExpectBegin()
		mock.ExpectExec("UPDATE pool_state").WillReturnResult(pgxmock.NewResult("UPDATE", 1))
		mock.ExpectCommit()

		err = RunInTx(ctx, mock, func(tx pgx.Tx) error {
			_, err := tx.Exec(ctx, "UPDATE pool_state SET raw_liquidity = 0")
			return err
		})
		assert.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("RollsBackOnError", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		fnErr := errors.New("constraint violated")
		mock.ExpectBegin()
		mock.ExpectRollback()

		err = RunInTx(ctx, mock, func(tx pgx.Tx) error { return fnErr })
		assert.ErrorIs(t, err, fnErr)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("BeginFailure", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		mock.ExpectBegin().WillReturnError(errors.New("too many connections"))

		called := false
		err = RunInTx(ctx, mock, func(tx pgx.Tx) error { called = true; return nil })
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "failed to begin transaction")
		assert.False(t, called)
	})

	t.Run("RollsBackOnPanic", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		mock.ExpectBegin()
		mock.ExpectRollback()

		assert.Panics(t, func() {
			_ = RunInTx(ctx, mock, func(tx pgx.Tx) error { panic("boom") })
		})
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}
