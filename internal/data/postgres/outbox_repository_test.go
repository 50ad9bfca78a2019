package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/microcredit-pool-ledger/internal/domain/event"
	"github.com/microcredit-pool-ledger/internal/domain/outbox"
	"github.com/microcredit-pool-ledger/internal/domain/shared"
	"github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var outboxColumns = []string{"id", "event_id", "event_type", "account", "payload", "status", "attempts", "created_at", "last_attempt_at"}

func TestOutboxRepository_WithTx(t *testing.T) {
	repo := &OutboxRepository{querier: nil, logger: newTestLogger()}

	mockTx := pgx.Tx(nil)
	txRepo := repo.WithTx(mockTx)

	outboxRepo, ok := txRepo.(*OutboxRepository)
	require.True(t, ok)
	assert.Equal(t, mockTx, outboxRepo.querier)
}

func TestOutboxRepository_Create(t *testing.T) {
	ctx := context.Background()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := &OutboxRepository{querier: mock, logger: newTestLogger()}

	e := event.New(event.TypeLoanIssued, "0xalice", time.Now())
	msg, err := outbox.NewMessage(&e)
	require.NoError(t, err)

	query := `
		INSERT INTO event_outbox \(event_id, event_type, account, payload, status, attempts, created_at\)
		VALUES \(\$1, \$2, \$3, \$4, \$5, \$6, \$7\)
		RETURNING id
	`

	t.Run("success", func(t *testing.T) {
		mock.ExpectQuery(query).
			WithArgs(msg.EventID, msg.EventType, msg.Account, msg.Payload, msg.Status, msg.Attempts, msg.CreatedAt).
			WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow(int64(42)))

		err := repo.Create(ctx, msg)
		assert.NoError(t, err)
		assert.Equal(t, int64(42), msg.ID)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("failure", func(t *testing.T) {
		expectedErr := errors.New("db error")
		mock.ExpectQuery(query).
			WithArgs(msg.EventID, msg.EventType, msg.Account, msg.Payload, msg.Status, msg.Attempts, msg.CreatedAt).
			WillReturnError(expectedErr)

		err := repo.Create(ctx, msg)
		assert.ErrorIs(t, err, expectedErr)
		assert.Contains(t, err.Error(), "failed to create outbox message")
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("event already queued", func(t *testing.T) {
		mock.ExpectQuery(query).
			WithArgs(msg.EventID, msg.EventType, msg.Account, msg.Payload, msg.Status, msg.Attempts, msg.CreatedAt).
			WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: "event_outbox_event_id_key"})

		err := repo.Create(ctx, msg)
		var duplicate outbox.ErrDuplicateMessage
		require.ErrorAs(t, err, &duplicate)
		assert.Equal(t, msg.EventID, duplicate.EventID)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestOutboxRepository_GetPending(t *testing.T) {
	ctx := context.Background()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := &OutboxRepository{querier: mock, logger: newTestLogger()}
	now := time.Now()
	eventID := uuid.New()
	payload := json.RawMessage(`{"type":"LOAN_REPAID"}`)

	query := `
		SELECT id, event_id, event_type, account, payload, status, attempts, created_at, last_attempt_at
		FROM event_outbox
		WHERE status = \$1
		ORDER BY id ASC
		LIMIT \$2
	`

	t.Run("success", func(t *testing.T) {
		rows := pgxmock.NewRows(outboxColumns).
			AddRow(int64(1), eventID, event.TypeLoanRepaid, "0xalice", payload, shared.OutboxStatusPending, 0, now, nil)
		mock.ExpectQuery(query).WithArgs(shared.OutboxStatusPending, 10).WillReturnRows(rows)

		messages, err := repo.GetPending(ctx, 10)
		require.NoError(t, err)
		require.Len(t, messages, 1)
		assert.Equal(t, eventID, messages[0].EventID)
		assert.Equal(t, event.TypeLoanRepaid, messages[0].EventType)
		assert.Nil(t, messages[0].LastAttemptAt)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("query failure", func(t *testing.T) {
		mock.ExpectQuery(query).WithArgs(shared.OutboxStatusPending, 10).WillReturnError(errors.New("timeout"))

		messages, err := repo.GetPending(ctx, 10)
		assert.Error(t, err)
		assert.Nil(t, messages)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestOutboxRepository_UpdateStatus(t *testing.T) {
	ctx := context.Background()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := &OutboxRepository{querier: mock, logger: newTestLogger()}

	query := `
		UPDATE event_outbox
		SET status = \$1, last_attempt_at = \$2
		WHERE id = \$3
	`

	t.Run("success", func(t *testing.T) {
		mock.ExpectExec(query).
			WithArgs(shared.OutboxStatusProcessed, pgxmock.AnyArg(), int64(1)).
			WillReturnResult(pgxmock.NewResult("UPDATE", 1))

		assert.NoError(t, repo.UpdateStatus(ctx, 1, shared.OutboxStatusProcessed))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("not found", func(t *testing.T) {
		mock.ExpectExec(query).
			WithArgs(shared.OutboxStatusProcessed, pgxmock.AnyArg(), int64(9)).
			WillReturnResult(pgxmock.NewResult("UPDATE", 0))

		err := repo.UpdateStatus(ctx, 9, shared.OutboxStatusProcessed)
		var notFound outbox.ErrMessageNotFound
		require.ErrorAs(t, err, &notFound)
		assert.Equal(t, int64(9), notFound.ID)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestOutboxRepository_IncrementAttempts(t *testing.T) {
	ctx := context.Background()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := &OutboxRepository{querier: mock, logger: newTestLogger()}

	query := `
		UPDATE event_outbox
		SET attempts = attempts \+ 1, last_attempt_at = \$1
		WHERE id = \$2
	`

	mock.ExpectExec(query).
		WithArgs(pgxmock.AnyArg(), int64(3)).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	assert.NoError(t, repo.IncrementAttempts(ctx, 3))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestOutboxRepository_PurgeProcessed(t *testing.T) {
	ctx := context.Background()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := &OutboxRepository{querier: mock, logger: newTestLogger()}
	cutoff := time.Date(2026, 1, 10, 0, 0, 0, 0, time.UTC)

	query := `
		DELETE FROM event_outbox
		WHERE status = \$1 AND last_attempt_at < \$2
	`

	t.Run("success", func(t *testing.T) {
		mock.ExpectExec(query).
			WithArgs(shared.OutboxStatusProcessed, cutoff).
			WillReturnResult(pgxmock.NewResult("DELETE", 12))

		purged, err := repo.PurgeProcessed(ctx, cutoff)
		require.NoError(t, err)
		assert.Equal(t, int64(12), purged)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("failure", func(t *testing.T) {
		mock.ExpectExec(query).
			WithArgs(shared.OutboxStatusProcessed, cutoff).
			WillReturnError(errors.New("lock timeout"))

		purged, err := repo.PurgeProcessed(ctx, cutoff)
		assert.Zero(t, purged)
		assert.ErrorContains(t, err, "failed to purge processed outbox messages")
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}
