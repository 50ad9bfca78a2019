package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/microcredit-pool-ledger/internal/domain/event"
	"github.com/microcredit-pool-ledger/internal/platform/metrics"
)

// Results recorded on the projection metric
const (
	ResultStored    = "stored"
	ResultDuplicate = "duplicate"
	ResultInvalid   = "invalid"
	ResultError     = "error"
)

type ProjectionServiceImpl struct {
	validator       EventValidator
	auditRepo       event.Repository
	failureRecorder FailureRecorder
	metrics         *metrics.Metrics
	logger          *slog.Logger
}

func NewProjectionService(
	validator EventValidator,
	auditRepo event.Repository,
	failureRecorder FailureRecorder,
	m *metrics.Metrics,
	logger *slog.Logger,
) ProjectionService {
	return &ProjectionServiceImpl{
		validator:       validator,
		auditRepo:       auditRepo,
		failureRecorder: failureRecorder,
		metrics:         m,
		logger:          logger,
	}
}

// ProjectEvent stores e once by event ID. Invalid events are handed to the
// failure recorder and acknowledged; storage errors are returned so the
// consumer leaves the offset uncommitted.
func (s *ProjectionServiceImpl) ProjectEvent(ctx context.Context, e *event.Event) error {
	logger := s.logger
	if e.CorrelationID != "" {
		logger = s.logger.With("correlation_id", e.CorrelationID)
	}

	if err := s.validator.Validate(ctx, e); err != nil {
		logger.Warn("Event validation failed", "event_id", e.ID, "type", e.Type, "error", err)
		s.metrics.RecordProjection(ResultInvalid)

		if recordErr := s.failureRecorder.RecordFailure(ctx, e, err.Error()); recordErr != nil {
			logger.Error("Failed to record invalid event", "event_id", e.ID, "error", recordErr)
			return fmt.Errorf("record invalid event %s: %w", e.ID, recordErr)
		}
		return nil
	}

	skip, err := s.validator.CheckIdempotency(ctx, e)
	if err != nil {
		s.metrics.RecordProjection(ResultError)
		return err
	}
	if skip {
		s.metrics.RecordProjection(ResultDuplicate)
		return nil
	}

	if err := s.auditRepo.Create(ctx, e); err != nil {
		if errors.Is(err, event.ErrDuplicateEvent{}) {
			logger.Info("Event already projected by a concurrent delivery", "event_id", e.ID)
			s.metrics.RecordProjection(ResultDuplicate)
			return nil
		}
		logger.Error("Failed to store event in audit trail", "event_id", e.ID, "error", err)
		s.metrics.RecordProjection(ResultError)
		return fmt.Errorf("store event %s: %w", e.ID, err)
	}

	s.metrics.RecordProjection(ResultStored)
	logger.Debug("Event projected", "event_id", e.ID, "type", e.Type, "account", e.Account)
	return nil
}
