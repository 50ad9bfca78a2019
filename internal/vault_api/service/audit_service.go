package service

import (
	"context"
	"log/slog"

	"github.com/microcredit-pool-ledger/internal/domain/event"
)

// AuditServiceImpl implements the AuditService interface
type AuditServiceImpl struct {
	events event.Repository
	logger *slog.Logger
}

func NewAuditService(logger *slog.Logger, events event.Repository) AuditService {
	return &AuditServiceImpl{
		events: events,
		logger: logger,
	}
}

// EventsByAccount retrieves a page of audit events for an account.
// Page is 1-based; the total counts every event for the account.
func (s *AuditServiceImpl) EventsByAccount(ctx context.Context, account string, page, perPage int) ([]*event.Event, int64, error) {
	if page < 1 {
		page = 1
	}
	offset := (page - 1) * perPage

	events, err := s.events.GetByAccount(ctx, account, perPage, offset)
	if err != nil {
		s.logger.Error("Failed to get audit events",
			"account", account,
			"page", page,
			"per_page", perPage,
			"error", err,
		)
		return nil, 0, err
	}

	total, err := s.events.CountByAccount(ctx, account)
	if err != nil {
		s.logger.Error("Failed to count audit events",
			"account", account,
			"error", err,
		)
		return nil, 0, err
	}

	return events, total, nil
}
