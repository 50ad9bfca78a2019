package outbox_poller

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/microcredit-pool-ledger/internal/config"
	"github.com/microcredit-pool-ledger/internal/domain/outbox"
	"github.com/microcredit-pool-ledger/internal/domain/shared"
	"github.com/microcredit-pool-ledger/internal/platform/metrics"
)

// Outcomes recorded on the outbox metric
const (
	OutcomePublished = "published"
	OutcomeRetry     = "retry"
	OutcomeFailed    = "failed"
	OutcomeDeferred  = "deferred"
)

const purgeInterval = time.Hour

// Poller drains pending outbox messages onto the events topic
type Poller struct {
	outboxRepo       outbox.Repository
	forwarder        EventForwarder
	metrics          *metrics.Metrics
	logger           *slog.Logger
	pollInterval     time.Duration
	batchSize        int
	maxRetryAttempts int
	retention        time.Duration
	now              func() time.Time
}

func NewPoller(
	cfg *config.OutboxConfig,
	outboxRepo outbox.Repository,
	forwarder EventForwarder,
	m *metrics.Metrics,
	logger *slog.Logger,
) *Poller {
	return &Poller{
		outboxRepo:       outboxRepo,
		forwarder:        forwarder,
		metrics:          m,
		logger:           logger,
		pollInterval:     cfg.PollingInterval,
		batchSize:        cfg.BatchSize,
		maxRetryAttempts: cfg.MaxRetryAttempts,
		retention:        cfg.Retention,
		now:              time.Now,
	}
}

// Start begins polling until context is canceled
func (p *Poller) Start(ctx context.Context) {
	p.logger.Info("Starting Outbox Poller",
		"poll_interval", p.pollInterval.String(),
		"batch_size", p.batchSize,
		"max_retry_attempts", p.maxRetryAttempts,
		"retention", p.retention.String(),
	)
	ticker := time.NewTicker(p.pollInterval)
	defer ticker.Stop()

	// A nil channel never fires, so purging is off when retention is zero.
	var purge <-chan time.Time
	if p.retention > 0 {
		purgeTicker := time.NewTicker(purgeInterval)
		defer purgeTicker.Stop()
		purge = purgeTicker.C
	}

	for {
		select {
		case <-ctx.Done():
			p.logger.Info("Outbox Poller stopping due to context cancellation.")
			return
		case <-ticker.C:
			if err := p.processPendingMessages(ctx); err != nil {
				p.logger.Error("Error during batch processing of pending outbox messages", "error", err)
			}
		case <-purge:
			if err := p.purgeProcessed(ctx); err != nil {
				p.logger.Error("Error purging processed outbox messages", "error", err)
			}
		}
	}
}

// purgeProcessed drops published messages older than the retention window.
func (p *Poller) purgeProcessed(ctx context.Context) error {
	if p.retention <= 0 {
		return nil
	}
	cutoff := p.now().Add(-p.retention)
	purged, err := p.outboxRepo.PurgeProcessed(ctx, cutoff)
	if err != nil {
		return fmt.Errorf("failed to purge outbox: %w", err)
	}
	if purged > 0 {
		p.logger.Info("Purged processed outbox messages", "count", purged, "cutoff", cutoff)
	}
	return nil
}

func (p *Poller) processPendingMessages(ctx context.Context) error {
	messages, err := p.outboxRepo.GetPending(ctx, p.batchSize)
	if err != nil {
		return fmt.Errorf("failed to get pending outbox messages: %w", err)
	}

	if len(messages) == 0 {
		return nil
	}

	p.logger.Debug("Fetched pending outbox messages", "count", len(messages))

	// Once an account's message fails, its later messages wait for the next
	// tick so the topic keeps each account's events in commit order.
	blocked := make(map[string]struct{})

	for _, msg := range messages {
		if _, ok := blocked[msg.Account]; ok {
			p.logger.Debug("Deferring outbox message behind a failed one",
				"outbox_id", msg.ID, "event_id", msg.EventID, "account", msg.Account,
			)
			p.metrics.RecordOutbox(OutcomeDeferred)
			continue
		}

		err := p.forwarder.Forward(ctx, msg)
		if err == nil {
			p.metrics.RecordOutbox(OutcomePublished)
			continue
		}

		var undecodable ErrUndecodablePayload
		if errors.As(err, &undecodable) {
			p.metrics.RecordOutbox(OutcomeFailed)
			continue
		}

		p.logger.Error("Failed to publish outbox message",
			"outbox_id", msg.ID, "event_id", msg.EventID, "current_attempts", msg.Attempts, "error", err,
		)
		blocked[msg.Account] = struct{}{}

		if errInc := p.outboxRepo.IncrementAttempts(ctx, msg.ID); errInc != nil {
			p.logger.Error("Failed to increment attempts for outbox message", "outbox_id", msg.ID, "error", errInc)
			continue
		}

		if msg.Attempts+1 >= p.maxRetryAttempts {
			p.logger.Warn("Max retry attempts reached for outbox message, marking as FAILED_TO_PUBLISH",
				"outbox_id", msg.ID, "event_id", msg.EventID, "attempts_made", msg.Attempts+1,
			)
			if errUpdate := p.outboxRepo.UpdateStatus(ctx, msg.ID, shared.OutboxStatusFailedToPublish); errUpdate != nil {
				p.logger.Error("Failed to update outbox status to FAILED_TO_PUBLISH after max retries", "outbox_id", msg.ID, "error", errUpdate)
			}
			p.metrics.RecordOutbox(OutcomeFailed)
			continue
		}
		p.metrics.RecordOutbox(OutcomeRetry)
	}
	return nil
}
