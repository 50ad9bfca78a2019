package components

import (
	"log/slog"

	"github.com/microcredit-pool-ledger/internal/config"
	"github.com/microcredit-pool-ledger/internal/domain/event"
	"github.com/microcredit-pool-ledger/internal/event_relay/service"
	"github.com/microcredit-pool-ledger/internal/platform/messaging/producers"
	"github.com/microcredit-pool-ledger/internal/platform/metrics"
)

// CreateProjectionService wires the validator, the DLQ recorder and the audit
// store behind the ants worker pool. It falls back to the unpooled service if
// the pool cannot be built.
func CreateProjectionService(
	auditRepo event.Repository,
	dlq producers.DeadLetterPublisher,
	m *metrics.Metrics,
	logger *slog.Logger,
	cfg *config.Config,
) service.ProjectionService {
	validator := NewEventValidator(auditRepo, logger)
	failureRecorder := NewFailureRecorder(dlq, logger)

	baseService := service.NewProjectionService(
		validator,
		auditRepo,
		failureRecorder,
		m,
		logger,
	)

	workerPoolService, err := service.NewWorkerPoolProjectionService(
		baseService,
		service.WorkerPoolConfig{
			Size: cfg.WorkerPool.Size,
		},
		logger.With("component", "worker_pool"),
	)
	if err != nil {
		logger.Error("Failed to create worker pool service, falling back to base service", "error", err)
		return baseService
	}

	logger.Info("Created worker pool projection service", "pool_size", cfg.WorkerPool.Size)
	return workerPoolService
}
