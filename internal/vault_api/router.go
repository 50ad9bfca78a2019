package vault_api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/microcredit-pool-ledger/internal/config"
	"github.com/microcredit-pool-ledger/internal/platform/metrics"
	"github.com/microcredit-pool-ledger/internal/vault_api/handler"
	"github.com/microcredit-pool-ledger/internal/vault_api/middleware"
)

type handlers struct {
	loans     *handler.LoanHandler
	borrowers *handler.BorrowerHandler
	pool      *handler.PoolHandler
	admin     *handler.AdminHandler
}

// setupRouter configures API routes and middleware for the application
func setupRouter(
	logger *slog.Logger,
	r *gin.Engine,
	auth config.AuthConfig,
	m *metrics.Metrics,
	idempotency middleware.IdempotencyStore,
	h handlers,
) {
	r.Use(middleware.Recovery(logger))
	r.Use(middleware.CorrelationID())
	r.Use(middleware.Logger(logger))
	r.Use(middleware.Metrics(m))

	protected := []gin.HandlerFunc{middleware.Auth(logger, auth)}
	if idempotency != nil {
		protected = append(protected, middleware.Idempotency(logger, idempotency))
	}

	// API v1 endpoints
	v1 := r.Group("/api/v1", protected...)
	{
		loans := v1.Group("/loans")
		{
			loans.POST("", h.loans.Borrow)
			loans.POST("/repay", h.loans.Repay)
			loans.POST("/repay-defaulted", h.loans.RepayDefaulted)
			loans.GET("", h.loans.List)
		}

		borrowers := v1.Group("/borrowers")
		{
			borrowers.GET("/:id", h.borrowers.Summary)
			borrowers.GET("/:id/credit-limit", h.borrowers.CreditLimit)
			borrowers.GET("/:id/loan", h.borrowers.Loan)
			borrowers.GET("/:id/repayment-amount", h.borrowers.RepaymentAmount)
			borrowers.GET("/:id/overdue", h.borrowers.Overdue)
			borrowers.GET("/:id/events", h.borrowers.Events)
		}

		pool := v1.Group("/pool")
		{
			pool.GET("", h.pool.Summary)
			pool.GET("/positions/:provider", h.pool.Position)
			pool.POST("/deposits", h.pool.Deposit)
			pool.POST("/withdrawals", h.pool.Withdraw)
		}

		admin := v1.Group("/admin")
		{
			admin.PUT("/borrowers/:id/credit-limit", h.admin.SetCreditLimit)
			admin.POST("/borrowers/:id/default", h.admin.MarkAsDefaulted)
			admin.POST("/pause", h.admin.Pause)
			admin.POST("/unpause", h.admin.Unpause)
			admin.POST("/rescue", h.admin.Rescue)
		}
	}

	// Health check endpoint for monitoring
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "timestamp": time.Now().UTC()})
	})
	r.GET("/metrics", gin.WrapH(m.Handler()))
}
