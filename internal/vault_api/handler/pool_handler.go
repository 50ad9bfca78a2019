package handler

import (
	"log/slog"

	"github.com/gin-gonic/gin"

	"github.com/microcredit-pool-ledger/internal/vault_api/middleware"
	"github.com/microcredit-pool-ledger/internal/vault_api/service"
)

// PoolHandler serves liquidity provider operations and the pool balance sheet
type PoolHandler struct {
	pool   service.PoolService
	logger *slog.Logger
}

func NewPoolHandler(logger *slog.Logger, pool service.PoolService) *PoolHandler {
	return &PoolHandler{
		pool:   pool,
		logger: logger,
	}
}

func (h *PoolHandler) Summary(c *gin.Context) {
	RespondOK(c, h.pool.Summary(c.Request.Context()))
}

func (h *PoolHandler) Position(c *gin.Context) {
	RespondOK(c, h.pool.Position(c.Request.Context(), c.Param("provider")))
}

// Deposit adds the caller's liquidity and mints shares
func (h *PoolHandler) Deposit(c *gin.Context) {
	var req AmountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("Invalid deposit request body", "error", err)
		RespondBadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	receipt, err := h.pool.Deposit(c.Request.Context(), middleware.GetCaller(c), req.Amount)
	if err != nil {
		RespondLedgerError(c, h.logger, err)
		return
	}
	RespondCreated(c, receipt)
}

// Withdraw burns the caller's shares for their current asset value
func (h *PoolHandler) Withdraw(c *gin.Context) {
	var req WithdrawRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("Invalid withdraw request body", "error", err)
		RespondBadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	receipt, err := h.pool.Withdraw(c.Request.Context(), middleware.GetCaller(c), req.Shares)
	if err != nil {
		RespondLedgerError(c, h.logger, err)
		return
	}
	RespondOK(c, receipt)
}
