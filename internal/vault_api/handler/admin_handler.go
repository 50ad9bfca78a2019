package handler

import (
	"log/slog"

	"github.com/gin-gonic/gin"

	"github.com/microcredit-pool-ledger/internal/vault_api/middleware"
	"github.com/microcredit-pool-ledger/internal/vault_api/service"
)

// AdminHandler exposes owner-only operations. Ownership is checked by the service
type AdminHandler struct {
	admin  service.AdminService
	logger *slog.Logger
}

func NewAdminHandler(logger *slog.Logger, admin service.AdminService) *AdminHandler {
	return &AdminHandler{
		admin:  admin,
		logger: logger,
	}
}

func (h *AdminHandler) SetCreditLimit(c *gin.Context) {
	var req AmountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondBadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	profile, err := h.admin.SetCreditLimit(c.Request.Context(), middleware.GetCaller(c), c.Param("id"), req.Amount)
	if err != nil {
		RespondLedgerError(c, h.logger, err)
		return
	}
	RespondOK(c, profile)
}

func (h *AdminHandler) MarkAsDefaulted(c *gin.Context) {
	l, err := h.admin.MarkAsDefaulted(c.Request.Context(), middleware.GetCaller(c), c.Param("id"))
	if err != nil {
		RespondLedgerError(c, h.logger, err)
		return
	}
	RespondOK(c, mapLoanToResponse(l))
}

func (h *AdminHandler) Pause(c *gin.Context) {
	if err := h.admin.Pause(c.Request.Context(), middleware.GetCaller(c)); err != nil {
		RespondLedgerError(c, h.logger, err)
		return
	}
	RespondOK(c, gin.H{"paused": true})
}

func (h *AdminHandler) Unpause(c *gin.Context) {
	if err := h.admin.Unpause(c.Request.Context(), middleware.GetCaller(c)); err != nil {
		RespondLedgerError(c, h.logger, err)
		return
	}
	RespondOK(c, gin.H{"paused": false})
}

// Rescue pays raw liquidity to the given account, or to the owner when To is empty
func (h *AdminHandler) Rescue(c *gin.Context) {
	var req RescueRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondBadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	caller := middleware.GetCaller(c)
	to := req.To
	if to == "" {
		to = caller
	}
	if err := h.admin.RescueFunds(c.Request.Context(), caller, to, req.Amount); err != nil {
		RespondLedgerError(c, h.logger, err)
		return
	}
	RespondOK(c, gin.H{"to": to, "amount": req.Amount})
}
