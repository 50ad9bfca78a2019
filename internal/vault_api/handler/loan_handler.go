package handler

import (
	"log/slog"

	"github.com/gin-gonic/gin"

	"github.com/microcredit-pool-ledger/internal/domain/loan"
	"github.com/microcredit-pool-ledger/internal/vault_api/middleware"
	"github.com/microcredit-pool-ledger/internal/vault_api/service"
)

// LoanHandler handles borrower loan requests. The borrower is always the authenticated caller
type LoanHandler struct {
	loanService service.LoanService
	logger      *slog.Logger
}

func NewLoanHandler(logger *slog.Logger, loanService service.LoanService) *LoanHandler {
	return &LoanHandler{
		loanService: loanService,
		logger:      logger,
	}
}

// Borrow opens a loan for the caller
func (h *LoanHandler) Borrow(c *gin.Context) {
	var req AmountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("Invalid borrow request body", "error", err)
		RespondBadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	l, err := h.loanService.Borrow(c.Request.Context(), middleware.GetCaller(c), req.Amount)
	if err != nil {
		RespondLedgerError(c, h.logger, err)
		return
	}

	RespondCreated(c, mapLoanToResponse(l))
}

// Repay settles the caller's active loan
func (h *LoanHandler) Repay(c *gin.Context) {
	receipt, err := h.loanService.Repay(c.Request.Context(), middleware.GetCaller(c))
	if err != nil {
		RespondLedgerError(c, h.logger, err)
		return
	}
	RespondOK(c, receipt)
}

// RepayDefaulted recovers the caller's oldest defaulted loan
func (h *LoanHandler) RepayDefaulted(c *gin.Context) {
	receipt, err := h.loanService.RepayDefaulted(c.Request.Context(), middleware.GetCaller(c))
	if err != nil {
		RespondLedgerError(c, h.logger, err)
		return
	}
	RespondOK(c, receipt)
}

// List returns every loan, optionally filtered by ?status=
func (h *LoanHandler) List(c *gin.Context) {
	var filter LoanFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		RespondBadRequest(c, "Invalid status filter")
		return
	}

	loans := h.loanService.Loans(c.Request.Context(), loan.Status(filter.Status))
	RespondOK(c, mapLoansToResponse(loans))
}
