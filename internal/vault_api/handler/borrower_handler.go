package handler

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/microcredit-pool-ledger/internal/vault_api/service"
)

// BorrowerHandler serves read-only borrower views and the borrower's audit trail
type BorrowerHandler struct {
	borrowers service.BorrowerService
	audit     service.AuditService
	logger    *slog.Logger
}

func NewBorrowerHandler(logger *slog.Logger, borrowers service.BorrowerService, audit service.AuditService) *BorrowerHandler {
	return &BorrowerHandler{
		borrowers: borrowers,
		audit:     audit,
		logger:    logger,
	}
}

func (h *BorrowerHandler) Summary(c *gin.Context) {
	RespondOK(c, h.borrowers.Summary(c.Request.Context(), c.Param("id")))
}

func (h *BorrowerHandler) CreditLimit(c *gin.Context) {
	id := c.Param("id")
	RespondOK(c, gin.H{
		"borrower":     id,
		"credit_limit": h.borrowers.CreditLimit(c.Request.Context(), id),
	})
}

// Loan returns the borrower's most recent loan in any status
func (h *BorrowerHandler) Loan(c *gin.Context) {
	l, ok := h.borrowers.LatestLoan(c.Request.Context(), c.Param("id"))
	if !ok {
		RespondNotFound(c, "Borrower has no loans")
		return
	}
	RespondOK(c, mapLoanToResponse(l))
}

// RepaymentAmount is zero when the borrower has no active loan
func (h *BorrowerHandler) RepaymentAmount(c *gin.Context) {
	id := c.Param("id")
	RespondOK(c, gin.H{
		"borrower":         id,
		"repayment_amount": h.borrowers.RepaymentAmount(c.Request.Context(), id),
	})
}

func (h *BorrowerHandler) Overdue(c *gin.Context) {
	id := c.Param("id")
	RespondOK(c, gin.H{
		"borrower": id,
		"overdue":  h.borrowers.IsLoanOverdue(c.Request.Context(), id),
	})
}

// Events pages through the borrower's projected event trail, newest first
func (h *BorrowerHandler) Events(c *gin.Context) {
	var params PaginationParams
	if err := c.ShouldBindQuery(&params); err != nil {
		RespondBadRequest(c, "Invalid pagination parameters: "+err.Error())
		return
	}

	id := c.Param("id")
	events, total, err := h.audit.EventsByAccount(c.Request.Context(), id, params.Page, params.PerPage)
	if err != nil {
		h.logger.Error("Failed to read audit trail", "borrower", id, "error", err)
		RespondInternalError(c)
		return
	}

	RespondWithPaginatedData(c, http.StatusOK, events, params.Page, params.PerPage, int(total))
}
