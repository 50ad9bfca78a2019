package handler

import (
	"time"

	"github.com/microcredit-pool-ledger/internal/domain/loan"
)

// AmountRequest carries an amount in minor units (6 decimals)
type AmountRequest struct {
	Amount int64 `json:"amount"`
}

// WithdrawRequest redeems pool shares
type WithdrawRequest struct {
	Shares int64 `json:"shares"`
}

// RescueRequest pays raw liquidity out. An empty To pays the owner
type RescueRequest struct {
	To     string `json:"to"`
	Amount int64  `json:"amount"`
}

// LoanResponse represents a loan in API responses
type LoanResponse struct {
	ID           int64  `json:"id"`
	Borrower     string `json:"borrower"`
	Principal    int64  `json:"principal"`
	Status       string `json:"status"`
	IsActive     bool   `json:"is_active"`
	InterestPaid int64  `json:"interest_paid"`
	OriginatedAt string `json:"originated_at"`
	DefaultedAt  string `json:"defaulted_at,omitempty"`
	ClosedAt     string `json:"closed_at,omitempty"`
}

// LoanListResponse represents a list of loans
type LoanListResponse struct {
	Loans []LoanResponse `json:"loans"`
	Total int            `json:"total"`
}

// PaginationParams represents pagination parameters for list endpoints
type PaginationParams struct {
	Page    int `form:"page,default=1" binding:"min=1"`
	PerPage int `form:"per_page,default=20" binding:"min=1,max=100"`
}

// LoanFilter selects loans by status
type LoanFilter struct {
	Status string `form:"status" binding:"omitempty,oneof=ACTIVE REPAID DEFAULTED DEFAULT_RECOVERED"`
}

func mapLoanToResponse(l loan.Loan) LoanResponse {
	resp := LoanResponse{
		ID:           l.ID,
		Borrower:     l.Borrower,
		Principal:    l.Principal,
		Status:       string(l.Status),
		IsActive:     l.IsActive(),
		InterestPaid: l.InterestPaid,
		OriginatedAt: l.OriginatedAt.Format(time.RFC3339),
	}
	if l.DefaultedAt != nil {
		resp.DefaultedAt = l.DefaultedAt.Format(time.RFC3339)
	}
	if l.ClosedAt != nil {
		resp.ClosedAt = l.ClosedAt.Format(time.RFC3339)
	}
	return resp
}

func mapLoansToResponse(loans []loan.Loan) LoanListResponse {
	out := make([]LoanResponse, 0, len(loans))
	for _, l := range loans {
		out = append(out, mapLoanToResponse(l))
	}
	return LoanListResponse{Loans: out, Total: len(out)}
}
