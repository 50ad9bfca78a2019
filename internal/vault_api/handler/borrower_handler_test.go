package handler

import (
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/microcredit-pool-ledger/internal/domain/event"
	"github.com/microcredit-pool-ledger/internal/vault_api/service"
)

func TestBorrowerHandler_Views(t *testing.T) {
	api := newTestAPI(t)

	t.Run("NoLoansYet", func(t *testing.T) {
		rr := api.do(t, http.MethodGet, "/api/v1/borrowers/0xalice/loan", "0xalice", nil)
		assert.Equal(t, http.StatusNotFound, rr.Code)

		rr = api.do(t, http.MethodGet, "/api/v1/borrowers/0xalice/credit-limit", "0xalice", nil)
		assert.Equal(t, http.StatusOK, rr.Code)
		var limit struct {
			CreditLimit int64 `json:"credit_limit"`
		}
		decode(t, rr, &limit)
		assert.Equal(t, 5*usdt, limit.CreditLimit)
	})

	require.Equal(t, http.StatusCreated, api.do(t, http.MethodPost, "/api/v1/loans", "0xalice", AmountRequest{Amount: 5 * usdt}).Code)
	api.clock.Advance(7 * day)

	t.Run("RepaymentAmount", func(t *testing.T) {
		rr := api.do(t, http.MethodGet, "/api/v1/borrowers/0xalice/repayment-amount", "0xalice", nil)
		assert.Equal(t, http.StatusOK, rr.Code)
		var due struct {
			RepaymentAmount int64 `json:"repayment_amount"`
		}
		decode(t, rr, &due)
		assert.Equal(t, 5*usdt+9_589, due.RepaymentAmount)
	})

	t.Run("LatestLoan", func(t *testing.T) {
		rr := api.do(t, http.MethodGet, "/api/v1/borrowers/0xalice/loan", "0xbob", nil)
		assert.Equal(t, http.StatusOK, rr.Code)
		var l LoanResponse
		decode(t, rr, &l)
		assert.Equal(t, int64(1), l.ID)
		assert.True(t, l.IsActive)
	})

	t.Run("Overdue", func(t *testing.T) {
		var overdue struct {
			Overdue bool `json:"overdue"`
		}
		decode(t, api.do(t, http.MethodGet, "/api/v1/borrowers/0xalice/overdue", "0xalice", nil), &overdue)
		assert.False(t, overdue.Overdue)

		api.clock.Advance(90 * day)
		decode(t, api.do(t, http.MethodGet, "/api/v1/borrowers/0xalice/overdue", "0xalice", nil), &overdue)
		assert.True(t, overdue.Overdue)
	})

	t.Run("Summary", func(t *testing.T) {
		rr := api.do(t, http.MethodGet, "/api/v1/borrowers/0xalice", "0xalice", nil)
		assert.Equal(t, http.StatusOK, rr.Code)
		var summary service.BorrowerSummary
		decode(t, rr, &summary)
		assert.Equal(t, "0xalice", summary.Borrower)
		assert.Equal(t, int64(1), summary.LoanCount)
		assert.Zero(t, summary.CompletedLoans)
		assert.True(t, summary.Overdue)
		require.NotNil(t, summary.LatestLoan)
		assert.Greater(t, summary.RepaymentAmount, 5*usdt)
	})
}

func TestBorrowerHandler_Events(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		api := newTestAPI(t)
		events := []*event.Event{
			{Type: event.TypeLoanRepaid, Account: "0xalice", LoanID: 1, OccurredAt: time.Now().UTC()},
			{Type: event.TypeLoanIssued, Account: "0xalice", LoanID: 1, OccurredAt: time.Now().UTC()},
		}
		api.audit.On("EventsByAccount", mock.Anything, "0xalice", 2, 2).Return(events, int64(5), nil)

		rr := api.do(t, http.MethodGet, "/api/v1/borrowers/0xalice/events?page=2&per_page=2", "0xalice", nil)
		assert.Equal(t, http.StatusOK, rr.Code)

		var got []event.Event
		resp := decode(t, rr, &got)
		require.Len(t, got, 2)
		assert.Equal(t, event.TypeLoanRepaid, got[0].Type)
		require.NotNil(t, resp.Meta)
		assert.Equal(t, 2, resp.Meta.Page)
		assert.Equal(t, 3, resp.Meta.TotalPages)
		assert.Equal(t, 5, resp.Meta.TotalItems)
		api.audit.AssertExpectations(t)
	})

	t.Run("DefaultPagination", func(t *testing.T) {
		api := newTestAPI(t)
		api.audit.On("EventsByAccount", mock.Anything, "0xalice", 1, 20).Return([]*event.Event{}, int64(0), nil)

		rr := api.do(t, http.MethodGet, "/api/v1/borrowers/0xalice/events", "0xalice", nil)
		assert.Equal(t, http.StatusOK, rr.Code)
		api.audit.AssertExpectations(t)
	})

	t.Run("InvalidPagination", func(t *testing.T) {
		api := newTestAPI(t)

		rr := api.do(t, http.MethodGet, "/api/v1/borrowers/0xalice/events?per_page=1000", "0xalice", nil)
		assert.Equal(t, http.StatusBadRequest, rr.Code)
		api.audit.AssertNotCalled(t, "EventsByAccount", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("StoreError", func(t *testing.T) {
		api := newTestAPI(t)
		api.audit.On("EventsByAccount", mock.Anything, "0xalice", 1, 20).Return(nil, int64(0), errors.New("mongo down"))

		rr := api.do(t, http.MethodGet, "/api/v1/borrowers/0xalice/events", "0xalice", nil)
		assert.Equal(t, http.StatusInternalServerError, rr.Code)
		assert.Equal(t, "INTERNAL_SERVER_ERROR", decode(t, rr, nil).Error.Code)
	})
}
