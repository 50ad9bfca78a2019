package handler

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/microcredit-pool-ledger/internal/lending"
)

func TestLoanHandler_Borrow(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		api := newTestAPI(t)

		rr := api.do(t, http.MethodPost, "/api/v1/loans", "0xalice", AmountRequest{Amount: 5 * usdt})
		assert.Equal(t, http.StatusCreated, rr.Code)

		var body LoanResponse
		resp := decode(t, rr, &body)
		assert.NotEmpty(t, resp.CorrelationID)
		assert.Equal(t, int64(1), body.ID)
		assert.Equal(t, "0xalice", body.Borrower)
		assert.Equal(t, 5*usdt, body.Principal)
		assert.Equal(t, "ACTIVE", body.Status)
		assert.True(t, body.IsActive)
	})

	t.Run("InvalidRequestBody", func(t *testing.T) {
		api := newTestAPI(t)

		rr := api.do(t, http.MethodPost, "/api/v1/loans", "0xalice", `{"invalid`)
		assert.Equal(t, http.StatusBadRequest, rr.Code)
		resp := decode(t, rr, nil)
		require.NotNil(t, resp.Error)
		assert.Equal(t, "BAD_REQUEST", resp.Error.Code)
	})

	t.Run("OverLimitIsUnprocessable", func(t *testing.T) {
		api := newTestAPI(t)

		rr := api.do(t, http.MethodPost, "/api/v1/loans", "0xalice", AmountRequest{Amount: 6 * usdt})
		assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)
		resp := decode(t, rr, nil)
		require.NotNil(t, resp.Error)
		assert.Equal(t, "CREDIT_LIMIT_EXCEEDED", resp.Error.Code)
		assert.Equal(t, "POLICY_VIOLATION", resp.Error.Kind)
	})

	t.Run("ZeroAmountIsBadRequest", func(t *testing.T) {
		api := newTestAPI(t)

		rr := api.do(t, http.MethodPost, "/api/v1/loans", "0xalice", AmountRequest{})
		assert.Equal(t, http.StatusBadRequest, rr.Code)
		resp := decode(t, rr, nil)
		assert.Equal(t, "INVALID_AMOUNT", resp.Error.Code)
	})

	t.Run("MissingCaller", func(t *testing.T) {
		api := newTestAPI(t)

		rr := api.do(t, http.MethodPost, "/api/v1/loans", "", AmountRequest{Amount: usdt})
		assert.Equal(t, http.StatusUnauthorized, rr.Code)
	})
}

func TestLoanHandler_Repay(t *testing.T) {
	t.Run("AfterMinimumDuration", func(t *testing.T) {
		api := newTestAPI(t)
		require.Equal(t, http.StatusCreated, api.do(t, http.MethodPost, "/api/v1/loans", "0xalice", AmountRequest{Amount: 5 * usdt}).Code)

		api.clock.Advance(7 * day)
		rr := api.do(t, http.MethodPost, "/api/v1/loans/repay", "0xalice", nil)
		assert.Equal(t, http.StatusOK, rr.Code)

		var receipt lending.Receipt
		decode(t, rr, &receipt)
		assert.Equal(t, int64(9_589), receipt.Interest)
		assert.Equal(t, 5*usdt+9_589, receipt.Total)
		assert.Equal(t, 6*usdt, receipt.NewLimit)
	})

	t.Run("TooEarly", func(t *testing.T) {
		api := newTestAPI(t)
		require.Equal(t, http.StatusCreated, api.do(t, http.MethodPost, "/api/v1/loans", "0xalice", AmountRequest{Amount: 5 * usdt}).Code)

		api.clock.Advance(6 * day)
		rr := api.do(t, http.MethodPost, "/api/v1/loans/repay", "0xalice", nil)
		assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)
		assert.Equal(t, "TOO_EARLY_TO_REPAY", decode(t, rr, nil).Error.Code)
	})

	t.Run("NoActiveLoanIsConflict", func(t *testing.T) {
		api := newTestAPI(t)

		rr := api.do(t, http.MethodPost, "/api/v1/loans/repay", "0xalice", nil)
		assert.Equal(t, http.StatusConflict, rr.Code)
		assert.Equal(t, "NO_ACTIVE_LOAN", decode(t, rr, nil).Error.Code)
	})
}

func TestLoanHandler_RepayDefaulted(t *testing.T) {
	api := newTestAPI(t)
	require.Equal(t, http.StatusCreated, api.do(t, http.MethodPost, "/api/v1/loans", "0xbob", AmountRequest{Amount: 5 * usdt}).Code)

	rr := api.do(t, http.MethodPost, "/api/v1/loans/repay-defaulted", "0xbob", nil)
	assert.Equal(t, http.StatusConflict, rr.Code)
	assert.Equal(t, "NO_DEFAULTED_LOAN", decode(t, rr, nil).Error.Code)

	api.clock.Advance(100 * day)
	require.Equal(t, http.StatusOK, api.do(t, http.MethodPost, "/api/v1/admin/borrowers/0xbob/default", owner, nil).Code)

	rr = api.do(t, http.MethodPost, "/api/v1/loans/repay-defaulted", "0xbob", nil)
	assert.Equal(t, http.StatusOK, rr.Code)

	var receipt lending.Receipt
	decode(t, rr, &receipt)
	assert.Equal(t, int64(1), receipt.LoanID)
	assert.Equal(t, 5*usdt, receipt.Principal)
	assert.Positive(t, receipt.Interest)
}

func TestLoanHandler_List(t *testing.T) {
	api := newTestAPI(t)
	require.Equal(t, http.StatusCreated, api.do(t, http.MethodPost, "/api/v1/loans", "0xalice", AmountRequest{Amount: 2 * usdt}).Code)
	require.Equal(t, http.StatusCreated, api.do(t, http.MethodPost, "/api/v1/loans", "0xbob", AmountRequest{Amount: 3 * usdt}).Code)
	api.clock.Advance(10 * day)
	require.Equal(t, http.StatusOK, api.do(t, http.MethodPost, "/api/v1/admin/borrowers/0xbob/default", owner, nil).Code)

	t.Run("All", func(t *testing.T) {
		rr := api.do(t, http.MethodGet, "/api/v1/loans", "0xalice", nil)
		assert.Equal(t, http.StatusOK, rr.Code)

		var list LoanListResponse
		decode(t, rr, &list)
		require.Equal(t, 2, list.Total)
		assert.Equal(t, int64(1), list.Loans[0].ID)
		assert.Equal(t, int64(2), list.Loans[1].ID)
	})

	t.Run("Defaulted", func(t *testing.T) {
		rr := api.do(t, http.MethodGet, "/api/v1/loans?status=DEFAULTED", "0xalice", nil)
		assert.Equal(t, http.StatusOK, rr.Code)

		var list LoanListResponse
		decode(t, rr, &list)
		require.Equal(t, 1, list.Total)
		assert.Equal(t, "0xbob", list.Loans[0].Borrower)
		assert.NotEmpty(t, list.Loans[0].DefaultedAt)
	})

	t.Run("UnknownStatus", func(t *testing.T) {
		rr := api.do(t, http.MethodGet, "/api/v1/loans?status=LOST", "0xalice", nil)
		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})
}
