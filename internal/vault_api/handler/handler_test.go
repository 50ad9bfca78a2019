package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/microcredit-pool-ledger/internal/config"
	"github.com/microcredit-pool-ledger/internal/domain/event"
	"github.com/microcredit-pool-ledger/internal/lending"
	"github.com/microcredit-pool-ledger/internal/platform/metrics"
	"github.com/microcredit-pool-ledger/internal/vault_api/middleware"
	"github.com/microcredit-pool-ledger/internal/vault_api/service"
)

const (
	usdt  = int64(1_000_000)
	day   = 24 * time.Hour
	owner = "0xowner"
)

type stepClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *stepClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *stepClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type MockAuditService struct {
	mock.Mock
}

func (m *MockAuditService) EventsByAccount(ctx context.Context, account string, page, perPage int) ([]*event.Event, int64, error) {
	args := m.Called(ctx, account, page, perPage)
	if args.Get(0) == nil {
		return nil, 0, args.Error(2)
	}
	return args.Get(0).([]*event.Event), args.Get(1).(int64), args.Error(2)
}

type testAPI struct {
	router *gin.Engine
	clock  *stepClock
	audit  *MockAuditService
	vault  *service.VaultService
}

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}

// newTestAPI wires every handler over a fresh ledger seeded with 100 USDT from 0xlp.
func newTestAPI(t *testing.T) *testAPI {
	t.Helper()
	gin.SetMode(gin.TestMode)
	logger := newTestLogger()

	clock := &stepClock{now: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)}
	ledger := lending.NewLedger(lending.DefaultConfig(), logger, lending.WithClock(clock))
	vault := service.NewVaultService(logger, ledger, lending.NewGate(ledger, owner), metrics.New(nil))
	_, err := vault.Deposit(context.Background(), "0xlp", 100*usdt)
	require.NoError(t, err)

	audit := new(MockAuditService)
	loans := NewLoanHandler(logger, vault)
	borrowers := NewBorrowerHandler(logger, vault.Borrowers(), audit)
	pool := NewPoolHandler(logger, vault)
	admin := NewAdminHandler(logger, vault)

	r := gin.New()
	r.Use(middleware.CorrelationID())
	v1 := r.Group("/api/v1", middleware.Auth(logger, config.AuthConfig{}))
	v1.POST("/loans", loans.Borrow)
	v1.POST("/loans/repay", loans.Repay)
	v1.POST("/loans/repay-defaulted", loans.RepayDefaulted)
	v1.GET("/loans", loans.List)
	v1.GET("/borrowers/:id", borrowers.Summary)
	v1.GET("/borrowers/:id/credit-limit", borrowers.CreditLimit)
	v1.GET("/borrowers/:id/loan", borrowers.Loan)
	v1.GET("/borrowers/:id/repayment-amount", borrowers.RepaymentAmount)
	v1.GET("/borrowers/:id/overdue", borrowers.Overdue)
	v1.GET("/borrowers/:id/events", borrowers.Events)
	v1.GET("/pool", pool.Summary)
	v1.GET("/pool/positions/:provider", pool.Position)
	v1.POST("/pool/deposits", pool.Deposit)
	v1.POST("/pool/withdrawals", pool.Withdraw)
	v1.PUT("/admin/borrowers/:id/credit-limit", admin.SetCreditLimit)
	v1.POST("/admin/borrowers/:id/default", admin.MarkAsDefaulted)
	v1.POST("/admin/pause", admin.Pause)
	v1.POST("/admin/unpause", admin.Unpause)
	v1.POST("/admin/rescue", admin.Rescue)

	return &testAPI{router: r, clock: clock, audit: audit, vault: vault}
}

func (a *testAPI) do(t *testing.T, method, path, caller string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		reader = bytes.NewBufferString(b)
	default:
		raw, err := json.Marshal(b)
		require.NoError(t, err)
		reader = bytes.NewBuffer(raw)
	}

	req, err := http.NewRequest(method, path, reader)
	require.NoError(t, err)
	if reader != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if caller != "" {
		req.Header.Set(middleware.AccountIDHeader, caller)
	}
	rr := httptest.NewRecorder()
	a.router.ServeHTTP(rr, req)
	return rr
}

// decode unmarshals the envelope and re-decodes its data field into out.
func decode(t *testing.T, rr *httptest.ResponseRecorder, out interface{}) Response {
	t.Helper()
	var resp Response
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	if out != nil {
		require.NotNil(t, resp.Data, "'data' field should not be nil")
		raw, err := json.Marshal(resp.Data)
		require.NoError(t, err)
		require.NoError(t, json.Unmarshal(raw, out))
	}
	return resp
}
