package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/microcredit-pool-ledger/internal/domain/event"
	"github.com/microcredit-pool-ledger/internal/platform/metrics"
)

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}

func sampleEvent() *event.Event {
	e := event.New(event.TypeLoanRepaid, "0xalice", time.Date(2025, 1, 8, 0, 0, 0, 0, time.UTC))
	e.LoanID = 1
	e.Principal = 5_000_000
	e.Interest = 9_589
	e.Amount = 5_009_589
	e.CorrelationID = "corr-1"
	return &e
}

func TestProjectionService_ProjectEvent(t *testing.T) {
	ctx := context.Background()
	e := sampleEvent()

	tests := []struct {
		name          string
		setupMocks    func(v *MockEventValidator, repo *MockEventRepository, rec *MockFailureRecorder)
		expectedError string
		result        string
	}{
		{
			name: "stores a new event",
			setupMocks: func(v *MockEventValidator, repo *MockEventRepository, rec *MockFailureRecorder) {
				v.On("Validate", mock.Anything, e).Return(nil).Once()
				v.On("CheckIdempotency", mock.Anything, e).Return(false, nil).Once()
				repo.On("Create", mock.Anything, e).Return(nil).Once()
			},
			result: ResultStored,
		},
		{
			name: "skips an already projected event",
			setupMocks: func(v *MockEventValidator, repo *MockEventRepository, rec *MockFailureRecorder) {
				v.On("Validate", mock.Anything, e).Return(nil).Once()
				v.On("CheckIdempotency", mock.Anything, e).Return(true, nil).Once()
			},
			result: ResultDuplicate,
		},
		{
			name: "duplicate key on insert counts as projected",
			setupMocks: func(v *MockEventValidator, repo *MockEventRepository, rec *MockFailureRecorder) {
				v.On("Validate", mock.Anything, e).Return(nil).Once()
				v.On("CheckIdempotency", mock.Anything, e).Return(false, nil).Once()
				repo.On("Create", mock.Anything, e).Return(event.ErrDuplicateEvent{ID: e.ID}).Once()
			},
			result: ResultDuplicate,
		},
		{
			name: "invalid event is parked and acknowledged",
			setupMocks: func(v *MockEventValidator, repo *MockEventRepository, rec *MockFailureRecorder) {
				v.On("Validate", mock.Anything, e).Return(errors.New("unknown event type")).Once()
				rec.On("RecordFailure", mock.Anything, e, "unknown event type").Return(nil).Once()
			},
			result: ResultInvalid,
		},
		{
			name: "failure recorder error is returned",
			setupMocks: func(v *MockEventValidator, repo *MockEventRepository, rec *MockFailureRecorder) {
				v.On("Validate", mock.Anything, e).Return(errors.New("unknown event type")).Once()
				rec.On("RecordFailure", mock.Anything, e, "unknown event type").Return(errors.New("dlq down")).Once()
			},
			expectedError: "dlq down",
			result:        ResultInvalid,
		},
		{
			name: "idempotency lookup error is returned",
			setupMocks: func(v *MockEventValidator, repo *MockEventRepository, rec *MockFailureRecorder) {
				v.On("Validate", mock.Anything, e).Return(nil).Once()
				v.On("CheckIdempotency", mock.Anything, e).Return(false, errors.New("mongo down")).Once()
			},
			expectedError: "mongo down",
			result:        ResultError,
		},
		{
			name: "store error is returned",
			setupMocks: func(v *MockEventValidator, repo *MockEventRepository, rec *MockFailureRecorder) {
				v.On("Validate", mock.Anything, e).Return(nil).Once()
				v.On("CheckIdempotency", mock.Anything, e).Return(false, nil).Once()
				repo.On("Create", mock.Anything, e).Return(errors.New("write concern")).Once()
			},
			expectedError: "write concern",
			result:        ResultError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			validator := &MockEventValidator{}
			repo := &MockEventRepository{}
			recorder := &MockFailureRecorder{}
			m := metrics.New(nil)
			svc := NewProjectionService(validator, repo, recorder, m, newTestLogger())

			tt.setupMocks(validator, repo, recorder)

			err := svc.ProjectEvent(ctx, e)
			if tt.expectedError != "" {
				assert.Error(t, err)
				assert.Contains(t, err.Error(), tt.expectedError)
			} else {
				assert.NoError(t, err)
			}
			assert.Equal(t, 1.0, testutil.ToFloat64(m.ProjectionCounter(tt.result)))

			validator.AssertExpectations(t)
			repo.AssertExpectations(t)
			recorder.AssertExpectations(t)
		})
	}
}
