package producers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/microcredit-pool-ledger/internal/domain/event"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockKafkaWriter mocks KafkaWriter interface
type MockKafkaWriter struct {
	mock.Mock
}

func (m *MockKafkaWriter) WriteMessages(ctx context.Context, msgs ...kafka.Message) error {
	args := m.Called(ctx, msgs)
	return args.Error(0)
}

func (m *MockKafkaWriter) Close() error {
	args := m.Called()
	return args.Error(0)
}

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}

func header(msg kafka.Message, key string) string {
	for _, h := range msg.Headers {
		if h.Key == key {
			return string(h.Value)
		}
	}
	return ""
}

func TestEventProducer_PublishEvent(t *testing.T) {
	ctx := context.Background()
	e := event.New(event.TypeLoanRepaid, "0xalice", time.Date(2025, 1, 8, 0, 0, 0, 0, time.UTC))
	e.LoanID = 1
	e.Principal = 5_000_000
	e.Interest = 9_589
	e.Amount = 5_009_589
	e.CorrelationID = "corr-1"

	t.Run("KeyedByAccountWithHeaders", func(t *testing.T) {
		mockWriter := new(MockKafkaWriter)
		producer := newEventProducer(newTestLogger(), mockWriter, "loan-events")

		mockWriter.On("WriteMessages", ctx, mock.MatchedBy(func(msgs []kafka.Message) bool {
			if len(msgs) != 1 {
				return false
			}
			msg := msgs[0]
			var decoded event.Event
			if err := json.Unmarshal(msg.Value, &decoded); err != nil {
				return false
			}
			return string(msg.Key) == "0xalice" &&
				header(msg, "event-id") == e.ID.String() &&
				header(msg, "event-type") == string(event.TypeLoanRepaid) &&
				header(msg, "correlation-id") == "corr-1" &&
				decoded.ID == e.ID &&
				decoded.Amount == 5_009_589
		})).Return(nil).Once()

		require.NoError(t, producer.PublishEvent(ctx, &e))
		mockWriter.AssertExpectations(t)
	})

	t.Run("NoCorrelationHeaderWhenEmpty", func(t *testing.T) {
		mockWriter := new(MockKafkaWriter)
		producer := newEventProducer(newTestLogger(), mockWriter, "loan-events")
		plain := event.New(event.TypePaused, "0xowner", time.Now())

		mockWriter.On("WriteMessages", ctx, mock.MatchedBy(func(msgs []kafka.Message) bool {
			return len(msgs) == 1 && len(msgs[0].Headers) == 2
		})).Return(nil).Once()

		require.NoError(t, producer.PublishEvent(ctx, &plain))
		mockWriter.AssertExpectations(t)
	})

	t.Run("WriterError", func(t *testing.T) {
		mockWriter := new(MockKafkaWriter)
		producer := newEventProducer(newTestLogger(), mockWriter, "loan-events")
		writerError := errors.New("broker unavailable")

		mockWriter.On("WriteMessages", ctx, mock.AnythingOfType("[]kafka.Message")).Return(writerError).Once()

		err := producer.PublishEvent(ctx, &e)
		assert.ErrorIs(t, err, writerError)
		mockWriter.AssertExpectations(t)
	})
}

func TestEventProducer_Close(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		mockWriter := new(MockKafkaWriter)
		producer := newEventProducer(newTestLogger(), mockWriter, "loan-events")
		mockWriter.On("Close").Return(nil).Once()

		require.NoError(t, producer.Close())
		mockWriter.AssertExpectations(t)
	})

	t.Run("WriterCloseError", func(t *testing.T) {
		mockWriter := new(MockKafkaWriter)
		producer := newEventProducer(newTestLogger(), mockWriter, "loan-events")
		closeError := errors.New("close failed")
		mockWriter.On("Close").Return(closeError).Once()

		assert.ErrorIs(t, producer.Close(), closeError)
		mockWriter.AssertExpectations(t)
	})
}

var _ KafkaWriter = (*MockKafkaWriter)(nil)
