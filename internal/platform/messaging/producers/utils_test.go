package producers

import (
	"errors"
	"testing"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

type MockTopicAdmin struct {
	mock.Mock
}

func (m *MockTopicAdmin) ReadPartitions(topics ...string) ([]kafka.Partition, error) {
	args := m.Called(topics)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]kafka.Partition), args.Error(1)
}

func (m *MockTopicAdmin) CreateTopics(topics ...kafka.TopicConfig) error {
	args := m.Called(topics)
	return args.Error(0)
}

func TestEnsureTopic(t *testing.T) {
	t.Run("Exists", func(t *testing.T) {
		admin := new(MockTopicAdmin)
		admin.On("ReadPartitions", []string{"loan-events"}).Return([]kafka.Partition{{ID: 0}}, nil).Once()

		assert.NoError(t, ensureTopic(admin, "loan-events", 3, 1, newTestLogger(), 0))
		admin.AssertExpectations(t)
		admin.AssertNotCalled(t, "CreateTopics", mock.Anything)
	})

	t.Run("CreatesWithDefaults", func(t *testing.T) {
		admin := new(MockTopicAdmin)
		admin.On("ReadPartitions", []string{"loan-events"}).Return(nil, errors.New("unknown topic")).Times(topicReadAttempts)
		admin.On("CreateTopics", []kafka.TopicConfig{{Topic: "loan-events", NumPartitions: 1, ReplicationFactor: 1}}).Return(nil).Once()

		assert.NoError(t, ensureTopic(admin, "loan-events", 0, 0, newTestLogger(), 0))
		admin.AssertExpectations(t)
	})

	t.Run("CreateFails", func(t *testing.T) {
		admin := new(MockTopicAdmin)
		admin.On("ReadPartitions", mock.Anything).Return([]kafka.Partition{}, nil)
		admin.On("CreateTopics", mock.Anything).Return(errors.New("not authorized")).Once()

		err := ensureTopic(admin, "loan-events", 3, 1, newTestLogger(), 0)
		assert.ErrorContains(t, err, "failed to create kafka topic loan-events")
	})
}
