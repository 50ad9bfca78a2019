package outbox

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/microcredit-pool-ledger/internal/domain/event"
	"github.com/microcredit-pool-ledger/internal/domain/shared"
)

// Message stores a committed event until the relay has published it
type Message struct {
	ID            int64               `json:"id"`
	EventID       uuid.UUID           `json:"event_id"`
	EventType     event.Type          `json:"event_type"`
	Account       string              `json:"account"`
	Payload       json.RawMessage     `json:"payload"`
	Status        shared.OutboxStatus `json:"status"`
	Attempts      int                 `json:"attempts"`
	CreatedAt     time.Time           `json:"created_at"`
	LastAttemptAt *time.Time          `json:"last_attempt_at,omitempty"`
}

func NewMessage(e *event.Event) (*Message, error) {
	payload, err := json.Marshal(e)
	if err != nil {
		return nil, err
	}

	return &Message{
		EventID:   e.ID,
		EventType: e.Type,
		Account:   e.Account,
		Payload:   payload,
		Status:    shared.OutboxStatusPending,
		CreatedAt: time.Now(),
	}, nil
}

func (m *Message) IncrementAttempts() {
	m.Attempts++
	now := time.Now()
	m.LastAttemptAt = &now
}

func (m *Message) MarkAsProcessed() {
	m.Status = shared.OutboxStatusProcessed
	now := time.Now()
	m.LastAttemptAt = &now
}

func (m *Message) MarkAsFailed() {
	m.Status = shared.OutboxStatusFailedToPublish
	now := time.Now()
	m.LastAttemptAt = &now
}

// GetEvent decodes the event carried in the payload
func (m *Message) GetEvent() (*event.Event, error) {
	var e event.Event
	if err := json.Unmarshal(m.Payload, &e); err != nil {
		return nil, err
	}
	return &e, nil
}
