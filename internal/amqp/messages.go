package amqp

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"teamspend/internal/core"
)

type EventKind string

const (
	ExpenditureCreated EventKind = "expenditure.created"
	ExpenditureUpdated EventKind = "expenditure.updated"
	ExpenditureDeleted EventKind = "expenditure.deleted"
)

// ExpenditureEvent is published after every successful expenditure write.
// Create and update events carry the full record so consumers never need to
// read the store back; delete events carry only the expenditure id.
type ExpenditureEvent struct {
	MessageID   string           `json:"message_id"`
	Kind        EventKind        `json:"kind"`
	Expenditure core.Expenditure `json:"expenditure"`
	Timestamp   time.Time        `json:"timestamp"`
}

func NewExpenditureEvent(kind EventKind, e core.Expenditure) *ExpenditureEvent {
	return &ExpenditureEvent{
		MessageID:   uuid.New().String(),
		Kind:        kind,
		Expenditure: e,
		Timestamp:   time.Now(),
	}
}

func (m *ExpenditureEvent) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func ExpenditureEventFromJSON(data []byte) (*ExpenditureEvent, error) {
	var msg ExpenditureEvent
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
