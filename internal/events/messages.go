package events

import (
	"encoding/json"
	"fmt"
	"time"
)

// Lifecycle actions carried on the wire. Consumers reject anything else.
const (
	ActionCreated = "created"
	ActionUpdated = "updated"
	ActionDeleted = "deleted"
)

// Message announces that an expense changed. It carries only the ID and
// action; consumers that need the full record fetch it from the database.
type Message struct {
	ID         int64     `json:"id"`
	Action     string    `json:"action"`
	OccurredAt time.Time `json:"occurred_at"`
}

// NewMessage creates a lifecycle message stamped with the current time.
func NewMessage(id int64, action string) *Message {
	return &Message{
		ID:         id,
		Action:     action,
		OccurredAt: time.Now().UTC(),
	}
}

// Validate rejects messages with unknown actions or missing IDs.
func (m *Message) Validate() error {
	if m.ID <= 0 {
		return fmt.Errorf("invalid expense id: %d", m.ID)
	}
	switch m.Action {
	case ActionCreated, ActionUpdated, ActionDeleted:
		return nil
	}
	return fmt.Errorf("unknown action: %q", m.Action)
}

// ToJSON converts the message to JSON bytes.
func (m *Message) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// MessageFromJSON creates a message from JSON bytes.
func MessageFromJSON(data []byte) (*Message, error) {
	var msg Message
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
