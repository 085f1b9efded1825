package amqp

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Entities and actions carried by change notifications.
const (
	EntityExpense  = "expense"
	EntityCategory = "category"
	EntityProduct  = "product"
	EntitySale     = "sale"

	ActionCreated = "created"
	ActionUpdated = "updated"
	ActionDeleted = "deleted"
	ActionSeeded  = "seeded"
)

// ChangeMessage announces a successful write against the record store.
// It only names the record; consumers read current state from the store.
type ChangeMessage struct {
	ID        string    `json:"id"`
	Entity    string    `json:"entity"`
	Action    string    `json:"action"`
	EntityID  string    `json:"entity_id,omitempty"`
	Count     int       `json:"count,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// NewChangeMessage creates a message with a fresh id and the current time.
func NewChangeMessage(entity, action, entityID string) *ChangeMessage {
	return &ChangeMessage{
		ID:        uuid.NewString(),
		Entity:    entity,
		Action:    action,
		EntityID:  entityID,
		Timestamp: time.Now().UTC(),
	}
}

// ToJSON converts the message to JSON bytes
func (m *ChangeMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// ChangeMessageFromJSON decodes and checks a message body.
func ChangeMessageFromJSON(data []byte) (*ChangeMessage, error) {
	var msg ChangeMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if msg.Entity == "" || msg.Action == "" {
		return nil, fmt.Errorf("change message missing entity or action")
	}
	return &msg, nil
}
