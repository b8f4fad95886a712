package amqp

import (
	"encoding/json"
	"time"
)

// Entity kinds a plan change can refer to.
const (
	EntityBucket      = "bucket"
	EntityGroup       = "group"
	EntitySubCategory = "subcategory"
	EntityTemplate    = "template"
	EntityMonthConfig = "month_config"
)

// PlanChangedMessage represents a lightweight message for snapshotting a plan
// change. It carries only the entity reference and revision, the worker will
// fetch the full state from the repository.
type PlanChangedMessage struct {
	EntityKind string    `json:"entity_kind"`
	EntityID   string    `json:"entity_id"`
	Month      string    `json:"month,omitempty"`
	Revision   int64     `json:"revision"`
	Timestamp  time.Time `json:"timestamp"`
}

// NewPlanChangedMessage creates a new plan change message
func NewPlanChangedMessage(entityKind, entityID, month string, revision int64) *PlanChangedMessage {
	return &PlanChangedMessage{
		EntityKind: entityKind,
		EntityID:   entityID,
		Month:      month,
		Revision:   revision,
		Timestamp:  time.Now(),
	}
}

// ToJSON converts the message to JSON bytes
func (m *PlanChangedMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// PlanChangedMessageFromJSON creates a message from JSON bytes
func PlanChangedMessageFromJSON(data []byte) (*PlanChangedMessage, error) {
	var msg PlanChangedMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
