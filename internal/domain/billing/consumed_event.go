package billing

import (
	"time"

	"github.com/google/uuid"
)

// ConsumedEvent is the idempotency record for one processed inbound event.
// The primary key is the event's own externally supplied ID, so a duplicate
// delivery fails its insert and is treated as already handled. Rows are never
// updated, only created; they accumulate for audit and dedup.
type ConsumedEvent struct {
	EventID    uuid.UUID `gorm:"type:uuid;primaryKey"`
	EventType  string    `gorm:"type:varchar(100);not null"`
	ReceivedAt time.Time `gorm:"not null"`
}

// TableName returns the table name for GORM
func (ConsumedEvent) TableName() string {
	return "consumed_events"
}

// NewConsumedEvent creates a new consumed-event record
func NewConsumedEvent(eventID uuid.UUID, eventType string) *ConsumedEvent {
	return &ConsumedEvent{
		EventID:    eventID,
		EventType:  eventType,
		ReceivedAt: time.Now(),
	}
}
