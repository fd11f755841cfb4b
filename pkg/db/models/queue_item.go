package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/wycenapp/wycena-sync/pkg/enums"
)

// QueueItem is a durable record of one not-yet-confirmed mutation awaiting
// replay against the remote API. CreatedAt defines strict FIFO replay order.
type QueueItem struct {
	ID         uuid.UUID         `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	Kind       enums.EntityKind  `gorm:"column:kind;not null" json:"kind"`
	Action     enums.QueueAction `gorm:"column:action;not null" json:"action"`
	EntityID   string            `gorm:"column:entity_id;index;not null" json:"entity_id"`
	Payload    json.RawMessage   `gorm:"column:payload;not null" json:"payload"`
	CreatedAt  time.Time         `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	RetryCount int               `gorm:"column:retry_count;not null;default:0" json:"retry_count"`
	LastError  *string           `gorm:"column:last_error" json:"last_error,omitempty"`
	FailedAt   *time.Time        `gorm:"column:failed_at" json:"failed_at,omitempty"`
}

// TableName fixes the table name used by gorm.
func (QueueItem) TableName() string {
	return "queue_items"
}
