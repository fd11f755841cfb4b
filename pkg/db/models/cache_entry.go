package models

import (
	"encoding/json"
	"time"

	"github.com/wycenapp/wycena-sync/pkg/enums"
)

// CacheEntry is the last known snapshot of a remote entity, stored locally
// for offline reads. At most one entry exists per entity id; SyncedAt stays
// nil until the server has confirmed the entity.
type CacheEntry struct {
	EntityID  string           `gorm:"column:entity_id;primaryKey" json:"entity_id"`
	OwnerID   string           `gorm:"column:owner_id;index;not null" json:"owner_id"`
	Kind      enums.EntityKind `gorm:"column:kind;not null" json:"kind"`
	Payload   json.RawMessage  `gorm:"column:payload;not null" json:"payload"`
	UpdatedAt time.Time        `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
	SyncedAt  *time.Time       `gorm:"column:synced_at" json:"synced_at,omitempty"`
}

// TableName fixes the table name used by gorm.
func (CacheEntry) TableName() string {
	return "cache_entries"
}
