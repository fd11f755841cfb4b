package store

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/wycenapp/wycena-sync/pkg/db"
	"github.com/wycenapp/wycena-sync/pkg/db/models"
	"github.com/wycenapp/wycena-sync/pkg/enums"
	pkgerrors "github.com/wycenapp/wycena-sync/pkg/errors"
)

// Store is the local durable layer: a cache of entity snapshots plus the
// FIFO queue of pending mutations. Every method is atomic per call.
type Store struct {
	db *gorm.DB
}

// NewStore builds a store bound to the provided DB.
func NewStore(db *gorm.DB) *Store {
	return &Store{db: db}
}

// UpsertCacheEntry overwrites any existing snapshot for the entity id.
func (s *Store) UpsertCacheEntry(ctx context.Context, entry models.CacheEntry) error {
	entry.UpdatedAt = time.Now()
	err := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "entity_id"}},
			UpdateAll: true,
		}).
		Create(&entry).Error
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeStorage, err, "upserting cache entry")
	}
	return nil
}

// GetCacheEntry returns the snapshot for an entity id, or nil when absent.
func (s *Store) GetCacheEntry(ctx context.Context, entityID string) (*models.CacheEntry, error) {
	var entry models.CacheEntry
	err := s.db.WithContext(ctx).
		Where("entity_id = ?", entityID).
		First(&entry).Error
	if db.IsNotFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeStorage, err, "reading cache entry")
	}
	return &entry, nil
}

// ListCacheEntries returns all snapshots of one kind for an owner, most
// recently updated first.
func (s *Store) ListCacheEntries(ctx context.Context, ownerID string, kind enums.EntityKind) ([]models.CacheEntry, error) {
	var entries []models.CacheEntry
	err := s.db.WithContext(ctx).
		Where("owner_id = ? AND kind = ?", ownerID, kind).
		Order("updated_at DESC").
		Find(&entries).Error
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeStorage, err, "listing cache entries")
	}
	return entries, nil
}

// DeleteCacheEntry removes the snapshot for an entity id, if any.
func (s *Store) DeleteCacheEntry(ctx context.Context, entityID string) error {
	err := s.db.WithContext(ctx).
		Where("entity_id = ?", entityID).
		Delete(&models.CacheEntry{}).Error
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeStorage, err, "deleting cache entry")
	}
	return nil
}

// Enqueue appends a pending mutation and returns its queue id.
func (s *Store) Enqueue(ctx context.Context, kind enums.EntityKind, action enums.QueueAction, entityID string, payload any) (uuid.UUID, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeStorage, err, "encoding queue payload")
	}

	item := models.QueueItem{
		ID:       uuid.New(),
		Kind:     kind,
		Action:   action,
		EntityID: entityID,
		Payload:  raw,
	}
	if err := s.db.WithContext(ctx).Create(&item).Error; err != nil {
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeStorage, err, "enqueueing mutation")
	}
	return item.ID, nil
}

// ListQueue returns every queue item in creation order, including items
// past the retry ceiling; drain decides what to skip.
func (s *Store) ListQueue(ctx context.Context) ([]models.QueueItem, error) {
	var items []models.QueueItem
	err := s.db.WithContext(ctx).
		Order("created_at ASC").
		Order("id ASC").
		Find(&items).Error
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeStorage, err, "listing queue")
	}
	return items, nil
}

// Dequeue removes a queue item after a confirmed replay or user dismissal.
func (s *Store) Dequeue(ctx context.Context, id uuid.UUID) error {
	err := s.db.WithContext(ctx).
		Where("id = ?", id).
		Delete(&models.QueueItem{}).Error
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeStorage, err, "dequeueing item")
	}
	return nil
}

// MarkRetry records a failed replay attempt on a queue item.
func (s *Store) MarkRetry(ctx context.Context, id uuid.UUID, errorMessage string) error {
	err := s.db.WithContext(ctx).
		Model(&models.QueueItem{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"retry_count": gorm.Expr("retry_count + 1"),
			"last_error":  errorMessage,
			"failed_at":   time.Now(),
		}).Error
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeStorage, err, "marking retry")
	}
	return nil
}

// ClearError resets the retry bookkeeping so the next drain picks the item
// up again.
func (s *Store) ClearError(ctx context.Context, id uuid.UUID) error {
	err := s.db.WithContext(ctx).
		Model(&models.QueueItem{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"retry_count": 0,
			"last_error":  nil,
			"failed_at":   nil,
		}).Error
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeStorage, err, "clearing queue error")
	}
	return nil
}

// DeleteQueueItemsForEntity drops every queued mutation targeting the
// entity. Used when a never-synced temp entity is deleted locally: the
// queued create must not resurrect it on the next drain.
func (s *Store) DeleteQueueItemsForEntity(ctx context.Context, entityID string) error {
	err := s.db.WithContext(ctx).
		Where("entity_id = ?", entityID).
		Delete(&models.QueueItem{}).Error
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeStorage, err, "deleting queue items for entity")
	}
	return nil
}

// PendingCount returns the number of queued mutations.
func (s *Store) PendingCount(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.WithContext(ctx).
		Model(&models.QueueItem{}).
		Count(&count).Error
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeStorage, err, "counting queue")
	}
	return count, nil
}

// LatestErrorForEntity returns the newest failing queue item targeting the
// entity, or nil when none is failing.
func (s *Store) LatestErrorForEntity(ctx context.Context, entityID string) (*models.QueueItem, error) {
	var item models.QueueItem
	err := s.db.WithContext(ctx).
		Where("entity_id = ? AND last_error IS NOT NULL", entityID).
		Order("failed_at DESC").
		First(&item).Error
	if db.IsNotFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeStorage, err, "reading sync error")
	}
	return &item, nil
}
