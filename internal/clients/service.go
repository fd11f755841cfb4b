package clients

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/wycenapp/wycena-sync/internal/remote"
	"github.com/wycenapp/wycena-sync/internal/store"
	"github.com/wycenapp/wycena-sync/internal/syncqueue"
	"github.com/wycenapp/wycena-sync/pkg/db/models"
	"github.com/wycenapp/wycena-sync/pkg/enums"
	pkgerrors "github.com/wycenapp/wycena-sync/pkg/errors"
	"github.com/wycenapp/wycena-sync/pkg/logger"
)

// syncEngine is the slice of the sync engine the service needs: state to
// decide online vs queued, pending refresh after enqueueing.
type syncEngine interface {
	State() syncqueue.SyncState
	RefreshPending(ctx context.Context) error
}

// Service manages clients offline-first: reads come from the cache,
// writes go straight to the server when online and into the queue when
// not.
type Service interface {
	Create(ctx context.Context, input CreateInput) (*models.Client, error)
	Update(ctx context.Context, id string, input UpdateInput) (*models.Client, error)
	Delete(ctx context.Context, id string) error
	Get(ctx context.Context, id string) (*models.Client, error)
	List(ctx context.Context, ownerID string) ([]models.Client, error)
	Refresh(ctx context.Context, ownerID string) error
}

type service struct {
	store  *store.Store
	remote remote.Client
	engine syncEngine
	logg   *logger.Logger
}

// CreateInput captures a new client.
type CreateInput struct {
	OwnerID   string  `json:"owner_id" validate:"required"`
	FirstName string  `json:"first_name" validate:"required"`
	LastName  string  `json:"last_name"`
	Phone     *string `json:"phone,omitempty"`
	Address   *string `json:"address,omitempty"`
	Notes     *string `json:"notes,omitempty"`
}

// UpdateInput carries the editable client fields.
type UpdateInput struct {
	FirstName string  `json:"first_name" validate:"required"`
	LastName  string  `json:"last_name"`
	Phone     *string `json:"phone,omitempty"`
	Address   *string `json:"address,omitempty"`
	Notes     *string `json:"notes,omitempty"`
}

// NewService builds a clients service with the required dependencies.
func NewService(st *store.Store, rc remote.Client, engine syncEngine, logg *logger.Logger) (Service, error) {
	if st == nil {
		return nil, fmt.Errorf("store required")
	}
	if rc == nil {
		return nil, fmt.Errorf("remote client required")
	}
	if engine == nil {
		return nil, fmt.Errorf("sync engine required")
	}
	return &service{store: st, remote: rc, engine: engine, logg: logg}, nil
}

func (s *service) Create(ctx context.Context, input CreateInput) (*models.Client, error) {
	if input.OwnerID == "" || input.FirstName == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "owner id and first name are required")
	}

	now := time.Now()
	client := models.Client{
		ID:        models.NewTempID(),
		OwnerID:   input.OwnerID,
		FirstName: input.FirstName,
		LastName:  input.LastName,
		Phone:     input.Phone,
		Address:   input.Address,
		Notes:     input.Notes,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if s.engine.State().IsOnline {
		created, err := s.remote.CreateClient(ctx, client)
		if err == nil {
			if cacheErr := s.cacheConfirmed(ctx, *created); cacheErr != nil {
				return nil, cacheErr
			}
			return created, nil
		}
		if !pkgerrors.Retryable(err) {
			return nil, err
		}
		// The in-flight call failed on connectivity terms; fall back to
		// queueing like any offline mutation.
	}

	if err := s.cacheOptimistic(ctx, client); err != nil {
		return nil, err
	}
	if _, err := s.store.Enqueue(ctx, enums.EntityKindClient, enums.QueueActionCreate, client.ID, client); err != nil {
		return nil, err
	}
	if err := s.engine.RefreshPending(ctx); err != nil {
		return nil, err
	}
	return &client, nil
}

func (s *service) Update(ctx context.Context, id string, input UpdateInput) (*models.Client, error) {
	if input.FirstName == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "first name is required")
	}

	current, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if current == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "client not found")
	}

	updated := *current
	updated.FirstName = input.FirstName
	updated.LastName = input.LastName
	updated.Phone = input.Phone
	updated.Address = input.Address
	updated.Notes = input.Notes
	updated.UpdatedAt = time.Now()

	if s.engine.State().IsOnline && !models.IsTempID(id) {
		confirmed, err := s.remote.UpdateClient(ctx, id, updated)
		if err == nil {
			if cacheErr := s.cacheConfirmed(ctx, *confirmed); cacheErr != nil {
				return nil, cacheErr
			}
			return confirmed, nil
		}
		if !pkgerrors.Retryable(err) {
			return nil, err
		}
	}

	if err := s.cacheOptimistic(ctx, updated); err != nil {
		return nil, err
	}

	if models.IsTempID(id) {
		// The pending create has not replayed yet; fold the edit into a
		// fresh queued create rather than queueing an update the server
		// cannot resolve.
		if err := s.store.DeleteQueueItemsForEntity(ctx, id); err != nil {
			return nil, err
		}
		if _, err := s.store.Enqueue(ctx, enums.EntityKindClient, enums.QueueActionCreate, id, updated); err != nil {
			return nil, err
		}
	} else {
		payload := syncqueue.ClientUpdatePayload{ID: id, Data: updated}
		if _, err := s.store.Enqueue(ctx, enums.EntityKindClient, enums.QueueActionUpdate, id, payload); err != nil {
			return nil, err
		}
	}

	if err := s.engine.RefreshPending(ctx); err != nil {
		return nil, err
	}
	return &updated, nil
}

func (s *service) Delete(ctx context.Context, id string) error {
	if models.IsTempID(id) {
		// Never reached the server: drop the snapshot and any queued
		// mutations, nothing to replay.
		if err := s.store.DeleteQueueItemsForEntity(ctx, id); err != nil {
			return err
		}
		if err := s.store.DeleteCacheEntry(ctx, id); err != nil {
			return err
		}
		return s.engine.RefreshPending(ctx)
	}

	if s.engine.State().IsOnline {
		err := s.remote.DeleteClient(ctx, id)
		if err == nil {
			return s.store.DeleteCacheEntry(ctx, id)
		}
		if !pkgerrors.Retryable(err) {
			return err
		}
	}

	if _, err := s.store.Enqueue(ctx, enums.EntityKindClient, enums.QueueActionDelete, id, syncqueue.DeletePayload{ID: id}); err != nil {
		return err
	}
	if err := s.store.DeleteCacheEntry(ctx, id); err != nil {
		return err
	}
	return s.engine.RefreshPending(ctx)
}

func (s *service) Get(ctx context.Context, id string) (*models.Client, error) {
	entry, err := s.store.GetCacheEntry(ctx, id)
	if err != nil {
		return nil, err
	}
	if entry == nil {
		return nil, nil
	}
	var client models.Client
	if err := json.Unmarshal(entry.Payload, &client); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeStorage, err, "decoding cached client")
	}
	client.SyncedAt = entry.SyncedAt
	return &client, nil
}

func (s *service) List(ctx context.Context, ownerID string) ([]models.Client, error) {
	entries, err := s.store.ListCacheEntries(ctx, ownerID, enums.EntityKindClient)
	if err != nil {
		return nil, err
	}
	clients := make([]models.Client, 0, len(entries))
	for _, entry := range entries {
		var client models.Client
		if err := json.Unmarshal(entry.Payload, &client); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeStorage, err, "decoding cached client")
		}
		client.SyncedAt = entry.SyncedAt
		clients = append(clients, client)
	}
	return clients, nil
}

func (s *service) Refresh(ctx context.Context, ownerID string) error {
	if !s.engine.State().IsOnline {
		return pkgerrors.New(pkgerrors.CodeOffline, "refresh requires connectivity")
	}
	remoteClients, err := s.remote.ListClients(ctx, ownerID)
	if err != nil {
		return err
	}
	for _, client := range remoteClients {
		if err := s.cacheConfirmed(ctx, client); err != nil {
			return err
		}
	}
	return nil
}

func (s *service) cacheOptimistic(ctx context.Context, client models.Client) error {
	payload, err := json.Marshal(client)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "encoding client")
	}
	return s.store.UpsertCacheEntry(ctx, models.CacheEntry{
		EntityID: client.ID,
		OwnerID:  client.OwnerID,
		Kind:     enums.EntityKindClient,
		Payload:  payload,
	})
}

func (s *service) cacheConfirmed(ctx context.Context, client models.Client) error {
	now := time.Now()
	client.SyncedAt = &now
	payload, err := json.Marshal(client)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "encoding client")
	}
	return s.store.UpsertCacheEntry(ctx, models.CacheEntry{
		EntityID: client.ID,
		OwnerID:  client.OwnerID,
		Kind:     enums.EntityKindClient,
		Payload:  payload,
		SyncedAt: &now,
	})
}
