package quotes

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/wycenapp/wycena-sync/internal/pricing"
	"github.com/wycenapp/wycena-sync/internal/remote"
	"github.com/wycenapp/wycena-sync/internal/store"
	"github.com/wycenapp/wycena-sync/internal/syncqueue"
	"github.com/wycenapp/wycena-sync/pkg/db/models"
	"github.com/wycenapp/wycena-sync/pkg/enums"
	pkgerrors "github.com/wycenapp/wycena-sync/pkg/errors"
	"github.com/wycenapp/wycena-sync/pkg/logger"
)

type syncEngine interface {
	State() syncqueue.SyncState
	RefreshPending(ctx context.Context) error
}

// Service manages quotes offline-first. Creating and deleting work with
// or without connectivity; editing an existing quote requires being
// online so the server stays the single writer of synced quotes.
type Service interface {
	Create(ctx context.Context, input models.Quote) (*models.Quote, error)
	Update(ctx context.Context, id string, input models.Quote) (*models.Quote, error)
	Delete(ctx context.Context, id string) error
	Get(ctx context.Context, id string) (*models.Quote, error)
	List(ctx context.Context, ownerID string) ([]models.Quote, error)
	Refresh(ctx context.Context, ownerID string) error
	Preview(quote models.Quote) models.Quote
}

type service struct {
	store  *store.Store
	remote remote.Client
	engine syncEngine
	logg   *logger.Logger
}

// NewService builds a quotes service with the required dependencies.
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

func (s *service) Create(ctx context.Context, input models.Quote) (*models.Quote, error) {
	if input.OwnerID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "owner id is required")
	}

	quote := input
	quote.ID = models.NewTempID()
	quote.Number = 0
	if quote.Status == "" {
		quote.Status = enums.QuoteStatusDraft
	}
	if !quote.Status.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid quote status")
	}
	now := time.Now()
	quote.CreatedAt = now
	quote.UpdatedAt = now
	quote.SyncedAt = nil
	assignIDs(&quote)
	pricing.Recalculate(&quote)

	if s.engine.State().IsOnline {
		created, err := s.remote.CreateQuote(ctx, quote)
		if err == nil {
			if cacheErr := s.cacheConfirmed(ctx, *created); cacheErr != nil {
				return nil, cacheErr
			}
			return created, nil
		}
		if !pkgerrors.Retryable(err) {
			return nil, err
		}
	}

	if err := s.cacheOptimistic(ctx, quote); err != nil {
		return nil, err
	}
	if _, err := s.store.Enqueue(ctx, enums.EntityKindQuote, enums.QueueActionCreate, quote.ID, quote); err != nil {
		return nil, err
	}
	if err := s.engine.RefreshPending(ctx); err != nil {
		return nil, err
	}
	return &quote, nil
}

// Update edits a quote in place. A synced quote can only be edited online;
// a quote still waiting on its first sync is folded back into its queued
// create, the same way pending client edits are.
func (s *service) Update(ctx context.Context, id string, input models.Quote) (*models.Quote, error) {
	current, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if current == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "quote not found")
	}

	updated := input
	updated.ID = id
	updated.OwnerID = current.OwnerID
	updated.Number = current.Number
	updated.CreatedAt = current.CreatedAt
	updated.UpdatedAt = time.Now()
	if updated.Status == "" {
		updated.Status = current.Status
	}
	if !updated.Status.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid quote status")
	}
	assignIDs(&updated)
	pricing.Recalculate(&updated)

	if models.IsTempID(id) {
		if err := s.cacheOptimistic(ctx, updated); err != nil {
			return nil, err
		}
		if err := s.store.DeleteQueueItemsForEntity(ctx, id); err != nil {
			return nil, err
		}
		if _, err := s.store.Enqueue(ctx, enums.EntityKindQuote, enums.QueueActionCreate, id, updated); err != nil {
			return nil, err
		}
		if err := s.engine.RefreshPending(ctx); err != nil {
			return nil, err
		}
		return &updated, nil
	}

	if !s.engine.State().IsOnline {
		return nil, pkgerrors.New(pkgerrors.CodeOffline, "editing a synced quote requires connectivity")
	}

	confirmed, err := s.remote.UpdateQuote(ctx, id, updated)
	if err != nil {
		return nil, err
	}
	if err := s.cacheConfirmed(ctx, *confirmed); err != nil {
		return nil, err
	}
	return confirmed, nil
}

func (s *service) Delete(ctx context.Context, id string) error {
	if models.IsTempID(id) {
		if err := s.store.DeleteQueueItemsForEntity(ctx, id); err != nil {
			return err
		}
		if err := s.store.DeleteCacheEntry(ctx, id); err != nil {
			return err
		}
		return s.engine.RefreshPending(ctx)
	}

	if s.engine.State().IsOnline {
		err := s.remote.DeleteQuote(ctx, id)
		if err == nil {
			return s.store.DeleteCacheEntry(ctx, id)
		}
		if !pkgerrors.Retryable(err) {
			return err
		}
	}

	if _, err := s.store.Enqueue(ctx, enums.EntityKindQuote, enums.QueueActionDelete, id, syncqueue.DeletePayload{ID: id}); err != nil {
		return err
	}
	if err := s.store.DeleteCacheEntry(ctx, id); err != nil {
		return err
	}
	return s.engine.RefreshPending(ctx)
}

func (s *service) Get(ctx context.Context, id string) (*models.Quote, error) {
	entry, err := s.store.GetCacheEntry(ctx, id)
	if err != nil {
		return nil, err
	}
	if entry == nil {
		return nil, nil
	}
	var quote models.Quote
	if err := json.Unmarshal(entry.Payload, &quote); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeStorage, err, "decoding cached quote")
	}
	quote.SyncedAt = entry.SyncedAt
	return &quote, nil
}

func (s *service) List(ctx context.Context, ownerID string) ([]models.Quote, error) {
	entries, err := s.store.ListCacheEntries(ctx, ownerID, enums.EntityKindQuote)
	if err != nil {
		return nil, err
	}
	quotes := make([]models.Quote, 0, len(entries))
	for _, entry := range entries {
		var quote models.Quote
		if err := json.Unmarshal(entry.Payload, &quote); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeStorage, err, "decoding cached quote")
		}
		quote.SyncedAt = entry.SyncedAt
		quotes = append(quotes, quote)
	}
	return quotes, nil
}

func (s *service) Refresh(ctx context.Context, ownerID string) error {
	if !s.engine.State().IsOnline {
		return pkgerrors.New(pkgerrors.CodeOffline, "refresh requires connectivity")
	}
	remoteQuotes, err := s.remote.ListQuotes(ctx, ownerID)
	if err != nil {
		return err
	}
	for _, quote := range remoteQuotes {
		if err := s.cacheConfirmed(ctx, quote); err != nil {
			return err
		}
	}
	return nil
}

// Preview recalculates a quote without persisting anything. It backs the
// live total shown while the user edits measurements and prices.
func (s *service) Preview(quote models.Quote) models.Quote {
	pricing.Recalculate(&quote)
	return quote
}

// assignIDs fills missing identifiers on nested rows and repairs parent
// references so a quote arriving from the UI is internally consistent.
func assignIDs(q *models.Quote) {
	for gi := range q.Groups {
		group := &q.Groups[gi]
		if group.ID == "" {
			group.ID = uuid.NewString()
		}
		group.QuoteID = q.ID
		for si := range group.Services {
			line := &group.Services[si]
			if line.ID == "" {
				line.ID = uuid.NewString()
			}
			line.GroupID = group.ID
		}
	}
	for mi := range q.Materials {
		material := &q.Materials[mi]
		if material.ID == "" {
			material.ID = uuid.NewString()
		}
		material.QuoteID = q.ID
	}
}

func (s *service) cacheOptimistic(ctx context.Context, quote models.Quote) error {
	payload, err := json.Marshal(quote)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "encoding quote")
	}
	return s.store.UpsertCacheEntry(ctx, models.CacheEntry{
		EntityID: quote.ID,
		OwnerID:  quote.OwnerID,
		Kind:     enums.EntityKindQuote,
		Payload:  payload,
	})
}

func (s *service) cacheConfirmed(ctx context.Context, quote models.Quote) error {
	now := time.Now()
	quote.SyncedAt = &now
	payload, err := json.Marshal(quote)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "encoding quote")
	}
	return s.store.UpsertCacheEntry(ctx, models.CacheEntry{
		EntityID: quote.ID,
		OwnerID:  quote.OwnerID,
		Kind:     enums.EntityKindQuote,
		Payload:  payload,
		SyncedAt: &now,
	})
}
