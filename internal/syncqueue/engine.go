package syncqueue

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/multierr"

	"github.com/wycenapp/wycena-sync/internal/remote"
	"github.com/wycenapp/wycena-sync/internal/store"
	"github.com/wycenapp/wycena-sync/pkg/db/models"
	"github.com/wycenapp/wycena-sync/pkg/enums"
	pkgerrors "github.com/wycenapp/wycena-sync/pkg/errors"
	"github.com/wycenapp/wycena-sync/pkg/logger"
	"github.com/wycenapp/wycena-sync/pkg/metrics"
)

const defaultMaxAttempts = 3

// SyncState is the observable sync status the UI renders.
type SyncState struct {
	IsOnline      bool       `json:"is_online"`
	IsSyncing     bool       `json:"is_syncing"`
	PendingCount  int64      `json:"pending_count"`
	LastDrainedAt *time.Time `json:"last_drained_at,omitempty"`
}

// SyncError describes the newest failing queued operation for an entity.
type SyncError struct {
	QueueItemID uuid.UUID  `json:"queue_item_id"`
	Message     string     `json:"message"`
	FailedAt    *time.Time `json:"failed_at,omitempty"`
	RetryCount  int        `json:"retry_count"`
}

// Engine owns every queue-state transition: drain, retry bookkeeping,
// dismissal and reconciliation all go through here, so automatic drains
// and manual retries cannot race each other on queue state.
type Engine struct {
	store       *store.Store
	remote      remote.Client
	logg        *logger.Logger
	metrics     *metrics.SyncMetrics
	maxAttempts int

	draining atomic.Bool

	mu            sync.Mutex
	online        bool
	pendingCount  int64
	lastDrainedAt *time.Time
}

// Params collects the engine dependencies.
type Params struct {
	Store       *store.Store
	Remote      remote.Client
	Logger      *logger.Logger
	Metrics     *metrics.SyncMetrics
	MaxAttempts int
}

// NewEngine builds a sync engine with the required dependencies.
func NewEngine(p Params) (*Engine, error) {
	if p.Store == nil {
		return nil, fmt.Errorf("store required")
	}
	if p.Remote == nil {
		return nil, fmt.Errorf("remote client required")
	}
	if p.MaxAttempts <= 0 {
		p.MaxAttempts = defaultMaxAttempts
	}
	return &Engine{
		store:       p.Store,
		remote:      p.Remote,
		logg:        p.Logger,
		metrics:     p.Metrics,
		maxAttempts: p.MaxAttempts,
	}, nil
}

// SetOnline records the connectivity state the monitor observed.
func (e *Engine) SetOnline(online bool) {
	e.mu.Lock()
	e.online = online
	e.mu.Unlock()
}

// State returns a snapshot of the observable sync status.
func (e *Engine) State() SyncState {
	e.mu.Lock()
	defer e.mu.Unlock()
	return SyncState{
		IsOnline:      e.online,
		IsSyncing:     e.draining.Load(),
		PendingCount:  e.pendingCount,
		LastDrainedAt: e.lastDrainedAt,
	}
}

// RefreshPending recomputes the pending count from the store.
func (e *Engine) RefreshPending(ctx context.Context) error {
	count, err := e.store.PendingCount(ctx)
	if err != nil {
		return err
	}
	e.mu.Lock()
	e.pendingCount = count
	e.mu.Unlock()
	e.metrics.SetPending(count)
	return nil
}

// Drain replays every eligible queue item in creation order. It is a no-op
// while offline or while another drain is in flight. A single item's
// failure is recorded on the item and does not stop the pass; the combined
// failures are returned for logging.
func (e *Engine) Drain(ctx context.Context, ownerID string) error {
	if !e.draining.CompareAndSwap(false, true) {
		return nil
	}
	defer e.draining.Store(false)

	e.mu.Lock()
	online := e.online
	e.mu.Unlock()
	if !online {
		return nil
	}

	start := time.Now()
	if e.logg != nil {
		ctx = e.logg.WithOwnerID(ctx, ownerID)
		e.logg.Info(ctx, "sync drain started")
	}

	items, err := e.store.ListQueue(ctx)
	if err != nil {
		e.metrics.ObserveDrain("error", time.Since(start))
		return err
	}

	var drainErr error
	for _, item := range items {
		if item.RetryCount >= e.maxAttempts {
			continue
		}

		itemCtx := ctx
		if e.logg != nil {
			itemCtx = e.logg.WithFields(ctx, map[string]any{
				"queue_item_id": item.ID.String(),
				"kind":          string(item.Kind),
				"action":        string(item.Action),
				"entity_id":     item.EntityID,
			})
		}

		if err := e.replay(itemCtx, item); err != nil {
			drainErr = multierr.Append(drainErr, err)
			e.metrics.IncItemFailure(string(item.Kind), string(item.Action))
			if markErr := e.store.MarkRetry(ctx, item.ID, err.Error()); markErr != nil {
				drainErr = multierr.Append(drainErr, markErr)
			}
			if e.logg != nil {
				e.logg.Warn(itemCtx, "queue item replay failed")
			}
			continue
		}

		if err := e.store.Dequeue(ctx, item.ID); err != nil {
			drainErr = multierr.Append(drainErr, err)
			continue
		}
		e.metrics.IncItemSuccess(string(item.Kind), string(item.Action))
		if e.logg != nil {
			e.logg.Info(itemCtx, "queue item replayed")
		}
	}

	now := time.Now()
	e.mu.Lock()
	e.lastDrainedAt = &now
	e.mu.Unlock()

	if err := e.RefreshPending(ctx); err != nil {
		drainErr = multierr.Append(drainErr, err)
	}

	result := "ok"
	if drainErr != nil {
		result = "partial"
	}
	e.metrics.ObserveDrain(result, time.Since(start))
	if e.logg != nil {
		e.logg.Info(ctx, "sync drain finished")
	}
	return drainErr
}

// replay dispatches one queue item to the remote API and reconciles
// server-assigned state back into the cache.
func (e *Engine) replay(ctx context.Context, item models.QueueItem) error {
	switch {
	case item.Kind == enums.EntityKindQuote && item.Action == enums.QueueActionCreate:
		var quote models.Quote
		if err := json.Unmarshal(item.Payload, &quote); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "decoding queued quote")
		}
		created, err := e.remote.CreateQuote(ctx, quote)
		if err != nil {
			return err
		}
		return e.Reconcile(ctx, item.EntityID, enums.EntityKindQuote, created.OwnerID, created.ID, created)

	case item.Kind == enums.EntityKindQuote && item.Action == enums.QueueActionDelete:
		var payload DeletePayload
		if err := json.Unmarshal(item.Payload, &payload); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "decoding queued quote delete")
		}
		return e.remote.DeleteQuote(ctx, payload.ID)

	case item.Kind == enums.EntityKindClient && item.Action == enums.QueueActionCreate:
		var client models.Client
		if err := json.Unmarshal(item.Payload, &client); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "decoding queued client")
		}
		created, err := e.remote.CreateClient(ctx, client)
		if err != nil {
			return err
		}
		return e.Reconcile(ctx, item.EntityID, enums.EntityKindClient, created.OwnerID, created.ID, created)

	case item.Kind == enums.EntityKindClient && item.Action == enums.QueueActionUpdate:
		var payload ClientUpdatePayload
		if err := json.Unmarshal(item.Payload, &payload); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "decoding queued client update")
		}
		updated, err := e.remote.UpdateClient(ctx, payload.ID, payload.Data)
		if err != nil {
			return err
		}
		return e.cacheConfirmed(ctx, enums.EntityKindClient, updated.OwnerID, updated.ID, updated)

	case item.Kind == enums.EntityKindClient && item.Action == enums.QueueActionDelete:
		var payload DeletePayload
		if err := json.Unmarshal(item.Payload, &payload); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "decoding queued client delete")
		}
		return e.remote.DeleteClient(ctx, payload.ID)

	default:
		return pkgerrors.New(pkgerrors.CodeValidation,
			fmt.Sprintf("unsupported queue operation %s/%s", item.Kind, item.Action))
	}
}

// Reconcile replaces the cache entry stored under the temp id with one
// stored under the server-assigned id. Cached references to the temp id
// elsewhere are the caller's concern; views must be refreshed afterwards.
func (e *Engine) Reconcile(ctx context.Context, tempID string, kind enums.EntityKind, ownerID, serverID string, serverEntity any) error {
	if err := e.cacheConfirmed(ctx, kind, ownerID, serverID, serverEntity); err != nil {
		return err
	}
	if tempID != serverID {
		if err := e.store.DeleteCacheEntry(ctx, tempID); err != nil {
			return err
		}
	}
	if e.logg != nil {
		ctx = e.logg.WithFields(ctx, map[string]any{
			"temp_id":   tempID,
			"server_id": serverID,
		})
		e.logg.Info(ctx, "temp id reconciled")
	}
	return nil
}

func (e *Engine) cacheConfirmed(ctx context.Context, kind enums.EntityKind, ownerID, entityID string, entity any) error {
	payload, err := json.Marshal(entity)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "encoding confirmed entity")
	}
	now := time.Now()
	return e.store.UpsertCacheEntry(ctx, models.CacheEntry{
		EntityID: entityID,
		OwnerID:  ownerID,
		Kind:     kind,
		Payload:  payload,
		SyncedAt: &now,
	})
}

// SyncErrorFor returns the newest failure recorded against an entity's
// queued operations, or nil when nothing is failing.
func (e *Engine) SyncErrorFor(ctx context.Context, entityID string) (*SyncError, error) {
	item, err := e.store.LatestErrorForEntity(ctx, entityID)
	if err != nil || item == nil {
		return nil, err
	}
	message := ""
	if item.LastError != nil {
		message = *item.LastError
	}
	return &SyncError{
		QueueItemID: item.ID,
		Message:     message,
		FailedAt:    item.FailedAt,
		RetryCount:  item.RetryCount,
	}, nil
}

// Dismiss abandons a queued operation permanently. The optimistic cache
// state is kept as-is.
func (e *Engine) Dismiss(ctx context.Context, queueItemID uuid.UUID) error {
	if err := e.store.Dequeue(ctx, queueItemID); err != nil {
		return err
	}
	return e.RefreshPending(ctx)
}

// Retry clears an item's error bookkeeping and forces a drain.
func (e *Engine) Retry(ctx context.Context, queueItemID uuid.UUID, ownerID string) error {
	if err := e.store.ClearError(ctx, queueItemID); err != nil {
		return err
	}
	return e.Drain(ctx, ownerID)
}
