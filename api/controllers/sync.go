package controllers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/wycenapp/wycena-sync/api/responses"
	"github.com/wycenapp/wycena-sync/api/validators"
	"github.com/wycenapp/wycena-sync/internal/store"
	"github.com/wycenapp/wycena-sync/internal/syncqueue"
	pkgerrors "github.com/wycenapp/wycena-sync/pkg/errors"
	"github.com/wycenapp/wycena-sync/pkg/logger"
)

// ConnectivityNotifier receives connectivity signals from the host app.
type ConnectivityNotifier interface {
	Notify(online bool)
}

// SyncStatus returns the current sync state.
func SyncStatus(engine *syncqueue.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		responses.WriteSuccess(w, engine.State())
	}
}

// SyncDrain replays the pending queue immediately.
func SyncDrain(engine *syncqueue.Engine, ownerID string, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := engine.Drain(r.Context(), ownerID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, engine.State())
	}
}

// QueueList returns the pending mutation queue in replay order.
func QueueList(st *store.Store, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		items, err := st.ListQueue(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, items)
	}
}

// QueueRetry clears a failed item's error state and drains immediately.
func QueueRetry(engine *syncqueue.Engine, ownerID string, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := uuid.Parse(chi.URLParam(r, "itemId"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid queue item id"))
			return
		}

		if err := engine.Retry(r.Context(), id, ownerID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, engine.State())
	}
}

// QueueDismiss drops a failed item, abandoning its mutation.
func QueueDismiss(engine *syncqueue.Engine, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := uuid.Parse(chi.URLParam(r, "itemId"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid queue item id"))
			return
		}

		if err := engine.Dismiss(r.Context(), id); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"dismissed": id.String()})
	}
}

// EntitySyncError returns the newest sync failure for an entity, if any.
func EntitySyncError(engine *syncqueue.Engine, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		entityID := chi.URLParam(r, "entityId")

		syncErr, err := engine.SyncErrorFor(r.Context(), entityID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, syncErr)
	}
}

type connectivityRequest struct {
	IsOnline *bool `json:"is_online" validate:"required"`
}

// ConnectivityUpdate lets the host app report reachability changes. The
// monitor decides whether the edge triggers a drain.
func ConnectivityUpdate(notifier ConnectivityNotifier, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload connectivityRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		notifier.Notify(*payload.IsOnline)
		responses.WriteSuccess(w, map[string]bool{"is_online": *payload.IsOnline})
	}
}
