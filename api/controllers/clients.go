package controllers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/wycenapp/wycena-sync/api/responses"
	"github.com/wycenapp/wycena-sync/api/validators"
	"github.com/wycenapp/wycena-sync/internal/clients"
	pkgerrors "github.com/wycenapp/wycena-sync/pkg/errors"
	"github.com/wycenapp/wycena-sync/pkg/logger"
)

type clientCreateRequest struct {
	FirstName string  `json:"first_name" validate:"required"`
	LastName  string  `json:"last_name"`
	Phone     *string `json:"phone,omitempty"`
	Address   *string `json:"address,omitempty"`
	Notes     *string `json:"notes,omitempty"`
}

type clientUpdateRequest struct {
	FirstName string  `json:"first_name" validate:"required"`
	LastName  string  `json:"last_name"`
	Phone     *string `json:"phone,omitempty"`
	Address   *string `json:"address,omitempty"`
	Notes     *string `json:"notes,omitempty"`
}

// ClientCreate handles creating a client, online or queued.
func ClientCreate(svc clients.Service, ownerID string, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload clientCreateRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		created, err := svc.Create(r.Context(), clients.CreateInput{
			OwnerID:   ownerID,
			FirstName: strings.TrimSpace(payload.FirstName),
			LastName:  strings.TrimSpace(payload.LastName),
			Phone:     payload.Phone,
			Address:   payload.Address,
			Notes:     payload.Notes,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, created)
	}
}

// ClientUpdate handles editing a client.
func ClientUpdate(svc clients.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "clientId")
		if id == "" {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "client id is required"))
			return
		}

		var payload clientUpdateRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		updated, err := svc.Update(r.Context(), id, clients.UpdateInput{
			FirstName: strings.TrimSpace(payload.FirstName),
			LastName:  strings.TrimSpace(payload.LastName),
			Phone:     payload.Phone,
			Address:   payload.Address,
			Notes:     payload.Notes,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, updated)
	}
}

// ClientDelete removes a client locally and on the server.
func ClientDelete(svc clients.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "clientId")
		if id == "" {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "client id is required"))
			return
		}

		if err := svc.Delete(r.Context(), id); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]string{"deleted": id})
	}
}

// ClientGet returns one cached client.
func ClientGet(svc clients.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "clientId")

		client, err := svc.Get(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if client == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeNotFound, "client not found"))
			return
		}

		responses.WriteSuccess(w, client)
	}
}

// ClientList returns the owner's cached clients.
func ClientList(svc clients.Service, ownerID string, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		list, err := svc.List(r.Context(), ownerID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, list)
	}
}

// ClientRefresh pulls the server's client list into the local cache.
func ClientRefresh(svc clients.Service, ownerID string, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := svc.Refresh(r.Context(), ownerID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]string{"status": "refreshed"})
	}
}
