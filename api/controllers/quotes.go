package controllers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/wycenapp/wycena-sync/api/responses"
	"github.com/wycenapp/wycena-sync/api/validators"
	"github.com/wycenapp/wycena-sync/internal/quotes"
	"github.com/wycenapp/wycena-sync/pkg/db/models"
	"github.com/wycenapp/wycena-sync/pkg/enums"
	pkgerrors "github.com/wycenapp/wycena-sync/pkg/errors"
	"github.com/wycenapp/wycena-sync/pkg/logger"
)

type serviceLineRequest struct {
	ID             string          `json:"id"`
	Name           string          `json:"name" validate:"required"`
	Quantity       float64         `json:"quantity"`
	Unit           string          `json:"unit"`
	PricePerUnit   decimal.Decimal `json:"price_per_unit"`
	QuantitySource string          `json:"quantity_source" validate:"required"`
	SortOrder      int             `json:"sort_order"`
}

type groupRequest struct {
	ID   string `json:"id"`
	Name string `json:"name" validate:"required"`

	Length *float64 `json:"length,omitempty"`
	Width  *float64 `json:"width,omitempty"`
	Height *float64 `json:"height,omitempty"`

	ManualFloor     *float64 `json:"manual_floor,omitempty"`
	ManualCeiling   *float64 `json:"manual_ceiling,omitempty"`
	ManualWalls     *float64 `json:"manual_walls,omitempty"`
	ManualPerimeter *float64 `json:"manual_perimeter,omitempty"`
	ManualM2        *float64 `json:"manual_m2,omitempty"`

	SortOrder int                  `json:"sort_order"`
	Services  []serviceLineRequest `json:"services" validate:"dive"`
}

type materialRequest struct {
	ID           string          `json:"id"`
	GroupID      *string         `json:"group_id,omitempty"`
	Name         string          `json:"name" validate:"required"`
	Quantity     float64         `json:"quantity"`
	Unit         string          `json:"unit"`
	PricePerUnit decimal.Decimal `json:"price_per_unit"`
	SortOrder    int             `json:"sort_order"`
}

type quoteRequest struct {
	ClientID       *string           `json:"client_id,omitempty"`
	Status         string            `json:"status"`
	NotesBefore    string            `json:"notes_before"`
	NotesAfter     string            `json:"notes_after"`
	Disclaimer     string            `json:"disclaimer"`
	ShowDisclaimer bool              `json:"show_disclaimer"`
	Groups         []groupRequest    `json:"groups" validate:"dive"`
	Materials      []materialRequest `json:"materials" validate:"dive"`
}

func (r quoteRequest) toModel(ownerID string) (models.Quote, error) {
	quote := models.Quote{
		OwnerID:        ownerID,
		ClientID:       r.ClientID,
		NotesBefore:    r.NotesBefore,
		NotesAfter:     r.NotesAfter,
		Disclaimer:     r.Disclaimer,
		ShowDisclaimer: r.ShowDisclaimer,
	}

	if r.Status != "" {
		status, err := enums.ParseQuoteStatus(strings.TrimSpace(r.Status))
		if err != nil {
			return models.Quote{}, pkgerrors.New(pkgerrors.CodeValidation, "invalid quote status")
		}
		quote.Status = status
	}

	for _, g := range r.Groups {
		group := models.Group{
			ID:              g.ID,
			Name:            strings.TrimSpace(g.Name),
			Length:          g.Length,
			Width:           g.Width,
			Height:          g.Height,
			ManualFloor:     g.ManualFloor,
			ManualCeiling:   g.ManualCeiling,
			ManualWalls:     g.ManualWalls,
			ManualPerimeter: g.ManualPerimeter,
			ManualM2:        g.ManualM2,
			SortOrder:       g.SortOrder,
		}
		for _, s := range g.Services {
			source, err := enums.ParseQuantitySource(strings.TrimSpace(s.QuantitySource))
			if err != nil {
				return models.Quote{}, pkgerrors.New(pkgerrors.CodeValidation, "invalid quantity source")
			}
			group.Services = append(group.Services, models.ServiceLine{
				ID:             s.ID,
				Name:           strings.TrimSpace(s.Name),
				Quantity:       s.Quantity,
				Unit:           s.Unit,
				PricePerUnit:   s.PricePerUnit,
				QuantitySource: source,
				SortOrder:      s.SortOrder,
			})
		}
		quote.Groups = append(quote.Groups, group)
	}

	for _, m := range r.Materials {
		quote.Materials = append(quote.Materials, models.Material{
			ID:           m.ID,
			GroupID:      m.GroupID,
			Name:         strings.TrimSpace(m.Name),
			Quantity:     m.Quantity,
			Unit:         m.Unit,
			PricePerUnit: m.PricePerUnit,
			SortOrder:    m.SortOrder,
		})
	}

	return quote, nil
}

// QuoteCreate handles creating a quote, online or queued.
func QuoteCreate(svc quotes.Service, ownerID string, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload quoteRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		input, err := payload.toModel(ownerID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		created, err := svc.Create(r.Context(), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, created)
	}
}

// QuoteUpdate handles editing a quote. Synced quotes require connectivity.
func QuoteUpdate(svc quotes.Service, ownerID string, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "quoteId")
		if id == "" {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "quote id is required"))
			return
		}

		var payload quoteRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		input, err := payload.toModel(ownerID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		updated, err := svc.Update(r.Context(), id, input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, updated)
	}
}

// QuoteDelete removes a quote locally and on the server.
func QuoteDelete(svc quotes.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "quoteId")
		if id == "" {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "quote id is required"))
			return
		}

		if err := svc.Delete(r.Context(), id); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]string{"deleted": id})
	}
}

// QuoteGet returns one cached quote.
func QuoteGet(svc quotes.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "quoteId")

		quote, err := svc.Get(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if quote == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeNotFound, "quote not found"))
			return
		}

		responses.WriteSuccess(w, quote)
	}
}

// QuoteList returns the owner's cached quotes.
func QuoteList(svc quotes.Service, ownerID string, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		list, err := svc.List(r.Context(), ownerID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, list)
	}
}

// QuoteRefresh pulls the server's quote list into the local cache.
func QuoteRefresh(svc quotes.Service, ownerID string, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := svc.Refresh(r.Context(), ownerID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]string{"status": "refreshed"})
	}
}

// QuotePreview recalculates totals for an unsaved quote. Nothing persists.
func QuotePreview(svc quotes.Service, ownerID string, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload quoteRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		input, err := payload.toModel(ownerID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, svc.Preview(input))
	}
}
