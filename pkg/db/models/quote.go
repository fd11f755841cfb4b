package models

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/wycenapp/wycena-sync/pkg/enums"
)

// Quote is the aggregate a tradesperson builds for a client: groups of
// services plus loose materials. Total is derived from the pricing engine
// and cached here; it is never an independent source of truth.
type Quote struct {
	ID             string            `json:"id"`
	OwnerID        string            `json:"owner_id"`
	ClientID       *string           `json:"client_id,omitempty"`
	Number         int               `json:"number"`
	Status         enums.QuoteStatus `json:"status"`
	NotesBefore    string            `json:"notes_before,omitempty"`
	NotesAfter     string            `json:"notes_after,omitempty"`
	Disclaimer     string            `json:"disclaimer,omitempty"`
	ShowDisclaimer bool              `json:"show_disclaimer"`
	Total          decimal.Decimal   `json:"total"`
	Groups         []Group           `json:"groups"`
	Materials      []Material        `json:"materials"`
	CreatedAt      time.Time         `json:"created_at"`
	UpdatedAt      time.Time         `json:"updated_at"`
	SyncedAt       *time.Time        `json:"synced_at,omitempty"`
}

// Group is a named room or section of a quote. Geometry comes either from
// full dimensions or from manual per-measure overrides; ManualM2 is the
// legacy single override kept for older quotes.
type Group struct {
	ID      string `json:"id"`
	QuoteID string `json:"quote_id"`
	Name    string `json:"name"`

	Length *float64 `json:"length,omitempty"`
	Width  *float64 `json:"width,omitempty"`
	Height *float64 `json:"height,omitempty"`

	FloorM2   *float64 `json:"floor_m2,omitempty"`
	CeilingM2 *float64 `json:"ceiling_m2,omitempty"`
	WallsM2   *float64 `json:"walls_m2,omitempty"`

	ManualFloor     *float64 `json:"manual_floor,omitempty"`
	ManualCeiling   *float64 `json:"manual_ceiling,omitempty"`
	ManualWalls     *float64 `json:"manual_walls,omitempty"`
	ManualPerimeter *float64 `json:"manual_perimeter,omitempty"`
	ManualM2        *float64 `json:"manual_m2,omitempty"`

	SortOrder int           `json:"sort_order"`
	Services  []ServiceLine `json:"services"`
}

// ServiceLine is a billable service inside a group. Quantity holds the
// manually entered fallback; the billable quantity is resolved from
// QuantitySource against the group's geometry.
type ServiceLine struct {
	ID             string               `json:"id"`
	GroupID        string               `json:"group_id"`
	Name           string               `json:"name"`
	Quantity       float64              `json:"quantity"`
	Unit           string               `json:"unit"`
	PricePerUnit   decimal.Decimal      `json:"price_per_unit"`
	Total          decimal.Decimal      `json:"total"`
	QuantitySource enums.QuantitySource `json:"quantity_source"`
	SortOrder      int                  `json:"sort_order"`
}

// Material is a loose line item on a quote, optionally tagged to one group.
type Material struct {
	ID           string          `json:"id"`
	QuoteID      string          `json:"quote_id"`
	GroupID      *string         `json:"group_id,omitempty"`
	Name         string          `json:"name"`
	Quantity     float64         `json:"quantity"`
	Unit         string          `json:"unit"`
	PricePerUnit decimal.Decimal `json:"price_per_unit"`
	Total        decimal.Decimal `json:"total"`
	SortOrder    int             `json:"sort_order"`
}
