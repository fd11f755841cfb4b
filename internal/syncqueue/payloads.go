package syncqueue

import "github.com/wycenapp/wycena-sync/pkg/db/models"

// Create payloads carry the full optimistic entity, including the locally
// minted temp id the server never stores.

// DeletePayload identifies the entity a queued delete targets.
type DeletePayload struct {
	ID string `json:"id"`
}

// ClientUpdatePayload carries a queued client update.
type ClientUpdatePayload struct {
	ID   string        `json:"id"`
	Data models.Client `json:"data"`
}
