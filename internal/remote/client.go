package remote

import (
	"context"

	"github.com/wycenapp/wycena-sync/pkg/db/models"
)

// Client is the mutation surface of the remote quoting API. Creates return
// the authoritative persisted entity (server-assigned id, quote number);
// every call fails with an error rather than a partial result.
type Client interface {
	CreateQuote(ctx context.Context, input models.Quote) (*models.Quote, error)
	UpdateQuote(ctx context.Context, id string, input models.Quote) (*models.Quote, error)
	DeleteQuote(ctx context.Context, id string) error

	CreateClient(ctx context.Context, input models.Client) (*models.Client, error)
	UpdateClient(ctx context.Context, id string, input models.Client) (*models.Client, error)
	DeleteClient(ctx context.Context, id string) error

	ListQuotes(ctx context.Context, ownerID string) ([]models.Quote, error)
	ListClients(ctx context.Context, ownerID string) ([]models.Client, error)

	Ping(ctx context.Context) error
}
