package quotes

import (
	"context"
	"fmt"
	"io"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/wycenapp/wycena-sync/internal/store"
	"github.com/wycenapp/wycena-sync/internal/syncqueue"
	"github.com/wycenapp/wycena-sync/pkg/db/models"
	"github.com/wycenapp/wycena-sync/pkg/enums"
	pkgerrors "github.com/wycenapp/wycena-sync/pkg/errors"
	"github.com/wycenapp/wycena-sync/pkg/logger"
)

type stubRemote struct {
	createQuoteFunc func(ctx context.Context, input models.Quote) (*models.Quote, error)
	updateQuoteFunc func(ctx context.Context, id string, input models.Quote) (*models.Quote, error)
	deleteQuoteFunc func(ctx context.Context, id string) error
	listQuotesFunc  func(ctx context.Context, ownerID string) ([]models.Quote, error)
}

func (s *stubRemote) CreateQuote(ctx context.Context, input models.Quote) (*models.Quote, error) {
	if s.createQuoteFunc != nil {
		return s.createQuoteFunc(ctx, input)
	}
	return nil, fmt.Errorf("unexpected CreateQuote")
}

func (s *stubRemote) UpdateQuote(ctx context.Context, id string, input models.Quote) (*models.Quote, error) {
	if s.updateQuoteFunc != nil {
		return s.updateQuoteFunc(ctx, id, input)
	}
	return nil, fmt.Errorf("unexpected UpdateQuote")
}

func (s *stubRemote) DeleteQuote(ctx context.Context, id string) error {
	if s.deleteQuoteFunc != nil {
		return s.deleteQuoteFunc(ctx, id)
	}
	return fmt.Errorf("unexpected DeleteQuote")
}

func (s *stubRemote) CreateClient(ctx context.Context, input models.Client) (*models.Client, error) {
	return nil, fmt.Errorf("unexpected CreateClient")
}

func (s *stubRemote) UpdateClient(ctx context.Context, id string, input models.Client) (*models.Client, error) {
	return nil, fmt.Errorf("unexpected UpdateClient")
}

func (s *stubRemote) DeleteClient(ctx context.Context, id string) error {
	return fmt.Errorf("unexpected DeleteClient")
}

func (s *stubRemote) ListQuotes(ctx context.Context, ownerID string) ([]models.Quote, error) {
	if s.listQuotesFunc != nil {
		return s.listQuotesFunc(ctx, ownerID)
	}
	return nil, fmt.Errorf("unexpected ListQuotes")
}

func (s *stubRemote) ListClients(ctx context.Context, ownerID string) ([]models.Client, error) {
	return nil, fmt.Errorf("unexpected ListClients")
}

func (s *stubRemote) Ping(ctx context.Context) error { return nil }

type stubEngine struct {
	online       bool
	refreshCalls int
}

func (s *stubEngine) State() syncqueue.SyncState {
	return syncqueue.SyncState{IsOnline: s.online}
}

func (s *stubEngine) RefreshPending(ctx context.Context) error {
	s.refreshCalls++
	return nil
}

func setupQuoteTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:quotes_%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)

	cacheEntries := `
CREATE TABLE IF NOT EXISTS cache_entries (
  entity_id TEXT PRIMARY KEY,
  owner_id TEXT NOT NULL,
  kind TEXT NOT NULL,
  payload TEXT NOT NULL,
  updated_at DATETIME NOT NULL,
  synced_at DATETIME
);`
	queueItems := `
CREATE TABLE IF NOT EXISTS queue_items (
  id TEXT PRIMARY KEY,
  kind TEXT NOT NULL,
  action TEXT NOT NULL,
  entity_id TEXT NOT NULL,
  payload TEXT NOT NULL,
  created_at DATETIME NOT NULL,
  retry_count INTEGER NOT NULL DEFAULT 0,
  last_error TEXT,
  failed_at DATETIME
);`

	require.NoError(t, db.Exec(cacheEntries).Error)
	require.NoError(t, db.Exec(queueItems).Error)
	return db
}

func setupQuoteService(t *testing.T, rc *stubRemote, engine *stubEngine) (Service, *store.Store) {
	t.Helper()
	st := store.NewStore(setupQuoteTestDB(t))
	svc, err := NewService(st, rc, engine, logger.New(logger.Options{ServiceName: "quotes-test", Output: io.Discard}))
	require.NoError(t, err)
	return svc, st
}

func f(v float64) *float64 { return &v }

func wallsQuoteInput() models.Quote {
	return models.Quote{
		OwnerID: "owner-1",
		Groups: []models.Group{
			{
				Name:   "Living room",
				Length: f(5), Width: f(4), Height: f(2.5),
				Services: []models.ServiceLine{
					{
						Name:           "Painting",
						Unit:           "m2",
						PricePerUnit:   decimal.NewFromInt(30),
						QuantitySource: enums.QuantitySourceWalls,
					},
				},
			},
		},
	}
}

func TestCreateOfflineRecalculatesAndQueues(t *testing.T) {
	svc, st := setupQuoteService(t, &stubRemote{}, &stubEngine{online: false})
	ctx := context.Background()

	quote, err := svc.Create(ctx, wallsQuoteInput())
	require.NoError(t, err)

	assert.True(t, models.IsTempID(quote.ID))
	assert.Equal(t, enums.QuoteStatusDraft, quote.Status)
	assert.Zero(t, quote.Number)
	assert.Equal(t, "1350", quote.Total.StringFixed(0))
	require.Len(t, quote.Groups, 1)
	assert.NotEmpty(t, quote.Groups[0].ID)
	assert.Equal(t, quote.ID, quote.Groups[0].QuoteID)
	require.NotNil(t, quote.Groups[0].WallsM2)
	assert.InDelta(t, 45.0, *quote.Groups[0].WallsM2, 1e-9)

	items, err := st.ListQueue(ctx)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, enums.EntityKindQuote, items[0].Kind)
	assert.Equal(t, enums.QueueActionCreate, items[0].Action)
}

func TestCreateOnlineUsesServerNumberAndID(t *testing.T) {
	rc := &stubRemote{
		createQuoteFunc: func(ctx context.Context, input models.Quote) (*models.Quote, error) {
			created := input
			created.ID = "srv_q1"
			created.Number = 17
			return &created, nil
		},
	}
	svc, st := setupQuoteService(t, rc, &stubEngine{online: true})
	ctx := context.Background()

	quote, err := svc.Create(ctx, wallsQuoteInput())
	require.NoError(t, err)
	assert.Equal(t, "srv_q1", quote.ID)
	assert.Equal(t, 17, quote.Number)

	cached, err := svc.Get(ctx, "srv_q1")
	require.NoError(t, err)
	require.NotNil(t, cached)
	assert.NotNil(t, cached.SyncedAt)

	count, err := st.PendingCount(ctx)
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestCreateOnlineFallsBackToQueueOnRemoteError(t *testing.T) {
	rc := &stubRemote{
		createQuoteFunc: func(ctx context.Context, input models.Quote) (*models.Quote, error) {
			return nil, pkgerrors.New(pkgerrors.CodeRemote, "upstream unavailable")
		},
	}
	svc, st := setupQuoteService(t, rc, &stubEngine{online: true})
	ctx := context.Background()

	quote, err := svc.Create(ctx, wallsQuoteInput())
	require.NoError(t, err)
	assert.True(t, models.IsTempID(quote.ID))

	count, err := st.PendingCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}

func TestUpdateSyncedQuoteOfflineFails(t *testing.T) {
	rc := &stubRemote{
		listQuotesFunc: func(ctx context.Context, ownerID string) ([]models.Quote, error) {
			return []models.Quote{{ID: "srv_q1", OwnerID: ownerID, Status: enums.QuoteStatusDraft}}, nil
		},
	}
	engine := &stubEngine{online: true}
	svc, _ := setupQuoteService(t, rc, engine)
	ctx := context.Background()

	require.NoError(t, svc.Refresh(ctx, "owner-1"))
	engine.online = false

	_, err := svc.Update(ctx, "srv_q1", wallsQuoteInput())
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeOffline, pkgerrors.As(err).Code())
}

func TestUpdateSyncedQuoteOnlineConfirms(t *testing.T) {
	rc := &stubRemote{
		listQuotesFunc: func(ctx context.Context, ownerID string) ([]models.Quote, error) {
			return []models.Quote{{ID: "srv_q1", OwnerID: ownerID, Number: 3, Status: enums.QuoteStatusDraft}}, nil
		},
		updateQuoteFunc: func(ctx context.Context, id string, input models.Quote) (*models.Quote, error) {
			confirmed := input
			return &confirmed, nil
		},
	}
	svc, _ := setupQuoteService(t, rc, &stubEngine{online: true})
	ctx := context.Background()

	require.NoError(t, svc.Refresh(ctx, "owner-1"))

	updated, err := svc.Update(ctx, "srv_q1", wallsQuoteInput())
	require.NoError(t, err)
	assert.Equal(t, "srv_q1", updated.ID)
	assert.Equal(t, 3, updated.Number)
	assert.Equal(t, "1350", updated.Total.StringFixed(0))

	cached, err := svc.Get(ctx, "srv_q1")
	require.NoError(t, err)
	require.NotNil(t, cached)
	assert.NotNil(t, cached.SyncedAt)
}

func TestUpdatePendingQuoteFoldsIntoQueuedCreate(t *testing.T) {
	svc, st := setupQuoteService(t, &stubRemote{}, &stubEngine{online: false})
	ctx := context.Background()

	quote, err := svc.Create(ctx, wallsQuoteInput())
	require.NoError(t, err)

	edited := wallsQuoteInput()
	edited.Groups[0].Services[0].PricePerUnit = decimal.NewFromInt(40)

	updated, err := svc.Update(ctx, quote.ID, edited)
	require.NoError(t, err)
	assert.Equal(t, "1800", updated.Total.StringFixed(0))

	items, err := st.ListQueue(ctx)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, enums.QueueActionCreate, items[0].Action)
	assert.Contains(t, string(items[0].Payload), "1800")
}

func TestDeletePendingQuoteDropsQueuedCreate(t *testing.T) {
	svc, st := setupQuoteService(t, &stubRemote{}, &stubEngine{online: false})
	ctx := context.Background()

	quote, err := svc.Create(ctx, wallsQuoteInput())
	require.NoError(t, err)

	require.NoError(t, svc.Delete(ctx, quote.ID))

	count, err := st.PendingCount(ctx)
	require.NoError(t, err)
	assert.Zero(t, count)

	cached, err := svc.Get(ctx, quote.ID)
	require.NoError(t, err)
	assert.Nil(t, cached)
}

func TestDeleteSyncedQuoteOfflineQueuesDelete(t *testing.T) {
	rc := &stubRemote{
		listQuotesFunc: func(ctx context.Context, ownerID string) ([]models.Quote, error) {
			return []models.Quote{{ID: "srv_q1", OwnerID: ownerID, Status: enums.QuoteStatusSent}}, nil
		},
	}
	engine := &stubEngine{online: true}
	svc, st := setupQuoteService(t, rc, engine)
	ctx := context.Background()

	require.NoError(t, svc.Refresh(ctx, "owner-1"))
	engine.online = false

	require.NoError(t, svc.Delete(ctx, "srv_q1"))

	items, err := st.ListQueue(ctx)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, enums.QueueActionDelete, items[0].Action)
	assert.Equal(t, "srv_q1", items[0].EntityID)
}

func TestPreviewDoesNotPersist(t *testing.T) {
	svc, st := setupQuoteService(t, &stubRemote{}, &stubEngine{online: false})

	preview := svc.Preview(wallsQuoteInput())
	assert.Equal(t, "1350", preview.Total.StringFixed(0))

	count, err := st.PendingCount(context.Background())
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestListReturnsOwnersQuotes(t *testing.T) {
	svc, _ := setupQuoteService(t, &stubRemote{}, &stubEngine{online: false})
	ctx := context.Background()

	_, err := svc.Create(ctx, wallsQuoteInput())
	require.NoError(t, err)

	other := wallsQuoteInput()
	other.OwnerID = "owner-2"
	_, err = svc.Create(ctx, other)
	require.NoError(t, err)

	quotes, err := svc.List(ctx, "owner-1")
	require.NoError(t, err)
	require.Len(t, quotes, 1)
	assert.Equal(t, "owner-1", quotes[0].OwnerID)
}

func TestCreateInvalidStatusRejected(t *testing.T) {
	svc, _ := setupQuoteService(t, &stubRemote{}, &stubEngine{online: false})

	input := wallsQuoteInput()
	input.Status = enums.QuoteStatus("archived")

	_, err := svc.Create(context.Background(), input)
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.As(err).Code())
}
