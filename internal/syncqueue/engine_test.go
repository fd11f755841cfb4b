package syncqueue

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/wycenapp/wycena-sync/internal/store"
	"github.com/wycenapp/wycena-sync/pkg/db/models"
	"github.com/wycenapp/wycena-sync/pkg/enums"
	pkgerrors "github.com/wycenapp/wycena-sync/pkg/errors"
)

func setupEngineTestDB(t *testing.T) *store.Store {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)

	require.NoError(t, db.Exec(`
CREATE TABLE IF NOT EXISTS cache_entries (
  entity_id TEXT PRIMARY KEY,
  owner_id TEXT NOT NULL,
  kind TEXT NOT NULL,
  payload TEXT NOT NULL,
  updated_at DATETIME NOT NULL,
  synced_at DATETIME
);`).Error)
	require.NoError(t, db.Exec(`
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
);`).Error)

	return store.NewStore(db)
}

type stubRemote struct {
	createClientCalls []string
	createClient      func(ctx context.Context, input models.Client) (*models.Client, error)
	updateClient      func(ctx context.Context, id string, input models.Client) (*models.Client, error)
	deleteClient      func(ctx context.Context, id string) error
	createQuote       func(ctx context.Context, input models.Quote) (*models.Quote, error)
	deleteQuote       func(ctx context.Context, id string) error
}

func (s *stubRemote) CreateQuote(ctx context.Context, input models.Quote) (*models.Quote, error) {
	if s.createQuote != nil {
		return s.createQuote(ctx, input)
	}
	out := input
	out.ID = "srv_" + input.ID
	return &out, nil
}

func (s *stubRemote) UpdateQuote(ctx context.Context, id string, input models.Quote) (*models.Quote, error) {
	panic("not implemented")
}

func (s *stubRemote) DeleteQuote(ctx context.Context, id string) error {
	if s.deleteQuote != nil {
		return s.deleteQuote(ctx, id)
	}
	return nil
}

func (s *stubRemote) CreateClient(ctx context.Context, input models.Client) (*models.Client, error) {
	s.createClientCalls = append(s.createClientCalls, input.ID)
	if s.createClient != nil {
		return s.createClient(ctx, input)
	}
	out := input
	out.ID = "srv_" + input.ID
	return &out, nil
}

func (s *stubRemote) UpdateClient(ctx context.Context, id string, input models.Client) (*models.Client, error) {
	if s.updateClient != nil {
		return s.updateClient(ctx, id, input)
	}
	out := input
	out.ID = id
	return &out, nil
}

func (s *stubRemote) DeleteClient(ctx context.Context, id string) error {
	if s.deleteClient != nil {
		return s.deleteClient(ctx, id)
	}
	return nil
}

func (s *stubRemote) ListQuotes(ctx context.Context, ownerID string) ([]models.Quote, error) {
	return nil, nil
}

func (s *stubRemote) ListClients(ctx context.Context, ownerID string) ([]models.Client, error) {
	return nil, nil
}

func (s *stubRemote) Ping(ctx context.Context) error {
	return nil
}

func newTestEngine(t *testing.T, st *store.Store, rc *stubRemote) *Engine {
	t.Helper()
	engine, err := NewEngine(Params{Store: st, Remote: rc})
	require.NoError(t, err)
	engine.SetOnline(true)
	return engine
}

func enqueueClientCreate(t *testing.T, st *store.Store, tempID, name string) {
	t.Helper()
	ctx := context.Background()
	client := models.Client{ID: tempID, OwnerID: "owner-1", FirstName: name}
	payload, err := json.Marshal(client)
	require.NoError(t, err)
	require.NoError(t, st.UpsertCacheEntry(ctx, models.CacheEntry{
		EntityID: tempID,
		OwnerID:  "owner-1",
		Kind:     enums.EntityKindClient,
		Payload:  payload,
	}))
	_, err = st.Enqueue(ctx, enums.EntityKindClient, enums.QueueActionCreate, tempID, client)
	require.NoError(t, err)
}

func TestDrainProcessesFIFO(t *testing.T) {
	st := setupEngineTestDB(t)
	rc := &stubRemote{}
	engine := newTestEngine(t, st, rc)
	ctx := context.Background()

	enqueueClientCreate(t, st, "tmp_a", "A")
	enqueueClientCreate(t, st, "tmp_b", "B")
	enqueueClientCreate(t, st, "tmp_c", "C")

	require.NoError(t, engine.Drain(ctx, "owner-1"))

	assert.Equal(t, []string{"tmp_a", "tmp_b", "tmp_c"}, rc.createClientCalls)

	items, err := st.ListQueue(ctx)
	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestDrainSkipsWhileOffline(t *testing.T) {
	st := setupEngineTestDB(t)
	rc := &stubRemote{}
	engine := newTestEngine(t, st, rc)
	engine.SetOnline(false)
	ctx := context.Background()

	enqueueClientCreate(t, st, "tmp_a", "A")

	require.NoError(t, engine.Drain(ctx, "owner-1"))
	assert.Empty(t, rc.createClientCalls)

	items, err := st.ListQueue(ctx)
	require.NoError(t, err)
	assert.Len(t, items, 1)
}

func TestDrainRetryCeiling(t *testing.T) {
	st := setupEngineTestDB(t)
	rc := &stubRemote{
		createClient: func(ctx context.Context, input models.Client) (*models.Client, error) {
			return nil, pkgerrors.New(pkgerrors.CodeRemote, "server unavailable")
		},
	}
	engine := newTestEngine(t, st, rc)
	ctx := context.Background()

	enqueueClientCreate(t, st, "tmp_a", "A")

	for i := 0; i < 3; i++ {
		err := engine.Drain(ctx, "owner-1")
		require.Error(t, err)
	}

	items, err := st.ListQueue(ctx)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, 3, items[0].RetryCount)

	// Fourth drain skips the exhausted item entirely.
	calls := len(rc.createClientCalls)
	require.NoError(t, engine.Drain(ctx, "owner-1"))
	assert.Equal(t, calls, len(rc.createClientCalls))

	items, err = st.ListQueue(ctx)
	require.NoError(t, err)
	assert.Len(t, items, 1, "exhausted item stays visible for manual handling")
}

func TestDrainFailureDoesNotBlockLaterItems(t *testing.T) {
	st := setupEngineTestDB(t)
	rc := &stubRemote{
		createClient: func(ctx context.Context, input models.Client) (*models.Client, error) {
			if input.ID == "tmp_bad" {
				return nil, pkgerrors.New(pkgerrors.CodeRemote, "boom")
			}
			out := input
			out.ID = "srv_" + input.ID
			return &out, nil
		},
	}
	engine := newTestEngine(t, st, rc)
	ctx := context.Background()

	enqueueClientCreate(t, st, "tmp_bad", "Bad")
	enqueueClientCreate(t, st, "tmp_good", "Good")

	err := engine.Drain(ctx, "owner-1")
	require.Error(t, err)

	items, listErr := st.ListQueue(ctx)
	require.NoError(t, listErr)
	require.Len(t, items, 1)
	assert.Equal(t, "tmp_bad", items[0].EntityID)

	entry, getErr := st.GetCacheEntry(ctx, "srv_tmp_good")
	require.NoError(t, getErr)
	assert.NotNil(t, entry)
}

func TestReconcileRewritesCacheEntry(t *testing.T) {
	st := setupEngineTestDB(t)
	engine := newTestEngine(t, st, &stubRemote{})
	ctx := context.Background()

	enqueueClientCreate(t, st, "temp_abc", "Jan")

	server := models.Client{ID: "srv_123", OwnerID: "owner-1", FirstName: "Jan"}
	require.NoError(t, engine.Reconcile(ctx, "temp_abc", enums.EntityKindClient, server.OwnerID, server.ID, server))

	stale, err := st.GetCacheEntry(ctx, "temp_abc")
	require.NoError(t, err)
	assert.Nil(t, stale)

	entry, err := st.GetCacheEntry(ctx, "srv_123")
	require.NoError(t, err)
	require.NotNil(t, entry)
	require.NotNil(t, entry.SyncedAt)

	var cached models.Client
	require.NoError(t, json.Unmarshal(entry.Payload, &cached))
	assert.Equal(t, server, cached)
}

func TestOfflineCreateThenReconnectEndToEnd(t *testing.T) {
	st := setupEngineTestDB(t)
	rc := &stubRemote{
		createClient: func(ctx context.Context, input models.Client) (*models.Client, error) {
			out := input
			out.ID = "srv_777"
			return &out, nil
		},
	}
	engine := newTestEngine(t, st, rc)
	engine.SetOnline(false)
	ctx := context.Background()

	enqueueClientCreate(t, st, "tmp_jan", "Jan")
	require.NoError(t, engine.RefreshPending(ctx))
	assert.Equal(t, int64(1), engine.State().PendingCount)

	engine.SetOnline(true)
	require.NoError(t, engine.Drain(ctx, "owner-1"))

	state := engine.State()
	assert.Equal(t, int64(0), state.PendingCount)
	assert.NotNil(t, state.LastDrainedAt)

	stale, err := st.GetCacheEntry(ctx, "tmp_jan")
	require.NoError(t, err)
	assert.Nil(t, stale)

	entry, err := st.GetCacheEntry(ctx, "srv_777")
	require.NoError(t, err)
	require.NotNil(t, entry)

	var cached models.Client
	require.NoError(t, json.Unmarshal(entry.Payload, &cached))
	assert.Equal(t, "Jan", cached.FirstName)
}

func TestSyncErrorForAndDismiss(t *testing.T) {
	st := setupEngineTestDB(t)
	rc := &stubRemote{
		deleteClient: func(ctx context.Context, id string) error {
			return pkgerrors.New(pkgerrors.CodeRemote, "delete rejected")
		},
	}
	engine := newTestEngine(t, st, rc)
	ctx := context.Background()

	id, err := st.Enqueue(ctx, enums.EntityKindClient, enums.QueueActionDelete, "c-1", DeletePayload{ID: "c-1"})
	require.NoError(t, err)

	require.Error(t, engine.Drain(ctx, "owner-1"))

	syncErr, err := engine.SyncErrorFor(ctx, "c-1")
	require.NoError(t, err)
	require.NotNil(t, syncErr)
	assert.Equal(t, id, syncErr.QueueItemID)
	assert.Equal(t, "REMOTE_ERROR: delete rejected", syncErr.Message)
	assert.Equal(t, 1, syncErr.RetryCount)

	require.NoError(t, engine.Dismiss(ctx, id))

	items, err := st.ListQueue(ctx)
	require.NoError(t, err)
	assert.Empty(t, items)
	assert.Equal(t, int64(0), engine.State().PendingCount)
}

func TestRetryClearsErrorAndDrains(t *testing.T) {
	st := setupEngineTestDB(t)
	attempts := 0
	rc := &stubRemote{
		createClient: func(ctx context.Context, input models.Client) (*models.Client, error) {
			attempts++
			if attempts <= 3 {
				return nil, pkgerrors.New(pkgerrors.CodeRemote, "flaky")
			}
			out := input
			out.ID = "srv_ok"
			return &out, nil
		},
	}
	engine := newTestEngine(t, st, rc)
	ctx := context.Background()

	enqueueClientCreate(t, st, "tmp_x", "X")

	for i := 0; i < 3; i++ {
		require.Error(t, engine.Drain(ctx, "owner-1"))
	}

	items, err := st.ListQueue(ctx)
	require.NoError(t, err)
	require.Len(t, items, 1)
	require.Equal(t, 3, items[0].RetryCount)

	require.NoError(t, engine.Retry(ctx, items[0].ID, "owner-1"))

	items, err = st.ListQueue(ctx)
	require.NoError(t, err)
	assert.Empty(t, items)

	entry, err := st.GetCacheEntry(ctx, "srv_ok")
	require.NoError(t, err)
	assert.NotNil(t, entry)
}

func TestReplayUnsupportedCombinationFailsPermanently(t *testing.T) {
	st := setupEngineTestDB(t)
	engine := newTestEngine(t, st, &stubRemote{})
	ctx := context.Background()

	_, err := st.Enqueue(ctx, enums.EntityKindQuote, enums.QueueActionUpdate, "q-1", map[string]string{"id": "q-1"})
	require.NoError(t, err)

	require.Error(t, engine.Drain(ctx, "owner-1"))

	items, listErr := st.ListQueue(ctx)
	require.NoError(t, listErr)
	require.Len(t, items, 1)
	assert.Equal(t, 1, items[0].RetryCount)
}
