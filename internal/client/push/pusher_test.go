package push

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"syscall"
	"testing"

	"github.com/dmitrijs2005/stackpad/internal/api"
	"github.com/dmitrijs2005/stackpad/internal/client/eventlog"
	"github.com/dmitrijs2005/stackpad/internal/client/models"
	"github.com/dmitrijs2005/stackpad/internal/client/netx"
	"github.com/dmitrijs2005/stackpad/internal/dbx"
	"github.com/dmitrijs2005/stackpad/internal/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	_ "modernc.org/sqlite"
)

func testLogger() logging.Logger {
	return logging.NewSlogLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func setupDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	_, err = db.Exec(`
CREATE TABLE events (
  seq INTEGER PRIMARY KEY AUTOINCREMENT,
  id TEXT NOT NULL UNIQUE,
  type TEXT NOT NULL,
  entity_id TEXT NULL,
  payload BLOB NOT NULL,
  payload_version INTEGER NOT NULL,
  origin_user_id TEXT NOT NULL,
  origin_device_id TEXT NOT NULL,
  ts TIMESTAMP NOT NULL,
  synced INTEGER NOT NULL DEFAULT 0,
  synced_at TIMESTAMP NULL
);
`)
	require.NoError(t, err)

	return db
}

// fakeAPI records pushed batches and acknowledges according to ackFn.
type fakeAPI struct {
	calls   int
	batches [][]api.WireEvent
	ackFn   func(events []api.WireEvent) ([]string, error)
}

func (f *fakeAPI) Register(ctx context.Context, username, password string) error { return nil }
func (f *fakeAPI) Login(ctx context.Context, username, password string) error    { return nil }
func (f *fakeAPI) Ping(ctx context.Context) error                                { return nil }

func (f *fakeAPI) PushEvents(ctx context.Context, events []api.WireEvent) ([]string, error) {
	f.calls++
	f.batches = append(f.batches, events)
	return f.ackFn(events)
}

func (f *fakeAPI) PullEvents(ctx context.Context, cursor int64) ([]api.WireEvent, int64, error) {
	return nil, cursor, nil
}

func (f *fakeAPI) RequestUploadTarget(ctx context.Context, filename, mimeType string, sizeBytes int64) (*api.UploadTargetResponse, error) {
	return nil, errors.New("not implemented")
}

func (f *fakeAPI) ResolveDownloadURL(ctx context.Context, storageKey string) (string, error) {
	return "", errors.New("not implemented")
}

func onlineChecker() *netx.Checker {
	return netx.NewChecker(netx.WithProbeFunc(func(ctx context.Context) bool { return true }))
}

func offlineChecker() *netx.Checker {
	return netx.NewChecker(netx.WithProbeFunc(func(ctx context.Context) bool { return false }))
}

func appendEvents(t *testing.T, log *eventlog.Log, db *sql.DB, n int) []*models.Event {
	t.Helper()
	ctx := context.Background()
	out := make([]*models.Event, 0, n)
	err := dbx.WithTx(ctx, db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		for i := 0; i < n; i++ {
			id := fmt.Sprintf("s%d", i)
			e, err := log.Append(ctx, tx, models.EventStackCreated, id, models.Payload{
				Kind:  models.SnapshotStack,
				Stack: &models.StackState{ID: id, Title: "t", Status: models.StackStatusOpen},
			})
			if err != nil {
				return err
			}
			out = append(out, e)
		}
		return nil
	})
	require.NoError(t, err)
	return out
}

func TestPushPending_MarksOnlyAckedSynced(t *testing.T) {
	db := setupDB(t)
	log := eventlog.New(db, eventlog.Origin{UserID: "u1", DeviceID: "d1"})
	evs := appendEvents(t, log, db, 3)

	// The server acks everything except the middle event.
	f := &fakeAPI{ackFn: func(events []api.WireEvent) ([]string, error) {
		var acked []string
		for _, e := range events {
			if e.EventID != evs[1].ID {
				acked = append(acked, e.EventID)
			}
		}
		return acked, nil
	}}

	p := New(log, f, onlineChecker(), testLogger())
	n, err := p.PushPending(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	pending, err := log.Pending(context.Background())
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, evs[1].ID, pending[0].ID)
}

func TestPushPending_NothingToDo(t *testing.T) {
	db := setupDB(t)
	log := eventlog.New(db, eventlog.Origin{UserID: "u1", DeviceID: "d1"})
	f := &fakeAPI{ackFn: func(events []api.WireEvent) ([]string, error) { return nil, nil }}

	p := New(log, f, onlineChecker(), testLogger())
	n, err := p.PushPending(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Zero(t, f.calls)
}

func TestPushPending_SplitsIntoBatches(t *testing.T) {
	db := setupDB(t)
	log := eventlog.New(db, eventlog.Origin{UserID: "u1", DeviceID: "d1"})
	appendEvents(t, log, db, defaultBatchSize+10)

	f := &fakeAPI{ackFn: func(events []api.WireEvent) ([]string, error) {
		ids := make([]string, len(events))
		for i, e := range events {
			ids[i] = e.EventID
		}
		return ids, nil
	}}

	p := New(log, f, onlineChecker(), testLogger())
	n, err := p.PushPending(context.Background())
	require.NoError(t, err)
	assert.Equal(t, defaultBatchSize+10, n)
	require.Equal(t, 2, f.calls)
	assert.Len(t, f.batches[0], defaultBatchSize)
	assert.Len(t, f.batches[1], 10)

	pending, err := log.Pending(context.Background())
	require.NoError(t, err)
	assert.Empty(t, pending)
}

func TestPushPending_OfflineDefersQuietly(t *testing.T) {
	db := setupDB(t)
	log := eventlog.New(db, eventlog.Origin{UserID: "u1", DeviceID: "d1"})
	appendEvents(t, log, db, 2)

	f := &fakeAPI{ackFn: func(events []api.WireEvent) ([]string, error) {
		return nil, syscall.ECONNREFUSED
	}}

	p := New(log, f, offlineChecker(), testLogger())
	n, err := p.PushPending(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Equal(t, 1, f.calls)

	pending, err := log.Pending(context.Background())
	require.NoError(t, err)
	assert.Len(t, pending, 2)
}

func TestPushPending_ServerErrorSurfaces(t *testing.T) {
	db := setupDB(t)
	log := eventlog.New(db, eventlog.Origin{UserID: "u1", DeviceID: "d1"})
	appendEvents(t, log, db, 1)

	f := &fakeAPI{ackFn: func(events []api.WireEvent) ([]string, error) {
		return nil, errors.New("boom")
	}}

	p := New(log, f, onlineChecker(), testLogger())
	_, err := p.PushPending(context.Background())
	require.Error(t, err)

	pending, perr := log.Pending(context.Background())
	require.NoError(t, perr)
	assert.Len(t, pending, 1)
}

func TestPushPending_RetriesTransientFailure(t *testing.T) {
	db := setupDB(t)
	log := eventlog.New(db, eventlog.Origin{UserID: "u1", DeviceID: "d1"})
	appendEvents(t, log, db, 1)

	f := &fakeAPI{}
	f.ackFn = func(events []api.WireEvent) ([]string, error) {
		if f.calls == 1 {
			return nil, syscall.ECONNRESET
		}
		ids := make([]string, len(events))
		for i, e := range events {
			ids[i] = e.EventID
		}
		return ids, nil
	}

	p := New(log, f, onlineChecker(), testLogger())
	n, err := p.PushPending(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, 2, f.calls)
}
