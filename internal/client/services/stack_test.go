package services

import (
	"context"
	"database/sql"
	"io"
	"log/slog"
	"testing"

	"github.com/dmitrijs2005/stackpad/internal/client/eventlog"
	"github.com/dmitrijs2005/stackpad/internal/client/models"
	"github.com/dmitrijs2005/stackpad/internal/client/reconcile"
	"github.com/dmitrijs2005/stackpad/internal/common"
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
CREATE TABLE stacks (
  id TEXT PRIMARY KEY,
  title TEXT NOT NULL,
  status TEXT NOT NULL DEFAULT 'draft',
  sort_order INTEGER NOT NULL DEFAULT 0,
  deleted INTEGER NOT NULL DEFAULT 0,
  created_at TIMESTAMP NOT NULL,
  updated_at TIMESTAMP NOT NULL,
  is_active INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE tasks (
  id TEXT PRIMARY KEY,
  stack_id TEXT NOT NULL,
  title TEXT NOT NULL,
  done INTEGER NOT NULL DEFAULT 0,
  sort_order INTEGER NOT NULL DEFAULT 0,
  deleted INTEGER NOT NULL DEFAULT 0,
  created_at TIMESTAMP NOT NULL,
  updated_at TIMESTAMP NOT NULL
);

CREATE TABLE attachments (
  id TEXT PRIMARY KEY,
  task_id TEXT NOT NULL,
  filename TEXT NOT NULL,
  mime_type TEXT NOT NULL DEFAULT 'application/octet-stream',
  size_bytes INTEGER NOT NULL DEFAULT 0,
  local_path TEXT NOT NULL DEFAULT '',
  remote_key TEXT NOT NULL DEFAULT '',
  upload_status TEXT NOT NULL DEFAULT 'pending',
  deleted INTEGER NOT NULL DEFAULT 0,
  created_at TIMESTAMP NOT NULL,
  updated_at TIMESTAMP NOT NULL
);

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

CREATE TABLE metadata (
  name TEXT PRIMARY KEY,
  value TEXT NOT NULL
);
`)
	require.NoError(t, err)

	return db
}

type testEnv struct {
	db         *sql.DB
	log        *eventlog.Log
	reconciler *reconcile.Reconciler
	stacks     StackService
	tasks      TaskService
}

func newEnv(t *testing.T) *testEnv {
	t.Helper()
	db := setupDB(t)
	log := eventlog.New(db, eventlog.Origin{UserID: "u1", DeviceID: "d1"})
	rec := reconcile.New(db, log, testLogger())
	return &testEnv{
		db:         db,
		log:        log,
		reconciler: rec,
		stacks:     NewStackService(db, log, rec),
		tasks:      NewTaskService(db, log),
	}
}

func eventTypes(t *testing.T, env *testEnv, entityID string) []string {
	t.Helper()
	hist, err := env.log.HistoryFor(context.Background(), entityID, false)
	require.NoError(t, err)
	out := make([]string, len(hist))
	for i, e := range hist {
		out[i] = string(e.Type)
	}
	return out
}

func TestStackCreate_PersistsRowAndEvent(t *testing.T) {
	env := newEnv(t)
	ctx := context.Background()

	st, err := env.stacks.Create(ctx, "inbox", false)
	require.NoError(t, err)
	assert.Equal(t, models.StackStatusOpen, st.Status)
	assert.False(t, st.IsActive)

	got, err := env.stacks.Get(ctx, st.ID)
	require.NoError(t, err)
	assert.Equal(t, "inbox", got.Title)

	hist, err := env.log.HistoryFor(ctx, st.ID, false)
	require.NoError(t, err)
	require.Len(t, hist, 1)
	assert.Equal(t, models.EventStackCreated, hist[0].Type)
	require.NotNil(t, hist[0].Payload.Stack)
	assert.Equal(t, "inbox", hist[0].Payload.Stack.Title)
}

func TestStackCreate_Draft(t *testing.T) {
	env := newEnv(t)

	st, err := env.stacks.Create(context.Background(), "someday", true)
	require.NoError(t, err)
	assert.Equal(t, models.StackStatusDraft, st.Status)
}

func TestStackPromote_OnlyFromDraft(t *testing.T) {
	env := newEnv(t)
	ctx := context.Background()

	draft, err := env.stacks.Create(ctx, "d", true)
	require.NoError(t, err)
	require.NoError(t, env.stacks.Promote(ctx, draft.ID))

	got, err := env.stacks.Get(ctx, draft.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StackStatusOpen, got.Status)

	// Promoting again fails and appends nothing.
	before := len(eventTypes(t, env, draft.ID))
	assert.Error(t, env.stacks.Promote(ctx, draft.ID))
	assert.Len(t, eventTypes(t, env, draft.ID), before)
}

func TestStackRename_RecordsFieldDiff(t *testing.T) {
	env := newEnv(t)
	ctx := context.Background()

	st, err := env.stacks.Create(ctx, "old", false)
	require.NoError(t, err)
	require.NoError(t, env.stacks.Rename(ctx, st.ID, "new"))

	got, err := env.stacks.Get(ctx, st.ID)
	require.NoError(t, err)
	assert.Equal(t, "new", got.Title)

	hist, err := env.log.HistoryFor(ctx, st.ID, true)
	require.NoError(t, err)
	require.NotEmpty(t, hist)
	assert.Equal(t, models.EventStackUpdated, hist[0].Type)
	assert.Contains(t, hist[0].Payload.Changes, "title")
	assert.Equal(t, "new", hist[0].Payload.Stack.Title)
}

func TestStackActivate_MaintainsSingleActive(t *testing.T) {
	env := newEnv(t)
	ctx := context.Background()

	a, err := env.stacks.Create(ctx, "a", false)
	require.NoError(t, err)
	b, err := env.stacks.Create(ctx, "b", false)
	require.NoError(t, err)

	require.NoError(t, env.stacks.Activate(ctx, a.ID))
	require.NoError(t, env.stacks.Activate(ctx, b.ID))

	gotA, err := env.stacks.Get(ctx, a.ID)
	require.NoError(t, err)
	gotB, err := env.stacks.Get(ctx, b.ID)
	require.NoError(t, err)
	assert.False(t, gotA.IsActive)
	assert.True(t, gotB.IsActive)
}

func TestStackComplete_ClearsActiveFlag(t *testing.T) {
	env := newEnv(t)
	ctx := context.Background()

	st, err := env.stacks.Create(ctx, "s", false)
	require.NoError(t, err)
	require.NoError(t, env.stacks.Activate(ctx, st.ID))
	require.NoError(t, env.stacks.Complete(ctx, st.ID))

	got, err := env.stacks.Get(ctx, st.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StackStatusDone, got.Status)
	assert.False(t, got.IsActive)
}

func TestStackDelete_SoftDeleteIsTerminal(t *testing.T) {
	env := newEnv(t)
	ctx := context.Background()

	st, err := env.stacks.Create(ctx, "s", false)
	require.NoError(t, err)
	require.NoError(t, env.stacks.Delete(ctx, st.ID))

	err = env.stacks.Delete(ctx, st.ID)
	assert.ErrorIs(t, err, common.ErrStackDeleted)
}

func TestStackList_ExcludesDeleted(t *testing.T) {
	env := newEnv(t)
	ctx := context.Background()

	keep, err := env.stacks.Create(ctx, "keep", false)
	require.NoError(t, err)
	gone, err := env.stacks.Create(ctx, "gone", false)
	require.NoError(t, err)
	require.NoError(t, env.stacks.Delete(ctx, gone.ID))

	all, err := env.stacks.List(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, keep.ID, all[0].ID)
}
