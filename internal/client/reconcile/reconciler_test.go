package reconcile

import (
	"context"
	"database/sql"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/dmitrijs2005/stackpad/internal/client/eventlog"
	"github.com/dmitrijs2005/stackpad/internal/client/models"
	"github.com/dmitrijs2005/stackpad/internal/client/repositories/stacks"
	"github.com/dmitrijs2005/stackpad/internal/common"
	"github.com/dmitrijs2005/stackpad/internal/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	_ "modernc.org/sqlite"
)

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
  is_active INTEGER NOT NULL DEFAULT 0,
  sort_order INTEGER NOT NULL DEFAULT 0,
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
`)
	require.NoError(t, err)

	return db
}

func newReconciler(t *testing.T, db *sql.DB) *Reconciler {
	t.Helper()
	logger := logging.NewSlogLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))
	evlog := eventlog.New(db, eventlog.Origin{UserID: "alice", DeviceID: "dev1"})
	return New(db, evlog, logger)
}

func addStack(t *testing.T, db *sql.DB, s *models.Stack) {
	t.Helper()
	if s.CreatedAt.IsZero() {
		s.CreatedAt = time.Now().UTC()
		s.UpdatedAt = s.CreatedAt
	}
	require.NoError(t, stacks.NewSQLiteRepository(db).CreateOrUpdate(context.Background(), s))
}

func getStack(t *testing.T, db *sql.DB, id string) *models.Stack {
	t.Helper()
	s, err := stacks.NewSQLiteRepository(db).GetByID(context.Background(), id)
	require.NoError(t, err)
	return s
}

func eventTypes(t *testing.T, db *sql.DB) []string {
	t.Helper()
	rows, err := db.Query(`select type from events order by seq`)
	require.NoError(t, err)
	defer rows.Close()
	var types []string
	for rows.Next() {
		var typ string
		require.NoError(t, rows.Scan(&typ))
		types = append(types, typ)
	}
	require.NoError(t, rows.Err())
	return types
}

func TestActivate_DemotesPreviousHolderAndReorders(t *testing.T) {
	db := setupDB(t)
	r := newReconciler(t, db)
	ctx := context.Background()

	a := &models.Stack{ID: "a", Title: "A", Status: models.StackStatusActive, IsActive: true, SortOrder: 0}
	b := &models.Stack{ID: "b", Title: "B", Status: models.StackStatusOpen, SortOrder: 1}
	addStack(t, db, a)
	addStack(t, db, b)

	require.NoError(t, r.Activate(ctx, "b"))

	gotB := getStack(t, db, "b")
	assert.True(t, gotB.IsActive)
	assert.Equal(t, models.StackStatusActive, gotB.Status)
	assert.Equal(t, 0, gotB.SortOrder)

	gotA := getStack(t, db, "a")
	assert.False(t, gotA.IsActive)
	assert.Equal(t, models.StackStatusOpen, gotA.Status)
	assert.Equal(t, 1, gotA.SortOrder)

	assert.Equal(t, []string{"stack.deactivated", "stack.activated", "stack.reordered"}, eventTypes(t, db))
}

func TestActivate_EventSnapshotsCarryFinalState(t *testing.T) {
	db := setupDB(t)
	r := newReconciler(t, db)
	ctx := context.Background()

	addStack(t, db, &models.Stack{ID: "a", Title: "A", Status: models.StackStatusActive, IsActive: true, SortOrder: 0})
	addStack(t, db, &models.Stack{ID: "b", Title: "B", Status: models.StackStatusOpen, SortOrder: 1})

	require.NoError(t, r.Activate(ctx, "b"))

	evlog := eventlog.New(db, eventlog.Origin{UserID: "alice", DeviceID: "dev1"})
	history, err := evlog.HistoryFor(ctx, "b", false)
	require.NoError(t, err)
	require.Len(t, history, 1)

	snap := history[0].Payload.Stack
	require.NotNil(t, snap)
	assert.True(t, snap.IsActive)
	assert.Equal(t, models.StackStatusActive, snap.Status)
	assert.Equal(t, 0, snap.SortOrder)
}

func TestActivate_Preconditions(t *testing.T) {
	db := setupDB(t)
	r := newReconciler(t, db)
	ctx := context.Background()

	deleted := &models.Stack{ID: "gone", Title: "x", Status: models.StackStatusOpen, Deleted: true}
	draft := &models.Stack{ID: "draft", Title: "x", Status: models.StackStatusDraft}
	addStack(t, db, deleted)
	addStack(t, db, draft)

	assert.ErrorIs(t, r.Activate(ctx, "missing"), common.ErrStackNotFound)
	assert.ErrorIs(t, r.Activate(ctx, "gone"), common.ErrStackDeleted)
	assert.ErrorIs(t, r.Activate(ctx, "draft"), common.ErrStackDraft)

	// A failed activation appends nothing.
	assert.Empty(t, eventTypes(t, db))
}

func TestActivate_AlreadyActiveEmitsNoDeactivation(t *testing.T) {
	db := setupDB(t)
	r := newReconciler(t, db)
	ctx := context.Background()

	addStack(t, db, &models.Stack{ID: "a", Title: "A", Status: models.StackStatusActive, IsActive: true, SortOrder: 0})

	require.NoError(t, r.Activate(ctx, "a"))

	for _, typ := range eventTypes(t, db) {
		assert.NotEqual(t, "stack.deactivated", typ)
	}
	gotA := getStack(t, db, "a")
	assert.True(t, gotA.IsActive)
}

func TestValidateAndRepair_NoViolation(t *testing.T) {
	db := setupDB(t)
	r := newReconciler(t, db)

	addStack(t, db, &models.Stack{ID: "a", Title: "A", Status: models.StackStatusActive, IsActive: true})
	addStack(t, db, &models.Stack{ID: "b", Title: "B", Status: models.StackStatusOpen})

	res, err := r.ValidateAndRepair(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, RepairNotNeeded, res)
	assert.Empty(t, eventTypes(t, db))
}

func TestValidateAndRepair_PreferredWins(t *testing.T) {
	db := setupDB(t)
	r := newReconciler(t, db)
	ctx := context.Background()

	addStack(t, db, &models.Stack{ID: "a", Title: "A", Status: models.StackStatusActive, IsActive: true, SortOrder: 0})
	addStack(t, db, &models.Stack{ID: "b", Title: "B", Status: models.StackStatusActive, IsActive: true, SortOrder: 1})

	res, err := r.ValidateAndRepair(ctx, "b")
	require.NoError(t, err)
	assert.Equal(t, RepairApplied, res)

	assert.False(t, getStack(t, db, "a").IsActive)
	assert.True(t, getStack(t, db, "b").IsActive)
	assert.Equal(t, []string{"stack.deactivated"}, eventTypes(t, db))
}

func TestValidateAndRepair_LowestSortOrderWins(t *testing.T) {
	db := setupDB(t)
	r := newReconciler(t, db)

	addStack(t, db, &models.Stack{ID: "a", Title: "A", Status: models.StackStatusOpen, IsActive: true, SortOrder: 3})
	addStack(t, db, &models.Stack{ID: "b", Title: "B", Status: models.StackStatusOpen, IsActive: true, SortOrder: 1})

	res, err := r.ValidateAndRepair(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, RepairApplied, res)

	assert.False(t, getStack(t, db, "a").IsActive)
	assert.True(t, getStack(t, db, "b").IsActive)
}

func TestValidateAndRepair_TieBrokenByStatusField(t *testing.T) {
	db := setupDB(t)
	r := newReconciler(t, db)

	addStack(t, db, &models.Stack{ID: "a", Title: "A", Status: models.StackStatusOpen, IsActive: true, SortOrder: 0})
	addStack(t, db, &models.Stack{ID: "b", Title: "B", Status: models.StackStatusActive, IsActive: true, SortOrder: 0})

	res, err := r.ValidateAndRepair(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, RepairApplied, res)

	assert.False(t, getStack(t, db, "a").IsActive)
	assert.True(t, getStack(t, db, "b").IsActive)
}

func TestValidateAndRepair_AmbiguousMutatesNothing(t *testing.T) {
	db := setupDB(t)
	r := newReconciler(t, db)

	addStack(t, db, &models.Stack{ID: "a", Title: "A", Status: models.StackStatusOpen, IsActive: true, SortOrder: 0})
	addStack(t, db, &models.Stack{ID: "b", Title: "B", Status: models.StackStatusOpen, IsActive: true, SortOrder: 0})

	res, err := r.ValidateAndRepair(context.Background(), "")
	assert.ErrorIs(t, err, common.ErrAmbiguousActive)
	assert.Equal(t, RepairAmbiguous, res)

	assert.True(t, getStack(t, db, "a").IsActive)
	assert.True(t, getStack(t, db, "b").IsActive)
	assert.Empty(t, eventTypes(t, db))
}

func TestValidateAndRepair_DraftHoldingFlagIsCleared(t *testing.T) {
	db := setupDB(t)
	r := newReconciler(t, db)

	d := &models.Stack{ID: "d", Title: "D", Status: models.StackStatusDraft, IsActive: true}
	addStack(t, db, d)

	res, err := r.ValidateAndRepair(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, RepairApplied, res)
	assert.False(t, getStack(t, db, "d").IsActive)
}

func TestStartupRepair_AmbiguityIsNotFatal(t *testing.T) {
	db := setupDB(t)
	r := newReconciler(t, db)

	addStack(t, db, &models.Stack{ID: "a", Title: "A", Status: models.StackStatusOpen, IsActive: true, SortOrder: 0})
	addStack(t, db, &models.Stack{ID: "b", Title: "B", Status: models.StackStatusOpen, IsActive: true, SortOrder: 0})

	assert.NoError(t, r.StartupRepair(context.Background()))
}
