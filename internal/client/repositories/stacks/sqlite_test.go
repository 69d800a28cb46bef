package stacks

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/dmitrijs2005/stackpad/internal/client/models"
	"github.com/dmitrijs2005/stackpad/internal/common"
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
`)
	require.NoError(t, err)

	return db
}

func makeStack(id string, status models.StackStatus, order int) *models.Stack {
	now := time.Now().UTC()
	return &models.Stack{
		ID: id, Title: "stack " + id, Status: status, SortOrder: order,
		CreatedAt: now, UpdatedAt: now,
	}
}

func TestCreateOrUpdate_Upserts(t *testing.T) {
	db := setupDB(t)
	r := NewSQLiteRepository(db)
	ctx := context.Background()

	s := makeStack("s1", models.StackStatusOpen, 0)
	require.NoError(t, r.CreateOrUpdate(ctx, s))

	s.Title = "renamed"
	s.Status = models.StackStatusActive
	s.IsActive = true
	require.NoError(t, r.CreateOrUpdate(ctx, s))

	got, err := r.GetByID(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, "renamed", got.Title)
	assert.Equal(t, models.StackStatusActive, got.Status)
	assert.True(t, got.IsActive)
}

func TestGetByID_NotFound(t *testing.T) {
	db := setupDB(t)
	r := NewSQLiteRepository(db)

	_, err := r.GetByID(context.Background(), "missing")
	assert.ErrorIs(t, err, common.ErrStackNotFound)
}

func TestGetActive_IgnoresStatusField(t *testing.T) {
	db := setupDB(t)
	r := NewSQLiteRepository(db)
	ctx := context.Background()

	// After remote replay a stack can hold the flag while its status still
	// says "open"; GetActive must return it anyway.
	flagOnly := makeStack("s1", models.StackStatusOpen, 0)
	flagOnly.IsActive = true
	require.NoError(t, r.CreateOrUpdate(ctx, flagOnly))

	statusOnly := makeStack("s2", models.StackStatusActive, 1)
	require.NoError(t, r.CreateOrUpdate(ctx, statusOnly))

	deleted := makeStack("s3", models.StackStatusActive, 2)
	deleted.IsActive = true
	deleted.Deleted = true
	require.NoError(t, r.CreateOrUpdate(ctx, deleted))

	actives, err := r.GetActive(ctx)
	require.NoError(t, err)
	require.Len(t, actives, 1)
	assert.Equal(t, "s1", actives[0].ID)
}

func TestGetSiblings_FiltersStatusAndDeleted(t *testing.T) {
	db := setupDB(t)
	r := NewSQLiteRepository(db)
	ctx := context.Background()

	require.NoError(t, r.CreateOrUpdate(ctx, makeStack("a", models.StackStatusOpen, 2)))
	require.NoError(t, r.CreateOrUpdate(ctx, makeStack("b", models.StackStatusOpen, 1)))
	require.NoError(t, r.CreateOrUpdate(ctx, makeStack("c", models.StackStatusDone, 0)))

	gone := makeStack("d", models.StackStatusOpen, 3)
	gone.Deleted = true
	require.NoError(t, r.CreateOrUpdate(ctx, gone))

	siblings, err := r.GetSiblings(ctx, models.StackStatusOpen)
	require.NoError(t, err)
	require.Len(t, siblings, 2)
	assert.Equal(t, "b", siblings[0].ID)
	assert.Equal(t, "a", siblings[1].ID)
}

func TestSetSortOrder(t *testing.T) {
	db := setupDB(t)
	r := NewSQLiteRepository(db)
	ctx := context.Background()

	require.NoError(t, r.CreateOrUpdate(ctx, makeStack("s1", models.StackStatusOpen, 5)))

	require.NoError(t, r.SetSortOrder(ctx, "s1", 0))

	got, err := r.GetByID(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, 0, got.SortOrder)
}
