package tasks

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/stackpad/internal/client/models"
	"github.com/dmitrijs2005/stackpad/internal/common"
	"github.com/dmitrijs2005/stackpad/internal/dbx"
)

// SQLiteRepository implements Repository using a DBTX (either *sql.DB or *sql.Tx).
type SQLiteRepository struct {
	db dbx.DBTX
}

func NewSQLiteRepository(db dbx.DBTX) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

func (r *SQLiteRepository) CreateOrUpdate(ctx context.Context, t *models.Task) error {
	query := ` INSERT INTO tasks (id, stack_id, title, done, sort_order, deleted, created_at, updated_at)
			values (?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(id) DO UPDATE SET title = excluded.title,
				done = excluded.done,
				sort_order = excluded.sort_order,
				deleted = excluded.deleted,
				updated_at = excluded.updated_at
	`
	_, err := r.db.ExecContext(ctx, query,
		t.ID, t.StackID, t.Title, t.Done, t.SortOrder, t.Deleted, t.CreatedAt, t.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to upsert task: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) GetByID(ctx context.Context, id string) (*models.Task, error) {
	query := `select id, stack_id, title, done, sort_order, deleted, created_at, updated_at
			from tasks where id=?`
	row := r.db.QueryRowContext(ctx, query, id)

	t := &models.Task{}
	var done, deleted int
	err := row.Scan(&t.ID, &t.StackID, &t.Title, &done, &t.SortOrder, &deleted, &t.CreatedAt, &t.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.ErrorNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query row scan failed: %w", err)
	}
	t.Done = done != 0
	t.Deleted = deleted != 0
	return t, nil
}

func (r *SQLiteRepository) GetByStack(ctx context.Context, stackID string) ([]*models.Task, error) {
	query := `select id, stack_id, title, done, sort_order, deleted, created_at, updated_at
			from tasks where stack_id=? and deleted=0 order by sort_order, created_at`
	rows, err := r.db.QueryContext(ctx, query, stackID)
	if err != nil {
		return nil, fmt.Errorf("failed to select tasks: %w", err)
	}
	defer rows.Close()

	var result []*models.Task
	for rows.Next() {
		t := &models.Task{}
		var done, deleted int
		if err := rows.Scan(&t.ID, &t.StackID, &t.Title, &done, &t.SortOrder, &deleted, &t.CreatedAt, &t.UpdatedAt); err != nil {
			return nil, err
		}
		t.Done = done != 0
		t.Deleted = deleted != 0
		result = append(result, t)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}
