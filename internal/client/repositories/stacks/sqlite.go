package stacks

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

// NewSQLiteRepository returns a new SQLiteRepository bound to the given DBTX.
func NewSQLiteRepository(db dbx.DBTX) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

const stackColumns = `id, title, status, is_active, sort_order, deleted, created_at, updated_at`

// CreateOrUpdate upserts a stack by id. On conflict, all mutable columns are updated.
func (r *SQLiteRepository) CreateOrUpdate(ctx context.Context, s *models.Stack) error {
	query := ` INSERT INTO stacks (id, title, status, is_active, sort_order, deleted, created_at, updated_at)
			values (?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(id) DO UPDATE SET title = excluded.title,
				status = excluded.status,
				is_active = excluded.is_active,
				sort_order = excluded.sort_order,
				deleted = excluded.deleted,
				updated_at = excluded.updated_at
	`
	_, err := r.db.ExecContext(ctx, query,
		s.ID, s.Title, string(s.Status), s.IsActive, s.SortOrder, s.Deleted, s.CreatedAt, s.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to upsert stack: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) GetByID(ctx context.Context, id string) (*models.Stack, error) {
	query := `select ` + stackColumns + ` from stacks where id=?`
	row := r.db.QueryRowContext(ctx, query, id)
	s, err := scanStack(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.ErrStackNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query row scan failed: %w", err)
	}
	return s, nil
}

func (r *SQLiteRepository) GetAll(ctx context.Context) ([]*models.Stack, error) {
	query := `select ` + stackColumns + ` from stacks where deleted=0 order by sort_order, created_at`
	return r.selectStacks(ctx, query)
}

func (r *SQLiteRepository) GetActive(ctx context.Context) ([]*models.Stack, error) {
	// No status filter on purpose: remote replay can leave is_active set on
	// rows whose status says otherwise.
	query := `select ` + stackColumns + ` from stacks where is_active=1 and deleted=0 order by sort_order, created_at`
	return r.selectStacks(ctx, query)
}

func (r *SQLiteRepository) GetSiblings(ctx context.Context, status models.StackStatus) ([]*models.Stack, error) {
	query := `select ` + stackColumns + ` from stacks where deleted=0 and status=? order by sort_order, created_at`
	return r.selectStacks(ctx, query, string(status))
}

func (r *SQLiteRepository) SetSortOrder(ctx context.Context, id string, order int) error {
	query := `update stacks set sort_order=? where id=?`
	if _, err := r.db.ExecContext(ctx, query, order, id); err != nil {
		return fmt.Errorf("failed to set sort order: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) selectStacks(ctx context.Context, query string, args ...any) ([]*models.Stack, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to select stacks: %w", err)
	}
	defer rows.Close()

	var result []*models.Stack
	for rows.Next() {
		s, err := scanStack(rows.Scan)
		if err != nil {
			return nil, err
		}
		result = append(result, s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func scanStack(scan func(dest ...any) error) (*models.Stack, error) {
	s := &models.Stack{}
	var status string
	var active, deleted int
	err := scan(&s.ID, &s.Title, &status, &active, &s.SortOrder, &deleted, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		return nil, err
	}
	s.Status = models.StackStatus(status)
	s.IsActive = active != 0
	s.Deleted = deleted != 0
	return s, nil
}
