package attachments

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

const attachmentColumns = `id, task_id, filename, mime_type, size_bytes, local_path,
	remote_key, upload_status, deleted, created_at, updated_at`

func (r *SQLiteRepository) CreateOrUpdate(ctx context.Context, a *models.Attachment) error {
	query := ` INSERT INTO attachments
			(id, task_id, filename, mime_type, size_bytes, local_path, remote_key, upload_status, deleted, created_at, updated_at)
			values (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(id) DO UPDATE SET filename = excluded.filename,
				mime_type = excluded.mime_type,
				size_bytes = excluded.size_bytes,
				local_path = excluded.local_path,
				remote_key = excluded.remote_key,
				upload_status = excluded.upload_status,
				deleted = excluded.deleted,
				updated_at = excluded.updated_at
	`
	_, err := r.db.ExecContext(ctx, query,
		a.ID, a.TaskID, a.Filename, a.MimeType, a.SizeBytes, a.LocalPath,
		a.RemoteKey, string(a.UploadStatus), a.Deleted, a.CreatedAt, a.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to upsert attachment: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) GetByID(ctx context.Context, id string) (*models.Attachment, error) {
	query := `select ` + attachmentColumns + ` from attachments where id=?`
	row := r.db.QueryRowContext(ctx, query, id)
	a, err := scanAttachment(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.ErrorNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query row scan failed: %w", err)
	}
	return a, nil
}

func (r *SQLiteRepository) GetByTask(ctx context.Context, taskID string) ([]*models.Attachment, error) {
	query := `select ` + attachmentColumns + ` from attachments where task_id=? and deleted=0 order by created_at`
	rows, err := r.db.QueryContext(ctx, query, taskID)
	if err != nil {
		return nil, fmt.Errorf("failed to select attachments: %w", err)
	}
	defer rows.Close()

	var result []*models.Attachment
	for rows.Next() {
		a, err := scanAttachment(rows.Scan)
		if err != nil {
			return nil, err
		}
		result = append(result, a)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func (r *SQLiteRepository) SetUploadStatus(ctx context.Context, id string, status models.UploadStatus) error {
	query := `update attachments set upload_status=? where id=?`
	if _, err := r.db.ExecContext(ctx, query, string(status), id); err != nil {
		return fmt.Errorf("failed to set upload status: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) SetRemoteKey(ctx context.Context, id string, key string) error {
	query := `update attachments set remote_key=? where id=?`
	if _, err := r.db.ExecContext(ctx, query, key, id); err != nil {
		return fmt.Errorf("failed to set remote key: %w", err)
	}
	return nil
}

func scanAttachment(scan func(dest ...any) error) (*models.Attachment, error) {
	a := &models.Attachment{}
	var status string
	var deleted int
	err := scan(&a.ID, &a.TaskID, &a.Filename, &a.MimeType, &a.SizeBytes, &a.LocalPath,
		&a.RemoteKey, &status, &deleted, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return nil, err
	}
	a.UploadStatus = models.UploadStatus(status)
	a.Deleted = deleted != 0
	return a, nil
}
