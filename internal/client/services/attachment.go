package services

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/dmitrijs2005/stackpad/internal/client/eventlog"
	"github.com/dmitrijs2005/stackpad/internal/client/models"
	"github.com/dmitrijs2005/stackpad/internal/client/repositories/attachments"
	"github.com/dmitrijs2005/stackpad/internal/common"
	"github.com/dmitrijs2005/stackpad/internal/dbx"
	"github.com/google/uuid"
)

// AttachmentService manages attachment records. Byte transfers are owned by
// the transfer package; this service owns the evented bookkeeping.
type AttachmentService interface {
	// Add registers a local file as an attachment of a task.
	Add(ctx context.Context, taskID, localPath, mimeType string) (*models.Attachment, error)

	// RecordUploaded appends the uploaded event after the transfer
	// coordinator has persisted the retrieval reference.
	RecordUploaded(ctx context.Context, id, storageKey string) error

	// Delete soft-deletes the attachment record.
	Delete(ctx context.Context, id string) error

	// ListByTask lists non-deleted attachments.
	ListByTask(ctx context.Context, taskID string) ([]*models.Attachment, error)

	// Get returns one attachment.
	Get(ctx context.Context, id string) (*models.Attachment, error)
}

type attachmentService struct {
	db  *sql.DB
	log *eventlog.Log
	now func() time.Time
}

// NewAttachmentService returns the production AttachmentService.
func NewAttachmentService(db *sql.DB, log *eventlog.Log) AttachmentService {
	return &attachmentService{
		db:  db,
		log: log,
		now: func() time.Time { return time.Now().UTC() },
	}
}

func (s *attachmentService) Add(ctx context.Context, taskID, localPath, mimeType string) (*models.Attachment, error) {
	fi, err := os.Stat(localPath)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", common.ErrSourceNotFound, localPath)
	}

	now := s.now()
	a := &models.Attachment{
		ID:           uuid.NewString(),
		TaskID:       taskID,
		Filename:     filepath.Base(localPath),
		MimeType:     mimeType,
		SizeBytes:    fi.Size(),
		LocalPath:    localPath,
		UploadStatus: models.UploadStatusPending,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	err = dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		p := models.Payload{Kind: models.SnapshotAttachment, Attachment: models.AttachmentSnapshot(a)}
		if _, err := s.log.Append(ctx, tx, models.EventAttachmentCreated, a.ID, p); err != nil {
			return err
		}
		return attachments.NewSQLiteRepository(tx).CreateOrUpdate(ctx, a)
	})
	if err != nil {
		return nil, fmt.Errorf("error creating attachment: %w", err)
	}
	return a, nil
}

func (s *attachmentService) RecordUploaded(ctx context.Context, id, storageKey string) error {
	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := attachments.NewSQLiteRepository(tx)
		a, err := repo.GetByID(ctx, id)
		if err != nil {
			return err
		}
		a.UpdatedAt = s.now()

		p := models.Payload{
			Kind:       models.SnapshotAttachment,
			Attachment: models.AttachmentSnapshot(a),
			Changes:    map[string]any{"remoteKey": storageKey, "uploadStatus": string(a.UploadStatus)},
		}
		if _, err := s.log.Append(ctx, tx, models.EventAttachmentUploaded, a.ID, p); err != nil {
			return err
		}
		return repo.CreateOrUpdate(ctx, a)
	})
	if err != nil {
		return fmt.Errorf("error recording upload: %w", err)
	}
	return nil
}

func (s *attachmentService) Delete(ctx context.Context, id string) error {
	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := attachments.NewSQLiteRepository(tx)
		a, err := repo.GetByID(ctx, id)
		if err != nil {
			return err
		}
		a.Deleted = true
		a.UpdatedAt = s.now()

		p := models.Payload{
			Kind:       models.SnapshotAttachment,
			Attachment: models.AttachmentSnapshot(a),
			Changes:    map[string]any{"deleted": true},
		}
		if _, err := s.log.Append(ctx, tx, models.EventAttachmentDeleted, a.ID, p); err != nil {
			return err
		}
		return repo.CreateOrUpdate(ctx, a)
	})
	if err != nil {
		return fmt.Errorf("error deleting attachment: %w", err)
	}
	return nil
}

func (s *attachmentService) ListByTask(ctx context.Context, taskID string) ([]*models.Attachment, error) {
	return attachments.NewSQLiteRepository(s.db).GetByTask(ctx, taskID)
}

func (s *attachmentService) Get(ctx context.Context, id string) (*models.Attachment, error) {
	return attachments.NewSQLiteRepository(s.db).GetByID(ctx, id)
}
