package attachments

import (
	"context"

	"github.com/dmitrijs2005/stackpad/internal/client/models"
)

// Repository describes storage operations for Attachment objects. Upload
// state transitions are persisted here so they survive restarts.
type Repository interface {
	// CreateOrUpdate upserts an attachment by id.
	CreateOrUpdate(ctx context.Context, a *models.Attachment) error

	// GetByID returns an attachment by its identifier.
	GetByID(ctx context.Context, id string) (*models.Attachment, error)

	// GetByTask lists non-deleted attachments of one task.
	GetByTask(ctx context.Context, taskID string) ([]*models.Attachment, error)

	// SetUploadStatus records an upload state transition.
	SetUploadStatus(ctx context.Context, id string, status models.UploadStatus) error

	// SetRemoteKey persists the retrieval reference after a completed upload.
	SetRemoteKey(ctx context.Context, id string, key string) error
}
