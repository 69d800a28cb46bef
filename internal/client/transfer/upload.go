// Package transfer moves attachment bytes to and from the remote store:
// a single-flight upload coordinator and a concurrent, cancellable download
// manager sharing one HTTP connection pool.
package transfer

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/dmitrijs2005/stackpad/internal/client/client"
	"github.com/dmitrijs2005/stackpad/internal/client/models"
	"github.com/dmitrijs2005/stackpad/internal/client/repositories/attachments"
	"github.com/dmitrijs2005/stackpad/internal/common"
	"github.com/dmitrijs2005/stackpad/internal/logging"
)

// Uploader runs the three-step upload protocol for one attachment at a time
// per id: request a destination, stream the bytes, record the result. Retry
// scheduling is owned by the caller; the uploader only reports failure.
type Uploader struct {
	api    client.Client
	repo   attachments.Repository
	http   *http.Client
	logger logging.Logger

	// onCompleted, when set, is invoked after a successful upload has been
	// persisted. The app wires it to the attachment service so a
	// "attachment.uploaded" event is recorded.
	onCompleted func(ctx context.Context, attachmentID, storageKey string) error

	mu       sync.Mutex
	inflight map[string]struct{}
}

// NewUploader returns an Uploader using the given API client and repository.
func NewUploader(api client.Client, repo attachments.Repository, logger logging.Logger) *Uploader {
	return &Uploader{
		api:      api,
		repo:     repo,
		http:     &http.Client{Timeout: 5 * time.Minute},
		logger:   logger,
		inflight: make(map[string]struct{}),
	}
}

// OnCompleted registers the post-success hook. Must be called before Upload.
func (u *Uploader) OnCompleted(fn func(ctx context.Context, attachmentID, storageKey string) error) {
	u.onCompleted = fn
}

// Upload runs the full protocol for the attachment. A second concurrent call
// for the same id is rejected with ErrUploadInProgress, not queued.
func (u *Uploader) Upload(ctx context.Context, attachmentID string) error {
	u.mu.Lock()
	if _, busy := u.inflight[attachmentID]; busy {
		u.mu.Unlock()
		return common.ErrUploadInProgress
	}
	u.inflight[attachmentID] = struct{}{}
	u.mu.Unlock()

	defer func() {
		u.mu.Lock()
		delete(u.inflight, attachmentID)
		u.mu.Unlock()
	}()

	a, err := u.repo.GetByID(ctx, attachmentID)
	if err != nil {
		return err
	}

	// Fail fast before any observable state change.
	if _, err := os.Stat(a.LocalPath); err != nil {
		return fmt.Errorf("%w: %s", common.ErrSourceNotFound, a.LocalPath)
	}

	if err := u.repo.SetUploadStatus(ctx, a.ID, models.UploadStatusUploading); err != nil {
		return err
	}

	target, err := u.api.RequestUploadTarget(ctx, a.Filename, a.MimeType, a.SizeBytes)
	if err != nil {
		return u.fail(ctx, a.ID, fmt.Errorf("requesting upload target: %w", err))
	}

	if err := u.put(ctx, target.UploadURL, a); err != nil {
		return u.fail(ctx, a.ID, fmt.Errorf("streaming bytes: %w", err))
	}

	if err := u.repo.SetRemoteKey(ctx, a.ID, target.StorageKey); err != nil {
		return u.fail(ctx, a.ID, err)
	}
	if err := u.repo.SetUploadStatus(ctx, a.ID, models.UploadStatusCompleted); err != nil {
		return err
	}

	u.logger.Info(ctx, "upload completed", "attachment", a.ID, "key", target.StorageKey)

	if u.onCompleted != nil {
		if err := u.onCompleted(ctx, a.ID, target.StorageKey); err != nil {
			return err
		}
	}
	return nil
}

// Retry re-runs the protocol for an attachment in the Failed state; any other
// state is rejected with ErrNotRetryable.
func (u *Uploader) Retry(ctx context.Context, attachmentID string) error {
	a, err := u.repo.GetByID(ctx, attachmentID)
	if err != nil {
		return err
	}
	if a.UploadStatus != models.UploadStatusFailed {
		return common.ErrNotRetryable
	}
	if err := u.repo.SetUploadStatus(ctx, a.ID, models.UploadStatusPending); err != nil {
		return err
	}
	return u.Upload(ctx, attachmentID)
}

// put streams the file to the presigned destination.
func (u *Uploader) put(ctx context.Context, uploadURL string, a *models.Attachment) error {
	f, err := os.Open(a.LocalPath)
	if err != nil {
		return err
	}
	defer f.Close()

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, uploadURL, f)
	if err != nil {
		return err
	}
	req.ContentLength = a.SizeBytes
	req.Header.Set("Content-Type", a.MimeType)

	resp, err := u.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusNoContent {
		return fmt.Errorf("upload failed: %s", resp.Status)
	}
	return nil
}

// fail records the Failed state and returns the original error so the caller
// can hand the item to the retry scheduler.
func (u *Uploader) fail(ctx context.Context, attachmentID string, cause error) error {
	if err := u.repo.SetUploadStatus(ctx, attachmentID, models.UploadStatusFailed); err != nil {
		u.logger.Error(ctx, "failed to persist failed upload state", "attachment", attachmentID, "error", err)
	}
	return cause
}
