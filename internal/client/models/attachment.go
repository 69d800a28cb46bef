package models

import "time"

// UploadStatus tracks the observable transfer state of an attachment.
type UploadStatus string

const (
	UploadStatusPending   UploadStatus = "pending"
	UploadStatusUploading UploadStatus = "uploading"
	UploadStatusCompleted UploadStatus = "completed"
	UploadStatusFailed    UploadStatus = "failed"
)

// Attachment references a binary file kept next to a task. LocalPath is where
// the bytes live on disk; RemoteKey is the retrieval reference handed out by
// the server once an upload completes.
type Attachment struct {
	ID           string
	TaskID       string
	Filename     string
	MimeType     string
	SizeBytes    int64
	LocalPath    string
	RemoteKey    string
	UploadStatus UploadStatus
	Deleted      bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
