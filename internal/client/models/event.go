package models

import (
	"encoding/json"
	"errors"
	"time"
)

// EventType classifies a domain mutation.
type EventType string

const (
	EventStackCreated     EventType = "stack.created"
	EventStackUpdated     EventType = "stack.updated"
	EventStackActivated   EventType = "stack.activated"
	EventStackDeactivated EventType = "stack.deactivated"
	EventStackCompleted   EventType = "stack.completed"
	EventStackDeleted     EventType = "stack.deleted"
	EventStackReordered   EventType = "stack.reordered"

	EventTaskCreated EventType = "task.created"
	EventTaskUpdated EventType = "task.updated"
	EventTaskDeleted EventType = "task.deleted"

	EventAttachmentCreated  EventType = "attachment.created"
	EventAttachmentUploaded EventType = "attachment.uploaded"
	EventAttachmentDeleted  EventType = "attachment.deleted"
)

// SnapshotKind tags which snapshot field of a Payload is populated.
type SnapshotKind string

const (
	SnapshotStack      SnapshotKind = "stack"
	SnapshotTask       SnapshotKind = "task"
	SnapshotAttachment SnapshotKind = "attachment"
	SnapshotOrder      SnapshotKind = "order"
)

var ErrNoSnapshot = errors.New("payload carries no snapshot for its kind")

// StackState is the authoritative full-state snapshot of a stack as embedded
// in events. Replaying snapshots in event order reproduces the entity.
type StackState struct {
	ID        string      `json:"id"`
	Title     string      `json:"title"`
	Status    StackStatus `json:"status"`
	IsActive  bool        `json:"isActive"`
	SortOrder int         `json:"sortOrder"`
	Deleted   bool        `json:"deleted"`
	CreatedAt time.Time   `json:"createdAt"`
	UpdatedAt time.Time   `json:"updatedAt"`
}

type TaskState struct {
	ID        string    `json:"id"`
	StackID   string    `json:"stackId"`
	Title     string    `json:"title"`
	Done      bool      `json:"done"`
	SortOrder int       `json:"sortOrder"`
	Deleted   bool      `json:"deleted"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

type AttachmentState struct {
	ID           string       `json:"id"`
	TaskID       string       `json:"taskId"`
	Filename     string       `json:"filename"`
	MimeType     string       `json:"mimeType"`
	SizeBytes    int64        `json:"sizeBytes"`
	RemoteKey    string       `json:"remoteKey,omitempty"`
	UploadStatus UploadStatus `json:"uploadStatus"`
	Deleted      bool         `json:"deleted"`
	CreatedAt    time.Time    `json:"createdAt"`
	UpdatedAt    time.Time    `json:"updatedAt"`
}

// OrderEntry is one (entity, position) pair of a batch reorder.
type OrderEntry struct {
	ID        string `json:"id"`
	SortOrder int    `json:"sortOrder"`
}

// Payload is the versioned, type-tagged body of an event. Exactly one
// snapshot field matching Kind is populated; it is authoritative and always
// complete. Changes is a best-effort field-level diff kept only as an
// explanatory aid; it may be missing or incomplete and consumers must not
// depend on it.
type Payload struct {
	Kind       SnapshotKind     `json:"kind"`
	Stack      *StackState      `json:"stack,omitempty"`
	Task       *TaskState       `json:"task,omitempty"`
	Attachment *AttachmentState `json:"attachment,omitempty"`
	Order      []OrderEntry     `json:"order,omitempty"`
	Changes    map[string]any   `json:"changes,omitempty"`
}

// Validate checks that the tagged snapshot is present.
func (p *Payload) Validate() error {
	switch p.Kind {
	case SnapshotStack:
		if p.Stack == nil {
			return ErrNoSnapshot
		}
	case SnapshotTask:
		if p.Task == nil {
			return ErrNoSnapshot
		}
	case SnapshotAttachment:
		if p.Attachment == nil {
			return ErrNoSnapshot
		}
	case SnapshotOrder:
		if p.Order == nil {
			return ErrNoSnapshot
		}
	default:
		return ErrNoSnapshot
	}
	return nil
}

// Event is an immutable record of one domain mutation. Events are append-only:
// after insertion only Synced/SyncedAt ever change, and rows are never deleted.
type Event struct {
	// ID is a globally unique identifier for the event.
	ID string

	// Seq is the local logical clock: a monotonic integer assigned by the
	// store at insertion. Replay and push both order by Seq.
	Seq int64

	Type     EventType
	EntityID string // empty for batch events such as stack.reordered

	Payload        Payload
	PayloadVersion int

	OriginUserID   string
	OriginDeviceID string

	// Timestamp is the wall clock at append time, UTC.
	Timestamp time.Time

	Synced   bool
	SyncedAt *time.Time
}

// MarshalPayload serializes the payload for storage or the wire.
func (e *Event) MarshalPayload() ([]byte, error) {
	return json.Marshal(e.Payload)
}

// StackSnapshot converts a stack into its event snapshot form.
func StackSnapshot(s *Stack) *StackState {
	return &StackState{
		ID: s.ID, Title: s.Title, Status: s.Status, IsActive: s.IsActive,
		SortOrder: s.SortOrder, Deleted: s.Deleted,
		CreatedAt: s.CreatedAt, UpdatedAt: s.UpdatedAt,
	}
}

// ApplyStackSnapshot overwrites a stack with the snapshot's full state.
// Applying the same snapshot twice is a no-op by construction.
func ApplyStackSnapshot(s *Stack, st *StackState) {
	s.ID = st.ID
	s.Title = st.Title
	s.Status = st.Status
	s.IsActive = st.IsActive
	s.SortOrder = st.SortOrder
	s.Deleted = st.Deleted
	s.CreatedAt = st.CreatedAt
	s.UpdatedAt = st.UpdatedAt
}

// TaskSnapshot converts a task into its event snapshot form.
func TaskSnapshot(t *Task) *TaskState {
	return &TaskState{
		ID: t.ID, StackID: t.StackID, Title: t.Title, Done: t.Done,
		SortOrder: t.SortOrder, Deleted: t.Deleted,
		CreatedAt: t.CreatedAt, UpdatedAt: t.UpdatedAt,
	}
}

// ApplyTaskSnapshot overwrites a task with the snapshot's full state.
func ApplyTaskSnapshot(t *Task, st *TaskState) {
	t.ID = st.ID
	t.StackID = st.StackID
	t.Title = st.Title
	t.Done = st.Done
	t.SortOrder = st.SortOrder
	t.Deleted = st.Deleted
	t.CreatedAt = st.CreatedAt
	t.UpdatedAt = st.UpdatedAt
}

// AttachmentSnapshot converts an attachment into its event snapshot form.
// LocalPath is deliberately not part of the snapshot: paths are per-device.
func AttachmentSnapshot(a *Attachment) *AttachmentState {
	return &AttachmentState{
		ID: a.ID, TaskID: a.TaskID, Filename: a.Filename, MimeType: a.MimeType,
		SizeBytes: a.SizeBytes, RemoteKey: a.RemoteKey, UploadStatus: a.UploadStatus,
		Deleted: a.Deleted, CreatedAt: a.CreatedAt, UpdatedAt: a.UpdatedAt,
	}
}
