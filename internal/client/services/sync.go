package services

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/dmitrijs2005/stackpad/internal/api"
	"github.com/dmitrijs2005/stackpad/internal/client/client"
	"github.com/dmitrijs2005/stackpad/internal/client/eventlog"
	"github.com/dmitrijs2005/stackpad/internal/client/models"
	"github.com/dmitrijs2005/stackpad/internal/client/push"
	"github.com/dmitrijs2005/stackpad/internal/client/reconcile"
	"github.com/dmitrijs2005/stackpad/internal/client/repositories/attachments"
	"github.com/dmitrijs2005/stackpad/internal/client/repositories/events"
	"github.com/dmitrijs2005/stackpad/internal/client/repositories/metadata"
	"github.com/dmitrijs2005/stackpad/internal/client/repositories/stacks"
	"github.com/dmitrijs2005/stackpad/internal/client/repositories/tasks"
	"github.com/dmitrijs2005/stackpad/internal/common"
	"github.com/dmitrijs2005/stackpad/internal/dbx"
)

// SyncService orchestrates one sync round (push pending, pull remote, repair
// invariants) plus the history/revert operations built on the event log.
type SyncService interface {
	// Sync pushes pending events, applies remote ones, then repairs.
	Sync(ctx context.Context) error

	// ApplyRemote pulls and applies remote events, returning how many were
	// applied.
	ApplyRemote(ctx context.Context) (int, error)

	// History returns an entity's event history, newest first.
	History(ctx context.Context, entityID string) ([]*models.Event, error)

	// Revert restores an entity to a historical event's snapshot by
	// appending a new forward event; history is never rewritten.
	Revert(ctx context.Context, entityID, eventID string) error
}

type syncService struct {
	db         *sql.DB
	log        *eventlog.Log
	api        client.Client
	pusher     *push.Pusher
	reconciler *reconcile.Reconciler
	now        func() time.Time
}

// NewSyncService returns the production SyncService.
func NewSyncService(db *sql.DB, log *eventlog.Log, apiClient client.Client, pusher *push.Pusher, reconciler *reconcile.Reconciler) SyncService {
	return &syncService{
		db:         db,
		log:        log,
		api:        apiClient,
		pusher:     pusher,
		reconciler: reconciler,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

func (s *syncService) Sync(ctx context.Context) error {
	if _, err := s.pusher.PushPending(ctx); err != nil {
		return err
	}
	if _, err := s.ApplyRemote(ctx); err != nil {
		return err
	}
	return nil
}

func (s *syncService) ApplyRemote(ctx context.Context) (int, error) {
	meta := metadata.NewSQLiteRepository(s.db)

	cursor := int64(0)
	if v, err := meta.Get(ctx, metadata.KeyPullCursor); err == nil {
		cursor, _ = strconv.ParseInt(v, 10, 64)
	} else if !errors.Is(err, common.ErrorNotFound) {
		return 0, err
	}

	remote, next, err := s.api.PullEvents(ctx, cursor)
	if err != nil {
		return 0, err
	}
	if len(remote) == 0 {
		return 0, nil
	}

	applied := 0
	now := s.now()
	err = dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		for _, we := range remote {
			// Our own events come back on the pull feed; they are already
			// part of local state.
			if we.OriginDeviceID == s.log.Origin().DeviceID {
				continue
			}
			if we.PayloadVersion < common.MinPayloadVersion {
				continue
			}
			ok, err := applyWireEvent(ctx, tx, we, now)
			if err != nil {
				return err
			}
			if ok {
				applied++
			}
		}
		return metadata.NewSQLiteRepository(tx).Set(ctx, metadata.KeyPullCursor, strconv.FormatInt(next, 10))
	})
	if err != nil {
		return 0, fmt.Errorf("error applying remote events: %w", err)
	}

	// Remote snapshots can set the active flag behind the invariant's back.
	if _, err := s.reconciler.ValidateAndRepair(ctx, ""); err != nil && !errors.Is(err, common.ErrAmbiguousActive) {
		return applied, err
	}
	return applied, nil
}

func (s *syncService) History(ctx context.Context, entityID string) ([]*models.Event, error) {
	return s.log.HistoryFor(ctx, entityID, true)
}

func (s *syncService) Revert(ctx context.Context, entityID, eventID string) error {
	e, err := s.log.GetByID(ctx, eventID)
	if err != nil {
		return err
	}
	if e.EntityID != entityID {
		return fmt.Errorf("event %s does not belong to entity %s", eventID, entityID)
	}

	err = dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		now := s.now()
		changes := map[string]any{"revertedTo": eventID}

		switch e.Payload.Kind {
		case models.SnapshotStack:
			st := &models.Stack{}
			models.ApplyStackSnapshot(st, e.Payload.Stack)
			st.UpdatedAt = now
			p := models.Payload{Kind: models.SnapshotStack, Stack: models.StackSnapshot(st), Changes: changes}
			if _, err := s.log.Append(ctx, tx, models.EventStackUpdated, st.ID, p); err != nil {
				return err
			}
			return stacks.NewSQLiteRepository(tx).CreateOrUpdate(ctx, st)

		case models.SnapshotTask:
			t := &models.Task{}
			models.ApplyTaskSnapshot(t, e.Payload.Task)
			t.UpdatedAt = now
			p := models.Payload{Kind: models.SnapshotTask, Task: models.TaskSnapshot(t), Changes: changes}
			if _, err := s.log.Append(ctx, tx, models.EventTaskUpdated, t.ID, p); err != nil {
				return err
			}
			return tasks.NewSQLiteRepository(tx).CreateOrUpdate(ctx, t)

		default:
			return fmt.Errorf("cannot revert event of kind %q", e.Payload.Kind)
		}
	})
	if err != nil {
		return fmt.Errorf("error reverting: %w", err)
	}
	return nil
}

// applyWireEvent upserts the authoritative snapshot carried by one remote
// event and records the event in the local log, so HistoryFor sees remote
// mutations too. The best-effort changes map is ignored: only the snapshot
// counts.
func applyWireEvent(ctx context.Context, tx dbx.DBTX, we api.WireEvent, at time.Time) (bool, error) {
	raw, err := json.Marshal(we.Payload)
	if err != nil {
		return false, err
	}
	var p models.Payload
	if err := json.Unmarshal(raw, &p); err != nil {
		return false, fmt.Errorf("failed to decode remote payload %s: %w", we.EventID, err)
	}
	if err := p.Validate(); err != nil {
		return false, nil // malformed remote payloads are skipped, not fatal
	}

	ok, err := applySnapshot(ctx, tx, p)
	if err != nil || !ok {
		return ok, err
	}

	e := &models.Event{
		ID:             we.EventID,
		Type:           models.EventType(we.Type),
		EntityID:       we.EntityID,
		Payload:        p,
		PayloadVersion: we.PayloadVersion,
		OriginUserID:   we.OriginUserID,
		OriginDeviceID: we.OriginDeviceID,
		Timestamp:      we.Timestamp,
	}
	if err := events.NewSQLiteRepository(tx).InsertRemote(ctx, e, at); err != nil {
		return false, err
	}
	return true, nil
}

// applySnapshot materializes one decoded payload into the snapshot tables.
func applySnapshot(ctx context.Context, tx dbx.DBTX, p models.Payload) (bool, error) {
	switch p.Kind {
	case models.SnapshotStack:
		st := &models.Stack{}
		models.ApplyStackSnapshot(st, p.Stack)
		return true, stacks.NewSQLiteRepository(tx).CreateOrUpdate(ctx, st)

	case models.SnapshotTask:
		t := &models.Task{}
		models.ApplyTaskSnapshot(t, p.Task)
		return true, tasks.NewSQLiteRepository(tx).CreateOrUpdate(ctx, t)

	case models.SnapshotAttachment:
		repo := attachments.NewSQLiteRepository(tx)
		a := &models.Attachment{}
		// Keep the device-local path when the record already exists.
		if existing, err := repo.GetByID(ctx, p.Attachment.ID); err == nil {
			a.LocalPath = existing.LocalPath
		}
		a.ID = p.Attachment.ID
		a.TaskID = p.Attachment.TaskID
		a.Filename = p.Attachment.Filename
		a.MimeType = p.Attachment.MimeType
		a.SizeBytes = p.Attachment.SizeBytes
		a.RemoteKey = p.Attachment.RemoteKey
		a.UploadStatus = p.Attachment.UploadStatus
		a.Deleted = p.Attachment.Deleted
		a.CreatedAt = p.Attachment.CreatedAt
		a.UpdatedAt = p.Attachment.UpdatedAt
		return true, repo.CreateOrUpdate(ctx, a)

	case models.SnapshotOrder:
		repo := stacks.NewSQLiteRepository(tx)
		for _, oe := range p.Order {
			if err := repo.SetSortOrder(ctx, oe.ID, oe.SortOrder); err != nil {
				return false, err
			}
		}
		return true, nil
	}
	return false, nil
}
