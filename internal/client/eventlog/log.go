// Package eventlog is the append-only record of domain mutations and the
// single source of truth for what must be pushed to the server.
//
// Appends take the caller's transaction handle: a service batches its field
// mutations and event appends and commits once. The log itself never commits,
// so "append succeeded" only becomes durable together with the mutation it
// describes.
package eventlog

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/dmitrijs2005/stackpad/internal/client/models"
	"github.com/dmitrijs2005/stackpad/internal/client/repositories/events"
	"github.com/dmitrijs2005/stackpad/internal/common"
	"github.com/dmitrijs2005/stackpad/internal/dbx"
	"github.com/google/uuid"
)

// Origin identifies who and which device produced an event. It is passed
// explicitly at construction; there is no process-wide identity singleton.
type Origin struct {
	UserID   string
	DeviceID string
}

// Log appends and queries mutation events.
type Log struct {
	db         *sql.DB
	origin     Origin
	now        func() time.Time
	minVersion int
}

// Option customizes a Log.
type Option func(*Log)

// WithClock replaces the wall clock, for tests.
func WithClock(now func() time.Time) Option {
	return func(l *Log) { l.now = now }
}

// WithMinPayloadVersion overrides the version floor used by Pending.
func WithMinPayloadVersion(v int) Option {
	return func(l *Log) { l.minVersion = v }
}

// New returns a Log bound to the local store and the given origin identity.
func New(db *sql.DB, origin Origin, opts ...Option) *Log {
	l := &Log{
		db:         db,
		origin:     origin,
		now:        func() time.Time { return time.Now().UTC() },
		minVersion: common.MinPayloadVersion,
	}
	for _, o := range opts {
		o(l)
	}
	return l
}

// Append records one mutation on the caller's transaction handle. The event's
// Seq is assigned by the store; on error the caller must treat the mutation
// as not having happened.
func (l *Log) Append(ctx context.Context, tx dbx.DBTX, typ models.EventType, entityID string, payload models.Payload) (*models.Event, error) {
	if err := payload.Validate(); err != nil {
		return nil, fmt.Errorf("invalid payload for %s: %w", typ, err)
	}

	e := &models.Event{
		ID:             uuid.NewString(),
		Type:           typ,
		EntityID:       entityID,
		Payload:        payload,
		PayloadVersion: common.CurrentPayloadVersion,
		OriginUserID:   l.origin.UserID,
		OriginDeviceID: l.origin.DeviceID,
		Timestamp:      l.now(),
	}

	if err := events.NewSQLiteRepository(tx).Insert(ctx, e); err != nil {
		return nil, fmt.Errorf("append failed: %w", err)
	}
	return e, nil
}

// Pending returns all unsynced events at or above the payload-version floor,
// oldest first. Events below the floor were written by an incompatible build
// and are skipped without being deleted.
func (l *Log) Pending(ctx context.Context) ([]*models.Event, error) {
	return events.NewSQLiteRepository(l.db).Pending(ctx, l.minVersion)
}

// MarkSynced flips the synced flag for the given events. Calling it twice for
// the same events is a no-op.
func (l *Log) MarkSynced(ctx context.Context, evs []*models.Event) error {
	if len(evs) == 0 {
		return nil
	}
	now := l.now()
	ids := make([]string, len(evs))
	for i, e := range evs {
		ids[i] = e.ID
	}
	if err := events.NewSQLiteRepository(l.db).MarkSynced(ctx, ids, now); err != nil {
		return err
	}
	for _, e := range evs {
		if !e.Synced {
			e.Synced = true
			t := now
			e.SyncedAt = &t
		}
	}
	return nil
}

// HistoryFor returns the full event history of one entity in Seq order.
func (l *Log) HistoryFor(ctx context.Context, entityID string, desc bool) ([]*models.Event, error) {
	return events.NewSQLiteRepository(l.db).HistoryFor(ctx, entityID, desc)
}

// GetByID returns one event.
func (l *Log) GetByID(ctx context.Context, id string) (*models.Event, error) {
	return events.NewSQLiteRepository(l.db).GetByID(ctx, id)
}

// Origin returns the identity stamped on appended events.
func (l *Log) Origin() Origin {
	return l.origin
}

// SetUser replaces the user identity stamped on subsequently appended
// events, e.g. after a login on a previously anonymous device.
func (l *Log) SetUser(username string) {
	l.origin.UserID = username
}
