package events

import (
	"context"
	"time"

	"github.com/dmitrijs2005/stackpad/internal/client/models"
)

// Repository is the storage contract for the append-only event log.
// Rows are immutable after insertion except for the synced flag.
type Repository interface {
	// Insert appends one event and fills in its Seq from the store.
	Insert(ctx context.Context, e *models.Event) error

	// InsertRemote records an event pulled from the server as already synced.
	// Replayed ids are ignored, so re-pulling the same feed is harmless.
	InsertRemote(ctx context.Context, e *models.Event, syncedAt time.Time) error

	// Pending returns unsynced events at or above the payload-version floor,
	// in Seq ascending order.
	Pending(ctx context.Context, minVersion int) ([]*models.Event, error)

	// MarkSynced flips synced for the given event ids. Already-synced ids are
	// skipped silently, so the call is idempotent.
	MarkSynced(ctx context.Context, ids []string, at time.Time) error

	// HistoryFor returns all events for one entity ordered by Seq.
	HistoryFor(ctx context.Context, entityID string, desc bool) ([]*models.Event, error)

	// GetByID returns a single event.
	GetByID(ctx context.Context, id string) (*models.Event, error)
}
