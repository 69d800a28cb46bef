package events

import (
	"context"

	"github.com/dmitrijs2005/stackpad/internal/server/models"
)

// Repository describes persistence for the server-side event store.
type Repository interface {
	// Insert appends one event and reports whether the row was new. A
	// replayed (user_id, event_id) pair is ignored and reported as false so
	// that re-pushed batches stay idempotent.
	Insert(ctx context.Context, e *models.StoredEvent) (bool, error)

	// SelectSince returns a user's events with server_seq greater than the
	// cursor, oldest first, capped at limit.
	SelectSince(ctx context.Context, userID string, cursor int64, limit int) ([]*models.StoredEvent, error)
}
