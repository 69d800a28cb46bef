package services

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/dmitrijs2005/stackpad/internal/api"
	"github.com/dmitrijs2005/stackpad/internal/dbx"
	"github.com/dmitrijs2005/stackpad/internal/server/models"
	"github.com/dmitrijs2005/stackpad/internal/server/repositories/events"
)

// PullLimit caps how many events one pull request returns; the client calls
// again with the advanced cursor to drain the rest.
const PullLimit = 500

// EventService ingests client event batches and relays them back by cursor.
// Payloads pass through opaquely: only clients interpret snapshots.
type EventService struct {
	db   *sql.DB
	repo events.Repository
	now  func() time.Time
}

// NewEventService returns the production EventService.
func NewEventService(db *sql.DB, repo events.Repository) *EventService {
	return &EventService{
		db:   db,
		repo: repo,
		now:  func() time.Time { return time.Now().UTC() },
	}
}

// Push stores a batch for the user in one transaction and returns the ids it
// accepted. Replayed events are acked without being stored twice so a client
// that lost a previous response can safely re-push.
func (s *EventService) Push(ctx context.Context, userID string, batch []api.WireEvent) ([]string, error) {
	accepted := make([]string, 0, len(batch))

	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := events.NewSQLiteRepository(tx)
		for _, we := range batch {
			payload, err := json.Marshal(we.Payload)
			if err != nil {
				return fmt.Errorf("error encoding payload of %s: %w", we.EventID, err)
			}
			_, err = repo.Insert(ctx, &models.StoredEvent{
				EventID:        we.EventID,
				UserID:         userID,
				Type:           we.Type,
				EntityID:       we.EntityID,
				Payload:        payload,
				PayloadVersion: we.PayloadVersion,
				OriginDeviceID: we.OriginDeviceID,
				Timestamp:      we.Timestamp,
				ReceivedAt:     s.now(),
			})
			if err != nil {
				return err
			}
			accepted = append(accepted, we.EventID)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return accepted, nil
}

// Pull returns the user's events after the cursor, oldest first, with the
// cursor to use on the next call.
func (s *EventService) Pull(ctx context.Context, userID string, cursor int64) ([]api.WireEvent, int64, error) {
	stored, err := s.repo.SelectSince(ctx, userID, cursor, PullLimit)
	if err != nil {
		return nil, 0, err
	}

	next := cursor
	result := make([]api.WireEvent, 0, len(stored))
	for _, e := range stored {
		var payload map[string]any
		if err := json.Unmarshal(e.Payload, &payload); err != nil {
			return nil, 0, fmt.Errorf("error decoding payload of %s: %w", e.EventID, err)
		}
		result = append(result, api.WireEvent{
			EventID:        e.EventID,
			Type:           e.Type,
			EntityID:       e.EntityID,
			Payload:        payload,
			PayloadVersion: e.PayloadVersion,
			OriginUserID:   e.UserID,
			OriginDeviceID: e.OriginDeviceID,
			Timestamp:      e.Timestamp,
		})
		next = e.ServerSeq
	}
	return result, next, nil
}
