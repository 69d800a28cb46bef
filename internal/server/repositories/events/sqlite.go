package events

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/dmitrijs2005/stackpad/internal/dbx"
	"github.com/dmitrijs2005/stackpad/internal/server/models"
)

// SQLiteRepository implements Repository using a DBTX (either *sql.DB or *sql.Tx).
type SQLiteRepository struct {
	db dbx.DBTX
}

// NewSQLiteRepository returns a new SQLiteRepository bound to the given DBTX.
func NewSQLiteRepository(db dbx.DBTX) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

func (r *SQLiteRepository) Insert(ctx context.Context, e *models.StoredEvent) (bool, error) {
	query := `insert or ignore into events
			(event_id, user_id, type, entity_id, payload, payload_version, origin_device_id, ts, received_at)
			values (?, ?, ?, ?, ?, ?, ?, ?, ?)`
	res, err := r.db.ExecContext(ctx, query,
		e.EventID, e.UserID, e.Type, nullable(e.EntityID), e.Payload,
		e.PayloadVersion, e.OriginDeviceID, e.Timestamp, e.ReceivedAt)
	if err != nil {
		return false, fmt.Errorf("failed to insert event: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read rows affected: %w", err)
	}
	return n > 0, nil
}

func (r *SQLiteRepository) SelectSince(ctx context.Context, userID string, cursor int64, limit int) ([]*models.StoredEvent, error) {
	query := `select server_seq, event_id, user_id, type, entity_id, payload,
			payload_version, origin_device_id, ts, received_at
			from events where user_id=? and server_seq > ?
			order by server_seq asc limit ?`
	rows, err := r.db.QueryContext(ctx, query, userID, cursor, limit)
	if err != nil {
		return nil, fmt.Errorf("query failed: %w", err)
	}
	defer rows.Close()

	var result []*models.StoredEvent
	for rows.Next() {
		e := &models.StoredEvent{}
		var entityID sql.NullString
		if err := rows.Scan(&e.ServerSeq, &e.EventID, &e.UserID, &e.Type, &entityID,
			&e.Payload, &e.PayloadVersion, &e.OriginDeviceID, &e.Timestamp, &e.ReceivedAt); err != nil {
			return nil, fmt.Errorf("row scan failed: %w", err)
		}
		e.EntityID = entityID.String
		result = append(result, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration failed: %w", err)
	}
	return result, nil
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
