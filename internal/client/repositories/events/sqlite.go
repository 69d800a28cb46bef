package events

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dmitrijs2005/stackpad/internal/client/models"
	"github.com/dmitrijs2005/stackpad/internal/common"
	"github.com/dmitrijs2005/stackpad/internal/dbx"
)

// SQLiteRepository implements Repository using a DBTX (either *sql.DB or
// *sql.Tx). Appends join whatever transaction the DBTX represents; the
// repository never commits on its own.
type SQLiteRepository struct {
	db dbx.DBTX
}

// NewSQLiteRepository returns a new SQLiteRepository bound to the given DBTX.
func NewSQLiteRepository(db dbx.DBTX) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

const eventColumns = `seq, id, type, entity_id, payload, payload_version,
	origin_user_id, origin_device_id, ts, synced, synced_at`

func (r *SQLiteRepository) Insert(ctx context.Context, e *models.Event) error {
	payload, err := e.MarshalPayload()
	if err != nil {
		return fmt.Errorf("failed to serialize payload: %w", err)
	}

	var entityID any
	if e.EntityID != "" {
		entityID = e.EntityID
	}

	query := `INSERT INTO events
			(id, type, entity_id, payload, payload_version, origin_user_id, origin_device_id, ts, synced)
			values (?, ?, ?, ?, ?, ?, ?, ?, 0)`
	res, err := r.db.ExecContext(ctx, query,
		e.ID, string(e.Type), entityID, payload, e.PayloadVersion,
		e.OriginUserID, e.OriginDeviceID, e.Timestamp)
	if err != nil {
		return fmt.Errorf("failed to insert event: %w", err)
	}

	seq, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get event seq: %w", err)
	}
	e.Seq = seq
	return nil
}

func (r *SQLiteRepository) InsertRemote(ctx context.Context, e *models.Event, syncedAt time.Time) error {
	payload, err := e.MarshalPayload()
	if err != nil {
		return fmt.Errorf("failed to serialize payload: %w", err)
	}

	var entityID any
	if e.EntityID != "" {
		entityID = e.EntityID
	}

	// Remote events arrive already synced and must never be re-pushed.
	query := `INSERT OR IGNORE INTO events
			(id, type, entity_id, payload, payload_version, origin_user_id, origin_device_id, ts, synced, synced_at)
			values (?, ?, ?, ?, ?, ?, ?, ?, 1, ?)`
	if _, err := r.db.ExecContext(ctx, query,
		e.ID, string(e.Type), entityID, payload, e.PayloadVersion,
		e.OriginUserID, e.OriginDeviceID, e.Timestamp, syncedAt); err != nil {
		return fmt.Errorf("failed to insert remote event: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) Pending(ctx context.Context, minVersion int) ([]*models.Event, error) {
	query := `select ` + eventColumns + ` from events
			where synced=0 and payload_version >= ? order by seq asc`
	rows, err := r.db.QueryContext(ctx, query, minVersion)
	if err != nil {
		return nil, fmt.Errorf("failed to select pending events: %w", err)
	}
	defer rows.Close()
	return scanEvents(rows)
}

func (r *SQLiteRepository) MarkSynced(ctx context.Context, ids []string, at time.Time) error {
	if len(ids) == 0 {
		return nil
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(ids)), ",")
	args := make([]any, 0, len(ids)+1)
	args = append(args, at)
	for _, id := range ids {
		args = append(args, id)
	}

	// synced=0 guard makes a second call for the same ids a no-op.
	query := `update events set synced=1, synced_at=? where synced=0 and id in (` + placeholders + `)`
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to mark events synced: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) HistoryFor(ctx context.Context, entityID string, desc bool) ([]*models.Event, error) {
	dir := "asc"
	if desc {
		dir = "desc"
	}
	query := `select ` + eventColumns + ` from events where entity_id=? order by seq ` + dir
	rows, err := r.db.QueryContext(ctx, query, entityID)
	if err != nil {
		return nil, fmt.Errorf("failed to select entity history: %w", err)
	}
	defer rows.Close()
	return scanEvents(rows)
}

func (r *SQLiteRepository) GetByID(ctx context.Context, id string) (*models.Event, error) {
	query := `select ` + eventColumns + ` from events where id=?`
	row := r.db.QueryRowContext(ctx, query, id)
	e, err := scanEvent(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.ErrorNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query row scan failed: %w", err)
	}
	return e, nil
}

func scanEvent(scan func(dest ...any) error) (*models.Event, error) {
	e := &models.Event{}
	var (
		typ      string
		entityID sql.NullString
		payload  []byte
		synced   int
		syncedAt sql.NullTime
	)
	err := scan(&e.Seq, &e.ID, &typ, &entityID, &payload, &e.PayloadVersion,
		&e.OriginUserID, &e.OriginDeviceID, &e.Timestamp, &synced, &syncedAt)
	if err != nil {
		return nil, err
	}
	e.Type = models.EventType(typ)
	e.EntityID = entityID.String
	e.Synced = synced != 0
	if syncedAt.Valid {
		t := syncedAt.Time
		e.SyncedAt = &t
	}
	if err := json.Unmarshal(payload, &e.Payload); err != nil {
		return nil, fmt.Errorf("failed to decode payload: %w", err)
	}
	return e, nil
}

func scanEvents(rows *sql.Rows) ([]*models.Event, error) {
	var result []*models.Event
	for rows.Next() {
		e, err := scanEvent(rows.Scan)
		if err != nil {
			return nil, err
		}
		result = append(result, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}
