package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/example/prodtrack/internal/ports/secondary"
)

// EventRepository implements secondary.EventRepository with SQLite.
type EventRepository struct {
	db *sql.DB
}

// NewEventRepository creates a new SQLite event repository.
func NewEventRepository(db *sql.DB) *EventRepository {
	return &EventRepository{db: db}
}

// Create appends an audit event.
func (r *EventRepository) Create(ctx context.Context, event *secondary.EventRecord) error {
	_, err := conn(ctx, r.db).ExecContext(ctx,
		`INSERT INTO session_events (id, session_id, pause_id, action, actor_id, actor_name, detail, occurred_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		event.ID, event.SessionID, nullString(event.PauseID), event.Action,
		nullString(event.ActorID), nullString(event.ActorName), nullString(event.Detail), event.OccurredAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to create session event: %w", err)
	}
	return nil
}

// ListBySession returns the events of a session in the order they were recorded.
func (r *EventRepository) ListBySession(ctx context.Context, sessionID string) ([]*secondary.EventRecord, error) {
	rows, err := conn(ctx, r.db).QueryContext(ctx,
		`SELECT id, session_id, pause_id, action, actor_id, actor_name, detail, occurred_at
		FROM session_events WHERE session_id = ? ORDER BY occurred_at, rowid`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to list session events: %w", err)
	}
	defer rows.Close()

	var events []*secondary.EventRecord
	for rows.Next() {
		var (
			pauseID   sql.NullString
			actorID   sql.NullString
			actorName sql.NullString
			detail    sql.NullString
		)
		e := &secondary.EventRecord{}
		if err := rows.Scan(&e.ID, &e.SessionID, &pauseID, &e.Action, &actorID, &actorName, &detail, &e.OccurredAt); err != nil {
			return nil, fmt.Errorf("failed to scan session event: %w", err)
		}
		e.PauseID = pauseID.String
		e.ActorID = actorID.String
		e.ActorName = actorName.String
		e.Detail = detail.String
		e.OccurredAt = e.OccurredAt.UTC()
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate session events: %w", err)
	}
	return events, nil
}

// Ensure EventRepository implements the interface
var _ secondary.EventRepository = (*EventRepository)(nil)
