package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/example/prodtrack/internal/apperr"
	"github.com/example/prodtrack/internal/ports/secondary"
)

// SessionRepository implements secondary.SessionRepository with SQLite.
type SessionRepository struct {
	db *sql.DB
}

// NewSessionRepository creates a new SQLite session repository.
func NewSessionRepository(db *sql.DB) *SessionRepository {
	return &SessionRepository{db: db}
}

const sessionSelectCols = `id, line_id, product_ref, notes, status, start_time, end_time,
	accumulated_production_seconds, accumulated_pause_seconds, final_quantity, quality_status,
	started_by, started_by_name, created_at, updated_at`

// scanSession scans a row into a SessionRecord. NULL counters read as 0.
func scanSession(row scanner) (*secondary.SessionRecord, error) {
	var (
		productRef    sql.NullString
		notes         sql.NullString
		endTime       sql.NullTime
		production    sql.NullInt64
		paused        sql.NullInt64
		finalQuantity sql.NullInt64
		qualityStatus sql.NullString
		startedBy     sql.NullString
		startedByName sql.NullString
		createdAt     sql.NullTime
		updatedAt     sql.NullTime
	)

	record := &secondary.SessionRecord{}
	err := row.Scan(&record.ID, &record.LineID, &productRef, &notes, &record.Status, &record.StartTime, &endTime,
		&production, &paused, &finalQuantity, &qualityStatus, &startedBy, &startedByName, &createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}

	record.ProductRef = productRef.String
	record.Notes = notes.String
	record.StartTime = record.StartTime.UTC()
	record.EndTime = timePtr(endTime)
	record.AccumulatedProductionSeconds = production.Int64
	record.AccumulatedPauseSeconds = paused.Int64
	if finalQuantity.Valid {
		q := finalQuantity.Int64
		record.FinalQuantity = &q
	}
	record.QualityStatus = qualityStatus.String
	record.StartedBy = startedBy.String
	record.StartedByName = startedByName.String
	record.CreatedAt = createdAt.Time.UTC()
	record.UpdatedAt = updatedAt.Time.UTC()
	return record, nil
}

// Create persists a new session.
func (r *SessionRepository) Create(ctx context.Context, session *secondary.SessionRecord) error {
	_, err := conn(ctx, r.db).ExecContext(ctx,
		`INSERT INTO production_sessions (id, line_id, product_ref, notes, status, start_time, end_time,
			accumulated_production_seconds, accumulated_pause_seconds, final_quantity, quality_status,
			started_by, started_by_name, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		session.ID, session.LineID, nullString(session.ProductRef), nullString(session.Notes), session.Status,
		session.StartTime.UTC(), nullTime(session.EndTime),
		session.AccumulatedProductionSeconds, session.AccumulatedPauseSeconds, nullInt64(session.FinalQuantity),
		nullString(session.QualityStatus), nullString(session.StartedBy), nullString(session.StartedByName),
		session.CreatedAt.UTC(), session.UpdatedAt.UTC(),
	)
	if isUniqueViolation(err) {
		return apperr.Conflict("line %s already has an open session", session.LineID)
	}
	if err != nil {
		return fmt.Errorf("failed to create session: %w", err)
	}
	return nil
}

// GetByID retrieves a session by its ID.
func (r *SessionRepository) GetByID(ctx context.Context, id string) (*secondary.SessionRecord, error) {
	row := conn(ctx, r.db).QueryRowContext(ctx,
		"SELECT "+sessionSelectCols+" FROM production_sessions WHERE id = ?", id)
	record, err := scanSession(row)
	if err == sql.ErrNoRows {
		return nil, apperr.NotFound("session %s not found", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get session: %w", err)
	}
	return record, nil
}

// GetOpenByLine returns the active or paused session of a line, or nil.
func (r *SessionRepository) GetOpenByLine(ctx context.Context, lineID string) (*secondary.SessionRecord, error) {
	row := conn(ctx, r.db).QueryRowContext(ctx,
		"SELECT "+sessionSelectCols+" FROM production_sessions WHERE line_id = ? AND status IN ('active', 'paused') LIMIT 1",
		lineID)
	record, err := scanSession(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get open session: %w", err)
	}
	return record, nil
}

// Save writes the mutable fields of a session if its stored status still
// equals expectedStatus.
func (r *SessionRepository) Save(ctx context.Context, session *secondary.SessionRecord, expectedStatus string) error {
	q := conn(ctx, r.db)
	result, err := q.ExecContext(ctx,
		`UPDATE production_sessions SET
			notes = ?, status = ?, end_time = ?,
			accumulated_production_seconds = ?, accumulated_pause_seconds = ?,
			final_quantity = ?, quality_status = ?, updated_at = ?
		WHERE id = ? AND status = ?`,
		nullString(session.Notes), session.Status, nullTime(session.EndTime),
		session.AccumulatedProductionSeconds, session.AccumulatedPauseSeconds,
		nullInt64(session.FinalQuantity), nullString(session.QualityStatus), session.UpdatedAt.UTC(),
		session.ID, expectedStatus,
	)
	if isUniqueViolation(err) {
		return apperr.Conflict("line %s already has an open session", session.LineID)
	}
	if err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected > 0 {
		return nil
	}

	var exists int
	if err := q.QueryRowContext(ctx, "SELECT COUNT(*) FROM production_sessions WHERE id = ?", session.ID).Scan(&exists); err != nil {
		return fmt.Errorf("failed to check session: %w", err)
	}
	if exists == 0 {
		return apperr.NotFound("session %s not found", session.ID)
	}
	return apperr.Conflict("session %s is no longer %s", session.ID, expectedStatus)
}

// sessionWhere builds the WHERE clause for session filters.
func sessionWhere(filters secondary.SessionFilters) (string, []any) {
	clauses := []string{"1=1"}
	args := []any{}

	if filters.LineID != "" {
		clauses = append(clauses, "line_id = ?")
		args = append(args, filters.LineID)
	}
	if len(filters.Statuses) > 0 {
		clauses = append(clauses, "status IN ("+placeholders(len(filters.Statuses))+")")
		for _, s := range filters.Statuses {
			args = append(args, s)
		}
	}
	if filters.Overlap {
		// The run touches [From, To]: started before To and not ended before From
		if filters.To != nil {
			clauses = append(clauses, "start_time <= ?")
			args = append(args, filters.To.UTC())
		}
		if filters.From != nil {
			clauses = append(clauses, "(end_time IS NULL OR end_time >= ?)")
			args = append(args, filters.From.UTC())
		}
	} else {
		if filters.From != nil {
			clauses = append(clauses, "start_time >= ?")
			args = append(args, filters.From.UTC())
		}
		if filters.To != nil {
			clauses = append(clauses, "start_time <= ?")
			args = append(args, filters.To.UTC())
		}
	}
	return strings.Join(clauses, " AND "), args
}

// List retrieves sessions matching the filters, most recent first.
func (r *SessionRepository) List(ctx context.Context, filters secondary.SessionFilters) ([]*secondary.SessionRecord, error) {
	where, args := sessionWhere(filters)
	query := "SELECT " + sessionSelectCols + " FROM production_sessions WHERE " + where + " ORDER BY start_time DESC, id"
	query, args = withPage(query, args, filters.Limit, filters.Offset)

	rows, err := conn(ctx, r.db).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}
	defer rows.Close()

	var sessions []*secondary.SessionRecord
	for rows.Next() {
		record, err := scanSession(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan session: %w", err)
		}
		sessions = append(sessions, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate sessions: %w", err)
	}
	return sessions, nil
}

// Count returns the number of sessions matching the filters.
func (r *SessionRepository) Count(ctx context.Context, filters secondary.SessionFilters) (int, error) {
	where, args := sessionWhere(filters)
	var count int
	err := conn(ctx, r.db).QueryRowContext(ctx, "SELECT COUNT(*) FROM production_sessions WHERE "+where, args...).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count sessions: %w", err)
	}
	return count, nil
}

func placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}

// withPage appends LIMIT/OFFSET when a limit or offset is set.
func withPage(query string, args []any, limit, offset int) (string, []any) {
	if limit <= 0 && offset <= 0 {
		return query, args
	}
	if limit <= 0 {
		limit = -1
	}
	return query + " LIMIT ? OFFSET ?", append(args, limit, offset)
}

// Ensure SessionRepository implements the interface
var _ secondary.SessionRepository = (*SessionRepository)(nil)
