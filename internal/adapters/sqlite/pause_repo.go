package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/example/prodtrack/internal/apperr"
	"github.com/example/prodtrack/internal/ports/secondary"
)

// PauseRepository implements secondary.PauseRepository with SQLite.
type PauseRepository struct {
	db *sql.DB
}

// NewPauseRepository creates a new SQLite pause repository.
func NewPauseRepository(db *sql.DB) *PauseRepository {
	return &PauseRepository{db: db}
}

// sessionIDChunk bounds the IN list of ListBySessions.
const sessionIDChunk = 200

const pauseSelect = `SELECT p.id, p.session_id, s.line_id, p.start_time, p.end_time, p.category, p.sub_category,
	p.reason, p.action_taken, p.duration_seconds, p.completed, p.lost_units,
	p.raw_material_refs, p.phase_refs, p.product_refs, p.recorded_by, p.recorded_by_name,
	p.created_at, p.updated_at
	FROM pauses p JOIN production_sessions s ON s.id = p.session_id`

func scanPause(row scanner) (*secondary.PauseRecord, error) {
	var (
		endTime        sql.NullTime
		subCategory    sql.NullString
		reason         sql.NullString
		actionTaken    sql.NullString
		duration       sql.NullInt64
		completed      sql.NullBool
		lostUnits      sql.NullInt64
		rawMaterial    sql.NullString
		phases         sql.NullString
		products       sql.NullString
		recordedBy     sql.NullString
		recordedByName sql.NullString
		createdAt      sql.NullTime
		updatedAt      sql.NullTime
	)

	record := &secondary.PauseRecord{}
	err := row.Scan(&record.ID, &record.SessionID, &record.LineID, &record.StartTime, &endTime, &record.Category, &subCategory,
		&reason, &actionTaken, &duration, &completed, &lostUnits,
		&rawMaterial, &phases, &products, &recordedBy, &recordedByName,
		&createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}

	record.StartTime = record.StartTime.UTC()
	record.EndTime = timePtr(endTime)
	record.SubCategory = subCategory.String
	record.Reason = reason.String
	record.ActionTaken = actionTaken.String
	record.DurationSeconds = duration.Int64
	record.Completed = completed.Bool
	record.LostUnits = lostUnits.Int64
	record.RecordedBy = recordedBy.String
	record.RecordedByName = recordedByName.String
	record.CreatedAt = createdAt.Time.UTC()
	record.UpdatedAt = updatedAt.Time.UTC()

	if record.RawMaterialRefs, err = decodeRefs(rawMaterial); err != nil {
		return nil, err
	}
	if record.PhaseRefs, err = decodeRefs(phases); err != nil {
		return nil, err
	}
	if record.ProductRefs, err = decodeRefs(products); err != nil {
		return nil, err
	}
	return record, nil
}

func encodePauseRefs(pause *secondary.PauseRecord) (raw, phases, products sql.NullString, err error) {
	if raw, err = encodeRefs(pause.RawMaterialRefs); err != nil {
		return
	}
	if phases, err = encodeRefs(pause.PhaseRefs); err != nil {
		return
	}
	products, err = encodeRefs(pause.ProductRefs)
	return
}

// Create persists a new open pause.
func (r *PauseRepository) Create(ctx context.Context, pause *secondary.PauseRecord) error {
	raw, phases, products, err := encodePauseRefs(pause)
	if err != nil {
		return err
	}

	_, err = conn(ctx, r.db).ExecContext(ctx,
		`INSERT INTO pauses (id, session_id, start_time, end_time, category, sub_category, reason, action_taken,
			duration_seconds, completed, lost_units, raw_material_refs, phase_refs, product_refs,
			recorded_by, recorded_by_name, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		pause.ID, pause.SessionID, pause.StartTime.UTC(), nullTime(pause.EndTime), pause.Category,
		nullString(pause.SubCategory), nullString(pause.Reason), nullString(pause.ActionTaken),
		pause.DurationSeconds, pause.Completed, pause.LostUnits, raw, phases, products,
		nullString(pause.RecordedBy), nullString(pause.RecordedByName), pause.CreatedAt.UTC(), pause.UpdatedAt.UTC(),
	)
	if isUniqueViolation(err) {
		return apperr.Conflict("session %s already has an open pause", pause.SessionID)
	}
	if isForeignKeyViolation(err) {
		return apperr.NotFound("session %s not found", pause.SessionID)
	}
	if err != nil {
		return fmt.Errorf("failed to create pause: %w", err)
	}
	return nil
}

// GetByID retrieves a pause by its ID.
func (r *PauseRepository) GetByID(ctx context.Context, id string) (*secondary.PauseRecord, error) {
	record, err := scanPause(conn(ctx, r.db).QueryRowContext(ctx, pauseSelect+" WHERE p.id = ?", id))
	if err == sql.ErrNoRows {
		return nil, apperr.NotFound("pause %s not found", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get pause: %w", err)
	}
	return record, nil
}

// GetOpenBySession returns the open pause of a session, or nil.
func (r *PauseRepository) GetOpenBySession(ctx context.Context, sessionID string) (*secondary.PauseRecord, error) {
	record, err := scanPause(conn(ctx, r.db).QueryRowContext(ctx,
		pauseSelect+" WHERE p.session_id = ? AND p.end_time IS NULL LIMIT 1", sessionID))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get open pause: %w", err)
	}
	return record, nil
}

// ListBySession returns every pause of a session ordered by start time.
func (r *PauseRepository) ListBySession(ctx context.Context, sessionID string) ([]*secondary.PauseRecord, error) {
	return r.query(ctx, pauseSelect+" WHERE p.session_id = ? ORDER BY p.start_time, p.id", sessionID)
}

// ListBySessions returns every pause of the given sessions, ordered by start time.
func (r *PauseRepository) ListBySessions(ctx context.Context, sessionIDs []string) ([]*secondary.PauseRecord, error) {
	var pauses []*secondary.PauseRecord
	for start := 0; start < len(sessionIDs); start += sessionIDChunk {
		end := min(start+sessionIDChunk, len(sessionIDs))
		chunk := sessionIDs[start:end]

		args := make([]any, len(chunk))
		for i, id := range chunk {
			args[i] = id
		}
		batch, err := r.query(ctx,
			pauseSelect+" WHERE p.session_id IN ("+placeholders(len(chunk))+") ORDER BY p.start_time, p.id", args...)
		if err != nil {
			return nil, err
		}
		pauses = append(pauses, batch...)
	}
	return pauses, nil
}

// Close settles an open pause.
func (r *PauseRepository) Close(ctx context.Context, pause *secondary.PauseRecord) error {
	result, err := conn(ctx, r.db).ExecContext(ctx,
		`UPDATE pauses SET end_time = ?, duration_seconds = ?, lost_units = ?, completed = ?,
			action_taken = ?, updated_at = ?
		WHERE id = ? AND end_time IS NULL`,
		nullTime(pause.EndTime), pause.DurationSeconds, pause.LostUnits, pause.Completed,
		nullString(pause.ActionTaken), pause.UpdatedAt.UTC(), pause.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to close pause: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return apperr.Conflict("pause %s is already closed", pause.ID)
	}
	return nil
}

// UpdateDetails writes reason, action taken and reference lists.
func (r *PauseRepository) UpdateDetails(ctx context.Context, pause *secondary.PauseRecord) error {
	raw, phases, products, err := encodePauseRefs(pause)
	if err != nil {
		return err
	}

	result, err := conn(ctx, r.db).ExecContext(ctx,
		`UPDATE pauses SET reason = ?, action_taken = ?, raw_material_refs = ?, phase_refs = ?, product_refs = ?,
			updated_at = ?
		WHERE id = ?`,
		nullString(pause.Reason), nullString(pause.ActionTaken), raw, phases, products, pause.UpdatedAt.UTC(), pause.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update pause: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return apperr.NotFound("pause %s not found", pause.ID)
	}
	return nil
}

func pauseWhere(filters secondary.PauseFilters) (string, []any) {
	clauses := []string{"1=1"}
	args := []any{}

	if filters.SessionID != "" {
		clauses = append(clauses, "p.session_id = ?")
		args = append(args, filters.SessionID)
	}
	if filters.LineID != "" {
		clauses = append(clauses, "s.line_id = ?")
		args = append(args, filters.LineID)
	}
	if filters.Category != "" {
		clauses = append(clauses, "p.category = ?")
		args = append(args, filters.Category)
	}
	if filters.From != nil {
		clauses = append(clauses, "p.start_time >= ?")
		args = append(args, filters.From.UTC())
	}
	if filters.To != nil {
		clauses = append(clauses, "p.start_time <= ?")
		args = append(args, filters.To.UTC())
	}
	return strings.Join(clauses, " AND "), args
}

// List retrieves pauses matching the filters, most recent first.
func (r *PauseRepository) List(ctx context.Context, filters secondary.PauseFilters) ([]*secondary.PauseRecord, error) {
	where, args := pauseWhere(filters)
	query, args := withPage(pauseSelect+" WHERE "+where+" ORDER BY p.start_time DESC, p.id", args, filters.Limit, filters.Offset)
	return r.query(ctx, query, args...)
}

// Count returns the number of pauses matching the filters.
func (r *PauseRepository) Count(ctx context.Context, filters secondary.PauseFilters) (int, error) {
	where, args := pauseWhere(filters)
	var count int
	err := conn(ctx, r.db).QueryRowContext(ctx,
		"SELECT COUNT(*) FROM pauses p JOIN production_sessions s ON s.id = p.session_id WHERE "+where, args...).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count pauses: %w", err)
	}
	return count, nil
}

// SumByCategory returns grouped totals over the filtered pause set.
func (r *PauseRepository) SumByCategory(ctx context.Context, filters secondary.PauseFilters) ([]*secondary.CategoryTotalRecord, error) {
	where, args := pauseWhere(filters)
	rows, err := conn(ctx, r.db).QueryContext(ctx,
		`SELECT p.category, COUNT(*), COALESCE(SUM(p.duration_seconds), 0), COALESCE(SUM(p.lost_units), 0)
		FROM pauses p JOIN production_sessions s ON s.id = p.session_id
		WHERE `+where+` GROUP BY p.category ORDER BY p.category`, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to sum pauses: %w", err)
	}
	defer rows.Close()

	var totals []*secondary.CategoryTotalRecord
	for rows.Next() {
		t := &secondary.CategoryTotalRecord{}
		if err := rows.Scan(&t.Category, &t.Count, &t.DurationSeconds, &t.LostUnits); err != nil {
			return nil, fmt.Errorf("failed to scan category total: %w", err)
		}
		totals = append(totals, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate category totals: %w", err)
	}
	return totals, nil
}

func (r *PauseRepository) query(ctx context.Context, query string, args ...any) ([]*secondary.PauseRecord, error) {
	rows, err := conn(ctx, r.db).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list pauses: %w", err)
	}
	defer rows.Close()

	var pauses []*secondary.PauseRecord
	for rows.Next() {
		record, err := scanPause(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan pause: %w", err)
		}
		pauses = append(pauses, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate pauses: %w", err)
	}
	return pauses, nil
}

// Ensure PauseRepository implements the interface
var _ secondary.PauseRepository = (*PauseRepository)(nil)
