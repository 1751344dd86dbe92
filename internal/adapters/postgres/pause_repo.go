package postgres

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/example/prodtrack/internal/apperr"
	"github.com/example/prodtrack/internal/ports/secondary"
)

// sessionIDChunk bounds the IN list of ListBySessions.
const sessionIDChunk = 500

// PauseRepository implements secondary.PauseRepository with gorm.
type PauseRepository struct {
	db *gorm.DB
}

// NewPauseRepository creates a new PostgreSQL pause repository.
func NewPauseRepository(db *gorm.DB) *PauseRepository {
	return &PauseRepository{db: db}
}

func lockForUpdate() clause.Expression {
	return clause.Locking{Strength: "UPDATE"}
}

// base joins pauses to their owning session.
func (r *PauseRepository) base(ctx context.Context) *gorm.DB {
	return conn(ctx, r.db).Model(&Pause{}).
		Joins("JOIN production_sessions ON production_sessions.id = pauses.session_id")
}

// joined selects pauses with the line of their owning session.
func (r *PauseRepository) joined(ctx context.Context) *gorm.DB {
	return r.base(ctx).Select("pauses.*, production_sessions.line_id AS line_id")
}

func toPauseRecords(models []Pause) []*secondary.PauseRecord {
	records := make([]*secondary.PauseRecord, 0, len(models))
	for i := range models {
		records = append(records, models[i].toRecord())
	}
	return records
}

// Create persists a new open pause.
func (r *PauseRepository) Create(ctx context.Context, pause *secondary.PauseRecord) error {
	err := conn(ctx, r.db).Omit("LineID").Create(pauseFromRecord(pause)).Error
	return mapError(err, "create pause",
		func() error { return apperr.Conflict("session %s already has an open pause", pause.SessionID) },
		func() error { return apperr.NotFound("session %s not found", pause.SessionID) })
}

// GetByID retrieves a pause by its ID.
func (r *PauseRepository) GetByID(ctx context.Context, id string) (*secondary.PauseRecord, error) {
	var model Pause
	err := r.joined(ctx).Where("pauses.id = ?", id).Take(&model).Error
	if err != nil {
		return nil, mapError(err, "get pause", nil,
			func() error { return apperr.NotFound("pause %s not found", id) })
	}
	return model.toRecord(), nil
}

// GetOpenBySession returns the open pause of a session, or nil.
func (r *PauseRepository) GetOpenBySession(ctx context.Context, sessionID string) (*secondary.PauseRecord, error) {
	var model Pause
	err := r.joined(ctx).
		Where("pauses.session_id = ? AND pauses.end_time IS NULL", sessionID).
		Take(&model).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, mapError(err, "get open pause", nil, nil)
	}
	return model.toRecord(), nil
}

// ListBySession returns every pause of a session ordered by start time.
func (r *PauseRepository) ListBySession(ctx context.Context, sessionID string) ([]*secondary.PauseRecord, error) {
	var models []Pause
	err := r.joined(ctx).
		Where("pauses.session_id = ?", sessionID).
		Order("pauses.start_time").Order("pauses.id").
		Find(&models).Error
	if err != nil {
		return nil, mapError(err, "list pauses", nil, nil)
	}
	return toPauseRecords(models), nil
}

// ListBySessions returns every pause of the given sessions, ordered by start time.
func (r *PauseRepository) ListBySessions(ctx context.Context, sessionIDs []string) ([]*secondary.PauseRecord, error) {
	var records []*secondary.PauseRecord
	for start := 0; start < len(sessionIDs); start += sessionIDChunk {
		end := min(start+sessionIDChunk, len(sessionIDs))
		var models []Pause
		err := r.joined(ctx).
			Where("pauses.session_id IN ?", sessionIDs[start:end]).
			Order("pauses.start_time").Order("pauses.id").
			Find(&models).Error
		if err != nil {
			return nil, mapError(err, "list pauses", nil, nil)
		}
		records = append(records, toPauseRecords(models)...)
	}
	return records, nil
}

// Close settles an open pause.
func (r *PauseRepository) Close(ctx context.Context, pause *secondary.PauseRecord) error {
	model := pauseFromRecord(pause)
	result := conn(ctx, r.db).Model(&Pause{}).
		Where("id = ? AND end_time IS NULL", pause.ID).
		Updates(map[string]any{
			"end_time":         model.EndTime,
			"duration_seconds": model.DurationSeconds,
			"lost_units":       model.LostUnits,
			"completed":        model.Completed,
			"action_taken":     model.ActionTaken,
			"updated_at":       model.UpdatedAt,
		})
	if result.Error != nil {
		return mapError(result.Error, "close pause", nil, nil)
	}
	if result.RowsAffected == 0 {
		return apperr.Conflict("pause %s is already closed", pause.ID)
	}
	return nil
}

// UpdateDetails writes reason, action taken and reference lists.
func (r *PauseRepository) UpdateDetails(ctx context.Context, pause *secondary.PauseRecord) error {
	model := pauseFromRecord(pause)
	result := conn(ctx, r.db).Model(&Pause{ID: pause.ID}).
		Select("Reason", "ActionTaken", "RawMaterialRefs", "PhaseRefs", "ProductRefs", "UpdatedAt").
		Updates(model)
	if result.Error != nil {
		return mapError(result.Error, "update pause", nil, nil)
	}
	if result.RowsAffected == 0 {
		return apperr.NotFound("pause %s not found", pause.ID)
	}
	return nil
}

func applyPauseFilters(q *gorm.DB, filters secondary.PauseFilters) *gorm.DB {
	if filters.SessionID != "" {
		q = q.Where("pauses.session_id = ?", filters.SessionID)
	}
	if filters.LineID != "" {
		q = q.Where("production_sessions.line_id = ?", filters.LineID)
	}
	if filters.Category != "" {
		q = q.Where("pauses.category = ?", filters.Category)
	}
	if filters.From != nil {
		q = q.Where("pauses.start_time >= ?", filters.From.UTC())
	}
	if filters.To != nil {
		q = q.Where("pauses.start_time <= ?", filters.To.UTC())
	}
	return q
}

// List retrieves pauses matching the filters, most recent first.
func (r *PauseRepository) List(ctx context.Context, filters secondary.PauseFilters) ([]*secondary.PauseRecord, error) {
	q := applyPauseFilters(r.joined(ctx), filters).Order("pauses.start_time DESC").Order("pauses.id")
	if filters.Limit > 0 {
		q = q.Limit(filters.Limit)
	}
	if filters.Offset > 0 {
		q = q.Offset(filters.Offset)
	}
	var models []Pause
	if err := q.Find(&models).Error; err != nil {
		return nil, mapError(err, "list pauses", nil, nil)
	}
	return toPauseRecords(models), nil
}

// Count returns the number of pauses matching the filters.
func (r *PauseRepository) Count(ctx context.Context, filters secondary.PauseFilters) (int, error) {
	var count int64
	if err := applyPauseFilters(r.base(ctx), filters).Count(&count).Error; err != nil {
		return 0, mapError(err, "count pauses", nil, nil)
	}
	return int(count), nil
}

// SumByCategory returns grouped totals over the filtered pause set.
func (r *PauseRepository) SumByCategory(ctx context.Context, filters secondary.PauseFilters) ([]*secondary.CategoryTotalRecord, error) {
	var rows []struct {
		Category        string
		Count           int
		DurationSeconds int64
		LostUnits       int64
	}
	err := applyPauseFilters(r.base(ctx), filters).
		Select(`pauses.category AS category, COUNT(*) AS count,
			COALESCE(SUM(pauses.duration_seconds), 0) AS duration_seconds,
			COALESCE(SUM(pauses.lost_units), 0) AS lost_units`).
		Group("pauses.category").
		Order("pauses.category").
		Scan(&rows).Error
	if err != nil {
		return nil, mapError(err, "sum pauses", nil, nil)
	}

	totals := make([]*secondary.CategoryTotalRecord, 0, len(rows))
	for _, row := range rows {
		totals = append(totals, &secondary.CategoryTotalRecord{
			Category:        row.Category,
			Count:           row.Count,
			DurationSeconds: row.DurationSeconds,
			LostUnits:       row.LostUnits,
		})
	}
	return totals, nil
}

// Ensure PauseRepository implements the interface
var _ secondary.PauseRepository = (*PauseRepository)(nil)
