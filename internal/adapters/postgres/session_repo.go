package postgres

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/example/prodtrack/internal/apperr"
	"github.com/example/prodtrack/internal/ports/secondary"
)

// SessionRepository implements secondary.SessionRepository with gorm.
type SessionRepository struct {
	db *gorm.DB
}

// NewSessionRepository creates a new PostgreSQL session repository.
func NewSessionRepository(db *gorm.DB) *SessionRepository {
	return &SessionRepository{db: db}
}

// Create persists a new session.
func (r *SessionRepository) Create(ctx context.Context, session *secondary.SessionRecord) error {
	model := sessionFromRecord(session)
	err := conn(ctx, r.db).Omit("Pauses").Create(model).Error
	return mapError(err, "create session",
		func() error { return apperr.Conflict("line %s already has an open session", session.LineID) },
		nil)
}

// GetByID retrieves a session by its ID.
func (r *SessionRepository) GetByID(ctx context.Context, id string) (*secondary.SessionRecord, error) {
	var model Session
	err := conn(ctx, r.db).Where("id = ?", id).First(&model).Error
	if err != nil {
		return nil, mapError(err, "get session", nil,
			func() error { return apperr.NotFound("session %s not found", id) })
	}
	return model.toRecord(), nil
}

// GetOpenByLine returns the active or paused session of a line, or nil.
func (r *SessionRepository) GetOpenByLine(ctx context.Context, lineID string) (*secondary.SessionRecord, error) {
	var model Session
	err := conn(ctx, r.db).
		Where("line_id = ? AND status IN ?", lineID, []string{"active", "paused"}).
		Clauses(lockForUpdate()).
		First(&model).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, mapError(err, "get open session", nil, nil)
	}
	return model.toRecord(), nil
}

// Save writes the mutable fields of a session if its stored status still
// equals expectedStatus.
func (r *SessionRepository) Save(ctx context.Context, session *secondary.SessionRecord, expectedStatus string) error {
	db := conn(ctx, r.db)
	model := sessionFromRecord(session)
	result := db.Model(&Session{}).
		Where("id = ? AND status = ?", session.ID, expectedStatus).
		Updates(map[string]any{
			"notes":                          model.Notes,
			"status":                         model.Status,
			"end_time":                       model.EndTime,
			"accumulated_production_seconds": model.AccumulatedProductionSeconds,
			"accumulated_pause_seconds":      model.AccumulatedPauseSeconds,
			"final_quantity":                 model.FinalQuantity,
			"quality_status":                 model.QualityStatus,
			"updated_at":                     model.UpdatedAt,
		})
	if result.Error != nil {
		return mapError(result.Error, "save session",
			func() error { return apperr.Conflict("line %s already has an open session", session.LineID) },
			nil)
	}
	if result.RowsAffected > 0 {
		return nil
	}

	var count int64
	if err := db.Model(&Session{}).Where("id = ?", session.ID).Count(&count).Error; err != nil {
		return mapError(err, "check session", nil, nil)
	}
	if count == 0 {
		return apperr.NotFound("session %s not found", session.ID)
	}
	return apperr.Conflict("session %s is no longer %s", session.ID, expectedStatus)
}

func (r *SessionRepository) filtered(ctx context.Context, filters secondary.SessionFilters) *gorm.DB {
	q := conn(ctx, r.db).Model(&Session{})
	if filters.LineID != "" {
		q = q.Where("line_id = ?", filters.LineID)
	}
	if len(filters.Statuses) > 0 {
		q = q.Where("status IN ?", filters.Statuses)
	}
	if filters.Overlap {
		if filters.To != nil {
			q = q.Where("start_time <= ?", filters.To.UTC())
		}
		if filters.From != nil {
			q = q.Where("(end_time IS NULL OR end_time >= ?)", filters.From.UTC())
		}
		return q
	}
	if filters.From != nil {
		q = q.Where("start_time >= ?", filters.From.UTC())
	}
	if filters.To != nil {
		q = q.Where("start_time <= ?", filters.To.UTC())
	}
	return q
}

// List retrieves sessions matching the filters, most recent first.
func (r *SessionRepository) List(ctx context.Context, filters secondary.SessionFilters) ([]*secondary.SessionRecord, error) {
	q := r.filtered(ctx, filters).Order("start_time DESC").Order("id")
	if filters.Limit > 0 {
		q = q.Limit(filters.Limit)
	}
	if filters.Offset > 0 {
		q = q.Offset(filters.Offset)
	}

	var models []Session
	if err := q.Find(&models).Error; err != nil {
		return nil, mapError(err, "list sessions", nil, nil)
	}
	records := make([]*secondary.SessionRecord, 0, len(models))
	for i := range models {
		records = append(records, models[i].toRecord())
	}
	return records, nil
}

// Count returns the number of sessions matching the filters.
func (r *SessionRepository) Count(ctx context.Context, filters secondary.SessionFilters) (int, error) {
	var count int64
	if err := r.filtered(ctx, filters).Count(&count).Error; err != nil {
		return 0, mapError(err, "count sessions", nil, nil)
	}
	return int(count), nil
}

// Ensure SessionRepository implements the interface
var _ secondary.SessionRepository = (*SessionRepository)(nil)
