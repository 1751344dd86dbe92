package postgres

import (
	"context"

	"gorm.io/gorm"

	"github.com/example/prodtrack/internal/ports/secondary"
)

// EventRepository implements secondary.EventRepository with gorm.
type EventRepository struct {
	db *gorm.DB
}

// NewEventRepository creates a new PostgreSQL event repository.
func NewEventRepository(db *gorm.DB) *EventRepository {
	return &EventRepository{db: db}
}

// Create appends an audit event.
func (r *EventRepository) Create(ctx context.Context, event *secondary.EventRecord) error {
	return mapError(conn(ctx, r.db).Create(eventFromRecord(event)).Error, "create session event", nil, nil)
}

// ListBySession returns the events of a session in the order they were recorded.
func (r *EventRepository) ListBySession(ctx context.Context, sessionID string) ([]*secondary.EventRecord, error) {
	var models []Event
	err := conn(ctx, r.db).
		Where("session_id = ?", sessionID).
		Order("occurred_at").Order("seq").
		Find(&models).Error
	if err != nil {
		return nil, mapError(err, "list session events", nil, nil)
	}
	records := make([]*secondary.EventRecord, 0, len(models))
	for i := range models {
		records = append(records, models[i].toRecord())
	}
	return records, nil
}

// Ensure EventRepository implements the interface
var _ secondary.EventRepository = (*EventRepository)(nil)
