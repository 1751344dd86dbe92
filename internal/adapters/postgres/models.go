// Package postgres contains gorm-backed PostgreSQL implementations of the
// repository interfaces.
package postgres

import (
	"time"

	"github.com/example/prodtrack/internal/ports/secondary"
)

// Session is the production_sessions row.
type Session struct {
	ID                           string     `gorm:"column:id;primaryKey;type:varchar(64)"`
	LineID                       string     `gorm:"column:line_id;type:varchar(64);not null;index:idx_sessions_line_start,priority:1"`
	ProductRef                   *string    `gorm:"column:product_ref;type:varchar(128)"`
	Notes                        *string    `gorm:"column:notes;type:text"`
	Status                       string     `gorm:"column:status;type:varchar(20);not null;index"`
	StartTime                    time.Time  `gorm:"column:start_time;not null;index;index:idx_sessions_line_start,priority:2"`
	EndTime                      *time.Time `gorm:"column:end_time"`
	AccumulatedProductionSeconds int64      `gorm:"column:accumulated_production_seconds;not null;default:0"`
	AccumulatedPauseSeconds      int64      `gorm:"column:accumulated_pause_seconds;not null;default:0"`
	FinalQuantity                *int64     `gorm:"column:final_quantity"`
	QualityStatus                *string    `gorm:"column:quality_status;type:varchar(64)"`
	StartedBy                    *string    `gorm:"column:started_by;type:varchar(64)"`
	StartedByName                *string    `gorm:"column:started_by_name;type:varchar(128)"`
	CreatedAt                    time.Time  `gorm:"column:created_at"`
	UpdatedAt                    time.Time  `gorm:"column:updated_at"`

	Pauses []Pause `gorm:"foreignKey:SessionID;constraint:OnDelete:CASCADE"`
}

// TableName pins the table shared with the SQLite schema.
func (Session) TableName() string { return "production_sessions" }

// Pause is one pause ledger row. Reference lists are stored as JSON.
type Pause struct {
	ID              string     `gorm:"column:id;primaryKey;type:varchar(64)"`
	SessionID       string     `gorm:"column:session_id;type:varchar(64);not null;index:idx_pauses_session_start,priority:1"`
	StartTime       time.Time  `gorm:"column:start_time;not null;index;index:idx_pauses_session_start,priority:2"`
	EndTime         *time.Time `gorm:"column:end_time"`
	Category        string     `gorm:"column:category;type:varchar(32);not null;index"`
	SubCategory     *string    `gorm:"column:sub_category;type:varchar(128)"`
	Reason          *string    `gorm:"column:reason;type:text"`
	ActionTaken     *string    `gorm:"column:action_taken;type:text"`
	DurationSeconds int64      `gorm:"column:duration_seconds;not null;default:0"`
	Completed       bool       `gorm:"column:completed;not null;default:false"`
	LostUnits       int64      `gorm:"column:lost_units;not null;default:0"`
	RawMaterialRefs []string   `gorm:"column:raw_material_refs;type:jsonb;serializer:json"`
	PhaseRefs       []string   `gorm:"column:phase_refs;type:jsonb;serializer:json"`
	ProductRefs     []string   `gorm:"column:product_refs;type:jsonb;serializer:json"`
	RecordedBy      *string    `gorm:"column:recorded_by;type:varchar(64)"`
	RecordedByName  *string    `gorm:"column:recorded_by_name;type:varchar(128)"`
	CreatedAt       time.Time  `gorm:"column:created_at"`
	UpdatedAt       time.Time  `gorm:"column:updated_at"`

	// Filled from the owning session on reads
	LineID string `gorm:"->;column:line_id;-:migration"`
}

// TableName pins the table shared with the SQLite schema.
func (Pause) TableName() string { return "pauses" }

// Event is one session audit entry.
type Event struct {
	ID         string    `gorm:"column:id;primaryKey;type:varchar(64)"`
	SessionID  string    `gorm:"column:session_id;type:varchar(64);not null;index:idx_session_events_session,priority:1"`
	PauseID    *string   `gorm:"column:pause_id;type:varchar(64)"`
	Action     string    `gorm:"column:action;type:varchar(32);not null"`
	ActorID    *string   `gorm:"column:actor_id;type:varchar(64)"`
	ActorName  *string   `gorm:"column:actor_name;type:varchar(128)"`
	Detail     *string   `gorm:"column:detail;type:text"`
	OccurredAt time.Time `gorm:"column:occurred_at;not null;index:idx_session_events_session,priority:2"`
	Seq        int64     `gorm:"column:seq;autoIncrement;not null"`
}

// TableName pins the table shared with the SQLite schema.
func (Event) TableName() string { return "session_events" }

func optString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func derefString(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := t.UTC()
	return &v
}

func copyInt64(n *int64) *int64 {
	if n == nil {
		return nil
	}
	v := *n
	return &v
}

func sessionFromRecord(r *secondary.SessionRecord) *Session {
	return &Session{
		ID:                           r.ID,
		LineID:                       r.LineID,
		ProductRef:                   optString(r.ProductRef),
		Notes:                        optString(r.Notes),
		Status:                       r.Status,
		StartTime:                    r.StartTime.UTC(),
		EndTime:                      utcPtr(r.EndTime),
		AccumulatedProductionSeconds: r.AccumulatedProductionSeconds,
		AccumulatedPauseSeconds:      r.AccumulatedPauseSeconds,
		FinalQuantity:                copyInt64(r.FinalQuantity),
		QualityStatus:                optString(r.QualityStatus),
		StartedBy:                    optString(r.StartedBy),
		StartedByName:                optString(r.StartedByName),
		CreatedAt:                    r.CreatedAt.UTC(),
		UpdatedAt:                    r.UpdatedAt.UTC(),
	}
}

func (m *Session) toRecord() *secondary.SessionRecord {
	return &secondary.SessionRecord{
		ID:                           m.ID,
		LineID:                       m.LineID,
		ProductRef:                   derefString(m.ProductRef),
		Notes:                        derefString(m.Notes),
		Status:                       m.Status,
		StartTime:                    m.StartTime.UTC(),
		EndTime:                      utcPtr(m.EndTime),
		AccumulatedProductionSeconds: m.AccumulatedProductionSeconds,
		AccumulatedPauseSeconds:      m.AccumulatedPauseSeconds,
		FinalQuantity:                copyInt64(m.FinalQuantity),
		QualityStatus:                derefString(m.QualityStatus),
		StartedBy:                    derefString(m.StartedBy),
		StartedByName:                derefString(m.StartedByName),
		CreatedAt:                    m.CreatedAt.UTC(),
		UpdatedAt:                    m.UpdatedAt.UTC(),
	}
}

func pauseFromRecord(r *secondary.PauseRecord) *Pause {
	return &Pause{
		ID:              r.ID,
		SessionID:       r.SessionID,
		StartTime:       r.StartTime.UTC(),
		EndTime:         utcPtr(r.EndTime),
		Category:        r.Category,
		SubCategory:     optString(r.SubCategory),
		Reason:          optString(r.Reason),
		ActionTaken:     optString(r.ActionTaken),
		DurationSeconds: r.DurationSeconds,
		Completed:       r.Completed,
		LostUnits:       r.LostUnits,
		RawMaterialRefs: nilIfEmpty(r.RawMaterialRefs),
		PhaseRefs:       nilIfEmpty(r.PhaseRefs),
		ProductRefs:     nilIfEmpty(r.ProductRefs),
		RecordedBy:      optString(r.RecordedBy),
		RecordedByName:  optString(r.RecordedByName),
		CreatedAt:       r.CreatedAt.UTC(),
		UpdatedAt:       r.UpdatedAt.UTC(),
	}
}

func (m *Pause) toRecord() *secondary.PauseRecord {
	return &secondary.PauseRecord{
		ID:              m.ID,
		SessionID:       m.SessionID,
		LineID:          m.LineID,
		StartTime:       m.StartTime.UTC(),
		EndTime:         utcPtr(m.EndTime),
		Category:        m.Category,
		SubCategory:     derefString(m.SubCategory),
		Reason:          derefString(m.Reason),
		ActionTaken:     derefString(m.ActionTaken),
		DurationSeconds: m.DurationSeconds,
		Completed:       m.Completed,
		LostUnits:       m.LostUnits,
		RawMaterialRefs: nilIfEmpty(m.RawMaterialRefs),
		PhaseRefs:       nilIfEmpty(m.PhaseRefs),
		ProductRefs:     nilIfEmpty(m.ProductRefs),
		RecordedBy:      derefString(m.RecordedBy),
		RecordedByName:  derefString(m.RecordedByName),
		CreatedAt:       m.CreatedAt.UTC(),
		UpdatedAt:       m.UpdatedAt.UTC(),
	}
}

func eventFromRecord(r *secondary.EventRecord) *Event {
	return &Event{
		ID:         r.ID,
		SessionID:  r.SessionID,
		PauseID:    optString(r.PauseID),
		Action:     r.Action,
		ActorID:    optString(r.ActorID),
		ActorName:  optString(r.ActorName),
		Detail:     optString(r.Detail),
		OccurredAt: r.OccurredAt.UTC(),
	}
}

func (m *Event) toRecord() *secondary.EventRecord {
	return &secondary.EventRecord{
		ID:         m.ID,
		SessionID:  m.SessionID,
		PauseID:    derefString(m.PauseID),
		Action:     m.Action,
		ActorID:    derefString(m.ActorID),
		ActorName:  derefString(m.ActorName),
		Detail:     derefString(m.Detail),
		OccurredAt: m.OccurredAt.UTC(),
	}
}

func nilIfEmpty(refs []string) []string {
	if len(refs) == 0 {
		return nil
	}
	out := make([]string, len(refs))
	copy(out, refs)
	return out
}
