// Package secondary defines the secondary ports (driven adapters) for the application.
// These are the interfaces through which the application drives external systems.
package secondary

import (
	"context"
	"time"
)

// Transactor runs a unit of work atomically. Repositories called with the ctx
// passed to fn participate in the same transaction.
type Transactor interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// SessionRepository defines the secondary port for production session persistence.
type SessionRepository interface {
	// Create persists a new session. Returns a Conflict error when the line
	// already holds an active or paused session.
	Create(ctx context.Context, session *SessionRecord) error

	// GetByID retrieves a session by its ID. Returns a NotFound error if missing.
	GetByID(ctx context.Context, id string) (*SessionRecord, error)

	// GetOpenByLine returns the active or paused session of a line, or nil.
	GetOpenByLine(ctx context.Context, lineID string) (*SessionRecord, error)

	// Save writes the mutable fields of a session, provided its stored status
	// still equals expectedStatus. Returns a Conflict error otherwise.
	Save(ctx context.Context, session *SessionRecord, expectedStatus string) error

	// List retrieves sessions matching the filters, ordered by start time descending.
	List(ctx context.Context, filters SessionFilters) ([]*SessionRecord, error)

	// Count returns the number of sessions matching the filters (ignores Limit/Offset).
	Count(ctx context.Context, filters SessionFilters) (int, error)
}

// SessionRecord represents a production session as stored in persistence.
type SessionRecord struct {
	ID                           string
	LineID                       string
	ProductRef                   string
	Notes                        string
	Status                       string
	StartTime                    time.Time
	EndTime                      *time.Time
	AccumulatedProductionSeconds int64
	AccumulatedPauseSeconds      int64
	FinalQuantity                *int64
	QualityStatus                string
	StartedBy                    string
	StartedByName                string
	CreatedAt                    time.Time
	UpdatedAt                    time.Time
}

// SessionFilters contains filter options for querying sessions.
// With Overlap set, From/To select sessions whose run touches the range;
// otherwise they bound the start time.
type SessionFilters struct {
	LineID   string
	Statuses []string
	From     *time.Time
	To       *time.Time
	Overlap  bool
	Limit    int
	Offset   int
}

// PauseRepository defines the secondary port for pause ledger persistence.
type PauseRepository interface {
	// Create persists a new open pause. Returns a Conflict error when the
	// session already holds an open pause.
	Create(ctx context.Context, pause *PauseRecord) error

	// GetByID retrieves a pause by its ID. Returns a NotFound error if missing.
	GetByID(ctx context.Context, id string) (*PauseRecord, error)

	// GetOpenBySession returns the open pause of a session, or nil.
	GetOpenBySession(ctx context.Context, sessionID string) (*PauseRecord, error)

	// ListBySession returns every pause of a session ordered by start time.
	ListBySession(ctx context.Context, sessionID string) ([]*PauseRecord, error)

	// ListBySessions returns every pause of the given sessions.
	ListBySessions(ctx context.Context, sessionIDs []string) ([]*PauseRecord, error)

	// Close settles an open pause. Returns a Conflict error if it was already closed.
	Close(ctx context.Context, pause *PauseRecord) error

	// UpdateDetails writes reason, action taken and reference lists.
	UpdateDetails(ctx context.Context, pause *PauseRecord) error

	// List retrieves pauses matching the filters, ordered by start time descending.
	List(ctx context.Context, filters PauseFilters) ([]*PauseRecord, error)

	// Count returns the number of pauses matching the filters (ignores Limit/Offset).
	Count(ctx context.Context, filters PauseFilters) (int, error)

	// SumByCategory returns grouped totals over the filtered pause set.
	SumByCategory(ctx context.Context, filters PauseFilters) ([]*CategoryTotalRecord, error)
}

// PauseRecord represents a pause episode as stored in persistence.
type PauseRecord struct {
	ID              string
	SessionID       string
	LineID          string // denormalised from the owning session on reads
	StartTime       time.Time
	EndTime         *time.Time
	Category        string
	SubCategory     string
	Reason          string
	ActionTaken     string
	DurationSeconds int64
	Completed       bool
	LostUnits       int64
	RawMaterialRefs []string
	PhaseRefs       []string
	ProductRefs     []string
	RecordedBy      string
	RecordedByName  string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// PauseFilters contains filter options for querying pauses. From/To bound the
// pause start time.
type PauseFilters struct {
	SessionID string
	LineID    string
	Category  string
	From      *time.Time
	To        *time.Time
	Limit     int
	Offset    int
}

// CategoryTotalRecord is one row of a grouped pause sum.
type CategoryTotalRecord struct {
	Category        string
	Count           int
	DurationSeconds int64
	LostUnits       int64
}

// EventRepository defines the secondary port for the session audit trail.
type EventRepository interface {
	// Create appends an event.
	Create(ctx context.Context, event *EventRecord) error

	// ListBySession returns the events of a session in chronological order.
	ListBySession(ctx context.Context, sessionID string) ([]*EventRecord, error)
}

// EventRecord is one audit entry.
type EventRecord struct {
	ID         string
	SessionID  string
	PauseID    string
	Action     string
	ActorID    string
	ActorName  string
	Detail     string
	OccurredAt time.Time
}

// RateProvider resolves production rates.
type RateProvider interface {
	// LookupRate returns the seconds needed to produce one unit of reference on
	// line. ok is false when no rate is configured.
	LookupRate(ctx context.Context, lineID, reference string) (secondsPerUnit float64, ok bool, err error)
}

// CatalogProvider exposes the known production lines.
type CatalogProvider interface {
	// LineExists reports whether the line is registered.
	LineExists(ctx context.Context, lineID string) (bool, error)

	// ListLines returns all registered lines sorted by ID.
	ListLines(ctx context.Context) ([]*LineRecord, error)
}

// LineRecord is a catalog line.
type LineRecord struct {
	ID         string
	Name       string
	References []string
}

// IdentityProvider resolves an actor ID to a display identity.
type IdentityProvider interface {
	ResolveUser(ctx context.Context, actorID string) (*UserIdentity, error)
}

// UserIdentity is the display identity of an operator.
type UserIdentity struct {
	ID   string
	Name string
	Role string
}
