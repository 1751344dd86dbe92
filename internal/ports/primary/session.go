package primary

import (
	"context"
	"time"
)

// SessionService defines the primary port for the production session lifecycle.
// The acting operator is read from the context (see ctxutil).
type SessionService interface {
	// StartSession opens a session on a line.
	StartSession(ctx context.Context, req StartSessionRequest) (*SessionSummary, error)

	// PauseSession declares a stoppage on an active session.
	PauseSession(ctx context.Context, req PauseSessionRequest) (*PauseSummary, error)

	// ResumeSession closes the open pause of a paused session.
	ResumeSession(ctx context.Context, req ResumeSessionRequest) (*PauseSummary, error)

	// EndSession completes an active or paused session.
	EndSession(ctx context.Context, req EndSessionRequest) (*SessionSummary, error)

	// CancelSession cancels a session that has not been completed.
	CancelSession(ctx context.Context, sessionID string) (*SessionSummary, error)

	// UpdatePause edits the free-text fields and references of a pause.
	UpdatePause(ctx context.Context, req UpdatePauseRequest) (*PauseSummary, error)

	// GetSession retrieves a session by ID.
	GetSession(ctx context.Context, sessionID string) (*SessionSummary, error)

	// ListSessionEvents returns the audit trail of a session.
	ListSessionEvents(ctx context.Context, sessionID string) ([]*SessionEvent, error)
}

// StartSessionRequest contains parameters for starting a session.
type StartSessionRequest struct {
	LineID     string
	ProductRef string // Optional
	Notes      string // Optional
}

// PauseSessionRequest contains parameters for declaring a pause.
type PauseSessionRequest struct {
	SessionID   string
	Category    string
	SubCategory string   // Optional
	Reason      string   // Optional
	References  []string // Mandatory for raw_material, maintenance and quality
}

// ResumeSessionRequest contains parameters for resuming a session.
type ResumeSessionRequest struct {
	SessionID   string
	ActionTaken string // Optional
}

// EndSessionRequest contains parameters for completing a session.
type EndSessionRequest struct {
	SessionID     string
	FinalQuantity *int64 // Optional; derived from the rate when nil
	QualityStatus string // Optional
	FinalNotes    string // Optional, appended to existing notes
}

// UpdatePauseRequest contains parameters for editing a pause.
// Nil pointers and an empty reference list leave the field unchanged.
type UpdatePauseRequest struct {
	PauseID     string
	Reason      *string
	ActionTaken *string
	References  []string
}

// SessionSummary is the public view of a production session.
type SessionSummary struct {
	ID                string
	LineID            string
	ProductRef        string
	Notes             string
	Status            string
	StartTime         time.Time
	EndTime           *time.Time
	ProductionSeconds int64
	PauseSeconds      int64
	FinalQuantity     *int64
	QualityStatus     string
	StartedByName     string
	OpenPause         *PauseSummary
}

// PauseSummary is the public view of a pause episode.
type PauseSummary struct {
	ID              string
	SessionID       string
	LineID          string
	Category        string
	SubCategory     string
	Reason          string
	ActionTaken     string
	StartTime       time.Time
	EndTime         *time.Time
	DurationSeconds int64
	LostUnits       int64
	Completed       bool
	References      []string
	RecordedByName  string
}

// SessionEvent is one entry of a session's audit trail.
type SessionEvent struct {
	ID         string
	SessionID  string
	PauseID    string
	Action     string
	ActorName  string
	Detail     string
	OccurredAt time.Time
}
