package session

import (
	"fmt"
	"strings"
	"time"

	"github.com/example/prodtrack/internal/core/yield"
)

// Status represents the possible states of a production session.
type Status string

const (
	StatusActive    Status = "active"
	StatusPaused    Status = "paused"
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
)

// IsOpen reports whether the session still occupies its line.
func (s Status) IsOpen() bool {
	return s == StatusActive || s == StatusPaused
}

// IsTerminal reports whether no further transition is possible.
func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	return s.IsOpen() || s.IsTerminal()
}

// InitialStatus returns the status of a freshly started session.
func InitialStatus() Status {
	return StatusActive
}

// EndInput carries everything needed to settle a session at completion.
type EndInput struct {
	StartTime          time.Time
	Now                time.Time
	AccumulatedPause   int64
	FinalQuantity      *int64
	RatePerUnit        float64
	HasRate            bool
	ReferenceSpecified bool
}

// EndOutcome is the settled bookkeeping of a completed session.
type EndOutcome struct {
	TotalElapsed      int64
	ProductionSeconds int64
	Quantity          int64
	QuantityDerived   bool
}

// SettleEnd computes production seconds and final quantity for EndSession.
// An explicit final quantity always wins; otherwise the quantity is derived from
// production time when the session has a reference with a configured rate.
func SettleEnd(in EndInput) EndOutcome {
	elapsed := yield.ElapsedSeconds(in.StartTime, in.Now)
	production := elapsed - in.AccumulatedPause
	if production < 0 {
		production = 0
	}

	out := EndOutcome{TotalElapsed: elapsed, ProductionSeconds: production}
	switch {
	case in.FinalQuantity != nil:
		out.Quantity = *in.FinalQuantity
	case in.ReferenceSpecified && in.HasRate:
		out.Quantity = yield.DerivedQuantity(production, in.RatePerUnit)
		out.QuantityDerived = true
	}
	return out
}

// AppendNote appends note to existing notes without overwriting them.
func AppendNote(existing, note string) string {
	note = strings.TrimSpace(note)
	if note == "" {
		return existing
	}
	if strings.TrimSpace(existing) == "" {
		return note
	}
	return existing + "\n" + note
}

// CancelNote is the audit line appended to a cancelled session.
func CancelNote(actorName string, at time.Time) string {
	return fmt.Sprintf("[cancelled by %s at %s]", actorName, at.UTC().Format(time.RFC3339))
}
