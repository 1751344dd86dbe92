// Package cli provides thin CLI adapters that translate between CLI concerns
// and application services. Adapters handle output formatting but delegate
// business logic to services.
package cli

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/fatih/color"

	corepause "github.com/example/prodtrack/internal/core/pause"
	coresession "github.com/example/prodtrack/internal/core/session"
	"github.com/example/prodtrack/internal/core/yield"
	"github.com/example/prodtrack/internal/ports/primary"
)

const timeLayout = "2006-01-02 15:04:05"

const rule = "────────────────────────────────────────────────────────────────"

func okMark() string    { return color.New(color.FgGreen).Sprint("✓") }
func pauseMark() string { return color.New(color.FgYellow).Sprint("⏸") }
func stopMark() string  { return color.New(color.FgRed).Sprint("■") }

// SessionAdapter translates CLI operations to SessionService calls.
// It depends only on the SessionService interface, enabling easy testing with mocks.
type SessionAdapter struct {
	service primary.SessionService
	out     io.Writer
}

// NewSessionAdapter creates a new SessionAdapter with the given service.
func NewSessionAdapter(service primary.SessionService, out io.Writer) *SessionAdapter {
	return &SessionAdapter{
		service: service,
		out:     out,
	}
}

// Start opens a session on a line.
func (a *SessionAdapter) Start(ctx context.Context, req primary.StartSessionRequest) error {
	s, err := a.service.StartSession(ctx, req)
	if err != nil {
		return err
	}

	fmt.Fprintf(a.out, "%s Started session %s on line %s\n", okMark(), s.ID, s.LineID)
	if s.ProductRef != "" {
		fmt.Fprintf(a.out, "  Reference: %s\n", s.ProductRef)
	}
	fmt.Fprintf(a.out, "  Started:   %s\n", formatTime(s.StartTime))
	return nil
}

// Pause declares a stoppage.
func (a *SessionAdapter) Pause(ctx context.Context, req primary.PauseSessionRequest) error {
	p, err := a.service.PauseSession(ctx, req)
	if err != nil {
		return err
	}

	fmt.Fprintf(a.out, "%s Paused session %s (%s)\n", pauseMark(), p.SessionID, categoryLabel(p.Category))
	fmt.Fprintf(a.out, "  Pause: %s\n", p.ID)
	if len(p.References) > 0 {
		fmt.Fprintf(a.out, "  References: %s\n", strings.Join(p.References, ", "))
	}
	return nil
}

// Resume closes the open pause of a session.
func (a *SessionAdapter) Resume(ctx context.Context, req primary.ResumeSessionRequest) error {
	p, err := a.service.ResumeSession(ctx, req)
	if err != nil {
		return err
	}

	fmt.Fprintf(a.out, "%s Resumed session %s after %s (%s)\n", okMark(), p.SessionID,
		yield.FormatDuration(p.DurationSeconds), categoryLabel(p.Category))
	if p.LostUnits > 0 {
		fmt.Fprintf(a.out, "  Lost units: %d\n", p.LostUnits)
	}
	return nil
}

// End completes a session.
func (a *SessionAdapter) End(ctx context.Context, req primary.EndSessionRequest) error {
	s, err := a.service.EndSession(ctx, req)
	if err != nil {
		return err
	}

	fmt.Fprintf(a.out, "%s Completed session %s on line %s\n", stopMark(), s.ID, s.LineID)
	a.printTotals(s)
	return nil
}

// Cancel cancels a session.
func (a *SessionAdapter) Cancel(ctx context.Context, sessionID string) error {
	s, err := a.service.CancelSession(ctx, sessionID)
	if err != nil {
		return err
	}

	fmt.Fprintf(a.out, "%s Cancelled session %s on line %s\n", stopMark(), s.ID, s.LineID)
	return nil
}

// UpdatePause edits the details of a pause.
func (a *SessionAdapter) UpdatePause(ctx context.Context, req primary.UpdatePauseRequest) error {
	p, err := a.service.UpdatePause(ctx, req)
	if err != nil {
		return err
	}

	fmt.Fprintf(a.out, "%s Updated pause %s\n", okMark(), p.ID)
	return nil
}

// Show displays a session and its open pause.
func (a *SessionAdapter) Show(ctx context.Context, sessionID string) error {
	s, err := a.service.GetSession(ctx, sessionID)
	if err != nil {
		return err
	}

	fmt.Fprintf(a.out, "\nSession: %s\n", s.ID)
	fmt.Fprintf(a.out, "Line:    %s\n", s.LineID)
	if s.ProductRef != "" {
		fmt.Fprintf(a.out, "Ref:     %s\n", s.ProductRef)
	}
	fmt.Fprintf(a.out, "Status:  %s\n", colorStatus(s.Status))
	fmt.Fprintf(a.out, "Started: %s", formatTime(s.StartTime))
	if s.StartedByName != "" {
		fmt.Fprintf(a.out, " by %s", s.StartedByName)
	}
	fmt.Fprintln(a.out)
	if s.EndTime != nil {
		fmt.Fprintf(a.out, "Ended:   %s\n", formatTime(*s.EndTime))
		a.printTotals(s)
	}
	if s.Notes != "" {
		fmt.Fprintf(a.out, "Notes:\n  %s\n", strings.ReplaceAll(s.Notes, "\n", "\n  "))
	}
	if p := s.OpenPause; p != nil {
		fmt.Fprintf(a.out, "\n%s Open pause %s: %s since %s\n", pauseMark(), p.ID, categoryLabel(p.Category), formatTime(p.StartTime))
		if p.Reason != "" {
			fmt.Fprintf(a.out, "  Reason: %s\n", p.Reason)
		}
		if len(p.References) > 0 {
			fmt.Fprintf(a.out, "  References: %s\n", strings.Join(p.References, ", "))
		}
	}
	fmt.Fprintln(a.out)
	return nil
}

// Log lists the audit trail of a session.
func (a *SessionAdapter) Log(ctx context.Context, sessionID string) error {
	events, err := a.service.ListSessionEvents(ctx, sessionID)
	if err != nil {
		return err
	}

	if len(events) == 0 {
		fmt.Fprintln(a.out, "No events found")
		return nil
	}

	fmt.Fprintf(a.out, "\n%-20s %-20s %-16s %s\n", "WHEN", "ACTION", "BY", "DETAIL")
	fmt.Fprintln(a.out, rule)
	for _, e := range events {
		fmt.Fprintf(a.out, "%-20s %-20s %-16s %s\n", formatTime(e.OccurredAt), e.Action, e.ActorName, e.Detail)
	}
	fmt.Fprintln(a.out)
	return nil
}

func (a *SessionAdapter) printTotals(s *primary.SessionSummary) {
	fmt.Fprintf(a.out, "  Production: %s\n", yield.FormatDuration(s.ProductionSeconds))
	fmt.Fprintf(a.out, "  Paused:     %s\n", yield.FormatDuration(s.PauseSeconds))
	if s.FinalQuantity != nil {
		fmt.Fprintf(a.out, "  Quantity:   %d\n", *s.FinalQuantity)
	}
	if s.QualityStatus != "" {
		fmt.Fprintf(a.out, "  Quality:    %s\n", s.QualityStatus)
	}
}

func formatTime(t time.Time) string {
	return t.Local().Format(timeLayout)
}

func categoryLabel(category string) string {
	return corepause.Category(category).Label()
}

func colorStatus(status string) string {
	switch coresession.Status(status) {
	case coresession.StatusActive:
		return color.New(color.FgGreen).Sprint(status)
	case coresession.StatusPaused:
		return color.New(color.FgYellow).Sprint(status)
	case coresession.StatusCancelled:
		return color.New(color.FgRed).Sprint(status)
	}
	return status
}
