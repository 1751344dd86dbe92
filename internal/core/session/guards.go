// Package session contains the pure business logic for production sessions.
// Guards are pure functions that evaluate preconditions without side effects.
package session

import (
	"fmt"

	"github.com/example/prodtrack/internal/apperr"
)

// GuardResult represents the outcome of a guard evaluation.
type GuardResult struct {
	Allowed bool
	Reason  string
	Kind    apperr.Kind // set when Allowed is false
}

// Error converts the guard result to a classified error if not allowed.
func (r GuardResult) Error() error {
	if r.Allowed {
		return nil
	}
	return &apperr.Error{Kind: r.Kind, Message: r.Reason}
}

func allow() GuardResult { return GuardResult{Allowed: true} }

func deny(kind apperr.Kind, format string, args ...any) GuardResult {
	return GuardResult{Allowed: false, Kind: kind, Reason: fmt.Sprintf(format, args...)}
}

// StartContext provides context for session start guards.
type StartContext struct {
	LineID          string
	LineExists      bool
	ActiveSessionID string // empty when the line is idle
}

// TransitionContext provides context for pause/resume/end/cancel guards.
type TransitionContext struct {
	SessionID    string
	Exists       bool
	Status       Status
	HasOpenPause bool
}

// CanStartSession evaluates whether a session can be started on a line.
// Rules:
// - Line must be registered in the catalog
// - Line must not already run an active or paused session
func CanStartSession(ctx StartContext) GuardResult {
	if !ctx.LineExists {
		return deny(apperr.KindNotFound, "line %s not found in catalog", ctx.LineID)
	}
	if ctx.ActiveSessionID != "" {
		return deny(apperr.KindConflict, "line %s already has an open session (%s)", ctx.LineID, ctx.ActiveSessionID)
	}
	return allow()
}

// CanPauseSession evaluates whether a pause can be declared.
// Rules:
// - Session must exist and be active
// - Session must not already hold an open pause
func CanPauseSession(ctx TransitionContext) GuardResult {
	if !ctx.Exists || ctx.Status != StatusActive {
		return deny(apperr.KindNotFound, "no active session %s", ctx.SessionID)
	}
	if ctx.HasOpenPause {
		return deny(apperr.KindConflict, "session %s already has an open pause", ctx.SessionID)
	}
	return allow()
}

// CanResumeSession evaluates whether a paused session can be resumed.
// Rules:
// - Session must exist and be paused
// - Session must hold an open pause
func CanResumeSession(ctx TransitionContext) GuardResult {
	if !ctx.Exists || ctx.Status != StatusPaused {
		return deny(apperr.KindNotFound, "no paused session %s", ctx.SessionID)
	}
	if !ctx.HasOpenPause {
		return deny(apperr.KindNotFound, "session %s has no open pause", ctx.SessionID)
	}
	return allow()
}

// CanEndSession evaluates whether a session can be completed.
// Rules:
// - Session must exist and be active or paused
func CanEndSession(ctx TransitionContext) GuardResult {
	if !ctx.Exists || !ctx.Status.IsOpen() {
		return deny(apperr.KindNotFound, "no active or paused session %s", ctx.SessionID)
	}
	return allow()
}

// CanCancelSession evaluates whether a session can be cancelled.
// Rules:
// - Session must exist
// - Session must not be completed or already cancelled
func CanCancelSession(ctx TransitionContext) GuardResult {
	if !ctx.Exists {
		return deny(apperr.KindNotFound, "session %s not found", ctx.SessionID)
	}
	switch ctx.Status {
	case StatusCompleted:
		return deny(apperr.KindInvalidArgument, "cannot cancel completed session %s", ctx.SessionID)
	case StatusCancelled:
		return deny(apperr.KindInvalidArgument, "session %s is already cancelled", ctx.SessionID)
	}
	return allow()
}
