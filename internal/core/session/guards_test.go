package session

import (
	"testing"

	"github.com/example/prodtrack/internal/apperr"
)

func TestCanStartSession(t *testing.T) {
	tests := []struct {
		name        string
		ctx         StartContext
		wantAllowed bool
		wantKind    apperr.Kind
		wantReason  string
	}{
		{
			name:        "idle registered line can start",
			ctx:         StartContext{LineID: "L04:RXT1", LineExists: true},
			wantAllowed: true,
		},
		{
			name:       "unknown line is not found",
			ctx:        StartContext{LineID: "L99", LineExists: false},
			wantKind:   apperr.KindNotFound,
			wantReason: "line L99 not found in catalog",
		},
		{
			name:       "line with open session conflicts",
			ctx:        StartContext{LineID: "L04:RXT1", LineExists: true, ActiveSessionID: "SESS-1"},
			wantKind:   apperr.KindConflict,
			wantReason: "line L04:RXT1 already has an open session (SESS-1)",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := CanStartSession(tt.ctx)

			if result.Allowed != tt.wantAllowed {
				t.Errorf("CanStartSession() Allowed = %v, want %v", result.Allowed, tt.wantAllowed)
			}
			if result.Reason != tt.wantReason {
				t.Errorf("CanStartSession() Reason = %q, want %q", result.Reason, tt.wantReason)
			}

			err := result.Error()
			if tt.wantAllowed && err != nil {
				t.Errorf("CanStartSession().Error() = %v, want nil", err)
			}
			if !tt.wantAllowed && apperr.KindOf(err) != tt.wantKind {
				t.Errorf("CanStartSession().Error() kind = %q, want %q", apperr.KindOf(err), tt.wantKind)
			}
		})
	}
}

func TestTransitionGuards(t *testing.T) {
	type guard func(TransitionContext) GuardResult

	tests := []struct {
		name     string
		guard    guard
		ctx      TransitionContext
		wantKind apperr.Kind // empty means allowed
	}{
		{"pause active", CanPauseSession, TransitionContext{SessionID: "S", Exists: true, Status: StatusActive}, ""},
		{"pause missing", CanPauseSession, TransitionContext{SessionID: "S"}, apperr.KindNotFound},
		{"pause paused", CanPauseSession, TransitionContext{SessionID: "S", Exists: true, Status: StatusPaused}, apperr.KindNotFound},
		{"pause with open pause", CanPauseSession, TransitionContext{SessionID: "S", Exists: true, Status: StatusActive, HasOpenPause: true}, apperr.KindConflict},
		{"pause completed", CanPauseSession, TransitionContext{SessionID: "S", Exists: true, Status: StatusCompleted}, apperr.KindNotFound},

		{"resume paused", CanResumeSession, TransitionContext{SessionID: "S", Exists: true, Status: StatusPaused, HasOpenPause: true}, ""},
		{"resume active", CanResumeSession, TransitionContext{SessionID: "S", Exists: true, Status: StatusActive}, apperr.KindNotFound},
		{"resume without open pause", CanResumeSession, TransitionContext{SessionID: "S", Exists: true, Status: StatusPaused}, apperr.KindNotFound},

		{"end active", CanEndSession, TransitionContext{SessionID: "S", Exists: true, Status: StatusActive}, ""},
		{"end paused", CanEndSession, TransitionContext{SessionID: "S", Exists: true, Status: StatusPaused, HasOpenPause: true}, ""},
		{"end completed", CanEndSession, TransitionContext{SessionID: "S", Exists: true, Status: StatusCompleted}, apperr.KindNotFound},
		{"end cancelled", CanEndSession, TransitionContext{SessionID: "S", Exists: true, Status: StatusCancelled}, apperr.KindNotFound},
		{"end missing", CanEndSession, TransitionContext{SessionID: "S"}, apperr.KindNotFound},

		{"cancel active", CanCancelSession, TransitionContext{SessionID: "S", Exists: true, Status: StatusActive}, ""},
		{"cancel paused", CanCancelSession, TransitionContext{SessionID: "S", Exists: true, Status: StatusPaused}, ""},
		{"cancel missing", CanCancelSession, TransitionContext{SessionID: "S"}, apperr.KindNotFound},
		{"cancel completed", CanCancelSession, TransitionContext{SessionID: "S", Exists: true, Status: StatusCompleted}, apperr.KindInvalidArgument},
		{"cancel cancelled", CanCancelSession, TransitionContext{SessionID: "S", Exists: true, Status: StatusCancelled}, apperr.KindInvalidArgument},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := tt.guard(tt.ctx)

			if tt.wantKind == "" {
				if !result.Allowed {
					t.Fatalf("guard denied: %s", result.Reason)
				}
				return
			}
			if result.Allowed {
				t.Fatal("guard allowed, want denial")
			}
			if result.Kind != tt.wantKind {
				t.Errorf("Kind = %q, want %q", result.Kind, tt.wantKind)
			}
			if result.Reason == "" {
				t.Error("denial without reason")
			}
		})
	}
}

func TestStatus(t *testing.T) {
	if !StatusActive.IsOpen() || !StatusPaused.IsOpen() {
		t.Error("active and paused should be open")
	}
	if StatusCompleted.IsOpen() || StatusCancelled.IsOpen() {
		t.Error("terminal statuses should not be open")
	}
	if !StatusCompleted.IsTerminal() || !StatusCancelled.IsTerminal() {
		t.Error("completed and cancelled should be terminal")
	}
	if Status("running").Valid() {
		t.Error("unknown status reported valid")
	}
	if InitialStatus() != StatusActive {
		t.Errorf("InitialStatus() = %q, want active", InitialStatus())
	}
}
