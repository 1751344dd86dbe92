package pause

import (
	"fmt"
	"time"

	"github.com/example/prodtrack/internal/apperr"
	"github.com/example/prodtrack/internal/core/yield"
)

// GuardResult represents the outcome of a guard evaluation.
type GuardResult struct {
	Allowed bool
	Reason  string
	Kind    apperr.Kind
}

// Error converts the guard result to a classified error if not allowed.
func (r GuardResult) Error() error {
	if r.Allowed {
		return nil
	}
	return &apperr.Error{Kind: r.Kind, Message: r.Reason}
}

// DeclareContext provides context for pause declaration guards.
type DeclareContext struct {
	Category   Category
	References []string
}

// CanDeclarePause evaluates whether a pause with these details may be recorded.
// Rules:
// - Category must be one of the six known categories
// - Raw material, maintenance and quality pauses must name at least one reference
// - Other categories must not name references
func CanDeclarePause(ctx DeclareContext) GuardResult {
	if !ctx.Category.Valid() {
		return GuardResult{Kind: apperr.KindInvalidArgument, Reason: fmt.Sprintf("unknown pause category %q", ctx.Category)}
	}
	refs := NormalizeRefs(ctx.References)
	if ctx.Category.RequiresReferences() && len(refs) == 0 {
		return GuardResult{
			Kind:   apperr.KindInvalidArgument,
			Reason: fmt.Sprintf("%s pauses require at least one %s reference", ctx.Category, ctx.Category.ReferenceKind()),
		}
	}
	if !ctx.Category.RequiresReferences() && len(refs) > 0 {
		return GuardResult{
			Kind:   apperr.KindInvalidArgument,
			Reason: fmt.Sprintf("%s pauses do not take references", ctx.Category),
		}
	}
	return GuardResult{Allowed: true}
}

// CloseInput describes an open pause being closed.
type CloseInput struct {
	Start       time.Time
	Now         time.Time
	RatePerUnit float64
	HasRate     bool
}

// Closed is the settled arithmetic of a closed pause.
type Closed struct {
	End             time.Time
	DurationSeconds int64
	LostUnits       int64
}

// Close computes duration and lost units for a pause ending at in.Now.
func Close(in CloseInput) Closed {
	duration := yield.ElapsedSeconds(in.Start, in.Now)
	return Closed{
		End:             in.Now,
		DurationSeconds: duration,
		LostUnits:       yield.LostUnits(duration, in.RatePerUnit, in.HasRate),
	}
}
