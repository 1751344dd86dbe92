package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/example/prodtrack/internal/apperr"
	corepause "github.com/example/prodtrack/internal/core/pause"
	coresession "github.com/example/prodtrack/internal/core/session"
	"github.com/example/prodtrack/internal/ctxutil"
	"github.com/example/prodtrack/internal/ports/primary"
	"github.com/example/prodtrack/internal/ports/secondary"
)

// Audit actions recorded in the session event log.
const (
	EventSessionStarted   = "session_started"
	EventSessionPaused    = "session_paused"
	EventSessionResumed   = "session_resumed"
	EventSessionCompleted = "session_completed"
	EventSessionCancelled = "session_cancelled"
	EventPauseForceClosed = "pause_force_closed"
	EventPauseUpdated     = "pause_updated"
)

// SessionServiceImpl implements the SessionService interface.
type SessionServiceImpl struct {
	tx          secondary.Transactor
	sessionRepo secondary.SessionRepository
	pauseRepo   secondary.PauseRepository
	eventRepo   secondary.EventRepository
	catalog     secondary.CatalogProvider
	rates       secondary.RateProvider
	identity    secondary.IdentityProvider
	logger      *log.Logger
	now         func() time.Time
}

// NewSessionService creates a new SessionService with injected dependencies.
// A nil logger discards audit warnings.
func NewSessionService(
	tx secondary.Transactor,
	sessionRepo secondary.SessionRepository,
	pauseRepo secondary.PauseRepository,
	eventRepo secondary.EventRepository,
	catalog secondary.CatalogProvider,
	rates secondary.RateProvider,
	identity secondary.IdentityProvider,
	logger *log.Logger,
) *SessionServiceImpl {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &SessionServiceImpl{
		tx:          tx,
		sessionRepo: sessionRepo,
		pauseRepo:   pauseRepo,
		eventRepo:   eventRepo,
		catalog:     catalog,
		rates:       rates,
		identity:    identity,
		logger:      logger,
		now:         time.Now,
	}
}

// WithClock replaces the time source. Used by tests.
func (s *SessionServiceImpl) WithClock(now func() time.Time) *SessionServiceImpl {
	s.now = now
	return s
}

// clock returns the current instant in UTC at whole-second precision.
func (s *SessionServiceImpl) clock() time.Time {
	return s.now().UTC().Truncate(time.Second)
}

// StartSession opens a session on a line.
func (s *SessionServiceImpl) StartSession(ctx context.Context, req primary.StartSessionRequest) (*primary.SessionSummary, error) {
	lineID := strings.TrimSpace(req.LineID)
	if lineID == "" {
		return nil, apperr.InvalidArgument("line is required")
	}

	actor, err := s.resolveActor(ctx)
	if err != nil {
		return nil, err
	}

	exists, err := s.catalog.LineExists(ctx, lineID)
	if err != nil {
		return nil, fmt.Errorf("failed to check line catalog: %w", err)
	}

	now := s.clock()
	record := &secondary.SessionRecord{
		ID:            uuid.NewString(),
		LineID:        lineID,
		ProductRef:    strings.TrimSpace(req.ProductRef),
		Notes:         strings.TrimSpace(req.Notes),
		Status:        string(coresession.InitialStatus()),
		StartTime:     now,
		StartedBy:     actor.ID,
		StartedByName: actor.Name,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		open, err := s.sessionRepo.GetOpenByLine(ctx, lineID)
		if err != nil {
			return fmt.Errorf("failed to check open session: %w", err)
		}
		guardCtx := coresession.StartContext{LineID: lineID, LineExists: exists}
		if open != nil {
			guardCtx.ActiveSessionID = open.ID
		}
		if err := coresession.CanStartSession(guardCtx).Error(); err != nil {
			return err
		}
		// The storage constraint settles races the guard cannot see.
		return s.sessionRepo.Create(ctx, record)
	})
	if err != nil {
		return nil, err
	}

	s.recordEvent(ctx, actor, record.ID, "", EventSessionStarted, describeStart(record), now)
	return recordToSessionSummary(record, nil), nil
}

// PauseSession declares a stoppage on an active session.
func (s *SessionServiceImpl) PauseSession(ctx context.Context, req primary.PauseSessionRequest) (*primary.PauseSummary, error) {
	category, err := corepause.ParseCategory(req.Category)
	if err != nil {
		return nil, apperr.InvalidArgument("%v", err)
	}

	actor, err := s.resolveActor(ctx)
	if err != nil {
		return nil, err
	}

	now := s.clock()
	var created *secondary.PauseRecord
	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		record, open, err := s.loadSessionState(ctx, req.SessionID)
		if err != nil {
			return err
		}
		if err := coresession.CanPauseSession(transitionContext(req.SessionID, record, open)).Error(); err != nil {
			return err
		}
		declare := corepause.DeclareContext{Category: category, References: req.References}
		if err := corepause.CanDeclarePause(declare).Error(); err != nil {
			return err
		}

		detail, err := corepause.NewDetail(category, req.References)
		if err != nil {
			return apperr.InvalidArgument("%v", err)
		}
		rawMaterialRefs, phaseRefs, productRefs := corepause.Lists(detail)

		created = &secondary.PauseRecord{
			ID:              uuid.NewString(),
			SessionID:       record.ID,
			LineID:          record.LineID,
			StartTime:       now,
			Category:        string(category),
			SubCategory:     strings.TrimSpace(req.SubCategory),
			Reason:          strings.TrimSpace(req.Reason),
			RawMaterialRefs: rawMaterialRefs,
			PhaseRefs:       phaseRefs,
			ProductRefs:     productRefs,
			RecordedBy:      actor.ID,
			RecordedByName:  actor.Name,
			CreatedAt:       now,
			UpdatedAt:       now,
		}
		if err := s.pauseRepo.Create(ctx, created); err != nil {
			return err
		}

		expected := record.Status
		record.Status = string(coresession.StatusPaused)
		record.UpdatedAt = now
		return s.sessionRepo.Save(ctx, record, expected)
	})
	if err != nil {
		return nil, err
	}

	s.recordEvent(ctx, actor, created.SessionID, created.ID, EventSessionPaused, describePause(created), now)
	return recordToPauseSummary(created), nil
}

// ResumeSession closes the open pause of a paused session.
func (s *SessionServiceImpl) ResumeSession(ctx context.Context, req primary.ResumeSessionRequest) (*primary.PauseSummary, error) {
	actor, err := s.resolveActor(ctx)
	if err != nil {
		return nil, err
	}

	now := s.clock()
	var closed *secondary.PauseRecord
	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		record, open, err := s.loadSessionState(ctx, req.SessionID)
		if err != nil {
			return err
		}
		if err := coresession.CanResumeSession(transitionContext(req.SessionID, record, open)).Error(); err != nil {
			return err
		}

		if action := strings.TrimSpace(req.ActionTaken); action != "" {
			open.ActionTaken = action
		}
		if err := s.closePause(ctx, record, open, now); err != nil {
			return err
		}
		closed = open

		expected := record.Status
		record.AccumulatedPauseSeconds += open.DurationSeconds
		record.Status = string(coresession.StatusActive)
		record.UpdatedAt = now
		return s.sessionRepo.Save(ctx, record, expected)
	})
	if err != nil {
		return nil, err
	}

	s.recordEvent(ctx, actor, closed.SessionID, closed.ID, EventSessionResumed, describeClosedPause(closed), now)
	return recordToPauseSummary(closed), nil
}

// EndSession completes an active or paused session. An open pause is closed
// first and folded into the pause accumulator.
func (s *SessionServiceImpl) EndSession(ctx context.Context, req primary.EndSessionRequest) (*primary.SessionSummary, error) {
	if req.FinalQuantity != nil && *req.FinalQuantity < 0 {
		return nil, apperr.InvalidArgument("final quantity cannot be negative")
	}

	actor, err := s.resolveActor(ctx)
	if err != nil {
		return nil, err
	}

	now := s.clock()
	var (
		record      *secondary.SessionRecord
		forceClosed *secondary.PauseRecord
		outcome     coresession.EndOutcome
	)
	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		var open *secondary.PauseRecord
		record, open, err = s.loadSessionState(ctx, req.SessionID)
		if err != nil {
			return err
		}
		if err := coresession.CanEndSession(transitionContext(req.SessionID, record, open)).Error(); err != nil {
			return err
		}

		if open != nil {
			if err := s.closePause(ctx, record, open, now); err != nil {
				return err
			}
			record.AccumulatedPauseSeconds += open.DurationSeconds
			forceClosed = open
		}

		rate, hasRate, err := s.lookupRate(ctx, record)
		if err != nil {
			return err
		}
		outcome = coresession.SettleEnd(coresession.EndInput{
			StartTime:          record.StartTime,
			Now:                now,
			AccumulatedPause:   record.AccumulatedPauseSeconds,
			FinalQuantity:      req.FinalQuantity,
			RatePerUnit:        rate,
			HasRate:            hasRate,
			ReferenceSpecified: record.ProductRef != "",
		})

		expected := record.Status
		quantity := outcome.Quantity
		record.Status = string(coresession.StatusCompleted)
		record.EndTime = &now
		record.AccumulatedProductionSeconds = outcome.ProductionSeconds
		record.FinalQuantity = &quantity
		if q := strings.TrimSpace(req.QualityStatus); q != "" {
			record.QualityStatus = q
		}
		record.Notes = coresession.AppendNote(record.Notes, req.FinalNotes)
		record.UpdatedAt = now
		return s.sessionRepo.Save(ctx, record, expected)
	})
	if err != nil {
		return nil, err
	}

	if forceClosed != nil {
		s.recordEvent(ctx, actor, record.ID, forceClosed.ID, EventPauseForceClosed, describeClosedPause(forceClosed), now)
	}
	s.recordEvent(ctx, actor, record.ID, "", EventSessionCompleted, describeEnd(record, outcome), now)
	return recordToSessionSummary(record, nil), nil
}

// CancelSession cancels a session that has not been completed. A force-closed
// pause keeps its duration and lost units in the ledger but is not folded into
// the session's pause accumulator.
func (s *SessionServiceImpl) CancelSession(ctx context.Context, sessionID string) (*primary.SessionSummary, error) {
	actor, err := s.resolveActor(ctx)
	if err != nil {
		return nil, err
	}

	now := s.clock()
	var (
		record      *secondary.SessionRecord
		forceClosed *secondary.PauseRecord
	)
	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		var open *secondary.PauseRecord
		record, open, err = s.loadSessionState(ctx, sessionID)
		if err != nil {
			return err
		}
		if err := coresession.CanCancelSession(transitionContext(sessionID, record, open)).Error(); err != nil {
			return err
		}

		if open != nil {
			if err := s.closePause(ctx, record, open, now); err != nil {
				return err
			}
			forceClosed = open
		}

		expected := record.Status
		record.Status = string(coresession.StatusCancelled)
		record.EndTime = &now
		record.Notes = coresession.AppendNote(record.Notes, coresession.CancelNote(actor.Name, now))
		record.UpdatedAt = now
		return s.sessionRepo.Save(ctx, record, expected)
	})
	if err != nil {
		return nil, err
	}

	if forceClosed != nil {
		s.recordEvent(ctx, actor, record.ID, forceClosed.ID, EventPauseForceClosed, describeClosedPause(forceClosed), now)
	}
	s.recordEvent(ctx, actor, record.ID, "", EventSessionCancelled, "", now)
	return recordToSessionSummary(record, nil), nil
}

// UpdatePause edits reason, action taken and the reference list of a pause.
// The reference list always targets the list of the pause's own category.
func (s *SessionServiceImpl) UpdatePause(ctx context.Context, req primary.UpdatePauseRequest) (*primary.PauseSummary, error) {
	actor, err := s.resolveActor(ctx)
	if err != nil {
		return nil, err
	}

	now := s.clock()
	var record *secondary.PauseRecord
	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		record, err = s.pauseRepo.GetByID(ctx, req.PauseID)
		if err != nil {
			return err
		}

		category := corepause.Category(record.Category)
		current := corepause.FromLists(category, record.RawMaterialRefs, record.PhaseRefs, record.ProductRefs)
		updated, err := corepause.WithReferences(current, req.References)
		if err != nil {
			return apperr.InvalidArgument("%v", err)
		}
		record.RawMaterialRefs, record.PhaseRefs, record.ProductRefs = corepause.Lists(updated)

		if req.Reason != nil {
			record.Reason = strings.TrimSpace(*req.Reason)
		}
		if req.ActionTaken != nil {
			record.ActionTaken = strings.TrimSpace(*req.ActionTaken)
		}
		record.UpdatedAt = now
		return s.pauseRepo.UpdateDetails(ctx, record)
	})
	if err != nil {
		return nil, err
	}

	s.recordEvent(ctx, actor, record.SessionID, record.ID, EventPauseUpdated, describePause(record), now)
	return recordToPauseSummary(record), nil
}

// GetSession retrieves a session by ID, including its open pause if any.
func (s *SessionServiceImpl) GetSession(ctx context.Context, sessionID string) (*primary.SessionSummary, error) {
	record, err := s.sessionRepo.GetByID(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	open, err := s.pauseRepo.GetOpenBySession(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to load open pause: %w", err)
	}
	return recordToSessionSummary(record, open), nil
}

// ListSessionEvents returns the audit trail of a session in chronological order.
func (s *SessionServiceImpl) ListSessionEvents(ctx context.Context, sessionID string) ([]*primary.SessionEvent, error) {
	if _, err := s.sessionRepo.GetByID(ctx, sessionID); err != nil {
		return nil, err
	}
	records, err := s.eventRepo.ListBySession(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to list session events: %w", err)
	}

	events := make([]*primary.SessionEvent, len(records))
	for i, r := range records {
		events[i] = &primary.SessionEvent{
			ID:         r.ID,
			SessionID:  r.SessionID,
			PauseID:    r.PauseID,
			Action:     r.Action,
			ActorName:  r.ActorName,
			Detail:     r.Detail,
			OccurredAt: r.OccurredAt,
		}
	}
	return events, nil
}

// Helper methods

// loadSessionState fetches a session and its open pause. A missing session is
// reported as (nil, nil, nil) so the guards can phrase the error.
func (s *SessionServiceImpl) loadSessionState(ctx context.Context, sessionID string) (*secondary.SessionRecord, *secondary.PauseRecord, error) {
	record, err := s.sessionRepo.GetByID(ctx, sessionID)
	if errors.Is(err, apperr.ErrNotFound) {
		return nil, nil, nil
	}
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load session: %w", err)
	}
	open, err := s.pauseRepo.GetOpenBySession(ctx, sessionID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load open pause: %w", err)
	}
	return record, open, nil
}

// closePause settles duration and lost units of an open pause and persists it.
func (s *SessionServiceImpl) closePause(ctx context.Context, session *secondary.SessionRecord, open *secondary.PauseRecord, now time.Time) error {
	rate, hasRate, err := s.lookupRate(ctx, session)
	if err != nil {
		return err
	}
	closed := corepause.Close(corepause.CloseInput{
		Start:       open.StartTime,
		Now:         now,
		RatePerUnit: rate,
		HasRate:     hasRate,
	})
	open.EndTime = &closed.End
	open.DurationSeconds = closed.DurationSeconds
	open.LostUnits = closed.LostUnits
	open.Completed = true
	open.UpdatedAt = now
	return s.pauseRepo.Close(ctx, open)
}

// lookupRate returns the seconds-per-unit of the session's reference on its line.
// Sessions without a reference have no rate.
func (s *SessionServiceImpl) lookupRate(ctx context.Context, session *secondary.SessionRecord) (float64, bool, error) {
	if session.ProductRef == "" {
		return 0, false, nil
	}
	rate, ok, err := s.rates.LookupRate(ctx, session.LineID, session.ProductRef)
	if err != nil {
		return 0, false, fmt.Errorf("failed to look up rate for %s/%s: %w", session.LineID, session.ProductRef, err)
	}
	return rate, ok, nil
}

// resolveActor maps the context actor to a display identity.
func (s *SessionServiceImpl) resolveActor(ctx context.Context) (*secondary.UserIdentity, error) {
	actorID := ctxutil.ActorOrSystem(ctx)
	user, err := s.identity.ResolveUser(ctx, actorID)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve actor %s: %w", actorID, err)
	}
	return user, nil
}

// recordEvent appends to the audit trail after the transition committed.
// Failures are logged, never returned.
func (s *SessionServiceImpl) recordEvent(ctx context.Context, actor *secondary.UserIdentity, sessionID, pauseID, action, detail string, at time.Time) {
	event := &secondary.EventRecord{
		ID:         uuid.NewString(),
		SessionID:  sessionID,
		PauseID:    pauseID,
		Action:     action,
		ActorID:    actor.ID,
		ActorName:  actor.Name,
		Detail:     detail,
		OccurredAt: at,
	}
	if err := s.eventRepo.Create(ctx, event); err != nil {
		s.logger.Printf("audit: failed to record %s for session %s: %v", action, sessionID, err)
	}
}

func transitionContext(sessionID string, record *secondary.SessionRecord, open *secondary.PauseRecord) coresession.TransitionContext {
	tc := coresession.TransitionContext{SessionID: sessionID, HasOpenPause: open != nil}
	if record != nil {
		tc.Exists = true
		tc.Status = coresession.Status(record.Status)
	}
	return tc
}

func describeStart(r *secondary.SessionRecord) string {
	if r.ProductRef == "" {
		return "line=" + r.LineID
	}
	return fmt.Sprintf("line=%s ref=%s", r.LineID, r.ProductRef)
}

func describePause(p *secondary.PauseRecord) string {
	refs := corepause.FromLists(corepause.Category(p.Category), p.RawMaterialRefs, p.PhaseRefs, p.ProductRefs).References()
	if len(refs) == 0 {
		return "category=" + p.Category
	}
	return fmt.Sprintf("category=%s refs=%s", p.Category, strings.Join(refs, ","))
}

func describeClosedPause(p *secondary.PauseRecord) string {
	return fmt.Sprintf("duration=%ds lost_units=%d", p.DurationSeconds, p.LostUnits)
}

func describeEnd(r *secondary.SessionRecord, o coresession.EndOutcome) string {
	detail := fmt.Sprintf("production=%ds pause=%ds quantity=%d", r.AccumulatedProductionSeconds, r.AccumulatedPauseSeconds, o.Quantity)
	if o.QuantityDerived {
		detail += " (derived)"
	}
	return detail
}

func recordToSessionSummary(r *secondary.SessionRecord, open *secondary.PauseRecord) *primary.SessionSummary {
	summary := &primary.SessionSummary{
		ID:                r.ID,
		LineID:            r.LineID,
		ProductRef:        r.ProductRef,
		Notes:             r.Notes,
		Status:            r.Status,
		StartTime:         r.StartTime,
		EndTime:           r.EndTime,
		ProductionSeconds: r.AccumulatedProductionSeconds,
		PauseSeconds:      r.AccumulatedPauseSeconds,
		FinalQuantity:     r.FinalQuantity,
		QualityStatus:     r.QualityStatus,
		StartedByName:     r.StartedByName,
	}
	if open != nil {
		summary.OpenPause = recordToPauseSummary(open)
	}
	return summary
}

func recordToPauseSummary(p *secondary.PauseRecord) *primary.PauseSummary {
	detail := corepause.FromLists(corepause.Category(p.Category), p.RawMaterialRefs, p.PhaseRefs, p.ProductRefs)
	return &primary.PauseSummary{
		ID:              p.ID,
		SessionID:       p.SessionID,
		LineID:          p.LineID,
		Category:        p.Category,
		SubCategory:     p.SubCategory,
		Reason:          p.Reason,
		ActionTaken:     p.ActionTaken,
		StartTime:       p.StartTime,
		EndTime:         p.EndTime,
		DurationSeconds: p.DurationSeconds,
		LostUnits:       p.LostUnits,
		Completed:       p.Completed,
		References:      detail.References(),
		RecordedByName:  p.RecordedByName,
	}
}

// Ensure SessionServiceImpl implements the interface.
var _ primary.SessionService = (*SessionServiceImpl)(nil)
