package app

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/example/prodtrack/internal/apperr"
	corepause "github.com/example/prodtrack/internal/core/pause"
	coresession "github.com/example/prodtrack/internal/core/session"
	"github.com/example/prodtrack/internal/core/stats"
	"github.com/example/prodtrack/internal/ports/primary"
	"github.com/example/prodtrack/internal/ports/secondary"
)

// DefaultPageSize is used when neither the request nor the service sets a limit.
const DefaultPageSize = 20

// StatsServiceImpl implements the StatsService interface.
// It only reads; live figures are computed as of the service clock.
type StatsServiceImpl struct {
	sessionRepo secondary.SessionRepository
	pauseRepo   secondary.PauseRepository
	catalog     secondary.CatalogProvider
	rates       secondary.RateProvider
	pageSize    int
	now         func() time.Time
}

// NewStatsService creates a new StatsService with injected dependencies.
func NewStatsService(
	sessionRepo secondary.SessionRepository,
	pauseRepo secondary.PauseRepository,
	catalog secondary.CatalogProvider,
	rates secondary.RateProvider,
	pageSize int,
) *StatsServiceImpl {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	return &StatsServiceImpl{
		sessionRepo: sessionRepo,
		pauseRepo:   pauseRepo,
		catalog:     catalog,
		rates:       rates,
		pageSize:    pageSize,
		now:         time.Now,
	}
}

// WithClock replaces the time source. Used by tests.
func (s *StatsServiceImpl) WithClock(now func() time.Time) *StatsServiceImpl {
	s.now = now
	return s
}

func (s *StatsServiceImpl) clock() time.Time {
	return s.now().UTC().Truncate(time.Second)
}

// GetSessionStats returns durations, efficiency and the pause breakdown of a session.
func (s *StatsServiceImpl) GetSessionStats(ctx context.Context, sessionID string) (*primary.SessionStats, error) {
	record, err := s.sessionRepo.GetByID(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	pauses, err := s.pauseRepo.ListBySession(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to list pauses: %w", err)
	}
	session, err := s.toStatsSession(ctx, record, true)
	if err != nil {
		return nil, err
	}
	return stats.BuildSessionStats(session, toStatsPauses(pauses), s.clock()), nil
}

// GetLineStats aggregates the completed sessions of a line started within the range.
func (s *StatsServiceImpl) GetLineStats(ctx context.Context, req primary.LineStatsRequest) (*primary.LineStats, error) {
	sessions, pauses, err := s.loadCompleted(ctx, req.LineID, req.Range)
	if err != nil {
		return nil, err
	}
	return stats.BuildLineStats(req.LineID, sessions, pauses), nil
}

// GetActiveSessions reports every active or paused session ordered by line.
func (s *StatsServiceImpl) GetActiveSessions(ctx context.Context) ([]*primary.ActiveSession, error) {
	records, err := s.sessionRepo.List(ctx, secondary.SessionFilters{
		Statuses: []string{string(coresession.StatusActive), string(coresession.StatusPaused)},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list open sessions: %w", err)
	}
	pauses, err := s.pausesFor(ctx, records)
	if err != nil {
		return nil, err
	}
	bySession := make(map[string][]stats.Pause)
	for _, p := range pauses {
		bySession[p.SessionID] = append(bySession[p.SessionID], p)
	}

	now := s.clock()
	out := make([]*primary.ActiveSession, 0, len(records))
	for _, r := range records {
		session, err := s.toStatsSession(ctx, r, true)
		if err != nil {
			return nil, err
		}
		out = append(out, stats.BuildActiveSession(session, bySession[r.ID], now))
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Session.LineID < out[j].Session.LineID
	})
	return out, nil
}

// GetSessionHistory lists sessions started within the range, most recent first.
func (s *StatsServiceImpl) GetSessionHistory(ctx context.Context, req primary.SessionHistoryRequest) (*primary.SessionPage, error) {
	filters := secondary.SessionFilters{
		LineID: req.LineID,
		From:   req.Range.From,
		To:     req.Range.To,
	}
	if req.Status != "" {
		status := coresession.Status(req.Status)
		if !status.Valid() {
			return nil, apperr.InvalidArgument("unknown session status %q", req.Status)
		}
		filters.Statuses = []string{req.Status}
	}

	page, limit, offset := stats.NormalizePage(req.Page, req.Limit, s.pageSize)
	total, err := s.sessionRepo.Count(ctx, filters)
	if err != nil {
		return nil, fmt.Errorf("failed to count sessions: %w", err)
	}
	filters.Limit = limit
	filters.Offset = offset
	records, err := s.sessionRepo.List(ctx, filters)
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}

	items := make([]stats.SessionView, 0, len(records))
	for _, r := range records {
		session, err := s.toStatsSession(ctx, r, false)
		if err != nil {
			return nil, err
		}
		items = append(items, stats.ViewSession(session))
	}
	return &primary.SessionPage{
		Items:      items,
		Total:      total,
		Page:       page,
		Limit:      limit,
		TotalPages: stats.PageCount(total, limit),
	}, nil
}

// GetAdminDashboard combines the line catalog, live sessions and per-line rollups.
func (s *StatsServiceImpl) GetAdminDashboard(ctx context.Context, req primary.DashboardRequest) (*primary.AdminDashboard, error) {
	switch req.Status {
	case "", stats.LineStateActive, stats.LineStatePaused, stats.LineStateInactive:
	default:
		return nil, apperr.InvalidArgument("unknown line state %q", req.Status)
	}

	lineRecords, err := s.catalog.ListLines(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list lines: %w", err)
	}
	lines := make([]stats.LineInfo, len(lineRecords))
	for i, l := range lineRecords {
		lines[i] = stats.LineInfo{ID: l.ID, Name: l.Name}
	}

	active, err := s.GetActiveSessions(ctx)
	if err != nil {
		return nil, err
	}

	sessions, pauses, err := s.loadCompleted(ctx, "", req.Range)
	if err != nil {
		return nil, err
	}
	sessionsByLine := make(map[string][]stats.Session)
	lineOfSession := make(map[string]string)
	for _, sess := range sessions {
		sessionsByLine[sess.LineID] = append(sessionsByLine[sess.LineID], sess)
		lineOfSession[sess.ID] = sess.LineID
	}
	pausesByLine := make(map[string][]stats.Pause)
	for _, p := range pauses {
		line := lineOfSession[p.SessionID]
		pausesByLine[line] = append(pausesByLine[line], p)
	}
	lineStats := make(map[string]*stats.LineStats, len(sessionsByLine))
	for line, group := range sessionsByLine {
		lineStats[line] = stats.BuildLineStats(line, group, pausesByLine[line])
	}

	totals, err := s.rangeTotals(ctx, req.Range)
	if err != nil {
		return nil, err
	}
	return stats.BuildDashboard(lines, active, lineStats, totals, req.LineID, req.Status), nil
}

// GetPeriodStats rolls up every session, in any status, whose run touches the range.
func (s *StatsServiceImpl) GetPeriodStats(ctx context.Context, rng primary.DateRange) (*primary.PeriodStats, error) {
	records, err := s.sessionRepo.List(ctx, secondary.SessionFilters{
		From:    rng.From,
		To:      rng.To,
		Overlap: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}
	pauses, err := s.pausesFor(ctx, records)
	if err != nil {
		return nil, err
	}
	sessions := make([]stats.Session, 0, len(records))
	for _, r := range records {
		session, err := s.toStatsSession(ctx, r, false)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, session)
	}
	return stats.BuildPeriodStats(sessions, pauses, s.clock()), nil
}

// GetPauseHistory lists pauses started within the range, most recent first.
func (s *StatsServiceImpl) GetPauseHistory(ctx context.Context, req primary.PauseHistoryRequest) (*primary.PausePage, error) {
	filters := secondary.PauseFilters{
		LineID: req.LineID,
		From:   req.Range.From,
		To:     req.Range.To,
	}
	if req.Category != "" {
		category, err := corepause.ParseCategory(req.Category)
		if err != nil {
			return nil, apperr.InvalidArgument("%v", err)
		}
		filters.Category = string(category)
	}

	page, limit, offset := stats.NormalizePage(req.Page, req.Limit, s.pageSize)
	total, err := s.pauseRepo.Count(ctx, filters)
	if err != nil {
		return nil, fmt.Errorf("failed to count pauses: %w", err)
	}
	filters.Limit = limit
	filters.Offset = offset
	records, err := s.pauseRepo.List(ctx, filters)
	if err != nil {
		return nil, fmt.Errorf("failed to list pauses: %w", err)
	}

	now := s.clock()
	items := make([]stats.PauseView, len(records))
	for i, r := range records {
		items[i] = stats.ViewPause(toStatsPause(r), now)
	}
	return &primary.PausePage{
		Items:      items,
		Total:      total,
		Page:       page,
		Limit:      limit,
		TotalPages: stats.PageCount(total, limit),
	}, nil
}

// GetCategoryStats returns one row per cause category over pauses started in the range.
func (s *StatsServiceImpl) GetCategoryStats(ctx context.Context, rng primary.DateRange) ([]*primary.CategoryStat, error) {
	totals, err := s.pauseRepo.SumByCategory(ctx, secondary.PauseFilters{From: rng.From, To: rng.To})
	if err != nil {
		return nil, fmt.Errorf("failed to sum pauses by category: %w", err)
	}
	in := make([]stats.CategoryTotal, len(totals))
	for i, t := range totals {
		in[i] = stats.CategoryTotal{
			Category:        corepause.Category(t.Category),
			Count:           t.Count,
			DurationSeconds: t.DurationSeconds,
			LostUnits:       t.LostUnits,
		}
	}

	rows := stats.BuildCategoryStats(in)
	out := make([]*primary.CategoryStat, len(rows))
	for i := range rows {
		out[i] = &rows[i]
	}
	return out, nil
}

// ListLines returns the line catalog.
func (s *StatsServiceImpl) ListLines(ctx context.Context) ([]*primary.Line, error) {
	records, err := s.catalog.ListLines(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list lines: %w", err)
	}
	lines := make([]*primary.Line, len(records))
	for i, r := range records {
		lines[i] = &primary.Line{ID: r.ID, Name: r.Name, References: r.References}
	}
	return lines, nil
}

// Helper methods

// loadCompleted fetches completed sessions started within the range together
// with their pause ledgers. An empty lineID selects every line.
func (s *StatsServiceImpl) loadCompleted(ctx context.Context, lineID string, rng primary.DateRange) ([]stats.Session, []stats.Pause, error) {
	records, err := s.sessionRepo.List(ctx, secondary.SessionFilters{
		LineID:   lineID,
		Statuses: []string{string(coresession.StatusCompleted)},
		From:     rng.From,
		To:       rng.To,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to list completed sessions: %w", err)
	}
	pauses, err := s.pausesFor(ctx, records)
	if err != nil {
		return nil, nil, err
	}
	sessions := make([]stats.Session, 0, len(records))
	for _, r := range records {
		session, err := s.toStatsSession(ctx, r, false)
		if err != nil {
			return nil, nil, err
		}
		sessions = append(sessions, session)
	}
	return sessions, pauses, nil
}

func (s *StatsServiceImpl) pausesFor(ctx context.Context, records []*secondary.SessionRecord) ([]stats.Pause, error) {
	if len(records) == 0 {
		return nil, nil
	}
	ids := make([]string, len(records))
	for i, r := range records {
		ids[i] = r.ID
	}
	pauses, err := s.pauseRepo.ListBySessions(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to list pauses: %w", err)
	}
	return toStatsPauses(pauses), nil
}

// rangeTotals counts sessions and pauses started within the range and sums lost units.
func (s *StatsServiceImpl) rangeTotals(ctx context.Context, rng primary.DateRange) (stats.DashboardTotals, error) {
	var totals stats.DashboardTotals
	sessions, err := s.sessionRepo.Count(ctx, secondary.SessionFilters{From: rng.From, To: rng.To})
	if err != nil {
		return totals, fmt.Errorf("failed to count sessions: %w", err)
	}
	sums, err := s.pauseRepo.SumByCategory(ctx, secondary.PauseFilters{From: rng.From, To: rng.To})
	if err != nil {
		return totals, fmt.Errorf("failed to sum pauses: %w", err)
	}
	totals.Sessions = sessions
	for _, row := range sums {
		totals.Pauses += row.Count
		totals.LostUnits += row.LostUnits
	}
	return totals, nil
}

// toStatsSession converts a record. Rates are only resolved for open sessions
// when withRate is set, since settled sessions carry their final quantity.
func (s *StatsServiceImpl) toStatsSession(ctx context.Context, r *secondary.SessionRecord, withRate bool) (stats.Session, error) {
	session := stats.Session{
		ID:                r.ID,
		LineID:            r.LineID,
		ProductRef:        r.ProductRef,
		Notes:             r.Notes,
		Status:            coresession.Status(r.Status),
		StartTime:         r.StartTime,
		EndTime:           r.EndTime,
		ProductionSeconds: r.AccumulatedProductionSeconds,
		PauseSeconds:      r.AccumulatedPauseSeconds,
		FinalQuantity:     r.FinalQuantity,
		QualityStatus:     r.QualityStatus,
		StartedByName:     r.StartedByName,
	}
	if withRate && session.Status.IsOpen() && r.ProductRef != "" {
		rate, ok, err := s.rates.LookupRate(ctx, r.LineID, r.ProductRef)
		if err != nil {
			return session, fmt.Errorf("failed to look up rate for %s/%s: %w", r.LineID, r.ProductRef, err)
		}
		session.RatePerUnit = rate
		session.HasRate = ok
	}
	return session, nil
}

func toStatsPause(r *secondary.PauseRecord) stats.Pause {
	return stats.Pause{
		ID:              r.ID,
		SessionID:       r.SessionID,
		LineID:          r.LineID,
		Category:        corepause.Category(r.Category),
		SubCategory:     r.SubCategory,
		Reason:          r.Reason,
		ActionTaken:     r.ActionTaken,
		StartTime:       r.StartTime,
		EndTime:         r.EndTime,
		DurationSeconds: r.DurationSeconds,
		LostUnits:       r.LostUnits,
		Completed:       r.Completed,
		RawMaterialRefs: r.RawMaterialRefs,
		PhaseRefs:       r.PhaseRefs,
		ProductRefs:     r.ProductRefs,
		RecordedByName:  r.RecordedByName,
	}
}

func toStatsPauses(records []*secondary.PauseRecord) []stats.Pause {
	out := make([]stats.Pause, len(records))
	for i, r := range records {
		out[i] = toStatsPause(r)
	}
	return out
}

// Ensure StatsServiceImpl implements the interface.
var _ primary.StatsService = (*StatsServiceImpl)(nil)
