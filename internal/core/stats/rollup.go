package stats

import (
	"sort"
	"time"

	"github.com/example/prodtrack/internal/core/pause"
	"github.com/example/prodtrack/internal/core/session"
	"github.com/example/prodtrack/internal/core/yield"
)

// RecentSessionLimit caps the recent-session list of a line rollup.
const RecentSessionLimit = 10

// ViewSession converts an aggregation input into its presentation row.
func ViewSession(s Session) SessionView {
	return SessionView{
		ID:                s.ID,
		LineID:            s.LineID,
		ProductRef:        s.ProductRef,
		Status:            s.Status,
		StartTime:         s.StartTime,
		EndTime:           s.EndTime,
		Notes:             s.Notes,
		QualityStatus:     s.QualityStatus,
		FinalQuantity:     s.FinalQuantity,
		ProductionSeconds: s.ProductionSeconds,
		PauseSeconds:      s.PauseSeconds,
		StartedByName:     s.StartedByName,
	}
}

// ViewPause converts a pause into its presentation row. Open pauses report
// their running duration as of now.
func ViewPause(p Pause, now time.Time) PauseView {
	d := p.liveDuration(now)
	return PauseView{
		ID:              p.ID,
		SessionID:       p.SessionID,
		LineID:          p.LineID,
		Category:        p.Category,
		CategoryLabel:   p.Category.Label(),
		SubCategory:     p.SubCategory,
		Reason:          p.Reason,
		ActionTaken:     p.ActionTaken,
		StartTime:       p.StartTime,
		EndTime:         p.EndTime,
		DurationSeconds: d,
		Duration:        yield.FormatDuration(d),
		LostUnits:       p.LostUnits,
		Completed:       p.Completed,
		References:      p.Detail().References(),
		RecordedByName:  p.RecordedByName,
	}
}

// observedUntil is the instant a session's clock stops: its end, or now.
func observedUntil(s Session, now time.Time) time.Time {
	if s.EndTime != nil {
		return *s.EndTime
	}
	return now
}

func intervals(pauses []Pause) []yield.Interval {
	out := make([]yield.Interval, len(pauses))
	for i, p := range pauses {
		out[i] = p.interval()
	}
	return out
}

func quantityOf(s Session) int64 {
	if s.FinalQuantity == nil {
		return 0
	}
	return *s.FinalQuantity
}

// liveQuantity is the final quantity, or for a running session the quantity
// derivable from production time so far.
func liveQuantity(s Session, productionSeconds int64) int64 {
	if s.FinalQuantity != nil {
		return *s.FinalQuantity
	}
	if s.Status.IsOpen() && s.ProductRef != "" && s.HasRate {
		return yield.DerivedQuantity(productionSeconds, s.RatePerUnit)
	}
	return 0
}

// BuildSessionStats computes the detailed view of one session from its ledger.
// Open pauses count with their running duration.
func BuildSessionStats(s Session, pauses []Pause, now time.Time) *SessionStats {
	until := observedUntil(s, now)
	total := yield.ElapsedSeconds(s.StartTime, until)
	pauseSeconds := yield.PauseSeconds(intervals(pauses), until, true)
	production := total - pauseSeconds
	if production < 0 {
		production = 0
	}

	var lost int64
	for _, p := range pauses {
		lost += p.LostUnits
	}

	actual := liveQuantity(s, production)
	return &SessionStats{
		Session:             ViewSession(s),
		TotalSeconds:        total,
		ProductionSeconds:   production,
		PauseSeconds:        pauseSeconds,
		TotalDuration:       yield.FormatDuration(total),
		ProductionDuration:  yield.FormatDuration(production),
		PauseDuration:       yield.FormatDuration(pauseSeconds),
		EfficiencyPercent:   yield.EfficiencyPercent(production, total),
		Efficiency:          yield.Efficiency(production, total),
		PauseCount:          len(pauses),
		Categories:          breakdown(pauses, until),
		ActualQuantity:      actual,
		TotalLostUnits:      lost,
		TheoreticalQuantity: actual + lost,
	}
}

func breakdown(pauses []Pause, now time.Time) []CategoryBreakdown {
	groups := make(map[pause.Category]*CategoryBreakdown)
	for _, p := range sortedByStart(pauses, false) {
		g, ok := groups[p.Category]
		if !ok {
			g = &CategoryBreakdown{Category: p.Category, Label: p.Category.Label()}
			groups[p.Category] = g
		}
		v := ViewPause(p, now)
		g.Count++
		g.TotalSeconds += v.DurationSeconds
		g.LostUnits += p.LostUnits
		g.Pauses = append(g.Pauses, v)
	}

	out := make([]CategoryBreakdown, 0, len(groups))
	for _, c := range orderedCategories(groups) {
		g := groups[c]
		g.TotalDuration = yield.FormatDuration(g.TotalSeconds)
		out = append(out, *g)
	}
	return out
}

// orderedCategories returns the keys present in taxonomy order, followed by
// any unknown legacy categories sorted by name.
func orderedCategories[T any](groups map[pause.Category]T) []pause.Category {
	out := make([]pause.Category, 0, len(groups))
	for _, c := range pause.Categories {
		if _, ok := groups[c]; ok {
			out = append(out, c)
		}
	}
	var extra []pause.Category
	for c := range groups {
		if !c.Valid() {
			extra = append(extra, c)
		}
	}
	sort.Slice(extra, func(i, j int) bool { return extra[i] < extra[j] })
	return append(out, extra...)
}

func sortedByStart(pauses []Pause, desc bool) []Pause {
	out := append([]Pause(nil), pauses...)
	sort.SliceStable(out, func(i, j int) bool {
		if desc {
			return out[i].StartTime.After(out[j].StartTime)
		}
		return out[i].StartTime.Before(out[j].StartTime)
	})
	return out
}

// categoryAccumulator builds CategoryStat rows, optionally collecting references.
type categoryAccumulator struct {
	rows map[pause.Category]*CategoryStat
	refs map[pause.Category]map[string]bool
}

func newCategoryAccumulator() *categoryAccumulator {
	return &categoryAccumulator{
		rows: make(map[pause.Category]*CategoryStat),
		refs: make(map[pause.Category]map[string]bool),
	}
}

func (a *categoryAccumulator) add(p Pause, durationSeconds int64, withRefs bool) {
	row, ok := a.rows[p.Category]
	if !ok {
		row = &CategoryStat{Category: p.Category, Label: p.Category.Label()}
		a.rows[p.Category] = row
		a.refs[p.Category] = make(map[string]bool)
	}
	row.Count++
	row.TotalSeconds += durationSeconds
	row.LostUnits += p.LostUnits
	if withRefs {
		for _, r := range p.AllReferences() {
			if r != "" {
				a.refs[p.Category][r] = true
			}
		}
	}
}

func (a *categoryAccumulator) result() []CategoryStat {
	out := make([]CategoryStat, 0, len(a.rows))
	for _, c := range orderedCategories(a.rows) {
		row := a.rows[c]
		row.AvgSeconds = yield.Average(row.TotalSeconds, row.Count)
		row.TotalDuration = yield.FormatDuration(row.TotalSeconds)
		row.AvgDuration = yield.FormatDuration(int64(row.AvgSeconds))
		if refs := a.refs[c]; len(refs) > 0 {
			row.References = make([]string, 0, len(refs))
			for r := range refs {
				row.References = append(row.References, r)
			}
			sort.Strings(row.References)
		}
		out = append(out, *row)
	}
	return out
}

// BuildLineStats aggregates the completed sessions of a line. Sessions in any
// other status are ignored, as are pauses of ignored sessions. An empty input
// yields a zero-valued result with HasData=false.
func BuildLineStats(lineID string, sessions []Session, pauses []Pause) *LineStats {
	out := &LineStats{
		LineID:     lineID,
		Efficiency: yield.Efficiency(0, 0),
	}

	included := make(map[string]bool)
	var completed []Session
	for _, s := range sessions {
		if s.Status != session.StatusCompleted {
			continue
		}
		if lineID != "" && s.LineID != lineID {
			continue
		}
		included[s.ID] = true
		completed = append(completed, s)
		out.TotalProductionSeconds += s.ProductionSeconds
		out.TotalPauseSeconds += s.PauseSeconds
		out.TotalQuantity += quantityOf(s)
	}
	out.SessionCount = len(completed)
	out.HasData = out.SessionCount > 0

	acc := newCategoryAccumulator()
	for _, p := range pauses {
		if !included[p.SessionID] {
			continue
		}
		out.PauseCount++
		out.TotalLostUnits += p.LostUnits
		acc.add(p, p.DurationSeconds, true)
	}
	out.Categories = acc.result()

	out.AvgProductionSeconds = yield.Average(out.TotalProductionSeconds, out.SessionCount)
	out.AvgPauseSeconds = yield.Average(out.TotalPauseSeconds, out.SessionCount)
	out.AvgQuantity = yield.Average(out.TotalQuantity, out.SessionCount)
	total := out.TotalProductionSeconds + out.TotalPauseSeconds
	out.EfficiencyPercent = yield.EfficiencyPercent(out.TotalProductionSeconds, total)
	out.Efficiency = yield.Efficiency(out.TotalProductionSeconds, total)
	out.TotalProductionDuration = yield.FormatDuration(out.TotalProductionSeconds)
	out.TotalPauseDuration = yield.FormatDuration(out.TotalPauseSeconds)

	sort.SliceStable(completed, func(i, j int) bool {
		return completed[i].StartTime.After(completed[j].StartTime)
	})
	for i, s := range completed {
		if i == RecentSessionLimit {
			break
		}
		out.RecentSessions = append(out.RecentSessions, ViewSession(s))
	}
	return out
}

// periodSeconds returns production and pause seconds of a session for period
// rollups: persisted accumulators once terminal, live ledger values while open.
func periodSeconds(s Session, pauses []Pause, now time.Time) (production, paused int64) {
	if s.Status.IsTerminal() {
		return s.ProductionSeconds, s.PauseSeconds
	}
	iv := intervals(pauses)
	return yield.ProductionSeconds(s.StartTime, now, iv, true), yield.PauseSeconds(iv, now, true)
}

// BuildPeriodStats groups sessions of any status by line and sums their time,
// quantities and pause ledgers. Lines are sorted by ID.
func BuildPeriodStats(sessions []Session, pauses []Pause, now time.Time) *PeriodStats {
	bySession := groupPauses(pauses)
	lines := make(map[string]*LinePeriod)
	lineAcc := make(map[string]*categoryAccumulator)
	global := newCategoryAccumulator()
	out := &PeriodStats{}

	for _, s := range sessions {
		lp, ok := lines[s.LineID]
		if !ok {
			lp = &LinePeriod{LineID: s.LineID}
			lines[s.LineID] = lp
			lineAcc[s.LineID] = newCategoryAccumulator()
		}
		own := bySession[s.ID]
		production, paused := periodSeconds(s, own, now)

		lp.SessionCount++
		lp.ProductionSeconds += production
		lp.PauseSeconds += paused
		lp.Quantity += quantityOf(s)
		for _, p := range own {
			d := p.liveDuration(now)
			lp.PauseCount++
			lp.LostUnits += p.LostUnits
			lineAcc[s.LineID].add(p, d, false)
			global.add(p, d, false)
		}
	}

	ids := make([]string, 0, len(lines))
	for id := range lines {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	for _, id := range ids {
		lp := lines[id]
		total := lp.ProductionSeconds + lp.PauseSeconds
		lp.EfficiencyPercent = yield.EfficiencyPercent(lp.ProductionSeconds, total)
		lp.Efficiency = yield.Efficiency(lp.ProductionSeconds, total)
		lp.ProductionDuration = yield.FormatDuration(lp.ProductionSeconds)
		lp.PauseDuration = yield.FormatDuration(lp.PauseSeconds)
		lp.Categories = lineAcc[id].result()
		out.Lines = append(out.Lines, *lp)

		out.TotalSessions += lp.SessionCount
		out.TotalProductionSeconds += lp.ProductionSeconds
		out.TotalPauseSeconds += lp.PauseSeconds
		out.TotalQuantity += lp.Quantity
		out.TotalPauses += lp.PauseCount
		out.TotalLostUnits += lp.LostUnits
	}

	total := out.TotalProductionSeconds + out.TotalPauseSeconds
	out.EfficiencyPercent = yield.EfficiencyPercent(out.TotalProductionSeconds, total)
	out.Efficiency = yield.Efficiency(out.TotalProductionSeconds, total)
	out.Categories = global.result()
	return out
}

// CategoryTotal is a pre-grouped pause sum for one category, as produced by
// storage. Open pauses contribute their count but no duration yet.
type CategoryTotal struct {
	Category        pause.Category
	Count           int
	DurationSeconds int64
	LostUnits       int64
}

// BuildCategoryStats turns grouped pause sums into category rows with averages.
// Rows for the same category are merged.
func BuildCategoryStats(totals []CategoryTotal) []CategoryStat {
	rows := make(map[pause.Category]*CategoryStat)
	for _, t := range totals {
		row, ok := rows[t.Category]
		if !ok {
			row = &CategoryStat{Category: t.Category, Label: t.Category.Label()}
			rows[t.Category] = row
		}
		row.Count += t.Count
		row.TotalSeconds += t.DurationSeconds
		row.LostUnits += t.LostUnits
	}

	out := make([]CategoryStat, 0, len(rows))
	for _, c := range orderedCategories(rows) {
		row := rows[c]
		row.AvgSeconds = yield.Average(row.TotalSeconds, row.Count)
		row.TotalDuration = yield.FormatDuration(row.TotalSeconds)
		row.AvgDuration = yield.FormatDuration(int64(row.AvgSeconds))
		out = append(out, *row)
	}
	return out
}

// BuildActiveSession computes the live view of an open session.
func BuildActiveSession(s Session, pauses []Pause, now time.Time) *ActiveSession {
	iv := intervals(pauses)
	elapsed := yield.ElapsedSeconds(s.StartTime, now)
	production := yield.ProductionSeconds(s.StartTime, now, iv, true)
	out := &ActiveSession{
		Session:           ViewSession(s),
		ElapsedSeconds:    elapsed,
		ProductionSeconds: production,
		PauseSeconds:      yield.PauseSeconds(iv, now, true),
		Elapsed:           yield.FormatDuration(elapsed),
		Production:        yield.FormatDuration(production),
		LiveQuantity:      liveQuantity(s, production),
		EfficiencyPercent: yield.EfficiencyPercent(production, elapsed),
	}
	for _, p := range pauses {
		if !p.Open() {
			continue
		}
		d := p.liveDuration(now)
		out.CurrentPause = &OpenPause{
			PauseID:         p.ID,
			Category:        p.Category,
			CategoryLabel:   p.Category.Label(),
			SubCategory:     p.SubCategory,
			StartTime:       p.StartTime,
			DurationSeconds: d,
			Duration:        yield.FormatDuration(d),
			References:      p.Detail().References(),
		}
		break
	}
	return out
}

// BuildDashboard combines catalog lines with live sessions and line rollups.
// Totals over lines are computed before the line/state filters apply.
func BuildDashboard(lines []LineInfo, active []*ActiveSession, lineStats map[string]*LineStats, totals DashboardTotals, lineFilter, stateFilter string) *AdminDashboard {
	byLine := make(map[string]*ActiveSession, len(active))
	for _, a := range active {
		byLine[a.Session.LineID] = a
	}

	known := make(map[string]bool, len(lines))
	all := make([]DashboardLine, 0, len(lines))
	for _, l := range lines {
		known[l.ID] = true
		all = append(all, DashboardLine{LineID: l.ID, Name: l.Name})
	}
	// Sessions may still run on lines since removed from the catalog.
	var orphans []string
	for id := range byLine {
		if !known[id] {
			orphans = append(orphans, id)
		}
	}
	sort.Strings(orphans)
	for _, id := range orphans {
		all = append(all, DashboardLine{LineID: id, Name: id})
	}

	out := &AdminDashboard{
		TotalSessions:  totals.Sessions,
		TotalPauses:    totals.Pauses,
		TotalLostUnits: totals.LostUnits,
	}
	for _, dl := range all {
		dl.State = LineStateInactive
		if a, ok := byLine[dl.LineID]; ok {
			dl.Active = a
			dl.State = LineStateActive
			if a.Session.Status == session.StatusPaused {
				dl.State = LineStatePaused
			}
		}
		if ls, ok := lineStats[dl.LineID]; ok {
			dl.Stats = ls
		} else {
			dl.Stats = BuildLineStats(dl.LineID, nil, nil)
		}

		out.TotalLines++
		switch dl.State {
		case LineStateActive:
			out.ActiveLines++
		case LineStatePaused:
			out.PausedLines++
		default:
			out.InactiveLines++
		}

		if lineFilter != "" && dl.LineID != lineFilter {
			continue
		}
		if stateFilter != "" && dl.State != stateFilter {
			continue
		}
		out.Lines = append(out.Lines, dl)
	}
	return out
}

func groupPauses(pauses []Pause) map[string][]Pause {
	out := make(map[string][]Pause)
	for _, p := range pauses {
		out[p.SessionID] = append(out[p.SessionID], p)
	}
	return out
}

// NormalizePage clamps page and limit and returns the row offset.
func NormalizePage(page, limit, defaultLimit int) (int, int, int) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = defaultLimit
	}
	if limit < 1 {
		limit = 20
	}
	return page, limit, (page - 1) * limit
}

// PageCount returns the number of pages needed for total rows.
func PageCount(total, limit int) int {
	if limit <= 0 || total <= 0 {
		return 0
	}
	return (total + limit - 1) / limit
}
