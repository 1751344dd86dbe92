package cli

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"

	"github.com/example/prodtrack/internal/core/stats"
	"github.com/example/prodtrack/internal/core/yield"
	"github.com/example/prodtrack/internal/ports/primary"
)

// StatsAdapter renders StatsService queries.
type StatsAdapter struct {
	service primary.StatsService
	out     io.Writer
}

// NewStatsAdapter creates a new StatsAdapter with the given service.
func NewStatsAdapter(service primary.StatsService, out io.Writer) *StatsAdapter {
	return &StatsAdapter{
		service: service,
		out:     out,
	}
}

// Session prints the detailed statistics of one session.
func (a *StatsAdapter) Session(ctx context.Context, sessionID string) error {
	st, err := a.service.GetSessionStats(ctx, sessionID)
	if err != nil {
		return err
	}

	s := st.Session
	fmt.Fprintf(a.out, "\nSession %s  line %s  %s\n", s.ID, s.LineID, colorStatus(string(s.Status)))
	if s.ProductRef != "" {
		fmt.Fprintf(a.out, "Reference:   %s\n", s.ProductRef)
	}
	fmt.Fprintf(a.out, "Total:       %s\n", st.TotalDuration)
	fmt.Fprintf(a.out, "Production:  %s\n", st.ProductionDuration)
	fmt.Fprintf(a.out, "Paused:      %s (%d pauses)\n", st.PauseDuration, st.PauseCount)
	fmt.Fprintf(a.out, "Efficiency:  %s\n", st.Efficiency)
	fmt.Fprintf(a.out, "Quantity:    %d (theoretical %d, lost %d)\n", st.ActualQuantity, st.TheoreticalQuantity, st.TotalLostUnits)

	if len(st.Categories) == 0 {
		fmt.Fprintln(a.out)
		return nil
	}

	fmt.Fprintf(a.out, "\n%-16s %6s %12s %8s\n", "CATEGORY", "COUNT", "DURATION", "LOST")
	fmt.Fprintln(a.out, rule)
	for _, c := range st.Categories {
		fmt.Fprintf(a.out, "%-16s %6d %12s %8d\n", c.Label, c.Count, c.TotalDuration, c.LostUnits)
		for _, p := range c.Pauses {
			fmt.Fprintf(a.out, "  %s %s  %s", p.ID, formatTime(p.StartTime), p.Duration)
			if p.Reason != "" {
				fmt.Fprintf(a.out, "  %s", p.Reason)
			}
			fmt.Fprintln(a.out)
		}
	}
	fmt.Fprintln(a.out)
	return nil
}

// Line prints the rollup of a line's completed sessions.
func (a *StatsAdapter) Line(ctx context.Context, req primary.LineStatsRequest) error {
	ls, err := a.service.GetLineStats(ctx, req)
	if err != nil {
		return err
	}

	fmt.Fprintf(a.out, "\nLine %s\n", ls.LineID)
	if !ls.HasData {
		fmt.Fprintln(a.out, "No completed sessions in range")
		return nil
	}

	fmt.Fprintf(a.out, "Sessions:    %d\n", ls.SessionCount)
	fmt.Fprintf(a.out, "Production:  %s (avg %s)\n", ls.TotalProductionDuration, yield.FormatDuration(int64(ls.AvgProductionSeconds)))
	fmt.Fprintf(a.out, "Paused:      %s (avg %s)\n", ls.TotalPauseDuration, yield.FormatDuration(int64(ls.AvgPauseSeconds)))
	fmt.Fprintf(a.out, "Efficiency:  %s\n", ls.Efficiency)
	fmt.Fprintf(a.out, "Quantity:    %d (avg %.1f)\n", ls.TotalQuantity, ls.AvgQuantity)
	fmt.Fprintf(a.out, "Pauses:      %d (lost %d)\n", ls.PauseCount, ls.TotalLostUnits)
	a.printCategories(ls.Categories)

	if len(ls.RecentSessions) > 0 {
		fmt.Fprintln(a.out, "\nRecent sessions:")
		a.printSessions(ls.RecentSessions)
	}
	fmt.Fprintln(a.out)
	return nil
}

// Active prints every running line.
func (a *StatsAdapter) Active(ctx context.Context) error {
	active, err := a.service.GetActiveSessions(ctx)
	if err != nil {
		return err
	}

	if len(active) == 0 {
		fmt.Fprintln(a.out, "No active sessions")
		return nil
	}

	fmt.Fprintf(a.out, "\n%-8s %-14s %-10s %12s %12s %8s %s\n", "LINE", "SESSION", "STATUS", "ELAPSED", "PRODUCTION", "QTY", "PAUSE")
	fmt.Fprintln(a.out, rule)
	for _, as := range active {
		fmt.Fprintf(a.out, "%-8s %-14s %-10s %12s %12s %8d %s\n",
			as.Session.LineID, as.Session.ID, string(as.Session.Status),
			as.Elapsed, as.Production, as.LiveQuantity, describeOpenPause(as.CurrentPause))
	}
	fmt.Fprintln(a.out)
	return nil
}

// History prints one page of sessions.
func (a *StatsAdapter) History(ctx context.Context, req primary.SessionHistoryRequest) error {
	page, err := a.service.GetSessionHistory(ctx, req)
	if err != nil {
		return err
	}

	if len(page.Items) == 0 {
		fmt.Fprintln(a.out, "No sessions found")
		return nil
	}

	fmt.Fprintln(a.out)
	a.printSessions(page.Items)
	fmt.Fprintf(a.out, "\nPage %d/%d (%d sessions)\n", page.Page, page.TotalPages, page.Total)
	return nil
}

// Pauses prints one page of pauses.
func (a *StatsAdapter) Pauses(ctx context.Context, req primary.PauseHistoryRequest) error {
	page, err := a.service.GetPauseHistory(ctx, req)
	if err != nil {
		return err
	}

	if len(page.Items) == 0 {
		fmt.Fprintln(a.out, "No pauses found")
		return nil
	}

	fmt.Fprintf(a.out, "\n%-14s %-8s %-16s %-20s %10s %6s %s\n", "PAUSE", "LINE", "CATEGORY", "STARTED", "DURATION", "LOST", "REFERENCES")
	fmt.Fprintln(a.out, rule)
	for _, p := range page.Items {
		duration := p.Duration
		if !p.Completed {
			duration = color.New(color.FgYellow).Sprint("running")
		}
		fmt.Fprintf(a.out, "%-14s %-8s %-16s %-20s %10s %6d %s\n",
			p.ID, p.LineID, p.CategoryLabel, formatTime(p.StartTime), duration, p.LostUnits, strings.Join(p.References, ","))
	}
	fmt.Fprintf(a.out, "\nPage %d/%d (%d pauses)\n", page.Page, page.TotalPages, page.Total)
	return nil
}

// Period prints the per-line rollup of a date range.
func (a *StatsAdapter) Period(ctx context.Context, rng primary.DateRange) error {
	ps, err := a.service.GetPeriodStats(ctx, rng)
	if err != nil {
		return err
	}

	if ps.TotalSessions == 0 {
		fmt.Fprintln(a.out, "No sessions in range")
		return nil
	}

	fmt.Fprintf(a.out, "\n%-8s %8s %12s %12s %8s %7s %6s %10s\n", "LINE", "SESSIONS", "PRODUCTION", "PAUSED", "QTY", "PAUSES", "LOST", "EFFICIENCY")
	fmt.Fprintln(a.out, rule)
	for _, l := range ps.Lines {
		fmt.Fprintf(a.out, "%-8s %8d %12s %12s %8d %7d %6d %10s\n",
			l.LineID, l.SessionCount, l.ProductionDuration, l.PauseDuration, l.Quantity, l.PauseCount, l.LostUnits, l.Efficiency)
	}
	fmt.Fprintln(a.out, rule)
	fmt.Fprintf(a.out, "%-8s %8d %12s %12s %8d %7d %6d %10s\n", "TOTAL",
		ps.TotalSessions, yield.FormatDuration(ps.TotalProductionSeconds), yield.FormatDuration(ps.TotalPauseSeconds),
		ps.TotalQuantity, ps.TotalPauses, ps.TotalLostUnits, ps.Efficiency)
	a.printCategories(ps.Categories)
	fmt.Fprintln(a.out)
	return nil
}

// Categories prints the cause category rollup of a date range.
func (a *StatsAdapter) Categories(ctx context.Context, rng primary.DateRange) error {
	cats, err := a.service.GetCategoryStats(ctx, rng)
	if err != nil {
		return err
	}

	if len(cats) == 0 {
		fmt.Fprintln(a.out, "No pauses in range")
		return nil
	}

	rows := make([]stats.CategoryStat, 0, len(cats))
	for _, c := range cats {
		rows = append(rows, *c)
	}
	a.printCategories(rows)
	fmt.Fprintln(a.out)
	return nil
}

// Dashboard prints the admin overview.
func (a *StatsAdapter) Dashboard(ctx context.Context, req primary.DashboardRequest) error {
	d, err := a.service.GetAdminDashboard(ctx, req)
	if err != nil {
		return err
	}

	fmt.Fprintf(a.out, "\nLines: %d  (%d active, %d paused, %d inactive)\n", d.TotalLines, d.ActiveLines, d.PausedLines, d.InactiveLines)
	fmt.Fprintf(a.out, "Sessions: %d  Pauses: %d  Lost units: %d\n", d.TotalSessions, d.TotalPauses, d.TotalLostUnits)

	if len(d.Lines) == 0 {
		fmt.Fprintln(a.out, "No lines match")
		return nil
	}

	fmt.Fprintf(a.out, "\n%-8s %-20s %-10s %-14s %10s %s\n", "LINE", "NAME", "STATE", "SESSION", "EFFICIENCY", "PAUSE")
	fmt.Fprintln(a.out, rule)
	for _, l := range d.Lines {
		sessionID, pauseInfo := "-", ""
		if l.Active != nil {
			sessionID = l.Active.Session.ID
			pauseInfo = describeOpenPause(l.Active.CurrentPause)
		}
		efficiency := "-"
		if l.Stats != nil && l.Stats.HasData {
			efficiency = l.Stats.Efficiency
		}
		fmt.Fprintf(a.out, "%-8s %-20s %-10s %-14s %10s %s\n", l.LineID, l.Name, lineState(l.State), sessionID, efficiency, pauseInfo)
	}
	fmt.Fprintln(a.out)
	return nil
}

// Lines prints the line catalog.
func (a *StatsAdapter) Lines(ctx context.Context) error {
	lines, err := a.service.ListLines(ctx)
	if err != nil {
		return err
	}

	if len(lines) == 0 {
		fmt.Fprintln(a.out, "No lines configured")
		return nil
	}

	fmt.Fprintf(a.out, "\n%-8s %-24s %s\n", "LINE", "NAME", "REFERENCES")
	fmt.Fprintln(a.out, rule)
	for _, l := range lines {
		fmt.Fprintf(a.out, "%-8s %-24s %s\n", l.ID, l.Name, strings.Join(l.References, ", "))
	}
	fmt.Fprintln(a.out)
	return nil
}

func (a *StatsAdapter) printSessions(sessions []stats.SessionView) {
	fmt.Fprintf(a.out, "%-14s %-8s %-10s %-20s %12s %12s %8s\n", "SESSION", "LINE", "STATUS", "STARTED", "PRODUCTION", "PAUSED", "QTY")
	fmt.Fprintln(a.out, rule)
	for _, s := range sessions {
		qty := "-"
		if s.FinalQuantity != nil {
			qty = fmt.Sprintf("%d", *s.FinalQuantity)
		}
		fmt.Fprintf(a.out, "%-14s %-8s %-10s %-20s %12s %12s %8s\n",
			s.ID, s.LineID, string(s.Status), formatTime(s.StartTime),
			yield.FormatDuration(s.ProductionSeconds), yield.FormatDuration(s.PauseSeconds), qty)
	}
}

func (a *StatsAdapter) printCategories(cats []stats.CategoryStat) {
	if len(cats) == 0 {
		return
	}
	fmt.Fprintf(a.out, "\n%-16s %6s %12s %12s %8s %s\n", "CATEGORY", "COUNT", "TOTAL", "AVERAGE", "LOST", "REFERENCES")
	fmt.Fprintln(a.out, rule)
	for _, c := range cats {
		fmt.Fprintf(a.out, "%-16s %6d %12s %12s %8d %s\n",
			c.Label, c.Count, c.TotalDuration, c.AvgDuration, c.LostUnits, strings.Join(c.References, ","))
	}
}

func describeOpenPause(p *stats.OpenPause) string {
	if p == nil {
		return ""
	}
	return fmt.Sprintf("%s %s for %s", pauseMark(), p.CategoryLabel, p.Duration)
}

func lineState(state string) string {
	switch state {
	case stats.LineStateActive:
		return color.New(color.FgGreen).Sprint(state)
	case stats.LineStatePaused:
		return color.New(color.FgYellow).Sprint(state)
	}
	return state
}
