// Package stats is the aggregation engine. It rolls sessions and their pause
// ledgers up into session, line, period and category views.
// This is part of the Functional Core - no I/O, only pure functions.
package stats

import (
	"time"

	"github.com/example/prodtrack/internal/core/pause"
	"github.com/example/prodtrack/internal/core/session"
	"github.com/example/prodtrack/internal/core/yield"
)

// Session is the aggregation input for one production session.
type Session struct {
	ID                string
	LineID            string
	ProductRef        string
	Notes             string
	Status            session.Status
	StartTime         time.Time
	EndTime           *time.Time
	ProductionSeconds int64 // persisted accumulator, settled at end
	PauseSeconds      int64 // persisted accumulator, closed pauses only
	FinalQuantity     *int64
	QualityStatus     string
	StartedByName     string
	RatePerUnit       float64
	HasRate           bool
}

// Pause is the aggregation input for one pause episode.
type Pause struct {
	ID              string
	SessionID       string
	LineID          string
	Category        pause.Category
	SubCategory     string
	Reason          string
	ActionTaken     string
	StartTime       time.Time
	EndTime         *time.Time
	DurationSeconds int64
	LostUnits       int64
	Completed       bool
	RawMaterialRefs []string
	PhaseRefs       []string
	ProductRefs     []string
	RecordedByName  string
}

// Open reports whether the pause is still running.
func (p Pause) Open() bool { return p.EndTime == nil }

// Detail returns the category-specific view of the pause.
func (p Pause) Detail() pause.Detail {
	return pause.FromLists(p.Category, p.RawMaterialRefs, p.PhaseRefs, p.ProductRefs)
}

// AllReferences returns the references of all three lists, whichever are set.
func (p Pause) AllReferences() []string {
	refs := make([]string, 0, len(p.RawMaterialRefs)+len(p.PhaseRefs)+len(p.ProductRefs))
	refs = append(refs, p.RawMaterialRefs...)
	refs = append(refs, p.PhaseRefs...)
	refs = append(refs, p.ProductRefs...)
	return refs
}

func (p Pause) interval() yield.Interval {
	return yield.Interval{Start: p.StartTime, End: p.EndTime, Duration: p.DurationSeconds}
}

// liveDuration is the settled duration, or the running duration for an open pause.
func (p Pause) liveDuration(now time.Time) int64 {
	if p.Open() {
		return yield.ElapsedSeconds(p.StartTime, now)
	}
	return p.DurationSeconds
}

// SessionView is a presentation-ready session row.
type SessionView struct {
	ID                string
	LineID            string
	ProductRef        string
	Status            session.Status
	StartTime         time.Time
	EndTime           *time.Time
	Notes             string
	QualityStatus     string
	FinalQuantity     *int64
	ProductionSeconds int64
	PauseSeconds      int64
	StartedByName     string
}

// PauseView is a presentation-ready pause row.
type PauseView struct {
	ID              string
	SessionID       string
	LineID          string
	Category        pause.Category
	CategoryLabel   string
	SubCategory     string
	Reason          string
	ActionTaken     string
	StartTime       time.Time
	EndTime         *time.Time
	DurationSeconds int64
	Duration        string
	LostUnits       int64
	Completed       bool
	References      []string
	RecordedByName  string
}

// CategoryBreakdown groups the pauses of one session by category.
type CategoryBreakdown struct {
	Category      pause.Category
	Label         string
	Count         int
	TotalSeconds  int64
	TotalDuration string
	LostUnits     int64
	Pauses        []PauseView
}

// CategoryStat is a rollup row for one cause category.
type CategoryStat struct {
	Category      pause.Category
	Label         string
	Count         int
	TotalSeconds  int64
	AvgSeconds    float64
	TotalDuration string
	AvgDuration   string
	LostUnits     int64
	References    []string
}

// SessionStats is the detailed view of a single session.
type SessionStats struct {
	Session             SessionView
	TotalSeconds        int64
	ProductionSeconds   int64
	PauseSeconds        int64
	TotalDuration       string
	ProductionDuration  string
	PauseDuration       string
	EfficiencyPercent   float64
	Efficiency          string
	PauseCount          int
	Categories          []CategoryBreakdown
	ActualQuantity      int64
	TotalLostUnits      int64
	TheoreticalQuantity int64
}

// LineStats aggregates the completed sessions of one line.
type LineStats struct {
	LineID                  string
	HasData                 bool
	SessionCount            int
	TotalProductionSeconds  int64
	TotalPauseSeconds       int64
	AvgProductionSeconds    float64
	AvgPauseSeconds         float64
	TotalProductionDuration string
	TotalPauseDuration      string
	TotalQuantity           int64
	AvgQuantity             float64
	EfficiencyPercent       float64
	Efficiency              string
	PauseCount              int
	TotalLostUnits          int64
	Categories              []CategoryStat
	RecentSessions          []SessionView
}

// LinePeriod is one line's share of a period rollup.
type LinePeriod struct {
	LineID             string
	SessionCount       int
	ProductionSeconds  int64
	PauseSeconds       int64
	ProductionDuration string
	PauseDuration      string
	Quantity           int64
	PauseCount         int
	LostUnits          int64
	EfficiencyPercent  float64
	Efficiency         string
	Categories         []CategoryStat
}

// PeriodStats rolls every session touching a period up per line and globally.
type PeriodStats struct {
	Lines                  []LinePeriod
	TotalSessions          int
	TotalProductionSeconds int64
	TotalPauseSeconds      int64
	TotalQuantity          int64
	TotalPauses            int
	TotalLostUnits         int64
	EfficiencyPercent      float64
	Efficiency             string
	Categories             []CategoryStat
}

// OpenPause summarises the pause currently holding a session.
type OpenPause struct {
	PauseID         string
	Category        pause.Category
	CategoryLabel   string
	SubCategory     string
	StartTime       time.Time
	DurationSeconds int64
	Duration        string
	References      []string
}

// ActiveSession is the live view of an active or paused session.
type ActiveSession struct {
	Session           SessionView
	ElapsedSeconds    int64
	ProductionSeconds int64
	PauseSeconds      int64
	Elapsed           string
	Production        string
	LiveQuantity      int64
	EfficiencyPercent float64
	CurrentPause      *OpenPause
}

// Line state values used by the dashboard.
const (
	LineStateActive   = "active"
	LineStatePaused   = "paused"
	LineStateInactive = "inactive"
)

// LineInfo is a catalog line as seen by the dashboard.
type LineInfo struct {
	ID   string
	Name string
}

// DashboardLine is one line row of the admin dashboard.
type DashboardLine struct {
	LineID string
	Name   string
	State  string
	Active *ActiveSession
	Stats  *LineStats
}

// DashboardTotals are counts over the requested range.
type DashboardTotals struct {
	Sessions  int
	Pauses    int
	LostUnits int64
}

// AdminDashboard combines catalog, live sessions and per-line rollups.
type AdminDashboard struct {
	Lines          []DashboardLine
	TotalLines     int
	ActiveLines    int
	PausedLines    int
	InactiveLines  int
	TotalSessions  int
	TotalPauses    int
	TotalLostUnits int64
}

// Page is one page of a paginated listing.
type Page[T any] struct {
	Items      []T
	Total      int
	Page       int
	Limit      int
	TotalPages int
}
