package primary

import (
	"context"
	"time"

	"github.com/example/prodtrack/internal/core/stats"
)

// StatsService defines the primary port for read-only production queries.
// None of its operations mutate state; empty inputs yield zero-valued results.
type StatsService interface {
	// GetSessionStats returns durations, efficiency and the pause breakdown of a session.
	GetSessionStats(ctx context.Context, sessionID string) (*SessionStats, error)

	// GetLineStats aggregates the completed sessions of a line.
	GetLineStats(ctx context.Context, req LineStatsRequest) (*LineStats, error)

	// GetActiveSessions reports every active or paused session with live figures.
	GetActiveSessions(ctx context.Context) ([]*ActiveSession, error)

	// GetSessionHistory lists sessions, most recent first.
	GetSessionHistory(ctx context.Context, req SessionHistoryRequest) (*SessionPage, error)

	// GetAdminDashboard combines the line catalog, live sessions and line rollups.
	GetAdminDashboard(ctx context.Context, req DashboardRequest) (*AdminDashboard, error)

	// GetPeriodStats rolls up every session touching the range, per line.
	GetPeriodStats(ctx context.Context, rng DateRange) (*PeriodStats, error)

	// GetPauseHistory lists pauses, most recent first.
	GetPauseHistory(ctx context.Context, req PauseHistoryRequest) (*PausePage, error)

	// GetCategoryStats returns one row per cause category.
	GetCategoryStats(ctx context.Context, rng DateRange) ([]*CategoryStat, error)

	// ListLines returns the line catalog.
	ListLines(ctx context.Context) ([]*Line, error)
}

// DateRange bounds a query. Nil ends are open.
type DateRange struct {
	From *time.Time
	To   *time.Time
}

// LineStatsRequest contains parameters for a line rollup.
type LineStatsRequest struct {
	LineID string
	Range  DateRange
}

// SessionHistoryRequest contains parameters for listing sessions.
type SessionHistoryRequest struct {
	LineID string
	Status string
	Range  DateRange
	Page   int
	Limit  int
}

// DashboardRequest contains parameters for the admin dashboard.
// Status filters lines by state: active, paused or inactive.
type DashboardRequest struct {
	Range  DateRange
	LineID string
	Status string
}

// PauseHistoryRequest contains parameters for listing pauses.
type PauseHistoryRequest struct {
	Range    DateRange
	LineID   string
	Category string
	Page     int
	Limit    int
}

// Line is a catalog line.
type Line struct {
	ID         string
	Name       string
	References []string
}

// Result views are produced by the aggregation engine.
type (
	SessionStats   = stats.SessionStats
	LineStats      = stats.LineStats
	ActiveSession  = stats.ActiveSession
	AdminDashboard = stats.AdminDashboard
	PeriodStats    = stats.PeriodStats
	CategoryStat   = stats.CategoryStat
	SessionView    = stats.SessionView
	PauseView      = stats.PauseView
	SessionPage    = stats.Page[stats.SessionView]
	PausePage      = stats.Page[stats.PauseView]
)
