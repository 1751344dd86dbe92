package sqlite_test

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/example/prodtrack/internal/adapters/sqlite"
	"github.com/example/prodtrack/internal/app"
	"github.com/example/prodtrack/internal/apperr"
	"github.com/example/prodtrack/internal/ctxutil"
	"github.com/example/prodtrack/internal/db"
	"github.com/example/prodtrack/internal/ports/primary"
	"github.com/example/prodtrack/internal/ports/secondary"
)

// Integration tests drive the application services against real SQLite
// repositories and check the storage constraints under concurrency.

type staticCatalog struct{}

func (staticCatalog) LineExists(_ context.Context, lineID string) (bool, error) {
	return lineID == "L04" || lineID == "L05", nil
}

func (staticCatalog) ListLines(context.Context) ([]*secondary.LineRecord, error) {
	return []*secondary.LineRecord{{ID: "L04", Name: "Line 4"}, {ID: "L05", Name: "Line 5"}}, nil
}

type staticRates struct{}

func (staticRates) LookupRate(_ context.Context, lineID, reference string) (float64, bool, error) {
	if lineID == "L04" && reference == "REF1" {
		return 5, true, nil
	}
	return 0, false, nil
}

type staticIdentity struct{}

func (staticIdentity) ResolveUser(_ context.Context, actorID string) (*secondary.UserIdentity, error) {
	return &secondary.UserIdentity{ID: actorID, Name: "Operator " + actorID}, nil
}

type stepClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *stepClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *stepClock) Advance(seconds int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(time.Duration(seconds) * time.Second)
}

// setupIntegrationDB opens a file-backed database so concurrent connections
// contend for the real write lock.
func setupIntegrationDB(t *testing.T) *sql.DB {
	t.Helper()
	conn, err := db.Open(filepath.Join(t.TempDir(), "prodtrack.db"), db.DefaultBusyTimeoutMS)
	if err != nil {
		t.Fatalf("failed to open db: %v", err)
	}
	if err := db.InitSchema(conn); err != nil {
		t.Fatalf("failed to init schema: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func newServices(conn *sql.DB, clock *stepClock) (*app.SessionServiceImpl, *app.StatsServiceImpl) {
	sessions := sqlite.NewSessionRepository(conn)
	pauses := sqlite.NewPauseRepository(conn)
	sessionService := app.NewSessionService(
		sqlite.NewTransactor(conn, nil),
		sessions, pauses, sqlite.NewEventRepository(conn),
		staticCatalog{}, staticRates{}, staticIdentity{}, nil,
	).WithClock(clock.Now)
	statsService := app.NewStatsService(sessions, pauses, staticCatalog{}, staticRates{}, 0).WithClock(clock.Now)
	return sessionService, statsService
}

func TestIntegration_SessionLifecycle(t *testing.T) {
	conn := setupIntegrationDB(t)
	clock := &stepClock{now: shiftStart}
	sessions, stats := newServices(conn, clock)
	ctx := ctxutil.WithActorID(context.Background(), "op-1")

	started, err := sessions.StartSession(ctx, primary.StartSessionRequest{LineID: "L04", ProductRef: "REF1"})
	if err != nil {
		t.Fatalf("StartSession failed: %v", err)
	}

	clock.Advance(10)
	p, err := sessions.PauseSession(ctx, primary.PauseSessionRequest{
		SessionID:  started.ID,
		Category:   "raw_material",
		Reason:     "RM-100 missing",
		References: []string{"RM-100"},
	})
	if err != nil {
		t.Fatalf("PauseSession failed: %v", err)
	}

	clock.Advance(60)
	resumed, err := sessions.ResumeSession(ctx, primary.ResumeSessionRequest{SessionID: started.ID, ActionTaken: "restocked"})
	if err != nil {
		t.Fatalf("ResumeSession failed: %v", err)
	}
	if resumed.ID != p.ID || resumed.DurationSeconds != 60 || resumed.LostUnits != 12 {
		t.Errorf("unexpected settled pause: %+v", resumed)
	}

	clock.Advance(60)
	ended, err := sessions.EndSession(ctx, primary.EndSessionRequest{SessionID: started.ID})
	if err != nil {
		t.Fatalf("EndSession failed: %v", err)
	}
	if ended.Status != "completed" || ended.ProductionSeconds != 70 || ended.PauseSeconds != 60 {
		t.Errorf("unexpected ended session: %+v", ended)
	}
	if ended.FinalQuantity == nil || *ended.FinalQuantity != 14 {
		t.Errorf("FinalQuantity = %v, want 14", ended.FinalQuantity)
	}

	sessionStats, err := stats.GetSessionStats(ctx, started.ID)
	if err != nil {
		t.Fatalf("GetSessionStats failed: %v", err)
	}
	if sessionStats.PauseSeconds != 60 || sessionStats.TotalLostUnits != 12 || sessionStats.ActualQuantity != 14 {
		t.Errorf("unexpected session stats: %+v", sessionStats)
	}

	events, err := sessions.ListSessionEvents(ctx, started.ID)
	if err != nil {
		t.Fatalf("ListSessionEvents failed: %v", err)
	}
	want := []string{app.EventSessionStarted, app.EventSessionPaused, app.EventSessionResumed, app.EventSessionCompleted}
	if len(events) != len(want) {
		t.Fatalf("expected %d events, got %d", len(want), len(events))
	}
	for i, action := range want {
		if events[i].Action != action {
			t.Errorf("event %d = %s, want %s", i, events[i].Action, action)
		}
	}

	// The line is free again
	if _, err := sessions.StartSession(ctx, primary.StartSessionRequest{LineID: "L04"}); err != nil {
		t.Fatalf("restart failed: %v", err)
	}
}

func TestIntegration_ConcurrentStartsOnOneLine(t *testing.T) {
	conn := setupIntegrationDB(t)
	clock := &stepClock{now: shiftStart}
	sessions, _ := newServices(conn, clock)

	const workers = 8
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
		conflicts int
		others    []error
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := sessions.StartSession(context.Background(), primary.StartSessionRequest{LineID: "L04"})
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				successes++
			case errors.Is(err, apperr.ErrConflict):
				conflicts++
			default:
				others = append(others, err)
			}
		}()
	}
	wg.Wait()

	if successes != 1 {
		t.Errorf("successes = %d, want exactly 1", successes)
	}
	if conflicts != workers-1 {
		t.Errorf("conflicts = %d, want %d (other errors: %v)", conflicts, workers-1, others)
	}

	var open int
	if err := conn.QueryRow("SELECT COUNT(*) FROM production_sessions WHERE line_id = 'L04' AND status IN ('active', 'paused')").Scan(&open); err != nil {
		t.Fatal(err)
	}
	if open != 1 {
		t.Errorf("open sessions on L04 = %d, want 1", open)
	}
}

func TestIntegration_ConcurrentPausesOnOneSession(t *testing.T) {
	conn := setupIntegrationDB(t)
	clock := &stepClock{now: shiftStart}
	sessions, _ := newServices(conn, clock)

	started, err := sessions.StartSession(context.Background(), primary.StartSessionRequest{LineID: "L05"})
	if err != nil {
		t.Fatalf("StartSession failed: %v", err)
	}
	clock.Advance(5)

	const workers = 6
	var wg sync.WaitGroup
	results := make(chan error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := sessions.PauseSession(context.Background(), primary.PauseSessionRequest{
				SessionID: started.ID,
				Category:  "method",
			})
			results <- err
		}()
	}
	wg.Wait()
	close(results)

	successes := 0
	for err := range results {
		if err == nil {
			successes++
			continue
		}
		if !errors.Is(err, apperr.ErrConflict) && !errors.Is(err, apperr.ErrNotFound) {
			t.Errorf("unexpected error kind: %v", err)
		}
	}
	if successes != 1 {
		t.Errorf("successes = %d, want exactly 1", successes)
	}

	var open int
	if err := conn.QueryRow("SELECT COUNT(*) FROM pauses WHERE session_id = ? AND end_time IS NULL", started.ID).Scan(&open); err != nil {
		t.Fatal(err)
	}
	if open != 1 {
		t.Errorf("open pauses = %d, want 1", open)
	}
}

func TestIntegration_TransactorRollsBack(t *testing.T) {
	conn := setupIntegrationDB(t)
	tx := sqlite.NewTransactor(conn, nil)
	repo := sqlite.NewSessionRepository(conn)
	ctx := context.Background()

	boom := errors.New("boom")
	err := tx.WithinTx(ctx, func(ctx context.Context) error {
		if err := repo.Create(ctx, newSession("S1", "L04", 0)); err != nil {
			return err
		}
		// Nested units join the outer transaction
		return tx.WithinTx(ctx, func(ctx context.Context) error {
			if err := repo.Create(ctx, newSession("S2", "L05", 0)); err != nil {
				return err
			}
			return boom
		})
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}

	count, err := repo.Count(ctx, secondary.SessionFilters{})
	if err != nil {
		t.Fatalf("Count failed: %v", err)
	}
	if count != 0 {
		t.Errorf("expected rollback to leave no sessions, got %d", count)
	}
}
