package db

import (
	"database/sql"
	"fmt"
	"time"
)

// SeedFixtures populates the database with a small demo shift ending at now:
// two completed sessions with settled pauses on L01 and L02, and a paused
// session on L03. Session and pause IDs are fixed so seeding twice fails.
func SeedFixtures(database *sql.DB, now time.Time) error {
	now = now.UTC().Truncate(time.Second)
	at := func(minutesAgo int) time.Time { return now.Add(-time.Duration(minutesAgo) * time.Minute) }
	qty := func(n int64) *int64 { return &n }

	sessions := []struct {
		id, line, ref, status string
		start                 time.Time
		end                   *time.Time
		production, paused    int64
		quantity              *int64
	}{
		{"SEED-S1", "L01", "REF-A", "completed", at(480), timePtr(at(240)), 12600, 1800, qty(420)},
		{"SEED-S2", "L02", "REF-B", "completed", at(470), timePtr(at(230)), 13500, 900, qty(225)},
		{"SEED-S3", "L03", "", "paused", at(120), nil, 0, 600, nil},
	}
	for _, s := range sessions {
		var end sql.NullTime
		if s.end != nil {
			end = sql.NullTime{Time: *s.end, Valid: true}
		}
		var quantity sql.NullInt64
		if s.quantity != nil {
			quantity = sql.NullInt64{Int64: *s.quantity, Valid: true}
		}
		if _, err := database.Exec(
			`INSERT INTO production_sessions (id, line_id, product_ref, status, start_time, end_time,
				accumulated_production_seconds, accumulated_pause_seconds, final_quantity, started_by, started_by_name, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, 'seed', 'Seed', ?, ?)`,
			s.id, s.line, s.ref, s.status, s.start, end, s.production, s.paused, quantity, now, now,
		); err != nil {
			return fmt.Errorf("seed sessions: %w", err)
		}
	}

	pauses := []struct {
		id, session, category, refsColumn, refs string
		start                                   time.Time
		end                                     *time.Time
		duration, lost                          int64
	}{
		{"SEED-P1", "SEED-S1", "raw_material", "raw_material_refs", `["RM-100"]`, at(400), timePtr(at(370)), 1800, 60},
		{"SEED-P2", "SEED-S2", "maintenance", "phase_refs", `["PH-2"]`, at(300), timePtr(at(285)), 900, 15},
		{"SEED-P3", "SEED-S3", "method", "", "", at(90), timePtr(at(80)), 600, 0},
		{"SEED-P4", "SEED-S3", "quality", "product_refs", `["FP-7"]`, at(20), nil, 0, 0},
	}
	for _, p := range pauses {
		var end sql.NullTime
		if p.end != nil {
			end = sql.NullTime{Time: *p.end, Valid: true}
		}
		query := `INSERT INTO pauses (id, session_id, category, start_time, end_time, duration_seconds, lost_units, completed,
			recorded_by, recorded_by_name, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?, ?, ?, 'seed', 'Seed', ?, ?)`
		if _, err := database.Exec(query, p.id, p.session, p.category, p.start, end, p.duration, p.lost, p.end != nil, now, now); err != nil {
			return fmt.Errorf("seed pauses: %w", err)
		}
		if p.refsColumn != "" {
			if _, err := database.Exec("UPDATE pauses SET "+p.refsColumn+" = ? WHERE id = ?", p.refs, p.id); err != nil {
				return fmt.Errorf("seed pause references: %w", err)
			}
		}
	}

	return nil
}

func timePtr(t time.Time) *time.Time { return &t }
