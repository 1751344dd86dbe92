// Package sqlite_test contains integration tests for SQLite repositories.
//
// # Schema Protection
//
// This file is the SINGLE POINT where the database schema is loaded for tests.
// All test setup functions use db.GetSchemaSQL() so tests run against the
// authoritative schema. Do not hardcode CREATE TABLE statements in test files;
// use setupTestDB() and the seed* helpers instead.
package sqlite_test

import (
	"database/sql"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/example/prodtrack/internal/db"
)

// shiftStart anchors every timestamp used by the repository tests.
var shiftStart = time.Date(2026, 3, 2, 6, 0, 0, 0, time.UTC)

// at returns shiftStart shifted by the given number of seconds.
func at(seconds int) time.Time {
	return shiftStart.Add(time.Duration(seconds) * time.Second)
}

func atPtr(seconds int) *time.Time {
	t := at(seconds)
	return &t
}

// setupTestDB creates an in-memory database with the authoritative schema.
// A single connection keeps every query on the same in-memory database.
func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	testDB, err := sql.Open("sqlite3", ":memory:?_foreign_keys=on")
	if err != nil {
		t.Fatalf("failed to open test db: %v", err)
	}
	testDB.SetMaxOpenConns(1)

	if _, err := testDB.Exec(db.GetSchemaSQL()); err != nil {
		t.Fatalf("failed to create schema: %v", err)
	}

	t.Cleanup(func() {
		testDB.Close()
	})

	return testDB
}

// seedSession inserts a session row and returns its ID. Closed statuses get an
// end time one hour after start.
func seedSession(t *testing.T, db *sql.DB, id, lineID, status string, startOffset int) string {
	t.Helper()
	var end any
	if status == "completed" || status == "cancelled" {
		end = at(startOffset + 3600)
	}
	_, err := db.Exec(
		`INSERT INTO production_sessions (id, line_id, status, start_time, end_time, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		id, lineID, status, at(startOffset), end, at(startOffset), at(startOffset),
	)
	if err != nil {
		t.Fatalf("failed to seed session: %v", err)
	}
	return id
}

// seedPause inserts a settled pause and returns its ID.
func seedPause(t *testing.T, db *sql.DB, id, sessionID, category string, startOffset, duration, lost int) string {
	t.Helper()
	_, err := db.Exec(
		`INSERT INTO pauses (id, session_id, category, start_time, end_time, duration_seconds, lost_units, completed, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, 1, ?, ?)`,
		id, sessionID, category, at(startOffset), at(startOffset+duration), duration, lost, at(startOffset), at(startOffset),
	)
	if err != nil {
		t.Fatalf("failed to seed pause: %v", err)
	}
	return id
}
