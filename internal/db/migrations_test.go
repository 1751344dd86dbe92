package db

import (
	"database/sql"
	"reflect"
	"sort"
	"testing"
)

func openMemory(t *testing.T) *sql.DB {
	t.Helper()
	conn, err := sql.Open("sqlite3", ":memory:?_foreign_keys=on")
	if err != nil {
		t.Fatalf("failed to open test db: %v", err)
	}
	conn.SetMaxOpenConns(1)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func columns(t *testing.T, conn *sql.DB, table string) []string {
	t.Helper()
	rows, err := conn.Query("SELECT name FROM pragma_table_info(?)", table)
	if err != nil {
		t.Fatalf("table_info(%s): %v", table, err)
	}
	defer rows.Close()
	var cols []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			t.Fatalf("scan: %v", err)
		}
		cols = append(cols, name)
	}
	sort.Strings(cols)
	return cols
}

func indexes(t *testing.T, conn *sql.DB) []string {
	t.Helper()
	rows, err := conn.Query("SELECT name FROM sqlite_master WHERE type='index' AND name LIKE 'idx_%' ORDER BY name")
	if err != nil {
		t.Fatalf("list indexes: %v", err)
	}
	defer rows.Close()
	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			t.Fatalf("scan: %v", err)
		}
		names = append(names, name)
	}
	return names
}

func TestInitSchema_FreshInstallMarksAllVersions(t *testing.T) {
	conn := openMemory(t)

	if err := InitSchema(conn); err != nil {
		t.Fatalf("InitSchema: %v", err)
	}

	v, err := CurrentVersion(conn)
	if err != nil {
		t.Fatalf("CurrentVersion: %v", err)
	}
	if v != LatestVersion() {
		t.Errorf("version = %d, want %d", v, LatestVersion())
	}

	// Second run is a no-op
	if err := InitSchema(conn); err != nil {
		t.Fatalf("second InitSchema: %v", err)
	}
}

func TestMigrations_MatchSchemaSQL(t *testing.T) {
	fresh := openMemory(t)
	if _, err := fresh.Exec(GetSchemaSQL()); err != nil {
		t.Fatalf("apply schema: %v", err)
	}

	migrated := openMemory(t)
	if err := RunMigrations(migrated); err != nil {
		t.Fatalf("RunMigrations: %v", err)
	}

	for _, table := range []string{"production_sessions", "pauses", "session_events"} {
		if got, want := columns(t, migrated, table), columns(t, fresh, table); !reflect.DeepEqual(got, want) {
			t.Errorf("%s columns drifted:\nmigrated %v\nschema   %v", table, got, want)
		}
	}
	if got, want := indexes(t, migrated), indexes(t, fresh); !reflect.DeepEqual(got, want) {
		t.Errorf("indexes drifted:\nmigrated %v\nschema   %v", got, want)
	}
}

func TestMigrationV3_RejectsDuplicateOpenSessions(t *testing.T) {
	conn := openMemory(t)
	if err := ensureVersionTable(conn); err != nil {
		t.Fatal(err)
	}
	tx, err := conn.Begin()
	if err != nil {
		t.Fatal(err)
	}
	if err := migrationV1(tx); err != nil {
		t.Fatalf("migrationV1: %v", err)
	}
	if err := tx.Commit(); err != nil {
		t.Fatal(err)
	}
	if _, err := conn.Exec("INSERT INTO schema_version (version) VALUES (1), (2)"); err != nil {
		t.Fatal(err)
	}
	for _, id := range []string{"S1", "S2"} {
		if _, err := conn.Exec(
			"INSERT INTO production_sessions (id, line_id, status, start_time) VALUES (?, 'L01', 'active', '2026-03-02 06:00:00')", id,
		); err != nil {
			t.Fatalf("seed %s: %v", id, err)
		}
	}

	if err := RunMigrations(conn); err == nil {
		t.Fatal("expected migration 3 to refuse duplicate open sessions")
	}
	v, _ := CurrentVersion(conn)
	if v != 2 {
		t.Errorf("version = %d, want 2 after failed migration", v)
	}
}
