package db

import "database/sql"

// SchemaSQL is the complete modern schema for fresh installs.
// This schema reflects the current state after all migrations.
//
// # Schema Drift Protection
//
// This is the SINGLE SOURCE OF TRUTH for the database schema. Repository tests
// build their in-memory databases from GetSchemaSQL() instead of hardcoding
// CREATE TABLE statements, so a column referenced by repository code but
// missing here fails with "no such column" at test time.
//
// When adding new columns or tables:
//  1. Add a migration in migrations.go
//  2. Update SchemaSQL here
//  3. Run the sqlite adapter tests to verify alignment
//
// Timestamps are stored in UTC. Reference lists are JSON arrays of strings.
const SchemaSQL = `
-- Production sessions (one run of a line)
CREATE TABLE IF NOT EXISTS production_sessions (
	id TEXT PRIMARY KEY,
	line_id TEXT NOT NULL,
	product_ref TEXT,
	notes TEXT,
	status TEXT NOT NULL CHECK(status IN ('active', 'paused', 'completed', 'cancelled')) DEFAULT 'active',
	start_time DATETIME NOT NULL,
	end_time DATETIME,
	accumulated_production_seconds INTEGER NOT NULL DEFAULT 0,
	accumulated_pause_seconds INTEGER NOT NULL DEFAULT 0,
	final_quantity INTEGER,
	quality_status TEXT,
	started_by TEXT,
	started_by_name TEXT,
	created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
	updated_at DATETIME DEFAULT CURRENT_TIMESTAMP,
	CHECK ((end_time IS NULL) = (status IN ('active', 'paused')))
);

-- At most one active or paused session per line
CREATE UNIQUE INDEX IF NOT EXISTS idx_sessions_open_line ON production_sessions(line_id) WHERE status IN ('active', 'paused');
CREATE INDEX IF NOT EXISTS idx_sessions_line_start ON production_sessions(line_id, start_time);
CREATE INDEX IF NOT EXISTS idx_sessions_status ON production_sessions(status);
CREATE INDEX IF NOT EXISTS idx_sessions_start ON production_sessions(start_time);

-- Pause ledger
CREATE TABLE IF NOT EXISTS pauses (
	id TEXT PRIMARY KEY,
	session_id TEXT NOT NULL,
	start_time DATETIME NOT NULL,
	end_time DATETIME,
	category TEXT NOT NULL,
	sub_category TEXT,
	reason TEXT,
	action_taken TEXT,
	duration_seconds INTEGER NOT NULL DEFAULT 0,
	completed INTEGER NOT NULL DEFAULT 0,
	lost_units INTEGER NOT NULL DEFAULT 0,
	raw_material_refs TEXT,
	phase_refs TEXT,
	product_refs TEXT,
	recorded_by TEXT,
	recorded_by_name TEXT,
	created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
	updated_at DATETIME DEFAULT CURRENT_TIMESTAMP,
	FOREIGN KEY (session_id) REFERENCES production_sessions(id) ON DELETE CASCADE
);

-- At most one open pause per session
CREATE UNIQUE INDEX IF NOT EXISTS idx_pauses_open_session ON pauses(session_id) WHERE end_time IS NULL;
CREATE INDEX IF NOT EXISTS idx_pauses_session_start ON pauses(session_id, start_time);
CREATE INDEX IF NOT EXISTS idx_pauses_start ON pauses(start_time);
CREATE INDEX IF NOT EXISTS idx_pauses_category ON pauses(category);

-- Session audit trail
CREATE TABLE IF NOT EXISTS session_events (
	id TEXT PRIMARY KEY,
	session_id TEXT NOT NULL,
	pause_id TEXT,
	action TEXT NOT NULL,
	actor_id TEXT,
	actor_name TEXT,
	detail TEXT,
	occurred_at DATETIME NOT NULL,
	FOREIGN KEY (session_id) REFERENCES production_sessions(id) ON DELETE CASCADE
);

CREATE INDEX IF NOT EXISTS idx_session_events_session ON session_events(session_id, occurred_at);
`

// InitSchema creates the schema on a fresh database or applies pending
// migrations to an existing one.
func InitSchema(database *sql.DB) error {
	// Check if schema_version table exists to determine if this is a fresh install
	var tableCount int
	err := database.QueryRow("SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name='schema_version'").Scan(&tableCount)
	if err != nil {
		return err
	}
	if tableCount > 0 {
		return RunMigrations(database)
	}

	// A database created before versioning already holds the session table
	var legacyCount int
	err = database.QueryRow("SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name='production_sessions'").Scan(&legacyCount)
	if err != nil {
		return err
	}
	if legacyCount > 0 {
		return RunMigrations(database)
	}

	// Completely fresh install - create modern schema directly and mark every
	// migration as applied
	if _, err := database.Exec(SchemaSQL); err != nil {
		return err
	}
	if err := ensureVersionTable(database); err != nil {
		return err
	}
	for _, m := range migrations {
		if _, err := database.Exec("INSERT INTO schema_version (version) VALUES (?)", m.Version); err != nil {
			return err
		}
	}
	return nil
}

// GetSchemaSQL returns the authoritative schema SQL for use by tests.
// Tests should use this instead of hardcoding their own schema to prevent drift.
func GetSchemaSQL() string {
	return SchemaSQL
}
