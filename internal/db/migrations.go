package db

import (
	"database/sql"
	"fmt"
	"log"
)

// Migration represents a database migration
type Migration struct {
	Version int
	Name    string
	Up      func(*sql.Tx) error
}

// migrations is the list of all migrations in order
var migrations = []Migration{
	{
		Version: 1,
		Name:    "create_sessions_and_pauses",
		Up:      migrationV1,
	},
	{
		Version: 2,
		Name:    "add_session_events_table",
		Up:      migrationV2,
	},
	{
		Version: 3,
		Name:    "enforce_single_open_session_and_pause",
		Up:      migrationV3,
	},
	{
		Version: 4,
		Name:    "add_actor_attribution_columns",
		Up:      migrationV4,
	},
}

// LatestVersion is the schema version SchemaSQL corresponds to.
func LatestVersion() int {
	return migrations[len(migrations)-1].Version
}

func ensureVersionTable(database *sql.DB) error {
	_, err := database.Exec(`
		CREATE TABLE IF NOT EXISTS schema_version (
			version INTEGER PRIMARY KEY,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create schema_version table: %w", err)
	}
	return nil
}

// CurrentVersion returns the highest applied migration version.
func CurrentVersion(database *sql.DB) (int, error) {
	if err := ensureVersionTable(database); err != nil {
		return 0, err
	}
	var currentVersion int
	err := database.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_version").Scan(&currentVersion)
	if err != nil {
		return 0, fmt.Errorf("failed to get current schema version: %w", err)
	}
	return currentVersion, nil
}

// RunMigrations executes all pending migrations, each in its own transaction
func RunMigrations(database *sql.DB) error {
	currentVersion, err := CurrentVersion(database)
	if err != nil {
		return err
	}

	for _, migration := range migrations {
		if migration.Version <= currentVersion {
			continue
		}

		log.Printf("running migration %d: %s", migration.Version, migration.Name)

		tx, err := database.Begin()
		if err != nil {
			return fmt.Errorf("failed to begin transaction for migration %d: %w", migration.Version, err)
		}

		if err := migration.Up(tx); err != nil {
			tx.Rollback()
			return fmt.Errorf("migration %d failed: %w", migration.Version, err)
		}

		if _, err := tx.Exec("INSERT INTO schema_version (version) VALUES (?)", migration.Version); err != nil {
			tx.Rollback()
			return fmt.Errorf("failed to record migration %d: %w", migration.Version, err)
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("failed to commit migration %d: %w", migration.Version, err)
		}

		log.Printf("migration %d completed", migration.Version)
	}

	return nil
}

// migrationV1 creates the session and pause tables
func migrationV1(tx *sql.Tx) error {
	_, err := tx.Exec(`
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
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			updated_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			CHECK ((end_time IS NULL) = (status IN ('active', 'paused')))
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create production_sessions table: %w", err)
	}

	_, err = tx.Exec(`
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
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			updated_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			FOREIGN KEY (session_id) REFERENCES production_sessions(id) ON DELETE CASCADE
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create pauses table: %w", err)
	}

	for _, stmt := range []string{
		"CREATE INDEX IF NOT EXISTS idx_sessions_line_start ON production_sessions(line_id, start_time)",
		"CREATE INDEX IF NOT EXISTS idx_sessions_status ON production_sessions(status)",
		"CREATE INDEX IF NOT EXISTS idx_sessions_start ON production_sessions(start_time)",
		"CREATE INDEX IF NOT EXISTS idx_pauses_session_start ON pauses(session_id, start_time)",
		"CREATE INDEX IF NOT EXISTS idx_pauses_start ON pauses(start_time)",
		"CREATE INDEX IF NOT EXISTS idx_pauses_category ON pauses(category)",
	} {
		if _, err := tx.Exec(stmt); err != nil {
			return fmt.Errorf("failed to create index: %w", err)
		}
	}

	return nil
}

// migrationV2 adds the session audit trail
func migrationV2(tx *sql.Tx) error {
	_, err := tx.Exec(`
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
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create session_events table: %w", err)
	}

	_, err = tx.Exec("CREATE INDEX IF NOT EXISTS idx_session_events_session ON session_events(session_id, occurred_at)")
	if err != nil {
		return fmt.Errorf("failed to create session_events index: %w", err)
	}

	return nil
}

// migrationV3 turns the open-session and open-pause rules into partial unique
// indexes. Older databases may hold duplicates, which must be resolved first.
func migrationV3(tx *sql.Tx) error {
	var duplicates int
	err := tx.QueryRow(`
		SELECT COUNT(*) FROM (
			SELECT line_id FROM production_sessions
			WHERE status IN ('active', 'paused')
			GROUP BY line_id HAVING COUNT(*) > 1
		)
	`).Scan(&duplicates)
	if err != nil {
		return fmt.Errorf("failed to check open sessions: %w", err)
	}
	if duplicates > 0 {
		return fmt.Errorf("%d lines have more than one open session; cancel the extras before migrating", duplicates)
	}

	_, err = tx.Exec("CREATE UNIQUE INDEX IF NOT EXISTS idx_sessions_open_line ON production_sessions(line_id) WHERE status IN ('active', 'paused')")
	if err != nil {
		return fmt.Errorf("failed to create open session index: %w", err)
	}

	_, err = tx.Exec("CREATE UNIQUE INDEX IF NOT EXISTS idx_pauses_open_session ON pauses(session_id) WHERE end_time IS NULL")
	if err != nil {
		return fmt.Errorf("failed to create open pause index: %w", err)
	}

	return nil
}

// migrationV4 records who started a session and who declared a pause
func migrationV4(tx *sql.Tx) error {
	for _, stmt := range []string{
		"ALTER TABLE production_sessions ADD COLUMN started_by TEXT",
		"ALTER TABLE production_sessions ADD COLUMN started_by_name TEXT",
		"ALTER TABLE pauses ADD COLUMN recorded_by TEXT",
		"ALTER TABLE pauses ADD COLUMN recorded_by_name TEXT",
	} {
		if _, err := tx.Exec(stmt); err != nil {
			return fmt.Errorf("failed to add attribution column: %w", err)
		}
	}
	return nil
}
