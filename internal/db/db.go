package db

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"
)

// DefaultBusyTimeoutMS is how long a connection waits on a locked database.
const DefaultBusyTimeoutMS = 5000

var db *sql.DB

var (
	dbPath        string
	busyTimeoutMS = DefaultBusyTimeoutMS
)

// Configure sets the database file and busy timeout used by GetDB.
// It must be called before the first GetDB call to take effect.
func Configure(path string, busyTimeout int) {
	dbPath = path
	if busyTimeout > 0 {
		busyTimeoutMS = busyTimeout
	}
}

// GetDB returns the database connection, initializing if needed
func GetDB() (*sql.DB, error) {
	if db != nil {
		return db, nil
	}

	path, err := GetDBPath()
	if err != nil {
		return nil, err
	}

	// Ensure the parent directory exists
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	conn, err := Open(path, busyTimeoutMS)
	if err != nil {
		return nil, err
	}

	// Create or migrate the schema on first connection
	if err := InitSchema(conn); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	db = conn
	return db, nil
}

// Open opens a sqlite database with foreign keys enforced, a busy timeout and
// write transactions that take the reserved lock at BEGIN. The schema is not
// touched.
func Open(path string, busyTimeout int) (*sql.DB, error) {
	if busyTimeout <= 0 {
		busyTimeout = DefaultBusyTimeoutMS
	}
	dsn := fmt.Sprintf("file:%s?_foreign_keys=on&_busy_timeout=%d&_txlock=immediate", path, busyTimeout)

	conn, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	return conn, nil
}

// Close closes the database connection
func Close() error {
	if db != nil {
		err := db.Close()
		db = nil
		return err
	}
	return nil
}

// GetDBPath returns the path to the database file
func GetDBPath() (string, error) {
	if dbPath != "" {
		return dbPath, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(home, ".prodtrack", "prodtrack.db"), nil
}
