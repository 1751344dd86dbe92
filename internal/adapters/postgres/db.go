package postgres

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/example/prodtrack/internal/apperr"
	"github.com/example/prodtrack/internal/ports/secondary"
)

// PostgreSQL error codes the repositories react to.
const (
	PgErrForeignKeyViolation = "23503" // foreign_key_violation
	PgErrUniqueViolation     = "23505" // unique_violation
	PgErrCheckViolation      = "23514" // check_violation
	PgErrSerializationFailed = "40001" // serialization_failure
	PgErrDeadlockDetected    = "40P01" // deadlock_detected
)

// connectAttempts and connectDelay bound the startup wait for the server.
const (
	connectAttempts = 10
	connectDelay    = 2 * time.Second
)

// Connect opens a gorm connection, retrying while the server comes up.
func Connect(dsn string, l *log.Logger) (*gorm.DB, error) {
	if l == nil {
		l = log.Default()
	}
	cfg := &gorm.Config{
		Logger: logger.New(l, logger.Config{
			SlowThreshold:             500 * time.Millisecond,
			LogLevel:                  logger.Warn,
			IgnoreRecordNotFoundError: true,
		}),
		NowFunc: func() time.Time { return time.Now().UTC() },
	}

	var lastErr error
	for i := 0; i < connectAttempts; i++ {
		conn, err := gorm.Open(postgres.Open(dsn), cfg)
		if err == nil {
			return conn, nil
		}
		lastErr = err
		l.Printf("postgres: connection attempt %d failed: %v", i+1, err)
		time.Sleep(connectDelay)
	}
	return nil, fmt.Errorf("failed to connect to postgres: %w", lastErr)
}

// partialIndexes enforce the single-open invariants gorm tags cannot express.
var partialIndexes = []string{
	`CREATE UNIQUE INDEX IF NOT EXISTS idx_sessions_open_line ON production_sessions(line_id) WHERE status IN ('active', 'paused')`,
	`CREATE UNIQUE INDEX IF NOT EXISTS idx_pauses_open_session ON pauses(session_id) WHERE end_time IS NULL`,
}

// Migrate creates or updates the tables and the partial unique indexes.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(&Session{}, &Pause{}, &Event{}); err != nil {
		return fmt.Errorf("failed to migrate postgres schema: %w", err)
	}
	for _, stmt := range partialIndexes {
		if err := db.Exec(stmt).Error; err != nil {
			return fmt.Errorf("failed to create index: %w", err)
		}
	}
	log.Println("postgres: schema migration completed")
	return nil
}

type txKey struct{}

// conn returns the transaction carried by ctx, or db bound to ctx.
func conn(ctx context.Context, db *gorm.DB) *gorm.DB {
	if tx, ok := ctx.Value(txKey{}).(*gorm.DB); ok {
		return tx
	}
	return db.WithContext(ctx)
}

// Transactor implements secondary.Transactor with gorm transactions.
type Transactor struct {
	db *gorm.DB
}

// NewTransactor creates a new PostgreSQL transactor.
func NewTransactor(db *gorm.DB) *Transactor {
	return &Transactor{db: db}
}

// WithinTx runs fn in a transaction. Nested calls join the outer transaction.
func (t *Transactor) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if _, ok := ctx.Value(txKey{}).(*gorm.DB); ok {
		return fn(ctx)
	}
	return t.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(context.WithValue(ctx, txKey{}, tx))
	})
}

// pgCode returns the SQLSTATE of a PostgreSQL error, or "".
func pgCode(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code
	}
	return ""
}

// mapError classifies driver errors. Unclassified errors are wrapped with op.
func mapError(err error, op string, conflict, notFound func() error) error {
	if err == nil {
		return nil
	}
	switch pgCode(err) {
	case PgErrUniqueViolation:
		if conflict != nil {
			return conflict()
		}
	case PgErrForeignKeyViolation:
		if notFound != nil {
			return notFound()
		}
	case PgErrSerializationFailed, PgErrDeadlockDetected:
		return apperr.Wrap(apperr.KindConflict, err, "%s: concurrent update, retry", op)
	}
	if errors.Is(err, gorm.ErrRecordNotFound) && notFound != nil {
		return notFound()
	}
	return fmt.Errorf("failed to %s: %w", op, err)
}

// Ensure Transactor implements the interface
var _ secondary.Transactor = (*Transactor)(nil)
