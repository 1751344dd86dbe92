// Package wire provides dependency injection for prodtrack.
// It creates singleton services with lazy initialization.
package wire

import (
	"errors"
	"io"
	"log"
	"os"
	"sync"

	"gorm.io/gorm"

	"github.com/example/prodtrack/internal/adapters/catalog"
	cliadapter "github.com/example/prodtrack/internal/adapters/cli"
	"github.com/example/prodtrack/internal/adapters/identity"
	"github.com/example/prodtrack/internal/adapters/postgres"
	"github.com/example/prodtrack/internal/adapters/sqlite"
	"github.com/example/prodtrack/internal/app"
	"github.com/example/prodtrack/internal/config"
	"github.com/example/prodtrack/internal/db"
	"github.com/example/prodtrack/internal/ports/primary"
	"github.com/example/prodtrack/internal/ports/secondary"
)

var (
	cfg            *config.Config
	logger         = log.New(os.Stderr, "prodtrack: ", log.LstdFlags)
	sessionService primary.SessionService
	statsService   primary.StatsService
	gormDB         *gorm.DB
	once           sync.Once
)

// Configure sets the configuration used when services are first built.
// Calls after the first service access have no effect.
func Configure(c *config.Config) {
	cfg = c
}

// Config returns the active configuration, loading the defaults when
// Configure was never called.
func Config() *config.Config {
	if cfg == nil {
		c, err := config.Load(config.Options{})
		if err != nil {
			log.Fatalf("failed to load configuration: %v", err)
		}
		cfg = c
	}
	return cfg
}

// Logger returns the process logger.
func Logger() *log.Logger {
	return logger
}

// SessionService returns the singleton SessionService instance.
func SessionService() primary.SessionService {
	once.Do(initServices)
	return sessionService
}

// StatsService returns the singleton StatsService instance.
func StatsService() primary.StatsService {
	once.Do(initServices)
	return statsService
}

type repositories struct {
	tx       secondary.Transactor
	sessions secondary.SessionRepository
	pauses   secondary.PauseRepository
	events   secondary.EventRepository
}

// initServices initializes all services and their dependencies.
// This is called once via sync.Once.
func initServices() {
	c := Config()

	var repos repositories
	switch c.Storage.Driver {
	case config.DriverPostgres:
		repos = postgresRepositories(c)
	default:
		repos = sqliteRepositories(c)
	}

	lines := loadCatalog(c.Catalog.Path)

	operators := make(map[string]identity.Operator, len(c.Operators))
	for id, op := range c.Operators {
		operators[id] = identity.Operator{Name: op.Name, Role: op.Role}
	}
	directory := identity.NewDirectory(operators)

	// Create services (primary ports implementation)
	sessionService = app.NewSessionService(repos.tx, repos.sessions, repos.pauses, repos.events, lines, lines, directory, logger)
	statsService = app.NewStatsService(repos.sessions, repos.pauses, lines, lines, c.History.PageSize)
}

func sqliteRepositories(c *config.Config) repositories {
	db.Configure(c.Storage.SQLitePath, c.Storage.BusyTimeoutMS)
	database, err := db.GetDB()
	if err != nil {
		log.Fatalf("failed to initialize database: %v", err)
	}

	return repositories{
		tx:       sqlite.NewTransactor(database, logger),
		sessions: sqlite.NewSessionRepository(database),
		pauses:   sqlite.NewPauseRepository(database),
		events:   sqlite.NewEventRepository(database),
	}
}

func postgresRepositories(c *config.Config) repositories {
	database, err := postgres.Connect(c.Storage.PostgresDSN, logger)
	if err != nil {
		log.Fatalf("failed to connect to postgres: %v", err)
	}
	if err := postgres.Migrate(database); err != nil {
		log.Fatalf("failed to migrate postgres schema: %v", err)
	}
	gormDB = database

	return repositories{
		tx:       postgres.NewTransactor(database),
		sessions: postgres.NewSessionRepository(database),
		pauses:   postgres.NewPauseRepository(database),
		events:   postgres.NewEventRepository(database),
	}
}

// loadCatalog reads the line catalog. A missing file yields an empty catalog
// so read-only commands keep working before the plant is configured.
func loadCatalog(path string) *catalog.Catalog {
	lines, err := catalog.Load(path)
	if err == nil {
		return lines
	}
	if errors.Is(err, os.ErrNotExist) {
		logger.Printf("warning: line catalog %s not found, no lines are configured", path)
		return catalog.Empty()
	}
	log.Fatalf("failed to load line catalog: %v", err)
	return nil
}

// Close releases the storage connection, if one was opened.
func Close() error {
	if gormDB != nil {
		sqlDB, err := gormDB.DB()
		if err != nil {
			return err
		}
		return sqlDB.Close()
	}
	return db.Close()
}

// SessionAdapter returns a new SessionAdapter writing to stdout.
// Each call creates a new adapter (adapters are stateless translators).
func SessionAdapter() *cliadapter.SessionAdapter {
	return SessionAdapterWithOutput(os.Stdout)
}

// SessionAdapterWithOutput returns a new SessionAdapter writing to the given output.
func SessionAdapterWithOutput(out io.Writer) *cliadapter.SessionAdapter {
	once.Do(initServices)
	return cliadapter.NewSessionAdapter(sessionService, out)
}

// StatsAdapter returns a new StatsAdapter writing to stdout.
func StatsAdapter() *cliadapter.StatsAdapter {
	return StatsAdapterWithOutput(os.Stdout)
}

// StatsAdapterWithOutput returns a new StatsAdapter writing to the given output.
func StatsAdapterWithOutput(out io.Writer) *cliadapter.StatsAdapter {
	once.Do(initServices)
	return cliadapter.NewStatsAdapter(statsService, out)
}
