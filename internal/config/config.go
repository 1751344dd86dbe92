// Package config loads prodtrack configuration from file, environment and
// flags through viper.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// Storage drivers.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// EnvPrefix prefixes every environment override, e.g. PRODTRACK_STORAGE_DRIVER.
const EnvPrefix = "PRODTRACK"

// DefaultPageSize is the history page size when none is configured.
const DefaultPageSize = 20

// Config is the resolved configuration.
type Config struct {
	Storage   StorageConfig       `mapstructure:"storage"`
	Catalog   CatalogConfig       `mapstructure:"catalog"`
	Operators map[string]Operator `mapstructure:"operators"`
	Actor     string              `mapstructure:"actor"`
	History   HistoryConfig       `mapstructure:"history"`

	// File is the config file that was read, empty when none was found.
	File string `mapstructure:"-"`
}

// StorageConfig selects and configures the persistence backend.
type StorageConfig struct {
	Driver        string `mapstructure:"driver"`
	SQLitePath    string `mapstructure:"sqlite_path"`
	PostgresDSN   string `mapstructure:"postgres_dsn"`
	BusyTimeoutMS int    `mapstructure:"busy_timeout_ms"`
}

// CatalogConfig locates the line catalog file.
type CatalogConfig struct {
	Path string `mapstructure:"path"`
}

// Operator is one entry of the operator directory.
type Operator struct {
	Name string `mapstructure:"name"`
	Role string `mapstructure:"role"`
}

// HistoryConfig tunes history listings.
type HistoryConfig struct {
	PageSize int `mapstructure:"page_size"`
}

// Options control where Load looks.
type Options struct {
	// File is an explicit config file; search paths are skipped when set.
	File string
	// Home overrides the user home directory, used for defaults and search.
	Home string
}

// Home returns the prodtrack state directory under home.
func Home(home string) string {
	return filepath.Join(home, ".prodtrack")
}

func setDefaults(v *viper.Viper, home string) {
	v.SetDefault("storage.driver", DriverSQLite)
	v.SetDefault("storage.sqlite_path", filepath.Join(Home(home), "prodtrack.db"))
	v.SetDefault("storage.postgres_dsn", "")
	v.SetDefault("storage.busy_timeout_ms", 5000)
	v.SetDefault("catalog.path", filepath.Join(Home(home), "catalog.toml"))
	v.SetDefault("actor", "")
	v.SetDefault("history.page_size", DefaultPageSize)
}

// Load resolves configuration: defaults, then the config file, then
// PRODTRACK_* environment variables. A missing config file is not an error
// unless it was named explicitly.
func Load(opts Options) (*Config, error) {
	home := opts.Home
	if home == "" {
		h, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get home directory: %w", err)
		}
		home = h
	}

	v := viper.New()
	setDefaults(v, home)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if opts.File != "" {
		v.SetConfigFile(opts.File)
	} else {
		v.SetConfigName("prodtrack")
		v.AddConfigPath(".")
		v.AddConfigPath(Home(home))
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if opts.File != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	cfg.File = v.ConfigFileUsed()
	cfg.Storage.Driver = strings.ToLower(strings.TrimSpace(cfg.Storage.Driver))

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects configurations the wiring cannot honour.
func (c *Config) Validate() error {
	switch c.Storage.Driver {
	case DriverSQLite:
		if c.Storage.SQLitePath == "" {
			return fmt.Errorf("config: storage.sqlite_path is required for the sqlite driver")
		}
	case DriverPostgres:
		if c.Storage.PostgresDSN == "" {
			return fmt.Errorf("config: storage.postgres_dsn is required for the postgres driver")
		}
	default:
		return fmt.Errorf("config: unknown storage.driver %q (want %s or %s)", c.Storage.Driver, DriverSQLite, DriverPostgres)
	}
	if c.Storage.BusyTimeoutMS < 0 {
		return fmt.Errorf("config: storage.busy_timeout_ms must not be negative")
	}
	if c.History.PageSize < 0 {
		return fmt.Errorf("config: history.page_size must not be negative")
	}
	return nil
}
