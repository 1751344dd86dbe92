package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	home := t.TempDir()
	chdir(t, t.TempDir())

	cfg, err := Load(Options{Home: home})
	require.NoError(t, err)

	assert.Equal(t, DriverSQLite, cfg.Storage.Driver)
	assert.Equal(t, filepath.Join(home, ".prodtrack", "prodtrack.db"), cfg.Storage.SQLitePath)
	assert.Equal(t, filepath.Join(home, ".prodtrack", "catalog.toml"), cfg.Catalog.Path)
	assert.Equal(t, 5000, cfg.Storage.BusyTimeoutMS)
	assert.Equal(t, DefaultPageSize, cfg.History.PageSize)
	assert.Empty(t, cfg.File)
	assert.Empty(t, cfg.Operators)
}

func TestLoad_FileInHomeDir(t *testing.T) {
	home := t.TempDir()
	chdir(t, t.TempDir())
	dir := filepath.Join(home, ".prodtrack")
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "prodtrack.yaml"), []byte(`
storage:
  busy_timeout_ms: 250
catalog:
  path: /etc/prodtrack/catalog.toml
actor: op-1
operators:
  op-1:
    name: Amina
    role: operator
history:
  page_size: 50
`), 0o644))

	cfg, err := Load(Options{Home: home})
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(dir, "prodtrack.yaml"), cfg.File)
	assert.Equal(t, 250, cfg.Storage.BusyTimeoutMS)
	assert.Equal(t, "/etc/prodtrack/catalog.toml", cfg.Catalog.Path)
	assert.Equal(t, "op-1", cfg.Actor)
	assert.Equal(t, Operator{Name: "Amina", Role: "operator"}, cfg.Operators["op-1"])
	assert.Equal(t, 50, cfg.History.PageSize)
}

func TestLoad_ExplicitTOMLFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "custom.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
[storage]
driver = "postgres"
postgres_dsn = "host=db user=prod dbname=prodtrack"
`), 0o644))

	cfg, err := Load(Options{File: path, Home: t.TempDir()})
	require.NoError(t, err)
	assert.Equal(t, DriverPostgres, cfg.Storage.Driver)
	assert.Equal(t, "host=db user=prod dbname=prodtrack", cfg.Storage.PostgresDSN)
}

func TestLoad_MissingExplicitFile(t *testing.T) {
	_, err := Load(Options{File: filepath.Join(t.TempDir(), "nope.yaml"), Home: t.TempDir()})
	assert.ErrorContains(t, err, "failed to read config")
}

func TestLoad_EnvOverrides(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("PRODTRACK_STORAGE_DRIVER", "Postgres")
	t.Setenv("PRODTRACK_STORAGE_POSTGRES_DSN", "postgres://localhost/prodtrack")
	t.Setenv("PRODTRACK_ACTOR", "op-7")

	cfg, err := Load(Options{Home: t.TempDir()})
	require.NoError(t, err)
	assert.Equal(t, DriverPostgres, cfg.Storage.Driver)
	assert.Equal(t, "postgres://localhost/prodtrack", cfg.Storage.PostgresDSN)
	assert.Equal(t, "op-7", cfg.Actor)
}

func TestValidate(t *testing.T) {
	valid := func() Config {
		return Config{Storage: StorageConfig{Driver: DriverSQLite, SQLitePath: "/tmp/p.db"}}
	}

	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{"sqlite ok", func(c *Config) {}, ""},
		{"unknown driver", func(c *Config) { c.Storage.Driver = "mysql" }, "unknown storage.driver"},
		{"postgres without dsn", func(c *Config) { c.Storage.Driver = DriverPostgres }, "postgres_dsn is required"},
		{"postgres with dsn", func(c *Config) {
			c.Storage.Driver = DriverPostgres
			c.Storage.PostgresDSN = "postgres://x"
		}, ""},
		{"sqlite without path", func(c *Config) { c.Storage.SQLitePath = "" }, "sqlite_path is required"},
		{"negative timeout", func(c *Config) { c.Storage.BusyTimeoutMS = -1 }, "busy_timeout_ms"},
		{"negative page size", func(c *Config) { c.History.PageSize = -5 }, "page_size"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := valid()
			tt.mutate(&c)
			err := c.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			assert.ErrorContains(t, err, tt.wantErr)
		})
	}
}

// chdir changes the working directory for the duration of the test and
// restores it on cleanup (equivalent of testing.T.Chdir, added in Go 1.24).
func chdir(t *testing.T, dir string) {
	t.Helper()
	wd, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() {
		if err := os.Chdir(wd); err != nil {
			t.Fatal(err)
		}
	})
}
