package cli

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/example/prodtrack/internal/config"
	"github.com/example/prodtrack/internal/db"
	"github.com/example/prodtrack/internal/wire"
)

// DevCmd returns the dev command group for development utilities.
func DevCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "dev",
		Short: "Development utilities (sqlite storage only)",
		Long: `Development utilities for working with a local sqlite database.

These commands refuse to run against the postgres driver.`,
	}

	cmd.AddCommand(devResetCmd())
	cmd.AddCommand(devSchemaCmd())
	return cmd
}

func requireSQLite() (string, error) {
	cfg := wire.Config()
	if cfg.Storage.Driver != config.DriverSQLite {
		return "", fmt.Errorf("dev commands require storage.driver %q, configured %q", config.DriverSQLite, cfg.Storage.Driver)
	}
	return cfg.Storage.SQLitePath, nil
}

func devResetCmd() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "reset",
		Short: "Reset the database with demo fixtures",
		Long: `Delete the sqlite database and recreate it with a demo shift.

This command:
1. Deletes the existing database file
2. Creates a fresh database with the current schema
3. Seeds two completed sessions and one paused session`,
		RunE: func(cmd *cobra.Command, args []string) error {
			dbPath, err := requireSQLite()
			if err != nil {
				return err
			}

			// Confirmation unless --force
			if !force {
				fmt.Printf("This will delete and recreate: %s\n", dbPath)
				fmt.Print("Continue? [y/N] ")
				var response string
				fmt.Scanln(&response)
				if response != "y" && response != "Y" {
					fmt.Println("Aborted.")
					return nil
				}
			}

			// Close any existing DB connection
			db.Close()

			if err := os.Remove(dbPath); err != nil && !os.IsNotExist(err) {
				return fmt.Errorf("failed to delete database: %w", err)
			}
			fmt.Printf("✓ Deleted %s\n", dbPath)

			cfg := wire.Config()
			db.Configure(dbPath, cfg.Storage.BusyTimeoutMS)
			database, err := db.GetDB()
			if err != nil {
				return fmt.Errorf("failed to create database: %w", err)
			}
			fmt.Println("✓ Created fresh database with schema")

			if err := db.SeedFixtures(database, time.Now()); err != nil {
				return fmt.Errorf("failed to seed fixtures: %w", err)
			}
			fmt.Println("✓ Seeded fixture data")

			fmt.Println("\nSeeded entities:")
			fmt.Println("  - 2 completed sessions (L01, L02)")
			fmt.Println("  - 1 paused session (L03)")
			fmt.Println("  - 4 pauses")
			return nil
		},
	}

	cmd.Flags().BoolVarP(&force, "force", "f", false, "Skip confirmation prompt")
	return cmd
}

func devSchemaCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "schema",
		Short: "Show the database schema version",
		RunE: func(cmd *cobra.Command, args []string) error {
			dbPath, err := requireSQLite()
			if err != nil {
				return err
			}

			db.Configure(dbPath, wire.Config().Storage.BusyTimeoutMS)
			database, err := db.GetDB()
			if err != nil {
				return fmt.Errorf("failed to open database: %w", err)
			}
			version, err := db.CurrentVersion(database)
			if err != nil {
				return err
			}

			fmt.Printf("Database: %s\n", dbPath)
			fmt.Printf("Schema:   v%d (latest v%d)\n", version, db.LatestVersion())
			return nil
		},
	}
}
