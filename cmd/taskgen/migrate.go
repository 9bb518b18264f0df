package main

import (
	"fmt"

	"innerbloom-server/internal/database"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var migrateSteps int

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Manage the generated_tasks schema",
}

var migrateUpCmd = &cobra.Command{
	Use:   "up",
	Short: "Apply all pending migrations",
	RunE: withMigrator(func(m *database.Migrator) error {
		return m.Up()
	}),
}

var migrateDownCmd = &cobra.Command{
	Use:   "down",
	Short: "Roll back migrations",
	RunE: withMigrator(func(m *database.Migrator) error {
		return m.Down(migrateSteps)
	}),
}

var migrateVersionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the current schema version",
	RunE: withMigrator(func(m *database.Migrator) error {
		v, dirty, err := m.Version()
		if err != nil {
			return err
		}
		fmt.Printf("version=%d dirty=%t\n", v, dirty)
		return nil
	}),
}

func init() {
	migrateDownCmd.Flags().IntVar(&migrateSteps, "steps", 1, "number of migrations to roll back")
	migrateCmd.AddCommand(migrateUpCmd, migrateDownCmd, migrateVersionCmd)
}

func withMigrator(fn func(m *database.Migrator) error) func(cmd *cobra.Command, args []string) error {
	return func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.Close()
		if a.cfg.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL is not set")
		}

		m, err := database.NewMigrator(a.cfg.DatabaseURL, a.cfg.MigrationsDir, a.log)
		if err != nil {
			return err
		}
		defer func() {
			if err := m.Close(); err != nil {
				a.log.Warn("Failed to close migrator", zap.Error(err))
			}
		}()
		return fn(m)
	}
}
