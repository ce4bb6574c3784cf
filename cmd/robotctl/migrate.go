package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/nerrad567/robotctl/internal/infrastructure/config"
	"github.com/nerrad567/robotctl/internal/infrastructure/database"
	"github.com/nerrad567/robotctl/migrations"
)

func newMigrateCmd(load func() (*config.Config, error)) *cobra.Command {
	var (
		down   bool
		status bool
	)

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply, roll back or list call history migrations",
		Long: `Manage the call history schema at database.path.

Without flags every pending migration is applied. serve does this on
start, so migrate is only needed for inspection or rollback.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if down && status {
				return errors.New("--down and --status are mutually exclusive")
			}
			cfg, err := load()
			if err != nil {
				return err
			}

			db, err := database.Open(cfg.Database)
			if err != nil {
				return fmt.Errorf("opening database: %w", err)
			}
			defer db.Close() //nolint:errcheck // best effort on exit

			ctx := cmd.Context()
			out := cmd.OutOrStdout()

			switch {
			case status:
				applied, pending, err := db.MigrationStatus(ctx, migrations.FS)
				if err != nil {
					return fmt.Errorf("reading migration status: %w", err)
				}
				for _, m := range applied {
					fmt.Fprintf(out, "applied  %s  %s\n", m.Version, m.AppliedAt.Format("2006-01-02 15:04:05")) //nolint:errcheck // terminal output
				}
				for _, m := range pending {
					fmt.Fprintf(out, "pending  %s  %s\n", m.Version, m.Name) //nolint:errcheck // terminal output
				}
				return nil
			case down:
				if err := db.MigrateDown(ctx, migrations.FS); err != nil {
					return fmt.Errorf("rolling back migration: %w", err)
				}
				_, err = fmt.Fprintln(out, "rolled back latest migration")
				return err
			default:
				if err := db.Migrate(ctx, migrations.FS); err != nil {
					return fmt.Errorf("running migrations: %w", err)
				}
				_, err = fmt.Fprintln(out, "migrations applied")
				return err
			}
		},
	}
	cmd.Flags().BoolVar(&down, "down", false, "Roll back the most recently applied migration")
	cmd.Flags().BoolVar(&status, "status", false, "List applied and pending migrations")
	return cmd
}
