package main

import (
	"context"
	"database/sql"
	"fmt"
	"os"

	"github.com/desertthunder/relwatch/internal/shared"
	"github.com/desertthunder/relwatch/internal/ui"
	"github.com/urfave/cli/v3"
)

// SetupConfig writes the embedded example config to --config.
func (r *Runner) SetupConfig(ctx context.Context, cmd *cli.Command) error {
	configPath := cmd.String("config")
	if err := shared.CreateConfigFile(configPath); err != nil {
		return err
	}

	r.logger.Info("config file created", "path", configPath)
	r.writePlain("%s %s\n", ui.OK("✓ Config written to"), configPath)
	return nil
}

// SetupDatabase initializes the database and runs migrations.
//
// A missing config file is created from the template first.
func (r *Runner) SetupDatabase(ctx context.Context, cmd *cli.Command) error {
	configPath := cmd.String("config")

	if _, err := os.Stat(configPath); err != nil {
		r.logger.Info("config file not found, creating from template", "path", configPath)
		if err := shared.CreateConfigFile(configPath); err != nil {
			r.logger.Warn("failed to create config file, using defaults", "error", err)
		} else if config, err := shared.LoadConfig(configPath); err != nil {
			r.logger.Warn("failed to load created config, using defaults", "error", err)
		} else {
			r.config = config
		}
	}

	r.logger.Info("initializing database", "path", r.config.Database.Path)

	db, err := r.database()
	if err != nil {
		return err
	}

	r.logger.Info("running database migrations")
	applied, err := shared.RunMigrations(db)
	if err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	r.logger.Infof("setup complete for database: %v", r.config.Database.Path)
	r.writePlain("%s (%d migrations applied)\n", ui.OK("✓ Database ready"), applied)
	return nil
}

// MigrationStatus lists embedded migrations and whether each is applied.
func (r *Runner) MigrationStatus(ctx context.Context, cmd *cli.Command) error {
	db, err := r.database()
	if err != nil {
		return err
	}

	states, err := shared.MigrationStatus(db)
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		type row struct {
			Version int    `json:"version"`
			Name    string `json:"name"`
			Applied bool   `json:"applied"`
		}
		rows := make([]row, len(states))
		for i, s := range states {
			rows[i] = row{Version: s.Version, Name: s.Name, Applied: s.Applied}
		}
		return r.writeJSON(rows, cmd.Bool("pretty"))
	}

	r.writePlainHeader("Migrations")
	for _, s := range states {
		status := ui.Warn("pending")
		if s.Applied {
			status = ui.OK("applied")
		}
		r.writePlain("%04d  %-40s %s\n", s.Version, s.Name, status)
	}
	return nil
}

// MigrationRollback reverts the most recently applied migration.
func (r *Runner) MigrationRollback(ctx context.Context, cmd *cli.Command) error {
	db, err := r.database()
	if err != nil {
		return err
	}

	if err := shared.RollbackMigration(db); err != nil {
		return err
	}

	r.logger.Info("rolled back migration", "path", r.config.Database.Path)
	r.writePlain("%s\n", ui.OK("✓ Rolled back the latest migration"))
	return nil
}

func (r *Runner) database() (*sql.DB, error) {
	store, err := r.openStore()
	if err != nil {
		return nil, err
	}
	return store.DB(), nil
}
