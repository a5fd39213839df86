package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/urfave/cli/v3"

	"github.com/n3ms/medialib/internal/models"
	"github.com/n3ms/medialib/internal/repositories"
	"github.com/n3ms/medialib/internal/shared"
)

// Setup initializes the config file, database, migrations, and first-run
// settings.
func (r *Runner) Setup(ctx context.Context, cmd *cli.Command) error {
	configPath := cmd.String("config")

	var config *shared.Config
	if _, err := os.Stat(configPath); err == nil {
		if config, err = shared.LoadConfig(configPath); err != nil {
			r.logger.Warn("failed to load config, using defaults", "error", err)
			config = shared.DefaultConfig()
		}
	} else {
		r.logger.Info("config file not found, creating from template", "path", configPath)
		if err := shared.CreateConfigFile(configPath); err != nil {
			r.logger.Warn("failed to create config file, using defaults", "error", err)
			config = shared.DefaultConfig()
		} else {
			r.logger.Info("config file created", "path", configPath)
			if config, err = shared.LoadConfig(configPath); err != nil {
				r.logger.Warn("failed to load created config, using defaults", "error", err)
				config = shared.DefaultConfig()
			}
		}
	}

	r.logger.Info("initializing database", "path", config.Database.Path)

	db, err := shared.NewDatabase(config.Database.Path)
	if err != nil {
		return fmt.Errorf("failed to create database: %w", err)
	}
	defer db.Close()

	shared.ConfigureDatabase(db, config.Database.MaxOpenConns, config.Database.MaxIdleConns)

	r.logger.Info("running database migrations")
	if err := shared.RunMigrations(db); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	library := cmd.String("library")
	if library == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return fmt.Errorf("failed to resolve home directory: %w", err)
		}
		library = filepath.Join(home, "MediaLibrary")
	}
	if err := os.MkdirAll(library, 0755); err != nil {
		return fmt.Errorf("failed to create library directory: %w", err)
	}

	store := repositories.NewStore(db)
	settings, err := store.Settings()
	if err != nil {
		settings = &models.AppSettings{
			DefaultQuality:       "best",
			SyncIntervalSeconds:  300,
			NotificationsEnabled: true,
		}
	}
	settings.LibraryPath = library
	settings.FirstRunCompleted = true
	if err := store.SaveSettings(settings); err != nil {
		return fmt.Errorf("failed to save settings: %w", err)
	}

	r.logger.Info("setup complete", "database", config.Database.Path, "library", library)
	return nil
}
