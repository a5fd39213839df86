package main

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/n3ms/medialib/internal/shared"
)

// SettingsGet shows the stored preferences.
func (r *Runner) SettingsGet(ctx context.Context, cmd *cli.Command) error {
	store, closeStore, err := r.openStore(cmd)
	if err != nil {
		return err
	}
	defer closeStore()

	settings, err := store.Settings()
	if err != nil {
		return err
	}

	return r.writeJSON(settings)
}

// SettingsSet updates stored preferences.
func (r *Runner) SettingsSet(ctx context.Context, cmd *cli.Command) error {
	store, closeStore, err := r.openStore(cmd)
	if err != nil {
		return err
	}
	defer closeStore()

	settings, err := store.Settings()
	if err != nil {
		return err
	}

	changed := false
	if library := cmd.String("library"); library != "" {
		settings.LibraryPath = library
		changed = true
	}
	if interval := cmd.Int("sync-interval"); interval > 0 {
		settings.SyncIntervalSeconds = interval
		changed = true
	}
	if notifications := cmd.String("notifications"); notifications != "" {
		switch notifications {
		case "on":
			settings.NotificationsEnabled = true
		case "off":
			settings.NotificationsEnabled = false
		default:
			return fmt.Errorf("%w: notifications must be on or off", shared.ErrInvalidArgument)
		}
		changed = true
	}

	if !changed {
		return fmt.Errorf("%w: nothing to update", shared.ErrMissingArgument)
	}

	if err := store.SaveSettings(settings); err != nil {
		return err
	}
	r.writePlain("settings updated\n")
	return nil
}
