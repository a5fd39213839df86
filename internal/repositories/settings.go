package repositories

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/n3ms/medialib/internal/models"
	"github.com/n3ms/medialib/internal/shared"
)

// Settings returns the singleton preferences row.
func (s *Store) Settings() (*models.AppSettings, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var (
		settings      models.AppSettings
		firstRun      int
		notifications int
	)
	err := s.db.QueryRow(`
		SELECT library_path, default_quality, sync_interval_seconds,
		       first_run_completed, notifications_enabled
		FROM app_settings WHERE id = 1
	`).Scan(
		&settings.LibraryPath,
		&settings.DefaultQuality,
		&settings.SyncIntervalSeconds,
		&firstRun,
		&notifications,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: settings not initialized, run setup", shared.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read settings: %w", err)
	}

	settings.FirstRunCompleted = firstRun != 0
	settings.NotificationsEnabled = notifications != 0
	return &settings, nil
}

// SaveSettings writes the singleton preferences row, creating it on first run.
func (s *Store) SaveSettings(settings *models.AppSettings) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.Exec(`
		INSERT INTO app_settings (id, library_path, default_quality, sync_interval_seconds, first_run_completed, notifications_enabled)
		VALUES (1, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			library_path = excluded.library_path,
			default_quality = excluded.default_quality,
			sync_interval_seconds = excluded.sync_interval_seconds,
			first_run_completed = excluded.first_run_completed,
			notifications_enabled = excluded.notifications_enabled
	`,
		settings.LibraryPath,
		settings.DefaultQuality,
		settings.SyncIntervalSeconds,
		boolToInt(settings.FirstRunCompleted),
		boolToInt(settings.NotificationsEnabled),
	)
	if err != nil {
		return fmt.Errorf("failed to save settings: %w", err)
	}
	return nil
}

// LibraryPath returns the configured library root.
func (s *Store) LibraryPath() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var path string
	err := s.db.QueryRow("SELECT library_path FROM app_settings WHERE id = 1").Scan(&path)
	if errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("%w: library path not configured", shared.ErrNotFound)
	}
	if err != nil {
		return "", fmt.Errorf("failed to read library path: %w", err)
	}
	return path, nil
}

// SyncInterval returns the periodic sync interval, defaulting to 300s when
// settings are absent.
func (s *Store) SyncInterval() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()

	var seconds int
	err := s.db.QueryRow("SELECT sync_interval_seconds FROM app_settings WHERE id = 1").Scan(&seconds)
	if err != nil || seconds <= 0 {
		return 300 * time.Second
	}
	return time.Duration(seconds) * time.Second
}

// NotificationsEnabled reports the stored notifications toggle. Missing
// settings deliver by default.
func (s *Store) NotificationsEnabled() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	var enabled int
	err := s.db.QueryRow("SELECT notifications_enabled FROM app_settings WHERE id = 1").Scan(&enabled)
	if err != nil {
		return true
	}
	return enabled != 0
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
