package repositories

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/n3ms/medialib/internal/models"
	"github.com/n3ms/medialib/internal/shared"
)

// CreateSource inserts a source with a generated id in the pending state.
func (s *Store) CreateSource(source *models.Source) error {
	if source.CreatorID == "" || source.ChannelURL == "" {
		return fmt.Errorf("%w: source requires a creator and channel URL", shared.ErrInvalidInput)
	}
	if !source.Platform.Valid() {
		return fmt.Errorf("%w: %s", shared.ErrUnknownPlatform, source.Platform)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UTC()
	source.ID = shared.GenerateID()
	source.Status = models.SourcePending
	source.CreatedAt = now

	_, err := s.db.Exec(`
		INSERT INTO sources (id, creator_id, platform, channel_url, channel_name, credential_id, status, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`,
		source.ID,
		source.CreatorID,
		source.Platform.String(),
		source.ChannelURL,
		nullString(source.ChannelName),
		nullString(source.CredentialID),
		string(source.Status),
		now.Format(timeFormat),
	)
	if err != nil {
		return fmt.Errorf("failed to insert source: %w", err)
	}
	return nil
}

// Source returns one source by id.
func (s *Store) Source(id string) (*models.Source, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	row := s.db.QueryRow(`
		SELECT id, creator_id, platform, channel_url, channel_name, credential_id, status, last_synced_at, created_at
		FROM sources WHERE id = ?
	`, id)

	source, err := scanSource(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: source %s", shared.ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read source: %w", err)
	}
	return source, nil
}

// Sources lists all sources, newest first.
func (s *Store) Sources() ([]models.Source, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.db.Query(`
		SELECT id, creator_id, platform, channel_url, channel_name, credential_id, status, last_synced_at, created_at
		FROM sources ORDER BY created_at DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list sources: %w", err)
	}
	defer rows.Close()

	var sources []models.Source
	for rows.Next() {
		source, err := scanSource(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan source: %w", err)
		}
		sources = append(sources, *source)
	}

	return sources, rows.Err()
}

// ActiveSourceIDs returns ids of every source not in the error state, the
// set a periodic sync sweeps.
func (s *Store) ActiveSourceIDs() ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.db.Query("SELECT id FROM sources WHERE status != 'error'")
	if err != nil {
		return nil, fmt.Errorf("failed to list active sources: %w", err)
	}
	defer rows.Close()

	return scanIDs(rows)
}

// SourceIDsForCreator returns all source ids owned by a creator.
func (s *Store) SourceIDsForCreator(creatorID string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.db.Query("SELECT id FROM sources WHERE creator_id = ?", creatorID)
	if err != nil {
		return nil, fmt.Errorf("failed to list creator sources: %w", err)
	}
	defer rows.Close()

	return scanIDs(rows)
}

// MarkSourceSynced records a successful sync: validated status plus the
// sync timestamp, in one statement.
func (s *Store) MarkSourceSynced(id string, syncedAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.Exec("UPDATE sources SET status = 'validated', last_synced_at = ? WHERE id = ?",
		syncedAt.UTC().Format(timeFormat), id)
	if err != nil {
		return fmt.Errorf("failed to mark source synced: %w", err)
	}
	return nil
}

// MarkSourceError records a failed sync. The last-synced timestamp is left
// untouched.
func (s *Store) MarkSourceError(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.Exec("UPDATE sources SET status = 'error' WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to mark source errored: %w", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSource(row rowScanner) (*models.Source, error) {
	var (
		source       models.Source
		platform     string
		status       string
		channelName  sql.NullString
		credentialID sql.NullString
		lastSynced   sql.NullString
		created      string
	)
	if err := row.Scan(
		&source.ID,
		&source.CreatorID,
		&platform,
		&source.ChannelURL,
		&channelName,
		&credentialID,
		&status,
		&lastSynced,
		&created,
	); err != nil {
		return nil, err
	}

	source.Platform = models.Platform(platform)
	source.Status = models.SourceStatus(status)
	source.ChannelName = channelName.String
	source.CredentialID = credentialID.String
	source.LastSyncedAt = parseTime(lastSynced)
	source.CreatedAt = mustParseTime(created)
	return &source, nil
}

func scanIDs(rows *sql.Rows) ([]string, error) {
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
