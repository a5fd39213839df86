package repositories

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/n3ms/medialib/internal/models"
	"github.com/n3ms/medialib/internal/shared"
)

// InsertFeedItems inserts discovered items with INSERT OR IGNORE keyed on
// (source_id, external_id), so re-syncing a source is idempotent. Returns
// the count of rows actually inserted.
func (s *Store) InsertFeedItems(items []models.FeedItem) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UTC().Format(timeFormat)
	inserted := 0

	for i := range items {
		item := &items[i]
		if item.ID == "" {
			item.ID = shared.GenerateID()
		}
		if item.DownloadStatus == "" {
			item.DownloadStatus = models.NotDownloaded
		}

		result, err := s.db.Exec(`
			INSERT OR IGNORE INTO feed_items
				(id, source_id, external_id, title, thumbnail_url, published_at, duration, download_status, metadata_complete, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`,
			item.ID,
			item.SourceID,
			item.ExternalID,
			item.Title,
			nullString(item.ThumbnailURL),
			nullTime(item.PublishedAt),
			nullInt(item.Duration),
			string(item.DownloadStatus),
			boolToInt(item.MetadataComplete),
			now,
		)
		if err != nil {
			return inserted, fmt.Errorf("failed to insert feed item: %w", err)
		}

		rows, err := result.RowsAffected()
		if err == nil {
			inserted += int(rows)
		}
	}

	return inserted, nil
}

// FeedItemsBySource lists a source's items, newest first.
func (s *Store) FeedItemsBySource(sourceID string) ([]models.FeedItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.db.Query(`
		SELECT id, source_id, external_id, title, thumbnail_url, published_at, duration,
		       download_status, metadata_complete, warehouse_item_id, created_at
		FROM feed_items WHERE source_id = ? ORDER BY created_at DESC
	`, sourceID)
	if err != nil {
		return nil, fmt.Errorf("failed to list feed items: %w", err)
	}
	defer rows.Close()

	return scanFeedItems(rows)
}

// FeedItem returns one feed item by id.
func (s *Store) FeedItem(id string) (*models.FeedItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.db.Query(`
		SELECT id, source_id, external_id, title, thumbnail_url, published_at, duration,
		       download_status, metadata_complete, warehouse_item_id, created_at
		FROM feed_items WHERE id = ?
	`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to read feed item: %w", err)
	}
	defer rows.Close()

	items, err := scanFeedItems(rows)
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, fmt.Errorf("%w: feed item %s", shared.ErrNotFound, id)
	}
	return &items[0], nil
}

// CountFeedItems returns the number of items for a source.
func (s *Store) CountFeedItems(sourceID string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var count int
	err := s.db.QueryRow("SELECT COUNT(*) FROM feed_items WHERE source_id = ?", sourceID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count feed items: %w", err)
	}
	return count, nil
}

// DownloadJob resolves the feed item, source, and creator fields a download
// needs, in one join.
func (s *Store) DownloadJob(feedItemID string) (*models.DownloadJob, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var (
		job        models.DownloadJob
		platform   string
		credential sql.NullString
		published  sql.NullString
		duration   sql.NullInt64
	)
	err := s.db.QueryRow(`
		SELECT fi.id, fi.external_id, fi.title, fi.published_at, fi.duration,
		       s.platform, s.credential_id, s.creator_id, c.name
		FROM feed_items fi
		JOIN sources s ON fi.source_id = s.id
		JOIN creators c ON s.creator_id = c.id
		WHERE fi.id = ?
	`, feedItemID).Scan(
		&job.FeedItemID,
		&job.ExternalID,
		&job.Title,
		&published,
		&duration,
		&platform,
		&credential,
		&job.CreatorID,
		&job.CreatorName,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: feed item %s", shared.ErrNotFound, feedItemID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to resolve download job: %w", err)
	}

	job.Platform = models.Platform(platform)
	job.CredentialID = credential.String
	job.PublishedAt = parseTime(published)
	if duration.Valid {
		job.Duration = &duration.Int64
	}
	return &job, nil
}

// SetDownloadStatus updates a feed item's download lifecycle state.
func (s *Store) SetDownloadStatus(feedItemID string, status models.DownloadStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.Exec("UPDATE feed_items SET download_status = ? WHERE id = ?",
		string(status), feedItemID)
	if err != nil {
		return fmt.Errorf("failed to update download status: %w", err)
	}
	return nil
}

// CompleteDownload marks a feed item downloaded, links its warehouse item,
// and back-links the warehouse item, atomically.
func (s *Store) CompleteDownload(feedItemID, warehouseItemID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(
		"UPDATE feed_items SET download_status = 'downloaded', warehouse_item_id = ? WHERE id = ?",
		warehouseItemID, feedItemID); err != nil {
		return fmt.Errorf("failed to mark feed item downloaded: %w", err)
	}
	if _, err := tx.Exec(
		"UPDATE warehouse_items SET feed_item_id = ? WHERE id = ?",
		feedItemID, warehouseItemID); err != nil {
		return fmt.Errorf("failed to back-link warehouse item: %w", err)
	}

	return tx.Commit()
}

// IncompleteMetadata returns up to limit items still missing metadata,
// newest first: recently discovered items are what the user is looking at.
func (s *Store) IncompleteMetadata(limit int) ([]models.MetadataTarget, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.db.Query(`
		SELECT fi.id, fi.external_id, s.platform, s.credential_id
		FROM feed_items fi
		JOIN sources s ON fi.source_id = s.id
		WHERE fi.metadata_complete = 0
		ORDER BY fi.created_at DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list incomplete items: %w", err)
	}
	defer rows.Close()

	var targets []models.MetadataTarget
	for rows.Next() {
		var (
			t            models.MetadataTarget
			platform     string
			credentialID sql.NullString
		)
		if err := rows.Scan(&t.FeedItemID, &t.ExternalID, &platform, &credentialID); err != nil {
			return nil, fmt.Errorf("failed to scan metadata target: %w", err)
		}
		t.Platform = models.Platform(platform)
		t.CredentialID = credentialID.String
		targets = append(targets, t)
	}

	return targets, rows.Err()
}

// MetadataTarget resolves the fetch context for one feed item.
func (s *Store) MetadataTarget(feedItemID string) (*models.MetadataTarget, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var (
		t            models.MetadataTarget
		platform     string
		credentialID sql.NullString
	)
	err := s.db.QueryRow(`
		SELECT fi.id, fi.external_id, s.platform, s.credential_id
		FROM feed_items fi
		JOIN sources s ON fi.source_id = s.id
		WHERE fi.id = ?
	`, feedItemID).Scan(&t.FeedItemID, &t.ExternalID, &platform, &credentialID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: feed item %s", shared.ErrNotFound, feedItemID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to resolve metadata target: %w", err)
	}

	t.Platform = models.Platform(platform)
	t.CredentialID = credentialID.String
	return &t, nil
}

// MergeMetadata fills published date, duration, and thumbnail where the new
// values are present, preserving existing values otherwise, and marks the
// item complete.
func (s *Store) MergeMetadata(feedItemID string, publishedAt *time.Time, duration *int64, thumbnail string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.Exec(`
		UPDATE feed_items SET
			published_at = COALESCE(?, published_at),
			duration = COALESCE(?, duration),
			thumbnail_url = COALESCE(?, thumbnail_url),
			metadata_complete = 1
		WHERE id = ?
	`, nullTime(publishedAt), nullInt(duration), nullString(thumbnail), feedItemID)
	if err != nil {
		return fmt.Errorf("failed to merge metadata: %w", err)
	}
	return nil
}

func nullInt(v *int64) any {
	if v == nil {
		return nil
	}
	return *v
}

func scanFeedItems(rows *sql.Rows) ([]models.FeedItem, error) {
	var items []models.FeedItem
	for rows.Next() {
		var (
			item        models.FeedItem
			thumbnail   sql.NullString
			published   sql.NullString
			duration    sql.NullInt64
			status      string
			metadata    int
			warehouseID sql.NullString
			created     string
		)
		if err := rows.Scan(
			&item.ID,
			&item.SourceID,
			&item.ExternalID,
			&item.Title,
			&thumbnail,
			&published,
			&duration,
			&status,
			&metadata,
			&warehouseID,
			&created,
		); err != nil {
			return nil, fmt.Errorf("failed to scan feed item: %w", err)
		}

		item.ThumbnailURL = thumbnail.String
		item.PublishedAt = parseTime(published)
		if duration.Valid {
			d := duration.Int64
			item.Duration = &d
		}
		item.DownloadStatus = models.DownloadStatus(status)
		item.MetadataComplete = metadata != 0
		item.WarehouseItemID = warehouseID.String
		item.CreatedAt = mustParseTime(created)
		items = append(items, item)
	}

	return items, rows.Err()
}
