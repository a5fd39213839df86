package repositories

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/n3ms/medialib/internal/models"
	"github.com/n3ms/medialib/internal/shared"
)

// CreateWarehouseItem records a materialized media file. The item is
// validated and assigned an id; only the feed item back-link changes later.
func (s *Store) CreateWarehouseItem(item *models.WarehouseItem) error {
	if err := item.Validate(); err != nil {
		return fmt.Errorf("%w: %v", shared.ErrInvalidInput, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if item.ID == "" {
		item.ID = shared.GenerateID()
	}
	if item.ImportedAt.IsZero() {
		item.ImportedAt = time.Now().UTC()
	}

	_, err := s.db.Exec(`
		INSERT INTO warehouse_items
			(id, creator_id, feed_item_id, title, file_path, platform, original_url,
			 published_at, duration, file_size, imported_at, is_manual_import)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		item.ID,
		item.CreatorID,
		nullString(item.FeedItemID),
		item.Title,
		item.FilePath,
		nullString(string(item.Platform)),
		nullString(item.OriginalURL),
		nullTime(item.PublishedAt),
		nullInt(item.Duration),
		item.FileSize,
		item.ImportedAt.Format(timeFormat),
		boolToInt(item.IsManualImport),
	)
	if err != nil {
		return fmt.Errorf("failed to insert warehouse item: %w", err)
	}
	return nil
}

// WarehouseItems lists materialized items, optionally filtered by creator.
// Pass an empty creatorID for the full library, newest import first.
func (s *Store) WarehouseItems(creatorID string) ([]models.WarehouseItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
		SELECT id, creator_id, feed_item_id, title, file_path, platform, original_url,
		       published_at, duration, file_size, imported_at, is_manual_import
		FROM warehouse_items`
	args := []any{}
	if creatorID != "" {
		query += " WHERE creator_id = ?"
		args = append(args, creatorID)
	}
	query += " ORDER BY imported_at DESC"

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list warehouse items: %w", err)
	}
	defer rows.Close()

	var items []models.WarehouseItem
	for rows.Next() {
		var (
			item      models.WarehouseItem
			feedItem  sql.NullString
			platform  sql.NullString
			original  sql.NullString
			published sql.NullString
			duration  sql.NullInt64
			imported  string
			manual    int
		)
		if err := rows.Scan(
			&item.ID,
			&item.CreatorID,
			&feedItem,
			&item.Title,
			&item.FilePath,
			&platform,
			&original,
			&published,
			&duration,
			&item.FileSize,
			&imported,
			&manual,
		); err != nil {
			return nil, fmt.Errorf("failed to scan warehouse item: %w", err)
		}

		item.FeedItemID = feedItem.String
		item.Platform = models.Platform(platform.String)
		item.OriginalURL = original.String
		item.PublishedAt = parseTime(published)
		if duration.Valid {
			d := duration.Int64
			item.Duration = &d
		}
		item.ImportedAt = mustParseTime(imported)
		item.IsManualImport = manual != 0
		items = append(items, item)
	}

	return items, rows.Err()
}
