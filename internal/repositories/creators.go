package repositories

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/n3ms/medialib/internal/models"
	"github.com/n3ms/medialib/internal/shared"
)

// CreateCreator inserts a creator with a generated id.
func (s *Store) CreateCreator(creator *models.Creator) error {
	if creator.Name == "" {
		return fmt.Errorf("%w: creator requires a name", shared.ErrInvalidInput)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UTC()
	creator.ID = shared.GenerateID()
	creator.CreatedAt = now
	creator.UpdatedAt = now

	_, err := s.db.Exec(`
		INSERT INTO creators (id, name, created_at, updated_at)
		VALUES (?, ?, ?, ?)
	`, creator.ID, creator.Name, now.Format(timeFormat), now.Format(timeFormat))
	if err != nil {
		return fmt.Errorf("failed to insert creator: %w", err)
	}
	return nil
}

// Creator returns one creator by id.
func (s *Store) Creator(id string) (*models.Creator, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var (
		c       models.Creator
		created string
		updated string
	)
	err := s.db.QueryRow("SELECT id, name, created_at, updated_at FROM creators WHERE id = ?", id).
		Scan(&c.ID, &c.Name, &created, &updated)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: creator %s", shared.ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read creator: %w", err)
	}

	c.CreatedAt = mustParseTime(created)
	c.UpdatedAt = mustParseTime(updated)
	return &c, nil
}

// Creators lists all creators by name.
func (s *Store) Creators() ([]models.Creator, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.db.Query("SELECT id, name, created_at, updated_at FROM creators ORDER BY name")
	if err != nil {
		return nil, fmt.Errorf("failed to list creators: %w", err)
	}
	defer rows.Close()

	var creators []models.Creator
	for rows.Next() {
		var (
			c       models.Creator
			created string
			updated string
		)
		if err := rows.Scan(&c.ID, &c.Name, &created, &updated); err != nil {
			return nil, fmt.Errorf("failed to scan creator: %w", err)
		}
		c.CreatedAt = mustParseTime(created)
		c.UpdatedAt = mustParseTime(updated)
		creators = append(creators, c)
	}

	return creators, rows.Err()
}
