package repositories

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/n3ms/medialib/internal/models"
	"github.com/n3ms/medialib/internal/shared"
)

// CreateCredential inserts a credential with a generated id. When the
// credential is marked default, any existing default for the same platform
// is cleared in the same transaction so the at-most-one-default invariant
// holds.
func (s *Store) CreateCredential(credential *models.Credential) error {
	if credential.Label == "" || credential.CookiePath == "" {
		return fmt.Errorf("%w: credential requires a label and cookie path", shared.ErrInvalidInput)
	}
	if !credential.Platform.Valid() {
		return fmt.Errorf("%w: %s", shared.ErrUnknownPlatform, credential.Platform)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	now := time.Now().UTC()
	credential.ID = shared.GenerateID()
	credential.CreatedAt = now
	credential.UpdatedAt = now

	if credential.IsDefault {
		if _, err := tx.Exec("UPDATE credentials SET is_default = 0 WHERE platform = ?", credential.Platform.String()); err != nil {
			return fmt.Errorf("failed to clear default credentials: %w", err)
		}
	}

	_, err = tx.Exec(`
		INSERT INTO credentials (id, label, platform, cookie_path, is_default, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`,
		credential.ID,
		credential.Label,
		credential.Platform.String(),
		credential.CookiePath,
		boolToInt(credential.IsDefault),
		now.Format(timeFormat),
		now.Format(timeFormat),
	)
	if err != nil {
		return fmt.Errorf("failed to insert credential: %w", err)
	}

	return tx.Commit()
}

// SetDefaultCredential marks a credential as its platform's default,
// clearing the previous default atomically.
func (s *Store) SetDefaultCredential(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var platform string
	err = tx.QueryRow("SELECT platform FROM credentials WHERE id = ?", id).Scan(&platform)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%w: credential %s", shared.ErrNotFound, id)
	}
	if err != nil {
		return fmt.Errorf("failed to look up credential: %w", err)
	}

	if _, err := tx.Exec("UPDATE credentials SET is_default = 0 WHERE platform = ?", platform); err != nil {
		return fmt.Errorf("failed to clear default credentials: %w", err)
	}
	if _, err := tx.Exec("UPDATE credentials SET is_default = 1, updated_at = ? WHERE id = ?",
		time.Now().UTC().Format(timeFormat), id); err != nil {
		return fmt.Errorf("failed to set default credential: %w", err)
	}

	return tx.Commit()
}

// Credentials lists all credentials, defaults first.
func (s *Store) Credentials() ([]models.Credential, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.db.Query(`
		SELECT id, label, platform, cookie_path, is_default, created_at, updated_at
		FROM credentials ORDER BY is_default DESC, created_at DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list credentials: %w", err)
	}
	defer rows.Close()

	var credentials []models.Credential
	for rows.Next() {
		var (
			c         models.Credential
			platform  string
			isDefault int
			created   string
			updated   string
		)
		if err := rows.Scan(&c.ID, &c.Label, &platform, &c.CookiePath, &isDefault, &created, &updated); err != nil {
			return nil, fmt.Errorf("failed to scan credential: %w", err)
		}
		c.Platform = models.Platform(platform)
		c.IsDefault = isDefault != 0
		c.CreatedAt = mustParseTime(created)
		c.UpdatedAt = mustParseTime(updated)
		credentials = append(credentials, c)
	}

	return credentials, rows.Err()
}

// ResolveCookiePath resolves the cookie file for a source: the explicit
// credential reference when present, otherwise the platform default.
// Neither existing is ErrCredentialMissing.
func (s *Store) ResolveCookiePath(credentialID string, platform models.Platform) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var (
		path string
		err  error
	)
	if credentialID != "" {
		err = s.db.QueryRow("SELECT cookie_path FROM credentials WHERE id = ?", credentialID).Scan(&path)
	} else {
		err = s.db.QueryRow("SELECT cookie_path FROM credentials WHERE platform = ? AND is_default = 1",
			platform.String()).Scan(&path)
	}

	if errors.Is(err, sql.ErrNoRows) {
		return "", shared.ErrCredentialMissing
	}
	if err != nil {
		return "", fmt.Errorf("failed to resolve credential: %w", err)
	}
	return path, nil
}
