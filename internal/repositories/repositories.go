// package repositories is the persistence gateway for the media library.
//
// A single [Store] wraps the shared sqlite connection behind one mutex.
// Background workers on several goroutines contend for it, so every method
// holds the lock for exactly one statement or one short read-modify-write
// and never across a blocking call.
package repositories

import (
	"database/sql"
	"sync"
	"time"
)

// timeFormat is how timestamps are persisted. Matches RFC 3339 so rows stay
// readable and sortable as text.
const timeFormat = time.RFC3339

// Store is the shared persistence gateway.
type Store struct {
	db *sql.DB
	mu sync.Mutex
}

// NewStore creates a Store over an open database connection.
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// DB exposes the underlying connection for migrations and setup.
func (s *Store) DB() *sql.DB {
	return s.db
}

// nullString maps empty strings to SQL NULL.
func nullString(v string) any {
	if v == "" {
		return nil
	}
	return v
}

// nullTime maps nil times to SQL NULL, otherwise formats them.
func nullTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.UTC().Format(timeFormat)
}

// parseTime parses a scanned nullable timestamp column.
func parseTime(v sql.NullString) *time.Time {
	if !v.Valid || v.String == "" {
		return nil
	}
	t, err := time.Parse(timeFormat, v.String)
	if err != nil {
		return nil
	}
	return &t
}

// mustParseTime parses a non-nullable timestamp column, zero on failure.
func mustParseTime(v string) time.Time {
	t, err := time.Parse(timeFormat, v)
	if err != nil {
		return time.Time{}
	}
	return t
}
