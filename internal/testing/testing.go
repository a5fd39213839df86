// package testing contains shared testing utilities
package testing

import (
	"context"
	"database/sql"
	"os"
	"sync"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/n3ms/medialib/internal/fetch"
	"github.com/n3ms/medialib/internal/models"
	"github.com/n3ms/medialib/internal/shared"
)

// OpenTestDatabase opens an in-memory sqlite database with the schema
// applied, closed automatically when the test ends.
func OpenTestDatabase(t *testing.T) *sql.DB {
	t.Helper()

	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("Failed to open in-memory database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	// In-memory databases vanish per connection; keep exactly one.
	db.SetMaxOpenConns(1)

	if err := shared.RunMigrations(db); err != nil {
		t.Fatalf("Failed to run migrations: %v", err)
	}

	return db
}

// MockFetcher is a configurable test double for [fetch.Fetcher]. Call counts
// are safe to read after the work under test has completed.
type MockFetcher struct {
	PlatformTag models.Platform
	AuthNeeded  bool

	ListResult  []fetch.Item
	ListErr     error
	ItemResult  *fetch.Item
	ItemErr     error
	DownloadErr error

	// DownloadLines are replayed through the progress callback before
	// Download returns.
	DownloadLines []string

	// Release, when set, blocks Download until the channel yields or the
	// context is cancelled. ItemRelease does the same for FetchItem.
	Release     chan struct{}
	ItemRelease chan struct{}

	mu            sync.Mutex
	ListCalls     int
	ItemCalls     int
	DownloadCalls int
}

func (m *MockFetcher) Platform() models.Platform {
	if m.PlatformTag == "" {
		return models.PlatformYouTube
	}
	return m.PlatformTag
}

func (m *MockFetcher) RequiresAuth() bool { return m.AuthNeeded }

func (m *MockFetcher) ItemURL(externalID string) string {
	return "https://example.com/" + externalID
}

func (m *MockFetcher) ListItems(ctx context.Context, channelURL, cookiePath string) ([]fetch.Item, error) {
	m.mu.Lock()
	m.ListCalls++
	m.mu.Unlock()
	return m.ListResult, m.ListErr
}

func (m *MockFetcher) FetchItem(ctx context.Context, externalID, cookiePath string) (*fetch.Item, error) {
	m.mu.Lock()
	m.ItemCalls++
	m.mu.Unlock()

	if m.ItemRelease != nil {
		select {
		case <-m.ItemRelease:
		case <-ctx.Done():
			return nil, shared.ErrCancelled
		}
	}

	return m.ItemResult, m.ItemErr
}

func (m *MockFetcher) Download(ctx context.Context, externalID, outputPath, cookiePath string, onLine func(string)) error {
	m.mu.Lock()
	m.DownloadCalls++
	m.mu.Unlock()

	for _, line := range m.DownloadLines {
		if ctx.Err() != nil {
			return shared.ErrCancelled
		}
		onLine(line)
	}

	if m.Release != nil {
		select {
		case <-m.Release:
		case <-ctx.Done():
			return shared.ErrCancelled
		}
	}

	if m.DownloadErr != nil {
		return m.DownloadErr
	}
	if err := os.WriteFile(outputPath, []byte("media"), 0644); err != nil {
		return err
	}
	return nil
}

// Calls returns the current adapter call counts.
func (m *MockFetcher) Calls() (list, item, download int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.ListCalls, m.ItemCalls, m.DownloadCalls
}

// Eventually polls cond until it holds or the deadline passes.
func Eventually(t *testing.T, timeout time.Duration, cond func() bool, msg string) {
	t.Helper()

	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal(msg)
}

func AssertFileExists(t *testing.T, path string) {
	t.Helper()
	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Errorf("File does not exist: %s", path)
	}
}

func MustReadFile(t *testing.T, path string) string {
	t.Helper()
	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read file %s: %v", path, err)
	}
	return string(content)
}
