package tasks

import (
	"io"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/n3ms/medialib/internal/models"
	"github.com/n3ms/medialib/internal/shared"
)

func testLogger() *log.Logger {
	return shared.NewLogger(io.Discard)
}

// fakeDownloadStore records every mutation the download manager issues.
type fakeDownloadStore struct {
	mu sync.Mutex

	jobs        map[string]*models.DownloadJob
	libraryPath string
	cookiePath  string
	cookieErr   error

	statuses  map[string][]models.DownloadStatus
	artifacts []*models.WarehouseItem
	completed map[string]string
}

func newFakeDownloadStore(libraryPath string) *fakeDownloadStore {
	return &fakeDownloadStore{
		jobs:        make(map[string]*models.DownloadJob),
		libraryPath: libraryPath,
		statuses:    make(map[string][]models.DownloadStatus),
		completed:   make(map[string]string),
	}
}

func (s *fakeDownloadStore) addJob(job *models.DownloadJob) {
	s.jobs[job.FeedItemID] = job
}

func (s *fakeDownloadStore) DownloadJob(feedItemID string) (*models.DownloadJob, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	job, ok := s.jobs[feedItemID]
	if !ok {
		return nil, shared.ErrNotFound
	}
	return job, nil
}

func (s *fakeDownloadStore) SetDownloadStatus(feedItemID string, status models.DownloadStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.statuses[feedItemID] = append(s.statuses[feedItemID], status)
	return nil
}

func (s *fakeDownloadStore) CreateWarehouseItem(item *models.WarehouseItem) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if item.ID == "" {
		item.ID = shared.GenerateID()
	}
	s.artifacts = append(s.artifacts, item)
	return nil
}

func (s *fakeDownloadStore) CompleteDownload(feedItemID, warehouseItemID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.completed[feedItemID] = warehouseItemID
	s.statuses[feedItemID] = append(s.statuses[feedItemID], models.Downloaded)
	return nil
}

func (s *fakeDownloadStore) ResolveCookiePath(credentialID string, platform models.Platform) (string, error) {
	return s.cookiePath, s.cookieErr
}

func (s *fakeDownloadStore) LibraryPath() (string, error) {
	return s.libraryPath, nil
}

func (s *fakeDownloadStore) statusHistory(feedItemID string) []models.DownloadStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.DownloadStatus, len(s.statuses[feedItemID]))
	copy(out, s.statuses[feedItemID])
	return out
}

// fakeSyncStore deduplicates inserts by (source, external id) the way the
// real gateway's INSERT OR IGNORE does.
type fakeSyncStore struct {
	mu sync.Mutex

	sources    map[string]*models.Source
	activeIDs  []string
	creatorIDs map[string][]string
	cookiePath string
	cookieErr  error
	interval   time.Duration

	seen     map[string]struct{}
	inserted int
	synced   map[string]time.Time
	failed   map[string]int
}

func newFakeSyncStore() *fakeSyncStore {
	return &fakeSyncStore{
		sources:    make(map[string]*models.Source),
		creatorIDs: make(map[string][]string),
		seen:       make(map[string]struct{}),
		synced:     make(map[string]time.Time),
		failed:     make(map[string]int),
		interval:   time.Hour,
	}
}

func (s *fakeSyncStore) addSource(source *models.Source) {
	s.sources[source.ID] = source
	s.activeIDs = append(s.activeIDs, source.ID)
}

func (s *fakeSyncStore) Source(id string) (*models.Source, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	source, ok := s.sources[id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	return source, nil
}

func (s *fakeSyncStore) ActiveSourceIDs() ([]string, error) {
	return s.activeIDs, nil
}

func (s *fakeSyncStore) SourceIDsForCreator(creatorID string) ([]string, error) {
	return s.creatorIDs[creatorID], nil
}

func (s *fakeSyncStore) ResolveCookiePath(credentialID string, platform models.Platform) (string, error) {
	return s.cookiePath, s.cookieErr
}

func (s *fakeSyncStore) InsertFeedItems(items []models.FeedItem) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	added := 0
	for _, item := range items {
		key := item.SourceID + "|" + item.ExternalID
		if _, ok := s.seen[key]; ok {
			continue
		}
		s.seen[key] = struct{}{}
		added++
	}
	s.inserted += added
	return added, nil
}

func (s *fakeSyncStore) MarkSourceSynced(id string, syncedAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.synced[id] = syncedAt
	return nil
}

func (s *fakeSyncStore) MarkSourceError(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failed[id]++
	return nil
}

func (s *fakeSyncStore) SyncInterval() time.Duration {
	return s.interval
}

func (s *fakeSyncStore) itemCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.seen)
}

// fakeMetadataStore serves targets and records merges.
type fakeMetadataStore struct {
	mu sync.Mutex

	incomplete      []models.MetadataTarget
	targets         map[string]*models.MetadataTarget
	cookiePath      string
	cookieErr       error
	incompleteCalls int
	merged          map[string]string
}

func newFakeMetadataStore() *fakeMetadataStore {
	return &fakeMetadataStore{
		targets: make(map[string]*models.MetadataTarget),
		merged:  make(map[string]string),
	}
}

func (s *fakeMetadataStore) IncompleteMetadata(limit int) ([]models.MetadataTarget, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.incompleteCalls++
	if limit > len(s.incomplete) {
		limit = len(s.incomplete)
	}
	out := make([]models.MetadataTarget, limit)
	copy(out, s.incomplete[:limit])
	return out, nil
}

func (s *fakeMetadataStore) MetadataTarget(feedItemID string) (*models.MetadataTarget, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	target, ok := s.targets[feedItemID]
	if !ok {
		return nil, shared.ErrNotFound
	}
	return target, nil
}

func (s *fakeMetadataStore) ResolveCookiePath(credentialID string, platform models.Platform) (string, error) {
	return s.cookiePath, s.cookieErr
}

func (s *fakeMetadataStore) MergeMetadata(feedItemID string, publishedAt *time.Time, duration *int64, thumbnail string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.merged[feedItemID] = thumbnail
	return nil
}

func (s *fakeMetadataStore) sweepCalls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.incompleteCalls
}

func (s *fakeMetadataStore) mergedCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.merged)
}

// fakeNotifier counts notification side effects.
type fakeNotifier struct {
	mu        sync.Mutex
	completed []string
	failed    []string
	synced    []string
}

func (n *fakeNotifier) DownloadCompleted(title string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.completed = append(n.completed, title)
}

func (n *fakeNotifier) DownloadFailed(title, message string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.failed = append(n.failed, title)
}

func (n *fakeNotifier) SyncCompleted(sourceName string, newItems int) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.synced = append(n.synced, sourceName)
}
