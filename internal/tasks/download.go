package tasks

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/semaphore"

	"github.com/n3ms/medialib/internal/events"
	"github.com/n3ms/medialib/internal/fetch"
	"github.com/n3ms/medialib/internal/models"
	"github.com/n3ms/medialib/internal/notify"
	"github.com/n3ms/medialib/internal/shared"
)

const (
	// defaultMaxParallel bounds concurrent downloads when no limit is
	// configured.
	defaultMaxParallel = 2

	// commandBuffer is the admission capacity of a manager's command
	// channel. A full channel rejects the command, it never blocks.
	commandBuffer = 64
)

// DownloadStore is the persistence surface the download manager consumes.
type DownloadStore interface {
	DownloadJob(feedItemID string) (*models.DownloadJob, error)
	SetDownloadStatus(feedItemID string, status models.DownloadStatus) error
	CreateWarehouseItem(item *models.WarehouseItem) error
	CompleteDownload(feedItemID, warehouseItemID string) error
	ResolveCookiePath(credentialID string, platform models.Platform) (string, error)
	LibraryPath() (string, error)
}

type downloadCommandKind int

const (
	downloadEnqueue downloadCommandKind = iota
	downloadCancel
)

type downloadCommand struct {
	kind       downloadCommandKind
	feedItemID string
}

// DownloadManager accepts download and cancel commands and runs downloads
// under a fixed concurrency limit. Acceptance only reflects queue admission;
// outcomes arrive as events and persisted status changes.
type DownloadManager struct {
	store    DownloadStore
	registry *fetch.Registry
	bus      *events.Bus
	notifier notify.Notifier
	logger   *log.Logger

	sem          *semaphore.Weighted
	stallTimeout time.Duration
	commands     chan downloadCommand

	mu        sync.Mutex
	cancelled map[string]struct{}

	wg sync.WaitGroup
}

// NewDownloadManager creates a DownloadManager. maxParallel <= 0 falls back
// to the default limit; stallTimeout zero disables the silent-subprocess
// watchdog.
func NewDownloadManager(store DownloadStore, registry *fetch.Registry, bus *events.Bus, notifier notify.Notifier, logger *log.Logger, maxParallel int, stallTimeout time.Duration) *DownloadManager {
	if maxParallel <= 0 {
		maxParallel = defaultMaxParallel
	}

	return &DownloadManager{
		store:        store,
		registry:     registry,
		bus:          bus,
		notifier:     notifier,
		logger:       logger,
		sem:          semaphore.NewWeighted(int64(maxParallel)),
		stallTimeout: stallTimeout,
		commands:     make(chan downloadCommand, commandBuffer),
		cancelled:    make(map[string]struct{}),
	}
}

// Enqueue admits feed items for download. It returns ErrQueueFull when the
// command channel cannot take another id; ids admitted before that point
// stay admitted.
func (m *DownloadManager) Enqueue(feedItemIDs ...string) error {
	for _, id := range feedItemIDs {
		select {
		case m.commands <- downloadCommand{kind: downloadEnqueue, feedItemID: id}:
		default:
			return fmt.Errorf("%w: download queue", shared.ErrQueueFull)
		}
	}
	return nil
}

// Cancel requests cooperative cancellation of a queued or running download.
// The request takes effect at the item's next checkpoint.
func (m *DownloadManager) Cancel(feedItemID string) error {
	select {
	case m.commands <- downloadCommand{kind: downloadCancel, feedItemID: feedItemID}:
		return nil
	default:
		return fmt.Errorf("%w: download queue", shared.ErrQueueFull)
	}
}

// Run consumes commands until the context is cancelled, then waits for
// in-flight downloads to finish. In-flight jobs are not force-aborted on
// shutdown beyond the context reaching their subprocesses.
func (m *DownloadManager) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			m.wg.Wait()
			return
		case cmd := <-m.commands:
			switch cmd.kind {
			case downloadEnqueue:
				m.wg.Add(1)
				go m.runJob(ctx, cmd.feedItemID)
			case downloadCancel:
				m.markCancelled(cmd.feedItemID)
			}
		}
	}
}

func (m *DownloadManager) markCancelled(feedItemID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cancelled[feedItemID] = struct{}{}
}

func (m *DownloadManager) isCancelled(feedItemID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.cancelled[feedItemID]
	return ok
}

func (m *DownloadManager) clearCancelled(feedItemID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.cancelled, feedItemID)
}

// runJob is one download work unit. Cancellation observed before the permit
// is acquired aborts with no side effects; after that, any failure lands the
// item in the error state with an emitted event.
func (m *DownloadManager) runJob(ctx context.Context, feedItemID string) {
	defer m.wg.Done()
	defer m.clearCancelled(feedItemID)

	if err := m.sem.Acquire(ctx, 1); err != nil {
		return
	}
	defer m.sem.Release(1)

	if m.isCancelled(feedItemID) {
		return
	}

	job, err := m.store.DownloadJob(feedItemID)
	if err != nil {
		m.fail(feedItemID, "", err)
		return
	}

	if err := runSupervised(func() error {
		return m.download(ctx, job)
	}); err != nil {
		m.fail(feedItemID, job.Title, err)
	}
}

func (m *DownloadManager) download(ctx context.Context, job *models.DownloadJob) error {
	fetcher, err := m.registry.Lookup(job.Platform)
	if err != nil {
		return err
	}

	cookiePath := ""
	if fetcher.RequiresAuth() {
		cookiePath, err = m.store.ResolveCookiePath(job.CredentialID, job.Platform)
		if err != nil {
			return err
		}
	}

	root, err := m.store.LibraryPath()
	if err != nil {
		return err
	}

	outputPath := destinationPath(root, job)
	if err := os.MkdirAll(filepath.Dir(outputPath), 0o755); err != nil {
		return fmt.Errorf("failed to create library directory: %w", err)
	}

	if err := m.store.SetDownloadStatus(job.FeedItemID, models.Downloading); err != nil {
		return err
	}
	m.bus.Publish(events.Event{Type: events.DownloadStarted, FeedItemID: job.FeedItemID})
	m.logger.Info("download started", "item", job.FeedItemID, "title", job.Title)

	dctx, stop := context.WithCancel(ctx)
	defer stop()

	// Watchdog for a subprocess that stops producing output; cooperative
	// per-line cancellation never fires on a silent stream.
	var stalled atomic.Bool
	var watchdog *time.Timer
	if m.stallTimeout > 0 {
		watchdog = time.AfterFunc(m.stallTimeout, func() {
			stalled.Store(true)
			stop()
		})
		defer watchdog.Stop()
	}

	userCancelled := false
	onLine := func(line string) {
		if watchdog != nil {
			watchdog.Reset(m.stallTimeout)
		}
		if m.isCancelled(job.FeedItemID) {
			userCancelled = true
			stop()
			return
		}
		if percent, speed, ok := parseProgressLine(line); ok {
			m.bus.Publish(events.Event{
				Type:       events.DownloadProgress,
				FeedItemID: job.FeedItemID,
				Percent:    percent,
				Speed:      speed,
			})
		}
	}

	err = fetcher.Download(dctx, job.ExternalID, outputPath, cookiePath, onLine)
	if err != nil {
		if userCancelled {
			return shared.ErrCancelled
		}
		if stalled.Load() {
			return fmt.Errorf("%w: no output for %s", shared.ErrStalled, m.stallTimeout)
		}
		return err
	}

	info, err := os.Stat(outputPath)
	if err != nil {
		return fmt.Errorf("download finished but output file is missing: %w", err)
	}

	artifact := &models.WarehouseItem{
		CreatorID:   job.CreatorID,
		FeedItemID:  job.FeedItemID,
		Title:       job.Title,
		FilePath:    outputPath,
		Platform:    job.Platform,
		OriginalURL: fetcher.ItemURL(job.ExternalID),
		PublishedAt: job.PublishedAt,
		Duration:    job.Duration,
		FileSize:    info.Size(),
	}
	if err := m.store.CreateWarehouseItem(artifact); err != nil {
		return err
	}
	if err := m.store.CompleteDownload(job.FeedItemID, artifact.ID); err != nil {
		return err
	}

	m.bus.Publish(events.Event{
		Type:            events.DownloadCompleted,
		FeedItemID:      job.FeedItemID,
		WarehouseItemID: artifact.ID,
	})
	m.notifier.DownloadCompleted(job.Title)
	m.logger.Info("download completed", "item", job.FeedItemID, "path", outputPath)
	return nil
}

// fail records a terminal download failure: persisted error status, error
// event, failure notification. Failures here are logged and dropped so one
// job cannot disturb its peers.
func (m *DownloadManager) fail(feedItemID, title string, cause error) {
	if err := m.store.SetDownloadStatus(feedItemID, models.DownloadFailed); err != nil {
		m.logger.Error("failed to record download error", "item", feedItemID, "error", err)
	}

	m.bus.Publish(events.Event{
		Type:       events.DownloadError,
		FeedItemID: feedItemID,
		Message:    cause.Error(),
	})
	m.notifier.DownloadFailed(title, cause.Error())

	if errors.Is(cause, shared.ErrCancelled) {
		m.logger.Info("download cancelled", "item", feedItemID)
	} else {
		m.logger.Error("download failed", "item", feedItemID, "error", cause)
	}
}

// destinationPath builds the deterministic library location
// {root}/{creator}/{platform}/{externalID}__{title}.mp4 with sanitized
// components.
func destinationPath(root string, job *models.DownloadJob) string {
	filename := fmt.Sprintf("%s__%s.mp4", job.ExternalID, shared.SanitizeFilename(job.Title))
	return filepath.Join(
		root,
		shared.SanitizePathComponent(job.CreatorName),
		shared.SanitizePathComponent(string(job.Platform)),
		filename,
	)
}
