package tasks

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/log"

	"github.com/n3ms/medialib/internal/events"
	"github.com/n3ms/medialib/internal/fetch"
	"github.com/n3ms/medialib/internal/models"
	"github.com/n3ms/medialib/internal/notify"
)

// defaultSyncInterval paces the periodic full sync when settings carry no
// interval.
const defaultSyncInterval = 300 * time.Second

// SyncStore is the persistence surface the sync manager consumes.
type SyncStore interface {
	Source(id string) (*models.Source, error)
	ActiveSourceIDs() ([]string, error)
	SourceIDsForCreator(creatorID string) ([]string, error)
	ResolveCookiePath(credentialID string, platform models.Platform) (string, error)
	InsertFeedItems(items []models.FeedItem) (int, error)
	MarkSourceSynced(id string, syncedAt time.Time) error
	MarkSourceError(id string) error
	SyncInterval() time.Duration
}

type syncCommandKind int

const (
	syncOne syncCommandKind = iota
	syncCreator
	syncEverything
)

type syncCommand struct {
	kind syncCommandKind
	id   string
}

// SyncManager discovers new feed items. Commands and a periodic timer both
// trigger listing passes; sources within one pass run sequentially so a
// burst of sources does not hammer the remote platforms.
type SyncManager struct {
	store    SyncStore
	registry *fetch.Registry
	bus      *events.Bus
	notifier notify.Notifier
	logger   *log.Logger

	commands chan syncCommand
}

// NewSyncManager creates a SyncManager.
func NewSyncManager(store SyncStore, registry *fetch.Registry, bus *events.Bus, notifier notify.Notifier, logger *log.Logger) *SyncManager {
	return &SyncManager{
		store:    store,
		registry: registry,
		bus:      bus,
		notifier: notifier,
		logger:   logger,
		commands: make(chan syncCommand, commandBuffer),
	}
}

// SyncSource requests a sync of one source. Best effort: a saturated queue
// drops the request.
func (m *SyncManager) SyncSource(sourceID string) {
	m.send(syncCommand{kind: syncOne, id: sourceID})
}

// SyncForCreator requests a sync of every source belonging to a creator.
func (m *SyncManager) SyncForCreator(creatorID string) {
	m.send(syncCommand{kind: syncCreator, id: creatorID})
}

// SyncAll requests a sync of every active source.
func (m *SyncManager) SyncAll() {
	m.send(syncCommand{kind: syncEverything})
}

func (m *SyncManager) send(cmd syncCommand) {
	select {
	case m.commands <- cmd:
	default:
		m.logger.Warn("sync queue saturated, dropping request")
	}
}

// Run consumes commands and fires a periodic full sync until the context is
// cancelled. The interval comes from stored settings, read once at startup.
func (m *SyncManager) Run(ctx context.Context) {
	interval := m.store.SyncInterval()
	if interval <= 0 {
		interval = defaultSyncInterval
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			go m.runBatch(ctx, syncCommand{kind: syncEverything})
		case cmd := <-m.commands:
			go m.runBatch(ctx, cmd)
		}
	}
}

// runBatch resolves the target sources and syncs them one at a time. One
// source's failure never halts the remainder.
func (m *SyncManager) runBatch(ctx context.Context, cmd syncCommand) {
	var (
		ids []string
		err error
	)
	switch cmd.kind {
	case syncOne:
		ids = []string{cmd.id}
	case syncCreator:
		ids, err = m.store.SourceIDsForCreator(cmd.id)
	case syncEverything:
		ids, err = m.store.ActiveSourceIDs()
	}
	if err != nil {
		m.logger.Error("failed to resolve sync targets", "error", err)
		return
	}

	for _, sourceID := range ids {
		if ctx.Err() != nil {
			return
		}

		if err := runSupervised(func() error {
			return m.syncSource(ctx, sourceID)
		}); err != nil {
			m.fail(sourceID, err)
		}
	}
}

func (m *SyncManager) syncSource(ctx context.Context, sourceID string) error {
	m.bus.Publish(events.Event{Type: events.SyncStarted, SourceID: sourceID})

	source, err := m.store.Source(sourceID)
	if err != nil {
		return err
	}

	fetcher, err := m.registry.Lookup(source.Platform)
	if err != nil {
		return err
	}

	cookiePath := ""
	if fetcher.RequiresAuth() {
		cookiePath, err = m.store.ResolveCookiePath(source.CredentialID, source.Platform)
		if err != nil {
			return err
		}
	}

	listed, err := fetcher.ListItems(ctx, source.ChannelURL, cookiePath)
	if err != nil {
		return err
	}

	items := make([]models.FeedItem, 0, len(listed))
	for _, entry := range listed {
		items = append(items, models.FeedItem{
			SourceID:     sourceID,
			ExternalID:   entry.ExternalID,
			Title:        entry.Title,
			ThumbnailURL: entry.Thumbnail,
			PublishedAt:  entry.PublishedAt,
			Duration:     entry.Duration,
		})
	}

	newItems, err := m.store.InsertFeedItems(items)
	if err != nil {
		return err
	}

	if err := m.store.MarkSourceSynced(sourceID, time.Now().UTC()); err != nil {
		return err
	}

	m.bus.Publish(events.Event{
		Type:     events.SyncCompleted,
		SourceID: sourceID,
		NewItems: newItems,
		Message:  fmt.Sprintf("%d new items", newItems),
	})
	m.notifier.SyncCompleted(source.DisplayName(), newItems)
	m.logger.Info("sync completed", "source", sourceID, "new_items", newItems)
	return nil
}

// fail records a terminal source failure: error status plus an error event.
// The last-synced timestamp is left untouched.
func (m *SyncManager) fail(sourceID string, cause error) {
	if err := m.store.MarkSourceError(sourceID); err != nil {
		m.logger.Error("failed to record sync error", "source", sourceID, "error", err)
	}

	m.bus.Publish(events.Event{
		Type:     events.SyncError,
		SourceID: sourceID,
		Message:  cause.Error(),
	})
	m.logger.Error("sync failed", "source", sourceID, "error", cause)
}
