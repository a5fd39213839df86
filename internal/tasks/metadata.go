package tasks

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/time/rate"

	"github.com/n3ms/medialib/internal/events"
	"github.com/n3ms/medialib/internal/fetch"
	"github.com/n3ms/medialib/internal/models"
	"github.com/n3ms/medialib/internal/shared"
)

const (
	// defaultSweepInterval paces the background pass over items with
	// incomplete metadata.
	defaultSweepInterval = 5 * time.Second

	// defaultMetadataBatch bounds one background sweep.
	defaultMetadataBatch = 5

	// sweepItemDelay and immediateItemDelay are the per-item pacing gaps;
	// explicit requests get the shorter one.
	sweepItemDelay     = time.Second
	immediateItemDelay = 500 * time.Millisecond
)

// MetadataStore is the persistence surface the metadata worker consumes.
type MetadataStore interface {
	IncompleteMetadata(limit int) ([]models.MetadataTarget, error)
	MetadataTarget(feedItemID string) (*models.MetadataTarget, error)
	ResolveCookiePath(credentialID string, platform models.Platform) (string, error)
	MergeMetadata(feedItemID string, publishedAt *time.Time, duration *int64, thumbnail string) error
}

type metadataCommandKind int

const (
	metadataFetchNow metadataCommandKind = iota
	metadataPause
	metadataResume
)

type metadataCommand struct {
	kind        metadataCommandKind
	feedItemIDs []string
}

// MetadataWorker backfills feed item metadata. A periodic sweep walks items
// with the completeness flag unset, newest first; FetchNow jumps the queue
// for specific items and suspends the sweep while its batch runs. A user
// Pause stays in effect until Resume regardless of intervening FetchNow
// batches.
type MetadataWorker struct {
	store    MetadataStore
	registry *fetch.Registry
	bus      *events.Bus
	logger   *log.Logger

	commands      chan metadataCommand
	sweepInterval time.Duration
	batchSize     int

	paused  atomic.Bool  // user-requested pause
	holding atomic.Int32 // immediate batches in flight

	// runMu serializes adapter access between the sweep and immediate
	// batches.
	runMu sync.Mutex

	sweepLimiter     *rate.Limiter
	immediateLimiter *rate.Limiter
}

// NewMetadataWorker creates a MetadataWorker. Non-positive interval or batch
// size fall back to the defaults.
func NewMetadataWorker(store MetadataStore, registry *fetch.Registry, bus *events.Bus, logger *log.Logger, sweepInterval time.Duration, batchSize int) *MetadataWorker {
	if sweepInterval <= 0 {
		sweepInterval = defaultSweepInterval
	}
	if batchSize <= 0 {
		batchSize = defaultMetadataBatch
	}

	return &MetadataWorker{
		store:            store,
		registry:         registry,
		bus:              bus,
		logger:           logger,
		commands:         make(chan metadataCommand, commandBuffer),
		sweepInterval:    sweepInterval,
		batchSize:        batchSize,
		sweepLimiter:     rate.NewLimiter(rate.Every(sweepItemDelay), 1),
		immediateLimiter: rate.NewLimiter(rate.Every(immediateItemDelay), 1),
	}
}

// FetchNow requests an immediate metadata fetch for specific items. Returns
// ErrQueueFull when the command channel is saturated.
func (w *MetadataWorker) FetchNow(feedItemIDs ...string) error {
	select {
	case w.commands <- metadataCommand{kind: metadataFetchNow, feedItemIDs: feedItemIDs}:
		return nil
	default:
		return fmt.Errorf("%w: metadata queue", shared.ErrQueueFull)
	}
}

// Pause suspends background sweeps until Resume.
func (w *MetadataWorker) Pause() error {
	select {
	case w.commands <- metadataCommand{kind: metadataPause}:
		return nil
	default:
		return fmt.Errorf("%w: metadata queue", shared.ErrQueueFull)
	}
}

// Resume lifts a user pause.
func (w *MetadataWorker) Resume() error {
	select {
	case w.commands <- metadataCommand{kind: metadataResume}:
		return nil
	default:
		return fmt.Errorf("%w: metadata queue", shared.ErrQueueFull)
	}
}

// Paused reports whether a user pause is in effect.
func (w *MetadataWorker) Paused() bool {
	return w.paused.Load()
}

// Run consumes commands and ticks the background sweep until the context is
// cancelled.
func (w *MetadataWorker) Run(ctx context.Context) {
	ticker := time.NewTicker(w.sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if w.paused.Load() || w.holding.Load() > 0 {
				continue
			}
			go w.sweep(ctx)
		case cmd := <-w.commands:
			switch cmd.kind {
			case metadataFetchNow:
				// The hold suspends sweeps for the batch duration
				// without clobbering a user pause.
				w.holding.Add(1)
				go w.immediate(ctx, cmd.feedItemIDs)
			case metadataPause:
				w.paused.Store(true)
			case metadataResume:
				w.paused.Store(false)
			}
		}
	}
}

// sweep processes one background batch. A sweep still running when the next
// tick fires makes the new tick a no-op.
func (w *MetadataWorker) sweep(ctx context.Context) {
	if !w.runMu.TryLock() {
		return
	}
	defer w.runMu.Unlock()

	targets, err := w.store.IncompleteMetadata(w.batchSize)
	if err != nil {
		w.logger.Error("failed to list items for metadata sweep", "error", err)
		return
	}

	for i := range targets {
		if ctx.Err() != nil {
			return
		}
		if w.paused.Load() || w.holding.Load() > 0 {
			return
		}
		if err := w.sweepLimiter.Wait(ctx); err != nil {
			return
		}
		w.fetchOne(ctx, &targets[i])
	}
}

// immediate processes an explicit batch sequentially with tighter pacing.
func (w *MetadataWorker) immediate(ctx context.Context, feedItemIDs []string) {
	defer w.holding.Add(-1)

	w.runMu.Lock()
	defer w.runMu.Unlock()

	for _, id := range feedItemIDs {
		if ctx.Err() != nil {
			return
		}
		if err := w.immediateLimiter.Wait(ctx); err != nil {
			return
		}

		target, err := w.store.MetadataTarget(id)
		if err != nil {
			w.publishStatus(id, "error", err.Error())
			continue
		}
		w.fetchOne(ctx, target)
	}
}

// fetchOne fetches and merges metadata for a single item. Per-item failures
// are terminal for the item only.
func (w *MetadataWorker) fetchOne(ctx context.Context, target *models.MetadataTarget) {
	w.publishStatus(target.FeedItemID, "started", "")

	err := runSupervised(func() error {
		fetcher, err := w.registry.Lookup(target.Platform)
		if err != nil {
			return err
		}

		cookiePath := ""
		if fetcher.RequiresAuth() {
			cookiePath, err = w.store.ResolveCookiePath(target.CredentialID, target.Platform)
			if err != nil {
				return err
			}
		}

		item, err := fetcher.FetchItem(ctx, target.ExternalID, cookiePath)
		if err != nil {
			return err
		}

		return w.store.MergeMetadata(target.FeedItemID, item.PublishedAt, item.Duration, item.Thumbnail)
	})
	if err != nil {
		w.publishStatus(target.FeedItemID, "error", err.Error())
		w.logger.Error("metadata fetch failed", "item", target.FeedItemID, "error", err)
		return
	}

	w.publishStatus(target.FeedItemID, "completed", "")
}

func (w *MetadataWorker) publishStatus(feedItemID, status, message string) {
	w.bus.Publish(events.Event{
		Type:       events.MetadataUpdate,
		FeedItemID: feedItemID,
		Status:     status,
		Message:    message,
	})
}
