package tasks

import (
	"context"
	"testing"
	"time"

	"github.com/n3ms/medialib/internal/events"
	"github.com/n3ms/medialib/internal/fetch"
	"github.com/n3ms/medialib/internal/models"
	tu "github.com/n3ms/medialib/internal/testing"
)

func metadataTarget(id string) models.MetadataTarget {
	return models.MetadataTarget{
		FeedItemID: id,
		ExternalID: "ext-" + id,
		Platform:   models.PlatformYouTube,
	}
}

func fetchedItem(id string) *fetch.Item {
	published := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	duration := int64(725)
	return &fetch.Item{
		ExternalID:  "ext-" + id,
		Title:       "Video " + id,
		Thumbnail:   "https://example.com/" + id + ".jpg",
		Duration:    &duration,
		PublishedAt: &published,
	}
}

func startMetadata(t *testing.T, store *fakeMetadataStore, fetcher *tu.MockFetcher, sweepInterval time.Duration) (*MetadataWorker, func() []events.Event) {
	t.Helper()

	bus := events.NewBus()
	stream, unsubscribe := bus.Subscribe(0)
	snapshot, _ := collectEvents(stream)
	t.Cleanup(unsubscribe)

	w := NewMetadataWorker(store, fetch.NewRegistry(fetcher), bus, testLogger(), sweepInterval, 5)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go w.Run(ctx)

	return w, snapshot
}

func TestMetadataWorker_SweepBackfillsIncompleteItems(t *testing.T) {
	store := newFakeMetadataStore()
	store.incomplete = []models.MetadataTarget{metadataTarget("item1")}

	fetcher := &tu.MockFetcher{ItemResult: fetchedItem("item1")}
	_, snapshot := startMetadata(t, store, fetcher, 20*time.Millisecond)

	tu.Eventually(t, 2*time.Second, func() bool {
		return store.mergedCount() == 1
	}, "expected the sweep to merge metadata")

	store.mu.Lock()
	thumb := store.merged["item1"]
	store.mu.Unlock()
	if thumb != "https://example.com/item1.jpg" {
		t.Errorf("merged thumbnail = %q", thumb)
	}

	tu.Eventually(t, 2*time.Second, func() bool {
		for _, evt := range snapshot() {
			if evt.Type == events.MetadataUpdate && evt.FeedItemID == "item1" && evt.Status == "completed" {
				return true
			}
		}
		return false
	}, "expected a completed metadata event")
}

func TestMetadataWorker_PauseBlocksSweep(t *testing.T) {
	store := newFakeMetadataStore()
	store.incomplete = []models.MetadataTarget{metadataTarget("item1")}

	fetcher := &tu.MockFetcher{ItemResult: fetchedItem("item1")}
	w, _ := startMetadata(t, store, fetcher, 20*time.Millisecond)

	if err := w.Pause(); err != nil {
		t.Fatalf("pause: %v", err)
	}
	tu.Eventually(t, 2*time.Second, func() bool { return w.Paused() }, "pause never took effect")

	time.Sleep(100 * time.Millisecond)
	if calls := store.sweepCalls(); calls != 0 {
		t.Errorf("sweep ran %d times while paused", calls)
	}

	if err := w.Resume(); err != nil {
		t.Fatalf("resume: %v", err)
	}
	tu.Eventually(t, 2*time.Second, func() bool {
		return store.mergedCount() == 1
	}, "expected the sweep to resume after Resume")
}

func TestMetadataWorker_FetchNowMergesAndReportsMissing(t *testing.T) {
	store := newFakeMetadataStore()
	target := metadataTarget("item1")
	store.targets["item1"] = &target

	fetcher := &tu.MockFetcher{ItemResult: fetchedItem("item1")}
	// Long interval keeps the background sweep out of the picture.
	w, snapshot := startMetadata(t, store, fetcher, time.Hour)

	if err := w.FetchNow("item1", "missing"); err != nil {
		t.Fatalf("fetch now: %v", err)
	}

	tu.Eventually(t, 2*time.Second, func() bool {
		return store.mergedCount() == 1
	}, "expected the explicit fetch to merge metadata")

	tu.Eventually(t, 2*time.Second, func() bool {
		var completed, failed bool
		for _, evt := range snapshot() {
			if evt.Type != events.MetadataUpdate {
				continue
			}
			if evt.FeedItemID == "item1" && evt.Status == "completed" {
				completed = true
			}
			if evt.FeedItemID == "missing" && evt.Status == "error" {
				failed = true
			}
		}
		return completed && failed
	}, "expected a completed event for item1 and an error event for the unknown id")
}

func TestMetadataWorker_UserPauseSurvivesFetchNow(t *testing.T) {
	store := newFakeMetadataStore()
	store.incomplete = []models.MetadataTarget{metadataTarget("item2")}
	target := metadataTarget("item1")
	store.targets["item1"] = &target

	fetcher := &tu.MockFetcher{ItemResult: fetchedItem("item1")}
	w, _ := startMetadata(t, store, fetcher, 20*time.Millisecond)

	if err := w.Pause(); err != nil {
		t.Fatalf("pause: %v", err)
	}
	tu.Eventually(t, 2*time.Second, func() bool { return w.Paused() }, "pause never took effect")

	if err := w.FetchNow("item1"); err != nil {
		t.Fatalf("fetch now: %v", err)
	}
	tu.Eventually(t, 2*time.Second, func() bool {
		return store.mergedCount() == 1
	}, "explicit fetch must run while paused")

	if !w.Paused() {
		t.Error("explicit batch lifted the user pause")
	}
	time.Sleep(100 * time.Millisecond)
	if calls := store.sweepCalls(); calls != 0 {
		t.Errorf("sweep ran %d times while still paused", calls)
	}
}

func TestMetadataWorker_ExplicitBatchSuspendsSweep(t *testing.T) {
	store := newFakeMetadataStore()
	store.incomplete = []models.MetadataTarget{metadataTarget("item2")}
	target := metadataTarget("item1")
	store.targets["item1"] = &target

	release := make(chan struct{})
	fetcher := &tu.MockFetcher{ItemResult: fetchedItem("item1"), ItemRelease: release}
	w, _ := startMetadata(t, store, fetcher, 20*time.Millisecond)

	// The command is queued before the first tick fires, so the hold is in
	// place when the ticker starts skipping.
	if err := w.FetchNow("item1"); err != nil {
		t.Fatalf("fetch now: %v", err)
	}

	tu.Eventually(t, 2*time.Second, func() bool {
		_, item, _ := fetcher.Calls()
		return item == 1
	}, "explicit fetch never reached the adapter")

	time.Sleep(100 * time.Millisecond)
	if calls := store.sweepCalls(); calls != 0 {
		t.Errorf("sweep ran %d times during an explicit batch", calls)
	}

	close(release)
	tu.Eventually(t, 2*time.Second, func() bool {
		return store.mergedCount() == 2
	}, "expected the sweep to resume after the batch drained")
}
