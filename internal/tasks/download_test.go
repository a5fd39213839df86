package tasks

import (
	"context"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/n3ms/medialib/internal/events"
	"github.com/n3ms/medialib/internal/fetch"
	"github.com/n3ms/medialib/internal/models"
	tu "github.com/n3ms/medialib/internal/testing"
)

func testJob(feedItemID string) *models.DownloadJob {
	return &models.DownloadJob{
		FeedItemID:  feedItemID,
		ExternalID:  "ext-" + feedItemID,
		Title:       "Episode " + feedItemID,
		Platform:    models.PlatformYouTube,
		CreatorID:   "creator1",
		CreatorName: "Some Creator",
	}
}

// collectEvents drains a subscription into a slice guarded by a mutex.
func collectEvents(stream <-chan events.Event) (func() []events.Event, func()) {
	var mu sync.Mutex
	var got []events.Event
	done := make(chan struct{})

	go func() {
		for evt := range stream {
			mu.Lock()
			got = append(got, evt)
			mu.Unlock()
		}
		close(done)
	}()

	snapshot := func() []events.Event {
		mu.Lock()
		defer mu.Unlock()
		out := make([]events.Event, len(got))
		copy(out, got)
		return out
	}
	wait := func() { <-done }
	return snapshot, wait
}

func hasEvent(got []events.Event, kind events.Type, feedItemID string) bool {
	for _, evt := range got {
		if evt.Type == kind && evt.FeedItemID == feedItemID {
			return true
		}
	}
	return false
}

func TestDownloadManager_SuccessfulDownload(t *testing.T) {
	store := newFakeDownloadStore(t.TempDir())
	store.addJob(testJob("item1"))

	fetcher := &tu.MockFetcher{
		DownloadLines: []string{
			"[download] Destination: video.mp4",
			"[download]  50.0% of 100.00MiB at 5.00MiB/s ETA 00:10",
			"[download] 100% of 100.00MiB at 5.00MiB/s ETA 00:00",
		},
	}

	bus := events.NewBus()
	stream, unsubscribe := bus.Subscribe(0)
	snapshot, _ := collectEvents(stream)
	defer unsubscribe()

	notifier := &fakeNotifier{}
	m := NewDownloadManager(store, fetch.NewRegistry(fetcher), bus, notifier, testLogger(), 2, 0)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go m.Run(ctx)

	if err := m.Enqueue("item1"); err != nil {
		t.Fatalf("Enqueue failed: %v", err)
	}

	tu.Eventually(t, 2*time.Second, func() bool {
		return hasEvent(snapshot(), events.DownloadCompleted, "item1")
	}, "expected a completion event")

	history := store.statusHistory("item1")
	want := []models.DownloadStatus{models.Downloading, models.Downloaded}
	if len(history) != len(want) {
		t.Fatalf("status history = %v, want %v", history, want)
	}
	for i := range want {
		if history[i] != want[i] {
			t.Fatalf("status history = %v, want %v", history, want)
		}
	}

	store.mu.Lock()
	defer store.mu.Unlock()
	if len(store.artifacts) != 1 {
		t.Fatalf("expected 1 artifact, got %d", len(store.artifacts))
	}
	artifact := store.artifacts[0]
	if artifact.FileSize == 0 {
		t.Error("artifact file size not recorded")
	}
	if !strings.Contains(artifact.FilePath, "Some Creator") {
		t.Errorf("artifact path %q missing creator directory", artifact.FilePath)
	}
	if store.completed["item1"] != artifact.ID {
		t.Error("feed item not linked to artifact")
	}

	got := snapshot()
	if !hasEvent(got, events.DownloadStarted, "item1") {
		t.Error("missing started event")
	}
	foundProgress := false
	for _, evt := range got {
		if evt.Type == events.DownloadProgress && evt.Percent == 50.0 && evt.Speed == "5.00MiB/s" {
			foundProgress = true
		}
	}
	if !foundProgress {
		t.Error("missing parsed progress event (50.0, 5.00MiB/s)")
	}
}

func TestDownloadManager_CancelBeforePermitSkipsAdapter(t *testing.T) {
	store := newFakeDownloadStore(t.TempDir())
	store.addJob(testJob("a"))
	store.addJob(testJob("b"))
	store.addJob(testJob("c"))

	release := make(chan struct{})
	fetcher := &tu.MockFetcher{Release: release}

	bus := events.NewBus()
	stream, unsubscribe := bus.Subscribe(0)
	snapshot, _ := collectEvents(stream)
	defer unsubscribe()

	m := NewDownloadManager(store, fetch.NewRegistry(fetcher), bus, &fakeNotifier{}, testLogger(), 2, 0)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go m.Run(ctx)

	// Fill both permits, then queue and cancel a third item while it waits.
	if err := m.Enqueue("a", "b"); err != nil {
		t.Fatalf("Enqueue failed: %v", err)
	}
	tu.Eventually(t, 2*time.Second, func() bool {
		_, _, downloads := fetcher.Calls()
		return downloads == 2
	}, "expected two downloads in flight")

	if err := m.Enqueue("c"); err != nil {
		t.Fatalf("Enqueue failed: %v", err)
	}
	if err := m.Cancel("c"); err != nil {
		t.Fatalf("Cancel failed: %v", err)
	}

	close(release)

	tu.Eventually(t, 2*time.Second, func() bool {
		got := snapshot()
		return hasEvent(got, events.DownloadCompleted, "a") && hasEvent(got, events.DownloadCompleted, "b")
	}, "expected the two running downloads to complete")

	tu.Eventually(t, 2*time.Second, func() bool {
		m.mu.Lock()
		defer m.mu.Unlock()
		return len(m.cancelled) == 0
	}, "expected cancellation set to drain")

	if _, _, downloads := fetcher.Calls(); downloads != 2 {
		t.Errorf("adapter invoked %d times, want 2: cancelled item must never reach it", downloads)
	}
	if history := store.statusHistory("c"); len(history) != 0 {
		t.Errorf("cancelled item has status updates %v, want none", history)
	}
}

// gateFetcher tracks peak concurrent downloads.
type gateFetcher struct {
	tu.MockFetcher
	inFlight atomic.Int32
	peak     atomic.Int32
}

func (g *gateFetcher) Download(ctx context.Context, externalID, outputPath, cookiePath string, onLine func(string)) error {
	n := g.inFlight.Add(1)
	for {
		old := g.peak.Load()
		if n <= old || g.peak.CompareAndSwap(old, n) {
			break
		}
	}
	defer g.inFlight.Add(-1)

	return g.MockFetcher.Download(ctx, externalID, outputPath, cookiePath, onLine)
}

func TestDownloadManager_ConcurrencyLimit(t *testing.T) {
	store := newFakeDownloadStore(t.TempDir())
	ids := []string{"1", "2", "3", "4", "5"}
	for _, id := range ids {
		store.addJob(testJob(id))
	}

	release := make(chan struct{})
	fetcher := &gateFetcher{MockFetcher: tu.MockFetcher{Release: release}}

	bus := events.NewBus()
	stream, unsubscribe := bus.Subscribe(0)
	snapshot, _ := collectEvents(stream)
	defer unsubscribe()

	m := NewDownloadManager(store, fetch.NewRegistry(fetcher), bus, &fakeNotifier{}, testLogger(), 2, 0)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go m.Run(ctx)

	if err := m.Enqueue(ids...); err != nil {
		t.Fatalf("Enqueue failed: %v", err)
	}

	tu.Eventually(t, 2*time.Second, func() bool {
		return fetcher.inFlight.Load() == 2
	}, "expected two downloads to start")

	// Give the remaining three a chance to overrun the limit.
	time.Sleep(50 * time.Millisecond)
	close(release)

	tu.Eventually(t, 5*time.Second, func() bool {
		got := snapshot()
		for _, id := range ids {
			if !hasEvent(got, events.DownloadCompleted, id) {
				return false
			}
		}
		return true
	}, "expected all downloads to complete")

	if peak := fetcher.peak.Load(); peak > 2 {
		t.Errorf("observed %d concurrent downloads, limit is 2", peak)
	}
}

// streamingFetcher emits progress lines until its context is cancelled.
type streamingFetcher struct {
	tu.MockFetcher
}

func (s *streamingFetcher) Download(ctx context.Context, externalID, outputPath, cookiePath string, onLine func(string)) error {
	s.MockFetcher.Download(ctx, externalID, outputPath, cookiePath, func(string) {})

	for i := 0; i < 1000; i++ {
		if ctx.Err() != nil {
			return context.Canceled
		}
		onLine("[download]  10.0% of 100.00MiB at 1.00MiB/s ETA 01:00")
		time.Sleep(time.Millisecond)
	}
	return nil
}

func TestDownloadManager_CancelMidStream(t *testing.T) {
	store := newFakeDownloadStore(t.TempDir())
	store.addJob(testJob("item1"))

	fetcher := &streamingFetcher{}

	bus := events.NewBus()
	stream, unsubscribe := bus.Subscribe(0)
	snapshot, _ := collectEvents(stream)
	defer unsubscribe()

	m := NewDownloadManager(store, fetch.NewRegistry(fetcher), bus, &fakeNotifier{}, testLogger(), 2, 0)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go m.Run(ctx)

	if err := m.Enqueue("item1"); err != nil {
		t.Fatalf("Enqueue failed: %v", err)
	}

	tu.Eventually(t, 2*time.Second, func() bool {
		return hasEvent(snapshot(), events.DownloadStarted, "item1")
	}, "expected download to start")

	if err := m.Cancel("item1"); err != nil {
		t.Fatalf("Cancel failed: %v", err)
	}

	tu.Eventually(t, 2*time.Second, func() bool {
		return hasEvent(snapshot(), events.DownloadError, "item1")
	}, "expected an error event after cancellation")

	for _, evt := range snapshot() {
		if evt.Type == events.DownloadError && evt.FeedItemID == "item1" {
			if evt.Message != "cancelled" {
				t.Errorf("error message = %q, want %q", evt.Message, "cancelled")
			}
		}
	}

	history := store.statusHistory("item1")
	if len(history) == 0 || history[len(history)-1] != models.DownloadFailed {
		t.Errorf("status history = %v, want terminal error status", history)
	}
}

// panicFetcher simulates an internal fault in a worker unit.
type panicFetcher struct {
	tu.MockFetcher
}

func (p *panicFetcher) Download(ctx context.Context, externalID, outputPath, cookiePath string, onLine func(string)) error {
	panic("adapter exploded")
}

func TestDownloadManager_PanicBecomesErrorOutcome(t *testing.T) {
	store := newFakeDownloadStore(t.TempDir())
	store.addJob(testJob("item1"))
	store.addJob(testJob("item2"))

	fetcher := &panicFetcher{}

	bus := events.NewBus()
	stream, unsubscribe := bus.Subscribe(0)
	snapshot, _ := collectEvents(stream)
	defer unsubscribe()

	notifier := &fakeNotifier{}
	m := NewDownloadManager(store, fetch.NewRegistry(fetcher), bus, notifier, testLogger(), 2, 0)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go m.Run(ctx)

	if err := m.Enqueue("item1", "item2"); err != nil {
		t.Fatalf("Enqueue failed: %v", err)
	}

	// Both jobs fail independently; the manager loop survives.
	tu.Eventually(t, 2*time.Second, func() bool {
		got := snapshot()
		return hasEvent(got, events.DownloadError, "item1") && hasEvent(got, events.DownloadError, "item2")
	}, "expected both panicking jobs to surface error events")

	for _, id := range []string{"item1", "item2"} {
		history := store.statusHistory(id)
		if len(history) == 0 || history[len(history)-1] != models.DownloadFailed {
			t.Errorf("item %s status history = %v, want terminal error", id, history)
		}
	}

	notifier.mu.Lock()
	defer notifier.mu.Unlock()
	if len(notifier.failed) != 2 {
		t.Errorf("failure notifications = %d, want 2", len(notifier.failed))
	}
}

func TestDownloadManager_StallWatchdog(t *testing.T) {
	store := newFakeDownloadStore(t.TempDir())
	store.addJob(testJob("item1"))

	// Release is never closed: the subprocess produces no output at all
	// and only exits when its context is cancelled.
	fetcher := &tu.MockFetcher{Release: make(chan struct{})}

	bus := events.NewBus()
	stream, unsubscribe := bus.Subscribe(0)
	snapshot, _ := collectEvents(stream)
	defer unsubscribe()

	m := NewDownloadManager(store, fetch.NewRegistry(fetcher), bus, &fakeNotifier{}, testLogger(), 2, 30*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go m.Run(ctx)

	if err := m.Enqueue("item1"); err != nil {
		t.Fatalf("Enqueue failed: %v", err)
	}

	tu.Eventually(t, 2*time.Second, func() bool {
		return hasEvent(snapshot(), events.DownloadError, "item1")
	}, "expected the watchdog to fail the silent download")

	// A stall is not a user cancel and must say so.
	for _, evt := range snapshot() {
		if evt.Type == events.DownloadError && evt.FeedItemID == "item1" {
			if !strings.Contains(evt.Message, "download stalled") {
				t.Errorf("error message = %q, want a stall message", evt.Message)
			}
			if evt.Message == "cancelled" {
				t.Error("stall reported as a user cancel")
			}
		}
	}

	history := store.statusHistory("item1")
	if len(history) == 0 || history[len(history)-1] != models.DownloadFailed {
		t.Errorf("status history = %v, want terminal error status", history)
	}
}
