// Package events carries lifecycle notifications from the background
// workers to display layers. Publishing is fire-and-forget: a subscriber
// that is absent or has a full buffer misses the event, and the worker
// never blocks on it.
package events

import "sync"

// Type names an event kind on the wire.
type Type string

const (
	DownloadStarted   Type = "download_started"
	DownloadProgress  Type = "download_progress"
	DownloadCompleted Type = "download_completed"
	DownloadError     Type = "download_error"
	SyncStarted       Type = "sync_started"
	SyncCompleted     Type = "sync_completed"
	SyncError         Type = "sync_error"
	MetadataUpdate    Type = "metadata_update"
)

// Event is one lifecycle notification. Fields beyond Type are populated per
// kind; unused fields stay zero.
type Event struct {
	Type            Type
	FeedItemID      string
	SourceID        string
	WarehouseItemID string
	Percent         float64
	Speed           string
	NewItems        int
	Status          string // metadata_update: started|completed|error
	Message         string
}

// Bus fans events out to subscribers.
type Bus struct {
	mu   sync.RWMutex
	subs map[int]chan Event
	next int
}

// NewBus creates an empty Bus.
func NewBus() *Bus {
	return &Bus{subs: make(map[int]chan Event)}
}

// Publish delivers the event to every subscriber without blocking.
func (b *Bus) Publish(evt Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for _, ch := range b.subs {
		select {
		case ch <- evt:
		default:
			// Subscriber is not keeping up, drop the event.
		}
	}
}

// Subscribe registers a buffered subscription. The returned cancel func
// removes the subscription and closes the channel.
func (b *Bus) Subscribe(buffer int) (<-chan Event, func()) {
	if buffer <= 0 {
		buffer = 64
	}

	b.mu.Lock()
	id := b.next
	b.next++
	ch := make(chan Event, buffer)
	b.subs[id] = ch
	b.mu.Unlock()

	cancel := func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		if sub, ok := b.subs[id]; ok {
			delete(b.subs, id)
			close(sub)
		}
	}

	return ch, cancel
}
