package fetch

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/n3ms/medialib/internal/models"
	"github.com/n3ms/medialib/internal/shared"
)

// downloadFormat is the format selector passed to every download invocation.
const downloadFormat = "bestvideo[ext=mp4]+bestaudio[ext=m4a]/best[ext=mp4]/best"

// Item is one normalized remote entry produced by a listing or metadata call.
type Item struct {
	ExternalID  string
	Title       string
	Thumbnail   string
	Duration    *int64 // seconds
	PublishedAt *time.Time
}

// Fetcher is implemented once per supported platform.
type Fetcher interface {
	// Platform returns the platform tag this fetcher serves.
	Platform() models.Platform

	// RequiresAuth reports whether listing and metadata calls need a
	// cookie file.
	RequiresAuth() bool

	// ItemURL builds the canonical watch/post URL for an external id.
	ItemURL(externalID string) string

	// ListItems fetches the channel or feed listing.
	ListItems(ctx context.Context, channelURL, cookiePath string) ([]Item, error)

	// FetchItem fetches full metadata for a single entry.
	FetchItem(ctx context.Context, externalID, cookiePath string) (*Item, error)

	// Download runs a long-lived download, streaming raw progress lines
	// to onLine. Cancelling the context terminates the subprocess.
	Download(ctx context.Context, externalID, outputPath, cookiePath string, onLine func(string)) error
}

// Registry holds one Fetcher per platform.
type Registry struct {
	fetchers map[models.Platform]Fetcher
}

// NewRegistry creates a Registry from the given fetchers.
func NewRegistry(fetchers ...Fetcher) *Registry {
	r := &Registry{fetchers: make(map[models.Platform]Fetcher, len(fetchers))}
	for _, f := range fetchers {
		r.fetchers[f.Platform()] = f
	}
	return r
}

// DefaultRegistry creates a Registry with the two supported platforms wired
// to the given tool runner.
func DefaultRegistry(runner *Runner) *Registry {
	return NewRegistry(NewYouTubeFetcher(runner), NewPatreonFetcher(runner))
}

// Lookup returns the fetcher for a platform tag.
func (r *Registry) Lookup(platform models.Platform) (Fetcher, error) {
	f, ok := r.fetchers[platform]
	if !ok {
		return nil, fmt.Errorf("%w: %s", shared.ErrUnknownPlatform, platform)
	}
	return f, nil
}

// listingRow mirrors the yt-dlp JSON fields the service reads. Listing mode
// emits one object per line; single-item mode emits one document.
type listingRow struct {
	ID         string `json:"id"`
	Title      string `json:"title"`
	Thumbnail  string `json:"thumbnail"`
	Thumbnails []struct {
		URL string `json:"url"`
	} `json:"thumbnails"`
	Duration           *float64 `json:"duration"`
	UploadDate         string   `json:"upload_date"`
	Timestamp          *int64   `json:"timestamp"`
	ReleaseTimestamp   *int64   `json:"release_timestamp"`
	WebpageURLBasename string   `json:"webpage_url_basename"`
}

// thumbnailURL returns the direct thumbnail, falling back to the first of
// the thumbnails array.
func (row *listingRow) thumbnailURL() string {
	if row.Thumbnail != "" {
		return row.Thumbnail
	}
	if len(row.Thumbnails) > 0 {
		return row.Thumbnails[0].URL
	}
	return ""
}

// publishedAt resolves the published date: upload_date (YYYYMMDD) first,
// then the timestamp fields flat-playlist mode uses instead.
func (row *listingRow) publishedAt() *time.Time {
	if t := parseUploadDate(row.UploadDate); t != nil {
		return t
	}
	ts := row.Timestamp
	if ts == nil {
		ts = row.ReleaseTimestamp
	}
	if ts == nil {
		return nil
	}
	t := time.Unix(*ts, 0).UTC()
	return &t
}

// durationSeconds truncates the float duration yt-dlp reports.
func (row *listingRow) durationSeconds() *int64 {
	if row.Duration == nil {
		return nil
	}
	d := int64(*row.Duration)
	return &d
}

// parseUploadDate converts a YYYYMMDD string to UTC midnight.
func parseUploadDate(s string) *time.Time {
	if len(s) != 8 {
		return nil
	}
	t, err := time.Parse("20060102", s)
	if err != nil {
		return nil
	}
	t = t.UTC()
	return &t
}

// parseListing decodes newline-delimited JSON into normalized items,
// dropping malformed rows and rows without an id or title.
func parseListing(data []byte, normalize func(*listingRow) *Item) []Item {
	var items []Item
	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		var row listingRow
		if err := json.Unmarshal([]byte(line), &row); err != nil {
			continue
		}

		if item := normalize(&row); item != nil {
			items = append(items, *item)
		}
	}
	return items
}

// parseSingle decodes one JSON document into a normalized item.
func parseSingle(data []byte, normalize func(*listingRow) *Item) (*Item, error) {
	var row listingRow
	if err := json.Unmarshal(data, &row); err != nil {
		return nil, fmt.Errorf("failed to parse metadata: %w", err)
	}

	item := normalize(&row)
	if item == nil {
		return nil, fmt.Errorf("%w: metadata response missing id or title", shared.ErrToolFailed)
	}
	return item, nil
}
