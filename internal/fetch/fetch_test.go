package fetch

import (
	"testing"
	"time"

	"github.com/n3ms/medialib/internal/models"
)

func TestParseListingDropsUnusableRows(t *testing.T) {
	data := []byte(`
{"id": "v1", "title": "First Video", "duration": 725.4, "upload_date": "20240301"}
{"id": "", "title": "No ID"}
{"id": "v2", "title": ""}
not json at all
{"id": "v3", "title": "Third Video", "thumbnails": [{"url": "https://i.ytimg.com/v3.jpg"}]}
`)

	items := parseListing(data, normalizeYouTubeRow)
	if len(items) != 2 {
		t.Fatalf("parsed %d items, want 2", len(items))
	}

	first := items[0]
	if first.ExternalID != "v1" || first.Title != "First Video" {
		t.Errorf("first item = %+v", first)
	}
	if first.Duration == nil || *first.Duration != 725 {
		t.Errorf("duration = %v, want 725", first.Duration)
	}
	want := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	if first.PublishedAt == nil || !first.PublishedAt.Equal(want) {
		t.Errorf("published at = %v, want %v", first.PublishedAt, want)
	}

	if items[1].Thumbnail != "https://i.ytimg.com/v3.jpg" {
		t.Errorf("thumbnail fallback = %q", items[1].Thumbnail)
	}
}

func TestParseSingleRejectsIncompleteMetadata(t *testing.T) {
	if _, err := parseSingle([]byte(`{"id": "", "title": "Orphan"}`), normalizeYouTubeRow); err == nil {
		t.Error("expected an error for a row without an id")
	}
	if _, err := parseSingle([]byte(`{broken`), normalizeYouTubeRow); err == nil {
		t.Error("expected an error for malformed JSON")
	}

	item, err := parseSingle([]byte(`{"id": "v1", "title": "First Video"}`), normalizeYouTubeRow)
	if err != nil {
		t.Fatalf("parse single: %v", err)
	}
	if item.ExternalID != "v1" {
		t.Errorf("external id = %q", item.ExternalID)
	}
}

func TestParseUploadDate(t *testing.T) {
	cases := []struct {
		in   string
		want *time.Time
	}{
		{"20240301", timePtr(time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC))},
		{"2024030", nil},
		{"20241301", nil},
		{"", nil},
	}

	for _, tc := range cases {
		got := parseUploadDate(tc.in)
		switch {
		case tc.want == nil && got != nil:
			t.Errorf("parseUploadDate(%q) = %v, want nil", tc.in, got)
		case tc.want != nil && (got == nil || !got.Equal(*tc.want)):
			t.Errorf("parseUploadDate(%q) = %v, want %v", tc.in, got, tc.want)
		}
	}
}

func TestListingRowTimestampFallback(t *testing.T) {
	ts := int64(1709251200) // 2024-03-01T00:00:00Z
	row := &listingRow{Timestamp: &ts}
	got := row.publishedAt()
	if got == nil || !got.Equal(time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("publishedAt from timestamp = %v", got)
	}

	row = &listingRow{ReleaseTimestamp: &ts}
	if got := row.publishedAt(); got == nil {
		t.Error("release_timestamp fallback not applied")
	}

	row = &listingRow{}
	if got := row.publishedAt(); got != nil {
		t.Errorf("publishedAt with no date fields = %v, want nil", got)
	}
}

func TestRegistryLookup(t *testing.T) {
	registry := DefaultRegistry(NewRunner("yt-dlp"))

	fetcher, err := registry.Lookup(models.PlatformYouTube)
	if err != nil {
		t.Fatalf("lookup youtube: %v", err)
	}
	if fetcher.Platform() != models.PlatformYouTube {
		t.Errorf("platform = %q", fetcher.Platform())
	}

	if _, err := registry.Lookup(models.Platform("vimeo")); err == nil {
		t.Error("expected an error for an unregistered platform")
	}
}

func timePtr(t time.Time) *time.Time { return &t }
