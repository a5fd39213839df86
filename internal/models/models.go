// package models defines the data model for the media library service
package models

import (
	"fmt"
	"time"
)

// Platform identifies a supported remote content platform.
type Platform string

const (
	PlatformYouTube Platform = "youtube"
	PlatformPatreon Platform = "patreon"
)

// Valid reports whether the platform is one the service supports.
func (p Platform) Valid() bool {
	return p == PlatformYouTube || p == PlatformPatreon
}

func (p Platform) String() string { return string(p) }

// SourceStatus is the sync lifecycle state of a source.
type SourceStatus string

const (
	SourcePending   SourceStatus = "pending"
	SourceValidated SourceStatus = "validated"
	SourceError     SourceStatus = "error"
)

// DownloadStatus is the persisted download lifecycle state of a feed item.
//
// The only legal persisted sequence is a prefix of
// not_downloaded -> downloading -> downloaded|error.
type DownloadStatus string

const (
	NotDownloaded  DownloadStatus = "not_downloaded"
	Downloading    DownloadStatus = "downloading"
	Downloaded     DownloadStatus = "downloaded"
	DownloadFailed DownloadStatus = "error"
)

// Creator is an owner grouping sources and warehouse items.
type Creator struct {
	ID        string
	Name      string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Credential is stored cookie-file authentication material for a platform.
// At most one credential per platform carries IsDefault.
type Credential struct {
	ID         string
	Label      string
	Platform   Platform
	CookiePath string
	IsDefault  bool
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// Source is a subscription to a remote channel or feed.
type Source struct {
	ID           string
	CreatorID    string
	Platform     Platform
	ChannelURL   string
	ChannelName  string // optional display name
	CredentialID string // optional explicit credential reference
	Status       SourceStatus
	LastSyncedAt *time.Time
	CreatedAt    time.Time
}

// DisplayName returns the channel name, falling back to the URL.
func (s *Source) DisplayName() string {
	if s.ChannelName != "" {
		return s.ChannelName
	}
	return s.ChannelURL
}

// FeedItem is one discovered remote entry belonging to a source.
// (SourceID, ExternalID) is unique; rediscovery is a no-op.
type FeedItem struct {
	ID               string
	SourceID         string
	ExternalID       string
	Title            string
	ThumbnailURL     string
	PublishedAt      *time.Time
	Duration         *int64 // seconds
	DownloadStatus   DownloadStatus
	MetadataComplete bool
	WarehouseItemID  string
	CreatedAt        time.Time
}

// WarehouseItem is a locally materialized media file. Created once per
// successful download or manual import; only the feed item back-link is
// mutated afterwards.
type WarehouseItem struct {
	ID             string
	CreatorID      string
	FeedItemID     string
	Title          string
	FilePath       string
	Platform       Platform
	OriginalURL    string
	PublishedAt    *time.Time
	Duration       *int64
	FileSize       int64
	ImportedAt     time.Time
	IsManualImport bool
}

// Validate checks the fields a warehouse item must carry before insertion.
func (w *WarehouseItem) Validate() error {
	if w.CreatorID == "" {
		return fmt.Errorf("warehouse item requires a creator")
	}
	if w.Title == "" {
		return fmt.Errorf("warehouse item requires a title")
	}
	if w.FilePath == "" {
		return fmt.Errorf("warehouse item requires a file path")
	}
	return nil
}

// AppSettings is the singleton preferences row.
type AppSettings struct {
	LibraryPath          string
	DefaultQuality       string
	SyncIntervalSeconds  int
	FirstRunCompleted    bool
	NotificationsEnabled bool
}

// DownloadJob is the join of feed item, source, and creator a download needs.
type DownloadJob struct {
	FeedItemID   string
	ExternalID   string
	Title        string
	Platform     Platform
	CredentialID string // explicit source credential, may be empty
	CreatorID    string
	CreatorName  string
	PublishedAt  *time.Time
	Duration     *int64
}

// MetadataTarget carries what a metadata fetch needs for one feed item.
type MetadataTarget struct {
	FeedItemID   string
	ExternalID   string
	Platform     Platform
	CredentialID string // explicit source credential, may be empty
}
