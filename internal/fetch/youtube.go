package fetch

import (
	"context"
	"fmt"

	"github.com/n3ms/medialib/internal/models"
)

// YouTubeFetcher lists and downloads from YouTube channels. Listing is
// unauthenticated; the cookiePath arguments are ignored.
type YouTubeFetcher struct {
	runner *Runner
}

// NewYouTubeFetcher creates a YouTubeFetcher using the given tool runner.
func NewYouTubeFetcher(runner *Runner) *YouTubeFetcher {
	return &YouTubeFetcher{runner: runner}
}

func (f *YouTubeFetcher) Platform() models.Platform { return models.PlatformYouTube }

func (f *YouTubeFetcher) RequiresAuth() bool { return false }

// ItemURL builds the watch URL for a video id.
func (f *YouTubeFetcher) ItemURL(externalID string) string {
	return fmt.Sprintf("https://www.youtube.com/watch?v=%s", externalID)
}

// ListItems fetches the flat channel listing, one JSON object per video.
func (f *YouTubeFetcher) ListItems(ctx context.Context, channelURL, _ string) ([]Item, error) {
	out, err := f.runner.Output(ctx,
		"--flat-playlist",
		"--dump-json",
		"--no-warnings",
		channelURL,
	)
	if err != nil {
		return nil, err
	}

	return parseListing(out, normalizeYouTubeRow), nil
}

// FetchItem fetches full metadata for one video, including the accurate
// published date flat-playlist mode omits.
func (f *YouTubeFetcher) FetchItem(ctx context.Context, externalID, _ string) (*Item, error) {
	out, err := f.runner.Output(ctx,
		"--dump-json",
		"--no-download",
		"--no-warnings",
		f.ItemURL(externalID),
	)
	if err != nil {
		return nil, err
	}

	return parseSingle(out, normalizeYouTubeRow)
}

// Download streams a video download, one progress line per callback.
func (f *YouTubeFetcher) Download(ctx context.Context, externalID, outputPath, _ string, onLine func(string)) error {
	return f.runner.Stream(ctx, onLine,
		"-f", downloadFormat,
		"-o", outputPath,
		"--newline",
		"--no-warnings",
		f.ItemURL(externalID),
	)
}

func normalizeYouTubeRow(row *listingRow) *Item {
	if row.ID == "" || row.Title == "" {
		return nil
	}
	return &Item{
		ExternalID:  row.ID,
		Title:       row.Title,
		Thumbnail:   row.thumbnailURL(),
		Duration:    row.durationSeconds(),
		PublishedAt: row.publishedAt(),
	}
}
