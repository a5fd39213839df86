package fetch

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/n3ms/medialib/internal/models"
	"github.com/n3ms/medialib/internal/shared"
)

// patreonListingLimit caps a creator listing to the most recent posts.
const patreonListingLimit = "50"

// PatreonFetcher lists and downloads from Patreon creators. Every call needs
// a Netscape-format cookie file for authentication.
type PatreonFetcher struct {
	runner *Runner
}

// NewPatreonFetcher creates a PatreonFetcher using the given tool runner.
func NewPatreonFetcher(runner *Runner) *PatreonFetcher {
	return &PatreonFetcher{runner: runner}
}

func (f *PatreonFetcher) Platform() models.Platform { return models.PlatformPatreon }

func (f *PatreonFetcher) RequiresAuth() bool { return true }

// ItemURL builds the post URL for a post id.
func (f *PatreonFetcher) ItemURL(externalID string) string {
	return fmt.Sprintf("https://www.patreon.com/posts/%s", externalID)
}

// ListItems fetches the creator's post listing. The URL is normalized to end
// in /posts, which is where the playlist extractor lives.
func (f *PatreonFetcher) ListItems(ctx context.Context, creatorURL, cookiePath string) ([]Item, error) {
	if cookiePath == "" {
		return nil, shared.ErrCredentialMissing
	}

	url := creatorURL
	if !strings.HasSuffix(url, "/posts") {
		url = strings.TrimRight(url, "/") + "/posts"
	}

	out, err := f.runner.Output(ctx,
		"--flat-playlist",
		"--dump-json",
		"--no-warnings",
		"--cookies", cookiePath,
		"--playlist-end", patreonListingLimit,
		url,
	)
	if err != nil {
		return nil, err
	}

	return parseListing(out, normalizePatreonRow), nil
}

// FetchItem fetches full metadata for one post.
func (f *PatreonFetcher) FetchItem(ctx context.Context, externalID, cookiePath string) (*Item, error) {
	if cookiePath == "" {
		return nil, shared.ErrCredentialMissing
	}

	out, err := f.runner.Output(ctx,
		"--dump-json",
		"--no-download",
		"--no-warnings",
		"--cookies", cookiePath,
		f.ItemURL(externalID),
	)
	if err != nil {
		return nil, err
	}

	return parseSingle(out, normalizePatreonRow)
}

// Download streams a post download, one progress line per callback.
func (f *PatreonFetcher) Download(ctx context.Context, externalID, outputPath, cookiePath string, onLine func(string)) error {
	if cookiePath == "" {
		return shared.ErrCredentialMissing
	}

	return f.runner.Stream(ctx, onLine,
		"-f", downloadFormat,
		"-o", outputPath,
		"--newline",
		"--no-warnings",
		"--cookies", cookiePath,
		f.ItemURL(externalID),
	)
}

// normalizePatreonRow accepts rows whose title must sometimes be derived
// from the post URL slug, since the extractor omits titles for some posts.
func normalizePatreonRow(row *listingRow) *Item {
	if row.ID == "" {
		return nil
	}

	title := row.Title
	if title == "" {
		title = titleFromSlug(row.WebpageURLBasename)
	}
	if title == "" {
		return nil
	}

	return &Item{
		ExternalID:  row.ID,
		Title:       title,
		Thumbnail:   row.thumbnailURL(),
		Duration:    row.durationSeconds(),
		PublishedAt: row.publishedAt(),
	}
}

// titleFromSlug recovers a display title from a post URL basename like
// "spring-update-23710390": the trailing numeric id is dropped, dashes
// become spaces, and each word is capitalized.
func titleFromSlug(basename string) string {
	if basename == "" {
		return ""
	}

	slug := basename
	if idx := strings.LastIndex(slug, "-"); idx > 0 {
		if _, err := strconv.ParseUint(slug[idx+1:], 10, 64); err == nil {
			slug = slug[:idx]
		}
	}

	words := strings.Fields(strings.ReplaceAll(slug, "-", " "))
	for i, word := range words {
		r := []rune(word)
		words[i] = strings.ToUpper(string(r[:1])) + string(r[1:])
	}
	return strings.Join(words, " ")
}
