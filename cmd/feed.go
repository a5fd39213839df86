package main

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/n3ms/medialib/internal/events"
	"github.com/n3ms/medialib/internal/formatter"
	"github.com/n3ms/medialib/internal/models"
	"github.com/n3ms/medialib/internal/shared"
)

// FeedList lists a source's feed items, optionally exporting them to CSV.
func (r *Runner) FeedList(ctx context.Context, cmd *cli.Command) error {
	sourceID := cmd.StringArg("source")
	if sourceID == "" {
		return fmt.Errorf("%w: source id", shared.ErrMissingArgument)
	}

	store, closeStore, err := r.openStore(cmd)
	if err != nil {
		return err
	}
	defer closeStore()

	items, err := store.FeedItemsBySource(sourceID)
	if err != nil {
		return err
	}

	if csvPath := cmd.String("csv"); csvPath != "" {
		written, err := formatter.ExportFeedCSV(sourceID, items, csvPath)
		if err != nil {
			return err
		}
		r.writePlain("feed exported to %s\n", written)
	}

	if cmd.Bool("json") {
		return r.writeJSON(items)
	}
	return r.writePlain("%s", formatter.FeedItemsTable(items))
}

// FeedDownload downloads feed items into the library and blocks until every
// requested item reports a terminal event. Interrupting the command cancels
// the in-flight subprocesses.
func (r *Runner) FeedDownload(ctx context.Context, cmd *cli.Command) error {
	ids := cmd.StringArgs("ids")
	if len(ids) == 0 {
		return fmt.Errorf("%w: feed item ids", shared.ErrMissingArgument)
	}

	sess, err := r.newSession(cmd)
	if err != nil {
		return err
	}
	defer sess.close()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	stream, unsubscribe := sess.bus.Subscribe(0)
	defer unsubscribe()

	sess.start(ctx)

	if err := sess.downloads.Enqueue(ids...); err != nil {
		return err
	}

	pending := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		pending[id] = struct{}{}
	}

	return awaitEvents(ctx, stream, func(evt events.Event) bool {
		switch evt.Type {
		case events.DownloadProgress:
			r.writePlain("\r%s %5.1f%% %s   ", evt.FeedItemID, evt.Percent, evt.Speed)
		case events.DownloadCompleted:
			r.writePlain("\ndownloaded %s\n", evt.FeedItemID)
			delete(pending, evt.FeedItemID)
		case events.DownloadError:
			r.writePlain("\ndownload %s failed: %s\n", evt.FeedItemID, evt.Message)
			delete(pending, evt.FeedItemID)
		}
		return len(pending) == 0
	})
}

// FeedCancel resets an interrupted download so it can be queued again. A
// live session cancels through its own manager; this handles rows left in
// `downloading` by a crashed or killed process.
func (r *Runner) FeedCancel(ctx context.Context, cmd *cli.Command) error {
	id := cmd.StringArg("id")
	if id == "" {
		return fmt.Errorf("%w: feed item id", shared.ErrMissingArgument)
	}

	store, closeStore, err := r.openStore(cmd)
	if err != nil {
		return err
	}
	defer closeStore()

	item, err := store.FeedItem(id)
	if err != nil {
		return err
	}
	if item.DownloadStatus != models.Downloading {
		return fmt.Errorf("%w: item %s is %s, not downloading", shared.ErrInvalidArgument, id, item.DownloadStatus)
	}

	if err := store.SetDownloadStatus(id, models.NotDownloaded); err != nil {
		return err
	}
	r.writePlain("reset %s to not_downloaded\n", id)
	return nil
}

// FeedRefresh fetches full metadata for specific items immediately.
func (r *Runner) FeedRefresh(ctx context.Context, cmd *cli.Command) error {
	ids := cmd.StringArgs("ids")
	if len(ids) == 0 {
		return fmt.Errorf("%w: feed item ids", shared.ErrMissingArgument)
	}

	sess, err := r.newSession(cmd)
	if err != nil {
		return err
	}
	defer sess.close()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	stream, unsubscribe := sess.bus.Subscribe(0)
	defer unsubscribe()

	sess.start(ctx)

	if err := sess.metadata.FetchNow(ids...); err != nil {
		return err
	}

	pending := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		pending[id] = struct{}{}
	}

	return awaitEvents(ctx, stream, func(evt events.Event) bool {
		if evt.Type != events.MetadataUpdate {
			return false
		}
		switch evt.Status {
		case "completed":
			r.writePlain("metadata refreshed for %s\n", evt.FeedItemID)
			delete(pending, evt.FeedItemID)
		case "error":
			r.writePlain("metadata for %s failed: %s\n", evt.FeedItemID, evt.Message)
			delete(pending, evt.FeedItemID)
		}
		return len(pending) == 0
	})
}
