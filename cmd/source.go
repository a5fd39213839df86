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

// SourceAdd subscribes a creator to a remote channel or feed.
func (r *Runner) SourceAdd(ctx context.Context, cmd *cli.Command) error {
	platform := models.Platform(cmd.String("platform"))
	if !platform.Valid() {
		return fmt.Errorf("%w: platform %q", shared.ErrUnknownPlatform, cmd.String("platform"))
	}

	store, closeStore, err := r.openStore(cmd)
	if err != nil {
		return err
	}
	defer closeStore()

	if _, err := store.Creator(cmd.String("creator")); err != nil {
		return err
	}

	source := &models.Source{
		CreatorID:    cmd.String("creator"),
		Platform:     platform,
		ChannelURL:   cmd.String("url"),
		ChannelName:  cmd.String("name"),
		CredentialID: cmd.String("credential"),
	}
	if err := store.CreateSource(source); err != nil {
		return err
	}

	r.writePlain("source %s added (%s)\n", source.ID, source.DisplayName())
	return nil
}

// SourceList lists sources and their sync state.
func (r *Runner) SourceList(ctx context.Context, cmd *cli.Command) error {
	store, closeStore, err := r.openStore(cmd)
	if err != nil {
		return err
	}
	defer closeStore()

	sources, err := store.Sources()
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		return r.writeJSON(sources)
	}
	return r.writePlain("%s", formatter.SourcesTable(sources))
}

// SourceSync runs a one-shot sync pass: one source, a creator's sources, or
// every active source. It blocks until each targeted source reports a
// terminal event.
func (r *Runner) SourceSync(ctx context.Context, cmd *cli.Command) error {
	sourceID := cmd.StringArg("id")
	creatorID := cmd.String("creator")
	all := cmd.Bool("all")

	if sourceID == "" && creatorID == "" && !all {
		return fmt.Errorf("%w: pass a source id, --creator, or --all", shared.ErrMissingArgument)
	}

	sess, err := r.newSession(cmd)
	if err != nil {
		return err
	}
	defer sess.close()

	// Count the targets up front so the wait below knows when the batch
	// is done.
	var expected int
	switch {
	case sourceID != "":
		expected = 1
	case creatorID != "":
		ids, err := sess.store.SourceIDsForCreator(creatorID)
		if err != nil {
			return err
		}
		expected = len(ids)
	default:
		ids, err := sess.store.ActiveSourceIDs()
		if err != nil {
			return err
		}
		expected = len(ids)
	}
	if expected == 0 {
		r.writePlain("no sources to sync\n")
		return nil
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	stream, unsubscribe := sess.bus.Subscribe(0)
	defer unsubscribe()

	sess.start(ctx)

	switch {
	case sourceID != "":
		sess.sync.SyncSource(sourceID)
	case creatorID != "":
		sess.sync.SyncForCreator(creatorID)
	default:
		sess.sync.SyncAll()
	}

	done := 0
	return awaitEvents(ctx, stream, func(evt events.Event) bool {
		switch evt.Type {
		case events.SyncCompleted:
			r.writePlain("synced %s: %s\n", evt.SourceID, evt.Message)
			done++
		case events.SyncError:
			r.writePlain("sync %s failed: %s\n", evt.SourceID, evt.Message)
			done++
		}
		return done >= expected
	})
}
