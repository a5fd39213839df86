package main

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/n3ms/medialib/internal/formatter"
	"github.com/n3ms/medialib/internal/models"
	"github.com/n3ms/medialib/internal/shared"
)

// CreatorAdd adds a creator.
func (r *Runner) CreatorAdd(ctx context.Context, cmd *cli.Command) error {
	name := cmd.StringArg("name")
	if name == "" {
		return fmt.Errorf("%w: creator name", shared.ErrMissingArgument)
	}

	store, closeStore, err := r.openStore(cmd)
	if err != nil {
		return err
	}
	defer closeStore()

	creator := &models.Creator{Name: name}
	if err := store.CreateCreator(creator); err != nil {
		return err
	}

	r.writePlain("creator %s added (%s)\n", creator.ID, creator.Name)
	return nil
}

// CreatorList lists creators.
func (r *Runner) CreatorList(ctx context.Context, cmd *cli.Command) error {
	store, closeStore, err := r.openStore(cmd)
	if err != nil {
		return err
	}
	defer closeStore()

	creators, err := store.Creators()
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		return r.writeJSON(creators)
	}
	return r.writePlain("%s", formatter.CreatorsTable(creators))
}
