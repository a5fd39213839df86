package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/n3ms/medialib/internal/formatter"
	"github.com/n3ms/medialib/internal/models"
	"github.com/n3ms/medialib/internal/shared"
)

// WarehouseImport records an existing media file as a manually imported
// library item.
func (r *Runner) WarehouseImport(ctx context.Context, cmd *cli.Command) error {
	filePath := cmd.String("file")
	info, err := os.Stat(filePath)
	if err != nil {
		return fmt.Errorf("%w: %s: %v", shared.ErrInvalidArgument, filePath, err)
	}

	store, closeStore, err := r.openStore(cmd)
	if err != nil {
		return err
	}
	defer closeStore()

	if _, err := store.Creator(cmd.String("creator")); err != nil {
		return err
	}

	title := cmd.String("title")
	if title == "" {
		base := filepath.Base(filePath)
		title = strings.TrimSuffix(base, filepath.Ext(base))
	}

	item := &models.WarehouseItem{
		CreatorID:      cmd.String("creator"),
		Title:          title,
		FilePath:       filePath,
		FileSize:       info.Size(),
		IsManualImport: true,
	}
	if err := store.CreateWarehouseItem(item); err != nil {
		return err
	}

	r.writePlain("imported %s as %s\n", filePath, item.ID)
	return nil
}

// WarehouseList lists materialized library files.
func (r *Runner) WarehouseList(ctx context.Context, cmd *cli.Command) error {
	store, closeStore, err := r.openStore(cmd)
	if err != nil {
		return err
	}
	defer closeStore()

	items, err := store.WarehouseItems(cmd.String("creator"))
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		return r.writeJSON(items)
	}
	return r.writePlain("%s", formatter.WarehouseTable(items))
}
