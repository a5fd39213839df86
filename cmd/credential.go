package main

import (
	"context"
	"fmt"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/n3ms/medialib/internal/formatter"
	"github.com/n3ms/medialib/internal/models"
	"github.com/n3ms/medialib/internal/shared"
)

// CredentialAdd stores a cookie file reference for a platform.
func (r *Runner) CredentialAdd(ctx context.Context, cmd *cli.Command) error {
	platform := models.Platform(cmd.String("platform"))
	if !platform.Valid() {
		return fmt.Errorf("%w: platform %q", shared.ErrUnknownPlatform, cmd.String("platform"))
	}

	cookiePath := cmd.String("cookies")
	if _, err := os.Stat(cookiePath); err != nil {
		return fmt.Errorf("%w: cookie file %s: %v", shared.ErrInvalidArgument, cookiePath, err)
	}

	store, closeStore, err := r.openStore(cmd)
	if err != nil {
		return err
	}
	defer closeStore()

	credential := &models.Credential{
		Label:      cmd.String("label"),
		Platform:   platform,
		CookiePath: cookiePath,
		IsDefault:  cmd.Bool("default"),
	}
	if err := store.CreateCredential(credential); err != nil {
		return err
	}

	r.writePlain("credential %s added for %s\n", credential.ID, credential.Platform)
	return nil
}

// CredentialList lists stored credentials.
func (r *Runner) CredentialList(ctx context.Context, cmd *cli.Command) error {
	store, closeStore, err := r.openStore(cmd)
	if err != nil {
		return err
	}
	defer closeStore()

	credentials, err := store.Credentials()
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		return r.writeJSON(credentials)
	}
	return r.writePlain("%s", formatter.CredentialsTable(credentials))
}

// CredentialSetDefault makes a credential the default for its platform,
// clearing any previous default.
func (r *Runner) CredentialSetDefault(ctx context.Context, cmd *cli.Command) error {
	id := cmd.StringArg("id")
	if id == "" {
		return fmt.Errorf("%w: credential id", shared.ErrMissingArgument)
	}

	store, closeStore, err := r.openStore(cmd)
	if err != nil {
		return err
	}
	defer closeStore()

	if err := store.SetDefaultCredential(id); err != nil {
		return err
	}

	r.writePlain("credential %s is now the default\n", id)
	return nil
}
