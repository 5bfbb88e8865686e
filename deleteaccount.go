package main

import (
	"fmt"

	"github.com/lola-testbed/pub/models"
)

type DeleteAccountCmd struct {
	Username string `required:"" help:"username of the user to delete"`
}

func (d *DeleteAccountCmd) Run(ctx *Context) error {
	db, err := ctx.open()
	if err != nil {
		return err
	}

	users := models.NewUsers(db)
	user, err := users.FindByUsername(d.Username)
	if err != nil {
		return fmt.Errorf("find user %q: %w", d.Username, err)
	}
	if err := users.Delete(user); err != nil {
		return err
	}
	ctx.Logger.Info("deleted account", "username", d.Username, "user_id", user.ID)
	return nil
}
