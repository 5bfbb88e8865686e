package main

import (
	"context"
	"fmt"
	"time"

	"github.com/lola-testbed/pub/models"
)

type CreateTokenCmd struct {
	Email    string        `required:"" help:"email address of the user the token is issued to"`
	Password string        `required:"" help:"password of the user"`
	Scope    string        `help:"space separated scopes" default:"read ${portability}"`
	TTL      time.Duration `help:"lifetime of the token" default:"24h"`
}

func (c *CreateTokenCmd) Run(ctx *Context) error {
	db, err := ctx.open()
	if err != nil {
		return err
	}
	user, err := models.NewUsers(db).Authenticate(c.Email, c.Password)
	if err != nil {
		return fmt.Errorf("authenticate %q: %w", c.Email, err)
	}
	tok, err := models.NewTokens(db).Create(user, c.Scope, c.TTL)
	if err != nil {
		return err
	}
	ctx.Logger.Info("issued token", "user_id", user.ID, "scope", tok.Scope, "expires_at", tok.ExpiresAt)
	fmt.Println(tok.AccessToken)
	return nil
}

type RevokeTokenCmd struct {
	Token string `required:"" help:"the access token to revoke"`
}

func (c *RevokeTokenCmd) Run(ctx *Context) error {
	db, err := ctx.open()
	if err != nil {
		return err
	}
	if err := models.NewTokens(db).Revoke(context.Background(), c.Token); err != nil {
		return fmt.Errorf("revoke token: %w", err)
	}
	ctx.Logger.Info("revoked token")
	return nil
}
