package main

import (
	"fmt"
	"time"

	"github.com/lola-testbed/pub/models"
	"gorm.io/gorm"
)

type CreateAccountCmd struct {
	Email    string `required:"" help:"email address of the user to create"`
	Username string `required:"" help:"username; the actors are named <username>_source and <username>_dest"`
	Password string `required:"" help:"password of the user to create"`
	Seed     bool   `help:"populate the source actor with sample notes, likes and follows"`
	SeedWith int64  `help:"random seed for --seed; defaults to the current time"`
}

func (c *CreateAccountCmd) Run(ctx *Context) error {
	db, err := ctx.open()
	if err != nil {
		return err
	}
	if err := models.ValidateUsername(c.Username); err != nil {
		return err
	}

	return withTransaction(db, func(tx *gorm.DB) error {
		user, err := models.NewUsers(tx).Create(c.Email, c.Username, c.Password)
		if err != nil {
			return fmt.Errorf("create user %q: %w", c.Username, err)
		}
		source, dest, err := models.NewActors(tx).CreatePair(user)
		if err != nil {
			return fmt.Errorf("create actors for %q: %w", c.Username, err)
		}
		ctx.Logger.Info("created account", "user_id", user.ID, "source", source.ID, "destination", dest.ID)
		if !c.Seed {
			return nil
		}
		seed := c.SeedWith
		if seed == 0 {
			seed = time.Now().UnixNano()
		}
		res, err := models.NewSeeder(tx, seed).Seed(source)
		if err != nil {
			return fmt.Errorf("seed %q: %w", source.Username, err)
		}
		ctx.Logger.Info("seeded source actor", "actor", source.Username, "seed", seed, "created", res)
		return nil
	})
}
