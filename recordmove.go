package main

import (
	"time"

	"github.com/lola-testbed/pub/models"
)

type RecordMoveCmd struct {
	Actor     string    `required:"" help:"username of the local actor which moved"`
	Server    string    `required:"" help:"host name of the server the actor moved from"`
	Username  string    `required:"" help:"username the actor had on that server"`
	Published time.Time `help:"when the move happened, RFC 3339; defaults to now"`
}

func (r *RecordMoveCmd) Run(ctx *Context) error {
	db, err := ctx.open()
	if err != nil {
		return err
	}
	actor, err := findLocalActor(db, r.Actor)
	if err != nil {
		return err
	}
	published := r.Published
	if published.IsZero() {
		published = time.Now()
	}
	if err := models.NewActors(db).RecordMove(actor, r.Server, r.Username, published); err != nil {
		return err
	}
	ctx.Logger.Info("recorded move", "actor", actor.Username, "from", r.Server, "username", r.Username, "moves", len(actor.Previously))
	return nil
}
