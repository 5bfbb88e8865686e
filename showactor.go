package main

import (
	"fmt"
	"os"

	"github.com/go-json-experiment/json"
	"github.com/lola-testbed/pub/activitypub"
	"github.com/lola-testbed/pub/auth"
	"github.com/lola-testbed/pub/models"
)

type ShowActorCmd struct {
	Actor  string `required:"" help:"username of the actor to display."`
	Scope  string `help:"scopes of the caller's token; empty for an anonymous caller."`
	Host   string `help:"host the documents are addressed from." default:"localhost:8080"`
	Outbox bool   `help:"display the actor's outbox instead."`
}

func (s *ShowActorCmd) Run(ctx *Context) error {
	db, err := ctx.open()
	if err != nil {
		return err
	}
	actor, err := findLocalActor(db, s.Actor)
	if err != nil {
		return err
	}

	caller := auth.Context{Origin: auth.Origin{Scheme: "https", Host: s.Host}}
	if s.Scope != "" {
		tok := &models.Token{Scope: s.Scope}
		caller.Authenticated = true
		caller.PortabilityScope = tok.HasScope(models.PortabilityScope)
		caller.Token = tok
	}
	ctx.Logger.Debug("showing actor", "actor", actor.Username, "tier", auth.TierOf(caller))

	ser := activitypub.NewSerialiser(caller)
	var doc any = ser.Actor(actor)
	if s.Outbox {
		outbox, err := models.NewOutboxes(db).FindByActor(actor.ID)
		if err != nil {
			return fmt.Errorf("find outbox for %q: %w", actor.Username, err)
		}
		doc = ser.Outbox(outbox)
	}
	return json.MarshalOptions{}.MarshalFull(json.EncodeOptions{Indent: "  "}, os.Stdout, doc)
}
