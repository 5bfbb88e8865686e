package main

import (
	"context"
	"fmt"

	"github.com/lola-testbed/pub/models"
)

type SynchroniseFollowingCmd struct {
	Source string `required:"" help:"URL or @user@host handle of the remote actor whose following collection is copied"`
	Dest   string `required:"" help:"username of the local actor to follow with"`
	Limit  int    `help:"follow at most this many actors; zero means all" default:"50"`
}

func (s *SynchroniseFollowingCmd) Run(ctx *Context) error {
	db, err := ctx.open()
	if err != nil {
		return err
	}
	actor, err := findLocalActor(db, s.Dest)
	if err != nil {
		return err
	}

	bg := context.Background()
	fetcher := newRemoteFetcher()
	source, err := fetcher.FetchActor(bg, s.Source)
	if err != nil {
		return err
	}
	following, _ := source.Data["following"].(string)
	if following == "" {
		return fmt.Errorf("%s has no following collection", source.URL)
	}
	ids, err := fetcher.FetchCollection(bg, following, s.Limit)
	if err != nil {
		return err
	}

	rels := models.NewRelationships(db)
	followed := 0
	for _, id := range ids {
		target, err := fetcher.FetchActor(bg, id)
		if err != nil {
			ctx.Logger.Warn("skipping actor", "id", id, "error", err)
			continue
		}
		if _, err := rels.Follow(actor, target, models.VisibilityPublic); err != nil {
			return fmt.Errorf("follow %s: %w", target.URL, err)
		}
		followed++
	}
	ctx.Logger.Info("synchronised following", "source", source.URL, "actor", actor.Username, "found", len(ids), "followed", followed)
	return nil
}
