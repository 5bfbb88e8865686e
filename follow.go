package main

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/lola-testbed/pub/activitypub"
	"github.com/lola-testbed/pub/models"
	"gorm.io/gorm"
)

type FollowRemoteCmd struct {
	Actor      string `required:"" help:"username of the local actor following"`
	Object     string `required:"" help:"URL or @user@host handle of the remote actor to follow"`
	Visibility string `help:"visibility of the Follow activity" enum:"public,private,followers-only" default:"public"`
}

func (f *FollowRemoteCmd) Run(ctx *Context) error {
	db, err := ctx.open()
	if err != nil {
		return err
	}
	actor, err := findLocalActor(db, f.Actor)
	if err != nil {
		return err
	}
	target, err := newRemoteFetcher().FetchActor(context.Background(), f.Object)
	if err != nil {
		return err
	}
	follow, err := models.NewRelationships(db).Follow(actor, target, models.Visibility(f.Visibility))
	if err != nil {
		return fmt.Errorf("follow %s: %w", target.URL, err)
	}
	ctx.Logger.Info("followed", "actor", actor.Username, "object", target.URL, "activity", follow.ID)
	return nil
}

type LikeRemoteCmd struct {
	Actor      string `required:"" help:"username of the local actor liking"`
	Object     string `required:"" help:"URL of the remote note to like"`
	Visibility string `help:"visibility of the Like activity" enum:"public,private,followers-only" default:"public"`
}

func (l *LikeRemoteCmd) Run(ctx *Context) error {
	db, err := ctx.open()
	if err != nil {
		return err
	}
	actor, err := findLocalActor(db, l.Actor)
	if err != nil {
		return err
	}
	note, err := newRemoteFetcher().FetchNote(context.Background(), l.Object)
	if err != nil {
		return err
	}
	like, err := models.NewLike(actor, note, models.Visibility(l.Visibility))
	if err != nil {
		return err
	}
	return withTransaction(db, func(tx *gorm.DB) error {
		outbox, err := models.NewOutboxes(tx).FindByActor(actor.ID)
		if err != nil {
			return fmt.Errorf("find outbox for %q: %w", actor.Username, err)
		}
		if err := models.NewActivities(tx).Append(outbox, like); err != nil {
			return err
		}
		ctx.Logger.Info("liked", "actor", actor.Username, "object", note.URL, "activity", like.ID)
		return nil
	})
}

func findLocalActor(db *gorm.DB, username string) (*models.Actor, error) {
	actor, err := models.NewActors(db).FindByUsername(username)
	if err != nil {
		return nil, fmt.Errorf("find actor %q: %w", username, err)
	}
	return actor, nil
}

func newRemoteFetcher() *activitypub.RemoteFetcher {
	return activitypub.NewRemoteFetcher(activitypub.NewClient(&http.Client{
		Timeout: 30 * time.Second,
	}))
}
