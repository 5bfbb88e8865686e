package main

import (
	"context"
	"os"

	"github.com/go-json-experiment/json"
)

type FetchActorCmd struct {
	Actor string `required:"" help:"URL or @user@host handle of the actor to fetch."`
}

func (f *FetchActorCmd) Run(ctx *Context) error {
	remote, err := newRemoteFetcher().FetchActor(context.Background(), f.Actor)
	if err != nil {
		return err
	}
	return json.MarshalOptions{}.MarshalFull(json.EncodeOptions{Indent: "  "}, os.Stdout, map[string]any{
		"id":       remote.URL,
		"snapshot": remote.Data,
	})
}
