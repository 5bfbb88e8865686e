package main

import (
	"context"
	"fmt"
	"time"

	"github.com/lola-testbed/pub/models"
)

type HouseKeepingCmd struct {
}

func (c *HouseKeepingCmd) Run(ctx *Context) error {
	db, err := ctx.open()
	if err != nil {
		return err
	}
	n, err := models.NewTokens(db).Purge(context.Background(), time.Now())
	if err != nil {
		return err
	}
	fmt.Println("deleted", n, "expired or revoked tokens")
	return nil
}
