package main

import (
	"github.com/lola-testbed/pub/models"
)

type AutoMigrateCmd struct {
}

func (a *AutoMigrateCmd) Run(ctx *Context) error {
	db, err := ctx.open()
	if err != nil {
		return err
	}
	if err := db.AutoMigrate(models.AllTables()...); err != nil {
		return err
	}
	ctx.Logger.Info("schema migrated", "tables", len(models.AllTables()))
	return nil
}
