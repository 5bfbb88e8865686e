package models

import (
	"golang.org/x/exp/slog"
	"gorm.io/gorm"
)

type Env struct {
	// DB is the database connection.
	DB     *gorm.DB
	Logger *slog.Logger
}

func (e *Env) Log() *slog.Logger {
	return e.Logger
}

// Actors returns an Actors repository bound to the request's database.
func (e *Env) Actors() *Actors {
	return NewActors(e.DB)
}

// Outboxes returns an Outboxes repository bound to the request's database.
func (e *Env) Outboxes() *Outboxes {
	return NewOutboxes(e.DB)
}

// Relationships returns a Relationships repository bound to the request's database.
func (e *Env) Relationships() *Relationships {
	return NewRelationships(e.DB)
}

// Tokens returns a Tokens repository bound to the request's database.
func (e *Env) Tokens() *Tokens {
	return NewTokens(e.DB)
}
