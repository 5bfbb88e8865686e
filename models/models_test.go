package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// MockUser creates a new user, and its source and destination actors, in the database.
func MockUser(t *testing.T, tx *gorm.DB, username string) (*User, *Actor, *Actor) {
	t.Helper()
	require := require.New(t)

	user, err := NewUsers(tx).Create(username+"@example.com", username, "password")
	require.NoError(err)
	source, dest, err := NewActors(tx).CreatePair(user)
	require.NoError(err)
	return user, source, dest
}

// MockNote creates a new note authored by actor.
func MockNote(t *testing.T, tx *gorm.DB, actor *Actor, content string, visibility Visibility) *Note {
	t.Helper()
	note, err := NewNotes(tx).Create(actor, content, visibility)
	require.NoError(t, err)
	return note
}

// MockToken issues a token for user with the given scope.
func MockToken(t *testing.T, tx *gorm.DB, user *User, scope string) *Token {
	t.Helper()
	tok, err := NewTokens(tx).Create(user, scope, time.Hour)
	require.NoError(t, err)
	return tok
}

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	require := require.New(t)
	db, err := gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{
		TranslateError: true,
		Logger: logger.Default.LogMode(func() logger.LogLevel {
			return logger.Warn
		}()),
	})
	require.NoError(err)

	err = db.AutoMigrate(AllTables()...)
	require.NoError(err)

	// enable foreign key constraints
	err = db.Exec("PRAGMA foreign_keys = ON").Error
	require.NoError(err)

	return db
}
