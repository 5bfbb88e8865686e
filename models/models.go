// package models contains the database models for the portability testbed.
package models

import (
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/schema"
)

var (
	// ErrInvalidTarget is returned when an activity or relationship does not
	// have exactly one of a local or a remote target.
	ErrInvalidTarget = errors.New("exactly one of a local or a remote target must be set")

	// ErrInvalidUsername is returned when an actor's username is shorter than
	// three characters or contains characters other than letters, digits
	// and underscores.
	ErrInvalidUsername = errors.New("username must be at least 3 characters of letters, digits or underscores")
)

// forEach runs each function in the slice within the supplied transaction.
func forEach(tx *gorm.DB, fns ...func(tx *gorm.DB) error) error {
	for _, fn := range fns {
		if err := fn(tx); err != nil {
			return err
		}
	}
	return nil
}

// Visibility controls who may see a Note or an Activity.
type Visibility string

const (
	VisibilityPublic        Visibility = "public"
	VisibilityPrivate       Visibility = "private"
	VisibilityFollowersOnly Visibility = "followers-only"
)

func (Visibility) GormDBDataType(db *gorm.DB, field *schema.Field) string {
	switch db.Dialector.Name() {
	case "mysql", "postgres":
		return "enum('public', 'private', 'followers-only')"
	case "sqlite":
		return "TEXT"
	default:
		return ""
	}
}

// IsPublic reports whether v is visible to anonymous callers.
func (v Visibility) IsPublic() bool {
	return v == VisibilityPublic
}

// Snapshot is a cached copy of a remote object's JSON properties.
type Snapshot map[string]any

// Remote is an object hosted on another server. It is known only by its URL
// and the Snapshot taken when it was first seen.
type Remote struct {
	URL  string
	Data Snapshot
}

// NoteTarget is the object of a Like; either a local *Note or a *Remote.
type NoteTarget interface {
	noteTarget()
}

func (*Note) noteTarget()   {}
func (*Remote) noteTarget() {}

// ActorTarget is the object of a Follow or the other side of a relationship;
// either a local *Actor or a *Remote.
type ActorTarget interface {
	actorTarget()
}

func (*Actor) actorTarget()  {}
func (*Remote) actorTarget() {}

// ptr returns a pointer to a copy of v.
func ptr[T any](v T) *T {
	return &v
}
