package models

import (
	"fmt"
	"time"
	"unicode"

	"github.com/lola-testbed/pub/internal/snowflake"

	"gorm.io/gorm"
	"gorm.io/gorm/schema"
)

// An Actor is one of the two identities owned by a User. The source actor
// holds the content to be migrated, the destination actor receives it.
type Actor struct {
	ID         snowflake.ID `gorm:"primarykey;autoIncrement:false"`
	CreatedAt  time.Time
	UpdatedAt  time.Time
	UserID     snowflake.ID `gorm:"uniqueIndex:uidx_actors_user_id_role;not null"`
	User       *User        `gorm:"constraint:OnDelete:CASCADE;<-:false;"`
	Role       ActorRole    `gorm:"uniqueIndex:uidx_actors_user_id_role;not null"`
	Username   string       `gorm:"size:100;uniqueIndex;not null"`
	Name       string       `gorm:"size:100;not null"`
	Previously []Move       `gorm:"serializer:json"`
	Outbox     *Outbox      `gorm:"constraint:OnDelete:CASCADE;<-:false;"`
}

// Move records a previous location of an Actor.
type Move struct {
	Type      string    `json:"type"`
	Object    string    `json:"object"`
	Published time.Time `json:"published"`
}

type ActorRole string

const (
	RoleSource      ActorRole = "source"
	RoleDestination ActorRole = "destination"
)

func (ActorRole) GormDBDataType(db *gorm.DB, field *schema.Field) string {
	switch db.Dialector.Name() {
	case "mysql", "postgres":
		return "enum('source', 'destination')"
	case "sqlite":
		return "TEXT"
	default:
		return ""
	}
}

// ValidateUsername returns ErrInvalidUsername if name is not a valid actor username.
func ValidateUsername(name string) error {
	if len(name) < 3 {
		return ErrInvalidUsername
	}
	for _, r := range name {
		if r != '_' && !unicode.IsLetter(r) && !unicode.IsDigit(r) {
			return ErrInvalidUsername
		}
	}
	return nil
}

func (a *Actor) BeforeSave(tx *gorm.DB) error {
	return ValidateUsername(a.Username)
}

// AfterCreate creates the actor's outbox and announces the actor's creation in it.
func (a *Actor) AfterCreate(tx *gorm.DB) error {
	return forEach(tx, a.createOutbox)
}

func (a *Actor) createOutbox(tx *gorm.DB) error {
	outbox := &Outbox{
		ID:      snowflake.Now(),
		ActorID: a.ID,
	}
	if err := tx.Create(outbox).Error; err != nil {
		return fmt.Errorf("create outbox for %q: %w", a.Username, err)
	}
	a.Outbox = outbox
	return NewActivities(tx).Append(outbox, &CreateActivity{
		ActivityBase: ActivityBase{
			ActorID:    a.ID,
			Visibility: VisibilityPublic,
		},
	})
}

// IsSource reports whether the actor holds the content to be migrated.
func (a *Actor) IsSource() bool {
	return a.Role == RoleSource
}

// PreviouslyOrEmpty returns the actor's previous locations, never nil.
func (a *Actor) PreviouslyOrEmpty() []Move {
	if a.Previously == nil {
		return []Move{}
	}
	return a.Previously
}

type Actors struct {
	db *gorm.DB
}

func NewActors(db *gorm.DB) *Actors {
	return &Actors{db: db}
}

// FindByID returns the actor with the given id.
func (a *Actors) FindByID(id snowflake.ID) (*Actor, error) {
	var actor Actor
	return &actor, a.db.Take(&actor, id).Error
}

// FindByUsername returns the actor with the given username.
func (a *Actors) FindByUsername(username string) (*Actor, error) {
	var actor Actor
	return &actor, a.db.Where("username = ?", username).Take(&actor).Error
}

// CreatePair creates the source and destination actors for user in a
// single transaction.
func (a *Actors) CreatePair(user *User) (*Actor, *Actor, error) {
	source := &Actor{
		ID:       snowflake.Now(),
		UserID:   user.ID,
		Role:     RoleSource,
		Username: user.Username + "_source",
		Name:     user.Username + " (source)",
	}
	dest := &Actor{
		ID:       snowflake.Now(),
		UserID:   user.ID,
		Role:     RoleDestination,
		Username: user.Username + "_dest",
		Name:     user.Username + " (destination)",
	}
	err := a.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(source).Error; err != nil {
			return err
		}
		return tx.Create(dest).Error
	})
	if err != nil {
		return nil, nil, err
	}
	return source, dest, nil
}

// RecordMove appends a Move from https://server/users/username to the
// actor's previous locations.
func (a *Actors) RecordMove(actor *Actor, server, username string, published time.Time) error {
	actor.Previously = append(actor.PreviouslyOrEmpty(), Move{
		Type:      "Move",
		Object:    fmt.Sprintf("https://%s/users/%s", server, username),
		Published: published.UTC(),
	})
	return a.db.Model(actor).Select("Previously").Updates(actor).Error
}
