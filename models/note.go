package models

import (
	"time"

	"github.com/lola-testbed/pub/internal/snowflake"
	"gorm.io/gorm"
)

// A Note is a piece of text authored by a source Actor.
type Note struct {
	ID         snowflake.ID `gorm:"primarykey;autoIncrement:false"`
	ActorID    snowflake.ID `gorm:"not null;index"`
	Actor      *Actor       `gorm:"constraint:OnDelete:CASCADE;<-:false;"`
	Content    string       `gorm:"type:text;not null"`
	Published  time.Time    `gorm:"not null"`
	Visibility Visibility   `gorm:"not null;default:'public'"`
}

type Notes struct {
	db *gorm.DB
}

func NewNotes(db *gorm.DB) *Notes {
	return &Notes{db: db}
}

// Create creates a new note authored by actor.
func (n *Notes) Create(actor *Actor, content string, visibility Visibility) (*Note, error) {
	id := snowflake.Now()
	note := &Note{
		ID:         id,
		ActorID:    actor.ID,
		Content:    content,
		Published:  id.ToTime(),
		Visibility: visibility,
	}
	return note, n.db.Create(note).Error
}

// FindByActor returns the notes authored by actor, newest first.
func (n *Notes) FindByActor(actorID snowflake.ID) ([]*Note, error) {
	var notes []*Note
	return notes, n.db.Where("actor_id = ?", actorID).Order("published desc, id desc").Find(&notes).Error
}
