package models

import (
	"github.com/lola-testbed/pub/internal/algorithms"
	"github.com/lola-testbed/pub/internal/snowflake"
	"gorm.io/gorm"
)

// An Outbox holds the activities an Actor has published, kept as three
// independent typed sets.
type Outbox struct {
	ID      snowflake.ID      `gorm:"primarykey;autoIncrement:false"`
	ActorID snowflake.ID      `gorm:"uniqueIndex;not null"`
	Actor   *Actor            `gorm:"constraint:OnDelete:CASCADE;<-:false;"`
	Creates []*CreateActivity `gorm:"constraint:OnDelete:CASCADE;<-:false;"`
	Likes   []*LikeActivity   `gorm:"constraint:OnDelete:CASCADE;<-:false;"`
	Follows []*FollowActivity `gorm:"constraint:OnDelete:CASCADE;<-:false;"`
}

// Activities returns every activity in the outbox in no particular order.
func (o *Outbox) Activities() []Activity {
	return algorithms.Concat(
		algorithms.Map(o.Creates, func(a *CreateActivity) Activity { return a }),
		algorithms.Map(o.Likes, func(a *LikeActivity) Activity { return a }),
		algorithms.Map(o.Follows, func(a *FollowActivity) Activity { return a }),
	)
}

type Outboxes struct {
	db *gorm.DB
}

func NewOutboxes(db *gorm.DB) *Outboxes {
	return &Outboxes{db: db}
}

// FindByActor returns the outbox of the given actor with each of its typed
// activity sets loaded.
func (o *Outboxes) FindByActor(actorID snowflake.ID) (*Outbox, error) {
	var outbox Outbox
	return &outbox, o.db.Scopes(PreloadOutbox).Where("actor_id = ?", actorID).Take(&outbox).Error
}

// PreloadOutbox preloads the owning actor and the three activity sets of an
// Outbox, each set read independently.
func PreloadOutbox(query *gorm.DB) *gorm.DB {
	return query.Preload("Actor").
		Preload("Creates").Preload("Creates.Note").
		Preload("Likes").Preload("Likes.Note").
		Preload("Follows").Preload("Follows.Target")
}
