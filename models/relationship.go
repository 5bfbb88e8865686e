package models

import (
	"fmt"
	"time"

	"github.com/lola-testbed/pub/internal/snowflake"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/schema"
)

type RelationshipStatus string

const (
	StatusActive   RelationshipStatus = "active"
	StatusInactive RelationshipStatus = "inactive"
)

func (RelationshipStatus) GormDBDataType(db *gorm.DB, field *schema.Field) string {
	switch db.Dialector.Name() {
	case "mysql", "postgres":
		return "enum('active', 'inactive')"
	case "sqlite":
		return "TEXT"
	default:
		return ""
	}
}

// Relationship is either a *Following or a *Follower.
type Relationship interface {
	// Member returns the other side of the relationship.
	Member() ActorTarget
	IsActive() bool
	relationship()
}

// Following records that Actor follows Target, a local actor, or the remote
// actor at TargetURL.
type Following struct {
	ID         snowflake.ID       `gorm:"primarykey;autoIncrement:false"`
	CreatedAt  time.Time          `gorm:"not null"`
	ActorID    snowflake.ID       `gorm:"not null;uniqueIndex:uidx_followings_actor_id_target_id;uniqueIndex:uidx_followings_actor_id_target_url"`
	Actor      *Actor             `gorm:"constraint:OnDelete:CASCADE;<-:false;"`
	TargetID   *snowflake.ID      `gorm:"uniqueIndex:uidx_followings_actor_id_target_id"`
	Target     *Actor             `gorm:"constraint:OnDelete:CASCADE;<-:false;"`
	TargetURL  *string            `gorm:"size:255;uniqueIndex:uidx_followings_actor_id_target_url"`
	TargetData Snapshot           `gorm:"serializer:json"`
	Status     RelationshipStatus `gorm:"not null;default:'active'"`
}

func (*Following) relationship() {}

func (f *Following) Member() ActorTarget {
	return member(f.Target, f.TargetURL, f.TargetData)
}

func (f *Following) IsActive() bool {
	return f.Status == StatusActive
}

func (f *Following) BeforeSave(tx *gorm.DB) error {
	return exactlyOne(f.TargetID != nil, f.TargetURL != nil)
}

// Follower records that Target, a local actor, or the remote actor at
// TargetURL, follows Actor.
type Follower struct {
	ID         snowflake.ID       `gorm:"primarykey;autoIncrement:false"`
	CreatedAt  time.Time          `gorm:"not null"`
	ActorID    snowflake.ID       `gorm:"not null;uniqueIndex:uidx_followers_actor_id_target_id;uniqueIndex:uidx_followers_actor_id_target_url"`
	Actor      *Actor             `gorm:"constraint:OnDelete:CASCADE;<-:false;"`
	TargetID   *snowflake.ID      `gorm:"uniqueIndex:uidx_followers_actor_id_target_id"`
	Target     *Actor             `gorm:"constraint:OnDelete:CASCADE;<-:false;"`
	TargetURL  *string            `gorm:"size:255;uniqueIndex:uidx_followers_actor_id_target_url"`
	TargetData Snapshot           `gorm:"serializer:json"`
	Status     RelationshipStatus `gorm:"not null;default:'active'"`
}

func (*Follower) relationship() {}

func (f *Follower) Member() ActorTarget {
	return member(f.Target, f.TargetURL, f.TargetData)
}

func (f *Follower) IsActive() bool {
	return f.Status == StatusActive
}

func (f *Follower) BeforeSave(tx *gorm.DB) error {
	return exactlyOne(f.TargetID != nil, f.TargetURL != nil)
}

func member(local *Actor, url *string, data Snapshot) ActorTarget {
	switch {
	case local != nil:
		return local
	case url != nil:
		return &Remote{URL: *url, Data: data}
	default:
		return nil
	}
}

// splitTarget returns the local id or the remote url of t, exactly one of which is non nil.
func splitTarget(t ActorTarget) (*snowflake.ID, *string, Snapshot, error) {
	switch t := t.(type) {
	case *Actor:
		if t == nil {
			return nil, nil, nil, ErrInvalidTarget
		}
		return ptr(t.ID), nil, nil, nil
	case *Remote:
		if t == nil || t.URL == "" {
			return nil, nil, nil, ErrInvalidTarget
		}
		return nil, ptr(t.URL), t.Data, nil
	default:
		return nil, nil, nil, ErrInvalidTarget
	}
}

type Relationships struct {
	db *gorm.DB
}

func NewRelationships(db *gorm.DB) *Relationships {
	return &Relationships{db: db}
}

// Follow records actor following target. A Follow activity is appended to
// actor's outbox and, when target is local, actor is added to target's
// followers.
func (r *Relationships) Follow(actor *Actor, target ActorTarget, visibility Visibility) (*FollowActivity, error) {
	follow, err := NewFollow(actor, target, visibility)
	if err != nil {
		return nil, err
	}
	err = r.db.Transaction(func(tx *gorm.DB) error {
		outbox, err := NewOutboxes(tx).FindByActor(actor.ID)
		if err != nil {
			return fmt.Errorf("find outbox for %q: %w", actor.Username, err)
		}
		if err := NewActivities(tx).Append(outbox, follow); err != nil {
			return err
		}
		if err := upsert(tx, &Following{ID: snowflake.Now(), ActorID: actor.ID}, target); err != nil {
			return err
		}
		if local, ok := target.(*Actor); ok {
			return upsert(tx, &Follower{ID: snowflake.Now(), ActorID: local.ID}, actor)
		}
		return nil
	})
	return follow, err
}

// AddFollower records follower following actor.
func (r *Relationships) AddFollower(actor *Actor, follower ActorTarget) (*Follower, error) {
	rel := &Follower{ID: snowflake.Now(), ActorID: actor.ID}
	return rel, upsert(r.db, rel, follower)
}

// upsert creates rel with its target set to t, or reactivates the existing
// relationship between the same pair.
func upsert(tx *gorm.DB, rel any, t ActorTarget) error {
	id, url, data, err := splitTarget(t)
	if err != nil {
		return err
	}
	conflict := clause.OnConflict{
		Columns:   []clause.Column{{Name: "actor_id"}, {Name: "target_id"}},
		DoUpdates: clause.Assignments(map[string]any{"status": StatusActive}),
	}
	if url != nil {
		conflict.Columns = []clause.Column{{Name: "actor_id"}, {Name: "target_url"}}
	}
	switch rel := rel.(type) {
	case *Following:
		rel.TargetID, rel.TargetURL, rel.TargetData, rel.Status = id, url, data, StatusActive
	case *Follower:
		rel.TargetID, rel.TargetURL, rel.TargetData, rel.Status = id, url, data, StatusActive
	}
	return tx.Clauses(conflict).Create(rel).Error
}

// Deactivate marks rel inactive. Inactive relationships are kept but no
// longer listed.
func (r *Relationships) Deactivate(rel Relationship) error {
	return r.db.Model(rel).Update("status", StatusInactive).Error
}

// Unfollow deactivates actor following target and, when target is local,
// the matching follower relationship.
func (r *Relationships) Unfollow(actor *Actor, t ActorTarget) error {
	id, url, _, err := splitTarget(t)
	if err != nil {
		return err
	}
	return r.db.Transaction(func(tx *gorm.DB) error {
		var following Following
		if err := whereTarget(tx, actor.ID, id, url).Take(&following).Error; err != nil {
			return err
		}
		if err := NewRelationships(tx).Deactivate(&following); err != nil {
			return err
		}
		if id == nil {
			return nil
		}
		var followers []*Follower
		if err := whereTarget(tx, *id, &actor.ID, nil).Find(&followers).Error; err != nil {
			return err
		}
		for _, follower := range followers {
			if err := NewRelationships(tx).Deactivate(follower); err != nil {
				return err
			}
		}
		return nil
	})
}

func whereTarget(tx *gorm.DB, actorID snowflake.ID, id *snowflake.ID, url *string) *gorm.DB {
	if id != nil {
		return tx.Where("actor_id = ? AND target_id = ?", actorID, *id)
	}
	return tx.Where("actor_id = ? AND target_url = ?", actorID, *url)
}

// Following returns the active relationships in which actorID follows another actor.
func (r *Relationships) Following(actorID snowflake.ID) ([]*Following, error) {
	var following []*Following
	return following, r.db.Preload("Target").Where("actor_id = ? AND status = ?", actorID, StatusActive).Order("id").Find(&following).Error
}

// Followers returns the active relationships in which another actor follows actorID.
func (r *Relationships) Followers(actorID snowflake.ID) ([]*Follower, error) {
	var followers []*Follower
	return followers, r.db.Preload("Target").Where("actor_id = ? AND status = ?", actorID, StatusActive).Order("id").Find(&followers).Error
}
