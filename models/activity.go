package models

import (
	"time"

	"github.com/lola-testbed/pub/internal/snowflake"
	"gorm.io/gorm"
)

// An Activity is one of *CreateActivity, *LikeActivity or *FollowActivity.
type Activity interface {
	Base() *ActivityBase
	Validate() error
	activity()
}

// ActivityBase holds the columns shared by every activity table.
type ActivityBase struct {
	ID         snowflake.ID `gorm:"primarykey;autoIncrement:false"`
	ActorID    snowflake.ID `gorm:"not null;index"`
	OutboxID   snowflake.ID `gorm:"not null;index"`
	Visibility Visibility   `gorm:"not null;default:'public'"`
	Timestamp  time.Time    `gorm:"not null"`
}

func (b *ActivityBase) Base() *ActivityBase {
	return b
}

// CreateActivity announces a new Note or, when Note is nil, the creation of
// the Actor itself.
type CreateActivity struct {
	ActivityBase
	Actor  *Actor `gorm:"constraint:OnDelete:CASCADE;<-:false;"`
	NoteID *snowflake.ID
	Note   *Note `gorm:"constraint:OnDelete:CASCADE;<-:false;"`
}

func (*CreateActivity) activity() {}

// Validate always succeeds; a Create without a Note announces its Actor.
func (c *CreateActivity) Validate() error {
	return nil
}

func (c *CreateActivity) BeforeSave(tx *gorm.DB) error {
	if c.Note != nil && c.NoteID == nil {
		c.NoteID = ptr(c.Note.ID)
	}
	return nil
}

// NewCreate returns a Create activity by actor for note. A nil note
// announces the actor.
func NewCreate(actor *Actor, note *Note, visibility Visibility) *CreateActivity {
	c := &CreateActivity{
		ActivityBase: ActivityBase{
			ActorID:    actor.ID,
			Visibility: visibility,
		},
		Actor: actor,
	}
	if note != nil {
		c.NoteID = ptr(note.ID)
		c.Note = note
	}
	return c
}

// LikeActivity records an Actor liking a local Note or a remote object.
type LikeActivity struct {
	ActivityBase
	Actor      *Actor `gorm:"constraint:OnDelete:CASCADE;<-:false;"`
	NoteID     *snowflake.ID
	Note       *Note    `gorm:"constraint:OnDelete:CASCADE;<-:false;"`
	ObjectURL  string   `gorm:"size:255;not null;default:''"`
	ObjectData Snapshot `gorm:"serializer:json"`
}

func (*LikeActivity) activity() {}

// NewLike returns a Like activity by actor of object.
func NewLike(actor *Actor, object NoteTarget, visibility Visibility) (*LikeActivity, error) {
	like := &LikeActivity{
		ActivityBase: ActivityBase{
			ActorID:    actor.ID,
			Visibility: visibility,
		},
		Actor: actor,
	}
	switch object := object.(type) {
	case *Note:
		if object == nil {
			return nil, ErrInvalidTarget
		}
		like.NoteID = ptr(object.ID)
		like.Note = object
	case *Remote:
		if object == nil || object.URL == "" {
			return nil, ErrInvalidTarget
		}
		like.ObjectURL = object.URL
		like.ObjectData = object.Data
	default:
		return nil, ErrInvalidTarget
	}
	return like, nil
}

// Object returns the liked note or remote object. It returns nil if the
// local note was not loaded.
func (l *LikeActivity) Object() NoteTarget {
	switch {
	case l.Note != nil:
		return l.Note
	case l.ObjectURL != "":
		return &Remote{URL: l.ObjectURL, Data: l.ObjectData}
	default:
		return nil
	}
}

// Validate returns ErrInvalidTarget unless exactly one of a local note or a
// remote object is set.
func (l *LikeActivity) Validate() error {
	return exactlyOne(l.NoteID != nil || l.Note != nil, l.ObjectURL != "")
}

func (l *LikeActivity) BeforeSave(tx *gorm.DB) error {
	if l.Note != nil && l.NoteID == nil {
		l.NoteID = ptr(l.Note.ID)
	}
	return l.Validate()
}

// FollowActivity records an Actor following a local Actor or a remote one.
type FollowActivity struct {
	ActivityBase
	Actor      *Actor `gorm:"constraint:OnDelete:CASCADE;<-:false;"`
	TargetID   *snowflake.ID
	Target     *Actor   `gorm:"constraint:OnDelete:CASCADE;<-:false;"`
	TargetURL  string   `gorm:"size:255;not null;default:''"`
	TargetData Snapshot `gorm:"serializer:json"`
}

func (*FollowActivity) activity() {}

// NewFollow returns a Follow activity by actor of object.
func NewFollow(actor *Actor, object ActorTarget, visibility Visibility) (*FollowActivity, error) {
	follow := &FollowActivity{
		ActivityBase: ActivityBase{
			ActorID:    actor.ID,
			Visibility: visibility,
		},
		Actor: actor,
	}
	switch object := object.(type) {
	case *Actor:
		if object == nil {
			return nil, ErrInvalidTarget
		}
		follow.TargetID = ptr(object.ID)
		follow.Target = object
	case *Remote:
		if object == nil || object.URL == "" {
			return nil, ErrInvalidTarget
		}
		follow.TargetURL = object.URL
		follow.TargetData = object.Data
	default:
		return nil, ErrInvalidTarget
	}
	return follow, nil
}

// Object returns the followed actor or remote actor. It returns nil if the
// local actor was not loaded.
func (f *FollowActivity) Object() ActorTarget {
	switch {
	case f.Target != nil:
		return f.Target
	case f.TargetURL != "":
		return &Remote{URL: f.TargetURL, Data: f.TargetData}
	default:
		return nil
	}
}

// Validate returns ErrInvalidTarget unless exactly one of a local actor or a
// remote actor is set.
func (f *FollowActivity) Validate() error {
	return exactlyOne(f.TargetID != nil || f.Target != nil, f.TargetURL != "")
}

func (f *FollowActivity) BeforeSave(tx *gorm.DB) error {
	if f.Target != nil && f.TargetID == nil {
		f.TargetID = ptr(f.Target.ID)
	}
	return f.Validate()
}

func exactlyOne(local, remote bool) error {
	if local == remote {
		return ErrInvalidTarget
	}
	return nil
}

type Activities struct {
	db *gorm.DB
}

func NewActivities(db *gorm.DB) *Activities {
	return &Activities{db: db}
}

// Append adds activity to outbox. Unset ids, timestamps and visibilities
// are filled in.
func (a *Activities) Append(outbox *Outbox, activity Activity) error {
	if err := activity.Validate(); err != nil {
		return err
	}
	base := activity.Base()
	if base.ID == 0 {
		base.ID = snowflake.Now()
	}
	if base.Timestamp.IsZero() {
		base.Timestamp = base.ID.ToTime()
	}
	if base.Visibility == "" {
		base.Visibility = VisibilityPublic
	}
	base.OutboxID = outbox.ID
	return a.db.Create(activity).Error
}
