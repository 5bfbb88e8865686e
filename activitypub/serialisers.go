package activitypub

import (
	"fmt"
	"sort"

	"github.com/lola-testbed/pub/auth"
	"github.com/lola-testbed/pub/internal/algorithms"
	"github.com/lola-testbed/pub/internal/snowflake"
	"github.com/lola-testbed/pub/models"
)

// serialisers for ActivityStreams documents.

type Actor struct {
	Context                 []string      `json:"@context"`
	Type                    string        `json:"type"`
	ID                      string        `json:"id"`
	PreferredUsername       string        `json:"preferredUsername"`
	Name                    string        `json:"name"`
	Inbox                   string        `json:"inbox"`
	Outbox                  string        `json:"outbox,omitempty"`
	Following               string        `json:"following,omitempty"`
	Followers               string        `json:"followers,omitempty"`
	Liked                   string        `json:"liked,omitempty"`
	Blocked                 string        `json:"blocked,omitempty"`
	Previously              []models.Move `json:"previously"` // never null
	AccountPortabilityOauth string        `json:"accountPortabilityOauth"`
	Migration               *Migration    `json:"migration,omitempty"`
}

// Migration bundles the collections a destination server copies when an
// account moves.
type Migration struct {
	Outbox    string `json:"outbox"`
	Content   string `json:"content"`
	Following string `json:"following"`
	Blocked   string `json:"blocked"`
	Liked     string `json:"liked"`
}

type Note struct {
	Context    string            `json:"@context"`
	Type       string            `json:"type"`
	ID         string            `json:"id"`
	Actor      string            `json:"actor"`
	Content    string            `json:"content"`
	Published  string            `json:"published"`
	Visibility models.Visibility `json:"visibility"`
}

type Activity struct {
	Context    string            `json:"@context"`
	Type       string            `json:"type"`
	ID         string            `json:"id"`
	Actor      string            `json:"actor"`
	Published  string            `json:"published"`
	Visibility models.Visibility `json:"visibility"`
	Object     any               `json:"object"`
}

// Outbox is an OrderedCollection of activities.
type Outbox struct {
	Context    string      `json:"@context"`
	Type       string      `json:"type"`
	ID         string      `json:"id"`
	TotalItems int         `json:"totalItems"`
	Items      []*Activity `json:"items"`
}

// Collection is an OrderedCollection of objects.
type Collection struct {
	Context      string `json:"@context"`
	Type         string `json:"type"`
	ID           string `json:"id"`
	TotalItems   int    `json:"totalItems"`
	OrderedItems []any  `json:"orderedItems"`
}

// Serialiser renders documents as seen by the holder of an auth.Context.
type Serialiser struct {
	ctx auth.Context
}

func NewSerialiser(ctx auth.Context) *Serialiser {
	return &Serialiser{ctx: ctx}
}

func (s *Serialiser) portable() bool {
	return auth.TierOf(s.ctx) == auth.Portability
}

func (s *Serialiser) url(format string, args ...any) string {
	return s.ctx.Origin.URL(fmt.Sprintf(format, args...))
}

// ActorURL returns the id of the actor with the given id.
func (s *Serialiser) ActorURL(id snowflake.ID) string {
	return s.url("/actors/%d", id)
}

// Actor renders a as a Person. Collection links and the migration block
// are included only for the portability tier.
func (s *Serialiser) Actor(a *models.Actor) *Actor {
	id := s.ActorURL(a.ID)
	actor := &Actor{
		Context:                 []string{ActivityStreamsContext, BlockedContext},
		Type:                    "Person",
		ID:                      id,
		PreferredUsername:       a.Username,
		Name:                    a.Name,
		Inbox:                   id + "/inbox",
		Previously:              a.PreviouslyOrEmpty(),
		AccountPortabilityOauth: s.url(AuthorizePath),
	}
	if !s.portable() {
		return actor
	}
	actor.Context = []string{ActivityStreamsContext, LOLAContext, BlockedContext}
	actor.Outbox = id + "/outbox"
	actor.Following = id + "/following"
	actor.Followers = id + "/followers"
	actor.Liked = id + "/liked"
	actor.Blocked = id + "/blocked"
	actor.Migration = &Migration{
		Outbox:    actor.Outbox,
		Content:   id + "/content",
		Following: actor.Following,
		Blocked:   actor.Blocked,
		Liked:     actor.Liked,
	}
	return actor
}

func (s *Serialiser) Note(n *models.Note) *Note {
	return &Note{
		Context:    ActivityStreamsContext,
		Type:       "Note",
		ID:         s.url("/notes/%d", n.ID),
		Actor:      s.ActorURL(n.ActorID),
		Content:    n.Content,
		Published:  formatTime(n.Published),
		Visibility: n.Visibility,
	}
}

// Activity renders a. self is the actor who performed a; a Create without a
// note announces self.
func (s *Serialiser) Activity(a models.Activity, self *models.Actor) *Activity {
	base := a.Base()
	act := &Activity{
		Context:    ActivityStreamsContext,
		ID:         s.url("/activities/%d", base.ID),
		Actor:      s.ActorURL(base.ActorID),
		Published:  formatTime(base.Timestamp),
		Visibility: base.Visibility,
	}
	switch a := a.(type) {
	case *models.CreateActivity:
		act.Type = "Create"
		if a.Note != nil {
			act.Object = s.noteTarget(a.Note)
		} else {
			act.Object = s.Actor(self)
		}
	case *models.LikeActivity:
		act.Type = "Like"
		act.Object = s.noteTarget(a.Object())
	case *models.FollowActivity:
		act.Type = "Follow"
		act.Object = s.actorTarget(a.Object())
	}
	return act
}

func (s *Serialiser) noteTarget(t models.NoteTarget) any {
	switch t := t.(type) {
	case *models.Note:
		if !s.portable() && !t.Visibility.IsPublic() {
			// only the id of a note the caller may not read.
			return s.url("/notes/%d", t.ID)
		}
		return s.Note(t)
	case *models.Remote:
		return remote(t)
	default:
		return nil
	}
}

func (s *Serialiser) actorTarget(t models.ActorTarget) any {
	switch t := t.(type) {
	case *models.Actor:
		return s.Actor(t)
	case *models.Remote:
		return remote(t)
	default:
		return nil
	}
}

// Outbox merges the three activity sets of o, newest first. Activities with
// equal timestamps are ordered by id, most recent first. Only public
// activities are included below the portability tier.
func (s *Serialiser) Outbox(o *models.Outbox) *Outbox {
	activities := o.Activities()
	if !s.portable() {
		activities = algorithms.Filter(activities, func(a models.Activity) bool {
			return a.Base().Visibility.IsPublic()
		})
	}
	sort.SliceStable(activities, func(i, j int) bool {
		a, b := activities[i].Base(), activities[j].Base()
		if !a.Timestamp.Equal(b.Timestamp) {
			return a.Timestamp.After(b.Timestamp)
		}
		return a.ID > b.ID
	})
	items := algorithms.Map(activities, func(a models.Activity) *Activity {
		return s.Activity(a, o.Actor)
	})
	return &Outbox{
		Context:    ActivityStreamsContext,
		Type:       "OrderedCollection",
		ID:         s.ActorURL(o.ActorID) + "/outbox",
		TotalItems: len(items),
		Items:      items,
	}
}

func (s *Serialiser) collection(id string, items []any) *Collection {
	return &Collection{
		Context:      ActivityStreamsContext,
		Type:         "OrderedCollection",
		ID:           id,
		TotalItems:   len(items),
		OrderedItems: items,
	}
}

func (s *Serialiser) members(rels []models.Relationship) []any {
	active := algorithms.Filter(rels, models.Relationship.IsActive)
	return algorithms.Map(active, func(r models.Relationship) any {
		return s.actorTarget(r.Member())
	})
}

// Following renders the actors a follows.
func (s *Serialiser) Following(a *models.Actor, following []*models.Following) *Collection {
	rels := algorithms.Map(following, func(f *models.Following) models.Relationship { return f })
	return s.collection(s.ActorURL(a.ID)+"/following", s.members(rels))
}

// Followers renders the actors following a.
func (s *Serialiser) Followers(a *models.Actor, followers []*models.Follower) *Collection {
	rels := algorithms.Map(followers, func(f *models.Follower) models.Relationship { return f })
	return s.collection(s.ActorURL(a.ID)+"/followers", s.members(rels))
}

// Liked renders the objects a has liked, newest like first.
func (s *Serialiser) Liked(a *models.Actor, o *models.Outbox) *Collection {
	likes := append([]*models.LikeActivity(nil), o.Likes...)
	sort.SliceStable(likes, func(i, j int) bool {
		if !likes[i].Timestamp.Equal(likes[j].Timestamp) {
			return likes[i].Timestamp.After(likes[j].Timestamp)
		}
		return likes[i].ID > likes[j].ID
	})
	items := algorithms.Map(likes, func(l *models.LikeActivity) any {
		return s.noteTarget(l.Object())
	})
	return s.collection(s.ActorURL(a.ID)+"/liked", items)
}

// Content renders the notes authored by a.
func (s *Serialiser) Content(a *models.Actor, notes []*models.Note) *Collection {
	items := algorithms.Map(notes, func(n *models.Note) any {
		return s.Note(n)
	})
	return s.collection(s.ActorURL(a.ID)+"/content", items)
}

// Blocked renders the actors a has blocked. Blocks are not recorded, so the
// collection is always empty.
func (s *Serialiser) Blocked(a *models.Actor) *Collection {
	return s.collection(s.ActorURL(a.ID)+"/blocked", []any{})
}
