package activitypub

import (
	"bytes"
	"testing"
	"time"

	"github.com/go-json-experiment/json"
	"github.com/lola-testbed/pub/auth"
	"github.com/lola-testbed/pub/models"
	"github.com/stretchr/testify/require"
)

var (
	anonymous = auth.Context{
		Origin: auth.Origin{Scheme: "https", Host: "lola.example"},
	}
	readonly = auth.Context{
		Authenticated: true,
		Origin:        auth.Origin{Scheme: "https", Host: "lola.example"},
	}
	portable = auth.Context{
		Authenticated:    true,
		PortabilityScope: true,
		Origin:           auth.Origin{Scheme: "https", Host: "lola.example"},
	}
)

func testActor() *models.Actor {
	return &models.Actor{ID: 100, Username: "alice_source", Name: "alice (source)", Role: models.RoleSource}
}

// testOutbox returns an outbox holding a public Create, a private Like and
// a public Follow.
func testOutbox() *models.Outbox {
	actor := testActor()
	t0 := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	return &models.Outbox{
		ID:      200,
		ActorID: actor.ID,
		Actor:   actor,
		Creates: []*models.CreateActivity{{
			ActivityBase: models.ActivityBase{ID: 1, ActorID: actor.ID, Visibility: models.VisibilityPublic, Timestamp: t0},
		}},
		Likes: []*models.LikeActivity{{
			ActivityBase: models.ActivityBase{ID: 2, ActorID: actor.ID, Visibility: models.VisibilityPrivate, Timestamp: t0.Add(time.Hour)},
			ObjectURL:    "https://mastodon.social/notes/1234",
			ObjectData:   models.Snapshot{"type": "Note", "content": "hello", "id": "https://wrong.example/1"},
		}},
		Follows: []*models.FollowActivity{{
			ActivityBase: models.ActivityBase{ID: 3, ActorID: actor.ID, Visibility: models.VisibilityPublic, Timestamp: t0.Add(2 * time.Hour)},
			TargetURL:    "https://pixelfed.social/users/pixel_user1",
			TargetData:   models.Snapshot{"type": "Person", "preferredUsername": "pixel_user1"},
		}},
	}
}

func marshal(t *testing.T, v any) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, json.MarshalFull(&buf, v))
	return buf.Bytes()
}

func TestSerialiserActor(t *testing.T) {
	t.Run("public tier", func(t *testing.T) {
		require := require.New(t)
		for _, ctx := range []auth.Context{anonymous, readonly} {
			a := NewSerialiser(ctx).Actor(testActor())
			require.Equal([]string{ActivityStreamsContext, BlockedContext}, a.Context)
			require.Equal("Person", a.Type)
			require.Equal("https://lola.example/actors/100", a.ID)
			require.Equal("alice_source", a.PreferredUsername)
			require.Equal("https://lola.example/actors/100/inbox", a.Inbox)
			require.Equal("https://lola.example/oauth/authorize/", a.AccountPortabilityOauth)
			require.NotNil(a.Previously)
			require.Empty(a.Outbox)
			require.Empty(a.Following)
			require.Empty(a.Followers)
			require.Empty(a.Liked)
			require.Empty(a.Blocked)
			require.Nil(a.Migration)
		}
	})

	t.Run("portability tier", func(t *testing.T) {
		require := require.New(t)
		a := NewSerialiser(portable).Actor(testActor())
		require.Equal([]string{ActivityStreamsContext, LOLAContext, BlockedContext}, a.Context)
		require.Equal("https://lola.example/actors/100/outbox", a.Outbox)
		require.Equal("https://lola.example/actors/100/following", a.Following)
		require.Equal("https://lola.example/actors/100/followers", a.Followers)
		require.Equal("https://lola.example/actors/100/liked", a.Liked)
		require.Equal("https://lola.example/actors/100/blocked", a.Blocked)
		require.Equal("https://lola.example/oauth/authorize/", a.AccountPortabilityOauth)
		require.Equal(&Migration{
			Outbox:    "https://lola.example/actors/100/outbox",
			Content:   "https://lola.example/actors/100/content",
			Following: "https://lola.example/actors/100/following",
			Blocked:   "https://lola.example/actors/100/blocked",
			Liked:     "https://lola.example/actors/100/liked",
		}, a.Migration)
	})

	t.Run("previously is never null", func(t *testing.T) {
		require := require.New(t)
		b := marshal(t, NewSerialiser(anonymous).Actor(testActor()))
		require.Contains(string(b), `"previously":[]`)

		actor := testActor()
		actor.Previously = []models.Move{{Type: "Move", Object: "https://mastodon.social/users/alice", Published: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}}
		b = marshal(t, NewSerialiser(anonymous).Actor(actor))
		require.Contains(string(b), `"object":"https://mastodon.social/users/alice"`)
	})
}

func TestSerialiserActivity(t *testing.T) {
	outbox := testOutbox()
	s := NewSerialiser(portable)

	t.Run("create without a note announces the actor", func(t *testing.T) {
		require := require.New(t)
		a := s.Activity(outbox.Creates[0], outbox.Actor)
		require.Equal("Create", a.Type)
		require.Equal("https://lola.example/activities/1", a.ID)
		require.Equal("https://lola.example/actors/100", a.Actor)
		require.Equal("2024-05-01T12:00:00.000Z", a.Published)
		require.Equal(models.VisibilityPublic, a.Visibility)
		require.Equal(s.Actor(outbox.Actor), a.Object)
	})

	t.Run("create with a note", func(t *testing.T) {
		require := require.New(t)
		note := &models.Note{ID: 7, ActorID: 100, Content: "hi", Published: time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC), Visibility: models.VisibilityPublic}
		a := s.Activity(models.NewCreate(outbox.Actor, note, models.VisibilityPublic), outbox.Actor)
		require.Equal(&Note{
			Context:    ActivityStreamsContext,
			Type:       "Note",
			ID:         "https://lola.example/notes/7",
			Actor:      "https://lola.example/actors/100",
			Content:    "hi",
			Published:  "2024-05-01T00:00:00.000Z",
			Visibility: models.VisibilityPublic,
		}, a.Object)
	})

	t.Run("remote like exposes the stored url as id", func(t *testing.T) {
		require := require.New(t)
		a := s.Activity(outbox.Likes[0], outbox.Actor)
		require.Equal("Like", a.Type)
		doc, ok := a.Object.(Document)
		require.True(ok)
		require.Equal("https://mastodon.social/notes/1234", doc["id"])
		require.Equal(ActivityStreamsContext, doc["@context"])
		require.Equal("hello", doc["content"])
	})

	t.Run("local like", func(t *testing.T) {
		require := require.New(t)
		note := &models.Note{ID: 9, ActorID: 101}
		like, err := models.NewLike(outbox.Actor, note, models.VisibilityPublic)
		require.NoError(err)
		a := s.Activity(like, outbox.Actor)
		require.Equal("https://lola.example/notes/9", a.Object.(*Note).ID)
	})

	t.Run("a public like of a private note does not reveal the note", func(t *testing.T) {
		require := require.New(t)
		note := &models.Note{ID: 9, ActorID: 101, Content: "for my eyes only", Visibility: models.VisibilityPrivate}
		like, err := models.NewLike(outbox.Actor, note, models.VisibilityPublic)
		require.NoError(err)

		for _, ctx := range []auth.Context{anonymous, readonly} {
			a := NewSerialiser(ctx).Activity(like, outbox.Actor)
			require.Equal("https://lola.example/notes/9", a.Object)
			require.NotContains(string(marshal(t, a)), "for my eyes only")
		}

		a := s.Activity(like, outbox.Actor)
		require.Equal("for my eyes only", a.Object.(*Note).Content)
	})

	t.Run("local follow", func(t *testing.T) {
		require := require.New(t)
		bob := &models.Actor{ID: 101, Username: "bob_source"}
		follow, err := models.NewFollow(outbox.Actor, bob, models.VisibilityPublic)
		require.NoError(err)
		a := s.Activity(follow, outbox.Actor)
		require.Equal("Follow", a.Type)
		require.Equal("https://lola.example/actors/101", a.Object.(*Actor).ID)
	})

	t.Run("remote follow", func(t *testing.T) {
		require := require.New(t)
		a := s.Activity(outbox.Follows[0], outbox.Actor)
		require.Equal("https://pixelfed.social/users/pixel_user1", a.Object.(Document)["id"])
	})
}

func TestSerialiserOutbox(t *testing.T) {
	t.Run("anonymous callers see public activities", func(t *testing.T) {
		require := require.New(t)
		o := NewSerialiser(anonymous).Outbox(testOutbox())
		require.Equal("OrderedCollection", o.Type)
		require.Equal("https://lola.example/actors/100/outbox", o.ID)
		require.Equal(2, o.TotalItems)
		require.Len(o.Items, o.TotalItems)
		for _, item := range o.Items {
			require.Equal(models.VisibilityPublic, item.Visibility)
		}
	})

	t.Run("tokens without the portability scope see public activities", func(t *testing.T) {
		require := require.New(t)
		o := NewSerialiser(readonly).Outbox(testOutbox())
		require.Equal(2, o.TotalItems)
	})

	t.Run("portability callers see everything, newest first", func(t *testing.T) {
		require := require.New(t)
		o := NewSerialiser(portable).Outbox(testOutbox())
		require.Equal(3, o.TotalItems)
		require.Len(o.Items, 3)
		require.Equal([]string{"Follow", "Like", "Create"}, []string{o.Items[0].Type, o.Items[1].Type, o.Items[2].Type})
	})

	t.Run("equal timestamps are ordered by id, newest first", func(t *testing.T) {
		require := require.New(t)
		outbox := testOutbox()
		ts := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
		for _, a := range outbox.Activities() {
			a.Base().Timestamp = ts
		}
		o := NewSerialiser(portable).Outbox(outbox)
		require.Equal([]string{
			"https://lola.example/activities/3",
			"https://lola.example/activities/2",
			"https://lola.example/activities/1",
		}, []string{o.Items[0].ID, o.Items[1].ID, o.Items[2].ID})
	})

	t.Run("empty outbox", func(t *testing.T) {
		require := require.New(t)
		o := NewSerialiser(anonymous).Outbox(&models.Outbox{ActorID: 100, Actor: testActor()})
		require.Equal(0, o.TotalItems)
		require.Contains(string(marshal(t, o)), `"items":[]`)
	})

	t.Run("projection is deterministic", func(t *testing.T) {
		require := require.New(t)
		a := marshal(t, NewSerialiser(portable).Outbox(testOutbox()))
		for i := 0; i < 10; i++ {
			require.Equal(a, marshal(t, NewSerialiser(portable).Outbox(testOutbox())))
		}
	})
}

func TestSerialiserRelationships(t *testing.T) {
	require := require.New(t)
	actor := testActor()
	bob := &models.Actor{ID: 101, Username: "bob_source"}
	url := "https://mastodon.social/users/carol"
	following := []*models.Following{
		{ID: 1, ActorID: actor.ID, TargetID: &bob.ID, Target: bob, Status: models.StatusActive},
		{ID: 2, ActorID: actor.ID, TargetURL: &url, TargetData: models.Snapshot{"type": "Person"}, Status: models.StatusActive},
		{ID: 3, ActorID: actor.ID, TargetURL: &url, Status: models.StatusInactive},
	}
	c := NewSerialiser(anonymous).Following(actor, following)
	require.Equal("https://lola.example/actors/100/following", c.ID)
	require.Equal(2, c.TotalItems)
	require.Len(c.OrderedItems, 2)
	require.Equal("https://lola.example/actors/101", c.OrderedItems[0].(*Actor).ID)
	require.Equal(url, c.OrderedItems[1].(Document)["id"])

	followers := []*models.Follower{
		{ID: 1, ActorID: actor.ID, TargetID: &bob.ID, Target: bob, Status: models.StatusInactive},
	}
	c = NewSerialiser(portable).Followers(actor, followers)
	require.Equal("https://lola.example/actors/100/followers", c.ID)
	require.Equal(0, c.TotalItems)
	require.Contains(string(marshal(t, c)), `"orderedItems":[]`)
}

func TestDocument(t *testing.T) {
	require := require.New(t)
	doc := remote(&models.Remote{
		URL: "https://example.com/notes/1",
		Data: models.Snapshot{
			"type":    "Note",
			"content": "hi",
			"tag":     []any{map[string]any{"type": "Hashtag", "name": "#lola"}},
			"id":      "https://example.com/other",
		},
	})
	require.Equal(
		`{"@context":"https://www.w3.org/ns/activitystreams","content":"hi","tag":[{"name":"#lola","type":"Hashtag"}],"type":"Note","id":"https://example.com/notes/1"}`,
		string(marshal(t, doc)),
	)

	override := remote(&models.Remote{URL: "https://example.com/notes/2", Data: models.Snapshot{"@context": []any{"https://example.com/ns"}}})
	require.Equal(`{"@context":["https://example.com/ns"],"id":"https://example.com/notes/2"}`, string(marshal(t, override)))
}
