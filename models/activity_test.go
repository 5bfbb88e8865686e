package models

import (
	"testing"
	"time"

	"github.com/lola-testbed/pub/internal/snowflake"
	"github.com/stretchr/testify/require"
)

func TestNewLike(t *testing.T) {
	actor := &Actor{ID: 1, Username: "alice_source"}
	note := &Note{ID: 2, ActorID: 1}

	t.Run("local", func(t *testing.T) {
		require := require.New(t)
		like, err := NewLike(actor, note, VisibilityPublic)
		require.NoError(err)
		require.NoError(like.Validate())
		require.Equal(note, like.Object())
	})

	t.Run("remote", func(t *testing.T) {
		require := require.New(t)
		remote := &Remote{URL: "https://example.com/notes/1", Data: Snapshot{"type": "Note"}}
		like, err := NewLike(actor, remote, VisibilityPublic)
		require.NoError(err)
		require.NoError(like.Validate())
		require.Equal(remote, like.Object())
	})

	t.Run("neither", func(t *testing.T) {
		require := require.New(t)
		_, err := NewLike(actor, nil, VisibilityPublic)
		require.ErrorIs(err, ErrInvalidTarget)
		_, err = NewLike(actor, (*Note)(nil), VisibilityPublic)
		require.ErrorIs(err, ErrInvalidTarget)
		_, err = NewLike(actor, &Remote{}, VisibilityPublic)
		require.ErrorIs(err, ErrInvalidTarget)
		require.ErrorIs((&LikeActivity{}).Validate(), ErrInvalidTarget)
	})

	t.Run("both", func(t *testing.T) {
		require := require.New(t)
		like := &LikeActivity{
			NoteID:    &note.ID,
			ObjectURL: "https://example.com/notes/1",
		}
		require.ErrorIs(like.Validate(), ErrInvalidTarget)
	})
}

func TestNewFollow(t *testing.T) {
	actor := &Actor{ID: 1, Username: "alice_source"}
	target := &Actor{ID: 2, Username: "bob_source"}

	t.Run("local", func(t *testing.T) {
		require := require.New(t)
		follow, err := NewFollow(actor, target, VisibilityPublic)
		require.NoError(err)
		require.NoError(follow.Validate())
		require.Equal(target, follow.Object())
	})

	t.Run("remote", func(t *testing.T) {
		require := require.New(t)
		remote := &Remote{URL: "https://example.com/users/bob"}
		follow, err := NewFollow(actor, remote, VisibilityPublic)
		require.NoError(err)
		require.Equal(remote, follow.Object())
	})

	t.Run("neither", func(t *testing.T) {
		require := require.New(t)
		_, err := NewFollow(actor, nil, VisibilityPublic)
		require.ErrorIs(err, ErrInvalidTarget)
		_, err = NewFollow(actor, (*Actor)(nil), VisibilityPublic)
		require.ErrorIs(err, ErrInvalidTarget)
	})

	t.Run("both", func(t *testing.T) {
		require := require.New(t)
		follow := &FollowActivity{
			TargetID:  &target.ID,
			TargetURL: "https://example.com/users/bob",
		}
		require.ErrorIs(follow.Validate(), ErrInvalidTarget)
	})
}

func TestActivities(t *testing.T) {
	db := setupTestDB(t)

	t.Run("Append adds each kind to its own set", func(t *testing.T) {
		require := require.New(t)
		tx := db.Begin()
		defer tx.Rollback()

		_, alice, _ := MockUser(t, tx, "alice")
		_, bob, _ := MockUser(t, tx, "bob")
		outbox, err := NewOutboxes(tx).FindByActor(alice.ID)
		require.NoError(err)

		note := MockNote(t, tx, alice, "hello", VisibilityPublic)
		require.NoError(NewActivities(tx).Append(outbox, NewCreate(alice, note, VisibilityPublic)))

		like, err := NewLike(alice, &Remote{URL: "https://example.com/notes/1", Data: Snapshot{"type": "Note"}}, VisibilityPrivate)
		require.NoError(err)
		require.NoError(NewActivities(tx).Append(outbox, like))

		follow, err := NewFollow(alice, bob, VisibilityPublic)
		require.NoError(err)
		require.NoError(NewActivities(tx).Append(outbox, follow))

		outbox, err = NewOutboxes(tx).FindByActor(alice.ID)
		require.NoError(err)
		require.Len(outbox.Creates, 2)
		require.Len(outbox.Likes, 1)
		require.Len(outbox.Follows, 1)
		require.Len(outbox.Activities(), 4)

		require.Equal(VisibilityPrivate, outbox.Likes[0].Visibility)
		require.Equal(&Remote{URL: "https://example.com/notes/1", Data: Snapshot{"type": "Note"}}, outbox.Likes[0].Object())
		require.Equal(bob.ID, outbox.Follows[0].Object().(*Actor).ID)
		require.Equal(alice.ID, outbox.Actor.ID)
	})

	t.Run("Append fills in ids and timestamps", func(t *testing.T) {
		require := require.New(t)
		tx := db.Begin()
		defer tx.Rollback()

		_, alice, _ := MockUser(t, tx, "alice")
		outbox, err := NewOutboxes(tx).FindByActor(alice.ID)
		require.NoError(err)

		create := NewCreate(alice, nil, "")
		require.NoError(NewActivities(tx).Append(outbox, create))
		require.NotZero(create.ID)
		require.Equal(outbox.ID, create.OutboxID)
		require.Equal(VisibilityPublic, create.Visibility)
		require.Equal(create.ID.ToTime(), create.Timestamp)

		ts := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
		backdated := NewCreate(alice, nil, VisibilityPublic)
		backdated.Timestamp = ts
		require.NoError(NewActivities(tx).Append(outbox, backdated))
		require.Equal(ts, backdated.Timestamp)
	})

	t.Run("Rows with both targets are rejected on save", func(t *testing.T) {
		require := require.New(t)
		tx := db.Begin()
		defer tx.Rollback()

		_, alice, _ := MockUser(t, tx, "alice")
		note := MockNote(t, tx, alice, "hello", VisibilityPublic)
		outbox, err := NewOutboxes(tx).FindByActor(alice.ID)
		require.NoError(err)

		like := &LikeActivity{
			ActivityBase: ActivityBase{
				ID:        snowflake.Now(),
				ActorID:   alice.ID,
				OutboxID:  outbox.ID,
				Timestamp: time.Now(),
			},
			NoteID:    &note.ID,
			ObjectURL: "https://example.com/notes/1",
		}
		require.ErrorIs(tx.Create(like).Error, ErrInvalidTarget)

		follow := &FollowActivity{
			ActivityBase: ActivityBase{
				ID:        snowflake.Now(),
				ActorID:   alice.ID,
				OutboxID:  outbox.ID,
				Timestamp: time.Now(),
			},
		}
		require.ErrorIs(tx.Create(follow).Error, ErrInvalidTarget)
	})
}
