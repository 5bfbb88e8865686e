package models

import (
	"fmt"
	"math/rand"
	"time"

	"golang.org/x/exp/slog"
	"gorm.io/gorm"
)

// remoteServers are the federated servers sample remote content is attributed to.
var remoteServers = []struct {
	host      string
	usernames []string
}{
	{"mastodon.social", []string{"mastodon_user1", "mastodon_user2", "mastodon_user3"}},
	{"pixelfed.social", []string{"pixel_user1", "pixel_user2", "pixel_user3"}},
	{"pleroma.instance", []string{"pleroma_user1", "pleroma_user2", "pleroma_user3"}},
}

// SeedResult counts the objects created by a Seeder.
type SeedResult struct {
	Notes         int
	LocalLikes    int
	RemoteLikes   int
	LocalFollows  int
	RemoteFollows int
	Followers     int
}

func (r SeedResult) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Int("notes", r.Notes),
		slog.Int("local_likes", r.LocalLikes),
		slog.Int("remote_likes", r.RemoteLikes),
		slog.Int("local_follows", r.LocalFollows),
		slog.Int("remote_follows", r.RemoteFollows),
		slog.Int("followers", r.Followers),
	)
}

// A Seeder populates a source actor's outbox with sample content.
type Seeder struct {
	db   *gorm.DB
	rand *rand.Rand

	// Notes is the number of notes to create.
	Notes int
	// Local enables likes and follows between local actors.
	Local bool
}

func NewSeeder(db *gorm.DB, seed int64) *Seeder {
	return &Seeder{
		db:    db,
		rand:  rand.New(rand.NewSource(seed)),
		Notes: 3,
		Local: true,
	}
}

// Seed creates notes, their Create activities, local and remote likes,
// local and remote follows and a remote follower for source.
func (s *Seeder) Seed(source *Actor) (SeedResult, error) {
	var res SeedResult
	err := s.db.Transaction(func(tx *gorm.DB) error {
		outbox, err := NewOutboxes(tx).FindByActor(source.ID)
		if err != nil {
			return fmt.Errorf("find outbox for %q: %w", source.Username, err)
		}
		var others []*Actor
		if s.Local {
			if err := tx.Where("role = ? AND id <> ?", RoleSource, source.ID).Find(&others).Error; err != nil {
				return err
			}
		}
		for i := 0; i < s.Notes; i++ {
			note, err := NewNotes(tx).Create(source, fmt.Sprintf("Sample note %d from %s", i+1, source.Username), VisibilityPublic)
			if err != nil {
				return err
			}
			if err := NewActivities(tx).Append(outbox, NewCreate(source, note, VisibilityPublic)); err != nil {
				return err
			}
			res.Notes++
			if len(others) == 0 || s.rand.Intn(2) == 0 {
				continue
			}
			if err := s.localLike(tx, others[s.rand.Intn(len(others))], note); err != nil {
				return err
			}
			res.LocalLikes++
		}
		for n := 1 + s.rand.Intn(3); n > 0; n-- {
			like, err := NewLike(source, s.remoteNote(), VisibilityPublic)
			if err != nil {
				return err
			}
			if err := NewActivities(tx).Append(outbox, like); err != nil {
				return err
			}
			res.RemoteLikes++
		}
		rels := NewRelationships(tx)
		if len(others) > 0 {
			if _, err := rels.Follow(source, others[s.rand.Intn(len(others))], VisibilityPublic); err != nil {
				return err
			}
			res.LocalFollows++
		}
		if _, err := rels.Follow(source, s.remoteActor(), VisibilityPublic); err != nil {
			return err
		}
		res.RemoteFollows++
		if _, err := rels.AddFollower(source, s.remoteActor()); err != nil {
			return err
		}
		res.Followers++
		return nil
	})
	return res, err
}

func (s *Seeder) localLike(tx *gorm.DB, liker *Actor, note *Note) error {
	outbox, err := NewOutboxes(tx).FindByActor(liker.ID)
	if err != nil {
		return fmt.Errorf("find outbox for %q: %w", liker.Username, err)
	}
	like, err := NewLike(liker, note, VisibilityPublic)
	if err != nil {
		return err
	}
	return NewActivities(tx).Append(outbox, like)
}

func (s *Seeder) pick() (string, string) {
	server := remoteServers[s.rand.Intn(len(remoteServers))]
	return server.host, server.usernames[s.rand.Intn(len(server.usernames))]
}

// remoteNote returns a snapshot of a note on a remote server.
func (s *Seeder) remoteNote() *Remote {
	host, username := s.pick()
	published := time.Now().Add(-time.Duration(1+s.rand.Intn(30)) * 24 * time.Hour)
	return &Remote{
		URL: fmt.Sprintf("https://%s/notes/%d", host, 1000+s.rand.Intn(9000)),
		Data: Snapshot{
			"@context":   "https://www.w3.org/ns/activitystreams",
			"type":       "Note",
			"actor":      fmt.Sprintf("https://%s/users/%s", host, username),
			"content":    fmt.Sprintf("A federated note from %s on %s", username, host),
			"published":  published.UTC().Format(time.RFC3339),
			"visibility": string(VisibilityPublic),
		},
	}
}

// remoteActor returns a snapshot of an actor on a remote server.
func (s *Seeder) remoteActor() *Remote {
	host, username := s.pick()
	url := fmt.Sprintf("https://%s/users/%s", host, username)
	return &Remote{
		URL: url,
		Data: Snapshot{
			"type":              "Person",
			"preferredUsername": username,
			"name":              username,
			"url":               url,
		},
	}
}
