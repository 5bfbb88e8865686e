package activitypub

import (
	"net/http"

	"github.com/lola-testbed/pub/internal/to"
)

// FollowingIndex renders the actors followed by the actor named in the
// request. The collection is public, though only portability callers are
// shown a link to it.
func FollowingIndex(env *Env, w http.ResponseWriter, r *http.Request) error {
	actor, err := findActor(env, r)
	if err != nil {
		return err
	}
	ctx := env.Authenticate(w, r)
	following, err := env.Relationships().Following(actor.ID)
	if err != nil {
		return err
	}
	return to.ActivityJSON(w, NewSerialiser(ctx).Following(actor, following))
}

// FollowersIndex renders the followers of the actor named in the request.
// Callers without the portability scope receive 401 Unauthorized.
func FollowersIndex(env *Env, w http.ResponseWriter, r *http.Request) error {
	actor, err := findActor(env, r)
	if err != nil {
		return err
	}
	ctx := env.Authenticate(w, r)
	if err := requirePortability(ctx); err != nil {
		return err
	}
	followers, err := env.Relationships().Followers(actor.ID)
	if err != nil {
		return err
	}
	return to.ActivityJSON(w, NewSerialiser(ctx).Followers(actor, followers))
}
