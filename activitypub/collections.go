package activitypub

import (
	"net/http"

	"github.com/lola-testbed/pub/internal/to"
	"github.com/lola-testbed/pub/models"
)

// LikedIndex renders the objects liked by the actor named in the request.
func LikedIndex(env *Env, w http.ResponseWriter, r *http.Request) error {
	actor, outbox, err := findOutbox(env, r)
	if err != nil {
		return err
	}
	ctx := env.Authenticate(w, r)
	if err := requirePortability(ctx); err != nil {
		return err
	}
	return to.ActivityJSON(w, NewSerialiser(ctx).Liked(actor, outbox))
}

// ContentIndex renders the notes authored by the actor named in the request.
func ContentIndex(env *Env, w http.ResponseWriter, r *http.Request) error {
	actor, err := findActor(env, r)
	if err != nil {
		return err
	}
	ctx := env.Authenticate(w, r)
	if err := requirePortability(ctx); err != nil {
		return err
	}
	notes, err := models.NewNotes(env.DB).FindByActor(actor.ID)
	if err != nil {
		return err
	}
	return to.ActivityJSON(w, NewSerialiser(ctx).Content(actor, notes))
}

// BlockedIndex renders the actors blocked by the actor named in the request.
func BlockedIndex(env *Env, w http.ResponseWriter, r *http.Request) error {
	actor, err := findActor(env, r)
	if err != nil {
		return err
	}
	ctx := env.Authenticate(w, r)
	if err := requirePortability(ctx); err != nil {
		return err
	}
	return to.ActivityJSON(w, NewSerialiser(ctx).Blocked(actor))
}
