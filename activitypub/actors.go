package activitypub

import (
	"net/http"

	"github.com/lola-testbed/pub/internal/to"
)

// ActorsShow renders the actor named in the request. Every caller may see
// the actor; what they see depends on their token.
func ActorsShow(env *Env, w http.ResponseWriter, r *http.Request) error {
	actor, err := findActor(env, r)
	if err != nil {
		return err
	}
	ctx := env.Authenticate(w, r)
	return to.ActivityJSON(w, NewSerialiser(ctx).Actor(actor))
}
