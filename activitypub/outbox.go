package activitypub

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/lola-testbed/pub/internal/httpx"
	"github.com/lola-testbed/pub/internal/to"
	"github.com/lola-testbed/pub/models"
	"gorm.io/gorm"
)

// OutboxShow renders the outbox of the actor named in the request.
func OutboxShow(env *Env, w http.ResponseWriter, r *http.Request) error {
	_, outbox, err := findOutbox(env, r)
	if err != nil {
		return err
	}
	ctx := env.Authenticate(w, r)
	return to.ActivityJSON(w, NewSerialiser(ctx).Outbox(outbox))
}

func findOutbox(env *Env, r *http.Request) (*models.Actor, *models.Outbox, error) {
	actor, err := findActor(env, r)
	if err != nil {
		return nil, nil, err
	}
	outbox, err := env.Outboxes().FindByActor(actor.ID)
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return nil, nil, httpx.Problem(http.StatusNotFound, httpx.CodeOutboxNotFound, fmt.Errorf("actor %d has no outbox", actor.ID))
	case err != nil:
		return nil, nil, fmt.Errorf("find outbox for actor %d: %w", actor.ID, err)
	default:
		return actor, outbox, nil
	}
}
