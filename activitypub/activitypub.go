// Package activitypub renders actors, their outboxes and relationships as
// ActivityStreams documents, revealing as much as the caller's token allows.
package activitypub

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/alexedwards/scs"
	"github.com/go-chi/chi/v5"
	"github.com/lola-testbed/pub/auth"
	"github.com/lola-testbed/pub/internal/httpx"
	"github.com/lola-testbed/pub/internal/snowflake"
	"github.com/lola-testbed/pub/models"
	"gorm.io/gorm"
)

// JSON-LD contexts.
const (
	ActivityStreamsContext = "https://www.w3.org/ns/activitystreams"
	LOLAContext            = "https://swicg.github.io/activitypub-data-portability/lola.jsonld"
	BlockedContext         = "https://purl.archive.org/socialweb/blocked"
)

// Paths of the portability OAuth endpoints, relative to the server's origin.
const (
	AuthorizePath = "/oauth/authorize/"
	TokenPath     = "/oauth/token/"
	RevokePath    = "/oauth/revoke_token/"
)

// published is the timestamp format used in documents.
const published = "2006-01-02T15:04:05.000Z"

type Env struct {
	*models.Env
	Resolver *auth.Resolver
	// Sessions holds tokens cached by a browser session. It may be nil.
	Sessions *scs.Manager
}

// Authenticate resolves the authentication state of r.
func (e *Env) Authenticate(w http.ResponseWriter, r *http.Request) auth.Context {
	return e.Resolver.Resolve(w, r)
}

var errPortabilityRequired = httpx.Problem(http.StatusUnauthorized, httpx.CodeUnauthorized,
	errors.New("authentication with the "+models.PortabilityScope+" scope is required"))

// requirePortability returns a 401 error unless ctx grants the portability tier.
func requirePortability(ctx auth.Context) error {
	if auth.TierOf(ctx) != auth.Portability {
		return errPortabilityRequired
	}
	return nil
}

// findActor returns the actor named by the id URL parameter.
func findActor(env *Env, r *http.Request) (*models.Actor, error) {
	id, err := snowflake.Parse(chi.URLParam(r, "id"))
	if err != nil {
		return nil, httpx.Problem(http.StatusNotFound, httpx.CodeActorNotFound, fmt.Errorf("actor %q not found", chi.URLParam(r, "id")))
	}
	actor, err := env.Actors().FindByID(id)
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return nil, httpx.Problem(http.StatusNotFound, httpx.CodeActorNotFound, fmt.Errorf("actor %d not found", id))
	case err != nil:
		return nil, fmt.Errorf("find actor %d: %w", id, err)
	default:
		return actor, nil
	}
}

func formatTime(t time.Time) string {
	return t.UTC().Format(published)
}

func stringFromAny(v any) string {
	s, _ := v.(string)
	return s
}

func mapFromAny(v any) map[string]any {
	m, _ := v.(map[string]any)
	return m
}

func anyToSlice(v any) []any {
	switch v := v.(type) {
	case []any:
		return v
	case nil:
		return nil
	default:
		return []any{v}
	}
}
