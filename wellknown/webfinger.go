package wellknown

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-json-experiment/json"
	"github.com/lola-testbed/pub/activitypub"
	"github.com/lola-testbed/pub/auth"
	"github.com/lola-testbed/pub/internal/httpx"
	"github.com/lola-testbed/pub/internal/webfinger"
	"gorm.io/gorm"
)

// WebfingerShow resolves acct:username@host to the local actor with that
// username.
func WebfingerShow(env *activitypub.Env, w http.ResponseWriter, r *http.Request) error {
	var params struct {
		Resource string `schema:"resource"`
	}
	if err := httpx.Query(r, &params); err != nil {
		return err
	}
	acct, err := webfinger.Parse(params.Resource)
	if err != nil {
		return httpx.Problem(http.StatusBadRequest, httpx.CodeInvalidParameters, err)
	}
	origin := auth.OriginOf(r)
	// the resource must name this host, not merely a user on it.
	if acct.Host != "" && !strings.EqualFold(acct.Host, origin.Host) {
		return httpx.Error(http.StatusNotFound, fmt.Errorf("%s is not hosted here", acct))
	}
	actor, err := env.Actors().FindByUsername(acct.User)
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return httpx.Problem(http.StatusNotFound, httpx.CodeActorNotFound, fmt.Errorf("actor %q not found", acct.User))
	case err != nil:
		return err
	}
	self := activitypub.NewSerialiser(auth.Anonymous(r)).ActorURL(actor.ID)
	acct.Host = origin.Host
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Content-Type", "application/jrd+json; charset=utf-8")
	return json.MarshalFull(w, &webfinger.Webfinger{
		Subject: acct.String(),
		Aliases: []string{self},
		Links: []webfinger.Link{{
			Rel:  "self",
			Type: webfinger.ActivityPubMediaType,
			Href: self,
		}},
	})
}
