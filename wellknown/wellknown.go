// Package wellknown serves the discovery documents under /.well-known/ and
// /nodeinfo/.
package wellknown

import (
	"net/http"

	"github.com/lola-testbed/pub/activitypub"
	"github.com/lola-testbed/pub/auth"
	"github.com/lola-testbed/pub/internal/to"
	"github.com/lola-testbed/pub/models"
)

// AuthorizationServer is an RFC 8414 authorization server metadata
// document, extended with the endpoint at which account portability is
// authorized.
type AuthorizationServer struct {
	Issuer                        string   `json:"issuer"`
	AuthorizationEndpoint         string   `json:"authorization_endpoint"`
	TokenEndpoint                 string   `json:"token_endpoint"`
	RevocationEndpoint            string   `json:"revocation_endpoint"`
	ScopesSupported               []string `json:"scopes_supported"`
	ResponseTypesSupported        []string `json:"response_types_supported"`
	GrantTypesSupported           []string `json:"grant_types_supported"`
	CodeChallengeMethodsSupported []string `json:"code_challenge_methods_supported"`
	ActivityPubAccountPortability string   `json:"activitypub_account_portability"`
}

// NewAuthorizationServer returns the metadata document for origin. Every
// URL in it is absolute.
func NewAuthorizationServer(origin auth.Origin) *AuthorizationServer {
	authorize := origin.URL(activitypub.AuthorizePath)
	return &AuthorizationServer{
		Issuer:                        origin.URL(""),
		AuthorizationEndpoint:         authorize,
		TokenEndpoint:                 origin.URL(activitypub.TokenPath),
		RevocationEndpoint:            origin.URL(activitypub.RevokePath),
		ScopesSupported:               []string{"read", "write", models.PortabilityScope},
		ResponseTypesSupported:        []string{"code"},
		GrantTypesSupported:           []string{"authorization_code", "refresh_token"},
		CodeChallengeMethodsSupported: []string{"S256"},
		ActivityPubAccountPortability: authorize,
	}
}

// AuthorizationServerShow serves /.well-known/oauth-authorization-server.
// The document may be read from any origin.
func AuthorizationServerShow(env *activitypub.Env, w http.ResponseWriter, r *http.Request) error {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Cache-Control", "max-age=3600, public")
	return to.JSON(w, NewAuthorizationServer(auth.OriginOf(r)))
}
