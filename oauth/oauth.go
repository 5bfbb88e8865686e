// Package oauth handles the token endpoints the portability test server
// exposes alongside the authorization server: caching a token in a browser
// session, forgetting it again, and revoking tokens.
package oauth

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/lola-testbed/pub/activitypub"
	"github.com/lola-testbed/pub/auth"
	"github.com/lola-testbed/pub/internal/httpx"
	"github.com/lola-testbed/pub/internal/to"
	"gorm.io/gorm"
)

type tokenParams struct {
	Token string `json:"token" schema:"token"`
}

// token returns the token named in the request body, falling back to the
// Authorization header.
func token(r *http.Request) (string, error) {
	var params tokenParams
	if r.ContentLength != 0 {
		if err := httpx.Params(r, &params); err != nil {
			return "", err
		}
	}
	if tok := strings.TrimSpace(params.Token); tok != "" {
		return tok, nil
	}
	if tok, ok := auth.ParseBearer(r.Header.Get("Authorization")); ok {
		return tok, nil
	}
	return "", httpx.Problem(http.StatusBadRequest, httpx.CodeInvalidParameters, errors.New("token is required"))
}

// SessionCreate caches a valid token in the caller's session so that
// subsequent browser requests are authenticated without a header.
func SessionCreate(env *activitypub.Env, w http.ResponseWriter, r *http.Request) error {
	if env.Sessions == nil {
		return httpx.Error(http.StatusNotFound, errors.New("sessions are disabled"))
	}
	token, err := token(r)
	if err != nil {
		return err
	}
	tok, err := env.Tokens().Lookup(r.Context(), token)
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return httpx.Problem(http.StatusUnauthorized, httpx.CodeUnauthorized, errors.New("invalid token"))
	case err != nil:
		return err
	case !tok.Valid(time.Now()):
		return httpx.Problem(http.StatusUnauthorized, httpx.CodeUnauthorized, errors.New("token has expired or been revoked"))
	}
	if err := auth.Store(w, r, env.Sessions, tok); err != nil {
		return fmt.Errorf("store session token: %w", err)
	}
	env.Log().Info("session token stored", "user_id", tok.UserID, "scope", tok.Scope)
	return to.JSON(w, map[string]any{
		"scope":      tok.Scope,
		"expires_at": tok.ExpiresAt.UTC().Format(time.RFC3339),
	})
}

// SessionDestroy forgets any token cached in the caller's session.
func SessionDestroy(env *activitypub.Env, w http.ResponseWriter, r *http.Request) error {
	if env.Sessions == nil {
		return httpx.Error(http.StatusNotFound, errors.New("sessions are disabled"))
	}
	if err := auth.Forget(w, r, env.Sessions); err != nil {
		return fmt.Errorf("forget session token: %w", err)
	}
	w.WriteHeader(http.StatusNoContent)
	return nil
}

// TokenDestroy revokes a token. As in RFC 7009, revoking an unknown token
// succeeds.
func TokenDestroy(env *activitypub.Env, w http.ResponseWriter, r *http.Request) error {
	token, err := token(r)
	if err != nil {
		return err
	}
	switch err := env.Tokens().Revoke(r.Context(), token); {
	case errors.Is(err, gorm.ErrRecordNotFound):
		env.Log().Debug("revoke: unknown token")
	case err != nil:
		return fmt.Errorf("revoke token: %w", err)
	default:
		env.Log().Info("token revoked")
	}
	w.WriteHeader(http.StatusOK)
	return nil
}
