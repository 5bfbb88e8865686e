package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/alexedwards/scs"
	"github.com/lola-testbed/pub/internal/httpx"
	"github.com/lola-testbed/pub/models"
	"gorm.io/gorm"
)

// Session keys under which a token obtained by a previous authorization
// flow is cached.
const (
	SessionTokenKey   = "oauth_token"
	SessionExpiresKey = "oauth_token_expires"
)

var (
	// ErrNoCredentials is returned by a Strategy when the request carries
	// nothing on its channel.
	ErrNoCredentials = errors.New("no credentials")
	// ErrInvalidToken is returned by a Strategy when the presented token is
	// unknown, expired or revoked.
	ErrInvalidToken = errors.New("invalid token")
)

// TokenStore looks up access tokens.
type TokenStore interface {
	Lookup(ctx context.Context, token string) (*models.Token, error)
}

// A Strategy extracts and validates a token from one channel of a request.
type Strategy interface {
	Name() string
	Resolve(w http.ResponseWriter, r *http.Request) (*models.Token, error)
}

// Resolver tries each of its strategies in order; the first to return a
// token wins. A request no strategy accepts is anonymous.
type Resolver struct {
	strategies []Strategy
}

func NewResolver(strategies ...Strategy) *Resolver {
	return &Resolver{strategies: strategies}
}

// DefaultResolver returns a Resolver trying the bearer header, then the
// auth_token query parameter, then the session.
func DefaultResolver(tokens TokenStore, sessions *scs.Manager) *Resolver {
	return NewResolver(
		&BearerHeader{Tokens: tokens},
		&QueryParam{Tokens: tokens},
		&Session{Tokens: tokens, Sessions: sessions},
	)
}

// Resolve returns the Context for r. Resolve never fails; credentials which
// cannot be validated leave the request anonymous.
func (res *Resolver) Resolve(w http.ResponseWriter, r *http.Request) Context {
	ctx := Anonymous(r)
	for _, s := range res.strategies {
		tok, err := s.Resolve(w, r)
		switch {
		case err == nil:
			ctx.Authenticated = true
			ctx.PortabilityScope = tok.HasScope(models.PortabilityScope)
			ctx.Token = tok
			return ctx
		case errors.Is(err, ErrNoCredentials), errors.Is(err, ErrInvalidToken):
		default:
			httpx.Logger(r.Context()).Warn("auth: token lookup failed", "strategy", s.Name(), "error", err)
		}
	}
	return ctx
}

// validate returns the stored token for token if it is known, unexpired
// and unrevoked.
func validate(ctx context.Context, tokens TokenStore, token string, now time.Time) (*models.Token, error) {
	tok, err := tokens.Lookup(ctx, token)
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return nil, ErrInvalidToken
	case err != nil:
		return nil, fmt.Errorf("lookup token: %w", err)
	case !tok.Valid(now):
		return nil, ErrInvalidToken
	default:
		return tok, nil
	}
}

// BearerHeader reads a token from an "Authorization: Bearer <token>" header.
type BearerHeader struct {
	Tokens TokenStore
}

func (*BearerHeader) Name() string { return "bearer" }

func (b *BearerHeader) Resolve(w http.ResponseWriter, r *http.Request) (*models.Token, error) {
	token, ok := ParseBearer(r.Header.Get("Authorization"))
	if !ok {
		return nil, ErrNoCredentials
	}
	return validate(r.Context(), b.Tokens, token, time.Now())
}

// ParseBearer returns the token from an Authorization header value. It
// reports false for any other scheme or a blank token.
func ParseBearer(header string) (string, bool) {
	scheme, token, ok := strings.Cut(strings.TrimSpace(header), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

// QueryParam reads a token from the auth_token query parameter.
type QueryParam struct {
	Tokens TokenStore
}

func (*QueryParam) Name() string { return "auth_token" }

func (q *QueryParam) Resolve(w http.ResponseWriter, r *http.Request) (*models.Token, error) {
	var params struct {
		AuthToken string `schema:"auth_token"`
	}
	if err := httpx.Query(r, &params); err != nil {
		return nil, ErrNoCredentials
	}
	token := strings.TrimSpace(params.AuthToken)
	if token == "" {
		return nil, ErrNoCredentials
	}
	return validate(r.Context(), q.Tokens, token, time.Now())
}

// Session reads a token cached in the request's session. Tokens which have
// expired, been revoked or vanished are purged from the session. Requests
// with a public_only query parameter skip the session.
type Session struct {
	Tokens   TokenStore
	Sessions *scs.Manager
}

func (*Session) Name() string { return "session" }

func (s *Session) Resolve(w http.ResponseWriter, r *http.Request) (*models.Token, error) {
	if s.Sessions == nil || r.URL.Query().Has("public_only") {
		return nil, ErrNoCredentials
	}
	session := s.Sessions.Load(r)
	token, err := session.GetString(SessionTokenKey)
	if err != nil || token == "" {
		return nil, ErrNoCredentials
	}
	now := time.Now()
	if expires, err := session.GetTime(SessionExpiresKey); err == nil && !expires.IsZero() && !now.Before(expires) {
		return nil, s.purge(w, session)
	}
	tok, err := validate(r.Context(), s.Tokens, token, now)
	if errors.Is(err, ErrInvalidToken) {
		return nil, s.purge(w, session)
	}
	return tok, err
}

// purge removes the cached token from the session and returns ErrInvalidToken.
func (s *Session) purge(w http.ResponseWriter, session *scs.Session) error {
	for _, key := range []string{SessionTokenKey, SessionExpiresKey} {
		if err := session.Remove(w, key); err != nil {
			return fmt.Errorf("purge session: %w", err)
		}
	}
	return ErrInvalidToken
}

// Store caches tok in the request's session.
func Store(w http.ResponseWriter, r *http.Request, sessions *scs.Manager, tok *models.Token) error {
	session := sessions.Load(r)
	if err := session.PutString(w, SessionTokenKey, tok.AccessToken); err != nil {
		return err
	}
	return session.PutTime(w, SessionExpiresKey, tok.ExpiresAt)
}

// Forget removes any cached token from the request's session.
func Forget(w http.ResponseWriter, r *http.Request, sessions *scs.Manager) error {
	session := sessions.Load(r)
	for _, key := range []string{SessionTokenKey, SessionExpiresKey} {
		if err := session.Remove(w, key); err != nil {
			return err
		}
	}
	return nil
}
