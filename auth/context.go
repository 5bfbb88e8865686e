// Package auth resolves the authentication state of a request and decides
// what it may see.
package auth

import (
	"net/http"
	"strings"

	"github.com/lola-testbed/pub/models"
)

// Context is the authentication state of a single request. A Context is
// never persisted.
type Context struct {
	// Authenticated is true if the request presented a valid token.
	Authenticated bool
	// PortabilityScope is true if that token carries the account portability scope.
	PortabilityScope bool
	// Origin describes where the request was addressed to.
	Origin Origin
	// Token is the token the request authenticated with, or nil.
	Token *models.Token
}

// Anonymous returns an unauthenticated Context for r.
func Anonymous(r *http.Request) Context {
	return Context{Origin: OriginOf(r)}
}

// Origin is the scheme and host a request was addressed to.
type Origin struct {
	Scheme string
	Host   string
}

// OriginOf returns the origin of r. X-Forwarded-Proto takes precedence over
// the connection's TLS state.
func OriginOf(r *http.Request) Origin {
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	if proto := r.Header.Get("X-Forwarded-Proto"); proto != "" {
		proto, _, _ = strings.Cut(proto, ",")
		scheme = strings.ToLower(strings.TrimSpace(proto))
	}
	return Origin{Scheme: scheme, Host: r.Host}
}

// URL returns the absolute URL of path at this origin.
func (o Origin) URL(path string) string {
	return o.Scheme + "://" + o.Host + path
}

// Tier is the visibility level a Context grants.
type Tier int

const (
	// Public callers see public fields and public activities.
	Public Tier = iota
	// Portability callers additionally see private activities, collection
	// links and the migration block.
	Portability
)

func (t Tier) String() string {
	switch t {
	case Portability:
		return "portability"
	default:
		return "public"
	}
}

// TierOf returns the Tier granted by ctx.
func TierOf(ctx Context) Tier {
	if ctx.PortabilityScope {
		return Portability
	}
	return Public
}
