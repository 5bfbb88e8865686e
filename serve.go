package main

import (
	"context"
	"errors"
	"io"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/alexedwards/scs"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/lola-testbed/pub/activitypub"
	"github.com/lola-testbed/pub/auth"
	"github.com/lola-testbed/pub/internal/group"
	"github.com/lola-testbed/pub/internal/httpx"
	"github.com/lola-testbed/pub/internal/ratelimit"
	"github.com/lola-testbed/pub/models"
	"github.com/lola-testbed/pub/oauth"
	"github.com/lola-testbed/pub/wellknown"
	"github.com/lola-testbed/pub/workers"
	"golang.org/x/exp/slog"
	"gorm.io/gorm"
)

type ServeCmd struct {
	Addr             string        `help:"address to listen" default:"127.0.0.1:8080" env:"PUB_ADDR"`
	SessionKey       string        `help:"32 byte key authenticating session cookies; a random key is used if empty" env:"PUB_SESSION_KEY"`
	SessionLifetime  time.Duration `help:"lifetime of session cookies" default:"24h"`
	GCPProject       string        `help:"Google Cloud project traces are reported to" env:"GOOGLE_CLOUD_PROJECT"`
	RateLimit        bool          `help:"limit the request rate of each client" default:"true" negatable:"" env:"PUB_RATE_LIMIT"`
	StrictRateLimits bool          `help:"use the strict rate limits" env:"PUB_STRICT_RATE_LIMITS"`
	PurgeInterval    time.Duration `help:"how often expired and revoked tokens are deleted" default:"1h"`
	RefreshInterval  time.Duration `help:"how often snapshots of followed and following remote actors are refetched; zero disables refreshing"`
}

func (s *ServeCmd) Run(ctx *Context) error {
	db, err := ctx.open()
	if err != nil {
		return err
	}

	key := s.SessionKey
	if key == "" {
		key = strings.ReplaceAll(uuid.New().String(), "-", "")
		ctx.Logger.Warn("no session key configured, sessions will not survive a restart")
	}
	sessions := scs.NewCookieManager(key)
	sessions.Lifetime(s.SessionLifetime)

	var limiter *ratelimit.Limiter
	if s.RateLimit {
		rules := ratelimit.DefaultRules
		if s.StrictRateLimits {
			rules = ratelimit.StrictRules
		}
		limiter = ratelimit.New(rules)
	}

	r := s.router(ctx.Logger, db, sessions, limiter)

	if ctx.Debug {
		all, err := routes(r)
		if err != nil {
			ctx.Logger.Warn("walk routes", "error", err)
		}
		for _, route := range all {
			ctx.Logger.Debug("route", "route", route)
		}
	}

	svr := &http.Server{
		Addr:         s.Addr,
		Handler:      r,
		WriteTimeout: 15 * time.Second,
		ReadTimeout:  15 * time.Second,
	}

	g := group.New(context.Background())
	g.AddContext(func(ctx context.Context) error {
		sig := make(chan os.Signal, 1)
		signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
		defer signal.Stop(sig)
		select {
		case <-sig:
		case <-ctx.Done():
		}
		return nil
	})
	g.AddContext(func(gctx context.Context) error {
		go func() {
			<-gctx.Done()
			shutdown, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			svr.Shutdown(shutdown)
		}()
		ctx.Logger.Info("listening", "addr", s.Addr, "rate_limit", s.RateLimit, "strict", s.StrictRateLimits)
		if err := svr.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	if limiter != nil {
		g.Every(time.Minute, func(context.Context) error {
			if n := limiter.Prune(10 * time.Minute); n > 0 {
				ctx.Logger.Debug("pruned idle rate limit buckets", "count", n, "remaining", limiter.Len())
			}
			return nil
		})
	}
	if s.PurgeInterval > 0 {
		g.Every(s.PurgeInterval, func(gctx context.Context) error {
			n, err := models.NewTokens(db).Purge(gctx, time.Now())
			if err != nil {
				ctx.Logger.Error("purge tokens", "error", err)
				return nil
			}
			ctx.Logger.Info("purged tokens", "count", n)
			return nil
		})
	}
	if s.RefreshInterval > 0 {
		fetcher := newRemoteFetcher()
		g.Every(s.RefreshInterval, func(gctx context.Context) error {
			stats, err := workers.RefreshSnapshots(gctx, db, fetcher, ctx.Logger)
			if err != nil {
				ctx.Logger.Error("refresh snapshots", "error", err)
				return nil
			}
			ctx.Logger.Info("refreshed snapshots", "stats", stats)
			return nil
		})
	}
	return g.Wait()
}

// router returns the handler for every endpoint the server exposes.
// limiter may be nil.
func (s *ServeCmd) router(logger *slog.Logger, db *gorm.DB, sessions *scs.Manager, limiter *ratelimit.Limiter) *chi.Mux {
	resolver := auth.DefaultResolver(models.NewTokens(db), sessions)
	getEnv := func(r *http.Request) *activitypub.Env {
		return &activitypub.Env{
			Env: &models.Env{
				DB:     db.WithContext(r.Context()),
				Logger: httpx.Logger(r.Context()),
			},
			Resolver: resolver,
			Sessions: sessions,
		}
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(httpx.Trace(s.GCPProject, logger))
	if limiter != nil {
		r.Use(limiter.Middleware)
	}

	r.Route("/actors/{id}", func(r chi.Router) {
		r.Get("/", httpx.HandlerFunc(getEnv, activitypub.ActorsShow))
		r.Get("/outbox", httpx.HandlerFunc(getEnv, activitypub.OutboxShow))
		r.Get("/following", httpx.HandlerFunc(getEnv, activitypub.FollowingIndex))
		r.Get("/followers", httpx.HandlerFunc(getEnv, activitypub.FollowersIndex))
		r.Get("/liked", httpx.HandlerFunc(getEnv, activitypub.LikedIndex))
		r.Get("/content", httpx.HandlerFunc(getEnv, activitypub.ContentIndex))
		r.Get("/blocked", httpx.HandlerFunc(getEnv, activitypub.BlockedIndex))
	})

	r.Route("/oauth", func(r chi.Router) {
		r.Post("/session", httpx.HandlerFunc(getEnv, oauth.SessionCreate))
		r.Delete("/session", httpx.HandlerFunc(getEnv, oauth.SessionDestroy))
		r.Post("/revoke_token/", httpx.HandlerFunc(getEnv, oauth.TokenDestroy))
	})

	r.Route("/.well-known", func(r chi.Router) {
		r.Get("/oauth-authorization-server", httpx.HandlerFunc(getEnv, wellknown.AuthorizationServerShow))
		r.Get("/webfinger", httpx.HandlerFunc(getEnv, wellknown.WebfingerShow))
		r.Get("/host-meta", wellknown.HostMetaIndex)
		r.Get("/nodeinfo", httpx.HandlerFunc(getEnv, wellknown.NodeInfoIndex))
	})
	r.Get("/nodeinfo/{version}", httpx.HandlerFunc(getEnv, wellknown.NodeInfoShow))

	r.Get("/robots.txt", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		// no robots, especially not you Bingbot!
		io.WriteString(w, "User-agent: *\nDisallow: /")
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		httpx.WriteError(w, r, httpx.Problem(http.StatusNotFound, httpx.CodeNotFound, errors.New("no such endpoint")))
	})
	return r
}

// routes returns the method and pattern of every route r serves.
func routes(r chi.Routes) ([]string, error) {
	var all []string
	walkFunc := func(method string, route string, handler http.Handler, middlewares ...func(http.Handler) http.Handler) error {
		route = strings.Replace(route, "/*/", "/", -1)
		all = append(all, method+" "+route)
		return nil
	}
	err := chi.Walk(r, walkFunc)
	return all, err
}
