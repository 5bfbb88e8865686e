package main

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alexedwards/scs"
	"github.com/go-json-experiment/json"
	"github.com/lola-testbed/pub/internal/httpx"
	"github.com/lola-testbed/pub/internal/ratelimit"
	"github.com/lola-testbed/pub/models"
	"github.com/stretchr/testify/require"
	"golang.org/x/exp/slog"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	require := require.New(t)
	db, err := gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{
		TranslateError: true,
		Logger: logger.Default.LogMode(func() logger.LogLevel {
			return logger.Warn
		}()),
	})
	require.NoError(err)

	err = db.AutoMigrate(models.AllTables()...)
	require.NoError(err)

	// enable foreign key constraints
	err = db.Exec("PRAGMA foreign_keys = ON").Error
	require.NoError(err)

	return db
}

func TestRouter(t *testing.T) {
	db := setupTestDB(t)
	sessions := scs.NewCookieManager("u46IpCV9y5Vlur8YvODJEhgOY8m9JVE4")

	t.Run("serves actors and discovery documents", func(t *testing.T) {
		require := require.New(t)
		tx := db.Begin()
		defer tx.Rollback()

		user, err := models.NewUsers(tx).Create("alice@example.com", "alice", "password")
		require.NoError(err)
		source, _, err := models.NewActors(tx).CreatePair(user)
		require.NoError(err)

		cmd := &ServeCmd{}
		h := cmd.router(slog.Default(), tx, sessions, nil)
		for _, path := range []string{
			fmt.Sprintf("/actors/%d", source.ID),
			fmt.Sprintf("/actors/%d/outbox", source.ID),
			fmt.Sprintf("/actors/%d/following", source.ID),
			"/.well-known/oauth-authorization-server",
			"/.well-known/webfinger?resource=acct:alice_source@example.com",
			"/.well-known/nodeinfo",
			"/nodeinfo/2.1",
			"/robots.txt",
		} {
			w := httptest.NewRecorder()
			h.ServeHTTP(w, httptest.NewRequest("GET", path, nil))
			require.Equal(http.StatusOK, w.Code, path)
		}

		w := httptest.NewRecorder()
		h.ServeHTTP(w, httptest.NewRequest("GET", fmt.Sprintf("/actors/%d/followers", source.ID), nil))
		require.Equal(http.StatusUnauthorized, w.Code)
	})

	t.Run("routes lists the served endpoints", func(t *testing.T) {
		require := require.New(t)
		tx := db.Begin()
		defer tx.Rollback()

		got, err := routes((&ServeCmd{}).router(slog.Default(), tx, sessions, nil))
		require.NoError(err)
		for _, want := range []string{
			"GET /actors/{id}/outbox",
			"GET /actors/{id}/followers",
			"POST /oauth/revoke_token/",
			"DELETE /oauth/session",
			"GET /.well-known/oauth-authorization-server",
			"GET /nodeinfo/{version}",
			"GET /robots.txt",
		} {
			require.Contains(got, want)
		}
	})

	t.Run("unknown paths are reported as JSON", func(t *testing.T) {
		require := require.New(t)
		tx := db.Begin()
		defer tx.Rollback()

		h := (&ServeCmd{}).router(slog.Default(), tx, sessions, nil)
		w := httptest.NewRecorder()
		r := httptest.NewRequest("GET", "/api/v1/instance", nil)
		r.Header.Set("X-Request-Id", "abc123")
		h.ServeHTTP(w, r)
		require.Equal(http.StatusNotFound, w.Code)

		var body httpx.ErrorBody
		require.NoError(json.Unmarshal(w.Body.Bytes(), &body))
		require.Equal(httpx.CodeNotFound, body.ErrorCode)
		require.Equal("/api/v1/instance", body.Endpoint)
		require.Equal("abc123", body.RequestID)
	})

	t.Run("requests are rate limited per client", func(t *testing.T) {
		require := require.New(t)
		tx := db.Begin()
		defer tx.Rollback()

		limiter := ratelimit.New([]ratelimit.Rule{{Prefix: "/.well-known/", Requests: 2, Window: time.Minute}})
		h := (&ServeCmd{}).router(slog.Default(), tx, sessions, limiter)
		get := func(addr string) *httptest.ResponseRecorder {
			r := httptest.NewRequest("GET", "/.well-known/oauth-authorization-server", nil)
			r.RemoteAddr = addr
			w := httptest.NewRecorder()
			h.ServeHTTP(w, r)
			return w
		}
		require.Equal(http.StatusOK, get("192.0.2.1:1234").Code)
		require.Equal(http.StatusOK, get("192.0.2.1:1234").Code)
		w := get("192.0.2.1:1234")
		require.Equal(http.StatusTooManyRequests, w.Code)
		require.NotEmpty(w.Header().Get("Retry-After"))

		require.Equal(http.StatusOK, get("192.0.2.2:1234").Code)
	})
}
