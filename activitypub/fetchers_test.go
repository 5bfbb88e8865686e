package activitypub

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/lola-testbed/pub/internal/webfinger"
	"github.com/lola-testbed/pub/models"
	"github.com/stretchr/testify/require"
)

func remoteServer(t *testing.T) *httptest.Server {
	t.Helper()
	var srv *httptest.Server
	docs := map[string]string{
		"/users/alice": `{
			"@context": "https://www.w3.org/ns/activitystreams",
			"type": "Person",
			"id": "%s/users/alice",
			"preferredUsername": "alice",
			"name": "Alice",
			"inbox": "%s/users/alice/inbox",
			"publicKey": {"id": "%s/users/alice#main-key"},
			"icon": {"type": "Image", "url": "%s/media/alice.png"}
		}`,
		"/notes/public": `{
			"type": "Note",
			"id": "%s/notes/public",
			"attributedTo": "%s/users/alice",
			"content": "hello",
			"to": ["https://www.w3.org/ns/activitystreams#Public"],
			"cc": "%s/users/alice/followers"
		}`,
		"/notes/followers": `{
			"type": "Note",
			"attributedTo": "%s/users/alice",
			"to": "%s/users/alice/followers"
		}`,
		"/notes/direct": `{
			"type": "Note",
			"attributedTo": "%s/users/alice",
			"to": ["%s/users/bob"]
		}`,
		"/media/alice.png": `{"type": "Image"}`,
		"/users/alice/following": `{
			"type": "OrderedCollection",
			"totalItems": 3,
			"first": "%s/following/1"
		}`,
		"/following/1": `{
			"type": "OrderedCollectionPage",
			"orderedItems": ["https://a.example/users/1", "https://b.example/users/2"],
			"next": "%s/following/2"
		}`,
		"/following/2": `{
			"type": "OrderedCollectionPage",
			"orderedItems": [{"id": "https://c.example/users/3", "type": "Person"}],
			"next": "%s/following/1"
		}`,
		"/users/alice/followers": `{
			"type": "Collection",
			"first": {"items": ["https://a.example/users/1"], "next": "%s/following/2"}
		}`,
	}
	srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		doc, ok := docs[r.URL.Path]
		if !ok {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/activity+json")
		w.Write([]byte(strings.ReplaceAll(doc, "%s", srv.URL)))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestRemoteFetcher(t *testing.T) {
	srv := remoteServer(t)
	f := NewRemoteFetcher(NewClient(srv.Client()))
	f.Webfinger = func(ctx context.Context, acct *webfinger.Acct) (*webfinger.Webfinger, error) {
		if acct.User != "alice" {
			return nil, errors.New("not found")
		}
		return &webfinger.Webfinger{
			Subject: acct.String(),
			Links: []webfinger.Link{
				{Rel: "http://webfinger.net/rel/profile-page", Type: "text/html", Href: srv.URL + "/@alice"},
				{Rel: "self", Type: webfinger.ActivityPubMediaType, Href: srv.URL + "/users/alice"},
			},
		}, nil
	}
	ctx := context.Background()

	t.Run("FetchActor by url", func(t *testing.T) {
		require := require.New(t)
		actor, err := f.FetchActor(ctx, srv.URL+"/users/alice")
		require.NoError(err)
		require.Equal(srv.URL+"/users/alice", actor.URL)
		require.Equal(models.Snapshot{
			"type":              "Person",
			"preferredUsername": "alice",
			"name":              "Alice",
			"inbox":             srv.URL + "/users/alice/inbox",
			"icon":              srv.URL + "/media/alice.png",
		}, actor.Data)
	})

	t.Run("FetchActor by handle", func(t *testing.T) {
		require := require.New(t)
		for _, handle := range []string{"@alice@remote.example", "alice@remote.example", "acct:alice@remote.example"} {
			actor, err := f.FetchActor(ctx, handle)
			require.NoError(err, handle)
			require.Equal(srv.URL+"/users/alice", actor.URL)
		}
	})

	t.Run("FetchActor rejects handles without a host", func(t *testing.T) {
		_, err := f.FetchActor(ctx, "@alice")
		require.Error(t, err)
	})

	t.Run("FetchActor rejects unknown accounts", func(t *testing.T) {
		_, err := f.FetchActor(ctx, "@bob@remote.example")
		require.Error(t, err)
	})

	t.Run("FetchActor rejects objects which are not actors", func(t *testing.T) {
		_, err := f.FetchActor(ctx, srv.URL+"/media/alice.png")
		require.Error(t, err)
	})

	t.Run("FetchNote", func(t *testing.T) {
		require := require.New(t)
		for _, tc := range []struct {
			path       string
			visibility string
		}{
			{"/notes/public", "public"},
			{"/notes/followers", "followers-only"},
			{"/notes/direct", "private"},
		} {
			note, err := f.FetchNote(ctx, srv.URL+tc.path)
			require.NoError(err, tc.path)
			require.Equal(srv.URL+tc.path, note.URL)
			require.Equal("Note", note.Data["type"])
			require.Equal(srv.URL+"/users/alice", note.Data["actor"])
			require.Equal(tc.visibility, note.Data["visibility"], tc.path)
		}
	})

	t.Run("FetchCollection follows pages", func(t *testing.T) {
		require := require.New(t)
		ids, err := f.FetchCollection(ctx, srv.URL+"/users/alice/following", 0)
		require.NoError(err)
		require.Equal([]string{
			"https://a.example/users/1",
			"https://b.example/users/2",
			"https://c.example/users/3",
		}, ids)

		ids, err = f.FetchCollection(ctx, srv.URL+"/users/alice/following", 2)
		require.NoError(err)
		require.Len(ids, 2)

		ids, err = f.FetchCollection(ctx, srv.URL+"/users/alice/followers", 0)
		require.NoError(err)
		require.Equal([]string{
			"https://a.example/users/1",
			"https://c.example/users/3",
			"https://a.example/users/1",
			"https://b.example/users/2",
		}, ids)
	})

	t.Run("FetchNote reports missing objects", func(t *testing.T) {
		_, err := f.FetchNote(ctx, srv.URL+"/notes/missing")
		require.Error(t, err)
	})
}
