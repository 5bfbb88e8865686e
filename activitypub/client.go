package activitypub

import (
	"context"
	"net/http"

	"github.com/carlmjohnson/requests"
)

// Client is an ActivityPub client which can be used to fetch remote
// ActivityPub resources.
type Client struct {
	http *http.Client
}

// NewClient returns a new ActivityPub client using cl, or
// http.DefaultClient if cl is nil.
func NewClient(cl *http.Client) *Client {
	if cl == nil {
		cl = http.DefaultClient
	}
	return &Client{http: cl}
}

// Fetch fetches the ActivityPub resource at the given URL and decodes it into the given object.
func (c *Client) Fetch(ctx context.Context, uri string, obj interface{}) error {
	return requests.URL(uri).
		Client(c.http).
		Accept(`application/ld+json; profile="https://www.w3.org/ns/activitystreams"`).
		CheckContentType("application/ld+json", "application/activity+json", "application/json").
		CheckStatus(http.StatusOK).
		ToJSON(obj).
		Fetch(ctx)
}
