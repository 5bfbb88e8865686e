package activitypub

import (
	"context"
	"fmt"
	"strings"

	"github.com/lola-testbed/pub/internal/webfinger"
	"github.com/lola-testbed/pub/models"
)

const publicCollection = "https://www.w3.org/ns/activitystreams#Public"

// RemoteFetcher fetches objects from other servers and snapshots them for
// use as the target of a Like or a Follow.
type RemoteFetcher struct {
	client *Client
	// Webfinger resolves acct: handles; it defaults to a lookup over https.
	Webfinger func(ctx context.Context, acct *webfinger.Acct) (*webfinger.Webfinger, error)
}

func NewRemoteFetcher(client *Client) *RemoteFetcher {
	return &RemoteFetcher{
		client: client,
		Webfinger: func(ctx context.Context, acct *webfinger.Acct) (*webfinger.Webfinger, error) {
			return acct.Fetch(ctx)
		},
	}
}

// Resolve returns the URL of the actor named by handle, which may be a URL,
// an acct: URI or a @user@host handle.
func (f *RemoteFetcher) Resolve(ctx context.Context, handle string) (string, error) {
	if strings.HasPrefix(handle, "https://") || strings.HasPrefix(handle, "http://") {
		return handle, nil
	}
	acct, err := webfinger.Parse(handle)
	if err != nil {
		return "", err
	}
	if acct.Host == "" {
		return "", fmt.Errorf("%q has no host", handle)
	}
	wf, err := f.Webfinger(ctx, acct)
	if err != nil {
		return "", fmt.Errorf("webfinger %s: %w", acct, err)
	}
	return wf.ActivityPub()
}

// FetchActor fetches and snapshots the actor named by handle.
func (f *RemoteFetcher) FetchActor(ctx context.Context, handle string) (*models.Remote, error) {
	uri, err := f.Resolve(ctx, handle)
	if err != nil {
		return nil, err
	}
	obj, err := f.fetch(ctx, uri)
	if err != nil {
		return nil, err
	}
	typ := stringFromAny(obj["type"])
	switch typ {
	case "Person", "Service", "Application", "Group", "Organization":
		// cool
	default:
		return nil, fmt.Errorf("%s: unsupported actor type %q", uri, typ)
	}
	snap := models.Snapshot{"type": typ}
	copyStrings(snap, obj, "preferredUsername", "name", "url", "summary", "inbox", "outbox", "following", "followers")
	if icon := stringFromAny(mapFromAny(obj["icon"])["url"]); icon != "" {
		snap["icon"] = icon
	}
	return &models.Remote{URL: idOr(obj, uri), Data: snap}, nil
}

// FetchNote fetches and snapshots the note at uri.
func (f *RemoteFetcher) FetchNote(ctx context.Context, uri string) (*models.Remote, error) {
	obj, err := f.fetch(ctx, uri)
	if err != nil {
		return nil, err
	}
	typ := stringFromAny(obj["type"])
	switch typ {
	case "Note", "Question", "Article":
		// cool
	default:
		return nil, fmt.Errorf("%s: unsupported object type %q", uri, typ)
	}
	author := stringFromAny(obj["attributedTo"])
	snap := models.Snapshot{
		"type":       typ,
		"actor":      author,
		"visibility": string(visibilityOf(obj, author)),
	}
	copyStrings(snap, obj, "content", "published", "url")
	return &models.Remote{URL: idOr(obj, uri), Data: snap}, nil
}

// FetchCollection returns the ids of at most limit items of the collection
// at uri, following its pages. A limit of zero means no limit.
func (f *RemoteFetcher) FetchCollection(ctx context.Context, uri string, limit int) ([]string, error) {
	page, err := f.fetch(ctx, uri)
	if err != nil {
		return nil, err
	}
	var ids []string
	seen := map[string]bool{uri: true}
	next := idOf(page["first"])
	if first := mapFromAny(page["first"]); first != nil {
		ids = append(ids, itemIDs(page)...)
		page, next = first, idOf(first["next"])
	}
	for {
		ids = append(ids, itemIDs(page)...)
		if limit > 0 && len(ids) >= limit {
			return ids[:limit], nil
		}
		if next == "" || seen[next] {
			return ids, nil
		}
		seen[next] = true
		if page, err = f.fetch(ctx, next); err != nil {
			return nil, err
		}
		next = idOf(page["next"])
	}
}

// itemIDs returns the ids of the items on a collection page.
func itemIDs(page map[string]any) []string {
	var ids []string
	for _, key := range []string{"orderedItems", "items"} {
		for _, item := range anyToSlice(page[key]) {
			if id := idOf(item); id != "" {
				ids = append(ids, id)
			}
		}
	}
	return ids
}

// idOf returns v if it is a string, or its id if it is an object.
func idOf(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	return stringFromAny(mapFromAny(v)["id"])
}

func (f *RemoteFetcher) fetch(ctx context.Context, uri string) (map[string]any, error) {
	var obj map[string]any
	if err := f.client.Fetch(ctx, uri, &obj); err != nil {
		return nil, fmt.Errorf("fetch %s: %w", uri, err)
	}
	return obj, nil
}

// visibilityOf infers the visibility of obj from its addressing.
func visibilityOf(obj map[string]any, author string) models.Visibility {
	visibility := models.VisibilityPrivate
	for _, recipient := range append(anyToSlice(obj["to"]), anyToSlice(obj["cc"])...) {
		switch recipient {
		case publicCollection, "as:Public", "Public":
			return models.VisibilityPublic
		case author + "/followers":
			visibility = models.VisibilityFollowersOnly
		}
	}
	return visibility
}

func copyStrings(dst models.Snapshot, src map[string]any, keys ...string) {
	for _, k := range keys {
		if v := stringFromAny(src[k]); v != "" {
			dst[k] = v
		}
	}
}

func idOr(obj map[string]any, uri string) string {
	if id := stringFromAny(obj["id"]); id != "" {
		return id
	}
	return uri
}
