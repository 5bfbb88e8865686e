package webfinger

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/carlmjohnson/requests"
)

// ActivityPubMediaType is the type of the link to an account's actor document.
const ActivityPubMediaType = "application/activity+json"

type Webfinger struct {
	Subject string   `json:"subject"`
	Aliases []string `json:"aliases"`
	Links   []Link   `json:"links"`
}

// ActivityPub returns the href of the account's actor document.
func (wf *Webfinger) ActivityPub() (string, error) {
	for _, link := range wf.Links {
		if link.Rel == "self" && link.Type == ActivityPubMediaType {
			return link.Href, nil
		}
	}
	for _, link := range wf.Links {
		if link.Type == ActivityPubMediaType {
			return link.Href, nil
		}
	}
	return "", fmt.Errorf("no ActivityPub link found for %q", wf.Subject)
}

type Link struct {
	Rel      string `json:"rel"`
	Type     string `json:"type,omitempty"`
	Href     string `json:"href,omitempty"`
	Template string `json:"template,omitempty"`
}

type Acct struct {
	User string
	Host string
}

func (a *Acct) String() string {
	return "acct:" + a.User + "@" + a.Host
}

// Webfinger returns the URL for the webfinger resource for this Acct.
func (a *Acct) Webfinger() string {
	return "https://" + a.Host + "/.well-known/webfinger?resource=" + url.QueryEscape(a.String())
}

func (a *Acct) Fetch(ctx context.Context) (*Webfinger, error) {
	var webfinger Webfinger
	err := requests.URL(a.Webfinger()).ToJSON(&webfinger).Fetch(ctx)
	return &webfinger, err
}

// Parse parses an acct: URI or a @user@host handle.
func Parse(query string) (*Acct, error) {
	// In case the handle has been URL encoded
	query, err := url.QueryUnescape(query)
	if err != nil {
		return nil, err
	}
	if acct, ok := strings.CutPrefix(query, "acct:"); ok {
		query = acct
	} else {
		// Remove the leading @ of a handle, if there's one.
		query = strings.TrimPrefix(query, "@")
	}

	parts := strings.SplitN(query, "@", 2)
	switch {
	case parts[0] == "":
		return nil, fmt.Errorf("invalid acct: %q", query)
	case len(parts) == 2 && parts[1] == "":
		return nil, fmt.Errorf("invalid acct: %q", query)
	case len(parts) == 1:
		return &Acct{
			User: parts[0],
		}, nil
	default:
		return &Acct{
			User: parts[0],
			Host: parts[1],
		}, nil
	}
}
