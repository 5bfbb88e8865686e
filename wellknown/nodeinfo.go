package wellknown

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/lola-testbed/pub/activitypub"
	"github.com/lola-testbed/pub/auth"
	"github.com/lola-testbed/pub/internal/httpx"
	"github.com/lola-testbed/pub/internal/to"
	"github.com/lola-testbed/pub/models"
)

func NodeInfoIndex(env *activitypub.Env, w http.ResponseWriter, r *http.Request) error {
	origin := auth.OriginOf(r)
	w.Header().Set("cache-control", "max-age=259200, public")
	return to.JSON(w, map[string]any{
		"links": []any{
			map[string]any{
				"rel":  "http://nodeinfo.diaspora.software/ns/schema/2.0",
				"href": origin.URL("/nodeinfo/2.0"),
			},
			map[string]any{
				"rel":  "http://nodeinfo.diaspora.software/ns/schema/2.1",
				"href": origin.URL("/nodeinfo/2.1"),
			},
		},
	})
}

func NodeInfoShow(env *activitypub.Env, w http.ResponseWriter, r *http.Request) error {
	usage, err := usage(env)
	if err != nil {
		return err
	}
	software := map[string]any{
		"name":    "lola-testbed",
		"version": "0.0.0-devel",
	}
	switch version := chi.URLParam(r, "version"); version {
	case "2.0":
		// https://github.com/jhass/nodeinfo/blob/main/schemas/2.0/schema.json
	case "2.1":
		software["repository"] = "https://github.com/lola-testbed/pub"
	default:
		return httpx.Error(http.StatusNotFound, errors.New("unsupported version: "+version))
	}
	w.Header().Set("cache-control", "max-age=259200, public")
	return to.JSON(w, map[string]any{
		"version":           chi.URLParam(r, "version"),
		"software":          software,
		"protocols":         []any{"activitypub"},
		"services":          map[string]any{"inbound": []any{}, "outbound": []any{}},
		"usage":             usage,
		"openRegistrations": false,
		"metadata": map[string]any{
			"nodeName": "LOLA account portability test server",
			"accountPortability": map[string]any{
				"scope":     models.PortabilityScope,
				"authorize": auth.OriginOf(r).URL(activitypub.AuthorizePath),
			},
		},
	})
}

func usage(env *activitypub.Env) (map[string]any, error) {
	var users, posts int64
	if err := env.DB.Model(&models.User{}).Count(&users).Error; err != nil {
		return nil, err
	}
	if err := env.DB.Model(&models.Note{}).Count(&posts).Error; err != nil {
		return nil, err
	}
	return map[string]any{
		"users": map[string]any{
			"total": users,
		},
		"localPosts": posts,
	}, nil
}
