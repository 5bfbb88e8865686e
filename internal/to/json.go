// package to contains functions for converting between types.
package to

import (
	"net/http"

	"github.com/go-json-experiment/json"
)

// ActivityStreamsMediaType is the media type of ActivityPub documents.
const ActivityStreamsMediaType = `application/activity+json; charset=utf-8`

// JSON writes the given object to the response body as JSON.
// If obj is a nil slice, an empty JSON array is written.
// If obj is a nil map, an empty JSON object is written.
// If obj is a nil pointer, a null is written.
func JSON(w http.ResponseWriter, obj any) error {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	return marshal(w, obj)
}

// ActivityJSON writes the given ActivityStreams document to the response body.
func ActivityJSON(w http.ResponseWriter, obj any) error {
	w.Header().Set("Content-Type", ActivityStreamsMediaType)
	return marshal(w, obj)
}

// JSONStatus writes obj as JSON with the given status code.
func JSONStatus(w http.ResponseWriter, code int, obj any) error {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	return marshal(w, obj)
}

func marshal(w http.ResponseWriter, obj any) error {
	return json.MarshalOptions{}.MarshalFull(json.EncodeOptions{
		Indent: "  ",
	}, w, obj)
}
