package activitypub

import (
	"bytes"
	"sort"

	"github.com/go-json-experiment/json"
	"github.com/lola-testbed/pub/models"
	"golang.org/x/exp/maps"
)

// Document is a free form JSON object, such as a remote snapshot. Its
// members are written with @context first, id last and the rest sorted by
// name, so the same Document always encodes to the same bytes.
type Document map[string]any

func (d Document) MarshalJSON() ([]byte, error) {
	keys := maps.Keys(d)
	sort.Slice(keys, func(i, j int) bool {
		ri, rj := rank(keys[i]), rank(keys[j])
		if ri != rj {
			return ri < rj
		}
		return keys[i] < keys[j]
	})
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		name, err := json.MarshalOptions{}.Marshal(json.EncodeOptions{}, k)
		if err != nil {
			return nil, err
		}
		value, err := json.MarshalOptions{}.Marshal(json.EncodeOptions{}, canonical(d[k]))
		if err != nil {
			return nil, err
		}
		buf.Write(name)
		buf.WriteByte(':')
		buf.Write(value)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func rank(key string) int {
	switch key {
	case "@context":
		return 0
	case "id":
		return 2
	default:
		return 1
	}
}

// canonical replaces nested objects in v with Documents.
func canonical(v any) any {
	switch v := v.(type) {
	case map[string]any:
		return Document(v)
	case models.Snapshot:
		return Document(v)
	case []any:
		out := make([]any, len(v))
		for i, e := range v {
			out[i] = canonical(e)
		}
		return out
	default:
		return v
	}
}

// remote returns the document for a remote object: its snapshot under the
// ActivityStreams context, with id set to the URL it was fetched from.
func remote(r *models.Remote) Document {
	doc := Document{"@context": ActivityStreamsContext}
	for k, v := range r.Data {
		doc[k] = v
	}
	doc["id"] = r.URL
	return doc
}
