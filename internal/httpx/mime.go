package httpx

import (
	"net/http"
	"strings"
)

// MediaType returns the media type named by the request's Content-Type
// header, without parameters. A request without one is treated as
// application/octet-stream, which Params decodes as a form.
func MediaType(req *http.Request) string {
	typ, _, _ := strings.Cut(req.Header.Get("Content-Type"), ";")
	if typ = strings.ToLower(strings.TrimSpace(typ)); typ == "" {
		return "application/octet-stream"
	}
	return typ
}
