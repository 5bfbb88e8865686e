package wellknown

import (
	"io"
	"net/http"

	"github.com/lola-testbed/pub/auth"
)

// HostMetaIndex serves /.well-known/host-meta, pointing clients which do
// not know the webfinger path at it.
func HostMetaIndex(rw http.ResponseWriter, r *http.Request) {
	origin := auth.OriginOf(r)
	rw.Header().Set("Content-Type", "application/xrd+xml")
	io.WriteString(rw, `<?xml version="1.0" encoding="UTF-8"?>
<XRD xmlns="http://docs.oasis-open.org/ns/xri/xrd-1.0">
<Subject>`+origin.Host+`</Subject>
<Link rel="lrdd" template="`+origin.URL("/.well-known/webfinger")+`?resource={uri}"/>
</XRD>`)
}
