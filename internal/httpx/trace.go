package httpx

import (
	"context"
	"net/http"
	"strings"

	"golang.org/x/exp/slog"
)

// CloudTraceHeader carries the trace and span ids assigned by a Google
// Cloud load balancer, formatted TRACE_ID/SPAN_ID;o=OPTIONS.
const CloudTraceHeader = "X-Cloud-Trace-Context"

type loggerKey struct{}

// Logger returns the request scoped logger stored in ctx, or the default logger.
func Logger(ctx context.Context) *slog.Logger {
	if l, ok := ctx.Value(loggerKey{}).(*slog.Logger); ok {
		return l
	}
	return slog.Default()
}

// WithLogger returns a copy of ctx carrying l.
func WithLogger(ctx context.Context, l *slog.Logger) context.Context {
	return context.WithValue(ctx, loggerKey{}, l)
}

// Trace returns middleware which attaches a logger to each request,
// annotated with the request's path, method and, when present, its cloud
// trace and span ids. project is the cloud project the trace belongs to.
func Trace(project string, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			l := logger.With("request_path", r.URL.Path, "request_method", r.Method)
			if trace, span, ok := ParseTraceContext(r.Header.Get(CloudTraceHeader)); ok {
				if project != "" {
					trace = "projects/" + project + "/traces/" + trace
				}
				l = l.With("trace", trace, "spanId", span)
			}
			next.ServeHTTP(w, r.WithContext(WithLogger(r.Context(), l)))
		})
	}
}

// ParseTraceContext splits an X-Cloud-Trace-Context header into its trace
// and span ids. The span id is optional.
func ParseTraceContext(header string) (trace, span string, ok bool) {
	header, _, _ = strings.Cut(header, ";")
	trace, span, _ = strings.Cut(strings.TrimSpace(header), "/")
	return trace, span, trace != ""
}
