// Package ratelimit limits the request rate of each client, per path prefix.
package ratelimit

import (
	"errors"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/lola-testbed/pub/internal/httpx"
	"golang.org/x/time/rate"
)

// A Rule allows Requests requests per Window to paths starting with Prefix.
type Rule struct {
	Prefix   string
	Requests int
	Window   time.Duration
}

// DefaultRules are the limits applied to the public endpoints. The rule
// with an empty prefix applies to every other path.
var DefaultRules = []Rule{
	{"/oauth/authorize/", 10, 5 * time.Minute},
	{"/oauth/token/", 20, 5 * time.Minute},
	{"/.well-known/oauth-authorization-server", 30, time.Minute},
	{"/actors/", 100, time.Minute},
	{"", 200, time.Minute},
}

// StrictRules halve DefaultRules, for exercising clients' back off.
var StrictRules = []Rule{
	{"/oauth/authorize/", 5, 5 * time.Minute},
	{"/oauth/token/", 10, 5 * time.Minute},
	{"/.well-known/oauth-authorization-server", 20, time.Minute},
	{"/actors/", 50, time.Minute},
	{"", 100, time.Minute},
}

type key struct {
	client string
	prefix string
}

type bucket struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// Limiter holds a token bucket per client and rule.
type Limiter struct {
	rules []Rule
	now   func() time.Time

	mu      sync.Mutex
	buckets map[key]*bucket
}

// New returns a Limiter enforcing rules. A path matches the rule with the
// longest matching prefix; paths matching no rule are not limited.
func New(rules []Rule) *Limiter {
	return &Limiter{
		rules:   rules,
		now:     time.Now,
		buckets: make(map[key]*bucket),
	}
}

// rule returns the rule with the longest prefix of path.
func (l *Limiter) rule(path string) (Rule, bool) {
	var best Rule
	found := false
	for _, r := range l.rules {
		if strings.HasPrefix(path, r.Prefix) && (!found || len(r.Prefix) > len(best.Prefix)) {
			best, found = r, true
		}
	}
	return best, found
}

// Allow reports whether client may request path now. If not, it returns
// how long the client should wait before retrying.
func (l *Limiter) Allow(client, path string) (bool, time.Duration) {
	r, ok := l.rule(path)
	if !ok || r.Requests <= 0 {
		return true, 0
	}
	now := l.now()
	l.mu.Lock()
	defer l.mu.Unlock()
	k := key{client: client, prefix: r.Prefix}
	b, ok := l.buckets[k]
	if !ok {
		b = &bucket{limiter: rate.NewLimiter(rate.Every(r.Window/time.Duration(r.Requests)), r.Requests)}
		l.buckets[k] = b
	}
	b.lastSeen = now
	res := b.limiter.ReserveN(now, 1)
	if delay := res.DelayFrom(now); delay > 0 {
		res.CancelAt(now)
		return false, delay
	}
	return true, 0
}

// Prune forgets clients not seen for idle. It returns the number of
// buckets removed.
func (l *Limiter) Prune(idle time.Duration) int {
	cutoff := l.now().Add(-idle)
	l.mu.Lock()
	defer l.mu.Unlock()
	n := 0
	for k, b := range l.buckets {
		if b.lastSeen.Before(cutoff) {
			delete(l.buckets, k)
			n++
		}
	}
	return n
}

// Len returns the number of buckets held.
func (l *Limiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.buckets)
}

// Middleware rejects requests exceeding the limit with 429 Too Many Requests
// and a Retry-After header.
func (l *Limiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ok, wait := l.Allow(clientOf(r), r.URL.Path)
		if ok {
			next.ServeHTTP(w, r)
			return
		}
		secs := int((wait + time.Second - 1) / time.Second)
		if secs < 1 {
			secs = 1
		}
		w.Header().Set("Retry-After", strconv.Itoa(secs))
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Expose-Headers", "Retry-After")
		httpx.WriteError(w, r, httpx.Problem(http.StatusTooManyRequests, httpx.CodeRateLimitExceeded,
			errors.New("rate limit exceeded, retry after "+strconv.Itoa(secs)+" seconds")))
	})
}

// clientOf returns the address of the client making r.
func clientOf(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
