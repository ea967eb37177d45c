package httpx

import (
	"errors"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"github.com/target/media-console/internal/observability/metrics"
	"golang.org/x/time/rate"
)

// SessionLimiter hands out one token bucket per key. Buckets unused for the idle
// period are dropped, which resets them to full.
type SessionLimiter struct {
	limit    rate.Limit
	burst    int
	mu       sync.Mutex
	limiters *gocache.Cache
}

// NewSessionLimiter constructs a SessionLimiter.
func NewSessionLimiter(limit rate.Limit, burst int, idle time.Duration) *SessionLimiter {
	if burst < 1 {
		burst = 1
	}
	if idle <= 0 {
		idle = 30 * time.Minute
	}
	return &SessionLimiter{
		limit:    limit,
		burst:    burst,
		limiters: gocache.New(idle, idle),
	}
}

// Reserve takes a token for key. When none is available it returns false and
// how long until one will be.
func (l *SessionLimiter) Reserve(key string) (bool, time.Duration) {
	l.mu.Lock()
	var lim *rate.Limiter
	if v, ok := l.limiters.Get(key); ok {
		lim = v.(*rate.Limiter)
	} else {
		lim = rate.NewLimiter(l.limit, l.burst)
	}
	l.limiters.SetDefault(key, lim)
	l.mu.Unlock()

	now := time.Now()
	res := lim.ReserveN(now, 1)
	if !res.OK() {
		return false, 0
	}
	if delay := res.DelayFrom(now); delay > 0 {
		res.CancelAt(now)
		return false, delay
	}
	return true, 0
}

// RateLimit returns a middleware that limits requests per browser session.
// Requests without a session are keyed by client address.
func RateLimit(l *SessionLimiter, route string, m *metrics.Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if l == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := SIDFromContext(r.Context())
			if key == "" {
				key = clientAddr(r)
			}
			if ok, wait := l.Reserve(route + "|" + key); !ok {
				m.RateLimit(route)
				if wait > 0 {
					w.Header().Set("Retry-After", strconv.Itoa(int(wait.Seconds())+1))
				}
				WriteError(w, ErrorParams{
					Code:    http.StatusTooManyRequests,
					ErrCode: "rate_limited",
					Err:     errors.New("too many attempts, try again later"),
				})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func clientAddr(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
