package httpmiddleware

import (
	"context"
	"math"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// RateLimitConfig allows Max requests per Window for each key, refilled
// evenly across the window.
type RateLimitConfig struct {
	Max    int           `default:"120" yaml:"max"`
	Window time.Duration `default:"1m" yaml:"window"`
	// KeyFunc picks the bucket for a request. Defaults to ClientIP.
	KeyFunc func(*http.Request) string `yaml:"-"`
}

type visitor struct {
	limiter *rate.Limiter
	seen    time.Time
}

// Limiter holds one token bucket per key.
type Limiter struct {
	cfg      RateLimitConfig
	every    rate.Limit
	mu       sync.Mutex
	visitors map[string]*visitor
}

// NewLimiter creates a Limiter. Non-positive limits fall back to the
// defaults.
func NewLimiter(cfg RateLimitConfig) *Limiter {
	if cfg.Max <= 0 {
		cfg.Max = 120
	}
	if cfg.Window <= 0 {
		cfg.Window = time.Minute
	}
	if cfg.KeyFunc == nil {
		cfg.KeyFunc = ClientIP
	}
	return &Limiter{
		cfg:      cfg,
		every:    rate.Every(cfg.Window / time.Duration(cfg.Max)),
		visitors: make(map[string]*visitor),
	}
}

func (l *Limiter) bucket(key string, now time.Time) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()

	v, ok := l.visitors[key]
	if !ok {
		v = &visitor{limiter: rate.NewLimiter(l.every, l.cfg.Max)}
		l.visitors[key] = v
	}
	v.seen = now
	return v.limiter
}

// Evict drops buckets idle for longer than a window. An idle bucket is
// full again, so dropping it changes nothing for the client.
func (l *Limiter) Evict(now time.Time) int {
	l.mu.Lock()
	defer l.mu.Unlock()

	var n int
	for key, v := range l.visitors {
		if now.Sub(v.seen) > l.cfg.Window {
			delete(l.visitors, key)
			n++
		}
	}
	return n
}

// Run evicts idle buckets every window until ctx is done.
func (l *Limiter) Run(ctx context.Context) {
	ticker := time.NewTicker(l.cfg.Window)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			l.Evict(now)
		}
	}
}

// Middleware rejects requests over the limit with 429 and reports the
// bucket state in X-RateLimit-* headers.
func (l *Limiter) Middleware() Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			now := time.Now()
			lim := l.bucket(l.cfg.KeyFunc(r), now)
			allowed := lim.AllowN(now, 1)
			remaining := int(math.Max(0, math.Floor(lim.TokensAt(now))))

			h := w.Header()
			h.Set("X-RateLimit-Limit", strconv.Itoa(l.cfg.Max))
			h.Set("X-RateLimit-Remaining", strconv.Itoa(remaining))

			if !allowed {
				wait := time.Duration(float64(time.Second) / float64(l.every))
				h.Set("Retry-After", strconv.Itoa(int(math.Ceil(wait.Seconds()))))
				writeError(w, http.StatusTooManyRequests, "rate limit exceeded")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RateLimit returns a rate limiting middleware whose idle buckets are
// evicted until ctx is done.
func RateLimit(ctx context.Context, cfg RateLimitConfig) Middleware {
	l := NewLimiter(cfg)
	go l.Run(ctx)
	return l.Middleware()
}

// ClientIP returns the first X-Forwarded-For hop, then X-Real-IP, then the
// remote address host.
func ClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		return strings.TrimSpace(first)
	}
	if ip := r.Header.Get("X-Real-IP"); ip != "" {
		return ip
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
