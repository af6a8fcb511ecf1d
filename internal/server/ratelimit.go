package server

import (
	"net"
	"net/http"
	"net/netip"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/time/rate"

	"github.com/desertthunder/mixlink/internal/shared"
)

// RateLimit defines how many requests a single client may make per window.
type RateLimit struct {
	RequestsPerWindow int
	Window            time.Duration
	Burst             int
	TrustedProxies    []netip.Prefix
}

// DefaultRateLimit applies when the configuration leaves the limits unset.
var DefaultRateLimit = RateLimit{RequestsPerWindow: 60, Window: time.Minute, Burst: 20}

// RateLimitFromConfig converts the [shared.RateLimitConfig] section, filling zero values from [DefaultRateLimit].
func RateLimitFromConfig(conf shared.RateLimitConfig) RateLimit {
	limit := DefaultRateLimit
	if conf.RequestsPerMinute > 0 {
		limit.RequestsPerWindow = conf.RequestsPerMinute
	}
	if conf.Burst > 0 {
		limit.Burst = conf.Burst
	}
	// entries are checked by Config.Validate; anything unparsable is left untrusted
	limit.TrustedProxies, _ = conf.Proxies()
	return limit
}

// ClientIP returns the address a request is attributed to.
//
// The peer address is used unless it is a trusted proxy. Behind a trusted proxy X-Forwarded-For is
// walked from the right, skipping trusted hops, and X-Real-IP is the fallback.
func ClientIP(r *http.Request, trusted []netip.Prefix) string {
	peer := r.RemoteAddr
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		peer = host
	}
	if !isTrusted(peer, trusted) {
		return peer
	}

	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		hops := strings.Split(xff, ",")
		for i := len(hops) - 1; i >= 0; i-- {
			hop := strings.TrimSpace(hops[i])
			if hop == "" {
				continue
			}
			if _, err := netip.ParseAddr(hop); err != nil {
				break
			}
			if !isTrusted(hop, trusted) {
				return hop
			}
		}
	}
	if xri := strings.TrimSpace(r.Header.Get("X-Real-IP")); xri != "" {
		if _, err := netip.ParseAddr(xri); err == nil {
			return xri
		}
	}
	return peer
}

func isTrusted(ip string, trusted []netip.Prefix) bool {
	addr, err := netip.ParseAddr(ip)
	if err != nil {
		return false
	}
	addr = addr.Unmap()
	for _, prefix := range trusted {
		if prefix.Contains(addr) {
			return true
		}
	}
	return false
}

type limiterSet struct {
	limiters    sync.Map // map[string]*rate.Limiter
	rate        rate.Limit
	burst       int
	mu          sync.Mutex
	lastCleanup time.Time
}

func (s *limiterSet) get(key string) *rate.Limiter {
	if l, ok := s.limiters.Load(key); ok {
		return l.(*rate.Limiter)
	}
	actual, _ := s.limiters.LoadOrStore(key, rate.NewLimiter(s.rate, s.burst))
	s.maybeCleanup()
	return actual.(*rate.Limiter)
}

// maybeCleanup drops limiters whose bucket has refilled, at most every five minutes.
func (s *limiterSet) maybeCleanup() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if time.Since(s.lastCleanup) < 5*time.Minute {
		return
	}
	s.lastCleanup = time.Now()

	s.limiters.Range(func(key, value any) bool {
		if value.(*rate.Limiter).Tokens() >= float64(s.burst) {
			s.limiters.Delete(key)
		}
		return true
	})
}

// RateLimitByIP limits each client address to the given rate, answering 429 with Retry-After beyond it.
func RateLimitByIP(limit RateLimit, logger *log.Logger) Middleware {
	set := &limiterSet{
		rate:        rate.Limit(float64(limit.RequestsPerWindow) / limit.Window.Seconds()),
		burst:       limit.Burst,
		lastCleanup: time.Now(),
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := ClientIP(r, limit.TrustedProxies)
			limiter := set.get(key)

			if !limiter.Allow() {
				reservation := limiter.Reserve()
				delay := reservation.Delay()
				reservation.Cancel()

				retryAfter := max(int(delay.Seconds()), 1)
				w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
				logger.Warn("rate limit exceeded", "client", key, "path", r.URL.Path, "retry_after", retryAfter)
				http.Error(w, "Too many requests. Please try again later.", http.StatusTooManyRequests)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
