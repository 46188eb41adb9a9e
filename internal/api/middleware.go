package api

import (
	"context"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/time/rate"

	"github.com/neooriginal/FSCS/internal/session"
)

type contextKey string

const credentialKey contextKey = "credential"

// credentialHeaders are checked in order.
var credentialHeaders = []string{"X-OpenAI-API-Key", "X-API-Key"}

func credentialFrom(ctx context.Context) string {
	c, _ := ctx.Value(credentialKey).(string)
	return c
}

func userIDFrom(ctx context.Context) string {
	if c := credentialFrom(ctx); c != "" {
		return session.UserID(c)
	}
	return ""
}

// extractCredential returns the first comma-separated value of the first
// credential header present, trimmed.
func extractCredential(r *http.Request) string {
	for _, h := range credentialHeaders {
		v := r.Header.Get(h)
		if v == "" {
			continue
		}
		if i := strings.Index(v, ","); i >= 0 {
			v = v[:i]
		}
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}

func (s *Server) requireCredential(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cred := extractCredential(r)
		if cred == "" {
			writeErrorBody(w, http.StatusUnauthorized, "missing_api_key", "API key is required in X-API-Key header")
			return
		}
		ctx := context.WithValue(r.Context(), credentialKey, cred)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (s *Server) limitBody(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, s.opts.MaxBodyBytes)
		next.ServeHTTP(w, r)
	})
}

// observe records per-route request counts and latency.
func (s *Server) observe(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rc := chi.RouteContext(r.Context()); rc != nil && rc.RoutePattern() != "" {
			route = rc.RoutePattern()
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		s.metrics.ObserveHTTP(route, status, time.Since(start))
	})
}

type limiterEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// rateLimiter keeps one token bucket per user key. A non-positive rate
// disables limiting.
type rateLimiter struct {
	mu      sync.Mutex
	entries map[string]*limiterEntry
	rps     rate.Limit
	burst   int
	idle    time.Duration
	now     func() time.Time
}

func newRateLimiter(rps float64, burst int) *rateLimiter {
	if burst < 1 {
		burst = 1
	}
	return &rateLimiter{
		entries: make(map[string]*limiterEntry),
		rps:     rate.Limit(rps),
		burst:   burst,
		idle:    10 * time.Minute,
		now:     time.Now,
	}
}

func (rl *rateLimiter) allow(key string) bool {
	if rl.rps <= 0 {
		return true
	}
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	e, ok := rl.entries[key]
	if !ok {
		if len(rl.entries) >= 1024 {
			rl.prune(now)
		}
		e = &limiterEntry{limiter: rate.NewLimiter(rl.rps, rl.burst)}
		rl.entries[key] = e
	}
	e.lastSeen = now
	return e.limiter.AllowN(now, 1)
}

func (rl *rateLimiter) prune(now time.Time) {
	for k, e := range rl.entries {
		if now.Sub(e.lastSeen) > rl.idle {
			delete(rl.entries, k)
		}
	}
}

func (s *Server) rateLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !s.limiter.allow(session.UserKey(credentialFrom(r.Context()))) {
			writeErrorBody(w, http.StatusTooManyRequests, "rate_limit_exceeded", "Rate limit exceeded. Please try again later.")
			return
		}
		next.ServeHTTP(w, r)
	})
}
