// Copyright 2025 The Alder Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package ratelimit applies token bucket rate limiting per client key.
package ratelimit

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

	"alder.dev/router"
	"alder.dev/router/middleware"
)

// KeyFunc derives the rate limit key for a request, for example the client
// IP or an API token.
type KeyFunc func(req *http.Request) string

// Option defines functional options for ratelimit middleware configuration.
type Option func(*config)

// config holds the configuration for the ratelimit middleware.
type config struct {
	// requestsPerSecond is the sustained refill rate per key
	requestsPerSecond float64

	// burst is the bucket capacity per key
	burst int

	// key derives the limit key for a request
	key KeyFunc

	// limiterTTL is how long an idle key's bucket is kept
	limiterTTL time.Duration

	// cleanupInterval is how often idle buckets are swept
	cleanupInterval time.Duration

	// headers enables RateLimit-* response headers
	headers bool

	// handler writes the response when the limit is exceeded
	handler http.Handler
}

// defaultConfig returns the default configuration for ratelimit
// middleware.
func defaultConfig() *config {
	return &config{
		requestsPerSecond: 100,
		burst:             20,
		key:               ClientIP,
		limiterTTL:        5 * time.Minute,
		cleanupInterval:   time.Minute,
		headers:           true,
		handler:           http.HandlerFunc(defaultHandler),
	}
}

func defaultHandler(w http.ResponseWriter, _ *http.Request) {
	http.Error(w, http.StatusText(http.StatusTooManyRequests), http.StatusTooManyRequests)
}

// WithRequestsPerSecond sets the sustained request rate allowed per key.
func WithRequestsPerSecond(rps float64) Option {
	return func(cfg *config) {
		if rps > 0 {
			cfg.requestsPerSecond = rps
		}
	}
}

// WithBurst sets how many requests a key may spend at once beyond the
// sustained rate.
func WithBurst(burst int) Option {
	return func(cfg *config) {
		if burst > 0 {
			cfg.burst = burst
		}
	}
}

// WithKeyFunc derives limit keys with a custom function instead of the
// client IP.
//
// Example:
//
//	ratelimit.New(ratelimit.WithKeyFunc(func(req *http.Request) string {
//	    return req.Header.Get("X-API-Key")
//	}))
func WithKeyFunc(key KeyFunc) Option {
	return func(cfg *config) {
		if key != nil {
			cfg.key = key
		}
	}
}

// WithLimiterTTL sets how long a key's bucket survives without traffic
// before it is swept.
func WithLimiterTTL(ttl time.Duration) Option {
	return func(cfg *config) {
		if ttl > 0 {
			cfg.limiterTTL = ttl
		}
	}
}

// WithoutHeaders disables the RateLimit-* response headers.
func WithoutHeaders() Option {
	return func(cfg *config) {
		cfg.headers = false
	}
}

// WithHandler sets the response written when a request exceeds the limit.
// Default is a plain 429.
func WithHandler(h http.Handler) Option {
	return func(cfg *config) {
		if h != nil {
			cfg.handler = h
		}
	}
}

// New returns a middleware that enforces a token bucket per key. Each key
// gets its own bucket holding burst tokens refilled at the configured
// rate; a request spends one token or is rejected with 429.
//
// Responses carry RateLimit-Limit and RateLimit-Remaining headers, and
// rejected requests a Retry-After hint. Idle buckets are swept after the
// limiter TTL, so memory stays proportional to the active client set.
//
// Example:
//
//	r := router.MustNew(
//	    router.WithMiddleware(ratelimit.New(
//	        ratelimit.WithRequestsPerSecond(50),
//	        ratelimit.WithBurst(10),
//	    )),
//	    router.WithRoutes(...),
//	)
func New(opts ...Option) router.Middleware {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}

	buckets := newBuckets(cfg)
	limitHeader := strconv.Itoa(cfg.burst)
	retryAfter := strconv.Itoa(int(math.Ceil(1 / cfg.requestsPerSecond)))

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			key := cfg.key(req)
			lim := buckets.fetch(key)

			allowed := lim.Allow()
			if cfg.headers {
				remaining := int(lim.Tokens())
				if remaining < 0 {
					remaining = 0
				}
				w.Header().Set("RateLimit-Limit", limitHeader)
				w.Header().Set("RateLimit-Remaining", strconv.Itoa(remaining))
			}
			if !allowed {
				w.Header().Set("Retry-After", retryAfter)
				cfg.handler.ServeHTTP(w, req)
				return
			}

			ctx := context.WithValue(req.Context(), middleware.ClientIPKey, key)
			next.ServeHTTP(w, req.WithContext(ctx))
		})
	}
}

// ClientIP is the default KeyFunc. It prefers X-Real-IP, then the first
// entry of X-Forwarded-For, then the connection's remote address. Only
// trust the header-derived values behind a proxy that sets them.
func ClientIP(req *http.Request) string {
	if ip := strings.TrimSpace(req.Header.Get("X-Real-IP")); ip != "" {
		return ip
	}
	if fwd := req.Header.Get("X-Forwarded-For"); fwd != "" {
		if ip, _, ok := strings.Cut(fwd, ","); ok {
			return strings.TrimSpace(ip)
		}
		return strings.TrimSpace(fwd)
	}
	if host, _, err := net.SplitHostPort(req.RemoteAddr); err == nil {
		return host
	}
	return req.RemoteAddr
}

// buckets owns one rate.Limiter per key with TTL-based eviction.
type buckets struct {
	mu         sync.Mutex
	val        map[string]*bucket
	rate       rate.Limit
	burst      int
	ttl        time.Duration
	sweepEvery time.Duration
	lastSweep  time.Time
}

type bucket struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

func newBuckets(cfg *config) *buckets {
	return &buckets{
		val:        make(map[string]*bucket),
		rate:       rate.Limit(cfg.requestsPerSecond),
		burst:      cfg.burst,
		ttl:        cfg.limiterTTL,
		sweepEvery: cfg.cleanupInterval,
		lastSweep:  time.Now(),
	}
}

// fetch returns the limiter for key, creating it on first sight, and
// opportunistically sweeps idle entries.
func (b *buckets) fetch(key string) *rate.Limiter {
	now := time.Now()

	b.mu.Lock()
	defer b.mu.Unlock()

	if now.Sub(b.lastSweep) > b.sweepEvery {
		for k, v := range b.val {
			if now.Sub(v.lastSeen) > b.ttl {
				delete(b.val, k)
			}
		}
		b.lastSweep = now
	}

	v, ok := b.val[key]
	if !ok {
		v = &bucket{limiter: rate.NewLimiter(b.rate, b.burst)}
		b.val[key] = v
	}
	v.lastSeen = now
	return v.limiter
}
