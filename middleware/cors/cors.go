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

// Package cors handles Cross-Origin Resource Sharing headers and preflight
// requests.
package cors

import (
	"net/http"
	"slices"
	"strconv"
	"strings"

	"alder.dev/router"
)

// Option defines functional options for cors middleware configuration.
type Option func(*config)

// config holds the configuration for the cors middleware.
type config struct {
	// allowedOrigins is the list of origins allowed to make CORS requests
	allowedOrigins []string

	// allowedMethods is the list of methods advertised on preflight
	allowedMethods []string

	// allowedHeaders is the list of request headers advertised on preflight
	allowedHeaders []string

	// exposedHeaders is the list of response headers readable by the client
	exposedHeaders []string

	// allowCredentials permits cookies and authorization headers
	allowCredentials bool

	// maxAge is the preflight cache lifetime in seconds
	maxAge int

	// allowAllOrigins responds with a wildcard origin
	allowAllOrigins bool

	// allowOriginFunc overrides origin validation when set
	allowOriginFunc func(origin string) bool
}

// defaultConfig returns the default configuration for cors middleware.
// No origins are allowed until one of the origin options is applied.
func defaultConfig() *config {
	return &config{
		allowedOrigins: []string{},
		allowedMethods: []string{
			http.MethodGet, http.MethodPost, http.MethodPut,
			http.MethodPatch, http.MethodDelete, http.MethodHead, http.MethodOptions,
		},
		allowedHeaders: []string{"Origin", "Content-Type", "Accept", "Authorization"},
		maxAge:         3600,
	}
}

// WithAllowedOrigins sets the exact origins allowed to make CORS requests.
func WithAllowedOrigins(origins ...string) Option {
	return func(cfg *config) {
		cfg.allowedOrigins = append(cfg.allowedOrigins, origins...)
	}
}

// WithAllowAllOrigins allows any origin. Incompatible with credentials;
// when both are set the wildcard is replaced by echoing the origin.
func WithAllowAllOrigins() Option {
	return func(cfg *config) {
		cfg.allowAllOrigins = true
	}
}

// WithAllowOriginFunc validates origins with a custom predicate, replacing
// the static origin list.
//
// Example:
//
//	cors.New(cors.WithAllowOriginFunc(func(origin string) bool {
//	    return strings.HasSuffix(origin, ".internal.example.com")
//	}))
func WithAllowOriginFunc(fn func(origin string) bool) Option {
	return func(cfg *config) {
		cfg.allowOriginFunc = fn
	}
}

// WithAllowedMethods sets the methods advertised in preflight responses.
func WithAllowedMethods(methods ...string) Option {
	return func(cfg *config) {
		cfg.allowedMethods = methods
	}
}

// WithAllowedHeaders sets the request headers advertised in preflight
// responses.
func WithAllowedHeaders(headers ...string) Option {
	return func(cfg *config) {
		cfg.allowedHeaders = headers
	}
}

// WithExposedHeaders sets the response headers browsers may expose to
// scripts.
func WithExposedHeaders(headers ...string) Option {
	return func(cfg *config) {
		cfg.exposedHeaders = headers
	}
}

// WithAllowCredentials permits cookies and authorization headers on CORS
// requests.
func WithAllowCredentials() Option {
	return func(cfg *config) {
		cfg.allowCredentials = true
	}
}

// WithMaxAge sets how long browsers may cache preflight results, in
// seconds.
func WithMaxAge(seconds int) Option {
	return func(cfg *config) {
		if seconds >= 0 {
			cfg.maxAge = seconds
		}
	}
}

// New returns a middleware that answers CORS preflight requests and
// decorates responses with the configured CORS headers.
//
// Requests without an Origin header pass through untouched. Preflight
// requests (OPTIONS with Access-Control-Request-Method) are answered
// directly with 204 and never reach the handler. Requests from origins
// that are not allowed pass through without CORS headers, which makes the
// browser reject the response.
//
// Wrap chains run only for matched routes, so a route must accept OPTIONS
// for its preflights to reach this middleware:
//
//	r := router.MustNew(
//	    router.WithMiddleware(cors.New(
//	        cors.WithAllowedOrigins("https://app.example.com"),
//	        cors.WithAllowCredentials(),
//	    )),
//	    router.WithRoutes(
//	        router.Handle("/reports", reports,
//	            router.Methods(http.MethodGet, http.MethodOptions)),
//	    ),
//	)
func New(opts ...Option) router.Middleware {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}

	allowMethods := strings.Join(cfg.allowedMethods, ", ")
	allowHeaders := strings.Join(cfg.allowedHeaders, ", ")
	exposeHeaders := strings.Join(cfg.exposedHeaders, ", ")
	maxAge := strconv.Itoa(cfg.maxAge)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			origin := req.Header.Get("Origin")
			if origin == "" {
				next.ServeHTTP(w, req)
				return
			}

			h := w.Header()
			h.Add("Vary", "Origin")

			preflight := req.Method == http.MethodOptions && req.Header.Get("Access-Control-Request-Method") != ""

			if !originAllowed(cfg, origin) {
				if preflight {
					w.WriteHeader(http.StatusNoContent)
					return
				}
				next.ServeHTTP(w, req)
				return
			}

			if cfg.allowAllOrigins && !cfg.allowCredentials {
				h.Set("Access-Control-Allow-Origin", "*")
			} else {
				h.Set("Access-Control-Allow-Origin", origin)
			}
			if cfg.allowCredentials {
				h.Set("Access-Control-Allow-Credentials", "true")
			}

			if preflight {
				h.Add("Vary", "Access-Control-Request-Method")
				h.Add("Vary", "Access-Control-Request-Headers")
				h.Set("Access-Control-Allow-Methods", allowMethods)
				if allowHeaders != "" {
					h.Set("Access-Control-Allow-Headers", allowHeaders)
				}
				if cfg.maxAge > 0 {
					h.Set("Access-Control-Max-Age", maxAge)
				}
				w.WriteHeader(http.StatusNoContent)
				return
			}

			if exposeHeaders != "" {
				h.Set("Access-Control-Expose-Headers", exposeHeaders)
			}
			next.ServeHTTP(w, req)
		})
	}
}

func originAllowed(cfg *config, origin string) bool {
	if cfg.allowAllOrigins {
		return true
	}
	if cfg.allowOriginFunc != nil {
		return cfg.allowOriginFunc(origin)
	}
	return slices.Contains(cfg.allowedOrigins, origin)
}
