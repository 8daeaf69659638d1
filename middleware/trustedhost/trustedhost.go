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

// Package trustedhost rejects requests whose Host header is not on an
// allow list, guarding against Host header injection behind misconfigured
// proxies.
package trustedhost

import (
	"net"
	"net/http"
	"strings"

	"alder.dev/router"
)

// Option defines functional options for trustedhost middleware
// configuration.
type Option func(*config)

// config holds the configuration for the trustedhost middleware.
type config struct {
	// exact is the set of allowed hostnames
	exact map[string]bool

	// suffixes are "." prefixed domain suffixes from wildcard patterns
	suffixes []string

	// allowAny disables the check entirely ("*" pattern)
	allowAny bool

	// handler writes the rejection response
	handler http.Handler
}

// defaultConfig returns the default configuration for trustedhost
// middleware.
func defaultConfig() *config {
	return &config{
		exact:   make(map[string]bool),
		handler: http.HandlerFunc(defaultHandler),
	}
}

func defaultHandler(w http.ResponseWriter, _ *http.Request) {
	http.Error(w, "invalid host header", http.StatusBadRequest)
}

// WithHosts adds allowed host patterns. A pattern is either an exact
// hostname ("api.example.com"), a wildcard subdomain pattern
// ("*.example.com", which also matches the bare domain), or "*" to allow
// everything. Comparison is case-insensitive and ignores the port.
func WithHosts(patterns ...string) Option {
	return func(cfg *config) {
		for _, p := range patterns {
			p = strings.ToLower(strings.TrimSpace(p))
			switch {
			case p == "":
			case p == "*":
				cfg.allowAny = true
			case strings.HasPrefix(p, "*."):
				domain := strings.TrimPrefix(p, "*.")
				cfg.exact[domain] = true
				cfg.suffixes = append(cfg.suffixes, "."+domain)
			default:
				cfg.exact[p] = true
			}
		}
	}
}

// WithHandler sets the response written on rejection. Default is a plain
// 400.
func WithHandler(h http.Handler) Option {
	return func(cfg *config) {
		if h != nil {
			cfg.handler = h
		}
	}
}

// New returns a middleware that rejects requests whose Host header does
// not match any configured pattern.
//
// Example:
//
//	r := router.MustNew(
//	    router.WithMiddleware(trustedhost.New(
//	        trustedhost.WithHosts("example.com", "*.example.com"),
//	    )),
//	    router.WithRoutes(...),
//	)
func New(opts ...Option) router.Middleware {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			if cfg.allowAny || allowed(cfg, req.Host) {
				next.ServeHTTP(w, req)
				return
			}
			cfg.handler.ServeHTTP(w, req)
		})
	}
}

func allowed(cfg *config, host string) bool {
	host = normalize(host)
	if host == "" {
		return false
	}
	if cfg.exact[host] {
		return true
	}
	for _, suffix := range cfg.suffixes {
		if strings.HasSuffix(host, suffix) {
			return true
		}
	}
	return false
}

func normalize(host string) string {
	if h, _, err := net.SplitHostPort(host); err == nil {
		host = h
	}
	host = strings.TrimPrefix(host, "[")
	host = strings.TrimSuffix(host, "]")
	return strings.ToLower(host)
}
