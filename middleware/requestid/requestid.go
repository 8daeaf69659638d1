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

// Package requestid assigns a unique ID to every request and propagates it
// through the request context and a response header.
package requestid

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/google/uuid"

	"alder.dev/router"
	"alder.dev/router/middleware"
)

// DefaultHeader is the header used to read and echo request IDs.
const DefaultHeader = "X-Request-ID"

// Option defines functional options for requestid middleware configuration.
type Option func(*config)

// config holds the configuration for the requestid middleware.
type config struct {
	// header is the request/response header carrying the ID
	header string

	// generator produces a new ID when the request carries none
	generator func() string

	// trustIncoming reuses an ID supplied by the client instead of
	// generating a fresh one
	trustIncoming bool
}

// defaultConfig returns the default configuration for requestid middleware.
func defaultConfig() *config {
	return &config{
		header:        DefaultHeader,
		generator:     generateRandomID,
		trustIncoming: true,
	}
}

// WithHeader sets the header used to read and write the request ID.
func WithHeader(header string) Option {
	return func(cfg *config) {
		if header != "" {
			cfg.header = header
		}
	}
}

// WithGenerator sets a custom ID generator.
//
// Example:
//
//	var seq atomic.Uint64
//	requestid.New(requestid.WithGenerator(func() string {
//	    return fmt.Sprintf("req-%d", seq.Add(1))
//	}))
func WithGenerator(generator func() string) Option {
	return func(cfg *config) {
		if generator != nil {
			cfg.generator = generator
		}
	}
}

// WithUUID generates RFC 4122 UUIDv4 request IDs instead of the default
// random hex strings.
func WithUUID() Option {
	return func(cfg *config) {
		cfg.generator = uuid.NewString
	}
}

// WithoutTrustedClients ignores IDs supplied by clients and always
// generates a fresh one. Use this on edges exposed to untrusted traffic so
// clients cannot pollute logs with forged IDs.
func WithoutTrustedClients() Option {
	return func(cfg *config) {
		cfg.trustIncoming = false
	}
}

// New returns a middleware that ensures every request has an ID.
//
// If the request already carries one in the configured header it is reused,
// otherwise a new one is generated. The ID is stored in the request context
// and echoed in the response header.
//
// Example:
//
//	r := router.MustNew(
//	    router.WithMiddleware(requestid.New()),
//	    router.WithRoutes(
//	        router.Get("/orders", func(w http.ResponseWriter, req *http.Request) {
//	            id := requestid.FromContext(req.Context())
//	            router.Logger(req.Context()).Info("listing orders", "request_id", id)
//	        }),
//	    ),
//	)
func New(opts ...Option) router.Middleware {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			id := ""
			if cfg.trustIncoming {
				id = req.Header.Get(cfg.header)
			}
			if id == "" {
				id = cfg.generator()
			}

			w.Header().Set(cfg.header, id)
			ctx := context.WithValue(req.Context(), middleware.RequestIDKey, id)
			next.ServeHTTP(w, req.WithContext(ctx))
		})
	}
}

// FromContext returns the request ID stored by the middleware, or "" when
// none is present.
func FromContext(ctx context.Context) string {
	if id, ok := ctx.Value(middleware.RequestIDKey).(string); ok {
		return id
	}
	return ""
}

// generateRandomID returns 16 random bytes hex encoded. If the system
// random source fails it falls back to a timestamp-and-pid string, which is
// unique enough for correlation.
func generateRandomID() string {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return fmt.Sprintf("fallback-%d-%d", time.Now().UnixNano(), os.Getpid())
	}
	return hex.EncodeToString(buf)
}
