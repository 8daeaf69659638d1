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

package router

import (
	"log/slog"
	"net/http"
	"time"

	"alder.dev/router/transform"
)

// Option configures a Router during New.
type Option func(*Router)

// WithName sets the application name reported by logs and introspection.
func WithName(name string) Option {
	return func(r *Router) {
		r.name = name
	}
}

// WithRoutes appends top-level routes. Declaration order is dispatch order;
// the option may be repeated.
func WithRoutes(routes ...Route) Option {
	return func(r *Router) {
		r.pending = append(r.pending, routes...)
	}
}

// WithMiddleware appends router-level middleware, wrapping every route of
// the router outside any include-level or route-level wrapper.
func WithMiddleware(mw ...Middleware) Option {
	return func(r *Router) {
		r.middleware = append(r.middleware, mw...)
	}
}

// WithPermissions appends router-level permissions. They run inside the
// router-level middleware but outside everything declared deeper.
func WithPermissions(perms ...Permission) Option {
	return func(r *Router) {
		r.permissions = append(r.permissions, perms...)
	}
}

// WithTransformers replaces the base transformer registry. New clones the
// registry during assembly, so registrations made after New are invisible to
// the router.
//
// Example:
//
//	reg := transform.NewRegistry()
//	reg.Register("slug", slugTransformer{})
//	r, err := router.New(
//		router.WithTransformers(reg),
//		router.WithRoutes(router.Get("/posts/{name:slug}", showPost)),
//	)
func WithTransformers(reg *transform.Registry) Option {
	return func(r *Router) {
		r.regBase = reg
	}
}

// WithTransformer registers a single additional transformer on top of the
// base registry. Registering a key twice is a configuration error.
func WithTransformer(key string, codec transform.Transformer) Option {
	return func(r *Router) {
		r.regExtra = append(r.regExtra, registration{key: key, codec: codec})
	}
}

// WithRedirectTrailingSlash controls the 307 retry for unmatched paths whose
// slash-toggled variant matches. It is enabled by default.
func WithRedirectTrailingSlash(enabled bool) Option {
	return func(r *Router) {
		r.redirectSlash = enabled
	}
}

// WithNotFoundHandler replaces the handler for unmatched requests.
func WithNotFoundHandler(h http.Handler) Option {
	return func(r *Router) {
		if h != nil {
			r.notFound = h
		}
	}
}

// WithMethodNotAllowedHandler replaces the 405 handler. The Allow header is
// set before the handler runs.
func WithMethodNotAllowedHandler(h http.Handler) Option {
	return func(r *Router) {
		if h != nil {
			r.methodNotAllowed = h
		}
	}
}

// WithLogger sets the logger used for the router's own events: resolution
// failures, server lifecycle, diagnostics fallbacks. Handlers receive their
// per-request logger through the observability recorder instead. Defaults to
// a discarding logger.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Router) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithObservability installs a recorder that brackets every request,
// regardless of outcome. See ObservabilityRecorder.
func WithObservability(rec ObservabilityRecorder) Option {
	return func(r *Router) {
		r.observability = rec
	}
}

// WithDiagnostics installs a handler for assembly-time findings such as
// shadowed routes and provider resolutions.
//
// Example:
//
//	router.WithDiagnostics(router.DiagnosticHandlerFunc(func(e router.DiagnosticEvent) {
//		log.Printf("%s: %s %v", e.Kind, e.Message, e.Fields)
//	}))
func WithDiagnostics(h DiagnosticHandler) Option {
	return func(r *Router) {
		r.diagnostics = h
	}
}

// WithH2C enables cleartext HTTP/2 upgrades on Serve. ServeTLS negotiates
// HTTP/2 via ALPN and ignores this option.
func WithH2C() Option {
	return func(r *Router) {
		r.enableH2C = true
	}
}

// WithServerTimeouts configures the timeouts of servers started with Serve
// and ServeTLS.
//
// Defaults (if not set):
//
//	ReadHeaderTimeout: 5s  - Time to read request headers
//	ReadTimeout:       15s - Time to read entire request
//	WriteTimeout:      30s - Time to write response
//	IdleTimeout:       60s - Keep-alive idle time
//
// Negative values are a configuration error reported by New.
func WithServerTimeouts(readHeader, read, write, idle time.Duration) Option {
	return func(r *Router) {
		r.serverTimeouts = &serverTimeouts{
			readHeader: readHeader,
			read:       read,
			write:      write,
			idle:       idle,
		}
	}
}
