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
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"slices"
	"strings"
	"sync"

	"github.com/gorilla/websocket"

	"alder.dev/router/transform"
)

// Router dispatches HTTP and WebSocket requests over an ordered tree of
// routes. A router is assembled once by New and immutable afterwards: every
// template is compiled, every wrap chain is built, and every name is indexed
// before the first request arrives.
//
// Dispatch scans the top-level routes in declaration order. The first
// structural match wins: a matching Include or Host confines the request to
// its branch, while a leaf that matches the path but not the method lets
// scanning continue and contributes its methods to the 405 Allow set.
//
// Example:
//
//	r, err := router.New(
//		router.WithRoutes(
//			router.Get("/", home),
//			router.Get("/articles/{id:int}", showArticle, router.Named("article")),
//			router.NewInclude("/api", router.Named("api"), router.Routes(
//				router.Get("/users", listUsers, router.Named("users")),
//			)),
//		),
//	)
//	if err != nil {
//		log.Fatal(err)
//	}
//	http.ListenAndServe(":8080", r)
type Router struct {
	name          string
	entries       []Route
	registry      *transform.Registry
	middleware    []Middleware
	permissions   []Permission
	redirectSlash bool

	notFound         http.Handler
	methodNotAllowed http.Handler

	logger        *slog.Logger
	observability ObservabilityRecorder
	diagnostics   DiagnosticHandler
	hasLazy       bool

	revMu    sync.RWMutex
	reverse  map[string]reverseEntry
	forwards []reverseForward
	patterns map[string]map[string]struct{}

	// staging fields, consumed by New
	pending  []Route
	regBase  *transform.Registry
	regExtra []registration

	enableH2C      bool
	serverTimeouts *serverTimeouts
	serverMu       sync.Mutex
	server         *http.Server
}

type registration struct {
	key   string
	codec transform.Transformer
}

// New assembles a router from its options. All templates are parsed,
// transformer keys resolved against a snapshot of the registry, wrap chains
// composed, and reverse lookup names indexed; any problem is reported here
// wrapped in ErrConfiguration rather than at request time. Routes from
// providers are resolved now unless declared Lazy.
func New(opts ...Option) (*Router, error) {
	r := &Router{
		name:          "app",
		redirectSlash: true,
		logger:        noopLogger(),
		notFound:      http.NotFoundHandler(),
		methodNotAllowed: http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
		}),
		reverse:  make(map[string]reverseEntry),
		patterns: make(map[string]map[string]struct{}),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(r)
		}
	}
	if err := r.serverTimeouts.validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConfiguration, err)
	}
	base := r.regBase
	if base == nil {
		base = transform.NewRegistry()
	}
	r.registry = base.Clone()
	for _, reg := range r.regExtra {
		if err := r.registry.Register(reg.key, reg.codec); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrConfiguration, err)
		}
	}
	a := assembly{router: r, reg: r.registry, stack: layerStack{}.push(r.middleware, r.permissions)}
	if err := attachAll(r.pending, a); err != nil {
		return nil, err
	}
	r.entries = r.pending
	r.pending = nil
	r.regBase = nil
	r.regExtra = nil
	return r, nil
}

// MustNew is New that panics on error, for wiring done in main or init where
// a configuration error is fatal anyway.
func MustNew(opts ...Option) *Router {
	r, err := New(opts...)
	if err != nil {
		panic(err)
	}
	return r
}

// ServeHTTP implements http.Handler. Matched requests run through the
// route's wrap chain with captured parameters already in the request
// context. Method mismatches answer 405 with an Allow header accumulated
// across every route that matched the path; unmatched paths answer 404,
// or 307 to the slash-toggled path when that one would match.
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	ctx := req.Context()
	var obsState any
	if r.observability != nil {
		ctx, obsState = r.observability.OnRequestStart(ctx, req)
		req = req.WithContext(ctx)
		if obsState != nil {
			if wrapped := r.observability.WrapResponseWriter(w, obsState); wrapped != nil {
				w = wrapped
			}
		}
	}

	path := req.URL.Path
	if path == "" {
		path = "/"
	}
	res, leaf, err := r.resolve(req.Method, path, req.Host, websocket.IsWebSocketUpgrade(req))

	switch {
	case err != nil:
		r.logger.LogAttrs(ctx, slog.LevelError, "route resolution failed",
			slog.String("method", req.Method),
			slog.String("path", path),
			slog.Any("error", err),
		)
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		r.finish(ctx, obsState, w, patternError)

	case res.Kind == OutcomeMatched:
		handlerCtx := ctx
		if leaf.params != nil {
			handlerCtx = withParams(handlerCtx, Params(leaf.params))
		}
		if r.observability != nil {
			if lg := r.observability.BuildRequestLogger(handlerCtx, req, res.Pattern); lg != nil {
				handlerCtx = withLogger(handlerCtx, lg)
			}
		}
		out := req
		if handlerCtx != ctx {
			out = req.WithContext(handlerCtx)
		}
		if leaf.delegated {
			out = stripTo(out, leaf.rest)
		}
		leaf.handler.ServeHTTP(w, out)
		r.finish(handlerCtx, obsState, w, res.Pattern)

	case res.Kind == OutcomeMethodNotAllowed:
		w.Header().Set("Allow", strings.Join(res.Allowed, ", "))
		r.methodNotAllowed.ServeHTTP(w, req)
		r.finish(ctx, obsState, w, patternMethodNotAllowed)

	case res.Kind == OutcomeRedirect:
		target := url.URL{Path: res.Location, RawQuery: req.URL.RawQuery}
		http.Redirect(w, req, target.String(), http.StatusTemporaryRedirect)
		r.finish(ctx, obsState, w, patternRedirect)

	default:
		r.notFound.ServeHTTP(w, req)
		r.finish(ctx, obsState, w, patternNotFound)
	}
}

// Sentinel route pattern labels handed to OnRequestEnd when no route
// pattern applies. The leading underscore keeps them out of the template
// namespace and the label cardinality bounded.
const (
	patternNotFound         = "_not_found"
	patternMethodNotAllowed = "_method_not_allowed"
	patternRedirect         = "_redirect"
	patternError            = "_error"
)

// stripTo rebases the request on the remainder path left after a container
// consumed its prefix, the same shallow copy http.StripPrefix performs.
func stripTo(req *http.Request, rest string) *http.Request {
	out := new(http.Request)
	*out = *req
	u := *req.URL
	u.Path = rest
	u.RawPath = ""
	out.URL = &u
	return out
}

// finish closes the observability bracket. Requests the recorder excluded
// (state == nil) are skipped.
func (r *Router) finish(ctx context.Context, state any, w http.ResponseWriter, pattern string) {
	if r.observability == nil || state == nil {
		return
	}
	r.observability.OnRequestEnd(ctx, state, w, pattern)
}

// emit hands a diagnostic to the configured handler, if any.
func (r *Router) emit(kind DiagnosticKind, message string, fields map[string]any) {
	if r.diagnostics == nil {
		return
	}
	r.diagnostics.OnDiagnostic(DiagnosticEvent{Kind: kind, Message: message, Fields: fields})
}

// recordPattern tracks which template and method pairs are claimed within a
// host scope, surfacing duplicates as diagnostics. Declaration order decides
// dispatch, so the later duplicate can never match.
func (r *Router) recordPattern(scope, pattern string, methods []string) {
	key := scope + "\x00" + pattern
	r.revMu.Lock()
	seen := r.patterns[key]
	if seen == nil {
		seen = make(map[string]struct{}, len(methods))
		r.patterns[key] = seen
	}
	var shadowed []string
	for _, m := range methods {
		if _, dup := seen[m]; dup {
			shadowed = append(shadowed, m)
		} else {
			seen[m] = struct{}{}
		}
	}
	r.revMu.Unlock()
	if len(shadowed) > 0 {
		r.emit(DiagRouteShadowed, "route is shadowed by an earlier declaration", map[string]any{
			"pattern": pattern,
			"methods": shadowed,
		})
	}
}

// Name returns the application name used in logs and introspection.
func (r *Router) Name() string { return r.name }

// Entries returns the top-level routes in declaration order.
func (r *Router) Entries() []Route { return slices.Clone(r.entries) }

// MiddlewareNames returns the function names of the router-level middleware.
func (r *Router) MiddlewareNames() []string { return middlewareNames(r.middleware) }

// PermissionNames returns the function names of the router-level permissions.
func (r *Router) PermissionNames() []string { return permissionNames(r.permissions) }

// TransformerKeys returns the sorted transformer keys the router compiled
// its templates against.
func (r *Router) TransformerKeys() []string { return r.registry.Keys() }

// RedirectsTrailingSlash reports whether unmatched paths are retried with
// the trailing slash toggled.
func (r *Router) RedirectsTrailingSlash() bool { return r.redirectSlash }

func noopLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
