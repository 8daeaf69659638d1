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
	"fmt"
	"net/http"
	"strings"

	"alder.dev/router/transform"
)

// Route is one entry in a router's dispatch list: a Path, a WebSocketPath, an
// Include, or a Host. Routes are declared up front and handed to New via
// WithRoutes; they carry no behavior of their own until the router compiles
// them.
//
// The interface is sealed. Outside packages compose the four concrete kinds
// rather than implementing new ones, which keeps matching semantics closed
// under what the router can reason about.
type Route interface {
	// attach compiles the node against the assembling router: templates are
	// parsed, transformers resolved, wrap chains built, and reverse lookup
	// entries registered.
	attach(a assembly) error

	// match advances the node against the remaining request path, recording
	// progress in st. See matchSignal for the contract.
	match(st *matchState, path string) matchSignal
}

// assembly carries the accumulated compile context while the route tree is
// walked. Values are copied downward, so sibling branches never observe each
// other's extensions.
type assembly struct {
	router *Router
	reg    *transform.Registry

	// stack holds every wrapper from the router and enclosing Includes,
	// outermost first.
	stack layerStack

	// prefix is the concatenated literal prefix text of enclosing Includes.
	prefix string

	// names holds the names of enclosing named Includes, shallowest first.
	names []string

	// host is the hostname of the enclosing Host node, or "".
	host string
}

// into derives the assembly context for children nested one level deeper.
func (a assembly) into(prefix, name string, mw []Middleware, perms []Permission) assembly {
	b := a
	b.stack = a.stack.push(mw, perms)
	b.prefix = a.prefix + prefix
	if name != "" {
		b.names = append(append([]string(nil), a.names...), name)
	}
	return b
}

// lookupKey joins the enclosing include names with name into the compound
// reverse lookup key, e.g. "admin:users:detail". Unnamed levels contribute
// nothing, so their children surface under the shorter key.
func (a assembly) lookupKey(name string) string {
	if len(a.names) == 0 {
		return name
	}
	return strings.Join(a.names, ":") + ":" + name
}

// forwardKey is the lookup key prefix under which a delegated router's own
// route names surface. An unnamed container exposes them at the enclosing
// scope directly.
func (a assembly) forwardKey(name string) string {
	if name == "" {
		return strings.Join(a.names, ":")
	}
	return a.lookupKey(name)
}

// attachAll walks routes in declaration order, stopping at the first error.
func attachAll(routes []Route, a assembly) error {
	for i, rt := range routes {
		if rt == nil {
			return fmt.Errorf("%w: %w at index %d", ErrConfiguration, ErrNilRoute, i)
		}
		if err := rt.attach(a); err != nil {
			return err
		}
	}
	return nil
}

// routeConfig is the option bag shared by the route constructors. kind guards
// options against node kinds that cannot carry them; the first violation is
// parked in err and surfaced when the node attaches.
type routeConfig struct {
	kind string

	name        string
	methods     []string
	middleware  []Middleware
	permissions []Permission
	deprecated  bool
	inSchema    bool

	children []Route
	app      http.Handler
	provider RouteProvider
	lazy     bool

	err error
}

const (
	kindPath      = "path"
	kindWebSocket = "websocket"
	kindInclude   = "include"
	kindHost      = "host"
)

func (c *routeConfig) reject(opt string) {
	if c.err == nil {
		c.err = fmt.Errorf("%w: %s on %s route", ErrOptionConflict, opt, c.kind)
	}
}

// RouteOption customizes a single route declaration. Options are applied in
// order by the route constructors; an option applied to a route kind that
// cannot carry it turns into an assembly error from New.
type RouteOption func(*routeConfig)

// Named assigns the route's lookup name for Reverse. Names must be unique
// among the immediate children of one container; the same name may recur in
// different Includes because lookup keys are prefixed with the enclosing
// include names.
func Named(name string) RouteOption {
	return func(c *routeConfig) {
		c.name = name
	}
}

// Methods replaces the HTTP method set of a Path route. Methods are
// upper-cased; declaring GET implies HEAD. The default for routes built with
// Handle is GET.
func Methods(methods ...string) RouteOption {
	return func(c *routeConfig) {
		if c.kind != kindPath {
			c.reject("Methods")
			return
		}
		c.methods = methods
	}
}

// Wrap appends middleware to the route. On a Path or WebSocketPath the
// middleware wraps only that route's handler; on an Include or Host it wraps
// every route beneath.
func Wrap(mw ...Middleware) RouteOption {
	return func(c *routeConfig) {
		c.middleware = append(c.middleware, mw...)
	}
}

// Require appends permissions to the route. Permissions run inside every
// middleware declared at the same level.
func Require(perms ...Permission) RouteOption {
	return func(c *routeConfig) {
		c.permissions = append(c.permissions, perms...)
	}
}

// Routes declares the child list of an Include or Host. Exactly one of
// Routes, Delegate, or Provide must be given per container.
func Routes(children ...Route) RouteOption {
	return func(c *routeConfig) {
		if c.kind != kindInclude && c.kind != kindHost {
			c.reject("Routes")
			return
		}
		c.children = append(c.children, children...)
	}
}

// Delegate hands every request the container accepts to app, with the
// matched prefix stripped from the URL path. The delegate may be any
// http.Handler, including another *Router.
func Delegate(app http.Handler) RouteOption {
	return func(c *routeConfig) {
		if c.kind != kindInclude && c.kind != kindHost {
			c.reject("Delegate")
			return
		}
		c.app = app
	}
}

// Provide sources the container's children from p. Providers resolve exactly
// once: during New by default, or at first match when Lazy is set.
func Provide(p RouteProvider) RouteOption {
	return func(c *routeConfig) {
		if c.kind != kindInclude && c.kind != kindHost {
			c.reject("Provide")
			return
		}
		c.provider = p
	}
}

// Lazy defers provider resolution from New to the first request that reaches
// the container. Concurrent first requests still resolve the provider
// exactly once; a resolution failure is remembered and served as an internal
// error until the process restarts.
func Lazy() RouteOption {
	return func(c *routeConfig) {
		if c.kind != kindInclude && c.kind != kindHost {
			c.reject("Lazy")
			return
		}
		c.lazy = true
	}
}

// Deprecated marks the route as deprecated in introspection output. Matching
// is unaffected.
func Deprecated() RouteOption {
	return func(c *routeConfig) {
		c.deprecated = true
	}
}

// OmitFromSchema hides the route from schema-oriented introspection while
// leaving dispatch untouched.
func OmitFromSchema() RouteOption {
	return func(c *routeConfig) {
		c.inSchema = false
	}
}

func applyRouteOptions(kind string, opts []RouteOption) routeConfig {
	cfg := routeConfig{kind: kind, inSchema: true}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	return cfg
}

// normalizeMethods upper-cases methods, deduplicates them, and adds HEAD
// whenever GET is present.
func normalizeMethods(methods []string) map[string]struct{} {
	set := make(map[string]struct{}, len(methods)+1)
	for _, m := range methods {
		set[strings.ToUpper(strings.TrimSpace(m))] = struct{}{}
	}
	if _, ok := set[http.MethodGet]; ok {
		set[http.MethodHead] = struct{}{}
	}
	return set
}
