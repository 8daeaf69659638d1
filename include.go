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
	"sync"

	"alder.dev/router/compiler"
)

// Include mounts a subtree of routes under a literal path prefix. The prefix
// is consumed before children are consulted, so children declare templates
// relative to it. Once a request's path matches the prefix, dispatch commits
// to this branch: later siblings are never consulted, even when nothing
// inside matches.
//
// Children come from exactly one of three sources: a literal list (Routes),
// a delegate handler receiving the stripped path (Delegate), or a
// RouteProvider (Provide).
//
// Example:
//
//	api := router.NewInclude("/api",
//		router.Named("api"),
//		router.Wrap(requireJSON),
//		router.Routes(
//			router.Get("/users", listUsers, router.Named("users")),
//			router.Get("/users/{id:int}", showUser, router.Named("user")),
//		),
//	)
type Include struct {
	prefix      string
	name        string
	middleware  []Middleware
	permissions []Permission
	children    []Route
	app         http.Handler
	provider    RouteProvider
	lazy        bool
	deprecated  bool
	inSchema    bool
	err         error

	attached      bool
	matcher       *compiler.Matcher
	pattern       string
	delegateChain http.Handler
	child         assembly

	resolveOnce sync.Once
	resolveErr  error
	active      []Route
}

// NewInclude declares a prefix mount. The prefix must begin with "/" and may
// not contain parameter syntax.
func NewInclude(prefix string, opts ...RouteOption) *Include {
	cfg := applyRouteOptions(kindInclude, opts)
	return &Include{
		prefix:      prefix,
		name:        cfg.name,
		middleware:  cfg.middleware,
		permissions: cfg.permissions,
		children:    cfg.children,
		app:         cfg.app,
		provider:    cfg.provider,
		lazy:        cfg.lazy,
		deprecated:  cfg.deprecated,
		inSchema:    cfg.inSchema,
		err:         cfg.err,
	}
}

func (inc *Include) attach(a assembly) error {
	if inc.err != nil {
		return fmt.Errorf("%w: include %q: %w", ErrConfiguration, inc.prefix, inc.err)
	}
	if inc.attached {
		return fmt.Errorf("%w: %w: %q", ErrConfiguration, ErrAlreadyAttached, inc.prefix)
	}
	if err := inc.checkSource(); err != nil {
		return err
	}
	if strings.ContainsAny(inc.prefix, "{}<>") {
		return fmt.Errorf("%w: %w: %q", ErrConfiguration, ErrIncludeParameter, inc.prefix)
	}
	if !strings.HasPrefix(inc.prefix, "/") {
		return fmt.Errorf("%w: %w: %q", ErrConfiguration, ErrTemplateSlash, inc.prefix)
	}
	tpl, err := compiler.Parse(inc.prefix)
	if err != nil {
		return fmt.Errorf("%w: include %q: %w", ErrConfiguration, inc.prefix, err)
	}
	matcher, err := tpl.Compile(a.reg)
	if err != nil {
		return fmt.Errorf("%w: include %q: %w", ErrConfiguration, inc.prefix, err)
	}
	inc.matcher = matcher
	inc.pattern = a.prefix + inc.prefix
	inc.child = a.into(inc.prefix, inc.name, inc.middleware, inc.permissions)

	switch {
	case inc.app != nil:
		inc.delegateChain = chain(inc.app, inc.child.stack)
		if sub, ok := inc.app.(*Router); ok {
			a.router.addForward(a.forwardKey(inc.name), inc.pattern, sub)
		}
	case inc.provider != nil && !inc.lazy:
		if err := inc.resolveNow(); err != nil {
			return fmt.Errorf("%w: %w", ErrConfiguration, err)
		}
	case inc.provider != nil:
		a.router.hasLazy = true
	default:
		if err := attachAll(inc.children, inc.child); err != nil {
			return err
		}
		inc.active = inc.children
	}
	inc.attached = true
	return nil
}

func (inc *Include) checkSource() error {
	sources := 0
	if len(inc.children) > 0 {
		sources++
	}
	if inc.app != nil {
		sources++
	}
	if inc.provider != nil {
		sources++
	}
	if sources != 1 {
		return fmt.Errorf("%w: include %q: %w", ErrConfiguration, inc.prefix, ErrRouteSource)
	}
	return nil
}

// resolveNow asks the provider for the child list and attaches it. Called
// either during assembly or, under Lazy, once from routes.
func (inc *Include) resolveNow() error {
	routes, err := inc.provider.Provide()
	if err != nil {
		return fmt.Errorf("%w: include %q: %w", ErrProvider, inc.pattern, err)
	}
	if err := attachAll(routes, inc.child); err != nil {
		return err
	}
	inc.active = routes
	inc.child.router.emit(DiagProviderResolved, "route provider resolved", map[string]any{
		"include": inc.pattern,
		"routes":  len(routes),
	})
	return nil
}

// routes returns the attached child list, resolving a lazy provider on first
// use. A resolution failure is cached and returned to every later call.
func (inc *Include) routes() ([]Route, error) {
	if inc.provider != nil && inc.lazy {
		inc.resolveOnce.Do(func() {
			inc.resolveErr = inc.resolveNow()
		})
		if inc.resolveErr != nil {
			return nil, inc.resolveErr
		}
	}
	return inc.active, nil
}

func (inc *Include) match(st *matchState, path string) matchSignal {
	_, rest, ok := inc.matcher.MatchPrefix(path)
	if !ok {
		return sigNone
	}
	if inc.delegateChain != nil {
		st.leaf = &leafMatch{
			handler:   inc.delegateChain,
			pattern:   inc.pattern,
			name:      inc.name,
			rest:      rest,
			delegated: true,
		}
		return sigMatched
	}
	children, err := inc.routes()
	if err != nil {
		st.err = err
		return sigCommitted
	}
	for _, child := range children {
		if sig := child.match(st, rest); sig != sigNone {
			return sig
		}
	}
	return sigCommitted
}

// Prefix returns the include's literal prefix as declared.
func (inc *Include) Prefix() string { return inc.prefix }

// Name returns the include's name, or "".
func (inc *Include) Name() string { return inc.name }

// Pattern returns the full prefix including enclosing includes. It is empty
// until the include is attached.
func (inc *Include) Pattern() string { return inc.pattern }

// ChildRoutes returns the include's children, resolving a lazy provider if
// necessary. Delegated includes have no children.
func (inc *Include) ChildRoutes() ([]Route, error) {
	if inc.app != nil {
		return nil, nil
	}
	if !inc.attached {
		return inc.children, nil
	}
	return inc.routes()
}

// Delegate returns the delegate handler, or nil when the include carries
// children instead.
func (inc *Include) Delegate() http.Handler { return inc.app }

// Provided reports whether the children come from a RouteProvider.
func (inc *Include) Provided() bool { return inc.provider != nil }

// IsLazy reports whether provider resolution is deferred to first use.
func (inc *Include) IsLazy() bool { return inc.lazy }

// MiddlewareNames returns the function names of the include's middleware.
func (inc *Include) MiddlewareNames() []string { return middlewareNames(inc.middleware) }

// PermissionNames returns the function names of the include's permissions.
func (inc *Include) PermissionNames() []string { return permissionNames(inc.permissions) }

// IsDeprecated reports whether the include was declared deprecated.
func (inc *Include) IsDeprecated() bool { return inc.deprecated }

// InSchema reports whether the include participates in schema-oriented
// introspection.
func (inc *Include) InSchema() bool { return inc.inSchema }
