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
	"slices"
	"strings"

	"alder.dev/router/compiler"
)

// Path is a leaf route binding a path template and HTTP method set to a
// handler.
//
// Example:
//
//	router.Get("/articles/{id:int}", showArticle, router.Named("article"))
type Path struct {
	template    string
	handler     http.Handler
	methods     map[string]struct{}
	name        string
	middleware  []Middleware
	permissions []Permission
	deprecated  bool
	inSchema    bool
	err         error

	attached bool
	matcher  *compiler.Matcher
	chain    http.Handler
	pattern  string
	lookup   string
}

// Handle declares a route for an arbitrary handler. The method set defaults
// to GET and is replaced with the Methods option.
func Handle(template string, handler http.Handler, opts ...RouteOption) *Path {
	cfg := applyRouteOptions(kindPath, opts)
	methods := cfg.methods
	if len(methods) == 0 {
		methods = []string{http.MethodGet}
	}
	return &Path{
		template:    template,
		handler:     handler,
		methods:     normalizeMethods(methods),
		name:        cfg.name,
		middleware:  cfg.middleware,
		permissions: cfg.permissions,
		deprecated:  cfg.deprecated,
		inSchema:    cfg.inSchema,
		err:         cfg.err,
	}
}

// Get declares a GET route. HEAD is implied.
func Get(template string, handler http.HandlerFunc, opts ...RouteOption) *Path {
	return Handle(template, handler, append(opts, Methods(http.MethodGet))...)
}

// Post declares a POST route.
func Post(template string, handler http.HandlerFunc, opts ...RouteOption) *Path {
	return Handle(template, handler, append(opts, Methods(http.MethodPost))...)
}

// Put declares a PUT route.
func Put(template string, handler http.HandlerFunc, opts ...RouteOption) *Path {
	return Handle(template, handler, append(opts, Methods(http.MethodPut))...)
}

// Patch declares a PATCH route.
func Patch(template string, handler http.HandlerFunc, opts ...RouteOption) *Path {
	return Handle(template, handler, append(opts, Methods(http.MethodPatch))...)
}

// Delete declares a DELETE route.
func Delete(template string, handler http.HandlerFunc, opts ...RouteOption) *Path {
	return Handle(template, handler, append(opts, Methods(http.MethodDelete))...)
}

// Head declares a HEAD-only route.
func Head(template string, handler http.HandlerFunc, opts ...RouteOption) *Path {
	return Handle(template, handler, append(opts, Methods(http.MethodHead))...)
}

// Options declares an OPTIONS route.
func Options(template string, handler http.HandlerFunc, opts ...RouteOption) *Path {
	return Handle(template, handler, append(opts, Methods(http.MethodOptions))...)
}

func (p *Path) attach(a assembly) error {
	if p.err != nil {
		return fmt.Errorf("%w: route %q: %w", ErrConfiguration, p.template, p.err)
	}
	if p.attached {
		return fmt.Errorf("%w: %w: %q", ErrConfiguration, ErrAlreadyAttached, p.template)
	}
	if p.handler == nil {
		return fmt.Errorf("%w: %w for route %q", ErrConfiguration, ErrNilHandler, p.template)
	}
	matcher, err := compileTemplate(p.template, a)
	if err != nil {
		return err
	}
	p.matcher = matcher
	p.pattern = a.prefix + p.template
	p.chain = chain(p.handler, a.stack.push(p.middleware, p.permissions))
	if p.name != "" {
		p.lookup = a.lookupKey(p.name)
		if err := a.router.addReverse(p.lookup, a.prefix, p.template, matcher); err != nil {
			return err
		}
	}
	a.router.recordPattern(a.host, p.pattern, p.Methods())
	p.attached = true
	return nil
}

func (p *Path) match(st *matchState, path string) matchSignal {
	if st.upgrade {
		return sigNone
	}
	params, ok := p.matcher.Match(path)
	if !ok {
		return sigNone
	}
	if _, ok := p.methods[st.method]; !ok {
		st.allow(p.methods)
		return sigNone
	}
	st.leaf = &leafMatch{
		handler: p.chain,
		params:  params,
		pattern: p.pattern,
		name:    p.lookup,
	}
	return sigMatched
}

// Template returns the path template as declared, without enclosing include
// prefixes.
func (p *Path) Template() string { return p.template }

// Name returns the route's declared name, or "".
func (p *Path) Name() string { return p.name }

// LookupKey returns the compound reverse lookup key assigned at assembly, or
// "" for unnamed or unattached routes.
func (p *Path) LookupKey() string { return p.lookup }

// Pattern returns the full template including enclosing include prefixes.
// It is empty until the route is attached to a router.
func (p *Path) Pattern() string { return p.pattern }

// Methods returns the effective method set, sorted. HEAD appears whenever
// GET was declared.
func (p *Path) Methods() []string {
	out := make([]string, 0, len(p.methods))
	for m := range p.methods {
		out = append(out, m)
	}
	slices.Sort(out)
	return out
}

// MiddlewareNames returns the function names of the route's own middleware,
// in declaration order.
func (p *Path) MiddlewareNames() []string { return middlewareNames(p.middleware) }

// PermissionNames returns the function names of the route's own permissions,
// in declaration order.
func (p *Path) PermissionNames() []string { return permissionNames(p.permissions) }

// IsDeprecated reports whether the route was declared deprecated.
func (p *Path) IsDeprecated() bool { return p.deprecated }

// InSchema reports whether the route participates in schema-oriented
// introspection.
func (p *Path) InSchema() bool { return p.inSchema }

// WebSocketPath is a leaf route matched only by WebSocket upgrade requests.
// Plain HTTP requests pass over it without contributing to the Allow set,
// and upgrade requests pass over Path routes the same way.
type WebSocketPath struct {
	template    string
	handler     http.Handler
	name        string
	middleware  []Middleware
	permissions []Permission
	deprecated  bool
	inSchema    bool
	err         error

	attached bool
	matcher  *compiler.Matcher
	chain    http.Handler
	pattern  string
	lookup   string
}

// WebSocket declares a WebSocket route. The handler receives the original
// request and performs the protocol upgrade itself; the ws package provides
// an adapter for that.
func WebSocket(template string, handler http.Handler, opts ...RouteOption) *WebSocketPath {
	cfg := applyRouteOptions(kindWebSocket, opts)
	return &WebSocketPath{
		template:    template,
		handler:     handler,
		name:        cfg.name,
		middleware:  cfg.middleware,
		permissions: cfg.permissions,
		deprecated:  cfg.deprecated,
		inSchema:    cfg.inSchema,
		err:         cfg.err,
	}
}

func (w *WebSocketPath) attach(a assembly) error {
	if w.err != nil {
		return fmt.Errorf("%w: route %q: %w", ErrConfiguration, w.template, w.err)
	}
	if w.attached {
		return fmt.Errorf("%w: %w: %q", ErrConfiguration, ErrAlreadyAttached, w.template)
	}
	if w.handler == nil {
		return fmt.Errorf("%w: %w for route %q", ErrConfiguration, ErrNilHandler, w.template)
	}
	matcher, err := compileTemplate(w.template, a)
	if err != nil {
		return err
	}
	w.matcher = matcher
	w.pattern = a.prefix + w.template
	w.chain = chain(w.handler, a.stack.push(w.middleware, w.permissions))
	if w.name != "" {
		w.lookup = a.lookupKey(w.name)
		if err := a.router.addReverse(w.lookup, a.prefix, w.template, matcher); err != nil {
			return err
		}
	}
	w.attached = true
	return nil
}

func (w *WebSocketPath) match(st *matchState, path string) matchSignal {
	if !st.upgrade {
		return sigNone
	}
	params, ok := w.matcher.Match(path)
	if !ok {
		return sigNone
	}
	st.leaf = &leafMatch{
		handler: w.chain,
		params:  params,
		pattern: w.pattern,
		name:    w.lookup,
	}
	return sigMatched
}

// Template returns the path template as declared.
func (w *WebSocketPath) Template() string { return w.template }

// Name returns the route's declared name, or "".
func (w *WebSocketPath) Name() string { return w.name }

// LookupKey returns the compound reverse lookup key assigned at assembly.
func (w *WebSocketPath) LookupKey() string { return w.lookup }

// Pattern returns the full template including enclosing include prefixes.
func (w *WebSocketPath) Pattern() string { return w.pattern }

// MiddlewareNames returns the function names of the route's own middleware.
func (w *WebSocketPath) MiddlewareNames() []string { return middlewareNames(w.middleware) }

// PermissionNames returns the function names of the route's own permissions.
func (w *WebSocketPath) PermissionNames() []string { return permissionNames(w.permissions) }

// IsDeprecated reports whether the route was declared deprecated.
func (w *WebSocketPath) IsDeprecated() bool { return w.deprecated }

// InSchema reports whether the route participates in schema-oriented
// introspection.
func (w *WebSocketPath) InSchema() bool { return w.inSchema }

// compileTemplate parses and compiles a leaf template against the router's
// transformer snapshot, normalizing errors into the configuration family.
func compileTemplate(template string, a assembly) (*compiler.Matcher, error) {
	if !strings.HasPrefix(template, "/") {
		return nil, fmt.Errorf("%w: %w: %q", ErrConfiguration, ErrTemplateSlash, template)
	}
	tpl, err := compiler.Parse(template)
	if err != nil {
		return nil, fmt.Errorf("%w: route %q: %w", ErrConfiguration, template, err)
	}
	matcher, err := tpl.Compile(a.reg)
	if err != nil {
		return nil, fmt.Errorf("%w: route %q: %w", ErrConfiguration, template, err)
	}
	return matcher, nil
}
