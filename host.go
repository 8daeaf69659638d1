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
)

// Host gates a subtree on the request's Host header. The pattern is a bare
// hostname without port; requests are compared case-insensitively after the
// port is stripped, so "api.example.com" accepts "API.example.com:8443".
// Hosts consume no path: children declare templates against the full request
// path. Like Include, a matching Host commits dispatch to its branch.
type Host struct {
	pattern     string
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
	hostname      string
	delegateChain http.Handler
	child         assembly

	resolveOnce sync.Once
	resolveErr  error
	active      []Route
}

// NewHost declares a host-gated subtree. The pattern must be a hostname
// without scheme, slash, or port.
func NewHost(pattern string, opts ...RouteOption) *Host {
	cfg := applyRouteOptions(kindHost, opts)
	return &Host{
		pattern:     pattern,
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

func (h *Host) attach(a assembly) error {
	if h.err != nil {
		return fmt.Errorf("%w: host %q: %w", ErrConfiguration, h.pattern, h.err)
	}
	if h.attached {
		return fmt.Errorf("%w: %w: %q", ErrConfiguration, ErrAlreadyAttached, h.pattern)
	}
	if h.pattern == "" || strings.ContainsAny(h.pattern, "/:{}<>") {
		return fmt.Errorf("%w: %w: %q", ErrConfiguration, ErrHostPattern, h.pattern)
	}
	sources := 0
	if len(h.children) > 0 {
		sources++
	}
	if h.app != nil {
		sources++
	}
	if h.provider != nil {
		sources++
	}
	if sources != 1 {
		return fmt.Errorf("%w: host %q: %w", ErrConfiguration, h.pattern, ErrRouteSource)
	}
	h.hostname = strings.ToLower(h.pattern)
	h.child = a.into("", h.name, h.middleware, h.permissions)
	h.child.host = h.hostname

	switch {
	case h.app != nil:
		h.delegateChain = chain(h.app, h.child.stack)
		if sub, ok := h.app.(*Router); ok {
			a.router.addForward(a.forwardKey(h.name), a.prefix, sub)
		}
	case h.provider != nil && !h.lazy:
		if err := h.resolveNow(); err != nil {
			return fmt.Errorf("%w: %w", ErrConfiguration, err)
		}
	case h.provider != nil:
		a.router.hasLazy = true
	default:
		if err := attachAll(h.children, h.child); err != nil {
			return err
		}
		h.active = h.children
	}
	h.attached = true
	return nil
}

func (h *Host) resolveNow() error {
	routes, err := h.provider.Provide()
	if err != nil {
		return fmt.Errorf("%w: host %q: %w", ErrProvider, h.pattern, err)
	}
	if err := attachAll(routes, h.child); err != nil {
		return err
	}
	h.active = routes
	h.child.router.emit(DiagProviderResolved, "route provider resolved", map[string]any{
		"host":   h.pattern,
		"routes": len(routes),
	})
	return nil
}

func (h *Host) routes() ([]Route, error) {
	if h.provider != nil && h.lazy {
		h.resolveOnce.Do(func() {
			h.resolveErr = h.resolveNow()
		})
		if h.resolveErr != nil {
			return nil, h.resolveErr
		}
	}
	return h.active, nil
}

func (h *Host) match(st *matchState, path string) matchSignal {
	if st.host != h.hostname {
		return sigNone
	}
	if h.delegateChain != nil {
		st.leaf = &leafMatch{
			handler:   h.delegateChain,
			pattern:   h.pattern,
			name:      h.name,
			rest:      path,
			delegated: true,
		}
		return sigMatched
	}
	children, err := h.routes()
	if err != nil {
		st.err = err
		return sigCommitted
	}
	for _, child := range children {
		if sig := child.match(st, path); sig != sigNone {
			return sig
		}
	}
	return sigCommitted
}

// Pattern returns the hostname pattern as declared.
func (h *Host) Pattern() string { return h.pattern }

// Name returns the host's name, or "".
func (h *Host) Name() string { return h.name }

// ChildRoutes returns the host's children, resolving a lazy provider if
// necessary. Delegated hosts have no children.
func (h *Host) ChildRoutes() ([]Route, error) {
	if h.app != nil {
		return nil, nil
	}
	if !h.attached {
		return h.children, nil
	}
	return h.routes()
}

// Delegate returns the delegate handler, or nil when the host carries
// children instead.
func (h *Host) Delegate() http.Handler { return h.app }

// Provided reports whether the children come from a RouteProvider.
func (h *Host) Provided() bool { return h.provider != nil }

// IsLazy reports whether provider resolution is deferred to first use.
func (h *Host) IsLazy() bool { return h.lazy }

// MiddlewareNames returns the function names of the host's middleware.
func (h *Host) MiddlewareNames() []string { return middlewareNames(h.middleware) }

// PermissionNames returns the function names of the host's permissions.
func (h *Host) PermissionNames() []string { return permissionNames(h.permissions) }

// IsDeprecated reports whether the host was declared deprecated.
func (h *Host) IsDeprecated() bool { return h.deprecated }

// InSchema reports whether the host participates in schema-oriented
// introspection.
func (h *Host) InSchema() bool { return h.inSchema }
