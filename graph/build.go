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

package graph

import (
	"fmt"
	"net/http"

	"alder.dev/router"
)

// Build walks an assembled application and returns its graph. Node IDs are
// derived from tree position, so identical route trees yield byte-identical
// exports. Lazy route providers are resolved during the walk; a provider
// failure is recorded as "provider_error" metadata on the mount node rather
// than failing the build.
//
// Delegated sub-applications built with this package's router are descended
// into. A sub-application mounted more than once gets a single node, with
// each mount linking to it. Opaque delegates (any other http.Handler) appear
// as a mount node with no children.
func Build(app *router.Router) (*Graph, error) {
	if app == nil {
		return nil, ErrNilApplication
	}
	b := &builder{
		g:       &Graph{index: make(map[string]int)},
		visited: make(map[*router.Router]string),
	}
	b.application("app", app)
	return b.g, nil
}

type builder struct {
	g       *Graph
	visited map[*router.Router]string
}

// application records an application node, its router node, the router-level
// wrap chain, and every entry beneath it.
func (b *builder) application(id string, app *router.Router) {
	b.visited[app] = id

	meta := metadata()
	if app.Name() != "" {
		meta["name"] = app.Name()
	}
	b.node(id, KindApplication, meta)

	routerID := id + "/router"
	b.node(routerID, KindRouter, nil)
	b.edge(id, routerID, KindDispatchesTo)
	b.wrap(routerID, app.MiddlewareNames(), app.PermissionNames())

	for i, entry := range app.Entries() {
		b.entry(routerID, i, entry)
	}
}

// entry records one route tree entry under parentID at position i.
func (b *builder) entry(parentID string, i int, entry router.Route) {
	switch rt := entry.(type) {
	case *router.Path:
		id := fmt.Sprintf("%s/route:%d", parentID, i)
		meta := metadata()
		meta["path"] = rt.Pattern()
		meta["methods"] = rt.Methods()
		if rt.Name() != "" {
			meta["name"] = rt.Name()
		}
		if rt.IsDeprecated() {
			meta["deprecated"] = true
		}
		b.node(id, KindRoute, meta)
		b.edge(parentID, id, KindDispatchesTo)
		b.wrap(id, rt.MiddlewareNames(), rt.PermissionNames())

	case *router.WebSocketPath:
		id := fmt.Sprintf("%s/route:%d", parentID, i)
		meta := metadata()
		meta["path"] = rt.Pattern()
		meta["websocket"] = true
		if rt.Name() != "" {
			meta["name"] = rt.Name()
		}
		if rt.IsDeprecated() {
			meta["deprecated"] = true
		}
		b.node(id, KindRoute, meta)
		b.edge(parentID, id, KindDispatchesTo)
		b.wrap(id, rt.MiddlewareNames(), rt.PermissionNames())

	case *router.Include:
		id := fmt.Sprintf("%s/include:%d", parentID, i)
		meta := metadata()
		meta["path"] = rt.Pattern()
		if rt.Name() != "" {
			meta["name"] = rt.Name()
		}
		b.container(parentID, id, meta, containerInfo{
			delegate: rt.Delegate(),
			lazy:     rt.IsLazy(),
			children: rt.ChildRoutes,
			mws:      rt.MiddlewareNames(),
			perms:    rt.PermissionNames(),
		})

	case *router.Host:
		id := fmt.Sprintf("%s/include:%d", parentID, i)
		meta := metadata()
		meta["host"] = rt.Pattern()
		if rt.Name() != "" {
			meta["name"] = rt.Name()
		}
		b.container(parentID, id, meta, containerInfo{
			delegate: rt.Delegate(),
			lazy:     rt.IsLazy(),
			children: rt.ChildRoutes,
			mws:      rt.MiddlewareNames(),
			perms:    rt.PermissionNames(),
		})
	}
}

type containerInfo struct {
	delegate http.Handler
	lazy     bool
	children func() ([]router.Route, error)
	mws      []string
	perms    []string
}

// container records a mount node and either links its delegate or descends
// into its children. parentID is the dispatching node, id the mount node.
func (b *builder) container(parentID, id string, meta map[string]any, info containerInfo) {
	if info.lazy {
		meta["lazy"] = true
	}
	if info.delegate != nil {
		meta["delegate"] = true
	}

	var children []router.Route
	if info.delegate == nil {
		var err error
		children, err = info.children()
		if err != nil {
			meta["provider_error"] = err.Error()
			children = nil
		}
	}

	b.node(id, KindInclude, meta)
	b.edge(parentID, id, KindDispatchesTo)
	b.wrap(id, info.mws, info.perms)

	if sub, ok := info.delegate.(*router.Router); ok {
		subID, seen := b.visited[sub]
		if !seen {
			subID = id + "/app"
			b.application(subID, sub)
		}
		b.edge(id, subID, KindDispatchesTo)
		return
	}

	for i, child := range children {
		b.entry(id, i, child)
	}
}

// wrap records the owner's wrap chain as MIDDLEWARE and PERMISSION nodes
// with WRAPS edges from the outermost wrapper inward, ending at the owner.
func (b *builder) wrap(ownerID string, mws, perms []string) {
	ids := make([]string, 0, len(mws)+len(perms))
	for i, name := range mws {
		id := fmt.Sprintf("%s/mw:%d", ownerID, i)
		b.node(id, KindMiddleware, map[string]any{"name": name})
		ids = append(ids, id)
	}
	for i, name := range perms {
		id := fmt.Sprintf("%s/perm:%d", ownerID, i)
		b.node(id, KindPermission, map[string]any{"name": name})
		ids = append(ids, id)
	}
	for i, id := range ids {
		if i+1 < len(ids) {
			b.edge(id, ids[i+1], KindWraps)
		} else {
			b.edge(id, ownerID, KindWraps)
		}
	}
}

// node appends a node unless the ID is already present.
func (b *builder) node(id string, kind NodeKind, meta map[string]any) {
	if _, ok := b.g.index[id]; ok {
		return
	}
	if len(meta) == 0 {
		meta = nil
	}
	b.g.nodes = append(b.g.nodes, Node{ID: id, Kind: kind, Metadata: meta})
	b.g.index[id] = len(b.g.nodes) - 1
}

// edge appends an edge, silently dropping it when either endpoint is not a
// recorded node.
func (b *builder) edge(source, target string, kind EdgeKind) {
	if _, ok := b.g.index[source]; !ok {
		return
	}
	if _, ok := b.g.index[target]; !ok {
		return
	}
	b.g.edges = append(b.g.edges, Edge{Source: source, Target: target, Kind: kind})
}

func metadata() map[string]any { return make(map[string]any) }
