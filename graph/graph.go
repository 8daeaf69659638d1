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

// Package graph exports an assembled router as an immutable node and edge
// graph for tooling and auditing.
//
// The graph is a read-only snapshot: nodes for the application, its router,
// every route, middleware, permission, and mount point, with DISPATCHES_TO
// edges tracing the dispatch structure and WRAPS edges tracing each wrap
// chain in order. It is documentation, not a second matching engine; nothing
// here validates templates or makes dispatch decisions.
//
// Example:
//
//	api := router.MustNew(
//		router.WithRoutes(
//			router.Get("/users/{id:int}", showUser, router.Named("user")),
//		),
//	)
//
//	g, err := graph.Build(api)
//	if err != nil {
//		log.Fatal(err)
//	}
//	out, _ := json.Marshal(g)
//	fmt.Println(string(out))
package graph

import (
	"encoding/json"
	"errors"
	"fmt"
	"slices"
)

// NodeKind tags a graph node. The set is closed: Host mounts export as
// INCLUDE nodes carrying a "host" metadata key.
type NodeKind string

const (
	KindApplication NodeKind = "APPLICATION"
	KindRouter      NodeKind = "ROUTER"
	KindRoute       NodeKind = "ROUTE"
	KindMiddleware  NodeKind = "MIDDLEWARE"
	KindPermission  NodeKind = "PERMISSION"
	KindInclude     NodeKind = "INCLUDE"
)

// EdgeKind tags a graph edge. DISPATCHES_TO traces the dispatch structure
// from containers to their entries; WRAPS traces a wrap chain from the
// outermost wrapper inward, ending at the node it decorates.
type EdgeKind string

const (
	KindWraps        EdgeKind = "WRAPS"
	KindDispatchesTo EdgeKind = "DISPATCHES_TO"
)

var (
	// ErrNilApplication is returned by Build for a nil router.
	ErrNilApplication = errors.New("nil application")

	// ErrPathNotRecorded is returned by Explain when no node carries the
	// queried path string.
	ErrPathNotRecorded = errors.New("path not recorded in graph")
)

// Node is one vertex of the export. IDs are derived from tree position, so
// the same route tree always produces the same IDs.
type Node struct {
	ID       string         `json:"id"`
	Kind     NodeKind       `json:"kind"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// Edge connects two nodes by ID.
type Edge struct {
	Source string   `json:"source"`
	Target string   `json:"target"`
	Kind   EdgeKind `json:"kind"`
}

// Graph is the immutable export produced by Build. It is safe for
// concurrent reads.
type Graph struct {
	nodes []Node
	edges []Edge
	index map[string]int
}

// Nodes returns the nodes in insertion order.
func (g *Graph) Nodes() []Node { return slices.Clone(g.nodes) }

// Edges returns the edges in insertion order.
func (g *Graph) Edges() []Edge { return slices.Clone(g.edges) }

// MarshalJSON emits the export format: a top-level object with "nodes" and
// "edges" arrays in insertion order. Metadata maps serialize with sorted
// keys and method sets are sorted at build time, so the same tree always
// marshals to identical bytes.
func (g *Graph) MarshalJSON() ([]byte, error) {
	return json.Marshal(export{Nodes: g.nodes, Edges: g.edges})
}

type export struct {
	Nodes []Node `json:"nodes"`
	Edges []Edge `json:"edges"`
}

// Explain returns the nodes recorded under the given path string: for each
// node whose metadata "path" equals path literally, its wrap chain from
// outermost to innermost followed by the node itself. The comparison is
// against the literal string recorded at build time; no matching or
// transformer logic runs. Use the full pattern including enclosing
// prefixes, e.g. "/api/users/{id:int}".
func (g *Graph) Explain(path string) ([]Node, error) {
	wrappedBy := make(map[string]string)
	for _, e := range g.edges {
		if e.Kind == KindWraps {
			wrappedBy[e.Target] = e.Source
		}
	}

	var out []Node
	for _, n := range g.nodes {
		p, ok := n.Metadata["path"].(string)
		if !ok || p != path {
			continue
		}
		out = append(out, g.wrapChain(n.ID, wrappedBy)...)
		out = append(out, n)
	}
	if out == nil {
		return nil, fmt.Errorf("%w: %q", ErrPathNotRecorded, path)
	}
	return out, nil
}

// wrapChain collects the wrappers around id, outermost first.
func (g *Graph) wrapChain(id string, wrappedBy map[string]string) []Node {
	var chain []Node
	for {
		src, ok := wrappedBy[id]
		if !ok {
			break
		}
		chain = append(chain, g.nodes[g.index[src]])
		id = src
	}
	slices.Reverse(chain)
	return chain
}
