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

// Package router provides a declarative HTTP and WebSocket router for Go.
//
// Routes are declared as values, composed into trees, and compiled once by
// New. After assembly the router is immutable: templates are parsed,
// transformers resolved, middleware chains built, and names indexed before
// the first request, so configuration mistakes surface as constructor errors
// instead of request-time surprises.
//
// # Key Features
//
//   - Typed path templates ("/users/{id:int}") with pluggable transformers
//   - Declaration-order dispatch with first-match-wins semantics
//   - Prefix mounts (Include), host gating (Host), and delegation to nested
//     handlers or routers
//   - Middleware and permission layers at router, include, and route level
//   - Reverse lookup from route names back to concrete paths
//   - Route providers for children loaded from configuration or storage
//   - WebSocket routes dispatched alongside HTTP on the same tree
//   - Observability hooks, structured diagnostics, and an introspectable
//     route graph
//
// # Quick Start
//
//	package main
//
//	import (
//	    "fmt"
//	    "log"
//	    "net/http"
//
//	    "alder.dev/router"
//	)
//
//	func main() {
//	    r, err := router.New(
//	        router.WithRoutes(
//	            router.Get("/", func(w http.ResponseWriter, req *http.Request) {
//	                fmt.Fprintln(w, "hello")
//	            }),
//	            router.Get("/users/{id:int}", func(w http.ResponseWriter, req *http.Request) {
//	                id, _ := router.RequestParams(req).Int("id")
//	                fmt.Fprintf(w, "user %d", id)
//	            }, router.Named("user")),
//	        ),
//	    )
//	    if err != nil {
//	        log.Fatal(err)
//	    }
//	    log.Fatal(r.Serve(":8080"))
//	}
//
// # Templates and Transformers
//
// Path templates mix literal text with typed parameters. A parameter is
// "{name}" or "{name:key}", where key selects a transformer; "{name}" means
// "{name:str}". The angle form "<name:key>" is equivalent. Transformers both
// recognize raw segments during matching and format values during reverse
// lookup; six are built in (str, int, float, uuid, datetime, path) and
// custom ones register through the transform package:
//
//	reg := transform.NewRegistry()
//	reg.Register("slug", slugTransformer{})
//	r, err := router.New(router.WithTransformers(reg), ...)
//
// The "path" transformer consumes the remainder of the path including
// slashes and must terminate its template.
//
// # Matching Semantics
//
// Dispatch scans top-level routes in declaration order. Containers commit:
// once an Include's prefix or a Host's hostname matches, the request belongs
// to that branch even if nothing inside it matches. Leaves are softer: a
// Path whose template matches but whose method set does not lets scanning
// continue, and its methods accumulate into the 405 Allow header together
// with every other route that matched the path. Declaring GET implies HEAD.
//
// When nothing matches at all and the slash-toggled path would match, the
// router answers 307 to that path (disable with
// WithRedirectTrailingSlash(false)).
//
// # Middleware and Permissions
//
// Both are plain func(http.Handler) http.Handler values. At each level
// middleware runs outside permissions, and outer levels wrap inner ones:
// router middleware, router permissions, include middleware, include
// permissions, route middleware, route permissions, handler. Captured
// parameters are already in the request context when the outermost
// route-bound middleware runs.
//
// # Reverse Lookup
//
// Named routes are addressable through Reverse, with names composed through
// named includes by ":":
//
//	path, err := r.Reverse("api:user", router.Params{"id": int64(42)})
//	// "/api/users/42"
//
// # Subpackages
//
// The compiler and transform packages implement template parsing and
// parameter codecs. The middleware, permission, ws, telemetry, and graph
// packages provide the batteries: common middleware, permission guards, a
// WebSocket adapter, an OpenTelemetry-based observability recorder, and
// route-graph introspection.
package router
