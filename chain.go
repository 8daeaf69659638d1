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

import "net/http"

// Middleware wraps an http.Handler with cross-cutting behavior such as
// logging, recovery, or header manipulation. Middleware declared on a router
// or on an Include applies to every route beneath it; middleware declared on
// a single route applies to that route only.
//
// Example:
//
//	func noCache(next http.Handler) http.Handler {
//		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
//			w.Header().Set("Cache-Control", "no-store")
//			next.ServeHTTP(w, r)
//		})
//	}
type Middleware func(next http.Handler) http.Handler

// Permission is a wrapper that decides whether a request may proceed. It has
// the same shape as Middleware but runs after every middleware declared at
// the same level, so denials observe request IDs, logging, and recovery.
type Permission func(next http.Handler) http.Handler

// chain wraps h with wrappers, outermost first: chain(h, a, b) produces
// a(b(h)), so a sees the request before b and b before h.
func chain(h http.Handler, wrappers []func(http.Handler) http.Handler) http.Handler {
	for i := len(wrappers) - 1; i >= 0; i-- {
		h = wrappers[i](h)
	}
	return h
}

// layerStack accumulates wrappers outermost-first while the route tree is
// walked at assembly. Each nesting level contributes its middleware first and
// its permissions after, so within a level middleware stays outside
// permissions while deeper levels stay inside shallower ones.
type layerStack []func(http.Handler) http.Handler

// push returns a new stack with one level's middleware and permissions
// appended. The receiver is never mutated; sibling branches extend the same
// parent stack independently.
func (s layerStack) push(mw []Middleware, perms []Permission) layerStack {
	next := make(layerStack, len(s), len(s)+len(mw)+len(perms))
	copy(next, s)
	for _, m := range mw {
		next = append(next, m)
	}
	for _, p := range perms {
		next = append(next, p)
	}
	return next
}
