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
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"

	"alder.dev/router"
)

// Handler returns an http.Handler serving the application's graph as JSON.
// The graph is built and marshaled on the first request and cached, so every
// response carries the same bytes.
//
// Example:
//
//	api := router.MustNew(
//		router.WithRoutes(
//			router.Get("/users/{id:int}", showUser),
//		),
//	)
//	http.Handle("/debug/routes", graph.Handler(api))
func Handler(app *router.Router) http.Handler {
	var (
		once sync.Once
		body []byte
		err  error
	)
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		once.Do(func() {
			var g *Graph
			if g, err = Build(app); err != nil {
				return
			}
			body, err = json.Marshal(g)
		})
		if err != nil {
			ctx := req.Context()
			router.Logger(ctx).LogAttrs(ctx, slog.LevelError, "graph export failed",
				slog.Any("error", err))
			http.Error(w, "graph export failed", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write(body)
	})
}
