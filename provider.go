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

// RouteProvider supplies the child routes of an Include or Host at
// resolution time instead of declaration time, so route lists can come from
// configuration files, databases, or plugin registries.
//
// Provide is called exactly once per container: during New by default, or at
// the first matching request when the container was declared Lazy. The
// returned routes are compiled and validated exactly like literal children.
//
// Example:
//
//	router.NewInclude("/plugins",
//		router.Provide(router.ProviderFunc(func() ([]router.Route, error) {
//			return loadPluginRoutes()
//		})),
//		router.Lazy(),
//	)
type RouteProvider interface {
	Provide() ([]Route, error)
}

// ProviderFunc adapts a plain function to the RouteProvider interface.
type ProviderFunc func() ([]Route, error)

// Provide calls f.
func (f ProviderFunc) Provide() ([]Route, error) { return f() }
