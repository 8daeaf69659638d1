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

import "errors"

// Assembly errors. Everything in this group is reported by New (or by a node
// constructor) and wraps ErrConfiguration, so errors.Is(err, ErrConfiguration)
// catches the whole family while the specific sentinels stay checkable.
var (
	// ErrConfiguration is the family sentinel for all assembly-time errors.
	ErrConfiguration = errors.New("invalid router configuration")

	// ErrNilHandler indicates that a route was declared without a handler.
	ErrNilHandler = errors.New("nil handler")

	// ErrNilRoute indicates a nil entry in a route list.
	ErrNilRoute = errors.New("nil route")

	// ErrTemplateSlash indicates a path template that does not begin with "/".
	ErrTemplateSlash = errors.New("route template must begin with a slash")

	// ErrIncludeParameter indicates parameter syntax inside an Include prefix.
	ErrIncludeParameter = errors.New("include prefix cannot declare parameters")

	// ErrHostPattern indicates an invalid Host pattern (empty, contains a
	// slash, or carries a port).
	ErrHostPattern = errors.New("invalid host pattern")

	// ErrRouteSource indicates an Include or Host with zero or several child
	// sources; exactly one of children, app, or provider is required.
	ErrRouteSource = errors.New("exactly one of children, app, or provider is required")

	// ErrAlreadyAttached indicates a route value reused across routers.
	// A node compiles against one router's transformer snapshot and wrap
	// chain; sharing it would silently rebind both.
	ErrAlreadyAttached = errors.New("route already attached to a router")

	// ErrDuplicateName indicates two routes resolving to the same reverse
	// lookup key.
	ErrDuplicateName = errors.New("duplicate route name")

	// ErrOptionConflict indicates a node option applied to a node kind that
	// cannot carry it.
	ErrOptionConflict = errors.New("option does not apply to this route kind")

	// ErrServerTimeoutInvalid indicates a non-positive server timeout.
	ErrServerTimeoutInvalid = errors.New("server timeout must be positive")
)

// Reverse lookup errors.
var (
	// ErrRouteNotFound indicates that the specified route could not be found.
	ErrRouteNotFound = errors.New("route not found")

	// ErrMissingRouteParameter indicates that a required parameter for the
	// route is missing.
	ErrMissingRouteParameter = errors.New("missing required parameter")

	// ErrUnexpectedRouteParameter indicates a parameter the route's template
	// does not declare.
	ErrUnexpectedRouteParameter = errors.New("unexpected parameter")

	// ErrParameterFormat indicates a parameter value the transformer could
	// not format.
	ErrParameterFormat = errors.New("parameter cannot be formatted")
)

// Request-time parameter access errors.
var (
	// ErrParamMissing indicates that the requested parameter is not present.
	ErrParamMissing = errors.New("parameter missing")

	// ErrParamInvalid indicates that the parameter holds a different type
	// than the accessor expects.
	ErrParamInvalid = errors.New("parameter has unexpected type")
)

// ErrProvider wraps failures from RouteProvider.Provide. Under eager
// resolution it surfaces from New wrapped in ErrConfiguration; under Lazy it
// surfaces from Match and is served as a 500.
var ErrProvider = errors.New("route provider failed")
