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

// Package middleware provides shared types and helpers for the middleware
// subpackages. Each middleware lives in its own subpackage and is
// constructed with functional options:
//
//	import (
//	    "alder.dev/router"
//	    "alder.dev/router/middleware/recovery"
//	    "alder.dev/router/middleware/requestid"
//	)
//
//	r := router.MustNew(
//	    router.WithMiddleware(
//	        recovery.New(),
//	        requestid.New(),
//	    ),
//	    router.WithRoutes(...),
//	)
//
// Available middleware:
//
//   - accesslog: structured request logging with slog
//   - cors: Cross-Origin Resource Sharing headers and preflight handling
//   - ratelimit: token bucket rate limiting keyed by client
//   - recovery: panic recovery with stack traces
//   - requestid: request ID generation and propagation
//   - timeout: per-request deadlines via context cancellation
//   - trustedhost: Host header validation
//
// Middleware run in registration order on the way in and reverse order on
// the way out. Register recovery first so it catches panics from everything
// after it.
package middleware
