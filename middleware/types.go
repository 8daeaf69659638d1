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

package middleware

// ContextKey is the type used for context values stored by the middleware
// subpackages. Using a named type prevents collisions with keys from other
// packages.
type ContextKey string

// Context keys used by the middleware subpackages.
const (
	// RequestIDKey is the context key under which the requestid middleware
	// stores the request ID.
	RequestIDKey ContextKey = "middleware.request_id"

	// ClientIPKey is the context key under which the ratelimit middleware
	// stores the resolved client IP.
	ClientIPKey ContextKey = "middleware.client_ip"
)
