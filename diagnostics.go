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

import "log/slog"

// DiagnosticKind identifies the category of a diagnostic event.
type DiagnosticKind string

const (
	// DiagRouteShadowed reports a route whose template and method set were
	// already claimed by an earlier declaration, so it can never match.
	DiagRouteShadowed DiagnosticKind = "route_shadowed"

	// DiagProviderResolved reports that a route provider produced its
	// children, with the container and route count in the fields.
	DiagProviderResolved DiagnosticKind = "provider_resolved"

	// DiagH2CEnabled reports that Serve started with cleartext HTTP/2.
	DiagH2CEnabled DiagnosticKind = "h2c_enabled"
)

// DiagnosticEvent is one finding the router wants to surface: not an error,
// but something an operator likely wants to know about.
type DiagnosticEvent struct {
	Kind    DiagnosticKind
	Message string
	Fields  map[string]any
}

// DiagnosticHandler receives diagnostic events. Handlers run synchronously
// on the emitting goroutine and must not block.
type DiagnosticHandler interface {
	OnDiagnostic(event DiagnosticEvent)
}

// DiagnosticHandlerFunc adapts a function to the DiagnosticHandler
// interface.
type DiagnosticHandlerFunc func(event DiagnosticEvent)

// OnDiagnostic calls f.
func (f DiagnosticHandlerFunc) OnDiagnostic(event DiagnosticEvent) { f(event) }

// LogDiagnostics returns a handler that writes every event to logger at
// warning level, with the event fields as attributes.
func LogDiagnostics(logger *slog.Logger) DiagnosticHandler {
	return DiagnosticHandlerFunc(func(event DiagnosticEvent) {
		attrs := make([]any, 0, 2+2*len(event.Fields))
		attrs = append(attrs, "kind", string(event.Kind))
		for k, v := range event.Fields {
			attrs = append(attrs, k, v)
		}
		logger.Warn(event.Message, attrs...)
	})
}
