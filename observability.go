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

import (
	"context"
	"log/slog"
	"net/http"
)

// ObservabilityRecorder brackets every request the router serves, regardless
// of outcome. Implementations typically combine metrics collection,
// distributed tracing, and access logging; the telemetry package provides
// one built on OpenTelemetry.
//
// Lifecycle:
//  1. The router calls OnRequestStart(ctx, req) before matching begins and
//     adopts the returned context for the whole request, so enrichment such
//     as trace propagation applies even when the request is excluded.
//  2. If the returned state is non-nil, the router wraps the ResponseWriter
//     via WrapResponseWriter so the implementation can capture status and
//     size.
//  3. For matched requests the router calls BuildRequestLogger and stores a
//     non-nil result in the request context, retrievable with Logger.
//  4. After the response is written the router calls OnRequestEnd with the
//     final writer and the matched route pattern, or one of the sentinel
//     labels "_not_found", "_method_not_allowed", "_redirect", "_error".
//     Implementations should key metrics and traces on that pattern rather
//     than the raw path to keep cardinality bounded.
//
// Returning state == nil from OnRequestStart excludes the request: the
// writer is not wrapped and OnRequestEnd is not called. Exclusion does not
// affect context enrichment.
//
// All methods must be safe for concurrent use.
type ObservabilityRecorder interface {
	// OnRequestStart is called before matching. It returns the context the
	// request proceeds with and an opaque state token, or nil to exclude the
	// request from recording.
	OnRequestStart(ctx context.Context, req *http.Request) (context.Context, any)

	// WrapResponseWriter wraps the writer so the response status and size
	// can be recovered in OnRequestEnd. The wrapped writer should implement
	// ResponseInfo. Returning nil keeps the original writer.
	WrapResponseWriter(w http.ResponseWriter, state any) http.ResponseWriter

	// BuildRequestLogger returns the logger handlers for this request should
	// use, already carrying request-scoped attributes such as the trace or
	// request ID. Returning nil leaves the request without a logger.
	BuildRequestLogger(ctx context.Context, req *http.Request, routePattern string) *slog.Logger

	// OnRequestEnd is called once the response is written, only for requests
	// with a non-nil state. writer is the final ResponseWriter, possibly the
	// one WrapResponseWriter returned.
	OnRequestEnd(ctx context.Context, state any, writer http.ResponseWriter, routePattern string)
}

// ResponseInfo is implemented by wrapped response writers that track
// response metadata, so OnRequestEnd can extract what was sent.
type ResponseInfo interface {
	StatusCode() int
	Size() int64
}

type loggerKey struct{}

func withLogger(ctx context.Context, logger *slog.Logger) context.Context {
	return context.WithValue(ctx, loggerKey{}, logger)
}

// Logger returns the request-scoped logger placed in ctx by the router's
// observability recorder. Outside a request, or without a recorder, it
// returns a logger that discards everything, so call sites never need a nil
// check.
//
// Example:
//
//	func handler(w http.ResponseWriter, r *http.Request) {
//		router.Logger(r.Context()).Info("processing order")
//	}
func Logger(ctx context.Context) *slog.Logger {
	if lg, ok := ctx.Value(loggerKey{}).(*slog.Logger); ok && lg != nil {
		return lg
	}
	return noopLogger()
}
