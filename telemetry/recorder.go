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

package telemetry

import (
	"bufio"
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"

	"alder.dev/router"
)

var (
	_ router.ObservabilityRecorder = (*Recorder)(nil)
	_ router.ResponseInfo          = (*responseWriter)(nil)
)

// requestState carries one request's measurements between OnRequestStart
// and OnRequestEnd.
type requestState struct {
	start  time.Time
	method string
	attrs  []attribute.KeyValue
	span   trace.Span
}

// OnRequestStart extracts any propagated trace context, then begins timing
// and, when tracing is enabled, opens a server span. The span starts out
// named after the method alone; OnRequestEnd renames it once the route
// pattern is known. Excluded paths return a nil state.
func (r *Recorder) OnRequestStart(ctx context.Context, req *http.Request) (context.Context, any) {
	ctx = r.propagator.Extract(ctx, propagation.HeaderCarrier(req.Header))

	if r.excluded(req.URL.Path) {
		return ctx, nil
	}

	state := &requestState{start: time.Now(), method: req.Method}
	state.attrs = make([]attribute.KeyValue, 2, 8)
	state.attrs[0] = r.serviceAttrs[0]
	state.attrs[1] = r.serviceAttrs[1]

	if r.tracer != nil {
		ctx, state.span = r.tracer.Start(ctx, req.Method, trace.WithSpanKind(trace.SpanKindServer))
		state.span.SetAttributes(
			attribute.String("http.method", req.Method),
			attribute.String("http.url", req.URL.String()),
			attribute.String("http.host", req.Host),
			attribute.String("http.user_agent", req.UserAgent()),
		)
	}

	r.activeRequests.Add(ctx, 1, metric.WithAttributes(state.attrs...))

	return ctx, state
}

// WrapResponseWriter wraps w so the final status code and body size can be
// recovered in OnRequestEnd.
func (r *Recorder) WrapResponseWriter(w http.ResponseWriter, state any) http.ResponseWriter {
	return &responseWriter{ResponseWriter: w}
}

// BuildRequestLogger returns the configured logger bound to the request's
// method and route pattern, plus trace and span IDs when a span is active.
func (r *Recorder) BuildRequestLogger(ctx context.Context, req *http.Request, routePattern string) *slog.Logger {
	lg := r.logger.With(
		slog.String("http.method", req.Method),
		slog.String("http.route", routePattern),
	)
	if sc := trace.SpanFromContext(ctx).SpanContext(); sc.IsValid() {
		lg = lg.With(
			slog.String("trace_id", sc.TraceID().String()),
			slog.String("span_id", sc.SpanID().String()),
		)
	}

	return lg
}

// OnRequestEnd records duration, count, size, and error metrics keyed on the
// route pattern, then finishes the span if one was opened.
func (r *Recorder) OnRequestEnd(ctx context.Context, state any, writer http.ResponseWriter, routePattern string) {
	st, ok := state.(*requestState)
	if !ok {
		return
	}

	status := http.StatusOK
	var size int64
	if info, ok := writer.(router.ResponseInfo); ok {
		status = info.StatusCode()
		size = info.Size()
	}

	duration := time.Since(st.start).Seconds()

	attrs := append(st.attrs,
		attribute.String("http.method", st.method),
		attribute.String("http.route", routePattern),
		attribute.Int("http.status_code", status),
		attribute.String("http.status_class", statusClass(status)),
	)
	set := metric.WithAttributes(attrs...)

	r.requestDuration.Record(ctx, duration, set)
	r.requestCount.Add(ctx, 1, set)
	if status >= 400 {
		r.errorCount.Add(ctx, 1, set)
	}
	if size > 0 {
		r.responseSize.Record(ctx, size, set)
	}

	// Decrement with the same attributes the increment used so the
	// gauge nets to zero per attribute set.
	r.activeRequests.Add(ctx, -1, metric.WithAttributes(attrs[:2]...))

	if st.span != nil {
		finishSpan(st.span, st.method, routePattern, status)
	}
}

// finishSpan names the span "METHOD pattern" for matched routes. Sentinel
// patterns such as "_not_found" keep the method-only name so unmatched
// paths cannot explode span-name cardinality.
func finishSpan(span trace.Span, method, routePattern string, status int) {
	if span.IsRecording() {
		if !strings.HasPrefix(routePattern, "_") {
			span.SetName(method + " " + routePattern)
		}
		span.SetAttributes(
			attribute.String("http.route", routePattern),
			attribute.Int("http.status_code", status),
		)
		if status >= 400 {
			span.SetStatus(codes.Error, fmt.Sprintf("HTTP %d", status))
		} else {
			span.SetStatus(codes.Ok, "")
		}
	}
	span.End()
}

func (r *Recorder) excluded(path string) bool {
	if r.excludePaths[path] {
		return true
	}
	for _, prefix := range r.excludePrefixes {
		if strings.HasPrefix(path, prefix) {
			return true
		}
	}

	return false
}

// responseWriter captures the status code and body size on their way to the
// underlying writer.
type responseWriter struct {
	http.ResponseWriter
	status  int
	size    int64
	written bool
}

func (w *responseWriter) WriteHeader(code int) {
	if w.written {
		return
	}
	w.written = true
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

func (w *responseWriter) Write(b []byte) (int, error) {
	if !w.written {
		w.WriteHeader(http.StatusOK)
	}
	n, err := w.ResponseWriter.Write(b)
	w.size += int64(n)

	return n, err
}

// StatusCode reports the status sent to the client, defaulting to 200 when
// the handler never called WriteHeader.
func (w *responseWriter) StatusCode() int {
	if w.status == 0 {
		return http.StatusOK
	}

	return w.status
}

// Size reports the number of body bytes written.
func (w *responseWriter) Size() int64 { return w.size }

func (w *responseWriter) Flush() {
	if f, ok := w.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func (w *responseWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	if h, ok := w.ResponseWriter.(http.Hijacker); ok {
		return h.Hijack()
	}
	return nil, nil, http.ErrNotSupported
}

func (w *responseWriter) Unwrap() http.ResponseWriter { return w.ResponseWriter }
