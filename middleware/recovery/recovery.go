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

// Package recovery converts handler panics into 500 responses instead of
// letting them tear down the connection.
package recovery

import (
	"fmt"
	"log/slog"
	"net/http"
	"runtime"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"alder.dev/router"
)

// Option defines functional options for recovery middleware configuration.
type Option func(*config)

// config holds the configuration for the recovery middleware.
type config struct {
	// stackTrace enables capturing a stack trace on panic
	stackTrace bool

	// stackSize caps the captured stack trace in bytes
	stackSize int

	// stackAll captures stacks of all goroutines, not just the panicking one
	stackAll bool

	// logger receives panic records
	logger *slog.Logger

	// handler writes the error response after a panic
	handler func(w http.ResponseWriter, req *http.Request, err any)
}

// defaultConfig returns the default configuration for recovery middleware.
func defaultConfig() *config {
	return &config{
		stackTrace: true,
		stackSize:  4 << 10,
		stackAll:   false,
		logger:     slog.Default(),
		handler:    defaultHandler,
	}
}

func defaultHandler(w http.ResponseWriter, _ *http.Request, _ any) {
	http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
}

// WithLogger sets the logger that receives panic records.
func WithLogger(logger *slog.Logger) Option {
	return func(cfg *config) {
		if logger != nil {
			cfg.logger = logger
		}
	}
}

// WithHandler sets a custom error response writer invoked after a panic is
// recovered.
//
// Example:
//
//	recovery.New(recovery.WithHandler(func(w http.ResponseWriter, req *http.Request, err any) {
//	    http.Error(w, "something went wrong", http.StatusInternalServerError)
//	}))
func WithHandler(handler func(w http.ResponseWriter, req *http.Request, err any)) Option {
	return func(cfg *config) {
		if handler != nil {
			cfg.handler = handler
		}
	}
}

// WithStackSize caps the captured stack trace at size bytes.
func WithStackSize(size int) Option {
	return func(cfg *config) {
		if size > 0 {
			cfg.stackSize = size
		}
	}
}

// WithStackAll captures the stacks of all goroutines on panic, which helps
// when the panic is a symptom of a deadlock elsewhere.
func WithStackAll() Option {
	return func(cfg *config) {
		cfg.stackAll = true
	}
}

// WithoutStackTrace disables stack capture. Panic values are still logged.
func WithoutStackTrace() Option {
	return func(cfg *config) {
		cfg.stackTrace = false
	}
}

// New returns a middleware that recovers from panics in downstream
// handlers. The panic value and a stack trace are logged, the active trace
// span (if any) is marked as errored, and a 500 response is written.
//
// http.ErrAbortHandler is re-raised untouched so handlers can still abort
// the connection the standard way.
//
// Register recovery before other middleware so it also covers panics they
// raise:
//
//	r := router.MustNew(
//	    router.WithMiddleware(recovery.New(), accesslog.New(...)),
//	    router.WithRoutes(...),
//	)
func New(opts ...Option) router.Middleware {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			defer func() {
				err := recover()
				if err == nil {
					return
				}
				if err == http.ErrAbortHandler {
					panic(err)
				}

				attrs := []slog.Attr{
					slog.Any("panic", err),
					slog.String("method", req.Method),
					slog.String("path", req.URL.Path),
				}
				if cfg.stackTrace {
					buf := make([]byte, cfg.stackSize)
					n := runtime.Stack(buf, cfg.stackAll)
					attrs = append(attrs, slog.String("stack", string(buf[:n])))
				}
				cfg.logger.LogAttrs(req.Context(), slog.LevelError, "panic recovered", attrs...)

				span := trace.SpanFromContext(req.Context())
				if span.IsRecording() {
					span.SetStatus(codes.Error, "panic recovered")
					span.SetAttributes(attribute.String("panic.value", fmt.Sprint(err)))
				}

				cfg.handler(w, req, err)
			}()

			next.ServeHTTP(w, req)
		})
	}
}
