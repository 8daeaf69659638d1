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

// Package accesslog logs one structured record per request with method,
// path, status, response size, and duration.
package accesslog

import (
	"bufio"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"alder.dev/router"
	"alder.dev/router/middleware"
)

// Option defines functional options for accesslog middleware configuration.
type Option func(*config)

// config holds the configuration for the accesslog middleware.
type config struct {
	// logger receives the access records
	logger *slog.Logger

	// excludePaths are exact paths that are never logged
	excludePaths map[string]bool

	// excludePrefixes are path prefixes that are never logged
	excludePrefixes []string

	// slowThreshold promotes requests slower than this to warn level;
	// zero disables the check
	slowThreshold time.Duration
}

// defaultConfig returns the default configuration for accesslog middleware.
func defaultConfig() *config {
	return &config{
		logger:       slog.Default(),
		excludePaths: make(map[string]bool),
	}
}

// WithLogger sets the logger that receives access records.
func WithLogger(logger *slog.Logger) Option {
	return func(cfg *config) {
		if logger != nil {
			cfg.logger = logger
		}
	}
}

// WithExcludePaths skips logging for the given exact paths. Useful for
// health checks and metrics endpoints that would otherwise dominate logs.
func WithExcludePaths(paths ...string) Option {
	return func(cfg *config) {
		for _, p := range paths {
			cfg.excludePaths[p] = true
		}
	}
}

// WithExcludePrefixes skips logging for paths under the given prefixes.
func WithExcludePrefixes(prefixes ...string) Option {
	return func(cfg *config) {
		cfg.excludePrefixes = append(cfg.excludePrefixes, prefixes...)
	}
}

// WithSlowThreshold logs requests slower than d at warn level with a
// slow=true attribute.
func WithSlowThreshold(d time.Duration) Option {
	return func(cfg *config) {
		cfg.slowThreshold = d
	}
}

// statusSizer is the capability needed to report status and size. The
// telemetry recorder already wraps the response writer with it; the
// middleware only adds its own wrapper when nothing upstream did.
type statusSizer interface {
	StatusCode() int
	Size() int64
}

// New returns a middleware that writes one log record per request after
// the handler finishes.
//
// Records carry method, path, status, size, duration, the client address,
// and the request ID when the requestid middleware ran earlier in the
// chain. Status 5xx logs at error level, 4xx at warn, everything else at
// info.
//
// Example:
//
//	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
//	r := router.MustNew(
//	    router.WithMiddleware(accesslog.New(
//	        accesslog.WithLogger(logger),
//	        accesslog.WithExcludePaths("/healthz"),
//	        accesslog.WithSlowThreshold(500*time.Millisecond),
//	    )),
//	    router.WithRoutes(...),
//	)
func New(opts ...Option) router.Middleware {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			path := req.URL.Path
			if cfg.excludePaths[path] {
				next.ServeHTTP(w, req)
				return
			}
			for _, prefix := range cfg.excludePrefixes {
				if strings.HasPrefix(path, prefix) {
					next.ServeHTTP(w, req)
					return
				}
			}

			ss, ok := w.(statusSizer)
			if !ok {
				wrapped := &responseWriter{ResponseWriter: w, status: http.StatusOK}
				w = wrapped
				ss = wrapped
			}

			start := time.Now()
			next.ServeHTTP(w, req)
			duration := time.Since(start)

			status := ss.StatusCode()
			attrs := []slog.Attr{
				slog.String("method", req.Method),
				slog.String("path", path),
				slog.Int("status", status),
				slog.Int64("size", ss.Size()),
				slog.Duration("duration", duration),
				slog.String("remote", req.RemoteAddr),
			}
			if id, ok := req.Context().Value(middleware.RequestIDKey).(string); ok {
				attrs = append(attrs, slog.String("request_id", id))
			}

			level := slog.LevelInfo
			switch {
			case status >= 500:
				level = slog.LevelError
			case status >= 400:
				level = slog.LevelWarn
			case cfg.slowThreshold > 0 && duration >= cfg.slowThreshold:
				level = slog.LevelWarn
				attrs = append(attrs, slog.Bool("slow", true))
			}

			cfg.logger.LogAttrs(req.Context(), level, "request", attrs...)
		})
	}
}

// responseWriter captures status and size while forwarding everything else
// to the underlying writer.
type responseWriter struct {
	http.ResponseWriter
	status int
	size   int64
	wrote  bool
}

func (w *responseWriter) WriteHeader(status int) {
	if !w.wrote {
		w.status = status
		w.wrote = true
	}
	w.ResponseWriter.WriteHeader(status)
}

func (w *responseWriter) Write(b []byte) (int, error) {
	if !w.wrote {
		w.wrote = true
	}
	n, err := w.ResponseWriter.Write(b)
	w.size += int64(n)
	return n, err
}

func (w *responseWriter) StatusCode() int { return w.status }

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
