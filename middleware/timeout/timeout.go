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

// Package timeout cancels requests that run longer than a deadline and
// answers them with 408.
package timeout

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"alder.dev/router"
)

// Option defines functional options for timeout middleware configuration.
type Option func(*config)

// config holds the configuration for the timeout middleware.
type config struct {
	// duration is the deadline applied to each request
	duration time.Duration

	// logger records timeouts
	logger *slog.Logger

	// handler writes the timeout response
	handler func(w http.ResponseWriter, req *http.Request, d time.Duration)

	// skipPaths are exact paths exempt from the deadline
	skipPaths map[string]bool

	// skipPrefixes are path prefixes exempt from the deadline
	skipPrefixes []string

	// skipSuffixes are path suffixes exempt from the deadline
	skipSuffixes []string

	// skipFunc exempts requests by custom predicate
	skipFunc func(req *http.Request) bool
}

// defaultConfig returns the default configuration for timeout middleware.
func defaultConfig() *config {
	return &config{
		duration:  30 * time.Second,
		logger:    slog.Default(),
		handler:   defaultHandler,
		skipPaths: make(map[string]bool),
	}
}

func defaultHandler(w http.ResponseWriter, _ *http.Request, _ time.Duration) {
	http.Error(w, "request timeout", http.StatusRequestTimeout)
}

// WithDuration sets the deadline. Default is 30 seconds.
func WithDuration(d time.Duration) Option {
	return func(cfg *config) {
		if d > 0 {
			cfg.duration = d
		}
	}
}

// WithLogger sets the logger that records timeouts.
func WithLogger(logger *slog.Logger) Option {
	return func(cfg *config) {
		if logger != nil {
			cfg.logger = logger
		}
	}
}

// WithHandler sets the response written when the deadline passes.
func WithHandler(handler func(w http.ResponseWriter, req *http.Request, d time.Duration)) Option {
	return func(cfg *config) {
		if handler != nil {
			cfg.handler = handler
		}
	}
}

// WithSkipPaths exempts exact paths from the deadline. Use this for
// streaming and long-poll endpoints.
func WithSkipPaths(paths ...string) Option {
	return func(cfg *config) {
		for _, p := range paths {
			cfg.skipPaths[p] = true
		}
	}
}

// WithSkipPrefixes exempts paths under the given prefixes.
func WithSkipPrefixes(prefixes ...string) Option {
	return func(cfg *config) {
		cfg.skipPrefixes = append(cfg.skipPrefixes, prefixes...)
	}
}

// WithSkipSuffixes exempts paths ending in the given suffixes.
func WithSkipSuffixes(suffixes ...string) Option {
	return func(cfg *config) {
		cfg.skipSuffixes = append(cfg.skipSuffixes, suffixes...)
	}
}

// WithSkip exempts requests matching a custom predicate.
func WithSkip(fn func(req *http.Request) bool) Option {
	return func(cfg *config) {
		cfg.skipFunc = fn
	}
}

// New returns a middleware that runs the handler under a deadline. The
// request context is canceled when the deadline passes and a 408 response
// is written; whatever the handler wrote is discarded.
//
// The handler keeps running in its goroutine until it observes the
// canceled context, so long operations must be context-aware for the
// deadline to actually free resources. Responses are buffered until the
// handler finishes, which makes this middleware unsuitable for streaming
// endpoints; exempt those with the skip options.
//
// Example:
//
//	r := router.MustNew(
//	    router.WithMiddleware(timeout.New(
//	        timeout.WithDuration(5*time.Second),
//	        timeout.WithSkipPrefixes("/events"),
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
			if shouldSkip(cfg, req) {
				next.ServeHTTP(w, req)
				return
			}

			ctx, cancel := context.WithTimeout(req.Context(), cfg.duration)
			defer cancel()
			req = req.WithContext(ctx)

			buf := &bufferedWriter{header: make(http.Header)}
			done := make(chan struct{})
			panicked := make(chan any, 1)

			go func() {
				defer func() {
					if p := recover(); p != nil {
						panicked <- p
					}
				}()
				next.ServeHTTP(buf, req)
				close(done)
			}()

			select {
			case p := <-panicked:
				panic(p)
			case <-done:
				buf.copyTo(w)
			case <-ctx.Done():
				buf.abandon()
				if errors.Is(ctx.Err(), context.DeadlineExceeded) {
					cfg.logger.LogAttrs(req.Context(), slog.LevelWarn, "request timed out",
						slog.String("method", req.Method),
						slog.String("path", req.URL.Path),
						slog.Duration("timeout", cfg.duration),
					)
					cfg.handler(w, req, cfg.duration)
				}
			}
		})
	}
}

// shouldSkip reports whether the request is exempt from the deadline.
func shouldSkip(cfg *config, req *http.Request) bool {
	path := req.URL.Path
	if cfg.skipPaths[path] {
		return true
	}
	for _, prefix := range cfg.skipPrefixes {
		if strings.HasPrefix(path, prefix) {
			return true
		}
	}
	for _, suffix := range cfg.skipSuffixes {
		if strings.HasSuffix(path, suffix) {
			return true
		}
	}
	return cfg.skipFunc != nil && cfg.skipFunc(req)
}

// bufferedWriter holds the handler's response until it either completes
// and is flushed to the real writer, or the deadline passes and the
// buffer is dropped.
type bufferedWriter struct {
	mu        sync.Mutex
	header    http.Header
	body      bytes.Buffer
	status    int
	abandoned bool
}

func (b *bufferedWriter) Header() http.Header {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.header
}

func (b *bufferedWriter) WriteHeader(status int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.status == 0 {
		b.status = status
	}
}

func (b *bufferedWriter) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.abandoned {
		return 0, http.ErrHandlerTimeout
	}
	if b.status == 0 {
		b.status = http.StatusOK
	}
	return b.body.Write(p)
}

// abandon marks the buffer dead so late writes fail instead of racing the
// timeout response.
func (b *bufferedWriter) abandon() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.abandoned = true
}

// copyTo replays the buffered response onto the real writer.
func (b *bufferedWriter) copyTo(w http.ResponseWriter) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for k, vv := range b.header {
		for _, v := range vv {
			w.Header().Add(k, v)
		}
	}
	if b.status != 0 {
		w.WriteHeader(b.status)
	}
	w.Write(b.body.Bytes())
}
