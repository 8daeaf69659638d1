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

// Package ws adapts WebSocket session handlers to http.Handler for use
// with router.WebSocket routes.
package ws

import (
	"context"
	"log/slog"
	"net/http"
	"slices"
	"time"

	"github.com/gorilla/websocket"
)

// Handler runs one WebSocket session. The context is the upgraded
// request's context, so route parameters and middleware values are
// available through it. The connection is closed when the handler
// returns.
type Handler func(ctx context.Context, conn *websocket.Conn)

// Option defines functional options for the ws adapter configuration.
type Option func(*config)

// config holds the configuration for the ws adapter.
type config struct {
	// readBufferSize and writeBufferSize size the connection's I/O
	// buffers
	readBufferSize  int
	writeBufferSize int

	// checkOrigin validates the handshake Origin header; nil keeps the
	// upgrader's same-origin default
	checkOrigin func(req *http.Request) bool

	// subprotocols are offered during handshake negotiation
	subprotocols []string

	// readLimit caps incoming message size in bytes; 0 means no cap
	readLimit int64

	// pingInterval enables keepalive pings at this period; 0 disables
	pingInterval time.Duration

	// compression enables per-message deflate
	compression bool

	// logger records upgrade failures and keepalive errors
	logger *slog.Logger
}

// defaultConfig returns the default configuration for the ws adapter.
func defaultConfig() *config {
	return &config{
		readBufferSize:  4096,
		writeBufferSize: 4096,
		readLimit:       64 * 1024,
		logger:          slog.Default(),
	}
}

// WithBufferSizes sets the read and write buffer sizes in bytes.
func WithBufferSizes(read, write int) Option {
	return func(cfg *config) {
		if read > 0 {
			cfg.readBufferSize = read
		}
		if write > 0 {
			cfg.writeBufferSize = write
		}
	}
}

// WithOriginCheck validates handshake origins with a custom predicate.
// Without an origin option the upgrader enforces same-origin.
func WithOriginCheck(fn func(req *http.Request) bool) Option {
	return func(cfg *config) {
		cfg.checkOrigin = fn
	}
}

// WithAllowedOrigins accepts handshakes only from the given Origin header
// values. Requests without an Origin header (non-browser clients) are
// accepted.
func WithAllowedOrigins(origins ...string) Option {
	allowed := slices.Clone(origins)
	return WithOriginCheck(func(req *http.Request) bool {
		origin := req.Header.Get("Origin")
		return origin == "" || slices.Contains(allowed, origin)
	})
}

// WithAllowAllOrigins disables origin checking. Only safe when the
// endpoint does not rely on cookie authentication.
func WithAllowAllOrigins() Option {
	return WithOriginCheck(func(*http.Request) bool { return true })
}

// WithSubprotocols offers the given subprotocols during negotiation, in
// preference order.
func WithSubprotocols(protocols ...string) Option {
	return func(cfg *config) {
		cfg.subprotocols = protocols
	}
}

// WithReadLimit caps incoming message size in bytes. Oversized messages
// close the connection. Zero removes the default 64KB cap.
func WithReadLimit(limit int64) Option {
	return func(cfg *config) {
		cfg.readLimit = limit
	}
}

// WithKeepalive sends a ping every interval and arms read deadlines that
// each pong extends, with 25% slack. Pongs are only processed while the
// handler is reading, so this suits handlers built around a read loop;
// reads on a dead connection fail once the deadline passes.
func WithKeepalive(interval time.Duration) Option {
	return func(cfg *config) {
		if interval > 0 {
			cfg.pingInterval = interval
		}
	}
}

// WithCompression negotiates per-message compression.
func WithCompression() Option {
	return func(cfg *config) {
		cfg.compression = true
	}
}

// WithLogger sets the logger for upgrade failures and keepalive errors.
func WithLogger(logger *slog.Logger) Option {
	return func(cfg *config) {
		if logger != nil {
			cfg.logger = logger
		}
	}
}

// New returns an http.Handler that upgrades requests and runs handler for
// each session. Mount it on a router.WebSocket route:
//
//	echo := ws.New(func(ctx context.Context, conn *websocket.Conn) {
//	    for {
//	        mt, msg, err := conn.ReadMessage()
//	        if err != nil {
//	            return
//	        }
//	        if err := conn.WriteMessage(mt, msg); err != nil {
//	            return
//	        }
//	    }
//	})
//
//	r := router.MustNew(
//	    router.WithRoutes(router.WebSocket("/echo", echo)),
//	)
//
// The connection is closed when the handler returns. Read errors inside
// the handler mean the peer went away or violated a limit; handlers
// normally just return on any error.
func New(handler Handler, opts ...Option) http.Handler {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}

	upgrader := websocket.Upgrader{
		ReadBufferSize:    cfg.readBufferSize,
		WriteBufferSize:   cfg.writeBufferSize,
		Subprotocols:      cfg.subprotocols,
		CheckOrigin:       cfg.checkOrigin,
		EnableCompression: cfg.compression,
	}

	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		conn, err := upgrader.Upgrade(w, req, nil)
		if err != nil {
			// Upgrade already wrote the error response.
			cfg.logger.LogAttrs(req.Context(), slog.LevelDebug, "websocket upgrade failed",
				slog.String("path", req.URL.Path),
				slog.Any("error", err),
			)
			return
		}
		defer conn.Close()

		if cfg.readLimit > 0 {
			conn.SetReadLimit(cfg.readLimit)
		}

		if cfg.pingInterval > 0 {
			stop := startKeepalive(req.Context(), conn, cfg)
			defer stop()
		}

		handler(req.Context(), conn)
	})
}

// startKeepalive installs pong-refreshed read deadlines and starts the
// ping ticker. The returned func stops the ticker.
func startKeepalive(ctx context.Context, conn *websocket.Conn, cfg *config) func() {
	pongWait := cfg.pingInterval + cfg.pingInterval/4

	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	done := make(chan struct{})
	go func() {
		ticker := time.NewTicker(cfg.pingInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				deadline := time.Now().Add(cfg.pingInterval / 2)
				if err := conn.WriteControl(websocket.PingMessage, nil, deadline); err != nil {
					cfg.logger.LogAttrs(ctx, slog.LevelDebug, "keepalive ping failed",
						slog.Any("error", err),
					)
					return
				}
			case <-done:
				return
			}
		}
	}()

	return func() { close(done) }
}

// IsNormalClose reports whether err is a clean close from the peer, as
// opposed to a network failure or protocol violation.
func IsNormalClose(err error) bool {
	return websocket.IsCloseError(err,
		websocket.CloseNormalClosure,
		websocket.CloseGoingAway,
		websocket.CloseNoStatusReceived,
	)
}
