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
	"net"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// waitForServer blocks until r has registered its http.Server and returns it.
func waitForServer(t *testing.T, r *Router) *http.Server {
	t.Helper()
	var srv *http.Server
	require.Eventually(t, func() bool {
		r.serverMu.Lock()
		defer r.serverMu.Unlock()
		srv = r.server
		return srv != nil
	}, 2*time.Second, 5*time.Millisecond)
	return srv
}

func TestServeShutdownRoundTrip(t *testing.T) {
	t.Parallel()
	r := MustNew(WithRoutes(Get("/", say("home"))))

	errCh := make(chan error, 1)
	go func() { errCh <- r.Serve("127.0.0.1:0") }()

	waitForServer(t, r)
	require.NoError(t, r.Shutdown(context.Background()))

	select {
	case err := <-errCh:
		assert.ErrorIs(t, err, http.ErrServerClosed)
	case <-time.After(2 * time.Second):
		t.Fatal("Serve did not return after Shutdown")
	}
}

func TestShutdownWithoutServerIsNoop(t *testing.T) {
	t.Parallel()
	r := MustNew(WithRoutes(Get("/", say("home"))))
	assert.NoError(t, r.Shutdown(context.Background()))
}

func TestServeRefusesOccupiedAddress(t *testing.T) {
	t.Parallel()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	r := MustNew(WithRoutes(Get("/", say("home"))))
	err = r.Serve(ln.Addr().String())
	require.Error(t, err)
	assert.NotErrorIs(t, err, http.ErrServerClosed)
}

func TestServeAppliesConfiguredTimeouts(t *testing.T) {
	t.Parallel()
	r := MustNew(
		WithRoutes(Get("/", say("home"))),
		WithServerTimeouts(1*time.Second, 2*time.Second, 3*time.Second, 4*time.Second),
	)

	errCh := make(chan error, 1)
	go func() { errCh <- r.Serve("127.0.0.1:0") }()

	srv := waitForServer(t, r)
	assert.Equal(t, 1*time.Second, srv.ReadHeaderTimeout)
	assert.Equal(t, 2*time.Second, srv.ReadTimeout)
	assert.Equal(t, 3*time.Second, srv.WriteTimeout)
	assert.Equal(t, 4*time.Second, srv.IdleTimeout)

	require.NoError(t, r.Shutdown(context.Background()))
	<-errCh
}

func TestServeDefaultsTimeoutsWhenUnset(t *testing.T) {
	t.Parallel()
	r := MustNew(WithRoutes(Get("/", say("home"))))

	errCh := make(chan error, 1)
	go func() { errCh <- r.Serve("127.0.0.1:0") }()

	srv := waitForServer(t, r)
	assert.Equal(t, 5*time.Second, srv.ReadHeaderTimeout)
	assert.Equal(t, 15*time.Second, srv.ReadTimeout)
	assert.Equal(t, 30*time.Second, srv.WriteTimeout)
	assert.Equal(t, 60*time.Second, srv.IdleTimeout)

	require.NoError(t, r.Shutdown(context.Background()))
	<-errCh
}

func TestServeEmitsH2CDiagnostic(t *testing.T) {
	t.Parallel()
	var (
		mu     sync.Mutex
		events []DiagnosticEvent
	)
	r := MustNew(
		WithRoutes(Get("/", say("home"))),
		WithH2C(),
		WithDiagnostics(DiagnosticHandlerFunc(func(ev DiagnosticEvent) {
			mu.Lock()
			events = append(events, ev)
			mu.Unlock()
		})),
	)

	errCh := make(chan error, 1)
	go func() { errCh <- r.Serve("127.0.0.1:0") }()

	waitForServer(t, r)

	mu.Lock()
	kinds := make([]DiagnosticKind, 0, len(events))
	for _, ev := range events {
		kinds = append(kinds, ev.Kind)
	}
	mu.Unlock()
	assert.Contains(t, kinds, DiagH2CEnabled)

	require.NoError(t, r.Shutdown(context.Background()))
	<-errCh
}
