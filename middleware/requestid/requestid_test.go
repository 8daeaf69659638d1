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

package requestid_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"alder.dev/router"
	"alder.dev/router/middleware/requestid"
)

func newApp(t *testing.T, opts ...requestid.Option) (*router.Router, *string) {
	t.Helper()

	var seen string
	r, err := router.New(
		router.WithMiddleware(requestid.New(opts...)),
		router.WithRoutes(
			router.Get("/ping", func(w http.ResponseWriter, req *http.Request) {
				seen = requestid.FromContext(req.Context())
				w.WriteHeader(http.StatusNoContent)
			}),
		),
	)
	require.NoError(t, err)
	return r, &seen
}

func TestGeneratesIDWhenMissing(t *testing.T) {
	t.Parallel()

	r, seen := newApp(t)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ping", nil))

	id := rec.Header().Get(requestid.DefaultHeader)
	assert.Len(t, id, 32, "default generator emits 16 hex-encoded bytes")
	assert.Equal(t, id, *seen, "handler sees the same ID via context")
}

func TestReusesIncomingID(t *testing.T) {
	t.Parallel()

	r, seen := newApp(t)

	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set(requestid.DefaultHeader, "abc-123")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	assert.Equal(t, "abc-123", rec.Header().Get(requestid.DefaultHeader))
	assert.Equal(t, "abc-123", *seen)
}

func TestUntrustedClientsGetFreshIDs(t *testing.T) {
	t.Parallel()

	r, seen := newApp(t, requestid.WithoutTrustedClients())

	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set(requestid.DefaultHeader, "forged")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	assert.NotEqual(t, "forged", *seen)
	assert.NotEmpty(t, *seen)
}

func TestCustomHeaderAndGenerator(t *testing.T) {
	t.Parallel()

	r, seen := newApp(t,
		requestid.WithHeader("X-Trace-Token"),
		requestid.WithGenerator(func() string { return "fixed" }),
	)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ping", nil))

	assert.Equal(t, "fixed", rec.Header().Get("X-Trace-Token"))
	assert.Equal(t, "fixed", *seen)
}

func TestUUIDGenerator(t *testing.T) {
	t.Parallel()

	r, seen := newApp(t, requestid.WithUUID())

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ping", nil))

	parsed, err := uuid.Parse(*seen)
	require.NoError(t, err)
	assert.Equal(t, uuid.Version(4), parsed.Version())
}

func TestFromContextWithoutMiddleware(t *testing.T) {
	t.Parallel()

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	assert.Empty(t, requestid.FromContext(req.Context()))
}
