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

package permission_test

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"alder.dev/router"
	"alder.dev/router/permission"
)

func protected(t *testing.T, perm router.Permission) *router.Router {
	t.Helper()

	r, err := router.New(
		router.WithRoutes(
			router.Get("/secret", func(w http.ResponseWriter, _ *http.Request) {
				w.Write([]byte("contents"))
			}, router.Require(perm)),
		),
	)
	require.NoError(t, err)
	return r
}

func TestCheckAllows(t *testing.T) {
	t.Parallel()

	r := protected(t, permission.Check(func(*http.Request) error { return nil }))

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/secret", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "contents", rec.Body.String())
}

func TestCheckDeniesWithReason(t *testing.T) {
	t.Parallel()

	r := protected(t, permission.Check(func(*http.Request) error {
		return permission.Deny("members only")
	}))

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/secret", nil))

	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Contains(t, rec.Body.String(), "members only")
}

func TestDenyWithStatus(t *testing.T) {
	t.Parallel()

	r := protected(t, permission.Check(func(*http.Request) error {
		return permission.DenyWithStatus(http.StatusUnauthorized, "credentials required")
	}))

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/secret", nil))

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "credentials required")
}

func TestOpaqueErrorsStayOpaque(t *testing.T) {
	t.Parallel()

	r := protected(t, permission.Check(func(*http.Request) error {
		return errors.New("ldap lookup failed: connection refused")
	}))

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/secret", nil))

	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.NotContains(t, rec.Body.String(), "ldap", "internal detail must not leak")
}

func TestDeniedErrorMessage(t *testing.T) {
	t.Parallel()

	err := permission.Deny("nope")
	assert.Equal(t, "denied (403): nope", err.Error())
}

func TestAllowHosts(t *testing.T) {
	t.Parallel()

	r := protected(t, permission.AllowHosts("api.example.com", "*.internal.example.com"))

	try := func(host string) int {
		req := httptest.NewRequest(http.MethodGet, "/secret", nil)
		req.Host = host
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, req)
		return rec.Code
	}

	assert.Equal(t, http.StatusOK, try("api.example.com"))
	assert.Equal(t, http.StatusOK, try("API.example.com:8443"))
	assert.Equal(t, http.StatusOK, try("tools.internal.example.com"))
	assert.Equal(t, http.StatusOK, try("internal.example.com"))
	assert.Equal(t, http.StatusForbidden, try("public.example.com"))
}

func TestRequireHeaderPresence(t *testing.T) {
	t.Parallel()

	r := protected(t, permission.RequireHeader("X-Api-Version"))

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/secret", nil))
	assert.Equal(t, http.StatusForbidden, rec.Code)

	req := httptest.NewRequest(http.MethodGet, "/secret", nil)
	req.Header.Set("X-Api-Version", "2")
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRequireHeaderValues(t *testing.T) {
	t.Parallel()

	r := protected(t, permission.RequireHeader("X-Env", "staging", "prod"))

	try := func(value string) int {
		req := httptest.NewRequest(http.MethodGet, "/secret", nil)
		if value != "" {
			req.Header.Set("X-Env", value)
		}
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, req)
		return rec.Code
	}

	assert.Equal(t, http.StatusOK, try("staging"))
	assert.Equal(t, http.StatusOK, try("prod"))
	assert.Equal(t, http.StatusForbidden, try("dev"))
	assert.Equal(t, http.StatusForbidden, try(""))
}

func TestPermissionRunsInsideMiddleware(t *testing.T) {
	t.Parallel()

	var trail []string
	mw := func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			trail = append(trail, "mw")
			next.ServeHTTP(w, req)
		})
	}
	perm := permission.Check(func(*http.Request) error {
		trail = append(trail, "perm")
		return permission.Deny("stop")
	})

	r, err := router.New(
		router.WithMiddleware(mw),
		router.WithRoutes(
			router.Get("/x", func(w http.ResponseWriter, _ *http.Request) {
				trail = append(trail, "handler")
			}, router.Require(perm)),
		),
	)
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/x", nil))

	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, []string{"mw", "perm"}, trail, "middleware saw the request, handler never ran")
}
