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

// Package permission builds router.Permission values from request checks.
//
// A permission either lets the request continue or ends it with an error
// response, usually 403. Permissions run after the middleware of the same
// level, so request IDs and logs from middleware are already in place when
// a check rejects.
//
//	r := router.MustNew(
//	    router.WithRoutes(
//	        router.NewInclude("/admin",
//	            router.Require(permission.RequireHeader("X-Admin-Token", "s3cret")),
//	            router.Routes(...),
//	        ),
//	    ),
//	)
package permission

import (
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"slices"
	"strings"

	"alder.dev/router"
)

// CheckFunc inspects a request and returns nil to let it continue. Return
// a *Denied to control the response status and reason; any other error
// becomes a plain 403.
type CheckFunc func(req *http.Request) error

// Denied is the error a CheckFunc returns to reject a request.
type Denied struct {
	// Status is the HTTP status written to the client.
	Status int

	// Reason is the response body and log message.
	Reason string
}

func (d *Denied) Error() string {
	return fmt.Sprintf("denied (%d): %s", d.Status, d.Reason)
}

// Deny builds a 403 Denied with the given reason.
func Deny(reason string) *Denied {
	return &Denied{Status: http.StatusForbidden, Reason: reason}
}

// DenyWithStatus builds a Denied with an explicit status, for checks that
// should answer 401 or 404 instead of 403.
func DenyWithStatus(status int, reason string) *Denied {
	return &Denied{Status: status, Reason: reason}
}

// Check adapts a CheckFunc into a router.Permission.
//
// A nil return passes the request through. A *Denied return writes its
// status and reason. Any other error writes a generic 403 and logs the
// underlying cause through the request logger, keeping internal failure
// detail out of responses.
//
// Example:
//
//	adminOnly := permission.Check(func(req *http.Request) error {
//	    if req.Header.Get("X-Role") != "admin" {
//	        return permission.Deny("admin role required")
//	    }
//	    return nil
//	})
func Check(fn CheckFunc) router.Permission {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			err := fn(req)
			if err == nil {
				next.ServeHTTP(w, req)
				return
			}

			var denied *Denied
			if errors.As(err, &denied) {
				http.Error(w, denied.Reason, denied.Status)
				return
			}

			router.Logger(req.Context()).LogAttrs(req.Context(), slog.LevelWarn,
				"permission check failed",
				slog.String("path", req.URL.Path),
				slog.Any("error", err),
			)
			http.Error(w, http.StatusText(http.StatusForbidden), http.StatusForbidden)
		})
	}
}

// AllowHosts permits only requests whose Host header matches one of the
// patterns. A pattern is an exact hostname or a "*.domain" wildcard that
// also covers the bare domain. Everything else is answered 403.
func AllowHosts(patterns ...string) router.Permission {
	var (
		exact    = make(map[string]bool)
		suffixes []string
	)
	for _, p := range patterns {
		p = strings.ToLower(strings.TrimSpace(p))
		if p == "" {
			continue
		}
		if domain, ok := strings.CutPrefix(p, "*."); ok {
			exact[domain] = true
			suffixes = append(suffixes, "."+domain)
			continue
		}
		exact[p] = true
	}

	return Check(func(req *http.Request) error {
		host := req.Host
		if h, _, err := net.SplitHostPort(host); err == nil {
			host = h
		}
		host = strings.ToLower(host)
		if exact[host] {
			return nil
		}
		for _, suffix := range suffixes {
			if strings.HasSuffix(host, suffix) {
				return nil
			}
		}
		return Deny("host not allowed")
	})
}

// RequireHeader permits only requests carrying the header. With values
// given, the header must equal one of them; without, presence is enough.
// Missing or mismatched headers are answered 403.
func RequireHeader(name string, values ...string) router.Permission {
	return Check(func(req *http.Request) error {
		got := req.Header.Get(name)
		if got == "" {
			return Deny(fmt.Sprintf("missing required header %s", name))
		}
		if len(values) > 0 && !slices.Contains(values, got) {
			return Deny(fmt.Sprintf("invalid value for header %s", name))
		}
		return nil
	})
}
