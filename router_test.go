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
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"alder.dev/router/transform"
)

// say returns a handler that writes body with status 200.
func say(body string) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, body)
	}
}

// tag returns middleware that appends label to trail on every request.
func tag(label string, trail *[]string) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			*trail = append(*trail, label)
			next.ServeHTTP(w, r)
		})
	}
}

func do(t *testing.T, h http.Handler, method, target string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(method, target, nil))
	return rec
}

func TestDispatchStaticAndTyped(t *testing.T) {
	t.Parallel()
	r, err := New(WithRoutes(
		Get("/", say("home")),
		Get("/about", say("about")),
		Get("/articles/{id:int}", func(w http.ResponseWriter, req *http.Request) {
			id, err := RequestParams(req).Int("id")
			require.NoError(t, err)
			fmt.Fprintf(w, "article %d", id)
		}),
		Get("/files/{name:path}", func(w http.ResponseWriter, req *http.Request) {
			name, err := RequestParams(req).String("name")
			require.NoError(t, err)
			fmt.Fprintf(w, "file %s", name)
		}),
	))
	require.NoError(t, err)

	rec := do(t, r, http.MethodGet, "/")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "home", rec.Body.String())

	rec = do(t, r, http.MethodGet, "/about")
	assert.Equal(t, "about", rec.Body.String())

	rec = do(t, r, http.MethodGet, "/articles/42")
	assert.Equal(t, "article 42", rec.Body.String())

	rec = do(t, r, http.MethodGet, "/articles/forty-two")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(t, r, http.MethodGet, "/files/a/b/c.txt")
	assert.Equal(t, "file a/b/c.txt", rec.Body.String())
}

func TestDeclarationOrderWins(t *testing.T) {
	t.Parallel()
	r, err := New(WithRoutes(
		Get("/users/{id:int}", say("typed")),
		Get("/users/{name}", say("loose")),
	))
	require.NoError(t, err)

	assert.Equal(t, "typed", do(t, r, http.MethodGet, "/users/7").Body.String())
	assert.Equal(t, "loose", do(t, r, http.MethodGet, "/users/maria").Body.String())

	// Reversed declarations: the loose route claims digits too.
	r, err = New(WithRoutes(
		Get("/users/{name}", say("loose")),
		Get("/users/{id:int}", say("typed")),
	))
	require.NoError(t, err)
	assert.Equal(t, "loose", do(t, r, http.MethodGet, "/users/7").Body.String())
}

func TestMethodNotAllowedAccumulatesAcrossSiblings(t *testing.T) {
	t.Parallel()
	r, err := New(WithRoutes(
		Get("/items/{id:int}", say("read")),
		Post("/items/{id:int}", say("write")),
	))
	require.NoError(t, err)

	rec := do(t, r, http.MethodPut, "/items/5")
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
	assert.Equal(t, "GET, HEAD, POST", rec.Header().Get("Allow"))

	// The method each sibling accepts still dispatches normally.
	assert.Equal(t, "read", do(t, r, http.MethodGet, "/items/5").Body.String())
	assert.Equal(t, "write", do(t, r, http.MethodPost, "/items/5").Body.String())
}

func TestGetImpliesHead(t *testing.T) {
	t.Parallel()
	r, err := New(WithRoutes(Get("/health", say("ok"))))
	require.NoError(t, err)

	rec := do(t, r, http.MethodHead, "/health")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = do(t, r, http.MethodDelete, "/health")
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
	assert.Equal(t, "GET, HEAD", rec.Header().Get("Allow"))
}

func TestIncludeCommitsItsBranch(t *testing.T) {
	t.Parallel()
	r, err := New(WithRoutes(
		NewInclude("/api", Routes(
			Get("/users", say("users")),
		)),
		Get("/api/orders", say("unreachable")),
	))
	require.NoError(t, err)

	assert.Equal(t, "users", do(t, r, http.MethodGet, "/api/users").Body.String())

	// The include matched "/api" structurally, so the later sibling is
	// never consulted even though its template fits exactly.
	rec := do(t, r, http.MethodGet, "/api/orders")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestIncludeCommitKeepsAllowSet(t *testing.T) {
	t.Parallel()
	r, err := New(WithRoutes(
		NewInclude("/api", Routes(
			Post("/users", say("create")),
		)),
		Post("/api/users", say("shadowed sibling")),
	))
	require.NoError(t, err)

	rec := do(t, r, http.MethodGet, "/api/users")
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
	assert.Equal(t, "POST", rec.Header().Get("Allow"))
}

func TestIncludePrefixBoundary(t *testing.T) {
	t.Parallel()
	r, err := New(WithRoutes(
		NewInclude("/api", Routes(
			Get("/", say("index")),
			Get("/users", say("users")),
		)),
		Get("/apiusers", say("literal")),
	))
	require.NoError(t, err)

	// "/apiusers" must not be treated as the "/api" prefix plus "users".
	assert.Equal(t, "literal", do(t, r, http.MethodGet, "/apiusers").Body.String())

	// A bare "/api" leaves remainder "/" for the child index route.
	assert.Equal(t, "index", do(t, r, http.MethodGet, "/api").Body.String())
	assert.Equal(t, "index", do(t, r, http.MethodGet, "/api/").Body.String())
}

func TestNestedIncludes(t *testing.T) {
	t.Parallel()
	r, err := New(WithRoutes(
		NewInclude("/api", Routes(
			NewInclude("/v1", Routes(
				Get("/ping", say("pong")),
			)),
		)),
	))
	require.NoError(t, err)

	assert.Equal(t, "pong", do(t, r, http.MethodGet, "/api/v1/ping").Body.String())
	assert.Equal(t, http.StatusNotFound, do(t, r, http.MethodGet, "/v1/ping").Code)
}

func TestTrailingSlashRedirect(t *testing.T) {
	t.Parallel()
	r, err := New(WithRoutes(
		Get("/docs/", say("docs")),
		Get("/about", say("about")),
	))
	require.NoError(t, err)

	rec := do(t, r, http.MethodGet, "/docs?page=2")
	assert.Equal(t, http.StatusTemporaryRedirect, rec.Code)
	assert.Equal(t, "/docs/?page=2", rec.Header().Get("Location"))

	rec = do(t, r, http.MethodGet, "/about/")
	assert.Equal(t, http.StatusTemporaryRedirect, rec.Code)
	assert.Equal(t, "/about", rec.Header().Get("Location"))

	// No redirect when the toggled path does not match either.
	assert.Equal(t, http.StatusNotFound, do(t, r, http.MethodGet, "/missing").Code)
}

func TestTrailingSlashRedirectDisabled(t *testing.T) {
	t.Parallel()
	r, err := New(
		WithRedirectTrailingSlash(false),
		WithRoutes(Get("/docs/", say("docs"))),
	)
	require.NoError(t, err)

	assert.Equal(t, http.StatusNotFound, do(t, r, http.MethodGet, "/docs").Code)
}

func TestNoRedirectWhenMethodMismatch(t *testing.T) {
	t.Parallel()
	r, err := New(WithRoutes(
		Post("/submit", say("posted")),
		Get("/submit/", say("slashed")),
	))
	require.NoError(t, err)

	// "/submit" matched structurally with the wrong method, so the outcome
	// is 405, not a redirect to "/submit/".
	rec := do(t, r, http.MethodGet, "/submit")
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
	assert.Equal(t, "POST", rec.Header().Get("Allow"))
}

func TestHostMatching(t *testing.T) {
	t.Parallel()
	r, err := New(WithRoutes(
		NewHost("api.example.com", Routes(
			Get("/status", say("api status")),
		)),
		Get("/status", say("site status")),
	))
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/status", nil)
	req.Host = "API.example.com:8443"
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	assert.Equal(t, "api status", rec.Body.String())

	req = httptest.NewRequest(http.MethodGet, "/status", nil)
	req.Host = "www.example.com"
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	assert.Equal(t, "site status", rec.Body.String())
}

func TestHostCommitsItsBranch(t *testing.T) {
	t.Parallel()
	r, err := New(WithRoutes(
		NewHost("admin.example.com", Routes(
			Get("/panel", say("panel")),
		)),
		Get("/other", say("fallback")),
	))
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/other", nil)
	req.Host = "admin.example.com"
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestDelegateSeesStrippedPath(t *testing.T) {
	t.Parallel()
	var seen string
	child := http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		seen = req.URL.Path
		w.WriteHeader(http.StatusAccepted)
	})
	r, err := New(WithRoutes(
		NewInclude("/admin", Delegate(child)),
	))
	require.NoError(t, err)

	rec := do(t, r, http.MethodGet, "/admin/panel/settings")
	assert.Equal(t, http.StatusAccepted, rec.Code)
	assert.Equal(t, "/panel/settings", seen)

	rec = do(t, r, http.MethodGet, "/admin")
	assert.Equal(t, "/", seen)
}

func TestDelegatedRouter(t *testing.T) {
	t.Parallel()
	child, err := New(WithRoutes(
		Get("/things/{id:int}", func(w http.ResponseWriter, req *http.Request) {
			id, _ := RequestParams(req).Int("id")
			fmt.Fprintf(w, "thing %d", id)
		}),
	))
	require.NoError(t, err)

	parent, err := New(WithRoutes(
		NewInclude("/v1", Delegate(child)),
	))
	require.NoError(t, err)

	assert.Equal(t, "thing 9", do(t, parent, http.MethodGet, "/v1/things/9").Body.String())
	assert.Equal(t, http.StatusNotFound, do(t, parent, http.MethodGet, "/v1/missing").Code)
}

func TestWrapOrder(t *testing.T) {
	t.Parallel()
	var trail []string
	perm := func(label string) Permission {
		return func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				trail = append(trail, label)
				next.ServeHTTP(w, r)
			})
		}
	}
	r, err := New(
		WithMiddleware(tag("router-mw", &trail)),
		WithPermissions(perm("router-perm")),
		WithRoutes(
			NewInclude("/api",
				Wrap(tag("include-mw", &trail)),
				Require(perm("include-perm")),
				Routes(
					Get("/task", func(w http.ResponseWriter, _ *http.Request) {
						trail = append(trail, "handler")
					},
						Wrap(tag("route-mw", &trail)),
						Require(perm("route-perm")),
					),
				),
			),
		),
	)
	require.NoError(t, err)

	do(t, r, http.MethodGet, "/api/task")
	assert.Equal(t, []string{
		"router-mw", "router-perm",
		"include-mw", "include-perm",
		"route-mw", "route-perm",
		"handler",
	}, trail)
}

func TestMiddlewareSeesParams(t *testing.T) {
	t.Parallel()
	var fromMW int64
	capture := func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			fromMW, _ = RequestParams(r).Int("id")
			next.ServeHTTP(w, r)
		})
	}
	r, err := New(WithRoutes(
		Get("/orders/{id:int}", say("ok"), Wrap(capture)),
	))
	require.NoError(t, err)

	do(t, r, http.MethodGet, "/orders/31")
	assert.Equal(t, int64(31), fromMW)
}

func TestWebSocketRoutesDispatchSeparately(t *testing.T) {
	t.Parallel()
	r, err := New(WithRoutes(
		WebSocket("/feed", http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusSwitchingProtocols)
		})),
		Get("/feed", say("plain")),
	))
	require.NoError(t, err)

	// A plain GET passes over the WebSocket route.
	assert.Equal(t, "plain", do(t, r, http.MethodGet, "/feed").Body.String())

	// An upgrade request passes over the Path route.
	req := httptest.NewRequest(http.MethodGet, "/feed", nil)
	req.Header.Set("Connection", "Upgrade")
	req.Header.Set("Upgrade", "websocket")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusSwitchingProtocols, rec.Code)
}

func TestUpgradeRequestWithoutWebSocketRouteIsNotFound(t *testing.T) {
	t.Parallel()
	r, err := New(WithRoutes(Get("/feed", say("plain"))))
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/feed", nil)
	req.Header.Set("Connection", "Upgrade")
	req.Header.Set("Upgrade", "websocket")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCustomFallbackHandlers(t *testing.T) {
	t.Parallel()
	r, err := New(
		WithNotFoundHandler(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			http.Error(w, "nothing here", http.StatusNotFound)
		})),
		WithMethodNotAllowedHandler(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			http.Error(w, "wrong verb", http.StatusMethodNotAllowed)
		})),
		WithRoutes(Get("/only-get", say("ok"))),
	)
	require.NoError(t, err)

	rec := do(t, r, http.MethodGet, "/missing")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "nothing here")

	rec = do(t, r, http.MethodPost, "/only-get")
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
	assert.Contains(t, rec.Body.String(), "wrong verb")
	assert.Equal(t, "GET, HEAD", rec.Header().Get("Allow"))
}

func TestMatchWithoutDispatch(t *testing.T) {
	t.Parallel()
	invoked := false
	r, err := New(WithRoutes(
		Get("/widgets/{id:uuid}", func(http.ResponseWriter, *http.Request) { invoked = true }, Named("widget")),
		Post("/widgets", say("create")),
	))
	require.NoError(t, err)

	res, err := r.Match(http.MethodGet, "/widgets/8f14e45f-ceea-467f-a34e-daeb5b3b1f5b", "")
	require.NoError(t, err)
	assert.Equal(t, OutcomeMatched, res.Kind)
	assert.Equal(t, "/widgets/{id:uuid}", res.Pattern)
	assert.Equal(t, "widget", res.Name)
	assert.Contains(t, res.Params, "id")
	assert.False(t, invoked)

	res, err = r.Match(http.MethodDelete, "/widgets", "")
	require.NoError(t, err)
	assert.Equal(t, OutcomeMethodNotAllowed, res.Kind)
	assert.Equal(t, []string{"POST"}, res.Allowed)

	res, err = r.Match(http.MethodGet, "/nowhere", "")
	require.NoError(t, err)
	assert.Equal(t, OutcomeNotFound, res.Kind)
}

func TestMatchIsDeterministic(t *testing.T) {
	t.Parallel()
	r := MustNew(WithRoutes(
		Get("/", say("home")),
		Get("/articles/{id:int}", say("article"), Named("article")),
		NewInclude("/api", Routes(
			Get("/users/{id:uuid}", say("user")),
			Post("/users", say("create")),
		)),
		NewHost("api.example.com", Routes(Get("/ping", say("pong")))),
	))

	inputs := []struct{ method, path, host string }{
		{http.MethodGet, "/", ""},
		{http.MethodGet, "/articles/7", ""},
		{http.MethodPut, "/api/users", ""},
		{http.MethodGet, "/ping", "api.example.com:8443"},
		{http.MethodGet, "/nowhere", ""},
	}

	first := make([]MatchResult, len(inputs))
	for i, in := range inputs {
		res, err := r.Match(in.method, in.path, in.host)
		require.NoError(t, err)
		first[i] = res
	}

	const workers = 8
	var wg sync.WaitGroup
	results := make([][]MatchResult, workers)
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			results[w] = make([]MatchResult, len(inputs))
			for i, in := range inputs {
				res, err := r.Match(in.method, in.path, in.host)
				if err != nil {
					return
				}
				results[w][i] = res
			}
		}(w)
	}
	wg.Wait()

	for w := 0; w < workers; w++ {
		assert.Equal(t, first, results[w])
	}
}

func TestCustomTransformer(t *testing.T) {
	t.Parallel()
	r, err := New(
		WithTransformer("upper", upperCodec{}),
		WithRoutes(Get("/tags/{tag:upper}", func(w http.ResponseWriter, req *http.Request) {
			tagVal, _ := RequestParams(req).String("tag")
			fmt.Fprint(w, tagVal)
		})),
	)
	require.NoError(t, err)

	assert.Equal(t, "GO", do(t, r, http.MethodGet, "/tags/go").Body.String())
	assert.Equal(t, http.StatusNotFound, do(t, r, http.MethodGet, "/tags/Already-Upper!").Code)
}

// upperCodec accepts lowercase ASCII tags and captures them uppercased.
type upperCodec struct{}

func (upperCodec) Match(raw string) (any, bool) {
	if raw == "" {
		return nil, false
	}
	for i := 0; i < len(raw); i++ {
		if raw[i] < 'a' || raw[i] > 'z' {
			return nil, false
		}
	}
	out := make([]byte, len(raw))
	for i := 0; i < len(raw); i++ {
		out[i] = raw[i] - 'a' + 'A'
	}
	return string(out), true
}

func (upperCodec) Format(value any) (string, error) {
	s, ok := value.(string)
	if !ok {
		return "", transform.ErrFormat
	}
	out := make([]byte, len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c < 'A' || c > 'Z' {
			return "", transform.ErrFormat
		}
		out[i] = c - 'A' + 'a'
	}
	return string(out), nil
}

func TestConfigurationErrors(t *testing.T) {
	t.Parallel()
	cases := []struct {
		name string
		opts []Option
		want error
	}{
		{
			name: "nil handler",
			opts: []Option{WithRoutes(Get("/x", nil))},
			want: ErrNilHandler,
		},
		{
			name: "nil route",
			opts: []Option{WithRoutes(nil)},
			want: ErrNilRoute,
		},
		{
			name: "relative template",
			opts: []Option{WithRoutes(Get("users", say("x")))},
			want: ErrTemplateSlash,
		},
		{
			name: "malformed template",
			opts: []Option{WithRoutes(Get("/users/{id", say("x")))},
			want: ErrConfiguration,
		},
		{
			name: "unknown transformer",
			opts: []Option{WithRoutes(Get("/users/{id:bogus}", say("x")))},
			want: transform.ErrUnknown,
		},
		{
			name: "include with parameter syntax",
			opts: []Option{WithRoutes(NewInclude("/api/{v}", Routes(Get("/x", say("x")))))},
			want: ErrIncludeParameter,
		},
		{
			name: "include without source",
			opts: []Option{WithRoutes(NewInclude("/api"))},
			want: ErrRouteSource,
		},
		{
			name: "include with two sources",
			opts: []Option{WithRoutes(NewInclude("/api",
				Routes(Get("/x", say("x"))),
				Delegate(http.NotFoundHandler()),
			))},
			want: ErrRouteSource,
		},
		{
			name: "host with port",
			opts: []Option{WithRoutes(NewHost("example.com:8080", Routes(Get("/", say("x")))))},
			want: ErrHostPattern,
		},
		{
			name: "host with slash",
			opts: []Option{WithRoutes(NewHost("example.com/api", Routes(Get("/", say("x")))))},
			want: ErrHostPattern,
		},
		{
			name: "duplicate name in container",
			opts: []Option{WithRoutes(
				Get("/a", say("a"), Named("dup")),
				Get("/b", say("b"), Named("dup")),
			)},
			want: ErrDuplicateName,
		},
		{
			name: "route option on wrong kind",
			opts: []Option{WithRoutes(NewInclude("/api",
				Methods(http.MethodPost),
				Routes(Get("/x", say("x"))),
			))},
			want: ErrOptionConflict,
		},
		{
			name: "negative server timeout",
			opts: []Option{WithServerTimeouts(-time.Second, 0, 0, 0)},
			want: ErrServerTimeoutInvalid,
		},
		{
			name: "duplicate transformer key",
			opts: []Option{WithTransformer("int", upperCodec{})},
			want: transform.ErrRegistered,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			_, err := New(tc.opts...)
			require.Error(t, err)
			assert.ErrorIs(t, err, tc.want)
			assert.ErrorIs(t, err, ErrConfiguration)
		})
	}
}

func TestRouteValueCannotBeReused(t *testing.T) {
	t.Parallel()
	shared := Get("/shared", say("x"))
	_, err := New(WithRoutes(shared))
	require.NoError(t, err)

	_, err = New(WithRoutes(shared))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrAlreadyAttached)
}

func TestDuplicateNameAllowedAcrossScopes(t *testing.T) {
	t.Parallel()
	r, err := New(WithRoutes(
		NewInclude("/a", Named("a"), Routes(Get("/x", say("ax"), Named("x")))),
		NewInclude("/b", Named("b"), Routes(Get("/x", say("bx"), Named("x")))),
	))
	require.NoError(t, err)

	pa, err := r.Reverse("a:x", nil)
	require.NoError(t, err)
	pb, err := r.Reverse("b:x", nil)
	require.NoError(t, err)
	assert.Equal(t, "/a/x", pa)
	assert.Equal(t, "/b/x", pb)
}

func TestShadowedRouteDiagnostic(t *testing.T) {
	t.Parallel()
	handler := &recordingDiagnostics{}
	_, err := New(
		WithDiagnostics(handler),
		WithRoutes(
			Get("/dup", say("first")),
			Get("/dup", say("second")),
		),
	)
	require.NoError(t, err)

	require.Len(t, handler.events, 1)
	event := handler.events[0]
	assert.Equal(t, DiagRouteShadowed, event.Kind)
	assert.Equal(t, "/dup", event.Fields["pattern"])
	assert.ElementsMatch(t, []string{"GET", "HEAD"}, event.Fields["methods"])
}

type recordingDiagnostics struct {
	events []DiagnosticEvent
}

func (h *recordingDiagnostics) OnDiagnostic(e DiagnosticEvent) {
	h.events = append(h.events, e)
}

func TestRouterAccessors(t *testing.T) {
	t.Parallel()
	r, err := New(
		WithName("storefront"),
		WithRoutes(
			Get("/x", say("x"), Named("x"), Deprecated()),
			NewInclude("/api", Routes(Get("/y", say("y")))),
		),
	)
	require.NoError(t, err)

	assert.Equal(t, "storefront", r.Name())
	assert.True(t, r.RedirectsTrailingSlash())
	assert.Equal(t, []string{"datetime", "float", "int", "path", "str", "uuid"}, r.TransformerKeys())

	entries := r.Entries()
	require.Len(t, entries, 2)
	p, ok := entries[0].(*Path)
	require.True(t, ok)
	assert.Equal(t, "/x", p.Template())
	assert.Equal(t, "/x", p.Pattern())
	assert.Equal(t, []string{"GET", "HEAD"}, p.Methods())
	assert.True(t, p.IsDeprecated())
	assert.True(t, p.InSchema())

	inc, ok := entries[1].(*Include)
	require.True(t, ok)
	assert.Equal(t, "/api", inc.Prefix())
	children, err := inc.ChildRoutes()
	require.NoError(t, err)
	require.Len(t, children, 1)
	assert.Equal(t, "/api/y", children[0].(*Path).Pattern())
}

func TestMustNewPanicsOnError(t *testing.T) {
	t.Parallel()
	assert.Panics(t, func() {
		MustNew(WithRoutes(Get("/x", nil)))
	})
	assert.NotPanics(t, func() {
		MustNew(WithRoutes(Get("/x", say("x"))))
	})
}
