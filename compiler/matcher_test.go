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

package compiler

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"alder.dev/router/transform"
)

func mustMatcher(t *testing.T, raw string) *Matcher {
	t.Helper()
	tpl, err := Parse(raw)
	require.NoError(t, err)
	m, err := tpl.Compile(transform.NewRegistry())
	require.NoError(t, err)
	return m
}

func TestMatchStatic(t *testing.T) {
	m := mustMatcher(t, "/customers/orders")

	params, ok := m.Match("/customers/orders")
	require.True(t, ok)
	assert.Nil(t, params)

	_, ok = m.Match("/customers/orders/")
	assert.False(t, ok, "trailing slash is a different path")
	_, ok = m.Match("/customers")
	assert.False(t, ok)
}

func TestMatchTypedParams(t *testing.T) {
	m := mustMatcher(t, "/customers/{customer_id:int}/files/{name}")

	params, ok := m.Match("/customers/42/files/report")
	require.True(t, ok)
	assert.Equal(t, int64(42), params["customer_id"])
	assert.Equal(t, "report", params["name"])

	_, ok = m.Match("/customers/fortytwo/files/report")
	assert.False(t, ok, "int codec must reject non-numeric text")
}

func TestMatchParamStopsAtSlash(t *testing.T) {
	m := mustMatcher(t, "/files/{name}")

	_, ok := m.Match("/files/a/b")
	assert.False(t, ok, "str parameter must not cross a segment boundary")
}

func TestMatchPathParamCrossesSlashes(t *testing.T) {
	m := mustMatcher(t, "/files/{rest:path}")

	params, ok := m.Match("/files/docs/2024/report.pdf")
	require.True(t, ok)
	assert.Equal(t, "docs/2024/report.pdf", params["rest"])

	params, ok = m.Match("/files/")
	require.True(t, ok)
	assert.Equal(t, "", params["rest"])

	_, ok = m.Match("/files")
	assert.False(t, ok, "the literal slash before the path parameter is required")
}

func TestMatchInSegmentLiteral(t *testing.T) {
	m := mustMatcher(t, "/reports/{name}.json")

	params, ok := m.Match("/reports/q1.json")
	require.True(t, ok)
	assert.Equal(t, "q1", params["name"])

	_, ok = m.Match("/reports/q1.yaml")
	assert.False(t, ok)
	_, ok = m.Match("/reports/.json")
	assert.False(t, ok, "str rejects the empty run before the literal")
}

func TestMatchPrefix(t *testing.T) {
	m := mustMatcher(t, "/api")

	params, rest, ok := m.MatchPrefix("/api/users")
	require.True(t, ok)
	assert.Nil(t, params)
	assert.Equal(t, "/users", rest)

	_, rest, ok = m.MatchPrefix("/api")
	require.True(t, ok)
	assert.Equal(t, "/", rest, "empty remainder normalizes to /")

	_, _, ok = m.MatchPrefix("/apiusers")
	assert.False(t, ok, "prefix must end on a segment boundary")

	_, _, ok = m.MatchPrefix("/v1/api")
	assert.False(t, ok, "prefix anchors at the start")
}

func TestMatchPrefixTrailingSlashTemplate(t *testing.T) {
	m := mustMatcher(t, "/api/")

	_, rest, ok := m.MatchPrefix("/api/users")
	require.True(t, ok)
	assert.Equal(t, "/users", rest, "the boundary slash stays with the remainder")
}

func TestMatchPrefixRoot(t *testing.T) {
	m := mustMatcher(t, "/")

	_, rest, ok := m.MatchPrefix("/anything/below")
	require.True(t, ok)
	assert.Equal(t, "/anything/below", rest)
}

func TestFormatRoundTrip(t *testing.T) {
	m := mustMatcher(t, "/customers/{customer_id:int}/files/{name}")

	path, err := m.Format(map[string]any{"customer_id": int64(42), "name": "report"})
	require.NoError(t, err)
	assert.Equal(t, "/customers/42/files/report", path)

	params, ok := m.Match(path)
	require.True(t, ok)
	assert.Equal(t, int64(42), params["customer_id"])
	assert.Equal(t, "report", params["name"])
}

func TestFormatMissingParam(t *testing.T) {
	m := mustMatcher(t, "/customers/{customer_id:int}")

	_, err := m.Format(map[string]any{})
	assert.ErrorIs(t, err, ErrMissingParam)
}

func TestFormatBadValue(t *testing.T) {
	m := mustMatcher(t, "/customers/{customer_id:int}")

	_, err := m.Format(map[string]any{"customer_id": "not-a-number"})
	assert.ErrorIs(t, err, transform.ErrFormat)
}
