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

func TestParseLiteralOnly(t *testing.T) {
	tpl, err := Parse("/customers/orders")
	require.NoError(t, err)

	assert.Equal(t, "/customers/orders", tpl.String())
	assert.True(t, tpl.Static())
	assert.Empty(t, tpl.Params())
}

func TestParseParams(t *testing.T) {
	tpl, err := Parse("/customers/{customer_id:int}/files/{name}")
	require.NoError(t, err)

	assert.False(t, tpl.Static())
	assert.Equal(t, []ParamSpec{
		{Name: "customer_id", Key: "int"},
		{Name: "name", Key: "str"},
	}, tpl.Params())
}

func TestParseAngleBracketsEquivalent(t *testing.T) {
	curly, err := Parse("/customers/{customer_id:int}")
	require.NoError(t, err)
	angle, err := Parse("/customers/<customer_id:int>")
	require.NoError(t, err)

	assert.Equal(t, curly.Params(), angle.Params())

	reg := transform.NewRegistry()
	cm, err := curly.Compile(reg)
	require.NoError(t, err)
	am, err := angle.Compile(reg)
	require.NoError(t, err)

	cp, ok := cm.Match("/customers/42")
	require.True(t, ok)
	ap, ok := am.Match("/customers/42")
	require.True(t, ok)
	assert.Equal(t, cp, ap)
}

func TestParseSyntaxErrors(t *testing.T) {
	cases := []struct {
		name string
		raw  string
		want error
	}{
		{"empty", "", ErrEmptyTemplate},
		{"unclosed curly", "/a/{id", ErrSyntax},
		{"unclosed angle", "/a/<id", ErrSyntax},
		{"unmatched closer", "/a/id}", ErrSyntax},
		{"nested brackets", "/a/{id{x}}", ErrSyntax},
		{"empty name", "/a/{}", ErrSyntax},
		{"bad name", "/a/{user-id}", ErrSyntax},
		{"digit-led name", "/a/{1st}", ErrSyntax},
		{"empty key", "/a/{id:}", ErrSyntax},
		{"adjacent params", "/a/{x}{y}", ErrSyntax},
		{"duplicate param", "/a/{id}/b/{id:int}", ErrDuplicateParam},
		{"path not last", "/files/{rest:path}/x", ErrPathNotLast},
		{"path before param", "/files/{rest:path}/v/{x}", ErrPathNotLast},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Parse(tc.raw)
			assert.ErrorIs(t, err, tc.want)
		})
	}
}

func TestParsePathTerminalAllowed(t *testing.T) {
	tpl, err := Parse("/files/{rest:path}")
	require.NoError(t, err)
	assert.Equal(t, []ParamSpec{{Name: "rest", Key: "path"}}, tpl.Params())
}

func TestCompileUnknownTransformer(t *testing.T) {
	tpl, err := Parse("/a/{id:slug}")
	require.NoError(t, err)

	_, err = tpl.Compile(transform.NewRegistry())
	assert.ErrorIs(t, err, transform.ErrUnknown)
}

func TestCompileCustomTransformer(t *testing.T) {
	reg := transform.NewRegistry()
	require.NoError(t, reg.Register("digitpair", pairTransformer{}))

	tpl, err := Parse("/a/{code:digitpair}")
	require.NoError(t, err)
	m, err := tpl.Compile(reg)
	require.NoError(t, err)

	params, ok := m.Match("/a/42")
	require.True(t, ok)
	assert.Equal(t, "42", params["code"])

	_, ok = m.Match("/a/123")
	assert.False(t, ok)
}

// pairTransformer matches exactly two digits.
type pairTransformer struct{}

func (pairTransformer) Match(raw string) (any, bool) {
	if len(raw) != 2 || raw[0] < '0' || raw[0] > '9' || raw[1] < '0' || raw[1] > '9' {
		return nil, false
	}
	return raw, true
}

func (pairTransformer) Format(value any) (string, error) {
	return value.(string), nil
}
