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

// Package compiler parses route templates and builds path matchers.
//
// A template mixes literal text with parameter tokens. Two bracket forms are
// accepted and parse identically:
//
//	/customers/{customer_id:int}/orders
//	/customers/<customer_id:int>/orders
//
// A parameter without a type uses the default "str" codec. Parameter names
// must be unique within one template, and a "path"-typed parameter captures
// the rest of the path (slashes included), so it must be the final token.
//
// Parsing is purely syntactic. Transformer keys are resolved later, when a
// Template is compiled against a transform.Registry snapshot, which is where
// unknown keys are reported.
package compiler

import (
	"errors"
	"fmt"
	"strings"

	"alder.dev/router/transform"
)

// Errors reported while parsing or compiling templates.
var (
	// ErrEmptyTemplate is returned by Parse for the empty string.
	ErrEmptyTemplate = errors.New("empty template")

	// ErrSyntax is returned for structurally malformed templates:
	// unbalanced brackets, bad parameter names, adjacent parameters with no
	// literal text between them.
	ErrSyntax = errors.New("malformed template")

	// ErrDuplicateParam is returned when a parameter name repeats within
	// one template.
	ErrDuplicateParam = errors.New("duplicate parameter name")

	// ErrPathNotLast is returned when a "path"-typed parameter is followed
	// by further template text.
	ErrPathNotLast = errors.New("path parameter must terminate the template")

	// ErrMissingParam is returned by Matcher.Format when a template
	// parameter has no value.
	ErrMissingParam = errors.New("missing template parameter")
)

// ParamSpec describes one parameter token: its name and the transformer key
// it resolves through ("str" when the template gave no type).
type ParamSpec struct {
	Name string
	Key  string
}

// token is either a literal run (param == -1) or a parameter reference.
type token struct {
	lit   string
	param int
}

// Template is a parsed route template. It is immutable once parsed.
type Template struct {
	raw    string
	tokens []token
	params []ParamSpec
}

// Parse tokenizes a route template. It validates syntax only; transformer
// keys are checked by Compile.
func Parse(raw string) (*Template, error) {
	if raw == "" {
		return nil, ErrEmptyTemplate
	}

	t := &Template{raw: raw}
	var lit strings.Builder
	flush := func() {
		if lit.Len() > 0 {
			t.tokens = append(t.tokens, token{lit: lit.String(), param: -1})
			lit.Reset()
		}
	}

	i := 0
	for i < len(raw) {
		c := raw[i]
		switch c {
		case '{', '<':
			closer := byte('}')
			if c == '<' {
				closer = '>'
			}
			rel := strings.IndexByte(raw[i+1:], closer)
			if rel < 0 {
				return nil, fmt.Errorf("%w: unclosed %q in %q", ErrSyntax, string(c), raw)
			}
			inner := raw[i+1 : i+1+rel]
			if strings.ContainsAny(inner, "{<}>") {
				return nil, fmt.Errorf("%w: nested brackets in %q", ErrSyntax, raw)
			}
			name, key := inner, transform.KeyString
			if j := strings.IndexByte(inner, ':'); j >= 0 {
				name, key = inner[:j], inner[j+1:]
			}
			if !isIdent(name) {
				return nil, fmt.Errorf("%w: bad parameter name %q in %q", ErrSyntax, name, raw)
			}
			if !isIdent(key) {
				return nil, fmt.Errorf("%w: bad transformer key %q in %q", ErrSyntax, key, raw)
			}
			for _, p := range t.params {
				if p.Name == name {
					return nil, fmt.Errorf("%w: %q in %q", ErrDuplicateParam, name, raw)
				}
			}
			if n := len(t.tokens); lit.Len() == 0 && n > 0 && t.tokens[n-1].param >= 0 {
				return nil, fmt.Errorf("%w: parameters %q and %q need literal text between them",
					ErrSyntax, t.params[t.tokens[n-1].param].Name, name)
			}
			flush()
			t.params = append(t.params, ParamSpec{Name: name, Key: key})
			t.tokens = append(t.tokens, token{param: len(t.params) - 1})
			i += rel + 2
		case '}', '>':
			return nil, fmt.Errorf("%w: unmatched %q in %q", ErrSyntax, string(c), raw)
		default:
			lit.WriteByte(c)
			i++
		}
	}
	flush()

	for ti, tok := range t.tokens {
		if tok.param >= 0 && t.params[tok.param].Key == transform.KeyPath && ti != len(t.tokens)-1 {
			return nil, fmt.Errorf("%w: %q", ErrPathNotLast, raw)
		}
	}
	return t, nil
}

// isIdent reports whether s is a non-empty run of letters, digits and
// underscores not starting with a digit.
func isIdent(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c == '_':
		case c >= '0' && c <= '9':
			if i == 0 {
				return false
			}
		default:
			return false
		}
	}
	return true
}

// String returns the template exactly as it was parsed.
func (t *Template) String() string { return t.raw }

// Params returns the parameter specs in template order.
func (t *Template) Params() []ParamSpec {
	out := make([]ParamSpec, len(t.params))
	copy(out, t.params)
	return out
}

// Static reports whether the template has no parameters.
func (t *Template) Static() bool { return len(t.params) == 0 }

// Compile resolves the template's transformer keys against reg and returns
// a Matcher. Unknown keys fail here so that a bad template is caught at
// assembly time rather than on a request.
func (t *Template) Compile(reg *transform.Registry) (*Matcher, error) {
	codecs := make([]transform.Transformer, len(t.params))
	for i, p := range t.params {
		tr, err := reg.Resolve(p.Key)
		if err != nil {
			return nil, fmt.Errorf("template %q: %w", t.raw, err)
		}
		codecs[i] = tr
	}
	return &Matcher{tpl: t, codecs: codecs}, nil
}
