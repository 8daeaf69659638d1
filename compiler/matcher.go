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
	"fmt"
	"strings"

	"alder.dev/router/transform"
)

// Matcher is a Template bound to resolved transformers. Matching never
// mutates the matcher, so one Matcher serves concurrent requests.
type Matcher struct {
	tpl    *Template
	codecs []transform.Transformer
}

// Template returns the template this matcher was compiled from.
func (m *Matcher) Template() *Template { return m.tpl }

// Match tests path against the whole template. On success it returns the
// typed parameter values keyed by name (nil when the template is static).
func (m *Matcher) Match(path string) (map[string]any, bool) {
	params, pos, ok := m.consume(path)
	if !ok || pos != len(path) {
		return nil, false
	}
	return params, true
}

// MatchPrefix anchors the template at the start of path and returns the
// unconsumed remainder. The consumed portion must end on a path-segment
// boundary: "/api" prefix-matches "/api/users" (remainder "/users") and
// "/api" itself (remainder "/"), but never "/apiusers". A template ending
// in "/" leaves that slash to the remainder so child templates keep their
// leading slash.
func (m *Matcher) MatchPrefix(path string) (map[string]any, string, bool) {
	params, pos, ok := m.consume(path)
	if !ok {
		return nil, "", false
	}
	if pos > 0 && path[pos-1] == '/' {
		pos--
	}
	if pos < len(path) && path[pos] != '/' {
		return nil, "", false
	}
	rest := path[pos:]
	if rest == "" {
		rest = "/"
	}
	return params, rest, true
}

// consume walks the token list against path, returning the collected typed
// parameters and how much of path was consumed.
//
// A parameter token matches text inside the current path segment: up to the
// first occurrence of the next literal run, or to the end of the segment
// when the next token starts a new segment or the template ends there. The
// "path" codec instead receives everything left, slashes included.
func (m *Matcher) consume(path string) (map[string]any, int, bool) {
	var params map[string]any
	pos := 0
	toks := m.tpl.tokens

	for ti, tok := range toks {
		if tok.param < 0 {
			if !strings.HasPrefix(path[pos:], tok.lit) {
				return nil, 0, false
			}
			pos += len(tok.lit)
			continue
		}

		spec := m.tpl.params[tok.param]
		codec := m.codecs[tok.param]

		if spec.Key == transform.KeyPath {
			v, ok := codec.Match(path[pos:])
			if !ok {
				return nil, 0, false
			}
			if params == nil {
				params = make(map[string]any, len(m.tpl.params))
			}
			params[spec.Name] = v
			pos = len(path)
			continue
		}

		segEnd := pos
		for segEnd < len(path) && path[segEnd] != '/' {
			segEnd++
		}
		end := segEnd
		if ti+1 < len(toks) {
			search := toks[ti+1].lit
			if k := strings.IndexByte(search, '/'); k >= 0 {
				search = search[:k]
			}
			if search != "" {
				rel := strings.Index(path[pos:segEnd], search)
				if rel < 0 {
					return nil, 0, false
				}
				end = pos + rel
			}
		}

		v, ok := codec.Match(path[pos:end])
		if !ok {
			return nil, 0, false
		}
		if params == nil {
			params = make(map[string]any, len(m.tpl.params))
		}
		params[spec.Name] = v
		pos = end
	}
	return params, pos, true
}

// Format renders the template with the given parameter values, the reverse
// of Match. Every template parameter needs a value; values the template
// does not mention are ignored here (callers enforce stricter contracts).
func (m *Matcher) Format(values map[string]any) (string, error) {
	var b strings.Builder
	for _, tok := range m.tpl.tokens {
		if tok.param < 0 {
			b.WriteString(tok.lit)
			continue
		}
		spec := m.tpl.params[tok.param]
		v, ok := values[spec.Name]
		if !ok {
			return "", fmt.Errorf("%w: %q in template %q", ErrMissingParam, spec.Name, m.tpl.raw)
		}
		raw, err := m.codecs[tok.param].Format(v)
		if err != nil {
			return "", fmt.Errorf("parameter %q in template %q: %w", spec.Name, m.tpl.raw, err)
		}
		b.WriteString(raw)
	}
	return b.String(), nil
}
