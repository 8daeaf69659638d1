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
	"errors"
	"fmt"
	"strings"

	"alder.dev/router/compiler"
	"alder.dev/router/transform"
)

// reverseEntry can rebuild the full path of one named route: the leaf
// matcher formats the template and prefix carries the literal text of every
// enclosing include.
type reverseEntry struct {
	prefix  string
	pattern string
	matcher *compiler.Matcher
}

func (e reverseEntry) format(params Params) (string, error) {
	declared := e.matcher.Template().Params()
	known := make(map[string]struct{}, len(declared))
	for _, spec := range declared {
		known[spec.Name] = struct{}{}
	}
	for name := range params {
		if _, ok := known[name]; !ok {
			return "", fmt.Errorf("%w: %q not in template %q", ErrUnexpectedRouteParameter, name, e.pattern)
		}
	}
	path, err := e.matcher.Format(map[string]any(params))
	if err != nil {
		switch {
		case errors.Is(err, compiler.ErrMissingParam):
			return "", fmt.Errorf("%w: %w", ErrMissingRouteParameter, err)
		case errors.Is(err, transform.ErrFormat):
			return "", fmt.Errorf("%w: %w", ErrParameterFormat, err)
		}
		return "", err
	}
	return e.prefix + path, nil
}

// reverseForward routes lookups for a delegated sub-router: keys under
// keyPrefix are answered by child, with prefix prepended to its result.
type reverseForward struct {
	keyPrefix string
	prefix    string
	child     *Router
}

func (r *Router) addReverse(key, prefix, template string, m *compiler.Matcher) error {
	r.revMu.Lock()
	defer r.revMu.Unlock()
	if _, dup := r.reverse[key]; dup {
		return fmt.Errorf("%w: %w: %q", ErrConfiguration, ErrDuplicateName, key)
	}
	r.reverse[key] = reverseEntry{prefix: prefix, pattern: prefix + template, matcher: m}
	return nil
}

func (r *Router) addForward(keyPrefix, prefix string, child *Router) {
	r.revMu.Lock()
	defer r.revMu.Unlock()
	r.forwards = append(r.forwards, reverseForward{keyPrefix: keyPrefix, prefix: prefix, child: child})
}

// Reverse builds the path for a named route. Names compose through named
// includes with ":", so a route "detail" inside an include "admin" is looked
// up as "admin:detail". Every parameter the template declares must be
// present in params with a value its transformer can format, and params may
// not carry names the template does not declare.
//
// When the name is not found and lazy providers remain unresolved, they are
// resolved before the lookup is retried once.
//
// Example:
//
//	path, err := r.Reverse("admin:user", router.Params{"id": int64(42)})
//	// path == "/admin/users/42"
func (r *Router) Reverse(name string, params Params) (string, error) {
	path, err, ok := r.reverseLookup(name, params)
	if ok {
		return path, err
	}
	if r.hasLazy {
		r.resolveAllLazy()
		if path, err, ok = r.reverseLookup(name, params); ok {
			return path, err
		}
	}
	return "", fmt.Errorf("%w: %q", ErrRouteNotFound, name)
}

// reverseLookup tries the local table and then the delegated sub-routers.
// ok reports whether the name was authoritatively answered, success or not.
func (r *Router) reverseLookup(name string, params Params) (string, error, bool) {
	r.revMu.RLock()
	entry, found := r.reverse[name]
	forwards := r.forwards
	r.revMu.RUnlock()

	if found {
		path, err := entry.format(params)
		return path, err, true
	}
	for _, f := range forwards {
		var childName string
		switch {
		case f.keyPrefix == "":
			childName = name
		case strings.HasPrefix(name, f.keyPrefix+":"):
			childName = name[len(f.keyPrefix)+1:]
		default:
			continue
		}
		path, err := f.child.Reverse(childName, params)
		if err == nil {
			return f.prefix + path, nil, true
		}
		if !errors.Is(err, ErrRouteNotFound) {
			return "", err, true
		}
	}
	return "", nil, false
}

// resolveAllLazy forces every unresolved lazy provider in the tree,
// recursing into children as they appear. Resolution failures are left for
// dispatch to report.
func (r *Router) resolveAllLazy() {
	var walk func(routes []Route)
	walk = func(routes []Route) {
		for _, rt := range routes {
			switch n := rt.(type) {
			case *Include:
				if children, err := n.routes(); err == nil {
					walk(children)
				}
			case *Host:
				if children, err := n.routes(); err == nil {
					walk(children)
				}
			}
		}
	}
	walk(r.entries)
}
