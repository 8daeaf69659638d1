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
	"maps"
	"net"
	"net/http"
	"slices"
	"strings"
)

// matchSignal is what a Route.match reports back to the scan loop.
//
// sigNone means the node did not structurally claim the path; scanning
// continues with the next sibling. A leaf that matched the path but not the
// method reports sigNone after recording its methods, so later siblings can
// still win and the Allow set accumulates across all of them.
//
// sigMatched means a leaf matched and st.leaf is set.
//
// sigCommitted means a container matched the path structurally and dispatch
// is confined to its branch: whatever state was accumulated is final, and no
// later sibling is consulted.
type matchSignal int

const (
	sigNone matchSignal = iota
	sigMatched
	sigCommitted
)

// matchState travels through one scan of the route tree.
type matchState struct {
	method  string
	host    string
	upgrade bool

	allowed map[string]struct{}
	leaf    *leafMatch
	err     error
}

func (st *matchState) allow(methods map[string]struct{}) {
	if st.allowed == nil {
		st.allowed = make(map[string]struct{}, len(methods))
	}
	for m := range methods {
		st.allowed[m] = struct{}{}
	}
}

// leafMatch is the dispatch target produced by a successful scan.
type leafMatch struct {
	handler   http.Handler
	params    map[string]any
	pattern   string
	name      string
	rest      string
	delegated bool
}

// OutcomeKind classifies a match attempt.
type OutcomeKind int

const (
	// OutcomeNotFound means no route claimed the path.
	OutcomeNotFound OutcomeKind = iota

	// OutcomeMatched means a route claimed path and method.
	OutcomeMatched

	// OutcomeMethodNotAllowed means at least one route claimed the path but
	// none accepted the method.
	OutcomeMethodNotAllowed

	// OutcomeRedirect means the path with its trailing slash toggled would
	// match, and redirecting there was requested.
	OutcomeRedirect
)

// String returns a stable lowercase label for the outcome.
func (k OutcomeKind) String() string {
	switch k {
	case OutcomeMatched:
		return "matched"
	case OutcomeMethodNotAllowed:
		return "method_not_allowed"
	case OutcomeRedirect:
		return "redirect"
	default:
		return "not_found"
	}
}

// MatchResult describes how the router resolves a request line.
type MatchResult struct {
	// Kind classifies the outcome; the remaining fields are populated
	// according to it.
	Kind OutcomeKind

	// Params holds the captured path parameters for OutcomeMatched.
	Params Params

	// Pattern is the matched route's full template for OutcomeMatched, or
	// the container's prefix when dispatch was delegated.
	Pattern string

	// Name is the matched route's lookup name, or "".
	Name string

	// Allowed lists the methods the path would accept, sorted, for
	// OutcomeMethodNotAllowed.
	Allowed []string

	// Location is the redirect target path for OutcomeRedirect.
	Location string
}

// Match resolves a request line against the routing tree without invoking
// any handler. Host may be empty when no Host routes are declared. The error
// is non-nil only when a lazy route provider fails to resolve.
//
// Example:
//
//	res, err := r.Match(http.MethodGet, "/articles/7", "")
//	if err == nil && res.Kind == router.OutcomeMatched {
//		fmt.Println(res.Pattern, res.Params)
//	}
func (r *Router) Match(method, path, host string) (MatchResult, error) {
	if path == "" {
		path = "/"
	}
	res, _, err := r.resolve(strings.ToUpper(method), path, host, false)
	return res, err
}

// resolve runs the scan and folds the accumulated state into an outcome,
// applying the trailing-slash retry when the first scan found nothing.
func (r *Router) resolve(method, path, host string, upgrade bool) (MatchResult, *leafMatch, error) {
	st := &matchState{method: method, host: normalizeHost(host), upgrade: upgrade}
	r.scan(st, path)
	if st.err != nil {
		return MatchResult{}, nil, st.err
	}
	if st.leaf != nil {
		return MatchResult{
			Kind:    OutcomeMatched,
			Params:  st.leaf.params,
			Pattern: st.leaf.pattern,
			Name:    st.leaf.name,
		}, st.leaf, nil
	}
	if len(st.allowed) > 0 {
		return MatchResult{
			Kind:    OutcomeMethodNotAllowed,
			Allowed: slices.Sorted(maps.Keys(st.allowed)),
		}, nil, nil
	}
	if r.redirectSlash {
		if alt, ok := toggleSlash(path); ok {
			retry := &matchState{method: method, host: st.host, upgrade: upgrade}
			r.scan(retry, alt)
			if retry.err == nil && retry.leaf != nil {
				return MatchResult{Kind: OutcomeRedirect, Location: alt}, nil, nil
			}
		}
	}
	return MatchResult{Kind: OutcomeNotFound}, nil, nil
}

// scan walks the top-level entries in declaration order until one matches or
// commits.
func (r *Router) scan(st *matchState, path string) {
	for _, entry := range r.entries {
		switch entry.match(st, path) {
		case sigMatched, sigCommitted:
			return
		}
	}
}

// toggleSlash returns the path with exactly one trailing slash added or
// removed. The root path has no alternative.
func toggleSlash(path string) (string, bool) {
	if path == "/" || path == "" {
		return "", false
	}
	if strings.HasSuffix(path, "/") {
		return path[:len(path)-1], true
	}
	return path + "/", true
}

// normalizeHost lowercases a Host header value and strips any port,
// including the bracketed IPv6 form.
func normalizeHost(host string) string {
	if host == "" {
		return ""
	}
	if h, _, err := net.SplitHostPort(host); err == nil {
		host = h
	}
	host = strings.TrimPrefix(host, "[")
	host = strings.TrimSuffix(host, "]")
	return strings.ToLower(host)
}
