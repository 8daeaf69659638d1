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

// Package transform provides typed path-segment codecs for route templates.
//
// A Transformer is a bidirectional codec: Match parses a raw path segment
// into a typed value, and Format renders a typed value back into the segment
// text that Match would accept. Both directions must agree so that reverse
// URL building round-trips through matching.
//
// Transformers are looked up by key through a Registry. NewRegistry returns
// a registry pre-populated with the built-in codecs:
//
//	str       any non-empty text without "/" (the default)
//	int       non-negative base-10 integer, matched as int64
//	float     decimal number, matched as float64
//	uuid      canonical RFC 4122 form, matched as uuid.UUID
//	datetime  RFC 3339 timestamp, matched as time.Time
//	path      rest of the path including "/", matched as string
//
// Custom codecs register under their own key:
//
//	reg := transform.NewRegistry()
//	err := reg.Register("slug", slugTransformer{})
//
// A registry is plain data. Routers snapshot it at assembly time, so
// registering a key after a route tree has been built does not change what
// that tree matches.
package transform

import (
	"errors"
	"fmt"
	"slices"
)

// Errors reported by Registry operations and by the built-in codecs.
var (
	// ErrRegistered is returned by Register when the key is already taken.
	ErrRegistered = errors.New("transformer key already registered")

	// ErrUnknown is returned by Resolve for keys with no registered codec.
	ErrUnknown = errors.New("unknown transformer")

	// ErrFormat is returned by Format when a value cannot be rendered into
	// a valid path segment for the codec.
	ErrFormat = errors.New("value cannot be formatted")
)

// Transformer converts between raw path-segment text and typed values.
//
// Match reports whether raw is valid for the codec and, if so, returns the
// typed value. Format is the inverse: it renders a typed value into segment
// text. Implementations must keep the two consistent: for every value v
// accepted by Format, Match(Format(v)) must succeed and return a value equal
// to v.
type Transformer interface {
	Match(raw string) (value any, ok bool)
	Format(value any) (string, error)
}

// Registry maps transformer keys to codecs.
//
// A Registry is not safe for concurrent mutation; populate it during
// application assembly and treat it as read-only afterwards. Clone produces
// independent snapshots for consumers that outlive the original.
type Registry struct {
	codecs map[string]Transformer
}

// NewRegistry returns a registry holding the six built-in codecs.
func NewRegistry() *Registry {
	return &Registry{codecs: map[string]Transformer{
		KeyString:   stringTransformer{},
		KeyInt:      intTransformer{},
		KeyFloat:    floatTransformer{},
		KeyUUID:     uuidTransformer{},
		KeyDateTime: datetimeTransformer{},
		KeyPath:     pathTransformer{},
	}}
}

// Register adds a codec under key. It fails if the key is empty or already
// registered, or if the codec is nil. Built-in keys cannot be replaced.
func (r *Registry) Register(key string, t Transformer) error {
	if key == "" {
		return fmt.Errorf("%w: empty key", ErrRegistered)
	}
	if t == nil {
		return fmt.Errorf("%w: nil transformer for %q", ErrRegistered, key)
	}
	if _, exists := r.codecs[key]; exists {
		return fmt.Errorf("%w: %q", ErrRegistered, key)
	}
	r.codecs[key] = t
	return nil
}

// Resolve returns the codec registered under key.
func (r *Registry) Resolve(key string) (Transformer, error) {
	t, ok := r.codecs[key]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknown, key)
	}
	return t, nil
}

// Keys returns the registered keys in sorted order.
func (r *Registry) Keys() []string {
	keys := make([]string, 0, len(r.codecs))
	for k := range r.codecs {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

// Clone returns an independent copy of the registry. The codecs themselves
// are shared; they are expected to be stateless.
func (r *Registry) Clone() *Registry {
	codecs := make(map[string]Transformer, len(r.codecs))
	for k, t := range r.codecs {
		codecs[k] = t
	}
	return &Registry{codecs: codecs}
}
