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
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
)

// Params holds the path parameters captured while matching a request, keyed
// by parameter name. Values carry the native type produced by the parameter's
// transformer: int64 for "int", float64 for "float", uuid.UUID for "uuid",
// time.Time for "datetime", and string for "str" and "path".
type Params map[string]any

type paramsKey struct{}

// withParams returns a context carrying p.
func withParams(ctx context.Context, p Params) context.Context {
	return context.WithValue(ctx, paramsKey{}, p)
}

// ParamsFrom returns the path parameters stored in ctx, or nil when the
// context does not belong to a matched request.
func ParamsFrom(ctx context.Context) Params {
	p, _ := ctx.Value(paramsKey{}).(Params)
	return p
}

// RequestParams is shorthand for ParamsFrom(r.Context()).
//
// Example:
//
//	func show(w http.ResponseWriter, r *http.Request) {
//		id, err := router.RequestParams(r).Int("id")
//		if err != nil {
//			http.Error(w, err.Error(), http.StatusBadRequest)
//			return
//		}
//		fmt.Fprintf(w, "item %d", id)
//	}
func RequestParams(r *http.Request) Params {
	return ParamsFrom(r.Context())
}

// Get returns the raw captured value for name.
func (p Params) Get(name string) (any, bool) {
	v, ok := p[name]
	return v, ok
}

// String returns the parameter as a string. It accepts captures from the
// "str" and "path" transformers.
func (p Params) String(name string) (string, error) {
	v, ok := p[name]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrParamMissing, name)
	}
	s, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("%w: %q holds %T, not string", ErrParamInvalid, name, v)
	}
	return s, nil
}

// Int returns the parameter as an int64, as captured by the "int"
// transformer.
func (p Params) Int(name string) (int64, error) {
	v, ok := p[name]
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrParamMissing, name)
	}
	n, ok := v.(int64)
	if !ok {
		return 0, fmt.Errorf("%w: %q holds %T, not int64", ErrParamInvalid, name, v)
	}
	return n, nil
}

// Float returns the parameter as a float64, as captured by the "float"
// transformer.
func (p Params) Float(name string) (float64, error) {
	v, ok := p[name]
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrParamMissing, name)
	}
	f, ok := v.(float64)
	if !ok {
		return 0, fmt.Errorf("%w: %q holds %T, not float64", ErrParamInvalid, name, v)
	}
	return f, nil
}

// UUID returns the parameter as a uuid.UUID, as captured by the "uuid"
// transformer.
func (p Params) UUID(name string) (uuid.UUID, error) {
	v, ok := p[name]
	if !ok {
		return uuid.UUID{}, fmt.Errorf("%w: %q", ErrParamMissing, name)
	}
	id, ok := v.(uuid.UUID)
	if !ok {
		return uuid.UUID{}, fmt.Errorf("%w: %q holds %T, not uuid.UUID", ErrParamInvalid, name, v)
	}
	return id, nil
}

// Time returns the parameter as a time.Time, as captured by the "datetime"
// transformer.
func (p Params) Time(name string) (time.Time, error) {
	v, ok := p[name]
	if !ok {
		return time.Time{}, fmt.Errorf("%w: %q", ErrParamMissing, name)
	}
	t, ok := v.(time.Time)
	if !ok {
		return time.Time{}, fmt.Errorf("%w: %q holds %T, not time.Time", ErrParamInvalid, name, v)
	}
	return t, nil
}
