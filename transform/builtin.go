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

package transform

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Keys of the built-in codecs.
const (
	KeyString   = "str"
	KeyInt      = "int"
	KeyFloat    = "float"
	KeyUUID     = "uuid"
	KeyDateTime = "datetime"
	KeyPath     = "path"
)

// stringTransformer is the default codec: any non-empty text that stays
// inside a single path segment.
type stringTransformer struct{}

func (stringTransformer) Match(raw string) (any, bool) {
	if raw == "" || strings.ContainsRune(raw, '/') {
		return nil, false
	}
	return raw, true
}

func (stringTransformer) Format(value any) (string, error) {
	var s string
	switch v := value.(type) {
	case string:
		s = v
	case fmt.Stringer:
		s = v.String()
	default:
		return "", fmt.Errorf("%w: str wants string, got %T", ErrFormat, value)
	}
	if s == "" || strings.ContainsRune(s, '/') {
		return "", fmt.Errorf("%w: %q is not a single path segment", ErrFormat, s)
	}
	return s, nil
}

// intTransformer matches non-negative base-10 integers. Values are int64.
type intTransformer struct{}

func (intTransformer) Match(raw string) (any, bool) {
	if raw == "" {
		return nil, false
	}
	for i := 0; i < len(raw); i++ {
		if raw[i] < '0' || raw[i] > '9' {
			return nil, false
		}
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return nil, false
	}
	return v, true
}

func (intTransformer) Format(value any) (string, error) {
	var v int64
	switch n := value.(type) {
	case int:
		v = int64(n)
	case int8:
		v = int64(n)
	case int16:
		v = int64(n)
	case int32:
		v = int64(n)
	case int64:
		v = n
	case uint:
		v = int64(n)
	case uint8:
		v = int64(n)
	case uint16:
		v = int64(n)
	case uint32:
		v = int64(n)
	case uint64:
		if n > math.MaxInt64 {
			return "", fmt.Errorf("%w: %d overflows int64", ErrFormat, n)
		}
		v = int64(n)
	default:
		return "", fmt.Errorf("%w: int wants an integer, got %T", ErrFormat, value)
	}
	if v < 0 {
		return "", fmt.Errorf("%w: int segment cannot be negative (%d)", ErrFormat, v)
	}
	return strconv.FormatInt(v, 10), nil
}

// floatTransformer matches non-negative decimal numbers without exponent
// syntax. Values are float64.
type floatTransformer struct{}

func (floatTransformer) Match(raw string) (any, bool) {
	if raw == "" {
		return nil, false
	}
	dot := false
	for i := 0; i < len(raw); i++ {
		c := raw[i]
		if c == '.' {
			if dot || i == 0 || i == len(raw)-1 {
				return nil, false
			}
			dot = true
			continue
		}
		if c < '0' || c > '9' {
			return nil, false
		}
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return nil, false
	}
	return v, true
}

func (floatTransformer) Format(value any) (string, error) {
	var v float64
	switch n := value.(type) {
	case float32:
		v = float64(n)
	case float64:
		v = n
	case int:
		v = float64(n)
	case int64:
		v = float64(n)
	default:
		return "", fmt.Errorf("%w: float wants a number, got %T", ErrFormat, value)
	}
	if v < 0 || math.IsNaN(v) || math.IsInf(v, 0) {
		return "", fmt.Errorf("%w: float segment must be a non-negative number (%g)", ErrFormat, v)
	}
	return strconv.FormatFloat(v, 'f', -1, 64), nil
}

// uuidTransformer matches the canonical 36-character RFC 4122 form.
type uuidTransformer struct{}

func (uuidTransformer) Match(raw string) (any, bool) {
	if len(raw) != 36 {
		return nil, false
	}
	v, err := uuid.Parse(raw)
	if err != nil {
		return nil, false
	}
	return v, true
}

func (uuidTransformer) Format(value any) (string, error) {
	switch v := value.(type) {
	case uuid.UUID:
		return v.String(), nil
	case string:
		parsed, err := uuid.Parse(v)
		if err != nil {
			return "", fmt.Errorf("%w: %q is not a UUID", ErrFormat, v)
		}
		return parsed.String(), nil
	default:
		return "", fmt.Errorf("%w: uuid wants uuid.UUID or string, got %T", ErrFormat, value)
	}
}

// datetimeTransformer matches RFC 3339 timestamps. Values are time.Time.
type datetimeTransformer struct{}

func (datetimeTransformer) Match(raw string) (any, bool) {
	v, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return nil, false
	}
	return v, true
}

func (datetimeTransformer) Format(value any) (string, error) {
	switch v := value.(type) {
	case time.Time:
		return v.Format(time.RFC3339), nil
	case string:
		if _, err := time.Parse(time.RFC3339, v); err != nil {
			return "", fmt.Errorf("%w: %q is not RFC 3339", ErrFormat, v)
		}
		return v, nil
	default:
		return "", fmt.Errorf("%w: datetime wants time.Time or string, got %T", ErrFormat, value)
	}
}

// pathTransformer matches the remainder of a path, slashes included. The
// empty remainder is valid, so a template like "/files/{name:path}" accepts
// "/files/".
type pathTransformer struct{}

func (pathTransformer) Match(raw string) (any, bool) {
	return raw, true
}

func (pathTransformer) Format(value any) (string, error) {
	s, ok := value.(string)
	if !ok {
		return "", fmt.Errorf("%w: path wants string, got %T", ErrFormat, value)
	}
	return s, nil
}
