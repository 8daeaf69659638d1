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
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParamsTypedAccessors(t *testing.T) {
	t.Parallel()
	id := uuid.MustParse("8f14e45f-ceea-467f-a34e-daeb5b3b1f5b")
	when := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	p := Params{
		"name":  "report",
		"count": int64(3),
		"ratio": 0.25,
		"ref":   id,
		"at":    when,
	}

	name, err := p.String("name")
	require.NoError(t, err)
	assert.Equal(t, "report", name)

	count, err := p.Int("count")
	require.NoError(t, err)
	assert.Equal(t, int64(3), count)

	ratio, err := p.Float("ratio")
	require.NoError(t, err)
	assert.Equal(t, 0.25, ratio)

	ref, err := p.UUID("ref")
	require.NoError(t, err)
	assert.Equal(t, id, ref)

	at, err := p.Time("at")
	require.NoError(t, err)
	assert.True(t, when.Equal(at))

	raw, ok := p.Get("name")
	assert.True(t, ok)
	assert.Equal(t, "report", raw)
	_, ok = p.Get("absent")
	assert.False(t, ok)
}

func TestParamsAccessorErrors(t *testing.T) {
	t.Parallel()
	p := Params{"count": int64(3)}

	_, err := p.Int("absent")
	assert.ErrorIs(t, err, ErrParamMissing)

	_, err = p.String("count")
	assert.ErrorIs(t, err, ErrParamInvalid)

	_, err = p.Float("count")
	assert.ErrorIs(t, err, ErrParamInvalid)

	_, err = p.UUID("count")
	assert.ErrorIs(t, err, ErrParamInvalid)

	_, err = p.Time("count")
	assert.ErrorIs(t, err, ErrParamInvalid)
}

func TestParamsFromContext(t *testing.T) {
	t.Parallel()
	assert.Nil(t, ParamsFrom(context.Background()))

	ctx := withParams(context.Background(), Params{"x": "y"})
	p := ParamsFrom(ctx)
	require.NotNil(t, p)
	val, err := p.String("x")
	require.NoError(t, err)
	assert.Equal(t, "y", val)
}
