/*
 * Copyright 2025 tomoncle.
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package types_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tomoncle/hummer-ddd/types"
)

func TestNewPagedRequest(t *testing.T) {
	p := types.NewPagedRequest(3, 20, "name desc")
	assert.Equal(t, 40, p.SkipCount)
	assert.Equal(t, 20, p.MaxResultCount)
	assert.Equal(t, "name desc", p.Sorting)
	assert.Equal(t, 3, p.Page())

	p = types.NewPagedRequest(0, 0, "")
	assert.Equal(t, 0, p.SkipCount)
	assert.Equal(t, types.DefaultMaxResultCount, p.MaxResultCount)
}

func TestPagedRequestNormalize(t *testing.T) {
	p := types.PagedRequest{SkipCount: -5, MaxResultCount: 5000}.Normalize()
	assert.Equal(t, 0, p.SkipCount)
	assert.Equal(t, types.MaxMaxResultCount, p.MaxResultCount)

	p = types.PagedRequest{SkipCount: 7}.Normalize()
	assert.Equal(t, 7, p.SkipCount)
	assert.Equal(t, types.DefaultMaxResultCount, p.MaxResultCount)
}

func TestNewPagedResult(t *testing.T) {
	r := types.NewPagedResult[int](0, nil)
	assert.NotNil(t, r.Items)
	assert.Zero(t, r.TotalCount)
}

func TestExtraProperties(t *testing.T) {
	props := types.ExtraProperties{"color": "red"}
	value, err := props.Value()
	require.NoError(t, err)

	var scanned types.ExtraProperties
	require.NoError(t, scanned.Scan(value))
	assert.Equal(t, "red", scanned.String("color"))
	_, ok := scanned.Get("size")
	assert.False(t, ok)

	require.NoError(t, scanned.Scan([]byte(`{"size":3}`)))
	size, ok := scanned.Get("size")
	assert.True(t, ok)
	assert.Equal(t, float64(3), size)

	require.NoError(t, scanned.Scan(nil))
	assert.Empty(t, scanned)
	assert.Error(t, scanned.Scan(42))

	var empty types.ExtraProperties
	value, err = empty.Value()
	require.NoError(t, err)
	assert.Nil(t, value)
}
