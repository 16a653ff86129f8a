/*
 * Copyright 2025 The RuleGo Authors.
 *
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

package engine

import (
	"testing"

	"github.com/rulego/weaver/api/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIndexFreeze(t *testing.T) {
	index := NewIndex()
	before := mustAdvice(t, 0, 0, "A", types.PhaseBefore, func(types.Invocation) error { return nil })
	require.NoError(t, index.Add(before))
	assert.False(t, index.Frozen())

	index.Freeze()
	assert.True(t, index.Frozen())
	assert.ErrorIs(t, index.Add(before), types.ErrRegistryFrozen)
	assert.Equal(t, 1, index.Len())
	assert.Error(t, NewIndex().Add(nil))
}

func TestIndexMatching(t *testing.T) {
	index := NewIndex()
	around := mustAdvice(t, 1, 0, "B", types.PhaseAround, func(types.Invocation) (any, error) { return nil, nil })
	before := mustAdvice(t, 0, 1, "A", types.PhaseBefore, func(types.Invocation) error { return nil })
	throwing := mustAdvice(t, 0, 2, "A", types.PhaseAfterThrowing, func(types.Invocation, error) (any, error) { return nil, nil })
	other, err := types.NewAdvice(&testAspect{name: "C"}, types.PhaseBefore, typeCut{typ: `App\Other`}, "", func(types.Invocation) error { return nil })
	require.NoError(t, err)
	require.NoError(t, index.Add(around, before, throwing, other))

	assert.Equal(t, []*types.Advice{throwing, before, around}, index.Matching(fooSave))
	assert.Equal(t, []*types.Advice{around, before, throwing, other}, index.Advices())
}
