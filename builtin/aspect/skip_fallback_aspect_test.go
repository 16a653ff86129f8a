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

package aspect

import (
	"testing"
	"time"

	"github.com/rulego/weaver/api/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSkipFallback(t *testing.T) {
	fallback := (&SkipFallback{ErrorCountLimit: 2, LimitDuration: 50 * time.Millisecond}).New().(*SkipFallback)
	chain := build(t, userSave(), fallback)
	key := userSave().Key()

	calls := 0
	failing := true
	target := func(this any, args []any) (any, error) {
		calls++
		if failing {
			return nil, errSave
		}
		return "saved", nil
	}

	for i := 0; i < 2; i++ {
		_, err := chain.Invoke(nil, nil, target)
		assert.ErrorIs(t, err, errSave)
	}
	assert.Equal(t, int64(2), fallback.ErrorCount(key))

	// circuit open: the target is skipped
	_, err := chain.Invoke(nil, nil, target)
	assert.ErrorIs(t, err, ErrFallback)
	assert.Equal(t, 2, calls)
	assert.Equal(t, int64(2), fallback.ErrorCount(key))

	// after LimitDuration one call goes through, and a success closes the circuit
	failing = false
	assert.Eventually(t, func() bool {
		result, err := chain.Invoke(nil, nil, target)
		return err == nil && result == "saved"
	}, time.Second, 20*time.Millisecond)
	assert.Equal(t, int64(0), fallback.ErrorCount(key))
}

func TestSkipFallbackValue(t *testing.T) {
	fallback := (&SkipFallback{
		ErrorCountLimit: 1,
		LimitDuration:   time.Minute,
		Fallback: func(inv types.Invocation) (any, error) {
			return "cached " + inv.JoinPoint().Member, nil
		},
	}).New().(*SkipFallback)
	assert.Equal(t, "fallback", fallback.Type())
	chain := build(t, userSave(), fallback)

	_, err := chain.Invoke(nil, nil, func(this any, args []any) (any, error) { return nil, errSave })
	require.ErrorIs(t, err, errSave)

	result, err := chain.Invoke(nil, nil, func(this any, args []any) (any, error) {
		t.Fatal("target must be skipped")
		return nil, nil
	})
	require.NoError(t, err)
	assert.Equal(t, "cached save", result)

	fallback.Reset()
	assert.Equal(t, int64(0), fallback.ErrorCount(userSave().Key()))
}
