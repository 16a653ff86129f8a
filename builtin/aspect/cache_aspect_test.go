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
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rulego/weaver/api/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestCache(t *testing.T) {
	c := (&Cache{}).New().(*Cache)
	defer c.Close()
	chain := build(t, userSave(), c)
	require.Equal(t, 1, chain.Len())

	var calls atomic.Int32
	target := func(this any, args []any) (any, error) {
		calls.Add(1)
		if args[0] == "fail" {
			return nil, errSave
		}
		return "user " + args[0].(string), nil
	}

	for i := 0; i < 3; i++ {
		result, err := chain.Invoke(nil, []any{"bob"}, target)
		require.NoError(t, err)
		assert.Equal(t, "user bob", result)
	}
	assert.Equal(t, int32(1), calls.Load())

	_, _ = chain.Invoke(nil, []any{"ann"}, target)
	assert.Equal(t, int32(2), calls.Load())

	// failures are not cached
	for i := 0; i < 2; i++ {
		_, err := chain.Invoke(nil, []any{"fail"}, target)
		assert.ErrorIs(t, err, errSave)
	}
	assert.Equal(t, int32(4), calls.Load())

	// arguments that cannot be encoded bypass the cache
	_, _ = chain.Invoke(nil, []any{"bob", func() {}}, target)
	assert.Equal(t, int32(5), calls.Load())

	assert.Equal(t, 2, c.Evict(userSave().Key()))
	_, _ = chain.Invoke(nil, []any{"bob"}, target)
	assert.Equal(t, int32(6), calls.Load())
	assert.Equal(t, 1, c.Clear())
}

func TestCacheNotAnnotated(t *testing.T) {
	jp := userSave()
	jp.Annotations = nil
	assert.True(t, build(t, jp, &Cache{}).Empty())
	assert.False(t, build(t, jp, &Cache{Pointcut: AnyPointcut}).Empty())
}

func TestCacheConcurrentFirstCall(t *testing.T) {
	c := &Cache{}
	chain := build(t, userSave(), c)
	var calls atomic.Int32
	release := make(chan struct{})
	target := func(this any, args []any) (any, error) {
		calls.Add(1)
		<-release
		return "v", nil
	}
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			result, err := chain.Invoke(nil, []any{"k"}, target)
			assert.NoError(t, err)
			assert.Equal(t, "v", result)
		}()
	}
	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()
	assert.Equal(t, int32(1), calls.Load())
}

func TestCacheTTL(t *testing.T) {
	defer goleak.VerifyNone(t)
	c := &Cache{TTL: 20 * time.Millisecond}
	chain := build(t, userSave(), c)
	var calls atomic.Int32
	target := func(this any, args []any) (any, error) {
		calls.Add(1)
		return nil, nil
	}
	_, _ = chain.Invoke(nil, []any{types.Public}, target)
	_, _ = chain.Invoke(nil, []any{types.Public}, target)
	assert.Equal(t, int32(1), calls.Load())
	assert.Eventually(t, func() bool {
		_, _ = chain.Invoke(nil, []any{types.Public}, target)
		return calls.Load() == 2
	}, time.Second, 10*time.Millisecond)
	require.NoError(t, c.Close())
}
