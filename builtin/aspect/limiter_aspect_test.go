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
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestConcurrencyLimiter(t *testing.T) {
	const maxConcurrent = 3
	prototype := NewConcurrencyLimiter(maxConcurrent)
	assert.Equal(t, 10, prototype.Order())
	limiter := prototype.New().(*ConcurrencyLimiter)
	assert.Equal(t, int64(maxConcurrent), limiter.Max)
	chain := build(t, userSave(), limiter)

	release := make(chan struct{})
	started := make(chan struct{}, maxConcurrent)
	target := func(this any, args []any) (any, error) {
		started <- struct{}{}
		<-release
		return "ok", nil
	}

	var wg sync.WaitGroup
	for i := 0; i < maxConcurrent; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := chain.Invoke(nil, []any{"a", "b"}, target)
			assert.NoError(t, err)
		}()
	}
	for i := 0; i < maxConcurrent; i++ {
		<-started
	}
	assert.Equal(t, int64(maxConcurrent), limiter.Current())

	_, err := chain.Invoke(nil, []any{"a", "b"}, target)
	assert.ErrorIs(t, err, ErrConcurrencyLimitReached)

	close(release)
	wg.Wait()
	assert.Equal(t, int64(0), limiter.Current())

	// a failing target releases its slot too
	_, err = chain.Invoke(nil, nil, func(this any, args []any) (any, error) { return nil, errSave })
	assert.ErrorIs(t, err, errSave)
	assert.Equal(t, int64(0), limiter.Current())
}

func TestConcurrencyLimiterUnlimited(t *testing.T) {
	limiter := (&ConcurrencyLimiter{}).New().(*ConcurrencyLimiter)
	chain := build(t, userSave(), limiter)
	result, err := chain.Invoke(nil, nil, func(this any, args []any) (any, error) {
		time.Sleep(time.Millisecond)
		return 1, nil
	})
	assert.NoError(t, err)
	assert.Equal(t, 1, result)
}
