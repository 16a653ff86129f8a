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
	"errors"
	"sync/atomic"

	"github.com/rulego/weaver/api/types"
)

// ErrConcurrencyLimitReached is returned by ConcurrencyLimiter when the limit is exceeded.
var ErrConcurrencyLimitReached = errors.New("concurrency limit reached")

var (
	_ types.AdvisorProvider = (*ConcurrencyLimiter)(nil)
	_ types.AspectFactory   = (*ConcurrencyLimiter)(nil)
)

// ConcurrencyLimiter bounds the number of invocations of the matched join points running at
// the same time. The limit is shared by all of them.
// ConcurrencyLimiter 并发限制切面
//
//	limiter := aspect.NewConcurrencyLimiter(100)
//	weaver.Init(options, types.WithAspects(limiter))
type ConcurrencyLimiter struct {
	// Max concurrent invocations, <= 0 means unlimited
	Max      int64
	Pointcut string

	currentCount int64
}

func NewConcurrencyLimiter(max int) *ConcurrencyLimiter {
	return &ConcurrencyLimiter{Max: int64(max)}
}

func (a *ConcurrencyLimiter) Order() int {
	return 10
}

// New 每个内核实例维护自己的计数器
func (a *ConcurrencyLimiter) New() types.Aspect {
	return &ConcurrencyLimiter{Max: a.Max, Pointcut: a.Pointcut}
}

func (a *ConcurrencyLimiter) Type() string {
	return "limiter"
}

func (a *ConcurrencyLimiter) Advisors() []types.AdviceDecl {
	return []types.AdviceDecl{
		advisor(types.PhaseAround, orDefault(a.Pointcut, AnyPointcut), "Around", a.Around),
	}
}

// Around proceeds only while fewer than Max invocations are running.
func (a *ConcurrencyLimiter) Around(inv types.Invocation) (any, error) {
	if a.Max <= 0 {
		return inv.Proceed()
	}
	for {
		current := atomic.LoadInt64(&a.currentCount)
		if current >= a.Max {
			return nil, ErrConcurrencyLimitReached
		}
		if atomic.CompareAndSwapInt64(&a.currentCount, current, current+1) {
			break
		}
	}
	defer atomic.AddInt64(&a.currentCount, -1)
	return inv.Proceed()
}

// Current returns the number of running invocations.
func (a *ConcurrencyLimiter) Current() int64 {
	return atomic.LoadInt64(&a.currentCount)
}
