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
	"sync"
	"sync/atomic"
	"time"

	"github.com/rulego/weaver/api/types"
)

// ErrFallback is returned for a join point skipped by SkipFallback.
var ErrFallback = errors.New("skip fallback error")

var (
	_ types.AdvisorProvider = (*SkipFallback)(nil)
	_ types.AspectFactory   = (*SkipFallback)(nil)
)

// SkipFallback is a circuit breaker per join point: after ErrorCountLimit consecutive failures
// the join point is not executed for LimitDuration. Skipped invocations return the result of
// Fallback, or ErrFallback when Fallback is nil. A success resets the failure count.
// SkipFallback 故障降级切面
type SkipFallback struct {
	// ErrorCountLimit consecutive failures opening the circuit, default 3
	ErrorCountLimit int64
	// LimitDuration how long the join point is skipped, default 10s
	LimitDuration time.Duration
	Pointcut      string
	// Fallback computes the result of a skipped invocation
	Fallback func(inv types.Invocation) (any, error)

	failures sync.Map // join point key -> *failureRecord
	lock     sync.Mutex
}

type failureRecord struct {
	errorCount    int64
	lastErrorTime int64
}

func (a *SkipFallback) Order() int {
	return 10
}

func (a *SkipFallback) New() types.Aspect {
	var errorCountLimit = a.ErrorCountLimit
	var limitDuration = a.LimitDuration
	if errorCountLimit == 0 {
		errorCountLimit = 3
	}
	if limitDuration == 0 {
		limitDuration = time.Second * 10
	}
	return &SkipFallback{
		ErrorCountLimit: errorCountLimit,
		LimitDuration:   limitDuration,
		Pointcut:        a.Pointcut,
		Fallback:        a.Fallback,
	}
}

func (a *SkipFallback) Type() string {
	return "fallback"
}

func (a *SkipFallback) Advisors() []types.AdviceDecl {
	pc := orDefault(a.Pointcut, AnyPointcut)
	return []types.AdviceDecl{
		advisor(types.PhaseAround, pc, "Around", a.Around),
		advisor(types.PhaseAfterThrowing, pc, "AfterThrowing", a.AfterThrowing),
	}
}

// Around skips the join point while its circuit is open.
func (a *SkipFallback) Around(inv types.Invocation) (any, error) {
	key := inv.JoinPoint().Key()
	if record, ok := a.record(key); ok && atomic.LoadInt64(&record.errorCount) >= a.ErrorCountLimit {
		if atomic.LoadInt64(&record.lastErrorTime)+a.LimitDuration.Milliseconds() < time.Now().UnixMilli() {
			// half open: let one call through with a fresh count
			a.failures.Delete(key)
		} else if a.Fallback != nil {
			return a.Fallback(inv)
		} else {
			return nil, ErrFallback
		}
	}
	result, err := inv.Proceed()
	if err == nil {
		a.failures.Delete(key)
	}
	return result, err
}

// AfterThrowing counts the failure and rethrows it.
func (a *SkipFallback) AfterThrowing(inv types.Invocation, err error) (any, error) {
	if errors.Is(err, ErrFallback) {
		return nil, err
	}
	key := inv.JoinPoint().Key()
	record, ok := a.record(key)
	if !ok {
		a.lock.Lock()
		if record, ok = a.record(key); !ok {
			record = &failureRecord{}
			a.failures.Store(key, record)
		}
		a.lock.Unlock()
	}
	atomic.AddInt64(&record.errorCount, 1)
	atomic.StoreInt64(&record.lastErrorTime, time.Now().UnixMilli())
	return nil, err
}

// Reset closes the circuit of every join point.
func (a *SkipFallback) Reset() {
	a.failures.Range(func(k, _ any) bool {
		a.failures.Delete(k)
		return true
	})
}

// ErrorCount returns the consecutive failures recorded for a join point key.
func (a *SkipFallback) ErrorCount(key string) int64 {
	if record, ok := a.record(key); ok {
		return atomic.LoadInt64(&record.errorCount)
	}
	return 0
}

func (a *SkipFallback) record(key string) (*failureRecord, bool) {
	if v, ok := a.failures.Load(key); ok {
		return v.(*failureRecord), true
	}
	return nil, false
}
