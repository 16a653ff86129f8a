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
	"fmt"

	"github.com/rulego/weaver/api/types"
	"github.com/rulego/weaver/utils/runtime"
)

// intercept runs the advice of the frame around the downstream elements.
func (f *frame) intercept() (any, error) {
	a := f.advice
	switch a.Phase {
	case types.PhaseBefore:
		if _, err := f.guard(func() (any, error) {
			return nil, a.BeforeFn()(f)
		}); err != nil {
			return nil, err
		}
		return f.downstream()
	case types.PhaseAfter:
		result, err := f.downstream()
		if err != nil {
			return result, err
		}
		return f.guard(func() (any, error) {
			return a.AfterFn()(f, result)
		})
	case types.PhaseAfterThrowing:
		result, err := f.downstream()
		if err == nil {
			return result, nil
		}
		return f.guard(func() (any, error) {
			return a.AfterThrowingFn()(f, err)
		})
	case types.PhaseAround:
		return f.guard(func() (any, error) {
			return a.AroundFn()(f)
		})
	default:
		return nil, fmt.Errorf("unknown advice phase %q", a.Phase)
	}
}

// guard converts a panic of the advice into *types.AdviceExecutionError.
func (f *frame) guard(fn func() (any, error)) (result any, err error) {
	defer func() {
		if e := recover(); e != nil {
			if tp, ok := e.(targetPanic); ok {
				panic(tp)
			}
			cause, ok := e.(error)
			if !ok {
				cause = fmt.Errorf("%v", e)
			}
			result, err = nil, &types.AdviceExecutionError{
				Aspect:    f.advice.AspectName,
				Member:    f.advice.Member,
				Phase:     f.advice.Phase,
				JoinPoint: f.inv.chain.jp.Key(),
				Cause:     cause,
				Stack:     runtime.Stack(),
			}
		}
	}()
	return fn()
}

// targetPanic carries a panic of the real join point through the advice guards.
type targetPanic struct {
	value any
}

func rethrowTargetPanic() {
	if e := recover(); e != nil {
		if tp, ok := e.(targetPanic); ok {
			panic(tp.value)
		}
		panic(e)
	}
}
