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
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/rulego/weaver/api/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testAspect struct{ name string }

func (a *testAspect) Type() string { return a.name }

// typeCut selects every join point of one type.
type typeCut struct{ typ string }

func (p typeCut) ID() string                        { return "" }
func (p typeCut) Matches(jp *types.JoinPoint) bool { return types.SameName(jp.Type, p.typ) }
func (p typeCut) String() string                    { return "within(" + p.typ + ")" }

var fooSave = &types.JoinPoint{Kind: types.KindMethod, Type: `App\Foo`, Member: "save", Visibility: types.Public}

// recorder collects the events of one test run.
type recorder struct {
	sync.Mutex
	events []string
}

func (r *recorder) add(e string) {
	r.Lock()
	defer r.Unlock()
	r.events = append(r.events, e)
}

func (r *recorder) get() []string {
	r.Lock()
	defer r.Unlock()
	return append([]string(nil), r.events...)
}

func mustAdvice(t *testing.T, aspectIndex, index int, name string, phase types.Phase, fn any) *types.Advice {
	t.Helper()
	a, err := types.NewAdvice(&testAspect{name: name}, phase, typeCut{typ: `App\Foo`}, "", fn)
	require.NoError(t, err)
	a.AspectIndex = aspectIndex
	a.Index = index
	return a
}

func build(t *testing.T, advices ...*types.Advice) *InterceptorChain {
	t.Helper()
	index := NewIndex()
	require.NoError(t, index.Add(advices...))
	index.Freeze()
	chain, err := NewChainBuilder(index, WithStrict(true)).Build(fooSave)
	require.NoError(t, err)
	return chain
}

func tracingAspect(t *testing.T, r *recorder, aspectIndex int, name string) []*types.Advice {
	return []*types.Advice{
		mustAdvice(t, aspectIndex, 0, name, types.PhaseBefore, func(inv types.Invocation) error {
			r.add(name + ".before")
			return nil
		}),
		mustAdvice(t, aspectIndex, 1, name, types.PhaseAfter, func(inv types.Invocation, result any) (any, error) {
			r.add(name + ".after")
			return result, nil
		}),
	}
}

func target(r *recorder, result any, err error) Target {
	return func(this any, args []any) (any, error) {
		r.add("target")
		return result, err
	}
}

func TestOrderingLaw(t *testing.T) {
	r := &recorder{}
	// register the second aspect first, declaration order wins over registration order
	advices := append(tracingAspect(t, r, 1, "A2"), tracingAspect(t, r, 0, "A1")...)
	chain := build(t, advices...)

	result, err := chain.Invoke(nil, nil, target(r, "ok", nil))
	require.NoError(t, err)
	assert.Equal(t, "ok", result)
	assert.Equal(t, []string{"A1.before", "A2.before", "target", "A2.after", "A1.after"}, r.get())
}

func TestBuildDeterministic(t *testing.T) {
	r := &recorder{}
	index := NewIndex()
	require.NoError(t, index.Add(tracingAspect(t, r, 1, "A2")...))
	require.NoError(t, index.Add(tracingAspect(t, r, 0, "A1")...))
	index.Freeze()

	first := NewChainBuilder(index).Build
	second := NewChainBuilder(index).Build
	c1, err := first(fooSave)
	require.NoError(t, err)
	c2, err := second(fooSave)
	require.NoError(t, err)
	assert.Equal(t, c1.Advices(), c2.Advices())
	assert.Equal(t, 4, c1.Len())
}

func TestBuildMemoized(t *testing.T) {
	index := NewIndex()
	require.NoError(t, index.Add(mustAdvice(t, 0, 0, "A", types.PhaseBefore, func(types.Invocation) error { return nil })))
	index.Freeze()
	var builds int32
	builder := NewChainBuilder(index, WithOnBuild(func(*InterceptorChain) {
		atomic.AddInt32(&builds, 1)
	}))

	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := builder.Build(fooSave)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()
	chain, err := builder.Build(fooSave)
	require.NoError(t, err)
	cached, ok := builder.Cached(fooSave.Key())
	require.True(t, ok)
	assert.Same(t, chain, cached)
	assert.Equal(t, int32(1), atomic.LoadInt32(&builds))
	assert.Equal(t, []string{fooSave.Key()}, builder.Keys())
}

func TestAroundShortCircuit(t *testing.T) {
	r := &recorder{}
	chain := build(t, mustAdvice(t, 0, 0, "Cache", types.PhaseAround, func(inv types.Invocation) (any, error) {
		return "cached", nil
	}))
	result, err := chain.Invoke(nil, nil, target(r, "real", nil))
	require.NoError(t, err)
	assert.Equal(t, "cached", result)
	assert.Empty(t, r.get())
}

func TestAroundDoubleProceed(t *testing.T) {
	r := &recorder{}
	var calls int32
	chain := build(t,
		mustAdvice(t, 0, 0, "Retry", types.PhaseAround, func(inv types.Invocation) (any, error) {
			_, _ = inv.Proceed()
			return inv.Proceed()
		}),
		mustAdvice(t, 1, 0, "Inner", types.PhaseBefore, func(inv types.Invocation) error {
			r.add("inner.before")
			return nil
		}),
	)
	result, err := chain.Invoke(nil, nil, func(this any, args []any) (any, error) {
		r.add("target")
		return atomic.AddInt32(&calls, 1), nil
	})
	require.NoError(t, err)
	assert.Equal(t, int32(2), result)
	assert.Equal(t, []string{"inner.before", "target", "inner.before", "target"}, r.get())
}

func TestAroundRetryUntilSuccess(t *testing.T) {
	failures := 2
	chain := build(t, mustAdvice(t, 0, 0, "Retry", types.PhaseAround, func(inv types.Invocation) (any, error) {
		var err error
		for i := 0; i < 5; i++ {
			var result any
			if result, err = inv.Proceed(); err == nil {
				return result, nil
			}
		}
		return nil, err
	}))
	result, err := chain.Invoke(nil, nil, func(this any, args []any) (any, error) {
		if failures > 0 {
			failures--
			return nil, errors.New("transient")
		}
		return "done", nil
	})
	require.NoError(t, err)
	assert.Equal(t, "done", result)
}

func TestAfterThrowingOnlyOnFailure(t *testing.T) {
	r := &recorder{}
	chain := build(t, mustAdvice(t, 0, 0, "Guard", types.PhaseAfterThrowing, func(inv types.Invocation, err error) (any, error) {
		r.add("afterThrowing:" + err.Error())
		return "recovered", nil
	}))

	result, err := chain.Invoke(nil, nil, target(r, "ok", nil))
	require.NoError(t, err)
	assert.Equal(t, "ok", result)
	assert.Equal(t, []string{"target"}, r.get())

	r = &recorder{}
	result, err = chain.Invoke(nil, nil, target(r, nil, errors.New("boom")))
	require.NoError(t, err)
	assert.Equal(t, "recovered", result)
	assert.Equal(t, []string{"target", "afterThrowing:boom"}, r.get())
}

func TestAfterThrowingTransform(t *testing.T) {
	wrapped := errors.New("wrapped")
	chain := build(t, mustAdvice(t, 0, 0, "Guard", types.PhaseAfterThrowing, func(inv types.Invocation, err error) (any, error) {
		return nil, errors.Join(wrapped, err)
	}))
	boom := errors.New("boom")
	_, err := chain.Invoke(nil, nil, func(any, []any) (any, error) { return nil, boom })
	assert.ErrorIs(t, err, boom)
	assert.ErrorIs(t, err, wrapped)
}

func TestBeforeFailureSkipsSamePhase(t *testing.T) {
	r := &recorder{}
	denied := errors.New("denied")
	chain := build(t,
		mustAdvice(t, 0, 0, "Outer", types.PhaseAfterThrowing, func(inv types.Invocation, err error) (any, error) {
			r.add("outer.afterThrowing")
			return nil, err
		}),
		mustAdvice(t, 1, 0, "Security", types.PhaseBefore, func(inv types.Invocation) error {
			r.add("security.before")
			return denied
		}),
		mustAdvice(t, 2, 0, "Log", types.PhaseBefore, func(inv types.Invocation) error {
			r.add("log.before")
			return nil
		}),
		mustAdvice(t, 2, 1, "Log", types.PhaseAfter, func(inv types.Invocation, result any) (any, error) {
			r.add("log.after")
			return result, nil
		}),
	)
	_, err := chain.Invoke(nil, nil, target(r, "ok", nil))
	assert.Same(t, denied, err)
	assert.Equal(t, []string{"security.before", "outer.afterThrowing"}, r.get())
}

func TestAfterReplacesResult(t *testing.T) {
	chain := build(t, mustAdvice(t, 0, 0, "Upper", types.PhaseAfter, func(inv types.Invocation, result any) (any, error) {
		return result.(string) + "!", nil
	}))
	result, err := chain.Invoke(nil, nil, func(any, []any) (any, error) { return "hi", nil })
	require.NoError(t, err)
	assert.Equal(t, "hi!", result)
}

func TestSetArguments(t *testing.T) {
	chain := build(t,
		mustAdvice(t, 0, 0, "Double", types.PhaseAround, func(inv types.Invocation) (any, error) {
			args := inv.Arguments()
			inv.SetArguments(args[0].(int) * 2)
			return inv.Proceed()
		}),
		mustAdvice(t, 1, 0, "Check", types.PhaseBefore, func(inv types.Invocation) error {
			if inv.Arguments()[0].(int) != 42 {
				return errors.New("arguments not propagated")
			}
			if inv.This() != "receiver" {
				return errors.New("receiver not propagated")
			}
			return nil
		}),
	)
	result, err := chain.Invoke("receiver", []any{21}, func(this any, args []any) (any, error) {
		return args[0], nil
	})
	require.NoError(t, err)
	assert.Equal(t, 42, result)
}

func TestProceedOutsideAround(t *testing.T) {
	chain := build(t, mustAdvice(t, 0, 0, "Bad", types.PhaseBefore, func(inv types.Invocation) error {
		_, err := inv.Proceed()
		return err
	}))
	_, err := chain.Invoke(nil, nil, func(any, []any) (any, error) { return nil, nil })
	assert.ErrorIs(t, err, ErrIllegalProceed)
}

func TestAdvicePanic(t *testing.T) {
	chain := build(t, mustAdvice(t, 0, 0, "Broken", types.PhaseBefore, func(inv types.Invocation) error {
		panic("broken advice")
	}))
	_, err := chain.Invoke(nil, nil, func(any, []any) (any, error) { return nil, nil })
	var execErr *types.AdviceExecutionError
	require.True(t, errors.As(err, &execErr))
	assert.Equal(t, "Broken", execErr.Aspect)
	assert.Equal(t, types.PhaseBefore, execErr.Phase)
	assert.Equal(t, fooSave.Key(), execErr.JoinPoint)
	assert.EqualError(t, execErr.Cause, "broken advice")
	assert.NotEmpty(t, execErr.Stack)
}

func TestTargetPanicNotIntercepted(t *testing.T) {
	var caught bool
	chain := build(t,
		mustAdvice(t, 0, 0, "Guard", types.PhaseAfterThrowing, func(inv types.Invocation, err error) (any, error) {
			caught = true
			return nil, nil
		}),
		mustAdvice(t, 0, 1, "Pass", types.PhaseAround, func(inv types.Invocation) (any, error) {
			return inv.Proceed()
		}),
	)
	assert.PanicsWithValue(t, "target failed", func() {
		_, _ = chain.Invoke(nil, nil, func(any, []any) (any, error) { panic("target failed") })
	})
	assert.False(t, caught)
}

func TestEmptyChain(t *testing.T) {
	chain := build(t)
	assert.True(t, chain.Empty())
	result, err := chain.Invoke(nil, []any{1}, func(this any, args []any) (any, error) { return args[0], nil })
	require.NoError(t, err)
	assert.Equal(t, 1, result)

	_, err = chain.Invoke(nil, nil, nil)
	assert.Error(t, err)
}
