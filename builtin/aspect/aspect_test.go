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
	"testing"

	"github.com/rulego/weaver/api/types"
	"github.com/rulego/weaver/engine"
	"github.com/rulego/weaver/kernel"
	"github.com/rulego/weaver/pointcut"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

var errSave = errors.New("save failed")

func userSave() *types.JoinPoint {
	return &types.JoinPoint{
		Kind:       types.KindMethod,
		Type:       `App\Models\User`,
		Member:     "save",
		Visibility: types.Public,
		Parameters: []types.Parameter{
			{Name: "name", Type: "string"},
			{Name: "email", Type: "?string"},
			{Name: "tags", Type: "array", Optional: true},
		},
		Annotations: []string{`Weaver\Cacheable`},
	}
}

// build registers the advisors of aspects in declaration order and returns the chain of jp.
func build(t *testing.T, jp *types.JoinPoint, aspects ...types.AdvisorProvider) *engine.InterceptorChain {
	t.Helper()
	index := engine.NewIndex()
	for i, a := range aspects {
		for j, decl := range a.Advisors() {
			pc, err := pointcut.Parse(decl.Pointcut, nil)
			require.NoError(t, err)
			advice, err := types.NewAdvice(a, decl.Phase, pc, decl.Member, decl.Fn)
			require.NoError(t, err)
			advice.AspectIndex, advice.Index = i, j
			require.NoError(t, index.Add(advice))
		}
	}
	index.Freeze()
	chain, err := engine.NewChainBuilder(index, engine.WithStrict(true)).Build(jp)
	require.NoError(t, err)
	return chain
}

func TestBuiltinsRegistered(t *testing.T) {
	names := kernel.Registry.Names()
	for _, a := range Builtins() {
		assert.Contains(t, names, a.Type())
		created, err := kernel.Registry.New(a.Type())
		require.NoError(t, err)
		// registry hands out fresh instances
		assert.NotSame(t, a, created)
		_, ok := created.(types.AdvisorProvider)
		assert.True(t, ok, a.Type())
	}
}

func TestDebug(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	debug := (&Debug{Logger: zap.New(core)}).New().(*Debug)
	chain := build(t, userSave(), debug)
	require.Equal(t, 3, chain.Len())

	result, err := chain.Invoke(nil, []any{"bob"}, func(this any, args []any) (any, error) {
		return "saved", nil
	})
	require.NoError(t, err)
	assert.Equal(t, "saved", result)

	_, err = chain.Invoke(nil, []any{"bob"}, func(this any, args []any) (any, error) {
		return nil, errSave
	})
	assert.ErrorIs(t, err, errSave)

	var messages []string
	for _, e := range logs.All() {
		messages = append(messages, e.Message)
		assert.Equal(t, `method:App\Models\User->save`, e.ContextMap()["joinPoint"])
	}
	assert.Equal(t, []string{"enter", "exit", "enter", "failed"}, messages)
	assert.Equal(t, "saved", logs.FilterMessage("exit").All()[0].ContextMap()["result"])
}

func TestDebugPointcut(t *testing.T) {
	debug := &Debug{Pointcut: `within(Other\**)`, Logger: zap.NewNop()}
	assert.True(t, build(t, userSave(), debug).Empty())
}

func TestAspectsCompose(t *testing.T) {
	metrics := NewMetrics(nil)
	snapshot := (&RunSnapshot{}).New().(*RunSnapshot)
	validator := (&Validator{}).New().(*Validator)
	chain := build(t, userSave(), snapshot, validator, metrics)

	calls := 0
	target := func(this any, args []any) (any, error) {
		calls++
		return len(args), nil
	}
	_, err := chain.Invoke(nil, []any{}, target)
	var argErr *ArgumentError
	require.ErrorAs(t, err, &argErr)
	assert.Equal(t, 0, calls)

	result, err := chain.Invoke(nil, []any{"bob", nil}, target)
	require.NoError(t, err)
	assert.Equal(t, 2, result)

	// validation failed outside the metrics advice: only the second call is counted
	m := metrics.GetMetrics().For(userSave().Key()).Get()
	assert.Equal(t, int64(1), m.Total)
	assert.Equal(t, int64(1), m.Success)

	snapshots := snapshot.Snapshots()
	require.Len(t, snapshots, 2)
	assert.NotEmpty(t, snapshots[0].Err)
	assert.Equal(t, 2, snapshots[1].Result)
	assert.Equal(t, []any{"bob", nil}, snapshots[1].Arguments)
}
