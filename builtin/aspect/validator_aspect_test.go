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
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCheckArity(t *testing.T) {
	jp := userSave()
	assert.NoError(t, CheckArity(jp, []any{"a", "b"}))
	assert.NoError(t, CheckArity(jp, []any{"a", "b", nil, "extra"}))
	err := CheckArity(jp, []any{"a"})
	require.Error(t, err)
	assert.Equal(t, "invalid arguments for method:App\\Models\\User->save: expects at least 2 arguments, 1 given", err.Error())

	variadic := &types.JoinPoint{Kind: types.KindMethod, Type: "App\\Log", Member: "write",
		Parameters: []types.Parameter{{Name: "parts", Variadic: true, Optional: true}}}
	assert.NoError(t, CheckArity(variadic, nil))
}

func TestCheckNotNull(t *testing.T) {
	jp := userSave()
	err := CheckNotNull(jp, []any{nil, "b"})
	var argErr *ArgumentError
	require.ErrorAs(t, err, &argErr)
	assert.Equal(t, "name", argErr.Parameter)

	assert.NoError(t, CheckNotNull(jp, []any{"a", nil}))
	assert.NoError(t, CheckNotNull(jp, []any{"a", "b", nil}))

	for typ, want := range map[string]bool{"?int": true, "int|null": true, "mixed": true, "int": false, "App\\User": false} {
		assert.Equal(t, want, nullable(typ), typ)
	}
}

func TestValidatorCustomRule(t *testing.T) {
	errReadOnly := errors.New("read only")
	saved := Rules
	defer func() { Rules = saved }()
	Rules = NewRules()
	Rules.AddRule(func(jp *types.JoinPoint, args []any) error {
		if jp.Member == "save" {
			return errReadOnly
		}
		return nil
	})
	assert.Len(t, Rules.Rules(), 3)

	chain := build(t, userSave(), &Validator{})
	_, err := chain.Invoke(nil, []any{"a", "b"}, func(this any, args []any) (any, error) { return nil, nil })
	assert.ErrorIs(t, err, errReadOnly)
}
