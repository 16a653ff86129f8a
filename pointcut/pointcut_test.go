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

package pointcut

import (
	"errors"
	"testing"

	"github.com/rulego/weaver/api/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func method(typ, name string, v types.Visibility, params ...types.Parameter) *types.JoinPoint {
	return &types.JoinPoint{Kind: types.KindMethod, Type: typ, Member: name, Visibility: v, Parameters: params}
}

func TestExecutionVisibility(t *testing.T) {
	p, err := Parse(`execution(public App\*->*(*))`, nil)
	require.NoError(t, err)

	assert.True(t, p.Matches(method(`App\Foo`, "save", types.Public)))
	assert.False(t, p.Matches(method(`App\Foo`, "save", types.Private)))
	assert.False(t, p.Matches(method(`Other\Bar`, "save", types.Public)))
	// one segment only
	assert.False(t, p.Matches(method(`App\Models\Foo`, "save", types.Public)))
	// instance pattern never selects static members
	static := method(`App\Foo`, "make", types.Public)
	static.Static = true
	assert.False(t, p.Matches(static))
}

func TestExecutionPatterns(t *testing.T) {
	tests := []struct {
		expr  string
		jp    *types.JoinPoint
		match bool
	}{
		{`execution(App\**->save(*))`, method(`App\Models\User`, "save", types.Public), true},
		{`execution(App\**->save(*))`, method(`\app\models\user`, "SAVE", types.Public), true},
		{`execution(App\**->get*(*))`, method(`App\Repo`, "getName", types.Public), true},
		{`execution(App\**->get*(*))`, method(`App\Repo`, "setName", types.Public), false},
		{`execution(public|protected App\Repo->*(*))`, method(`App\Repo`, "find", types.Protected), true},
		{`execution(public|protected App\Repo->*(*))`, method(`App\Repo`, "find", types.Private), false},
		{`execution(App\Repo->find())`, method(`App\Repo`, "find", types.Public), true},
		{`execution(App\Repo->find())`, method(`App\Repo`, "find", types.Public, types.Parameter{Name: "id"}), false},
		{`execution(App\Repo->find(int))`, method(`App\Repo`, "find", types.Public, types.Parameter{Name: "id", Type: "int"}), true},
		{`execution(App\Repo->find(int, ..))`, method(`App\Repo`, "find", types.Public,
			types.Parameter{Name: "id", Type: "int"}, types.Parameter{Name: "x"}), true},
		{`execution(App\Repo->find(string))`, method(`App\Repo`, "find", types.Public, types.Parameter{Name: "id", Type: "int"}), false},
		{`execution(/App\\(Models|Repo).*/->find(*))`, method(`App\Repo`, "find", types.Public), true},
		{`execution(/App\\(Models|Repo).*/->find(*))`, method(`App\Service`, "find", types.Public), false},
	}
	for _, tt := range tests {
		p, err := Parse(tt.expr, nil)
		require.NoError(t, err, tt.expr)
		assert.Equal(t, tt.match, p.Matches(tt.jp), "%s on %s", tt.expr, tt.jp)
	}
}

func TestStaticExecution(t *testing.T) {
	p, err := Parse(`execution(public App\Factory::create(*))`, nil)
	require.NoError(t, err)
	jp := method(`App\Factory`, "create", types.Public)
	assert.False(t, p.Matches(jp))
	jp.Static = true
	assert.True(t, p.Matches(jp))
}

func TestAccessAndInitialization(t *testing.T) {
	access, err := Parse(`access(protected App\**->items)`, nil)
	require.NoError(t, err)
	prop := &types.JoinPoint{Kind: types.KindProperty, Type: `App\Cart`, Member: "items", Visibility: types.Protected}
	assert.True(t, access.Matches(prop))
	// property names are case-sensitive
	prop.Member = "Items"
	assert.False(t, access.Matches(prop))

	init, err := Parse(`initialization(App\Models\*)`, nil)
	require.NoError(t, err)
	assert.True(t, init.Matches(&types.JoinPoint{Kind: types.KindConstructor, Type: `App\Models\User`}))
	assert.False(t, init.Matches(method(`App\Models\User`, "save", types.Public)))

	static, err := Parse(`staticinitialization(App\**)`, nil)
	require.NoError(t, err)
	assert.True(t, static.Matches(&types.JoinPoint{Kind: types.KindStaticInit, Type: `App\Models\User`}))
}

func TestComposition(t *testing.T) {
	p, err := Parse(`within(App\**) && !(execution(App\**->__toString(*)) || @annotation(App\NoLog))`, nil)
	require.NoError(t, err)

	assert.True(t, p.Matches(method(`App\User`, "save", types.Public)))
	assert.False(t, p.Matches(method(`App\User`, "__toString", types.Public)))
	annotated := method(`App\User`, "save", types.Public)
	annotated.Annotations = []string{`\App\NoLog`}
	assert.False(t, p.Matches(annotated))
	assert.False(t, p.Matches(method(`Lib\User`, "save", types.Public)))
}

func TestTypeAnnotationAndArgs(t *testing.T) {
	p, err := Parse(`@within(App\Service) && args(2)`, nil)
	require.NoError(t, err)
	jp := method(`App\Mailer`, "send", types.Public, types.Parameter{Name: "to"}, types.Parameter{Name: "body"})
	assert.False(t, p.Matches(jp))
	jp.TypeAnnotations = []string{`App\Service`}
	assert.True(t, p.Matches(jp))
	jp.Parameters = jp.Parameters[:1]
	assert.False(t, p.Matches(jp))
}

func TestCondition(t *testing.T) {
	p, err := Parse(`execution(App\**->*(*)) && if("Args > 1 && Visibility == 'public'")`, nil)
	require.NoError(t, err)
	assert.True(t, p.Matches(method(`App\X`, "m", types.Public, types.Parameter{}, types.Parameter{})))
	assert.False(t, p.Matches(method(`App\X`, "m", types.Public, types.Parameter{})))

	single, err := Parse(`if('Static')`, nil)
	require.NoError(t, err)
	assert.False(t, single.Matches(method(`App\X`, "m", types.Public)))
}

func TestNilJoinPoint(t *testing.T) {
	p, err := Parse(`within(**)`, nil)
	require.NoError(t, err)
	assert.False(t, p.Matches(nil))
}

func TestParseErrors(t *testing.T) {
	tests := []string{
		``,
		`execution(`,
		`execution(App\Foo->save)`,
		`execution(App\Foo.save(*))`,
		`execution(secret App\Foo->save(*))`,
		`execution(App\Foo->save(int,..,string))`,
		`unknown(App\Foo)`,
		`within(App\Foo) &&`,
		`within(App\Foo) within(App\Bar)`,
		`if(Args > 1)`,
		`if("Args >")`,
		`if("Missing == 1")`,
		`within(/[/)`,
		`pointcut(nothing)`,
		`@annotation(not a type)`,
	}
	for _, expr := range tests {
		_, err := Parse(expr, nil)
		require.Error(t, err, expr)
		var resolution *types.PointcutResolutionError
		assert.True(t, errors.As(err, &resolution), expr)
		assert.Equal(t, expr, resolution.Expression)
	}
}

func TestErrorPosition(t *testing.T) {
	_, err := Parse(`within(App\**) && bogus(x)`, nil)
	var resolution *types.PointcutResolutionError
	require.True(t, errors.As(err, &resolution))
	assert.Equal(t, 18, resolution.Pos)
}

func TestDeterministic(t *testing.T) {
	p, err := Parse(`execution(App\**->*(*)) && if("len(ParamTypes) == 0")`, nil)
	require.NoError(t, err)
	jp := method(`App\X`, "m", types.Public)
	first := p.Matches(jp)
	for i := 0; i < 100; i++ {
		assert.Equal(t, first, p.Matches(jp))
	}
}
