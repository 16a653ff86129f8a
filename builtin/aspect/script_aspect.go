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
	"fmt"
	"sync"
	"time"

	"github.com/rulego/weaver/api/types"
	"github.com/rulego/weaver/utils/js"
)

var (
	_ types.AdvisorProvider = (*Script)(nil)
	_ types.AspectFactory   = (*Script)(nil)
)

// Script runs advices written in JavaScript:
//
//	&aspect.Script{
//		Pointcut: "execution(public App\\**->save(*))",
//		Script: `
//			function before(jp, args) { args[0] = args[0].trim(); return args; }
//			function after(jp, args, result) { return result === null ? false : result; }
//		`,
//		Before: "before",
//		After:  "after",
//	}
//
// jp is an object with the kind, type, member, static and key of the join point. A before
// function returning an array replaces the arguments. An after function returns the result
// seen by the caller. A thrown exception fails the invocation.
// Script 脚本切面
type Script struct {
	Pointcut string
	Script   string
	// Before name of the before function, no before advice when empty
	Before string
	// After name of the after function, no after advice when empty
	After string
	// MaxExecutionTime of one function call, 0 disables the limit
	MaxExecutionTime time.Duration
	// Globals are exposed to the script as global.xx
	Globals map[string]any

	once   sync.Once
	engine *js.GojaJsEngine
	err    error
}

func (a *Script) Order() int {
	return 50
}

func (a *Script) New() types.Aspect {
	return &Script{
		Pointcut:         a.Pointcut,
		Script:           a.Script,
		Before:           a.Before,
		After:            a.After,
		MaxExecutionTime: a.MaxExecutionTime,
		Globals:          a.Globals,
	}
}

func (a *Script) Type() string {
	return "script"
}

func (a *Script) Advisors() []types.AdviceDecl {
	pc := orDefault(a.Pointcut, AnyPointcut)
	var decls []types.AdviceDecl
	if a.Before != "" {
		decls = append(decls, advisor(types.PhaseBefore, pc, "RunBefore", a.RunBefore))
	}
	if a.After != "" {
		decls = append(decls, advisor(types.PhaseAfter, pc, "RunAfter", a.RunAfter))
	}
	return decls
}

// Compile compiles the script once. Advices call it lazily; calling it early reports syntax
// errors before the first invocation.
func (a *Script) Compile() error {
	a.once.Do(func() {
		if a.Script == "" {
			a.err = errors.New("script is empty")
			return
		}
		a.engine, a.err = js.NewGojaJsEngine(js.Config{
			MaxExecutionTime: a.MaxExecutionTime,
			Globals:          a.Globals,
		}, a.Script, nil)
	})
	return a.err
}

func (a *Script) RunBefore(inv types.Invocation) error {
	if err := a.Compile(); err != nil {
		return err
	}
	out, err := a.engine.Execute(a.Before, joinPointObject(inv.JoinPoint()), append([]any(nil), inv.Arguments()...))
	if err != nil {
		return fmt.Errorf("script %s: %w", a.Before, err)
	}
	if args, ok := out.([]any); ok {
		inv.SetArguments(args...)
	}
	return nil
}

func (a *Script) RunAfter(inv types.Invocation, result any) (any, error) {
	if err := a.Compile(); err != nil {
		return nil, err
	}
	out, err := a.engine.Execute(a.After, joinPointObject(inv.JoinPoint()), append([]any(nil), inv.Arguments()...), result)
	if err != nil {
		return nil, fmt.Errorf("script %s: %w", a.After, err)
	}
	return out, nil
}

func joinPointObject(jp *types.JoinPoint) map[string]any {
	return map[string]any{
		"kind":   string(jp.Kind),
		"type":   jp.Type,
		"member": jp.Member,
		"static": jp.Static,
		"key":    jp.Key(),
	}
}
