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
	"fmt"
	"strings"
	"sync"

	"github.com/rulego/weaver/api/types"
)

// ArgumentError is returned by Validator when the arguments of an invocation break a rule.
type ArgumentError struct {
	JoinPoint string
	Parameter string
	Reason    string
}

func (e *ArgumentError) Error() string {
	if e.Parameter == "" {
		return fmt.Sprintf("invalid arguments for %s: %s", e.JoinPoint, e.Reason)
	}
	return fmt.Sprintf("invalid argument %s for %s: %s", e.Parameter, e.JoinPoint, e.Reason)
}

// Rule checks the arguments of one invocation.
type Rule func(jp *types.JoinPoint, args []any) error

// Rules 全局校验规则，Validator 按注册顺序执行
var Rules = NewRules()

var (
	_ types.AdvisorProvider = (*Validator)(nil)
	_ types.AspectFactory   = (*Validator)(nil)
)

// Validator checks the arguments of the matched join points against the global Rules before
// the join point runs. The first failing rule stops the invocation.
// Validator 参数校验切面
type Validator struct {
	Pointcut string
}

func (a *Validator) Order() int {
	return 10
}

func (a *Validator) New() types.Aspect {
	return &Validator{Pointcut: a.Pointcut}
}

func (a *Validator) Type() string {
	return "validator"
}

func (a *Validator) Advisors() []types.AdviceDecl {
	return []types.AdviceDecl{
		advisor(types.PhaseBefore, orDefault(a.Pointcut, AnyPointcut), "Before", a.Before),
	}
}

func (a *Validator) Before(inv types.Invocation) error {
	jp, args := inv.JoinPoint(), inv.Arguments()
	for _, rule := range Rules.Rules() {
		if err := rule(jp, args); err != nil {
			return err
		}
	}
	return nil
}

type rules struct {
	rules []Rule
	mu    sync.RWMutex
}

// NewRules creates a rule set holding the default rules.
func NewRules() *rules {
	r := &rules{}
	r.AddRule(CheckArity, CheckNotNull)
	return r
}

// AddRule appends rules.
func (r *rules) AddRule(fn ...Rule) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rules = append(r.rules, fn...)
}

// Rules returns a copy of the registered rules.
func (r *rules) Rules() []Rule {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var result = make([]Rule, len(r.rules))
	copy(result, r.rules)
	return result
}

// CheckArity fails when fewer arguments than required parameters are passed.
func CheckArity(jp *types.JoinPoint, args []any) error {
	required := 0
	for _, p := range jp.Parameters {
		if !p.Optional && !p.Variadic {
			required++
		}
	}
	if len(args) < required {
		return &ArgumentError{
			JoinPoint: jp.Key(),
			Reason:    fmt.Sprintf("expects at least %d arguments, %d given", required, len(args)),
		}
	}
	return nil
}

// CheckNotNull fails when a required parameter with a non-nullable type receives nil.
func CheckNotNull(jp *types.JoinPoint, args []any) error {
	for i, p := range jp.Parameters {
		if i >= len(args) || p.Variadic {
			break
		}
		if args[i] == nil && !p.Optional && p.Type != "" && !nullable(p.Type) {
			return &ArgumentError{JoinPoint: jp.Key(), Parameter: p.Name, Reason: "must not be null"}
		}
	}
	return nil
}

func nullable(typ string) bool {
	if strings.HasPrefix(typ, "?") {
		return true
	}
	for _, part := range strings.Split(typ, "|") {
		switch strings.ToLower(strings.TrimSpace(part)) {
		case "null", "mixed":
			return true
		}
	}
	return false
}
