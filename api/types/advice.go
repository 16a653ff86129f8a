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

package types

import (
	"fmt"
	"strings"
)

// Phase is the position of an advice relative to the join point.
// Phase 增强点执行阶段
type Phase string

const (
	// PhaseBefore runs before the downstream chain. A returned error stops the chain.
	PhaseBefore Phase = "before"
	// PhaseAfter runs after the downstream chain completed successfully and may replace the result.
	PhaseAfter Phase = "after"
	// PhaseAround wraps the downstream chain and decides whether, and how often, to proceed.
	PhaseAround Phase = "around"
	// PhaseAfterThrowing runs only when the downstream chain failed. It may recover, rethrow or transform.
	PhaseAfterThrowing Phase = "afterThrowing"
)

// Rank orders the advices of one aspect from outermost to innermost.
func (p Phase) Rank() int {
	switch p {
	case PhaseAfterThrowing:
		return 0
	case PhaseAround:
		return 1
	case PhaseAfter:
		return 2
	default:
		return 3
	}
}

// ParsePhase parses a phase name as used by annotations, case-insensitively.
func ParsePhase(s string) (Phase, bool) {
	switch strings.ToLower(s) {
	case "before":
		return PhaseBefore, true
	case "after":
		return PhaseAfter, true
	case "around":
		return PhaseAround, true
	case "afterthrowing":
		return PhaseAfterThrowing, true
	}
	return "", false
}

// Invocation is the view of one running join point handed to an advice.
// Invocation 连接点调用上下文
type Invocation interface {
	// JoinPoint being executed
	JoinPoint() *JoinPoint
	// This is the receiver, nil for static members and constructors
	This() any
	// Arguments passed to the join point. Advices must not modify the returned slice in place.
	Arguments() []any
	// SetArguments replaces the arguments seen by the downstream chain
	SetArguments(args ...any)
	// Proceed runs the rest of the chain, ending with the real join point.
	// It can be called any number of times; every call re-runs the whole downstream chain.
	Proceed() (any, error)
}

// BeforeFunc before advice
type BeforeFunc func(inv Invocation) error

// AfterFunc after advice. It receives the downstream result and returns the result seen upstream.
type AfterFunc func(inv Invocation, result any) (any, error)

// AroundFunc around advice
type AroundFunc func(inv Invocation) (any, error)

// AfterThrowingFunc after throwing advice. Returning a nil error suppresses the failure.
type AfterThrowingFunc func(inv Invocation, err error) (any, error)

// AdviceDecl is an advice declared by an aspect before its pointcut is compiled.
type AdviceDecl struct {
	Phase Phase
	// Pointcut expression or the id of a declared pointcut
	Pointcut string
	// Member is the aspect method implementing the advice. It is used to rebuild the
	// advice from a serialized record and may be empty for closures.
	Member string
	// Fn is one of BeforeFunc, AfterFunc, AroundFunc, AfterThrowingFunc (or the equivalent
	// unnamed function type), matching Phase.
	Fn any
}

// Before declares a before advice.
func Before(pointcut string, fn BeforeFunc) AdviceDecl {
	return AdviceDecl{Phase: PhaseBefore, Pointcut: pointcut, Fn: fn}
}

// After declares an after advice.
func After(pointcut string, fn AfterFunc) AdviceDecl {
	return AdviceDecl{Phase: PhaseAfter, Pointcut: pointcut, Fn: fn}
}

// Around declares an around advice.
func Around(pointcut string, fn AroundFunc) AdviceDecl {
	return AdviceDecl{Phase: PhaseAround, Pointcut: pointcut, Fn: fn}
}

// AfterThrowing declares an after throwing advice.
func AfterThrowing(pointcut string, fn AfterThrowingFunc) AdviceDecl {
	return AdviceDecl{Phase: PhaseAfterThrowing, Pointcut: pointcut, Fn: fn}
}

// Advice is a registered unit of cross-cutting logic.
// Advice 已注册的增强点
type Advice struct {
	// Aspect owning instance, may hold mutable state
	Aspect Aspect
	// AspectName type of the owning aspect
	AspectName string
	// AspectIndex declaration order of the owning aspect
	AspectIndex int
	// Index declaration order inside the aspect
	Index int
	// Member aspect method implementing the advice, empty for closures
	Member string
	Phase  Phase
	// Pointcut selecting the join points
	Pointcut Pointcut

	before        BeforeFunc
	after         AfterFunc
	around        AroundFunc
	afterThrowing AfterThrowingFunc
}

// NewAdvice validates that fn matches phase and builds the advice.
func NewAdvice(aspect Aspect, phase Phase, pointcut Pointcut, member string, fn any) (*Advice, error) {
	if pointcut == nil {
		return nil, fmt.Errorf("advice %s: pointcut is required", phase)
	}
	a := &Advice{Aspect: aspect, Phase: phase, Pointcut: pointcut, Member: member}
	if aspect != nil {
		a.AspectName = aspect.Type()
	}
	var ok bool
	switch phase {
	case PhaseBefore:
		switch f := fn.(type) {
		case BeforeFunc:
			a.before, ok = f, f != nil
		case func(Invocation) error:
			a.before, ok = f, f != nil
		}
	case PhaseAfter:
		switch f := fn.(type) {
		case AfterFunc:
			a.after, ok = f, f != nil
		case func(Invocation, any) (any, error):
			a.after, ok = f, f != nil
		}
	case PhaseAround:
		switch f := fn.(type) {
		case AroundFunc:
			a.around, ok = f, f != nil
		case func(Invocation) (any, error):
			a.around, ok = f, f != nil
		}
	case PhaseAfterThrowing:
		switch f := fn.(type) {
		case AfterThrowingFunc:
			a.afterThrowing, ok = f, f != nil
		case func(Invocation, error) (any, error):
			a.afterThrowing, ok = f, f != nil
		}
	default:
		return nil, fmt.Errorf("unknown advice phase %q", phase)
	}
	if !ok {
		return nil, fmt.Errorf("advice %s%s: callable %T does not match phase %s", a.AspectName, memberSuffix(member), fn, phase)
	}
	return a, nil
}

// BeforeFn returns the callable of a before advice.
func (a *Advice) BeforeFn() BeforeFunc { return a.before }

// AfterFn returns the callable of an after advice.
func (a *Advice) AfterFn() AfterFunc { return a.after }

// AroundFn returns the callable of an around advice.
func (a *Advice) AroundFn() AroundFunc { return a.around }

// AfterThrowingFn returns the callable of an after throwing advice.
func (a *Advice) AfterThrowingFn() AfterThrowingFunc { return a.afterThrowing }

// Matches evaluates the advice pointcut.
func (a *Advice) Matches(jp *JoinPoint) bool {
	return a.Pointcut != nil && a.Pointcut.Matches(jp)
}

func (a *Advice) String() string {
	return a.AspectName + memberSuffix(a.Member) + "@" + string(a.Phase)
}

func memberSuffix(member string) string {
	if member == "" {
		return ""
	}
	return "->" + member
}
