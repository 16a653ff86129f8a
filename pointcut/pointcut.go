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

// Package pointcut compiles pointcut expressions into pure predicates over join points.
//
// Expressions are compiled once, at registration; a compiled pointcut never re-parses and
// never fails at match time. Malformed expressions and references to unknown symbols are
// reported as *types.PointcutResolutionError.
//
// Designators:
//
//	execution(public App\*->save(*))        method join points, `::` for static methods
//	access(protected App\**->items)         property join points
//	initialization(App\Models\*)            constructor join points
//	staticinitialization(App\**)            static initialization join points
//	within(App\Repository\**)               any join point of matching types
//	@annotation(App\Annotation\Cacheable)   member carries the annotation
//	@within(App\Annotation\Service)         owning type carries the annotation
//	args(int, *, ..)                        argument shape
//	if("Static && Args > 1")                expr-lang condition over the join point
//	pointcut(repositories)                  reference to a declared pointcut
//
// Designators compose with &&, || and !, and group with parentheses.
//
// 切入点表达式在注册时编译为纯函数谓词。
package pointcut

import (
	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
	"github.com/rulego/weaver/api/types"
)

var _ types.Pointcut = (*Pointcut)(nil)

// Pointcut is a compiled pointcut expression.
type Pointcut struct {
	id   string
	expr string
	root node
}

// ID returns the declaration id, empty for anonymous pointcuts.
func (p *Pointcut) ID() string {
	return p.id
}

// Matches evaluates the pointcut against a join point.
func (p *Pointcut) Matches(jp *types.JoinPoint) bool {
	if jp == nil {
		return false
	}
	return p.root.match(jp)
}

func (p *Pointcut) String() string {
	return p.expr
}

type node interface {
	match(jp *types.JoinPoint) bool
}

type andNode struct{ left, right node }

func (n andNode) match(jp *types.JoinPoint) bool { return n.left.match(jp) && n.right.match(jp) }

type orNode struct{ left, right node }

func (n orNode) match(jp *types.JoinPoint) bool { return n.left.match(jp) || n.right.match(jp) }

type notNode struct{ inner node }

func (n notNode) match(jp *types.JoinPoint) bool { return !n.inner.match(jp) }

// memberNode implements execution() and access().
type memberNode struct {
	kind       types.JoinPointKind
	visibility []types.Visibility
	static     bool
	typ        *typePattern
	name       *namePattern
	args       *argPattern
}

func (n *memberNode) match(jp *types.JoinPoint) bool {
	if jp.Kind != n.kind || jp.Static != n.static {
		return false
	}
	if len(n.visibility) > 0 && !hasVisibility(n.visibility, jp.Visibility) {
		return false
	}
	if !n.typ.match(jp.Type) || !n.name.match(jp.Member) {
		return false
	}
	return n.args == nil || n.args.match(jp.Parameters)
}

func hasVisibility(list []types.Visibility, v types.Visibility) bool {
	if v == "" {
		v = types.Public
	}
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}

// typeNode implements initialization(), staticinitialization() and, with an empty kind, within().
type typeNode struct {
	kind types.JoinPointKind
	typ  *typePattern
}

func (n *typeNode) match(jp *types.JoinPoint) bool {
	if n.kind != "" && jp.Kind != n.kind {
		return false
	}
	return n.typ.match(jp.Type)
}

type annotationNode struct {
	name   string
	onType bool
}

func (n *annotationNode) match(jp *types.JoinPoint) bool {
	if n.onType {
		return jp.HasTypeAnnotation(n.name)
	}
	return jp.HasAnnotation(n.name)
}

type argsNode struct{ args *argPattern }

func (n *argsNode) match(jp *types.JoinPoint) bool {
	if jp.Kind != types.KindMethod && jp.Kind != types.KindConstructor {
		return false
	}
	return n.args.match(jp.Parameters)
}

// Env is the environment of if() conditions.
type Env struct {
	Kind            string
	Type            string
	Member          string
	Visibility      string
	Static          bool
	Args            int
	ParamTypes      []string
	Annotations     []string
	TypeAnnotations []string
	File            string
}

// NewEnv builds the condition environment of a join point.
func NewEnv(jp *types.JoinPoint) Env {
	return Env{
		Kind:            string(jp.Kind),
		Type:            jp.Type,
		Member:          jp.Member,
		Visibility:      string(jp.Visibility),
		Static:          jp.Static,
		Args:            len(jp.Parameters),
		ParamTypes:      jp.ParameterTypes(),
		Annotations:     jp.Annotations,
		TypeAnnotations: jp.TypeAnnotations,
		File:            jp.Location.File,
	}
}

type conditionNode struct {
	program *vm.Program
}

func compileCondition(src string) (*conditionNode, error) {
	program, err := expr.Compile(src, expr.Env(Env{}), expr.AsBool())
	if err != nil {
		return nil, err
	}
	return &conditionNode{program: program}, nil
}

func (n *conditionNode) match(jp *types.JoinPoint) bool {
	out, err := expr.Run(n.program, NewEnv(jp))
	if err != nil {
		return false
	}
	result, ok := out.(bool)
	return ok && result
}

type refNode struct{ target types.Pointcut }

func (n refNode) match(jp *types.JoinPoint) bool { return n.target.Matches(jp) }
