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
	"github.com/rulego/weaver/api/types"
	"go.uber.org/zap"
)

var (
	_ types.AdvisorProvider = (*Debug)(nil)
	_ types.AspectFactory   = (*Debug)(nil)
	_ types.Ordered         = (*Debug)(nil)
)

// Debug logs the arguments, the result and the failure of the matched join points at debug level.
// Debug 调试日志切面
type Debug struct {
	// Pointcut selects the logged join points, every join point when empty
	Pointcut string
	// Logger defaults to the global zap logger
	Logger *zap.Logger
}

func (a *Debug) Order() int {
	return 900
}

// New 创建新的切面实例
func (a *Debug) New() types.Aspect {
	return &Debug{Pointcut: a.Pointcut, Logger: a.Logger}
}

// Type 返回切面类型
func (a *Debug) Type() string {
	return "debug"
}

func (a *Debug) Advisors() []types.AdviceDecl {
	pc := orDefault(a.Pointcut, AnyPointcut)
	return []types.AdviceDecl{
		advisor(types.PhaseBefore, pc, "Before", a.Before),
		advisor(types.PhaseAfter, pc, "After", a.After),
		advisor(types.PhaseAfterThrowing, pc, "AfterThrowing", a.AfterThrowing),
	}
}

func (a *Debug) Before(inv types.Invocation) error {
	a.logger().Debug("enter", zap.Stringer("joinPoint", inv.JoinPoint()), zap.Any("args", inv.Arguments()))
	return nil
}

func (a *Debug) After(inv types.Invocation, result any) (any, error) {
	a.logger().Debug("exit", zap.Stringer("joinPoint", inv.JoinPoint()), zap.Any("result", result))
	return result, nil
}

// AfterThrowing logs the failure and rethrows it.
func (a *Debug) AfterThrowing(inv types.Invocation, err error) (any, error) {
	a.logger().Debug("failed", zap.Stringer("joinPoint", inv.JoinPoint()), zap.Error(err))
	return nil, err
}

func (a *Debug) logger() *zap.Logger {
	if a.Logger != nil {
		return a.Logger
	}
	return zap.L()
}
