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
	"github.com/rulego/weaver/kernel"
)

// AnyPointcut selects every join point.
const AnyPointcut = "within(**)"

func init() {
	for _, a := range Builtins() {
		_ = kernel.Registry.Register(a)
	}
}

// Builtins returns a default instance of every built-in aspect.
func Builtins() []types.Aspect {
	return []types.Aspect{
		&RunSnapshot{},
		&ConcurrencyLimiter{},
		&SkipFallback{},
		&Validator{},
		NewMetrics(nil),
		&Cache{},
		&Script{},
		&Debug{},
	}
}

func orDefault(pointcut, def string) string {
	if pointcut == "" {
		return def
	}
	return pointcut
}

func advisor(phase types.Phase, pointcut, member string, fn any) types.AdviceDecl {
	return types.AdviceDecl{Phase: phase, Pointcut: pointcut, Member: member, Fn: fn}
}
