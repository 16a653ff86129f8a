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

// Pointcut is a pure, deterministic predicate selecting join points.
// Pointcut 切入点，用于判断是否需要执行增强点
type Pointcut interface {
	// ID declaration id, empty for anonymous pointcuts
	ID() string
	// Matches reports whether the join point is selected
	Matches(jp *JoinPoint) bool
	// String returns the source expression
	String() string
}

// PointcutDecl is a named pointcut declaration.
type PointcutDecl struct {
	ID   string
	Expr string
}
