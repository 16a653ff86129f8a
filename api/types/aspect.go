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

// The interfaces below provide the AOP (Aspect Oriented Programming) mechanism of the weaver.
//
//   - It allows adding extra behavior to already compiled types without modifying them.
//   - It allows separating common behaviors (logging, security checks, transactions, caching)
//     from the business logic.
//
// 以下接口提供 AOP(面向切面编程，Aspect Oriented Programming)机制。
//
//   - 它允许在不修改已有类型的情况下，为其添加额外的行为。
//   - 它允许把一些公共的行为（例如：日志、安全检查、事务、缓存）从业务逻辑中分离出来。

// Aspect is the base interface of all aspects.
// Aspect 切面接口的基类
type Aspect interface {
	// Type returns the aspect type name, used in records and configuration
	// Type 返回切面类型
	Type() string
}

// Ordered is implemented by aspects that need a specific declaration order.
// The smaller the value, the earlier the aspect is declared and the more outer it wraps.
// Ordered 返回执行顺序，值越小，优先级越高
type Ordered interface {
	Order() int
}

// AspectFactory is implemented by aspects that create a fresh instance per kernel.
type AspectFactory interface {
	New() Aspect
}

// AdvisorProvider declares advices programmatically.
// AdvisorProvider 以编程方式声明增强点
type AdvisorProvider interface {
	Aspect
	Advisors() []AdviceDecl
}

// PointcutProvider declares named pointcuts that advices can reference by id.
type PointcutProvider interface {
	Aspect
	Pointcuts() []PointcutDecl
}

// MemberMetadata is the raw metadata block attached to one aspect method.
type MemberMetadata struct {
	Member string
	Block  string
}

// AnnotatedAspect declares advices and pointcuts with annotation blocks on its methods, e.g.
//
//	func (a *Logging) Metadata() []types.MemberMetadata {
//		return []types.MemberMetadata{
//			{Member: "BeforeSave", Block: `@Before("execution(public App\**->save(*))")`},
//		}
//	}
//
// Blocks are parsed once at registration. The annotated methods are resolved by name and
// must have the signature of the declared phase.
type AnnotatedAspect interface {
	Aspect
	Metadata() []MemberMetadata
}

// AspectDefinition is a declared bundle of pointcuts and advices plus the aspect instance state.
// It is created at kernel init and lives for the kernel lifetime.
// AspectDefinition 切面定义
type AspectDefinition struct {
	Name      string
	Aspect    Aspect
	Index     int
	Pointcuts []Pointcut
	Advices   []*Advice
}

// AspectOrder returns the order of an aspect, 0 when it does not implement Ordered.
func AspectOrder(a Aspect) int {
	if o, ok := a.(Ordered); ok {
		return o.Order()
	}
	return 0
}
