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
	"strconv"
	"strings"
)

// JoinPointKind is the kind of interceptable execution point.
// JoinPointKind 连接点类型
type JoinPointKind string

const (
	// KindConstructor object instantiation
	KindConstructor JoinPointKind = "constructor"
	// KindMethod method execution
	KindMethod JoinPointKind = "method"
	// KindProperty property access
	KindProperty JoinPointKind = "property"
	// KindStaticInit static initialization of a type
	KindStaticInit JoinPointKind = "staticInit"
)

// Visibility of a member.
type Visibility string

const (
	Public    Visibility = "public"
	Protected Visibility = "protected"
	Private   Visibility = "private"
)

// ParseVisibility parses a visibility keyword, case-insensitively.
func ParseVisibility(s string) (Visibility, bool) {
	switch Visibility(strings.ToLower(s)) {
	case Public:
		return Public, true
	case Protected:
		return Protected, true
	case Private:
		return Private, true
	}
	return "", false
}

// Parameter is one declared parameter of a method or constructor.
type Parameter struct {
	Name     string `json:"name" yaml:"name"`
	Type     string `json:"type,omitempty" yaml:"type,omitempty"`
	Optional bool   `json:"optional,omitempty" yaml:"optional,omitempty"`
	Variadic bool   `json:"variadic,omitempty" yaml:"variadic,omitempty"`
}

// SourceLocation points at the declaration of a join point.
type SourceLocation struct {
	File string `json:"file,omitempty"`
	Line int    `json:"line,omitempty"`
}

func (l SourceLocation) String() string {
	if l.File == "" {
		return ""
	}
	if l.Line <= 0 {
		return l.File
	}
	return l.File + ":" + strconv.Itoa(l.Line)
}

// JoinPoint is the canonical description of an interceptable execution point.
// It is derived on demand from the introspection provider or from source and is
// never mutated once resolved.
//
// JoinPoint 连接点，描述一个可拦截的执行点。解析后不可变。
type JoinPoint struct {
	// Kind of the join point
	Kind JoinPointKind
	// Type fully-qualified owning type name without leading separator, e.g. App\Models\User
	Type string
	// Member name. Empty for constructor and static initialization join points.
	Member string
	// Visibility of the member. Constructors without explicit declaration are public.
	Visibility Visibility
	// Static is true for static members
	Static bool
	// Parameters declared by the member
	Parameters []Parameter
	// Annotations fully-qualified annotation types attached to the member
	Annotations []string
	// TypeAnnotations fully-qualified annotation types attached to the owning type
	TypeAnnotations []string
	// Location declaration position, best effort
	Location SourceLocation
}

// Key returns the identity of the join point, used to memoize interceptor chains.
// Key 返回连接点唯一标识，用于缓存拦截器链
func (jp *JoinPoint) Key() string {
	switch jp.Kind {
	case KindConstructor:
		return "init:" + jp.Type
	case KindStaticInit:
		return "static:" + jp.Type
	case KindProperty:
		return "prop:" + jp.Type + jp.separator() + jp.Member
	default:
		return "method:" + jp.Type + jp.separator() + jp.Member
	}
}

func (jp *JoinPoint) separator() string {
	if jp.Static {
		return "::"
	}
	return "->"
}

func (jp *JoinPoint) String() string {
	return jp.Key()
}

// HasAnnotation reports whether the member carries the given annotation type.
func (jp *JoinPoint) HasAnnotation(name string) bool {
	return containsName(jp.Annotations, name)
}

// HasTypeAnnotation reports whether the owning type carries the given annotation type.
func (jp *JoinPoint) HasTypeAnnotation(name string) bool {
	return containsName(jp.TypeAnnotations, name)
}

// ParameterTypes returns declared parameter types, empty string for untyped parameters.
func (jp *JoinPoint) ParameterTypes() []string {
	var result = make([]string, 0, len(jp.Parameters))
	for _, p := range jp.Parameters {
		result = append(result, TrimName(p.Type))
	}
	return result
}

// TrimName strips the leading namespace separator of a type name.
func TrimName(name string) string {
	return strings.TrimLeft(strings.TrimSpace(name), `\`)
}

// SameName compares two type names the way the host language does: case-insensitively
// and ignoring a leading namespace separator.
func SameName(a, b string) bool {
	return strings.EqualFold(TrimName(a), TrimName(b))
}

func containsName(list []string, name string) bool {
	for _, item := range list {
		if SameName(item, name) {
			return true
		}
	}
	return false
}
