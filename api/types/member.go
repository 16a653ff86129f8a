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

import "strings"

// ConstructorName is the member name of a declared constructor.
const ConstructorName = "__construct"

// MemberKind kind of a declared member
type MemberKind string

const (
	MemberMethod      MemberKind = "method"
	MemberProperty    MemberKind = "property"
	MemberConstructor MemberKind = "constructor"
)

// Member is a declared member as reported by the introspection provider.
type Member struct {
	Name          string
	Kind          MemberKind
	Visibility    Visibility
	Static        bool
	Parameters    []Parameter
	DeclaringType string
	Annotations   []string
	Location      SourceLocation
}

// TypeInfo is the introspected description of a type.
type TypeInfo struct {
	Name        string
	Members     []Member
	Annotations []string
	Location    SourceLocation
}

// Member finds a declared member by kind and name. Names are compared case-insensitively
// for methods, case-sensitively for properties.
func (t TypeInfo) Member(kind MemberKind, name string) (Member, bool) {
	for _, m := range t.Members {
		if m.Kind != kind {
			continue
		}
		if kind == MemberProperty && m.Name == name {
			return m, true
		}
		if kind != MemberProperty && strings.EqualFold(m.Name, name) {
			return m, true
		}
	}
	return Member{}, false
}

// Constructor returns the declared constructor. A type without one has an implicit
// public constructor without parameters, reported with ok=false.
func (t TypeInfo) Constructor() (Member, bool) {
	if m, ok := t.Member(MemberConstructor, ConstructorName); ok {
		return m, true
	}
	return Member{Name: ConstructorName, Kind: MemberConstructor, Visibility: Public, DeclaringType: t.Name}, false
}

// JoinPoint builds the join point of a member of this type.
func (t TypeInfo) JoinPoint(m Member) *JoinPoint {
	jp := &JoinPoint{
		Type:            TrimName(t.Name),
		Visibility:      m.Visibility,
		Static:          m.Static,
		Parameters:      m.Parameters,
		Annotations:     m.Annotations,
		TypeAnnotations: t.Annotations,
		Location:        m.Location,
	}
	if jp.Visibility == "" {
		jp.Visibility = Public
	}
	if jp.Location.File == "" {
		jp.Location = t.Location
	}
	switch m.Kind {
	case MemberConstructor:
		jp.Kind = KindConstructor
	case MemberProperty:
		jp.Kind = KindProperty
		jp.Member = m.Name
	default:
		jp.Kind = KindMethod
		jp.Member = m.Name
	}
	return jp
}

// StaticInitJoinPoint builds the static initialization join point of this type.
func (t TypeInfo) StaticInitJoinPoint() *JoinPoint {
	return &JoinPoint{
		Kind:            KindStaticInit,
		Type:            TrimName(t.Name),
		Visibility:      Public,
		Static:          true,
		TypeAnnotations: t.Annotations,
		Location:        t.Location,
	}
}

// Introspector is the introspection provider. It is a pure query service.
// Introspector 类型内省服务
type Introspector interface {
	// Type returns the declared members and annotations of a type, ok=false when the type is unknown.
	Type(name string) (TypeInfo, bool)
}

// AliasProvider is optionally implemented by an Introspector that already knows the
// alias/namespace table of a source unit.
type AliasProvider interface {
	Aliases(identity string) (AliasTable, bool)
}

// TypeTable is a static Introspector backed by a map keyed by type name.
type TypeTable map[string]TypeInfo

// Add registers the type under its own name.
func (t TypeTable) Add(info TypeInfo) TypeTable {
	t[strings.ToLower(TrimName(info.Name))] = info
	return t
}

// Type implements Introspector.
func (t TypeTable) Type(name string) (TypeInfo, bool) {
	info, ok := t[strings.ToLower(TrimName(name))]
	return info, ok
}
