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

// ModuleLoader supplies raw source text for a source identity. It is the single point
// where the transformer pipeline output replaces the original text before execution.
// ModuleLoader 模块加载器
type ModuleLoader interface {
	Load(identity string) ([]byte, error)
}

// ModuleLoaderFunc adapts a function to ModuleLoader.
type ModuleLoaderFunc func(identity string) ([]byte, error)

func (f ModuleLoaderFunc) Load(identity string) ([]byte, error) {
	return f(identity)
}

// Instantiator performs direct, non-intercepted construction of host objects.
// It is the terminal step of constructor chains and the fallback for untouched types.
type Instantiator interface {
	New(typeName string, args []any) (any, error)
}

// InstantiatorFunc adapts a function to Instantiator.
type InstantiatorFunc func(typeName string, args []any) (any, error)

func (f InstantiatorFunc) New(typeName string, args []any) (any, error) {
	return f(typeName, args)
}

// Annotation is one parsed annotation of a metadata block.
type Annotation struct {
	// Name annotation kind, e.g. Before or App\Annotation\Cacheable
	Name string
	// Attributes named attributes; the positional argument is stored under "value"
	Attributes map[string]string
	// Qualified is set when the name was written with a leading separator
	Qualified bool
}

// Value returns the positional attribute.
func (a Annotation) Value() string {
	return a.Attributes["value"]
}

// Annotations the annotations of one metadata block in declaration order.
type Annotations []Annotation

// Get returns the first annotation of the given kind, compared case-insensitively.
func (a Annotations) Get(kind string) (Annotation, bool) {
	for _, item := range a {
		if strings.EqualFold(TrimName(item.Name), TrimName(kind)) {
			return item, true
		}
	}
	return Annotation{}, false
}

// Names returns the annotation kinds in declaration order.
func (a Annotations) Names() []string {
	var names = make([]string, 0, len(a))
	for _, item := range a {
		names = append(names, TrimName(item.Name))
	}
	return names
}

// MetadataReader parses a raw metadata block into annotations.
// MetadataReader 注解解析器
type MetadataReader interface {
	Read(block string) (Annotations, error)
}
